// Package statement assembles buyer account statements from the accounting
// API: it pages through the transaction history with bounded retry, normalizes
// each note, and arranges the result into month groups for display and export.
package statement

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alsaadxx12/fly1234/internal/platform/note"
	"github.com/alsaadxx12/fly1234/pkg/money"
)

// Transaction types the accounting system is known to send. Others pass through.
const (
	TypeCharge          = "CHARGE"
	TypePayment         = "PAYMENT"
	TypeRefund          = "REFUND"
	TypePreviousBalance = "PREVIOUS_BALANCE"
	TypeOpeningBalance  = "OPENING_BALANCE"
)

// Transaction is one row of a buyer's remote ledger. It is never persisted.
type Transaction struct {
	No      int64  `json:"no"`
	Date    string `json:"date"`
	Details string `json:"details"`
	Note    string `json:"note"`
	Type    string `json:"type"`

	Debit      decimal.Decimal `json:"debit"`
	Credit     decimal.Decimal `json:"credit"`
	Balance    decimal.Decimal `json:"balance"`
	DebitIQD   decimal.Decimal `json:"debit_iqd"`
	CreditIQD  decimal.Decimal `json:"credit_iqd"`
	BalanceIQD decimal.Decimal `json:"balance_iqd"`

	InvoiceNo string `json:"invoice_no,omitempty"`
	PNR       string `json:"pnr,omitempty"`
	BookingID string `json:"booking_id,omitempty"`

	// Derived by Normalize
	Time     time.Time  `json:"time"`
	Parsed   *note.Note `json:"parsed,omitempty"`
	NoteHTML string     `json:"note_html"`
}

// Summary is the statement header taken from the first page envelope
type Summary struct {
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	TotalCredit     decimal.Decimal `json:"total_credit"`
	TotalDebit      decimal.Decimal `json:"total_debit"`
	BalanceDue      decimal.Decimal `json:"balance_due"`
	Currency        money.Currency  `json:"currency"`
	From            string          `json:"from,omitempty"`
	To              string          `json:"to,omitempty"`
}

// Filter narrows a statement fetch. Dates use yyyy-MM-dd.
type Filter struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	Type string `json:"type,omitempty"`
}

// Validate checks the date bounds
func (f Filter) Validate() error {
	for _, d := range []string{f.From, f.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(DateLayout, d); err != nil {
			return ErrInvalidDate
		}
	}
	if f.From != "" && f.To != "" && f.From > f.To {
		return ErrInvalidRange
	}
	return nil
}

// DateLayout is the filter date format the accounting API accepts
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	DateLayout,
	"2006/01/02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"02-01-2006",
	"2/1/2006",
}

// ParseDate reads the date formats seen in accounting exports. The zero time
// means the value could not be parsed.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

var previousBalanceText = regexp.MustCompile(`(?i)previous\s+balance|opening\s+balance|balance\s+b/?f|رصيد\s*سابق|الرصيد\s*السابق`)

// IsPreviousBalance reports whether the row is a carried-forward balance
// rather than a real movement.
func (t *Transaction) IsPreviousBalance() bool {
	switch strings.ToUpper(strings.TrimSpace(t.Type)) {
	case TypePreviousBalance, TypeOpeningBalance:
		return true
	}
	return previousBalanceText.MatchString(t.Details)
}

// Normalize fills the derived fields: parsed date, structured note, and
// identifiers the note carries when the API left them empty.
func (t *Transaction) Normalize() {
	t.Time = ParseDate(t.Date)

	text := t.Note
	if strings.TrimSpace(text) == "" {
		text = t.Details
	}
	n := note.Parse(text)
	t.Parsed = n
	t.NoteHTML = n.Fragment()

	if !note.ValidPNR(t.PNR) {
		t.PNR = n.PNR
	} else {
		t.PNR = strings.ToUpper(t.PNR)
	}
	if t.BookingID == "" {
		t.BookingID = n.BookingID
	}
	if t.InvoiceNo == "" {
		t.InvoiceNo = n.InvoiceNo
	}
}
