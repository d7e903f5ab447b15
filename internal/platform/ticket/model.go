package ticket

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alsaadxx12/fly1234/internal/platform/note"
	"github.com/alsaadxx12/fly1234/pkg/money"
)

// Kind distinguishes issued tickets from refunds and changes
type Kind string

const (
	KindTicket Kind = "ticket"
	KindRefund Kind = "refund"
	KindChange Kind = "change"
)

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	switch k {
	case KindTicket, KindRefund, KindChange:
		return true
	}
	return false
}

// Ticket is one bookkeeping entry for an airline ticket, refund or change
type Ticket struct {
	ID            uuid.UUID       `json:"id"`
	Kind          Kind            `json:"kind"`
	PNR           string          `json:"pnr,omitempty"`
	PassengerName string          `json:"passenger_name"`
	Route         string          `json:"route,omitempty"`
	Airline       string          `json:"airline,omitempty"`
	BuyerID       uuid.UUID       `json:"buyer_id"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Currency      money.Currency  `json:"currency"`
	IssueDate     time.Time       `json:"issue_date"`
	Notes         string          `json:"notes,omitempty"`
	CreatedBy     string          `json:"created_by"`
	Audited       bool            `json:"audited"`
	AuditedBy     string          `json:"audited_by,omitempty"`
	AuditedAt     *time.Time      `json:"audited_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Profit is sale minus purchase
func (t *Ticket) Profit() decimal.Decimal {
	return t.SalePrice.Sub(t.PurchasePrice)
}

// Normalize trims text fields and upper-cases the PNR
func (t *Ticket) Normalize() {
	t.Kind = Kind(strings.ToLower(strings.TrimSpace(string(t.Kind))))
	if t.Kind == "" {
		t.Kind = KindTicket
	}
	t.PNR = strings.ToUpper(strings.TrimSpace(t.PNR))
	t.PassengerName = note.Collapse(t.PassengerName)
	t.Route = note.Collapse(t.Route)
	t.Airline = note.Collapse(t.Airline)
	t.Notes = strings.TrimSpace(t.Notes)
}

// Validate checks required fields and amounts
func (t *Ticket) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if t.PassengerName == "" {
		return ErrMissingPassenger
	}
	if t.PNR != "" && !note.ValidPNR(t.PNR) {
		return ErrInvalidPNR
	}
	if t.BuyerID == uuid.Nil {
		return ErrMissingBuyer
	}
	if t.SalePrice.IsNegative() || t.PurchasePrice.IsNegative() {
		return ErrNegativePrice
	}
	if t.IssueDate.IsZero() {
		return ErrMissingIssueDate
	}
	c, err := money.ParseCurrency(string(t.Currency))
	if err != nil {
		return err
	}
	t.Currency = c
	return nil
}

// ListFilter narrows a ticket listing. Zero values mean no restriction.
type ListFilter struct {
	Kind    Kind
	BuyerID uuid.UUID
	Audited *bool
	From    time.Time
	To      time.Time
	Search  string
	Limit   int
	Offset  int
}

// Totals sums a set of tickets per currency
type Totals struct {
	Count    int             `json:"count"`
	Sale     decimal.Decimal `json:"sale"`
	Purchase decimal.Decimal `json:"purchase"`
	Profit   decimal.Decimal `json:"profit"`
}

// Summarize groups sale, purchase and profit sums by currency
func Summarize(tickets []*Ticket) map[money.Currency]Totals {
	out := make(map[money.Currency]Totals)
	for _, t := range tickets {
		tot := out[t.Currency]
		tot.Count++
		tot.Sale = tot.Sale.Add(t.SalePrice)
		tot.Purchase = tot.Purchase.Add(t.PurchasePrice)
		tot.Profit = tot.Profit.Add(t.Profit())
		out[t.Currency] = tot
	}
	return out
}
