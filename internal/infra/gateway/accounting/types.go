package accounting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alsaadxx12/fly1234/pkg/money"
)

// TransactionsResponse is the envelope of GET /buyers/{id}/transactions
type TransactionsResponse struct {
	Meta    Meta              `json:"meta"`
	Data    []TransactionData `json:"data"`
	Summary *SummaryData      `json:"summary"`
}

// Meta describes the page that was served
type Meta struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"perpage"`
	Total   int `json:"total"`
}

// TransactionData is one ledger row as the API sends it
type TransactionData struct {
	No         Serial `json:"no"`
	Date       string `json:"date"`
	Details    string `json:"details"`
	Note       string `json:"note"`
	Type       string `json:"type"`
	Debit      Amount `json:"debit"`
	Credit     Amount `json:"credit"`
	Balance    Amount `json:"balance"`
	DebitIQD   Amount `json:"debit_iqd"`
	CreditIQD  Amount `json:"credit_iqd"`
	BalanceIQD Amount `json:"balance_iqd"`
	InvoiceNo  Text   `json:"invoice_no"`
	PNR        string `json:"pnr"`
	BookingID  Text   `json:"booking_id"`
}

// SummaryData is the statement header of the first page
type SummaryData struct {
	PreviousBalance Amount `json:"previousBalance"`
	TotalCredit     Amount `json:"totalCredit"`
	TotalDebit      Amount `json:"totalDebit"`
	BalanceDue      Amount `json:"balanceDue"`
	Currency        string `json:"currency"`
	From            string `json:"from"`
	To              string `json:"to"`
}

// Amount decodes a money value sent as a number, a formatted string, an
// empty string or null.
type Amount struct {
	decimal.Decimal
}

// UnmarshalJSON implements json.Unmarshaler
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		a.Decimal = decimal.Zero
		return nil
	}
	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	d, err := money.Parse(s)
	if err != nil {
		return err
	}
	a.Decimal = d
	return nil
}

// Serial decodes a row number sent as a number or a string
type Serial int64

// UnmarshalJSON implements json.Unmarshaler
func (s *Serial) UnmarshalJSON(data []byte) error {
	text := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if text == "" || text == "null" {
		*s = 0
		return nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(text, 64)
		if ferr != nil {
			return fmt.Errorf("invalid serial %q: %w", text, err)
		}
		n = int64(f)
	}
	*s = Serial(n)
	return nil
}

// Text decodes an identifier sent as a string, a number or null
type Text string

// UnmarshalJSON implements json.Unmarshaler
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(strings.TrimSpace(s))
		return nil
	}
	*t = Text(string(data))
	return nil
}
