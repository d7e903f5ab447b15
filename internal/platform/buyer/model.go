package buyer

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alsaadxx12/fly1234/pkg/money"
)

// Buyer is an agency customer with an account in the accounting system
type Buyer struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Phone        string         `json:"phone,omitempty"`
	AccountingID string         `json:"accounting_id"`
	Currency     money.Currency `json:"currency"`
	// Balance is the last balance due read from the accounting system
	Balance         decimal.NullDecimal `json:"balance"`
	BalanceSyncedAt *time.Time          `json:"balance_synced_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// Normalize trims input fields
func (b *Buyer) Normalize() {
	b.Name = strings.TrimSpace(b.Name)
	b.Phone = strings.TrimSpace(b.Phone)
	b.AccountingID = strings.TrimSpace(b.AccountingID)
}

// Validate checks required fields
func (b *Buyer) Validate() error {
	if b.Name == "" {
		return ErrMissingName
	}
	if utf8.RuneCountInString(b.Name) > 200 {
		return ErrNameTooLong
	}
	if b.AccountingID == "" {
		return ErrMissingAccountingID
	}
	if b.Phone != "" && !validPhone(b.Phone) {
		return ErrInvalidPhone
	}
	c, err := money.ParseCurrency(string(b.Currency))
	if err != nil {
		return err
	}
	b.Currency = c
	return nil
}

func validPhone(p string) bool {
	digits := 0
	for _, r := range p {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}

// ListFilter narrows a buyer listing
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}
