package visa

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alsaadxx12/fly1234/internal/platform/note"
	"github.com/alsaadxx12/fly1234/pkg/money"
)

// Status is where an application stands with the issuing authority
type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusDelivered Status = "delivered"
)

// transitions lists the statuses reachable from each status.
// Rejected and delivered are final.
var transitions = map[Status][]Status{
	StatusPending:   {StatusSubmitted, StatusRejected},
	StatusSubmitted: {StatusPending, StatusApproved, StatusRejected},
	StatusApproved:  {StatusDelivered, StatusRejected},
	StatusRejected:  nil,
	StatusDelivered: nil,
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Final reports whether no transition leaves s
func (s Status) Final() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransition reports whether an entry may move from s to next
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Entry is one visa application handled for a buyer
type Entry struct {
	ID            uuid.UUID       `json:"id"`
	ApplicantName string          `json:"applicant_name"`
	PassportNo    string          `json:"passport_no"`
	Country       string          `json:"country"`
	VisaType      string          `json:"visa_type,omitempty"`
	Status        Status          `json:"status"`
	BuyerID       uuid.UUID       `json:"buyer_id"`
	Price         decimal.Decimal `json:"price"`
	Cost          decimal.Decimal `json:"cost"`
	Currency      money.Currency  `json:"currency"`
	SubmittedAt   *time.Time      `json:"submitted_at,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Profit is price minus cost
func (e *Entry) Profit() decimal.Decimal {
	return e.Price.Sub(e.Cost)
}

// Normalize trims text fields
func (e *Entry) Normalize() {
	e.ApplicantName = note.Collapse(e.ApplicantName)
	e.PassportNo = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(e.PassportNo), " ", ""))
	e.Country = note.Collapse(e.Country)
	e.VisaType = note.Collapse(e.VisaType)
	e.Status = Status(strings.ToLower(strings.TrimSpace(string(e.Status))))
	if e.Status == "" {
		e.Status = StatusPending
	}
	e.Notes = strings.TrimSpace(e.Notes)
}

// Validate checks required fields and amounts
func (e *Entry) Validate() error {
	if e.ApplicantName == "" {
		return ErrMissingApplicant
	}
	if !validPassport(e.PassportNo) {
		return ErrInvalidPassport
	}
	if e.Country == "" {
		return ErrMissingCountry
	}
	if !e.Status.Valid() {
		return ErrInvalidStatus
	}
	if e.BuyerID == uuid.Nil {
		return ErrMissingBuyer
	}
	if e.Price.IsNegative() || e.Cost.IsNegative() {
		return ErrNegativeAmount
	}
	c, err := money.ParseCurrency(string(e.Currency))
	if err != nil {
		return err
	}
	e.Currency = c
	return nil
}

func validPassport(p string) bool {
	if len(p) < 5 || len(p) > 12 {
		return false
	}
	for i := 0; i < len(p); i++ {
		c := p[i]
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}

// ListFilter narrows a visa listing
type ListFilter struct {
	Status  Status
	BuyerID uuid.UUID
	Country string
	Search  string
	Limit   int
	Offset  int
}
