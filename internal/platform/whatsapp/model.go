package whatsapp

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alsaadxx12/fly1234/internal/platform/broadcast"
)

// Account is one messaging gateway instance the agency sends through
type Account struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	InstanceID string    `json:"instance_id"`
	Token      string    `json:"-"`
	IsActive   bool      `json:"is_active"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Normalize trims input fields
func (a *Account) Normalize() {
	a.Name = strings.TrimSpace(a.Name)
	a.InstanceID = strings.TrimSpace(a.InstanceID)
	a.Token = strings.TrimSpace(a.Token)
}

// Validate checks required fields
func (a *Account) Validate() error {
	if a.Name == "" {
		return ErrMissingName
	}
	if a.InstanceID == "" {
		return ErrMissingInstanceID
	}
	if a.Token == "" {
		return ErrMissingToken
	}
	return nil
}

// TokenHint shows the last four characters of the token
func (a *Account) TokenHint() string {
	if len(a.Token) <= 4 {
		return strings.Repeat("*", len(a.Token))
	}
	return "****" + a.Token[len(a.Token)-4:]
}

// Sender returns the credentials the gateway needs
func (a *Account) Sender() broadcast.Account {
	return broadcast.Account{ID: a.ID, InstanceID: a.InstanceID, Token: a.Token}
}

// pickDefault returns the active default, or the oldest active account when
// none is marked. accounts must be ordered oldest first.
func pickDefault(accounts []*Account) (acct *Account, marked bool) {
	for _, a := range accounts {
		if a.IsActive && a.IsDefault {
			return a, true
		}
	}
	for _, a := range accounts {
		if a.IsActive {
			return a, false
		}
	}
	return nil, false
}
