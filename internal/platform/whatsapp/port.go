package whatsapp

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/alsaadxx12/fly1234/internal/platform/broadcast"
)

// Repository defines the interface for account persistence operations
type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// List returns all accounts, oldest first
	List(ctx context.Context) ([]*Account, error)

	Update(ctx context.Context, a *Account) error
	Delete(ctx context.Context, id uuid.UUID) error
	ExistsByInstanceID(ctx context.Context, instanceID string, exclude uuid.UUID) (bool, error)

	// SetDefault marks id as the only default account
	SetDefault(ctx context.Context, id uuid.UUID) error
}

// Gateway is the messaging gateway as seen by the account service
type Gateway interface {
	broadcast.Sender
	ProfilePicture(ctx context.Context, acct broadcast.Account, phone string) (string, error)
	UploadMedia(ctx context.Context, acct broadcast.Account, filename string, file io.Reader) (string, error)
}
