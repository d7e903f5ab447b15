package visa

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for visa entry persistence operations
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	List(ctx context.Context, f ListFilter) ([]*Entry, error)
	Update(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, id uuid.UUID) error

	// SetStatus moves an entry from one status to another. It returns
	// ErrInvalidTransition when the stored status is no longer from.
	SetStatus(ctx context.Context, e *Entry, from Status) error
}
