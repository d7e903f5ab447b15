package ticket

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for ticket persistence operations
type Repository interface {
	Create(ctx context.Context, t *Ticket) error
	GetByID(ctx context.Context, id uuid.UUID) (*Ticket, error)
	List(ctx context.Context, f ListFilter) ([]*Ticket, error)

	// Update and Delete must leave audited rows untouched and return
	// ErrTicketAudited for them, so a concurrent audit cannot be overwritten.
	Update(ctx context.Context, t *Ticket) error
	Delete(ctx context.Context, id uuid.UUID) error

	// MarkAudited flips the audit flag once; an already audited row returns ErrTicketAudited
	MarkAudited(ctx context.Context, t *Ticket) error
}
