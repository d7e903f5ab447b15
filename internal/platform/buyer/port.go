package buyer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository defines the interface for buyer persistence operations
type Repository interface {
	Create(ctx context.Context, b *Buyer) error
	GetByID(ctx context.Context, id uuid.UUID) (*Buyer, error)
	List(ctx context.Context, f ListFilter) ([]*Buyer, error)
	Update(ctx context.Context, b *Buyer) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ExistsByAccountingID reports whether another buyer (not exclude) uses the id
	ExistsByAccountingID(ctx context.Context, accountingID string, exclude uuid.UUID) (bool, error)

	// ListForSync returns buyers with an accounting id, least recently synced first
	ListForSync(ctx context.Context) ([]*Buyer, error)

	// SetBalance stores a balance read from the accounting system
	SetBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal, syncedAt time.Time) error
}
