package balancesync

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alsaadxx12/fly1234/internal/platform/buyer"
	"github.com/alsaadxx12/fly1234/internal/platform/statement"
)

// BuyerStore lists buyers to refresh and records their balances
type BuyerStore interface {
	ListForSync(ctx context.Context) ([]*buyer.Buyer, error)
	RecordBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
}

// SummarySource fetches the statement summary of an accounting account
type SummarySource interface {
	Summary(ctx context.Context, accountID string) (*statement.Summary, error)
}
