package buyer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alsaadxx12/fly1234/internal/platform/changefeed"
)

const defaultListLimit = 100

// Service provides business logic for buyer operations
type Service struct {
	repo Repository
	feed changefeed.Publisher
}

// NewService creates a new buyer service. feed may be nil.
func NewService(repo Repository, feed changefeed.Publisher) *Service {
	if feed == nil {
		feed = changefeed.Nop{}
	}
	return &Service{repo: repo, feed: feed}
}

// Create creates a new buyer
func (s *Service) Create(ctx context.Context, b *Buyer) (*Buyer, error) {
	b.Normalize()
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	exists, err := s.repo.ExistsByAccountingID(ctx, b.AccountingID, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check accounting id: %w", err)
	}
	if exists {
		return nil, ErrDuplicateAccounting
	}

	now := time.Now().UTC()
	b.ID = uuid.New()
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Balance = decimal.NullDecimal{}
	b.BalanceSyncedAt = nil

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create buyer: %w", err)
	}
	s.publish(ctx, b.ID, changefeed.OpCreate)
	return b, nil
}

// GetByID retrieves a buyer
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Buyer, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves buyers ordered by name
func (s *Service) List(ctx context.Context, f ListFilter) ([]*Buyer, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = defaultListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	buyers, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list buyers: %w", err)
	}
	return buyers, nil
}

// Update replaces the editable fields of a buyer. Balance fields are owned by
// the sync job and are kept.
func (s *Service) Update(ctx context.Context, b *Buyer) (*Buyer, error) {
	b.Normalize()
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	existing, err := s.repo.GetByID(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	if b.AccountingID != existing.AccountingID {
		exists, err := s.repo.ExistsByAccountingID(ctx, b.AccountingID, b.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check accounting id: %w", err)
		}
		if exists {
			return nil, ErrDuplicateAccounting
		}
	}

	b.CreatedAt = existing.CreatedAt
	b.Balance = existing.Balance
	b.BalanceSyncedAt = existing.BalanceSyncedAt
	b.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to update buyer: %w", err)
	}
	s.publish(ctx, b.ID, changefeed.OpUpdate)
	return b, nil
}

// Delete deletes a buyer
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, id, changefeed.OpDelete)
	return nil
}

// ListForSync returns buyers whose balance can be refreshed
func (s *Service) ListForSync(ctx context.Context) ([]*Buyer, error) {
	return s.repo.ListForSync(ctx)
}

// RecordBalance stores a freshly read balance
func (s *Service) RecordBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	if err := s.repo.SetBalance(ctx, id, balance, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record balance: %w", err)
	}
	s.publish(ctx, id, changefeed.OpUpdate)
	return nil
}

func (s *Service) publish(ctx context.Context, id uuid.UUID, op changefeed.Op) {
	// best effort
	_ = s.feed.Publish(ctx, changefeed.New(changefeed.Buyers, id.String(), op))
}
