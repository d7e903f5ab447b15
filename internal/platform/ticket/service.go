package ticket

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alsaadxx12/fly1234/internal/platform/changefeed"
)

const defaultListLimit = 100

// Service handles ticket bookkeeping
type Service struct {
	repo Repository
	feed changefeed.Publisher
}

// NewService creates a new ticket service. feed may be nil.
func NewService(repo Repository, feed changefeed.Publisher) *Service {
	if feed == nil {
		feed = changefeed.Nop{}
	}
	return &Service{repo: repo, feed: feed}
}

// Create records a new ticket on behalf of operator
func (s *Service) Create(ctx context.Context, t *Ticket, operator string) (*Ticket, error) {
	t.Normalize()
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	t.ID = uuid.New()
	t.CreatedBy = operator
	t.Audited = false
	t.AuditedBy = ""
	t.AuditedAt = nil
	t.CreatedAt = now
	t.UpdatedAt = now

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}
	s.publish(ctx, t.ID, changefeed.OpCreate)
	return t, nil
}

// GetByID retrieves a ticket
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves tickets, newest issue date first
func (s *Service) List(ctx context.Context, f ListFilter) ([]*Ticket, error) {
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return nil, fmt.Errorf("validation failed: %w", ErrInvalidDateRange)
	}
	if f.Kind != "" && !f.Kind.Valid() {
		return nil, fmt.Errorf("validation failed: %w", ErrInvalidKind)
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = defaultListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Search = strings.TrimSpace(f.Search)

	tickets, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

// Update replaces the editable fields of an unaudited ticket
func (s *Service) Update(ctx context.Context, t *Ticket) (*Ticket, error) {
	existing, err := s.repo.GetByID(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	if existing.Audited {
		return nil, ErrTicketAudited
	}

	t.Normalize()
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	t.CreatedBy = existing.CreatedBy
	t.CreatedAt = existing.CreatedAt
	t.Audited = false
	t.AuditedBy = ""
	t.AuditedAt = nil
	t.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, t); err != nil {
		if errors.Is(err, ErrTicketAudited) || errors.Is(err, ErrTicketNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update ticket: %w", err)
	}
	s.publish(ctx, t.ID, changefeed.OpUpdate)
	return t, nil
}

// Delete removes an unaudited ticket
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.Audited {
		return ErrTicketAudited
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, id, changefeed.OpDelete)
	return nil
}

// Audit marks a ticket as checked by auditor. It cannot be undone.
func (s *Service) Audit(ctx context.Context, id uuid.UUID, auditor string) (*Ticket, error) {
	auditor = strings.TrimSpace(auditor)
	if auditor == "" {
		return nil, fmt.Errorf("validation failed: %w", ErrMissingAuditor)
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Audited {
		return nil, ErrTicketAudited
	}

	now := time.Now().UTC()
	t.Audited = true
	t.AuditedBy = auditor
	t.AuditedAt = &now
	t.UpdatedAt = now

	if err := s.repo.MarkAudited(ctx, t); err != nil {
		return nil, err
	}
	s.publish(ctx, t.ID, changefeed.OpUpdate)
	return t, nil
}

func (s *Service) publish(ctx context.Context, id uuid.UUID, op changefeed.Op) {
	_ = s.feed.Publish(ctx, changefeed.New(changefeed.Tickets, id.String(), op))
}
