package visa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alsaadxx12/fly1234/internal/platform/changefeed"
)

const defaultListLimit = 100

// Service handles visa entries
type Service struct {
	repo Repository
	feed changefeed.Publisher
}

// NewService creates a new visa service. feed may be nil.
func NewService(repo Repository, feed changefeed.Publisher) *Service {
	if feed == nil {
		feed = changefeed.Nop{}
	}
	return &Service{repo: repo, feed: feed}
}

// Create records a new visa application. New entries start pending unless a
// status is given.
func (s *Service) Create(ctx context.Context, e *Entry) (*Entry, error) {
	e.Normalize()
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	e.ID = uuid.New()
	e.CreatedAt = now
	e.UpdatedAt = now
	if e.Status != StatusPending && e.SubmittedAt == nil {
		e.SubmittedAt = &now
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create visa entry: %w", err)
	}
	s.publish(ctx, e.ID, changefeed.OpCreate)
	return e, nil
}

// GetByID retrieves a visa entry
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves visa entries, newest first
func (s *Service) List(ctx context.Context, f ListFilter) ([]*Entry, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("validation failed: %w", ErrInvalidStatus)
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = defaultListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	entries, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list visa entries: %w", err)
	}
	return entries, nil
}

// Update replaces the editable fields of an entry. Status changes go through
// ChangeStatus; the stored status is kept.
func (s *Service) Update(ctx context.Context, e *Entry) (*Entry, error) {
	existing, err := s.repo.GetByID(ctx, e.ID)
	if err != nil {
		return nil, err
	}

	e.Status = existing.Status
	e.Normalize()
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	e.SubmittedAt = existing.SubmittedAt
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, e); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update visa entry: %w", err)
	}
	s.publish(ctx, e.ID, changefeed.OpUpdate)
	return e, nil
}

// ChangeStatus moves an entry along the status graph
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, next Status) (*Entry, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("validation failed: %w", ErrInvalidStatus)
	}

	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status == next {
		return e, nil
	}
	if !e.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, e.Status, next)
	}

	from := e.Status
	now := time.Now().UTC()
	e.Status = next
	e.UpdatedAt = now
	if next == StatusSubmitted && e.SubmittedAt == nil {
		e.SubmittedAt = &now
	}

	if err := s.repo.SetStatus(ctx, e, from); err != nil {
		return nil, err
	}
	s.publish(ctx, e.ID, changefeed.OpUpdate)
	return e, nil
}

// Delete removes an entry
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, id, changefeed.OpDelete)
	return nil
}

func (s *Service) publish(ctx context.Context, id uuid.UUID, op changefeed.Op) {
	_ = s.feed.Publish(ctx, changefeed.New(changefeed.Visas, id.String(), op))
}
