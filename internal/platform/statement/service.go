package statement

import (
	"context"
	"fmt"
	"time"

	"github.com/alsaadxx12/fly1234/pkg/logger"
)

// Snapshot is an accumulated statement kept between page views
type Snapshot struct {
	AccountID    string        `json:"account_id"`
	Filter       Filter        `json:"filter"`
	Transactions []Transaction `json:"transactions"`
	Summary      *Summary      `json:"summary,omitempty"`
	FetchedAt    time.Time     `json:"fetched_at"`
}

// Cache stores complete snapshots. Partial fetches are never cached.
type Cache interface {
	Get(ctx context.Context, accountID string, f Filter) (*Snapshot, bool, error)
	Set(ctx context.Context, s *Snapshot) error
	Invalidate(ctx context.Context, accountID string) error
}

// Statement is one page of an assembled statement
type Statement struct {
	AccountID string   `json:"account_id"`
	Filter    Filter   `json:"filter"`
	Summary   *Summary `json:"summary,omitempty"`
	Overview  Overview `json:"overview"`
	View
	FetchedAt time.Time `json:"fetched_at"`
	Cached    bool      `json:"cached"`
}

// Service loads statements through the cache and assembles views
type Service struct {
	fetcher *Fetcher
	cache   Cache
	logger  *logger.Logger
}

// NewService creates a statement service. cache may be nil.
func NewService(fetcher *Fetcher, cache Cache, log *logger.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		cache:   cache,
		logger:  log.WithField("component", "statement"),
	}
}

// Load returns the full history for an account, from cache when possible.
// On a *FetchError the partial snapshot is returned with the error.
func (s *Service) Load(ctx context.Context, accountID string, f Filter, onPage ProgressFunc) (*Snapshot, bool, error) {
	if accountID == "" {
		return nil, false, ErrMissingAccount
	}
	if err := f.Validate(); err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		snap, ok, err := s.cache.Get(ctx, accountID, f)
		if err != nil {
			s.logger.Warn("statement cache unavailable", "account_id", accountID, "error", err)
		} else if ok {
			if onPage != nil {
				onPage(len(snap.Transactions))
			}
			return snap, true, nil
		}
	}

	res, err := s.fetcher.Fetch(ctx, Request{AccountID: accountID, Filter: f}, onPage)
	snap := &Snapshot{AccountID: accountID, Filter: f, FetchedAt: time.Now().UTC()}
	if res != nil {
		snap.Transactions = res.Transactions
		snap.Summary = res.Summary
	}
	if err != nil {
		return snap, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, snap); err != nil {
			s.logger.Warn("failed to cache statement", "account_id", accountID, "error", err)
		}
	}
	return snap, false, nil
}

// Statement returns one display page of a statement
func (s *Service) Statement(ctx context.Context, accountID string, f Filter, page int) (*Statement, error) {
	if page < 1 {
		return nil, ErrInvalidPage
	}
	snap, cached, err := s.Load(ctx, accountID, f, nil)
	if err != nil {
		return nil, err
	}
	return Assemble(snap, page, cached), nil
}

// Assemble groups a snapshot and cuts out one page
func Assemble(snap *Snapshot, page int, cached bool) *Statement {
	layout := GroupByMonth(snap.Transactions)
	return &Statement{
		AccountID: snap.AccountID,
		Filter:    snap.Filter,
		Summary:   snap.Summary,
		Overview:  layout.Overview(),
		View:      Paginate(Flatten(layout), page, RowsPerPage),
		FetchedAt: snap.FetchedAt,
		Cached:    cached,
	}
}

// Refresh drops cached snapshots for an account
func (s *Service) Refresh(ctx context.Context, accountID string) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx, accountID); err != nil {
		return fmt.Errorf("failed to invalidate statement cache: %w", err)
	}
	return nil
}

// Summary fetches only the envelope summary for an account
func (s *Service) Summary(ctx context.Context, accountID string) (*Summary, error) {
	return s.fetcher.FetchSummary(ctx, Request{AccountID: accountID})
}
