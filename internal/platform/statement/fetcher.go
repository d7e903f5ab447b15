package statement

import (
	"context"
	"errors"
	"time"

	"github.com/alsaadxx12/fly1234/pkg/logger"
)

const (
	// DefaultPageSize is the largest page the accounting API serves
	DefaultPageSize = 1000
	// DefaultMaxAttempts bounds the requests made for one page
	DefaultMaxAttempts = 3
	// DefaultRetryDelay is multiplied by the attempt number between retries
	DefaultRetryDelay = time.Second
)

// PageQuery identifies one page of a buyer's transaction history
type PageQuery struct {
	AccountID string
	// Token overrides the client's configured access token when set
	Token   string
	Page    int
	PerPage int
	Filter  Filter
}

// Page is one decoded response of the accounting API
type Page struct {
	Transactions []Transaction
	// Summary may be nil when the envelope carries none
	Summary *Summary
}

// PageSource serves transaction pages. Implementations make exactly one
// request per call; retrying is the fetcher's job.
type PageSource interface {
	FetchPage(ctx context.Context, q PageQuery) (*Page, error)
}

// Request describes a full statement fetch
type Request struct {
	AccountID string
	Token     string
	Filter    Filter
}

// Result is the accumulated history of one fetch
type Result struct {
	Transactions []Transaction
	Summary      *Summary
	// Requests counts every HTTP call made, retries included
	Requests int
}

// ProgressFunc receives the running record count after every page
type ProgressFunc func(fetched int)

// FetcherConfig tunes the fetch loop
type FetcherConfig struct {
	PageSize    int
	MaxAttempts int
	RetryDelay  time.Duration
}

// Fetcher pages sequentially through a buyer's history
type Fetcher struct {
	source      PageSource
	pageSize    int
	maxAttempts int
	retryDelay  time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *logger.Logger
}

// NewFetcher creates a fetcher. Zero config values fall back to defaults.
func NewFetcher(source PageSource, cfg FetcherConfig, log *logger.Logger) *Fetcher {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	return &Fetcher{
		source:      source,
		pageSize:    cfg.PageSize,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		sleep:       sleepContext,
		logger:      log.WithField("component", "statement_fetcher"),
	}
}

// PageSize returns the configured page size
func (f *Fetcher) PageSize() int {
	return f.pageSize
}

// Fetch requests pages from page 1 until one comes back short or empty.
// Each transaction is normalized before it is appended. If a page fails on
// every attempt, the records gathered so far are returned together with a
// *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, req Request, onPage ProgressFunc) (*Result, error) {
	if req.AccountID == "" {
		return nil, ErrMissingAccount
	}
	if err := req.Filter.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &Result{}

	for page := 1; ; page++ {
		q := PageQuery{
			AccountID: req.AccountID,
			Token:     req.Token,
			Page:      page,
			PerPage:   f.pageSize,
			Filter:    req.Filter,
		}

		p, attempts, err := f.fetchWithRetry(ctx, q)
		result.Requests += attempts
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			f.logger.Error("statement page failed",
				"account_id", req.AccountID,
				"page", page,
				"attempts", attempts,
				"fetched", len(result.Transactions),
				"error", err,
			)
			return result, &FetchError{Page: page, Attempts: attempts, Fetched: len(result.Transactions), Err: err}
		}

		if page == 1 {
			result.Summary = p.Summary
		}
		for i := range p.Transactions {
			p.Transactions[i].Normalize()
		}
		result.Transactions = append(result.Transactions, p.Transactions...)
		if onPage != nil {
			onPage(len(result.Transactions))
		}

		if len(p.Transactions) < f.pageSize {
			break
		}
	}

	f.logger.Info("statement fetched",
		"account_id", req.AccountID,
		"count", len(result.Transactions),
		"requests", result.Requests,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// FetchSummary reads only the envelope summary using a single-row page
func (f *Fetcher) FetchSummary(ctx context.Context, req Request) (*Summary, error) {
	if req.AccountID == "" {
		return nil, ErrMissingAccount
	}
	p, attempts, err := f.fetchWithRetry(ctx, PageQuery{
		AccountID: req.AccountID,
		Token:     req.Token,
		Page:      1,
		PerPage:   1,
		Filter:    req.Filter,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &FetchError{Page: 1, Attempts: attempts, Err: err}
	}
	if p.Summary == nil {
		return nil, ErrNoSummary
	}
	return p.Summary, nil
}

// fetchWithRetry waits attempt × retryDelay between attempts
func (f *Fetcher) fetchWithRetry(ctx context.Context, q PageQuery) (*Page, int, error) {
	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		p, err := f.source.FetchPage(ctx, q)
		if err == nil {
			if p == nil {
				p = &Page{}
			}
			return p, attempt, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, attempt, err
		}
		if attempt == f.maxAttempts {
			break
		}

		delay := time.Duration(attempt) * f.retryDelay
		f.logger.Warn("statement page failed, retrying",
			"account_id", q.AccountID,
			"page", q.Page,
			"attempt", attempt,
			"backoff_ms", delay.Milliseconds(),
			"error", err,
		)
		if err := f.sleep(ctx, delay); err != nil {
			return nil, attempt, err
		}
	}
	return nil, f.maxAttempts, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
