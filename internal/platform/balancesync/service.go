// Package balancesync keeps the balance shown in the buyer list close to the
// accounting system without fetching full statements.
package balancesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alsaadxx12/fly1234/internal/platform/buyer"
	"github.com/alsaadxx12/fly1234/pkg/logger"
)

// ErrNoSummary is returned when the accounting API answers without a summary
var ErrNoSummary = errors.New("statement has no summary")

// Result counts one sync cycle
type Result struct {
	Updated int
	Failed  int
	Skipped int
}

// Service refreshes buyer balances on an interval
type Service struct {
	config  *Config
	buyers  BuyerStore
	summary SummarySource
	logger  *logger.Logger

	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewService creates a new balance sync service
func NewService(config *Config, buyers BuyerStore, summary SummarySource, log *logger.Logger) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	_ = config.Validate()

	return &Service{
		config:  config,
		buyers:  buyers,
		summary: summary,
		logger:  log.WithField("service", "balance_sync"),
	}
}

// Run syncs immediately and then on every tick until ctx ends or Stop is called
func (s *Service) Run(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info("balance sync is disabled")
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(doneCh)
	}()

	s.logger.Info("starting balance sync", "interval", s.config.Interval)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.SyncAll(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("balance sync stopping (context done)")
			return
		case <-stopCh:
			s.logger.Info("balance sync stopping (stop signal)")
			return
		case <-ticker.C:
			s.SyncAll(ctx)
		}
	}
}

// Stop ends Run and waits for the current buyer to finish
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	doneCh := s.doneCh
	s.mu.Unlock()

	<-doneCh
}

// SyncAll refreshes every buyer that has an accounting id, one at a time.
// A failing buyer is logged and skipped.
func (s *Service) SyncAll(ctx context.Context) Result {
	var res Result

	buyers, err := s.buyers.ListForSync(ctx)
	if err != nil {
		s.logger.Error("failed to list buyers for sync", "error", err)
		return res
	}
	if len(buyers) == 0 {
		s.logger.Debug("no buyers to sync")
		return res
	}

	for _, b := range buyers {
		if ctx.Err() != nil {
			break
		}
		if b.AccountingID == "" {
			res.Skipped++
			continue
		}
		if err := s.SyncBuyer(ctx, b); err != nil {
			res.Failed++
			s.logger.Warn("failed to sync buyer balance",
				"buyer_id", b.ID,
				"accounting_id", b.AccountingID,
				"error", err)
			continue
		}
		res.Updated++
	}

	s.logger.Info("balance sync cycle finished",
		"updated", res.Updated,
		"failed", res.Failed,
		"skipped", res.Skipped)
	return res
}

// SyncBuyer fetches one buyer's balance due and stores it
func (s *Service) SyncBuyer(ctx context.Context, b *buyer.Buyer) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	sum, err := s.summary.Summary(ctx, b.AccountingID)
	if err != nil {
		return fmt.Errorf("failed to fetch summary: %w", err)
	}
	if sum == nil {
		return ErrNoSummary
	}

	if err := s.buyers.RecordBalance(ctx, b.ID, sum.BalanceDue); err != nil {
		return fmt.Errorf("failed to record balance: %w", err)
	}
	return nil
}
