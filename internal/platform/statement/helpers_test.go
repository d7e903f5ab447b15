package statement_test

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/alsaadxx12/fly1234/internal/platform/statement"
	"github.com/alsaadxx12/fly1234/pkg/logger"
)

var errUpstream = errors.New("upstream unavailable")

// =============================================================================
// Scripted page source
// =============================================================================

// scriptedSource serves pages of the given sizes. failures[page] makes that
// page fail the given number of times before it succeeds.
type scriptedSource struct {
	mu       sync.Mutex
	sizes    []int
	failures map[int]int
	summary  *statement.Summary
	calls    []statement.PageQuery
}

func newScriptedSource(sizes ...int) *scriptedSource {
	return &scriptedSource{sizes: sizes, failures: make(map[int]int)}
}

func (s *scriptedSource) FetchPage(_ context.Context, q statement.PageQuery) (*statement.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, q)

	if s.failures[q.Page] > 0 {
		s.failures[q.Page]--
		return nil, errUpstream
	}

	size := 0
	if q.Page-1 < len(s.sizes) {
		size = s.sizes[q.Page-1]
	}
	txs := make([]statement.Transaction, size)
	base := int64((q.Page - 1) * q.PerPage)
	for i := range txs {
		txs[i] = statement.Transaction{
			No:    base + int64(i) + 1,
			Date:  "2025-01-15",
			Type:  statement.TypeCharge,
			Debit: decimal.NewFromInt(10),
		}
	}

	p := &statement.Page{Transactions: txs}
	if q.Page == 1 {
		p.Summary = s.summary
	}
	return p, nil
}

func (s *scriptedSource) callsFor(page int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Page == page {
			n++
		}
	}
	return n
}

func (s *scriptedSource) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newTestFetcher(src statement.PageSource, pageSize int) *statement.Fetcher {
	return statement.NewFetcher(src, statement.FetcherConfig{PageSize: pageSize}, logger.Discard())
}

// =============================================================================
// Mock Cache
// =============================================================================

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, accountID string, f statement.Filter) (*statement.Snapshot, bool, error) {
	args := m.Called(ctx, accountID, f)
	snap, _ := args.Get(0).(*statement.Snapshot)
	return snap, args.Bool(1), args.Error(2)
}

func (m *MockCache) Set(ctx context.Context, s *statement.Snapshot) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockCache) Invalidate(ctx context.Context, accountID string) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

var _ statement.Cache = (*MockCache)(nil)

// tx builds a transaction with a date and USD amounts
func tx(no int64, date, typ string, debit, credit int64) statement.Transaction {
	t := statement.Transaction{
		No:     no,
		Date:   date,
		Type:   typ,
		Debit:  decimal.NewFromInt(debit),
		Credit: decimal.NewFromInt(credit),
	}
	t.Normalize()
	return t
}
