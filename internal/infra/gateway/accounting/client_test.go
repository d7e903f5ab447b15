package accounting_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alsaadxx12/fly1234/internal/infra/gateway/accounting"
	"github.com/alsaadxx12/fly1234/internal/platform/statement"
	"github.com/alsaadxx12/fly1234/pkg/logger"
)

const samplePage = `{
	"meta": {"page": 1, "pages": 1, "perpage": 1000, "total": 2},
	"data": [
		{"no": 1, "date": "2025-03-10", "details": "Ticket", "note": "PNR: ABC123 ADT 1", "type": "charge",
		 "debit": "1,250.50", "credit": 0, "balance": -1250.5, "debit_iqd": null, "credit_iqd": "", "balance_iqd": 0,
		 "invoice_no": 5512, "pnr": "", "booking_id": null},
		{"no": "2", "date": "2025-03-12", "details": "Payment", "note": "", "type": "PAYMENT",
		 "debit": 0, "credit": 1000, "balance": "-250.50", "invoice_no": "INV-9", "pnr": "xyz789"}
	],
	"summary": {"previousBalance": 0, "totalCredit": "1000", "totalDebit": "1250.50", "balanceDue": "250.50", "currency": "usd", "from": "2025-03-01", "to": "2025-03-31"}
}`

func newClient(url string) *accounting.Client {
	c := accounting.NewClient("http://unused", "secret", logger.Discard())
	c.SetBaseURL(url)
	return c
}

// =============================================================================
// Request Tests
// =============================================================================

func TestClient_RequestShape(t *testing.T) {
	var gotAuth, gotPath string
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": []}`)
	}))
	defer server.Close()

	_, err := newClient(server.URL).GetTransactions(context.Background(), accounting.TransactionsQuery{
		BuyerID: "B 17",
		Page:    2,
		PerPage: 1000,
		From:    "2025-01-01",
		To:      "2025-02-01",
		Type:    "PAYMENT",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "/buyers/B 17/transactions", gotPath)
	assert.Equal(t, "2", gotQuery["pagination[page]"][0])
	assert.Equal(t, "1000", gotQuery["pagination[perpage]"][0])
	assert.Equal(t, "asc", gotQuery["sort"][0])
	assert.Equal(t, "no", gotQuery["field"][0])
	assert.Equal(t, "2025-01-01", gotQuery["query[from]"][0])
	assert.Equal(t, "2025-02-01", gotQuery["query[to]"][0])
	assert.Equal(t, "PAYMENT", gotQuery["query[type]"][0])
}

func TestClient_OmitsEmptyFilters(t *testing.T) {
	v := accounting.TransactionsQuery{Page: 1, PerPage: 10}.Values()

	assert.NotContains(t, v, "query[from]")
	assert.NotContains(t, v, "query[to]")
	assert.NotContains(t, v, "query[type]")
}

func TestClient_TokenOverride(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"data": []}`)
	}))
	defer server.Close()

	_, err := newClient(server.URL).GetTransactions(context.Background(), accounting.TransactionsQuery{BuyerID: "1", Token: "per-call"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer per-call", gotAuth)
}

func TestClient_MissingToken(t *testing.T) {
	c := accounting.NewClient("http://127.0.0.1:1", "", logger.Discard())

	_, err := c.GetTransactions(context.Background(), accounting.TransactionsQuery{BuyerID: "1"})
	assert.ErrorIs(t, err, accounting.ErrMissingToken)
}

func TestClient_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "maintenance")
	}))
	defer server.Close()

	_, err := newClient(server.URL).GetTransactions(context.Background(), accounting.TransactionsQuery{BuyerID: "1"})

	require.Error(t, err)
	assert.True(t, accounting.IsStatus(err, http.StatusServiceUnavailable))
	assert.Contains(t, err.Error(), "maintenance")
}

// =============================================================================
// Decoding Tests
// =============================================================================

func TestPageSource_DecodesLenientEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, samplePage)
	}))
	defer server.Close()

	src := accounting.NewPageSource(newClient(server.URL))
	page, err := src.FetchPage(context.Background(), statement.PageQuery{AccountID: "B-1", Page: 1, PerPage: 1000})
	require.NoError(t, err)

	require.Len(t, page.Transactions, 2)
	first := page.Transactions[0]
	assert.Equal(t, int64(1), first.No)
	assert.Equal(t, "CHARGE", first.Type)
	assert.Equal(t, "1250.5", first.Debit.String())
	assert.Equal(t, "-1250.5", first.Balance.String())
	assert.True(t, first.DebitIQD.IsZero())
	assert.True(t, first.CreditIQD.IsZero())
	assert.Equal(t, "5512", first.InvoiceNo)
	assert.Empty(t, first.BookingID)

	second := page.Transactions[1]
	assert.Equal(t, int64(2), second.No)
	assert.Equal(t, "INV-9", second.InvoiceNo)
	assert.Equal(t, "xyz789", second.PNR)

	require.NotNil(t, page.Summary)
	assert.Equal(t, "250.5", page.Summary.BalanceDue.String())
	assert.Equal(t, "USD", string(page.Summary.Currency))
	assert.Equal(t, "2025-03-01", page.Summary.From)
}

func TestPageSource_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"no": 1}}`)
	}))
	defer server.Close()

	_, err := accounting.NewPageSource(newClient(server.URL)).FetchPage(context.Background(), statement.PageQuery{AccountID: "1"})
	assert.Error(t, err)
}

// =============================================================================
// Fetch Loop Tests
// =============================================================================

func pageBody(page, size int) string {
	body := `{"data": [`
	for i := 0; i < size; i++ {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"no": %d, "date": "2025-01-02", "type": "CHARGE", "debit": 1}`, page*10000+i)
	}
	return body + `]}`
}

func TestFetcher_AgainstServer(t *testing.T) {
	sizes := map[int]int{1: 1000, 2: 1000, 3: 400}
	var calls atomic.Int32
	var page2Failures atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		page, _ := strconv.Atoi(r.URL.Query().Get("pagination[page]"))
		if page == 2 && page2Failures.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, pageBody(page, sizes[page]))
	}))
	defer server.Close()

	fetcher := statement.NewFetcher(accounting.NewPageSource(newClient(server.URL)),
		statement.FetcherConfig{PageSize: 1000}, logger.Discard())

	res, err := fetcher.Fetch(context.Background(), statement.Request{AccountID: "B-1"}, nil)

	require.NoError(t, err)
	assert.Len(t, res.Transactions, 2400)
	assert.Equal(t, int32(5), calls.Load())
	assert.Equal(t, int32(3), page2Failures.Load())
}
