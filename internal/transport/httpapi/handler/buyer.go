package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alsaadxx12/fly1234/internal/platform/buyer"
	"github.com/alsaadxx12/fly1234/internal/platform/statement"
	"github.com/alsaadxx12/fly1234/pkg/logger"
	"github.com/alsaadxx12/fly1234/pkg/money"
)

// BuyerServiceInterface defines the interface for buyer operations
type BuyerServiceInterface interface {
	Create(ctx context.Context, b *buyer.Buyer) (*buyer.Buyer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*buyer.Buyer, error)
	List(ctx context.Context, f buyer.ListFilter) ([]*buyer.Buyer, error)
	Update(ctx context.Context, b *buyer.Buyer) (*buyer.Buyer, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// StatementServiceInterface defines the statement operations the buyer pages use
type StatementServiceInterface interface {
	Load(ctx context.Context, accountID string, f statement.Filter, onPage statement.ProgressFunc) (*statement.Snapshot, bool, error)
	Statement(ctx context.Context, accountID string, f statement.Filter, page int) (*statement.Statement, error)
	Refresh(ctx context.Context, accountID string) error
}

// BuyerHandler handles buyer and statement HTTP requests
type BuyerHandler struct {
	buyers     BuyerServiceInterface
	statements StatementServiceInterface
	logger     *logger.Logger
}

// NewBuyerHandler creates a new buyer handler
func NewBuyerHandler(buyers BuyerServiceInterface, statements StatementServiceInterface, log *logger.Logger) *BuyerHandler {
	return &BuyerHandler{
		buyers:     buyers,
		statements: statements,
		logger:     log.WithField("handler", "buyer"),
	}
}

// BuyerRequest is the create and update body
type BuyerRequest struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	AccountingID string `json:"accounting_id"`
	Currency     string `json:"currency"`
}

func (req *BuyerRequest) toBuyer() (*buyer.Buyer, error) {
	cur, err := money.ParseCurrency(req.Currency)
	if err != nil {
		return nil, err
	}
	return &buyer.Buyer{
		Name:         req.Name,
		Phone:        req.Phone,
		AccountingID: req.AccountingID,
		Currency:     cur,
	}, nil
}

// BuyersListResponse is the list body
type BuyersListResponse struct {
	Buyers []*buyer.Buyer `json:"buyers"`
}

// CreateBuyer handles POST /buyers
func (h *BuyerHandler) CreateBuyer(w http.ResponseWriter, r *http.Request) {
	var req BuyerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := req.toBuyer()
	if err != nil {
		respondErr(w, err)
		return
	}

	created, err := h.buyers.Create(r.Context(), b)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, created, http.StatusCreated)
}

// ListBuyers handles GET /buyers?search&limit&offset
func (h *BuyerHandler) ListBuyers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	buyers, err := h.buyers.List(r.Context(), buyer.ListFilter{
		Search: r.URL.Query().Get("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	if buyers == nil {
		buyers = []*buyer.Buyer{}
	}
	respondJSON(w, BuyersListResponse{Buyers: buyers}, http.StatusOK)
}

// GetBuyer handles GET /buyers/{id}
func (h *BuyerHandler) GetBuyer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b, err := h.buyers.GetByID(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, b, http.StatusOK)
}

// UpdateBuyer handles PUT /buyers/{id}
func (h *BuyerHandler) UpdateBuyer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req BuyerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := req.toBuyer()
	if err != nil {
		respondErr(w, err)
		return
	}
	b.ID = id

	updated, err := h.buyers.Update(r.Context(), b)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, updated, http.StatusOK)
}

// DeleteBuyer handles DELETE /buyers/{id}
func (h *BuyerHandler) DeleteBuyer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.buyers.Delete(r.Context(), id); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StatementResponse is one statement page with the buyer it belongs to
type StatementResponse struct {
	Buyer *buyer.Buyer `json:"buyer"`
	*statement.Statement
}

// GetStatement handles GET /buyers/{id}/statement?from&to&type&page&refresh
func (h *BuyerHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	b, f, ok := h.statementTarget(w, r)
	if !ok {
		return
	}
	page, err := queryInt(r, "page", 1)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("refresh") == "true" {
		if err := h.statements.Refresh(r.Context(), b.AccountingID); err != nil {
			h.logger.WithContext(r.Context()).Warn("failed to refresh statement cache", "buyer_id", b.ID, "error", err)
		}
	}

	st, err := h.statements.Statement(r.Context(), b.AccountingID, f, page)
	if err != nil {
		h.logStatementError(r, b, err)
		respondAppError(w, err, http.StatusBadGateway)
		return
	}
	respondJSON(w, StatementResponse{Buyer: b, Statement: st}, http.StatusOK)
}

// progressEvent reports the running record count
type progressEvent struct {
	Fetched int `json:"fetched"`
}

// doneEvent closes a statement stream
type doneEvent struct {
	Fetched  int                 `json:"fetched"`
	Cached   bool                `json:"cached"`
	Summary  *statement.Summary  `json:"summary,omitempty"`
	Overview *statement.Overview `json:"overview,omitempty"`
}

// errorEvent ends a stream that failed
type errorEvent struct {
	Error   string `json:"error"`
	Fetched int    `json:"fetched"`
}

// StreamStatement handles GET /buyers/{id}/statement/stream. It emits a
// "progress" event after every fetched page, then "done" with the summary or
// "error" with the count fetched before the failure.
func (h *BuyerHandler) StreamStatement(w http.ResponseWriter, r *http.Request) {
	b, f, ok := h.statementTarget(w, r)
	if !ok {
		return
	}
	stream, ok := openEventStream(w)
	if !ok {
		return
	}

	fetched := 0
	snap, cached, err := h.statements.Load(r.Context(), b.AccountingID, f, func(n int) {
		fetched = n
		_ = stream.send("progress", progressEvent{Fetched: n})
	})
	if err != nil {
		h.logStatementError(r, b, err)
		message := err.Error()
		if appErr := classify(err); appErr != nil {
			message = appErr.Message
		}
		_ = stream.send("error", errorEvent{Error: message, Fetched: fetched})
		return
	}

	overview := statement.GroupByMonth(snap.Transactions).Overview()
	_ = stream.send("done", doneEvent{
		Fetched:  len(snap.Transactions),
		Cached:   cached,
		Summary:  snap.Summary,
		Overview: &overview,
	})
}

// ExportStatementCSV handles GET /buyers/{id}/statement/export.csv
func (h *BuyerHandler) ExportStatementCSV(w http.ResponseWriter, r *http.Request) {
	b, f, ok := h.statementTarget(w, r)
	if !ok {
		return
	}
	snap, _, err := h.statements.Load(r.Context(), b.AccountingID, f, nil)
	if err != nil {
		h.logStatementError(r, b, err)
		respondAppError(w, err, http.StatusBadGateway)
		return
	}

	filename := fmt.Sprintf("statement-%s-%s.csv", fileSafe(b.Name), time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)

	ordered := statement.GroupByMonth(snap.Transactions).Transactions()
	if err := statement.WriteCSV(w, ordered); err != nil {
		h.logger.WithContext(r.Context()).Error("failed to write statement csv", "buyer_id", b.ID, "error", err)
	}
}

// PrintStatement handles GET /buyers/{id}/statement/print. The page is
// rasterized to PDF by the browser.
func (h *BuyerHandler) PrintStatement(w http.ResponseWriter, r *http.Request) {
	b, f, ok := h.statementTarget(w, r)
	if !ok {
		return
	}
	snap, _, err := h.statements.Load(r.Context(), b.AccountingID, f, nil)
	if err != nil {
		h.logStatementError(r, b, err)
		respondAppError(w, err, http.StatusBadGateway)
		return
	}

	layout := statement.GroupByMonth(snap.Transactions)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := statement.RenderHTML(w, statement.PrintData{
		BuyerName:   b.Name,
		Summary:     snap.Summary,
		Filter:      f,
		Layout:      layout,
		Overview:    layout.Overview(),
		GeneratedAt: time.Now(),
	}); err != nil {
		h.logger.WithContext(r.Context()).Error("failed to render statement", "buyer_id", b.ID, "error", err)
	}
}

// statementTarget loads the buyer and reads the filter query
func (h *BuyerHandler) statementTarget(w http.ResponseWriter, r *http.Request) (*buyer.Buyer, statement.Filter, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, statement.Filter{}, false
	}
	b, err := h.buyers.GetByID(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return nil, statement.Filter{}, false
	}

	q := r.URL.Query()
	f := statement.Filter{
		From: strings.TrimSpace(q.Get("from")),
		To:   strings.TrimSpace(q.Get("to")),
		Type: strings.TrimSpace(q.Get("type")),
	}
	if err := f.Validate(); err != nil {
		respondErr(w, err)
		return nil, statement.Filter{}, false
	}
	return b, f, true
}

func (h *BuyerHandler) logStatementError(r *http.Request, b *buyer.Buyer, err error) {
	h.logger.WithContext(r.Context()).Warn("statement fetch failed",
		"buyer_id", b.ID,
		"accounting_id", b.AccountingID,
		"error", err)
}

// fileSafe keeps letters, digits and dashes for a download name
func fileSafe(name string) string {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == ' ' || r == '-' || r == '_':
			sb.WriteByte('-')
		case r < 128 && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'):
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "buyer"
	}
	return sb.String()
}
