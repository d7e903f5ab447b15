package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alsaadxx12/fly1234/internal/platform/ticket"
	"github.com/alsaadxx12/fly1234/internal/transport/httpapi/middleware"
	"github.com/alsaadxx12/fly1234/pkg/money"
)

// TicketServiceInterface defines the interface for ticket operations
type TicketServiceInterface interface {
	Create(ctx context.Context, t *ticket.Ticket, operator string) (*ticket.Ticket, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ticket.Ticket, error)
	List(ctx context.Context, f ticket.ListFilter) ([]*ticket.Ticket, error)
	Update(ctx context.Context, t *ticket.Ticket) (*ticket.Ticket, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Audit(ctx context.Context, id uuid.UUID, auditor string) (*ticket.Ticket, error)
}

// TicketHandler handles ticket, refund and change records
type TicketHandler struct {
	tickets TicketServiceInterface
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(tickets TicketServiceInterface) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

// TicketRequest is the create and update body. IssueDate uses yyyy-mm-dd.
type TicketRequest struct {
	Kind          string          `json:"kind"`
	PNR           string          `json:"pnr"`
	PassengerName string          `json:"passenger_name"`
	Route         string          `json:"route"`
	Airline       string          `json:"airline"`
	BuyerID       uuid.UUID       `json:"buyer_id"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Currency      string          `json:"currency"`
	IssueDate     string          `json:"issue_date"`
	Notes         string          `json:"notes"`
}

func (req *TicketRequest) toTicket() (*ticket.Ticket, error) {
	issued, err := parseDay(req.IssueDate)
	if err != nil {
		return nil, err
	}
	return &ticket.Ticket{
		Kind:          ticket.Kind(req.Kind),
		PNR:           req.PNR,
		PassengerName: req.PassengerName,
		Route:         req.Route,
		Airline:       req.Airline,
		BuyerID:       req.BuyerID,
		SalePrice:     req.SalePrice,
		PurchasePrice: req.PurchasePrice,
		Currency:      money.Currency(req.Currency),
		IssueDate:     issued,
		Notes:         req.Notes,
	}, nil
}

// TicketsListResponse carries the page and its per-currency totals
type TicketsListResponse struct {
	Tickets []*ticket.Ticket                 `json:"tickets"`
	Totals  map[money.Currency]ticket.Totals `json:"totals"`
}

// CreateTicket handles POST /tickets
func (h *TicketHandler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	operator, ok := middleware.GetUserEmailFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req TicketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := req.toTicket()
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.tickets.Create(r.Context(), t, operator)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, created, http.StatusCreated)
}

// ListTickets handles GET /tickets?kind&buyer_id&audited&from&to&search&limit&offset
func (h *TicketHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ticket.ListFilter{
		Kind:   ticket.Kind(q.Get("kind")),
		Search: q.Get("search"),
	}

	var err error
	if raw := q.Get("buyer_id"); raw != "" {
		if f.BuyerID, err = uuid.Parse(raw); err != nil {
			respondError(w, "invalid buyer_id", http.StatusBadRequest)
			return
		}
	}
	if raw := q.Get("audited"); raw != "" {
		audited, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, "audited must be true or false", http.StatusBadRequest)
			return
		}
		f.Audited = &audited
	}
	if f.From, err = parseDay(q.Get("from")); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if f.To, err = parseDay(q.Get("to")); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if f.Limit, err = queryInt(r, "limit", 0); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if f.Offset, err = queryInt(r, "offset", 0); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	tickets, err := h.tickets.List(r.Context(), f)
	if err != nil {
		respondErr(w, err)
		return
	}
	if tickets == nil {
		tickets = []*ticket.Ticket{}
	}
	respondJSON(w, TicketsListResponse{Tickets: tickets, Totals: ticket.Summarize(tickets)}, http.StatusOK)
}

// GetTicket handles GET /tickets/{id}
func (h *TicketHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.tickets.GetByID(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, t, http.StatusOK)
}

// UpdateTicket handles PUT /tickets/{id}. Audited tickets answer 403.
func (h *TicketHandler) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req TicketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := req.toTicket()
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	t.ID = id

	updated, err := h.tickets.Update(r.Context(), t)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, updated, http.StatusOK)
}

// DeleteTicket handles DELETE /tickets/{id}. Audited tickets answer 403.
func (h *TicketHandler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.tickets.Delete(r.Context(), id); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AuditTicket handles POST /tickets/{id}/audit
func (h *TicketHandler) AuditTicket(w http.ResponseWriter, r *http.Request) {
	auditor, ok := middleware.GetUserEmailFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	t, err := h.tickets.Audit(r.Context(), id, auditor)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, t, http.StatusOK)
}

// dayLayout is the date format of request bodies and filters
const dayLayout = "2006-01-02"

// parseDay reads yyyy-mm-dd or an RFC 3339 timestamp. Empty is the zero time.
func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dayLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errInvalidDate
	}
	return t.UTC(), nil
}
