package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alsaadxx12/fly1234/internal/platform/visa"
	"github.com/alsaadxx12/fly1234/pkg/money"
)

// VisaServiceInterface defines the interface for visa entry operations
type VisaServiceInterface interface {
	Create(ctx context.Context, e *visa.Entry) (*visa.Entry, error)
	GetByID(ctx context.Context, id uuid.UUID) (*visa.Entry, error)
	List(ctx context.Context, f visa.ListFilter) ([]*visa.Entry, error)
	Update(ctx context.Context, e *visa.Entry) (*visa.Entry, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, next visa.Status) (*visa.Entry, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// VisaHandler handles visa entry requests
type VisaHandler struct {
	visas VisaServiceInterface
}

// NewVisaHandler creates a new visa handler
func NewVisaHandler(visas VisaServiceInterface) *VisaHandler {
	return &VisaHandler{visas: visas}
}

// VisaRequest is the create and update body. Status is honoured on create
// only; later changes go through the status endpoint.
type VisaRequest struct {
	ApplicantName string          `json:"applicant_name"`
	PassportNo    string          `json:"passport_no"`
	Country       string          `json:"country"`
	VisaType      string          `json:"visa_type"`
	Status        string          `json:"status"`
	BuyerID       uuid.UUID       `json:"buyer_id"`
	Price         decimal.Decimal `json:"price"`
	Cost          decimal.Decimal `json:"cost"`
	Currency      string          `json:"currency"`
	Notes         string          `json:"notes"`
}

func (req *VisaRequest) toEntry() *visa.Entry {
	return &visa.Entry{
		ApplicantName: req.ApplicantName,
		PassportNo:    req.PassportNo,
		Country:       req.Country,
		VisaType:      req.VisaType,
		Status:        visa.Status(req.Status),
		BuyerID:       req.BuyerID,
		Price:         req.Price,
		Cost:          req.Cost,
		Currency:      money.Currency(req.Currency),
		Notes:         req.Notes,
	}
}

// StatusRequest moves an entry along its lifecycle
type StatusRequest struct {
	Status string `json:"status"`
}

// VisasListResponse is the list body
type VisasListResponse struct {
	Entries []*visa.Entry `json:"entries"`
}

// CreateVisa handles POST /visas
func (h *VisaHandler) CreateVisa(w http.ResponseWriter, r *http.Request) {
	var req VisaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	created, err := h.visas.Create(r.Context(), req.toEntry())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, created, http.StatusCreated)
}

// ListVisas handles GET /visas?status&buyer_id&country&search&limit&offset
func (h *VisaHandler) ListVisas(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := visa.ListFilter{
		Status:  visa.Status(q.Get("status")),
		Country: q.Get("country"),
		Search:  q.Get("search"),
	}

	var err error
	if raw := q.Get("buyer_id"); raw != "" {
		if f.BuyerID, err = uuid.Parse(raw); err != nil {
			respondError(w, "invalid buyer_id", http.StatusBadRequest)
			return
		}
	}
	if f.Limit, err = queryInt(r, "limit", 0); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if f.Offset, err = queryInt(r, "offset", 0); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries, err := h.visas.List(r.Context(), f)
	if err != nil {
		respondErr(w, err)
		return
	}
	if entries == nil {
		entries = []*visa.Entry{}
	}
	respondJSON(w, VisasListResponse{Entries: entries}, http.StatusOK)
}

// GetVisa handles GET /visas/{id}
func (h *VisaHandler) GetVisa(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := h.visas.GetByID(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, e, http.StatusOK)
}

// UpdateVisa handles PUT /visas/{id}
func (h *VisaHandler) UpdateVisa(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req VisaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e := req.toEntry()
	e.ID = id

	updated, err := h.visas.Update(r.Context(), e)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, updated, http.StatusOK)
}

// ChangeVisaStatus handles PUT /visas/{id}/status
func (h *VisaHandler) ChangeVisaStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.visas.ChangeStatus(r.Context(), id, visa.Status(req.Status))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, updated, http.StatusOK)
}

// DeleteVisa handles DELETE /visas/{id}
func (h *VisaHandler) DeleteVisa(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.visas.Delete(r.Context(), id); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
