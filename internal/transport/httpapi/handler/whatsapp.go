package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/alsaadxx12/fly1234/internal/platform/whatsapp"
)

// maxUploadBytes bounds a media upload
const maxUploadBytes = 32 << 20

// WhatsAppServiceInterface defines the interface for messaging account operations
type WhatsAppServiceInterface interface {
	Create(ctx context.Context, a *whatsapp.Account) (*whatsapp.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*whatsapp.Account, error)
	List(ctx context.Context) ([]*whatsapp.Account, error)
	Update(ctx context.Context, a *whatsapp.Account) (*whatsapp.Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetDefault(ctx context.Context, id uuid.UUID) (*whatsapp.Account, error)
	Default(ctx context.Context) (*whatsapp.Account, error)
	ProfilePicture(ctx context.Context, id uuid.UUID, phone string) (string, error)
	UploadMedia(ctx context.Context, id uuid.UUID, filename string, file io.Reader) (string, error)
	SendDocument(ctx context.Context, id uuid.UUID, req whatsapp.DocumentRequest) error
}

// WhatsAppHandler handles messaging account requests
type WhatsAppHandler struct {
	accounts WhatsAppServiceInterface
}

// NewWhatsAppHandler creates a new WhatsApp handler
func NewWhatsAppHandler(accounts WhatsAppServiceInterface) *WhatsAppHandler {
	return &WhatsAppHandler{accounts: accounts}
}

// AccountRequest is the create and update body. An empty token on update
// keeps the stored one.
type AccountRequest struct {
	Name       string `json:"name"`
	InstanceID string `json:"instance_id"`
	Token      string `json:"token"`
	IsActive   *bool  `json:"is_active"`
	IsDefault  bool   `json:"is_default"`
}

func (req *AccountRequest) toAccount() *whatsapp.Account {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return &whatsapp.Account{
		Name:       req.Name,
		InstanceID: req.InstanceID,
		Token:      req.Token,
		IsActive:   active,
		IsDefault:  req.IsDefault,
	}
}

// AccountResponse never carries the token, only its last characters
type AccountResponse struct {
	*whatsapp.Account
	TokenHint string `json:"token_hint"`
}

func toAccountResponse(a *whatsapp.Account) AccountResponse {
	return AccountResponse{Account: a, TokenHint: a.TokenHint()}
}

// AccountsListResponse is the list body
type AccountsListResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}

// URLResponse carries a link returned by the gateway
type URLResponse struct {
	URL string `json:"url"`
}

// ProfilePictureRequest names the contact to look up
type ProfilePictureRequest struct {
	Phone string `json:"phone"`
}

// CreateAccount handles POST /whatsapp/accounts
func (h *WhatsAppHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req AccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	created, err := h.accounts.Create(r.Context(), req.toAccount())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, toAccountResponse(created), http.StatusCreated)
}

// ListAccounts handles GET /whatsapp/accounts
func (h *WhatsAppHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	out := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	respondJSON(w, AccountsListResponse{Accounts: out}, http.StatusOK)
}

// GetAccount handles GET /whatsapp/accounts/{id}
func (h *WhatsAppHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a, err := h.accounts.GetByID(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, toAccountResponse(a), http.StatusOK)
}

// UpdateAccount handles PUT /whatsapp/accounts/{id}
func (h *WhatsAppHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req AccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a := req.toAccount()
	a.ID = id

	updated, err := h.accounts.Update(r.Context(), a)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, toAccountResponse(updated), http.StatusOK)
}

// DeleteAccount handles DELETE /whatsapp/accounts/{id}
func (h *WhatsAppHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.accounts.Delete(r.Context(), id); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetDefaultAccount handles GET /whatsapp/accounts/default
func (h *WhatsAppHandler) GetDefaultAccount(w http.ResponseWriter, r *http.Request) {
	a, err := h.accounts.Default(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, toAccountResponse(a), http.StatusOK)
}

// SetDefaultAccount handles POST /whatsapp/accounts/{id}/default
func (h *WhatsAppHandler) SetDefaultAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a, err := h.accounts.SetDefault(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, toAccountResponse(a), http.StatusOK)
}

// ProfilePicture handles POST /whatsapp/accounts/{id}/profile-pic
func (h *WhatsAppHandler) ProfilePicture(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ProfilePictureRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	url, err := h.accounts.ProfilePicture(r.Context(), id, req.Phone)
	if err != nil {
		respondAppError(w, err, http.StatusBadGateway)
		return
	}
	respondJSON(w, URLResponse{URL: url}, http.StatusOK)
}

// UploadMedia handles POST /whatsapp/accounts/{id}/media with a multipart
// "file" field
func (h *WhatsAppHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	url, err := h.accounts.UploadMedia(r.Context(), id, header.Filename, file)
	if err != nil {
		respondAppError(w, err, http.StatusBadGateway)
		return
	}
	respondJSON(w, URLResponse{URL: url}, http.StatusCreated)
}

// SendDocument handles POST /whatsapp/accounts/{id}/documents
func (h *WhatsAppHandler) SendDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req whatsapp.DocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.accounts.SendDocument(r.Context(), id, req); err != nil {
		respondAppError(w, err, http.StatusBadGateway)
		return
	}
	respondJSON(w, map[string]string{"status": "sent"}, http.StatusAccepted)
}
