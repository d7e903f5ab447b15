package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/alsaadxx12/fly1234/internal/platform/broadcast"
	"github.com/alsaadxx12/fly1234/internal/platform/whatsapp"
	"github.com/alsaadxx12/fly1234/pkg/logger"
)

// BroadcastRunnerInterface defines the job controls the handler drives
type BroadcastRunnerInterface interface {
	Start(ctx context.Context, acct broadcast.Account, recipients []string, msg broadcast.Message) (*broadcast.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*broadcast.Job, error)
	Pause(id uuid.UUID) (*broadcast.Job, error)
	Resume(id uuid.UUID) (*broadcast.Job, error)
	Stop(id uuid.UUID) (*broadcast.Job, error)
}

// AccountResolverInterface picks the account a broadcast sends through
type AccountResolverInterface interface {
	Resolve(ctx context.Context, id uuid.UUID) (*whatsapp.Account, error)
}

// BroadcastHandler handles broadcast jobs
type BroadcastHandler struct {
	runner   BroadcastRunnerInterface
	accounts AccountResolverInterface
	logger   *logger.Logger
}

// NewBroadcastHandler creates a new broadcast handler
func NewBroadcastHandler(runner BroadcastRunnerInterface, accounts AccountResolverInterface, log *logger.Logger) *BroadcastHandler {
	return &BroadcastHandler{
		runner:   runner,
		accounts: accounts,
		logger:   log.WithField("handler", "broadcast"),
	}
}

// StartBroadcastRequest starts a job. A missing account id sends through the
// default account.
type StartBroadcastRequest struct {
	AccountID  uuid.UUID         `json:"account_id"`
	Recipients []string          `json:"recipients"`
	Message    broadcast.Message `json:"message"`
}

// StartBroadcast handles POST /broadcasts
func (h *BroadcastHandler) StartBroadcast(w http.ResponseWriter, r *http.Request) {
	var req StartBroadcastRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	acct, err := h.accounts.Resolve(r.Context(), req.AccountID)
	if err != nil {
		respondErr(w, err)
		return
	}

	job, err := h.runner.Start(r.Context(), acct.Sender(), req.Recipients, req.Message)
	if err != nil {
		respondErr(w, err)
		return
	}
	h.logger.WithContext(r.Context()).Info("broadcast queued",
		"job_id", job.ID,
		"account", acct.Name,
		"recipients", job.Total(),
		"invalid", len(job.Invalid))
	respondJSON(w, job, http.StatusAccepted)
}

// GetBroadcast handles GET /broadcasts/{id}
func (h *BroadcastHandler) GetBroadcast(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	job, err := h.runner.Get(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, job, http.StatusOK)
}

// PauseBroadcast handles POST /broadcasts/{id}/pause
func (h *BroadcastHandler) PauseBroadcast(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.runner.Pause)
}

// ResumeBroadcast handles POST /broadcasts/{id}/resume
func (h *BroadcastHandler) ResumeBroadcast(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.runner.Resume)
}

// StopBroadcast handles POST /broadcasts/{id}/stop
func (h *BroadcastHandler) StopBroadcast(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.runner.Stop)
}

func (h *BroadcastHandler) control(w http.ResponseWriter, r *http.Request, op func(uuid.UUID) (*broadcast.Job, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	job, err := op(id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, job, http.StatusOK)
}
