package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/alsaadxx12/fly1234/internal/infra/gateway/accounting"
	"github.com/alsaadxx12/fly1234/internal/infra/gateway/proxy"
	"github.com/alsaadxx12/fly1234/internal/platform/broadcast"
	"github.com/alsaadxx12/fly1234/internal/platform/buyer"
	"github.com/alsaadxx12/fly1234/internal/platform/statement"
	"github.com/alsaadxx12/fly1234/internal/platform/sysbrowser"
	"github.com/alsaadxx12/fly1234/internal/platform/ticket"
	"github.com/alsaadxx12/fly1234/internal/platform/user"
	"github.com/alsaadxx12/fly1234/internal/platform/visa"
	"github.com/alsaadxx12/fly1234/internal/platform/whatsapp"
	apperrors "github.com/alsaadxx12/fly1234/internal/shared/errors"
	"github.com/alsaadxx12/fly1234/pkg/money"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

var errInvalidDate = errors.New("dates must use yyyy-mm-dd")

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, ErrorResponse{Error: message}, statusCode)
}

// respondAppError maps err to a status and writes it. Errors nothing
// recognizes become fallback, which is 500 for local work and 502 for calls
// whose only failure mode is the remote side.
func respondAppError(w http.ResponseWriter, err error, fallback int) {
	appErr := classify(err)
	if appErr == nil {
		message := http.StatusText(fallback)
		if fallback == http.StatusBadGateway {
			message = err.Error()
		}
		respondJSON(w, ErrorResponse{Error: message}, fallback)
		return
	}
	respondJSON(w, ErrorResponse{Error: appErr.Message, Code: appErr.Code}, appErr.HTTPStatus())
}

// respondErr is respondAppError for local operations
func respondErr(w http.ResponseWriter, err error) {
	respondAppError(w, err, http.StatusInternalServerError)
}

var validationErrors = []error{
	buyer.ErrMissingName, buyer.ErrNameTooLong, buyer.ErrMissingAccountingID, buyer.ErrInvalidPhone,
	ticket.ErrInvalidKind, ticket.ErrMissingPassenger, ticket.ErrInvalidPNR, ticket.ErrMissingBuyer,
	ticket.ErrNegativePrice, ticket.ErrMissingIssueDate, ticket.ErrInvalidDateRange, ticket.ErrMissingAuditor,
	visa.ErrMissingApplicant, visa.ErrInvalidPassport, visa.ErrMissingCountry, visa.ErrInvalidStatus,
	visa.ErrMissingBuyer, visa.ErrNegativeAmount,
	whatsapp.ErrMissingName, whatsapp.ErrMissingInstanceID, whatsapp.ErrMissingToken,
	whatsapp.ErrInvalidPhone, whatsapp.ErrMissingDocument, whatsapp.ErrMissingFile,
	user.ErrInvalidEmail, user.ErrPasswordTooShort, user.ErrNameTooLong,
	broadcast.ErrNoRecipients, broadcast.ErrEmptyMessage, broadcast.ErrMissingMedia, broadcast.ErrUnsupportedKind,
	statement.ErrMissingAccount, statement.ErrInvalidDate, statement.ErrInvalidRange, statement.ErrInvalidPage,
	sysbrowser.ErrInvalidPage,
	proxy.ErrInvalidEndpoint, proxy.ErrMethodNotAllowed,
	money.ErrUnsupportedCurrency,
}

var notFoundErrors = map[error]string{
	buyer.ErrBuyerNotFound:      "buyer",
	ticket.ErrTicketNotFound:    "ticket",
	visa.ErrEntryNotFound:       "visa entry",
	whatsapp.ErrAccountNotFound: "whatsapp account",
	broadcast.ErrJobNotFound:    "broadcast job",
	user.ErrUserNotFound:        "user",
}

var conflictErrors = []error{
	buyer.ErrDuplicateAccounting, buyer.ErrBuyerInUse,
	whatsapp.ErrDuplicateInstance, whatsapp.ErrNoActiveAccount,
	user.ErrUserAlreadyExists,
	broadcast.ErrAccountBusy, broadcast.ErrJobFinished,
	visa.ErrInvalidTransition,
}

var forbiddenErrors = []error{
	ticket.ErrTicketAudited,
	whatsapp.ErrAccountInactive,
	proxy.ErrUnknownUpstream,
}

var upstreamErrors = []error{
	statement.ErrNoSummary,
	sysbrowser.ErrUpstream, sysbrowser.ErrUnexpectedShape,
	accounting.ErrMissingToken,
}

// classify turns domain errors into coded application errors. It returns nil
// for errors it does not recognize.
func classify(err error) *apperrors.AppError {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return appErr
	}

	if fe, ok := statement.AsFetchError(err); ok {
		return apperrors.Upstream(fe.Error(), err)
	}
	var se *accounting.StatusError
	if errors.As(err, &se) {
		return apperrors.Upstream(fmt.Sprintf("accounting API answered %d", se.StatusCode), err)
	}

	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return apperrors.Validation(target)
		}
	}
	for target, resource := range notFoundErrors {
		if errors.Is(err, target) {
			return apperrors.NotFound(resource)
		}
	}
	for _, target := range forbiddenErrors {
		if errors.Is(err, target) {
			return apperrors.Forbidden(target)
		}
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return apperrors.Wrap(err, apperrors.ErrCodeConflict, target.Error())
		}
	}
	for _, target := range upstreamErrors {
		if errors.Is(err, target) {
			return apperrors.Upstream(target.Error(), err)
		}
	}
	if errors.Is(err, user.ErrInvalidPassword) {
		return apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "invalid email or password")
	}
	if errors.Is(err, broadcast.ErrRunnerClosed) {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, err.Error())
	}
	return nil
}

// decodeJSON reads a bounded JSON body
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// pathID parses the {id} URL parameter
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, "invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter
func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}
