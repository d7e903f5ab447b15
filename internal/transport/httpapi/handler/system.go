package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alsaadxx12/fly1234/internal/platform/sysbrowser"
	"github.com/alsaadxx12/fly1234/pkg/logger"
)

// SystemBrowserInterface lists users of the third-party system
type SystemBrowserInterface interface {
	List(ctx context.Context, q sysbrowser.Query) (*sysbrowser.Page, error)
}

// SystemHandler handles the system browser pages
type SystemHandler struct {
	browser SystemBrowserInterface
	logger  *logger.Logger
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(browser SystemBrowserInterface, log *logger.Logger) *SystemHandler {
	return &SystemHandler{
		browser: browser,
		logger:  log.WithField("handler", "system"),
	}
}

// ListUsers handles GET /system/users?page&perpage&search
func (h *SystemHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q, ok := systemQuery(w, r)
	if !ok {
		return
	}
	page, err := h.browser.List(r.Context(), q)
	if err != nil {
		respondAppError(w, err, http.StatusBadGateway)
		return
	}
	respondJSON(w, page, http.StatusOK)
}

// ExportUsersCSV handles GET /system/users/export.csv. It exports the same
// page the table shows.
func (h *SystemHandler) ExportUsersCSV(w http.ResponseWriter, r *http.Request) {
	q, ok := systemQuery(w, r)
	if !ok {
		return
	}
	page, err := h.browser.List(r.Context(), q)
	if err != nil {
		respondAppError(w, err, http.StatusBadGateway)
		return
	}

	filename := fmt.Sprintf("system-users-p%d-%s.csv", page.Meta.Page, time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	if err := sysbrowser.WriteCSV(w, page); err != nil {
		// headers are out, so the client only sees a truncated file
		h.logger.WithContext(r.Context()).Error("failed to write users csv", "page", page.Meta.Page, "error", err)
	}
}

func systemQuery(w http.ResponseWriter, r *http.Request) (sysbrowser.Query, bool) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return sysbrowser.Query{}, false
	}
	perPage, err := queryInt(r, "perpage", 0)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return sysbrowser.Query{}, false
	}
	return sysbrowser.Query{Page: page, PerPage: perPage, Search: r.URL.Query().Get("search")}, true
}
