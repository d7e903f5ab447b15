package handler

import (
	"context"
	"net/http"

	"github.com/alsaadxx12/fly1234/internal/infra/gateway/proxy"
)

// ProxyInterface forwards calls to allowlisted upstreams
type ProxyInterface interface {
	Do(ctx context.Context, req proxy.Request) (*proxy.Response, error)
}

// ProxyHandler exposes the generic upstream proxy
type ProxyHandler struct {
	proxy ProxyInterface
}

// NewProxyHandler creates a new proxy handler
func NewProxyHandler(p ProxyInterface) *ProxyHandler {
	return &ProxyHandler{proxy: p}
}

// Forward handles POST /proxy. Upstream failures come back as
// {ok:false, error} with status 200; only rejected requests are HTTP errors.
func (h *ProxyHandler) Forward(w http.ResponseWriter, r *http.Request) {
	var req proxy.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.proxy.Do(r.Context(), req)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, resp, http.StatusOK)
}
