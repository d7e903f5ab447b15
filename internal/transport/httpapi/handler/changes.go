package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/alsaadxx12/fly1234/internal/platform/changefeed"
	"github.com/alsaadxx12/fly1234/pkg/logger"
)

// ChangesHandler streams record changes so open pages can refresh
type ChangesHandler struct {
	feed   changefeed.Subscriber
	logger *logger.Logger
}

// NewChangesHandler creates a new changes handler
func NewChangesHandler(feed changefeed.Subscriber, log *logger.Logger) *ChangesHandler {
	return &ChangesHandler{
		feed:   feed,
		logger: log.WithField("handler", "changes"),
	}
}

// StreamChanges handles GET /changes/{collection} as server-sent "change"
// events until the client disconnects
func (h *ChangesHandler) StreamChanges(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	if !changefeed.Known(collection) {
		respondError(w, "unknown collection", http.StatusNotFound)
		return
	}

	events, unsubscribe, err := h.feed.Subscribe(r.Context(), collection)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("failed to subscribe", "collection", collection, "error", err)
		respondError(w, "change feed unavailable", http.StatusServiceUnavailable)
		return
	}
	defer unsubscribe()

	stream, ok := openEventStream(w)
	if !ok {
		return
	}

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := stream.send("change", e); err != nil {
				return
			}
		case <-keepAlive.C:
			if err := stream.ping(); err != nil {
				return
			}
		}
	}
}
