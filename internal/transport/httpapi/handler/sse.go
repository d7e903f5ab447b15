package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// sseKeepAlive is the interval of comment frames that keep proxies from
// closing an idle stream
const sseKeepAlive = 20 * time.Second

// eventStream writes server-sent events
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// openEventStream switches the response to text/event-stream. It reports
// false, having already answered, when the writer cannot flush.
func openEventStream(w http.ResponseWriter) (*eventStream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, "streaming unsupported", http.StatusInternalServerError)
		return nil, false
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &eventStream{w: w, flusher: flusher}, true
}

// send writes one named event with a JSON payload
func (s *eventStream) send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// ping writes a comment frame
func (s *eventStream) ping() error {
	if _, err := fmt.Fprint(s.w, ": ping\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
