package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/alsaadxx12/fly1234/pkg/logger"
)

// maxLoggedBody bounds how much of an error response is kept for the log line
const maxLoggedBody = 4 << 10

// responseLog keeps the start of error responses so the request log can name
// the failure
type responseLog struct {
	chimiddleware.WrapResponseWriter
	errBody bytes.Buffer
}

func (l *responseLog) Write(b []byte) (int, error) {
	if l.Status() >= http.StatusBadRequest && l.errBody.Len() < maxLoggedBody {
		l.errBody.Write(b)
	}
	return l.WrapResponseWriter.Write(b)
}

// Flush pushes buffered output to the client. Compress flushes only through
// writers that implement http.Flusher, so event streams rely on it.
func (l *responseLog) Flush() {
	_ = http.NewResponseController(l.WrapResponseWriter).Flush()
}

// errorMessage pulls the "error" field out of a JSON error body
func errorMessage(body []byte) string {
	var obj struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &obj) == nil {
		return obj.Error
	}
	return ""
}

// Logger writes one line per request. 5xx responses log at error level and
// 4xx at warn, both with the message from the error body.
func Logger(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseLog{WrapResponseWriter: chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)}
			start := time.Now()

			// handlers log through logger.WithContext, which reads this key
			reqID := chimiddleware.GetReqID(r.Context())
			if reqID != "" {
				r = r.WithContext(context.WithValue(r.Context(), logger.RequestIDKey, reqID))
			}

			defer func() {
				status := rw.Status()
				if status == 0 {
					status = http.StatusOK
				}
				attrs := []any{
					"method", r.Method,
					"path", r.URL.Path,
					"status", status,
					"bytes", rw.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"remote_addr", r.RemoteAddr,
				}
				if reqID != "" {
					attrs = append(attrs, "request_id", reqID)
				}
				if status >= http.StatusBadRequest {
					if msg := errorMessage(rw.errBody.Bytes()); msg != "" {
						attrs = append(attrs, "error", msg)
					}
				}

				switch {
				case status >= http.StatusInternalServerError:
					log.Error("request failed", attrs...)
				case status >= http.StatusBadRequest:
					log.Warn("request rejected", attrs...)
				default:
					log.Info("request served", attrs...)
				}
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
