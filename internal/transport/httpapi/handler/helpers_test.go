package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/alsaadxx12/fly1234/internal/transport/httpapi/middleware"
)

const operatorEmail = "operator@agency.iq"

var operatorID = uuid.MustParse("7b6f1f0e-3c1a-4f55-9d8e-2a6f0c1b9a10")

// newRequest builds a request carrying an authenticated operator
func newRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	ctx := context.WithValue(req.Context(), middleware.UserIDKey, operatorID)
	ctx = context.WithValue(ctx, middleware.UserEmailKey, operatorEmail)
	return req.WithContext(ctx)
}

// serve runs req through h and returns the recorded response
func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decode reads a JSON response body
func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
