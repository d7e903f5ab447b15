package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alsaadxx12/fly1234/internal/infra/gateway/proxy"
	"github.com/alsaadxx12/fly1234/internal/platform/changefeed"
	"github.com/alsaadxx12/fly1234/internal/platform/sysbrowser"
	"github.com/alsaadxx12/fly1234/internal/transport/httpapi/handler"
	"github.com/alsaadxx12/fly1234/pkg/logger"
)

// =============================================================================
// System Browser Tests
// =============================================================================

type MockSystemBrowser struct {
	mock.Mock
}

func (m *MockSystemBrowser) List(ctx context.Context, q sysbrowser.Query) (*sysbrowser.Page, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sysbrowser.Page), args.Error(1)
}

func systemRouter(b *MockSystemBrowser) http.Handler {
	h := handler.NewSystemHandler(b, logger.Discard())
	r := chi.NewRouter()
	r.Get("/system/users", h.ListUsers)
	r.Get("/system/users/export.csv", h.ExportUsersCSV)
	return r
}

func usersPage() *sysbrowser.Page {
	return &sysbrowser.Page{
		Columns: []string{"id", "name"},
		Rows: []map[string]any{
			{"id": float64(1), "name": "Hassan"},
			{"id": float64(2), "name": "Zainab"},
		},
		Meta: sysbrowser.Meta{Page: 2, Pages: 4, PerPage: 2, Total: 8},
	}
}

func TestListUsers(t *testing.T) {
	b := new(MockSystemBrowser)
	r := systemRouter(b)

	b.On("List", mock.Anything, sysbrowser.Query{Page: 2, PerPage: 2, Search: "ha"}).Return(usersPage(), nil)

	rec := serve(r, newRequest(t, http.MethodGet, "/system/users?page=2&perpage=2&search=ha", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[sysbrowser.Page](t, rec)
	assert.Equal(t, []string{"id", "name"}, page.Columns)
	assert.Equal(t, 8, page.Meta.Total)
}

func TestListUsers_Errors(t *testing.T) {
	b := new(MockSystemBrowser)
	r := systemRouter(b)

	rec := serve(r, newRequest(t, http.MethodGet, "/system/users?page=first", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	b.On("List", mock.Anything, sysbrowser.Query{Page: 1}).
		Return(nil, fmt.Errorf("%w: answered 401", sysbrowser.ErrUpstream)).Once()
	rec = serve(r, newRequest(t, http.MethodGet, "/system/users", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "UPSTREAM_ERROR", decode[errorBody](t, rec).Code)

	b.On("List", mock.Anything, sysbrowser.Query{Page: 0}).
		Return(nil, sysbrowser.ErrInvalidPage).Once()
	rec = serve(r, newRequest(t, http.MethodGet, "/system/users?page=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportUsersCSV(t *testing.T) {
	b := new(MockSystemBrowser)
	r := systemRouter(b)

	b.On("List", mock.Anything, sysbrowser.Query{Page: 2}).Return(usersPage(), nil)

	rec := serve(r, newRequest(t, http.MethodGet, "/system/users/export.csv?page=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "system-users-p2-")
	body := strings.TrimPrefix(rec.Body.String(), "\ufeff")
	assert.Equal(t, "id,name\n1,Hassan\n2,Zainab\n", body)
}

// resetConn accepts headers but fails every body write
type resetConn struct {
	*httptest.ResponseRecorder
}

func (resetConn) Write([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

func TestExportUsersCSV_LogsWriteFailure(t *testing.T) {
	var out bytes.Buffer
	b := new(MockSystemBrowser)
	h := handler.NewSystemHandler(b, logger.NewWithFormat("development", "json", &out))
	b.On("List", mock.Anything, sysbrowser.Query{Page: 1}).Return(usersPage(), nil)

	w := resetConn{httptest.NewRecorder()}
	h.ExportUsersCSV(w, newRequest(t, http.MethodGet, "/system/users/export.csv", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, out.String(), "failed to write users csv")
	assert.Contains(t, out.String(), "connection reset by peer")
}

// =============================================================================
// Proxy Tests
// =============================================================================

type fakeProxy struct {
	got  proxy.Request
	resp *proxy.Response
	err  error
}

func (f *fakeProxy) Do(_ context.Context, req proxy.Request) (*proxy.Response, error) {
	f.got = req
	return f.resp, f.err
}

func TestForward(t *testing.T) {
	p := &fakeProxy{resp: &proxy.Response{OK: false, Status: 500, Error: "upstream answered 500"}}
	h := handler.NewProxyHandler(p)

	rec := serve(http.HandlerFunc(h.Forward), newRequest(t, http.MethodPost, "/proxy", map[string]any{
		"endpoint": "accounting:/statement",
		"method":   "get",
		"params":   map[string]string{"account": "1042"},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "accounting:/statement", p.got.Endpoint)
	assert.Equal(t, "1042", p.got.Params["account"])
	assert.JSONEq(t, `{"ok":false,"status":500,"error":"upstream answered 500"}`, rec.Body.String())
}

func TestForward_Rejected(t *testing.T) {
	for err, status := range map[error]int{
		proxy.ErrUnknownUpstream:  http.StatusForbidden,
		proxy.ErrInvalidEndpoint:  http.StatusBadRequest,
		proxy.ErrMethodNotAllowed: http.StatusBadRequest,
	} {
		h := handler.NewProxyHandler(&fakeProxy{err: fmt.Errorf("%w: test", err)})
		rec := serve(http.HandlerFunc(h.Forward), newRequest(t, http.MethodPost, "/proxy", map[string]string{"endpoint": "x"}))
		assert.Equal(t, status, rec.Code, err.Error())
	}
}

// =============================================================================
// Note Normalization Tests
// =============================================================================

func TestNormalizeNotes(t *testing.T) {
	rec := serve(http.HandlerFunc(handler.NormalizeNotes), newRequest(t, http.MethodPost, "/notes/normalize", map[string]any{
		"texts": []string{"EBL-DXB ADT 1", "  just   a  remark & <fee> "},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Notes []struct {
			Matched    bool   `json:"matched"`
			Normalized string `json:"normalized"`
			Line       string `json:"line"`
			HTML       string `json:"html"`
		} `json:"notes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Notes, 2)
	assert.True(t, body.Notes[0].Matched)
	assert.Contains(t, body.Notes[0].Line, "EBL → DXB")
	assert.False(t, body.Notes[1].Matched)
	assert.Equal(t, "just a remark & <fee>", body.Notes[1].Line)
	assert.Equal(t, "just a remark & <fee>", body.Notes[1].Normalized)
	assert.Equal(t, "just a remark &amp; &lt;fee&gt;", body.Notes[1].HTML)
	assert.Contains(t, body.Notes[0].Normalized, `<div class="note-`)
}

func TestNormalizeNotes_TooMany(t *testing.T) {
	texts := make([]string, 1001)
	rec := serve(http.HandlerFunc(handler.NormalizeNotes), newRequest(t, http.MethodPost, "/notes/normalize", map[string]any{"texts": texts}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// Change Stream Tests
// =============================================================================

// fakeSubscriber delivers a fixed set of events, then closes the stream
type fakeSubscriber struct {
	events      []changefeed.Event
	err         error
	unsubscribe int
}

func (f *fakeSubscriber) Subscribe(_ context.Context, _ string) (<-chan changefeed.Event, func(), error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	ch := make(chan changefeed.Event, len(f.events))
	for _, e := range f.events {
		ch <- e
	}
	close(ch)
	return ch, func() { f.unsubscribe++ }, nil
}

func changesRouter(sub changefeed.Subscriber) http.Handler {
	h := handler.NewChangesHandler(sub, logger.Discard())
	r := chi.NewRouter()
	r.Get("/changes/{collection}", h.StreamChanges)
	return r
}

func TestStreamChanges(t *testing.T) {
	at := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	sub := &fakeSubscriber{events: []changefeed.Event{
		{Collection: changefeed.Tickets, ID: "t-1", Op: changefeed.OpCreate, At: at},
		{Collection: changefeed.Tickets, ID: "t-1", Op: changefeed.OpUpdate, At: at},
	}}

	rec := serve(changesRouter(sub), newRequest(t, http.MethodGet, "/changes/tickets", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, 2, strings.Count(rec.Body.String(), "event: change\n"))
	assert.Contains(t, rec.Body.String(), `"op":"update"`)
	assert.Equal(t, 1, sub.unsubscribe)
}

func TestStreamChanges_Errors(t *testing.T) {
	rec := serve(changesRouter(&fakeSubscriber{}), newRequest(t, http.MethodGet, "/changes/passwords", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(changesRouter(&fakeSubscriber{err: errors.New("redis down")}), newRequest(t, http.MethodGet, "/changes/buyers", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
