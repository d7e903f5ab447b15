// Package sysbrowser pages through the users of the third-party system API.
// Rows are kept as decoded JSON objects since the remote schema is not ours.
package sysbrowser

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/alsaadxx12/fly1234/internal/infra/gateway/proxy"
	"github.com/alsaadxx12/fly1234/pkg/logger"
)

const (
	DefaultEndpoint = "users:/users"
	DefaultPerPage  = 25
	MaxPerPage      = 200
)

var (
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrUpstream        = errors.New("system api request failed")
	ErrUnexpectedShape = errors.New("system api returned an unexpected body")
)

// leading columns when present, the rest follow alphabetically
var preferredColumns = []string{"id", "name", "username", "email", "phone", "role", "status", "created_at"}

// Forwarder sends a request through the upstream allowlist
type Forwarder interface {
	Do(ctx context.Context, req proxy.Request) (*proxy.Response, error)
}

// Query selects one page of users
type Query struct {
	Page    int
	PerPage int
	Search  string
}

func (q *Query) normalize() error {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Page < 1 {
		return ErrInvalidPage
	}
	if q.PerPage <= 0 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	q.Search = strings.TrimSpace(q.Search)
	return nil
}

// Meta is the pagination block of a page
type Meta struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"perpage"`
	Total   int `json:"total"`
}

// Page is one page of remote users
type Page struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Meta    Meta             `json:"meta"`
}

// Config names the upstream endpoint and the token to call it with
type Config struct {
	Endpoint string
	Token    string
}

// Service lists remote users
type Service struct {
	proxy  Forwarder
	config Config
	logger *logger.Logger
}

// NewService creates a system browser
func NewService(fw Forwarder, cfg Config, log *logger.Logger) *Service {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return &Service{
		proxy:  fw,
		config: cfg,
		logger: log.WithField("component", "sysbrowser"),
	}
}

// List fetches one page of users
func (s *Service) List(ctx context.Context, q Query) (*Page, error) {
	if err := q.normalize(); err != nil {
		return nil, err
	}

	params := map[string]string{
		"page":    strconv.Itoa(q.Page),
		"perpage": strconv.Itoa(q.PerPage),
	}
	if q.Search != "" {
		params["search"] = q.Search
	}

	resp, err := s.proxy.Do(ctx, proxy.Request{
		Endpoint: s.config.Endpoint,
		Token:    s.config.Token,
		Method:   "GET",
		Params:   params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call system api: %w", err)
	}
	if !resp.OK {
		s.logger.Warn("system api request failed", "status", resp.Status, "error", resp.Error)
		return nil, fmt.Errorf("%w: %s", ErrUpstream, resp.Error)
	}

	page, err := decodePage(resp.Data)
	if err != nil {
		return nil, err
	}
	if page.Meta.Page == 0 {
		page.Meta.Page = q.Page
	}
	if page.Meta.PerPage == 0 {
		page.Meta.PerPage = q.PerPage
	}
	if page.Meta.Total == 0 {
		page.Meta.Total = len(page.Rows)
	}
	if page.Meta.Pages == 0 && page.Meta.PerPage > 0 {
		page.Meta.Pages = (page.Meta.Total + page.Meta.PerPage - 1) / page.Meta.PerPage
	}
	return page, nil
}

// decodePage accepts {data:[…], meta:{…}} envelopes as well as bare arrays
func decodePage(raw json.RawMessage) (*Page, error) {
	var rows []map[string]any
	var meta Meta

	trimmed := strings.TrimSpace(string(raw))
	switch {
	case strings.HasPrefix(trimmed, "["):
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
		}
	case strings.HasPrefix(trimmed, "{"):
		var env struct {
			Data  []map[string]any `json:"data"`
			Users []map[string]any `json:"users"`
			Meta  Meta             `json:"meta"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
		}
		rows, meta = env.Data, env.Meta
		if rows == nil {
			rows = env.Users
		}
	case trimmed == "" || trimmed == "null":
	default:
		return nil, ErrUnexpectedShape
	}

	if rows == nil {
		rows = []map[string]any{}
	}
	return &Page{Columns: Columns(rows), Rows: rows, Meta: meta}, nil
}

// Columns returns the union of row keys, preferred names first
func Columns(rows []map[string]any) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			seen[k] = true
		}
	}

	cols := make([]string, 0, len(seen))
	for _, k := range preferredColumns {
		if seen[k] {
			cols = append(cols, k)
			delete(seen, k)
		}
	}
	rest := make([]string, 0, len(seen))
	for k := range seen {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(cols, rest...)
}

// WriteCSV writes the visible table. Nested values are written as JSON.
func WriteCSV(w io.Writer, p *Page) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(p.Columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range p.Rows {
		record := make([]string, len(p.Columns))
		for i, col := range p.Columns {
			record[i] = cell(row[col])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func cell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
