// Package proxy forwards generic calls to allowlisted third-party APIs.
// Callers name an upstream and a path; base URLs and auth placement come from
// the upstream configuration, so arbitrary hosts cannot be reached.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alsaadxx12/fly1234/pkg/config"
	"github.com/alsaadxx12/fly1234/pkg/logger"
)

const (
	requestTimeout = 60 * time.Second
	maxBodyBytes   = 16 << 20
)

var (
	ErrInvalidEndpoint  = errors.New("endpoint must look like upstream:/path")
	ErrUnknownUpstream  = errors.New("upstream is not allowlisted")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Request is a generic upstream call
type Request struct {
	Endpoint string            `json:"endpoint"`
	Token    string            `json:"token"`
	Method   string            `json:"method"`
	Params   map[string]string `json:"params,omitempty"`
	Body     json.RawMessage   `json:"body,omitempty"`
}

// Response is the uniform result of a call. Upstream failures are reported
// here rather than as Go errors.
type Response struct {
	OK     bool            `json:"ok"`
	Status int             `json:"status,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Client forwards requests to configured upstreams
type Client struct {
	upstreams  *config.UpstreamsConfig
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a proxy client over the allowlist
func NewClient(upstreams *config.UpstreamsConfig, log *logger.Logger) *Client {
	return &Client{
		upstreams: upstreams,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger: log.WithField("component", "proxy"),
	}
}

// Do validates and forwards one request. A non-nil error means the request
// was rejected before anything was sent.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	up, path, err := c.resolve(req.Endpoint)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	if !allowedMethods[method] {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotAllowed, method)
	}

	target, err := url.Parse(strings.TrimRight(up.BaseURL, "/") + path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	query := target.Query()
	for k, v := range req.Params {
		query.Set(k, v)
	}
	if req.Token != "" && up.AuthStyle == "query" {
		query.Set(up.TokenParam, req.Token)
	}
	target.RawQuery = query.Encode()

	var body io.Reader
	if len(req.Body) > 0 && method != http.MethodGet {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" && up.AuthStyle == "bearer" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("proxy request failed", "upstream", up.Name, "path", path, "error", err)
		return &Response{OK: false, Error: err.Error()}, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Response{OK: false, Status: resp.StatusCode, Error: fmt.Sprintf("failed to read response: %v", err)}, nil
	}

	c.logger.Debug("proxy response",
		"upstream", up.Name,
		"method", method,
		"path", path,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	out := &Response{
		OK:     resp.StatusCode >= 200 && resp.StatusCode <= 299,
		Status: resp.StatusCode,
		Data:   asJSON(raw),
	}
	if !out.OK {
		out.Error = fmt.Sprintf("upstream %s answered %d", up.Name, resp.StatusCode)
	}
	return out, nil
}

// resolve splits "upstream:/path" and checks both halves
func (c *Client) resolve(endpoint string) (*config.Upstream, string, error) {
	name, path, ok := strings.Cut(strings.TrimSpace(endpoint), ":")
	if !ok || name == "" || !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return nil, "", ErrInvalidEndpoint
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return nil, "", ErrInvalidEndpoint
		}
	}
	up, found := c.upstreams.Get(name)
	if !found {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownUpstream, name)
	}
	return up, path, nil
}

// asJSON passes JSON bodies through and wraps anything else as a JSON string
func asJSON(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if json.Valid(trimmed) {
		return trimmed
	}
	quoted, _ := json.Marshal(string(trimmed))
	return quoted
}
