package accounting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alsaadxx12/fly1234/pkg/logger"
)

const (
	requestTimeout = 60 * time.Second
	maxErrorBody   = 512
)

// ErrMissingToken is returned when neither the client nor the query carries a token
var ErrMissingToken = errors.New("accounting API token not configured")

// Client is an HTTP client for the accounting system's REST API. Each call
// makes exactly one request; callers own retry policy.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	logger     *logger.Logger
}

// NewClient creates a new accounting API client
func NewClient(baseURL, token string, log *logger.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log.WithField("component", "accounting"),
	}
}

// SetBaseURL overrides the configured base URL (useful for testing)
func (c *Client) SetBaseURL(url string) {
	c.baseURL = strings.TrimRight(url, "/")
}

// TransactionsQuery selects one page of a buyer's ledger
type TransactionsQuery struct {
	BuyerID string
	Token   string
	Page    int
	PerPage int
	From    string
	To      string
	Type    string
}

// Values encodes the query the way the API expects it
func (q TransactionsQuery) Values() url.Values {
	v := url.Values{}
	v.Set("pagination[page]", strconv.Itoa(q.Page))
	v.Set("pagination[perpage]", strconv.Itoa(q.PerPage))
	v.Set("sort", "asc")
	v.Set("field", "no")
	if q.From != "" {
		v.Set("query[from]", q.From)
	}
	if q.To != "" {
		v.Set("query[to]", q.To)
	}
	if q.Type != "" {
		v.Set("query[type]", q.Type)
	}
	return v
}

// GetTransactions fetches one page of a buyer's transactions
func (c *Client) GetTransactions(ctx context.Context, q TransactionsQuery) (*TransactionsResponse, error) {
	reqURL := fmt.Sprintf("%s/buyers/%s/transactions", c.baseURL, url.PathEscape(q.BuyerID))

	body, err := c.doRequest(ctx, http.MethodGet, reqURL, q.Values(), q.Token)
	if err != nil {
		return nil, fmt.Errorf("GetTransactions failed: %w", err)
	}

	var resp TransactionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode accounting response: %w", err)
	}
	return &resp, nil
}

// doRequest performs one authenticated request and returns the body of a 2xx response
func (c *Client) doRequest(ctx context.Context, method, reqURL string, params url.Values, token string) ([]byte, error) {
	if token == "" {
		token = c.token
	}
	if token == "" {
		return nil, ErrMissingToken
	}
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	start := time.Now()
	c.logger.Debug("API request", "method", method, "url", reqURL)

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("API error", "status_code", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), maxErrorBody)}
	}

	c.logger.Debug("API response", "status_code", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
	return body, nil
}

// StatusError is a non-2xx answer from the accounting API
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("accounting API error: status %d, body: %s", e.StatusCode, e.Body)
}

// IsStatus reports whether err is (or wraps) a StatusError with the given code
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
