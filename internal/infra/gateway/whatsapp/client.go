package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alsaadxx12/fly1234/pkg/logger"
)

const (
	requestTimeout = 30 * time.Second
	uploadTimeout  = 2 * time.Minute
)

var (
	ErrMissingCredentials = errors.New("instance id and token are required")
	ErrUnsupportedKind    = errors.New("unsupported message kind")
	ErrNoURL              = errors.New("gateway response carried no url")
)

// Message kinds map to gateway endpoints
const (
	KindChat     = "chat"
	KindImage    = "image"
	KindDocument = "document"
)

// Credentials identify one gateway instance
type Credentials struct {
	InstanceID string
	Token      string
}

// OutgoingMessage is one message to one recipient
type OutgoingMessage struct {
	Kind     string
	To       string
	Body     string
	MediaURL string
	Caption  string
	Filename string
}

// SendResult is the gateway's acknowledgement
type SendResult struct {
	ID      string
	Message string
}

// Client is an HTTP client for the messaging gateway
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logger.Logger
}

// NewClient creates a new gateway client
func NewClient(baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: uploadTimeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log.WithField("component", "whatsapp"),
	}
}

// SetBaseURL overrides the configured base URL (useful for testing)
func (c *Client) SetBaseURL(url string) {
	c.baseURL = strings.TrimRight(url, "/")
}

// Send posts one message to messages/chat, messages/image or messages/document
func (c *Client) Send(ctx context.Context, creds Credentials, msg OutgoingMessage) (*SendResult, error) {
	form := url.Values{}
	form.Set("to", msg.To)

	switch msg.Kind {
	case KindChat, "":
		msg.Kind = KindChat
		form.Set("body", msg.Body)
	case KindImage:
		form.Set("image", msg.MediaURL)
		form.Set("caption", msg.Caption)
	case KindDocument:
		form.Set("document", msg.MediaURL)
		form.Set("filename", msg.Filename)
		if msg.Caption != "" {
			form.Set("caption", msg.Caption)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, msg.Kind)
	}

	var resp struct {
		Sent    any    `json:"sent"`
		Message string `json:"message"`
		ID      any    `json:"id"`
	}
	if err := c.postForm(ctx, creds, "messages/"+msg.Kind, form, &resp); err != nil {
		return nil, err
	}
	if !truthy(resp.Sent) {
		return nil, &GatewayError{Message: firstNonEmpty(resp.Message, "message not sent")}
	}
	return &SendResult{ID: fmt.Sprint(resp.ID), Message: resp.Message}, nil
}

// ProfilePicture looks up a contact's avatar URL
func (c *Client) ProfilePicture(ctx context.Context, creds Credentials, chatID string) (string, error) {
	form := url.Values{}
	form.Set("chatId", chatID)

	var resp urlResponse
	if err := c.postForm(ctx, creds, "contacts/profile-pic", form, &resp); err != nil {
		return "", err
	}
	return resp.url()
}

// UploadMedia hosts a file on the gateway and returns its public URL
func (c *Client) UploadMedia(ctx context.Context, creds Credentials, filename string, file io.Reader) (string, error) {
	if creds.InstanceID == "" || creds.Token == "" {
		return "", ErrMissingCredentials
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("token", creds.Token); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}

	var resp urlResponse
	if err := c.do(ctx, creds, "media/upload", mw.FormDataContentType(), &buf, uploadTimeout, &resp); err != nil {
		return "", err
	}
	return resp.url()
}

func (c *Client) postForm(ctx context.Context, creds Credentials, path string, form url.Values, out any) error {
	if creds.InstanceID == "" || creds.Token == "" {
		return ErrMissingCredentials
	}
	form.Set("token", creds.Token)
	return c.do(ctx, creds, path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), requestTimeout, out)
}

func (c *Client) do(ctx context.Context, creds Credentials, path, contentType string, body io.Reader, timeout time.Duration, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reqURL := fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(creds.InstanceID), path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	c.logger.Debug("gateway response", "path", path, "status_code", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &GatewayError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}
	// the gateway reports some failures with a 200 and an "error" field
	if msg := errorMessage(raw); msg != "" && hasErrorField(raw) {
		return &GatewayError{StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}

// GatewayError is a failure reported by the messaging gateway
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway error: status %d: %s", e.StatusCode, e.Message)
	}
	return "gateway error: " + e.Message
}

type urlResponse struct {
	Success any    `json:"success"`
	URL     string `json:"url"`
	Image   string `json:"image"`
}

func (r urlResponse) url() (string, error) {
	if s, ok := r.Success.(string); ok && strings.HasPrefix(s, "http") {
		return s, nil
	}
	if u := firstNonEmpty(r.URL, r.Image); u != "" {
		return u, nil
	}
	return "", ErrNoURL
}

func hasErrorField(raw []byte) bool {
	var envelope map[string]json.RawMessage
	if json.Unmarshal(raw, &envelope) != nil {
		return false
	}
	_, ok := envelope["error"]
	return ok
}

// errorMessage flattens {"error": "..."} and {"error": [{"to": "..."}]}
func errorMessage(raw []byte) string {
	var envelope struct {
		Error any `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) != nil || envelope.Error == nil {
		return strings.TrimSpace(string(raw))
	}
	switch v := envelope.Error.(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				for k, val := range m {
					parts = append(parts, fmt.Sprintf("%s: %v", k, val))
				}
				continue
			}
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, "; ")
	}
	return fmt.Sprint(envelope.Error)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
