// Package broadcast sends one message to many WhatsApp recipients, one at a
// time, with a fixed delay between sends. Jobs can be paused, resumed and
// stopped while they run.
package broadcast

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message kinds
const (
	KindChat     = "chat"
	KindImage    = "image"
	KindDocument = "document"
)

// Message is the payload sent to every recipient
type Message struct {
	Kind     string `json:"kind"`
	Body     string `json:"body,omitempty"`
	MediaURL string `json:"media_url,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// Validate checks the fields the kind requires and fills defaults
func (m *Message) Validate() error {
	m.Kind = strings.ToLower(strings.TrimSpace(m.Kind))
	if m.Kind == "" {
		m.Kind = KindChat
	}
	switch m.Kind {
	case KindChat:
		if strings.TrimSpace(m.Body) == "" {
			return ErrEmptyMessage
		}
	case KindImage, KindDocument:
		if strings.TrimSpace(m.MediaURL) == "" {
			return ErrMissingMedia
		}
		if m.Kind == KindDocument && m.Filename == "" {
			m.Filename = fileNameFromURL(m.MediaURL)
		}
	default:
		return ErrUnsupportedKind
	}
	return nil
}

func fileNameFromURL(u string) string {
	u = strings.SplitN(u, "?", 2)[0]
	if i := strings.LastIndexByte(u, '/'); i >= 0 && i < len(u)-1 {
		return u[i+1:]
	}
	return "document"
}

// Account is the gateway instance a job sends through
type Account struct {
	ID         uuid.UUID
	InstanceID string
	Token      string
}

// Sender delivers one message to one recipient
type Sender interface {
	Send(ctx context.Context, acct Account, to string, msg Message) error
}

// Store persists job snapshots so their outcome outlives the process
type Store interface {
	SaveJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*Job, error)
}

// State is the lifecycle position of a job
type State string

const (
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateStopped   State = "stopped"
	StateCompleted State = "completed"
)

// Finished reports whether the job can no longer change
func (s State) Finished() bool {
	return s == StateStopped || s == StateCompleted
}

// maxFailures bounds the per-recipient failure log kept on a job
const maxFailures = 100

// Failure records one recipient that could not be reached
type Failure struct {
	To    string `json:"to"`
	Error string `json:"error"`
}

// Job is a broadcast and its progress
type Job struct {
	ID         uuid.UUID  `json:"id"`
	AccountID  uuid.UUID  `json:"account_id"`
	Message    Message    `json:"message"`
	Recipients []string   `json:"recipients"`
	Invalid    []string   `json:"invalid,omitempty"`
	Sent       int        `json:"sent"`
	Failed     int        `json:"failed"`
	Failures   []Failure  `json:"failures,omitempty"`
	State      State      `json:"state"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Total is the number of valid recipients
func (j *Job) Total() int {
	return len(j.Recipients)
}

// Pending is the number of recipients not yet attempted
func (j *Job) Pending() int {
	return len(j.Recipients) - j.Sent - j.Failed
}

func (j *Job) clone() *Job {
	c := *j
	c.Recipients = append([]string(nil), j.Recipients...)
	c.Invalid = append([]string(nil), j.Invalid...)
	c.Failures = append([]Failure(nil), j.Failures...)
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}
