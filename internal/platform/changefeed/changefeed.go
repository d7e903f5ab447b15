// Package changefeed carries record change notifications from the record
// services to whoever is watching a collection.
package changefeed

import (
	"context"
	"time"
)

// Collections that publish changes
const (
	Buyers           = "buyers"
	Tickets          = "tickets"
	Visas            = "visas"
	WhatsAppAccounts = "whatsapp_accounts"
	Broadcasts       = "broadcasts"
)

// Known reports whether name is a collection that publishes changes
func Known(name string) bool {
	switch name {
	case Buyers, Tickets, Visas, WhatsAppAccounts, Broadcasts:
		return true
	}
	return false
}

// Op is the kind of change
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event describes one change to one record
type Event struct {
	Collection string    `json:"collection"`
	ID         string    `json:"id"`
	Op         Op        `json:"op"`
	At         time.Time `json:"at"`
}

// Publisher emits events. Publishing is best effort: a failure must not undo
// the change that caused it.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber delivers events for one collection until the returned
// unsubscribe function is called.
type Subscriber interface {
	Subscribe(ctx context.Context, collection string) (<-chan Event, func(), error)
}

// Nop discards events
type Nop struct{}

// Publish implements Publisher
func (Nop) Publish(context.Context, Event) error { return nil }

// New builds an event stamped with the current time
func New(collection, id string, op Op) Event {
	return Event{Collection: collection, ID: id, Op: op, At: time.Now().UTC()}
}
