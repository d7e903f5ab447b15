package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alsaadxx12/fly1234/internal/platform/changefeed"
	"github.com/alsaadxx12/fly1234/pkg/logger"
)

// ChannelPrefix is the prefix of change feed channels, one per collection
const ChannelPrefix = "changes:"

// subscriberBuffer bounds how far a slow reader may fall behind before
// events for it are dropped
const subscriberBuffer = 64

// Feed publishes and delivers record change events over Redis pub/sub
type Feed struct {
	client *redis.Client
	logger *logger.Logger
}

// Compile-time checks
var (
	_ changefeed.Publisher  = (*Feed)(nil)
	_ changefeed.Subscriber = (*Feed)(nil)
)

// NewFeed creates a change feed on client
func NewFeed(client *redis.Client, log *logger.Logger) *Feed {
	return &Feed{
		client: client,
		logger: log.WithField("component", "changefeed"),
	}
}

// Publish sends an event to the collection channel
func (f *Feed) Publish(ctx context.Context, e changefeed.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := f.client.Publish(ctx, ChannelPrefix+e.Collection, data).Err(); err != nil {
		f.logger.Warn("failed to publish change", "collection", e.Collection, "id", e.ID, "error", err)
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// Subscribe delivers events of one collection until unsubscribe is called or
// ctx ends. The channel is closed afterwards.
func (f *Feed) Subscribe(ctx context.Context, collection string) (<-chan changefeed.Event, func(), error) {
	ps := f.client.Subscribe(ctx, ChannelPrefix+collection)
	// wait for the confirmation so no event published after Subscribe returns is missed
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to %s: %w", collection, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan changefeed.Event, subscriberBuffer)
	msgs := ps.Channel()

	go func() {
		defer close(out)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var e changefeed.Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					f.logger.Warn("dropping malformed change event", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- e:
				default:
					f.logger.Warn("subscriber too slow, dropping change event", "collection", collection, "id", e.ID)
				}
			}
		}
	}()

	return out, cancel, nil
}
