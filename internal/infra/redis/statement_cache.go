package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alsaadxx12/fly1234/internal/platform/statement"
	"github.com/alsaadxx12/fly1234/pkg/logger"
)

const (
	// DefaultStatementTTL keeps an accumulated statement long enough to page through it
	DefaultStatementTTL = 5 * time.Minute

	// StatementKeyPrefix is the prefix for statement cache keys
	StatementKeyPrefix = "statement:"
)

// StatementCache keeps complete statement snapshots per account and filter
type StatementCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// Compile-time check that StatementCache implements statement.Cache
var _ statement.Cache = (*StatementCache)(nil)

// NewStatementCache creates a statement cache. A non-positive ttl uses the default.
func NewStatementCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *StatementCache {
	if ttl <= 0 {
		ttl = DefaultStatementTTL
	}
	return &StatementCache{
		client: client,
		ttl:    ttl,
		logger: log.WithField("component", "statement_cache"),
	}
}

// statementKey is statement:<account>:<from>:<to>:<type>
func statementKey(accountID string, f statement.Filter) string {
	return StatementKeyPrefix + accountID + ":" + f.From + ":" + f.To + ":" + strings.ToUpper(f.Type)
}

// Get retrieves a cached snapshot
func (c *StatementCache) Get(ctx context.Context, accountID string, f statement.Filter) (*statement.Snapshot, bool, error) {
	key := statementKey(accountID, f)

	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		c.logger.Debug("cache miss", "key", key)
		return nil, false, nil
	}
	if err != nil {
		c.logger.Error("cache error", "operation", "get", "key", key, "error", err)
		return nil, false, fmt.Errorf("failed to get cached statement: %w", err)
	}

	var snap statement.Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached statement: %w", err)
	}

	c.logger.Debug("cache hit", "key", key, "transactions", len(snap.Transactions))
	return &snap, true, nil
}

// Set stores a snapshot with the cache TTL
func (c *StatementCache) Set(ctx context.Context, snap *statement.Snapshot) error {
	key := statementKey(snap.AccountID, snap.Filter)

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal statement: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Error("cache error", "operation", "set", "key", key, "error", err)
		return fmt.Errorf("failed to set cached statement: %w", err)
	}
	return nil
}

// Invalidate removes every cached snapshot of an account
func (c *StatementCache) Invalidate(ctx context.Context, accountID string) error {
	pattern := StatementKeyPrefix + escapeGlob(accountID) + ":*"
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()

	pipe := c.client.Pipeline()
	count := 0
	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
		count++
		if count >= 100 {
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("failed to invalidate statements: %w", err)
			}
			pipe = c.client.Pipeline()
			count = 0
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan statements: %w", err)
	}

	if count > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to invalidate statements: %w", err)
		}
	}
	return nil
}

// escapeGlob quotes the characters SCAN MATCH treats as wildcards
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
