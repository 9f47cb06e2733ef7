// Package registrycache provides an optional Redis-backed implementation of
// bus.RegistryCache, letting agent capability advertisements be shared
// across processes in a local dev cluster. It is a best-effort cache only:
// per spec.md §6, the core never relies on it for correctness, and a miss or
// connection error simply falls back to the bus's local registry view.
package registrycache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 30 * time.Second

// Client implements bus.RegistryCache on top of a Redis hash keyed by agent
// id, each field holding a JSON-encoded capability list. The TTL applies to
// the whole hash and is refreshed on every publish: all advertisements
// disappear together once nobody has published for one TTL, while a single
// crashed agent's field stays as long as other agents keep publishing
// (TTL pattern grounded on runtime/registry/cache.go's MemoryCache).
type Client struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTTL overrides the default 30s capability advertisement TTL.
func WithTTL(d time.Duration) Option {
	return func(c *Client) { c.ttl = d }
}

// WithHashKey overrides the Redis hash key used to namespace advertisements
// (useful when multiple bus clusters share a Redis instance).
func WithHashKey(key string) Option {
	return func(c *Client) { c.key = key }
}

// New wraps an existing *redis.Client. The caller owns the client's
// lifecycle (including Close).
func New(rdb *redis.Client, opts ...Option) *Client {
	c := &Client{rdb: rdb, key: "agentmesh:capabilities", ttl: defaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PublishCapabilities advertises agentID's capability set with the
// configured TTL. Errors are returned to the caller (the bus logs and
// ignores them; this is never a hard dependency).
func (c *Client) PublishCapabilities(ctx context.Context, agentID string, capabilities []string) error {
	data, err := json.Marshal(capabilities)
	if err != nil {
		return fmt.Errorf("registrycache: encode capabilities for %s: %w", agentID, err)
	}
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, c.key, agentID, data)
	pipe.Expire(ctx, c.key, c.ttl)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("registrycache: publish %s: %w", agentID, err)
	}
	return nil
}

// Capabilities returns every advertised agent id mapped to its capability
// list, as last published. Malformed individual entries are skipped rather
// than failing the whole lookup.
func (c *Client) Capabilities(ctx context.Context) (map[string][]string, error) {
	raw, err := c.rdb.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, fmt.Errorf("registrycache: list capabilities: %w", err)
	}
	out := make(map[string][]string, len(raw))
	for agentID, data := range raw {
		var caps []string
		if err := json.Unmarshal([]byte(data), &caps); err != nil {
			continue
		}
		out[agentID] = caps
	}
	return out, nil
}

// Forget removes agentID's advertisement immediately (e.g. on graceful
// UnregisterAgent) instead of waiting for TTL expiry.
func (c *Client) Forget(ctx context.Context, agentID string) error {
	if err := c.rdb.HDel(ctx, c.key, agentID).Err(); err != nil {
		return fmt.Errorf("registrycache: forget %s: %w", agentID, err)
	}
	return nil
}
