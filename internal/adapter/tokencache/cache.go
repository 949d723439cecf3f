// Package tokencache implements the token cache port as a two-level cache:
// an in-process ristretto L1 in front of a NATS JetStream KV L2 that is
// shared between replicas.
package tokencache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/missioncontrol/internal/domain/apitoken"
)

// kvStore is the subset of jetstream.KeyValue used as L2.
type kvStore interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Delete(ctx context.Context, key string, opts ...jetstream.KVDeleteOpt) error
}

// entry is the L2 wire format. TokenHash is never stored.
type entry struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	Name      string     `json:"name"`
	Prefix    string     `json:"prefix"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Cache is a tiered token cache. A nil L2 runs L1 only.
type Cache struct {
	l1  *ristretto.Cache[string, apitoken.Token]
	l2  kvStore
	ttl time.Duration
}

// New creates a Cache. maxSizeMB bounds the L1 footprint; ttl bounds how long
// an L1 entry may outlive a revocation on another replica.
func New(maxSizeMB int64, l2 kvStore, ttl time.Duration) (*Cache, error) {
	maxCost := maxSizeMB << 20
	l1, err := ristretto.NewCache(&ristretto.Config[string, apitoken.Token]{
		NumCounters: maxCost / 100 * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{l1: l1, l2: l2, ttl: ttl}, nil
}

// Get checks L1, then L2. An L2 hit is backfilled into L1.
func (c *Cache) Get(ctx context.Context, hash string) (*apitoken.Token, bool) {
	if t, ok := c.l1.Get(hash); ok {
		return &t, true
	}
	if c.l2 == nil {
		return nil, false
	}

	kve, err := c.l2.Get(ctx, hash)
	if err != nil {
		if !errors.Is(err, jetstream.ErrKeyNotFound) {
			slog.Warn("token cache: l2 get failed", "error", err)
		}
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(kve.Value(), &e); err != nil {
		slog.Warn("token cache: corrupt l2 entry", "error", err)
		return nil, false
	}
	t := apitoken.Token{
		ID:        e.ID,
		TenantID:  e.TenantID,
		Name:      e.Name,
		Prefix:    e.Prefix,
		TokenHash: hash,
		RevokedAt: e.RevokedAt,
	}
	c.setL1(hash, t)
	return &t, true
}

// Set writes to both levels.
func (c *Cache) Set(ctx context.Context, hash string, t *apitoken.Token) {
	c.setL1(hash, *t)
	if c.l2 == nil {
		return
	}
	data, err := json.Marshal(entry{
		ID:        t.ID,
		TenantID:  t.TenantID,
		Name:      t.Name,
		Prefix:    t.Prefix,
		RevokedAt: t.RevokedAt,
	})
	if err != nil {
		return
	}
	if _, err := c.l2.Put(ctx, hash, data); err != nil {
		slog.Warn("token cache: l2 put failed", "error", err)
	}
}

// Delete removes the hash from both levels.
func (c *Cache) Delete(ctx context.Context, hash string) {
	c.l1.Del(hash)
	if c.l2 == nil {
		return
	}
	if err := c.l2.Delete(ctx, hash); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		slog.Warn("token cache: l2 delete failed", "error", err)
	}
}

// Close releases the L1 cache.
func (c *Cache) Close() {
	c.l1.Close()
}

func (c *Cache) setL1(hash string, t apitoken.Token) {
	cost := int64(len(t.ID) + len(t.TenantID) + len(t.Name) + len(t.Prefix) + len(hash))
	c.l1.SetWithTTL(hash, t, cost, c.ttl)
}
