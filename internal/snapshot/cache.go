// Package snapshot holds the periodically refreshed ticket/conversation
// dataset and keeps its derived aggregates consistent with the item list.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/supportlens/supportlens/internal/store"
	"github.com/supportlens/supportlens/pkg/models"
)

// StorageKey is the tiered-store key the snapshot blob lives under.
const StorageKey = "snapshot"

// ErrNoFetcher is returned by Refresh when no vendor endpoint is wired in;
// the cache then serves only what the store already holds.
var ErrNoFetcher = errors.New("snapshot: no fetcher configured")

// Fetcher pulls raw records plus a freshness timestamp from the vendor API
// layer. The concrete client is wired in by the caller.
type Fetcher interface {
	FetchSnapshot(ctx context.Context) (*models.Snapshot, error)
}

// Cache owns the live snapshot. Reads are cheap and lock-guarded; refreshes
// recompute aggregates from the item list (the only source of truth for
// counts) and persist through the tiered store.
type Cache struct {
	store   *store.TieredStore
	fetcher Fetcher
	clock   func() time.Time

	mu      sync.RWMutex
	current *models.Snapshot
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock injects a clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) { c.clock = clock }
}

// NewCache creates a snapshot cache backed by the given store and fetcher.
func NewCache(ts *store.TieredStore, fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		store:   ts,
		fetcher: fetcher,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the live snapshot, or nil before the first load/refresh.
func (c *Cache) Current() *models.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// LastUpdated returns the live snapshot's freshness timestamp, or the zero
// time when no snapshot is loaded.
func (c *Cache) LastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return time.Time{}
	}
	return c.current.LastUpdated
}

// Load hydrates the cache from the tiered store, typically at startup.
// Aggregates are recomputed rather than trusted from the stored blob, so a
// blob written by an older version can never introduce count drift.
func (c *Cache) Load(ctx context.Context) bool {
	var snap models.Snapshot
	if !c.store.Load(ctx, StorageKey, &snap) {
		return false
	}
	snap.Recompute(snap.LastUpdated)

	c.mu.Lock()
	c.current = &snap
	c.mu.Unlock()

	log.Info().
		Int("items", len(snap.Items)).
		Time("last_updated", snap.LastUpdated).
		Msg("Snapshot hydrated from store")
	return true
}

// Refresh fetches a fresh snapshot, recomputes aggregates, persists it and
// swaps it in. The previous snapshot stays live if the fetch fails.
func (c *Cache) Refresh(ctx context.Context) (*models.Snapshot, error) {
	if c.fetcher == nil {
		return nil, ErrNoFetcher
	}
	snap, err := c.fetcher.FetchSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	if snap.LastUpdated.IsZero() {
		snap.LastUpdated = c.clock()
	}
	snap.Recompute(snap.LastUpdated)

	if !c.store.Save(ctx, StorageKey, snap) {
		log.Warn().Msg("Snapshot not persisted, serving from memory only")
	}

	c.mu.Lock()
	c.current = snap
	c.mu.Unlock()

	log.Info().
		Int("items", len(snap.Items)).
		Time("last_updated", snap.LastUpdated).
		Msg("Snapshot refreshed")
	return snap, nil
}

// RunRefreshLoop refreshes the snapshot on a fixed interval until ctx is
// cancelled. Failures are logged and retried on the next tick.
func (c *Cache) RunRefreshLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Refresh(ctx); err != nil {
				log.Warn().Err(err).Msg("Scheduled snapshot refresh failed")
			}
		}
	}
}
