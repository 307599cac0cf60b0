// Package grounding serializes the live snapshot into the compact text
// block that grounds AI answers, memoized on the snapshot's freshness
// timestamp so each snapshot refresh triggers exactly one rebuild.
package grounding

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tiktoken-go/tokenizer"
	"golang.org/x/sync/singleflight"

	"github.com/supportlens/supportlens/internal/telemetry"
	"github.com/supportlens/supportlens/pkg/models"
)

const (
	// previewBudget caps the per-item body preview. Unbounded previews
	// would blow the model's context window once the dataset grows.
	previewBudget = 100

	// rebuildKey is the singleflight key; there is only ever one context.
	rebuildKey = "context"
)

// ErrNoSnapshot is returned when no snapshot has been loaded yet.
var ErrNoSnapshot = errors.New("grounding: no snapshot available")

// SnapshotSource exposes the live snapshot to the builder.
type SnapshotSource interface {
	Current() *models.Snapshot
}

// Builder memoizes the LLM-ready context in process memory. Staleness is
// detected purely by comparing SourceTimestamp against the live snapshot's
// LastUpdated; there is no dirty flag to keep in sync. Concurrent callers
// hitting a stale cache are coalesced into a single rebuild.
type Builder struct {
	source SnapshotSource
	clock  func() time.Time

	group singleflight.Group
	enc   tokenizer.Codec

	mu     sync.RWMutex
	cached *models.CachedContext
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock injects a clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(b *Builder) { b.clock = clock }
}

// NewBuilder creates a context builder over the given snapshot source.
func NewBuilder(source SnapshotSource, opts ...Option) *Builder {
	b := &Builder{
		source: source,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}

	enc, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		// Token counts degrade to zero; the context itself is unaffected.
		log.Warn().Err(err).Msg("Tokenizer unavailable, context token counts disabled")
	} else {
		b.enc = enc
	}
	return b
}

// Context returns the cached context, rebuilding it first when the live
// snapshot's timestamp no longer matches. The fresh-cache path does no I/O
// and takes no exclusive lock.
func (b *Builder) Context(ctx context.Context) (*models.CachedContext, error) {
	snap := b.source.Current()
	if snap == nil {
		return nil, ErrNoSnapshot
	}

	b.mu.RLock()
	cached := b.cached
	b.mu.RUnlock()
	if cached != nil && cached.SourceTimestamp.Equal(snap.LastUpdated) {
		return cached, nil
	}

	result, err, _ := b.group.Do(rebuildKey, func() (any, error) {
		// Re-check under the group: a concurrent caller may have already
		// rebuilt for this timestamp.
		live := b.source.Current()
		if live == nil {
			return nil, ErrNoSnapshot
		}
		b.mu.RLock()
		existing := b.cached
		b.mu.RUnlock()
		if existing != nil && existing.SourceTimestamp.Equal(live.LastUpdated) {
			return existing, nil
		}

		built := b.build(live)
		b.mu.Lock()
		b.cached = built
		b.mu.Unlock()

		telemetry.RecordContextRebuild(ctx)
		log.Info().
			Int("items", built.ItemCount).
			Int("tokens", built.TokenCount).
			Time("source_timestamp", built.SourceTimestamp).
			Msg("Context rebuilt")
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.CachedContext), nil
}

// Invalidate clears the memoized context so the next call rebuilds even if
// the snapshot timestamp has not moved. Used by the manual refresh command.
func (b *Builder) Invalidate() {
	b.mu.Lock()
	b.cached = nil
	b.mu.Unlock()
}

// Status returns the read-only introspection view for health checks.
func (b *Builder) Status() models.ContextStatus {
	b.mu.RLock()
	cached := b.cached
	b.mu.RUnlock()

	if cached == nil {
		return models.ContextStatus{}
	}
	return models.ContextStatus{
		Cached:         true,
		ItemsInContext: cached.ItemCount,
		CacheAgeMs:     b.clock().Sub(cached.BuiltAt).Milliseconds(),
		TokenCount:     cached.TokenCount,
	}
}

// build serializes a snapshot. Pure function of the snapshot, so duplicate
// concurrent builds would converge to the same answer even without the
// singleflight guard.
func (b *Builder) build(snap *models.Snapshot) *models.CachedContext {
	var sb strings.Builder
	for i := range snap.Items {
		sb.WriteString(formatItem(&snap.Items[i]))
		sb.WriteByte('\n')
	}
	summary := sb.String()
	stats := formatAggregates(snap.Aggregates)

	return &models.CachedContext{
		SummaryText:     summary,
		StatsSummary:    stats,
		BuiltAt:         b.clock(),
		SourceTimestamp: snap.LastUpdated,
		ItemCount:       len(snap.Items),
		TokenCount:      b.countTokens(summary + stats),
	}
}

// formatItem emits the one-line summary for a single item:
// kind tag, numeric ID, state/priority brackets, tags, title and preview.
func formatItem(item *models.Item) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s #%d] [%s/%s]", item.Kind, item.ID, item.State, item.Priority)
	if len(item.Tags) > 0 {
		fmt.Fprintf(&sb, " {%s}", strings.Join(item.Tags, ","))
	}
	sb.WriteByte(' ')
	sb.WriteString(item.Title)
	if preview := truncateRunes(item.BodyPreview, previewBudget); preview != "" {
		sb.WriteString(" :: ")
		sb.WriteString(preview)
	}
	return sb.String()
}

// formatAggregates renders the statistics block appended after the items.
func formatAggregates(agg models.Aggregates) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "TOTALS: %d items\n", agg.Total)
	sb.WriteString("BY STATE: " + formatCounts(agg.ByState) + "\n")
	sb.WriteString("BY PRIORITY: " + formatCounts(agg.ByPriority) + "\n")
	sb.WriteString("BY AGE: " + formatCounts(agg.ByAge) + "\n")
	return sb.String()
}

// formatCounts renders a count map as "key=n" pairs in stable key order.
func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}

// countTokens estimates the context's model-token footprint.
func (b *Builder) countTokens(text string) int {
	if b.enc == nil {
		return 0
	}
	ids, _, err := b.enc.Encode(text)
	if err != nil {
		return 0
	}
	return len(ids)
}

// truncateRunes shortens s to at most n runes, marking the cut.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
