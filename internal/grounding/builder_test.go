package grounding

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportlens/supportlens/pkg/models"
)

// mutableSource lets tests swap the live snapshot.
type mutableSource struct {
	mu   sync.RWMutex
	snap *models.Snapshot
}

func (s *mutableSource) Current() *models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *mutableSource) set(snap *models.Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

func snapshotAt(updated time.Time, items ...models.Item) *models.Snapshot {
	snap := &models.Snapshot{LastUpdated: updated, Items: items}
	snap.Recompute(updated)
	return snap
}

func sampleItem(id int64) models.Item {
	return models.Item{
		ID:          id,
		Kind:        models.KindTicket,
		Title:       "Login page broken",
		BodyPreview: "Users report a blank screen after entering credentials",
		State:       "open",
		Priority:    models.PriorityHigh,
		Tags:        []string{"auth", "web"},
	}
}

func TestContextMemoizedOnTimestamp(t *testing.T) {
	t1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	source := &mutableSource{snap: snapshotAt(t1, sampleItem(1))}
	b := NewBuilder(source)

	ctx := context.Background()
	first, err := b.Context(ctx)
	require.NoError(t, err)
	assert.Equal(t, t1, first.SourceTimestamp)
	assert.Equal(t, 1, first.ItemCount)

	// Same timestamp: the exact cached object comes back, no rebuild.
	second, err := b.Context(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestContextRebuildsExactlyOnceOnNewTimestamp(t *testing.T) {
	t1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(10 * time.Minute)
	source := &mutableSource{snap: snapshotAt(t1, sampleItem(1))}
	b := NewBuilder(source)

	ctx := context.Background()
	first, err := b.Context(ctx)
	require.NoError(t, err)

	source.set(snapshotAt(t2, sampleItem(1), sampleItem(2)))

	rebuilt, err := b.Context(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, rebuilt)
	assert.Equal(t, t2, rebuilt.SourceTimestamp)
	assert.Equal(t, 2, rebuilt.ItemCount)

	// Stable again until the timestamp moves.
	again, err := b.Context(ctx)
	require.NoError(t, err)
	assert.Same(t, rebuilt, again)
}

func TestInvalidateForcesRebuildWithoutTimestampChange(t *testing.T) {
	t1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	source := &mutableSource{snap: snapshotAt(t1, sampleItem(1))}
	b := NewBuilder(source)

	ctx := context.Background()
	first, err := b.Context(ctx)
	require.NoError(t, err)

	b.Invalidate()
	assert.False(t, b.Status().Cached)

	rebuilt, err := b.Context(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, rebuilt)
	assert.Equal(t, t1, rebuilt.SourceTimestamp)
}

func TestConcurrentStaleCallsRebuildOnce(t *testing.T) {
	t1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	source := &mutableSource{snap: snapshotAt(t1, sampleItem(1))}

	// build() reads the clock exactly once per rebuild, so counting clock
	// reads counts rebuilds.
	var clockReads atomic.Int64
	b := NewBuilder(source, WithClock(func() time.Time {
		clockReads.Add(1)
		return t1
	}))

	const callers = 16
	var wg sync.WaitGroup
	results := make([]*models.CachedContext, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := b.Context(context.Background())
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), clockReads.Load())
	for i := 1; i < callers; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestContextNoSnapshot(t *testing.T) {
	b := NewBuilder(&mutableSource{})

	_, err := b.Context(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
	assert.False(t, b.Status().Cached)
}

func TestFormatItem(t *testing.T) {
	item := sampleItem(42)
	line := formatItem(&item)

	assert.Contains(t, line, "[ticket #42]")
	assert.Contains(t, line, "[open/high]")
	assert.Contains(t, line, "{auth,web}")
	assert.Contains(t, line, "Login page broken")
	assert.Contains(t, line, "blank screen")
}

func TestFormatItemTruncatesPreview(t *testing.T) {
	item := sampleItem(1)
	long := make([]rune, previewBudget*2)
	for i := range long {
		long[i] = 'x'
	}
	item.BodyPreview = string(long)

	line := formatItem(&item)
	assert.LessOrEqual(t, len([]rune(line)), previewBudget+80)
	assert.Contains(t, line, "…")
}

func TestStatsSummaryContainsAggregates(t *testing.T) {
	t1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	item := sampleItem(1)
	item.CreatedAt = t1.Add(-time.Hour)
	source := &mutableSource{snap: snapshotAt(t1, item)}
	b := NewBuilder(source)

	built, err := b.Context(context.Background())
	require.NoError(t, err)

	assert.Contains(t, built.StatsSummary, "TOTALS: 1 items")
	assert.Contains(t, built.StatsSummary, "open=1")
	assert.Contains(t, built.StatsSummary, "high=1")
	assert.Contains(t, built.StatsSummary, "under_24h=1")
}

func TestStatusReportsAge(t *testing.T) {
	t1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	now := t1
	source := &mutableSource{snap: snapshotAt(t1, sampleItem(1))}
	b := NewBuilder(source, WithClock(func() time.Time { return now }))

	_, err := b.Context(context.Background())
	require.NoError(t, err)

	now = t1.Add(1500 * time.Millisecond)
	status := b.Status()
	assert.True(t, status.Cached)
	assert.Equal(t, 1, status.ItemsInContext)
	assert.Equal(t, int64(1500), status.CacheAgeMs)
}
