package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// SnapshotSuite is a test suite for snapshot aggregate computation.
type SnapshotSuite struct {
	suite.Suite
	now time.Time
}

func TestSnapshotSuite(t *testing.T) {
	suite.Run(t, new(SnapshotSuite))
}

func (s *SnapshotSuite) SetupTest() {
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

func (s *SnapshotSuite) item(id int64, state string, prio Priority, age time.Duration) Item {
	return Item{
		ID:        id,
		Kind:      KindTicket,
		Title:     "test ticket",
		State:     state,
		Priority:  prio,
		CreatedAt: s.now.Add(-age),
		UpdatedAt: s.now.Add(-age),
	}
}

// TestComputeAggregates tests state, priority and age bucket counts.
func (s *SnapshotSuite) TestComputeAggregates() {
	items := []Item{
		s.item(1, "open", PriorityHigh, time.Hour),
		s.item(2, "open", PriorityLow, 3*24*time.Hour),
		s.item(3, "closed", PriorityUrgent, 10*24*time.Hour),
		s.item(4, "pending", PriorityLow, 60*24*time.Hour),
	}

	agg := ComputeAggregates(items, s.now)

	s.Equal(4, agg.Total)
	s.Equal(2, agg.ByState["open"])
	s.Equal(1, agg.ByState["closed"])
	s.Equal(1, agg.ByState["pending"])
	s.Equal(2, agg.ByPriority["low"])
	s.Equal(1, agg.ByPriority["high"])
	s.Equal(1, agg.ByPriority["urgent"])
	s.Equal(1, agg.ByAge[AgeUnder24h])
	s.Equal(1, agg.ByAge[AgeUnder7d])
	s.Equal(1, agg.ByAge[AgeUnder30d])
	s.Equal(1, agg.ByAge[AgeOver30d])
}

// TestStateSumEqualsItemCount verifies the aggregate/detail consistency
// invariant: by-state counts must sum to the number of items.
func (s *SnapshotSuite) TestStateSumEqualsItemCount() {
	items := []Item{
		s.item(1, "open", PriorityHigh, time.Hour),
		s.item(2, "solved", PriorityLow, 2*time.Hour),
		s.item(3, "open", PriorityMedium, 3*time.Hour),
	}

	agg := ComputeAggregates(items, s.now)

	sum := 0
	for _, n := range agg.ByState {
		sum += n
	}
	s.Equal(len(items), sum)
	s.Equal(len(items), agg.Total)
}

// TestComputeAggregatesEmpty verifies an empty snapshot produces zero counts.
func (s *SnapshotSuite) TestComputeAggregatesEmpty() {
	agg := ComputeAggregates(nil, s.now)
	s.Equal(0, agg.Total)
	s.Empty(agg.ByState)
	s.Empty(agg.ByPriority)
	s.Empty(agg.ByAge)
}

// TestRecomputeIsDeterministic verifies recomputation is pure.
func (s *SnapshotSuite) TestRecomputeIsDeterministic() {
	snap := &Snapshot{
		LastUpdated: s.now,
		Items: []Item{
			s.item(1, "open", PriorityHigh, time.Hour),
			s.item(2, "closed", PriorityLow, 48*time.Hour),
		},
	}

	snap.Recompute(s.now)
	first := snap.Aggregates
	snap.Recompute(s.now)

	s.Equal(first, snap.Aggregates)
}

func TestInterpretationResultClone(t *testing.T) {
	orig := &InterpretationResult{
		Intent:     IntentCountTickets,
		Filters:    map[FilterKey]string{FilterStatus: "open"},
		Confidence: 0.9,
		Method:     MethodPattern,
	}

	clone := orig.Clone()
	clone.Filters[FilterStatus] = "closed"
	clone.Confidence = 0.1

	assert.Equal(t, "open", orig.Filters[FilterStatus])
	assert.Equal(t, 0.9, orig.Confidence)
}
