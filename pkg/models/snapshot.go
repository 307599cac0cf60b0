// Package models contains domain models for supportlens.
package models

import "time"

// ItemKind distinguishes the two record types in a snapshot.
type ItemKind string

const (
	// KindTicket is a support ticket.
	KindTicket ItemKind = "ticket"
	// KindConversation is a chat/email conversation thread.
	KindConversation ItemKind = "conversation"
)

// Priority represents the urgency of an item.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Age bucket labels used in aggregate counts.
const (
	AgeUnder24h = "under_24h"
	AgeUnder7d  = "under_7d"
	AgeUnder30d = "under_30d"
	AgeOver30d  = "over_30d"
)

// Item is a single ticket or conversation record inside a snapshot.
type Item struct {
	ID          int64     `json:"id"`
	Kind        ItemKind  `json:"kind"`
	Title       string    `json:"title"`
	BodyPreview string    `json:"body_preview,omitempty"`
	State       string    `json:"state"`
	Priority    Priority  `json:"priority"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Aggregates holds derived counts over a snapshot's items.
// It is always recomputed from Items and never carries independent state.
type Aggregates struct {
	ByState    map[string]int `json:"by_state"`
	ByPriority map[string]int `json:"by_priority"`
	ByAge      map[string]int `json:"by_age"`
	Total      int            `json:"total"`
}

// Snapshot is the periodically refreshed copy of the ticketing dataset.
type Snapshot struct {
	LastUpdated time.Time  `json:"last_updated"`
	Items       []Item     `json:"items"`
	Aggregates  Aggregates `json:"aggregates"`
}

// ComputeAggregates derives aggregate counts from items at the given
// reference time. Pure function: same inputs always produce the same counts.
func ComputeAggregates(items []Item, now time.Time) Aggregates {
	agg := Aggregates{
		ByState:    make(map[string]int),
		ByPriority: make(map[string]int),
		ByAge:      make(map[string]int),
		Total:      len(items),
	}

	for _, item := range items {
		agg.ByState[item.State]++
		agg.ByPriority[string(item.Priority)]++

		age := now.Sub(item.CreatedAt)
		switch {
		case age < 24*time.Hour:
			agg.ByAge[AgeUnder24h]++
		case age < 7*24*time.Hour:
			agg.ByAge[AgeUnder7d]++
		case age < 30*24*time.Hour:
			agg.ByAge[AgeUnder30d]++
		default:
			agg.ByAge[AgeOver30d]++
		}
	}

	return agg
}

// Recompute refreshes the snapshot's aggregates from its items.
func (s *Snapshot) Recompute(now time.Time) {
	s.Aggregates = ComputeAggregates(s.Items, now)
}
