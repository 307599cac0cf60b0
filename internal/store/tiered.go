package store

import (
	"context"
	"errors"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// TieredStore reads and writes JSON blobs through an ordered list of tiers.
// Neither operation returns an error: Load degrades to a miss and Save to
// false, with the failure logged. Callers that need durability check the
// boolean.
type TieredStore struct {
	tiers []Tier
}

// New creates a tiered store. Tier order is precedence order: the first
// tier is tried first on both reads and writes.
func New(tiers ...Tier) *TieredStore {
	return &TieredStore{tiers: tiers}
}

// Tiers returns the configured tier names, primary first.
func (s *TieredStore) Tiers() []string {
	names := make([]string, len(s.tiers))
	for i, t := range s.tiers {
		names[i] = t.Name()
	}
	return names
}

// Load unmarshals the value stored under key into out. It tries each tier
// in order; absence or error on an earlier tier silently falls through to
// the next. Returns false when no tier had a usable value — out is left
// untouched so the caller's default survives.
func (s *TieredStore) Load(ctx context.Context, key string, out any) bool {
	for _, tier := range s.tiers {
		data, err := tier.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			log.Warn().Err(err).Str("tier", tier.Name()).Str("key", key).Msg("Tier read failed, falling through")
			continue
		}
		if err := json.Unmarshal(data, out); err != nil {
			log.Warn().Err(err).Str("tier", tier.Name()).Str("key", key).Msg("Corrupt blob, falling through")
			continue
		}
		return true
	}
	return false
}

// Save marshals v and writes it under key. The primary tier is attempted
// first; on failure the write falls through to the next tier rather than
// failing the whole operation. Returns true if any tier accepted the write.
func (s *TieredStore) Save(ctx context.Context, key string, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Marshal failed, nothing saved")
		return false
	}

	for _, tier := range s.tiers {
		if err := tier.Set(ctx, key, data); err != nil {
			log.Warn().Err(err).Str("tier", tier.Name()).Str("key", key).Msg("Tier write failed, falling through")
			continue
		}
		return true
	}
	log.Error().Str("key", key).Msg("All storage tiers failed")
	return false
}
