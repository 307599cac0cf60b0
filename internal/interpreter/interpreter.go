// Package interpreter orchestrates query interpretation: interpretation
// cache, pattern classifier, and the AI fallback with degrade-on-failure.
package interpreter

import (
	"context"
	"regexp"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/supportlens/supportlens/internal/query"
	"github.com/supportlens/supportlens/internal/telemetry"
	"github.com/supportlens/supportlens/pkg/models"
)

const (
	// PatternConfidenceThreshold gates escalation: pattern results at or
	// above it are trusted without consulting the model.
	PatternConfidenceThreshold = 0.8

	// DegradedConfidenceFloor is reported when the AI path fails and the
	// low-confidence pattern result is served anyway. It signals
	// "best-effort, unverified" to downstream consumers, not genuine
	// classifier confidence.
	DegradedConfidenceFloor = 0.3

	// DefaultCacheSize bounds the interpretation cache when the caller
	// passes zero.
	DefaultCacheSize = 512

	queryLogTruncateLen = 50
)

// multiSpaceRegex collapses runs of whitespace when normalizing cache keys.
var multiSpaceRegex = regexp.MustCompile(`\s+`)

// IntentExtractor is the AI path consulted for low-confidence queries.
type IntentExtractor interface {
	ExtractIntent(ctx context.Context, query string) (*models.InterpretationResult, error)
}

// Stats tracks interpretation metrics.
type Stats struct {
	Requests       int64 `json:"requests"`
	CacheHits      int64 `json:"cache_hits"`
	PatternMatches int64 `json:"pattern_matches"`
	AIResults      int64 `json:"ai_results"`
	Degraded       int64 `json:"degraded"`
}

// Interpreter resolves raw query strings to structured interpretations.
// Results are cached under the normalized query; degraded results are
// deliberately left out of the cache so a transient AI outage cannot
// poison future queries once the provider recovers.
type Interpreter struct {
	classifier *query.Classifier
	extractor  IntentExtractor
	cache      *lru.Cache[string, *models.InterpretationResult]
	aiGroup    singleflight.Group
	stats      Stats
}

// New creates an interpreter. cacheSize bounds the interpretation LRU;
// zero selects DefaultCacheSize.
func New(classifier *query.Classifier, extractor IntentExtractor, cacheSize int) (*Interpreter, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *models.InterpretationResult](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Interpreter{
		classifier: classifier,
		extractor:  extractor,
		cache:      cache,
	}, nil
}

// Interpret resolves a query. It always returns a well-formed result: model
// failures degrade to the pattern result with a floored confidence instead
// of propagating.
func (i *Interpreter) Interpret(ctx context.Context, raw string) *models.InterpretationResult {
	atomic.AddInt64(&i.stats.Requests, 1)
	key := normalizeQuery(raw)

	// Cache hit: constant-time, no I/O.
	if cached, ok := i.cache.Get(key); ok {
		atomic.AddInt64(&i.stats.CacheHits, 1)
		telemetry.RecordCacheHit(ctx)
		return cached.Clone()
	}

	patternResult := i.classifier.Classify(raw)
	if patternResult.Confidence >= PatternConfidenceThreshold {
		atomic.AddInt64(&i.stats.PatternMatches, 1)
		telemetry.RecordInterpret(ctx, string(models.MethodPattern))
		i.cache.Add(key, patternResult)
		return patternResult.Clone()
	}

	// Escalate. Concurrent identical queries share one model call.
	aiResult, err, _ := i.aiGroup.Do(key, func() (any, error) {
		return i.extractor.ExtractIntent(ctx, raw)
	})
	if err != nil {
		// Degrade, don't fail — and don't cache, so the next attempt can
		// take the recovered AI path.
		atomic.AddInt64(&i.stats.Degraded, 1)
		telemetry.RecordDegraded(ctx)
		log.Warn().
			Err(err).
			Str("query", truncate(raw, queryLogTruncateLen)).
			Msg("AI path failed, serving best-effort pattern result")

		degraded := patternResult.Clone()
		if degraded.Confidence < DegradedConfidenceFloor {
			degraded.Confidence = DegradedConfidenceFloor
		}
		return degraded
	}

	result := aiResult.(*models.InterpretationResult)
	atomic.AddInt64(&i.stats.AIResults, 1)
	telemetry.RecordInterpret(ctx, string(models.MethodAI))
	i.cache.Add(key, result)
	return result.Clone()
}

// Stats returns a copy of the interpretation counters.
func (i *Interpreter) Stats() Stats {
	return Stats{
		Requests:       atomic.LoadInt64(&i.stats.Requests),
		CacheHits:      atomic.LoadInt64(&i.stats.CacheHits),
		PatternMatches: atomic.LoadInt64(&i.stats.PatternMatches),
		AIResults:      atomic.LoadInt64(&i.stats.AIResults),
		Degraded:       atomic.LoadInt64(&i.stats.Degraded),
	}
}

// CacheLen reports the number of cached interpretations.
func (i *Interpreter) CacheLen() int {
	return i.cache.Len()
}

// ClearCache drops all cached interpretations.
func (i *Interpreter) ClearCache() {
	i.cache.Purge()
}

// normalizeQuery normalizes a query for consistent cache keys: lowercase,
// trimmed, internal whitespace collapsed.
func normalizeQuery(q string) string {
	return multiSpaceRegex.ReplaceAllString(strings.ToLower(strings.TrimSpace(q)), " ")
}

// truncate shortens a string for log output.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
