package query

import (
	"github.com/supportlens/supportlens/pkg/models"
)

// PatternMatchConfidence is the fixed confidence assigned to every pattern
// match. Pattern confidence is binary: either a regex matched with full
// trust, or nothing matched at all. There is no partial-credit blending.
const PatternMatchConfidence = 0.9

// Classifier maps natural-language queries to structured interpretations
// using the static pattern library. Pure and deterministic: no I/O, and by
// contract it never panics for any input string, including the empty string.
type Classifier struct {
	lib *Library
}

// NewClassifier loads the embedded pattern library.
func NewClassifier() (*Classifier, error) {
	lib, err := LoadLibrary()
	if err != nil {
		return nil, err
	}
	return &Classifier{lib: lib}, nil
}

// NewClassifierWithLibrary builds a classifier over a custom library.
// Used by tests that need a controlled pattern set.
func NewClassifierWithLibrary(lib *Library) *Classifier {
	return &Classifier{lib: lib}
}

// Classify tests the query against the pattern library and extracts filters.
// On a match the result carries the matched intent at PatternMatchConfidence;
// otherwise intent is unknown at confidence 0. Filter extraction always runs,
// so even an unmatched query can carry filter hints forward.
func (c *Classifier) Classify(query string) *models.InterpretationResult {
	filters := ExtractFilters(query)

	entry := c.lib.Match(query)
	if entry == nil {
		return &models.InterpretationResult{
			Intent:     models.IntentUnknown,
			Filters:    filters,
			Confidence: 0,
			Method:     models.MethodPattern,
		}
	}

	return &models.InterpretationResult{
		Intent:     entry.Intent,
		Filters:    filters,
		Confidence: PatternMatchConfidence,
		Method:     models.MethodPattern,
	}
}

// RequiresContext reports whether the matched intent needs the serialized
// dataset context to be answered (analytical questions).
func (c *Classifier) RequiresContext(intent models.Intent) bool {
	for i := range c.lib.Entries {
		if c.lib.Entries[i].Intent == intent {
			return c.lib.Entries[i].RequiresContext
		}
	}
	return false
}
