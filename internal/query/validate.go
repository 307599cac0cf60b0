package query

import (
	"fmt"
	"strings"
)

// MaxQueryLength bounds accepted query size. Anything longer is almost
// certainly pasted content rather than a question.
const MaxQueryLength = 500

// ValidationError describes malformed query input. Validation is the
// caller's responsibility before interpretation; classification itself
// accepts any string.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid query: %s", e.Reason)
}

// suspiciousChars are characters associated with injection attempts.
// Queries containing them are rejected at the boundary rather than
// sanitized, since no legitimate support question needs them.
const suspiciousChars = ";<>`'\""

// ValidateQuery checks a raw query before it enters interpretation.
func ValidateQuery(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return &ValidationError{Reason: "empty query"}
	}
	if len(query) > MaxQueryLength {
		return &ValidationError{Reason: fmt.Sprintf("query exceeds %d characters", MaxQueryLength)}
	}
	if i := strings.IndexAny(query, suspiciousChars); i >= 0 {
		return &ValidationError{Reason: fmt.Sprintf("disallowed character %q", query[i])}
	}
	return nil
}
