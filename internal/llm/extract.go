package llm

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/supportlens/supportlens/pkg/models"
)

// Structured extraction favors determinism over creativity.
const (
	extractTemperature = 0.1
	extractMaxTokens   = 300
)

const extractSystemPrompt = `You interpret natural-language questions about a support-ticketing system.
Respond with a single JSON object and nothing else, using exactly these fields:
  "intent": one of "count_tickets", "list_tickets", "search_tickets", "show_ticket", "list_conversations", "ticket_stats", "complex_question", "help", "unknown"
  "filters": object with any of the optional keys "status", "priority", "type", "assignee", "organization", "tags", "created_date", "ticket_id" (string values only; "created_date" must be "today", "this_week" or "this_month")
  "confidence": number between 0 and 1
  "reasoning": short string explaining the interpretation
If the question does not fit any intent, use "unknown". Never invent filter values that are not implied by the question.`

// aiInterpretation mirrors the JSON schema the model is instructed to
// return. Pointer fields distinguish "missing" from zero values so schema
// violations are detected instead of silently defaulted.
type aiInterpretation struct {
	Intent     *string           `json:"intent"`
	Filters    map[string]string `json:"filters"`
	Confidence *float64          `json:"confidence"`
	Reasoning  string            `json:"reasoning"`
}

// ExtractIntent asks the model for a structured interpretation of the query.
// Returns *ModelError when the provider fails or the response violates the
// schema; the caller owns the degrade decision.
func (c *Client) ExtractIntent(ctx context.Context, query string) (*models.InterpretationResult, error) {
	raw, err := c.Complete(ctx, extractSystemPrompt, query, Options{
		Temperature: extractTemperature,
		MaxTokens:   extractMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	var parsed aiInterpretation
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err != nil {
		return nil, &ModelError{Op: "extract", Err: fmt.Errorf("unparseable model output: %w", err)}
	}
	if parsed.Intent == nil || parsed.Confidence == nil {
		return nil, &ModelError{Op: "extract", Err: fmt.Errorf("model output missing required fields")}
	}

	// Closed enum: anything unrecognized collapses to unknown.
	intent := models.Intent(*parsed.Intent)
	if !models.KnownIntents[intent] {
		intent = models.IntentUnknown
	}

	filters := make(map[models.FilterKey]string)
	for k, v := range parsed.Filters {
		key := models.FilterKey(k)
		if models.KnownFilterKeys[key] && v != "" {
			filters[key] = v
		}
	}

	return &models.InterpretationResult{
		Intent:     intent,
		Filters:    filters,
		Confidence: clamp01(*parsed.Confidence),
		Method:     models.MethodAI,
		Reasoning:  parsed.Reasoning,
	}, nil
}

// clamp01 bounds model-reported confidence; models can return out-of-range
// values.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// stripCodeFence removes a surrounding markdown code fence, which chat
// models add despite instructions not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
