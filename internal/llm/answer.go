package llm

import (
	"context"
	"fmt"
)

const (
	answerTemperature = 0.2
	answerMaxTokens   = 700
)

// answerSystemPrompt sets the formatting contract for grounded answers:
// the model may only use the provided data, counts must be exact, and
// internal concepts stay invisible to the end user.
const answerSystemPrompt = `You answer questions about a support-ticketing dataset using ONLY the data provided below.
Rules:
- Every number must be an exact count from the provided data. Never estimate or invent figures.
- Never show a raw ticket or conversation ID without its human-readable title.
- Never mention snapshots, caches, context windows, or any other internal machinery.
- Keep lines under 100 characters and answer in plain prose, with short bullet lists where helpful.
- If the provided data cannot answer the question, say so directly.`

// AnswerQuestion asks the model to answer a free-form analytical question,
// grounded on the serialized dataset context. Returns *ModelError on any
// provider or transport failure.
func (c *Client) AnswerQuestion(ctx context.Context, query, datasetContext string) (string, error) {
	userPrompt := fmt.Sprintf("DATA:\n%s\n\nQUESTION: %s", datasetContext, query)

	answer, err := c.Complete(ctx, answerSystemPrompt, userPrompt, Options{
		Temperature: answerTemperature,
		MaxTokens:   answerMaxTokens,
	})
	if err != nil {
		return "", err
	}
	return answer, nil
}
