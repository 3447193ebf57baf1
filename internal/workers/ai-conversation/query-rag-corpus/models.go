// internal/workers/ai-conversation/query-rag-corpus/models.go
package queryragcorpus

import "rag-answer-service/internal/models"

type Input struct {
	QueryText string `json:"queryText"`
	Question  string `json:"question,omitempty"`
}

// Text returns the query, accepting the question alias.
func (i Input) Text() string {
	if i.QueryText != "" {
		return i.QueryText
	}
	return i.Question
}

// Output feeds llm-synthesis directly: Contexts matches its input field.
type Output struct {
	Contexts []string              `json:"contexts"`
	Chunks   []models.ContextChunk `json:"chunks"`
	Scores   []float64             `json:"scores"`
}
