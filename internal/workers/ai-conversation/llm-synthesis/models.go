// internal/workers/ai-conversation/llm-synthesis/models.go
package llmsynthesis

import "rag-answer-service/internal/models"

type Input struct {
	Question string   `json:"question"`
	Contexts []string `json:"contexts"`
	Context  string   `json:"context,omitempty"`
}

type Output struct {
	LLMResponse string                  `json:"llmResponse"`
	Synthesized bool                    `json:"synthesized"`
	Attempt     *models.ProviderAttempt `json:"attempt,omitempty"`
	Attempts    int                     `json:"attempts"`
}

// GenerateRequest is one generation call against a single model.
type GenerateRequest struct {
	Model             string
	SystemInstruction string
	Prompt            string
	MaxOutputTokens   int32
	Temperature       float32
	TopP              float32
}

// Result is the orchestrator outcome. An empty Text means no provider answered.
type Result struct {
	Text     string
	Attempt  models.ProviderAttempt
	Attempts int
	LastErr  error
}

// OK reports whether a provider produced text.
func (r Result) OK() bool {
	return r.Text != ""
}
