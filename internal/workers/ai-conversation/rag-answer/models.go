// internal/workers/ai-conversation/rag-answer/models.go
package raganswer

import (
	"encoding/json"
	"strings"

	"rag-answer-service/internal/models"
)

// AskRequest is a validated-shape question. Context is optional caller supplied text.
type AskRequest struct {
	Prompt  string
	Context string
}

// Input is the HTTP body and the Zeebe job payload. It accepts {prompt},
// {query} and either of them wrapped under data.
type Input struct {
	Prompt  string          `json:"prompt"`
	Query   string          `json:"query"`
	Context json.RawMessage `json:"context,omitempty"`
	Data    *Input          `json:"data,omitempty"`
}

func (b *Input) Request() AskRequest {
	if b.Prompt == "" && b.Query == "" && b.Data != nil {
		inner := b.Data.Request()
		if inner.Context == "" {
			inner.Context = rawContext(b.Context)
		}
		return inner
	}
	prompt := b.Prompt
	if prompt == "" {
		prompt = b.Query
	}
	return AskRequest{Prompt: prompt, Context: rawContext(b.Context)}
}

// rawContext keeps string contexts as is and passes structured ones through as JSON text.
func rawContext(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(raw)
}

type Output struct {
	Answer models.Answer `json:"answer"`
}
