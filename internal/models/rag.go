// internal/models/rag.go
package models

// Query is the validated question text.
type Query struct {
	Text string `json:"text"`
}

// ContextChunk is one retrieved passage. Score is nil when the backend reported none.
type ContextChunk struct {
	Text      string   `json:"text"`
	Score     *float64 `json:"score,omitempty"`
	SourceURI string   `json:"sourceUri,omitempty"`
	Title     string   `json:"title,omitempty"`
}

// Source is a deduplicated citation.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// ProviderAttempt is one (region, model) cell of the synthesis matrix.
// Region is empty for providers that are not regional.
type ProviderAttempt struct {
	Provider string `json:"provider"`
	Region   string `json:"region,omitempty"`
	Model    string `json:"model"`
}

// Answer is the terminal artifact returned to callers.
type Answer struct {
	Text       string   `json:"text"`
	Sources    []Source `json:"sources"`
	Confidence float64  `json:"confidence"`
}

// AnswerOrigin records how the answer text was produced.
type AnswerOrigin string

const (
	OriginSynthesized AnswerOrigin = "synthesized"
	OriginExtractive  AnswerOrigin = "extractive"
	OriginEmpty       AnswerOrigin = "empty"
	OriginCached      AnswerOrigin = "cached"
)
