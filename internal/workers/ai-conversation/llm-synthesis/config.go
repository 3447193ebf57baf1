// internal/workers/ai-conversation/llm-synthesis/config.go
package llmsynthesis

import (
	"time"

	"rag-answer-service/internal/common/config"
)

type Config struct {
	Regions                  []string
	Models                   []string
	SecondaryModels          []string
	VertexBaseURL            string
	GeminiBaseURL            string
	AttemptTimeout           time.Duration
	MaxOutputTokens          int32
	SecondaryMaxOutputTokens int32
	Temperature              float32
	TopP                     float32
	MaxContextChunks         int
	// Timeout bounds a whole Zeebe job, which may walk the full provider matrix.
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	s := cfg.Synthesis
	return &Config{
		Regions:                  s.Regions,
		Models:                   s.Models,
		SecondaryModels:          s.SecondaryModels,
		VertexBaseURL:            s.VertexBaseURL,
		GeminiBaseURL:            s.GeminiBaseURL,
		AttemptTimeout:           config.GetDuration(s.AttemptTimeout),
		MaxOutputTokens:          int32(s.MaxOutputTokens),
		SecondaryMaxOutputTokens: int32(s.SecondaryMaxOutputTokens),
		Temperature:              float32(s.Temperature),
		TopP:                     float32(s.TopP),
		MaxContextChunks:         s.MaxContextChunks,
		Timeout:                  config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
	}
}
