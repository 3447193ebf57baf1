// internal/workers/ai-conversation/rag-answer/config.go
package raganswer

import (
	"time"

	"rag-answer-service/internal/common/config"
)

type Config struct {
	MinAnswerLength int
	CacheEnabled    bool
	CacheTTL        time.Duration
	// RequestTimeout bounds one coalesced pipeline run.
	RequestTimeout time.Duration
	AllowedOrigins []string
	MaxBodyBytes   int64
	Production     bool
	// Timeout bounds a Zeebe job.
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		MinAnswerLength: cfg.Synthesis.MinAnswerLength,
		CacheEnabled:    cfg.Cache.Enabled,
		CacheTTL:        config.GetDuration(cfg.Cache.TTL),
		RequestTimeout:  config.GetDuration(cfg.Server.RequestTimeout),
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		Production:      cfg.App.IsProduction(),
		Timeout:         config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
	}
}
