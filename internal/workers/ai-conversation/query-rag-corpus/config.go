// internal/workers/ai-conversation/query-rag-corpus/config.go
package queryragcorpus

import (
	"time"

	"rag-answer-service/internal/common/config"
)

type Config struct {
	Backend string
	TopK    int
	// APIEndpoint overrides the regional Vertex AI host.
	APIEndpoint  string
	Index        string
	CacheEnabled bool
	CacheTTL     time.Duration
	Timeout      time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Backend:      cfg.RAG.Backend,
		TopK:         cfg.RAG.TopK,
		APIEndpoint:  cfg.RAG.APIEndpoint,
		Index:        cfg.Database.Elasticsearch.Index,
		CacheEnabled: cfg.Cache.Enabled,
		CacheTTL:     config.GetDuration(cfg.Cache.TTL),
		Timeout:      config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
	}
}
