// internal/workers/ai-conversation/query-rag-corpus/retriever.go
package queryragcorpus

import (
	"context"
	"fmt"

	"rag-answer-service/internal/common/config"
	"rag-answer-service/internal/common/database"
)

const (
	BackendVertex        = "vertex"
	BackendElasticsearch = "elasticsearch"
	BackendPostgres      = "postgres"
)

// Retriever fetches the raw retrieval payload for a query. The payload shape is
// backend specific and is flattened later by the normalizer.
type Retriever interface {
	Name() string
	Retrieve(ctx context.Context, d config.Deployment, queryText string) (map[string]interface{}, error)
}

// Backends carries the optional clients a retriever may need.
type Backends struct {
	Elasticsearch *database.ElasticsearchClient
	Postgres      *database.PostgresClient
}

// NewRetriever selects the configured backend.
func NewRetriever(cfg *Config, b Backends) (Retriever, error) {
	switch cfg.Backend {
	case "", BackendVertex:
		return NewVertexRetriever(cfg, nil), nil
	case BackendElasticsearch:
		if b.Elasticsearch == nil {
			return nil, fmt.Errorf("elasticsearch backend selected without a client")
		}
		index := cfg.Index
		if index == "" {
			index = b.Elasticsearch.Index
		}
		return NewElasticsearchRetriever(b.Elasticsearch.Client, index, cfg.TopK), nil
	case BackendPostgres:
		if b.Postgres == nil {
			return nil, fmt.Errorf("postgres backend selected without a client")
		}
		return NewPostgresRetriever(b.Postgres.DB, cfg.TopK), nil
	default:
		return nil, fmt.Errorf("unknown retrieval backend %q", cfg.Backend)
	}
}
