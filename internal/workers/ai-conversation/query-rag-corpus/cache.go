// internal/workers/ai-conversation/query-rag-corpus/cache.go
package queryragcorpus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"rag-answer-service/internal/common/config"
	"rag-answer-service/internal/common/database"
	"rag-answer-service/internal/common/logger"
	"rag-answer-service/internal/common/metrics"
)

const contextsKeyPrefix = "rag:contexts:"

// ContextCache stores raw retrieval payloads. Failures are logged and treated
// as misses so the cache never fails a request.
type ContextCache struct {
	redis  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func NewContextCache(redis *database.RedisClient, ttl time.Duration, log logger.Logger) *ContextCache {
	return &ContextCache{redis: redis, ttl: ttl, logger: log}
}

// ContextsKey derives the cache key from the corpus and the query text.
func ContextsKey(d config.Deployment, queryText string) string {
	sum := sha256.Sum256([]byte(d.CorpusName() + "|" + queryText))
	return contextsKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *ContextCache) Get(ctx context.Context, key string) (map[string]interface{}, bool) {
	var payload map[string]interface{}
	err := c.redis.GetJSON(ctx, key, &payload)
	switch {
	case err == nil:
		metrics.CacheLookups.WithLabelValues("contexts", "hit").Inc()
		return payload, true
	case errors.Is(err, database.ErrCacheMiss):
		metrics.CacheLookups.WithLabelValues("contexts", "miss").Inc()
	default:
		metrics.CacheLookups.WithLabelValues("contexts", "error").Inc()
		c.logger.Warn("context cache read failed", map[string]interface{}{"error": err.Error()})
	}
	return nil, false
}

func (c *ContextCache) Set(ctx context.Context, key string, payload map[string]interface{}) {
	if err := c.redis.SetJSON(ctx, key, payload, c.ttl); err != nil {
		c.logger.Warn("context cache write failed", map[string]interface{}{"error": err.Error()})
	}
}
