// internal/workers/ai-conversation/query-rag-corpus/corpus.go
package queryragcorpus

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rag-answer-service/internal/common/config"
	"rag-answer-service/internal/common/logger"
	"rag-answer-service/internal/common/metrics"
	"rag-answer-service/internal/rag/normalize"
)

// Corpus retrieves and normalizes contexts, consulting the cache first when one is set.
type Corpus struct {
	retriever Retriever
	cache     *ContextCache
	logger    logger.Logger
	tracer    trace.Tracer
}

func NewCorpus(retriever Retriever, cache *ContextCache, log logger.Logger) *Corpus {
	return &Corpus{
		retriever: retriever,
		cache:     cache,
		logger:    log.WithFields(map[string]interface{}{"backend": retriever.Name()}),
		tracer:    otel.Tracer("rag-answer-service/retrieval"),
	}
}

func (c *Corpus) Query(ctx context.Context, d config.Deployment, queryText string) (normalize.Result, error) {
	ctx, span := c.tracer.Start(ctx, "rag.retrieve", trace.WithAttributes(
		attribute.String("backend", c.retriever.Name()),
		attribute.String("corpus", d.CorpusName()),
	))
	defer span.End()

	var key string
	if c.cache != nil {
		key = ContextsKey(d, queryText)
		if payload, ok := c.cache.Get(ctx, key); ok {
			span.SetAttributes(attribute.Bool("cached", true))
			return normalize.Normalize(payload), nil
		}
	}

	start := time.Now()
	payload, err := c.retriever.Retrieve(ctx, d, queryText)
	metrics.RetrievalDuration.WithLabelValues(c.retriever.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		c.logger.Error("retrieval failed", map[string]interface{}{
			"error":      err.Error(),
			"durationMs": time.Since(start).Milliseconds(),
		})
		return normalize.Result{}, err
	}

	res := normalize.Normalize(payload)
	span.SetAttributes(attribute.Int("chunks", len(res.Chunks)))
	c.logger.Info("retrieved contexts", map[string]interface{}{
		"chunks":     len(res.Chunks),
		"durationMs": time.Since(start).Milliseconds(),
	})

	if c.cache != nil && len(res.Chunks) > 0 {
		c.cache.Set(ctx, key, payload)
	}
	return res, nil
}
