// cmd/rag-service/app.go
package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rag-answer-service/internal/common/aws"
	"rag-answer-service/internal/common/config"
	"rag-answer-service/internal/common/database"
	"rag-answer-service/internal/common/logger"
	"rag-answer-service/internal/common/observability"
	llm "rag-answer-service/internal/workers/ai-conversation/llm-synthesis"
	qrc "rag-answer-service/internal/workers/ai-conversation/query-rag-corpus"
	ra "rag-answer-service/internal/workers/ai-conversation/rag-answer"
)

// app holds every component the commands share.
type app struct {
	cfg *config.Config
	zap *zap.Logger
	log logger.Logger
	obs *observability.Observability

	resolver     *config.Resolver
	redis        *database.RedisClient
	pg           *database.PostgresClient
	es           *database.ElasticsearchClient
	corpus       *qrc.Corpus
	orchestrator *llm.Orchestrator
	pipeline     *ra.Pipeline

	closers []func(context.Context) error
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// retryWithBackoff attempts to execute a function with exponential backoff.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// openWithRetry opens a store and pings it, retrying with backoff. A handle whose
// ping failed is closed before the next attempt.
func openWithRetry[T any](open func() (T, error), ping func(T) error, closeFn func(T) error,
	maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) (T, error) {
	var client T
	err := retryWithBackoff(func() error {
		c, err := open()
		if err != nil {
			return err
		}
		if err := ping(c); err != nil {
			if closeFn != nil {
				if cerr := closeFn(c); cerr != nil {
					log.Warn("failed to close store handle", zap.String("operation", operationName), zap.Error(cerr))
				}
			}
			return err
		}
		client = c
		return nil
	}, maxRetries, initialDelay, log, operationName)
	return client, err
}

func newApp(ctx context.Context, serviceName string) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format).With(
		zap.String("service", serviceName),
		zap.String("environment", cfg.App.Environment),
	)
	a := &app{
		cfg: cfg,
		zap: zapLog,
		log: logger.NewZapAdapter(zapLog),
	}

	shutdownTracing, err := observability.InitTracing(cfg.Tracing, serviceName)
	if err != nil {
		zapLog.Warn("tracing disabled", zap.Error(err))
	} else {
		a.closers = append(a.closers, shutdownTracing)
	}
	a.obs = observability.New(serviceName, a.log)
	a.closers = append(a.closers, func(context.Context) error { a.obs.Shutdown(); return nil })

	if err := a.connectStores(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.buildPipeline(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// connectStores opens only the stores the configured backend and cache need.
func (a *app) connectStores(ctx context.Context) error {
	cfg := a.cfg

	if cfg.Cache.Enabled {
		redis := database.NewRedis(cfg.Database.Redis)
		a.closers = append(a.closers, func(context.Context) error { return redis.Close() })
		a.redis = redis
		err := retryWithBackoff(func() error {
			return redis.Ping(ctx)
		}, 5, time.Second, a.zap, "Redis connection")
		if err != nil {
			// Caches are optional.
			a.zap.Warn("redis unavailable, caching disabled", zap.Error(err))
			a.redis = nil
		} else {
			a.zap.Info("Redis connected successfully")
		}
	}

	switch cfg.RAG.Backend {
	case qrc.BackendPostgres:
		pg, err := openWithRetry(
			func() (*database.PostgresClient, error) { return database.NewPostgres(cfg.Database.Postgres) },
			func(c *database.PostgresClient) error { return c.Ping(ctx) },
			func(c *database.PostgresClient) error { return c.Close() },
			15, 2*time.Second, a.zap, "PostgreSQL connection")
		if err != nil {
			return err
		}
		a.pg = pg
		a.closers = append(a.closers, func(context.Context) error { return pg.Close() })
		a.zap.Info("PostgreSQL connected successfully")

	case qrc.BackendElasticsearch:
		// The Elasticsearch client holds no pool of its own, so nothing to close.
		es, err := openWithRetry(
			func() (*database.ElasticsearchClient, error) {
				return database.NewElasticsearch(cfg.Database.Elasticsearch)
			},
			func(c *database.ElasticsearchClient) error { return c.Ping(ctx) },
			nil,
			15, 2*time.Second, a.zap, "Elasticsearch connection")
		if err != nil {
			return err
		}
		a.es = es
		a.zap.Info("Elasticsearch connected successfully")
	}
	return nil
}

func (a *app) buildPipeline(ctx context.Context) error {
	cfg := a.cfg
	a.resolver = config.NewResolver(cfg)

	// A missing deployment is reported per request, not at startup.
	if _, err := a.resolver.Resolve(); err != nil {
		a.zap.Warn("RAG deployment is not configured", zap.Error(err))
	}

	qcfg := qrc.LoadConfig(cfg)
	retriever, err := qrc.NewRetriever(qcfg, qrc.Backends{Elasticsearch: a.es, Postgres: a.pg})
	if err != nil {
		return err
	}
	var contextCache *qrc.ContextCache
	if qcfg.CacheEnabled && a.redis != nil {
		contextCache = qrc.NewContextCache(a.redis, qcfg.CacheTTL, a.log)
	}
	a.corpus = qrc.NewCorpus(retriever, contextCache, a.log)

	lcfg := llm.LoadConfig(cfg)
	var opts []llm.Option
	if cfg.Alerts.SNS.Enabled && cfg.Alerts.SNS.TopicARN != "" {
		sns, err := aws.NewSNSClient(ctx, cfg.Alerts.SNS.Region, cfg.Alerts.SNS.TopicARN)
		if err != nil {
			a.zap.Warn("SNS alerts disabled", zap.Error(err))
		} else {
			opts = append(opts, llm.WithAlerter(sns))
		}
	}
	a.orchestrator = llm.NewOrchestrator(lcfg, llm.NewGenAIProviders(lcfg), a.log, opts...)

	pipelineOpts := []ra.Option{ra.WithAnswerRecorder(a.obs)}
	if a.redis != nil {
		pipelineOpts = append(pipelineOpts, ra.WithAnswerCache(a.redis))
	}
	a.pipeline = ra.NewPipeline(ra.LoadConfig(cfg), a.resolver, a.corpus, a.orchestrator, a.log, pipelineOpts...)
	return nil
}

// ready reports whether the deployment resolves and the optional stores answer.
func (a *app) ready(ctx context.Context) error {
	if _, err := a.resolver.Resolve(); err != nil {
		return err
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if a.pg != nil {
		if err := a.pg.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if a.es != nil {
		if err := a.es.Ping(ctx); err != nil {
			return fmt.Errorf("elasticsearch: %w", err)
		}
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.zap.Warn("shutdown step failed", zap.Error(err))
		}
	}
	_ = a.zap.Sync()
}
