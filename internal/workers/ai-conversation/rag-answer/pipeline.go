// internal/workers/ai-conversation/rag-answer/pipeline.go
package raganswer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"rag-answer-service/internal/common/config"
	"rag-answer-service/internal/common/database"
	apperrors "rag-answer-service/internal/common/errors"
	"rag-answer-service/internal/common/logger"
	"rag-answer-service/internal/common/metrics"
	"rag-answer-service/internal/common/validation"
	"rag-answer-service/internal/models"
	"rag-answer-service/internal/rag/confidence"
	"rag-answer-service/internal/rag/fallback"
	"rag-answer-service/internal/rag/markdown"
	"rag-answer-service/internal/rag/normalize"
	"rag-answer-service/internal/rag/sources"
	llmsynthesis "rag-answer-service/internal/workers/ai-conversation/llm-synthesis"
)

const answerKeyPrefix = "rag:answer:"

type DeploymentResolver interface {
	Resolve() (*config.Deployment, error)
}

// Retrieval returns normalized contexts for a query.
type Retrieval interface {
	Query(ctx context.Context, d config.Deployment, queryText string) (normalize.Result, error)
}

// Synthesizer never fails; an empty Result text means no provider answered.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, contexts []string, callerContext string, d config.Deployment) llmsynthesis.Result
}

// AnswerRecorder receives one call per produced answer.
type AnswerRecorder interface {
	RecordAnswer(ctx context.Context, origin string)
}

type Pipeline struct {
	cfg       *Config
	resolver  DeploymentResolver
	retrieval Retrieval
	synth     Synthesizer
	validator *validation.Validator
	renderer  *markdown.Renderer
	cache     *database.RedisClient
	recorder  AnswerRecorder
	logger    logger.Logger
	tracer    trace.Tracer
	group     singleflight.Group
}

type Option func(*Pipeline)

// WithAnswerCache stores finished answers in redis for cfg.CacheTTL.
func WithAnswerCache(c *database.RedisClient) Option {
	return func(p *Pipeline) { p.cache = c }
}

func WithAnswerRecorder(r AnswerRecorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

func NewPipeline(cfg *Config, resolver DeploymentResolver, retrieval Retrieval, synth Synthesizer, log logger.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		resolver:  resolver,
		retrieval: retrieval,
		synth:     synth,
		validator: validation.MustNewValidator(),
		renderer:  markdown.NewRenderer(),
		logger:    log.WithFields(map[string]interface{}{"component": "pipeline"}),
		tracer:    otel.Tracer("rag-answer-service/pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type outcome struct {
	answer models.Answer
	origin models.AnswerOrigin
}

// Ask answers a question. Concurrent identical questions share one run; the
// shared run is bounded by cfg.RequestTimeout rather than by any single caller.
func (p *Pipeline) Ask(ctx context.Context, req AskRequest) (*models.Answer, error) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "rag.ask")
	defer span.End()

	answer, origin, err := p.ask(ctx, req)

	status := "ok"
	if err != nil {
		status = "error"
		if stdErr, ok := apperrors.AsStandardError(err); ok {
			status = strings.ToLower(string(stdErr.Code))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	} else {
		span.SetAttributes(attribute.String("origin", string(origin)))
		metrics.RAGRequestDuration.WithLabelValues(string(origin)).Observe(time.Since(start).Seconds())
	}
	metrics.RAGRequests.WithLabelValues(status).Inc()
	return answer, err
}

func (p *Pipeline) ask(ctx context.Context, req AskRequest) (*models.Answer, models.AnswerOrigin, error) {
	prompt, err := p.validator.ValidatePrompt(req.Prompt, req.Context)
	if err != nil {
		return nil, "", err
	}

	d, err := p.resolver.Resolve()
	if err != nil {
		return nil, "", err
	}

	key := answerKey(*d, prompt, req.Context)
	ch := p.group.DoChan(key, func() (interface{}, error) {
		runCtx, cancel := p.runContext(ctx)
		defer cancel()
		return p.run(runCtx, *d, key, prompt, req.Context)
	})

	select {
	case <-ctx.Done():
		return nil, "", apperrors.NewNetworkError(ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, "", r.Err
		}
		out := r.Val.(outcome)
		a := out.answer
		a.Sources = append([]models.Source(nil), out.answer.Sources...)
		return &a, out.origin, nil
	}
}

func (p *Pipeline) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if p.cfg.RequestTimeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, p.cfg.RequestTimeout)
}

func (p *Pipeline) run(ctx context.Context, d config.Deployment, key, prompt, callerContext string) (outcome, error) {
	if cached, ok := p.cachedAnswer(ctx, key); ok {
		return outcome{answer: cached, origin: models.OriginCached}, nil
	}

	res, err := p.retrieval.Query(ctx, d, prompt)
	if err != nil {
		return outcome{}, err
	}

	out := p.assemble(ctx, d, prompt, callerContext, res)
	if err := p.validator.ValidateAnswer(out.answer); err != nil {
		p.logger.Error("assembled answer failed validation", map[string]interface{}{
			"error": err.Error(),
		})
		return outcome{}, err
	}

	if p.recorder != nil {
		p.recorder.RecordAnswer(ctx, string(out.origin))
	}
	if out.origin != models.OriginEmpty {
		p.storeAnswer(ctx, key, out.answer)
	}
	return out, nil
}

func (p *Pipeline) assemble(ctx context.Context, d config.Deployment, prompt, callerContext string, res normalize.Result) outcome {
	if len(res.Chunks) == 0 {
		metrics.FallbackAnswers.WithLabelValues("no_context").Inc()
		p.logger.Warn("no contexts retrieved", map[string]interface{}{"corpus": d.CorpusName()})
		return outcome{
			answer: models.Answer{
				Text:       p.renderer.Render(fallback.NoContextMessage),
				Sources:    []models.Source{},
				Confidence: 0,
			},
			origin: models.OriginEmpty,
		}
	}

	texts := res.Texts()
	origin := models.OriginSynthesized
	syn := p.synth.Synthesize(ctx, prompt, texts, callerContext, d)
	text := strings.TrimSpace(syn.Text)

	if utf8.RuneCountInString(text) < p.cfg.MinAnswerLength {
		reason := "too_short"
		if text == "" {
			reason = "synthesis_exhausted"
		}
		metrics.FallbackAnswers.WithLabelValues(reason).Inc()
		p.logger.Info("using extractive answer", map[string]interface{}{
			"reason":   reason,
			"attempts": syn.Attempts,
			"chunks":   len(texts),
		})
		text = fallback.Format(prompt, texts)
		origin = models.OriginExtractive
	}

	answer := models.Answer{
		Text:    p.renderer.Render(text),
		Sources: sources.Deduplicate(res.Chunks),
		Confidence: confidence.Score(confidence.Input{
			ChunkCount:        len(res.Chunks),
			Scores:            res.Scores,
			AnswerText:        text,
			BackendConfidence: res.BackendConfidence,
		}),
	}
	if answer.Sources == nil {
		answer.Sources = []models.Source{}
	}
	return outcome{answer: answer, origin: origin}
}

func (p *Pipeline) cachedAnswer(ctx context.Context, key string) (models.Answer, bool) {
	if p.cache == nil || !p.cfg.CacheEnabled {
		return models.Answer{}, false
	}
	var a models.Answer
	err := p.cache.GetJSON(ctx, key, &a)
	switch {
	case err == nil:
		metrics.CacheLookups.WithLabelValues("answer", "hit").Inc()
		return a, true
	case errors.Is(err, database.ErrCacheMiss):
		metrics.CacheLookups.WithLabelValues("answer", "miss").Inc()
	default:
		metrics.CacheLookups.WithLabelValues("answer", "error").Inc()
		p.logger.Warn("answer cache read failed", map[string]interface{}{"error": err.Error()})
	}
	return models.Answer{}, false
}

func (p *Pipeline) storeAnswer(ctx context.Context, key string, a models.Answer) {
	if p.cache == nil || !p.cfg.CacheEnabled {
		return
	}
	if err := p.cache.SetJSON(ctx, key, a, p.cfg.CacheTTL); err != nil {
		p.logger.Warn("answer cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

// answerKey identifies a question against a corpus.
func answerKey(d config.Deployment, prompt, callerContext string) string {
	sum := sha256.Sum256([]byte(d.CorpusName() + "|" + prompt + "|" + callerContext))
	return answerKeyPrefix + hex.EncodeToString(sum[:])
}
