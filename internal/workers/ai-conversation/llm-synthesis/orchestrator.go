// internal/workers/ai-conversation/llm-synthesis/orchestrator.go
package llmsynthesis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"rag-answer-service/internal/common/config"
	apperrors "rag-answer-service/internal/common/errors"
	"rag-answer-service/internal/common/logger"
	"rag-answer-service/internal/common/metrics"
	"rag-answer-service/internal/models"
)

// Alerter is notified when every provider has failed.
type Alerter interface {
	Alert(ctx context.Context, subject, message string) error
}

type Orchestrator struct {
	cfg       *Config
	providers ProviderSource
	alerter   Alerter
	logger    logger.Logger
	tracer    trace.Tracer
}

type Option func(*Orchestrator)

func WithAlerter(a Alerter) Option {
	return func(o *Orchestrator) { o.alerter = a }
}

func NewOrchestrator(cfg *Config, providers ProviderSource, log logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		providers: providers,
		logger:    log.WithFields(map[string]interface{}{"component": "synthesis"}),
		tracer:    otel.Tracer("rag-answer-service/synthesis"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type attempt struct {
	provider Provider
	model    string
}

// flatten expands the matrix into the ordered list of cells. Its order is the
// priority policy.
func flatten(providers []Provider) []attempt {
	var out []attempt
	for _, p := range providers {
		for _, m := range p.Models {
			out = append(out, attempt{provider: p, model: m})
		}
	}
	return out
}

// Synthesize walks the provider matrix and returns the first non-empty
// generation. It never returns an error; an empty Result.Text means every
// cell failed and the caller should fall back.
func (o *Orchestrator) Synthesize(ctx context.Context, question string, contexts []string, callerContext string, d config.Deployment) Result {
	ctx, span := o.tracer.Start(ctx, "rag.synthesize")
	defer span.End()

	system, prompt := BuildPrompt(question, contexts, callerContext, o.cfg.MaxContextChunks)
	cells := flatten(o.providers.Providers(d))

	var res Result
	for _, cell := range cells {
		if ctx.Err() != nil {
			res.LastErr = ctx.Err()
			break
		}
		res.Attempts++

		text, err := o.try(ctx, cell, system, prompt)
		if err != nil {
			res.LastErr = err
			continue
		}

		res.Text = text
		res.Attempt = models.ProviderAttempt{
			Provider: cell.provider.Name,
			Region:   cell.provider.Region,
			Model:    cell.model,
		}
		span.SetAttributes(
			attribute.String("provider", cell.provider.Name),
			attribute.String("region", cell.provider.Region),
			attribute.String("model", cell.model),
			attribute.Int("attempts", res.Attempts),
		)
		o.logger.Info("synthesis succeeded", map[string]interface{}{
			"provider": cell.provider.Name,
			"region":   cell.provider.Region,
			"model":    cell.model,
			"attempts": res.Attempts,
			"length":   len(text),
		})
		return res
	}

	span.SetAttributes(attribute.Bool("exhausted", true), attribute.Int("attempts", res.Attempts))
	exhausted := apperrors.NewSynthesisExhaustedError(res.Attempts, res.LastErr)
	o.logger.Warn("all synthesis providers failed", map[string]interface{}{
		"attempts": res.Attempts,
		"details":  exhausted.Details,
	})
	o.alert(ctx, d, exhausted)
	return res
}

// try runs one cell under its own deadline. The deadline cancels the in-flight call.
func (o *Orchestrator) try(ctx context.Context, cell attempt, system, prompt string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.AttemptTimeout)
	defer cancel()

	start := time.Now()
	text, err := cell.provider.Generator.Generate(attemptCtx, GenerateRequest{
		Model:             cell.model,
		SystemInstruction: system,
		Prompt:            prompt,
		MaxOutputTokens:   cell.provider.MaxOutputTokens,
		Temperature:       o.cfg.Temperature,
		TopP:              o.cfg.TopP,
	})

	fields := map[string]interface{}{
		"provider":   cell.provider.Name,
		"region":     cell.provider.Region,
		"model":      cell.model,
		"durationMs": time.Since(start).Milliseconds(),
	}

	outcome := metrics.OutcomeSuccess
	switch {
	case err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		outcome = metrics.OutcomeTimeout
		err = apperrors.NewLLMTimeoutError(cell.provider.Region, cell.model)
	case err != nil:
		outcome = metrics.OutcomeError
		err = apperrors.NewLLMSynthesisFailedError(err)
	case strings.TrimSpace(text) == "":
		outcome = metrics.OutcomeEmpty
		err = apperrors.NewLLMSynthesisFailedError(fmt.Errorf("empty response from %s", cell.model))
	}
	metrics.SynthesisAttempts.WithLabelValues(cell.provider.Name, cell.provider.Region, cell.model, outcome).Inc()

	if err != nil {
		fields["outcome"] = outcome
		fields["error"] = err.Error()
		o.logger.Warn("synthesis attempt failed", fields)
		return "", err
	}
	return text, nil
}

func (o *Orchestrator) alert(ctx context.Context, d config.Deployment, exhausted *apperrors.StandardError) {
	if o.alerter == nil {
		return
	}
	// The request context may already be spent.
	alertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	msg := fmt.Sprintf("corpus %s: %s (%s)", d.CorpusName(), exhausted.Message, exhausted.Details)
	if err := o.alerter.Alert(alertCtx, "RAG synthesis exhausted", msg); err != nil {
		o.logger.Error("failed to publish synthesis alert", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
