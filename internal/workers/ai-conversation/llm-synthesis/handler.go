// internal/workers/ai-conversation/llm-synthesis/handler.go
package llmsynthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"rag-answer-service/internal/common/config"
	apperrors "rag-answer-service/internal/common/errors"
	"rag-answer-service/internal/common/logger"
	"rag-answer-service/internal/common/metrics"
)

const (
	TaskType = "llm-synthesis"
)

type DeploymentResolver interface {
	Resolve() (*config.Deployment, error)
}

type Handler struct {
	config       *Config
	orchestrator *Orchestrator
	resolver     DeploymentResolver
	errors       *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(cfg *Config, orchestrator *Orchestrator, resolver DeploymentResolver, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		orchestrator: orchestrator,
		resolver:     resolver,
		errors:       apperrors.NewErrorHandler(l),
		logger:       l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, apperrors.NewValidationError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, apperrors.NewValidationError("question is required")
	}
	if len(input.Contexts) == 0 {
		return nil, apperrors.NewValidationError("contexts must contain at least one passage")
	}

	d, err := h.resolver.Resolve()
	if err != nil {
		return nil, err
	}

	res := h.orchestrator.Synthesize(ctx, input.Question, input.Contexts, input.Context, *d)
	if !res.OK() {
		return nil, apperrors.NewSynthesisExhaustedError(res.Attempts, res.LastErr)
	}

	attempt := res.Attempt
	return &Output{
		LLMResponse: res.Text,
		Synthesized: true,
		Attempt:     &attempt,
		Attempts:    res.Attempts,
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	code := string(apperrors.ErrCodeInternal)
	if stdErr, ok := apperrors.AsStandardError(err); ok {
		code = string(stdErr.Code)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	h.errors.HandleJobError(context.WithoutCancel(ctx), client, job, err)
}

// Execute runs the synthesis without a Zeebe job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
