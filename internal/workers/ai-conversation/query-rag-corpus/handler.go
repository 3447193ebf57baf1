// internal/workers/ai-conversation/query-rag-corpus/handler.go
package queryragcorpus

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
	TaskType = "query-rag-corpus"
)

type DeploymentResolver interface {
	Resolve() (*config.Deployment, error)
}

type Handler struct {
	config   *Config
	corpus   *Corpus
	resolver DeploymentResolver
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(cfg *Config, corpus *Corpus, resolver DeploymentResolver, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   cfg,
		corpus:   corpus,
		resolver: resolver,
		errors:   apperrors.NewErrorHandler(l),
		logger:   l,
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
	text := strings.TrimSpace(input.Text())
	if text == "" {
		return nil, apperrors.NewValidationError("queryText is required")
	}

	d, err := h.resolver.Resolve()
	if err != nil {
		return nil, err
	}

	res, err := h.corpus.Query(ctx, *d, text)
	if err != nil {
		return nil, err
	}

	scores := res.Scores
	if scores == nil {
		scores = []float64{}
	}
	return &Output{
		Contexts: res.Texts(),
		Chunks:   res.Chunks,
		Scores:   scores,
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
