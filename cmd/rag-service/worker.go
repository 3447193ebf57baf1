// cmd/rag-service/worker.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rag-answer-service/internal/common/camunda"
	"rag-answer-service/internal/common/config"
	llm "rag-answer-service/internal/workers/ai-conversation/llm-synthesis"
	qrc "rag-answer-service/internal/workers/ai-conversation/query-rag-corpus"
	ra "rag-answer-service/internal/workers/ai-conversation/rag-answer"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Zeebe job workers",
	Long: `Connects to the Zeebe gateway and opens the job workers:
  ` + ra.TaskType + `        full question answering
  ` + qrc.TaskType + `  retrieval only
  ` + llm.TaskType + `     synthesis over supplied contexts

Health and metrics are served on server.port.`,
	RunE: runWorker,
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, "rag-worker-manager")
	if err != nil {
		return err
	}
	defer a.Close()

	zc, err := camunda.NewClient(ctx, &camunda.ClientConfig{
		GatewayAddress:         a.cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(a.cfg.Camunda.RequestTimeout),
	}, a.log)
	if err != nil {
		return fmt.Errorf("zeebe client failed: %w", err)
	}
	defer zc.Close()

	registry := camunda.NewRegistry(zc.Zeebe(), a.log)
	registry.Start(ra.TaskType, config.GetWorkerConfig(a.cfg, ra.TaskType),
		ra.NewHandler(ra.LoadConfig(a.cfg), a.pipeline, a.log))
	registry.Start(qrc.TaskType, config.GetWorkerConfig(a.cfg, qrc.TaskType),
		qrc.NewHandler(qrc.LoadConfig(a.cfg), a.corpus, a.resolver, a.log))
	registry.Start(llm.TaskType, config.GetWorkerConfig(a.cfg, llm.TaskType),
		llm.NewHandler(llm.LoadConfig(a.cfg), a.orchestrator, a.resolver, a.log))
	defer registry.Stop()
	a.zap.Info("workers registered", zap.Strings("taskTypes", registry.TaskTypes()))

	mux := http.NewServeMux()
	registerOpsRoutes(mux, a)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		a.zap.Info("Health/Metrics server listening", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.zap.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	a.zap.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.zap.Error("Error shutting down health server", zap.Error(err))
	}
	return nil
}
