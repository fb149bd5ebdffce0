// Command pipeline runs the Pipeline Runner: a bounded-concurrency job
// queue that carries ASR segments through retry, diarization, language
// detection, text processing, PII flagging, and summary stages.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"svasr/internal/config"
	"svasr/internal/llm"
	"svasr/internal/pipeline"
	"svasr/internal/pipeline/contextprofiles"
	"svasr/internal/pipeline/diarizer"
	"svasr/internal/pipeline/gatewayclient"
	"svasr/internal/pipeline/jobstore"
	"svasr/internal/pipeline/queue"
	"svasr/internal/pipeline/server"
	"svasr/internal/svcrunner"
	"svasr/pkg/logger"
)

var serviceAction string

func main() {
	root := &cobra.Command{
		Use:   "pipeline",
		Short: "Pipeline Runner service",
	}

	root.AddCommand(serveCmd(), migrateCmd(), versionCmd())
	root.PersistentFlags().StringVar(&serviceAction, "service", "", "system service action: install, uninstall, start, stop, restart")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline runner HTTP server and job dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger.Configure(cfg.LogLevel, cfg.LogJSON)

			return svcrunner.Run("svasr-pipeline", "svasr Pipeline Runner", "Transcript enrichment pipeline", serviceAction, func(ctx context.Context) error {
				return runServe(ctx, cfg)
			})
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	store, err := jobstore.Open(cfg.JobsDBPath)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}

	q := queue.New(cfg.MaxConcurrentJobs)
	defer q.Shutdown()

	profiles := contextprofiles.NewRegistry(cfg.ContextProfilesPath)

	gwClient := gatewayclient.New(cfg.WhisperAPIURL, cfg.HTTPTimeout, cfg.HTTPRetries, cfg.HTTPRetryBackoff)

	var d diarizer.Diarizer = diarizer.NoOp{}
	if cfg.DiarizerURL != "" {
		d = diarizer.NewHTTPDiarizer(cfg.DiarizerURL, cfg.HTTPTimeout)
	}

	var llmSvc *llm.Service
	if cfg.LLMURL != "" {
		llmSvc = llm.NewService(cfg.LLMURL, os.Getenv("LLM_API_KEY"))
	}

	runner := pipeline.New(pipeline.Config{
		RetryEnabled:          cfg.FeatureRetry,
		RetryBeamSize:         cfg.RetryBeamSize,
		RetryLargeEnabled:     cfg.FeatureRetryLarge,
		LanguageDetectEnabled: cfg.FeatureLangDetect,
		TextProcessingEnabled: cfg.FeatureTextProcessing,
		CasingProfile:         cfg.CasingProfile,
		PIIEnabled:            cfg.FeaturePII,
		SummaryEnabled:        cfg.FeatureSummary,
		DiarizationEnabled:    cfg.FeatureDiarization,
		LLMModel:              cfg.LLMModel,
		SessionsDir:           cfg.SessionsDir,
	}, store, q, profiles, gwClient, d, llmSvc)

	srv := server.New(runner, store)

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("pipeline runner listening", "addr", cfg.ListenAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run the job store schema migration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			_, err := jobstore.Open(cfg.JobsDBPath)
			if err != nil {
				return err
			}
			fmt.Println("migration complete")
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pipeline runner version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("svasr-pipeline dev")
		},
	}
}
