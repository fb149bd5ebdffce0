// Command ingest runs the Ingest Orchestrator: unified file-upload and
// live-stream intake, session persistence, and pipeline job submission.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"svasr/internal/config"
	"svasr/internal/ingest"
	"svasr/internal/ingest/audio"
	"svasr/internal/ingest/client"
	"svasr/internal/ingest/server"
	"svasr/internal/ingest/session"
	"svasr/internal/pipeline/contextprofiles"
	"svasr/internal/svcrunner"
	"svasr/pkg/logger"
)

var serviceAction string

func main() {
	root := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest Orchestrator service",
	}

	root.AddCommand(serveCmd(), versionCmd())
	root.PersistentFlags().StringVar(&serviceAction, "service", "", "system service action: install, uninstall, start, stop, restart")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ingest orchestrator HTTP/WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger.Configure(cfg.LogLevel, cfg.LogJSON)

			return svcrunner.Run("svasr-ingest", "svasr Ingest Orchestrator", "Session ingest and job submission", serviceAction, func(ctx context.Context) error {
				return runServe(ctx, cfg)
			})
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	pipelineURL := os.Getenv("PIPELINE_RUNNER_URL")
	if pipelineURL == "" {
		pipelineURL = "http://localhost:8001"
	}

	canon := audio.NewCanonicalizer(os.TempDir())
	sessions := session.NewStore(cfg.SessionsDir)
	gwClient := client.NewGatewayClient(cfg.WhisperAPIURL, cfg.HTTPTimeout)
	plClient := client.NewPipelineClient(pipelineURL, cfg.HTTPTimeout)
	profiles := contextprofiles.NewRegistry(cfg.ContextProfilesPath)

	svc := ingest.NewService(canon, sessions, gwClient, plClient)
	srv := server.New(svc, sessions, profiles)

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ingest orchestrator listening", "addr", cfg.ListenAddr)
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

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ingest orchestrator version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("svasr-ingest dev")
		},
	}
}
