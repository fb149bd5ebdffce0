// Command gateway runs the Transcription Gateway: a dual-backend ASR HTTP
// and WebSocket service fronting the primary (CPU/beam-search) and
// accelerator (GPU/greedy) whisper backends.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"svasr/internal/config"
	"svasr/internal/gateway"
	"svasr/internal/gateway/server"
	"svasr/internal/svcrunner"
	"svasr/pkg/logger"
)

var serviceAction string

func main() {
	root := &cobra.Command{
		Use:   "gateway",
		Short: "Transcription Gateway service",
	}

	root.AddCommand(serveCmd(), warmupCmd(), versionCmd())
	root.PersistentFlags().StringVar(&serviceAction, "service", "", "system service action: install, uninstall, start, stop, restart")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway HTTP/WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger.Configure(cfg.LogLevel, cfg.LogJSON)

			return svcrunner.Run("svasr-gateway", "svasr Transcription Gateway", "Dual-backend ASR gateway", serviceAction, func(ctx context.Context) error {
				return runServe(ctx, cfg)
			})
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	tempDir := os.TempDir()

	svc := gateway.NewService(gateway.Config{
		PrimaryURL:     cfg.WhisperAPIURL,
		AcceleratorURL: os.Getenv("ACCELERATOR_API_URL"),
		HTTPTimeout:    cfg.HTTPTimeout,
		TempDir:        tempDir,
	})

	srv := server.New(svc, tempDir)

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", "addr", cfg.ListenAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return httpSrv.Shutdown(context.Background())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func warmupCmd() *cobra.Command {
	var profile string
	cmd := &cobra.Command{
		Use:   "warmup",
		Short: "Load a transcription profile's model ahead of time",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger.Configure(cfg.LogLevel, cfg.LogJSON)

			svc := gateway.NewService(gateway.Config{
				PrimaryURL:     cfg.WhisperAPIURL,
				AcceleratorURL: os.Getenv("ACCELERATOR_API_URL"),
				HTTPTimeout:    cfg.HTTPTimeout,
				TempDir:        os.TempDir(),
			})

			result := svc.Warmup(cmd.Context(), profile)
			fmt.Printf("status=%s profile=%s backend=%s load_time=%.2fs\n", result.Status, result.Profile, result.Backend, result.LoadTime)
			if result.Status != "ok" {
				return fmt.Errorf("warmup failed: %s", result.Detail)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "", "profile to warm up (default profile if empty)")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gateway version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("svasr-gateway dev")
		},
	}
}
