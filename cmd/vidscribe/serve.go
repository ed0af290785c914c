package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vidscribe/vidscribe/internal/refresher"
	"github.com/vidscribe/vidscribe/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the transcription API server; blocks until SIGINT/SIGTERM.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"store", cfg.Store.Type,
		"callback_url", cfg.CallbackURL(),
		"sync_interval", cfg.Sync.Interval.String(),
	)
	if cfg.CallbackURL() == "" {
		logger.Warn("public_url not set, push callbacks disabled; jobs converge via polling only")
	}

	jobStore, err := setupStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer jobStore.Close()

	jobs := buildTracker(cfg, jobStore, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background polling catches jobs whose callback never arrives.
	if cfg.Sync.Interval > 0 {
		if cfg.APIKey == "" {
			logger.Warn("sync.interval set but api_key is empty, background refresh disabled")
		} else {
			r := refresher.New(jobs, cfg.APIKey, cfg.Sync.Interval, logger)
			go func() {
				if err := r.Run(ctx); err != nil {
					logger.Error("refresher error", "error", err)
				}
			}()
		}
	}

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.New(jobs, cfg.APIKey, logger).Handler(),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}

	logger.Info("goodbye")
	return nil
}
