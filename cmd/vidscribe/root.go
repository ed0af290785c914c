package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vidscribe/vidscribe/internal/config"
	"github.com/vidscribe/vidscribe/internal/model"
	"github.com/vidscribe/vidscribe/internal/notifier"
	"github.com/vidscribe/vidscribe/internal/ratelimit"
	"github.com/vidscribe/vidscribe/internal/retry"
	"github.com/vidscribe/vidscribe/internal/store"
	"github.com/vidscribe/vidscribe/internal/tracker"
	"github.com/vidscribe/vidscribe/internal/vlmrun"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "vidscribe",
	Short: "Video transcription job tracker",
	Long:  "Vidscribe submits videos to VLM Run for transcription and tracks every job until its transcript lands.",
	// Default to `serve` so that `vidscribe` with no args runs the server.
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: VIDSCRIBE_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > VIDSCRIBE_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("VIDSCRIBE_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupStore(cfg *config.Config, logger *slog.Logger) (model.JobStore, error) {
	switch cfg.Store.Type {
	case "redis":
		logger.Info("using redis store", "addr", cfg.Store.RedisAddr, "db", cfg.Store.RedisDB)
		return store.NewRedisStore(context.Background(), cfg.Store.RedisAddr, cfg.Store.RedisDB)
	case "memory":
		logger.Info("using in-memory store, records will not survive restarts")
		return store.NewMemoryStore(), nil
	default:
		logger.Info("using sqlite store", "path", cfg.Store.Path)
		return store.NewSQLiteStore(cfg.Store.Path)
	}
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// clientFactory builds per-credential API clients wrapped with retries and
// rate limiting.
func clientFactory(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.ClientFactory {
	limiter := ratelimit.NewLimiter(cfg.Sync.MinDelay)
	return func(apiKey string) model.InferenceClient {
		var client model.InferenceClient = vlmrun.NewClient(cfg.APIBaseURL, apiKey, httpClient)
		client = retry.NewClient(client, 2, 5*time.Second, logger)
		client = ratelimit.NewClient(client, limiter)
		return client
	}
}

func buildTracker(cfg *config.Config, jobStore model.JobStore, logger *slog.Logger) *tracker.Tracker {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	return tracker.New(jobStore, clientFactory(cfg, httpClient, logger), tracker.Options{
		CallbackURL: cfg.CallbackURL(),
		ListLimit:   cfg.Sync.ListLimit,
		Notifier:    setupNotifier(cfg, httpClient, logger),
	}, logger)
}

// requireAPIKey returns the configured credential or an error for commands
// that always need one.
func requireAPIKey(cfg *config.Config) (string, error) {
	if cfg.APIKey == "" {
		return "", fmt.Errorf("api_key is not set in config")
	}
	return cfg.APIKey, nil
}
