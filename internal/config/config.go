package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the vidscribe server.
type Config struct {
	ListenAddr     string
	PublicURL      string // externally reachable base URL; empty disables push callbacks
	APIKey         string // expanded from env var by Load; fallback when no header key is sent
	APIBaseURL     string // VLM Run endpoint override, empty uses the production API
	RequestTimeout time.Duration
	Store          StoreConfig
	Sync           SyncConfig
	Notification   NotificationConfig
}

// StoreConfig selects and configures the job record store.
type StoreConfig struct {
	Type      string `yaml:"type"`       // "sqlite", "redis" or "memory"
	Path      string `yaml:"path"`       // sqlite database path
	RedisAddr string `yaml:"redis_addr"` // required if type is "redis"
	RedisDB   int    `yaml:"redis_db"`
}

// SyncConfig controls reconciliation against the remote service.
type SyncConfig struct {
	Interval  time.Duration // background refresh interval; zero disables the loop
	ListLimit int           // recent-prediction window for listing sync
	MinDelay  time.Duration // minimum gap between remote calls from the refresher
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// CallbackURL returns the full callback route URL, or empty when no public
// URL is configured.
func (c *Config) CallbackURL() string {
	if c.PublicURL == "" {
		return ""
	}
	return strings.TrimSuffix(c.PublicURL, "/") + "/api/transcription-callback"
}

// rawConfig is used for YAML unmarshaling (snake_case fields and durations
// as strings).
type rawConfig struct {
	ListenAddr     string             `yaml:"listen_addr"`
	PublicURL      string             `yaml:"public_url"`
	APIKey         string             `yaml:"api_key"`
	APIBaseURL     string             `yaml:"api_base_url"`
	RequestTimeout string             `yaml:"request_timeout"`
	Store          StoreConfig        `yaml:"store"`
	Sync           rawSyncConfig      `yaml:"sync"`
	Notification   NotificationConfig `yaml:"notification"`
}

type rawSyncConfig struct {
	Interval  string `yaml:"interval"`
	ListLimit int    `yaml:"list_limit"`
	MinDelay  string `yaml:"min_delay"`
}

// Load reads and parses the YAML config file at path, validates it, and
// returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables so secrets stay out of the file.
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	timeout := 60 * time.Second // default
	if raw.RequestTimeout != "" {
		timeout, err = time.ParseDuration(raw.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("parse request_timeout %q: %w", raw.RequestTimeout, err)
		}
	}

	var syncInterval time.Duration // default: background refresh disabled
	if raw.Sync.Interval != "" {
		syncInterval, err = time.ParseDuration(raw.Sync.Interval)
		if err != nil {
			return nil, fmt.Errorf("parse sync.interval %q: %w", raw.Sync.Interval, err)
		}
	}

	minDelay := 2 * time.Second // default
	if raw.Sync.MinDelay != "" {
		minDelay, err = time.ParseDuration(raw.Sync.MinDelay)
		if err != nil {
			return nil, fmt.Errorf("parse sync.min_delay %q: %w", raw.Sync.MinDelay, err)
		}
	}

	listLimit := raw.Sync.ListLimit
	if listLimit == 0 {
		listLimit = 50
	}

	listenAddr := raw.ListenAddr
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	storeCfg := raw.Store
	if storeCfg.Type == "" {
		storeCfg.Type = "sqlite"
	}
	if storeCfg.Type == "sqlite" && storeCfg.Path == "" {
		storeCfg.Path = "jobs.db"
	}

	cfg := &Config{
		ListenAddr:     listenAddr,
		PublicURL:      raw.PublicURL,
		APIKey:         raw.APIKey,
		APIBaseURL:     raw.APIBaseURL,
		RequestTimeout: timeout,
		Store:          storeCfg,
		Sync: SyncConfig{
			Interval:  syncInterval,
			ListLimit: listLimit,
			MinDelay:  minDelay,
		},
		Notification: raw.Notification,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.Store.Type {
	case "sqlite", "memory":
	case "redis":
		if cfg.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required when store.type is \"redis\"")
		}
	default:
		return fmt.Errorf("store.type must be \"sqlite\", \"redis\" or \"memory\", got %q", cfg.Store.Type)
	}

	if cfg.Sync.ListLimit < 0 {
		return fmt.Errorf("sync.list_limit must not be negative, got %d", cfg.Sync.ListLimit)
	}

	if cfg.Notification.Type == "slack" {
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	}

	return nil
}
