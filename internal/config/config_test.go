package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
api_key: "test-key"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("expected default listen addr, got %s", cfg.ListenAddr)
	}
	if cfg.Store.Type != "sqlite" || cfg.Store.Path != "jobs.db" {
		t.Errorf("unexpected store defaults: %+v", cfg.Store)
	}
	if cfg.RequestTimeout != 60*time.Second {
		t.Errorf("expected default timeout 60s, got %v", cfg.RequestTimeout)
	}
	if cfg.Sync.ListLimit != 50 {
		t.Errorf("expected default list limit 50, got %d", cfg.Sync.ListLimit)
	}
	if cfg.Sync.Interval != 0 {
		t.Errorf("expected background refresh disabled by default, got %v", cfg.Sync.Interval)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("VLMRUN_API_KEY", "secret-from-env")
	path := writeConfig(t, `
api_key: "${VLMRUN_API_KEY}"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIKey != "secret-from-env" {
		t.Errorf("expected env expansion, got %q", cfg.APIKey)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
listen_addr: ":9090"
public_url: "https://scribe.example.com/"
api_key: "k"
request_timeout: "30s"
store:
  type: "redis"
  redis_addr: "localhost:6379"
  redis_db: 2
sync:
  interval: "5m"
  list_limit: 25
  min_delay: "1s"
notification:
  type: "slack"
  webhook_url: "https://hooks.slack.com/services/T/B/X"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store.Type != "redis" || cfg.Store.RedisDB != 2 {
		t.Errorf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.Sync.Interval != 5*time.Minute || cfg.Sync.ListLimit != 25 {
		t.Errorf("unexpected sync config: %+v", cfg.Sync)
	}
	if got := cfg.CallbackURL(); got != "https://scribe.example.com/api/transcription-callback" {
		t.Errorf("unexpected callback URL: %s", got)
	}
}

func TestLoad_RedisRequiresAddr(t *testing.T) {
	path := writeConfig(t, `
store:
  type: "redis"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for missing redis_addr")
	}
}

func TestLoad_UnknownStoreType(t *testing.T) {
	path := writeConfig(t, `
store:
  type: "dynamo"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for unknown store type")
	}
}

func TestLoad_NegativeListLimitRejected(t *testing.T) {
	path := writeConfig(t, `
sync:
  list_limit: -1
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for negative list_limit")
	}
}

func TestLoad_ZeroListLimitDefaults(t *testing.T) {
	path := writeConfig(t, `
sync:
  list_limit: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Sync.ListLimit != 50 {
		t.Errorf("expected zero list_limit to fall back to 50, got %d", cfg.Sync.ListLimit)
	}
}

func TestLoad_SlackRequiresWebhook(t *testing.T) {
	path := writeConfig(t, `
notification:
  type: "slack"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for missing webhook")
	}
}

func TestCallbackURL_EmptyWithoutPublicURL(t *testing.T) {
	cfg := &Config{}
	if got := cfg.CallbackURL(); got != "" {
		t.Errorf("expected empty callback URL, got %s", got)
	}
}
