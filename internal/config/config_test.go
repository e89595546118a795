package config

import (
	"os"
	"path/filepath"
	"testing"
)

func setSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("CHARSYNC_RIOT_API_KEY", "riot-key-123")
	t.Setenv("CHARSYNC_BLIZZARD_CLIENT_ID", "client")
	t.Setenv("CHARSYNC_BLIZZARD_CLIENT_SECRET", "secret")
}

func TestLoadWithSecrets(t *testing.T) {
	setSecrets(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected config to load with secrets, got error: %v", err)
	}

	if cfg.Riot.APIKey != "riot-key-123" {
		t.Errorf("expected riot key 'riot-key-123', got '%s'", cfg.Riot.APIKey)
	}
	if cfg.Blizzard.ClientSecret != "secret" {
		t.Errorf("expected blizzard secret from env, got '%s'", cfg.Blizzard.ClientSecret)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts by default, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Riot.Throttle.Permits != 20 || cfg.Riot.Throttle.Window().Seconds() != 1 {
		t.Errorf("unexpected riot throttle %+v", cfg.Riot.Throttle)
	}
	if !cfg.Sync.FailEventOnTransient {
		t.Error("expected fail_event_on_transient by default")
	}
	if cfg.Notify.Enabled || cfg.Notify.HaltPriority != "urgent" {
		t.Errorf("unexpected notify defaults %+v", cfg.Notify)
	}
}

func TestLoadNotifyFromEnv(t *testing.T) {
	setSecrets(t)
	t.Setenv("CHARSYNC_NOTIFY_ENABLED", "true")
	t.Setenv("CHARSYNC_NOTIFY_TOPIC", "charsync-alerts")
	t.Setenv("CHARSYNC_NOTIFY_TOKEN", "tk_123")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Notify.Enabled || cfg.Notify.Topic != "charsync-alerts" || cfg.Notify.Token != "tk_123" {
		t.Errorf("expected notify settings from env, got %+v", cfg.Notify)
	}
}

func TestLoadWithoutSecrets(t *testing.T) {
	t.Setenv("CHARSYNC_RIOT_API_KEY", "")
	t.Setenv("CHARSYNC_BLIZZARD_CLIENT_ID", "")
	t.Setenv("CHARSYNC_BLIZZARD_CLIENT_SECRET", "")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error when secrets are missing")
	}
}

func TestLoadFromFile(t *testing.T) {
	setSecrets(t)
	path := filepath.Join(t.TempDir(), "charsync.yaml")
	body := []byte("database:\n  driver: memory\nblizzard:\n  enabled: false\nsync:\n  workers: 4\n  lol_match_count: 5\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "memory" || cfg.Blizzard.Enabled {
		t.Errorf("file values not applied: %+v", cfg.Database)
	}
	if cfg.Sync.Workers != 4 || cfg.Sync.LolMatchCount != 5 {
		t.Errorf("unexpected sync config %+v", cfg.Sync)
	}
}
