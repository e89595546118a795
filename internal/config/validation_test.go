package config

import (
	"errors"
	"strings"
	"testing"
)

func validConfig() Config {
	up := UpstreamConfig{
		Enabled:    true,
		TimeoutSec: 10,
		Throttle:   ThrottleConfig{Permits: 20, WindowMS: 1000, MaxWaitMS: 1000},
		Breaker:    BreakerConfig{Enabled: true, FailureRatio: 0.5},
	}
	return Config{
		Database:     DatabaseConfig{Driver: "sqlite", Path: "data/test.db"},
		Riot:         RiotConfig{UpstreamConfig: up, APIKey: "key"},
		Blizzard:     BlizzardConfig{UpstreamConfig: up, ClientID: "id", ClientSecret: "secret"},
		Retry:        RetryConfig{MaxAttempts: 3, DelayMS: 100},
		Sync:         SyncConfig{Buffer: 20, InsertBatch: 10, LolMatchCount: 20},
		Subscription: SubscriptionConfig{Name: "entity-sync", PollIntervalSec: 5},
		Retention:    RetentionConfig{TTLHours: 24},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected no error for valid config, got: %v", err)
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "postgres"
	cfg.Riot.APIKey = ""
	cfg.Blizzard.Throttle.Permits = 0
	cfg.Retry.MaxAttempts = 0

	err := cfg.Validate()
	var verrs *ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs.Problems) != 4 {
		t.Errorf("expected 4 problems, got %d: %v", len(verrs.Problems), verrs.Problems)
	}

	msg := err.Error()
	for _, want := range []string{"database.driver", "riot.api_key", "blizzard.throttle.permits", "retry.max_attempts"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected error to mention %q, got: %s", want, msg)
		}
	}
}

func TestValidate_DisabledUpstreamNeedsNoSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Blizzard.Enabled = false
	cfg.Blizzard.ClientID = ""
	cfg.Blizzard.ClientSecret = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected disabled upstream to skip checks, got: %v", err)
	}

	cfg.Riot.Enabled = false
	if err := cfg.Validate(); err == nil {
		t.Error("expected error with every upstream disabled")
	}
}

func TestValidate_WaitBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Retry.DelayMS = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected zero retry delay to be accepted, got: %v", err)
	}

	cfg.Riot.Throttle.MaxWaitMS = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected an unbounded throttle wait to be rejected")
	}
	if !strings.Contains(err.Error(), "riot.throttle.max_wait_ms") {
		t.Errorf("expected error to mention riot.throttle.max_wait_ms, got: %s", err)
	}
}

func TestValidate_Notify(t *testing.T) {
	cfg := validConfig()
	cfg.Notify = NotifyConfig{Enabled: true, Server: "https://ntfy.sh", Priority: "default", FailurePriority: "loud", HaltPriority: "urgent"}

	err := cfg.Validate()
	var verrs *ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs.Problems) != 2 {
		t.Errorf("expected 2 problems, got %d: %v", len(verrs.Problems), verrs.Problems)
	}
	for _, want := range []string{"notify.topic", "notify.failure_priority"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %q, got: %s", want, err)
		}
	}

	cfg.Notify = NotifyConfig{Enabled: false, Priority: "loud"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected disabled notifications to skip checks, got: %v", err)
	}
}
