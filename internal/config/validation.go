package config

import (
	"fmt"
	"strings"
)

// ValidationErrors collects all validation errors
type ValidationErrors struct {
	Problems []string
}

func (e *ValidationErrors) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// HasErrors returns true if any validation errors exist
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Problems) > 0
}

// Error formats all validation errors into a clear message
func (e *ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, p := range e.Problems {
		sb.WriteString(fmt.Sprintf("  - %s\n", p))
	}
	return sb.String()
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			errs.add("database.path is required for the sqlite driver")
		}
	case "memory":
	default:
		errs.add("database.driver must be sqlite or memory, got %q", c.Database.Driver)
	}

	if !c.Riot.Enabled && !c.Blizzard.Enabled {
		errs.add("at least one of riot.enabled or blizzard.enabled must be set")
	}
	if c.Riot.Enabled {
		if c.Riot.APIKey == "" {
			errs.add("riot.api_key is required (set CHARSYNC_RIOT_API_KEY env var)")
		}
		validateUpstream(errs, "riot", c.Riot.UpstreamConfig)
	}
	if c.Blizzard.Enabled {
		if c.Blizzard.ClientID == "" || c.Blizzard.ClientSecret == "" {
			errs.add("blizzard.client_id and blizzard.client_secret are required (set CHARSYNC_BLIZZARD_CLIENT_ID and CHARSYNC_BLIZZARD_CLIENT_SECRET)")
		}
		validateUpstream(errs, "blizzard", c.Blizzard.UpstreamConfig)
	}

	if c.Retry.MaxAttempts < 1 {
		errs.add("retry.max_attempts must be >= 1")
	}
	if c.Retry.DelayMS < 0 {
		errs.add("retry.delay_ms must be >= 0")
	}

	if c.Sync.Workers < 0 {
		errs.add("sync.workers must be >= 0")
	}
	if c.Sync.Buffer < 1 {
		errs.add("sync.buffer must be >= 1")
	}
	if c.Sync.InsertBatch < 1 {
		errs.add("sync.insert_batch must be >= 1")
	}
	if c.Sync.LolMatchCount < 1 || c.Sync.LolMatchCount > 100 {
		errs.add("sync.lol_match_count must be between 1 and 100")
	}

	if c.Subscription.Name == "" {
		errs.add("subscription.name is required")
	}
	if c.Subscription.PollIntervalSec < 1 {
		errs.add("subscription.poll_interval_sec must be >= 1")
	}
	if c.Retention.TTLHours < 1 {
		errs.add("retention.ttl_hours must be >= 1")
	}

	if c.Notify.Enabled {
		if c.Notify.Topic == "" {
			errs.add("notify.topic is required when notify.enabled is set")
		}
		if c.Notify.Server == "" {
			errs.add("notify.server is required when notify.enabled is set")
		}
		for key, p := range map[string]string{
			"notify.priority":         c.Notify.Priority,
			"notify.failure_priority": c.Notify.FailurePriority,
			"notify.halt_priority":    c.Notify.HaltPriority,
		} {
			if !ntfyPriorities[p] {
				errs.add("%s must be one of min, low, default, high, urgent, got %q", key, p)
			}
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

var ntfyPriorities = map[string]bool{
	"min": true, "low": true, "default": true, "high": true, "urgent": true,
}

func validateUpstream(errs *ValidationErrors, name string, u UpstreamConfig) {
	if u.TimeoutSec < 1 {
		errs.add("%s.timeout_sec must be >= 1", name)
	}
	if u.Throttle.Permits < 1 {
		errs.add("%s.throttle.permits must be >= 1", name)
	}
	if u.Throttle.WindowMS < 1 {
		errs.add("%s.throttle.window_ms must be >= 1", name)
	}
	if u.Throttle.MaxWaitMS < 1 {
		errs.add("%s.throttle.max_wait_ms must be >= 1", name)
	}
	if u.Breaker.Enabled && (u.Breaker.FailureRatio <= 0 || u.Breaker.FailureRatio > 1) {
		errs.add("%s.breaker.failure_ratio must be in (0, 1]", name)
	}
}
