package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database     DatabaseConfig     `mapstructure:"database"`
	Riot         RiotConfig         `mapstructure:"riot"`
	Blizzard     BlizzardConfig     `mapstructure:"blizzard"`
	Retry        RetryConfig        `mapstructure:"retry"`
	Sync         SyncConfig         `mapstructure:"sync"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
	Retention    RetentionConfig    `mapstructure:"retention"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Server       ServerConfig       `mapstructure:"server"`
	Notify       NotifyConfig       `mapstructure:"notify"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or memory
	Path   string `mapstructure:"path"`
}

// UpstreamConfig is shared by every game API client.
type UpstreamConfig struct {
	Enabled    bool           `mapstructure:"enabled"`
	BaseURL    string         `mapstructure:"base_url"`
	TimeoutSec int            `mapstructure:"timeout_sec"`
	Throttle   ThrottleConfig `mapstructure:"throttle"`
	Breaker    BreakerConfig  `mapstructure:"breaker"`
}

func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSec) * time.Second
}

// ThrottleConfig allows Permits calls per Window. A caller waits at most
// MaxWait for a permit before failing with backpressure.
type ThrottleConfig struct {
	Permits   int `mapstructure:"permits"`
	WindowMS  int `mapstructure:"window_ms"`
	MaxWaitMS int `mapstructure:"max_wait_ms"`
}

func (t ThrottleConfig) Window() time.Duration {
	return time.Duration(t.WindowMS) * time.Millisecond
}

func (t ThrottleConfig) MaxWait() time.Duration {
	return time.Duration(t.MaxWaitMS) * time.Millisecond
}

type BreakerConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	MinRequests    uint32  `mapstructure:"min_requests"`
	FailureRatio   float64 `mapstructure:"failure_ratio"`
	IntervalSec    int     `mapstructure:"interval_sec"`
	OpenTimeoutSec int     `mapstructure:"open_timeout_sec"`
}

type RiotConfig struct {
	UpstreamConfig `mapstructure:",squash"`
	APIKey         string `mapstructure:"api_key"`
}

type BlizzardConfig struct {
	UpstreamConfig   `mapstructure:",squash"`
	TokenURL         string `mapstructure:"token_url"`
	ClientID         string `mapstructure:"client_id"`
	ClientSecret     string `mapstructure:"client_secret"`
	ProfileNamespace string `mapstructure:"profile_namespace"`
	StaticNamespace  string `mapstructure:"static_namespace"`
	Locale           string `mapstructure:"locale"`
}

type RetryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
	DelayMS     int `mapstructure:"delay_ms"`
}

func (r RetryConfig) Delay() time.Duration {
	return time.Duration(r.DelayMS) * time.Millisecond
}

type SyncConfig struct {
	Workers              int  `mapstructure:"workers"` // 0 = unbounded
	Buffer               int  `mapstructure:"buffer"`
	InsertBatch          int  `mapstructure:"insert_batch"`
	LolMatchCount        int  `mapstructure:"lol_match_count"`
	FailEventOnTransient bool `mapstructure:"fail_event_on_transient"`
}

type SubscriptionConfig struct {
	Name            string `mapstructure:"name"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec"`
}

func (s SubscriptionConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalSec) * time.Second
}

type RetentionConfig struct {
	TTLHours int  `mapstructure:"ttl_hours"`
	KeepLast bool `mapstructure:"keep_last"`
}

func (r RetentionConfig) TTL() time.Duration {
	return time.Duration(r.TTLHours) * time.Hour
}

type LoggingConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
	Level     string `mapstructure:"level"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// NotifyConfig configures ntfy alerts. Priorities are ntfy names: min, low,
// default, high or urgent.
type NotifyConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Server          string `mapstructure:"server"`
	Topic           string `mapstructure:"topic"`
	Token           string `mapstructure:"token"` // for private topics
	Tags            string `mapstructure:"tags"`
	Priority        string `mapstructure:"priority"`         // clean runs
	FailurePriority string `mapstructure:"failure_priority"` // runs with failed entities
	HaltPriority    string `mapstructure:"halt_priority"`    // subscription halts
	TimeoutSec      int    `mapstructure:"timeout_sec"`
}

func (n NotifyConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSec) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/charsync.db")

	v.SetDefault("riot.enabled", true)
	v.SetDefault("riot.timeout_sec", 10)
	v.SetDefault("riot.throttle.permits", 20)
	v.SetDefault("riot.throttle.window_ms", 1000)
	v.SetDefault("riot.throttle.max_wait_ms", 30000)
	v.SetDefault("riot.breaker.enabled", true)
	v.SetDefault("riot.breaker.min_requests", 10)
	v.SetDefault("riot.breaker.failure_ratio", 0.6)
	v.SetDefault("riot.breaker.interval_sec", 60)
	v.SetDefault("riot.breaker.open_timeout_sec", 30)

	v.SetDefault("blizzard.enabled", true)
	v.SetDefault("blizzard.timeout_sec", 10)
	v.SetDefault("blizzard.throttle.permits", 100)
	v.SetDefault("blizzard.throttle.window_ms", 1000)
	v.SetDefault("blizzard.throttle.max_wait_ms", 30000)
	v.SetDefault("blizzard.breaker.enabled", true)
	v.SetDefault("blizzard.breaker.min_requests", 10)
	v.SetDefault("blizzard.breaker.failure_ratio", 0.6)
	v.SetDefault("blizzard.breaker.interval_sec", 60)
	v.SetDefault("blizzard.breaker.open_timeout_sec", 30)
	v.SetDefault("blizzard.locale", "en_US")

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.delay_ms", 1000)

	v.SetDefault("sync.workers", 0)
	v.SetDefault("sync.buffer", 20)
	v.SetDefault("sync.insert_batch", 10)
	v.SetDefault("sync.lol_match_count", 20)
	v.SetDefault("sync.fail_event_on_transient", true)

	v.SetDefault("subscription.name", "entity-sync")
	v.SetDefault("subscription.poll_interval_sec", 5)

	v.SetDefault("retention.ttl_hours", 24*30)
	v.SetDefault("retention.keep_last", true)

	v.SetDefault("logging.enabled", true)
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "info")

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.server", "https://ntfy.sh")
	v.SetDefault("notify.topic", "")
	v.SetDefault("notify.tags", "video_game")
	v.SetDefault("notify.priority", "default")
	v.SetDefault("notify.failure_priority", "high")
	v.SetDefault("notify.halt_priority", "urgent")
	v.SetDefault("notify.timeout_sec", 30)
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Environment variable support
	v.SetEnvPrefix("CHARSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Explicitly bind secrets to env vars
	_ = v.BindEnv("riot.api_key", "CHARSYNC_RIOT_API_KEY")
	_ = v.BindEnv("blizzard.client_id", "CHARSYNC_BLIZZARD_CLIENT_ID")
	_ = v.BindEnv("blizzard.client_secret", "CHARSYNC_BLIZZARD_CLIENT_SECRET")
	_ = v.BindEnv("notify.token", "CHARSYNC_NOTIFY_TOKEN")

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}
