// Package config loads and validates service configuration with koanf.
// Values merge from defaults, YAML profiles, APP_-prefixed environment
// variables, and a handful of dedicated secret variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Defaults that double as documentation for the tuning knobs.
const (
	DefaultServerPort     = 8080
	DefaultMaxRequestSize = 1 << 20

	DefaultClientRetryMaxAttempts     = 3
	DefaultClientRetryMultiplier      = 2.0
	DefaultClientRetryJitterFactor    = 0.25
	DefaultClientCircuitMaxFailures   = 5
	DefaultClientCircuitHalfOpenLimit = 3

	DefaultTransportMaxIdleConns        = 100
	DefaultTransportMaxIdleConnsPerHost = 10
	DefaultTransportIdleConnTimeout     = 90 * time.Second

	DefaultLogFileMaxSizeMB  = 100
	DefaultLogFileMaxBackups = 3
	DefaultLogFileMaxAgeDays = 28

	// DefaultGenerationMaxTokens caps the sampled reflection; essays run
	// 250-450 words, well inside this.
	DefaultGenerationMaxTokens = 2000

	// DefaultArchiveKeepDays keeps a year of entries plus slack so the
	// attribution window never outruns retention.
	DefaultArchiveKeepDays = 400

	// DefaultAttributionWindowDays is the lookback for recently used
	// attributions passed to the generator. A full year keeps sources
	// from repeating within the 365-entry quote cycle.
	DefaultAttributionWindowDays = 365

	// DefaultMailMaxParallel bounds the recipient fan-out.
	DefaultMailMaxParallel = 4
)

// Config is the root of everything the service reads at startup.
type Config struct {
	App          AppConfig          `koanf:"app"          validate:"required"`
	Server       ServerConfig       `koanf:"server"       validate:"required"`
	Log          LogConfig          `koanf:"log"          validate:"required"`
	Telemetry    TelemetryConfig    `koanf:"telemetry"`
	Auth         AuthConfig         `koanf:"auth"`
	Client       ClientConfig       `koanf:"client"       validate:"required"`
	Storage      StorageConfig      `koanf:"storage"      validate:"required"`
	Generation   GenerationConfig   `koanf:"generation"   validate:"required"`
	Mail         MailConfig         `koanf:"mail"         validate:"required"`
	Scheduler    SchedulerConfig    `koanf:"scheduler"    validate:"required"`
	Archive      ArchiveConfig      `koanf:"archive"      validate:"required"`
	Subscription SubscriptionConfig `koanf:"subscription"`
}

// AppConfig identifies the deployment.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig governs the HTTP listener and its timeouts.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

// LogConfig selects level and format for the console sink, plus the
// optional rotating file sink.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig sizes the rotating file sink.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"       validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"   validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"    validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig points traces and metrics at an OTLP collector.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true,omitempty,url"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
}

// AuthConfig governs the gateway-claims auth on the operator surface.
type AuthConfig struct {
	Enabled       bool   `koanf:"enabled"`
	JWKSEndpoint  string `koanf:"jwks_endpoint"  validate:"required_if=Enabled true,omitempty,url"`
	Issuer        string `koanf:"issuer"         validate:"required_if=Enabled true"`
	Audience      string `koanf:"audience"       validate:"required_if=Enabled true"`
	RolesHeader   string `koanf:"roles_header"`
	SubjectHeader string `koanf:"subject_header"`
	AdminRole     string `koanf:"admin_role"`
}

// ClientConfig tunes the outbound HTTP client shared by provider adapters.
type ClientConfig struct {
	Timeout        time.Duration        `koanf:"timeout"         validate:"required,min=100ms"`
	Retry          RetryConfig          `koanf:"retry"           validate:"required"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker" validate:"required"`
	Transport      TransportConfig      `koanf:"transport"       validate:"required"`
}

// RetryConfig shapes the exponential backoff on outbound requests.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"     validate:"required,min=1,max=10"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"required,min=10ms"`
	MaxInterval     time.Duration `koanf:"max_interval"     validate:"required,min=100ms"`
	Multiplier      float64       `koanf:"multiplier"       validate:"required,min=1.1,max=10"`
	JitterFactor    float64       `koanf:"jitter_factor"    validate:"min=0,max=1"`
}

// CircuitBreakerConfig sets when the breaker opens and how it probes.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"    validate:"required,min=1"`
	Timeout       time.Duration `koanf:"timeout"         validate:"required,min=1s"`
	HalfOpenLimit int           `koanf:"half_open_limit" validate:"required,min=1"`
}

// TransportConfig sizes the connection pool under the outbound client.
type TransportConfig struct {
	MaxIdleConns        int           `koanf:"max_idle_conns"         validate:"required,min=1"`
	MaxIdleConnsPerHost int           `koanf:"max_idle_conns_per_host" validate:"required,min=1"`
	IdleConnTimeout     time.Duration `koanf:"idle_conn_timeout"      validate:"required,min=1s"`
}

// StorageConfig selects the document store and names the four documents the
// service keeps in it.
type StorageConfig struct {
	Driver         string `koanf:"driver"          validate:"required,oneof=s3 memory"`
	Bucket         string `koanf:"bucket"          validate:"required_if=Driver s3"`
	Region         string `koanf:"region"`
	Endpoint       string `koanf:"endpoint"        validate:"omitempty,url"`
	UsePathStyle   bool   `koanf:"use_path_style"`
	DatasetKey     string `koanf:"dataset_key"     validate:"required"`
	ArchiveKey     string `koanf:"archive_key"     validate:"required"`
	RecipientsKey  string `koanf:"recipients_key"  validate:"required"`
	SubscribersKey string `koanf:"subscribers_key" validate:"required"`
}

// GenerationConfig configures the reflection generator API. The key arrives
// through ANTHROPIC_API_KEY rather than a config file.
type GenerationConfig struct {
	BaseURL     string        `koanf:"base_url"    validate:"required,url"`
	Model       string        `koanf:"model"       validate:"required"`
	APIKey      string        `koanf:"api_key"`
	APIVersion  string        `koanf:"api_version" validate:"required"`
	MaxTokens   int           `koanf:"max_tokens"  validate:"required,min=1"`
	Temperature float64       `koanf:"temperature" validate:"min=0,max=2"`
	Timeout     time.Duration `koanf:"timeout"     validate:"required,min=1s"`
}

// MailConfig configures outbound email. WebsiteURL is the public base for
// confirmation and unsubscribe links.
type MailConfig struct {
	Driver      string `koanf:"driver"       validate:"required,oneof=ses noop"`
	Sender      string `koanf:"sender"       validate:"required_if=Driver ses,omitempty,email"`
	Region      string `koanf:"region"`
	WebsiteURL  string `koanf:"website_url"  validate:"omitempty,url"`
	MaxParallel int    `koanf:"max_parallel" validate:"required,min=1"`
}

// SchedulerConfig sets the daily delivery trigger.
type SchedulerConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Spec     string `koanf:"spec"     validate:"required"`
	Timezone string `koanf:"timezone" validate:"required"`
}

// ArchiveConfig sets archive retention and the attribution lookback.
type ArchiveConfig struct {
	KeepDays              int `koanf:"keep_days"               validate:"required,min=1"`
	AttributionWindowDays int `koanf:"attribution_window_days" validate:"required,min=1"`
}

// SubscriptionConfig governs the public subscription endpoints. The secret
// signs unsubscribe tokens; rotating it invalidates every issued link.
type SubscriptionConfig struct {
	Enabled bool   `koanf:"enabled"`
	Secret  string `koanf:"secret" validate:"required_if=Enabled true"`
	Source  string `koanf:"source"`
}

// secretEnvOverrides maps dedicated environment variables onto config keys.
// The APP_ mapping folds every underscore into a dot, so multi-word keys
// such as generation.api_key cannot be set through it.
var secretEnvOverrides = map[string]string{
	"ANTHROPIC_API_KEY":   "generation.api_key",
	"BUCKET_NAME":         "storage.bucket",
	"SENDER_EMAIL":        "mail.sender",
	"WEBSITE_URL":         "mail.website_url",
	"SUBSCRIPTION_SECRET": "subscription.secret",
}

// defaults describes the local profile: in-memory storage, no real mail,
// scheduler off. A fresh checkout can boot with no config file at all.
func defaults() map[string]any {
	return map[string]any{
		"app.name":        "stoic-reflections",
		"app.version":     "dev",
		"app.environment": "local",

		"server.port":             DefaultServerPort,
		"server.host":             "0.0.0.0",
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "10s",
		"server.max_request_size": DefaultMaxRequestSize,

		"log.level":            "info",
		"log.format":           "json",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/app.log",
		"log.file.max_size":    DefaultLogFileMaxSizeMB,
		"log.file.max_backups": DefaultLogFileMaxBackups,
		"log.file.max_age":     DefaultLogFileMaxAgeDays,
		"log.file.compress":    true,

		"telemetry.enabled":       false,
		"telemetry.endpoint":      "",
		"telemetry.service_name":  "stoic-reflections",
		"telemetry.sampling_rate": 1.0,

		"auth.enabled":        false,
		"auth.jwks_endpoint":  "",
		"auth.issuer":         "",
		"auth.audience":       "",
		"auth.roles_header":   "X-User-Roles",
		"auth.subject_header": "X-User-ID",
		"auth.admin_role":     "admin",

		"client.timeout":                           "30s",
		"client.retry.max_attempts":                DefaultClientRetryMaxAttempts,
		"client.retry.initial_interval":            "100ms",
		"client.retry.max_interval":                "5s",
		"client.retry.multiplier":                  DefaultClientRetryMultiplier,
		"client.retry.jitter_factor":               DefaultClientRetryJitterFactor,
		"client.circuit_breaker.max_failures":      DefaultClientCircuitMaxFailures,
		"client.circuit_breaker.timeout":           "30s",
		"client.circuit_breaker.half_open_limit":   DefaultClientCircuitHalfOpenLimit,
		"client.transport.max_idle_conns":          DefaultTransportMaxIdleConns,
		"client.transport.max_idle_conns_per_host": DefaultTransportMaxIdleConnsPerHost,
		"client.transport.idle_conn_timeout":       "90s",

		"storage.driver":          "memory",
		"storage.bucket":          "",
		"storage.region":          "",
		"storage.endpoint":        "",
		"storage.use_path_style":  false,
		"storage.dataset_key":     "config/stoic_quotes_365_days.json",
		"storage.archive_key":     "quote_history.json",
		"storage.recipients_key":  "recipients.json",
		"storage.subscribers_key": "subscribers.json",

		"generation.base_url":    "https://api.anthropic.com",
		"generation.model":       "claude-sonnet-4-5-20250929",
		"generation.api_key":     "",
		"generation.api_version": "2023-06-01",
		"generation.max_tokens":  DefaultGenerationMaxTokens,
		"generation.temperature": 1.0,
		"generation.timeout":     "25s",

		"mail.driver":       "noop",
		"mail.sender":       "",
		"mail.region":       "",
		"mail.website_url":  "",
		"mail.max_parallel": DefaultMailMaxParallel,

		"scheduler.enabled":  false,
		"scheduler.spec":     "0 7 * * *",
		"scheduler.timezone": "UTC",

		"archive.keep_days":               DefaultArchiveKeepDays,
		"archive.attribution_window_days": DefaultAttributionWindowDays,

		"subscription.enabled": false,
		"subscription.secret":  "",
		"subscription.source":  "web",
	}
}

// Load assembles the configuration for a profile. Later sources win:
// defaults, then configs/base.yaml, then configs/{profile}.yaml, then APP_
// environment variables, then the dedicated secret variables.
func Load(profile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if err := loadFileIfExists(k, "configs/base.yaml"); err != nil {
		return nil, fmt.Errorf("loading base config: %w", err)
	}

	if profile != "" {
		profilePath := fmt.Sprintf("configs/%s.yaml", profile)

		if err := loadFileIfExists(k, profilePath); err != nil {
			return nil, fmt.Errorf("loading profile config %q: %w", profile, err)
		}
	}

	if err := applyEnv(k); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// applyEnv layers APP_-prefixed variables, then the dedicated secret
// variables on top. APP_SERVER_PORT becomes server.port.
func applyEnv(k *koanf.Koanf) error {
	err := k.Load(env.Provider("APP_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "APP_")),
			"_",
			".",
		)
	}), nil)
	if err != nil {
		return fmt.Errorf("loading env vars: %w", err)
	}

	for name, key := range secretEnvOverrides {
		value, ok := os.LookupEnv(name)
		if !ok || value == "" {
			continue
		}

		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("applying env var %s: %w", name, err)
		}
	}

	return nil
}

// loadFileIfExists merges a YAML file when present. Absent files are fine;
// every deployment ships only the profiles it uses.
func loadFileIfExists(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}
