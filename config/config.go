package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Field sets understood by the waitlist pipeline
const (
	FieldSetBasic        = "basic"
	FieldSetProfessional = "professional"
)

// DefaultEventStartsAt is the kickoff of the Colombo weekend
const DefaultEventStartsAt = "2025-12-05T00:00:00+05:30"

// Config holds all application configuration
//
//nolint:govet // Field alignment optimization would reduce readability
type Config struct {
	Server        ServerConfig
	Waitlist      WaitlistConfig
	Event         EventConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
	Profiling     ProfilingConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	AppEnv         string
	AllowedOrigins []string
}

type WaitlistConfig struct {
	EndpointURL    string
	FieldSet       string
	TimeoutSeconds int
	StrictResponse bool
	// Optional hook called after each new registration
	NotifyURL string
	// Per-IP limit on POST /waitlist
	RateLimitPerMinute int
	RateLimitBurst     int
}

// Timeout returns the per-submission timeout
func (w WaitlistConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
}

type EventConfig struct {
	Name     string
	StartsAt time.Time
}

type LoggingConfig struct {
	Level string
	Dir   string
}

type ObservabilityConfig struct {
	ExporterEndpoint  string
	ServiceName       string
	ServiceNamespace  string
	ServiceVersion    string
	ServiceInstanceID string
}

type ProfilingConfig struct {
	Enabled               bool
	Endpoint              string
	AppName               string
	SampleTypes           string
	UploadIntervalSeconds int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("PORT", "8081")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("ALLOWED_CORS_ORIGINS", "https://swcolombo.com,https://www.swcolombo.com")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DIR", "")
	v.SetDefault("WAITLIST_FIELD_SET", FieldSetProfessional)
	v.SetDefault("WAITLIST_TIMEOUT_SECONDS", 10)
	v.SetDefault("WAITLIST_STRICT_RESPONSE", false)
	v.SetDefault("WAITLIST_RATE_LIMIT_PER_MINUTE", 10)
	v.SetDefault("WAITLIST_RATE_LIMIT_BURST", 5)
	v.SetDefault("EVENT_NAME", "Techstars Startup Weekend Colombo")
	v.SetDefault("EVENT_STARTS_AT", DefaultEventStartsAt)
	v.SetDefault("O11Y_EXPORTER_ENDPOINT", "")
	v.SetDefault("O11Y_BE_SERVICE_NAME", "waitlist-api")
	v.SetDefault("O11Y_SERVICE_NAMESPACE", "swcolombo")
	v.SetDefault("O11Y_BE_SERVICE_VERSION", "1.0.0")
	v.SetDefault("O11Y_PROFILING_ENABLED", false)
	v.SetDefault("O11Y_PROFILING_APP_NAME", "waitlist-api")
	v.SetDefault("O11Y_PROFILING_SAMPLE_TYPES", "cpu,alloc_space,goroutines")
	v.SetDefault("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS", 15)

	// Automatically read environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	_ = v.ReadInConfig() //nolint:errcheck // Ignore error if .env file doesn't exist

	// The site used to read the endpoint from NEXT_PUBLIC_GSHEET_ENDPOINT
	endpoint := strings.TrimSpace(v.GetString("WAITLIST_ENDPOINT"))
	if endpoint == "" {
		endpoint = strings.TrimSpace(v.GetString("NEXT_PUBLIC_GSHEET_ENDPOINT"))
	}

	startsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(v.GetString("EVENT_STARTS_AT")))
	if err != nil {
		return nil, fmt.Errorf("EVENT_STARTS_AT must be an RFC 3339 timestamp: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			GinMode:        v.GetString("GIN_MODE"),
			AppEnv:         v.GetString("APP_ENV"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_CORS_ORIGINS")),
		},
		Waitlist: WaitlistConfig{
			EndpointURL:        endpoint,
			FieldSet:           strings.ToLower(strings.TrimSpace(v.GetString("WAITLIST_FIELD_SET"))),
			TimeoutSeconds:     v.GetInt("WAITLIST_TIMEOUT_SECONDS"),
			StrictResponse:     v.GetBool("WAITLIST_STRICT_RESPONSE"),
			NotifyURL:          strings.TrimSpace(v.GetString("WAITLIST_NOTIFY_URL")),
			RateLimitPerMinute: v.GetInt("WAITLIST_RATE_LIMIT_PER_MINUTE"),
			RateLimitBurst:     v.GetInt("WAITLIST_RATE_LIMIT_BURST"),
		},
		Event: EventConfig{
			Name:     v.GetString("EVENT_NAME"),
			StartsAt: startsAt,
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
			Dir:   v.GetString("LOG_DIR"),
		},
		Observability: ObservabilityConfig{
			ExporterEndpoint:  v.GetString("O11Y_EXPORTER_ENDPOINT"),
			ServiceName:       v.GetString("O11Y_BE_SERVICE_NAME"),
			ServiceNamespace:  v.GetString("O11Y_SERVICE_NAMESPACE"),
			ServiceVersion:    v.GetString("O11Y_BE_SERVICE_VERSION"),
			ServiceInstanceID: v.GetString("SERVICE_INSTANCE_ID"),
		},
		Profiling: ProfilingConfig{
			Enabled:               v.GetBool("O11Y_PROFILING_ENABLED"),
			Endpoint:              v.GetString("O11Y_PROFILING_ENDPOINT"),
			AppName:               v.GetString("O11Y_PROFILING_APP_NAME"),
			SampleTypes:           v.GetString("O11Y_PROFILING_SAMPLE_TYPES"),
			UploadIntervalSeconds: v.GetInt("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// splitList parses a comma-separated list, dropping blanks
func splitList(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Validate checks that configuration values are well formed.
// A missing waitlist endpoint is not an error here: submissions report it.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_CORS_ORIGINS is required")
	}

	switch c.Waitlist.FieldSet {
	case FieldSetBasic, FieldSetProfessional:
	default:
		return fmt.Errorf("WAITLIST_FIELD_SET must be %q or %q, got %q", FieldSetBasic, FieldSetProfessional, c.Waitlist.FieldSet)
	}
	if c.Waitlist.TimeoutSeconds <= 0 {
		return fmt.Errorf("WAITLIST_TIMEOUT_SECONDS must be positive")
	}
	if c.Waitlist.RateLimitPerMinute <= 0 || c.Waitlist.RateLimitBurst <= 0 {
		return fmt.Errorf("WAITLIST_RATE_LIMIT_PER_MINUTE and WAITLIST_RATE_LIMIT_BURST must be positive")
	}

	if c.Profiling.Enabled && c.Profiling.Endpoint == "" {
		return fmt.Errorf("O11Y_PROFILING_ENDPOINT is required when profiling is enabled")
	}

	return nil
}

// WaitlistConfigured reports whether submissions have somewhere to go
func (c *Config) WaitlistConfigured() bool {
	return c.Waitlist.EndpointURL != ""
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.GinMode == "debug"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.AppEnv == "production"
}
