package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/stwalsh4118/propsearch/internal/endpoint"
	"github.com/stwalsh4118/propsearch/internal/search"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Platform PlatformConfig
	Upstream UpstreamConfig
	Fixture  FixtureConfig
	Search   SearchConfig
	Database DatabaseConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// PlatformConfig describes the client platform the endpoint resolver targets.
type PlatformConfig struct {
	OS         endpoint.OS
	IsEmulator bool
	DevHost    string
	Port       int
}

// UpstreamConfig holds settings for the upstream property search service.
type UpstreamConfig struct {
	// BaseURL overrides endpoint resolution when set.
	BaseURL            string
	Timeout            time.Duration
	RequestsPerMinute  int
	Burst              int
	RequireCredentials bool
	Credentials        search.Credentials
}

// FixtureConfig holds settings for the mock fixture path.
type FixtureConfig struct {
	// Path replaces the embedded fixture when set.
	Path  string
	Delay time.Duration
}

// SearchConfig holds search pipeline settings.
type SearchConfig struct {
	DefaultMaxPriceLakhs float64
	SessionTTL           time.Duration
}

// DatabaseConfig holds PostgreSQL connection configuration for search history.
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	PoolMin  int
	PoolMax  int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// Load reads configuration from the environment. Variables in envFiles (".env"
// by default) are loaded first without overriding the real environment; a
// missing file is not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	v := viper.New()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("PLATFORM_OS", "web")
	v.SetDefault("PLATFORM_EMULATOR", false)
	v.SetDefault("UPSTREAM_PORT", endpoint.DefaultPort)
	v.SetDefault("UPSTREAM_TIMEOUT", "30s")
	v.SetDefault("UPSTREAM_RPM", 60)
	v.SetDefault("UPSTREAM_BURST", 5)
	v.SetDefault("UPSTREAM_REQUIRE_CREDENTIALS", false)
	v.SetDefault("FIXTURE_DELAY", "1s")
	v.SetDefault("DEFAULT_MAX_PRICE_LAKHS", search.DefaultMaxPriceLakhs)
	v.SetDefault("SESSION_TTL", "30m")
	v.SetDefault("DB_ENABLED", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "propsearch")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_POOL_MIN", 1)
	v.SetDefault("DB_POOL_MAX", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:8081,http://localhost:19006")

	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Platform: PlatformConfig{
			OS:         endpoint.ParseOS(v.GetString("PLATFORM_OS")),
			IsEmulator: v.GetBool("PLATFORM_EMULATOR"),
			DevHost:    strings.TrimSpace(v.GetString("DEV_HOST")),
			Port:       v.GetInt("UPSTREAM_PORT"),
		},
		Upstream: UpstreamConfig{
			BaseURL:            strings.TrimSpace(v.GetString("UPSTREAM_BASE_URL")),
			Timeout:            v.GetDuration("UPSTREAM_TIMEOUT"),
			RequestsPerMinute:  v.GetInt("UPSTREAM_RPM"),
			Burst:              v.GetInt("UPSTREAM_BURST"),
			RequireCredentials: v.GetBool("UPSTREAM_REQUIRE_CREDENTIALS"),
			Credentials: search.Credentials{
				FirecrawlAPIKey: v.GetString("FIRECRAWL_API_KEY"),
				OpenAIAPIKey:    v.GetString("OPENAI_API_KEY"),
				ModelID:         v.GetString("MODEL_ID"),
			},
		},
		Fixture: FixtureConfig{
			Path:  v.GetString("FIXTURE_PATH"),
			Delay: v.GetDuration("FIXTURE_DELAY"),
		},
		Search: SearchConfig{
			DefaultMaxPriceLakhs: v.GetFloat64("DEFAULT_MAX_PRICE_LAKHS"),
			SessionTTL:           v.GetDuration("SESSION_TTL"),
		},
		Database: DatabaseConfig{
			Enabled:  v.GetBool("DB_ENABLED"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Upstream.BaseURL == "" {
		if endpoint.RequiresDevHost(c.PlatformInfo()) && c.Platform.DevHost == "" {
			return fmt.Errorf("DEV_HOST is required for a physical android device")
		}
		if c.Platform.Port < 1 || c.Platform.Port > 65535 {
			return fmt.Errorf("UPSTREAM_PORT must be between 1 and 65535")
		}
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	if c.Upstream.RequestsPerMinute < 1 {
		return fmt.Errorf("UPSTREAM_RPM must be at least 1")
	}
	if c.Upstream.Burst < 1 {
		return fmt.Errorf("UPSTREAM_BURST must be at least 1")
	}
	if c.Upstream.RequireCredentials && !c.Upstream.Credentials.Complete() {
		return fmt.Errorf("FIRECRAWL_API_KEY, OPENAI_API_KEY and MODEL_ID are required when UPSTREAM_REQUIRE_CREDENTIALS is set")
	}

	if c.Fixture.Delay < 0 {
		return fmt.Errorf("FIXTURE_DELAY must be non-negative")
	}
	if c.Search.DefaultMaxPriceLakhs <= 0 {
		return fmt.Errorf("DEFAULT_MAX_PRICE_LAKHS must be positive")
	}
	if c.Search.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}

	if c.Database.Enabled {
		if err := c.Database.validate(); err != nil {
			return err
		}
	}

	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	return nil
}

func (d DatabaseConfig) validate() error {
	if d.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if d.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if d.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if d.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if d.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if d.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if d.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if d.PoolMin > d.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}
	return nil
}

// PlatformInfo returns the platform facts for endpoint resolution.
func (c *Config) PlatformInfo() endpoint.PlatformInfo {
	return endpoint.PlatformInfo{
		OS:         c.Platform.OS,
		IsEmulator: c.Platform.IsEmulator,
		DevHost:    c.Platform.DevHost,
		Port:       c.Platform.Port,
	}
}

// BaseURL returns the upstream base URL: UPSTREAM_BASE_URL when set, otherwise
// the address resolved for the configured platform.
func (c *Config) BaseURL() string {
	if c.Upstream.BaseURL != "" {
		return strings.TrimRight(c.Upstream.BaseURL, "/")
	}
	return endpoint.Resolve(c.PlatformInfo())
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// BuilderConfig returns the request builder settings.
func (c *Config) BuilderConfig() search.BuilderConfig {
	return search.BuilderConfig{
		DefaultMaxPriceLakhs: c.Search.DefaultMaxPriceLakhs,
		Credentials:          c.Upstream.Credentials,
	}
}

// ExecutorConfig returns the executor settings serving payload as the fixture.
// A FIXTURE_DELAY of zero disables the delay.
func (c *Config) ExecutorConfig(payload []byte) search.ExecutorConfig {
	delay := c.Fixture.Delay
	if delay == 0 {
		delay = -1
	}
	return search.ExecutorConfig{
		Timeout:           c.Upstream.Timeout,
		RequestsPerMinute: c.Upstream.RequestsPerMinute,
		BurstSize:         c.Upstream.Burst,
		FixtureDelay:      delay,
		Fixture:           payload,
	}
}
