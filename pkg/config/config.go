package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is read when no config file is given. It is optional.
const DefaultPath = "config.yaml"

// Supported enum values.
var (
	Providers     = []string{"gemini", "openai", "anthropic"}
	Backends      = []string{"sqlite", "postgres", "redis", "memory"}
	DayBoundaries = []string{"calendar", "legacy"}
)

// Config holds all configuration for greenthumb.
// Configuration can come from a YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys, passwords, session secret) must only come from environment variables.
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Server    ServerConfig    `yaml:"server"`
	AI        AIConfig        `yaml:"ai"`
	Storage   StorageConfig   `yaml:"storage"`
	Reminders RemindersConfig `yaml:"reminders"`
	Chat      ChatConfig      `yaml:"chat"`
	Session   SessionConfig   `yaml:"session"`
	MCP       MCPConfig       `yaml:"mcp"`
}

// ServerConfig holds HTTP server limits.
type ServerConfig struct {
	// MaxUploadBytes caps identify and diagnose image uploads.
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES" env-default:"10485760"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT" env-default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT" env-default:"2m"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"15s"`
}

// AIConfig selects the generative model provider.
type AIConfig struct {
	Provider string `yaml:"provider" env:"AI_PROVIDER" env-default:"gemini"`
	// Model defaults per provider when empty.
	Model string `yaml:"model" env:"AI_MODEL" env-default:""`
	// BaseURL points the openai provider at any OpenAI-compatible endpoint.
	BaseURL        string        `yaml:"base_url" env:"AI_BASE_URL" env-default:""`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"AI_REQUEST_TIMEOUT" env-default:"60s"`
	MaxTokens      int           `yaml:"max_tokens" env:"AI_MAX_TOKENS" env-default:"4096"`

	Breaker BreakerConfig `yaml:"breaker"`

	GeminiAPIKey    string `yaml:"-" env:"GEMINI_API_KEY"`    // Secret - not in YAML
	OpenAIAPIKey    string `yaml:"-" env:"OPENAI_API_KEY"`    // Secret - not in YAML
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML
}

// BreakerConfig configures the circuit breaker in front of the model client.
type BreakerConfig struct {
	Threshold  int           `yaml:"threshold" env:"AI_BREAKER_THRESHOLD" env-default:"5"`
	ResetAfter time.Duration `yaml:"reset_after" env:"AI_BREAKER_RESET_AFTER" env-default:"30s"`
}

// APIKey returns the key for the selected provider.
func (c *AIConfig) APIKey() string {
	switch c.Provider {
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	default:
		return c.GeminiAPIKey
	}
}

// StorageConfig selects where the garden blob is kept.
type StorageConfig struct {
	Backend string `yaml:"backend" env:"STORAGE_BACKEND" env-default:"sqlite"`
	// GardenKey is the blob key holding the whole garden collection.
	GardenKey string `yaml:"garden_key" env:"GARDEN_KEY" env-default:"myGarden"`
	// ConnectRetries bounds startup dialing of network backends.
	ConnectRetries int `yaml:"connect_retries" env:"STORAGE_CONNECT_RETRIES" env-default:"5"`

	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
}

// SQLiteConfig holds the embedded database location.
type SQLiteConfig struct {
	Path string `yaml:"path" env:"SQLITE_PATH" env-default:"greenthumb.db"`
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"greenthumb"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"greenthumb"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"5"`
}

// ConnectionString returns a PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		ResolveHostForDocker(c.Host), c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the connection string in URL form, as used by the migration driver.
func (c *PostgresConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", ResolveHostForDocker(c.Host), c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Addr returns host:port.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", ResolveHostForDocker(c.Host), c.Port)
}

// RemindersConfig controls reminder day counting.
type RemindersConfig struct {
	// DayBoundary is "calendar" (whole calendar days) or "legacy".
	DayBoundary string `yaml:"day_boundary" env:"REMINDER_DAY_BOUNDARY" env-default:"calendar"`
	// TimeZone is an IANA name; empty uses the server's local zone.
	TimeZone string `yaml:"time_zone" env:"REMINDER_TIME_ZONE" env-default:""`
}

// Location resolves TimeZone.
func (c *RemindersConfig) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.TimeZone)
}

// ChatConfig bounds in-memory conversations.
type ChatConfig struct {
	IdleTimeout      time.Duration `yaml:"idle_timeout" env:"CHAT_IDLE_TIMEOUT" env-default:"30m"`
	MaxConversations int           `yaml:"max_conversations" env:"CHAT_MAX_CONVERSATIONS" env-default:"1000"`
}

// SessionConfig configures the chat session cookie.
type SessionConfig struct {
	CookieName string `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"greenthumb_session"`
	MaxAge     int    `yaml:"max_age" env:"SESSION_MAX_AGE" env-default:"86400"`
	Secure     bool   `yaml:"secure" env:"SESSION_SECURE" env-default:"false"`
	Secret     string `yaml:"-" env:"SESSION_SECRET"` // Secret - not in YAML
}

// MCPConfig toggles the MCP endpoint.
type MCPConfig struct {
	Enabled bool `yaml:"enabled" env:"MCP_ENABLED" env-default:"true"`
}

// Load reads configuration from path with environment variable overrides.
// An empty path reads DefaultPath when it exists and environment variables only
// otherwise. The version parameter is injected at build time.
func Load(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := read(path, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

func read(path string, cfg *Config) error {
	if path == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			if err := cleanenv.ReadEnv(cfg); err != nil {
				return fmt.Errorf("failed to read environment: %w", err)
			}
			return nil
		}
		path = DefaultPath
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

// Validate checks enum fields and limits. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	if !slices.Contains(Providers, c.AI.Provider) {
		errs = append(errs, fmt.Errorf("ai.provider %q must be one of %s", c.AI.Provider, strings.Join(Providers, ", ")))
	}
	if c.AI.RequestTimeout <= 0 {
		errs = append(errs, errors.New("ai.request_timeout must be positive"))
	}

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if !slices.Contains(Backends, c.Storage.Backend) {
		errs = append(errs, fmt.Errorf("storage.backend %q must be one of %s", c.Storage.Backend, strings.Join(Backends, ", ")))
	}
	if strings.TrimSpace(c.Storage.GardenKey) == "" {
		errs = append(errs, errors.New("storage.garden_key is required"))
	}

	c.Reminders.DayBoundary = strings.ToLower(strings.TrimSpace(c.Reminders.DayBoundary))
	if !slices.Contains(DayBoundaries, c.Reminders.DayBoundary) {
		errs = append(errs, fmt.Errorf("reminders.day_boundary %q must be one of %s", c.Reminders.DayBoundary, strings.Join(DayBoundaries, ", ")))
	}
	if _, err := c.Reminders.Location(); err != nil {
		errs = append(errs, fmt.Errorf("reminders.time_zone: %w", err))
	}

	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.max_upload_bytes must be positive"))
	}
	if c.Chat.IdleTimeout <= 0 {
		errs = append(errs, errors.New("chat.idle_timeout must be positive"))
	}

	return errors.Join(errs...)
}
