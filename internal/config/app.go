package config

import (
	"architect/internal/logger"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// AppConfig holds all application configuration
type AppConfig struct {
	Server    ServerConfig
	Database  DatabaseConfig
	LLM       LLMConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Log       LogConfig
	Prompts   PromptsConfig
	Templates TemplatesConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `env:"SERVER_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Driver         string `env:"STORE_DRIVER" envDefault:"postgres"`
	Host           string `env:"DB_HOST" envDefault:"postgres"`
	Port           string `env:"DB_PORT" envDefault:"5432"`
	User           string `env:"DB_USER" envDefault:"postgres"`
	Password       string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name           string `env:"DB_NAME" envDefault:"architect"`
	SSLMode        string `env:"DB_SSLMODE" envDefault:"disable"`
	MigrationsPath string `env:"DB_MIGRATIONS_PATH" envDefault:"migrations"`
	MaxOpenConns   int    `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
}

// LLMConfig holds text generation provider configuration
type LLMConfig struct {
	Provider         string        `env:"LLM_PROVIDER" envDefault:"openrouter"`
	FallbackProvider string        `env:"LLM_FALLBACK_PROVIDER"`
	Model            string        `env:"LLM_MODEL" envDefault:"openai/gpt-4o-mini"`
	FallbackModel    string        `env:"LLM_FALLBACK_MODEL"`
	Temperature      float64       `env:"LLM_TEMPERATURE" envDefault:"0.7"`
	TopP             float64       `env:"LLM_TOP_P" envDefault:"0.9"`
	MaxTokens        int           `env:"LLM_MAX_TOKENS" envDefault:"4096"`
	Timeout          time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	MaxRetries       int           `env:"LLM_MAX_RETRIES" envDefault:"0"`
	MaxInputChars    int           `env:"LLM_MAX_INPUT_CHARS" envDefault:"400000"`
	OpenRouterAPIKey string        `env:"OPENROUTER_API_KEY"`
	OpenAIAPIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string        `env:"OPENAI_BASE_URL"`
	AnthropicAPIKey  string        `env:"ANTHROPIC_API_KEY"`
}

// RedisConfig enables the distributed conversation lock when Addr is set
type RedisConfig struct {
	Addr            string        `env:"REDIS_ADDR"`
	Password        string        `env:"REDIS_PASSWORD"`
	DB              int           `env:"REDIS_DB" envDefault:"0"`
	LockTTL         time.Duration `env:"LOCK_TTL" envDefault:"2m"`
	LockWaitTimeout time.Duration `env:"LOCK_WAIT_TIMEOUT" envDefault:"90s"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret       string        `env:"JWT_SECRET"`
	TokenExpiration time.Duration `env:"JWT_TOKEN_EXPIRATION" envDefault:"24h"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`
}

// PromptsConfig holds the two instruction preambles sent to the model
type PromptsConfig struct {
	Interview string `env:"INTERVIEW_SYSTEM_PROMPT"`
	Synthesis string `env:"SYNTHESIS_SYSTEM_PROMPT"`
}

// TemplatesConfig points at an optional YAML template catalog
type TemplatesConfig struct {
	Path string `env:"TEMPLATES_PATH"`
}

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Text generation provider names
const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderGenkit     = "genkit"
)

var validProviders = map[string]bool{
	ProviderOpenRouter: true,
	ProviderOpenAI:     true,
	ProviderAnthropic:  true,
	ProviderGenkit:     true,
}

// LoadConfig loads and validates application configuration from environment.
// A .env file in the working directory is read first when present.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Log.WithError(err).Warn("Could not read .env file")
	}

	config := &AppConfig{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Prompts.Interview == "" {
		config.Prompts.Interview = DefaultInterviewPrompt
	}
	if config.Prompts.Synthesis == "" {
		config.Prompts.Synthesis = DefaultSynthesisPrompt
	}

	return config, nil
}

// LoadDatabaseConfig reads only the database settings. The migrate command
// uses it so it can run without the server's secrets.
func LoadDatabaseConfig() (*DatabaseConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Log.WithError(err).Warn("Could not read .env file")
	}

	dbConfig := &DatabaseConfig{}
	if err := env.Parse(dbConfig); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	return dbConfig, nil
}

// Validate checks cross-field constraints env tags cannot express
func (c *AppConfig) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable must be set")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters (current length: %d)", len(c.Auth.JWTSecret))
	}

	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be postgres or memory, got %q", c.Database.Driver)
	}

	provider := strings.ToLower(c.LLM.Provider)
	if !validProviders[provider] {
		return fmt.Errorf("LLM_PROVIDER %q is not supported", c.LLM.Provider)
	}
	c.LLM.Provider = provider

	if c.LLM.FallbackProvider != "" {
		fallback := strings.ToLower(c.LLM.FallbackProvider)
		if !validProviders[fallback] {
			return fmt.Errorf("LLM_FALLBACK_PROVIDER %q is not supported", c.LLM.FallbackProvider)
		}
		c.LLM.FallbackProvider = fallback
	}

	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 60 * time.Second
	}
	// A lock that expires mid-generation lets a second turn in on the same conversation
	if c.Redis.Addr != "" && c.Redis.LockTTL <= c.LLM.Timeout {
		return fmt.Errorf("LOCK_TTL (%s) must be above LLM_TIMEOUT (%s)", c.Redis.LockTTL, c.LLM.Timeout)
	}
	if c.Redis.LockWaitTimeout <= c.LLM.Timeout {
		logger.Log.WithField("lock_wait_timeout", c.Redis.LockWaitTimeout).Warn("LOCK_WAIT_TIMEOUT is not above LLM_TIMEOUT; queued chat turns may time out")
	}

	return nil
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetMigrateURL returns the connection URL golang-migrate expects
func (c *DatabaseConfig) GetMigrateURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
