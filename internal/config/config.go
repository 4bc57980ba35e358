// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (./newsagent.yaml or ~/.newsagent/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Models: fast routing model, generation model, embedding model
//   - Storage: PostgreSQL connection (see storage.go)
//   - Retrieval: match threshold, agent iteration budget
//   - Indexing: contents directory, index config file, batch size, lock file
//   - Observability: Datadog APM tracing
//
// Security: sensitive data (passwords) is never logged; MarshalJSON masks it.
// Validation: range checks in validation.go with clear error messages.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Defaults for retrieval and indexing tuning knobs.
const (
	DefaultMatchThreshold     = 0.35
	DefaultEmbeddingBatchSize = 64
	DefaultMaxIterations      = 2
	DefaultServerAddr         = ":8080"
)

// DatadogConfig holds the OTLP exporter settings for the local Datadog agent.
type DatadogConfig struct {
	AgentHost   string `mapstructure:"agent_host" json:"agent_host"`
	Environment string `mapstructure:"environment" json:"environment"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys), update MarshalJSON.
type Config struct {
	// Model configuration. Names are OpenAI model identifiers without
	// the "openai/" Genkit provider prefix.
	FastModel       string `mapstructure:"fast_model" json:"fast_model"`
	GenerationModel string `mapstructure:"generation_model" json:"generation_model"`
	EmbeddingModel  string `mapstructure:"embedding_model" json:"embedding_model"`

	// Retrieval and agent configuration
	MatchThreshold float64 `mapstructure:"match_threshold" json:"match_threshold"`
	MaxIterations  int     `mapstructure:"max_iterations" json:"max_iterations"`

	// Indexing configuration
	ContentsDir        string `mapstructure:"contents_dir" json:"contents_dir"`
	IndexConfigFile    string `mapstructure:"index_config_file" json:"index_config_file"`
	EmbeddingBatchSize int    `mapstructure:"embedding_batch_size" json:"embedding_batch_size"`
	LockFile           string `mapstructure:"lock_file" json:"lock_file"`

	// HTTP server configuration
	ServerAddr string `mapstructure:"server_addr" json:"server_addr"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Observability configuration
	Datadog DatadogConfig `mapstructure:"datadog" json:"datadog"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".newsagent")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".") // Also support current directory

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings when set
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// CRITICAL: validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// Model defaults
	v.SetDefault("fast_model", "gpt-4o-mini")
	v.SetDefault("generation_model", "gpt-4o")
	v.SetDefault("embedding_model", "text-embedding-3-small")

	// Retrieval and agent defaults
	v.SetDefault("match_threshold", DefaultMatchThreshold)
	v.SetDefault("max_iterations", DefaultMaxIterations)

	// Indexing defaults
	v.SetDefault("contents_dir", "contents")
	v.SetDefault("index_config_file", "index-config.yaml")
	v.SetDefault("embedding_batch_size", DefaultEmbeddingBatchSize)
	v.SetDefault("lock_file", filepath.Join(os.TempDir(), "newsagent-index.lock"))

	// Server defaults
	v.SetDefault("server_addr", DefaultServerAddr)

	// PostgreSQL defaults (matching docker-compose.yml)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "newsagent")
	v.SetDefault("postgres_password", "newsagent_dev_password")
	v.SetDefault("postgres_db_name", "newsagent")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Datadog defaults
	v.SetDefault("datadog.agent_host", "localhost:4318")
	v.SetDefault("datadog.environment", "dev")
	v.SetDefault("datadog.service_name", "newsagent")
}

// bindEnvVariables binds environment variable overrides explicitly.
// OPENAI_API_KEY is read directly by the Genkit OpenAI plugin, not via
// Viper; its presence is checked in Validate().
func bindEnvVariables(v *viper.Viper) {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("fast_model", "NEWSAGENT_FAST_MODEL")
	mustBind("generation_model", "NEWSAGENT_GENERATION_MODEL")
	mustBind("embedding_model", "NEWSAGENT_EMBEDDING_MODEL")
	mustBind("match_threshold", "NEWSAGENT_MATCH_THRESHOLD")
	mustBind("max_iterations", "NEWSAGENT_MAX_ITERATIONS")
	mustBind("contents_dir", "NEWSAGENT_CONTENTS_DIR")
	mustBind("index_config_file", "NEWSAGENT_INDEX_CONFIG_FILE")
	mustBind("embedding_batch_size", "NEWSAGENT_EMBEDDING_BATCH_SIZE")
	mustBind("server_addr", "NEWSAGENT_SERVER_ADDR")

	// Datadog (optional, for observability)
	mustBind("datadog.agent_host", "DD_AGENT_HOST")
	mustBind("datadog.environment", "DD_ENV")
	mustBind("datadog.service_name", "DD_SERVICE")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid substring matching against real secrets.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 chars or fewer are fully masked to prevent substring
// attacks; longer secrets keep the first and last 2 chars for debugging.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	prefix := make([]byte, 2)
	suffix := make([]byte, 2)
	copy(prefix, s[:2])
	copy(suffix, s[len(s)-2:])
	return string(prefix) + "<" + maskedValue + ">" + string(suffix)
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
//
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
