package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates a model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidMatchThreshold indicates the match threshold is out of range.
	ErrInvalidMatchThreshold = errors.New("invalid match threshold")

	// ErrInvalidMaxIterations indicates the iteration budget is out of range.
	ErrInvalidMaxIterations = errors.New("invalid max iterations")

	// ErrInvalidBatchSize indicates the embedding batch size is out of range.
	ErrInvalidBatchSize = errors.New("invalid embedding batch size")

	// ErrInvalidContentsDir indicates the contents directory is not set.
	ErrInvalidContentsDir = errors.New("invalid contents directory")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// validSSLModes are the sslmode values accepted by libpq/pgx.
var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate performs fail-fast validation of the configuration.
// Called by Load() before the config is handed to any component.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	for name, value := range map[string]string{
		"fast_model":       c.FastModel,
		"generation_model": c.GenerationModel,
		"embedding_model":  c.EmbeddingModel,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalidModelName, name)
		}
	}

	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("%w: %.3f (must be in [0, 1])", ErrInvalidMatchThreshold, c.MatchThreshold)
	}

	if c.MaxIterations < 1 || c.MaxIterations > 10 {
		return fmt.Errorf("%w: %d (must be in [1, 10])", ErrInvalidMaxIterations, c.MaxIterations)
	}

	if c.EmbeddingBatchSize < 1 || c.EmbeddingBatchSize > 2048 {
		return fmt.Errorf("%w: %d (must be in [1, 2048])", ErrInvalidBatchSize, c.EmbeddingBatchSize)
	}

	if strings.TrimSpace(c.ContentsDir) == "" {
		return fmt.Errorf("%w: contents_dir must not be empty", ErrInvalidContentsDir)
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d (must be in [1, 65535])", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name must not be empty", ErrInvalidPostgresDBName)
	}

	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	// The Genkit OpenAI plugin reads OPENAI_API_KEY directly; fail here
	// rather than on the first model call.
	if os.Getenv("OPENAI_API_KEY") == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY environment variable is not set", ErrMissingAPIKey)
	}

	return nil
}
