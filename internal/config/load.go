package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads.
const EnvPrefix = "SCRY"

// boundEnvs lists the keys that are read from the environment even when no
// config file mentions them. viper.AutomaticEnv only resolves keys it already
// knows about, so every key needs an explicit binding.
var boundEnvs = []string{
	"server.port",
	"server.log_level",
	"server.log_format",
	"database.url",
	"database.max_open_conns",
	"database.max_idle_conns",
	"llm.gemini_api_key",
	"llm.model_name",
	"llm.max_input_tokens",
	"llm.temperature",
	"llm.prompt_dir",
	"embedding.openai_api_key",
	"embedding.model",
	"embedding.dimensions",
	"embedding.base_url",
	"retry.worker_count",
	"retry.job_timeout",
	"retry.schedule",
	"retry.scan_limit",
	"retry.chunk_concurrency",
	"retry.lease_ttl",
	"task.worker_count",
	"task.queue_size",
	"task.stuck_task_age_minutes",
	"task.stuck_check_interval_ms",
	"redis.url",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)

	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_input_tokens", 900000)
	v.SetDefault("llm.temperature", 0.4)

	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimensions", 1536)

	v.SetDefault("retry.worker_count", 3)
	v.SetDefault("retry.job_timeout", "10m")
	v.SetDefault("retry.schedule", "0 */6 * * *")
	v.SetDefault("retry.scan_limit", 0)
	v.SetDefault("retry.chunk_concurrency", 1)
	v.SetDefault("retry.lease_ttl", "15m")

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.stuck_task_age_minutes", 30)
	v.SetDefault("task.stuck_check_interval_ms", 60000)
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files, which
// take precedence over defaults. A .env file in the working directory is
// loaded into the environment first, without overriding variables that are
// already set.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(EnvPrefix + "_CONFIG_FILE"))
}

// LoadFile behaves like Load but reads the given YAML file instead of
// searching the working directory. An empty path falls back to the search.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range boundEnvs {
		envVar := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envVar); err != nil {
			return nil, fmt.Errorf("error binding environment variable %s: %w", envVar, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the struct tags of every configuration group.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}
