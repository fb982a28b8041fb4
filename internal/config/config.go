package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm" validate:"required"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Retry     RetryConfig     `mapstructure:"retry" validate:"required"`
	Task      TaskConfig      `mapstructure:"task" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port      int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel  string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"omitempty,oneof=json text"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey   string  `mapstructure:"gemini_api_key" validate:"required"`
	ModelName      string  `mapstructure:"model_name" validate:"required"`
	MaxInputTokens int     `mapstructure:"max_input_tokens" validate:"gte=0"`
	Temperature    float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	PromptDir      string  `mapstructure:"prompt_dir"`
}

// EmbeddingConfig configures the embedding provider. An empty API key
// disables embedding backfill.
type EmbeddingConfig struct {
	OpenAIAPIKey string `mapstructure:"openai_api_key"`
	Model        string `mapstructure:"model"`
	Dimensions   int    `mapstructure:"dimensions" validate:"gte=0"`
	BaseURL      string `mapstructure:"base_url" validate:"omitempty,url"`
}

// RetryConfig configures the retry coordinator and its schedule.
type RetryConfig struct {
	WorkerCount      int           `mapstructure:"worker_count" validate:"gt=0"`
	JobTimeout       time.Duration `mapstructure:"job_timeout" validate:"gt=0"`
	Schedule         string        `mapstructure:"schedule"`
	ScanLimit        int           `mapstructure:"scan_limit" validate:"gte=0"`
	ChunkConcurrency int           `mapstructure:"chunk_concurrency" validate:"gt=0"`
	LeaseTTL         time.Duration `mapstructure:"lease_ttl" validate:"gte=0"`
}

// TaskConfig contains settings for first-pass generation tasks.
type TaskConfig struct {
	WorkerCount          int `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize            int `mapstructure:"queue_size" validate:"gt=0"`
	StuckTaskAgeMinutes  int `mapstructure:"stuck_task_age_minutes" validate:"gt=0"`
	StuckCheckIntervalMS int `mapstructure:"stuck_check_interval_ms" validate:"gte=0"`
}

// RedisConfig configures the optional per-video lease. An empty URL
// disables leasing.
type RedisConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}
