package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"     validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"   validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"       validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm"        validate:"required"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Review    ReviewConfig    `mapstructure:"review"     validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int    `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	ShutdownSeconds int    `mapstructure:"shutdown_seconds" validate:"gte=1"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"            validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// AuthConfig holds the shared secret used to verify learner tokens issued
// by the identity provider.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
	Issuer    string `mapstructure:"issuer"`
}

// LLMConfig contains the recitation analyzer settings.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name"     validate:"required"`
	// PromptTemplatePath overrides the embedded analysis prompt when set.
	PromptTemplatePath string `mapstructure:"prompt_template_path" validate:"omitempty,file"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"      validate:"gte=1"`
}

// RateLimitConfig bounds how many analyzer calls one learner may make per window.
type RateLimitConfig struct {
	Requests      int `mapstructure:"requests"       validate:"gte=1"`
	WindowSeconds int `mapstructure:"window_seconds" validate:"gte=1"`
}

// RedisConfig is optional. Without a URL the service uses an in-process
// limiter and no catalog cache.
type RedisConfig struct {
	URL             string `mapstructure:"url"               validate:"omitempty,url"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
}

// ReviewConfig tunes the due queue and the submission persist step.
type ReviewConfig struct {
	DueLimitDefault       int `mapstructure:"due_limit_default"       validate:"gte=1,ltefield=DueLimitMax"`
	DueLimitMax           int `mapstructure:"due_limit_max"           validate:"gte=1"`
	PersistTimeoutSeconds int `mapstructure:"persist_timeout_seconds" validate:"gte=1"`
}
