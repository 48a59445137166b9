package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. TAHFIDZ_DATABASE_URL.
const EnvPrefix = "TAHFIDZ"

var defaults = map[string]interface{}{
	"server.port":                    8080,
	"server.log_level":               "info",
	"server.shutdown_seconds":        15,
	"database.url":                   "",
	"database.max_open_conns":        25,
	"database.max_idle_conns":        25,
	"auth.jwt_secret":                "",
	"auth.issuer":                    "",
	"llm.gemini_api_key":             "",
	"llm.model_name":                 "gemini-2.0-flash",
	"llm.prompt_template_path":       "",
	"llm.timeout_seconds":            60,
	"rate_limit.requests":            15,
	"rate_limit.window_seconds":      60,
	"redis.url":                      "",
	"redis.cache_ttl_seconds":        300,
	"review.due_limit_default":       10,
	"review.due_limit_max":           50,
	"review.persist_timeout_seconds": 10,
}

// Load reads configuration from an optional config.yaml in the working
// directory and from TAHFIDZ_ environment variables, which take precedence.
// The result is validated before it is returned.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom behaves like Load but reads the given config file instead of
// searching the working directory. An empty path means search.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	// Every key gets a default so that AutomaticEnv can also see keys that
	// never appear in a file.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
