package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the server. Tags use mapstructure
// for viper unmarshalling; every key can also be set as an environment
// variable of the same name.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`

	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// Local bearer token settings.
	JWTSecretKey string `mapstructure:"JWT_SECRET_KEY"`
	TokenTTLMin  int    `mapstructure:"TOKEN_TTL_MIN"`
	BcryptCost   int    `mapstructure:"BCRYPT_COST"`

	// Salesforce JWT-bearer grant settings.
	SFClientID       string `mapstructure:"SF_CLIENT_ID"`
	SFUsername       string `mapstructure:"SF_USERNAME"`
	SFLoginURL       string `mapstructure:"SF_LOGIN_URL"`
	SFPrivateKeyFile string `mapstructure:"SF_PRIVATE_KEY_FILE"`
}

// LoadConfig reads configuration from an optional config file, environment
// variables, and defaults, in that order of increasing precedence.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/wolliz-backend/")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "3001")
	v.SetDefault("DATABASE_URL", "postgres://localhost:5432/wolliz_dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OTEL_SERVICE_NAME", "wolliz-backend")
	v.SetDefault("JWT_SECRET_KEY", "a_very_secret_jwt_key_change_me") // CHANGE IN PRODUCTION
	v.SetDefault("TOKEN_TTL_MIN", 60)                                 // 1 hour
	v.SetDefault("BCRYPT_COST", 0)                                    // 0 means bcrypt.DefaultCost

	// AutomaticEnv only surfaces keys viper already knows about, so settings
	// with no natural default still register an empty one.
	v.SetDefault("SF_CLIENT_ID", "")
	v.SetDefault("SF_USERNAME", "")
	v.SetDefault("SF_LOGIN_URL", "https://login.salesforce.com")
	v.SetDefault("SF_PRIVATE_KEY_FILE", "./private.key")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, we run on env vars and defaults.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
