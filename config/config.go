package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log          Logger       `mapstructure:"logger"`
	DB           Database     `mapstructure:"database"`
	AlphaVantage AlphaVantage `mapstructure:"alphavantage"`
	Freshness    Freshness    `mapstructure:"freshness"`
	Staging      Staging      `mapstructure:"staging"`
	Quality      Quality      `mapstructure:"quality"`
	Scheduler    Scheduler    `mapstructure:"scheduler"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	Host            string `mapstructure:"host" validate:"required"`
	Port            int    `mapstructure:"port" validate:"required"`
	User            string `mapstructure:"user" validate:"required"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name" validate:"required"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type AlphaVantage struct {
	APIKey         string        `mapstructure:"api_key" validate:"required"`
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MinInterval    time.Duration `mapstructure:"min_interval"`
	MaxBackoff     float64       `mapstructure:"max_backoff"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	MinEPSQuarters int           `mapstructure:"min_eps_quarters"`
}

type Freshness struct {
	MinRefreshDays   int `mapstructure:"min_refresh_days"`
	ForceRefreshDays int `mapstructure:"force_refresh_days"`
}

type Staging struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type Quality struct {
	MinPopulatedFields int `mapstructure:"min_populated_fields"`
}

type Scheduler struct {
	CronSpec string `mapstructure:"cron_spec"`
}

func Load() (*Config, error) {
	// .env is optional, real environments configure through the environment.
	_ = godotenv.Load()

	viper.SetConfigType("yaml")
	viper.SetConfigName("config")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if isPlaceholderKey(cfg.AlphaVantage.APIKey) {
		return nil, fmt.Errorf("alphavantage.api_key is missing or a placeholder value")
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "console")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("alphavantage.base_url", "https://www.alphavantage.co")
	viper.SetDefault("alphavantage.timeout", 15*time.Second)
	viper.SetDefault("alphavantage.min_interval", 12*time.Second)
	viper.SetDefault("alphavantage.max_backoff", 32.0)
	viper.SetDefault("alphavantage.max_attempts", 3)
	viper.SetDefault("alphavantage.min_eps_quarters", 5)
	viper.SetDefault("freshness.min_refresh_days", 90)
	viper.SetDefault("freshness.force_refresh_days", 365)
	viper.SetDefault("staging.ttl", 24*time.Hour)
	viper.SetDefault("staging.cleanup_interval", 5*time.Minute)
	viper.SetDefault("quality.min_populated_fields", 10)
	viper.SetDefault("scheduler.cron_spec", "0 6 * * *")
}

func isPlaceholderKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", "demo", "your_api_key", "changeme":
		return true
	}
	return false
}
