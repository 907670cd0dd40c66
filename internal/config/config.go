package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Auth      AuthConfig      `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Logging   LoggingConfig   `mapstructure:",squash"`
	Business  BusinessConfig  `mapstructure:",squash"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"DATABASE_HOST"`
	Port            string        `mapstructure:"DATABASE_PORT"`
	Name            string        `mapstructure:"DATABASE_NAME"`
	User            string        `mapstructure:"DATABASE_USER"`
	Password        string        `mapstructure:"DATABASE_PASSWORD"`
	SSLMode         string        `mapstructure:"DATABASE_SSLMODE"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
	CacheTTL string `mapstructure:"REDIS_CACHE_TTL"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"JWT_SECRET"`
	TokenTTL  string `mapstructure:"TOKEN_TTL"`
}

type SchedulerConfig struct {
	Timezone     string `mapstructure:"SCHEDULER_TIMEZONE"`
	ReminderDays int    `mapstructure:"REMINDER_DAYS"`
}

type LoggingConfig struct {
	Level string `mapstructure:"LOG_LEVEL"`
}

type BusinessConfig struct {
	MinLoanAmount string `mapstructure:"MIN_LOAN_AMOUNT"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVER_READ_TIMEOUT", "15s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	viper.SetDefault("DATABASE_HOST", "localhost")
	viper.SetDefault("DATABASE_PORT", "5432")
	viper.SetDefault("DATABASE_NAME", "lending")
	viper.SetDefault("DATABASE_USER", "postgres")
	viper.SetDefault("DATABASE_SSLMODE", "disable")
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_CACHE_TTL", "5m")
	viper.SetDefault("TOKEN_TTL", "24h")
	viper.SetDefault("SCHEDULER_TIMEZONE", "UTC")
	viper.SetDefault("REMINDER_DAYS", 3)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MIN_LOAN_AMOUNT", "100.00")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read from .env file (optional)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.Name == "" {
		return fmt.Errorf("DATABASE_NAME is required")
	}

	if min, err := decimal.NewFromString(c.Business.MinLoanAmount); err != nil {
		return fmt.Errorf("MIN_LOAN_AMOUNT must be a valid decimal: %w", err)
	} else if min.IsNegative() {
		return fmt.Errorf("MIN_LOAN_AMOUNT must not be negative")
	}

	if _, err := time.ParseDuration(c.Auth.TokenTTL); err != nil {
		return fmt.Errorf("TOKEN_TTL must be a valid duration: %w", err)
	}

	if _, err := time.ParseDuration(c.Redis.CacheTTL); err != nil {
		return fmt.Errorf("REDIS_CACHE_TTL must be a valid duration: %w", err)
	}

	if c.Scheduler.ReminderDays <= 0 {
		return fmt.Errorf("REMINDER_DAYS must be greater than 0")
	}

	return nil
}

// DSN returns the postgres connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetMinLoanAmount returns the minimum loan amount as decimal
func (c *Config) GetMinLoanAmount() decimal.Decimal {
	min, _ := decimal.NewFromString(c.Business.MinLoanAmount)
	return min
}

// GetTokenTTL returns the JWT lifetime as duration
func (c *Config) GetTokenTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Auth.TokenTTL)
	return ttl
}

// GetCacheTTL returns the loan cache lifetime as duration
func (c *Config) GetCacheTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Redis.CacheTTL)
	return ttl
}
