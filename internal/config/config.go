package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration is the full service configuration, loaded once at startup
type Configuration struct {
	Server    ServerConfig    `mapstructure:"server"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Billing   BillingConfig   `mapstructure:"billing"`
	ToyyibPay ToyyibPayConfig `mapstructure:"toyyibpay"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds the postgres connection string
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type CacheConfig struct {
	SubscriptionTTL time.Duration `mapstructure:"subscription_ttl"`
}

// BillingConfig holds the subscription lifecycle policy constants. They are
// configuration, not per-call-site literals, so operators can tune them
// without a deploy.
type BillingConfig struct {
	TrialDays       int `mapstructure:"trial_days"`
	GracePeriodDays int `mapstructure:"grace_period_days"`
}

// TrialDuration returns the trial length as a duration
func (c BillingConfig) TrialDuration() time.Duration {
	return time.Duration(c.TrialDays) * 24 * time.Hour
}

// GraceDuration returns the grace period length as a duration
func (c BillingConfig) GraceDuration() time.Duration {
	return time.Duration(c.GracePeriodDays) * 24 * time.Hour
}

type ToyyibPayConfig struct {
	APIKey       string `mapstructure:"api_key"`
	CategoryCode string `mapstructure:"category_code"`
	BaseURL      string `mapstructure:"base_url"`
	CallbackURL  string `mapstructure:"callback_url"`
}

// NewConfig loads configuration from config.yaml and environment variables.
// Environment variables use the BILLING_ prefix with underscores, e.g.
// BILLING_POSTGRES_PASSWORD.
func NewConfig() (*Configuration, error) {
	// Missing .env is fine; real deployments use the environment directly
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("BILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "billing")
	v.SetDefault("postgres.dbname", "billing")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("logging.level", "info")
	v.SetDefault("cache.subscription_ttl", 30*time.Second)
	v.SetDefault("billing.trial_days", 14)
	v.SetDefault("billing.grace_period_days", 7)
	v.SetDefault("toyyibpay.base_url", "https://dev.toyyibpay.com")
}

// Validate rejects configurations the service cannot run with
func (c *Configuration) Validate() error {
	if c.Billing.TrialDays <= 0 {
		return fmt.Errorf("billing.trial_days must be positive, got %d", c.Billing.TrialDays)
	}
	if c.Billing.GracePeriodDays <= 0 {
		return fmt.Errorf("billing.grace_period_days must be positive, got %d", c.Billing.GracePeriodDays)
	}
	return nil
}

// GetDefaultConfig returns a configuration suitable for tests
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Server:  ServerConfig{Address: ":8080"},
		Logging: LoggingConfig{Level: "debug"},
		Cache:   CacheConfig{SubscriptionTTL: 30 * time.Second},
		Billing: BillingConfig{TrialDays: 14, GracePeriodDays: 7},
		ToyyibPay: ToyyibPayConfig{
			BaseURL: "https://dev.toyyibpay.com",
		},
	}
}
