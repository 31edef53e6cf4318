package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/subsync/subsync/internal/types"
)

type Configuration struct {
	Deployment   DeploymentConfig   `mapstructure:"deployment" validate:"required"`
	Server       ServerConfig       `mapstructure:"server" validate:"required"`
	Logging      LoggingConfig      `mapstructure:"logging" validate:"required"`
	Postgres     PostgresConfig     `mapstructure:"postgres" validate:"required"`
	Stripe       StripeConfig       `mapstructure:"stripe" validate:"required"`
	Email        EmailConfig        `mapstructure:"email"`
	Notification NotificationConfig `mapstructure:"notification" validate:"required"`
	Sentry       SentryConfig       `mapstructure:"sentry"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Refund       RefundConfig       `mapstructure:"refund"`
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxWebhookBytes int64         `mapstructure:"max_webhook_bytes" validate:"gt=0"`
}

type LoggingConfig struct {
	Level       types.LogLevel `mapstructure:"level" validate:"required"`
	Development bool           `mapstructure:"development"`
}

type PostgresConfig struct {
	Host            string        `mapstructure:"host" validate:"required"`
	Port            int           `mapstructure:"port" validate:"required"`
	User            string        `mapstructure:"user" validate:"required"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname" validate:"required"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout" validate:"gt=0"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type StripeConfig struct {
	SecretKey      string        `mapstructure:"secret_key"`
	WebhookSecret  string        `mapstructure:"webhook_secret"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	MaxRetries     uint64        `mapstructure:"max_retries"`
	Breaker        BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

type EmailConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	APIKey      string        `mapstructure:"api_key"`
	FromAddress string        `mapstructure:"from_address"`
	ReplyTo     string        `mapstructure:"reply_to"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RateLimit   float64       `mapstructure:"rate_limit" validate:"gte=0"`
}

type NotificationConfig struct {
	Topic           string        `mapstructure:"topic" validate:"required"`
	Buffer          int64         `mapstructure:"buffer"`
	MaxRetries      int           `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type RefundConfig struct {
	GraceDays int64 `mapstructure:"grace_days" validate:"gte=0"`
}

func NewConfig() (*Configuration, error) {
	// .env is optional, real environment always wins
	if err := godotenv.Load(); err != nil {
		fmt.Printf("No .env file loaded: %v\n", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/subsync")

	v.SetEnvPrefix("SUBSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults registers every key so AutomaticEnv can override keys absent from config.yaml
func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()

	v.SetDefault("deployment.mode", d.Deployment.Mode)

	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.max_webhook_bytes", d.Server.MaxWebhookBytes)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.development", d.Logging.Development)

	v.SetDefault("postgres.host", d.Postgres.Host)
	v.SetDefault("postgres.port", d.Postgres.Port)
	v.SetDefault("postgres.user", d.Postgres.User)
	v.SetDefault("postgres.password", d.Postgres.Password)
	v.SetDefault("postgres.dbname", d.Postgres.DBName)
	v.SetDefault("postgres.sslmode", d.Postgres.SSLMode)
	v.SetDefault("postgres.max_open_conns", d.Postgres.MaxOpenConns)
	v.SetDefault("postgres.max_idle_conns", d.Postgres.MaxIdleConns)
	v.SetDefault("postgres.conn_max_lifetime", d.Postgres.ConnMaxLifetime)
	v.SetDefault("postgres.query_timeout", d.Postgres.QueryTimeout)
	v.SetDefault("postgres.auto_migrate", d.Postgres.AutoMigrate)

	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("stripe.request_timeout", d.Stripe.RequestTimeout)
	v.SetDefault("stripe.max_retries", d.Stripe.MaxRetries)
	v.SetDefault("stripe.breaker.enabled", d.Stripe.Breaker.Enabled)
	v.SetDefault("stripe.breaker.max_requests", d.Stripe.Breaker.MaxRequests)
	v.SetDefault("stripe.breaker.interval", d.Stripe.Breaker.Interval)
	v.SetDefault("stripe.breaker.timeout", d.Stripe.Breaker.Timeout)
	v.SetDefault("stripe.breaker.failure_threshold", d.Stripe.Breaker.FailureThreshold)

	v.SetDefault("email.enabled", d.Email.Enabled)
	v.SetDefault("email.api_key", "")
	v.SetDefault("email.from_address", d.Email.FromAddress)
	v.SetDefault("email.reply_to", "")
	v.SetDefault("email.timeout", d.Email.Timeout)
	v.SetDefault("email.rate_limit", d.Email.RateLimit)

	v.SetDefault("notification.topic", d.Notification.Topic)
	v.SetDefault("notification.buffer", d.Notification.Buffer)
	v.SetDefault("notification.max_retries", d.Notification.MaxRetries)
	v.SetDefault("notification.initial_interval", d.Notification.InitialInterval)
	v.SetDefault("notification.max_interval", d.Notification.MaxInterval)

	v.SetDefault("sentry.enabled", d.Sentry.Enabled)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", d.Sentry.Environment)
	v.SetDefault("sentry.sample_rate", d.Sentry.SampleRate)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttl", d.Cache.TTL)

	v.SetDefault("refund.grace_days", d.Refund.GraceDays)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server: ServerConfig{
			Address:         ":3001",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			MaxWebhookBytes: 65536,
		},
		Logging: LoggingConfig{Level: types.LogLevelDebug, Development: true},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "subsync",
			Password:        "subsync",
			DBName:          "subsync",
			SSLMode:         "disable",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			QueryTimeout:    5 * time.Second,
		},
		Stripe: StripeConfig{
			RequestTimeout: 10 * time.Second,
			MaxRetries:     3,
			Breaker: BreakerConfig{
				Enabled:          true,
				MaxRequests:      1,
				Interval:         time.Minute,
				Timeout:          30 * time.Second,
				FailureThreshold: 5,
			},
		},
		Email: EmailConfig{
			FromAddress: "billing@subsync.local",
			Timeout:     10 * time.Second,
			RateLimit:   2,
		},
		Notification: NotificationConfig{
			Topic:           "subscription_notifications",
			Buffer:          100,
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
		Sentry: SentryConfig{
			Environment: "local",
			SampleRate:  1.0,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     30 * time.Minute,
		},
		Refund: RefundConfig{GraceDays: 3},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}

// GetURL returns the postgres:// form used by the migration driver
func (c PostgresConfig) GetURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.DBName,
		c.SSLMode,
	)
}
