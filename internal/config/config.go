package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Session tokens and job secret
	Auth AuthConfig

	// External calendar sync for room bookings
	Calendar CalendarConfig

	// Outbound mail
	Mail MailConfig

	// Scheduled digests
	Digest DigestConfig

	// Logging configuration
	Log LogConfig

	// Tracing configuration
	Tracing TracingConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	AllowedOrigins  []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	MigrationsPath  string        `envconfig:"MIGRATIONS_PATH" default:"./migrations"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string        `envconfig:"DB_HOST" default:"localhost"`
	Port         string        `envconfig:"DB_PORT" default:"5432"`
	User         string        `envconfig:"DB_USER" default:"postgres"`
	Password     string        `envconfig:"DB_PASSWORD" default:"postgres"`
	Name         string        `envconfig:"DB_NAME" default:"onboarding"`
	SSLMode      string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxOpenConns int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	MaxLifetime  time.Duration `envconfig:"DB_MAX_LIFETIME" default:"5m"`
}

// AuthConfig holds session token and scheduled job credentials
type AuthConfig struct {
	JWTSecret string        `envconfig:"JWT_SECRET"`
	Issuer    string        `envconfig:"JWT_ISSUER" default:"onboarding-booking-api"`
	TokenTTL  time.Duration `envconfig:"JWT_TTL" default:"12h"`
	JobSecret string        `envconfig:"JOB_SECRET"`
}

// CalendarConfig holds the groupware calendar client settings
type CalendarConfig struct {
	Enabled         bool          `envconfig:"CALENDAR_ENABLED" default:"false"`
	CredentialsJSON string        `envconfig:"GOOGLEAPIS_CREDENTIALS"`
	Timeout         time.Duration `envconfig:"CALENDAR_TIMEOUT" default:"10s"`
	RetryAttempts   int           `envconfig:"CALENDAR_RETRY_ATTEMPTS" default:"3"`
}

// MailConfig holds outbound mail settings
type MailConfig struct {
	Transport    string        `envconfig:"MAIL_TRANSPORT" default:"log"` // "smtp", "amqp" or "log"
	From         string        `envconfig:"MAIL_FROM" default:"onboarding@localhost"`
	SMTPHost     string        `envconfig:"SMTP_HOST"`
	SMTPPort     int           `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser     string        `envconfig:"SMTP_USER"`
	SMTPPassword string        `envconfig:"SMTP_PASSWORD"`
	SMTPTimeout  time.Duration `envconfig:"SMTP_TIMEOUT" default:"10s"`
	AMQPURL      string        `envconfig:"RABBIT_URL"`
	AMQPExchange string        `envconfig:"MAIL_EXCHANGE" default:"mail.exchange"`
}

// DigestConfig holds digest job settings
type DigestConfig struct {
	Timezone    string `envconfig:"DIGEST_TIMEZONE" default:"UTC"`
	Locale      string `envconfig:"DIGEST_LOCALE" default:"en_US"`
	Concurrency int    `envconfig:"DIGEST_SEND_CONCURRENCY" default:"8"`
	AppURL      string `envconfig:"APP_URL" default:"http://localhost:3000"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"` // "json" or "pretty"
}

// TracingConfig holds OTLP exporter settings; tracing is off when Endpoint is empty
type TracingConfig struct {
	Endpoint    string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Environment string `envconfig:"ENV" default:"production"`
}

// Load reads configuration from the environment, after loading an optional .env file
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Auth.JobSecret == "" {
		return fmt.Errorf("JOB_SECRET is required")
	}
	if c.Calendar.Enabled && c.Calendar.CredentialsJSON == "" {
		return fmt.Errorf("GOOGLEAPIS_CREDENTIALS is required when CALENDAR_ENABLED is set")
	}
	switch c.Mail.Transport {
	case "log":
	case "smtp":
		if c.Mail.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required for smtp mail transport")
		}
		if c.Mail.SMTPTimeout <= 0 {
			return fmt.Errorf("SMTP_TIMEOUT must be positive")
		}
	case "amqp":
		if c.Mail.AMQPURL == "" {
			return fmt.Errorf("RABBIT_URL is required for amqp mail transport")
		}
	default:
		return fmt.Errorf("MAIL_TRANSPORT must be one of: log, smtp, amqp")
	}
	if _, err := time.LoadLocation(c.Digest.Timezone); err != nil {
		return fmt.Errorf("DIGEST_TIMEZONE is invalid: %w", err)
	}
	if c.Digest.Concurrency < 1 {
		return fmt.Errorf("DIGEST_SEND_CONCURRENCY must be positive")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Location returns the digest timezone; Validate guarantees it loads
func (c *DigestConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
