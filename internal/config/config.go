package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v6"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/joho/godotenv"
)

type Config struct {
	IsTestMode bool   `env:"TEST_MODE" envDefault:"false"`
	HttpAddr   string `env:"HTTP_ADDR" envDefault:":8080"`
	BaseURL    string `env:"BASE_URL"`

	TelegramToken          string        `env:"TELEGRAM_TOKEN"`
	TelegramBaseURL        url.URL       `env:"TELEGRAM_BASE_URL" envDefault:"https://api.telegram.org"`
	TelegramURLSecret      string        `env:"TELEGRAM_URL_SECRET"`
	TelegramRequestTimeout time.Duration `env:"TELEGRAM_REQUEST_TIMEOUT" envDefault:"10s"`

	PostgresqlURL  string        `env:"POSTGRESQL_URL"`
	MigrationsPath string        `env:"MIGRATIONS_PATH" envDefault:"file://migrations"`
	RedisURL       string        `env:"REDIS_URL"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	AwsRegion      string `env:"AWS_REGION"`
	AwsAccessKey   string `env:"AWS_ACCESS_KEY"`
	AwsSecretKey   string `env:"AWS_SECRET_KEY"`
	S3Bucket       string `env:"S3_BUCKET"`
	S3Endpoint     string `env:"S3_ENDPOINT"`
	S3UsePathStyle bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`

	RemindersScanPeriod  time.Duration `env:"REMINDERS_SCAN_PERIOD" envDefault:"1m"`
	RemindersScanWorkers int           `env:"REMINDERS_SCAN_WORKERS" envDefault:"4"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT" envDefault:"10s"`
	BlobTimeout          time.Duration `env:"BLOB_TIMEOUT" envDefault:"30s"`

	Timezone              string         `env:"TIMEZONE" envDefault:"UTC"`
	Location              *time.Location `env:"-"`
	UpdatesPerMinuteLimit uint16         `env:"UPDATES_PER_MINUTE_LIMIT" envDefault:"30"`

	SentryDsn *url.URL `env:"SENTRY_DSN"`
}

// Load reads an optional .env file, then the environment. Variables already
// set in the environment win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("could not parse config: %w", err)
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE value: %w", err)
	}
	cfg.Location = location

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	rules := []*validation.FieldRules{
		validation.Field(&cfg.TelegramToken, validation.Required),
		validation.Field(&cfg.BaseURL, is.URL),
		validation.Field(&cfg.HttpAddr, validation.Required),
		validation.Field(&cfg.SessionTTL, validation.Min(time.Minute)),
		validation.Field(&cfg.RemindersScanPeriod, validation.Min(time.Second)),
		validation.Field(&cfg.RemindersScanWorkers, validation.Min(1), validation.Max(64)),
		validation.Field(&cfg.DeliveryTimeout, validation.Min(time.Second)),
		validation.Field(&cfg.BlobTimeout, validation.Min(time.Second)),
		validation.Field(&cfg.TelegramRequestTimeout, validation.Min(time.Second)),
		validation.Field(&cfg.UpdatesPerMinuteLimit, validation.Min(uint16(1))),
		validation.Field(&cfg.S3Endpoint, is.URL),
	}
	if cfg.UsesS3() {
		rules = append(rules, validation.Field(&cfg.AwsRegion, validation.Required))
	}
	if cfg.BaseURL != "" {
		rules = append(rules, validation.Field(&cfg.TelegramURLSecret, validation.Required))
	}
	return validation.ValidateStruct(cfg, rules...)
}

// WebhookURL is the public address Telegram posts updates to.
func (cfg *Config) WebhookURL() (string, error) {
	if cfg.BaseURL == "" {
		return "", errors.New("BASE_URL must be set to register the webhook")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid BASE_URL value: %w", err)
	}
	return base.JoinPath(WebhookPath(cfg.TelegramURLSecret)).String(), nil
}

func WebhookPath(secret string) string {
	return "/telegram/updates/" + secret
}

// Empty connection URLs select in-process adapters, which is enough to run
// the bot locally.

func (cfg *Config) UsesPostgres() bool {
	return cfg.PostgresqlURL != ""
}

func (cfg *Config) UsesRedis() bool {
	return cfg.RedisURL != ""
}

func (cfg *Config) UsesS3() bool {
	return cfg.S3Bucket != ""
}
