// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "blogger-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "blogger-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h"); also the session lifetime.
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// ConfirmationCodeTTL is the lifetime of registration confirmation codes (e.g. "24h").
	ConfirmationCodeTTL string `mapstructure:"CONFIRMATION_CODE_TTL"`
	// RecoveryCodeTTL is the lifetime of password recovery codes (e.g. "1h").
	RecoveryCodeTTL string `mapstructure:"RECOVERY_CODE_TTL"`
	// AttemptLimit is the max requests per attempt window for sensitive auth endpoints.
	AttemptLimit int `mapstructure:"ATTEMPT_LIMIT"`
	// AttemptWindow is the fixed throttling window length (e.g. "10s").
	AttemptWindow string `mapstructure:"ATTEMPT_WINDOW"`
	// RedisAddr enables the Redis-backed attempt guard when set (host:port); empty means in-process counters.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// PostmarkServerToken enables the Postmark email notifier when set together with PostmarkAccountToken and EmailFrom.
	PostmarkServerToken string `mapstructure:"POSTMARK_SERVER_TOKEN"`
	// PostmarkAccountToken is the Postmark account token.
	PostmarkAccountToken string `mapstructure:"POSTMARK_ACCOUNT_TOKEN"`
	// EmailFrom is the sender address for confirmation and recovery mail.
	EmailFrom string `mapstructure:"EMAIL_FROM"`
	// EmailSupport is the reply-to address for outbound mail; defaults to EmailFrom.
	EmailSupport string `mapstructure:"EMAIL_SUPPORT"`
	// ConfirmURLBase is the public base URL embedded in confirmation links (e.g. https://example.com/confirm).
	ConfirmURLBase string `mapstructure:"CONFIRM_URL_BASE"`
	// SweepInterval is how often the sweeper deletes expired sessions and codes (e.g. "1m").
	SweepInterval string `mapstructure:"SWEEP_INTERVAL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// Telemetry (optional). When Kafka brokers are set, the HTTP server emits request events to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for request events (default blogger-telemetry).
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// OTLPEndpoint enables OTLP trace/metric export when set (e.g. http://localhost:4317).
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ISSUER", "blogger-auth")
	v.SetDefault("JWT_AUDIENCE", "blogger-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("CONFIRMATION_CODE_TTL", "24h")
	v.SetDefault("RECOVERY_CODE_TTL", "1h")
	v.SetDefault("ATTEMPT_LIMIT", 5)
	v.SetDefault("ATTEMPT_WINDOW", "10s")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("POSTMARK_SERVER_TOKEN", "")
	v.SetDefault("POSTMARK_ACCOUNT_TOKEN", "")
	v.SetDefault("EMAIL_FROM", "")
	v.SetDefault("EMAIL_SUPPORT", "")
	v.SetDefault("CONFIRM_URL_BASE", "http://localhost:8080/confirm")
	v.SetDefault("SWEEP_INTERVAL", "1m")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "blogger-telemetry")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.AttemptLimit < 1 {
		return nil, errors.New("config: ATTEMPT_LIMIT must be at least 1")
	}

	if cfg.EmailSupport == "" {
		cfg.EmailSupport = cfg.EmailFrom
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return durationOr(c.JWTAccessTTL, 15*time.Minute)
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return durationOr(c.JWTRefreshTTL, 168*time.Hour)
}

// ConfirmationTTL parses ConfirmationCodeTTL as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) ConfirmationTTL() time.Duration {
	return durationOr(c.ConfirmationCodeTTL, 24*time.Hour)
}

// RecoveryTTL parses RecoveryCodeTTL as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) RecoveryTTL() time.Duration {
	return durationOr(c.RecoveryCodeTTL, time.Hour)
}

// Window parses AttemptWindow as a time.Duration. Returns 10s if unset or invalid.
func (c *Config) Window() time.Duration {
	return durationOr(c.AttemptWindow, 10*time.Second)
}

// SweeperInterval parses SweepInterval as a time.Duration. Returns 1m if unset or invalid.
func (c *Config) SweeperInterval() time.Duration {
	return durationOr(c.SweepInterval, time.Minute)
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if telemetry is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
