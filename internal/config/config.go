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
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or a path to one.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or a path to one.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim stamped on access tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim stamped on access tokens.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// AccessTokenTTL is the access token lifetime (e.g. "15m").
	AccessTokenTTL string `mapstructure:"ACCESS_TOKEN_TTL"`
	// RefreshTokenTTL is the refresh credential lifetime (e.g. "168h"). Fixed
	// at session creation; rotation never extends it.
	RefreshTokenTTL string `mapstructure:"REFRESH_TOKEN_TTL"`
	// BcryptCost is the bcrypt work factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// MaxActiveSessions caps simultaneously active sessions per account.
	MaxActiveSessions int `mapstructure:"MAX_ACTIVE_SESSIONS"`
	// LoginThrottleWindow is the sliding window for counting failed logins.
	LoginThrottleWindow string `mapstructure:"LOGIN_THROTTLE_WINDOW"`
	// LoginThrottleMaxPerIP is the failed-login cap per source address in the window; 0 disables.
	LoginThrottleMaxPerIP int `mapstructure:"LOGIN_THROTTLE_MAX_PER_IP"`
	// LoginThrottleMaxPerUser is the failed-login cap per account in the window; 0 disables.
	LoginThrottleMaxPerUser int `mapstructure:"LOGIN_THROTTLE_MAX_PER_USER"`
	// SweepInterval is how often the worker expires due sessions (e.g. "10m").
	SweepInterval string `mapstructure:"SWEEP_INTERVAL"`

	// Security events (optional). When Kafka brokers are set, the auth service
	// emits replay/revocation events to Kafka.
	// KafkaBrokers is a comma-separated list of broker addresses.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// SecurityEventTopic is the Kafka topic for security events.
	SecurityEventTopic string `mapstructure:"SECURITY_EVENT_TOPIC"`
	// KafkaGroupID is the consumer group ID for the worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// OTLPEndpoint enables OpenTelemetry export when set (e.g. http://localhost:4317).
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment via Viper. Missing .env is ignored (e.g. in CI); env vars
// override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ISSUER", "taskhub-auth")
	v.SetDefault("JWT_AUDIENCE", "taskhub-api")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "168h") // 7d, non-sliding
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("MAX_ACTIVE_SESSIONS", 5)
	v.SetDefault("LOGIN_THROTTLE_WINDOW", "15m")
	v.SetDefault("LOGIN_THROTTLE_MAX_PER_IP", 20)
	v.SetDefault("LOGIN_THROTTLE_MAX_PER_USER", 10)
	v.SetDefault("SWEEP_INTERVAL", "10m")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("SECURITY_EVENT_TOPIC", "taskhub-security-events")
	v.SetDefault("KAFKA_GROUP_ID", "taskhub-security-worker")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

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
	if cfg.MaxActiveSessions <= 0 {
		return nil, errors.New("config: MAX_ACTIVE_SESSIONS must be positive")
	}

	return &cfg, nil
}

// AccessTTL parses AccessTokenTTL. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return durationOr(c.AccessTokenTTL, 15*time.Minute)
}

// RefreshTTL parses RefreshTokenTTL. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return durationOr(c.RefreshTokenTTL, 168*time.Hour)
}

// ThrottleWindow parses LoginThrottleWindow. Returns 15m if unset or invalid.
func (c *Config) ThrottleWindow() time.Duration {
	return durationOr(c.LoginThrottleWindow, 15*time.Minute)
}

// SweepEvery parses SweepInterval. Returns 10m if unset or invalid.
func (c *Config) SweepEvery() time.Duration {
	return durationOr(c.SweepInterval, 10*time.Minute)
}

func durationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// KafkaBrokersList returns broker addresses from the comma-separated config.
// A non-empty list means security-event publishing is enabled.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
