// Package config handles configuration for the server component:
// defaults, a JSON or YAML file overlay, environment variables and
// command-line flags, applied in that order.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Limit is a fixed-window rate limit: at most Max requests per Window.
type Limit struct {
	Max    int
	Window time.Duration
}

// Config holds runtime settings for the bizdesk server.
//
// Fields:
//   - EndpointAddrHTTP / EndpointAddrGRPC: bind addresses for the web and mobile endpoints.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects in-memory stores.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - CookieHashKey / CookieBlockKey / CookieSecure: browser session cookie codec.
//   - OTPValidityDuration / OTPLength: one-time code settings.
//   - LimiterBackend / RedisURL / LimiterPurgeInterval and the *Limit fields: rate limiting.
//   - SMTP*: outbound mail; an empty SMTPHost logs codes instead of sending them.
//   - S3*: object storage for gated downloads.
//   - LogBackend / LogLevel: "slog" or "zap", and the minimum level.
type Config struct {
	EndpointAddrHTTP string
	EndpointAddrGRPC string
	DatabaseDSN      string

	SecretKey                    string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration

	CookieHashKey  string
	CookieBlockKey string
	CookieSecure   bool

	OTPValidityDuration time.Duration
	OTPLength           int

	LimiterBackend       string
	RedisURL             string
	LimiterPurgeInterval time.Duration
	LoginLimit           Limit
	RefreshLimit         Limit
	OTPSendLimit         Limit
	OTPVerifyLimit       Limit
	DownloadLimit        Limit
	PasswordResetLimit   Limit

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	S3RootUser     string
	S3RootPassword string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string

	LogBackend string
	LogLevel   string
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 30 * 24 * time.Hour
	c.CookieHashKey = "dev-cookie-hash-key-change-me-32"
	c.CookieBlockKey = "dev-cookie-block-key-change-me32"
	c.CookieSecure = false
	c.OTPValidityDuration = 10 * time.Minute
	c.OTPLength = 6
	c.LimiterBackend = "memory"
	c.RedisURL = ""
	c.LimiterPurgeInterval = 5 * time.Minute
	c.LoginLimit = Limit{Max: 10, Window: 15 * time.Minute}
	c.RefreshLimit = Limit{Max: 30, Window: time.Minute}
	c.OTPSendLimit = Limit{Max: 5, Window: 15 * time.Minute}
	c.OTPVerifyLimit = Limit{Max: 10, Window: 15 * time.Minute}
	c.DownloadLimit = Limit{Max: 5, Window: 15 * time.Minute}
	c.PasswordResetLimit = Limit{Max: 5, Window: time.Hour}
	c.SMTPHost = ""
	c.SMTPPort = 587
	c.MailFrom = "no-reply@bizdesk.local"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "downloads"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.LogBackend = "slog"
	c.LogLevel = "info"
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is empty"))
	}
	if c.AccessTokenValidityDuration <= 0 || c.RefreshTokenValidityDuration <= 0 {
		errs = append(errs, errors.New("token validity durations must be positive"))
	}
	if c.OTPLength < 4 || c.OTPLength > 10 {
		errs = append(errs, fmt.Errorf("otp length %d out of range [4,10]", c.OTPLength))
	}
	switch c.LimiterBackend {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			errs = append(errs, errors.New("redis limiter backend requires a redis url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown limiter backend %q", c.LimiterBackend))
	}
	switch c.LogBackend {
	case "slog", "zap":
	default:
		errs = append(errs, fmt.Errorf("unknown log backend %q", c.LogBackend))
	}

	return errors.Join(errs...)
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file, the environment and finally from
// command-line flags.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if err := parseEnv(cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if err := parseFlags(cfg); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
