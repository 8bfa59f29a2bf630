package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "BIZDESK_"

// dotEnvFile is loaded, if present, before reading the environment.
// Variables already set in the process environment win.
var dotEnvFile = ".env"

type envVar struct {
	name string
	set  func(c *Config, v string) error
}

func str(dst func(c *Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func dur(dst func(c *Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst(c) = d
		return nil
	}
}

func num(dst func(c *Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func boolean(dst func(c *Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst(c) = b
		return nil
	}
}

var envVars = []envVar{
	{"HTTP_ADDR", str(func(c *Config) *string { return &c.EndpointAddrHTTP })},
	{"GRPC_ADDR", str(func(c *Config) *string { return &c.EndpointAddrGRPC })},
	{"DATABASE_DSN", str(func(c *Config) *string { return &c.DatabaseDSN })},
	{"SECRET_KEY", str(func(c *Config) *string { return &c.SecretKey })},
	{"ACCESS_TOKEN_TTL", dur(func(c *Config) *time.Duration { return &c.AccessTokenValidityDuration })},
	{"REFRESH_TOKEN_TTL", dur(func(c *Config) *time.Duration { return &c.RefreshTokenValidityDuration })},
	{"COOKIE_HASH_KEY", str(func(c *Config) *string { return &c.CookieHashKey })},
	{"COOKIE_BLOCK_KEY", str(func(c *Config) *string { return &c.CookieBlockKey })},
	{"COOKIE_SECURE", boolean(func(c *Config) *bool { return &c.CookieSecure })},
	{"OTP_TTL", dur(func(c *Config) *time.Duration { return &c.OTPValidityDuration })},
	{"OTP_LENGTH", num(func(c *Config) *int { return &c.OTPLength })},
	{"LIMITER_BACKEND", str(func(c *Config) *string { return &c.LimiterBackend })},
	{"REDIS_URL", str(func(c *Config) *string { return &c.RedisURL })},
	{"LIMITER_PURGE_INTERVAL", dur(func(c *Config) *time.Duration { return &c.LimiterPurgeInterval })},
	{"SMTP_HOST", str(func(c *Config) *string { return &c.SMTPHost })},
	{"SMTP_PORT", num(func(c *Config) *int { return &c.SMTPPort })},
	{"SMTP_USER", str(func(c *Config) *string { return &c.SMTPUser })},
	{"SMTP_PASSWORD", str(func(c *Config) *string { return &c.SMTPPassword })},
	{"MAIL_FROM", str(func(c *Config) *string { return &c.MailFrom })},
	{"S3_ROOT_USER", str(func(c *Config) *string { return &c.S3RootUser })},
	{"S3_ROOT_PASSWORD", str(func(c *Config) *string { return &c.S3RootPassword })},
	{"S3_BUCKET", str(func(c *Config) *string { return &c.S3Bucket })},
	{"S3_REGION", str(func(c *Config) *string { return &c.S3Region })},
	{"S3_BASE_ENDPOINT", str(func(c *Config) *string { return &c.S3BaseEndpoint })},
	{"LOG_BACKEND", str(func(c *Config) *string { return &c.LogBackend })},
	{"LOG_LEVEL", str(func(c *Config) *string { return &c.LogLevel })},
}

// parseEnv loads .env (best effort) and overlays every BIZDESK_* variable
// that is set and non-empty.
func parseEnv(config *Config) error {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", dotEnvFile, err)
	}

	var errs []error
	for _, ev := range envVars {
		name := EnvPrefix + ev.name
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			continue
		}
		if err := ev.set(config, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
