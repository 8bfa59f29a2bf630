package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/bizdesk/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string          HTTP bind address (e.g., ":8080")
//	-grpc string       gRPC bind address (e.g., ":50051")
//	-d string          PostgreSQL DSN; empty runs on in-memory stores
//	-s string          JWT HMAC secret key
//	-t int             access token validity, minutes
//	-r int             refresh token validity, minutes
//	-limiter string    rate limiter backend: memory or redis
//	-redis string      Redis URL for the redis limiter
//	-smtp string       SMTP host
//	-u string          S3 root user
//	-p string          S3 root password
//	-b string          S3 bucket name
//	-g string          S3 region
//	-e string          S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-log string        log backend: slog or zap
//	-level string      log level
//	-secure-cookie     mark the session cookie Secure
//
// Only the flags defined here are taken from os.Args (see flagx.FilterArgs),
// so -c / -config and foreign flags do not break parsing.
func parseFlags(config *Config) error {
	return parseFlagArgs(config, os.Args[1:])
}

func parseFlagArgs(config *Config, osArgs []string) error {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run the HTTP server")
	fs.StringVar(&config.EndpointAddrGRPC, "grpc", config.EndpointAddrGRPC, "address and port to run the gRPC server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.LimiterBackend, "limiter", config.LimiterBackend, "rate limiter backend (memory|redis)")
	fs.StringVar(&config.RedisURL, "redis", config.RedisURL, "redis url")
	fs.StringVar(&config.SMTPHost, "smtp", config.SMTPHost, "SMTP host")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.LogBackend, "log", config.LogBackend, "log backend (slog|zap)")
	fs.StringVar(&config.LogLevel, "level", config.LogLevel, "log level")
	fs.BoolVar(&config.CookieSecure, "secure-cookie", config.CookieSecure, "set Secure on the session cookie")

	args := flagx.FilterArgs(osArgs, flagx.Names(fs))
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Only override durations that were given explicitly so sub-minute
	// values from files or the environment survive.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
		}
	})

	return nil
}
