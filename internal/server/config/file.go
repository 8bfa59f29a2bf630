package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/bizdesk/internal/flagx"
	"github.com/dmitrijs2005/bizdesk/internal/timex"
	"gopkg.in/yaml.v3"
)

type fileLimit struct {
	Max    int            `json:"max" yaml:"max"`
	Window timex.Duration `json:"window" yaml:"window"`
}

type fileRateLimits struct {
	Login         fileLimit `json:"login" yaml:"login"`
	Refresh       fileLimit `json:"refresh" yaml:"refresh"`
	OTPSend       fileLimit `json:"otp_send" yaml:"otp_send"`
	OTPVerify     fileLimit `json:"otp_verify" yaml:"otp_verify"`
	Download      fileLimit `json:"download" yaml:"download"`
	PasswordReset fileLimit `json:"password_reset" yaml:"password_reset"`
}

// FileConfig is the on-disk shape of the configuration. Durations use
// timex.Duration so both "10m" and integer nanoseconds are accepted.
// Keys missing from the file keep the value they had before loading.
type FileConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                    string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	CookieHashKey                string         `json:"cookie_hash_key" yaml:"cookie_hash_key"`
	CookieBlockKey               string         `json:"cookie_block_key" yaml:"cookie_block_key"`
	CookieSecure                 bool           `json:"cookie_secure" yaml:"cookie_secure"`
	OTPValidityDuration          timex.Duration `json:"otp_validity_duration" yaml:"otp_validity_duration"`
	OTPLength                    int            `json:"otp_length" yaml:"otp_length"`
	LimiterBackend               string         `json:"limiter_backend" yaml:"limiter_backend"`
	RedisURL                     string         `json:"redis_url" yaml:"redis_url"`
	LimiterPurgeInterval         timex.Duration `json:"limiter_purge_interval" yaml:"limiter_purge_interval"`
	RateLimits                   fileRateLimits `json:"rate_limits" yaml:"rate_limits"`
	SMTPHost                     string         `json:"smtp_host" yaml:"smtp_host"`
	SMTPPort                     int            `json:"smtp_port" yaml:"smtp_port"`
	SMTPUser                     string         `json:"smtp_user" yaml:"smtp_user"`
	SMTPPassword                 string         `json:"smtp_password" yaml:"smtp_password"`
	MailFrom                     string         `json:"mail_from" yaml:"mail_from"`
	S3RootUser                   string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                     string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	LogBackend                   string         `json:"log_backend" yaml:"log_backend"`
	LogLevel                     string         `json:"log_level" yaml:"log_level"`
}

func toFileLimit(l Limit) fileLimit {
	return fileLimit{Max: l.Max, Window: timex.Duration{Duration: l.Window}}
}

func (l fileLimit) limit() Limit {
	return Limit{Max: l.Max, Window: l.Window.Duration}
}

func newFileConfig(c *Config) *FileConfig {
	return &FileConfig{
		EndpointAddrHTTP:             c.EndpointAddrHTTP,
		EndpointAddrGRPC:             c.EndpointAddrGRPC,
		DatabaseDSN:                  c.DatabaseDSN,
		SecretKey:                    c.SecretKey,
		AccessTokenValidityDuration:  timex.Duration{Duration: c.AccessTokenValidityDuration},
		RefreshTokenValidityDuration: timex.Duration{Duration: c.RefreshTokenValidityDuration},
		CookieHashKey:                c.CookieHashKey,
		CookieBlockKey:               c.CookieBlockKey,
		CookieSecure:                 c.CookieSecure,
		OTPValidityDuration:          timex.Duration{Duration: c.OTPValidityDuration},
		OTPLength:                    c.OTPLength,
		LimiterBackend:               c.LimiterBackend,
		RedisURL:                     c.RedisURL,
		LimiterPurgeInterval:         timex.Duration{Duration: c.LimiterPurgeInterval},
		RateLimits: fileRateLimits{
			Login:         toFileLimit(c.LoginLimit),
			Refresh:       toFileLimit(c.RefreshLimit),
			OTPSend:       toFileLimit(c.OTPSendLimit),
			OTPVerify:     toFileLimit(c.OTPVerifyLimit),
			Download:      toFileLimit(c.DownloadLimit),
			PasswordReset: toFileLimit(c.PasswordResetLimit),
		},
		SMTPHost:       c.SMTPHost,
		SMTPPort:       c.SMTPPort,
		SMTPUser:       c.SMTPUser,
		SMTPPassword:   c.SMTPPassword,
		MailFrom:       c.MailFrom,
		S3RootUser:     c.S3RootUser,
		S3RootPassword: c.S3RootPassword,
		S3Bucket:       c.S3Bucket,
		S3Region:       c.S3Region,
		S3BaseEndpoint: c.S3BaseEndpoint,
		LogBackend:     c.LogBackend,
		LogLevel:       c.LogLevel,
	}
}

func (f *FileConfig) apply(c *Config) {
	c.EndpointAddrHTTP = f.EndpointAddrHTTP
	c.EndpointAddrGRPC = f.EndpointAddrGRPC
	c.DatabaseDSN = f.DatabaseDSN
	c.SecretKey = f.SecretKey
	c.AccessTokenValidityDuration = f.AccessTokenValidityDuration.Duration
	c.RefreshTokenValidityDuration = f.RefreshTokenValidityDuration.Duration
	c.CookieHashKey = f.CookieHashKey
	c.CookieBlockKey = f.CookieBlockKey
	c.CookieSecure = f.CookieSecure
	c.OTPValidityDuration = f.OTPValidityDuration.Duration
	c.OTPLength = f.OTPLength
	c.LimiterBackend = f.LimiterBackend
	c.RedisURL = f.RedisURL
	c.LimiterPurgeInterval = f.LimiterPurgeInterval.Duration
	c.LoginLimit = f.RateLimits.Login.limit()
	c.RefreshLimit = f.RateLimits.Refresh.limit()
	c.OTPSendLimit = f.RateLimits.OTPSend.limit()
	c.OTPVerifyLimit = f.RateLimits.OTPVerify.limit()
	c.DownloadLimit = f.RateLimits.Download.limit()
	c.PasswordResetLimit = f.RateLimits.PasswordReset.limit()
	c.SMTPHost = f.SMTPHost
	c.SMTPPort = f.SMTPPort
	c.SMTPUser = f.SMTPUser
	c.SMTPPassword = f.SMTPPassword
	c.MailFrom = f.MailFrom
	c.S3RootUser = f.S3RootUser
	c.S3RootPassword = f.S3RootPassword
	c.S3Bucket = f.S3Bucket
	c.S3Region = f.S3Region
	c.S3BaseEndpoint = f.S3BaseEndpoint
	c.LogBackend = f.LogBackend
	c.LogLevel = f.LogLevel
}

// parseFile overlays values from the file named by -c / -config.
// Files ending in .yaml or .yml are decoded as YAML, anything else as JSON.
// Without the flag nothing is loaded.
func parseFile(config *Config) error {
	path := flagx.ConfigFileFlag(os.Args[1:])
	if path == "" {
		return nil
	}
	return loadFile(config, path)
}

func loadFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	fc := newFileConfig(config)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}
