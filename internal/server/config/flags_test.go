package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	defaults := func() *Config {
		c := &Config{}
		c.LoadDefaults()
		return c
	}

	tests := []struct {
		expected func() *Config
		name     string
		args     []string
		wantErr  bool
	}{
		{
			name: "all short and long flags",
			args: []string{
				"-a", "127.0.0.1:8081", "-grpc", "127.0.0.1:9090", "-d", "db", "-s", "secret",
				"-t", "1", "-r", "3", "-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1",
				"-e", "http://endpoint", "-limiter", "redis", "-redis", "redis://r:6379/0",
				"-smtp", "mail.local", "-log", "zap", "-level", "debug", "-secure-cookie",
			},
			expected: func() *Config {
				c := defaults()
				c.EndpointAddrHTTP = "127.0.0.1:8081"
				c.EndpointAddrGRPC = "127.0.0.1:9090"
				c.DatabaseDSN = "db"
				c.SecretKey = "secret"
				c.AccessTokenValidityDuration = 1 * time.Minute
				c.RefreshTokenValidityDuration = 3 * time.Minute
				c.S3RootUser = "user"
				c.S3RootPassword = "password"
				c.S3Bucket = "bucket"
				c.S3Region = "us-west-1"
				c.S3BaseEndpoint = "http://endpoint"
				c.LimiterBackend = "redis"
				c.RedisURL = "redis://r:6379/0"
				c.SMTPHost = "mail.local"
				c.LogBackend = "zap"
				c.LogLevel = "debug"
				c.CookieSecure = true
				return c
			},
		},
		{
			name:     "config flag and unknown flags are ignored",
			args:     []string{"-config", "bizdesk.yaml", "-x", "1", "-d=pg"},
			expected: func() *Config { c := defaults(); c.DatabaseDSN = "pg"; return c },
		},
		{
			name:    "bad number",
			args:    []string{"-t", "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := defaults()

			err := parseFlagArgs(config, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected(), config))
		})
	}
}

func TestParseFlags_KeepsSubMinuteDurationsWhenNotGiven(t *testing.T) {
	c := &Config{AccessTokenValidityDuration: 30 * time.Second, RefreshTokenValidityDuration: time.Hour}

	require.NoError(t, parseFlagArgs(c, []string{"-a", ":1"}))

	assert.Equal(t, 30*time.Second, c.AccessTokenValidityDuration)
	assert.Equal(t, time.Hour, c.RefreshTokenValidityDuration)
}
