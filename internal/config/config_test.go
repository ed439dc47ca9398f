package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:                     "8080",
		Env:                      "development",
		DBDriver:                 "postgres",
		DBPassword:               "secure-password",
		JWTSecret:                "secure-secret-at-least-32-chars-long",
		StorageTimeoutMS:         1000,
		FeedMaxItems:             50,
		PostMaxLength:            280,
		FollowingCacheTTLSeconds: 30,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid development", func(_ *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing jwt secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"sqlite without path", func(c *Config) { c.DBDriver = "sqlite"; c.SQLitePath = "" }, true},
		{"sqlite with path", func(c *Config) { c.DBDriver = "sqlite"; c.SQLitePath = "x.db" }, false},
		{"zero storage timeout", func(c *Config) { c.StorageTimeoutMS = 0 }, true},
		{"zero feed cap", func(c *Config) { c.FeedMaxItems = 0 }, true},
		{"zero post length", func(c *Config) { c.PostMaxLength = 0 }, true},
		{"production default secret", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = "your-secret-key-change-in-production"
		}, true},
		{"production short secret", func(c *Config) { c.Env = "prod"; c.JWTSecret = "short" }, true},
		{"production weak db password", func(c *Config) { c.Env = "production"; c.DBPassword = "password" }, true},
		{"production ok", func(c *Config) { c.Env = "production" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Durations(t *testing.T) {
	c := validConfig()
	assert.Equal(t, time.Second, c.StorageTimeout())
	assert.Equal(t, 30*time.Second, c.FollowingCacheTTL())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	defer viper.Reset()
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_DRIVER")
	defer os.Unsetenv("FEED_MAX_ITEMS")

	os.Setenv("APP_ENV", "test")
	os.Setenv("DB_DRIVER", "  SQLite ")
	os.Setenv("FEED_MAX_ITEMS", "25")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 25, cfg.FeedMaxItems)
	assert.Equal(t, 280, cfg.PostMaxLength)
	assert.Equal(t, "8375", cfg.Port)
}
