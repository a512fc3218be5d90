package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "data/stagehand.db", cfg.Database.DSN)
	assert.Equal(t, int64(10<<20), cfg.Blob.MaxUploadBytes)
	assert.False(t, cfg.Blob.Enabled())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://localhost/stagehand")
	t.Setenv("BLOB_BUCKET", "media")
	t.Setenv("BLOB_PATH_STYLE", "true")
	t.Setenv("OIDC_ALLOWED_DOMAINS", "example.com, band.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.Blob.Enabled())
	assert.True(t, cfg.Blob.PathStyle)
	assert.Equal(t, []string{"example.com", "band.example"}, cfg.OIDC.GetAllowedDomains())
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "DB_DRIVER"},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }, "DB_DSN"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "LOG_FORMAT"},
		{"half blob credentials", func(c *Config) {
			c.Blob.Bucket = "media"
			c.Blob.AccessKeyID = "id"
		}, "BLOB_ACCESS_KEY_ID"},
		{"oidc without issuer", func(c *Config) { c.OIDC.Enabled = true }, "OIDC_ISSUER_URL"},
		{"oidc short secret", func(c *Config) {
			c.OIDC.Enabled = true
			c.OIDC.IssuerURL = "https://issuer.example"
			c.OIDC.ClientID = "id"
			c.OIDC.ClientSecret = "secret"
			c.OIDC.RedirectURL = "https://site.example/auth/callback"
			c.OIDC.SessionSecret = "short"
		}, "32 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
		})
	}
}

func TestSessionSecretHex(t *testing.T) {
	c := OIDCConfig{SessionSecret: strings.Repeat("ab", 32)}
	b, err := c.GetSessionSecretBytes()
	require.NoError(t, err)
	assert.Len(t, b, 32)
}
