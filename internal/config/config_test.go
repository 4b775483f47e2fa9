package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "s3cret")
	t.Setenv("STORAGE", "memory")
	t.Setenv("SESSION_STORE", "memory")

	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "snickerdoodle", cfg.Cookie.Name)
	assert.Equal(t, "ufl.edu", cfg.AllowedEmailDomain)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, TokensSigned, cfg.VerifyTokens)
	assert.Equal(t, "http://localhost:8080/auth/verify-email", cfg.VerifyURL())
}

func TestLoad_Precedence(t *testing.T) {
	file := writeFile(t, "config.yml", `
addr: ":9000"
storage: memory
session_store: memory
auth_secret: from-file
session_ttl: 30m
cookie:
  name: yamlcookie
  secure: true
log:
  level: debug
  format: json
`)
	envFile := writeFile(t, ".env", "AUTH_SECRET=from-dotenv\nADDR=:9100\n")
	t.Setenv("ADDR", ":9200")
	t.Cleanup(func() { _ = os.Unsetenv("AUTH_SECRET") })

	cfg, err := Load(file, envFile)
	require.NoError(t, err)

	assert.Equal(t, ":9200", cfg.Addr, "process env wins over dotenv and file")
	assert.Equal(t, "from-dotenv", cfg.AuthSecret, "dotenv wins over file")
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "yamlcookie", cfg.Cookie.Name)
	assert.True(t, cfg.Cookie.Secure)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	t.Setenv("AUTH_SECRET", "x")
	t.Setenv("STORAGE", "memory")
	t.Setenv("SESSION_STORE", "memory")

	_, err := Load("", filepath.Join(t.TempDir(), "nope.env"))
	require.NoError(t, err)
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("AUTH_SECRET", "x")
	t.Setenv("SESSION_TTL", "soon")

	_, err := Load("", "")
	require.ErrorContains(t, err, "SESSION_TTL")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.AuthSecret = "x"
		c.DatabaseURL = "postgres://localhost/market"
		return c
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"unknown storage", func(c *Config) { c.Storage = "sqlite" }, "STORAGE"},
		{"unknown session store", func(c *Config) { c.SessionStore = "files" }, "SESSION_STORE"},
		{"unknown token mode", func(c *Config) { c.VerifyTokens = "magic" }, "VERIFY_TOKENS"},
		{"empty secret", func(c *Config) { c.AuthSecret = "" }, "AUTH_SECRET"},
		{"missing dsn", func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL"},
		{"pg sessions on memory storage", func(c *Config) { c.Storage = BackendMemory }, "postgres session store"},
		{"redis without addr", func(c *Config) { c.SessionStore = BackendRedis }, "REDIS_ADDR"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "LOG_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.ErrorContains(t, c.Validate(), tt.want)
		})
	}
}

func TestOIDCEnabled(t *testing.T) {
	assert.False(t, OIDCConfig{Issuer: "https://idp"}.Enabled())
	assert.True(t, OIDCConfig{Issuer: "https://idp", ClientID: "a", ClientSecret: "b"}.Enabled())
}
