// Package config loads the service configuration from defaults, an optional
// YAML file, an optional dotenv file and the process environment, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backend names.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendRedis    = "redis"

	TokensSigned = "signed"
	TokensOpaque = "opaque"
)

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type CookieConfig struct {
	Name   string `yaml:"name"`
	Domain string `yaml:"domain"`
	Secure bool   `yaml:"secure"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type OIDCConfig struct {
	Issuer       string `yaml:"issuer"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// Enabled reports whether single sign-on is configured.
func (c OIDCConfig) Enabled() bool {
	return c.Issuer != "" && c.ClientID != "" && c.ClientSecret != ""
}

// Config is the complete service configuration.
type Config struct {
	Addr        string `yaml:"addr"`
	BaseURL     string `yaml:"base_url"`
	FrontendURL string `yaml:"frontend_url"`
	StaticDir   string `yaml:"static_dir"`
	DatabaseURL string `yaml:"database_url"`

	Storage      string `yaml:"storage"`
	SessionStore string `yaml:"session_store"`
	VerifyTokens string `yaml:"verify_tokens"`

	AuthSecret         string        `yaml:"auth_secret"`
	AllowedEmailDomain string        `yaml:"allowed_email_domain"`
	SessionTTL         time.Duration `yaml:"session_ttl"`
	VerifyTokenTTL     time.Duration `yaml:"verify_token_ttl"`
	SessionSweep       string        `yaml:"session_sweep"`

	Redis  RedisConfig  `yaml:"redis"`
	Cookie CookieConfig `yaml:"cookie"`
	SMTP   SMTPConfig   `yaml:"smtp"`
	Log    LogConfig    `yaml:"log"`
	OIDC   OIDCConfig   `yaml:"oidc"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Addr:               ":8080",
		BaseURL:            "http://localhost:8080",
		FrontendURL:        "http://localhost:3000",
		StaticDir:          "static",
		Storage:            BackendPostgres,
		SessionStore:       BackendPostgres,
		VerifyTokens:       TokensSigned,
		AllowedEmailDomain: "ufl.edu",
		SessionTTL:         time.Hour,
		VerifyTokenTTL:     time.Hour,
		SessionSweep:       "@every 10m",
		Cookie:             CookieConfig{Name: "snickerdoodle"},
		SMTP:               SMTPConfig{From: "Gator Market <noreply@localhost>"},
		Log:                LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration. Either path may be empty; a missing dotenv
// file is ignored. Variables loaded from envFile never override variables
// already present in the environment.
func Load(configFile, envFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		b, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configFile, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"ADDR":                 &c.Addr,
		"BASE_URL":             &c.BaseURL,
		"FRONTEND_URL":         &c.FrontendURL,
		"STATIC_DIR":           &c.StaticDir,
		"DATABASE_URL":         &c.DatabaseURL,
		"STORAGE":              &c.Storage,
		"SESSION_STORE":        &c.SessionStore,
		"VERIFY_TOKENS":        &c.VerifyTokens,
		"AUTH_SECRET":          &c.AuthSecret,
		"ALLOWED_EMAIL_DOMAIN": &c.AllowedEmailDomain,
		"SESSION_SWEEP":        &c.SessionSweep,
		"REDIS_ADDR":           &c.Redis.Addr,
		"REDIS_PASSWORD":       &c.Redis.Password,
		"COOKIE_NAME":          &c.Cookie.Name,
		"COOKIE_DOMAIN":        &c.Cookie.Domain,
		"SMTP_HOST":            &c.SMTP.Host,
		"SMTP_USER":            &c.SMTP.User,
		"SMTP_PASSWORD":        &c.SMTP.Password,
		"MAIL_FROM":            &c.SMTP.From,
		"LOG_LEVEL":            &c.Log.Level,
		"LOG_FORMAT":           &c.Log.Format,
		"LOG_FILE":             &c.Log.File,
		"OIDC_ISSUER":          &c.OIDC.Issuer,
		"OIDC_CLIENT_ID":       &c.OIDC.ClientID,
		"OIDC_CLIENT_SECRET":   &c.OIDC.ClientSecret,
	}
	for k, dst := range strs {
		if v, ok := os.LookupEnv(k); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"SESSION_TTL":      &c.SessionTTL,
		"VERIFY_TOKEN_TTL": &c.VerifyTokenTTL,
	}
	for k, dst := range durations {
		if v, ok := os.LookupEnv(k); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", k, err)
			}
			*dst = d
		}
	}

	if v, ok := os.LookupEnv("REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		c.Redis.DB = n
	}
	if v, ok := os.LookupEnv("COOKIE_SECURE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid COOKIE_SECURE: %w", err)
		}
		c.Cookie.Secure = b
	}
	return nil
}

func oneOf(name, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q: must be one of %s", name, v, strings.Join(allowed, ", "))
}

// Validate reports the first inconsistency in c.
func (c *Config) Validate() error {
	if err := oneOf("STORAGE", c.Storage, BackendPostgres, BackendMemory); err != nil {
		return err
	}
	if err := oneOf("SESSION_STORE", c.SessionStore, BackendPostgres, BackendRedis, BackendMemory); err != nil {
		return err
	}
	if err := oneOf("VERIFY_TOKENS", c.VerifyTokens, TokensSigned, TokensOpaque); err != nil {
		return err
	}
	if err := oneOf("LOG_FORMAT", c.Log.Format, "text", "json"); err != nil {
		return err
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q", c.Log.Level)
	}

	if c.AuthSecret == "" {
		return errors.New("AUTH_SECRET is required")
	}
	if c.AllowedEmailDomain == "" {
		return errors.New("ALLOWED_EMAIL_DOMAIN is required")
	}
	if c.Storage == BackendPostgres && c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for postgres storage")
	}
	if c.SessionStore == BackendPostgres && c.Storage != BackendPostgres {
		return errors.New("postgres session store requires postgres storage")
	}
	if c.SessionStore == BackendRedis && c.Redis.Addr == "" {
		return errors.New("REDIS_ADDR is required for the redis session store")
	}
	if c.SessionTTL <= 0 || c.VerifyTokenTTL <= 0 {
		return errors.New("SESSION_TTL and VERIFY_TOKEN_TTL must be positive")
	}
	if c.Cookie.Name == "" {
		return errors.New("COOKIE_NAME is required")
	}
	return nil
}

// VerifyURL is the absolute URL of the email verification endpoint.
func (c *Config) VerifyURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/auth/verify-email"
}

// SSOCallbackURL is the redirect URL registered with the identity provider.
func (c *Config) SSOCallbackURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/auth/sso/callback"
}
