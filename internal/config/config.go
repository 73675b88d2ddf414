package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPath = "config/config.yaml"

	// devSecret is accepted only so a fresh checkout starts; never deploy it.
	devSecret = "your-secret-key-change-in-production"

	StoreCookie   = "cookie"
	StorePostgres = "postgres"
)

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type BackendConfig struct {
	BaseURL         string        `yaml:"base_url"`
	APIPrefix       string        `yaml:"api_prefix"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ProbeTimeout    time.Duration `yaml:"probe_timeout"`
	ScanTimeout     time.Duration `yaml:"scan_timeout"`
	ScanPageSize    int           `yaml:"scan_page_size"`
	ScanMaxItems    int           `yaml:"scan_max_items"`
	LegacyEndpoints bool          `yaml:"legacy_endpoints"`
}

type WeightsConfig struct {
	Identifier int `yaml:"identifier"`
	Account    int `yaml:"account"`
	Contact    int `yaml:"contact"`
	Descriptor int `yaml:"descriptor"`
}

// ResolverConfig holds the heuristic scan scoring. The values were tuned
// against one production dataset; treat them as settings, not rules.
type ResolverConfig struct {
	Threshold int           `yaml:"threshold"`
	Weights   WeightsConfig `yaml:"weights"`
}

type SessionConfig struct {
	SecretKey  string        `yaml:"secret_key"`
	CookieName string        `yaml:"cookie_name"`
	MaxAge     time.Duration `yaml:"max_age"`
	Secure     bool          `yaml:"secure"`
	Store      string        `yaml:"store"`
}

type DatabaseConfig struct {
	DSN string `yaml:"url"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type PDFConfig struct {
	FontPath string `yaml:"font_path"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Backend  BackendConfig  `yaml:"backend"`
	Resolver ResolverConfig `yaml:"resolver"`
	Session  SessionConfig  `yaml:"session"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	PDF      PDFConfig      `yaml:"pdf"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            5000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Backend: BackendConfig{
			BaseURL:         "http://127.0.0.1:8000",
			APIPrefix:       "/api",
			RequestTimeout:  10 * time.Second,
			ProbeTimeout:    10 * time.Second,
			ScanTimeout:     30 * time.Second,
			ScanPageSize:    100,
			ScanMaxItems:    1000,
			LegacyEndpoints: true,
		},
		Resolver: ResolverConfig{
			Threshold: 5,
			Weights: WeightsConfig{
				Identifier: 10,
				Account:    3,
				Contact:    2,
				Descriptor: 2,
			},
		},
		Session: SessionConfig{
			SecretKey:  devSecret,
			CookieName: "lp_session",
			MaxAge:     12 * time.Hour,
			Store:      StoreCookie,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path on top of Default, applies env
// overrides and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("FASTAPI_BASE_URL")); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		c.Session.SecretKey = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		c.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

// fillDefaults restores zero values a partial file may have left behind.
func (c *Config) fillDefaults() {
	d := Default()
	if c.Backend.APIPrefix == "" {
		c.Backend.APIPrefix = d.Backend.APIPrefix
	}
	c.Backend.APIPrefix = "/" + strings.Trim(c.Backend.APIPrefix, "/")
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Backend.RequestTimeout <= 0 {
		c.Backend.RequestTimeout = d.Backend.RequestTimeout
	}
	if c.Backend.ProbeTimeout <= 0 {
		c.Backend.ProbeTimeout = d.Backend.ProbeTimeout
	}
	if c.Backend.ScanTimeout <= 0 {
		c.Backend.ScanTimeout = d.Backend.ScanTimeout
	}
	if c.Backend.ScanPageSize <= 0 {
		c.Backend.ScanPageSize = d.Backend.ScanPageSize
	}
	if c.Backend.ScanMaxItems <= 0 {
		c.Backend.ScanMaxItems = d.Backend.ScanMaxItems
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = d.Session.CookieName
	}
	if c.Session.MaxAge <= 0 {
		c.Session.MaxAge = d.Session.MaxAge
	}
	if c.Session.Store == "" {
		c.Session.Store = StoreCookie
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.base_url %q is not an absolute URL", c.Backend.BaseURL)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Session.SecretKey == "" {
		return errors.New("session.secret_key is required")
	}
	if c.Session.SecretKey != devSecret && len(c.Session.SecretKey) < 16 {
		return errors.New("session.secret_key must be at least 16 bytes")
	}
	switch c.Session.Store {
	case StoreCookie:
	case StorePostgres:
		if c.Database.DSN == "" {
			return errors.New("database.url is required for the postgres session store")
		}
	default:
		return fmt.Errorf("session.store %q: want %q or %q", c.Session.Store, StoreCookie, StorePostgres)
	}
	if c.Resolver.Threshold <= 0 {
		return errors.New("resolver.threshold must be positive")
	}
	return nil
}

// UsesDevSecret reports whether the built-in development secret is active.
func (c *Config) UsesDevSecret() bool {
	return c.Session.SecretKey == devSecret
}
