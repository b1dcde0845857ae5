package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"
)

// Config holds all application configuration.
type Config struct {
	CMS    CMSConfig    `toml:"cms"`
	Site   SiteConfig   `toml:"site"`
	Server ServerConfig `toml:"server"`
	Cache  CacheConfig  `toml:"cache"`
}

// CMSConfig holds the content repository settings.
type CMSConfig struct {
	Endpoint       string `toml:"endpoint"`
	AccessToken    string `toml:"access_token"`
	DocumentType   string `toml:"document_type"`
	Lang           string `toml:"lang"`
	PageSize       int    `toml:"page_size"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// SiteConfig holds listing page settings.
type SiteConfig struct {
	Title    string `toml:"title"`
	Timezone string `toml:"timezone"`
	MaxPages int    `toml:"max_pages"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int  `toml:"port"`
	AutoOpenBrowser bool `toml:"auto_open_browser"`
}

// CacheConfig holds response cache settings. A TTL of 0 disables caching.
type CacheConfig struct {
	TTLSeconds int `toml:"ttl_seconds"`
}

// Timeout returns the CMS request timeout.
func (c CMSConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TTL returns the cache time-to-live.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// Location returns the time zone dates are displayed in. Load has already
// validated the name.
func (c SiteConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

const defaultConfigContent = `[cms]
endpoint = "https://spacetraveling.cdn.prismic.io/api/v2"
access_token = ""                 # Or set PRISMIC_ACCESS_TOKEN
document_type = "posts"
lang = "pt-BR"
page_size = 1
timeout_seconds = 30

[site]
title = "Home | spacetraveling"
timezone = "UTC"
max_pages = 50

[server]
port = 3000
auto_open_browser = false

[cache]
ttl_seconds = 300
`

// Load reads and parses the TOML config from the given path. If the file does
// not exist, it creates a default config file at that path. Environment
// variables override values from the file with highest priority.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
		slog.Info("created default config file", "path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		slog.Warn("unknown config keys ignored", "keys", fmt.Sprint(undecoded))
	}

	// Validate explicitly-set values before applying defaults, so that
	// explicitly writing "port = 0" is an error rather than silently
	// being replaced with the default.
	if err := validateExplicit(&cfg, md); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	applyDefaults(&cfg, md)
	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// createDefault writes the default config content to the given path,
// creating any parent directories as needed.
func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// validateExplicit checks values that were explicitly set in the TOML file.
func validateExplicit(cfg *Config, md toml.MetaData) error {
	if md.IsDefined("server", "port") {
		if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
			return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
		}
	}
	if md.IsDefined("cms", "page_size") {
		if cfg.CMS.PageSize < 1 || cfg.CMS.PageSize > 100 {
			return fmt.Errorf("invalid cms.page_size %d: must be between 1 and 100", cfg.CMS.PageSize)
		}
	}
	if md.IsDefined("site", "max_pages") {
		if cfg.Site.MaxPages < 1 {
			return fmt.Errorf("invalid site.max_pages %d: must be >= 1", cfg.Site.MaxPages)
		}
	}
	if md.IsDefined("cache", "ttl_seconds") {
		if cfg.Cache.TTLSeconds < 0 {
			return fmt.Errorf("invalid cache.ttl_seconds %d: must be >= 0", cfg.Cache.TTLSeconds)
		}
	}
	return nil
}

// applyDefaults sets default values for any zero-valued fields.
func applyDefaults(cfg *Config, md toml.MetaData) {
	if cfg.CMS.Endpoint == "" {
		cfg.CMS.Endpoint = "https://spacetraveling.cdn.prismic.io/api/v2"
	}
	if cfg.CMS.DocumentType == "" {
		cfg.CMS.DocumentType = "posts"
	}
	if cfg.CMS.Lang == "" {
		cfg.CMS.Lang = "pt-BR"
	}
	if cfg.CMS.PageSize == 0 {
		cfg.CMS.PageSize = 1
	}
	if cfg.CMS.TimeoutSeconds == 0 {
		cfg.CMS.TimeoutSeconds = 30
	}
	if cfg.Site.Title == "" {
		cfg.Site.Title = "Home | spacetraveling"
	}
	if cfg.Site.Timezone == "" {
		cfg.Site.Timezone = "UTC"
	}
	if cfg.Site.MaxPages == 0 {
		cfg.Site.MaxPages = 50
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	// "ttl_seconds = 0" is a valid way to turn the cache off.
	if !md.IsDefined("cache", "ttl_seconds") {
		cfg.Cache.TTLSeconds = 300
	}
}

// applyEnvOverrides applies environment variable overrides. Environment
// variables take highest priority over config file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PRISMIC_API_ENDPOINT"); v != "" {
		cfg.CMS.Endpoint = v
	}
	if v := os.Getenv("PRISMIC_ACCESS_TOKEN"); v != "" {
		cfg.CMS.AccessToken = v
	}
}

// validate checks that configuration values are within acceptable ranges.
func validate(cfg *Config) error {
	u, err := url.Parse(cfg.CMS.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid cms.endpoint %q: must be an absolute http(s) URL", cfg.CMS.Endpoint)
	}

	tag, err := language.Parse(cfg.CMS.Lang)
	if err != nil {
		return fmt.Errorf("invalid cms.lang %q: %w", cfg.CMS.Lang, err)
	}
	cfg.CMS.Lang = tag.String()

	if cfg.CMS.PageSize < 1 || cfg.CMS.PageSize > 100 {
		return fmt.Errorf("invalid cms.page_size %d: must be between 1 and 100", cfg.CMS.PageSize)
	}

	if cfg.CMS.TimeoutSeconds < 1 {
		return fmt.Errorf("invalid cms.timeout_seconds %d: must be >= 1", cfg.CMS.TimeoutSeconds)
	}

	if _, err := time.LoadLocation(cfg.Site.Timezone); err != nil {
		return fmt.Errorf("invalid site.timezone %q: %w", cfg.Site.Timezone, err)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
	}

	if cfg.CMS.AccessToken == "" {
		slog.Warn("cms.access_token is empty: private repositories need it (or PRISMIC_ACCESS_TOKEN)")
	}

	return nil
}
