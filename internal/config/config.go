// Package config loads the feedload command-line configuration.
//
// The file format follows the extension: .yaml and .yml are read as YAML,
// anything else as TOML. ${VAR} references are expanded from the
// environment before decoding, and FEEDLOAD_* variables override the file.
//
//	cache_dir    = "/var/cache/feedload"
//	cache_expiry = "2 hours"
//	timezone     = "Europe/Berlin"
//
//	[log]
//	level = "debug"
//	file  = "/var/log/feedload.log"
//
//	[feeds.intranet]
//	url  = "https://intranet.example.com/news.rss"
//	user = "reader"
//	pass = "${INTRANET_PASSWORD}"
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	_ "time/tzdata" // timezone names resolve on hosts without zoneinfo

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/feedload/pkg/cache"
	"github.com/matzehuels/feedload/pkg/errors"
	"github.com/matzehuels/feedload/pkg/transport"
)

const appName = "feedload"

// Config is the CLI configuration.
type Config struct {
	CacheDir        string        `toml:"cache_dir" yaml:"cache_dir" env:"FEEDLOAD_CACHE_DIR, overwrite"`
	CacheExpiry     cache.Expiry  `toml:"cache_expiry" yaml:"cache_expiry" env:"FEEDLOAD_CACHE_EXPIRY, overwrite"`
	Timeout         time.Duration `toml:"timeout" yaml:"timeout" env:"FEEDLOAD_TIMEOUT, overwrite"`
	FollowRedirects *bool         `toml:"follow_redirects" yaml:"follow_redirects" env:"FEEDLOAD_FOLLOW_REDIRECTS, overwrite, noinit"`
	Timezone        string        `toml:"timezone" yaml:"timezone" env:"FEEDLOAD_TIMEZONE, overwrite"`

	Log   LogConfig       `toml:"log" yaml:"log"`
	Feeds map[string]Feed `toml:"feeds" yaml:"feeds"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `toml:"level" yaml:"level" env:"FEEDLOAD_LOG_LEVEL, overwrite"`
	File       string `toml:"file" yaml:"file" env:"FEEDLOAD_LOG_FILE, overwrite"`
	MaxSizeMB  int    `toml:"max_size_mb" yaml:"max_size_mb" env:"FEEDLOAD_LOG_MAX_SIZE_MB, overwrite"`
	MaxBackups int    `toml:"max_backups" yaml:"max_backups" env:"FEEDLOAD_LOG_MAX_BACKUPS, overwrite"`
}

// Feed is a named feed that can be used in place of a URL.
type Feed struct {
	URL  string `toml:"url" yaml:"url"`
	User string `toml:"user" yaml:"user"`
	Pass string `toml:"pass" yaml:"pass"`
}

// Credentials returns the feed's basic-auth credentials, or nil when the
// feed declares no user.
func (f Feed) Credentials() *transport.Credentials {
	if f.User == "" && f.Pass == "" {
		return nil
	}
	return &transport.Credentials{User: f.User, Pass: f.Pass}
}

// DefaultPath returns the config file location using the XDG standard
// (~/.config/feedload/config.toml).
func DefaultPath() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// DefaultCacheDir returns the cache directory using the XDG standard
// (~/.cache/feedload/).
func DefaultCacheDir() (string, error) {
	if home := os.Getenv("XDG_CACHE_HOME"); home != "" {
		return filepath.Join(home, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// Load reads the config file at path, applies environment overrides and
// fills defaults. An empty path means DefaultPath, which may be missing; an
// explicit path must exist.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg := &Config{}

	explicit := path != ""
	if !explicit {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if explicit {
				return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "config file %s", path)
			}
		}
	}

	if err := envconfig.Process(ctx, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "environment")
	}

	setDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}

	expanded := os.Expand(string(data), os.Getenv)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal([]byte(expanded), cfg)
	default:
		_, err = toml.Decode(expanded, cfg)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	return nil
}

// setDefaults fills unset values.
func setDefaults(cfg *Config) {
	if cfg.CacheDir == "" {
		if dir, err := DefaultCacheDir(); err == nil {
			cfg.CacheDir = dir
		}
	}
	if cfg.CacheExpiry == "" {
		cfg.CacheExpiry = cache.DefaultExpiry
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = transport.DefaultTimeout
	}
	if cfg.FollowRedirects == nil {
		follow := true
		cfg.FollowRedirects = &follow
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 3
	}
}

// Validate checks every value a command would otherwise reject later.
func (c *Config) Validate() error {
	if err := c.CacheExpiry.Validate(); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "timeout must not be negative")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "unknown timezone %q", c.Timezone)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "log level")
	}
	for _, name := range c.FeedNames() {
		if err := errors.ValidateFeedName(name); err != nil {
			return err
		}
		if err := errors.ValidateFeedURL(c.Feeds[name].URL); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "feed %q", name)
		}
	}
	return nil
}

// Location returns the configured timezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LogLevel returns the configured log level, info when unparseable.
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// FeedNames returns the declared feed names, sorted.
func (c *Config) FeedNames() []string {
	names := make([]string, 0, len(c.Feeds))
	for name := range c.Feeds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve maps a command-line argument to a feed. A declared feed name wins
// over a URL of the same spelling; anything else must be a valid feed URL.
func (c *Config) Resolve(arg string) (Feed, error) {
	if f, ok := c.Feeds[arg]; ok {
		return f, nil
	}
	if err := errors.ValidateFeedURL(arg); err != nil {
		return Feed{}, err
	}
	return Feed{URL: arg}, nil
}

// String renders the config for debug logs with passwords masked.
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cache_dir=%s cache_expiry=%q timeout=%s timezone=%s", c.CacheDir, c.CacheExpiry, c.Timeout, c.Timezone)
	for _, name := range c.FeedNames() {
		f := c.Feeds[name]
		pass := ""
		if f.Pass != "" {
			pass = "****"
		}
		fmt.Fprintf(&b, " feed[%s]=%s user=%q pass=%q", name, f.URL, f.User, pass)
	}
	return b.String()
}
