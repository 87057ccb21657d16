package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/feedload/pkg/cache"
	"github.com/matzehuels/feedload/pkg/errors"
	"github.com/matzehuels/feedload/pkg/transport"
)

// isolate points the XDG directories at a temp dir so the user's real
// config never leaks into a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "cache", "feedload"), cfg.CacheDir)
	assert.Equal(t, cache.DefaultExpiry, cfg.CacheExpiry)
	assert.Equal(t, transport.DefaultTimeout, cfg.Timeout)
	require.NotNil(t, cfg.FollowRedirects)
	assert.True(t, *cfg.FollowRedirects)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, log.InfoLevel, cfg.LogLevel())
	assert.Empty(t, cfg.FeedNames())
}

func TestLoad_TOML(t *testing.T) {
	dir := isolate(t)
	t.Setenv("INTRANET_PASSWORD", "s3cret")

	path := writeFile(t, dir, "feedload.toml", `
cache_dir = "/tmp/feeds"
cache_expiry = "2 hours"
timeout = "5s"
follow_redirects = false
timezone = "Europe/Berlin"

[log]
level = "debug"

[feeds.intranet]
url = "https://intranet.example.com/news.rss"
user = "reader"
pass = "${INTRANET_PASSWORD}"

[feeds.go-blog]
url = "https://go.dev/blog/feed.atom"
`)

	cfg, err := Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/feeds", cfg.CacheDir)
	assert.Equal(t, cache.Expiry("2 hours"), cfg.CacheExpiry)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.False(t, *cfg.FollowRedirects)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
	assert.Equal(t, log.DebugLevel, cfg.LogLevel())
	assert.Equal(t, []string{"go-blog", "intranet"}, cfg.FeedNames())

	intranet := cfg.Feeds["intranet"]
	assert.Equal(t, &transport.Credentials{User: "reader", Pass: "s3cret"}, intranet.Credentials())
	assert.Nil(t, cfg.Feeds["go-blog"].Credentials())
	assert.NotContains(t, cfg.String(), "s3cret")
}

func TestLoad_YAML(t *testing.T) {
	dir := isolate(t)

	path := writeFile(t, dir, "feedload.yaml", `
cache_expiry: 30 minutes
timeout: 1m
log:
  level: warn
  file: /tmp/feedload.log
  max_backups: 7
feeds:
  news:
    url: https://example.com/rss
`)

	cfg, err := Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, cache.Expiry("30 minutes"), cfg.CacheExpiry)
	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.Equal(t, log.WarnLevel, cfg.LogLevel())
	assert.Equal(t, "/tmp/feedload.log", cfg.Log.File)
	assert.Equal(t, 7, cfg.Log.MaxBackups)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)
	assert.Equal(t, "https://example.com/rss", cfg.Feeds["news"].URL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "feedload.toml", `
cache_dir = "/from/file"
cache_expiry = "1 week"
`)
	t.Setenv("FEEDLOAD_CACHE_DIR", "/from/env")
	t.Setenv("FEEDLOAD_LOG_LEVEL", "error")

	cfg, err := Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "/from/env", cfg.CacheDir)
	assert.Equal(t, cache.Expiry("1 week"), cfg.CacheExpiry)
	assert.Equal(t, log.ErrorLevel, cfg.LogLevel())
}

func TestLoad_DefaultPathPickedUp(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config", "feedload"), 0o755))
	writeFile(t, filepath.Join(dir, "config", "feedload"), "config.toml", `cache_expiry = "3 days"`)

	cfg, err := Load(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, cache.Expiry("3 days"), cfg.CacheExpiry)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		code    errors.Code
	}{
		{"missing explicit file", "absent.toml", "", errors.ErrCodeInvalidConfig},
		{"bad toml", "bad.toml", "cache_dir = ", errors.ErrCodeInvalidConfig},
		{"bad yaml", "bad.yaml", "feeds: [", errors.ErrCodeInvalidConfig},
		{"bad expiry", "e.toml", `cache_expiry = "eventually"`, errors.ErrCodeInvalidExpiry},
		{"bad timezone", "tz.toml", `timezone = "Mars/Olympus"`, errors.ErrCodeInvalidConfig},
		{"bad log level", "l.toml", "[log]\nlevel = \"chatty\"", errors.ErrCodeInvalidConfig},
		{"bad feed name", "n.toml", "[feeds.\"a b\"]\nurl = \"https://example.com\"", errors.ErrCodeInvalidConfig},
		{"bad feed url", "u.toml", "[feeds.x]\nurl = \"ftp://example.com\"", errors.ErrCodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			path := filepath.Join(dir, tt.file)
			if tt.content != "" {
				writeFile(t, dir, tt.file, tt.content)
			}

			_, err := Load(context.Background(), path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "got %v, want %s", err, tt.code)
		})
	}
}

func TestResolve(t *testing.T) {
	cfg := &Config{Feeds: map[string]Feed{
		"news": {URL: "https://example.com/rss", User: "u", Pass: "p"},
	}}

	f, err := cfg.Resolve("news")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/rss", f.URL)
	assert.Equal(t, "u", f.User)

	f, err = cfg.Resolve("https://go.dev/blog/feed.atom")
	require.NoError(t, err)
	assert.Equal(t, Feed{URL: "https://go.dev/blog/feed.atom"}, f)

	_, err = cfg.Resolve("gopher://example.com")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidURL))
}
