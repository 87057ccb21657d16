// Package cache stores fetched feed documents on disk.
//
// Each [transport.Request] maps to one file, <dir>/feed.<key>.xml, where key
// is the SHA-256 of the JSON-encoded request. Freshness is judged from the
// file's modification time against the configured [Expiry]:
//
//	c, _ := cache.New(transport.New(transport.Options{}), cache.Options{
//	    Dir:    "/var/cache/feedload",
//	    Expiry: "2 hours",
//	})
//	data, err := c.Load(ctx, transport.Request{URL: "https://go.dev/blog/feed.atom"})
//
// A fresh entry is returned without touching the network. Otherwise the
// document is fetched and written back. When the fetch fails, an expired
// entry is served instead; only when there is nothing to serve does Load
// fail with LOAD_FAILED.
//
// Writes go through a temporary file and a rename, so concurrent readers in
// other processes never observe a partial document. The loader never deletes
// entries; use [Cache.Clear].
package cache

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/feedload/pkg/errors"
	"github.com/matzehuels/feedload/pkg/observability"
	"github.com/matzehuels/feedload/pkg/transport"
)

// Options configures a [Cache].
type Options struct {
	// Dir holds the cache files. Empty disables caching: every Load goes
	// to the fetcher and nothing is written.
	Dir string

	// Expiry is the time-to-live expression. Empty means DefaultExpiry.
	Expiry Expiry

	// Logger receives cache diagnostics. Nil means log.Default().
	Logger *log.Logger

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Cache is a read-through file cache in front of a [transport.Fetcher].
type Cache struct {
	dir     string
	expiry  Expiry
	span    span
	fetcher transport.Fetcher
	logger  *log.Logger
	now     func() time.Time
}

// New creates a Cache. It fails only when opts.Expiry cannot be parsed.
func New(fetcher transport.Fetcher, opts Options) (*Cache, error) {
	expiry := opts.Expiry
	if expiry == "" {
		expiry = DefaultExpiry
	}
	sp, err := expiry.parse()
	if err != nil {
		return nil, err
	}

	c := &Cache{
		dir:     opts.Dir,
		expiry:  expiry,
		span:    sp,
		fetcher: fetcher,
		logger:  opts.Logger,
		now:     opts.Now,
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// Enabled reports whether a cache directory is configured.
func (c *Cache) Enabled() bool { return c.dir != "" }

// Dir returns the cache directory, or "" when caching is disabled.
func (c *Cache) Dir() string { return c.dir }

// Expiry returns the time-to-live expression in effect.
func (c *Cache) Expiry() Expiry { return c.expiry }

// TTL resolves the expiry relative to the current time.
func (c *Cache) TTL() time.Duration {
	now := c.now()
	return c.span.apply(now).Sub(now)
}

// Path returns the cache file for req. It is meaningful only when the cache
// is enabled.
func (c *Cache) Path(req transport.Request) string {
	return filepath.Join(c.dir, fileName(Key(req)))
}

// Load returns the document for req, from disk when fresh and from the
// fetcher otherwise.
//
// TRANSPORT_UNAVAILABLE and context cancellation are returned as-is. Any
// other fetch failure falls back to an expired entry if one exists, and
// becomes LOAD_FAILED if none does.
func (c *Cache) Load(ctx context.Context, req transport.Request) ([]byte, error) {
	key := Key(req)
	hooks := observability.Cache()

	if c.Enabled() {
		if data, ok := c.readFresh(key); ok {
			hooks.OnCacheHit(ctx, key)
			c.logger.Debug("cache hit", "url", req.URL, "key", key[:12])
			return data, nil
		}
		hooks.OnCacheMiss(ctx, key)
	}

	data, err := c.fetcher.Fetch(ctx, req)
	if err == nil {
		if c.Enabled() {
			if werr := c.write(key, data); werr != nil {
				c.logger.Warn("cache write failed", "path", c.Path(req), "err", werr)
			} else {
				hooks.OnCacheSet(ctx, key, len(data))
			}
		}
		return data, nil
	}

	if errors.Is(err, errors.ErrCodeTransportUnavailable) {
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && stderrors.Is(err, ctxErr) {
		return nil, err
	}

	if c.Enabled() {
		if stale, rerr := os.ReadFile(c.Path(req)); rerr == nil && len(bytes.TrimSpace(stale)) > 0 {
			hooks.OnCacheStale(ctx, key, err)
			c.logger.Warn("refresh failed, serving stale copy", "url", req.URL, "err", err)
			return stale, nil
		}
	}
	return nil, errors.Wrap(errors.ErrCodeLoadFailed, err, "no data for %s", req.URL)
}

func (c *Cache) readFresh(key string) ([]byte, bool) {
	path := filepath.Join(c.dir, fileName(key))
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if !c.fresh(info.ModTime()) {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return nil, false
	}
	return data, true
}

func (c *Cache) fresh(mtime time.Time) bool {
	now := c.now()
	return now.Sub(mtime) <= c.span.apply(now).Sub(now)
}
