package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/feedload/pkg/observability"
)

// logHooks reports library events as debug log lines.
type logHooks struct {
	logger *log.Logger
}

// registerLogHooks routes feed, cache and HTTP events to l.
func registerLogHooks(l *log.Logger) {
	h := &logHooks{logger: l}
	observability.SetFeedHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

func (h *logHooks) OnLoadStart(_ context.Context, url string) {
	h.logger.Debug("load start", "url", url)
}

func (h *logHooks) OnLoadComplete(_ context.Context, url string, items int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("load failed", "url", url, "took", d.Round(time.Millisecond), "err", err)
		return
	}
	h.logger.Debug("load done", "url", url, "items", items, "took", d.Round(time.Millisecond))
}

func (h *logHooks) OnItemDateSkipped(_ context.Context, raw string) {
	h.logger.Debug("item date skipped", "value", raw)
}

func (h *logHooks) OnCacheHit(_ context.Context, key string) {
	h.logger.Debug("cache hit", "key", shortKey(key))
}

func (h *logHooks) OnCacheMiss(_ context.Context, key string) {
	h.logger.Debug("cache miss", "key", shortKey(key))
}

func (h *logHooks) OnCacheSet(_ context.Context, key string, size int) {
	h.logger.Debug("cache set", "key", shortKey(key), "size", size)
}

func (h *logHooks) OnCacheStale(_ context.Context, key string, cause error) {
	h.logger.Debug("cache stale", "key", shortKey(key), "cause", cause)
}

func (h *logHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h *logHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "took", d.Round(time.Millisecond))
}

func (h *logHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http error", "method", method, "host", host, "path", path, "err", err)
}

// shortKey abbreviates a cache key for display.
func shortKey(key string) string {
	return key[:min(12, len(key))]
}
