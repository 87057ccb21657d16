// Package observability provides hooks for metrics, tracing, and logging.
//
// Hooks let a binary attach instrumentation to feed loading without the
// library depending on a particular backend. Register implementations once at
// startup; library code reads them through [Feed], [Cache] and [HTTP]:
//
//	func main() {
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Every hook has a no-op default, so libraries can call them unconditionally:
//
//	observability.Feed().OnLoadStart(ctx, url)
//	// ... fetch, parse, build ...
//	observability.Feed().OnLoadComplete(ctx, url, len(items), time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Feed Hooks
// =============================================================================

// FeedHooks receives events from the feed loader.
type FeedHooks interface {
	// OnLoadStart fires before the cache/transport lookup.
	OnLoadStart(ctx context.Context, url string)

	// OnLoadComplete fires once per load with the item count of the result.
	OnLoadComplete(ctx context.Context, url string, items int, duration time.Duration, err error)

	// OnItemDateSkipped fires when an item's date field could not be parsed.
	OnItemDateSkipped(ctx context.Context, raw string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a fresh entry served without a fetch.
	OnCacheHit(ctx context.Context, key string)

	// OnCacheMiss records a missing or expired entry.
	OnCacheMiss(ctx context.Context, key string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, key string, size int)

	// OnCacheStale records an expired entry served because the refresh failed.
	OnCacheStale(ctx context.Context, key string, cause error)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopFeedHooks is a no-op implementation of FeedHooks.
type NoopFeedHooks struct{}

func (NoopFeedHooks) OnLoadStart(context.Context, string)                               {}
func (NoopFeedHooks) OnLoadComplete(context.Context, string, int, time.Duration, error) {}
func (NoopFeedHooks) OnItemDateSkipped(context.Context, string)                         {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)          {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)         {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int)     {}
func (NoopCacheHooks) OnCacheStale(context.Context, string, error) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	feedHooks  FeedHooks  = NoopFeedHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	httpHooks  HTTPHooks  = NoopHTTPHooks{}
	hooksMu    sync.RWMutex
)

// SetFeedHooks registers custom feed hooks. Nil is ignored.
func SetFeedHooks(h FeedHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		feedHooks = h
	}
}

// SetCacheHooks registers custom cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks. Nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Feed returns the registered feed hooks.
func Feed() FeedHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return feedHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	feedHooks = NoopFeedHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
