// Package feed loads RSS and Atom documents into a uniform, read-only view.
//
// A [Loader] combines the file cache, the transport and the lenient XML
// parser. Each loaded item gains two derived fields, "date"
// (YYYY-MM-DD HH:MM:SS) and "humanDifference" ("3 hours ago"), computed
// from its dc:date or publication date:
//
//	l, err := feed.New(feed.Config{CacheDir: dir, CacheExpiry: "2 hours"})
//	if err != nil {
//	    return err
//	}
//	f, err := l.LoadFeed(ctx, "https://go.dev/blog/feed.atom")
//	if err != nil {
//	    return err
//	}
//	for _, it := range f.Items() {
//	    fmt.Println(it.Title(), it.HumanDifference())
//	}
//
// Loaders carry no mutable state; configure one per set of options.
package feed

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/feedload/pkg/cache"
	"github.com/matzehuels/feedload/pkg/observability"
	"github.com/matzehuels/feedload/pkg/transport"
	"github.com/matzehuels/feedload/pkg/xmltree"
)

// Config configures a [Loader].
type Config struct {
	// CacheDir enables the file cache. Empty disables it.
	CacheDir string

	// CacheExpiry is the cache time-to-live. Empty means cache.DefaultExpiry.
	CacheExpiry cache.Expiry

	// Timeout bounds each fetch. Zero means transport.DefaultTimeout.
	Timeout time.Duration

	// NoRedirects stops the transport from following redirects.
	NoRedirects bool

	// PlainOnly restricts the transport to unauthenticated fetches.
	PlainOnly bool

	// HTTPClient replaces the transport's HTTP client.
	HTTPClient *http.Client

	// Fetcher replaces the transport entirely. Cache settings still apply.
	Fetcher transport.Fetcher

	// Location is the zone of derived item dates. Nil means UTC.
	Location *time.Location

	// DateParser reads item dates. Nil means DefaultDateParser.
	DateParser DateParser

	// Logger receives diagnostics. Nil means log.Default().
	Logger *log.Logger

	// Now overrides the clock for cache freshness and humanDifference.
	Now func() time.Time
}

// Loader fetches, caches, parses and builds feeds.
type Loader struct {
	cache    *cache.Cache
	location *time.Location
	parser   DateParser
	logger   *log.Logger
	now      func() time.Time
}

// New creates a Loader. It fails only on an invalid CacheExpiry.
func New(cfg Config) (*Loader, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = transport.New(transport.Options{
			Timeout:     cfg.Timeout,
			NoRedirects: cfg.NoRedirects,
			PlainOnly:   cfg.PlainOnly,
			HTTPClient:  cfg.HTTPClient,
			Logger:      logger,
		})
	}

	c, err := cache.New(fetcher, cache.Options{
		Dir:    cfg.CacheDir,
		Expiry: cfg.CacheExpiry,
		Logger: logger,
		Now:    now,
	})
	if err != nil {
		return nil, err
	}

	return &Loader{
		cache:    c,
		location: cfg.Location,
		parser:   cfg.DateParser,
		logger:   logger,
		now:      now,
	}, nil
}

// Cache returns the loader's cache.
func (l *Loader) Cache() *cache.Cache { return l.cache }

// RequestOption adjusts a fetch request.
type RequestOption func(*transport.Request)

// WithBasicAuth sends HTTP basic-auth credentials. Credentials are part of
// the cache identity, so the same URL with different credentials is cached
// separately.
func WithBasicAuth(user, pass string) RequestOption {
	return func(r *transport.Request) {
		r.Auth = &transport.Credentials{User: user, Pass: pass}
	}
}

// NewRequest builds the request LoadFeed and LoadRSS would send for url.
func NewRequest(url string, opts ...RequestOption) transport.Request {
	req := transport.Request{URL: url}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

// LoadXML returns the parsed document for req without feed processing.
// Malformed XML is not an error; the result holds whatever could be
// recovered.
func (l *Loader) LoadXML(ctx context.Context, req transport.Request) (*xmltree.Document, error) {
	doc, _, err := l.fetch(ctx, req)
	return doc, err
}

// LoadFeed loads url and requires an RSS channel or Atom feed element,
// failing with INVALID_FEED otherwise.
func (l *Loader) LoadFeed(ctx context.Context, url string, opts ...RequestOption) (*Feed, error) {
	return l.load(ctx, NewRequest(url, opts...), true)
}

// LoadRSS loads url like LoadFeed but accepts documents without a channel.
// Lookups on such a Feed are all absent.
func (l *Loader) LoadRSS(ctx context.Context, url string, opts ...RequestOption) (*Feed, error) {
	return l.load(ctx, NewRequest(url, opts...), false)
}

func (l *Loader) fetch(ctx context.Context, req transport.Request) (*xmltree.Document, []byte, error) {
	data, err := l.cache.Load(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	return xmltree.Parse(data), data, nil
}

func (l *Loader) load(ctx context.Context, req transport.Request, validate bool) (f *Feed, err error) {
	hooks := observability.Feed()
	start := time.Now()
	hooks.OnLoadStart(ctx, req.URL)
	defer func() {
		n := 0
		if f != nil {
			n = len(f.Items())
		}
		hooks.OnLoadComplete(ctx, req.URL, n, time.Since(start), err)
	}()

	doc, data, err := l.fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	f, err = Build(ctx, doc, BuildOptions{
		Kind:     Detect(data),
		Validate: validate,
		Now:      l.now(),
		Parser:   l.parser,
		Location: l.location,
		Logger:   l.logger,
	})
	if err != nil {
		return nil, err
	}
	l.logger.Debug("feed loaded", "url", req.URL, "kind", f.Kind(), "items", len(f.Items()))
	return f, nil
}
