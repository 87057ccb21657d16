// Package transport fetches raw feed documents.
//
// A [Client] has two paths. The rich path is an *http.Client with basic
// auth, a bounded timeout, gzip/deflate/zstd decoding and a configurable
// redirect policy; it serves http(s) URLs whenever it is configured. The
// plain path is an unauthenticated GET (or a file read for file:// URLs and
// local paths) used when no rich client is available. Asking for
// credentials without a rich client fails with TRANSPORT_UNAVAILABLE rather
// than silently dropping them.
//
// Every non-success outcome that the cache may recover from wraps
// [ErrNoData]; check it with errors.Is.
package transport

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/feedload/pkg/buildinfo"
	"github.com/matzehuels/feedload/pkg/errors"
	"github.com/matzehuels/feedload/pkg/observability"
)

const (
	// DefaultTimeout bounds a single fetch, including redirects and body read.
	DefaultTimeout = 20 * time.Second

	// MaxRedirects is the redirect hop limit when redirects are followed.
	MaxRedirects = 10

	// MaxBodySize caps the decoded document size.
	MaxBodySize = 32 << 20

	acceptHeader = "application/rss+xml, application/atom+xml, application/rdf+xml;q=0.9, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5"
)

// ErrNoData reports that a fetch completed without producing a usable
// document: a non-200 status, an empty body, or an unreadable file.
var ErrNoData = stderrors.New("no data")

// Credentials are HTTP basic-auth credentials.
type Credentials struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

// Request identifies one fetch. It is also the cache identity, so a nil Auth
// and an Auth holding empty strings are distinct requests.
type Request struct {
	URL  string       `json:"url"`
	Auth *Credentials `json:"auth"`
}

// Fetcher retrieves the raw bytes for a request.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

// Options configures a [Client].
type Options struct {
	// Timeout bounds each fetch. Zero means DefaultTimeout.
	Timeout time.Duration

	// NoRedirects returns 3xx responses as-is instead of following them.
	// Use it where following redirects is not allowed.
	NoRedirects bool

	// PlainOnly disables the rich client, leaving only unauthenticated
	// fetches available.
	PlainOnly bool

	// HTTPClient replaces the rich client built from the other options.
	HTTPClient *http.Client

	// Logger receives debug output. Nil means log.Default().
	Logger *log.Logger
}

// Client implements [Fetcher] over the rich and plain paths.
type Client struct {
	rich    *http.Client
	plain   *http.Client
	timeout time.Duration
	logger  *log.Logger
}

// New creates a Client from opts.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	c := &Client{
		plain:   &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger,
	}
	switch {
	case opts.PlainOnly:
	case opts.HTTPClient != nil:
		c.rich = opts.HTTPClient
	default:
		c.rich = NewHTTPClient(timeout, !opts.NoRedirects)
	}
	return c
}

// NewHTTPClient creates the rich client. Compression is negotiated by the
// client itself so that deflate and zstd are accepted alongside gzip.
func NewHTTPClient(timeout time.Duration, followRedirects bool) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DisableCompression = true

	return &http.Client{
		Timeout:   timeout,
		Transport: tr,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if !followRedirects {
				return http.ErrUseLastResponse
			}
			if len(via) >= MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", MaxRedirects)
			}
			return nil
		},
	}
}

// Rich reports whether the rich client is available.
func (c *Client) Rich() bool { return c.rich != nil }

// Fetch retrieves req.URL.
func (c *Client) Fetch(ctx context.Context, req Request) ([]byte, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidURL, err, "parse %q", req.URL)
	}

	remote := isHTTP(u)
	if c.rich != nil && remote {
		return c.fetchRich(ctx, c.rich, req, u, true)
	}
	if req.Auth != nil {
		return nil, errors.New(errors.ErrCodeTransportUnavailable,
			"credentials given for %s but no authenticating transport is available", req.URL)
	}
	if remote {
		return c.fetchRich(ctx, c.plain, req, u, false)
	}
	return c.readLocal(req.URL, u)
}

func (c *Client) fetchRich(ctx context.Context, hc *http.Client, req Request, u *url.URL, negotiate bool) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidURL, err, "build request for %s", req.URL)
	}
	httpReq.Header.Set("User-Agent", buildinfo.UserAgent())
	httpReq.Header.Set("Accept", acceptHeader)
	if negotiate {
		httpReq.Header.Set("Accept-Encoding", acceptEncoding)
	}
	if req.Auth != nil {
		httpReq.SetBasicAuth(req.Auth.User, req.Auth.Pass)
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, http.MethodGet, u.Host, u.Path)
	start := time.Now()

	resp, err := hc.Do(httpReq)
	if err != nil {
		hooks.OnError(ctx, http.MethodGet, u.Host, u.Path, err)
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "fetch %s", req.URL)
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, http.MethodGet, u.Host, u.Path, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		c.logger.Debug("non-200 response", "url", req.URL, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: %w", ErrNoData, &errors.StatusError{StatusCode: resp.StatusCode, URL: req.URL})
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		hooks.OnError(ctx, http.MethodGet, u.Host, u.Path, err)
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "read body of %s", req.URL)
	}
	if len(raw) > MaxBodySize {
		return nil, fmt.Errorf("%w: body of %s exceeds %d bytes", ErrNoData, req.URL, MaxBodySize)
	}

	body, err := decodeBody(resp.Header.Get("Content-Encoding"), raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrNoData, req.URL, err)
	}
	c.logger.Debug("fetched", "url", req.URL, "bytes", len(body), "encoding", resp.Header.Get("Content-Encoding"))
	return nonEmpty(body, req.URL)
}

func (c *Client) readLocal(raw string, u *url.URL) ([]byte, error) {
	path := raw
	if u.Scheme != "" {
		path = u.Path
	}
	if u.Scheme == "file" && u.Host != "" && u.Host != "localhost" {
		return nil, fmt.Errorf("%w: remote file host %q", ErrNoData, u.Host)
	}

	data, err := os.ReadFile(filepath.FromSlash(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoData, err)
	}
	c.logger.Debug("read local feed", "path", path, "bytes", len(data))
	return nonEmpty(data, path)
}

func nonEmpty(data []byte, src string) ([]byte, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document from %s", ErrNoData, src)
	}
	return data, nil
}

func isHTTP(u *url.URL) bool {
	s := strings.ToLower(u.Scheme)
	return s == "http" || s == "https"
}
