package cache

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/feedload/pkg/errors"
	"github.com/matzehuels/feedload/pkg/transport"
)

// stubFetcher returns a fixed response and counts calls.
type stubFetcher struct {
	data  []byte
	err   error
	calls int
}

func (f *stubFetcher) Fetch(ctx context.Context, req transport.Request) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

var (
	epoch = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	req   = transport.Request{URL: "https://example.com/feed.xml"}
)

func newTestCache(t *testing.T, f transport.Fetcher, dir string, expiry Expiry, now time.Time) *Cache {
	t.Helper()
	c, err := New(f, Options{Dir: dir, Expiry: expiry, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func seed(t *testing.T, c *Cache, r transport.Request, body string, mtime time.Time) {
	t.Helper()
	path := c.Path(r)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		a, b transport.Request
		same bool
	}{
		{"identical", req, transport.Request{URL: req.URL}, true},
		{"different url", req, transport.Request{URL: req.URL + "?x=1"}, false},
		{"nil vs empty auth", req, transport.Request{URL: req.URL, Auth: &transport.Credentials{}}, false},
		{
			"different password",
			transport.Request{URL: req.URL, Auth: &transport.Credentials{User: "u", Pass: "a"}},
			transport.Request{URL: req.URL, Auth: &transport.Credentials{User: "u", Pass: "b"}},
			false,
		},
		{
			"same credentials",
			transport.Request{URL: req.URL, Auth: &transport.Credentials{User: "u", Pass: "a"}},
			transport.Request{URL: req.URL, Auth: &transport.Credentials{User: "u", Pass: "a"}},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka, kb := Key(tt.a), Key(tt.b)
			if (ka == kb) != tt.same {
				t.Errorf("Key(a) == Key(b) is %v, want %v", ka == kb, tt.same)
			}
			if len(ka) != 64 {
				t.Errorf("len(Key()) = %d, want 64", len(ka))
			}
		})
	}
}

func TestPath(t *testing.T) {
	c := newTestCache(t, &stubFetcher{}, "/var/cache/feedload", "", epoch)
	want := filepath.Join("/var/cache/feedload", "feed."+Key(req)+".xml")
	if got := c.Path(req); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

func TestLoad_FreshEntrySkipsFetch(t *testing.T) {
	dir := t.TempDir()
	f := &stubFetcher{data: []byte("<new/>")}
	c := newTestCache(t, f, dir, "1 hour", epoch)
	seed(t, c, req, "<cached/>", epoch.Add(-30*time.Minute))

	got, err := c.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if string(got) != "<cached/>" {
		t.Errorf("Load() = %q, want cached copy", got)
	}
	if f.calls != 0 {
		t.Errorf("fetcher called %d times, want 0", f.calls)
	}
}

func TestLoad_BlankFreshEntryIsRefetched(t *testing.T) {
	for _, body := range []string{"", " \n\t"} {
		f := &stubFetcher{data: []byte("<rss/>")}
		c := newTestCache(t, f, t.TempDir(), "1 day", epoch)
		seed(t, c, req, body, epoch.Add(-time.Minute))

		data, err := c.Load(context.Background(), req)
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if string(data) != "<rss/>" || f.calls != 1 {
			t.Errorf("blank entry %q: got %q after %d fetches, want refetch", body, data, f.calls)
		}
		if got, _ := os.ReadFile(c.Path(req)); string(got) != "<rss/>" {
			t.Errorf("cache file = %q, want rewritten", got)
		}
	}
}

func TestLoad_ExpiredEntryIsRefreshed(t *testing.T) {
	dir := t.TempDir()
	f := &stubFetcher{data: []byte("<new/>\n")}
	c := newTestCache(t, f, dir, "1 hour", epoch)
	seed(t, c, req, "<old/>", epoch.Add(-2*time.Hour))

	got, err := c.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if string(got) != "<new/>\n" {
		t.Errorf("Load() = %q, want fetched bytes", got)
	}
	onDisk, err := os.ReadFile(c.Path(req))
	if err != nil {
		t.Fatalf("read cache file: %v", err)
	}
	if string(onDisk) != "<new/>\n" {
		t.Errorf("cache file = %q, want exactly the fetched bytes", onDisk)
	}
	if f.calls != 1 {
		t.Errorf("fetcher called %d times, want 1", f.calls)
	}
}

func TestLoad_StaleFallback(t *testing.T) {
	failures := []struct {
		name string
		err  error
	}{
		{"no data", fmt.Errorf("%w: status 503", transport.ErrNoData)},
		{"network", errors.New(errors.ErrCodeNetwork, "connection refused")},
	}

	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			c := newTestCache(t, &stubFetcher{err: tt.err}, dir, "1 hour", epoch)
			seed(t, c, req, "<old/>", epoch.Add(-48*time.Hour))

			got, err := c.Load(context.Background(), req)
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if string(got) != "<old/>" {
				t.Errorf("Load() = %q, want stale copy", got)
			}
		})
	}
}

func TestLoad_TransportUnavailableIsFatal(t *testing.T) {
	dir := t.TempDir()
	unavailable := errors.New(errors.ErrCodeTransportUnavailable, "no rich client")
	c := newTestCache(t, &stubFetcher{err: unavailable}, dir, "1 hour", epoch)
	seed(t, c, req, "<old/>", epoch.Add(-48*time.Hour))

	_, err := c.Load(context.Background(), req)
	if !errors.Is(err, errors.ErrCodeTransportUnavailable) {
		t.Errorf("Load() error = %v, want TRANSPORT_UNAVAILABLE", err)
	}
}

func TestLoad_NoCacheDirFails(t *testing.T) {
	c := newTestCache(t, &stubFetcher{err: transport.ErrNoData}, "", "1 hour", epoch)
	if c.Enabled() {
		t.Fatal("Enabled() = true with empty dir")
	}

	_, err := c.Load(context.Background(), req)
	if !errors.Is(err, errors.ErrCodeLoadFailed) {
		t.Errorf("Load() error = %v, want LOAD_FAILED", err)
	}
	if !stderrors.Is(err, transport.ErrNoData) {
		t.Error("LOAD_FAILED should wrap the fetch error")
	}
}

func TestLoad_NoEntryFails(t *testing.T) {
	c := newTestCache(t, &stubFetcher{err: transport.ErrNoData}, t.TempDir(), "1 hour", epoch)
	_, err := c.Load(context.Background(), req)
	if !errors.Is(err, errors.ErrCodeLoadFailed) {
		t.Errorf("Load() error = %v, want LOAD_FAILED", err)
	}
}

func TestLoad_DisabledNeverWrites(t *testing.T) {
	f := &stubFetcher{data: []byte("<rss/>")}
	c := newTestCache(t, f, "", "1 hour", epoch)

	for i := 0; i < 2; i++ {
		if _, err := c.Load(context.Background(), req); err != nil {
			t.Fatalf("Load() error: %v", err)
		}
	}
	if f.calls != 2 {
		t.Errorf("fetcher called %d times, want 2", f.calls)
	}
}

func TestLoad_WithHTTPServer(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`<rss version="2.0"><channel/></rss>`))
	}))
	defer srv.Close()

	c, err := New(transport.New(transport.Options{}), Options{Dir: t.TempDir(), Expiry: "1 day"})
	if err != nil {
		t.Fatal(err)
	}
	r := transport.Request{URL: srv.URL}
	for i := 0; i < 3; i++ {
		if _, err := c.Load(context.Background(), r); err != nil {
			t.Fatalf("Load() #%d error: %v", i, err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1", hits.Load())
	}
}

func TestEntriesAndClear(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, &stubFetcher{}, dir, "1 hour", epoch)

	other := transport.Request{URL: "https://example.org/atom"}
	seed(t, c, req, "<a/>", epoch.Add(-10*time.Minute))
	seed(t, c, other, "<b/>", epoch.Add(-3*time.Hour))
	if err := os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := c.Entries()
	if err != nil {
		t.Fatalf("Entries() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(Entries()) = %d, want 2", len(entries))
	}
	if entries[0].Key != Key(req) || !entries[0].Fresh {
		t.Errorf("entries[0] = %+v, want fresh entry for %s", entries[0], req.URL)
	}
	if entries[1].Key != Key(other) || entries[1].Fresh {
		t.Errorf("entries[1] = %+v, want expired entry for %s", entries[1], other.URL)
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if n != 2 {
		t.Errorf("Clear() removed %d, want 2", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "keep.txt")); err != nil {
		t.Error("Clear() removed an unrelated file")
	}
}

func TestNew_InvalidExpiry(t *testing.T) {
	_, err := New(&stubFetcher{}, Options{Dir: t.TempDir(), Expiry: "soon"})
	if !errors.Is(err, errors.ErrCodeInvalidExpiry) {
		t.Errorf("New() error = %v, want INVALID_EXPIRY", err)
	}
}
