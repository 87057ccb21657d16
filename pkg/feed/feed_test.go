package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/feedload/pkg/cache"
	"github.com/matzehuels/feedload/pkg/errors"
	"github.com/matzehuels/feedload/pkg/transport"
	"github.com/matzehuels/feedload/pkg/xmltree"
)

var now = time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

const rss2 = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel>
    <title>Example Blog</title>
    <link>https://example.com/</link>
    <dc:creator>Editors</dc:creator>
    <item>
      <title>Dublin Core dated</title>
      <dc:date>2024-01-01T00:00:00Z</dc:date>
      <pubDate>Sun, 31 Dec 2023 09:00:00 GMT</pubDate>
    </item>
    <item>
      <title>pubDate only</title>
      <pubDate>Tue, 02 Jan 2024 21:00:00 EST</pubDate>
    </item>
    <item>
      <title>Undated</title>
    </item>
    <item>
      <title>Garbage date</title>
      <pubDate>sometime last week</pubDate>
    </item>
  </channel>
</rss>`

const atom = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Example</title>
  <entry>
    <title type="xhtml"><div xmlns="http://www.w3.org/1999/xhtml">Rich <em>title</em></div></title>
    <updated>2024-01-02T12:00:00Z</updated>
  </entry>
  <entry>
    <title>Published wins</title>
    <published>2023-12-25T00:00:00+01:00</published>
    <updated>2024-01-02T00:00:00Z</updated>
  </entry>
</feed>`

const rdf = `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns="http://purl.org/rss/1.0/"
         xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel><title>RDF Channel</title></channel>
  <item><title>One</title><dc:date>2024-01-02T00:00:00Z</dc:date></item>
  <item><title>Two</title></item>
</rdf:RDF>`

func build(t *testing.T, src string, validate bool) *Feed {
	t.Helper()
	data := []byte(src)
	f, err := Build(context.Background(), xmltree.Parse(data), BuildOptions{Kind: Detect(data), Validate: validate, Now: now})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return f
}

func TestBuild_RSSDates(t *testing.T) {
	f := build(t, rss2, true)
	if f.Kind() != KindRSS {
		t.Errorf("Kind() = %v, want rss", f.Kind())
	}
	items := f.Items()
	if len(items) != 4 {
		t.Fatalf("len(Items()) = %d, want 4", len(items))
	}

	tests := []struct {
		title string
		date  string
		human string
	}{
		{"Dublin Core dated", "2024-01-01 00:00:00", "2 days ago"},
		{"pubDate only", "2024-01-03 02:00:00", "2 hours from now"},
		{"Undated", "", ""},
		{"Garbage date", "", ""},
	}
	for i, tt := range tests {
		it := items[i]
		if it.Title() != tt.title {
			t.Errorf("items[%d].Title() = %q, want %q", i, it.Title(), tt.title)
		}
		if got := it.Text(FieldDate); got != tt.date {
			t.Errorf("items[%d] date = %q, want %q", i, got, tt.date)
		}
		if got := it.HumanDifference(); got != tt.human {
			t.Errorf("items[%d] humanDifference = %q, want %q", i, got, tt.human)
		}
		_, hasDate := it.Get(FieldDate)
		_, hasHuman := it.Get(FieldHumanDifference)
		if hasDate != (tt.date != "") || hasHuman != (tt.human != "") {
			t.Errorf("items[%d] derived fields present = %v/%v", i, hasDate, hasHuman)
		}
	}
}

func TestBuild_Atom(t *testing.T) {
	f := build(t, atom, true)
	if f.Kind() != KindAtom {
		t.Fatalf("Kind() = %v, want atom", f.Kind())
	}
	if f.Text("title") != "Atom Example" {
		t.Errorf("Text(title) = %q", f.Text("title"))
	}

	items := f.Items()
	if len(items) != 2 {
		t.Fatalf("len(Items()) = %d, want 2", len(items))
	}
	if items[0].Title() != "Rich title" {
		t.Errorf("structured title = %q, want %q", items[0].Title(), "Rich title")
	}
	if items[0].Text(FieldDate) != "2024-01-02 12:00:00" {
		t.Errorf("updated-derived date = %q", items[0].Text(FieldDate))
	}
	if items[1].Text(FieldDate) != "2023-12-24 23:00:00" {
		t.Errorf("published-derived date = %q, want UTC conversion", items[1].Text(FieldDate))
	}
}

func TestBuild_RDFItemsAttachedToChannel(t *testing.T) {
	f := build(t, rdf, true)
	if f.Text("title") != "RDF Channel" {
		t.Errorf("Text(title) = %q", f.Text("title"))
	}
	items := f.Items()
	if len(items) != 2 {
		t.Fatalf("len(Items()) = %d, want 2", len(items))
	}
	if items[0].Text(FieldDate) != "2024-01-02 00:00:00" {
		t.Errorf("dc:date-derived date = %q", items[0].Text(FieldDate))
	}
}

func TestBuild_MissingChannel(t *testing.T) {
	docs := map[string]string{
		"no channel": `<rss version="2.0"><foo/></rss>`,
		"not a feed": `<html><body>hi</body></html>`,
		"garbage":    `not xml at all`,
	}

	for name, src := range docs {
		t.Run(name, func(t *testing.T) {
			data := []byte(src)
			_, err := Build(context.Background(), xmltree.Parse(data), BuildOptions{Kind: Detect(data), Validate: true})
			if !errors.Is(err, errors.ErrCodeInvalidFeed) {
				t.Errorf("Build(validate) error = %v, want INVALID_FEED", err)
			}

			f, err := Build(context.Background(), xmltree.Parse(data), BuildOptions{Kind: Detect(data)})
			if err != nil {
				t.Fatalf("Build(no validate) error: %v", err)
			}
			if _, ok := f.Get("title"); ok {
				t.Error("Get(title) on channel-less feed should be absent")
			}
			if f.ToArray() != nil || len(f.Items()) != 0 {
				t.Error("channel-less feed should flatten to nil with no items")
			}
		})
	}
}

func TestBuild_ExistingDateFieldReplaced(t *testing.T) {
	src := `<rss><channel><item><date>stale</date><pubDate>Mon, 01 Jan 2024 00:00:00 +0000</pubDate></item></channel></rss>`
	items := build(t, src, true).Items()
	dates := items[0].Element().ChildrenTagged(FieldDate)
	if len(dates) != 1 || dates[0].Text() != "2024-01-01 00:00:00" {
		t.Errorf("date fields = %d, first %q; want one derived date", len(dates), items[0].Text(FieldDate))
	}
}

func TestFeed_Get(t *testing.T) {
	f := build(t, rss2, true)

	if el, ok := f.Get("title"); !ok || el.Text() != "Example Blog" {
		t.Errorf("Get(title) = %v, %v", el, ok)
	}
	if f.Text("dc:creator") != "Editors" {
		t.Errorf("Text(dc:creator) = %q, want alias of namespaced child", f.Text("dc:creator"))
	}
	if _, ok := f.Get("nonexistent"); ok {
		t.Error("Get(nonexistent) should be absent")
	}
	if f.Text("nonexistent") != "" {
		t.Error("Text(nonexistent) should be empty")
	}

	item := f.Items()[0]
	if item.Text("dc:date") != "2024-01-01T00:00:00Z" {
		t.Errorf("item dc:date alias = %q", item.Text("dc:date"))
	}
	if d, ok := item.Date(); !ok || !d.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date() = %v, %v", d, ok)
	}
}

func TestFlatten(t *testing.T) {
	src := `<rss><channel><title>T</title><item><title>A</title></item><item><title>B</title></item><category>x</category></channel></rss>`
	f := build(t, src, true)

	want := map[string]any{
		"title": "T",
		"item": []any{
			map[string]any{"title": "A"},
			map[string]any{"title": "B"},
		},
		"category": "x",
	}
	if got := f.ToArray(); !reflect.DeepEqual(got, want) {
		t.Errorf("ToArray() = %#v\nwant %#v", got, want)
	}

	single := build(t, `<rss><channel><item><title>Only</title></item></channel></rss>`, true)
	m := single.ToArray().(map[string]any)
	if _, isMap := m["item"].(map[string]any); !isMap {
		t.Errorf("single item flattened to %T, want map", m["item"])
	}

	js, err := json.Marshal(single)
	if err != nil {
		t.Fatalf("json.Marshal(feed) error: %v", err)
	}
	if string(js) != `{"item":{"title":"Only"}}` {
		t.Errorf("json = %s", js)
	}
}

func TestFlatten_PrefixedChildren(t *testing.T) {
	src := `<rss xmlns:media="http://search.yahoo.com/mrss/"><channel><item>
  <title>A</title>
  <media:group>
    <media:title>Clip</media:title>
    <media:description>D</media:description>
    <media:thumbnail url="t1.jpg"/>
    <media:thumbnail url="t2.jpg"/>
  </media:group>
</item></channel></rss>`
	f := build(t, src, true)

	want := map[string]any{
		"title": "A",
		"media:group": map[string]any{
			"media:title":       "Clip",
			"media:description": "D",
			"media:thumbnail":   []any{"", ""},
		},
	}
	if got := f.Items()[0].ToArray(); !reflect.DeepEqual(got, want) {
		t.Errorf("ToArray() = %#v\nwant %#v", got, want)
	}
}

func TestBuild_UndeclaredPrefix(t *testing.T) {
	src := `<rss><channel><item><title>A</title><dc:date>2024-01-01T00:00:00Z</dc:date><dc:creator>Bob</dc:creator></item></channel></rss>`
	f := build(t, src, true)

	it := f.Items()[0]
	if el, ok := it.Get("dc:date"); !ok || el.Text() != "2024-01-01T00:00:00Z" {
		t.Errorf("Get(dc:date) = %v, %v", el, ok)
	}
	if got := it.Text(FieldDate); got != "2024-01-01 00:00:00" {
		t.Errorf("date = %q, want 2024-01-01 00:00:00", got)
	}
	if got := it.HumanDifference(); got != "2 days ago" {
		t.Errorf("humanDifference = %q", got)
	}
	m := it.ToArray().(map[string]any)
	if m["dc:creator"] != "Bob" {
		t.Errorf("flattened item = %v", m)
	}
}

func TestLoader_LoadFeed(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if u, p, ok := r.BasicAuth(); !ok || u != "reader" || p != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rss2))
	}))
	defer srv.Close()

	dir := t.TempDir()
	l, err := New(Config{CacheDir: dir, CacheExpiry: "1 hour", Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	for i := 0; i < 2; i++ {
		f, err := l.LoadFeed(context.Background(), srv.URL, WithBasicAuth("reader", "pw"))
		if err != nil {
			t.Fatalf("LoadFeed() error: %v", err)
		}
		if f.Text("title") != "Example Blog" {
			t.Errorf("Text(title) = %q", f.Text("title"))
		}
	}
	// The second load is served from the file written by the first, whose
	// mtime is the real clock; the injected clock is earlier, so it is fresh.
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1", hits.Load())
	}

	path := l.Cache().Path(NewRequest(srv.URL, WithBasicAuth("reader", "pw")))
	if _, err := os.Stat(path); err != nil {
		t.Errorf("cache file missing: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("cache file in %s, want %s", filepath.Dir(path), dir)
	}
}

func TestLoader_InvalidFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Not a feed</title></head></html>`))
	}))
	defer srv.Close()

	l, _ := New(Config{})
	if _, err := l.LoadFeed(context.Background(), srv.URL); !errors.Is(err, errors.ErrCodeInvalidFeed) {
		t.Errorf("LoadFeed() error = %v, want INVALID_FEED", err)
	}
	f, err := l.LoadRSS(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("LoadRSS() error: %v", err)
	}
	if _, ok := f.Get("title"); ok {
		t.Error("LoadRSS on non-feed should give absent fields")
	}
}

func TestLoader_LoadFailed(t *testing.T) {
	l, err := New(Config{Fetcher: failingFetcher{}})
	if err != nil {
		t.Fatal(err)
	}
	_, err = l.LoadFeed(context.Background(), "https://example.invalid/rss")
	if !errors.Is(err, errors.ErrCodeLoadFailed) {
		t.Errorf("LoadFeed() error = %v, want LOAD_FAILED", err)
	}
}

func TestLoader_LoadXMLMalformed(t *testing.T) {
	l, _ := New(Config{Fetcher: staticFetcher(`<rss><channel><title>Cut`)})
	doc, err := l.LoadXML(context.Background(), transport.Request{URL: "mem://x"})
	if err != nil {
		t.Fatalf("LoadXML() error: %v", err)
	}
	if doc.Root.Child("channel").Child("title").Text() != "Cut" {
		t.Error("LoadXML should keep the recovered prefix of malformed input")
	}
}

func TestNew_InvalidExpiry(t *testing.T) {
	if _, err := New(Config{CacheExpiry: cache.Expiry("whenever")}); !errors.Is(err, errors.ErrCodeInvalidExpiry) {
		t.Errorf("New() error = %v, want INVALID_EXPIRY", err)
	}
}

type failingFetcher struct{}

func (failingFetcher) Fetch(context.Context, transport.Request) ([]byte, error) {
	return nil, transport.ErrNoData
}

type staticFetcher string

func (s staticFetcher) Fetch(context.Context, transport.Request) ([]byte, error) {
	return []byte(s), nil
}
