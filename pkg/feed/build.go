package feed

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/mmcdole/gofeed"

	"github.com/matzehuels/feedload/pkg/errors"
	"github.com/matzehuels/feedload/pkg/observability"
	"github.com/matzehuels/feedload/pkg/xmltree"
)

// Kind is the syndication format of a document.
type Kind int

const (
	KindUnknown Kind = iota
	KindRSS          // RSS 0.9x, 2.0 and RSS 1.0 (RDF)
	KindAtom
)

func (k Kind) String() string {
	switch k {
	case KindRSS:
		return "rss"
	case KindAtom:
		return "atom"
	default:
		return "unknown"
	}
}

// Detect sniffs the format of a raw document.
func Detect(data []byte) Kind {
	switch gofeed.DetectFeedType(bytes.NewReader(data)) {
	case gofeed.FeedTypeRSS:
		return KindRSS
	case gofeed.FeedTypeAtom:
		return KindAtom
	default:
		return KindUnknown
	}
}

// kindOf falls back to the root element name when sniffing failed, which
// happens for documents only the lenient parser could read.
func kindOf(hint Kind, root *xmltree.Element) Kind {
	if hint != KindUnknown || root == nil {
		return hint
	}
	switch strings.ToLower(root.Name().Local) {
	case "rss", "rdf":
		return KindRSS
	case "feed":
		return KindAtom
	}
	return KindUnknown
}

// BuildOptions controls [Build].
type BuildOptions struct {
	// Kind is the detected format. KindUnknown falls back to the root
	// element name.
	Kind Kind

	// Validate makes a missing channel an INVALID_FEED error. Without it a
	// missing channel yields a Feed on which every lookup is absent.
	Validate bool

	// Now is the reference for humanDifference. Zero means time.Now().
	Now time.Time

	// Parser reads item dates. Nil means DefaultDateParser.
	Parser DateParser

	// Location is the zone of the derived date field. Nil means UTC.
	Location *time.Location

	// Logger receives per-item diagnostics. Nil means log.Default().
	Logger *log.Logger
}

// Build turns a parsed document into a Feed.
//
// The channel is <channel> under the root for RSS, with RSS 1.0's
// root-level <item> elements moved under it, and the root <feed> for Atom.
// The channel and each item are normalized. Items with a parseable dc:date
// (else pubDate for RSS, published or updated for Atom) gain "date" and
// "humanDifference" fields, and every item's title is reduced to its text.
func Build(ctx context.Context, doc *xmltree.Document, opts BuildOptions) (*Feed, error) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Parser == nil {
		opts.Parser = DefaultDateParser
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	var root *xmltree.Element
	if !doc.Empty() {
		root = doc.Root
	}
	kind := kindOf(opts.Kind, root)
	channel, itemTag := locateChannel(kind, root)
	if channel == nil {
		if opts.Validate {
			name := "nothing"
			if root != nil {
				name = "<" + root.Tag() + ">"
			}
			return nil, errors.New(errors.ErrCodeInvalidFeed, "no channel or feed element found (document root is %s)", name)
		}
		return &Feed{kind: kind, itemTag: itemTag}, nil
	}

	b := &builder{ctx: ctx, opts: opts, kind: kind}
	channel = Normalize(channel).MapChildren(func(c *xmltree.Element) *xmltree.Element {
		if c.Name().Prefix == "" && c.Name().Local == itemTag {
			return b.item(c)
		}
		return c
	})
	return &Feed{channel: channel, kind: kind, itemTag: itemTag}, nil
}

func locateChannel(kind Kind, root *xmltree.Element) (*xmltree.Element, string) {
	if root == nil {
		return nil, "item"
	}
	if kind == KindAtom {
		if root.Name().Local != "feed" {
			return nil, "entry"
		}
		return root, "entry"
	}

	channel := root.Child("channel")
	if channel == nil {
		return nil, "item"
	}
	if strings.EqualFold(root.Name().Local, "rdf") {
		if items := root.ChildrenTagged("item"); len(items) > 0 {
			channel = channel.WithChildren(items...)
		}
	}
	return channel, "item"
}

type builder struct {
	ctx  context.Context
	opts BuildOptions
	kind Kind
}

func (b *builder) dateFields() []string {
	if b.kind == KindAtom {
		return []string{"dc:date", "published", "updated"}
	}
	return []string{"dc:date", "pubDate"}
}

func (b *builder) item(raw *xmltree.Element) *xmltree.Element {
	item := Normalize(raw).MapChildren(func(c *xmltree.Element) *xmltree.Element {
		if c.Name().Prefix == "" && c.Name().Local == "title" {
			return xmltree.NewElement("title", c.Content())
		}
		return c
	})

	src := ""
	for _, field := range b.dateFields() {
		if s := item.Child(field).Text(); s != "" {
			src = s
			break
		}
	}
	if src == "" {
		return item
	}

	t, ok := b.opts.Parser.Parse(src)
	if !ok {
		b.opts.Logger.Debug("unparseable item date", "value", src)
		observability.Feed().OnItemDateSkipped(b.ctx, src)
		return item
	}
	// Derived fields replace any the item already carried.
	item = item.MapChildren(func(c *xmltree.Element) *xmltree.Element {
		if c.Name().Prefix == "" && (c.Name().Local == FieldDate || c.Name().Local == FieldHumanDifference) {
			return nil
		}
		return c
	})
	return item.WithChildren(
		xmltree.NewElement(FieldDate, t.In(b.opts.Location).Format(DateLayout)),
		xmltree.NewElement(FieldHumanDifference, humanize.RelTime(t, b.opts.Now, "ago", "from now")),
	)
}
