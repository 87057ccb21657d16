package feed

import (
	"strings"
	"time"
)

// DateLayout is the format of the derived "date" field.
const DateLayout = "2006-01-02 15:04:05"

// DateParser turns a feed's date string into a time.
type DateParser interface {
	Parse(s string) (time.Time, bool)
}

// DateParserFunc adapts a function to [DateParser].
type DateParserFunc func(s string) (time.Time, bool)

// Parse calls f(s).
func (f DateParserFunc) Parse(s string) (time.Time, bool) { return f(s) }

// LayoutParser tries each layout in order and returns the first match.
// Layouts without a zone are read in Location, UTC when nil.
type LayoutParser struct {
	Layouts  []string
	Location *time.Location
}

// DefaultLayouts covers the RFC 822 family used by RSS, the RFC 3339 family
// used by Atom and Dublin Core, and the looser variants found in the wild.
var DefaultLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04 -0700",
	"Mon, 2 Jan 2006 15:04 -0700",
	"Mon, 02 Jan 2006 15:04 MST",
	"Mon,02 Jan 2006 15:04:05 -0700",
	"02 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"02 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	"Monday, 02 Jan 2006 15:04:05 MST",
	"Mon, 02 January 2006 15:04:05 -0700",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.ANSIC,
	time.UnixDate,
	time.RubyDate,
	"January 2, 2006 15:04:05",
	"January 2, 2006",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006",
	"2 January 2006",
	"02/01/2006 15:04:05",
}

// zoneFixes maps zone names Go cannot resolve on its own to numeric offsets.
var zoneFixes = strings.NewReplacer(
	" UT", " +0000",
	" GMT", " +0000",
	" Z", " +0000",
	" EST", " -0500",
	" EDT", " -0400",
	" CST", " -0600",
	" CDT", " -0500",
	" MST", " -0700",
	" MDT", " -0600",
	" PST", " -0800",
	" PDT", " -0700",
)

// DefaultDateParser is a [LayoutParser] over [DefaultLayouts].
var DefaultDateParser DateParser = LayoutParser{Layouts: DefaultLayouts}

// Parse implements [DateParser].
func (p LayoutParser) Parse(s string) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}, false
	}
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}

	// Unknown abbreviations parse with a zero offset, so known ones are
	// rewritten before the verbatim form is tried.
	candidates := []string{s}
	if fixed := fixZone(s); fixed != s {
		candidates = []string{fixed, s}
	}
	for _, c := range candidates {
		for _, layout := range p.Layouts {
			if t, err := time.ParseInLocation(layout, c, loc); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// fixZone rewrites a trailing zone abbreviation as an offset.
func fixZone(s string) string {
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return s
	}
	return s[:i] + zoneFixes.Replace(s[i:])
}
