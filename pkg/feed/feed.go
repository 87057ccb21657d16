package feed

import (
	"encoding/json"
	"time"

	"github.com/matzehuels/feedload/pkg/xmltree"
)

// Names of the fields Build derives on each item.
const (
	FieldDate            = "date"
	FieldHumanDifference = "humanDifference"
)

// Feed is a read-only view of a normalized channel.
//
// Fields are looked up by name: the channel's unprefixed children plus the
// "prefix:local" aliases added by [Normalize]. Unknown names are absent,
// never an error. A Feed loaded without validation may have no channel at
// all, in which case every lookup is absent.
type Feed struct {
	channel *xmltree.Element
	kind    Kind
	itemTag string
}

// Kind returns the detected format.
func (f *Feed) Kind() Kind { return f.kind }

// Channel returns the normalized channel element, or nil.
func (f *Feed) Channel() *xmltree.Element { return f.channel }

// Get returns the first channel field named name.
func (f *Feed) Get(name string) (*xmltree.Element, bool) {
	el := f.channel.Child(name)
	return el, el != nil
}

// Text returns the text of the first channel field named name, or "".
func (f *Feed) Text(name string) string {
	return f.channel.Child(name).Text()
}

// Items returns the channel's items (<item> or <entry>) in document order.
func (f *Feed) Items() []*Item {
	els := f.channel.ChildrenTagged(f.itemTag)
	items := make([]*Item, len(els))
	for i, el := range els {
		items[i] = &Item{el: el}
	}
	return items
}

// ToArray flattens the channel. See [Flatten].
func (f *Feed) ToArray() any {
	return Flatten(f.channel)
}

// MarshalJSON encodes the flattened channel.
func (f *Feed) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.ToArray())
}

// Item is one entry of a Feed.
type Item struct {
	el *xmltree.Element
}

// Element returns the normalized item element.
func (it *Item) Element() *xmltree.Element { return it.el }

// Get returns the first item field named name.
func (it *Item) Get(name string) (*xmltree.Element, bool) {
	el := it.el.Child(name)
	return el, el != nil
}

// Text returns the text of the first item field named name, or "".
func (it *Item) Text(name string) string { return it.el.Child(name).Text() }

// Title returns the item title as plain text.
func (it *Item) Title() string { return it.Text("title") }

// Date parses the derived date field. It reports false for items whose
// source date was missing or unparseable.
func (it *Item) Date() (time.Time, bool) {
	s := it.Text(FieldDate)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	return t, err == nil
}

// HumanDifference returns the derived relative time, e.g. "3 days ago".
func (it *Item) HumanDifference() string { return it.Text(FieldHumanDifference) }

// ToArray flattens the item. See [Flatten].
func (it *Item) ToArray() any { return Flatten(it.el) }

// Flatten converts an element into plain Go values.
//
// A leaf becomes its text as a string. Any other element becomes a
// map[string]any from each child's tag to the flattened child, or to a
// []any of flattened children in document order when the tag occurs more
// than once. Prefixed children are keyed as "prefix:local" and are skipped
// where a normalization alias of the same name already exists. Attributes
// and the text of mixed-content elements are dropped. A nil element
// flattens to nil.
func Flatten(el *xmltree.Element) any {
	if el == nil {
		return nil
	}
	if el.IsLeaf() {
		return el.Text()
	}

	children := el.Children()
	aliased := make(map[string]bool)
	for _, c := range children {
		if c.Name().Prefix == "" {
			aliased[c.Tag()] = true
		}
	}

	var order []string
	groups := make(map[string][]*xmltree.Element)
	for _, c := range children {
		tag := c.Tag()
		if c.Name().Prefix != "" && aliased[tag] {
			continue
		}
		if _, ok := groups[tag]; !ok {
			order = append(order, tag)
		}
		groups[tag] = append(groups[tag], c)
	}

	out := make(map[string]any, len(order))
	for _, tag := range order {
		kids := groups[tag]
		if len(kids) == 1 {
			out[tag] = Flatten(kids[0])
			continue
		}
		list := make([]any, len(kids))
		for i, k := range kids {
			list[i] = Flatten(k)
		}
		out[tag] = list
	}
	return out
}
