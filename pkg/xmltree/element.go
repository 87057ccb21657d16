// Package xmltree is a small, immutable XML element tree.
//
// Unlike encoding/xml unmarshalling into structs, a tree keeps every element
// in document order together with its raw prefix, resolved namespace URI and
// the prefix bindings in scope, which is what feed normalization needs.
// Trees come from [Parse], which never fails: malformed input produces
// whatever structure could be recovered.
//
// Elements expose no mutators. Code that needs a different tree builds one
// with [Element.WithChildren], [Element.MapChildren] or [NewElement], all of
// which return new elements and leave their receivers untouched.
package xmltree

import (
	"maps"
	"slices"
	"strings"
)

// Name is an element or attribute name.
type Name struct {
	Prefix string // prefix as written in the document
	Local  string // local part
	Space  string // namespace URI the prefix resolved to
}

// Tag returns the qualified name as written, "prefix:local" or "local".
func (n Name) Tag() string {
	if n.Prefix == "" {
		return n.Local
	}
	return n.Prefix + ":" + n.Local
}

// Attr is an attribute of an element.
type Attr struct {
	Name  Name
	Value string
}

// Element is a node of the tree.
type Element struct {
	name     Name
	attrs    []Attr
	text     string
	children []*Element
	at       []int // offset into text at which each child occurs
	ns       map[string]string
}

// NewElement creates an element outside any namespace with the given text
// and children. The tag is stored verbatim as the local name, so a tag like
// "dc:date" names a plain field rather than a namespaced element.
func NewElement(tag, text string, children ...*Element) *Element {
	return (&Element{name: Name{Local: tag}, text: text}).WithChildren(children...)
}

// Name returns the element's name.
func (e *Element) Name() Name { return e.name }

// Tag returns the element's qualified name as written.
func (e *Element) Tag() string { return e.name.Tag() }

// Text returns the element's own character data with surrounding space
// removed. Text of descendants is not included; see [Element.Content].
func (e *Element) Text() string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.text)
}

// Content returns the character data of the element and all of its
// descendants in document order, with runs of white space collapsed. Like a
// DOM textContent, no separator is inserted at element boundaries.
func (e *Element) Content() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	e.collect(&b)
	return strings.Join(strings.Fields(b.String()), " ")
}

func (e *Element) collect(b *strings.Builder) {
	pos := 0
	for i, c := range e.children {
		if off := e.at[i]; off > pos {
			b.WriteString(e.text[pos:off])
			pos = off
		}
		c.collect(b)
	}
	b.WriteString(e.text[pos:])
}

// Attr returns the value of the attribute whose qualified name is tag.
func (e *Element) Attr(tag string) (string, bool) {
	for _, a := range e.attrs {
		if a.Name.Tag() == tag {
			return a.Value, true
		}
	}
	return "", false
}

// Attrs returns a copy of the element's attributes, namespace declarations
// excluded.
func (e *Element) Attrs() []Attr { return slices.Clone(e.attrs) }

// Children returns a copy of the element's child list.
func (e *Element) Children() []*Element { return slices.Clone(e.children) }

// IsLeaf reports whether the element has no children.
func (e *Element) IsLeaf() bool { return len(e.children) == 0 }

// Child returns the first unprefixed child whose local name is tag.
//
// Only children written without a prefix are addressable this way; children
// in a prefixed namespace are reached through [Element.ChildrenNS] or through
// the aliases added by feed normalization.
func (e *Element) Child(tag string) *Element {
	if e == nil {
		return nil
	}
	for _, c := range e.children {
		if c.name.Prefix == "" && c.name.Local == tag {
			return c
		}
	}
	return nil
}

// ChildrenTagged returns all unprefixed children whose local name is tag, in
// document order.
func (e *Element) ChildrenTagged(tag string) []*Element {
	if e == nil {
		return nil
	}
	var out []*Element
	for _, c := range e.children {
		if c.name.Prefix == "" && c.name.Local == tag {
			out = append(out, c)
		}
	}
	return out
}

// ChildrenNS returns the children whose resolved namespace is uri.
func (e *Element) ChildrenNS(uri string) []*Element {
	var out []*Element
	for _, c := range e.children {
		if c.name.Space == uri {
			out = append(out, c)
		}
	}
	return out
}

// Namespaces returns the prefix bindings in scope at the element, declared
// on it or inherited. The default namespace is keyed by "".
func (e *Element) Namespaces() map[string]string { return maps.Clone(e.ns) }

// Fields returns the distinct local names of the unprefixed children in
// order of first appearance.
func (e *Element) Fields() []string {
	if e == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, c := range e.children {
		if c.name.Prefix != "" || seen[c.name.Local] {
			continue
		}
		seen[c.name.Local] = true
		out = append(out, c.name.Local)
	}
	return out
}

// Clone returns a deep copy of the element.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	c := e.shallow()
	for i, child := range c.children {
		c.children[i] = child.Clone()
	}
	return c
}

// WithChildren returns a copy of the element with children appended. The
// existing children are shared with the receiver, which is safe because
// elements are never modified in place.
func (e *Element) WithChildren(children ...*Element) *Element {
	c := e.shallow()
	for _, child := range children {
		c.children = append(c.children, child)
		c.at = append(c.at, len(c.text))
	}
	return c
}

// MapChildren returns a copy of the element whose children are the results of
// fn applied to each child. Children for which fn returns nil are dropped.
func (e *Element) MapChildren(fn func(*Element) *Element) *Element {
	c := e.shallow()
	c.children, c.at = c.children[:0], c.at[:0]
	for i, child := range e.children {
		if mapped := fn(child); mapped != nil {
			c.children = append(c.children, mapped)
			c.at = append(c.at, e.at[i])
		}
	}
	return c
}

// Renamed returns a copy of the element outside any namespace, with tag as
// its local name. Its subtree is shared with the receiver.
func (e *Element) Renamed(tag string) *Element {
	c := e.shallow()
	c.name = Name{Local: tag}
	return c
}

func (e *Element) shallow() *Element {
	return &Element{
		name:     e.name,
		attrs:    slices.Clone(e.attrs),
		text:     e.text,
		children: slices.Clone(e.children),
		at:       slices.Clone(e.at),
		ns:       e.ns,
	}
}

// Document is a parsed XML document. Root is nil when no element could be
// recovered.
type Document struct {
	Root *Element
}

// Empty reports whether the document has no root element.
func (d *Document) Empty() bool { return d == nil || d.Root == nil }
