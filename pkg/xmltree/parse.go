package xmltree

import (
	"bytes"
	"encoding/xml"
	"io"
	"maps"
	"strings"

	"golang.org/x/net/html/charset"
)

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// Parse builds a tree from data. It never fails.
//
// Decoding is lenient: unknown HTML entities are accepted, the declared
// character set is honoured, end tags that close an outer element implicitly
// close everything inside it, stray end tags are ignored, and input that ends
// early keeps every element opened so far. Content after the first root
// element is discarded.
func Parse(data []byte) *Document {
	return ParseReader(bytes.NewReader(data))
}

// ParseReader is [Parse] for a stream.
func ParseReader(r io.Reader) *Document {
	d := xml.NewDecoder(r)
	d.Strict = false
	d.Entity = xml.HTMLEntity
	d.CharsetReader = charset.NewReaderLabel

	p := &parser{}
	for {
		tok, err := d.RawToken()
		if err != nil {
			break
		}
		p.token(tok)
	}
	p.closeAll()
	return &Document{Root: p.root}
}

type frame struct {
	el   *Element
	raw  xml.Name
	text strings.Builder
}

type parser struct {
	root  *Element
	stack []*frame
	done  bool
}

func (p *parser) token(tok xml.Token) {
	switch t := tok.(type) {
	case xml.StartElement:
		p.start(t)
	case xml.EndElement:
		p.end(t.Name)
	case xml.CharData:
		if n := len(p.stack); n > 0 {
			p.stack[n-1].text.Write(t)
		}
	}
}

func (p *parser) start(t xml.StartElement) {
	var parentNS map[string]string
	if n := len(p.stack); n > 0 {
		parentNS = p.stack[n-1].el.ns
	} else {
		parentNS = map[string]string{"xml": xmlNamespace}
	}

	ns := parentNS
	owned := false
	bind := func(prefix, uri string) {
		if !owned {
			ns = maps.Clone(parentNS)
			owned = true
		}
		ns[prefix] = uri
	}

	var attrs []Attr
	for _, a := range t.Attr {
		switch {
		case a.Name.Space == "xmlns":
			bind(a.Name.Local, a.Value)
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			bind("", a.Value)
		default:
			attrs = append(attrs, Attr{Name: Name{Prefix: a.Name.Space, Local: a.Name.Local}, Value: a.Value})
		}
	}
	for i := range attrs {
		if attrs[i].Name.Prefix != "" {
			attrs[i].Name.Space = ns[attrs[i].Name.Prefix]
		}
	}

	// An undeclared prefix keeps its qualified name as an unprefixed local
	// name, so "dc:date" stays addressable without xmlns:dc.
	name := Name{Prefix: t.Name.Space, Local: t.Name.Local}
	if uri, ok := ns[name.Prefix]; ok {
		name.Space = uri
	} else if name.Prefix != "" {
		name = Name{Local: name.Prefix + ":" + name.Local}
	}

	el := &Element{
		name:  name,
		attrs: attrs,
		ns:    ns,
	}

	if len(p.stack) == 0 {
		if p.done {
			// Second root: parse it so the token stream stays balanced, but
			// keep it out of the document.
			p.stack = append(p.stack, &frame{el: el, raw: t.Name})
			return
		}
		p.root = el
		p.done = true
	} else {
		top := p.stack[len(p.stack)-1]
		top.el.children = append(top.el.children, el)
		top.el.at = append(top.el.at, top.text.Len())
	}
	p.stack = append(p.stack, &frame{el: el, raw: t.Name})
}

func (p *parser) end(name xml.Name) {
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i].raw == name {
			for len(p.stack) > i {
				p.pop()
			}
			return
		}
	}
}

func (p *parser) pop() {
	n := len(p.stack)
	f := p.stack[n-1]
	f.el.text = f.text.String()
	p.stack = p.stack[:n-1]
}

func (p *parser) closeAll() {
	for len(p.stack) > 0 {
		p.pop()
	}
}
