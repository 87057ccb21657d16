package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/feedload/pkg/xmltree"
)

// maxTextLen bounds the text shown under a tag in detailed labels.
const maxTextLen = 40

// Options configures element-tree diagram rendering.
type Options struct {
	// Detailed adds each leaf's text below its tag.
	Detailed bool

	// MaxDepth stops descending below this depth. The root is depth 0.
	// Zero means unlimited.
	MaxDepth int

	// MaxChildren collapses the children past this count into a single
	// "+N more" node. Zero means unlimited.
	MaxChildren int
}

// ToDOT converts an element tree to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG].
//
// Synthetic "prefix:local" aliases are drawn dashed and grey so they stand
// apart from the elements that were in the document.
func ToDOT(root *xmltree.Element, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.2;\n")
	buf.WriteString("\n")

	if root != nil {
		w := &dotWriter{buf: &buf, opts: opts}
		w.node(root, 0)
	}

	buf.WriteString("}\n")
	return buf.String()
}

type dotWriter struct {
	buf  *bytes.Buffer
	opts Options
	next int
}

func (w *dotWriter) id() string {
	id := "n" + strconv.Itoa(w.next)
	w.next++
	return id
}

func (w *dotWriter) node(el *xmltree.Element, depth int) string {
	id := w.id()
	fmt.Fprintf(w.buf, "  %s [%s];\n", id, strings.Join(fmtAttrs(el, fmtLabel(el, w.opts.Detailed)), ", "))

	if w.opts.MaxDepth > 0 && depth >= w.opts.MaxDepth {
		return id
	}
	children := el.Children()
	shown := children
	if w.opts.MaxChildren > 0 && len(children) > w.opts.MaxChildren {
		shown = children[:w.opts.MaxChildren]
	}
	for _, c := range shown {
		fmt.Fprintf(w.buf, "  %s -> %s;\n", id, w.node(c, depth+1))
	}
	if rest := len(children) - len(shown); rest > 0 {
		more := w.id()
		fmt.Fprintf(w.buf, "  %s [label=%q, shape=plaintext, style=\"\"];\n", more, fmt.Sprintf("+%d more", rest))
		fmt.Fprintf(w.buf, "  %s -> %s [style=dotted];\n", id, more)
	}
	return id
}

func fmtLabel(el *xmltree.Element, detailed bool) string {
	tag := el.Tag()
	if !detailed || !el.IsLeaf() {
		return tag
	}
	text := el.Text()
	if text == "" {
		return tag
	}
	if utf8.RuneCountInString(text) > maxTextLen {
		text = string([]rune(text)[:maxTextLen-1]) + "…"
	}
	return tag + "\n" + text
}

func fmtAttrs(el *xmltree.Element, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if isAlias(el) {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=black")
	}
	return attrs
}

// isAlias reports whether el is a synthetic "prefix:local" field, which is
// unprefixed but carries a colon in its local name.
func isAlias(el *xmltree.Element) bool {
	n := el.Name()
	return n.Prefix == "" && strings.Contains(n.Local, ":")
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root tag so the diagram scales from its
// viewBox origin.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(root))
}
