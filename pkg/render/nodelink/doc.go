// Package nodelink renders XML element trees as node-link diagrams.
//
// Each element becomes a rounded box connected to its children, which makes
// the effect of feed normalization visible: the "dc:date" style aliases and
// the derived "date" fields appear next to the elements they came from.
//
//	dot := nodelink.ToDOT(feed.Channel(), nodelink.Options{Detailed: true, MaxChildren: 12})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// The DOT source can also be saved and processed with external Graphviz
// tools. Rendering uses [github.com/goccy/go-graphviz] in-process, so no
// Graphviz installation is needed.
package nodelink
