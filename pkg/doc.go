// Package pkg provides the libraries behind feedload.
//
// # Overview
//
// Feedload loads RSS and Atom feeds through a file cache and exposes them as
// read-only trees with flat, prefix-qualified field names. The pkg directory
// is organized into layers, leaves first:
//
//  1. [transport] - HTTP and file fetching with basic auth and decoding
//  2. [cache] - Hash-keyed file cache with calendar-aware expiry
//  3. [xmltree] - Lenient, namespace-aware XML element trees
//  4. [feed] - Normalization, date derivation and the Feed view
//  5. [render/nodelink] - Graphviz diagrams of element trees
//
// Cross-cutting packages:
//
//   - [errors] - Coded errors shared by every layer
//   - [observability] - Hook registry for loads, cache and HTTP events
//   - [buildinfo] - Version information injected at build time
//
// # Architecture
//
// The data flow of a load:
//
//	feed URL (+ credentials)
//	         ↓
//	    [cache] package (fresh entry, or fetch and store, or stale entry)
//	         ↓
//	    [transport] package (GET with timeout, decoding, redirects)
//	         ↓
//	    [xmltree] package (lenient parse)
//	         ↓
//	    [feed] package (channel lookup, normalization, derived dates)
//	         ↓
//	    Feed / Item views, flattened maps, JSON
//
// # Quick Start
//
//	l, err := feed.New(feed.Config{CacheDir: dir})
//	if err != nil {
//	    return err
//	}
//	f, err := l.LoadFeed(ctx, "https://go.dev/blog/feed.atom")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(f.Text("title"))
package pkg
