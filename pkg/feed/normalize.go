package feed

import (
	"slices"

	"github.com/matzehuels/feedload/pkg/xmltree"
)

// Normalize returns a copy of el with a flat alias for every namespaced
// child.
//
// For each non-default prefix in scope at el, every direct child in that
// prefix's namespace gets a sibling named "<prefix>:<local>" outside any
// namespace, carrying a copy of the child's subtree. After normalization
// <dc:date> is reachable as Child("dc:date") next to the unprefixed
// fields. Duplicates are kept, so two <dc:subject> children give two
// "dc:subject" aliases. Only direct children are aliased.
//
// el itself is not modified.
func Normalize(el *xmltree.Element) *xmltree.Element {
	if el == nil {
		return nil
	}

	ns := el.Namespaces()
	prefixes := make([]string, 0, len(ns))
	for prefix := range ns {
		if prefix != "" && prefix != "xml" {
			prefixes = append(prefixes, prefix)
		}
	}
	slices.Sort(prefixes)

	var aliases []*xmltree.Element
	for _, prefix := range prefixes {
		for _, child := range el.ChildrenNS(ns[prefix]) {
			aliases = append(aliases, child.Clone().Renamed(prefix+":"+child.Name().Local))
		}
	}
	if len(aliases) == 0 {
		return el.Clone()
	}
	return el.Clone().WithChildren(aliases...)
}
