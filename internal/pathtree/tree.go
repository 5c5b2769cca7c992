// Package pathtree groups views into a referrer hierarchy: one top-level
// node per originating host, then one node per URL path segment. The tree is
// built fresh per query and never mutated; drill-down produces new nodes.
package pathtree

import (
	"sort"
	"strings"

	"pixelview/internal/views"
)

// UnknownSource is the reserved top-level bucket for views recorded without
// referrer data.
const UnknownSource = "Unknown source"

// OwnPagesSegment is the drill-down sentinel selecting a node's
// directly-attributed pages without its subdirectories.
const OwnPagesSegment = "/"

// Node is one level of the referrer hierarchy. The JSON shape (subdir/pages)
// is the wire contract with the rendering layer.
type Node struct {
	Subdir map[string]*Node `json:"subdir"`
	Pages  []views.View     `json:"pages"`
}

// Pages starts as an empty slice, not nil: the node serializes to JSON and
// consumers index pages.length on every level, so null is not a valid wire
// value.
func newNode() *Node {
	return &Node{
		Subdir: make(map[string]*Node),
		Pages:  []views.View{},
	}
}

// Build converts a flat view list into the host/path-segment tree. Each view
// is attributed to exactly one node: the one its segment chain terminates at.
func Build(list []views.View) *Node {
	root := newNode()
	for _, v := range list {
		node := root
		for _, segment := range segmentsFor(v) {
			child, ok := node.Subdir[segment]
			if !ok {
				child = newNode()
				node.Subdir[segment] = child
			}
			node = child
		}
		node.Pages = append(node.Pages, v)
	}
	return root
}

// segmentsFor returns the chain [host, path segments...] for a view, or the
// unknown-source bucket when referrer data is missing. Empty path segments
// (doubled or trailing slashes) are discarded.
func segmentsFor(v views.View) []string {
	if v.Host == "" || v.Pathname == "" {
		return []string{UnknownSource}
	}

	segments := []string{v.Host}
	for _, part := range strings.Split(v.Pathname, "/") {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// Select narrows the tree to a drill-down path previously produced by
// descending it. An empty path returns the root unchanged. A trailing
// OwnPagesSegment yields a synthetic node holding only the target's own
// pages. Otherwise the result is a single-entry node exposing the final
// segment's subtree with all its descendants. Unknown segments (stale UI
// state) resolve to an empty node rather than failing.
func Select(root *Node, path []string) *Node {
	if len(path) == 0 {
		return root
	}

	node := root
	for i, segment := range path {
		if i+1 < len(path) && path[i+1] == OwnPagesSegment {
			result := newNode()
			own := newNode()
			if child, ok := node.Subdir[segment]; ok {
				own.Pages = child.Pages
			}
			result.Subdir[OwnPagesSegment] = own
			return result
		}

		child, ok := node.Subdir[segment]
		if !ok {
			return newNode()
		}

		if i == len(path)-1 {
			result := newNode()
			result.Subdir[segment] = child
			return result
		}

		node = child
	}

	return newNode()
}

// Flatten produces the union of a node's own pages and, recursively, every
// descendant's pages. Children are visited in sorted key order so the result
// is deterministic; the multiset of views is exactly the one the subtree
// holds.
func Flatten(node *Node) []views.View {
	if node == nil {
		return nil
	}

	result := make([]views.View, 0, len(node.Pages))
	result = append(result, node.Pages...)

	keys := make([]string, 0, len(node.Subdir))
	for key := range node.Subdir {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		result = append(result, Flatten(node.Subdir[key])...)
	}
	return result
}
