package snapshot

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod/lib/proto"
)

// xpathBuilder computes unique absolute XPaths for a CDP document tree
// using 1-based same-tag sibling indices, the same algorithm the session
// observer uses for mutation location reporting, generalized here to run
// once per capture instead of incrementally per mutation.
type xpathBuilder struct {
	nodes    map[proto.DOMNodeID]*proto.DOMNode
	tags     map[proto.DOMNodeID]string
	parent   map[proto.DOMNodeID]proto.DOMNodeID
	siblings map[proto.DOMNodeID][]proto.DOMNodeID
}

func newXPathBuilder() *xpathBuilder {
	return &xpathBuilder{
		nodes:    make(map[proto.DOMNodeID]*proto.DOMNode),
		tags:     make(map[proto.DOMNodeID]string),
		parent:   make(map[proto.DOMNodeID]proto.DOMNodeID),
		siblings: make(map[proto.DOMNodeID][]proto.DOMNodeID),
	}
}

// index walks the tree once, recording parent/children/tag relationships
// so xpathFor can answer in O(siblings) per node.
func (b *xpathBuilder) index(node *proto.DOMNode) {
	b.walk(node, 0)
}

func (b *xpathBuilder) walk(node *proto.DOMNode, parentID proto.DOMNodeID) {
	if node == nil {
		return
	}
	b.nodes[node.NodeID] = node
	b.tags[node.NodeID] = strings.ToLower(node.NodeName)
	if parentID != 0 {
		b.parent[node.NodeID] = parentID
		b.siblings[parentID] = append(b.siblings[parentID], node.NodeID)
	}
	for _, child := range node.Children {
		b.walk(child, node.NodeID)
	}
	for _, sr := range node.ShadowRoots {
		b.walk(sr, node.NodeID)
	}
	if cd := node.ContentDocument; cd != nil {
		b.walk(cd, node.NodeID)
	}
}

// xpathFor computes the absolute XPath of node within its document,
// special-casing /html and falling back to 1-based same-tag sibling
// indices everywhere else.
func (b *xpathBuilder) xpathFor(node *proto.DOMNode) string {
	var parts []string
	cur := node
	for cur != nil {
		tag := strings.ToLower(cur.NodeName)
		if tag == "#document" || tag == "#document-fragment" {
			break
		}

		idx, total := b.siblingPosition(cur)
		if total > 1 {
			parts = append([]string{fmt.Sprintf("%s[%d]", tag, idx)}, parts...)
		} else {
			parts = append([]string{tag}, parts...)
		}

		if tag == "html" {
			break
		}

		parentID, ok := b.parent[cur.NodeID]
		if !ok {
			break
		}
		cur = b.nodes[parentID]
	}
	return "/" + strings.Join(parts, "/")
}

func (b *xpathBuilder) siblingPosition(node *proto.DOMNode) (idx, total int) {
	parentID, ok := b.parent[node.NodeID]
	if !ok {
		return 1, 1
	}
	tag := b.tags[node.NodeID]
	pos, count := 0, 0
	for _, sibID := range b.siblings[parentID] {
		if b.tags[sibID] != tag {
			continue
		}
		count++
		if sibID == node.NodeID {
			pos = count
		}
	}
	return pos, count
}
