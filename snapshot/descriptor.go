package snapshot

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// buildFrameSnapshot walks one CDP document tree into a FrameSnapshot,
// recursing into same-origin iframes and emitting cross-origin
// placeholders instead of descending into them.
func buildFrameSnapshot(page *rod.Page, root *proto.DOMNode, builder *xpathBuilder, ax map[proto.DOMBackendNodeID]*proto.AccessibilityAXNode, framePath []string, inShadow bool) FrameSnapshot {
	var elements []ElementDescriptor
	walkDescriptors(page, root, builder, ax, framePath, inShadow, 0, &elements)

	frame := FrameSnapshot{
		FrameID:  string(root.FrameID),
		URL:      pageURL(page),
		Elements: elements,
	}
	frame.DOMHash = domHash(elements)
	frame.AXHash = axHash(elements)
	return frame
}

func walkDescriptors(page *rod.Page, node *proto.DOMNode, builder *xpathBuilder, ax map[proto.DOMBackendNodeID]*proto.AccessibilityAXNode, framePath []string, inShadow bool, depth int, out *[]ElementDescriptor) {
	if node == nil {
		return
	}

	if node.NodeType == 1 { // Element
		d := describeElement(page, node, builder, ax, framePath, inShadow, depth)
		*out = append(*out, d)
	}

	for _, child := range node.Children {
		walkDescriptors(page, child, builder, ax, framePath, inShadow, depth+1, out)
	}
	for _, sr := range node.ShadowRoots {
		walkDescriptors(page, sr, builder, ax, framePath, true, depth+1, out)
	}

	// Cross-origin frames surface as placeholders; same-origin frames'
	// contents are already reachable through ContentDocument in the
	// flattened document and are walked like any other subtree.
	if node.ContentDocument != nil {
		childPath := append(append([]string{}, framePath...), builder.xpathFor(node))
		walkDescriptors(page, node.ContentDocument, builder, ax, childPath, inShadow, depth+1, out)
	} else if isFrameTag(node.NodeName) && node.FrameID != "" {
		*out = append(*out, crossOriginPlaceholder(page, node, builder, framePath, depth))
	}
}

func isFrameTag(nodeName string) bool {
	tag := strings.ToLower(nodeName)
	return tag == "iframe" || tag == "frame"
}

func crossOriginPlaceholder(page *rod.Page, node *proto.DOMNode, builder *xpathBuilder, framePath []string, depth int) ElementDescriptor {
	visible, bbox := boxModelOf(page, node.BackendNodeID)
	return ElementDescriptor{
		BackendNodeID: int64(node.BackendNodeID),
		FramePath:     append([]string{}, framePath...),
		Tag:           strings.ToLower(node.NodeName),
		Attributes:    attrMap(node.Attributes),
		XPathAbsolute: builder.xpathFor(node),
		Depth:         depth,
		CrossOrigin:   true,
		Visible:       visible,
		BoundingBox:   bbox,
	}
}

func describeElement(page *rod.Page, node *proto.DOMNode, builder *xpathBuilder, ax map[proto.DOMBackendNodeID]*proto.AccessibilityAXNode, framePath []string, inShadow bool, depth int) ElementDescriptor {
	attrs := attrMap(node.Attributes)
	tag := strings.ToLower(node.NodeName)

	d := ElementDescriptor{
		BackendNodeID: int64(node.BackendNodeID),
		FramePath:     append([]string{}, framePath...),
		Tag:           tag,
		Attributes:    normalizeAttrs(attrs),
		Text:          normalizeText(elementText(node)),
		XPathAbsolute: builder.xpathFor(node),
		Depth:         depth,
		InShadowDOM:   inShadow,

		Placeholder: attrs["placeholder"],
		Name:        attrs["name"],
		Value:       attrs["value"],
		Title:       attrs["title"],
		Alt:         attrs["alt"],
		Type:        attrs["type"],
	}

	if axNode, ok := ax[node.BackendNodeID]; ok && axNode != nil {
		if axNode.Role != nil {
			d.Role = axNode.Role.String()
		}
		if axNode.Name != nil {
			d.AriaLabel = axNode.Name.String()
			if d.Name == "" {
				d.Name = axNode.Name.String()
			}
		}
	}
	if d.AriaLabel == "" {
		d.AriaLabel = attrs["aria-label"]
	}

	d.Visible, d.BoundingBox = boxModelOf(page, node.BackendNodeID)
	d.Clickable = d.Visible && isClickable(tag, d.Role, attrs)

	d.ContentHash = contentHash(d)
	return d
}

// boxModelOf reports whether node currently has a rendered box (anything
// without one is display:none, detached, or otherwise un-rendered) and, if
// so, its viewport bounding rectangle. DOM.getBoxModel returning an error is
// the CDP-native "not rendered" signal, so absence of a box means Visible
// is false rather than unknown.
func boxModelOf(page *rod.Page, backendID proto.DOMBackendNodeID) (bool, *BoundingBox) {
	model, err := proto.DOMGetBoxModel{BackendNodeID: backendID}.Call(page)
	if err != nil || model == nil || model.Model == nil || len(model.Model.Content) < 8 {
		return false, nil
	}
	quad := model.Model.Content
	minX, maxX := quad[0], quad[0]
	minY, maxY := quad[1], quad[1]
	for i := 2; i+1 < len(quad); i += 2 {
		if quad[i] < minX {
			minX = quad[i]
		}
		if quad[i] > maxX {
			maxX = quad[i]
		}
		if quad[i+1] < minY {
			minY = quad[i+1]
		}
		if quad[i+1] > maxY {
			maxY = quad[i+1]
		}
	}
	if maxX <= minX || maxY <= minY {
		return false, nil
	}
	return true, &BoundingBox{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// actionableTags/actionableRoles mirror rank's action-intent tables but
// answer a narrower, intent-independent question: is this the kind of
// element a user could plausibly click at all.
var actionableTags = map[string]bool{
	"a": true, "button": true, "input": true, "select": true, "textarea": true, "summary": true, "option": true,
}

var actionableRoles = map[string]bool{
	"button": true, "link": true, "checkbox": true, "radio": true, "menuitem": true, "tab": true, "option": true, "switch": true,
}

func isClickable(tag, role string, attrs map[string]string) bool {
	if actionableTags[tag] {
		return true
	}
	if actionableRoles[strings.ToLower(role)] {
		return true
	}
	if _, ok := attrs["onclick"]; ok {
		return true
	}
	tabindex, ok := attrs["tabindex"]
	return ok && tabindex != "-1"
}

// elementText collects the direct text-node children of an element
// without descending into nested element subtrees, matching the
// "this node's own text" convention used for XPath text() predicates.
func elementText(node *proto.DOMNode) string {
	var sb strings.Builder
	for _, c := range node.Children {
		if c.NodeType == 3 { // Text
			sb.WriteString(c.NodeValue)
			sb.WriteString(" ")
		}
	}
	return sb.String()
}

func attrMap(flat []string) map[string]string {
	m := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		m[flat[i]] = flat[i+1]
	}
	return m
}

// normalizeAttrs sorts implicitly via map storage and expands boolean
// attributes to "true" per the normalization rule; sort order is applied
// at serialization/hash time via sortedKeys, not here.
func normalizeAttrs(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if v == "" {
			if _, boolLike := boolAttrs[k]; boolLike {
				out[k] = normalizeBoolAttr(true)
				continue
			}
		}
		out[k] = v
	}
	return out
}

var boolAttrs = map[string]struct{}{
	"disabled": {}, "checked": {}, "required": {}, "readonly": {},
	"hidden": {}, "selected": {}, "multiple": {}, "autofocus": {},
}

func indexAXNodes(tree *proto.AccessibilityGetFullAXTreeResult) map[proto.DOMBackendNodeID]*proto.AccessibilityAXNode {
	m := make(map[proto.DOMBackendNodeID]*proto.AccessibilityAXNode)
	if tree == nil {
		return m
	}
	for _, n := range tree.Nodes {
		if n.BackendDOMNodeID != 0 {
			m[n.BackendDOMNodeID] = n
		}
	}
	return m
}
