// Package snapshot captures a normalized DOM + accessibility tree from a
// live CDP page, computes content hashes for delta detection, and exposes
// the stable wire contract other packages (embed, rank, synth, verify) key
// their work off of.
package snapshot

import "time"

// BoundingBox is a node's layout rectangle in viewport coordinates.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ElementDescriptor is the canonical representation of one DOM node within
// one frame. Descriptors are rebuilt on every snapshot and never mutated
// after capture.
type ElementDescriptor struct {
	// Identity.
	BackendNodeID int64    `json:"backend_node_id"`
	FramePath     []string `json:"frame_path"`

	// Structural.
	Tag           string            `json:"tag"`
	Attributes    map[string]string `json:"attributes"`
	Text          string            `json:"text"`
	XPathAbsolute string            `json:"xpath_absolute"`
	Depth         int               `json:"depth"`
	InShadowDOM   bool              `json:"in_shadow_dom"`
	CrossOrigin   bool              `json:"cross_origin"`

	// Semantic.
	Role        string `json:"role,omitempty"`
	AriaLabel   string `json:"aria_label,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Name        string `json:"name,omitempty"`
	Value       string `json:"value,omitempty"`
	Title       string `json:"title,omitempty"`
	Alt         string `json:"alt,omitempty"`
	Type        string `json:"type,omitempty"`

	// State.
	Visible     bool         `json:"visible"`
	Clickable   bool         `json:"clickable"`
	BoundingBox *BoundingBox `json:"bounding_box,omitempty"`

	// ContentHash covers the subset of fields that affect an embedding
	// vector (tag, attributes, text, role, name). Two descriptors with
	// equal ContentHash MUST share the same vector.
	ContentHash string `json:"content_hash"`
}

// FrameSnapshot is one frame's elements plus its identity and content hash.
type FrameSnapshot struct {
	FrameID  string               `json:"frame_id"`
	URL      string               `json:"url"`
	DOMHash  string               `json:"dom_hash"`
	AXHash   string               `json:"ax_hash"`
	Elements []ElementDescriptor  `json:"elements"`
}

// Viewport records the captured page's viewport dimensions.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Snapshot is an ordered list of FrameSnapshots captured at one instant.
type Snapshot struct {
	SnapshotID string          `json:"snapshot_id"`
	CapturedAt time.Time       `json:"captured_at"`
	Viewport   Viewport        `json:"viewport"`
	Frames     []FrameSnapshot `json:"frames"`

	// Partial is true when capture returned on capture_timeout_ms before
	// the stability rule was fully satisfied.
	Partial bool `json:"partial,omitempty"`
}

// NodeCount returns the total descriptor count across all frames, used by
// the session manager's reindex-delta rule.
func (s Snapshot) NodeCount() int {
	n := 0
	for _, f := range s.Frames {
		n += len(f.Elements)
	}
	return n
}
