package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
)

// contentHash covers the subset of descriptor fields that affect an
// embedding vector: tag, sorted attributes, text, role, name.
func contentHash(d ElementDescriptor) string {
	h := sha256.New()
	h.Write([]byte(d.Tag))
	h.Write([]byte{0})
	for _, k := range sortedKeys(d.Attributes) {
		h.Write([]byte(k))
		h.Write([]byte{'='})
		h.Write([]byte(d.Attributes[k]))
		h.Write([]byte{0})
	}
	h.Write([]byte(d.Text))
	h.Write([]byte{0})
	h.Write([]byte(d.Role))
	h.Write([]byte{0})
	h.Write([]byte(d.Name))
	return hex.EncodeToString(h.Sum(nil))
}

// domHash is computed over the ordered (backend_node_id, tag, sorted
// attributes, text, role, name) tuple of every descriptor in a frame. Two
// snapshots with equal domHash are identical for ranking purposes.
func domHash(elements []ElementDescriptor) string {
	h := sha256.New()
	for _, d := range elements {
		h.Write([]byte(strconv.FormatInt(d.BackendNodeID, 10)))
		h.Write([]byte{0})
		h.Write([]byte(d.Tag))
		h.Write([]byte{0})
		for _, k := range sortedKeys(d.Attributes) {
			h.Write([]byte(k))
			h.Write([]byte{'='})
			h.Write([]byte(d.Attributes[k]))
			h.Write([]byte{0})
		}
		h.Write([]byte(d.Text))
		h.Write([]byte{0})
		h.Write([]byte(d.Role))
		h.Write([]byte{0})
		h.Write([]byte(d.Name))
		h.Write([]byte{0xff})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// axHash is computed over the ordered accessibility-relevant fields
// (role, aria_label, name) of every descriptor in a frame.
func axHash(elements []ElementDescriptor) string {
	h := sha256.New()
	for _, d := range elements {
		h.Write([]byte(d.Role))
		h.Write([]byte{0})
		h.Write([]byte(d.AriaLabel))
		h.Write([]byte{0})
		h.Write([]byte(d.Name))
		h.Write([]byte{0xff})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// snapshotID hashes the concatenated frame hashes in frame order.
func snapshotID(frames []FrameSnapshot) string {
	h := sha256.New()
	for _, f := range frames {
		h.Write([]byte(f.DOMHash))
		h.Write([]byte{0})
		h.Write([]byte(f.AXHash))
		h.Write([]byte{0xff})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HashHTML is a convenience hash over raw text, grounded on the same
// sha256-over-bytes idiom used for dom_hash and content_hash, kept for
// callers that only have raw HTML (e.g. exec's post-action DOM hash).
func HashHTML(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
