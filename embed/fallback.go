package embed

import (
	"context"
	"crypto/sha512"
	"encoding/binary"
)

// fallbackEmbedder is the deterministic embedder used when no model
// endpoint is configured or reachable (spec.md §4.2, §9 open question:
// "what hashing/projection scheme backs the fallback embedder" — resolved
// here as a per-dimension SHA-512 stream keyed by (text, dimension
// index), giving a sign-stable random-hyperplane-style projection without
// pulling in a linear-algebra dependency).
//
// It loses semantics but is stable across processes and preserves
// uniqueness for distinct inputs with high probability: each output
// coordinate is an independent pseudorandom hash of (text, i), so two
// different texts collide on all D_elem coordinates only with
// probability ~2^-D_elem.
type fallbackEmbedder struct {
	dim   int
	model string
}

func newFallbackEmbedder(dim int, model string) *fallbackEmbedder {
	if dim <= 0 {
		dim = 768
	}
	if model == "" {
		model = "fallback-hash-projection"
	}
	return &fallbackEmbedder{dim: dim, model: model}
}

func (f *fallbackEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return hashProject(text, f.dim), nil
}

func (f *fallbackEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashProject(t, f.dim)
	}
	return out, nil
}

func (f *fallbackEmbedder) Dimension() int { return f.dim }
func (f *fallbackEmbedder) Model() string  { return f.model }

// Fallback computes the deterministic hash-projection vector for text at
// the given dimension, for callers (e.g. the cache's degraded path) that
// need a fallback vector without constructing a full Embedder.
func Fallback(text string, dim int) []float32 {
	if dim <= 0 {
		dim = 768
	}
	return hashProject(text, dim)
}

// hashProject derives a dim-length L2-normalized vector from text by
// hashing (text, coordinate index) with SHA-512 and mapping the digest's
// leading bytes to a signed magnitude in [-1, 1].
func hashProject(text string, dim int) []float32 {
	vec := make([]float32, dim)
	buf := make([]byte, len(text)+8)
	copy(buf, text)

	for i := 0; i < dim; i++ {
		binary.LittleEndian.PutUint64(buf[len(text):], uint64(i))
		sum := sha512.Sum512(buf)

		sign := float32(1)
		if sum[0]&1 == 1 {
			sign = -1
		}
		magnitude := float32(binary.BigEndian.Uint32(sum[1:5])) / float32(1<<32)
		vec[i] = sign * magnitude
	}

	return l2Normalize(vec)
}
