// Package geom implements the geometry normalization passes run between
// import and export: vertex welding, tangent synthesis and skin influence
// reduction. Nothing here performs I/O.
package geom

import "github.com/mynameisGaku/GXLib-sub003/pkg/scene"

// CornerKey identifies a face corner by the source attribute indices it uses.
// Missing attributes are -1.
type CornerKey struct {
	Position int
	Normal   int
	TexCoord int
}

// Welder deduplicates face corners into a vertex list. Two corners share a
// vertex only when their source indices match exactly; near-equal float
// values are never merged.
type Welder struct {
	lookup   map[CornerKey]uint32
	Vertices []scene.Vertex
}

// NewWelder creates an empty welder.
func NewWelder() *Welder {
	return &Welder{lookup: make(map[CornerKey]uint32)}
}

// Weld returns the vertex index for key, appending v on first occurrence.
func (w *Welder) Weld(key CornerKey, v scene.Vertex) uint32 {
	if idx, ok := w.lookup[key]; ok {
		return idx
	}
	idx := uint32(len(w.Vertices))
	w.Vertices = append(w.Vertices, v)
	w.lookup[key] = idx
	return idx
}

// Len returns the number of unique vertices.
func (w *Welder) Len() int {
	return len(w.Vertices)
}
