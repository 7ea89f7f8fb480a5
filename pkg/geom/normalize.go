package geom

import (
	"fmt"

	"github.com/mynameisGaku/GXLib-sub003/pkg/math"
	"github.com/mynameisGaku/GXLib-sub003/pkg/scene"
)

// Options controls Normalize.
type Options struct {
	// GenerateTangents synthesizes tangents for meshes imported without them.
	GenerateTangents bool
	// MaxInfluences caps joint influences per skinned vertex (1-4).
	MaxInfluences int
}

// DefaultOptions returns the options used by the conversion pipeline.
func DefaultOptions() Options {
	return Options{GenerateTangents: true, MaxInfluences: scene.MaxInfluences}
}

// Stats summarizes what Normalize changed.
type Stats struct {
	TangentMeshes   int
	SkinnedVertices int
}

// Normalize validates the scene and prepares every mesh for export.
func Normalize(s *scene.Scene, opts Options) (Stats, error) {
	var st Stats
	if err := s.Validate(); err != nil {
		return st, fmt.Errorf("validating scene: %w", err)
	}

	for i := range s.Meshes {
		m := &s.Meshes[i]
		if opts.GenerateTangents && !m.HasTangents {
			GenerateTangents(m)
			st.TangentMeshes++
		}
		if m.Skinned {
			for vi := range m.Vertices {
				ReduceVertexInfluences(&m.Vertices[vi], opts.MaxInfluences)
			}
			st.SkinnedVertices += len(m.Vertices)
		}
	}
	return st, nil
}

// ComputeBounds returns the axis-aligned box around every vertex position.
// An empty vertex list yields a zero box.
func ComputeBounds(vertices []scene.Vertex) math.Box {
	if len(vertices) == 0 {
		return math.Box{}
	}
	b := math.EmptyBox()
	for i := range vertices {
		b = b.Extend(math.V3(vertices[i].Position))
	}
	return b
}
