package geom

import (
	gomath "math"

	"github.com/mynameisGaku/GXLib-sub003/pkg/math"
	"github.com/mynameisGaku/GXLib-sub003/pkg/scene"
)

const (
	degenerateUVEpsilon = 1e-8
	tangentEpsilon      = 1e-6
)

// GenerateTangents computes per-vertex tangents for a triangle mesh from its
// positions, normals and texture coordinates. Tangent.W receives the
// bitangent sign (+1 or -1).
func GenerateTangents(m *scene.Mesh) {
	n := len(m.Vertices)
	if n == 0 {
		return
	}

	tan1 := make([]math.Vec3, n)
	tan2 := make([]math.Vec3, n)

	for i := 0; i+2 < len(m.Indices); i += 3 {
		i0, i1, i2 := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		v0, v1, v2 := &m.Vertices[i0], &m.Vertices[i1], &m.Vertices[i2]

		e1 := math.V3(v1.Position).Sub(math.V3(v0.Position))
		e2 := math.V3(v2.Position).Sub(math.V3(v0.Position))
		d1 := math.V2(v1.TexCoord).Sub(math.V2(v0.TexCoord))
		d2 := math.V2(v2.TexCoord).Sub(math.V2(v0.TexCoord))

		r := d1.X*d2.Y - d2.X*d1.Y
		if gomath.Abs(float64(r)) < degenerateUVEpsilon {
			r = 1.0
		}
		inv := 1.0 / r

		sdir := e1.Scale(d2.Y).Sub(e2.Scale(d1.Y)).Scale(inv)
		tdir := e2.Scale(d1.X).Sub(e1.Scale(d2.X)).Scale(inv)

		for _, idx := range [3]uint32{i0, i1, i2} {
			tan1[idx] = tan1[idx].Add(sdir)
			tan2[idx] = tan2[idx].Add(tdir)
		}
	}

	for i := range m.Vertices {
		v := &m.Vertices[i]
		normal := math.V3(v.Normal)
		t := tan1[i]

		// Gram-Schmidt against the normal.
		ortho := t.Sub(normal.Scale(normal.Dot(t)))
		if ortho.Length() < tangentEpsilon {
			ortho = perpendicular(normal)
		} else {
			ortho = ortho.Normalize()
		}

		sign := float32(1)
		if normal.Cross(t).Dot(tan2[i]) < 0 {
			sign = -1
		}

		v.Tangent = [4]float32{ortho.X, ortho.Y, ortho.Z, sign}
	}
	m.HasTangents = true
}

// perpendicular returns a unit vector orthogonal to n, or +X when n is zero.
func perpendicular(n math.Vec3) math.Vec3 {
	if n.Length() < tangentEpsilon {
		return math.Vec3{X: 1}
	}
	axis := math.Vec3{X: 1}
	if gomath.Abs(float64(n.Normalize().X)) > 0.9 {
		axis = math.Vec3{Y: 1}
	}
	return n.Cross(axis).Normalize()
}
