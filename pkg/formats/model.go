package formats

import (
	"github.com/mynameisGaku/GXLib-sub003/pkg/math"
	"github.com/mynameisGaku/GXLib-sub003/pkg/scene"
	"github.com/mynameisGaku/GXLib-sub003/pkg/shader"
)

// SubMesh is a contiguous range of a Model's unified vertex and index
// buffers drawn with one material. Index values are relative to
// VertexOffset.
type SubMesh struct {
	Name          string
	MaterialIndex int
	VertexOffset  uint32
	VertexCount   uint32
	IndexOffset   uint32
	IndexCount    uint32
	Skinned       bool
	Bounds        math.Box
}

// Material is a loaded material with its texture paths resolved.
type Material struct {
	Name     string
	Params   shader.ParamBlock
	Textures [shader.TextureSlotCount]string
}

// Bone is a loaded skeleton joint. InverseBind is row-major.
type Bone struct {
	Name        string
	Parent      int
	InverseBind [16]float32
	Translation [3]float32
	Rotation    [4]float32
	Scale       [3]float32
}

// Model is a GXMD file loaded into renderer-ready buffers. It holds no
// reference to the source bytes.
type Model struct {
	Version         uint32
	Vertices        []scene.Vertex
	IndexFormat     IndexFormat
	Indices16       []uint16 // populated when IndexFormat == Index16
	Indices32       []uint32 // populated when IndexFormat == Index32
	Meshes          []SubMesh
	Materials       []Material
	Bones           []Bone
	Animations      []Animation
	BlendShapeCount uint32
}

// HasSkeleton reports whether the model carries bones.
func (m *Model) HasSkeleton() bool {
	return len(m.Bones) > 0
}

// IndexCount returns the length of the unified index buffer.
func (m *Model) IndexCount() int {
	if m.IndexFormat == Index16 {
		return len(m.Indices16)
	}
	return len(m.Indices32)
}

// Index returns the i-th index of the unified buffer regardless of width.
func (m *Model) Index(i int) uint32 {
	if m.IndexFormat == Index16 {
		return uint32(m.Indices16[i])
	}
	return m.Indices32[i]
}

// MeshVertices returns the vertex slice of one sub-mesh.
func (m *Model) MeshVertices(sm *SubMesh) []scene.Vertex {
	return m.Vertices[sm.VertexOffset : sm.VertexOffset+sm.VertexCount]
}

// MeshIndices returns a sub-mesh's indices widened to 32 bits.
func (m *Model) MeshIndices(sm *SubMesh) []uint32 {
	out := make([]uint32, sm.IndexCount)
	for i := range out {
		out[i] = m.Index(int(sm.IndexOffset) + i)
	}
	return out
}

// BoneIndex returns the index of the named bone, or -1.
func (m *Model) BoneIndex(name string) int {
	for i := range m.Bones {
		if m.Bones[i].Name == name {
			return i
		}
	}
	return -1
}

// BoneNames returns the bone names in skeleton order.
func (m *Model) BoneNames() []string {
	names := make([]string, len(m.Bones))
	for i := range m.Bones {
		names[i] = m.Bones[i].Name
	}
	return names
}

// Bounds returns the union of all sub-mesh bounds.
func (m *Model) Bounds() math.Box {
	b := math.EmptyBox()
	for i := range m.Meshes {
		b = b.Union(m.Meshes[i].Bounds)
	}
	if b.IsEmpty() {
		return math.Box{}
	}
	return b
}
