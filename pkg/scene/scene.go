// Package scene defines the format-agnostic scene model produced by importers
// and consumed by the GXMD/GXAN exporters.
package scene

import (
	"errors"
	"fmt"

	"github.com/mynameisGaku/GXLib-sub003/pkg/shader"
)

// MaxInfluences is the number of joint influences stored per vertex.
const MaxInfluences = 4

// Scene validation errors.
var (
	ErrIndexOutOfRange    = errors.New("index references a missing vertex")
	ErrBadMaterialIndex   = errors.New("mesh references a missing material")
	ErrBadJointParent     = errors.New("joint parent must precede the joint")
	ErrMixedKeyframes     = errors.New("channel holds both vector and quaternion keys")
	ErrKeyKindMismatch    = errors.New("channel keys do not match its target")
	ErrBadChannelTarget   = errors.New("channel targets a missing joint")
	ErrTriangleListLength = errors.New("index count is not a multiple of 3")
)

// Vertex is a single mesh vertex. Tangent.W holds the bitangent sign.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
	Tangent  [4]float32
	Joints   [MaxInfluences]uint16
	Weights  [MaxInfluences]float32
}

// Mesh is a triangle list with a single material.
type Mesh struct {
	Name          string
	Vertices      []Vertex
	Indices       []uint32
	MaterialIndex int
	Skinned       bool
	HasTangents   bool
}

// Material describes surface appearance.
type Material struct {
	Name     string
	Params   shader.ParamBlock
	Textures [shader.TextureSlotCount]string
}

// NewMaterial returns a material with default parameters for model m.
func NewMaterial(name string, m shader.Model) Material {
	return Material{Name: name, Params: shader.NewParamBlock(m)}
}

// ShaderModel returns the material's shader model tag.
func (m *Material) ShaderModel() shader.Model {
	return m.Params.Model()
}

// Joint is one skeleton bone. Parent is -1 for roots.
// InverseBind is stored row-major.
type Joint struct {
	Name        string
	Parent      int
	InverseBind [16]float32
	Translation [3]float32
	Rotation    [4]float32 // XYZW
	Scale       [3]float32
}

// Scene holds everything an importer produced for one source file.
type Scene struct {
	Meshes     []Mesh
	Materials  []Material
	Joints     []Joint
	Animations []Animation
}

// HasSkeleton reports whether the scene has any joints.
func (s *Scene) HasSkeleton() bool {
	return len(s.Joints) > 0
}

// JointIndex returns the index of the joint with the given name, or -1.
func (s *Scene) JointIndex(name string) int {
	for i := range s.Joints {
		if s.Joints[i].Name == name {
			return i
		}
	}
	return -1
}

// Validate checks the structural invariants the exporters rely on.
func (s *Scene) Validate() error {
	for mi := range s.Meshes {
		m := &s.Meshes[mi]
		if len(m.Indices)%3 != 0 {
			return fmt.Errorf("mesh %q: %w (%d)", m.Name, ErrTriangleListLength, len(m.Indices))
		}
		for _, idx := range m.Indices {
			if int(idx) >= len(m.Vertices) {
				return fmt.Errorf("mesh %q: %w: %d >= %d", m.Name, ErrIndexOutOfRange, idx, len(m.Vertices))
			}
		}
		if len(s.Materials) > 0 && (m.MaterialIndex < 0 || m.MaterialIndex >= len(s.Materials)) {
			return fmt.Errorf("mesh %q: %w: %d", m.Name, ErrBadMaterialIndex, m.MaterialIndex)
		}
	}

	if err := ValidateJointOrder(s.Joints); err != nil {
		return err
	}

	for ai := range s.Animations {
		a := &s.Animations[ai]
		for ci := range a.Channels {
			ch := &a.Channels[ci]
			if err := ch.CheckKeys(); err != nil {
				return fmt.Errorf("animation %q channel %d: %w", a.Name, ci, err)
			}
			if ch.JointName == "" && (ch.JointIndex < 0 || ch.JointIndex >= len(s.Joints)) {
				return fmt.Errorf("animation %q channel %d: %w: %d", a.Name, ci, ErrBadChannelTarget, ch.JointIndex)
			}
		}
	}

	return nil
}

// ValidateJointOrder checks that every parent index refers to an earlier joint.
func ValidateJointOrder(joints []Joint) error {
	for i := range joints {
		p := joints[i].Parent
		if p < -1 || p >= i {
			return fmt.Errorf("joint %d (%q): %w: parent %d", i, joints[i].Name, ErrBadJointParent, p)
		}
	}
	return nil
}
