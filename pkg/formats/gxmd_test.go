package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mynameisGaku/GXLib-sub003/pkg/scene"
	"github.com/mynameisGaku/GXLib-sub003/pkg/shader"
)

// makeTestScene builds a small skinned scene: two meshes, two materials
// sharing an albedo texture, a two-joint skeleton and one animation.
func makeTestScene() *scene.Scene {
	wood := scene.NewMaterial("wood", shader.Standard)
	wood.Textures[shader.SlotAlbedo] = "textures/wood.png"
	wood.Textures[shader.SlotNormal] = "textures/wood_n.png"
	wood.Params.SetBaseColor([4]float32{0.8, 0.6, 0.4, 1})

	bark := scene.NewMaterial("bark", shader.Phong)
	bark.Textures[shader.SlotAlbedo] = "textures/wood.png"

	quad := []scene.Vertex{
		{Position: [3]float32{-1, 0, -1}, Normal: [3]float32{0, 1, 0}, TexCoord: [2]float32{0, 0}, Weights: [4]float32{1}},
		{Position: [3]float32{1, 0, -1}, Normal: [3]float32{0, 1, 0}, TexCoord: [2]float32{1, 0}, Weights: [4]float32{1}},
		{Position: [3]float32{1, 0, 1}, Normal: [3]float32{0, 1, 0}, TexCoord: [2]float32{1, 1}, Joints: [4]uint16{1}, Weights: [4]float32{1}},
		{Position: [3]float32{-1, 0, 1}, Normal: [3]float32{0, 1, 0}, TexCoord: [2]float32{0, 1}, Joints: [4]uint16{1, 0}, Weights: [4]float32{0.75, 0.25}},
	}
	tri := []scene.Vertex{
		{Position: [3]float32{0, 2, 0}, Normal: [3]float32{0, 0, 1}, Tangent: [4]float32{1, 0, 0, -1}},
		{Position: [3]float32{1, 3, 0}, Normal: [3]float32{0, 0, 1}, Tangent: [4]float32{1, 0, 0, -1}},
		{Position: [3]float32{0, 3, 0.5}, Normal: [3]float32{0, 0, 1}, Tangent: [4]float32{1, 0, 0, -1}},
	}

	return &scene.Scene{
		Meshes: []scene.Mesh{
			{Name: "body", Vertices: quad, Indices: []uint32{0, 1, 2, 0, 2, 3}, MaterialIndex: 0, Skinned: true},
			{Name: "leaf", Vertices: tri, Indices: []uint32{0, 1, 2}, MaterialIndex: 1, HasTangents: true},
		},
		Materials: []scene.Material{wood, bark},
		Joints: []scene.Joint{
			{Name: "root", Parent: -1, InverseBind: identity16(), Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}},
			{Name: "child", Parent: 0, InverseBind: identity16(), Translation: [3]float32{0, 1, 0}, Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}},
		},
		Animations: []scene.Animation{
			{
				Name:     "walk",
				Duration: 1,
				Channels: []scene.Channel{
					{
						JointName:     "child",
						Target:        scene.TargetRotation,
						Interpolation: scene.InterpLinear,
						QuatKeys: []scene.QuatKey{
							{Time: 0, Value: [4]float32{0, 0, 0, 1}},
							{Time: 1, Value: [4]float32{0, 0.70710677, 0, 0.70710677}},
						},
					},
					{
						JointIndex:    0,
						Target:        scene.TargetTranslation,
						Interpolation: scene.InterpStep,
						VectorKeys: []scene.VectorKey{
							{Time: 0, Value: [3]float32{0, 0, 0}},
							{Time: 0.5, Value: [3]float32{0, 0, 2}},
						},
					},
				},
			},
		},
	}
}

func identity16() [16]float32 {
	return [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
}

func exportBytes(t *testing.T, s *scene.Scene, opts ExportOptions) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := ExportGXMD(&buf, s, opts); err != nil {
		t.Fatalf("ExportGXMD failed: %v", err)
	}
	return buf.Bytes()
}

func readHeader(t *testing.T, data []byte) GXMDHeader {
	t.Helper()
	var h GXMDHeader
	if err := readLE(data[:gxmdHeaderSize], &h); err != nil {
		t.Fatalf("reading header: %v", err)
	}
	return h
}

func TestGXMDRoundTrip(t *testing.T) {
	s := makeTestScene()
	data := exportBytes(t, s, ExportOptions{Force16BitIndices: true})

	h := readHeader(t, data)
	if h.Flags != GXMDFlagSkeleton|GXMDFlagAnimations {
		t.Errorf("flags = %#x, want skeleton|animations", h.Flags)
	}

	m, err := ParseGXMD(data)
	if err != nil {
		t.Fatalf("ParseGXMD failed: %v", err)
	}

	if len(m.Meshes) != 2 || len(m.Materials) != 2 || len(m.Bones) != 2 || len(m.Animations) != 1 {
		t.Fatalf("counts = %d/%d/%d/%d, want 2/2/2/1",
			len(m.Meshes), len(m.Materials), len(m.Bones), len(m.Animations))
	}
	if m.IndexFormat != Index16 {
		t.Errorf("index format = %s, want u16", m.IndexFormat)
	}

	for i := range s.Meshes {
		src := &s.Meshes[i]
		sm := &m.Meshes[i]
		if sm.Name != src.Name {
			t.Errorf("mesh %d name = %q, want %q", i, sm.Name, src.Name)
		}
		if sm.MaterialIndex != src.MaterialIndex || sm.Skinned != src.Skinned {
			t.Errorf("mesh %d material/skinned = %d/%v", i, sm.MaterialIndex, sm.Skinned)
		}
		verts := m.MeshVertices(sm)
		if len(verts) != len(src.Vertices) {
			t.Fatalf("mesh %d has %d vertices, want %d", i, len(verts), len(src.Vertices))
		}
		for vi := range verts {
			if verts[vi] != src.Vertices[vi] {
				t.Errorf("mesh %d vertex %d = %+v, want %+v", i, vi, verts[vi], src.Vertices[vi])
			}
		}
		idx := m.MeshIndices(sm)
		for ii := range src.Indices {
			if idx[ii] != src.Indices[ii] {
				t.Errorf("mesh %d index %d = %d, want %d", i, ii, idx[ii], src.Indices[ii])
			}
		}
	}

	if m.Meshes[1].VertexOffset != 4 || m.Meshes[1].IndexOffset != 6 {
		t.Errorf("leaf sub-range = v%d i%d, want v4 i6", m.Meshes[1].VertexOffset, m.Meshes[1].IndexOffset)
	}
	if got := m.Meshes[0].Bounds; got.Min.X != -1 || got.Max.Z != 1 || got.Max.Y != 0 {
		t.Errorf("body bounds = %+v", got)
	}

	wood := &m.Materials[0]
	if wood.Name != "wood" || wood.Params.Model() != shader.Standard {
		t.Errorf("material 0 = %q/%s", wood.Name, wood.Params.Model())
	}
	if wood.Textures[shader.SlotAlbedo] != "textures/wood.png" || wood.Textures[shader.SlotNormal] != "textures/wood_n.png" {
		t.Errorf("material 0 textures = %v", wood.Textures)
	}
	if wood.Textures[shader.SlotEmissive] != "" {
		t.Errorf("unset slot = %q, want empty", wood.Textures[shader.SlotEmissive])
	}
	if got := wood.Params.BaseColor(); got != [4]float32{0.8, 0.6, 0.4, 1} {
		t.Errorf("base color = %v", got)
	}
	if phong, ok := m.Materials[1].Params.Phong(); !ok || phong.Shininess() != 32 {
		t.Errorf("material 1 phong view = %v (ok=%v)", phong, ok)
	}

	for i, want := range s.Joints {
		b := m.Bones[i]
		if b.Name != want.Name || b.Parent != want.Parent || b.InverseBind != want.InverseBind || b.Translation != want.Translation {
			t.Errorf("bone %d = %+v, want %+v", i, b, want)
		}
	}

	anim := &m.Animations[0]
	if anim.Name != "walk" || anim.Duration != 1 || len(anim.Channels) != 2 {
		t.Fatalf("animation = %q %v %d channels", anim.Name, anim.Duration, len(anim.Channels))
	}
	rot := anim.Channels[0]
	if rot.BoneIndex != 1 || rot.BoneName != "child" || rot.Target != scene.TargetRotation {
		t.Errorf("channel 0 = bone %d %q %s", rot.BoneIndex, rot.BoneName, rot.Target)
	}
	if len(rot.QuatKeys) != 2 || rot.QuatKeys[1] != s.Animations[0].Channels[0].QuatKeys[1] || len(rot.VectorKeys) != 0 {
		t.Errorf("channel 0 keys = %+v / %+v", rot.QuatKeys, rot.VectorKeys)
	}
	tr := anim.Channels[1]
	if tr.BoneIndex != 0 || tr.BoneName != "root" || tr.Interpolation != scene.InterpStep || len(tr.VectorKeys) != 2 {
		t.Errorf("channel 1 = %+v", tr)
	}
}

func TestGXMDStringDedup(t *testing.T) {
	data := exportBytes(t, makeTestScene(), ExportOptions{Force16BitIndices: true})
	h := readHeader(t, data)

	strs, err := NewStringTable(data[h.StringTable.Offset : h.StringTable.Offset+h.StringTable.Size]).Strings()
	if err != nil {
		t.Fatalf("Strings: %v", err)
	}
	count := 0
	for _, s := range strs {
		if s == "textures/wood.png" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("shared texture path stored %d times, want 1", count)
	}

	m, err := ParseGXMD(data)
	if err != nil {
		t.Fatalf("ParseGXMD failed: %v", err)
	}
	a := m.Materials[0].Params.TextureOffset(shader.SlotAlbedo)
	b := m.Materials[1].Params.TextureOffset(shader.SlotAlbedo)
	if a != b || a == NoString {
		t.Errorf("albedo offsets = %d and %d, want one shared offset", a, b)
	}
}

func TestGXMDIndexPromotion(t *testing.T) {
	small := scene.Mesh{Name: "small", Vertices: make([]scene.Vertex, 301), Indices: []uint32{0, 150, 300}}
	big := scene.Mesh{Name: "big", Vertices: make([]scene.Vertex, 70000), Indices: []uint32{0, 1, 69999}}
	s := &scene.Scene{Meshes: []scene.Mesh{small, big}}

	data := exportBytes(t, s, ExportOptions{Force16BitIndices: true})
	h := readHeader(t, data)
	// 3 u16 (padded to 8 bytes) + 3 u32
	if h.IndexData.Size != 20 {
		t.Errorf("index section size = %d, want 20", h.IndexData.Size)
	}

	m, err := ParseGXMD(data)
	if err != nil {
		t.Fatalf("ParseGXMD failed: %v", err)
	}
	if m.IndexFormat != Index32 {
		t.Fatalf("index format = %s, want u32", m.IndexFormat)
	}
	if len(m.Indices16) != 0 || len(m.Indices32) != 6 {
		t.Fatalf("index buffers = %d/%d, want 0/6", len(m.Indices16), len(m.Indices32))
	}
	if got := m.MeshIndices(&m.Meshes[0]); got[2] != 300 {
		t.Errorf("widened index = %d, want 300", got[2])
	}
	if got := m.Index(5); got != 69999 {
		t.Errorf("Index(5) = %d, want 69999", got)
	}
}

func TestGXMDForce16Disabled(t *testing.T) {
	data := exportBytes(t, makeTestScene(), ExportOptions{})
	m, err := ParseGXMD(data)
	if err != nil {
		t.Fatalf("ParseGXMD failed: %v", err)
	}
	if m.IndexFormat != Index32 {
		t.Errorf("index format = %s, want u32", m.IndexFormat)
	}
}

func TestGXMDExcludeAnimations(t *testing.T) {
	data := exportBytes(t, makeTestScene(), ExportOptions{Force16BitIndices: true, ExcludeAnimations: true})
	h := readHeader(t, data)
	if h.AnimationCount != 0 || h.Flags&GXMDFlagAnimations != 0 || h.AnimationData.Size != 0 {
		t.Errorf("header = %+v, want no animations", h)
	}
}

func TestGXMDExportErrors(t *testing.T) {
	unresolved := makeTestScene()
	unresolved.Animations[0].Channels[0].JointName = "ghost"

	badIndex := makeTestScene()
	badIndex.Meshes[1].Indices = []uint32{0, 1, 9}

	wrongKeys := makeTestScene()
	tr := &wrongKeys.Animations[0].Channels[1]
	tr.QuatKeys = []scene.QuatKey{{Time: 0, Value: [4]float32{0, 0, 0, 1}}, {Time: 1, Value: [4]float32{0, 0, 0, 1}}}
	tr.VectorKeys = nil

	tests := []struct {
		name    string
		scene   *scene.Scene
		wantErr error
	}{
		{"empty scene", &scene.Scene{}, ErrNoMeshes},
		{"unresolved channel", unresolved, ErrUnresolvedChannel},
		{"index out of range", badIndex, scene.ErrIndexOutOfRange},
		{"translation with quaternion keys", wrongKeys, scene.ErrKeyKindMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.gxmd")
			err := ExportGXMDFile(path, tt.scene, ExportOptions{Force16BitIndices: true})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
				t.Errorf("expected no file at %s, stat err = %v", path, statErr)
			}
		})
	}
}

func TestGXMDExportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.gxmd")
	if err := ExportGXMDFile(path, makeTestScene(), ExportOptions{Force16BitIndices: true}); err != nil {
		t.Fatalf("ExportGXMDFile failed: %v", err)
	}
	m, err := ParseGXMDFile(path)
	if err != nil {
		t.Fatalf("ParseGXMDFile failed: %v", err)
	}
	if len(m.Meshes) != 2 {
		t.Errorf("meshes = %d, want 2", len(m.Meshes))
	}
}

func TestParseGXMDInvalid(t *testing.T) {
	valid := exportBytes(t, makeTestScene(), ExportOptions{Force16BitIndices: true})
	h := readHeader(t, valid)

	mutate := func(f func(b []byte)) []byte {
		b := append([]byte(nil), valid...)
		f(b)
		return b
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrTruncatedGXMDData},
		{"short header", valid[:40], ErrTruncatedGXMDData},
		{"bad magic", mutate(func(b []byte) { copy(b, "GRAT") }), ErrInvalidGXMDMagic},
		{"future version", mutate(func(b []byte) { binary.LittleEndian.PutUint32(b[4:], 9) }), ErrUnsupportedGXMDVersion},
		{"truncated tail", valid[:len(valid)-8], ErrTruncatedGXMDData},
		{"forward parent", mutate(func(b []byte) {
			binary.LittleEndian.PutUint32(b[h.BoneData.Offset+4:], 1)
		}), scene.ErrBadJointParent},
		{"index past vertices", mutate(func(b []byte) {
			binary.LittleEndian.PutUint16(b[h.IndexData.Offset:], 40)
		}), scene.ErrIndexOutOfRange},
		{"unknown shader model", mutate(func(b []byte) {
			binary.LittleEndian.PutUint32(b[h.MaterialChunks.Offset+4:], 77)
		}), shader.ErrUnknownModel},
		{"bad name offset", mutate(func(b []byte) {
			binary.LittleEndian.PutUint32(b[h.MeshChunks.Offset:], 0x7FFF)
		}), ErrBadStringOffset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGXMD(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestModelHelpers(t *testing.T) {
	m, err := ParseGXMD(exportBytes(t, makeTestScene(), ExportOptions{Force16BitIndices: true}))
	if err != nil {
		t.Fatalf("ParseGXMD failed: %v", err)
	}

	if !m.HasSkeleton() {
		t.Error("expected skeleton")
	}
	if m.BoneIndex("child") != 1 || m.BoneIndex("nope") != -1 {
		t.Errorf("BoneIndex = %d/%d", m.BoneIndex("child"), m.BoneIndex("nope"))
	}
	if names := m.BoneNames(); len(names) != 2 || names[0] != "root" {
		t.Errorf("BoneNames = %v", names)
	}
	if m.IndexCount() != 9 {
		t.Errorf("IndexCount = %d, want 9", m.IndexCount())
	}

	b := m.Bounds()
	if b.Min.X != -1 || b.Min.Y != 0 || b.Max.Y != 3 || b.Max.Z != 1 {
		t.Errorf("Bounds = %+v", b)
	}
}
