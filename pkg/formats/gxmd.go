package formats

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mynameisGaku/GXLib-sub003/internal/fsutil"
	"github.com/mynameisGaku/GXLib-sub003/pkg/geom"
	"github.com/mynameisGaku/GXLib-sub003/pkg/math"
	"github.com/mynameisGaku/GXLib-sub003/pkg/scene"
	"github.com/mynameisGaku/GXLib-sub003/pkg/shader"
)

// GXMD format errors.
var (
	ErrInvalidGXMDMagic       = errors.New("invalid GXMD magic: expected 'GXMD'")
	ErrUnsupportedGXMDVersion = errors.New("unsupported GXMD version")
	ErrTruncatedGXMDData      = errors.New("truncated GXMD data")
	ErrNoMeshes               = errors.New("scene has no meshes")
	ErrTruncatedKeyData       = errors.New("truncated animation key data")
	ErrUnresolvedChannel      = errors.New("animation channel targets an unknown bone")
)

// GXMDVersion is the version written by ExportGXMD.
const GXMDVersion = 1

// GXMDMagic identifies a GXMD file.
var GXMDMagic = [4]byte{'G', 'X', 'M', 'D'}

// Header flags.
const (
	GXMDFlagSkeleton   uint32 = 1 << 0
	GXMDFlagAnimations uint32 = 1 << 1
)

// GXMDHeader is the fixed 96-byte header at the start of a GXMD file.
type GXMDHeader struct {
	Magic           [4]byte
	Version         uint32
	Flags           uint32
	MeshCount       uint32
	MaterialCount   uint32
	BoneCount       uint32
	AnimationCount  uint32
	BlendShapeCount uint32
	StringTable     Section
	MeshChunks      Section
	MaterialChunks  Section
	BoneData        Section
	AnimationData   Section
	VertexData      Section
	IndexData       Section
	BlendShapeData  Section
}

// ExportOptions controls GXMD export.
type ExportOptions struct {
	// Force16BitIndices stores a mesh with 16-bit indices whenever its vertex
	// count fits. When false every mesh is written with 32-bit indices.
	Force16BitIndices bool
	// ExcludeAnimations omits the animation section.
	ExcludeAnimations bool
}

// ExportGXMD serializes a scene into GXMD bytes written to w.
func ExportGXMD(w io.Writer, s *scene.Scene, opts ExportOptions) error {
	if len(s.Meshes) == 0 {
		return ErrNoMeshes
	}
	if err := s.Validate(); err != nil {
		return err
	}

	strs := NewStringTableBuilder()

	var vertexData, indexData bytes.Buffer
	meshes := make([]meshChunk, len(s.Meshes))
	for i := range s.Meshes {
		m := &s.Meshes[i]
		format := Index32
		if opts.Force16BitIndices && len(m.Vertices) <= 0xFFFF {
			format = Index16
		}
		bounds := geom.ComputeBounds(m.Vertices)

		mc := meshChunk{
			NameOffset:    strs.Add(m.Name),
			MaterialIndex: uint32(m.MaterialIndex),
			VertexCount:   uint32(len(m.Vertices)),
			IndexCount:    uint32(len(m.Indices)),
			VertexOffset:  uint32(vertexData.Len()),
			VertexSize:    uint32(len(m.Vertices) * vertexRecordSize),
			IndexOffset:   uint32(indexData.Len()),
			IndexFormat:   format,
			BoundsMin:     bounds.Min.Array(),
			BoundsMax:     bounds.Max.Array(),
		}
		if m.Skinned {
			mc.Flags |= meshFlagSkinned
		}
		putLE(&vertexData, m.Vertices)

		if format == Index16 {
			idx := make([]uint16, len(m.Indices))
			for j, v := range m.Indices {
				idx[j] = uint16(v)
			}
			putLE(&indexData, idx)
		} else {
			putLE(&indexData, m.Indices)
		}
		mc.IndexSize = uint32(indexData.Len()) - mc.IndexOffset
		pad(&indexData)
		meshes[i] = mc
	}

	materials := make([]materialChunk, len(s.Materials))
	for i := range s.Materials {
		mat := &s.Materials[i]
		params := mat.Params
		for slot, path := range mat.Textures {
			params.SetTextureOffset(shader.TextureSlot(slot), strs.Add(path))
		}
		materials[i] = materialChunk{
			NameOffset:  strs.Add(mat.Name),
			ShaderModel: params.Model(),
			Params:      params.Bytes(),
		}
	}

	bones := make([]boneRecord, len(s.Joints))
	for i := range s.Joints {
		j := &s.Joints[i]
		bones[i] = boneRecord{
			NameOffset:  strs.Add(j.Name),
			Parent:      int32(j.Parent),
			InverseBind: j.InverseBind,
			Translation: j.Translation,
			Rotation:    j.Rotation,
			Scale:       j.Scale,
		}
	}

	var animData bytes.Buffer
	var animCount int
	if !opts.ExcludeAnimations {
		for ai := range s.Animations {
			if err := encodeModelAnimation(&animData, s, &s.Animations[ai], strs); err != nil {
				return err
			}
			animCount++
		}
	}

	h := GXMDHeader{
		Magic:          GXMDMagic,
		Version:        GXMDVersion,
		MeshCount:      uint32(len(meshes)),
		MaterialCount:  uint32(len(materials)),
		BoneCount:      uint32(len(bones)),
		AnimationCount: uint32(animCount),
	}
	if len(bones) > 0 {
		h.Flags |= GXMDFlagSkeleton
	}
	if animCount > 0 {
		h.Flags |= GXMDFlagAnimations
	}

	var body bytes.Buffer
	cursor := gxmdHeaderSize
	place := func(sec *Section, write func(*bytes.Buffer)) {
		start := body.Len()
		write(&body)
		*sec = Section{Offset: uint32(cursor + start), Size: uint32(body.Len() - start)}
		pad(&body)
	}
	place(&h.StringTable, func(b *bytes.Buffer) { b.Write(strs.Bytes()) })
	place(&h.MeshChunks, func(b *bytes.Buffer) { putLE(b, meshes) })
	place(&h.MaterialChunks, func(b *bytes.Buffer) { putLE(b, materials) })
	place(&h.BoneData, func(b *bytes.Buffer) { putLE(b, bones) })
	place(&h.AnimationData, func(b *bytes.Buffer) { b.Write(animData.Bytes()) })
	place(&h.VertexData, func(b *bytes.Buffer) { b.Write(vertexData.Bytes()) })
	place(&h.IndexData, func(b *bytes.Buffer) { b.Write(indexData.Bytes()) })
	h.BlendShapeData = Section{Offset: uint32(cursor + body.Len())}

	var out bytes.Buffer
	out.Grow(gxmdHeaderSize + body.Len())
	putLE(&out, h)
	out.Write(body.Bytes())
	if _, err := w.Write(out.Bytes()); err != nil {
		return fmt.Errorf("writing GXMD: %w", err)
	}
	return nil
}

// ExportGXMDFile writes a GXMD file atomically. Nothing is left at path when
// export fails.
func ExportGXMDFile(path string, s *scene.Scene, opts ExportOptions) error {
	if len(s.Meshes) == 0 {
		return ErrNoMeshes
	}
	return fsutil.WriteFileAtomic(path, func(w io.Writer) error {
		return ExportGXMD(w, s, opts)
	})
}

func encodeModelAnimation(buf *bytes.Buffer, s *scene.Scene, a *scene.Animation, strs *StringTableBuilder) error {
	refs := make([]uint32, len(a.Channels))
	for ci := range a.Channels {
		idx := s.ResolveJointIndex(&a.Channels[ci])
		if idx < 0 {
			return fmt.Errorf("animation %q channel %d (%q): %w",
				a.Name, ci, a.Channels[ci].JointName, ErrUnresolvedChannel)
		}
		refs[ci] = uint32(idx)
	}

	descs, keys := encodeChannels(a.Channels, refs)
	putLE(buf, animHeader{
		NameOffset:   strs.Add(a.Name),
		Duration:     a.Duration,
		ChannelCount: uint32(len(descs)),
		KeyDataSize:  uint32(len(keys)),
	})
	putLE(buf, descs)
	buf.Write(keys)
	return nil
}

// ReadGXMDHeader decodes and checks the fixed header at the start of data.
func ReadGXMDHeader(data []byte) (GXMDHeader, error) {
	var h GXMDHeader
	if len(data) < gxmdHeaderSize {
		return h, fmt.Errorf("%w: need %d header bytes, got %d", ErrTruncatedGXMDData, gxmdHeaderSize, len(data))
	}
	if err := readLE(data[:gxmdHeaderSize], &h); err != nil {
		return h, fmt.Errorf("reading header: %w", err)
	}
	if h.Magic != GXMDMagic {
		return h, ErrInvalidGXMDMagic
	}
	if h.Version != GXMDVersion {
		return h, fmt.Errorf("%w: %d", ErrUnsupportedGXMDVersion, h.Version)
	}
	return h, nil
}

// ParseGXMD parses GXMD data from a byte slice.
func ParseGXMD(data []byte) (*Model, error) {
	h, err := ReadGXMDHeader(data)
	if err != nil {
		return nil, err
	}

	sec := func(s Section, name string, want uint64) ([]byte, error) {
		raw, err := s.slice(data, name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTruncatedGXMDData, err)
		}
		if uint64(len(raw)) < want {
			return nil, fmt.Errorf("%w: %s section holds %d bytes, need %d", ErrTruncatedGXMDData, name, len(raw), want)
		}
		return raw, nil
	}

	strData, err := sec(h.StringTable, "string table", 0)
	if err != nil {
		return nil, err
	}
	strs := NewStringTable(strData)

	meshRaw, err := sec(h.MeshChunks, "mesh", uint64(h.MeshCount)*meshChunkSize)
	if err != nil {
		return nil, err
	}
	matRaw, err := sec(h.MaterialChunks, "material", uint64(h.MaterialCount)*materialChunkSize)
	if err != nil {
		return nil, err
	}
	boneRaw, err := sec(h.BoneData, "bone", uint64(h.BoneCount)*boneRecordSize)
	if err != nil {
		return nil, err
	}
	animRaw, err := sec(h.AnimationData, "animation", 0)
	if err != nil {
		return nil, err
	}
	vertexRaw, err := sec(h.VertexData, "vertex", 0)
	if err != nil {
		return nil, err
	}
	indexRaw, err := sec(h.IndexData, "index", 0)
	if err != nil {
		return nil, err
	}

	model := &Model{
		Version:         h.Version,
		BlendShapeCount: h.BlendShapeCount,
	}

	if err := model.readMaterials(matRaw, h.MaterialCount, strs); err != nil {
		return nil, err
	}
	if err := model.readBones(boneRaw, h.BoneCount, strs); err != nil {
		return nil, err
	}
	if err := model.readMeshes(meshRaw, h.MeshCount, vertexRaw, indexRaw, strs); err != nil {
		return nil, err
	}
	if err := model.readAnimations(animRaw, h.AnimationCount, strs); err != nil {
		return nil, err
	}
	return model, nil
}

// ParseGXMDFile parses a GXMD file from disk.
func ParseGXMDFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading GXMD file: %w", err)
	}
	return ParseGXMD(data)
}

func (m *Model) readMaterials(raw []byte, count uint32, strs StringTable) error {
	chunks := make([]materialChunk, count)
	if err := readLE(raw, chunks); err != nil {
		return fmt.Errorf("reading materials: %w", err)
	}

	m.Materials = make([]Material, count)
	for i := range chunks {
		c := &chunks[i]
		name, err := strs.Lookup(c.NameOffset)
		if err != nil {
			return fmt.Errorf("material %d name: %w", i, err)
		}
		params, err := shader.DecodeParamBlock(c.ShaderModel, c.Params[:])
		if err != nil {
			return fmt.Errorf("material %d: %w", i, err)
		}
		mat := Material{Name: name, Params: params}
		for slot := range mat.Textures {
			path, err := strs.Lookup(params.TextureOffset(shader.TextureSlot(slot)))
			if err != nil {
				return fmt.Errorf("material %d texture %s: %w", i, shader.TextureSlot(slot), err)
			}
			mat.Textures[slot] = path
		}
		m.Materials[i] = mat
	}
	return nil
}

func (m *Model) readBones(raw []byte, count uint32, strs StringTable) error {
	records := make([]boneRecord, count)
	if err := readLE(raw, records); err != nil {
		return fmt.Errorf("reading bones: %w", err)
	}

	m.Bones = make([]Bone, count)
	joints := make([]scene.Joint, count)
	for i := range records {
		r := &records[i]
		name, err := strs.Lookup(r.NameOffset)
		if err != nil {
			return fmt.Errorf("bone %d name: %w", i, err)
		}
		m.Bones[i] = Bone{
			Name:        name,
			Parent:      int(r.Parent),
			InverseBind: r.InverseBind,
			Translation: r.Translation,
			Rotation:    r.Rotation,
			Scale:       r.Scale,
		}
		joints[i] = scene.Joint{Name: name, Parent: int(r.Parent)}
	}
	return scene.ValidateJointOrder(joints)
}

// readMeshes builds the unified vertex and index buffers. If any mesh was
// stored with 32-bit indices the whole model is promoted to 32 bits.
func (m *Model) readMeshes(raw []byte, count uint32, vertexRaw, indexRaw []byte, strs StringTable) error {
	chunks := make([]meshChunk, count)
	if err := readLE(raw, chunks); err != nil {
		return fmt.Errorf("reading meshes: %w", err)
	}

	var totalVerts, totalIndices uint64
	m.IndexFormat = Index16
	for i := range chunks {
		c := &chunks[i]
		if c.IndexFormat != Index16 && c.IndexFormat != Index32 {
			return fmt.Errorf("mesh %d: unknown index format %d", i, uint32(c.IndexFormat))
		}
		if c.IndexFormat == Index32 {
			m.IndexFormat = Index32
		}
		if uint64(c.VertexSize) != uint64(c.VertexCount)*vertexRecordSize ||
			uint64(c.IndexSize) != uint64(c.IndexCount)*uint64(c.IndexFormat.Size()) {
			return fmt.Errorf("%w: mesh %d sizes disagree with counts", ErrTruncatedGXMDData, i)
		}
		if uint64(c.VertexOffset)+uint64(c.VertexSize) > uint64(len(vertexRaw)) ||
			uint64(c.IndexOffset)+uint64(c.IndexSize) > uint64(len(indexRaw)) {
			return fmt.Errorf("%w: mesh %d buffers exceed their sections", ErrTruncatedGXMDData, i)
		}
		totalVerts += uint64(c.VertexCount)
		totalIndices += uint64(c.IndexCount)
	}

	m.Vertices = make([]scene.Vertex, 0, totalVerts)
	if m.IndexFormat == Index32 {
		m.Indices32 = make([]uint32, 0, totalIndices)
	} else {
		m.Indices16 = make([]uint16, 0, totalIndices)
	}
	m.Meshes = make([]SubMesh, count)

	for i := range chunks {
		c := &chunks[i]
		name, err := strs.Lookup(c.NameOffset)
		if err != nil {
			return fmt.Errorf("mesh %d name: %w", i, err)
		}
		if len(m.Materials) > 0 && c.MaterialIndex >= uint32(len(m.Materials)) {
			return fmt.Errorf("mesh %q: %w: %d", name, scene.ErrBadMaterialIndex, c.MaterialIndex)
		}

		vraw, err := Section{c.VertexOffset, c.VertexSize}.slice(vertexRaw, "mesh vertex")
		if err != nil {
			return fmt.Errorf("%w: mesh %q: %v", ErrTruncatedGXMDData, name, err)
		}
		iraw, err := Section{c.IndexOffset, c.IndexSize}.slice(indexRaw, "mesh index")
		if err != nil {
			return fmt.Errorf("%w: mesh %q: %v", ErrTruncatedGXMDData, name, err)
		}

		verts := make([]scene.Vertex, c.VertexCount)
		if err := readLE(vraw, verts); err != nil {
			return fmt.Errorf("mesh %q vertices: %w", name, err)
		}

		sm := SubMesh{
			Name:          name,
			MaterialIndex: int(c.MaterialIndex),
			VertexOffset:  uint32(len(m.Vertices)),
			VertexCount:   c.VertexCount,
			IndexOffset:   uint32(m.IndexCount()),
			IndexCount:    c.IndexCount,
			Skinned:       c.Flags&meshFlagSkinned != 0,
			Bounds:        math.Box{Min: math.V3(c.BoundsMin), Max: math.V3(c.BoundsMax)},
		}
		m.Vertices = append(m.Vertices, verts...)

		if err := m.appendIndices(c, iraw); err != nil {
			return fmt.Errorf("mesh %q: %w", name, err)
		}
		m.Meshes[i] = sm
	}
	return nil
}

func (m *Model) appendIndices(c *meshChunk, raw []byte) error {
	var wide []uint32
	if c.IndexFormat == Index16 {
		narrow := make([]uint16, c.IndexCount)
		if err := readLE(raw, narrow); err != nil {
			return err
		}
		if m.IndexFormat == Index16 {
			for _, v := range narrow {
				if uint32(v) >= c.VertexCount {
					return fmt.Errorf("%w: %d >= %d", scene.ErrIndexOutOfRange, v, c.VertexCount)
				}
			}
			m.Indices16 = append(m.Indices16, narrow...)
			return nil
		}
		wide = make([]uint32, len(narrow))
		for i, v := range narrow {
			wide[i] = uint32(v)
		}
	} else {
		wide = make([]uint32, c.IndexCount)
		if err := readLE(raw, wide); err != nil {
			return err
		}
	}

	for _, v := range wide {
		if v >= c.VertexCount {
			return fmt.Errorf("%w: %d >= %d", scene.ErrIndexOutOfRange, v, c.VertexCount)
		}
	}
	m.Indices32 = append(m.Indices32, wide...)
	return nil
}

func (m *Model) readAnimations(raw []byte, count uint32, strs StringTable) error {
	m.Animations = make([]Animation, 0, count)
	pos := 0
	for ai := uint32(0); ai < count; ai++ {
		if len(raw)-pos < animHeaderSize {
			return fmt.Errorf("%w: animation %d header", ErrTruncatedGXMDData, ai)
		}
		var ah animHeader
		if err := readLE(raw[pos:pos+animHeaderSize], &ah); err != nil {
			return fmt.Errorf("animation %d header: %w", ai, err)
		}
		pos += animHeaderSize

		descBytes := uint64(ah.ChannelCount) * channelDescSize
		if uint64(len(raw)-pos) < descBytes+uint64(ah.KeyDataSize) {
			return fmt.Errorf("%w: animation %d body", ErrTruncatedGXMDData, ai)
		}
		descs := make([]channelDesc, ah.ChannelCount)
		if err := readLE(raw[pos:pos+int(descBytes)], descs); err != nil {
			return fmt.Errorf("animation %d channels: %w", ai, err)
		}
		pos += int(descBytes)
		keyData := raw[pos : pos+int(ah.KeyDataSize)]
		pos += int(ah.KeyDataSize)

		name, err := strs.Lookup(ah.NameOffset)
		if err != nil {
			return fmt.Errorf("animation %d name: %w", ai, err)
		}
		anim := Animation{Name: name, Duration: ah.Duration, Channels: make([]AnimationChannel, len(descs))}
		for ci, d := range descs {
			if d.Ref >= uint32(len(m.Bones)) {
				return fmt.Errorf("animation %q channel %d: %w: bone %d", name, ci, ErrUnresolvedChannel, d.Ref)
			}
			ch, err := decodeChannel(d, keyData)
			if err != nil {
				return fmt.Errorf("animation %q channel %d: %w", name, ci, err)
			}
			ch.BoneIndex = int(d.Ref)
			ch.BoneName = m.Bones[d.Ref].Name
			anim.Channels[ci] = ch
		}
		m.Animations = append(m.Animations, anim)
	}
	return nil
}
