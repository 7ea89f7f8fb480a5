package importer

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mynameisGaku/GXLib-sub003/pkg/geom"
	"github.com/mynameisGaku/GXLib-sub003/pkg/math"
	"github.com/mynameisGaku/GXLib-sub003/pkg/scene"
	"github.com/mynameisGaku/GXLib-sub003/pkg/shader"
)

// glTF import errors.
var (
	ErrNotTriangles   = errors.New("primitive is not a triangle list")
	ErrBadAccessor    = errors.New("invalid glTF accessor reference")
	ErrAccessorFormat = errors.New("unexpected glTF accessor format")
)

const extUnlit = "KHR_materials_unlit"

// GLTF imports glTF 2.0 (.gltf and .glb) files. Every primitive becomes one
// mesh; only the first skin is imported. Node transforms above the meshes
// are not applied.
type GLTF struct {
	Options Options
}

// Import implements Importer.
func (g *GLTF) Import(path string) (*scene.Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening glTF: %w", err)
	}
	return g.Convert(doc)
}

// Convert builds a scene from an already decoded document.
func (g *GLTF) Convert(doc *gltf.Document) (*scene.Scene, error) {
	c := &gltfConverter{doc: doc, opts: g.Options, s: &scene.Scene{}}
	c.readSkin()
	c.readMaterials()
	if err := c.readMeshes(); err != nil {
		return nil, err
	}
	if err := c.readAnimations(); err != nil {
		return nil, err
	}
	return c.s, nil
}

type gltfConverter struct {
	doc  *gltf.Document
	opts Options
	s    *scene.Scene

	// skin joint slot -> scene joint index
	jointRemap []int
	// node index -> scene joint index
	nodeJoint map[int]int
	// scene material used for primitives without one
	defaultMaterial int
}

func (c *gltfConverter) accessor(ref any) (*gltf.Accessor, error) {
	i, ok := indexOf(ref)
	if !ok || i >= len(c.doc.Accessors) {
		return nil, fmt.Errorf("%w: %v", ErrBadAccessor, ref)
	}
	return c.doc.Accessors[i], nil
}

// readSkin imports the first skin. glTF does not order skin joints, so they
// are sorted by depth in the node tree to put parents first.
func (c *gltfConverter) readSkin() {
	c.nodeJoint = make(map[int]int)
	if len(c.doc.Skins) == 0 {
		return
	}
	skin := c.doc.Skins[0]

	parent := make(map[int]int, len(c.doc.Nodes))
	for pi, n := range c.doc.Nodes {
		for _, ch := range n.Children {
			if ci, ok := indexOf(ch); ok {
				parent[ci] = pi
			}
		}
	}
	depth := func(n int) int {
		d := 0
		for p, ok := parent[n]; ok && d <= len(c.doc.Nodes); p, ok = parent[p] {
			d++
		}
		return d
	}

	type slot struct{ slot, node, depth int }
	slots := make([]slot, 0, len(skin.Joints))
	for si, j := range skin.Joints {
		if ni, ok := indexOf(j); ok && ni < len(c.doc.Nodes) {
			slots = append(slots, slot{si, ni, depth(ni)})
		}
	}
	sort.SliceStable(slots, func(a, b int) bool { return slots[a].depth < slots[b].depth })

	var inverseBinds [][4][4]float32
	if acc, err := c.accessor(skin.InverseBindMatrices); err == nil {
		if data, err := modeler.ReadAccessor(c.doc, acc, nil); err == nil {
			inverseBinds, _ = data.([][4][4]float32)
		}
	}

	c.jointRemap = make([]int, len(skin.Joints))
	for i := range c.jointRemap {
		c.jointRemap[i] = -1
	}
	for ji, sl := range slots {
		c.jointRemap[sl.slot] = ji
		c.nodeJoint[sl.node] = ji
	}

	names := make(map[string]bool)
	for ji, sl := range slots {
		node := c.doc.Nodes[sl.node]
		name := node.Name
		if name == "" || names[name] {
			name = fmt.Sprintf("joint_%d", ji)
		}
		names[name] = true

		j := scene.Joint{
			Name:        name,
			Parent:      -1,
			InverseBind: identityMatrix(),
			Translation: vec3Of(node.Translation, [3]float32{}),
			Rotation:    vec4Of(node.Rotation, [4]float32{0, 0, 0, 1}),
			Scale:       vec3Of(node.Scale, [3]float32{1, 1, 1}),
		}
		if j.Rotation == ([4]float32{}) {
			j.Rotation = [4]float32{0, 0, 0, 1}
		}
		if j.Scale == ([3]float32{}) {
			j.Scale = [3]float32{1, 1, 1}
		}
		hops := 0
		for p, ok := parent[sl.node]; ok && hops <= len(c.doc.Nodes); p, ok = parent[p] {
			hops++
			if pj, isJoint := c.nodeJoint[p]; isJoint {
				j.Parent = pj
				break
			}
		}
		if sl.slot < len(inverseBinds) {
			j.InverseBind = rowMajor(inverseBinds[sl.slot])
		}
		c.s.Joints = append(c.s.Joints, j)
	}
}

func (c *gltfConverter) readMaterials() {
	c.defaultMaterial = -1
	for mi, m := range c.doc.Materials {
		name := m.Name
		if name == "" {
			name = fmt.Sprintf("material_%d", mi)
		}

		model := shader.Standard
		if _, ok := m.Extensions[extUnlit]; ok {
			model = shader.Unlit
		}
		mat := scene.NewMaterial(name, model)
		p := &mat.Params

		p.SetEmissive(vec3Of(m.EmissiveFactor, [3]float32{}))
		if m.AlphaMode == gltf.AlphaMask {
			p.SetFlags(p.Flags() | shader.FlagAlphaTest)
			p.SetAlphaCutoff(floatOf(m.AlphaCutoff, 0.5))
		}
		if m.AlphaMode == gltf.AlphaBlend {
			p.SetFlags(p.Flags() | shader.FlagAlphaBlend)
		}
		if m.DoubleSided {
			p.SetFlags(p.Flags() | shader.FlagDoubleSided)
		}

		if pbr := m.PBRMetallicRoughness; pbr != nil {
			p.SetBaseColor(vec4Of(pbr.BaseColorFactor, [4]float32{1, 1, 1, 1}))
			if sv, ok := p.Standard(); ok {
				sv.SetMetallic(floatOf(pbr.MetallicFactor, 1))
				sv.SetRoughness(floatOf(pbr.RoughnessFactor, 1))
			}
			if pbr.BaseColorTexture != nil {
				mat.Textures[shader.SlotAlbedo] = c.texturePath(pbr.BaseColorTexture.Index)
			}
			if pbr.MetallicRoughnessTexture != nil {
				mat.Textures[shader.SlotMetallicRoughness] = c.texturePath(pbr.MetallicRoughnessTexture.Index)
			}
		}
		if nt := m.NormalTexture; nt != nil {
			mat.Textures[shader.SlotNormal] = c.texturePath(nt.Index)
			p.SetNormalScale(floatOf(nt.Scale, 1))
		}
		if ot := m.OcclusionTexture; ot != nil {
			mat.Textures[shader.SlotOcclusion] = c.texturePath(ot.Index)
			p.SetOcclusionStrength(floatOf(ot.Strength, 1))
		}
		if et := m.EmissiveTexture; et != nil {
			mat.Textures[shader.SlotEmissive] = c.texturePath(et.Index)
		}

		c.s.Materials = append(c.s.Materials, mat)
	}
}

// texturePath resolves a texture index to its image URI. Embedded images
// have no path and are referenced by image name.
func (c *gltfConverter) texturePath(ref any) string {
	ti, ok := indexOf(ref)
	if !ok || ti >= len(c.doc.Textures) {
		return ""
	}
	src, ok := indexOf(c.doc.Textures[ti].Source)
	if !ok || src >= len(c.doc.Images) {
		return ""
	}
	img := c.doc.Images[src]
	if img.URI != "" && !strings.HasPrefix(img.URI, "data:") {
		return filepath.ToSlash(img.URI)
	}
	return img.Name
}

func (c *gltfConverter) materialFor(ref any) int {
	if mi, ok := indexOf(ref); ok && mi < len(c.s.Materials) {
		return mi
	}
	if c.defaultMaterial < 0 {
		c.s.Materials = append(c.s.Materials, scene.NewMaterial("default", shader.Standard))
		c.defaultMaterial = len(c.s.Materials) - 1
	}
	return c.defaultMaterial
}

func (c *gltfConverter) readMeshes() error {
	for mi, m := range c.doc.Meshes {
		base := m.Name
		if base == "" {
			base = fmt.Sprintf("mesh_%d", mi)
		}
		for pi, prim := range m.Primitives {
			name := base
			if len(m.Primitives) > 1 {
				name = fmt.Sprintf("%s_%d", base, pi)
			}
			mesh, err := c.readPrimitive(prim)
			if err != nil {
				return fmt.Errorf("mesh %q: %w", name, err)
			}
			mesh.Name = name
			c.s.Meshes = append(c.s.Meshes, *mesh)
		}
	}
	return nil
}

func (c *gltfConverter) readPrimitive(prim *gltf.Primitive) (*scene.Mesh, error) {
	if prim.Mode != gltf.PrimitiveTriangles {
		return nil, fmt.Errorf("%w: mode %v", ErrNotTriangles, prim.Mode)
	}

	posAcc, err := c.accessor(attribute(prim.Attributes, gltf.POSITION))
	if err != nil {
		return nil, fmt.Errorf("POSITION: %w", err)
	}
	positions, err := modeler.ReadPosition(c.doc, posAcc, nil)
	if err != nil {
		return nil, fmt.Errorf("reading positions: %w", err)
	}

	mesh := &scene.Mesh{
		Vertices:      make([]scene.Vertex, len(positions)),
		MaterialIndex: c.materialFor(prim.Material),
	}
	for i, p := range positions {
		mesh.Vertices[i].Position = p
	}

	if acc, err := c.accessor(attribute(prim.Attributes, gltf.NORMAL)); err == nil {
		normals, err := modeler.ReadNormal(c.doc, acc, nil)
		if err != nil {
			return nil, fmt.Errorf("reading normals: %w", err)
		}
		for i := range normals {
			if i < len(mesh.Vertices) {
				mesh.Vertices[i].Normal = normals[i]
			}
		}
	}

	if acc, err := c.accessor(attribute(prim.Attributes, gltf.TEXCOORD_0)); err == nil {
		uvs, err := modeler.ReadTextureCoord(c.doc, acc, nil)
		if err != nil {
			return nil, fmt.Errorf("reading texcoords: %w", err)
		}
		for i := range uvs {
			if i < len(mesh.Vertices) {
				mesh.Vertices[i].TexCoord = flipV(uvs[i], c.opts.FlipUV)
			}
		}
	}

	if acc, err := c.accessor(attribute(prim.Attributes, gltf.TANGENT)); err == nil {
		data, err := modeler.ReadAccessor(c.doc, acc, nil)
		if err != nil {
			return nil, fmt.Errorf("reading tangents: %w", err)
		}
		tangents, ok := data.([][4]float32)
		if !ok {
			return nil, fmt.Errorf("%w: TANGENT is %T", ErrAccessorFormat, data)
		}
		for i := range tangents {
			if i < len(mesh.Vertices) {
				t := tangents[i]
				if c.opts.FlipUV {
					t[3] = -t[3]
				}
				mesh.Vertices[i].Tangent = t
			}
		}
		mesh.HasTangents = true
	}

	if err := c.readSkinning(prim, mesh); err != nil {
		return nil, err
	}

	if _, ok := indexOf(prim.Indices); !ok {
		mesh.Indices = make([]uint32, len(mesh.Vertices))
		for i := range mesh.Indices {
			mesh.Indices[i] = uint32(i)
		}
		return mesh, nil
	}
	idxAcc, err := c.accessor(prim.Indices)
	if err != nil {
		return nil, fmt.Errorf("indices: %w", err)
	}
	if mesh.Indices, err = modeler.ReadIndices(c.doc, idxAcc, nil); err != nil {
		return nil, fmt.Errorf("reading indices: %w", err)
	}
	return mesh, nil
}

// readSkinning gathers every JOINTS_n/WEIGHTS_n set of a primitive and keeps
// the strongest influences per vertex. Slots outside the skin are dropped.
func (c *gltfConverter) readSkinning(prim *gltf.Primitive, mesh *scene.Mesh) error {
	if len(c.jointRemap) == 0 {
		return nil
	}

	influences := make([][]geom.Influence, len(mesh.Vertices))
	sets := 0
	for ; ; sets++ {
		jointAcc, jerr := c.accessor(attribute(prim.Attributes, fmt.Sprintf("JOINTS_%d", sets)))
		weightAcc, werr := c.accessor(attribute(prim.Attributes, fmt.Sprintf("WEIGHTS_%d", sets)))
		if jerr != nil || werr != nil {
			break
		}

		joints, err := modeler.ReadJoints(c.doc, jointAcc, nil)
		if err != nil {
			return fmt.Errorf("reading JOINTS_%d: %w", sets, err)
		}
		weights, err := modeler.ReadWeights(c.doc, weightAcc, nil)
		if err != nil {
			return fmt.Errorf("reading WEIGHTS_%d: %w", sets, err)
		}

		for i := range influences {
			if i >= len(joints) || i >= len(weights) {
				break
			}
			for k := 0; k < 4; k++ {
				slot, w := int(joints[i][k]), weights[i][k]
				if w <= 0 || slot >= len(c.jointRemap) || c.jointRemap[slot] < 0 {
					continue
				}
				influences[i] = append(influences[i], geom.Influence{Joint: uint16(c.jointRemap[slot]), Weight: w})
			}
		}
	}
	if sets == 0 {
		return nil
	}

	for i := range mesh.Vertices {
		v := &mesh.Vertices[i]
		v.Joints, v.Weights = geom.ReduceInfluences(influences[i], scene.MaxInfluences)
	}
	mesh.Skinned = true
	return nil
}

func (c *gltfConverter) readAnimations() error {
	for ai, a := range c.doc.Animations {
		name := a.Name
		if name == "" {
			name = fmt.Sprintf("animation_%d", ai)
		}
		anim := scene.Animation{Name: name}

		for ci, ch := range a.Channels {
			node, ok := indexOf(ch.Target.Node)
			if !ok {
				continue
			}
			joint, isJoint := c.nodeJoint[node]
			if !isJoint {
				continue
			}
			si, ok := indexOf(ch.Sampler)
			if !ok || si >= len(a.Samplers) {
				return fmt.Errorf("animation %q channel %d: missing sampler", name, ci)
			}
			sampler := a.Samplers[si]

			out := scene.Channel{JointIndex: joint}
			switch ch.Target.Path {
			case gltf.TRSTranslation:
				out.Target = scene.TargetTranslation
			case gltf.TRSRotation:
				out.Target = scene.TargetRotation
			case gltf.TRSScale:
				out.Target = scene.TargetScale
			default:
				continue
			}
			switch sampler.Interpolation {
			case gltf.InterpolationStep:
				out.Interpolation = scene.InterpStep
			case gltf.InterpolationCubicSpline:
				out.Interpolation = scene.InterpCubic
			default:
				out.Interpolation = scene.InterpLinear
			}

			if err := c.readKeys(sampler.Input, sampler.Output, &out); err != nil {
				return fmt.Errorf("animation %q channel %d: %w", name, ci, err)
			}
			anim.Channels = append(anim.Channels, out)
		}

		anim.Duration = anim.ComputeDuration()
		c.s.Animations = append(c.s.Animations, anim)
	}
	return nil
}

// readKeys reads a sampler's keyframes. Cubic-spline outputs store
// (in-tangent, value, out-tangent) triplets; only the value is kept.
func (c *gltfConverter) readKeys(input, output any, out *scene.Channel) error {
	inAcc, err := c.accessor(input)
	if err != nil {
		return err
	}
	outAcc, err := c.accessor(output)
	if err != nil {
		return err
	}
	inData, err := modeler.ReadAccessor(c.doc, inAcc, nil)
	if err != nil {
		return err
	}
	times, ok := inData.([]float32)
	if !ok {
		return fmt.Errorf("%w: key times are %T", ErrAccessorFormat, inData)
	}
	outData, err := modeler.ReadAccessor(c.doc, outAcc, nil)
	if err != nil {
		return err
	}

	stride, offset := 1, 0
	if out.Interpolation == scene.InterpCubic {
		stride, offset = 3, 1
	}

	if out.Target.UsesQuatKeys() {
		values, ok := outData.([][4]float32)
		if !ok {
			return fmt.Errorf("%w: rotations are %T", ErrAccessorFormat, outData)
		}
		for i, t := range times {
			if vi := i*stride + offset; vi < len(values) {
				out.QuatKeys = append(out.QuatKeys, scene.QuatKey{Time: t, Value: values[vi]})
			}
		}
		return nil
	}

	values, ok := outData.([][3]float32)
	if !ok {
		return fmt.Errorf("%w: vectors are %T", ErrAccessorFormat, outData)
	}
	for i, t := range times {
		if vi := i*stride + offset; vi < len(values) {
			out.VectorKeys = append(out.VectorKeys, scene.VectorKey{Time: t, Value: values[vi]})
		}
	}
	return nil
}

func identityMatrix() [16]float32 {
	return [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
}

// rowMajor flattens a decoded MAT4 element. The accessor reader already
// returns it indexed [row][col].
func rowMajor(rows [4][4]float32) [16]float32 {
	var m math.Mat4
	for r := range rows {
		copy(m[r*4:], rows[r][:])
	}
	return [16]float32(m)
}
