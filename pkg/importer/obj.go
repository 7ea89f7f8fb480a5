package importer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mynameisGaku/GXLib-sub003/pkg/encoding"
	"github.com/mynameisGaku/GXLib-sub003/pkg/geom"
	"github.com/mynameisGaku/GXLib-sub003/pkg/math"
	"github.com/mynameisGaku/GXLib-sub003/pkg/scene"
	"github.com/mynameisGaku/GXLib-sub003/pkg/shader"
)

// OBJ format errors.
var (
	ErrBadOBJIndex = errors.New("OBJ face references a missing element")
	ErrBadOBJLine  = errors.New("malformed OBJ statement")
)

// OBJ imports Wavefront OBJ files and their MTL libraries. Faces are fan
// triangulated and grouped per object and material; corners are welded by
// their (position, normal, texcoord) index tuple.
type OBJ struct {
	Options Options
}

// Import implements Importer.
func (o *OBJ) Import(path string) (*scene.Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening OBJ: %w", err)
	}
	defer f.Close()

	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return o.Read(f, base, func(name string) (io.ReadCloser, error) {
		return os.Open(filepath.Join(dir, filepath.FromSlash(name)))
	})
}

// MTLOpener opens a material library referenced by an OBJ file.
type MTLOpener func(name string) (io.ReadCloser, error)

type objGroup struct {
	object   string
	material string
	welder   *geom.Welder
	indices  []uint32
	// vertices that had no normal in the source
	needNormal map[uint32]bool
}

type objReader struct {
	opts      Options
	positions [][3]float32
	normals   [][3]float32
	texcoords [][2]float32

	materials  []scene.Material
	matIndex   map[string]int
	groups     []*objGroup
	groupIndex map[[2]string]*objGroup

	object   string
	material string
}

// Read parses OBJ data from r. name is used for meshes that appear before
// any "o" or "g" statement. open resolves mtllib references and may be nil.
func (o *OBJ) Read(r io.Reader, name string, open MTLOpener) (*scene.Scene, error) {
	rd := &objReader{
		opts:       o.Options,
		matIndex:   make(map[string]int),
		groupIndex: make(map[[2]string]*objGroup),
		object:     name,
	}

	text, err := encoding.NewReader(r, o.Options.Encoding)
	if err != nil {
		return nil, err
	}

	sc := bufio.NewScanner(text)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(stripComment(sc.Text()))
		if len(fields) == 0 {
			continue
		}
		if err := rd.statement(fields, open); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ: %w", err)
	}
	return rd.build(), nil
}

func (rd *objReader) statement(fields []string, open MTLOpener) error {
	args := fields[1:]
	switch fields[0] {
	case "v":
		v, err := parseFloats(args, 3)
		if err != nil {
			return err
		}
		rd.positions = append(rd.positions, [3]float32{v[0], v[1], v[2]})
	case "vn":
		v, err := parseFloats(args, 3)
		if err != nil {
			return err
		}
		rd.normals = append(rd.normals, math.V3([3]float32{v[0], v[1], v[2]}).Normalize().Array())
	case "vt":
		v, err := parseFloats(args, 2)
		if err != nil {
			return err
		}
		rd.texcoords = append(rd.texcoords, flipV([2]float32{v[0], v[1]}, rd.opts.FlipUV))
	case "f":
		return rd.face(args)
	case "o", "g":
		if len(args) > 0 {
			rd.object = strings.Join(args, " ")
		}
	case "usemtl":
		if len(args) > 0 {
			rd.material = strings.Join(args, " ")
		}
	case "mtllib":
		if open == nil {
			return nil
		}
		for _, lib := range args {
			if err := rd.loadMTL(lib, open); err != nil {
				return err
			}
		}
	}
	return nil
}

func (rd *objReader) loadMTL(name string, open MTLOpener) error {
	rc, err := open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Materials fall back to defaults on first use.
			return nil
		}
		return fmt.Errorf("opening %s: %w", name, err)
	}
	defer rc.Close()

	text, err := encoding.NewReader(rc, rd.opts.Encoding)
	if err != nil {
		return err
	}
	mats, err := ReadMTL(text)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	for _, m := range mats {
		if _, dup := rd.matIndex[m.Name]; dup {
			continue
		}
		rd.matIndex[m.Name] = len(rd.materials)
		rd.materials = append(rd.materials, m)
	}
	return nil
}

func (rd *objReader) currentGroup() *objGroup {
	key := [2]string{rd.object, rd.material}
	if g, ok := rd.groupIndex[key]; ok {
		return g
	}
	g := &objGroup{
		object:     rd.object,
		material:   rd.material,
		welder:     geom.NewWelder(),
		needNormal: make(map[uint32]bool),
	}
	rd.groupIndex[key] = g
	rd.groups = append(rd.groups, g)
	return g
}

func (rd *objReader) face(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("%w: face with %d corners", ErrBadOBJLine, len(args))
	}
	g := rd.currentGroup()

	corners := make([]uint32, len(args))
	for i, a := range args {
		key, err := rd.corner(a)
		if err != nil {
			return err
		}
		v := scene.Vertex{Position: rd.positions[key.Position]}
		if key.Normal >= 0 {
			v.Normal = rd.normals[key.Normal]
		}
		if key.TexCoord >= 0 {
			v.TexCoord = rd.texcoords[key.TexCoord]
		}
		idx := g.welder.Weld(key, v)
		if key.Normal < 0 {
			g.needNormal[idx] = true
		}
		corners[i] = idx
	}

	for i := 1; i+1 < len(corners); i++ {
		g.indices = append(g.indices, corners[0], corners[i], corners[i+1])
	}
	return nil
}

// corner parses "p", "p/t", "p//n" or "p/t/n" into zero-based indices.
// Negative source indices count back from the latest element.
func (rd *objReader) corner(s string) (geom.CornerKey, error) {
	key := geom.CornerKey{Position: -1, Normal: -1, TexCoord: -1}
	parts := strings.Split(s, "/")
	if len(parts) > 3 {
		return key, fmt.Errorf("%w: corner %q", ErrBadOBJLine, s)
	}

	resolve := func(field string, count int) (int, error) {
		n, err := strconv.Atoi(field)
		if err != nil {
			return -1, fmt.Errorf("%w: corner %q", ErrBadOBJLine, s)
		}
		switch {
		case n > 0 && n <= count:
			return n - 1, nil
		case n < 0 && -n <= count:
			return count + n, nil
		}
		return -1, fmt.Errorf("%w: %q", ErrBadOBJIndex, s)
	}

	var err error
	if key.Position, err = resolve(parts[0], len(rd.positions)); err != nil {
		return key, err
	}
	if len(parts) > 1 && parts[1] != "" {
		if key.TexCoord, err = resolve(parts[1], len(rd.texcoords)); err != nil {
			return key, err
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if key.Normal, err = resolve(parts[2], len(rd.normals)); err != nil {
			return key, err
		}
	}
	return key, nil
}

func (rd *objReader) materialFor(name string) int {
	if name == "" {
		name = "default"
	}
	if idx, ok := rd.matIndex[name]; ok {
		return idx
	}
	rd.matIndex[name] = len(rd.materials)
	rd.materials = append(rd.materials, scene.NewMaterial(name, shader.Phong))
	return len(rd.materials) - 1
}

func (rd *objReader) build() *scene.Scene {
	perObject := make(map[string]int)
	for _, g := range rd.groups {
		if len(g.indices) > 0 {
			perObject[g.object]++
		}
	}

	s := &scene.Scene{}
	for _, g := range rd.groups {
		if len(g.indices) == 0 {
			continue
		}
		name := g.object
		if perObject[g.object] > 1 && g.material != "" {
			name = g.object + "_" + g.material
		}
		mesh := scene.Mesh{
			Name:          name,
			Vertices:      g.welder.Vertices,
			Indices:       g.indices,
			MaterialIndex: rd.materialFor(g.material),
		}
		smoothMissingNormals(&mesh, g.needNormal)
		s.Meshes = append(s.Meshes, mesh)
	}
	s.Materials = rd.materials
	return s
}

// smoothMissingNormals gives vertices that had no source normal the
// area-weighted average of their faces' normals.
func smoothMissingNormals(m *scene.Mesh, missing map[uint32]bool) {
	if len(missing) == 0 {
		return
	}
	acc := make(map[uint32]math.Vec3, len(missing))
	for i := 0; i+2 < len(m.Indices); i += 3 {
		i0, i1, i2 := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		p0 := math.V3(m.Vertices[i0].Position)
		n := math.V3(m.Vertices[i1].Position).Sub(p0).Cross(math.V3(m.Vertices[i2].Position).Sub(p0))
		for _, idx := range [3]uint32{i0, i1, i2} {
			if missing[idx] {
				acc[idx] = acc[idx].Add(n)
			}
		}
	}
	for idx, n := range acc {
		m.Vertices[idx].Normal = n.Normalize().Array()
	}
}

func stripComment(s string) string {
	if i := strings.IndexByte(s, '#'); i >= 0 {
		return s[:i]
	}
	return s
}

func parseFloats(args []string, n int) ([]float32, error) {
	if len(args) < n {
		return nil, fmt.Errorf("%w: need %d values, got %d", ErrBadOBJLine, n, len(args))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(args[i], 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadOBJLine, err)
		}
		out[i] = float32(v)
	}
	return out, nil
}
