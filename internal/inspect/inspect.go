// Package inspect writes human-readable dumps of GXMD, GXAN and GXPAK files.
package inspect

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mynameisGaku/GXLib-sub003/pkg/formats"
	"github.com/mynameisGaku/GXLib-sub003/pkg/gxpak"
	"github.com/mynameisGaku/GXLib-sub003/pkg/shader"
)

// ErrUnknownFormat is returned by File when the magic matches no known format.
var ErrUnknownFormat = errors.New("unknown file format")

// Kind identifies a file by its magic.
type Kind int

const (
	KindUnknown Kind = iota
	KindModel
	KindAnimation
	KindArchive
)

// Sniff returns the kind of file whose leading bytes are data.
func Sniff(data []byte) Kind {
	if len(data) < 4 {
		return KindUnknown
	}
	var magic [4]byte
	copy(magic[:], data)
	switch magic {
	case formats.GXMDMagic:
		return KindModel
	case formats.GXANMagic:
		return KindAnimation
	case gxpak.Magic:
		return KindArchive
	default:
		return KindUnknown
	}
}

// File dumps the file at path, choosing the format by its magic.
func File(w io.Writer, path string) error {
	kind, err := sniffFile(path)
	if err != nil {
		return err
	}

	switch kind {
	case KindArchive:
		a, err := gxpak.Open(path)
		if err != nil {
			return err
		}
		defer a.Close()
		fmt.Fprintf(w, "File: %s\n", path)
		return Archive(w, a)
	case KindModel, KindAnimation:
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "File: %s\n", path)
		if kind == KindModel {
			return Model(w, data)
		}
		return Animation(w, data)
	default:
		return fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
}

func sniffFile(path string) (Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown, err
	}
	defer f.Close()

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return KindUnknown, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
		}
		return KindUnknown, err
	}
	return Sniff(magic[:]), nil
}

// Model dumps a GXMD file: header, sections and one line per chunk.
func Model(w io.Writer, data []byte) error {
	h, err := formats.ReadGXMDHeader(data)
	if err != nil {
		return err
	}
	m, err := formats.ParseGXMD(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Format:     GXMD v%d\n", h.Version)
	fmt.Fprintf(w, "Flags:      %s\n", modelFlags(h.Flags))
	fmt.Fprintf(w, "Vertices:   %d\n", len(m.Vertices))
	fmt.Fprintf(w, "Indices:    %d (%s)\n", m.IndexCount(), m.IndexFormat)
	b := m.Bounds()
	fmt.Fprintf(w, "Bounds:     %s - %s\n", vec3(b.Min.Array()), vec3(b.Max.Array()))
	if h.BlendShapeCount > 0 {
		fmt.Fprintf(w, "BlendShapes: %d\n", h.BlendShapeCount)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Sections:")
	for _, s := range []struct {
		name string
		sec  formats.Section
	}{
		{"strings", h.StringTable},
		{"meshes", h.MeshChunks},
		{"materials", h.MaterialChunks},
		{"bones", h.BoneData},
		{"animations", h.AnimationData},
		{"vertices", h.VertexData},
		{"indices", h.IndexData},
		{"blendshapes", h.BlendShapeData},
	} {
		fmt.Fprintf(w, "  %-12s offset=%-8d size=%d\n", s.name, s.sec.Offset, s.sec.Size)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Meshes (%d):\n", len(m.Meshes))
	for i := range m.Meshes {
		sm := &m.Meshes[i]
		material := "-"
		if sm.MaterialIndex >= 0 && sm.MaterialIndex < len(m.Materials) {
			material = m.Materials[sm.MaterialIndex].Name
		}
		skinned := ""
		if sm.Skinned {
			skinned = " skinned"
		}
		fmt.Fprintf(w, "  [%d] %-20s material=%s vertices=%d triangles=%d%s\n",
			i, sm.Name, material, sm.VertexCount, sm.IndexCount/3, skinned)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Materials (%d):\n", len(m.Materials))
	for i := range m.Materials {
		writeMaterial(w, i, &m.Materials[i])
	}

	if len(m.Bones) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Bones (%d):\n", len(m.Bones))
		for i, bone := range m.Bones {
			parent := "-"
			if bone.Parent >= 0 {
				parent = m.Bones[bone.Parent].Name
			}
			fmt.Fprintf(w, "  [%d] %-20s parent=%s\n", i, bone.Name, parent)
		}
	}

	for i := range m.Animations {
		fmt.Fprintln(w)
		writeAnimation(w, &m.Animations[i])
	}
	return nil
}

// Animation dumps a standalone GXAN file.
func Animation(w io.Writer, data []byte) error {
	h, err := formats.ReadGXANHeader(data)
	if err != nil {
		return err
	}
	a, err := formats.ParseGXAN(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Format:     GXAN v%d\n", h.Version)
	fmt.Fprintf(w, "Keys:       %d bytes\n", h.KeyData.Size)
	fmt.Fprintln(w)
	writeAnimation(w, a)
	return nil
}

// Archive dumps an open GXPAK archive: header, totals per asset type and
// one line per entry in TOC order.
func Archive(w io.Writer, a *gxpak.Archive) error {
	h := a.Header()
	entries := a.Entries()

	var packed, original uint64
	byType := make(map[gxpak.AssetType]int)
	for _, e := range entries {
		packed += uint64(e.CompressedSize)
		original += uint64(e.OriginalSize)
		byType[e.Type]++
	}

	fmt.Fprintf(w, "Format:     GXPAK v%d\n", h.Version)
	fmt.Fprintf(w, "Entries:    %d\n", h.EntryCount)
	fmt.Fprintf(w, "TOC offset: %d\n", h.TOCOffset)
	fmt.Fprintf(w, "Payload:    %s (%s unpacked)\n", formatSize(packed), formatSize(original))

	types := make([]gxpak.AssetType, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	fmt.Fprintln(w)
	fmt.Fprintln(w, "By type:")
	for _, t := range types {
		fmt.Fprintf(w, "  %-10s %d\n", t, byType[t])
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Entries:")
	for _, e := range entries {
		fmt.Fprintf(w, "  %-40s %-9s %10d %10d %s\n",
			e.Path, e.Type, e.OriginalSize, e.CompressedSize, compression(e))
	}
	return nil
}

func writeMaterial(w io.Writer, i int, mat *formats.Material) {
	p := &mat.Params
	c := p.BaseColor()
	fmt.Fprintf(w, "  [%d] %-20s model=%s base=(%.3g %.3g %.3g %.3g)",
		i, mat.Name, p.Model(), c[0], c[1], c[2], c[3])
	if v, ok := p.Standard(); ok {
		fmt.Fprintf(w, " metallic=%.3g roughness=%.3g", v.Metallic(), v.Roughness())
	}
	if v, ok := p.Phong(); ok {
		fmt.Fprintf(w, " shininess=%.3g", v.Shininess())
	}
	if flags := materialFlags(p.Flags()); flags != "" {
		fmt.Fprintf(w, " flags=%s", flags)
	}
	fmt.Fprintln(w)

	for slot, tex := range mat.Textures {
		if tex != "" {
			fmt.Fprintf(w, "        %-18s %s\n", shader.TextureSlot(slot).String()+":", tex)
		}
	}
}

func writeAnimation(w io.Writer, a *formats.Animation) {
	fmt.Fprintf(w, "Animation %q: duration=%.3fs channels=%d\n", a.Name, a.Duration, len(a.Channels))
	for i := range a.Channels {
		ch := &a.Channels[i]
		fmt.Fprintf(w, "  %-20s %-11s %-6s %d keys\n", ch.BoneName, ch.Target, ch.Interpolation, ch.KeyCount())
	}
}

func modelFlags(f uint32) string {
	var parts []string
	if f&formats.GXMDFlagSkeleton != 0 {
		parts = append(parts, "skeleton")
	}
	if f&formats.GXMDFlagAnimations != 0 {
		parts = append(parts, "animations")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

func materialFlags(f uint32) string {
	var parts []string
	if f&shader.FlagDoubleSided != 0 {
		parts = append(parts, "double-sided")
	}
	if f&shader.FlagAlphaBlend != 0 {
		parts = append(parts, "blend")
	}
	if f&shader.FlagAlphaTest != 0 {
		parts = append(parts, "alpha-test")
	}
	return strings.Join(parts, ",")
}

func compression(e gxpak.Entry) string {
	if !e.Compressed {
		return "stored"
	}
	return fmt.Sprintf("lz4 %.0f%%", e.Ratio()*100)
}

func vec3(v [3]float32) string {
	return fmt.Sprintf("(%.3g, %.3g, %.3g)", v[0], v[1], v[2])
}

func formatSize(n uint64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
