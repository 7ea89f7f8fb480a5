// Package pipeline drives the asset tools: source import, normalization and
// export to GXMD/GXAN, and GXPAK packing.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mynameisGaku/GXLib-sub003/internal/config"
	"github.com/mynameisGaku/GXLib-sub003/internal/fsutil"
	"github.com/mynameisGaku/GXLib-sub003/pkg/formats"
	"github.com/mynameisGaku/GXLib-sub003/pkg/geom"
	"github.com/mynameisGaku/GXLib-sub003/pkg/gxpak"
	"github.com/mynameisGaku/GXLib-sub003/pkg/importer"
	"github.com/mynameisGaku/GXLib-sub003/pkg/scene"
)

// ErrClipNotFound is returned when a named animation is missing from the source.
var ErrClipNotFound = errors.New("animation clip not found")

// Pipeline runs conversions with one configuration.
type Pipeline struct {
	cfg *config.Config
	log *zap.Logger
}

// New returns a pipeline. A nil cfg means config.Default(); a nil log
// disables logging.
func New(cfg *config.Config, log *zap.Logger) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, log: log}
}

// ModelResult summarizes one model conversion.
type ModelResult struct {
	Meshes     int
	Materials  int
	Joints     int
	Animations int
	Vertices   int
	Triangles  int
	Normalize  geom.Stats
}

func (p *Pipeline) importOptions() importer.Options {
	return importer.Options{FlipUV: p.cfg.Import.FlipUV, Encoding: p.cfg.Import.Encoding}
}

// ImportScene loads a source file and normalizes it for export.
func (p *Pipeline) ImportScene(src string) (*scene.Scene, geom.Stats, error) {
	start := time.Now()
	s, err := importer.Import(src, p.importOptions())
	if err != nil {
		return nil, geom.Stats{}, fmt.Errorf("importing %s: %w", src, err)
	}
	p.log.Debug("imported source",
		zap.String("source", src),
		zap.Int("meshes", len(s.Meshes)),
		zap.Int("joints", len(s.Joints)),
		zap.Int("animations", len(s.Animations)),
		zap.Duration("elapsed", time.Since(start)))

	st, err := geom.Normalize(s, geom.Options{
		GenerateTangents: p.cfg.Export.GenerateTangents,
		MaxInfluences:    p.cfg.Export.MaxInfluences,
	})
	if err != nil {
		return nil, st, fmt.Errorf("normalizing %s: %w", src, err)
	}
	p.log.Debug("normalized scene",
		zap.String("source", src),
		zap.Int("tangent_meshes", st.TangentMeshes),
		zap.Int("skinned_vertices", st.SkinnedVertices))
	return s, st, nil
}

// ConvertModel imports src, normalizes it and writes a GXMD file to dst.
func (p *Pipeline) ConvertModel(src, dst string) (ModelResult, error) {
	s, st, err := p.ImportScene(src)
	if err != nil {
		return ModelResult{}, err
	}

	opts := formats.ExportOptions{
		Force16BitIndices: p.cfg.Export.Force16BitIndices,
		ExcludeAnimations: p.cfg.Export.ExcludeAnimations,
	}
	if err := formats.ExportGXMDFile(dst, s, opts); err != nil {
		return ModelResult{}, fmt.Errorf("exporting %s: %w", dst, err)
	}

	res := ModelResult{
		Meshes:    len(s.Meshes),
		Materials: len(s.Materials),
		Joints:    len(s.Joints),
		Normalize: st,
	}
	if !opts.ExcludeAnimations {
		res.Animations = len(s.Animations)
	}
	for i := range s.Meshes {
		res.Vertices += len(s.Meshes[i].Vertices)
		res.Triangles += len(s.Meshes[i].Indices) / 3
	}

	p.log.Info("converted model",
		zap.String("source", src),
		zap.String("output", dst),
		zap.Int("meshes", res.Meshes),
		zap.Int("vertices", res.Vertices),
		zap.Int("triangles", res.Triangles),
		zap.Int("animations", res.Animations))
	return res, nil
}

// ConvertAnimation writes one animation clip of src to dst as GXAN. An
// empty clip name selects the first animation.
func (p *Pipeline) ConvertAnimation(src, dst, clip string) error {
	s, err := importer.Import(src, p.importOptions())
	if err != nil {
		return fmt.Errorf("importing %s: %w", src, err)
	}
	if len(s.Animations) == 0 {
		return fmt.Errorf("%s: %w", src, formats.ErrNoAnimations)
	}

	a := &s.Animations[0]
	if clip != "" {
		a = nil
		for i := range s.Animations {
			if s.Animations[i].Name == clip {
				a = &s.Animations[i]
				break
			}
		}
		if a == nil {
			return fmt.Errorf("%s: %w: %q", src, ErrClipNotFound, clip)
		}
	}

	err = fsutil.WriteFileAtomic(dst, func(w io.Writer) error {
		return formats.ExportGXANClip(w, s, a)
	})
	if err != nil {
		return fmt.Errorf("exporting %s: %w", dst, err)
	}

	p.log.Info("converted animation",
		zap.String("source", src),
		zap.String("output", dst),
		zap.String("clip", a.Name),
		zap.Int("channels", len(a.Channels)),
		zap.Float32("duration", a.Duration))
	return nil
}

// BuilderOptions maps the archive config onto gxpak builder options.
func (p *Pipeline) BuilderOptions() gxpak.BuilderOptions {
	return gxpak.BuilderOptions{
		Compress:           p.cfg.Archive.Compress,
		MinCompressSize:    p.cfg.Archive.MinCompressSize,
		CompressExtensions: p.cfg.Archive.CompressExtensions,
	}
}

// Pack writes every regular file under dir into the archive out.
func (p *Pipeline) Pack(dir, out string) ([]gxpak.Entry, error) {
	b := gxpak.NewBuilder(p.BuilderOptions())
	if err := b.AddDir(dir); err != nil {
		return nil, fmt.Errorf("collecting %s: %w", dir, err)
	}

	entries, err := b.WriteFile(out)
	if err != nil {
		return nil, fmt.Errorf("writing %s: %w", out, err)
	}

	var packed, original uint64
	compressed := 0
	for _, e := range entries {
		p.log.Debug("packed entry",
			zap.String("path", e.Path),
			zap.Stringer("type", e.Type),
			zap.Bool("compressed", e.Compressed),
			zap.Uint32("size", e.CompressedSize))
		packed += uint64(e.CompressedSize)
		original += uint64(e.OriginalSize)
		if e.Compressed {
			compressed++
		}
	}

	p.log.Info("packed archive",
		zap.String("source", dir),
		zap.String("output", out),
		zap.Int("entries", len(entries)),
		zap.Int("compressed", compressed),
		zap.Uint64("payload_bytes", packed),
		zap.Uint64("original_bytes", original))
	return entries, nil
}

// Unpack extracts every entry of the archive pak into dir and returns the
// number of files written.
func (p *Pipeline) Unpack(pak, dir string) (int, error) {
	a, err := gxpak.Open(pak)
	if err != nil {
		return 0, err
	}
	defer a.Close()

	if err := a.Extract(dir); err != nil {
		return 0, fmt.Errorf("extracting %s: %w", pak, err)
	}

	n := len(a.Entries())
	p.log.Info("unpacked archive",
		zap.String("source", pak),
		zap.String("output", filepath.Clean(dir)),
		zap.Int("entries", n))
	return n, nil
}
