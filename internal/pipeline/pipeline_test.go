package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mynameisGaku/GXLib-sub003/internal/config"
	"github.com/mynameisGaku/GXLib-sub003/pkg/formats"
	"github.com/mynameisGaku/GXLib-sub003/pkg/gxpak"
	"github.com/mynameisGaku/GXLib-sub003/pkg/importer"
	"github.com/mynameisGaku/GXLib-sub003/pkg/shader"
)

func newObserved(cfg *config.Config) (*Pipeline, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return New(cfg, zap.New(core)), logs
}

func TestConvertModelOBJ(t *testing.T) {
	p, logs := newObserved(nil)
	dst := filepath.Join(t.TempDir(), "quad.gxmd")

	res, err := p.ConvertModel(filepath.Join("testdata", "quad.obj"), dst)
	if err != nil {
		t.Fatalf("ConvertModel: %v", err)
	}
	if res.Meshes != 1 || res.Vertices != 4 || res.Triangles != 2 || res.Materials != 1 {
		t.Errorf("result = %+v", res)
	}
	if res.Normalize.TangentMeshes != 1 {
		t.Errorf("tangent meshes = %d, want 1", res.Normalize.TangentMeshes)
	}

	m, err := formats.ParseGXMDFile(dst)
	if err != nil {
		t.Fatalf("ParseGXMDFile: %v", err)
	}
	if m.IndexFormat != formats.Index16 {
		t.Errorf("index format = %v, want 16-bit", m.IndexFormat)
	}
	if got := m.Materials[0].Textures[shader.SlotAlbedo]; got != "paint.png" {
		t.Errorf("albedo = %q, want paint.png", got)
	}
	if m.Materials[0].Params.Model() != shader.Phong {
		t.Errorf("material model = %v, want Phong", m.Materials[0].Params.Model())
	}
	for i, v := range m.Vertices {
		if v.Tangent[0] == 0 && v.Tangent[1] == 0 && v.Tangent[2] == 0 {
			t.Errorf("vertex %d has no synthesized tangent", i)
		}
	}

	entries := logs.FilterMessage("converted model").All()
	if len(entries) != 1 {
		t.Fatalf("converted model logged %d times, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["output"] != dst || fields["triangles"] != int64(2) {
		t.Errorf("log fields = %v", fields)
	}
	if logs.FilterMessage("normalized scene").Len() != 1 {
		t.Error("expected a debug entry for normalization")
	}
}

func TestConvertModelConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Export.Force16BitIndices = false
	cfg.Export.ExcludeAnimations = true
	cfg.Export.GenerateTangents = false
	cfg.Import.FlipUV = true
	p := New(cfg, nil)

	dst := filepath.Join(t.TempDir(), "rig.gxmd")
	res, err := p.ConvertModel(filepath.Join("testdata", "rig.gltf"), dst)
	if err != nil {
		t.Fatalf("ConvertModel: %v", err)
	}
	if res.Joints != 2 || res.Animations != 0 || res.Normalize.TangentMeshes != 0 {
		t.Errorf("result = %+v", res)
	}

	m, err := formats.ParseGXMDFile(dst)
	if err != nil {
		t.Fatalf("ParseGXMDFile: %v", err)
	}
	if m.IndexFormat != formats.Index32 {
		t.Errorf("index format = %v, want 32-bit", m.IndexFormat)
	}
	if len(m.Animations) != 0 {
		t.Errorf("animations = %d, want 0", len(m.Animations))
	}
	if len(m.Bones) != 2 || m.Bones[0].Name != "hip" {
		t.Errorf("bones = %+v", m.Bones)
	}
	if m.Vertices[0].TexCoord != [2]float32{0, 1} {
		t.Errorf("uv = %v, want flipped [0 1]", m.Vertices[0].TexCoord)
	}
}

func TestConvertModelErrors(t *testing.T) {
	p := New(nil, nil)
	dir := t.TempDir()

	_, err := p.ConvertModel(filepath.Join(dir, "mesh.fbx"), filepath.Join(dir, "out.gxmd"))
	if !errors.Is(err, importer.ErrUnsupportedFormat) {
		t.Errorf("unsupported source: got %v", err)
	}

	empty := filepath.Join(dir, "empty.obj")
	if err := os.WriteFile(empty, []byte("# nothing\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "empty.gxmd")
	if _, err := p.ConvertModel(empty, dst); !errors.Is(err, formats.ErrNoMeshes) {
		t.Errorf("empty source: got %v", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Error("failed export left an output file")
	}
}

func TestConvertAnimation(t *testing.T) {
	tests := []struct {
		clip     string
		wantName string
		channels int
	}{
		{"", "lift", 1},
		{"turn", "turn", 1},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			p, logs := newObserved(nil)
			dst := filepath.Join(t.TempDir(), tt.wantName+".gxan")

			if err := p.ConvertAnimation(filepath.Join("testdata", "rig.gltf"), dst, tt.clip); err != nil {
				t.Fatalf("ConvertAnimation: %v", err)
			}

			a, err := formats.ParseGXANFile(dst)
			if err != nil {
				t.Fatalf("ParseGXANFile: %v", err)
			}
			if a.Name != tt.wantName || len(a.Channels) != tt.channels {
				t.Errorf("clip = %q with %d channels", a.Name, len(a.Channels))
			}
			if logs.FilterField(zap.String("clip", tt.wantName)).Len() != 1 {
				t.Errorf("missing log entry for clip %q", tt.wantName)
			}
		})
	}
}

func TestConvertAnimationErrors(t *testing.T) {
	p := New(nil, nil)
	dir := t.TempDir()

	err := p.ConvertAnimation(filepath.Join("testdata", "quad.obj"), filepath.Join(dir, "a.gxan"), "")
	if !errors.Is(err, formats.ErrNoAnimations) {
		t.Errorf("static source: got %v", err)
	}

	err = p.ConvertAnimation(filepath.Join("testdata", "rig.gltf"), filepath.Join(dir, "b.gxan"), "dance")
	if !errors.Is(err, ErrClipNotFound) {
		t.Errorf("missing clip: got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "b.gxan")); !os.IsNotExist(err) {
		t.Error("failed export left an output file")
	}
}

func TestPackUnpack(t *testing.T) {
	src := t.TempDir()
	files := map[string]string{
		"models/quad.gxmd":   "not really a model but long enough to think about compressing",
		"textures/paint.png": "png",
		"readme.txt":         "",
	}
	for name, body := range files {
		path := filepath.Join(src, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Default()
	cfg.Archive.MinCompressSize = 16
	p, logs := newObserved(cfg)
	pak := filepath.Join(t.TempDir(), "assets.gxpak")

	entries, err := p.Pack(src, pak)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if len(entries) != len(files) {
		t.Fatalf("entries = %d, want %d", len(entries), len(files))
	}
	if logs.FilterMessage("packed entry").Len() != len(files) {
		t.Errorf("packed entry logged %d times", logs.FilterMessage("packed entry").Len())
	}

	a, err := gxpak.Open(pak)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	models := a.GetEntriesByType(gxpak.AssetModel)
	a.Close()
	if len(models) != 1 || models[0].Path != "models/quad.gxmd" {
		t.Errorf("model entries = %+v", models)
	}

	out := t.TempDir()
	n, err := p.Unpack(pak, out)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if n != len(files) {
		t.Errorf("unpacked %d files, want %d", n, len(files))
	}
	for name, body := range files {
		got, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(name)))
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if string(got) != body {
			t.Errorf("%s = %q, want %q", name, got, body)
		}
	}
}

func TestUnpackMissing(t *testing.T) {
	p := New(nil, nil)
	if _, err := p.Unpack(filepath.Join(t.TempDir(), "nope.gxpak"), t.TempDir()); err == nil {
		t.Error("expected error for missing archive")
	}
}

func TestBuilderOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Archive.Compress = false
	cfg.Archive.MinCompressSize = 99
	cfg.Archive.CompressExtensions = []string{".gxmd"}

	got := New(cfg, nil).BuilderOptions()
	if got.Compress || got.MinCompressSize != 99 || len(got.CompressExtensions) != 1 {
		t.Errorf("options = %+v", got)
	}
}
