package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if !cfg.Export.Force16BitIndices {
		t.Error("expected force_16bit_indices to be true by default")
	}
	if cfg.Export.ExcludeAnimations {
		t.Error("expected exclude_animations to be false by default")
	}
	if !cfg.Export.GenerateTangents {
		t.Error("expected generate_tangents to be true by default")
	}
	if cfg.Export.MaxInfluences != 4 {
		t.Errorf("expected max_influences 4, got %d", cfg.Export.MaxInfluences)
	}

	if !cfg.Archive.Compress {
		t.Error("expected compress to be true by default")
	}
	if cfg.Archive.MinCompressSize != 64 {
		t.Errorf("expected min_compress_size 64, got %d", cfg.Archive.MinCompressSize)
	}
	if len(cfg.Archive.CompressExtensions) != 0 {
		t.Errorf("expected no extension filter, got %v", cfg.Archive.CompressExtensions)
	}

	if cfg.Import.FlipUV {
		t.Error("expected flip_uv to be false by default")
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, FileName)

	yamlContent := `
export:
  force_16bit_indices: false
  exclude_animations: true
  max_influences: 2

archive:
  compress: false
  min_compress_size: 1024
  compress_extensions: [".gxmd", ".gxan"]

import:
  flip_uv: true

logging:
  level: "debug"
  log_file: "gxconv.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Export.Force16BitIndices {
		t.Error("expected force_16bit_indices to be false")
	}
	if !cfg.Export.ExcludeAnimations {
		t.Error("expected exclude_animations to be true")
	}
	// Not in the file: default survives the merge.
	if !cfg.Export.GenerateTangents {
		t.Error("expected generate_tangents to keep its default")
	}
	if cfg.Export.MaxInfluences != 2 {
		t.Errorf("expected max_influences 2, got %d", cfg.Export.MaxInfluences)
	}

	if cfg.Archive.Compress {
		t.Error("expected compress to be false")
	}
	if cfg.Archive.MinCompressSize != 1024 {
		t.Errorf("expected min_compress_size 1024, got %d", cfg.Archive.MinCompressSize)
	}
	if want := []string{".gxmd", ".gxan"}; !reflect.DeepEqual(cfg.Archive.CompressExtensions, want) {
		t.Errorf("expected extensions %v, got %v", want, cfg.Archive.CompressExtensions)
	}

	if !cfg.Import.FlipUV {
		t.Error("expected flip_uv to be true")
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "gxconv.log" {
		t.Errorf("expected log file 'gxconv.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
export:
  max_influences: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/gxlib.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"one influence", func(c *Config) { c.Export.MaxInfluences = 1 }, true},
		{"zero influences", func(c *Config) { c.Export.MaxInfluences = 0 }, false},
		{"five influences", func(c *Config) { c.Export.MaxInfluences = 5 }, false},
		{"negative min size", func(c *Config) { c.Archive.MinCompressSize = -1 }, false},
		{"bad level", func(c *Config) { c.Logging.Level = "chatty" }, false},
		{"shift-jis sources", func(c *Config) { c.Import.Encoding = "shift-jis" }, true},
		{"bad encoding", func(c *Config) { c.Import.Encoding = "morse" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	t.Setenv("HOME", filepath.Join(tmpDir, "home"))
	os.Chdir(tmpDir)

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, FileName)
	if err := os.WriteFile(configPath, []byte("export:\n  max_influences: 3\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find gxlib.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		verify func(*testing.T, *Config)
	}{
		{
			name: "no flags keeps file values",
			args: nil,
			verify: func(t *testing.T, cfg *Config) {
				if !reflect.DeepEqual(cfg, Default()) {
					t.Errorf("expected defaults, got %+v", cfg)
				}
			},
		},
		{
			name: "debug and log",
			args: []string{"-debug", "-log", "run.log"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
				if cfg.Logging.LogFile != "run.log" {
					t.Errorf("expected log file run.log, got %s", cfg.Logging.LogFile)
				}
			},
		},
		{
			name: "export overrides",
			args: []string{"-force16=false", "-no-anim", "-no-tangents", "-flip-uv", "-encoding", "euc-kr"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Export.Force16BitIndices {
					t.Error("expected force16 disabled")
				}
				if !cfg.Export.ExcludeAnimations {
					t.Error("expected animations excluded")
				}
				if cfg.Export.GenerateTangents {
					t.Error("expected tangent generation disabled")
				}
				if !cfg.Import.FlipUV {
					t.Error("expected flip_uv enabled")
				}
				if cfg.Import.Encoding != "euc-kr" {
					t.Errorf("expected encoding euc-kr, got %q", cfg.Import.Encoding)
				}
			},
		},
		{
			name: "archive overrides",
			args: []string{"-compress=false", "-min-size", "4096", "-ext", "gxmd, .GXAN,,"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Archive.Compress {
					t.Error("expected compression disabled")
				}
				if cfg.Archive.MinCompressSize != 4096 {
					t.Errorf("expected min size 4096, got %d", cfg.Archive.MinCompressSize)
				}
				if want := []string{".gxmd", ".gxan"}; !reflect.DeepEqual(cfg.Archive.CompressExtensions, want) {
					t.Errorf("expected extensions %v, got %v", want, cfg.Archive.CompressExtensions)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			f := BindFlags(fs).BindExport().BindArchive()
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("parse: %v", err)
			}

			cfg := Default()
			f.apply(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestFlagsParseInterspersed(t *testing.T) {
	fs := flag.NewFlagSet("model", flag.ContinueOnError)
	f := BindFlags(fs).BindExport()

	args, err := f.Parse([]string{"hero.gltf", "-no-anim", "hero.gxmd", "--debug"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if want := []string{"hero.gltf", "hero.gxmd"}; !reflect.DeepEqual(args, want) {
		t.Errorf("positional = %v, want %v", args, want)
	}

	cfg := Default()
	f.apply(cfg)
	if !cfg.Export.ExcludeAnimations || cfg.Logging.Level != "debug" {
		t.Errorf("flags after positional args were not applied: %+v", cfg)
	}

	// "--" ends flag parsing.
	args, err = f.Parse([]string{"--", "-odd-name.obj"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if want := []string{"-odd-name.obj"}; !reflect.DeepEqual(args, want) {
		t.Errorf("positional = %v, want %v", args, want)
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "custom.yaml")

	yamlContent := `
export:
  max_influences: 2
archive:
  min_compress_size: 512
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := BindFlags(fs).BindArchive()
	if err := fs.Parse([]string{"-config", configPath, "-min-size", "2048"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Min size from flag, not file.
	if cfg.Archive.MinCompressSize != 2048 {
		t.Errorf("expected min size 2048 from flag, got %d", cfg.Archive.MinCompressSize)
	}
	// Influences from file since no flag overrides them.
	if cfg.Export.MaxInfluences != 2 {
		t.Errorf("expected max influences 2 from file, got %d", cfg.Export.MaxInfluences)
	}
}

func TestLoadNormalizesExtensions(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "ext.yaml")
	yamlContent := "archive:\n  compress_extensions: [gxmd, \".GXAN\", \"\"]\n"
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := BindFlags(fs)
	if err := fs.Parse([]string{"-config", configPath}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	want := []string{".gxmd", ".gxan"}
	if !reflect.DeepEqual(cfg.Archive.CompressExtensions, want) {
		t.Errorf("extensions = %q, want %q", cfg.Archive.CompressExtensions, want)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(configPath, []byte("export:\n  max_influences: 9\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := BindFlags(fs)
	if err := fs.Parse([]string{"-config", configPath}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	if _, err := Load(f); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	cfg := Default()
	cfg.Archive.CompressExtensions = []string{".gxmd"}
	cfg.Export.MaxInfluences = 3
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reflect.DeepEqual(cfg, loaded) {
		t.Errorf("reloaded config differs:\n got %+v\nwant %+v", loaded, cfg)
	}
}
