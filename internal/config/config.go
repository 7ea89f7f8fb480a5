// Package config handles asset pipeline configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/mynameisGaku/GXLib-sub003/internal/logger"
	"github.com/mynameisGaku/GXLib-sub003/pkg/encoding"
	"github.com/mynameisGaku/GXLib-sub003/pkg/scene"
)

// ErrInvalidConfig is returned by Validate for out-of-range settings.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all pipeline settings.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	Archive ArchiveConfig `yaml:"archive"`
	Import  ImportConfig  `yaml:"import"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExportConfig holds model and animation export settings.
type ExportConfig struct {
	Force16BitIndices bool `yaml:"force_16bit_indices"`
	ExcludeAnimations bool `yaml:"exclude_animations"`
	GenerateTangents  bool `yaml:"generate_tangents"`
	MaxInfluences     int  `yaml:"max_influences"`
}

// ArchiveConfig holds GXPAK packing settings.
type ArchiveConfig struct {
	Compress           bool     `yaml:"compress"`
	MinCompressSize    int      `yaml:"min_compress_size"`
	CompressExtensions []string `yaml:"compress_extensions"`
}

// ImportConfig holds source importer settings.
type ImportConfig struct {
	FlipUV   bool   `yaml:"flip_uv"`
	Encoding string `yaml:"encoding"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			Force16BitIndices: true,
			ExcludeAnimations: false,
			GenerateTangents:  true,
			MaxInfluences:     scene.MaxInfluences,
		},
		Archive: ArchiveConfig{
			Compress:        true,
			MinCompressSize: 64,
		},
		Import: ImportConfig{
			FlipUV: false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports settings that the pipeline cannot honor.
func (c *Config) Validate() error {
	if c.Export.MaxInfluences < 1 || c.Export.MaxInfluences > scene.MaxInfluences {
		return fmt.Errorf("%w: export.max_influences %d not in 1..%d",
			ErrInvalidConfig, c.Export.MaxInfluences, scene.MaxInfluences)
	}
	if c.Archive.MinCompressSize < 0 {
		return fmt.Errorf("%w: archive.min_compress_size %d is negative", ErrInvalidConfig, c.Archive.MinCompressSize)
	}
	if _, err := encoding.Lookup(c.Import.Encoding); err != nil {
		return fmt.Errorf("%w: import.encoding: %v", ErrInvalidConfig, err)
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", ErrInvalidConfig, err)
	}
	return nil
}
