package config

import (
	"flag"
	"strings"

	"github.com/mynameisGaku/GXLib-sub003/pkg/gxpak"
)

// Flags holds command-line overrides bound to a flag set. Only flags the
// user actually passed override file values.
type Flags struct {
	fs *flag.FlagSet

	configPath string
	debug      bool
	logFile    string

	force16    bool
	noAnim     bool
	noTangents bool
	flipUV     bool
	encoding   string

	compress   bool
	minSize    int
	extensions string
}

// BindFlags registers the shared --config, --debug and --log flags on fs.
func BindFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.configPath, "config", "", "Path to config file")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.logFile, "log", "", "Write logs to this file")
	return f
}

// BindExport registers model export overrides on the flag set.
func (f *Flags) BindExport() *Flags {
	f.fs.BoolVar(&f.force16, "force16", true, "Use 16-bit indices when a mesh fits")
	f.fs.BoolVar(&f.noAnim, "no-anim", false, "Do not embed animations")
	f.fs.BoolVar(&f.noTangents, "no-tangents", false, "Do not synthesize missing tangents")
	f.fs.BoolVar(&f.flipUV, "flip-uv", false, "Flip the V texture coordinate on import")
	f.fs.StringVar(&f.encoding, "encoding", "", "Text encoding of OBJ/MTL sources (default utf-8)")
	return f
}

// BindArchive registers archive packing overrides on the flag set.
func (f *Flags) BindArchive() *Flags {
	f.fs.BoolVar(&f.compress, "compress", true, "Compress entries with LZ4")
	f.fs.IntVar(&f.minSize, "min-size", 0, "Skip compression for entries smaller than this")
	f.fs.StringVar(&f.extensions, "ext", "", "Comma-separated extensions to compress (default all)")
	return f
}

// Parse parses args, allowing flags before, between and after positional
// arguments, and returns the positional arguments in order.
func (f *Flags) Parse(args []string) ([]string, error) {
	var positional []string
	for {
		if err := f.fs.Parse(args); err != nil {
			return nil, err
		}
		args = f.fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// ConfigPath returns the explicit config path if provided via --config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return f.configPath
}

// apply applies the flags the user set to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil || f.fs == nil {
		return
	}
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "debug":
			if f.debug {
				cfg.Logging.Level = "debug"
			}
		case "log":
			cfg.Logging.LogFile = f.logFile
		case "force16":
			cfg.Export.Force16BitIndices = f.force16
		case "no-anim":
			cfg.Export.ExcludeAnimations = f.noAnim
		case "no-tangents":
			cfg.Export.GenerateTangents = !f.noTangents
		case "flip-uv":
			cfg.Import.FlipUV = f.flipUV
		case "encoding":
			cfg.Import.Encoding = f.encoding
		case "compress":
			cfg.Archive.Compress = f.compress
		case "min-size":
			cfg.Archive.MinCompressSize = f.minSize
		case "ext":
			cfg.Archive.CompressExtensions = splitExtensions(f.extensions)
		}
	})
}

func splitExtensions(s string) []string {
	return normalizeExtensions(strings.Split(s, ","))
}

// normalizeExtensions lowercases every extension, adds the leading dot and
// drops empty items.
func normalizeExtensions(in []string) []string {
	var exts []string
	for _, e := range in {
		if e = gxpak.NormalizeExtension(e); e != "" {
			exts = append(exts, e)
		}
	}
	return exts
}
