// Package importer turns source asset files into a scene.Scene. Importers
// only translate; normalization and export happen downstream.
package importer

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mynameisGaku/GXLib-sub003/pkg/scene"
)

// ErrUnsupportedFormat is returned by ForPath for unknown extensions.
var ErrUnsupportedFormat = errors.New("unsupported source format")

// Importer loads one source file into a scene.
type Importer interface {
	Import(path string) (*scene.Scene, error)
}

// Options are shared by all importers.
type Options struct {
	// FlipUV converts V from a bottom-left origin to the top-left origin
	// used by the runtime (v' = 1 - v).
	FlipUV bool
	// Encoding names the text encoding of OBJ and MTL files (see
	// encoding.Names). Empty means UTF-8. glTF is always UTF-8.
	Encoding string
}

type factory func(Options) Importer

var registry = map[string]factory{
	".gltf": func(o Options) Importer { return &GLTF{Options: o} },
	".glb":  func(o Options) Importer { return &GLTF{Options: o} },
	".obj":  func(o Options) Importer { return &OBJ{Options: o} },
}

// ForPath selects an importer by the file extension of path.
func ForPath(path string, opts Options) (Importer, error) {
	ext := strings.ToLower(filepath.Ext(path))
	f, ok := registry[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return f(opts), nil
}

// Import is shorthand for ForPath followed by Import.
func Import(path string, opts Options) (*scene.Scene, error) {
	imp, err := ForPath(path, opts)
	if err != nil {
		return nil, err
	}
	return imp.Import(path)
}

// Extensions lists the supported source extensions.
func Extensions() []string {
	out := make([]string, 0, len(registry))
	for ext := range registry {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func flipV(uv [2]float32, flip bool) [2]float32 {
	if flip {
		uv[1] = 1 - uv[1]
	}
	return uv
}
