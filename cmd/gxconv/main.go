// gxconv converts source models and animations into GXMD and GXAN files.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mynameisGaku/GXLib-sub003/internal/config"
	"github.com/mynameisGaku/GXLib-sub003/internal/inspect"
	"github.com/mynameisGaku/GXLib-sub003/internal/logger"
	"github.com/mynameisGaku/GXLib-sub003/internal/pipeline"
	"github.com/mynameisGaku/GXLib-sub003/pkg/importer"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "model":
		cmdModel(args)
	case "anim", "animation":
		cmdAnim(args)
	case "info":
		cmdInfo(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`gxconv - GXLib model and animation converter

Usage:
  gxconv <command> [options]

Commands:
  model <src> [dst.gxmd]           Convert a source model to GXMD
  anim <src> [dst.gxan]            Export one animation clip to GXAN
  info <file>...                   Dump GXMD, GXAN or GXPAK files

Source formats: %s

Common options:
  --config <file>   Config file (default ./gxlib.yaml)
  --debug           Enable debug logging
  --log <file>      Also write logs to file

Model options:
  -force16=false    Always write 32-bit indices
  -no-anim          Do not embed animations
  -no-tangents      Do not synthesize missing tangents
  -flip-uv          Flip the V texture coordinate

Anim options:
  -clip <name>      Clip to export (default: first)

Examples:
  gxconv model hero.gltf hero.gxmd -no-anim
  gxconv anim hero.gltf run.gxan -clip run
  gxconv info hero.gxmd
`, strings.Join(importer.Extensions(), " "))
}

// setup parses flags, loads the config and initializes logging. It returns
// the positional arguments and exits on error.
func setup(fs *flag.FlagSet, f *config.Flags, args []string) (*config.Config, []string) {
	positional, err := f.Parse(args)
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(f)
	if err != nil {
		fail(err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fail(err)
	}
	logger.Debug("loaded config",
		zap.String("command", fs.Name()),
		zap.String("config", f.ConfigPath()))
	return cfg, positional
}

func fail(err error) {
	logger.Sync()
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// outputPath returns args[1] if given, otherwise src with its extension
// replaced by ext.
func outputPath(args []string, ext string) string {
	if len(args) > 1 {
		return args[1]
	}
	src := args[0]
	return strings.TrimSuffix(src, filepath.Ext(src)) + ext
}

func cmdModel(args []string) {
	fs := flag.NewFlagSet("model", flag.ExitOnError)
	f := config.BindFlags(fs).BindExport()
	cfg, args := setup(fs, f, args)
	defer logger.Sync()

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: gxconv model <src> [dst.gxmd] [-force16] [-no-anim]")
		os.Exit(1)
	}

	dst := outputPath(args, ".gxmd")
	res, err := pipeline.New(cfg, logger.Log).ConvertModel(args[0], dst)
	if err != nil {
		fail(err)
	}

	fmt.Printf("Wrote %s\n", dst)
	fmt.Printf("  meshes:     %d\n", res.Meshes)
	fmt.Printf("  materials:  %d\n", res.Materials)
	fmt.Printf("  vertices:   %d\n", res.Vertices)
	fmt.Printf("  triangles:  %d\n", res.Triangles)
	fmt.Printf("  joints:     %d\n", res.Joints)
	fmt.Printf("  animations: %d\n", res.Animations)
}

func cmdAnim(args []string) {
	fs := flag.NewFlagSet("anim", flag.ExitOnError)
	f := config.BindFlags(fs)
	clip := fs.String("clip", "", "Animation clip to export (default: first)")
	cfg, args := setup(fs, f, args)
	defer logger.Sync()

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: gxconv anim <src> [dst.gxan] [-clip name]")
		os.Exit(1)
	}

	dst := outputPath(args, ".gxan")
	if err := pipeline.New(cfg, logger.Log).ConvertAnimation(args[0], dst, *clip); err != nil {
		fail(err)
	}
	fmt.Printf("Wrote %s\n", dst)
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	f := config.BindFlags(fs)
	_, args = setup(fs, f, args)
	defer logger.Sync()

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: gxconv info <file>...")
		os.Exit(1)
	}

	for i, path := range args {
		if i > 0 {
			fmt.Println()
		}
		if err := inspect.File(os.Stdout, path); err != nil {
			fail(err)
		}
	}
}
