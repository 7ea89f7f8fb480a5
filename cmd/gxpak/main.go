// gxpak is a CLI utility for building and inspecting GXPAK asset archives.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mynameisGaku/GXLib-sub003/internal/config"
	"github.com/mynameisGaku/GXLib-sub003/internal/inspect"
	"github.com/mynameisGaku/GXLib-sub003/internal/logger"
	"github.com/mynameisGaku/GXLib-sub003/internal/pipeline"
	"github.com/mynameisGaku/GXLib-sub003/pkg/gxpak"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "pack":
		cmdPack(args)
	case "unpack", "x":
		cmdUnpack(args)
	case "list", "ls":
		cmdList(args)
	case "info":
		cmdInfo(args)
	case "search", "find":
		cmdSearch(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`gxpak - GXPAK asset archive utility

Usage:
  gxpak <command> [options]

Commands:
  pack <dir> <out.gxpak>             Pack every file under dir
  unpack <file.gxpak> <dir> [path]   Extract all files, or one path, to dir
  list <file.gxpak> [pattern]        List entries (optional glob pattern)
  info <file.gxpak>                  Show archive header and entries
  search <file.gxpak> <text>         Search entry paths by substring

Common options:
  --config <file>   Config file (default ./gxlib.yaml)
  --debug           Enable debug logging
  --log <file>      Also write logs to file

Pack options:
  -compress=false   Store entries uncompressed
  -min-size <n>     Skip compression below n bytes
  -ext <list>       Only compress these extensions (e.g. gxmd,gxan)

Examples:
  gxpak pack ./build assets.gxpak
  gxpak list assets.gxpak "*.gxmd"
  gxpak unpack assets.gxpak ./out models/hero.gxmd
  gxpak search assets.gxpak hero`)
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

func openArchive(path string) *gxpak.Archive {
	archive, err := gxpak.Open(path)
	if err != nil {
		fail(err)
	}
	return archive
}

func cmdPack(args []string) {
	fs := flag.NewFlagSet("pack", flag.ExitOnError)
	f := config.BindFlags(fs).BindArchive()
	cfg, args := setup(fs, f, args)
	defer logger.Sync()

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: gxpak pack <dir> <out.gxpak> [-compress] [-min-size n] [-ext list]")
		os.Exit(1)
	}

	entries, err := pipeline.New(cfg, logger.Log).Pack(args[0], args[1])
	if err != nil {
		fail(err)
	}

	var packed, original uint64
	for _, e := range entries {
		packed += uint64(e.CompressedSize)
		original += uint64(e.OriginalSize)
	}
	fmt.Printf("Packed %d files into %s (%d -> %d bytes)\n", len(entries), args[1], original, packed)
}

func cmdUnpack(args []string) {
	fs := flag.NewFlagSet("unpack", flag.ExitOnError)
	f := config.BindFlags(fs)
	cfg, args := setup(fs, f, args)
	defer logger.Sync()

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: gxpak unpack <file.gxpak> <dir> [path]")
		os.Exit(1)
	}

	if len(args) == 2 {
		n, err := pipeline.New(cfg, logger.Log).Unpack(args[0], args[1])
		if err != nil {
			fail(err)
		}
		fmt.Printf("Extracted %d files to %s\n", n, args[1])
		return
	}

	archive := openArchive(args[0])
	defer archive.Close()

	e, ok := archive.Entry(args[2])
	if !ok {
		fmt.Fprintf(os.Stderr, "File not found: %s\n", args[2])
		os.Exit(1)
	}
	if err := archive.ExtractEntry(e, args[1]); err != nil {
		fail(err)
	}
	fmt.Printf("Extracted: %s (%d bytes)\n", filepath.Join(args[1], filepath.FromSlash(e.Path)), e.OriginalSize)
}

func cmdList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	f := config.BindFlags(fs)
	limit := fs.Int("n", 0, "Limit output to N files (0 = all)")
	typeName := fs.String("type", "", "Only list entries of this asset type (model, texture, ...)")
	_, args = setup(fs, f, args)
	defer logger.Sync()

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: gxpak list <file.gxpak> [pattern] [-n N] [-type T]")
		os.Exit(1)
	}

	archive := openArchive(args[0])
	defer archive.Close()

	entries := archive.Entries()
	if *typeName != "" {
		t, ok := gxpak.ParseAssetType(*typeName)
		if !ok {
			fmt.Fprintf(os.Stderr, "Unknown asset type: %s\n", *typeName)
			os.Exit(1)
		}
		entries = archive.GetEntriesByType(t)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	pattern := ""
	if len(args) > 1 {
		pattern = strings.ToLower(args[1])
	}

	count := 0
	for _, e := range entries {
		if pattern != "" {
			matched, _ := filepath.Match(pattern, strings.ToLower(filepath.Base(e.Path)))
			if !matched && !strings.Contains(strings.ToLower(e.Path), pattern) {
				continue
			}
		}
		fmt.Println(e.Path)
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}

	if pattern != "" || *typeName != "" {
		fmt.Fprintf(os.Stderr, "\n(%d files matched)\n", count)
	}
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	f := config.BindFlags(fs)
	_, args = setup(fs, f, args)
	defer logger.Sync()

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: gxpak info <file.gxpak>")
		os.Exit(1)
	}

	archive := openArchive(args[0])
	defer archive.Close()

	fmt.Printf("Archive: %s (%d bytes)\n", args[0], archive.Size())
	if err := inspect.Archive(os.Stdout, archive); err != nil {
		fail(err)
	}
}

func cmdSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	f := config.BindFlags(fs)
	limit := fs.Int("n", 50, "Limit results (0 = all)")
	_, args = setup(fs, f, args)
	defer logger.Sync()

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: gxpak search <file.gxpak> <text>")
		os.Exit(1)
	}

	archive := openArchive(args[0])
	defer archive.Close()

	files := archive.List()
	sort.Strings(files)
	pattern := strings.ToLower(args[1])

	count := 0
	for _, name := range files {
		if strings.Contains(strings.ToLower(name), pattern) {
			fmt.Println(name)
			count++
			if *limit > 0 && count >= *limit {
				fmt.Fprintf(os.Stderr, "\n(showing first %d matches, use -n 0 for all)\n", *limit)
				break
			}
		}
	}

	if count == 0 {
		fmt.Fprintln(os.Stderr, "No files found")
	} else if *limit == 0 || count < *limit {
		fmt.Fprintf(os.Stderr, "\n(%d files found)\n", count)
	}
}
