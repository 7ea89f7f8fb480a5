package gxpak

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"

	"github.com/mynameisGaku/GXLib-sub003/internal/fsutil"
)

// BuilderOptions controls entry compression.
type BuilderOptions struct {
	// Compress enables LZ4 compression. An entry is stored compressed only
	// when that makes it smaller.
	Compress bool
	// MinCompressSize skips compression for entries smaller than this.
	MinCompressSize int
	// CompressExtensions restricts compression to these extensions
	// (".gxmd", ...). Empty means every extension.
	CompressExtensions []string
}

type pendingEntry struct {
	path      string
	assetType AssetType
	data      []byte
}

// Builder accumulates entries in memory and writes them as one archive.
// Entries are written in the order they were added.
type Builder struct {
	opts    BuilderOptions
	entries []pendingEntry
	paths   map[string]struct{}
}

// NewBuilder returns an empty builder.
func NewBuilder(opts BuilderOptions) *Builder {
	return &Builder{opts: opts, paths: make(map[string]struct{})}
}

// Len returns the number of entries added so far.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Add queues data under path. The asset type is derived from the extension.
func (b *Builder) Add(path string, data []byte) error {
	p, err := NormalizePath(path)
	if err != nil {
		return err
	}
	return b.AddWithType(p, AssetTypeForPath(p), data)
}

// AddWithType queues data under path with an explicit asset type.
func (b *Builder) AddWithType(path string, t AssetType, data []byte) error {
	p, err := NormalizePath(path)
	if err != nil {
		return err
	}
	if _, dup := b.paths[p]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, p)
	}
	if uint64(len(data)) > maxPayloadSize {
		return fmt.Errorf("%w: %s", ErrEntryTooLarge, p)
	}
	b.paths[p] = struct{}{}
	b.entries = append(b.entries, pendingEntry{path: p, assetType: t, data: data})
	return nil
}

// AddFile reads a file from disk and queues it under path.
func (b *Builder) AddFile(path, diskPath string) error {
	data, err := os.ReadFile(diskPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", diskPath, err)
	}
	return b.Add(path, data)
}

// AddDir queues every regular file under dir, named by its path relative to
// dir. Files are visited in lexical order so the output is reproducible.
func (b *Builder) AddDir(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		return b.AddFile(filepath.ToSlash(rel), p)
	})
}

// WriteTo writes the archive. Payloads go first, then the TOC; the header is
// patched last once the TOC offset is known.
func (b *Builder) WriteTo(w io.WriteSeeker) ([]Entry, error) {
	start, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("locating archive start: %w", err)
	}
	if _, err := w.Write(make([]byte, headerSize)); err != nil {
		return nil, fmt.Errorf("reserving header: %w", err)
	}

	cursor := uint64(headerSize)
	entries := make([]Entry, 0, len(b.entries))
	for _, pe := range b.entries {
		payload, compressed, err := b.encode(pe)
		if err != nil {
			return nil, fmt.Errorf("compressing %s: %w", pe.path, err)
		}
		if _, err := w.Write(payload); err != nil {
			return nil, fmt.Errorf("writing %s: %w", pe.path, err)
		}
		entries = append(entries, Entry{
			Path:           pe.path,
			Type:           pe.assetType,
			Compressed:     compressed,
			Offset:         cursor,
			CompressedSize: uint32(len(payload)),
			OriginalSize:   uint32(len(pe.data)),
		})
		cursor += uint64(len(payload))
	}

	if _, err := w.Write(encodeTOC(entries)); err != nil {
		return nil, fmt.Errorf("writing TOC: %w", err)
	}
	end, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	h := Header{Magic: Magic, Version: Version, EntryCount: uint32(len(entries)), TOCOffset: cursor}
	if _, err := w.Seek(start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking to header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	if _, err := w.Seek(end, io.SeekStart); err != nil {
		return nil, err
	}
	return entries, nil
}

// WriteFile writes the archive to path through a temporary file, so a failed
// pack never leaves a partial archive behind.
func (b *Builder) WriteFile(path string) ([]Entry, error) {
	var entries []Entry
	err := fsutil.WriteSeekerAtomic(path, func(w io.WriteSeeker) error {
		var err error
		entries, err = b.WriteTo(w)
		return err
	})
	return entries, err
}

func (b *Builder) shouldCompress(pe pendingEntry) bool {
	if !b.opts.Compress || len(pe.data) == 0 || len(pe.data) < b.opts.MinCompressSize {
		return false
	}
	if len(b.opts.CompressExtensions) == 0 {
		return true
	}
	ext := NormalizeExtension(filepath.Ext(pe.path))
	for _, e := range b.opts.CompressExtensions {
		if NormalizeExtension(e) == ext {
			return true
		}
	}
	return false
}

func (b *Builder) encode(pe pendingEntry) ([]byte, bool, error) {
	if !b.shouldCompress(pe) {
		return pe.data, false, nil
	}
	packed, err := compress(pe.data)
	if err != nil {
		return nil, false, err
	}
	if len(packed) >= len(pe.data) {
		return pe.data, false, nil
	}
	return packed, true, nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeTOC(entries []Entry) []byte {
	size := 0
	for _, e := range entries {
		size += tocFixedSize + len(e.Path)
	}
	buf := make([]byte, 0, size)
	for _, e := range entries {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(e.Path)))
		buf = append(buf, e.Path...)
		buf = append(buf, byte(e.Type))
		if e.Compressed {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		buf = binary.LittleEndian.AppendUint16(buf, 0)
		buf = binary.LittleEndian.AppendUint64(buf, e.Offset)
		buf = binary.LittleEndian.AppendUint32(buf, e.CompressedSize)
		buf = binary.LittleEndian.AppendUint32(buf, e.OriginalSize)
	}
	return buf
}
