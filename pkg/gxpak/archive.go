package gxpak

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
	"go.uber.org/multierr"

	"github.com/mynameisGaku/GXLib-sub003/internal/fsutil"
)

// Archive is an opened GXPAK archive. The TOC is held in memory; payloads
// are read on demand.
type Archive struct {
	r       io.ReaderAt
	closer  io.Closer
	size    int64
	header  Header
	entries []Entry
}

// Open opens a GXPAK archive for reading.
func Open(path string) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("stat: %w", err), file.Close())
	}

	a, err := OpenReader(file, info.Size())
	if err != nil {
		return nil, multierr.Append(err, file.Close())
	}
	a.closer = file
	return a, nil
}

// OpenReader reads the header and TOC of an archive of the given size.
func OpenReader(r io.ReaderAt, size int64) (*Archive, error) {
	a := &Archive{r: r, size: size}
	if err := a.readHeader(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if err := a.readTOC(); err != nil {
		return nil, fmt.Errorf("reading TOC: %w", err)
	}
	return a, nil
}

// Close releases the underlying file, if the archive owns one.
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// Header returns the archive header.
func (a *Archive) Header() Header {
	return a.header
}

// Size returns the archive size in bytes.
func (a *Archive) Size() int64 {
	return a.size
}

func (a *Archive) readHeader() error {
	if a.size < headerSize {
		return fmt.Errorf("%w: %d bytes", ErrTruncatedTOC, a.size)
	}
	sr := io.NewSectionReader(a.r, 0, headerSize)
	if err := binary.Read(sr, binary.LittleEndian, &a.header); err != nil {
		return err
	}
	if a.header.Magic != Magic {
		return ErrInvalidPakMagic
	}
	if a.header.Version != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedPakVersion, a.header.Version)
	}
	if a.header.TOCOffset < headerSize || a.header.TOCOffset > uint64(a.size) {
		return fmt.Errorf("%w: offset %d outside %d-byte archive", ErrTruncatedTOC, a.header.TOCOffset, a.size)
	}
	return nil
}

func (a *Archive) readTOC() error {
	toc := make([]byte, uint64(a.size)-a.header.TOCOffset)
	if _, err := a.r.ReadAt(toc, int64(a.header.TOCOffset)); err != nil && err != io.EOF {
		return err
	}

	if uint64(a.header.EntryCount)*tocFixedSize > uint64(len(toc)) {
		return fmt.Errorf("%w: %d entries cannot fit in %d bytes", ErrTruncatedTOC, a.header.EntryCount, len(toc))
	}

	a.entries = make([]Entry, 0, a.header.EntryCount)
	pos := 0
	for i := uint32(0); i < a.header.EntryCount; i++ {
		if len(toc)-pos < 2 {
			return fmt.Errorf("%w: entry %d", ErrTruncatedTOC, i)
		}
		pathLen := int(binary.LittleEndian.Uint16(toc[pos:]))
		pos += 2
		if len(toc)-pos < pathLen+tocFixedSize-2 {
			return fmt.Errorf("%w: entry %d", ErrTruncatedTOC, i)
		}
		e := Entry{Path: string(toc[pos : pos+pathLen])}
		pos += pathLen
		e.Type = AssetType(toc[pos])
		e.Compressed = toc[pos+1] != 0
		e.Offset = binary.LittleEndian.Uint64(toc[pos+4:])
		e.CompressedSize = binary.LittleEndian.Uint32(toc[pos+12:])
		e.OriginalSize = binary.LittleEndian.Uint32(toc[pos+16:])
		pos += tocFixedSize - 2

		if e.Offset+uint64(e.CompressedSize) > a.header.TOCOffset {
			return fmt.Errorf("%w: entry %s payload overlaps the TOC", ErrCorruptEntry, e.Path)
		}
		a.entries = append(a.entries, e)
	}
	return nil
}

// Entries returns a copy of the TOC in archive order.
func (a *Archive) Entries() []Entry {
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// List returns every entry path in archive order.
func (a *Archive) List() []string {
	result := make([]string, len(a.entries))
	for i := range a.entries {
		result[i] = a.entries[i].Path
	}
	return result
}

// Entry looks up an entry by path.
func (a *Archive) Entry(path string) (Entry, bool) {
	p, err := NormalizePath(path)
	if err != nil {
		return Entry{}, false
	}
	for i := range a.entries {
		if a.entries[i].Path == p {
			return a.entries[i], true
		}
	}
	return Entry{}, false
}

// Contains checks if an entry exists.
func (a *Archive) Contains(path string) bool {
	_, ok := a.Entry(path)
	return ok
}

// GetEntriesByType returns the entries tagged with t, in archive order.
func (a *Archive) GetEntriesByType(t AssetType) []Entry {
	var out []Entry
	for i := range a.entries {
		if a.entries[i].Type == t {
			out = append(out, a.entries[i])
		}
	}
	return out
}

// Read returns the decompressed payload of an entry.
func (a *Archive) Read(path string) ([]byte, error) {
	e, ok := a.Entry(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, path)
	}
	return a.ReadEntry(e)
}

// ReadEntry returns the decompressed payload of e.
func (a *Archive) ReadEntry(e Entry) ([]byte, error) {
	raw, err := a.ReadRaw(e)
	if err != nil {
		return nil, err
	}
	if !e.Compressed {
		return raw, nil
	}
	return decompress(raw, e)
}

// ReadRaw returns an entry's stored bytes without decompressing them.
func (a *Archive) ReadRaw(e Entry) ([]byte, error) {
	raw := make([]byte, e.CompressedSize)
	if len(raw) == 0 {
		return raw, nil
	}
	if _, err := a.r.ReadAt(raw, int64(e.Offset)); err != nil {
		return nil, fmt.Errorf("reading %s: %w", e.Path, err)
	}
	return raw, nil
}

// maxLZ4Ratio bounds how far an LZ4 stream can expand: one token byte plus
// 255-step length bytes encodes at most 255 output bytes per input byte.
const maxLZ4Ratio = 255

func decompress(raw []byte, e Entry) ([]byte, error) {
	if uint64(e.OriginalSize) > uint64(len(raw))*maxLZ4Ratio {
		return nil, fmt.Errorf("%w: %s: %d bytes cannot expand to %d", ErrCorruptEntry, e.Path, len(raw), e.OriginalSize)
	}
	out := make([]byte, e.OriginalSize)
	zr := lz4.NewReader(bytes.NewReader(raw))
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptEntry, e.Path, err)
	}
	if n, err := zr.Read(make([]byte, 1)); n != 0 || (err != nil && err != io.EOF) {
		return nil, fmt.Errorf("%w: %s: size mismatch", ErrCorruptEntry, e.Path)
	}
	return out, nil
}

// Extract writes every entry below dir, recreating the archive's directory
// structure.
func (a *Archive) Extract(dir string) error {
	for _, e := range a.entries {
		if err := a.ExtractEntry(e, dir); err != nil {
			return err
		}
	}
	return nil
}

// ExtractEntry writes a single entry below dir.
func (a *Archive) ExtractEntry(e Entry, dir string) error {
	dest, err := safeJoin(dir, e.Path)
	if err != nil {
		return err
	}
	data, err := a.ReadEntry(e)
	if err != nil {
		return err
	}
	if err := fsutil.EnsureDir(filepath.Dir(dest)); err != nil {
		return fmt.Errorf("creating directory for %s: %w", e.Path, err)
	}
	return fsutil.WriteFileAtomic(dest, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// safeJoin resolves an archive path below dir, rejecting paths that would
// escape it.
func safeJoin(dir, entryPath string) (string, error) {
	p, err := NormalizePath(entryPath)
	if err != nil {
		return "", err
	}
	if p != entryPath || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, entryPath)
	}
	return filepath.Join(dir, filepath.FromSlash(p)), nil
}
