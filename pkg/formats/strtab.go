package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// NoString is the string table offset meaning "no string".
const NoString uint32 = 0xFFFFFFFF

// ErrBadStringOffset is returned when a string offset does not point at a
// well-formed table entry.
var ErrBadStringOffset = errors.New("invalid string table offset")

// StringTableBuilder accumulates deduplicated strings. Each entry is stored as
// a u32 length, the UTF-8 bytes and a NUL terminator; a string is referenced
// by the byte offset of its length prefix. Entries keep insertion order.
type StringTableBuilder struct {
	offsets map[string]uint32
	buf     bytes.Buffer
}

// NewStringTableBuilder creates an empty builder.
func NewStringTableBuilder() *StringTableBuilder {
	return &StringTableBuilder{offsets: make(map[string]uint32)}
}

// Add returns the offset of s, appending it on first use. The empty string
// maps to NoString and is never stored.
func (b *StringTableBuilder) Add(s string) uint32 {
	if s == "" {
		return NoString
	}
	if off, ok := b.offsets[s]; ok {
		return off
	}
	off := uint32(b.buf.Len())
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	b.buf.Write(lenBuf[:])
	b.buf.WriteString(s)
	b.buf.WriteByte(0)
	b.offsets[s] = off
	return off
}

// Count returns the number of unique strings.
func (b *StringTableBuilder) Count() int {
	return len(b.offsets)
}

// Bytes returns the encoded table.
func (b *StringTableBuilder) Bytes() []byte {
	return b.buf.Bytes()
}

// StringTable resolves offsets in an encoded table.
type StringTable struct {
	data []byte
}

// NewStringTable wraps encoded table bytes.
func NewStringTable(data []byte) StringTable {
	return StringTable{data: data}
}

// Lookup returns the string at off. NoString yields "".
func (t StringTable) Lookup(off uint32) (string, error) {
	if off == NoString {
		return "", nil
	}
	start := uint64(off)
	if start+4 > uint64(len(t.data)) {
		return "", fmt.Errorf("%w: %d", ErrBadStringOffset, off)
	}
	n := uint64(binary.LittleEndian.Uint32(t.data[start:]))
	end := start + 4 + n
	if end >= uint64(len(t.data)) || t.data[end] != 0 {
		return "", fmt.Errorf("%w: %d (length %d)", ErrBadStringOffset, off, n)
	}
	return string(t.data[start+4 : end]), nil
}

// Strings returns every entry in table order.
func (t StringTable) Strings() ([]string, error) {
	var out []string
	for off := 0; off < len(t.data); {
		s, err := t.Lookup(uint32(off))
		if err != nil {
			return out, err
		}
		out = append(out, s)
		off += 4 + len(s) + 1
	}
	return out, nil
}
