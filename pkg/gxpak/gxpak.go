// Package gxpak reads and writes GXPAK archives: concatenated entry
// payloads followed by a table of contents, with the TOC offset recorded in
// a fixed header at the start of the file.
//
// Layout (little-endian):
//
//	header   "GXPK" | u32 version | u32 entryCount | u32 reserved | u64 tocOffset
//	payloads entry bytes, LZ4 frames for compressed entries
//	TOC      per entry: u16 pathLen | path | u8 type | u8 compressed | u16 reserved |
//	         u64 dataOffset | u32 compressedSize | u32 originalSize
package gxpak

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Version is the archive version written by Builder.
const Version = 1

const (
	headerSize     = 24
	tocFixedSize   = 2 + 1 + 1 + 2 + 8 + 4 + 4
	maxPathLength  = 0xFFFF
	maxPayloadSize = 0xFFFFFFFF
)

// Magic identifies a GXPAK file.
var Magic = [4]byte{'G', 'X', 'P', 'K'}

// Archive errors.
var (
	ErrInvalidPakMagic       = errors.New("invalid GXPAK magic: expected 'GXPK'")
	ErrUnsupportedPakVersion = errors.New("unsupported GXPAK version")
	ErrTruncatedTOC          = errors.New("truncated GXPAK table of contents")
	ErrEntryNotFound         = errors.New("entry not found")
	ErrCorruptEntry          = errors.New("corrupt entry payload")
	ErrInvalidPath           = errors.New("invalid entry path")
	ErrDuplicateEntry        = errors.New("duplicate entry path")
	ErrEntryTooLarge         = errors.New("entry exceeds 4 GiB")
)

// Header is the fixed 24-byte archive header.
type Header struct {
	Magic      [4]byte
	Version    uint32
	EntryCount uint32
	Reserved   uint32
	TOCOffset  uint64
}

// AssetType tags an entry with the kind of asset it holds.
type AssetType uint8

const (
	AssetData      AssetType = 0
	AssetModel     AssetType = 1
	AssetAnimation AssetType = 2
	AssetTexture   AssetType = 3
	AssetShader    AssetType = 4
	AssetAudio     AssetType = 5
)

// String returns a human-readable asset type name.
func (t AssetType) String() string {
	switch t {
	case AssetData:
		return "Data"
	case AssetModel:
		return "Model"
	case AssetAnimation:
		return "Animation"
	case AssetTexture:
		return "Texture"
	case AssetShader:
		return "Shader"
	case AssetAudio:
		return "Audio"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// ParseAssetType parses a type name as printed by String (case-insensitive).
func ParseAssetType(s string) (AssetType, bool) {
	for t := AssetData; t <= AssetAudio; t++ {
		if strings.EqualFold(t.String(), s) {
			return t, true
		}
	}
	return AssetData, false
}

var extTypes = map[string]AssetType{
	".gxmd":  AssetModel,
	".gxan":  AssetAnimation,
	".png":   AssetTexture,
	".jpg":   AssetTexture,
	".jpeg":  AssetTexture,
	".tga":   AssetTexture,
	".bmp":   AssetTexture,
	".dds":   AssetTexture,
	".hdr":   AssetTexture,
	".hlsl":  AssetShader,
	".hlsli": AssetShader,
	".glsl":  AssetShader,
	".cso":   AssetShader,
	".wav":   AssetAudio,
	".ogg":   AssetAudio,
	".mp3":   AssetAudio,
}

// AssetTypeForPath derives an entry's asset type from its extension.
func AssetTypeForPath(p string) AssetType {
	if t, ok := extTypes[strings.ToLower(path.Ext(p))]; ok {
		return t
	}
	return AssetData
}

// NormalizeExtension lowercases e and adds the leading dot, so "GXMD",
// "gxmd" and ".gxmd" compare equal.
func NormalizeExtension(e string) string {
	e = strings.ToLower(strings.TrimSpace(e))
	if e != "" && !strings.HasPrefix(e, ".") {
		e = "." + e
	}
	return e
}

// Entry describes one archived file.
type Entry struct {
	Path           string
	Type           AssetType
	Compressed     bool
	Offset         uint64
	CompressedSize uint32
	OriginalSize   uint32
}

// Ratio returns the stored size as a fraction of the original size.
func (e Entry) Ratio() float64 {
	if e.OriginalSize == 0 {
		return 1
	}
	return float64(e.CompressedSize) / float64(e.OriginalSize)
}

// NormalizePath converts p to the form stored in the TOC: forward slashes,
// no leading "./" or "/", cleaned, and Unicode NFC.
func NormalizePath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	p = norm.NFC.String(p)
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	if len(p) > maxPathLength {
		return "", fmt.Errorf("%w: %d bytes", ErrInvalidPath, len(p))
	}
	return p, nil
}
