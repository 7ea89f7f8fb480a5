package formats

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mynameisGaku/GXLib-sub003/internal/fsutil"
	"github.com/mynameisGaku/GXLib-sub003/pkg/scene"
)

// GXAN format errors.
var (
	ErrInvalidGXANMagic       = errors.New("invalid GXAN magic: expected 'GXAN'")
	ErrUnsupportedGXANVersion = errors.New("unsupported GXAN version")
	ErrTruncatedGXANData      = errors.New("truncated GXAN data")
	ErrNoAnimations           = errors.New("scene has no animations")
)

// GXANVersion is the version written by ExportGXAN.
const GXANVersion = 1

// GXANMagic identifies a GXAN file.
var GXANMagic = [4]byte{'G', 'X', 'A', 'N'}

// GXANHeader is the fixed 48-byte header at the start of a GXAN file.
type GXANHeader struct {
	Magic        [4]byte
	Version      uint32
	Duration     float32
	ChannelCount uint32
	NameOffset   uint32
	Reserved     uint32
	StringTable  Section
	Channels     Section
	KeyData      Section
}

// ExportGXAN writes the scene's first animation as a standalone GXAN
// container. Channels are keyed by bone name.
func ExportGXAN(w io.Writer, s *scene.Scene) error {
	if len(s.Animations) == 0 {
		return ErrNoAnimations
	}
	return ExportGXANClip(w, s, &s.Animations[0])
}

// ExportGXANClip writes one animation of s. Channels addressed by joint
// index are resolved to names through s's skeleton.
func ExportGXANClip(w io.Writer, s *scene.Scene, a *scene.Animation) error {
	strs := NewStringTableBuilder()
	nameOfs := strs.Add(a.Name)

	refs := make([]uint32, len(a.Channels))
	for ci := range a.Channels {
		ch := &a.Channels[ci]
		if err := ch.CheckKeys(); err != nil {
			return fmt.Errorf("animation %q channel %d: %w", a.Name, ci, err)
		}
		name := s.ResolveJointName(ch)
		if name == "" {
			return fmt.Errorf("animation %q channel %d: %w: index %d", a.Name, ci, ErrUnresolvedChannel, ch.JointIndex)
		}
		refs[ci] = strs.Add(name)
	}
	descs, keys := encodeChannels(a.Channels, refs)

	h := GXANHeader{
		Magic:        GXANMagic,
		Version:      GXANVersion,
		Duration:     a.Duration,
		ChannelCount: uint32(len(descs)),
		NameOffset:   nameOfs,
	}

	var body bytes.Buffer
	place := func(sec *Section, write func(*bytes.Buffer)) {
		start := body.Len()
		write(&body)
		*sec = Section{Offset: uint32(gxanHeaderSize + start), Size: uint32(body.Len() - start)}
		pad(&body)
	}
	place(&h.StringTable, func(b *bytes.Buffer) { b.Write(strs.Bytes()) })
	place(&h.Channels, func(b *bytes.Buffer) { putLE(b, descs) })
	place(&h.KeyData, func(b *bytes.Buffer) { b.Write(keys) })

	var out bytes.Buffer
	putLE(&out, h)
	out.Write(body.Bytes())
	if _, err := w.Write(out.Bytes()); err != nil {
		return fmt.Errorf("writing GXAN: %w", err)
	}
	return nil
}

// ExportGXANFile writes the scene's first animation to path atomically.
func ExportGXANFile(path string, s *scene.Scene) error {
	if len(s.Animations) == 0 {
		return ErrNoAnimations
	}
	return fsutil.WriteFileAtomic(path, func(w io.Writer) error {
		return ExportGXAN(w, s)
	})
}

// ReadGXANHeader decodes and checks the fixed header at the start of data.
func ReadGXANHeader(data []byte) (GXANHeader, error) {
	var h GXANHeader
	if len(data) < gxanHeaderSize {
		return h, fmt.Errorf("%w: need %d header bytes, got %d", ErrTruncatedGXANData, gxanHeaderSize, len(data))
	}
	if err := readLE(data[:gxanHeaderSize], &h); err != nil {
		return h, fmt.Errorf("reading header: %w", err)
	}
	if h.Magic != GXANMagic {
		return h, ErrInvalidGXANMagic
	}
	if h.Version != GXANVersion {
		return h, fmt.Errorf("%w: %d", ErrUnsupportedGXANVersion, h.Version)
	}
	return h, nil
}

// ParseGXAN parses GXAN data. Channels carry bone names only; call
// Retarget to bind them to a skeleton.
func ParseGXAN(data []byte) (*Animation, error) {
	h, err := ReadGXANHeader(data)
	if err != nil {
		return nil, err
	}

	strData, err := h.StringTable.slice(data, "string table")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedGXANData, err)
	}
	descRaw, err := h.Channels.slice(data, "channel")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedGXANData, err)
	}
	if uint64(len(descRaw)) < uint64(h.ChannelCount)*channelDescSize {
		return nil, fmt.Errorf("%w: %d channels need %d bytes, section holds %d",
			ErrTruncatedGXANData, h.ChannelCount, uint64(h.ChannelCount)*channelDescSize, len(descRaw))
	}
	keyData, err := h.KeyData.slice(data, "key data")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedGXANData, err)
	}

	strs := NewStringTable(strData)
	name, err := strs.Lookup(h.NameOffset)
	if err != nil {
		return nil, fmt.Errorf("animation name: %w", err)
	}

	descs := make([]channelDesc, h.ChannelCount)
	if err := readLE(descRaw, descs); err != nil {
		return nil, fmt.Errorf("reading channels: %w", err)
	}

	anim := &Animation{Name: name, Duration: h.Duration, Channels: make([]AnimationChannel, len(descs))}
	for ci, d := range descs {
		bone, err := strs.Lookup(d.Ref)
		if err != nil {
			return nil, fmt.Errorf("channel %d bone name: %w", ci, err)
		}
		ch, err := decodeChannel(d, keyData)
		if err != nil {
			return nil, fmt.Errorf("channel %d (%s): %w", ci, bone, err)
		}
		ch.BoneName = bone
		anim.Channels[ci] = ch
	}
	return anim, nil
}

// ParseGXANFile parses a GXAN file from disk.
func ParseGXANFile(path string) (*Animation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading GXAN file: %w", err)
	}
	return ParseGXAN(data)
}
