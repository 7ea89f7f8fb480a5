package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/mynameisGaku/GXLib-sub003/pkg/scene"
	"github.com/mynameisGaku/GXLib-sub003/pkg/shader"
)

// On-disk record sizes in bytes.
const (
	gxmdHeaderSize    = 96
	meshChunkSize     = 64
	materialChunkSize = 8 + shader.BlockSize
	boneRecordSize    = 112
	vertexRecordSize  = 72
	animHeaderSize    = 16
	channelDescSize   = 16
	vectorKeySize     = 16
	quatKeySize       = 20
	gxanHeaderSize    = 48
	sectionAlignment  = 4
)

// IndexFormat is the width of a mesh's index data.
type IndexFormat uint32

const (
	Index16 IndexFormat = 0
	Index32 IndexFormat = 1
)

// String returns a human-readable index format.
func (f IndexFormat) String() string {
	switch f {
	case Index16:
		return "u16"
	case Index32:
		return "u32"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(f))
	}
}

// Size returns the byte width of one index.
func (f IndexFormat) Size() int {
	if f == Index16 {
		return 2
	}
	return 4
}

// Section is an (offset, size) pair recorded in a container header.
type Section struct {
	Offset uint32
	Size   uint32
}

// slice returns the section's bytes, or an error if it exceeds data.
func (s Section) slice(data []byte, name string) ([]byte, error) {
	end := uint64(s.Offset) + uint64(s.Size)
	if end > uint64(len(data)) {
		return nil, fmt.Errorf("%s section [%d, %d) exceeds %d bytes", name, s.Offset, end, len(data))
	}
	return data[s.Offset:end], nil
}

// meshChunk is the 64-byte GXMD mesh record.
type meshChunk struct {
	NameOffset    uint32
	MaterialIndex uint32
	VertexCount   uint32
	IndexCount    uint32
	VertexOffset  uint32
	VertexSize    uint32
	IndexOffset   uint32
	IndexSize     uint32
	IndexFormat   IndexFormat
	Flags         uint32
	BoundsMin     [3]float32
	BoundsMax     [3]float32
}

const meshFlagSkinned uint32 = 1

// materialChunk is the 264-byte GXMD material record.
type materialChunk struct {
	NameOffset  uint32
	ShaderModel shader.Model
	Params      [shader.BlockSize]byte
}

// boneRecord is the 112-byte GXMD bone record.
type boneRecord struct {
	NameOffset  uint32
	Parent      int32
	InverseBind [16]float32
	Translation [3]float32
	Rotation    [4]float32
	Scale       [3]float32
}

// animHeader precedes each animation inside the GXMD animation section.
type animHeader struct {
	NameOffset   uint32
	Duration     float32
	ChannelCount uint32
	KeyDataSize  uint32
}

// channelDesc is the 16-byte channel descriptor. Ref is a bone index in GXMD
// and a bone-name string offset in GXAN. KeyOffset is relative to the start
// of the owning animation's key data.
type channelDesc struct {
	Ref           uint32
	Target        scene.Target
	Interpolation scene.Interpolation
	Reserved      uint16
	KeyOffset     uint32
	KeyCount      uint32
}

// alignUp rounds n up to a multiple of sectionAlignment.
func alignUp(n int) int {
	return (n + sectionAlignment - 1) &^ (sectionAlignment - 1)
}

// pad appends zero bytes until buf's length is aligned.
func pad(buf *bytes.Buffer) {
	for buf.Len()%sectionAlignment != 0 {
		buf.WriteByte(0)
	}
}

// putLE writes v into buf using little-endian binary encoding. It is only
// used with fixed-size values, for which binary.Write cannot fail on a
// bytes.Buffer.
func putLE(buf *bytes.Buffer, v any) {
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		panic(fmt.Sprintf("formats: encoding %T: %v", v, err))
	}
}

// readLE decodes a fixed-size value (or slice of them) from data.
func readLE(data []byte, v any) error {
	return binary.Read(bytes.NewReader(data), binary.LittleEndian, v)
}

// encodeChannels serializes channel descriptors and their packed keys. refs
// holds the per-channel target reference.
func encodeChannels(channels []scene.Channel, refs []uint32) ([]channelDesc, []byte) {
	var keys bytes.Buffer
	descs := make([]channelDesc, len(channels))
	for i := range channels {
		ch := &channels[i]
		descs[i] = channelDesc{
			Ref:           refs[i],
			Target:        ch.Target,
			Interpolation: ch.Interpolation,
			KeyOffset:     uint32(keys.Len()),
			KeyCount:      uint32(ch.KeyCount()),
		}
		if ch.Target.UsesQuatKeys() {
			for _, k := range ch.QuatKeys {
				putLE(&keys, k)
			}
		} else {
			for _, k := range ch.VectorKeys {
				putLE(&keys, k)
			}
		}
	}
	return descs, keys.Bytes()
}

// decodeChannel reads one channel's keys from keyData.
func decodeChannel(d channelDesc, keyData []byte) (AnimationChannel, error) {
	ch := AnimationChannel{
		BoneIndex:     -1,
		Target:        d.Target,
		Interpolation: d.Interpolation,
	}

	keySize := vectorKeySize
	if d.Target.UsesQuatKeys() {
		keySize = quatKeySize
	}
	start := uint64(d.KeyOffset)
	end := start + uint64(d.KeyCount)*uint64(keySize)
	if end > uint64(len(keyData)) {
		return ch, fmt.Errorf("%w: channel keys [%d, %d) exceed %d bytes", ErrTruncatedKeyData, start, end, len(keyData))
	}
	raw := keyData[start:end]

	if d.Target.UsesQuatKeys() {
		ch.QuatKeys = make([]scene.QuatKey, d.KeyCount)
		if err := readLE(raw, ch.QuatKeys); err != nil {
			return ch, err
		}
	} else {
		ch.VectorKeys = make([]scene.VectorKey, d.KeyCount)
		if err := readLE(raw, ch.VectorKeys); err != nil {
			return ch, err
		}
	}
	return ch, nil
}
