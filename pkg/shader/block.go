// Package shader provides the fixed-size material parameter block shared by
// the GXMD, GXAN and GXPAK tooling and by the runtime.
//
// A ParamBlock is 256 bytes of raw storage plus a shader model tag. The first
// 0x50 bytes are common to every model; the rest is a union whose layout is
// chosen by the tag:
//
//	0x00-0x0F  base color RGBA                      all
//	0x10-0x1B  emissive RGB                         all
//	0x1C       emissive strength                    all
//	0x20-0x3F  texture slot string offsets [8]u32   all
//	0x40       alpha cutoff                         all
//	0x44       normal scale                         all
//	0x48       occlusion strength                   all
//	0x4C       flags (u32)                          all
//	0x50-0x5B  specular RGB                         Phong
//	0x5C       shininess                            Phong
//	0x50-0x5B  rim color RGB (alias of specular)    Toon
//	0x5C       rim power (alias of shininess)       Toon
//	0x50       metallic                             Standard, Subsurface, ClearCoat
//	0x54       roughness                            Standard, Subsurface, ClearCoat
//	0x58       reflectance                          Standard, Subsurface, ClearCoat
//	0x60-0x6B  ambient RGB                          Phong
//	0x80-0x8B  shade color RGB                      Toon
//	0x8C       shade shift                          Toon
//	0x90       toony                                Toon
//	0x94       ramp steps (u32)                     Toon
//	0xA0-0xAB  outline color RGB                    Toon
//	0xAC       outline width                        Toon
//	0xB0-0xBB  subsurface color RGB                 Subsurface
//	0xBC       subsurface radius                    Subsurface
//	0xC0       thickness                            Subsurface
//	0xD0       clear coat                           ClearCoat
//	0xD4       clear coat roughness                 ClearCoat
//	0xE0-0xFF  reserved
//
// Bytes outside the active model's ranges are undefined. Only one model is
// ever active for a block.
package shader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// BlockSize is the encoded size of a ParamBlock.
const BlockSize = 256

// TextureSlotCount is the number of texture slots in a block.
const TextureSlotCount = 8

// NoTexture marks an empty texture slot offset.
const NoTexture uint32 = 0xFFFFFFFF

// ErrBlockSize is returned when decoding a block from a slice of the wrong length.
var (
	ErrBlockSize    = errors.New("shader parameter block must be 256 bytes")
	ErrUnknownModel = errors.New("unknown shader model")
)

// Model selects which fields of a ParamBlock are meaningful.
type Model uint32

const (
	Standard   Model = 0 // Metallic-roughness PBR
	Unlit      Model = 1 // Base color and emissive only
	Toon       Model = 2 // Cel shading with ramp, rim and outline
	Phong      Model = 3 // Blinn-Phong specular
	Subsurface Model = 4 // PBR with subsurface scattering
	ClearCoat  Model = 5 // PBR with a clear coat layer
)

// String returns a human-readable model name.
func (m Model) String() string {
	switch m {
	case Standard:
		return "Standard"
	case Unlit:
		return "Unlit"
	case Toon:
		return "Toon"
	case Phong:
		return "Phong"
	case Subsurface:
		return "Subsurface"
	case ClearCoat:
		return "ClearCoat"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(m))
	}
}

// Valid reports whether m is a known shader model.
func (m Model) Valid() bool {
	return m <= ClearCoat
}

// TextureSlot indexes the texture offset table.
type TextureSlot int

const (
	SlotAlbedo TextureSlot = iota
	SlotNormal
	SlotMetallicRoughness
	SlotOcclusion
	SlotEmissive
	SlotSpecular
	SlotToonRamp
	SlotCustom
)

var slotNames = [TextureSlotCount]string{
	"albedo", "normal", "metallicRoughness", "occlusion",
	"emissive", "specular", "toonRamp", "custom",
}

// String returns the slot name.
func (s TextureSlot) String() string {
	if s < 0 || int(s) >= TextureSlotCount {
		return fmt.Sprintf("slot%d", int(s))
	}
	return slotNames[s]
}

// Flag bits stored at offset 0x4C.
const (
	FlagDoubleSided uint32 = 1 << iota
	FlagAlphaBlend
	FlagAlphaTest
)

// Common field offsets.
const (
	offBaseColor         = 0x00
	offEmissive          = 0x10
	offEmissiveStrength  = 0x1C
	offTextures          = 0x20
	offAlphaCutoff       = 0x40
	offNormalScale       = 0x44
	offOcclusionStrength = 0x48
	offFlags             = 0x4C
	offModelRegion       = 0x50
)

// ParamBlock is a 256-byte material parameter record tagged with a shader model.
type ParamBlock struct {
	model Model
	raw   [BlockSize]byte
}

// NewParamBlock returns a block for model m filled with default values.
func NewParamBlock(m Model) ParamBlock {
	var b ParamBlock
	b.SetBaseColor([4]float32{1, 1, 1, 1})
	b.SetEmissiveStrength(1)
	b.SetAlphaCutoff(0.5)
	b.SetNormalScale(1)
	b.SetOcclusionStrength(1)
	for i := 0; i < TextureSlotCount; i++ {
		b.SetTextureOffset(TextureSlot(i), NoTexture)
	}
	b.SetModel(m)
	return b
}

// DecodeParamBlock builds a block from its tag and raw bytes. Unknown tags
// are rejected.
func DecodeParamBlock(m Model, data []byte) (ParamBlock, error) {
	var b ParamBlock
	if !m.Valid() {
		return b, fmt.Errorf("%w: %d", ErrUnknownModel, uint32(m))
	}
	if len(data) != BlockSize {
		return b, fmt.Errorf("%w: got %d", ErrBlockSize, len(data))
	}
	b.model = m
	copy(b.raw[:], data)
	return b, nil
}

// Model returns the active shader model.
func (b *ParamBlock) Model() Model {
	return b.model
}

// SetModel switches the active model. The model-specific region is cleared and
// filled with the new model's defaults; the common fields are kept.
func (b *ParamBlock) SetModel(m Model) {
	b.model = m
	clear(b.raw[offModelRegion:])

	switch m {
	case Standard, Subsurface, ClearCoat:
		pbr := pbrFields{b}
		pbr.SetMetallic(0)
		pbr.SetRoughness(0.5)
		pbr.SetReflectance(0.5)
		if m == Subsurface {
			b.setVec3(offSubsurfaceColor, [3]float32{1, 0.2, 0.1})
			b.setF32(offSubsurfaceRadius, 1)
		}
	case Phong:
		b.setVec3(offSpecular, [3]float32{1, 1, 1})
		b.setF32(offShininess, 32)
	case Toon:
		b.setVec3(offShadeColor, [3]float32{0.5, 0.5, 0.5})
		b.setF32(offToony, 0.9)
		b.setU32(offRampSteps, 2)
		b.setF32(offRimPower, 5)
	}
}

// Bytes returns a copy of the raw 256-byte storage.
func (b *ParamBlock) Bytes() [BlockSize]byte {
	return b.raw
}

// BaseColor returns the RGBA base color.
func (b *ParamBlock) BaseColor() [4]float32 {
	return [4]float32{b.f32(offBaseColor), b.f32(offBaseColor + 4), b.f32(offBaseColor + 8), b.f32(offBaseColor + 12)}
}

// SetBaseColor sets the RGBA base color.
func (b *ParamBlock) SetBaseColor(c [4]float32) {
	for i, v := range c {
		b.setF32(offBaseColor+4*i, v)
	}
}

// Emissive returns the emissive color.
func (b *ParamBlock) Emissive() [3]float32 { return b.vec3(offEmissive) }

// SetEmissive sets the emissive color.
func (b *ParamBlock) SetEmissive(c [3]float32) { b.setVec3(offEmissive, c) }

// EmissiveStrength returns the emissive multiplier.
func (b *ParamBlock) EmissiveStrength() float32 { return b.f32(offEmissiveStrength) }

// SetEmissiveStrength sets the emissive multiplier.
func (b *ParamBlock) SetEmissiveStrength(v float32) { b.setF32(offEmissiveStrength, v) }

// AlphaCutoff returns the alpha test threshold.
func (b *ParamBlock) AlphaCutoff() float32 { return b.f32(offAlphaCutoff) }

// SetAlphaCutoff sets the alpha test threshold.
func (b *ParamBlock) SetAlphaCutoff(v float32) { b.setF32(offAlphaCutoff, v) }

// NormalScale returns the normal map intensity.
func (b *ParamBlock) NormalScale() float32 { return b.f32(offNormalScale) }

// SetNormalScale sets the normal map intensity.
func (b *ParamBlock) SetNormalScale(v float32) { b.setF32(offNormalScale, v) }

// OcclusionStrength returns the ambient occlusion strength.
func (b *ParamBlock) OcclusionStrength() float32 { return b.f32(offOcclusionStrength) }

// SetOcclusionStrength sets the ambient occlusion strength.
func (b *ParamBlock) SetOcclusionStrength(v float32) { b.setF32(offOcclusionStrength, v) }

// Flags returns the flag bits.
func (b *ParamBlock) Flags() uint32 { return b.u32(offFlags) }

// SetFlags replaces the flag bits.
func (b *ParamBlock) SetFlags(f uint32) { b.setU32(offFlags, f) }

// TextureOffset returns the string table offset stored for a texture slot.
func (b *ParamBlock) TextureOffset(slot TextureSlot) uint32 {
	return b.u32(offTextures + 4*int(slot))
}

// SetTextureOffset stores a string table offset for a texture slot.
func (b *ParamBlock) SetTextureOffset(slot TextureSlot, off uint32) {
	b.setU32(offTextures+4*int(slot), off)
}

func (b *ParamBlock) f32(off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b.raw[off:]))
}

func (b *ParamBlock) setF32(off int, v float32) {
	binary.LittleEndian.PutUint32(b.raw[off:], math.Float32bits(v))
}

func (b *ParamBlock) u32(off int) uint32 {
	return binary.LittleEndian.Uint32(b.raw[off:])
}

func (b *ParamBlock) setU32(off int, v uint32) {
	binary.LittleEndian.PutUint32(b.raw[off:], v)
}

func (b *ParamBlock) vec3(off int) [3]float32 {
	return [3]float32{b.f32(off), b.f32(off + 4), b.f32(off + 8)}
}

func (b *ParamBlock) setVec3(off int, v [3]float32) {
	b.setF32(off, v[0])
	b.setF32(off+4, v[1])
	b.setF32(off+8, v[2])
}
