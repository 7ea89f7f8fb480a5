package shader

// Model-specific field offsets. Ranges overlap between models by design of
// the format; see the package documentation.
const (
	offMetallic    = 0x50
	offRoughness   = 0x54
	offReflectance = 0x58

	offSpecular  = 0x50
	offShininess = 0x5C
	offAmbient   = 0x60

	offRimColor     = offSpecular
	offRimPower     = offShininess
	offShadeColor   = 0x80
	offShadeShift   = 0x8C
	offToony        = 0x90
	offRampSteps    = 0x94
	offOutlineColor = 0xA0
	offOutlineWidth = 0xAC

	offSubsurfaceColor  = 0xB0
	offSubsurfaceRadius = 0xBC
	offThickness        = 0xC0

	offClearCoat          = 0xD0
	offClearCoatRoughness = 0xD4
)

// pbrFields is the metallic-roughness range shared by the PBR-derived models.
type pbrFields struct{ b *ParamBlock }

func (p pbrFields) Metallic() float32        { return p.b.f32(offMetallic) }
func (p pbrFields) SetMetallic(v float32)    { p.b.setF32(offMetallic, v) }
func (p pbrFields) Roughness() float32       { return p.b.f32(offRoughness) }
func (p pbrFields) SetRoughness(v float32)   { p.b.setF32(offRoughness, v) }
func (p pbrFields) Reflectance() float32     { return p.b.f32(offReflectance) }
func (p pbrFields) SetReflectance(v float32) { p.b.setF32(offReflectance, v) }

// StandardView exposes the Standard model fields.
type StandardView struct{ pbrFields }

// Standard returns the Standard view if the block is tagged Standard.
func (b *ParamBlock) Standard() (StandardView, bool) {
	return StandardView{pbrFields{b}}, b.model == Standard
}

// PhongView exposes the Phong model fields.
type PhongView struct{ b *ParamBlock }

// Phong returns the Phong view if the block is tagged Phong.
func (b *ParamBlock) Phong() (PhongView, bool) {
	return PhongView{b}, b.model == Phong
}

func (v PhongView) Specular() [3]float32     { return v.b.vec3(offSpecular) }
func (v PhongView) SetSpecular(c [3]float32) { v.b.setVec3(offSpecular, c) }
func (v PhongView) Shininess() float32       { return v.b.f32(offShininess) }
func (v PhongView) SetShininess(s float32)   { v.b.setF32(offShininess, s) }
func (v PhongView) Ambient() [3]float32      { return v.b.vec3(offAmbient) }
func (v PhongView) SetAmbient(c [3]float32)  { v.b.setVec3(offAmbient, c) }

// ToonView exposes the Toon model fields. Rim color and rim power live in
// the Phong specular slot, which Toon never uses for specular.
type ToonView struct{ b *ParamBlock }

// Toon returns the Toon view if the block is tagged Toon.
func (b *ParamBlock) Toon() (ToonView, bool) {
	return ToonView{b}, b.model == Toon
}

func (v ToonView) ShadeColor() [3]float32       { return v.b.vec3(offShadeColor) }
func (v ToonView) SetShadeColor(c [3]float32)   { v.b.setVec3(offShadeColor, c) }
func (v ToonView) ShadeShift() float32          { return v.b.f32(offShadeShift) }
func (v ToonView) SetShadeShift(s float32)      { v.b.setF32(offShadeShift, s) }
func (v ToonView) Toony() float32               { return v.b.f32(offToony) }
func (v ToonView) SetToony(s float32)           { v.b.setF32(offToony, s) }
func (v ToonView) RampSteps() uint32            { return v.b.u32(offRampSteps) }
func (v ToonView) SetRampSteps(n uint32)        { v.b.setU32(offRampSteps, n) }
func (v ToonView) OutlineColor() [3]float32     { return v.b.vec3(offOutlineColor) }
func (v ToonView) SetOutlineColor(c [3]float32) { v.b.setVec3(offOutlineColor, c) }
func (v ToonView) OutlineWidth() float32        { return v.b.f32(offOutlineWidth) }
func (v ToonView) SetOutlineWidth(w float32)    { v.b.setF32(offOutlineWidth, w) }
func (v ToonView) RimColor() [3]float32         { return v.b.vec3(offRimColor) }
func (v ToonView) SetRimColor(c [3]float32)     { v.b.setVec3(offRimColor, c) }
func (v ToonView) RimPower() float32            { return v.b.f32(offRimPower) }
func (v ToonView) SetRimPower(p float32)        { v.b.setF32(offRimPower, p) }

// SubsurfaceView exposes the Subsurface model fields.
type SubsurfaceView struct{ pbrFields }

// Subsurface returns the Subsurface view if the block is tagged Subsurface.
func (b *ParamBlock) Subsurface() (SubsurfaceView, bool) {
	return SubsurfaceView{pbrFields{b}}, b.model == Subsurface
}

func (v SubsurfaceView) SubsurfaceColor() [3]float32     { return v.b.vec3(offSubsurfaceColor) }
func (v SubsurfaceView) SetSubsurfaceColor(c [3]float32) { v.b.setVec3(offSubsurfaceColor, c) }
func (v SubsurfaceView) Radius() float32                 { return v.b.f32(offSubsurfaceRadius) }
func (v SubsurfaceView) SetRadius(r float32)             { v.b.setF32(offSubsurfaceRadius, r) }
func (v SubsurfaceView) Thickness() float32              { return v.b.f32(offThickness) }
func (v SubsurfaceView) SetThickness(t float32)          { v.b.setF32(offThickness, t) }

// ClearCoatView exposes the ClearCoat model fields.
type ClearCoatView struct{ pbrFields }

// ClearCoat returns the ClearCoat view if the block is tagged ClearCoat.
func (b *ParamBlock) ClearCoat() (ClearCoatView, bool) {
	return ClearCoatView{pbrFields{b}}, b.model == ClearCoat
}

func (v ClearCoatView) ClearCoat() float32              { return v.b.f32(offClearCoat) }
func (v ClearCoatView) SetClearCoat(c float32)          { v.b.setF32(offClearCoat, c) }
func (v ClearCoatView) ClearCoatRoughness() float32     { return v.b.f32(offClearCoatRoughness) }
func (v ClearCoatView) SetClearCoatRoughness(r float32) { v.b.setF32(offClearCoatRoughness, r) }
