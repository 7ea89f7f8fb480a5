package shader

import (
	"errors"
	"testing"
)

func TestNewParamBlockDefaults(t *testing.T) {
	b := NewParamBlock(Standard)

	if b.Model() != Standard {
		t.Errorf("model = %v, want Standard", b.Model())
	}
	if b.BaseColor() != [4]float32{1, 1, 1, 1} {
		t.Errorf("base color = %v", b.BaseColor())
	}
	for slot := TextureSlot(0); slot < TextureSlotCount; slot++ {
		if off := b.TextureOffset(slot); off != NoTexture {
			t.Errorf("slot %d offset = %#x, want NoTexture", slot, off)
		}
	}

	std, ok := b.Standard()
	if !ok {
		t.Fatal("Standard view unavailable on a Standard block")
	}
	if std.Roughness() != 0.5 {
		t.Errorf("default roughness = %v, want 0.5", std.Roughness())
	}
}

func TestViewsRequireMatchingModel(t *testing.T) {
	b := NewParamBlock(Phong)

	if _, ok := b.Phong(); !ok {
		t.Error("Phong view should be available")
	}
	if _, ok := b.Toon(); ok {
		t.Error("Toon view should not be available on a Phong block")
	}
	if _, ok := b.Standard(); ok {
		t.Error("Standard view should not be available on a Phong block")
	}
}

func TestToonRimAliasesPhongSpecular(t *testing.T) {
	b := NewParamBlock(Toon)
	toon, _ := b.Toon()
	toon.SetRimColor([3]float32{0.25, 0.5, 0.75})
	toon.SetRimPower(3)

	raw := b.Bytes()
	phongView, err := DecodeParamBlock(Phong, raw[:])
	if err != nil {
		t.Fatalf("DecodeParamBlock: %v", err)
	}
	phong, _ := phongView.Phong()

	if phong.Specular() != [3]float32{0.25, 0.5, 0.75} {
		t.Errorf("rim color should occupy the specular slot, got %v", phong.Specular())
	}
	if phong.Shininess() != 3 {
		t.Errorf("rim power should occupy the shininess slot, got %v", phong.Shininess())
	}
}

func TestSetModelKeepsCommonFields(t *testing.T) {
	b := NewParamBlock(Phong)
	b.SetBaseColor([4]float32{0.1, 0.2, 0.3, 0.4})
	b.SetTextureOffset(SlotNormal, 42)
	b.SetFlags(FlagDoubleSided)

	b.SetModel(ClearCoat)

	if b.BaseColor() != [4]float32{0.1, 0.2, 0.3, 0.4} {
		t.Errorf("base color lost: %v", b.BaseColor())
	}
	if b.TextureOffset(SlotNormal) != 42 {
		t.Errorf("texture offset lost: %d", b.TextureOffset(SlotNormal))
	}
	if b.Flags() != FlagDoubleSided {
		t.Errorf("flags lost: %#x", b.Flags())
	}

	cc, ok := b.ClearCoat()
	if !ok {
		t.Fatal("ClearCoat view unavailable")
	}
	if cc.Metallic() != 0 || cc.ClearCoat() != 0 {
		t.Errorf("model region not reset: metallic=%v clearcoat=%v", cc.Metallic(), cc.ClearCoat())
	}
}

func TestDecodeParamBlockErrors(t *testing.T) {
	tests := []struct {
		name    string
		model   Model
		size    int
		wantErr error
	}{
		{"short block", Standard, 10, ErrBlockSize},
		{"unknown model", Model(99), BlockSize, ErrUnknownModel},
		{"one past last model", ClearCoat + 1, BlockSize, ErrUnknownModel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeParamBlock(tt.model, make([]byte, tt.size))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestModelString(t *testing.T) {
	tests := []struct {
		model Model
		want  string
	}{
		{Standard, "Standard"},
		{Unlit, "Unlit"},
		{Toon, "Toon"},
		{Phong, "Phong"},
		{Subsurface, "Subsurface"},
		{ClearCoat, "ClearCoat"},
		{Model(99), "Unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.model.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
