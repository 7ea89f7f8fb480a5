package importer

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mynameisGaku/GXLib-sub003/pkg/scene"
	"github.com/mynameisGaku/GXLib-sub003/pkg/shader"
)

// ReadMTL parses a Wavefront material library into Phong materials.
func ReadMTL(r io.Reader) ([]scene.Material, error) {
	var (
		mats []scene.Material
		cur  *scene.Material
	)

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(stripComment(sc.Text()))
		if len(fields) == 0 {
			continue
		}
		key, args := strings.ToLower(fields[0]), fields[1:]

		if key == "newmtl" {
			name := strings.Join(args, " ")
			mats = append(mats, scene.NewMaterial(name, shader.Phong))
			cur = &mats[len(mats)-1]
			continue
		}
		if cur == nil {
			continue
		}
		if err := applyMTL(cur, key, args); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return mats, nil
}

func applyMTL(m *scene.Material, key string, args []string) error {
	p := &m.Params
	phong, _ := p.Phong()

	switch key {
	case "kd":
		c, err := parseFloats(args, 3)
		if err != nil {
			return err
		}
		base := p.BaseColor()
		p.SetBaseColor([4]float32{c[0], c[1], c[2], base[3]})
	case "ks":
		c, err := parseFloats(args, 3)
		if err != nil {
			return err
		}
		phong.SetSpecular([3]float32{c[0], c[1], c[2]})
	case "ka":
		c, err := parseFloats(args, 3)
		if err != nil {
			return err
		}
		phong.SetAmbient([3]float32{c[0], c[1], c[2]})
	case "ns":
		v, err := parseFloats(args, 1)
		if err != nil {
			return err
		}
		phong.SetShininess(v[0])
	case "ke":
		c, err := parseFloats(args, 3)
		if err != nil {
			return err
		}
		p.SetEmissive([3]float32{c[0], c[1], c[2]})
	case "d", "tr":
		v, err := parseFloats(args, 1)
		if err != nil {
			return err
		}
		alpha := v[0]
		if key == "tr" {
			alpha = 1 - alpha
		}
		base := p.BaseColor()
		base[3] = alpha
		p.SetBaseColor(base)
		if alpha < 1 {
			p.SetFlags(p.Flags() | shader.FlagAlphaBlend)
		}
	case "map_kd":
		m.Textures[shader.SlotAlbedo] = mapPath(args)
	case "map_bump", "bump", "norm":
		m.Textures[shader.SlotNormal] = mapPath(args)
	case "map_ks":
		m.Textures[shader.SlotSpecular] = mapPath(args)
	case "map_ke":
		m.Textures[shader.SlotEmissive] = mapPath(args)
	}
	return nil
}

// mapPath returns the file name of a texture statement, skipping options
// such as "-bm 0.5".
func mapPath(args []string) string {
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			i += mapOptionArgs(args[i])
			continue
		}
		return strings.ReplaceAll(strings.Join(args[i:], " "), "\\", "/")
	}
	return ""
}

func mapOptionArgs(opt string) int {
	switch opt {
	case "-o", "-s", "-t":
		return 3
	case "-mm":
		return 2
	default:
		return 1
	}
}
