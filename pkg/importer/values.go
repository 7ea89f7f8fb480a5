package importer

// glTF stores optional indices and factors either by value or behind a
// pointer. These helpers read both forms.

// indexOf returns an index stored as an integer or integer pointer.
func indexOf(v any) (int, bool) {
	switch x := v.(type) {
	case uint32:
		return int(x), true
	case *uint32:
		if x != nil {
			return int(*x), true
		}
	case int:
		return x, x >= 0
	case *int:
		if x != nil && *x >= 0 {
			return *x, true
		}
	}
	return 0, false
}

func floatOf(v any, def float32) float32 {
	switch x := v.(type) {
	case float32:
		return x
	case *float32:
		if x != nil {
			return *x
		}
	case float64:
		return float32(x)
	case *float64:
		if x != nil {
			return float32(*x)
		}
	}
	return def
}

func vec3Of(v any, def [3]float32) [3]float32 {
	switch x := v.(type) {
	case [3]float32:
		return x
	case *[3]float32:
		if x != nil {
			return *x
		}
	case [3]float64:
		return [3]float32{float32(x[0]), float32(x[1]), float32(x[2])}
	case *[3]float64:
		if x != nil {
			return [3]float32{float32(x[0]), float32(x[1]), float32(x[2])}
		}
	}
	return def
}

func vec4Of(v any, def [4]float32) [4]float32 {
	switch x := v.(type) {
	case [4]float32:
		return x
	case *[4]float32:
		if x != nil {
			return *x
		}
	case [4]float64:
		return [4]float32{float32(x[0]), float32(x[1]), float32(x[2]), float32(x[3])}
	case *[4]float64:
		if x != nil {
			return [4]float32{float32(x[0]), float32(x[1]), float32(x[2]), float32(x[3])}
		}
	}
	return def
}

// attribute looks up a vertex attribute's accessor index, or nil.
func attribute[M ~map[string]V, V any](attrs M, name string) any {
	if v, ok := attrs[name]; ok {
		return v
	}
	return nil
}
