package geom

import (
	"sort"

	"github.com/mynameisGaku/GXLib-sub003/pkg/scene"
)

// Influence is one joint weight affecting a vertex.
type Influence struct {
	Joint  uint16
	Weight float32
}

// ReduceInfluences keeps the limit strongest influences (at most
// scene.MaxInfluences) and renormalizes their weights to sum to 1. A vertex
// without influences is bound to joint 0 with zero weights. The input slice
// is reordered.
func ReduceInfluences(influences []Influence, limit int) (joints [scene.MaxInfluences]uint16, weights [scene.MaxInfluences]float32) {
	if limit <= 0 || limit > scene.MaxInfluences {
		limit = scene.MaxInfluences
	}
	if len(influences) == 0 {
		return joints, weights
	}

	sort.SliceStable(influences, func(i, j int) bool {
		return influences[i].Weight > influences[j].Weight
	})
	if len(influences) > limit {
		influences = influences[:limit]
	}

	var sum float32
	for _, inf := range influences {
		sum += inf.Weight
	}
	for i, inf := range influences {
		joints[i] = inf.Joint
		weights[i] = inf.Weight
		if sum > 0 {
			weights[i] = inf.Weight / sum
		}
	}
	return joints, weights
}

// ReduceVertexInfluences applies ReduceInfluences to the influences already
// stored on a vertex.
func ReduceVertexInfluences(v *scene.Vertex, limit int) {
	infl := make([]Influence, 0, scene.MaxInfluences)
	for i := 0; i < scene.MaxInfluences; i++ {
		if v.Weights[i] > 0 {
			infl = append(infl, Influence{Joint: v.Joints[i], Weight: v.Weights[i]})
		}
	}
	v.Joints, v.Weights = ReduceInfluences(infl, limit)
}
