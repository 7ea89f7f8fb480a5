package formats

import (
	"sort"

	"github.com/mynameisGaku/GXLib-sub003/pkg/math"
	"github.com/mynameisGaku/GXLib-sub003/pkg/scene"
)

// AnimationChannel is a loaded channel. GXMD channels carry BoneIndex (and
// the bone's name); GXAN channels carry only BoneName and BoneIndex is -1
// until resolved against a skeleton.
type AnimationChannel struct {
	BoneIndex     int
	BoneName      string
	Target        scene.Target
	Interpolation scene.Interpolation
	VectorKeys    []scene.VectorKey
	QuatKeys      []scene.QuatKey
}

// Animation is a loaded animation clip.
type Animation struct {
	Name     string
	Duration float32
	Channels []AnimationChannel
}

// KeyCount returns the number of keyframes in the channel.
func (c *AnimationChannel) KeyCount() int {
	if c.Target.UsesQuatKeys() {
		return len(c.QuatKeys)
	}
	return len(c.VectorKeys)
}

// Channel returns the first channel for the bone and target, or nil.
func (a *Animation) Channel(bone string, target scene.Target) *AnimationChannel {
	for i := range a.Channels {
		if a.Channels[i].BoneName == bone && a.Channels[i].Target == target {
			return &a.Channels[i]
		}
	}
	return nil
}

// Retarget resolves every channel's bone name against a skeleton's joint
// names and returns the joint index per channel (-1 when the skeleton has no
// such joint). BoneIndex is updated in place.
func (a *Animation) Retarget(jointNames []string) []int {
	lookup := make(map[string]int, len(jointNames))
	for i, n := range jointNames {
		if _, dup := lookup[n]; !dup {
			lookup[n] = i
		}
	}

	out := make([]int, len(a.Channels))
	for i := range a.Channels {
		idx, ok := lookup[a.Channels[i].BoneName]
		if !ok {
			idx = -1
		}
		a.Channels[i].BoneIndex = idx
		out[i] = idx
	}
	return out
}

// SampleVector evaluates a translation or scale channel at time t.
func (c *AnimationChannel) SampleVector(t float32) [3]float32 {
	keys := c.VectorKeys
	if len(keys) == 0 {
		return [3]float32{}
	}
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time > t })
	switch {
	case i == 0:
		return keys[0].Value
	case i == len(keys):
		return keys[len(keys)-1].Value
	}
	a, b := keys[i-1], keys[i]
	if c.Interpolation == scene.InterpStep {
		return a.Value
	}
	return math.LerpVec3(a.Value, b.Value, blendFactor(a.Time, b.Time, t))
}

// SampleRotation evaluates a rotation channel at time t.
func (c *AnimationChannel) SampleRotation(t float32) math.Quat {
	keys := c.QuatKeys
	if len(keys) == 0 {
		return math.QuatIdentity()
	}
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time > t })
	switch {
	case i == 0:
		return math.Q(keys[0].Value)
	case i == len(keys):
		return math.Q(keys[len(keys)-1].Value)
	}
	a, b := keys[i-1], keys[i]
	if c.Interpolation == scene.InterpStep {
		return math.Q(a.Value)
	}
	return math.Q(a.Value).Slerp(math.Q(b.Value), blendFactor(a.Time, b.Time, t))
}

func blendFactor(t0, t1, t float32) float32 {
	if t1 <= t0 {
		return 0
	}
	return (t - t0) / (t1 - t0)
}
