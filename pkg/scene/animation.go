package scene

import "fmt"

// Target is the joint property an animation channel drives.
type Target uint8

const (
	TargetTranslation Target = 0
	TargetRotation    Target = 1
	TargetScale       Target = 2
)

// String returns a human-readable target name.
func (t Target) String() string {
	switch t {
	case TargetTranslation:
		return "Translation"
	case TargetRotation:
		return "Rotation"
	case TargetScale:
		return "Scale"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// UsesQuatKeys reports whether channels with this target store quaternion keys.
func (t Target) UsesQuatKeys() bool {
	return t == TargetRotation
}

// Interpolation is the keyframe interpolation mode.
type Interpolation uint8

const (
	InterpLinear Interpolation = 0
	InterpStep   Interpolation = 1
	InterpCubic  Interpolation = 2
)

// String returns a human-readable interpolation name.
func (i Interpolation) String() string {
	switch i {
	case InterpLinear:
		return "Linear"
	case InterpStep:
		return "Step"
	case InterpCubic:
		return "Cubic"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(i))
	}
}

// VectorKey is a translation or scale keyframe.
type VectorKey struct {
	Time  float32
	Value [3]float32
}

// QuatKey is a rotation keyframe (XYZW).
type QuatKey struct {
	Time  float32
	Value [4]float32
}

// Channel animates one property of one joint. The joint is addressed by
// JointName when set, otherwise by JointIndex. Exactly one of VectorKeys and
// QuatKeys is populated, chosen by Target.
type Channel struct {
	JointIndex    int
	JointName     string
	Target        Target
	Interpolation Interpolation
	VectorKeys    []VectorKey
	QuatKeys      []QuatKey
}

// CheckKeys reports whether the channel's keys are of the kind its target
// selects. Rotation uses QuatKeys, every other target VectorKeys.
func (c *Channel) CheckKeys() error {
	if len(c.VectorKeys) > 0 && len(c.QuatKeys) > 0 {
		return ErrMixedKeyframes
	}
	if c.Target.UsesQuatKeys() && len(c.VectorKeys) > 0 {
		return fmt.Errorf("%w: %s with vector keys", ErrKeyKindMismatch, c.Target)
	}
	if !c.Target.UsesQuatKeys() && len(c.QuatKeys) > 0 {
		return fmt.Errorf("%w: %s with quaternion keys", ErrKeyKindMismatch, c.Target)
	}
	return nil
}

// KeyCount returns the number of keyframes in the channel.
func (c *Channel) KeyCount() int {
	if c.Target.UsesQuatKeys() {
		return len(c.QuatKeys)
	}
	return len(c.VectorKeys)
}

// Animation is a named set of channels.
type Animation struct {
	Name     string
	Duration float32
	Channels []Channel
}

// ComputeDuration returns the latest key time across all channels.
func (a *Animation) ComputeDuration() float32 {
	var d float32
	for i := range a.Channels {
		for _, k := range a.Channels[i].VectorKeys {
			d = max(d, k.Time)
		}
		for _, k := range a.Channels[i].QuatKeys {
			d = max(d, k.Time)
		}
	}
	return d
}

// ResolveJointName returns the channel's joint name, falling back to the
// skeleton's joint name when the channel is addressed by index.
func (s *Scene) ResolveJointName(c *Channel) string {
	if c.JointName != "" {
		return c.JointName
	}
	if c.JointIndex >= 0 && c.JointIndex < len(s.Joints) {
		return s.Joints[c.JointIndex].Name
	}
	return ""
}

// ResolveJointIndex returns the channel's joint index, looking the name up in
// the skeleton when the channel is addressed by name. Returns -1 if unresolved.
func (s *Scene) ResolveJointIndex(c *Channel) int {
	if c.JointName != "" {
		return s.JointIndex(c.JointName)
	}
	if c.JointIndex >= 0 && c.JointIndex < len(s.Joints) {
		return c.JointIndex
	}
	return -1
}
