package avatara

import (
	stdmath "math"

	"github.com/Faultbox/avatara-export/pkg/math"
)

const boneEpsilon = 1e-6

// Length returns the distance from head to tail.
func (b Bone) Length() float32 {
	return b.Tail.Sub(b.Head).Length()
}

// BoneToWorld rebuilds the bone-to-model matrix of every bone from its
// parent-relative head, tail and roll. bones must be in hierarchy order.
//
// A child is placed at the parent's tail: parent · T(0,parentLength,0) · T(head) · R,
// where R turns the Y axis onto tail-head and then rolls about that axis.
func BoneToWorld(bones []Bone) []math.Mat4 {
	out := make([]math.Mat4, len(bones))
	for i, b := range bones {
		parent := math.Identity()
		if p := b.Parent; p >= 0 && int(p) < i {
			parent = out[p].Mul(math.Translate(0, bones[p].Length(), 0))
		}
		out[i] = parent.Mul(math.TranslateVec3(b.Head)).Mul(BoneRotation(b.Head, b.Tail, b.Roll))
	}
	return out
}

// BoneToWorld returns the bone-to-model matrices for either bone record version.
func (m *Model) BoneToWorld() []math.Mat4 {
	if m.Version == VersionMatrix {
		out := make([]math.Mat4, len(m.MatrixBones))
		for i, b := range m.MatrixBones {
			out[i] = b.Matrix()
		}
		return out
	}
	return BoneToWorld(m.Bones)
}

// BoneRotation returns the rotation of a bone relative to its parent's tail frame.
// roll is in radians.
func BoneRotation(head, tail math.Vec3, roll float32) math.Mat4 {
	dir := tail.Sub(head).Normalize()
	up := math.Vec3{Y: 1}

	rot := math.Identity()
	axis := up.Cross(dir)
	if axis.Length() > boneEpsilon {
		cos := up.Dot(dir)
		if cos > 1 {
			cos = 1
		} else if cos < -1 {
			cos = -1
		}
		rot = math.RotateAxis(axis, float32(stdmath.Acos(float64(cos))))
	} else if up.Dot(dir) < 0 {
		// Pointing down -Y: a half turn about Z.
		rot[0] = -1
		rot[5] = -1
	}

	if dir == (math.Vec3{}) || roll == 0 {
		return rot
	}
	return math.RotateAxis(dir, roll).Mul(rot)
}
