package skeleton

import (
	"fmt"

	"github.com/Faultbox/avatara-export/pkg/avatara"
	"github.com/Faultbox/avatara-export/pkg/math"
)

// LocalPose turns armature-space pose matrices, one per bone in index order,
// into keys relative to each bone's rest pose.
//
// For a child the pose is first taken relative to the posed parent and put back
// on the parent's rest frame, then expressed in the child's own rest frame:
//
//	final = inverse(rest) · parentRest · inverse(parentPose) · pose
//
// so a skeleton sitting in its rest pose yields identity keys. scale holds an
// explicit per-bone scale; a nil slice exports unit scale.
//
// A posed parent or a rest matrix that cannot be inverted, such as a bone
// scaled to zero, fails with ErrSingularMatrix.
func LocalPose(h *Hierarchy, pose []math.Mat4, scale []math.Vec3) ([]avatara.Key, error) {
	keys := make([]avatara.Key, len(h.bones))
	for i, b := range h.bones {
		local := pose[i]
		if p, ok := h.Parent(i); ok {
			invParent, ok := pose[p.Index].Invert()
			if !ok {
				return nil, fmt.Errorf("%w: pose of %s (parent of %s)", ErrSingularMatrix, p.Name, b.Name)
			}
			local = p.Rest.Mul(invParent).Mul(pose[i])
		}
		invRest, ok := b.Rest.Invert()
		if !ok {
			return nil, fmt.Errorf("%w: rest of %s", ErrSingularMatrix, b.Name)
		}
		final := invRest.Mul(local)

		rot, tr, _ := final.Decompose()
		key := avatara.Key{Rotation: cleanQuat(rot), Translation: cleanVec(tr), Scale: math.Vec3One}
		if scale != nil {
			key.Scale = scale[i]
		}
		keys[i] = key
	}
	return keys, nil
}

// Rounding noise below these thresholds is flushed to zero so that rest poses
// encode as exact identity keys.
const (
	rotationNoise    = 1e-6
	translationNoise = 1e-5
)

func flush(v, eps float32) float32 {
	if v < eps && v > -eps {
		return 0
	}
	return v
}

func cleanVec(v math.Vec3) math.Vec3 {
	return math.Vec3{
		X: flush(v.X, translationNoise),
		Y: flush(v.Y, translationNoise),
		Z: flush(v.Z, translationNoise),
	}
}

func cleanQuat(q math.Quat) math.Quat {
	q.X = flush(q.X, rotationNoise)
	q.Y = flush(q.Y, rotationNoise)
	q.Z = flush(q.Z, rotationNoise)
	if q.X == 0 && q.Y == 0 && q.Z == 0 {
		return math.QuatIdentity()
	}
	return q
}
