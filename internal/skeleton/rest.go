package skeleton

import (
	"fmt"
	stdmath "math"

	"github.com/Faultbox/avatara-export/pkg/math"
)

// RestBone is the rest geometry of one bone. Head and tail are relative to the
// tail of the parent bone, in the parent's bone space; the root is in export space.
type RestBone struct {
	Head math.Vec3
	Tail math.Vec3
	Roll float32 // radians
}

// ExportSpace maps armature space to mesh space: inverse(meshWorld) · armatureWorld.
func ExportSpace(armatureWorld, meshWorld math.Mat4) (math.Mat4, error) {
	inv, ok := meshWorld.Invert()
	if !ok {
		return math.Mat4{}, fmt.Errorf("%w: mesh world matrix", ErrSingularMatrix)
	}
	return inv.Mul(armatureWorld), nil
}

// RestPose derives the parent-relative rest geometry of every bone.
// exportSpace takes armature-space points to the space the root is written in.
func RestPose(h *Hierarchy, exportSpace math.Mat4) ([]RestBone, error) {
	out := make([]RestBone, len(h.bones))
	for i, b := range h.bones {
		tip := b.Rest.Mul(math.Translate(0, b.Length, 0))

		var head, tail math.Vec3
		if p, ok := h.Parent(i); ok {
			toParent, ok := parentTail(p).Invert()
			if !ok {
				return nil, fmt.Errorf("%w: rest of %s (parent of %s)", ErrSingularMatrix, p.Name, b.Name)
			}
			head = toParent.Mul(b.Rest).Translation()
			tail = toParent.Mul(tip).Translation()
		} else {
			head = exportSpace.Mul(b.Rest).Translation()
			tail = exportSpace.Mul(tip).Translation()
		}

		out[i] = RestBone{
			Head: head,
			Tail: tail,
			Roll: b.Roll * stdmath.Pi / 180,
		}
	}
	return out, nil
}

// parentTail is the rest frame of a bone moved to its tail.
func parentTail(p Bone) math.Mat4 {
	return p.Rest.Mul(math.Translate(0, p.Length, 0))
}
