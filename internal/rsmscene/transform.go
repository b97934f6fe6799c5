package rsmscene

import (
	"github.com/Faultbox/avatara-export/pkg/math"
	"github.com/Faultbox/avatara-export/pkg/rsm"
)

// hierarchy returns every node's model-space transform at timeMs, the part
// children inherit: parent · Position · Rotation · Scale · keyed scale.
func (s *Scene) hierarchy(timeMs float32) []math.Mat4 {
	world := make([]math.Mat4, len(s.nodes))
	for _, i := range s.order {
		local := localMatrix(s.nodes[i], timeMs)
		if p := s.parent[i]; p >= 0 {
			world[i] = world[p].Mul(local)
		} else {
			world[i] = local
		}
	}
	return world
}

func localMatrix(n *rsm.Node, timeMs float32) math.Mat4 {
	pos := math.Vec3From(n.Position)
	if len(n.PosKeys) > 0 {
		pos = positionAt(n.PosKeys, timeMs)
	}
	m := math.TranslateVec3(pos)

	// Keyframes replace the static axis-angle rotation.
	switch {
	case len(n.RotKeys) > 0:
		m = m.Mul(rotationAt(n.RotKeys, timeMs).ToMat4())
	case n.RotAngle != 0:
		if axis := math.Vec3From(n.RotAxis); axis.Length() > 1e-6 {
			m = m.Mul(math.RotateAxis(axis, n.RotAngle))
		}
	}

	m = m.Mul(math.Scale(n.Scale[0], n.Scale[1], n.Scale[2]))
	if len(n.ScaleKeys) > 0 {
		k := keyedScale(n.ScaleKeys, timeMs)
		m = m.Mul(math.Scale(k.X, k.Y, k.Z))
	}
	return m
}

// vertexMatrix places a node's own vertices: the hierarchy transform
// followed by the node's offset and 3x3 matrix, which children do not inherit.
func vertexMatrix(world math.Mat4, n *rsm.Node) math.Mat4 {
	return world.
		Mul(math.Translate(n.Offset[0], n.Offset[1], n.Offset[2])).
		Mul(math.FromMat3x3(n.Matrix))
}

// scaleAt is the keyed scale at timeMs, or unit scale without keys.
func scaleAt(n *rsm.Node, timeMs float32) math.Vec3 {
	if len(n.ScaleKeys) == 0 {
		return math.Vec3One
	}
	return keyedScale(n.ScaleKeys, timeMs)
}

// bracket finds the keys around timeMs. Before the first key or past the last
// one it returns that key twice.
func bracket(n int, frame func(int) int32, timeMs float32) (prev, next int, t float32) {
	for i := 0; i < n; i++ {
		if float32(frame(i)) > timeMs {
			next = i
			break
		}
		prev, next = i, i
	}
	if prev == next || frame(next) == frame(prev) {
		return prev, prev, 0
	}
	f0, f1 := float32(frame(prev)), float32(frame(next))
	return prev, next, (timeMs - f0) / (f1 - f0)
}

func rotationAt(keys []rsm.RotKey, timeMs float32) math.Quat {
	i, j, t := bracket(len(keys), func(i int) int32 { return keys[i].Frame }, timeMs)
	q0 := quat(keys[i].Quat)
	if i == j {
		return q0.Normalize()
	}
	return q0.Slerp(quat(keys[j].Quat), t)
}

func positionAt(keys []rsm.PosKey, timeMs float32) math.Vec3 {
	i, j, t := bracket(len(keys), func(i int) int32 { return keys[i].Frame }, timeMs)
	return lerp(math.Vec3From(keys[i].Position), math.Vec3From(keys[j].Position), t)
}

func keyedScale(keys []rsm.ScaleKey, timeMs float32) math.Vec3 {
	i, j, t := bracket(len(keys), func(i int) int32 { return keys[i].Frame }, timeMs)
	return lerp(math.Vec3From(keys[i].Scale), math.Vec3From(keys[j].Scale), t)
}

func quat(q [4]float32) math.Quat {
	return math.Quat{X: q[0], Y: q[1], Z: q[2], W: q[3]}
}

func lerp(a, b math.Vec3, t float32) math.Vec3 {
	return a.Add(b.Sub(a).Scale(t))
}
