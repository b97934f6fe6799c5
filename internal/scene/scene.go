// Package scene defines the host capability the exporter reads a rigged
// character from, plus an in-memory implementation.
package scene

import (
	"errors"

	"github.com/Faultbox/avatara-export/pkg/avatara"
	"github.com/Faultbox/avatara-export/pkg/math"
)

// Scene errors.
var (
	ErrArmatureNotFound = errors.New("armature not found")
	ErrMeshNotFound     = errors.New("mesh not found")
	ErrObjectNotFound   = errors.New("object not found")
	ErrVertexRange      = errors.New("vertex index out of range")
)

// BoneInfo describes one bone of an armature as the host lists it.
type BoneInfo struct {
	Name   string
	Parent string // empty for parentless bones

	// Children in host order. When nil, children are the bones naming this
	// one as parent, in listing order.
	Children []string

	// Rest maps bone-local coordinates to armature space in the rest pose.
	Rest   math.Mat4
	Length float32
	Roll   float32 // degrees
}

// Vertex is a mesh vertex in mesh space.
type Vertex struct {
	Position math.Vec3
	Normal   math.Vec3
}

// Face is a mesh polygon. Colors and UVs are nil when the mesh has no such channel.
type Face struct {
	Indices []int
	Smooth  bool
	Normal  math.Vec3
	Colors  []avatara.Color
	UVs     []math.Vec2
}

// Influence is a bone weight on a vertex, naming the bone.
type Influence struct {
	Bone   string
	Weight float32
}

// Source is the host application as seen by the exporter.
//
// CurrentFrame, SetCurrentFrame and RefreshPose act on host-global state;
// callers must not run two exports against one Source at the same time.
type Source interface {
	Bones(armature string) ([]BoneInfo, error)
	WorldMatrix(object string) (math.Mat4, error)

	CurrentFrame() int
	SetCurrentFrame(frame int)
	RefreshPose()

	// PoseMatrix returns the armature-space pose of a bone at the evaluated
	// frame. ok is false when the armature has no pose entry for the bone.
	PoseMatrix(armature, bone string) (m math.Mat4, ok bool)

	Vertices(mesh string) ([]Vertex, error)
	Faces(mesh string) ([]Face, error)
	VertexInfluences(mesh string, vertex int) ([]Influence, error)
}

// PoseScaler is implemented by sources that carry explicit pose-bone scale.
type PoseScaler interface {
	PoseScale(armature, bone string) (s math.Vec3, ok bool)
}

// Lister is implemented by sources that can enumerate their objects.
type Lister interface {
	ArmatureNames() []string
	MeshNames() []string
}

// FaceNormal returns the unit normal of the first three corners of a polygon,
// or the zero vector when it has fewer than three valid corners.
func FaceNormal(verts []Vertex, indices []int) math.Vec3 {
	if len(indices) < 3 {
		return math.Vec3{}
	}
	for _, i := range indices[:3] {
		if i < 0 || i >= len(verts) {
			return math.Vec3{}
		}
	}
	a := verts[indices[0]].Position
	b := verts[indices[1]].Position
	c := verts[indices[2]].Position
	return b.Sub(a).Cross(c.Sub(a)).Normalize()
}
