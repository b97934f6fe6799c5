// Package avatara reads and writes the Avatara MODEL and ANIMATION binary formats.
//
// Both formats start with an 8-byte tag and a 12-byte null-padded kind, followed by
// little-endian int32 counts and fixed-width records. Bone names occupy a 16-byte slot.
package avatara

import (
	"errors"

	"github.com/Faultbox/avatara-export/pkg/math"
)

// Format constants.
const (
	Tag           = "AVATARA\x00"
	KindModel     = "MODEL"
	KindAnimation = "ANIMATION"

	// Version is the version written by this package (head/tail/roll bone records).
	Version int32 = 1
	// VersionMatrix marks MODEL files whose bone records carry a bone-to-world matrix.
	VersionMatrix int32 = 2

	TagSize  = 8
	KindSize = 12 // the readers in use expect 12 bytes, not 16
	NameSize = 16

	ModelHeaderSize     = TagSize + KindSize + 7*4
	AnimationHeaderSize = TagSize + KindSize + 5*4
	BoneRecordSize      = 4 + NameSize + 7*4
	TriangleRecordSize  = 4*4 + 3*4 + 3*4 + 3*8
	KeyRecordSize       = 10 * 4
)

// Format errors.
var (
	ErrWrite              = errors.New("avatara: write failed")
	ErrInvalidModel       = errors.New("avatara: invalid model")
	ErrInvalidAnimation   = errors.New("avatara: invalid animation")
	ErrInvalidTag         = errors.New("avatara: invalid tag: expected 'AVATARA'")
	ErrInvalidKind        = errors.New("avatara: unexpected file kind")
	ErrUnsupportedVersion = errors.New("avatara: unsupported version")
	ErrTruncated          = errors.New("avatara: truncated data")
)

// Color is an RGBA vertex colour.
type Color struct {
	R, G, B, A uint8
}

// DefaultColor is written for faces without a colour channel.
var DefaultColor = Color{R: 100, G: 100, B: 100, A: 255}

// Influence binds a vertex to a bone by hierarchy index.
type Influence struct {
	Bone   int32
	Weight float32
}

// Vertex is a skinned mesh vertex.
type Vertex struct {
	Position   math.Vec3
	Normal     math.Vec3
	Influences []Influence
}

// Triangle is a mesh face record.
type Triangle struct {
	Indices [3]int32
	Smooth  bool
	Normal  math.Vec3
	Colors  [3]Color
	UVs     [3]math.Vec2
}

// Bone is a rest-pose bone record. Head and tail are relative to the tail of the
// parent bone, in the parent's bone space; the root is in model space.
type Bone struct {
	Parent int32 // -1 for the root
	Name   string
	Head   math.Vec3
	Tail   math.Vec3
	Roll   float32 // radians
}

// MatrixBone is a version 2 bone record as written by the 3ds Max and Maya exporters.
type MatrixBone struct {
	Parent int32
	Name   string
	// BoneToWorld is a 3x4 matrix stored column by column.
	BoneToWorld [12]float32
	Length      float32
}

// Matrix expands the stored 3x4 matrix to a Mat4.
func (b MatrixBone) Matrix() math.Mat4 {
	m := math.Identity()
	for col := 0; col < 4; col++ {
		for row := 0; row < 3; row++ {
			m[col*4+row] = b.BoneToWorld[col*3+row]
		}
	}
	return m
}

// Model is the content of a MODEL file.
type Model struct {
	Version   int32
	Vertices  []Vertex
	Triangles []Triangle
	Bones     []Bone

	// MatrixBones is populated instead of Bones for version 2 files.
	MatrixBones []MatrixBone
}

// Key is one bone's pose at one frame, relative to its rest pose.
type Key struct {
	Rotation    math.Quat
	Translation math.Vec3
	Scale       math.Vec3
}

// IdentityKey is the key of a bone that sits in its rest pose.
func IdentityKey() Key {
	return Key{Rotation: math.QuatIdentity(), Scale: math.Vec3One}
}

// Frame holds one key per bone, in hierarchy order.
type Frame struct {
	Time int32 // milliseconds since the first frame
	Keys []Key
}

// Animation is the content of an ANIMATION file.
type Animation struct {
	Version int32
	Bones   []Bone
	Frames  []Frame
}

// Duration returns the time of the last frame in milliseconds.
func (a *Animation) Duration() int32 {
	if len(a.Frames) == 0 {
		return 0
	}
	return a.Frames[len(a.Frames)-1].Time
}
