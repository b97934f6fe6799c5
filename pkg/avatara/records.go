package avatara

import "github.com/Faultbox/avatara-export/pkg/math"

// On-disk record layouts. encoding/binary packs these without padding.

type modelHeader struct {
	Tag           [TagSize]byte
	Kind          [KindSize]byte
	Version       int32
	VertexCount   int32
	TriangleCount int32
	BoneCount     int32
	Reserved      [3]int32
}

type animationHeader struct {
	Tag        [TagSize]byte
	Kind       [KindSize]byte
	Version    int32
	BoneCount  int32
	FrameCount int32
	Reserved   [2]int32
}

type vertexRecord struct {
	Position       [3]float32
	Normal         [3]float32
	InfluenceCount int32
}

type influenceRecord struct {
	Bone   int32
	Weight float32
}

type triangleRecord struct {
	Indices [3]int32
	Smooth  int32
	Normal  [3]float32
	Colors  [3][4]uint8
	UVs     [3][2]float32
}

type boneRecord struct {
	Parent int32
	Name   [NameSize]byte
	Head   [3]float32
	Tail   [3]float32
	Roll   float32
}

type matrixBoneRecord struct {
	Parent      int32
	Name        [NameSize]byte
	BoneToWorld [12]float32
	Length      float32
}

type keyRecord struct {
	Rotation    [4]float32
	Translation [3]float32
	Scale       [3]float32
}

func tagBytes() [TagSize]byte {
	var b [TagSize]byte
	copy(b[:], Tag)
	return b
}

func kindBytes(kind string) [KindSize]byte {
	var b [KindSize]byte
	copy(b[:], kind)
	return b
}

// nameBytes truncates name to NameSize-1 bytes and null-pads the slot.
func nameBytes(name string) [NameSize]byte {
	var b [NameSize]byte
	if len(name) > NameSize-1 {
		name = name[:NameSize-1]
	}
	copy(b[:], name)
	return b
}

// cString returns the bytes before the first null.
func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func newBoneRecord(b Bone) boneRecord {
	return boneRecord{
		Parent: b.Parent,
		Name:   nameBytes(b.Name),
		Head:   b.Head.Array(),
		Tail:   b.Tail.Array(),
		Roll:   b.Roll,
	}
}

func (r boneRecord) bone() Bone {
	return Bone{
		Parent: r.Parent,
		Name:   cString(r.Name[:]),
		Head:   math.Vec3From(r.Head),
		Tail:   math.Vec3From(r.Tail),
		Roll:   r.Roll,
	}
}

func newTriangleRecord(t Triangle) triangleRecord {
	r := triangleRecord{
		Indices: t.Indices,
		Normal:  t.Normal.Array(),
	}
	if t.Smooth {
		r.Smooth = 1
	}
	for i := 0; i < 3; i++ {
		c := t.Colors[i]
		r.Colors[i] = [4]uint8{c.R, c.G, c.B, c.A}
		r.UVs[i] = t.UVs[i].Array()
	}
	return r
}

func (r triangleRecord) triangle() Triangle {
	t := Triangle{
		Indices: r.Indices,
		Smooth:  r.Smooth != 0,
		Normal:  math.Vec3From(r.Normal),
	}
	for i := 0; i < 3; i++ {
		c := r.Colors[i]
		t.Colors[i] = Color{R: c[0], G: c[1], B: c[2], A: c[3]}
		t.UVs[i] = math.Vec2{X: r.UVs[i][0], Y: r.UVs[i][1]}
	}
	return t
}

func newKeyRecord(k Key) keyRecord {
	return keyRecord{
		Rotation:    k.Rotation.Array(),
		Translation: k.Translation.Array(),
		Scale:       k.Scale.Array(),
	}
}

func (r keyRecord) key() Key {
	return Key{
		Rotation:    math.Quat{X: r.Rotation[0], Y: r.Rotation[1], Z: r.Rotation[2], W: r.Rotation[3]},
		Translation: math.Vec3From(r.Translation),
		Scale:       math.Vec3From(r.Scale),
	}
}
