// Package rsm reads Ragnarok Online RSM 1.x models: a tree of rigid nodes,
// each with its own mesh and rotation, position or scale keyframes.
package rsm

import (
	"errors"
	"fmt"
)

// RSM errors.
var (
	ErrInvalidMagic       = errors.New("rsm: invalid magic, expected GRSM")
	ErrUnsupportedVersion = errors.New("rsm: unsupported version")
	ErrTruncated          = errors.New("rsm: truncated data")
	ErrInvalidCount       = errors.New("rsm: invalid element count")
)

// Magic opens every RSM file.
const Magic = "GRSM"

// Version is the file format version.
type Version struct {
	Major uint8
	Minor uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast reports whether v is major.minor or newer.
func (v Version) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// Shading is the model-wide shading mode.
type Shading int32

const (
	ShadingNone   Shading = 0
	ShadingFlat   Shading = 1
	ShadingSmooth Shading = 2
)

func (s Shading) String() string {
	switch s {
	case ShadingNone:
		return "None"
	case ShadingFlat:
		return "Flat"
	case ShadingSmooth:
		return "Smooth"
	}
	return fmt.Sprintf("Unknown(%d)", int32(s))
}

// TexCoord is a texture coordinate with its vertex colour. Files before 1.2
// carry no colour; those read as opaque white.
type TexCoord struct {
	Color [4]uint8
	U, V  float32
}

// Face is a triangle indexing the node's vertices and texture coordinates.
type Face struct {
	Vertices    [3]uint16
	TexCoords   [3]uint16
	Texture     uint16
	TwoSided    bool
	SmoothGroup int32
}

// PosKey, RotKey and ScaleKey are keyframes at Frame milliseconds.
type PosKey struct {
	Frame    int32
	Position [3]float32
}

type RotKey struct {
	Frame int32
	Quat  [4]float32 // x, y, z, w
}

type ScaleKey struct {
	Frame int32
	Scale [3]float32
}

// Node is one rigid part of the model.
//
// Children inherit Position · Rotation · Scale. Offset and Matrix place the
// node's own vertices and are not inherited.
type Node struct {
	Name     string
	Parent   string
	Textures []int32

	Matrix   [9]float32 // column-major 3x3
	Offset   [3]float32
	Position [3]float32
	RotAngle float32 // radians, ignored when RotKeys is set
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices  [][3]float32
	TexCoords []TexCoord
	Faces     []Face

	PosKeys   []PosKey
	RotKeys   []RotKey
	ScaleKeys []ScaleKey
}

// Model is a parsed RSM file.
type Model struct {
	Version    Version
	AnimLength int32 // milliseconds
	Shading    Shading
	Alpha      float32
	Textures   []string
	Root       string
	Nodes      []Node
}

// Node returns the node called name, or nil.
func (m *Model) Node(name string) *Node {
	for i := range m.Nodes {
		if m.Nodes[i].Name == name {
			return &m.Nodes[i]
		}
	}
	return nil
}

// Children returns the nodes whose parent is name, in file order.
func (m *Model) Children(name string) []*Node {
	var out []*Node
	for i := range m.Nodes {
		if n := &m.Nodes[i]; n.Parent == name && n.Name != name {
			out = append(out, n)
		}
	}
	return out
}

// Animated reports whether any node changes over time. A single key is a
// static pose.
func (m *Model) Animated() bool {
	if m.AnimLength <= 0 {
		return false
	}
	for i := range m.Nodes {
		n := &m.Nodes[i]
		if len(n.RotKeys) > 1 || len(n.PosKeys) > 1 || len(n.ScaleKeys) > 1 {
			return true
		}
	}
	return false
}
