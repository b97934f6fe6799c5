package rsm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const (
	nameSize     = 40
	reservedSize = 16
)

// reader keeps the first decoding error; later reads are no-ops.
type reader struct {
	r   *bytes.Reader
	err error
}

func (r *reader) read(what string, v any) {
	if r.err != nil {
		return
	}
	if err := binary.Read(r.r, binary.LittleEndian, v); err != nil {
		r.err = fmt.Errorf("%w: %s", ErrTruncated, what)
	}
}

// count reads an element count and checks that the remaining data can hold
// that many records of at least size bytes.
func (r *reader) count(what string, size int) int {
	var n int32
	r.read(what+" count", &n)
	if r.err != nil {
		return 0
	}
	if n < 0 || int64(n)*int64(size) > int64(r.r.Len()) {
		r.err = fmt.Errorf("%w: %d %s", ErrInvalidCount, n, what)
		return 0
	}
	return int(n)
}

func (r *reader) name(what string) string {
	var buf [nameSize]byte
	r.read(what, &buf)
	return decodeName(buf[:])
}

func (r *reader) skip(what string, n int) {
	if r.err != nil {
		return
	}
	if r.r.Len() < n {
		r.err = fmt.Errorf("%w: %s", ErrTruncated, what)
		return
	}
	r.r.Seek(int64(n), io.SeekCurrent)
}

// On-disk records whose layout depends on the version.
type (
	texCoordRecord struct {
		Color [4]uint8
		U, V  float32
	}
	plainTexCoordRecord struct {
		U, V float32
	}
	faceRecord struct {
		Vertices  [3]uint16
		TexCoords [3]uint16
		Texture   uint16
		Padding   uint16
		TwoSided  int32
	}
	smoothFaceRecord struct {
		Vertices    [3]uint16
		TexCoords   [3]uint16
		Texture     uint16
		Padding     uint16
		TwoSided    int32
		SmoothGroup int32
	}
)

// Parse decodes an RSM 1.x file.
func Parse(data []byte) (*Model, error) {
	if len(data) < len(Magic)+2 {
		return nil, ErrTruncated
	}
	if string(data[:len(Magic)]) != Magic {
		return nil, ErrInvalidMagic
	}

	r := &reader{r: bytes.NewReader(data[len(Magic):])}
	m := &Model{Alpha: 1}
	r.read("version", &m.Version)
	if m.Version.Major != 1 || m.Version.Minor < 1 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, m.Version)
	}

	r.read("animation length", &m.AnimLength)
	r.read("shading", &m.Shading)
	if m.Version.AtLeast(1, 4) {
		var alpha uint8
		r.read("alpha", &alpha)
		m.Alpha = float32(alpha) / 255
	}
	r.skip("reserved", reservedSize)

	m.Textures = make([]string, r.count("textures", nameSize))
	for i := range m.Textures {
		m.Textures[i] = r.name("texture name")
	}
	m.Root = r.name("root node name")

	m.Nodes = make([]Node, r.count("nodes", 2*nameSize))
	for i := range m.Nodes {
		readNode(r, m.Version, &m.Nodes[i])
		if r.err != nil {
			return nil, fmt.Errorf("node %d: %w", i, r.err)
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	// Volume boxes may follow; nothing here uses them.
	return m, nil
}

func readNode(r *reader, v Version, n *Node) {
	n.Name = r.name("node name")
	n.Parent = r.name("parent name")

	n.Textures = make([]int32, r.count("node textures", 4))
	r.read("node textures", n.Textures)

	r.read("matrix", &n.Matrix)
	r.read("offset", &n.Offset)
	r.read("position", &n.Position)
	r.read("rotation angle", &n.RotAngle)
	r.read("rotation axis", &n.RotAxis)
	r.read("scale", &n.Scale)

	n.Vertices = make([][3]float32, r.count("vertices", 12))
	r.read("vertices", n.Vertices)

	n.TexCoords = readTexCoords(r, v)
	n.Faces = readFaces(r, v)

	if !v.AtLeast(1, 5) {
		n.PosKeys = make([]PosKey, r.count("position keys", 16))
		r.read("position keys", n.PosKeys)
	}
	n.RotKeys = make([]RotKey, r.count("rotation keys", 20))
	r.read("rotation keys", n.RotKeys)
	if v.AtLeast(1, 5) {
		n.ScaleKeys = make([]ScaleKey, r.count("scale keys", 16))
		r.read("scale keys", n.ScaleKeys)
	}
}

func readTexCoords(r *reader, v Version) []TexCoord {
	if !v.AtLeast(1, 2) {
		recs := make([]plainTexCoordRecord, r.count("texture coordinates", 8))
		r.read("texture coordinates", recs)
		out := make([]TexCoord, len(recs))
		for i, rec := range recs {
			out[i] = TexCoord{Color: [4]uint8{255, 255, 255, 255}, U: rec.U, V: rec.V}
		}
		return out
	}
	recs := make([]texCoordRecord, r.count("texture coordinates", 12))
	r.read("texture coordinates", recs)
	out := make([]TexCoord, len(recs))
	for i, rec := range recs {
		out[i] = TexCoord(rec)
	}
	return out
}

func readFaces(r *reader, v Version) []Face {
	if !v.AtLeast(1, 2) {
		recs := make([]faceRecord, r.count("faces", 20))
		r.read("faces", recs)
		out := make([]Face, len(recs))
		for i, rec := range recs {
			out[i] = Face{
				Vertices:  rec.Vertices,
				TexCoords: rec.TexCoords,
				Texture:   rec.Texture,
				TwoSided:  rec.TwoSided != 0,
			}
		}
		return out
	}
	recs := make([]smoothFaceRecord, r.count("faces", 24))
	r.read("faces", recs)
	out := make([]Face, len(recs))
	for i, rec := range recs {
		out[i] = Face{
			Vertices:    rec.Vertices,
			TexCoords:   rec.TexCoords,
			Texture:     rec.Texture,
			TwoSided:    rec.TwoSided != 0,
			SmoothGroup: rec.SmoothGroup,
		}
	}
	return out
}

// ParseFile reads and decodes an RSM file.
func ParseFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSM file: %w", err)
	}
	return Parse(data)
}
