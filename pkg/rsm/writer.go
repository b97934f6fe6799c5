package rsm

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// MarshalBinary encodes the model in its Version's layout. Names longer
// than 39 bytes after EUC-KR encoding are rejected.
func (m *Model) MarshalBinary() ([]byte, error) {
	if m.Version.Major != 1 || m.Version.Minor < 1 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, m.Version)
	}
	w := &writer{}
	w.buf.WriteString(Magic)
	w.write(m.Version)
	w.write(m.AnimLength)
	w.write(m.Shading)
	if m.Version.AtLeast(1, 4) {
		w.write(uint8(clamp01(m.Alpha) * 255))
	}
	w.write([reservedSize]byte{})

	w.write(int32(len(m.Textures)))
	for _, t := range m.Textures {
		w.name(t)
	}
	w.name(m.Root)

	w.write(int32(len(m.Nodes)))
	for i := range m.Nodes {
		writeNode(w, m.Version, &m.Nodes[i])
	}
	if w.err != nil {
		return nil, w.err
	}
	// Empty volume box list.
	w.write(int32(0))
	return w.buf.Bytes(), nil
}

type writer struct {
	buf bytes.Buffer
	err error
}

func (w *writer) write(v any) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(&w.buf, binary.LittleEndian, v)
}

func (w *writer) name(s string) {
	b := EncodeName(s)
	if len(b) >= nameSize {
		if w.err == nil {
			w.err = fmt.Errorf("rsm: name %q exceeds %d bytes", s, nameSize-1)
		}
		return
	}
	var buf [nameSize]byte
	copy(buf[:], b)
	w.write(buf)
}

func writeNode(w *writer, v Version, n *Node) {
	w.name(n.Name)
	w.name(n.Parent)
	w.write(int32(len(n.Textures)))
	w.write(n.Textures)
	w.write(n.Matrix)
	w.write(n.Offset)
	w.write(n.Position)
	w.write(n.RotAngle)
	w.write(n.RotAxis)
	w.write(n.Scale)

	w.write(int32(len(n.Vertices)))
	w.write(n.Vertices)

	w.write(int32(len(n.TexCoords)))
	for _, tc := range n.TexCoords {
		if v.AtLeast(1, 2) {
			w.write(texCoordRecord(tc))
		} else {
			w.write(plainTexCoordRecord{U: tc.U, V: tc.V})
		}
	}

	w.write(int32(len(n.Faces)))
	for _, f := range n.Faces {
		var twoSided int32
		if f.TwoSided {
			twoSided = 1
		}
		if v.AtLeast(1, 2) {
			w.write(smoothFaceRecord{
				Vertices:    f.Vertices,
				TexCoords:   f.TexCoords,
				Texture:     f.Texture,
				TwoSided:    twoSided,
				SmoothGroup: f.SmoothGroup,
			})
		} else {
			w.write(faceRecord{
				Vertices:  f.Vertices,
				TexCoords: f.TexCoords,
				Texture:   f.Texture,
				TwoSided:  twoSided,
			})
		}
	}

	if !v.AtLeast(1, 5) {
		w.write(int32(len(n.PosKeys)))
		w.write(n.PosKeys)
	}
	w.write(int32(len(n.RotKeys)))
	w.write(n.RotKeys)
	if v.AtLeast(1, 5) {
		w.write(int32(len(n.ScaleKeys)))
		w.write(n.ScaleKeys)
	}
}

func clamp01(f float32) float32 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
