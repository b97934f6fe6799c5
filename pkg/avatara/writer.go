package avatara

import (
	"encoding/binary"
	"fmt"
	"io"
)

// writer keeps the first error so a record sequence can be written without
// checking every field.
type writer struct {
	w   io.Writer
	err error
}

func (w *writer) write(what string, v any) {
	if w.err != nil {
		return
	}
	if err := binary.Write(w.w, binary.LittleEndian, v); err != nil {
		w.err = fmt.Errorf("%w: %s: %w", ErrWrite, what, err)
	}
}

// WriteModel encodes m to w in one forward pass.
// A zero Version is written as Version.
func WriteModel(w io.Writer, m *Model) error {
	if err := ValidateModel(m); err != nil {
		return err
	}
	version := m.Version
	if version == 0 {
		version = Version
	}

	boneCount := len(m.Bones)
	if version == VersionMatrix {
		boneCount = len(m.MatrixBones)
	}

	bw := &writer{w: w}
	bw.write("header", modelHeader{
		Tag:           tagBytes(),
		Kind:          kindBytes(KindModel),
		Version:       version,
		VertexCount:   int32(len(m.Vertices)),
		TriangleCount: int32(len(m.Triangles)),
		BoneCount:     int32(boneCount),
	})

	for i, v := range m.Vertices {
		bw.write(fmt.Sprintf("vertex %d", i), vertexRecord{
			Position:       v.Position.Array(),
			Normal:         v.Normal.Array(),
			InfluenceCount: int32(len(v.Influences)),
		})
		if len(v.Influences) > 0 {
			recs := make([]influenceRecord, len(v.Influences))
			for j, inf := range v.Influences {
				recs[j] = influenceRecord{Bone: inf.Bone, Weight: inf.Weight}
			}
			bw.write(fmt.Sprintf("vertex %d influences", i), recs)
		}
	}

	for i, t := range m.Triangles {
		bw.write(fmt.Sprintf("triangle %d", i), newTriangleRecord(t))
	}

	if version == VersionMatrix {
		for _, b := range m.MatrixBones {
			bw.write("bone "+b.Name, matrixBoneRecord{
				Parent:      b.Parent,
				Name:        nameBytes(b.Name),
				BoneToWorld: b.BoneToWorld,
				Length:      b.Length,
			})
		}
		return bw.err
	}

	writeBones(bw, m.Bones)
	return bw.err
}

// WriteAnimation encodes a to w in one forward pass.
func WriteAnimation(w io.Writer, a *Animation) error {
	if err := ValidateAnimation(a); err != nil {
		return err
	}
	version := a.Version
	if version == 0 {
		version = Version
	}

	bw := &writer{w: w}
	bw.write("header", animationHeader{
		Tag:        tagBytes(),
		Kind:       kindBytes(KindAnimation),
		Version:    version,
		BoneCount:  int32(len(a.Bones)),
		FrameCount: int32(len(a.Frames)),
	})

	writeBones(bw, a.Bones)

	for i, f := range a.Frames {
		bw.write(fmt.Sprintf("frame %d time", i), f.Time)
		keys := make([]keyRecord, len(f.Keys))
		for j, k := range f.Keys {
			keys[j] = newKeyRecord(k)
		}
		bw.write(fmt.Sprintf("frame %d keys", i), keys)
	}
	return bw.err
}

func writeBones(bw *writer, bones []Bone) {
	for _, b := range bones {
		bw.write("bone "+b.Name, newBoneRecord(b))
	}
}
