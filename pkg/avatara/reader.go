package avatara

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/Faultbox/avatara-export/pkg/math"
)

const (
	vertexRecordSize     = 7 * 4
	influenceRecordSize  = 2 * 4
	matrixBoneRecordSize = 4 + NameSize + 13*4
)

// DetectKind validates the tag and returns the kind string of an Avatara file.
func DetectKind(data []byte) (string, error) {
	if len(data) < TagSize+KindSize {
		return "", ErrTruncated
	}
	if string(data[:TagSize]) != Tag {
		return "", ErrInvalidTag
	}
	return cString(data[TagSize : TagSize+KindSize]), nil
}

func checkKind(data []byte, want string) error {
	kind, err := DetectKind(data)
	if err != nil {
		return err
	}
	if kind != want {
		return fmt.Errorf("%w: expected %s, got %q", ErrInvalidKind, want, kind)
	}
	return nil
}

// ParseModel parses a MODEL file from raw bytes.
func ParseModel(data []byte) (*Model, error) {
	if err := checkKind(data, KindModel); err != nil {
		return nil, err
	}

	r := bytes.NewReader(data)
	var hdr modelHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncated)
	}
	if hdr.Version != Version && hdr.Version != VersionMatrix {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, hdr.Version)
	}
	if hdr.VertexCount < 0 || hdr.TriangleCount < 0 || hdr.BoneCount < 0 {
		return nil, fmt.Errorf("%w: negative count in header", ErrInvalidModel)
	}

	boneSize := BoneRecordSize
	if hdr.Version == VersionMatrix {
		boneSize = matrixBoneRecordSize
	}
	minSize := int64(hdr.VertexCount)*vertexRecordSize +
		int64(hdr.TriangleCount)*TriangleRecordSize +
		int64(hdr.BoneCount)*int64(boneSize)
	if minSize > int64(r.Len()) {
		return nil, fmt.Errorf("%w: header declares %d bytes of records, %d remain", ErrTruncated, minSize, r.Len())
	}

	m := &Model{
		Version:   hdr.Version,
		Vertices:  make([]Vertex, hdr.VertexCount),
		Triangles: make([]Triangle, hdr.TriangleCount),
	}

	for i := range m.Vertices {
		var rec vertexRecord
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("%w: reading vertex %d", ErrTruncated, i)
		}
		if rec.InfluenceCount < 0 {
			return nil, fmt.Errorf("%w: vertex %d has negative influence count", ErrInvalidModel, i)
		}
		if int64(rec.InfluenceCount)*influenceRecordSize > int64(r.Len()) {
			return nil, fmt.Errorf("%w: reading vertex %d influences", ErrTruncated, i)
		}
		v := Vertex{
			Position: math.Vec3From(rec.Position),
			Normal:   math.Vec3From(rec.Normal),
		}
		if rec.InfluenceCount > 0 {
			infs := make([]influenceRecord, rec.InfluenceCount)
			if err := binary.Read(r, binary.LittleEndian, infs); err != nil {
				return nil, fmt.Errorf("%w: reading vertex %d influences", ErrTruncated, i)
			}
			v.Influences = make([]Influence, len(infs))
			for j, inf := range infs {
				v.Influences[j] = Influence{Bone: inf.Bone, Weight: inf.Weight}
			}
		}
		m.Vertices[i] = v
	}

	for i := range m.Triangles {
		var rec triangleRecord
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("%w: reading triangle %d", ErrTruncated, i)
		}
		m.Triangles[i] = rec.triangle()
	}

	if hdr.Version == VersionMatrix {
		m.MatrixBones = make([]MatrixBone, hdr.BoneCount)
		for i := range m.MatrixBones {
			var rec matrixBoneRecord
			if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
				return nil, fmt.Errorf("%w: reading bone %d", ErrTruncated, i)
			}
			m.MatrixBones[i] = MatrixBone{
				Parent:      rec.Parent,
				Name:        cString(rec.Name[:]),
				BoneToWorld: rec.BoneToWorld,
				Length:      rec.Length,
			}
		}
		return m, nil
	}

	bones, err := readBones(r, int(hdr.BoneCount))
	if err != nil {
		return nil, err
	}
	m.Bones = bones
	return m, nil
}

// ParseModelFile parses a MODEL file from disk.
func ParseModelFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}
	return ParseModel(data)
}

// ParseAnimation parses an ANIMATION file from raw bytes.
func ParseAnimation(data []byte) (*Animation, error) {
	if err := checkKind(data, KindAnimation); err != nil {
		return nil, err
	}

	r := bytes.NewReader(data)
	var hdr animationHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncated)
	}
	if hdr.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, hdr.Version)
	}
	if hdr.BoneCount < 0 || hdr.FrameCount < 0 {
		return nil, fmt.Errorf("%w: negative count in header", ErrInvalidAnimation)
	}

	frameSize := int64(4) + int64(hdr.BoneCount)*KeyRecordSize
	minSize := int64(hdr.BoneCount)*BoneRecordSize + int64(hdr.FrameCount)*frameSize
	if minSize > int64(r.Len()) {
		return nil, fmt.Errorf("%w: header declares %d bytes of records, %d remain", ErrTruncated, minSize, r.Len())
	}

	bones, err := readBones(r, int(hdr.BoneCount))
	if err != nil {
		return nil, err
	}

	a := &Animation{
		Version: hdr.Version,
		Bones:   bones,
		Frames:  make([]Frame, hdr.FrameCount),
	}
	for i := range a.Frames {
		var f Frame
		if err := binary.Read(r, binary.LittleEndian, &f.Time); err != nil {
			return nil, fmt.Errorf("%w: reading frame %d time", ErrTruncated, i)
		}
		keys := make([]keyRecord, hdr.BoneCount)
		if err := binary.Read(r, binary.LittleEndian, keys); err != nil {
			return nil, fmt.Errorf("%w: reading frame %d keys", ErrTruncated, i)
		}
		f.Keys = make([]Key, len(keys))
		for j, k := range keys {
			f.Keys[j] = k.key()
		}
		a.Frames[i] = f
	}
	return a, nil
}

// ParseAnimationFile parses an ANIMATION file from disk.
func ParseAnimationFile(path string) (*Animation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading animation file: %w", err)
	}
	return ParseAnimation(data)
}

func readBones(r *bytes.Reader, n int) ([]Bone, error) {
	recs := make([]boneRecord, n)
	if err := binary.Read(r, binary.LittleEndian, recs); err != nil {
		return nil, fmt.Errorf("%w: reading bones", ErrTruncated)
	}
	bones := make([]Bone, n)
	for i, rec := range recs {
		bones[i] = rec.bone()
	}
	return bones, nil
}
