package avatara

import (
	"fmt"
	"math"
)

// ValidateModel checks the invariants the MODEL layout relies on: counts fit in
// int32, parents precede children, and every index refers to an existing record.
func ValidateModel(m *Model) error {
	if m == nil {
		return fmt.Errorf("%w: nil model", ErrInvalidModel)
	}
	switch m.Version {
	case 0, Version:
		if len(m.MatrixBones) > 0 {
			return fmt.Errorf("%w: matrix bones require version %d", ErrInvalidModel, VersionMatrix)
		}
	case VersionMatrix:
		if len(m.Bones) > 0 {
			return fmt.Errorf("%w: version %d stores matrix bones only", ErrInvalidModel, VersionMatrix)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, m.Version)
	}

	if err := checkCount("vertex", len(m.Vertices)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}
	if err := checkCount("triangle", len(m.Triangles)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}

	boneCount := len(m.Bones)
	for i, b := range m.Bones {
		if err := checkBone(i, b.Parent, b.Name); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidModel, err)
		}
	}
	if m.Version == VersionMatrix {
		boneCount = len(m.MatrixBones)
		for i, b := range m.MatrixBones {
			if err := checkBone(i, b.Parent, b.Name); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidModel, err)
			}
		}
	}

	for i, v := range m.Vertices {
		if err := checkCount("influence", len(v.Influences)); err != nil {
			return fmt.Errorf("%w: vertex %d: %w", ErrInvalidModel, i, err)
		}
		for _, inf := range v.Influences {
			if inf.Bone < 0 || int(inf.Bone) >= boneCount {
				return fmt.Errorf("%w: vertex %d: influence bone %d out of range [0,%d)",
					ErrInvalidModel, i, inf.Bone, boneCount)
			}
		}
	}

	for i, t := range m.Triangles {
		for _, idx := range t.Indices {
			if idx < 0 || int(idx) >= len(m.Vertices) {
				return fmt.Errorf("%w: triangle %d: vertex index %d out of range [0,%d)",
					ErrInvalidModel, i, idx, len(m.Vertices))
			}
		}
	}
	return nil
}

// ValidateAnimation checks bone ordering and that every frame has one key per bone.
func ValidateAnimation(a *Animation) error {
	if a == nil {
		return fmt.Errorf("%w: nil animation", ErrInvalidAnimation)
	}
	if a.Version != 0 && a.Version != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, a.Version)
	}
	if err := checkCount("frame", len(a.Frames)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAnimation, err)
	}
	for i, b := range a.Bones {
		if err := checkBone(i, b.Parent, b.Name); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidAnimation, err)
		}
	}
	for i, f := range a.Frames {
		if len(f.Keys) != len(a.Bones) {
			return fmt.Errorf("%w: frame %d has %d keys for %d bones",
				ErrInvalidAnimation, i, len(f.Keys), len(a.Bones))
		}
	}
	return nil
}

func checkCount(what string, n int) error {
	if n > math.MaxInt32 {
		return fmt.Errorf("%s count %d exceeds int32", what, n)
	}
	return nil
}

func checkBone(i int, parent int32, name string) error {
	if i > math.MaxInt32 {
		return fmt.Errorf("bone count exceeds int32")
	}
	if parent != -1 && (parent < 0 || int(parent) >= i) {
		return fmt.Errorf("bone %d (%s): parent index %d must be -1 or below %d", i, name, parent, i)
	}
	for j := 0; j < len(name); j++ {
		if name[j] >= 0x80 {
			return fmt.Errorf("bone %d: name %q is not ASCII", i, name)
		}
	}
	return nil
}
