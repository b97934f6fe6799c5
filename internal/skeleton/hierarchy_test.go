package skeleton

import (
	"errors"
	"testing"

	"github.com/Faultbox/avatara-export/internal/scene"
)

func treeBones() []scene.BoneInfo {
	return []scene.BoneInfo{
		{Name: "Hips", Children: []string{"Root"}},
		{Name: "Root", Parent: "Hips", Children: []string{"ArmL", "Neck"}},
		{Name: "ArmL", Parent: "Root", Children: []string{"HandL", "ElbowL"}},
		{Name: "HandL", Parent: "ArmL"},
		{Name: "ElbowL", Parent: "ArmL"},
		{Name: "Neck", Parent: "Root"},
	}
}

func TestBuild_PreOrder(t *testing.T) {
	h, err := Build("Root", treeBones())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	wantNames := []string{"Root", "ArmL", "HandL", "ElbowL", "Neck"}
	wantParents := []int32{-1, 0, 1, 1, 0}
	if h.Len() != len(wantNames) {
		t.Fatalf("expected %d bones, got %d", len(wantNames), h.Len())
	}

	roots := 0
	for i, b := range h.Bones() {
		if b.Name != wantNames[i] {
			t.Errorf("bone %d: expected %s, got %s", i, wantNames[i], b.Name)
		}
		if b.ParentIndex != wantParents[i] {
			t.Errorf("bone %s: expected parent %d, got %d", b.Name, wantParents[i], b.ParentIndex)
		}
		if b.Index != int32(i) {
			t.Errorf("bone %s: expected index %d, got %d", b.Name, i, b.Index)
		}
		if b.ParentIndex == -1 {
			roots++
		} else if b.ParentIndex >= b.Index {
			t.Errorf("bone %s: parent index %d not below own index %d", b.Name, b.ParentIndex, b.Index)
		}
	}
	if roots != 1 {
		t.Errorf("expected exactly one root, got %d", roots)
	}
	if h.Root().Name != "Root" {
		t.Errorf("expected root Root, got %s", h.Root().Name)
	}
}

func TestBuild_DerivedChildren(t *testing.T) {
	bones := treeBones()
	for i := range bones {
		bones[i].Children = nil
	}

	h, err := Build("Root", bones)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	// Listing order: HandL before ElbowL.
	idx, _ := h.IndexOf("ElbowL")
	if idx != 3 {
		t.Errorf("expected ElbowL at 3, got %d", idx)
	}
	if p, ok := h.Parent(int(idx)); !ok || p.Name != "ArmL" {
		t.Errorf("expected ElbowL parent ArmL, got %v", p.Name)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	a, _ := Build("Hips", treeBones())
	b, _ := Build("Hips", treeBones())
	for i := 0; i < a.Len(); i++ {
		if a.Bone(i).Name != b.Bone(i).Name || a.Bone(i).ParentIndex != b.Bone(i).ParentIndex {
			t.Errorf("bone %d differs between builds", i)
		}
	}
}

func TestBuild_Errors(t *testing.T) {
	cyclic := []scene.BoneInfo{
		{Name: "A", Children: []string{"B"}},
		{Name: "B", Children: []string{"A"}},
	}
	dangling := []scene.BoneInfo{
		{Name: "A", Children: []string{"Ghost"}},
	}

	tests := []struct {
		name  string
		root  string
		bones []scene.BoneInfo
		want  error
	}{
		{"missing root", "Spine", treeBones(), ErrBoneNotFound},
		{"empty armature", "Root", nil, ErrBoneNotFound},
		{"cycle", "A", cyclic, ErrBoneCycle},
		{"unknown child", "A", dangling, ErrUnknownBone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.root, tt.bones)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestIndexOf_Unknown(t *testing.T) {
	h, _ := Build("Root", treeBones())
	if _, err := h.IndexOf("Hips"); !errors.Is(err, ErrUnknownBone) {
		t.Errorf("expected ErrUnknownBone for a bone above the root, got %v", err)
	}
}

func TestRoots(t *testing.T) {
	bones := append(treeBones(), scene.BoneInfo{Name: "Prop"})
	roots := Roots(bones)
	if len(roots) != 2 || roots[0] != "Hips" || roots[1] != "Prop" {
		t.Errorf("expected [Hips Prop], got %v", roots)
	}
}
