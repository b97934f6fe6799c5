package scene

import (
	"errors"
	"testing"

	"github.com/Faultbox/avatara-export/pkg/math"
)

// chainScene builds Root -> Spine standing along +Y, with Spine bent at frame 10.
func chainScene() *Memory {
	m := NewMemory()
	m.Armatures["Rig"] = &Armature{
		World: math.Translate(0, 0, 5),
		Bones: []BoneInfo{
			{Name: "Root", Rest: math.Identity(), Length: 1},
			{Name: "Spine", Parent: "Root", Rest: math.Translate(0, 1, 0), Length: 2},
		},
		Pose: map[string][]PoseKey{
			"Root": {{Frame: 0, Transform: math.Identity()}},
			"Spine": {
				{Frame: 0, Transform: math.Identity()},
				{Frame: 10, Transform: math.RotateZ(0.5)},
			},
		},
	}
	return m
}

func TestMemory_PoseMatrixAtRest(t *testing.T) {
	m := chainScene()
	for _, bone := range []string{"Root", "Spine"} {
		pose, ok := m.PoseMatrix("Rig", bone)
		if !ok {
			t.Fatalf("expected pose for %s", bone)
		}
		a := m.Armatures["Rig"]
		b, _ := a.bone(bone)
		if !pose.ApproxEqual(b.Rest, 1e-6) {
			t.Errorf("%s: pose %v, want rest %v", bone, pose, b.Rest)
		}
	}
}

func TestMemory_RefreshPose(t *testing.T) {
	m := chainScene()
	m.SetCurrentFrame(12)

	stale, _ := m.PoseMatrix("Rig", "Spine")
	if !stale.ApproxEqual(math.Translate(0, 1, 0), 1e-6) {
		t.Errorf("expected rest pose before RefreshPose, got %v", stale)
	}

	m.RefreshPose()
	if m.Refreshes() != 1 {
		t.Errorf("expected 1 refresh, got %d", m.Refreshes())
	}
	got, ok := m.PoseMatrix("Rig", "Spine")
	if !ok {
		t.Fatal("expected pose for Spine")
	}
	want := math.Translate(0, 1, 0).Mul(math.RotateZ(0.5))
	if !got.ApproxEqual(want, 1e-6) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMemory_ChildFollowsParent(t *testing.T) {
	m := chainScene()
	m.Armatures["Rig"].Pose["Root"] = []PoseKey{{Frame: 0, Transform: math.Translate(3, 0, 0)}}
	m.RefreshPose()

	spine, _ := m.PoseMatrix("Rig", "Spine")
	if got := spine.Translation(); !got.ApproxEqual(math.Vec3{X: 3, Y: 1}, 1e-6) {
		t.Errorf("expected spine head at (3,1,0), got %v", got)
	}
}

func TestMemory_MissingPoseBone(t *testing.T) {
	m := chainScene()
	delete(m.Armatures["Rig"].Pose, "Spine")
	if _, ok := m.PoseMatrix("Rig", "Spine"); ok {
		t.Error("expected no pose for a bone without pose entry")
	}
	if _, ok := m.PoseMatrix("Rig", "Nope"); ok {
		t.Error("expected no pose for an unknown bone")
	}
	if _, ok := m.PoseMatrix("Other", "Root"); ok {
		t.Error("expected no pose for an unknown armature")
	}
}

func TestMemory_NilPoseMeansRest(t *testing.T) {
	m := chainScene()
	m.Armatures["Rig"].Pose = nil
	m.SetCurrentFrame(10)
	m.RefreshPose()

	pose, ok := m.PoseMatrix("Rig", "Spine")
	if !ok {
		t.Fatal("expected pose")
	}
	if !pose.ApproxEqual(math.Translate(0, 1, 0), 1e-6) {
		t.Errorf("expected rest, got %v", pose)
	}
}

func TestKeyAt(t *testing.T) {
	keys := []PoseKey{{Frame: 5}, {Frame: 10}, {Frame: 20}}
	tests := []struct {
		frame int
		want  int
	}{
		{1, 5},
		{5, 5},
		{9, 5},
		{10, 10},
		{19, 10},
		{100, 20},
	}
	for _, tt := range tests {
		got, ok := keyAt(keys, tt.frame)
		if !ok || got.Frame != tt.want {
			t.Errorf("keyAt(%d) = %d, want %d", tt.frame, got.Frame, tt.want)
		}
	}
	if _, ok := keyAt(nil, 3); ok {
		t.Error("expected no key for empty track")
	}
}

func TestMemory_WorldMatrix(t *testing.T) {
	m := chainScene()
	m.Meshes["Body"] = &Mesh{}

	w, err := m.WorldMatrix("Rig")
	if err != nil {
		t.Fatal(err)
	}
	if w.Translation() != (math.Vec3{Z: 5}) {
		t.Errorf("unexpected armature world %v", w)
	}

	w, err = m.WorldMatrix("Body")
	if err != nil {
		t.Fatal(err)
	}
	if w != math.Identity() {
		t.Errorf("expected zero world to read as identity, got %v", w)
	}

	if _, err := m.WorldMatrix("Ghost"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestMemory_VertexInfluences(t *testing.T) {
	m := NewMemory()
	m.Meshes["Body"] = &Mesh{
		Vertices:   []Vertex{{}, {}},
		Influences: [][]Influence{{{Bone: "Root", Weight: 1}}},
	}

	infs, err := m.VertexInfluences("Body", 0)
	if err != nil || len(infs) != 1 {
		t.Errorf("expected one influence, got %v (%v)", infs, err)
	}
	infs, err = m.VertexInfluences("Body", 1)
	if err != nil || len(infs) != 0 {
		t.Errorf("expected no influences, got %v (%v)", infs, err)
	}
	if _, err := m.VertexInfluences("Body", 2); !errors.Is(err, ErrVertexRange) {
		t.Errorf("expected ErrVertexRange, got %v", err)
	}
	if _, err := m.Vertices("Head"); !errors.Is(err, ErrMeshNotFound) {
		t.Errorf("expected ErrMeshNotFound, got %v", err)
	}
}

func TestMemory_PoseScale(t *testing.T) {
	m := chainScene()
	s := math.Vec3{X: 2, Y: 2, Z: 2}
	m.Armatures["Rig"].Pose["Root"][0].Scale = &s

	got, ok := m.PoseScale("Rig", "Root")
	if !ok || got != s {
		t.Errorf("PoseScale(Root) = %v, %v; want %v, true", got, ok, s)
	}
	if _, ok := m.PoseScale("Rig", "Spine"); ok {
		t.Error("expected no explicit scale for Spine")
	}
}
