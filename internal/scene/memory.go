package scene

import (
	"fmt"
	"sort"

	"github.com/Faultbox/avatara-export/pkg/math"
)

// Memory is a Source held entirely in memory. A zero World or Rest matrix is
// treated as identity.
type Memory struct {
	Armatures map[string]*Armature
	Meshes    map[string]*Mesh

	frame     int
	evaluated int
	refreshes int
}

// Armature is an in-memory armature object.
type Armature struct {
	World math.Mat4
	Bones []BoneInfo

	// Pose holds per-bone keys relative to the rest pose. A nil Pose leaves every
	// bone in rest; a non-nil Pose without an entry for a bone has no pose bone for it.
	Pose map[string][]PoseKey
}

// PoseKey is a bone-space transform applied on top of the rest pose from Frame on.
// Keys of a bone are kept sorted by Frame.
type PoseKey struct {
	Frame     int
	Transform math.Mat4
	Scale     *math.Vec3
}

// Mesh is an in-memory mesh object.
type Mesh struct {
	World      math.Mat4
	Vertices   []Vertex
	Faces      []Face
	Influences [][]Influence // per vertex
}

// NewMemory returns an empty in-memory scene at frame 0.
func NewMemory() *Memory {
	return &Memory{
		Armatures: make(map[string]*Armature),
		Meshes:    make(map[string]*Mesh),
	}
}

// ArmatureNames lists armature names in sorted order.
func (m *Memory) ArmatureNames() []string {
	return sortedKeys(m.Armatures)
}

// MeshNames lists mesh names in sorted order.
func (m *Memory) MeshNames() []string {
	return sortedKeys(m.Meshes)
}

func sortedKeys[V any](objects map[string]V) []string {
	names := make([]string, 0, len(objects))
	for name := range objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Refreshes returns how many times RefreshPose was called.
func (m *Memory) Refreshes() int {
	return m.refreshes
}

func (m *Memory) Bones(armature string) ([]BoneInfo, error) {
	a, ok := m.Armatures[armature]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrArmatureNotFound, armature)
	}
	bones := make([]BoneInfo, len(a.Bones))
	for i, b := range a.Bones {
		b.Rest = orIdentity(b.Rest)
		bones[i] = b
	}
	return bones, nil
}

func (m *Memory) WorldMatrix(object string) (math.Mat4, error) {
	if a, ok := m.Armatures[object]; ok {
		return orIdentity(a.World), nil
	}
	if mesh, ok := m.Meshes[object]; ok {
		return orIdentity(mesh.World), nil
	}
	return math.Mat4{}, fmt.Errorf("%w: %s", ErrObjectNotFound, object)
}

func (m *Memory) CurrentFrame() int { return m.frame }

func (m *Memory) SetCurrentFrame(frame int) { m.frame = frame }

// RefreshPose evaluates the pose at the current frame. PoseMatrix reports the
// pose of the last refresh.
func (m *Memory) RefreshPose() {
	m.evaluated = m.frame
	m.refreshes++
}

func (m *Memory) PoseMatrix(armature, bone string) (math.Mat4, bool) {
	a, ok := m.Armatures[armature]
	if !ok {
		return math.Mat4{}, false
	}
	return a.poseMatrix(bone, m.evaluated, 0)
}

func (m *Memory) PoseScale(armature, bone string) (math.Vec3, bool) {
	a, ok := m.Armatures[armature]
	if !ok || a.Pose == nil {
		return math.Vec3{}, false
	}
	key, ok := keyAt(a.Pose[bone], m.evaluated)
	if !ok || key.Scale == nil {
		return math.Vec3{}, false
	}
	return *key.Scale, true
}

func (a *Armature) bone(name string) (BoneInfo, bool) {
	for _, b := range a.Bones {
		if b.Name == name {
			return b, true
		}
	}
	return BoneInfo{}, false
}

// poseMatrix composes parentPose · inverse(parentRest) · rest · key down the chain.
func (a *Armature) poseMatrix(name string, frame, depth int) (math.Mat4, bool) {
	b, ok := a.bone(name)
	if !ok || depth > len(a.Bones) {
		return math.Mat4{}, false
	}

	local := math.Identity()
	if a.Pose != nil {
		keys, ok := a.Pose[name]
		if !ok {
			return math.Mat4{}, false
		}
		if key, ok := keyAt(keys, frame); ok {
			local = orIdentity(key.Transform)
		}
	}

	rest := orIdentity(b.Rest)
	if b.Parent == "" {
		return rest.Mul(local), true
	}
	parent, ok := a.bone(b.Parent)
	if !ok {
		return rest.Mul(local), true
	}
	parentPose, ok := a.poseMatrix(b.Parent, frame, depth+1)
	if !ok {
		// The parent has no pose bone; hold it in rest.
		parentPose = orIdentity(parent.Rest)
	}
	return parentPose.Mul(orIdentity(parent.Rest).Inverse()).Mul(rest).Mul(local), true
}

// keyAt returns the last key at or before frame, or the first key when every
// key is later.
func keyAt(keys []PoseKey, frame int) (PoseKey, bool) {
	if len(keys) == 0 {
		return PoseKey{}, false
	}
	best := keys[0]
	for _, k := range keys {
		if k.Frame <= frame && (best.Frame > frame || k.Frame >= best.Frame) {
			best = k
		}
	}
	return best, true
}

func (m *Memory) mesh(name string) (*Mesh, error) {
	mesh, ok := m.Meshes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMeshNotFound, name)
	}
	return mesh, nil
}

func (m *Memory) Vertices(mesh string) ([]Vertex, error) {
	me, err := m.mesh(mesh)
	if err != nil {
		return nil, err
	}
	return me.Vertices, nil
}

func (m *Memory) Faces(mesh string) ([]Face, error) {
	me, err := m.mesh(mesh)
	if err != nil {
		return nil, err
	}
	return me.Faces, nil
}

func (m *Memory) VertexInfluences(mesh string, vertex int) ([]Influence, error) {
	me, err := m.mesh(mesh)
	if err != nil {
		return nil, err
	}
	if vertex < 0 || vertex >= len(me.Vertices) {
		return nil, fmt.Errorf("%w: %s vertex %d", ErrVertexRange, mesh, vertex)
	}
	if vertex >= len(me.Influences) {
		return nil, nil
	}
	return me.Influences[vertex], nil
}

func orIdentity(m math.Mat4) math.Mat4 {
	if m == (math.Mat4{}) {
		return math.Identity()
	}
	return m
}
