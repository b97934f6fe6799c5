// Package gltfscene exposes a glTF 2.0 document as a scene.Source.
//
// Skins are armatures and their joints are bones. Nodes carrying a mesh are
// meshes. One animation drives the pose; frame f is sampled at
// (f - StartFrame) / FrameRate seconds.
package gltfscene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/avatara-export/internal/logger"
	"github.com/Faultbox/avatara-export/internal/scene"
	"github.com/Faultbox/avatara-export/pkg/encoding"
	"github.com/Faultbox/avatara-export/pkg/math"
)

// ErrAnimationNotFound is returned when the requested animation is absent.
var ErrAnimationNotFound = errors.New("animation not found")

// Defaults for Options.
const (
	DefaultFrameRate  = 25
	DefaultStartFrame = 1
)

// Options controls how frames map onto animation time.
type Options struct {
	FrameRate  float32 // frames per second
	StartFrame int     // frame sampled at time zero
	Animation  string  // empty selects the first animation
	Logger     *zap.Logger
}

// Scene is a loaded glTF document.
type Scene struct {
	doc  *gltf.Document
	opts Options
	log  *zap.Logger

	names     []string
	parents   []int
	restLocal []mgl32.Mat4
	restWorld []mgl32.Mat4
	order     []int // parents before children

	armatures     map[string]*armature
	armatureNames []string
	meshes        map[string]*mesh
	meshNames     []string

	tracks map[int][]*track

	frame     int
	evaluated []mgl32.Mat4
	scale     map[int]mgl32.Vec3
}

// Open loads a .gltf or .glb file.
func Open(path string, opts Options) (*Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	return New(doc, opts)
}

// New indexes an already decoded document.
func New(doc *gltf.Document, opts Options) (*Scene, error) {
	if opts.FrameRate <= 0 {
		opts.FrameRate = DefaultFrameRate
	}
	if opts.StartFrame == 0 {
		opts.StartFrame = DefaultStartFrame
	}
	if opts.Logger == nil {
		opts.Logger = logger.Log
	}

	s := &Scene{
		doc:       doc,
		opts:      opts,
		log:       opts.Logger,
		armatures: make(map[string]*armature),
		meshes:    make(map[string]*mesh),
		frame:     opts.StartFrame,
	}
	if err := s.indexNodes(); err != nil {
		return nil, err
	}
	if err := s.loadArmatures(); err != nil {
		return nil, err
	}
	if err := s.loadMeshes(); err != nil {
		return nil, err
	}
	if err := s.loadAnimation(); err != nil {
		return nil, err
	}

	s.evaluated = append([]mgl32.Mat4(nil), s.restWorld...)
	s.log.Debug("glTF scene loaded",
		zap.Int("nodes", len(doc.Nodes)),
		zap.Strings("armatures", s.armatureNames),
		zap.Strings("meshes", s.meshNames),
		zap.Int("animated_nodes", len(s.tracks)),
	)
	return s, nil
}

func (s *Scene) nodeName(i int) string {
	return s.names[i]
}

// indexNodes records each node's parent and rest transforms.
func (s *Scene) indexNodes() error {
	n := len(s.doc.Nodes)
	s.parents = make([]int, n)
	s.restLocal = make([]mgl32.Mat4, n)
	s.restWorld = make([]mgl32.Mat4, n)
	s.names = make([]string, n)
	for i := range s.parents {
		s.parents[i] = -1
	}

	for i, node := range s.doc.Nodes {
		// Bone names in the output files are ASCII.
		s.names[i] = node.Name
		if node.Name == "" || !encoding.IsASCII(node.Name) {
			s.names[i] = fmt.Sprintf("node%d", i)
		}
		if node.Name != "" && s.names[i] != node.Name {
			s.log.Warn("renamed non-ASCII node", zap.String("node", node.Name), zap.String("name", s.names[i]))
		}
		s.restLocal[i] = nodeMatrix(node)
		for _, c := range node.Children {
			child := int(c)
			if child >= n {
				return errors.Errorf("node %d: child %d out of range", i, child)
			}
			if s.parents[child] != -1 {
				return errors.Errorf("node %d has two parents", child)
			}
			s.parents[child] = i
		}
	}

	visited := make([]bool, n)
	var visit func(i int)
	visit = func(i int) {
		visited[i] = true
		s.order = append(s.order, i)
		for _, c := range s.doc.Nodes[i].Children {
			visit(int(c))
		}
	}
	for i := range s.doc.Nodes {
		if s.parents[i] == -1 {
			visit(i)
		}
	}
	for i, ok := range visited {
		if !ok {
			return errors.Errorf("node %d is part of a cycle", i)
		}
	}

	for _, i := range s.order {
		s.restWorld[i] = s.parentWorld(s.restWorld, i).Mul4(s.restLocal[i])
	}
	return nil
}

func (s *Scene) parentWorld(world []mgl32.Mat4, i int) mgl32.Mat4 {
	if p := s.parents[i]; p >= 0 {
		return world[p]
	}
	return mgl32.Ident4()
}

// nodeMatrix is the node's local transform, from its matrix when set and
// from translation, rotation and scale otherwise.
func nodeMatrix(n *gltf.Node) mgl32.Mat4 {
	if m := mgl32.Mat4(n.MatrixOrDefault()); m != mgl32.Ident4() {
		return m
	}
	return compose(n.TranslationOrDefault(), n.RotationOrDefault(), n.ScaleOrDefault())
}

// compose builds translation · rotation · scale; r is x, y, z, w.
func compose(t [3]float32, r [4]float32, sc [3]float32) mgl32.Mat4 {
	q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}.Normalize()
	return mgl32.Translate3D(t[0], t[1], t[2]).
		Mul4(q.Mat4()).
		Mul4(mgl32.Scale3D(sc[0], sc[1], sc[2]))
}

func toMat4(m mgl32.Mat4) math.Mat4 { return math.Mat4(m) }

// index reads a glTF index property, which is a plain or optional uint32
// depending on the property.
func index(v any) (int, bool) {
	switch i := v.(type) {
	case uint32:
		return int(i), true
	case *uint32:
		if i == nil {
			return 0, false
		}
		return int(*i), true
	case int:
		return i, true
	case *int:
		if i == nil {
			return 0, false
		}
		return *i, true
	}
	return 0, false
}

func (s *Scene) accessor(i int) (*gltf.Accessor, error) {
	if i < 0 || i >= len(s.doc.Accessors) {
		return nil, errors.Errorf("accessor %d out of range", i)
	}
	return s.doc.Accessors[i], nil
}

// ArmatureNames lists skins in document order.
func (s *Scene) ArmatureNames() []string { return s.armatureNames }

// MeshNames lists mesh nodes in document order.
func (s *Scene) MeshNames() []string { return s.meshNames }

func (s *Scene) Bones(name string) ([]scene.BoneInfo, error) {
	a, ok := s.armatures[name]
	if !ok {
		return nil, errors.Wrapf(scene.ErrArmatureNotFound, "%s", name)
	}
	return append([]scene.BoneInfo(nil), a.bones...), nil
}

// WorldMatrix returns the rest world transform of an armature or mesh node.
func (s *Scene) WorldMatrix(object string) (math.Mat4, error) {
	if a, ok := s.armatures[object]; ok {
		return toMat4(a.restWorld(s)), nil
	}
	if m, ok := s.meshes[object]; ok {
		return toMat4(s.restWorld[m.node]), nil
	}
	return math.Mat4{}, errors.Wrapf(scene.ErrObjectNotFound, "%s", object)
}

func (s *Scene) CurrentFrame() int { return s.frame }

func (s *Scene) SetCurrentFrame(frame int) { s.frame = frame }

// RefreshPose samples the animation at the current frame.
func (s *Scene) RefreshPose() {
	t := float32(s.frame-s.opts.StartFrame) / s.opts.FrameRate
	s.evaluate(t)
}

// PoseMatrix returns the evaluated joint transform in armature space.
func (s *Scene) PoseMatrix(armature, bone string) (math.Mat4, bool) {
	a, ok := s.armatures[armature]
	if !ok {
		return math.Mat4{}, false
	}
	node, ok := a.joint[bone]
	if !ok {
		return math.Mat4{}, false
	}
	space := mgl32.Ident4()
	if a.node >= 0 {
		space = s.evaluated[a.node].Inv()
	}
	return toMat4(space.Mul4(s.evaluated[node])), true
}

// PoseScale reports the sampled scale of an animated joint relative to its rest scale.
func (s *Scene) PoseScale(armature, bone string) (math.Vec3, bool) {
	a, ok := s.armatures[armature]
	if !ok {
		return math.Vec3{}, false
	}
	node, ok := a.joint[bone]
	if !ok {
		return math.Vec3{}, false
	}
	sc, ok := s.scale[node]
	if !ok {
		return math.Vec3{}, false
	}
	return math.Vec3{X: sc[0], Y: sc[1], Z: sc[2]}, true
}

func (s *Scene) Vertices(name string) ([]scene.Vertex, error) {
	m, ok := s.meshes[name]
	if !ok {
		return nil, errors.Wrapf(scene.ErrMeshNotFound, "%s", name)
	}
	return m.vertices, nil
}

func (s *Scene) Faces(name string) ([]scene.Face, error) {
	m, ok := s.meshes[name]
	if !ok {
		return nil, errors.Wrapf(scene.ErrMeshNotFound, "%s", name)
	}
	return m.faces, nil
}

func (s *Scene) VertexInfluences(name string, vertex int) ([]scene.Influence, error) {
	m, ok := s.meshes[name]
	if !ok {
		return nil, errors.Wrapf(scene.ErrMeshNotFound, "%s", name)
	}
	if vertex < 0 || vertex >= len(m.vertices) {
		return nil, errors.Wrapf(scene.ErrVertexRange, "%s vertex %d", name, vertex)
	}
	if m.influences == nil {
		return nil, nil
	}
	return m.influences[vertex], nil
}
