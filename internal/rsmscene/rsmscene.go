// Package rsmscene exposes a Ragnarok Online RSM model as a scene.Source.
//
// The model is one armature and one mesh, both called Options.Name. Every
// node is a bone whose rest pose is its hierarchy transform at time zero, and
// every vertex is bound with full weight to the node that owns it. Frame f
// is sampled at (f - StartFrame) * MsPerFrame milliseconds, looping over the
// model's animation length.
package rsmscene

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/avatara-export/internal/logger"
	"github.com/Faultbox/avatara-export/internal/scene"
	"github.com/Faultbox/avatara-export/pkg/encoding"
	"github.com/Faultbox/avatara-export/pkg/math"
	"github.com/Faultbox/avatara-export/pkg/rsm"
)

// Defaults for Options.
const (
	DefaultName       = "model"
	DefaultMsPerFrame = 40
	DefaultStartFrame = 1
)

// leafLength is the bone length used when no node in a chain has a child.
const leafLength = 1

// Options controls naming and frame timing.
type Options struct {
	Name       string // armature and mesh name
	MsPerFrame float32
	StartFrame int
	Logger     *zap.Logger
}

// Scene is a loaded RSM model.
type Scene struct {
	model *rsm.Model
	opts  Options
	log   *zap.Logger

	nodes  []*rsm.Node
	names  []string       // bone name per node
	index  map[string]int // bone name -> node
	parent []int
	order  []int // parents before children

	bones      []scene.BoneInfo
	vertices   []scene.Vertex
	faces      []scene.Face
	influences [][]scene.Influence

	frame int
	pose  []math.Mat4
	scale []math.Vec3
	rest  []math.Vec3 // keyed scale at time zero
}

// Open parses an RSM file. Name defaults to the file's base name.
func Open(path string, opts Options) (*Scene, error) {
	m, err := rsm.ParseFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	if opts.Name == "" {
		opts.Name = baseName(path)
	}
	return New(m, opts)
}

// Reader reads a file by path, such as an archive or a stack of them.
type Reader interface {
	Read(path string) ([]byte, error)
}

// Load reads the RSM at name through r. Name defaults to the file's base name.
func Load(r Reader, name string, opts Options) (*Scene, error) {
	data, err := r.Read(name)
	if err != nil {
		return nil, err
	}
	m, err := rsm.Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", name)
	}
	if opts.Name == "" {
		opts.Name = baseName(name)
	}
	return New(m, opts)
}

func baseName(path string) string {
	base := filepath.Base(strings.ReplaceAll(path, "\\", "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// New indexes a parsed model.
func New(m *rsm.Model, opts Options) (*Scene, error) {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.MsPerFrame <= 0 {
		opts.MsPerFrame = DefaultMsPerFrame
	}
	if opts.StartFrame == 0 {
		opts.StartFrame = DefaultStartFrame
	}
	if opts.Logger == nil {
		opts.Logger = logger.Log
	}
	if len(m.Nodes) == 0 {
		return nil, errors.New("model has no nodes")
	}

	s := &Scene{
		model: m,
		opts:  opts,
		log:   opts.Logger,
		frame: opts.StartFrame,
	}
	if err := s.indexNodes(); err != nil {
		return nil, err
	}
	s.buildBones()
	s.buildMesh()

	s.pose = make([]math.Mat4, len(s.nodes))
	s.scale = make([]math.Vec3, len(s.nodes))
	s.evaluate(0)

	s.log.Debug("RSM scene loaded",
		zap.String("name", opts.Name),
		zap.Stringer("version", m.Version),
		zap.Int("nodes", len(s.nodes)),
		zap.Int("vertices", len(s.vertices)),
		zap.Int("faces", len(s.faces)),
		zap.Bool("animated", m.Animated()),
	)
	return s, nil
}

// indexNodes names each node and orders parents before children. A node whose
// parent is missing or itself becomes a root. Parents are matched by the
// file's names, so a renamed node still adopts its children.
func (s *Scene) indexNodes() error {
	n := len(s.model.Nodes)
	s.nodes = make([]*rsm.Node, n)
	s.names = make([]string, n)
	s.index = make(map[string]int, n)
	s.parent = make([]int, n)

	byName := make(map[string]int, n)
	for i := range s.model.Nodes {
		node := &s.model.Nodes[i]
		s.nodes[i] = node
		name := node.Name
		_, dup := byName[name]
		if !dup && name != "" {
			byName[name] = i
		}
		// Bone names in the output files are ASCII.
		if dup || name == "" || !encoding.IsASCII(name) {
			name = fmt.Sprintf("node%d", i)
		}
		if _, dup := s.index[name]; dup {
			return errors.Errorf("duplicate node name %q", name)
		}
		s.names[i] = name
		s.index[name] = i
	}

	for i, node := range s.nodes {
		s.parent[i] = -1
		if p, ok := byName[node.Parent]; ok && p != i {
			s.parent[i] = p
		}
	}

	visited := make([]bool, n)
	var visit func(i int)
	visit = func(i int) {
		visited[i] = true
		s.order = append(s.order, i)
		for c := range s.nodes {
			if s.parent[c] == i {
				visit(c)
			}
		}
	}
	for i := range s.nodes {
		if s.parent[i] == -1 {
			visit(i)
		}
	}
	for i, ok := range visited {
		if !ok {
			return errors.Errorf("node %s is part of a parent cycle", s.names[i])
		}
	}
	return nil
}


// buildBones samples the hierarchy at time zero for the rest pose.
func (s *Scene) buildBones() {
	world := s.hierarchy(0)

	heads := make([]math.Vec3, len(s.nodes))
	for i := range s.nodes {
		heads[i] = world[i].Translation()
	}

	// A bone reaches to its first child; leaves inherit the nearest measured
	// ancestor's length.
	lengths := make([]float32, len(s.nodes))
	for _, i := range s.order {
		if p := s.parent[i]; p >= 0 && lengths[p] == 0 {
			lengths[p] = heads[i].Sub(heads[p]).Length()
		}
	}
	length := func(i int) float32 {
		for n := i; n >= 0; n = s.parent[n] {
			if lengths[n] > 0 {
				return lengths[n]
			}
		}
		return leafLength
	}

	s.rest = make([]math.Vec3, len(s.nodes))
	for i, node := range s.nodes {
		s.rest[i] = scaleAt(node, 0)
	}

	s.bones = make([]scene.BoneInfo, 0, len(s.nodes))
	for _, i := range s.order {
		info := scene.BoneInfo{
			Name:   s.names[i],
			Rest:   world[i],
			Length: length(i),
		}
		if p := s.parent[i]; p >= 0 {
			info.Parent = s.names[p]
		}
		s.bones = append(s.bones, info)
	}
}

// ArmatureNames returns the single armature.
func (s *Scene) ArmatureNames() []string { return []string{s.opts.Name} }

// MeshNames returns the single mesh.
func (s *Scene) MeshNames() []string { return []string{s.opts.Name} }

func (s *Scene) Bones(armature string) ([]scene.BoneInfo, error) {
	if armature != s.opts.Name {
		return nil, errors.Wrapf(scene.ErrArmatureNotFound, "%s", armature)
	}
	return append([]scene.BoneInfo(nil), s.bones...), nil
}

// WorldMatrix is the identity for the armature and mesh; the model's own
// coordinates are kept.
func (s *Scene) WorldMatrix(object string) (math.Mat4, error) {
	if object != s.opts.Name {
		return math.Mat4{}, errors.Wrapf(scene.ErrObjectNotFound, "%s", object)
	}
	return math.Identity(), nil
}

func (s *Scene) CurrentFrame() int { return s.frame }

func (s *Scene) SetCurrentFrame(frame int) { s.frame = frame }

// RefreshPose evaluates the node keys at the current frame.
func (s *Scene) RefreshPose() {
	s.evaluate(s.timeMs(s.frame))
}

// timeMs maps a frame onto the model's looping timeline.
func (s *Scene) timeMs(frame int) float32 {
	t := float32(frame-s.opts.StartFrame) * s.opts.MsPerFrame
	if n := float32(s.model.AnimLength); n > 0 {
		for t < 0 {
			t += n
		}
		for t >= n {
			t -= n
		}
	}
	return t
}

func (s *Scene) evaluate(timeMs float32) {
	world := s.hierarchy(timeMs)
	copy(s.pose, world)
	for i, node := range s.nodes {
		s.scale[i] = scaleAt(node, timeMs)
	}
}

func (s *Scene) PoseMatrix(armature, bone string) (math.Mat4, bool) {
	if armature != s.opts.Name {
		return math.Mat4{}, false
	}
	i, ok := s.index[bone]
	if !ok {
		return math.Mat4{}, false
	}
	return s.pose[i], true
}

// PoseScale reports the keyed scale of an animated node relative to its scale
// at time zero.
func (s *Scene) PoseScale(armature, bone string) (math.Vec3, bool) {
	if armature != s.opts.Name {
		return math.Vec3{}, false
	}
	i, ok := s.index[bone]
	if !ok || len(s.nodes[i].ScaleKeys) == 0 {
		return math.Vec3{}, false
	}
	return divide(s.scale[i], s.rest[i]), true
}

func divide(a, b math.Vec3) math.Vec3 {
	d := func(x, y float32) float32 {
		if y == 0 {
			return 1
		}
		return x / y
	}
	return math.Vec3{X: d(a.X, b.X), Y: d(a.Y, b.Y), Z: d(a.Z, b.Z)}
}

func (s *Scene) Vertices(mesh string) ([]scene.Vertex, error) {
	if mesh != s.opts.Name {
		return nil, errors.Wrapf(scene.ErrMeshNotFound, "%s", mesh)
	}
	return s.vertices, nil
}

func (s *Scene) Faces(mesh string) ([]scene.Face, error) {
	if mesh != s.opts.Name {
		return nil, errors.Wrapf(scene.ErrMeshNotFound, "%s", mesh)
	}
	return s.faces, nil
}

func (s *Scene) VertexInfluences(mesh string, vertex int) ([]scene.Influence, error) {
	if mesh != s.opts.Name {
		return nil, errors.Wrapf(scene.ErrMeshNotFound, "%s", mesh)
	}
	if vertex < 0 || vertex >= len(s.vertices) {
		return nil, errors.Wrapf(scene.ErrVertexRange, "%s vertex %d", mesh, vertex)
	}
	return s.influences[vertex], nil
}
