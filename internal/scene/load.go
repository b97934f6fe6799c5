package scene

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/avatara-export/pkg/avatara"
	"github.com/Faultbox/avatara-export/pkg/math"
)

// File is the YAML description of an in-memory scene.
type File struct {
	Frame     int                     `yaml:"frame"`
	Armatures map[string]ArmatureFile `yaml:"armatures"`
	Meshes    map[string]MeshFile     `yaml:"meshes"`
}

// Transform is either a column-major matrix or a translation/rotation/scale triple.
type Transform struct {
	Matrix      []float32   `yaml:"matrix,omitempty"`
	Translation *[3]float32 `yaml:"translation,omitempty"`
	Rotation    *[4]float32 `yaml:"rotation,omitempty"` // x, y, z, w
	Scale       *[3]float32 `yaml:"scale,omitempty"`
}

// ArmatureFile describes an armature object.
type ArmatureFile struct {
	World Transform                `yaml:"world"`
	Bones []BoneFile               `yaml:"bones"`
	Pose  map[string][]PoseKeyFile `yaml:"pose,omitempty"`
}

// BoneFile describes one bone. Rest is in armature space.
type BoneFile struct {
	Name     string    `yaml:"name"`
	Parent   string    `yaml:"parent,omitempty"`
	Children []string  `yaml:"children,omitempty"`
	Rest     Transform `yaml:"rest"`
	Length   float32   `yaml:"length"`
	Roll     float32   `yaml:"roll"`
}

// PoseKeyFile is one pose key of a bone, relative to its rest pose.
type PoseKeyFile struct {
	Frame     int `yaml:"frame"`
	Transform `yaml:",inline"`
}

// MeshFile describes a mesh object.
type MeshFile struct {
	World    Transform    `yaml:"world"`
	Vertices []VertexFile `yaml:"vertices"`
	Faces    []FaceFile   `yaml:"faces"`
}

// VertexFile describes a vertex and its bone weights.
type VertexFile struct {
	Position   [3]float32      `yaml:"position"`
	Normal     [3]float32      `yaml:"normal"`
	Influences []InfluenceFile `yaml:"influences,omitempty"`
}

// InfluenceFile is a bone weight.
type InfluenceFile struct {
	Bone   string  `yaml:"bone"`
	Weight float32 `yaml:"weight"`
}

// FaceFile describes a polygon. A missing normal is computed from the first three corners.
type FaceFile struct {
	Indices []int        `yaml:"indices"`
	Smooth  bool         `yaml:"smooth"`
	Normal  *[3]float32  `yaml:"normal,omitempty"`
	Colors  [][4]uint8   `yaml:"colors,omitempty"`
	UVs     [][2]float32 `yaml:"uvs,omitempty"`
}

// Mat4 composes the transform. An empty transform is identity.
func (t Transform) Mat4() (math.Mat4, error) {
	if len(t.Matrix) > 0 {
		if len(t.Matrix) != 16 {
			return math.Mat4{}, fmt.Errorf("matrix needs 16 values, got %d", len(t.Matrix))
		}
		var m math.Mat4
		copy(m[:], t.Matrix)
		return m, nil
	}

	tr := math.Vec3{}
	if t.Translation != nil {
		tr = math.Vec3From(*t.Translation)
	}
	r := math.QuatIdentity()
	if t.Rotation != nil {
		q := *t.Rotation
		r = math.Quat{X: q[0], Y: q[1], Z: q[2], W: q[3]}
	}
	s := math.Vec3One
	if t.Scale != nil {
		s = math.Vec3From(*t.Scale)
	}
	return math.FromTRS(tr, r, s), nil
}

// LoadFile reads a YAML scene description.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene file: %w", err)
	}
	return Parse(data)
}

// Parse builds an in-memory scene from YAML.
func Parse(data []byte) (*Memory, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing scene: %w", err)
	}
	return f.Build()
}

// Build converts the description into a Memory scene.
func (f *File) Build() (*Memory, error) {
	m := NewMemory()
	m.frame = f.Frame
	m.evaluated = f.Frame

	for name, af := range f.Armatures {
		a, err := af.build()
		if err != nil {
			return nil, fmt.Errorf("armature %s: %w", name, err)
		}
		m.Armatures[name] = a
	}
	for name, mf := range f.Meshes {
		mesh, err := mf.build()
		if err != nil {
			return nil, fmt.Errorf("mesh %s: %w", name, err)
		}
		m.Meshes[name] = mesh
	}
	return m, nil
}

func (af ArmatureFile) build() (*Armature, error) {
	world, err := af.World.Mat4()
	if err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	a := &Armature{World: world, Bones: make([]BoneInfo, len(af.Bones))}

	for i, bf := range af.Bones {
		rest, err := bf.Rest.Mat4()
		if err != nil {
			return nil, fmt.Errorf("bone %s rest: %w", bf.Name, err)
		}
		a.Bones[i] = BoneInfo{
			Name:     bf.Name,
			Parent:   bf.Parent,
			Children: bf.Children,
			Rest:     rest,
			Length:   bf.Length,
			Roll:     bf.Roll,
		}
	}

	if af.Pose != nil {
		a.Pose = make(map[string][]PoseKey, len(af.Pose))
		for bone, keys := range af.Pose {
			out := make([]PoseKey, len(keys))
			for i, k := range keys {
				tr, err := k.Transform.Mat4()
				if err != nil {
					return nil, fmt.Errorf("pose %s frame %d: %w", bone, k.Frame, err)
				}
				out[i] = PoseKey{Frame: k.Frame, Transform: tr}
				if k.Scale != nil {
					s := math.Vec3From(*k.Scale)
					out[i].Scale = &s
				}
			}
			a.Pose[bone] = out
		}
	}
	return a, nil
}

func (mf MeshFile) build() (*Mesh, error) {
	world, err := mf.World.Mat4()
	if err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	mesh := &Mesh{
		World:      world,
		Vertices:   make([]Vertex, len(mf.Vertices)),
		Faces:      make([]Face, len(mf.Faces)),
		Influences: make([][]Influence, len(mf.Vertices)),
	}

	for i, vf := range mf.Vertices {
		mesh.Vertices[i] = Vertex{Position: math.Vec3From(vf.Position), Normal: math.Vec3From(vf.Normal)}
		for _, inf := range vf.Influences {
			mesh.Influences[i] = append(mesh.Influences[i], Influence{Bone: inf.Bone, Weight: inf.Weight})
		}
	}

	for i, ff := range mf.Faces {
		face := Face{Indices: ff.Indices, Smooth: ff.Smooth}
		if ff.Normal != nil {
			face.Normal = math.Vec3From(*ff.Normal)
		} else {
			face.Normal = FaceNormal(mesh.Vertices, ff.Indices)
		}
		for _, c := range ff.Colors {
			face.Colors = append(face.Colors, avatara.Color{R: c[0], G: c[1], B: c[2], A: c[3]})
		}
		for _, uv := range ff.UVs {
			face.UVs = append(face.UVs, math.Vec2{X: uv[0], Y: uv[1]})
		}
		mesh.Faces[i] = face
	}
	return mesh, nil
}
