package gltfscene

import (
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/avatara-export/internal/scene"
	"github.com/Faultbox/avatara-export/pkg/avatara"
	"github.com/Faultbox/avatara-export/pkg/math"
)

// mesh is a node's mesh with all triangle primitives merged.
type mesh struct {
	node       int
	vertices   []scene.Vertex
	faces      []scene.Face
	influences [][]scene.Influence // nil for unskinned meshes
}

func (s *Scene) loadMeshes() error {
	for i, node := range s.doc.Nodes {
		mi, ok := index(node.Mesh)
		if !ok {
			continue
		}
		if mi >= len(s.doc.Meshes) {
			return errors.Errorf("node %d: mesh %d out of range", i, mi)
		}
		name := s.nodeName(i)
		if _, dup := s.meshes[name]; dup {
			return errors.Errorf("duplicate mesh node name %q", name)
		}

		var joints []uint32
		if si, ok := index(node.Skin); ok {
			if si >= len(s.doc.Skins) {
				return errors.Errorf("node %d: skin %d out of range", i, si)
			}
			joints = s.doc.Skins[si].Joints
		}

		m := &mesh{node: i}
		for pi, p := range s.doc.Meshes[mi].Primitives {
			if p.Mode != gltf.PrimitiveTriangles {
				s.log.Warn("skipping non-triangle primitive",
					zap.String("mesh", name), zap.Int("primitive", pi))
				continue
			}
			if err := s.appendPrimitive(m, p, joints); err != nil {
				return errors.Wrapf(err, "mesh %s primitive %d", name, pi)
			}
		}
		s.meshes[name] = m
		s.meshNames = append(s.meshNames, name)
	}
	return nil
}

func (s *Scene) attribute(p *gltf.Primitive, name string) (*gltf.Accessor, bool, error) {
	i, ok := p.Attributes[name]
	if !ok {
		return nil, false, nil
	}
	acr, err := s.accessor(int(i))
	return acr, err == nil, err
}

func (s *Scene) appendPrimitive(m *mesh, p *gltf.Primitive, joints []uint32) error {
	acr, ok, err := s.attribute(p, "POSITION")
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("primitive has no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(s.doc, acr, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to read positions")
	}

	var normals [][3]float32
	if acr, ok, err := s.attribute(p, "NORMAL"); err != nil {
		return err
	} else if ok {
		if normals, err = modeler.ReadNormal(s.doc, acr, nil); err != nil {
			return errors.Wrapf(err, "failed to read normals")
		}
	}

	var uvs [][2]float32
	if acr, ok, err := s.attribute(p, "TEXCOORD_0"); err != nil {
		return err
	} else if ok {
		if uvs, err = modeler.ReadTextureCoord(s.doc, acr, nil); err != nil {
			return errors.Wrapf(err, "failed to read texture coordinates")
		}
	}

	var colors [][4]uint8
	if acr, ok, err := s.attribute(p, "COLOR_0"); err != nil {
		return err
	} else if ok {
		if colors, err = modeler.ReadColor(s.doc, acr, nil); err != nil {
			return errors.Wrapf(err, "failed to read colors")
		}
	}

	if len(normals) < len(positions) {
		normals = nil
	}
	if len(uvs) < len(positions) {
		uvs = nil
	}
	if len(colors) < len(positions) {
		colors = nil
	}

	influences, err := s.readInfluences(p, joints, len(positions))
	if err != nil {
		return err
	}

	var indices []uint32
	if ii, ok := index(p.Indices); ok {
		acr, err := s.accessor(ii)
		if err != nil {
			return err
		}
		if indices, err = modeler.ReadIndices(s.doc, acr, nil); err != nil {
			return errors.Wrapf(err, "failed to read indices")
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	base := len(m.vertices)
	for i, pos := range positions {
		v := scene.Vertex{Position: math.Vec3{X: pos[0], Y: pos[1], Z: pos[2]}}
		if normals != nil {
			v.Normal = math.Vec3{X: normals[i][0], Y: normals[i][1], Z: normals[i][2]}
		}
		m.vertices = append(m.vertices, v)
	}
	if influences != nil {
		if m.influences == nil {
			m.influences = make([][]scene.Influence, base)
		}
		m.influences = append(m.influences, influences...)
	} else if m.influences != nil {
		m.influences = append(m.influences, make([][]scene.Influence, len(positions))...)
	}

	for k := 0; k+2 < len(indices); k += 3 {
		corners := indices[k : k+3]
		f := scene.Face{Indices: make([]int, 3), Smooth: normals != nil}
		for c, idx := range corners {
			if int(idx) >= len(positions) {
				return errors.Errorf("index %d out of range of %d vertices", idx, len(positions))
			}
			f.Indices[c] = base + int(idx)
		}
		f.Normal = scene.FaceNormal(m.vertices, f.Indices)

		if colors != nil {
			f.Colors = make([]avatara.Color, 3)
			for c, idx := range corners {
				col := colors[idx]
				f.Colors[c] = avatara.Color{R: col[0], G: col[1], B: col[2], A: col[3]}
			}
		}
		if uvs != nil {
			f.UVs = make([]math.Vec2, 3)
			for c, idx := range corners {
				// glTF puts the texture origin top-left.
				f.UVs[c] = math.Vec2{X: uvs[idx][0], Y: 1 - uvs[idx][1]}
			}
		}
		m.faces = append(m.faces, f)
	}
	return nil
}

// readInfluences maps JOINTS_0/WEIGHTS_0 onto joint names, dropping zero weights.
func (s *Scene) readInfluences(p *gltf.Primitive, joints []uint32, count int) ([][]scene.Influence, error) {
	jacr, hasJoints, err := s.attribute(p, "JOINTS_0")
	if err != nil {
		return nil, err
	}
	wacr, hasWeights, err := s.attribute(p, "WEIGHTS_0")
	if err != nil {
		return nil, err
	}
	if !hasJoints || !hasWeights || joints == nil {
		return nil, nil
	}

	ji, err := modeler.ReadJoints(s.doc, jacr, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read joints")
	}
	wi, err := modeler.ReadWeights(s.doc, wacr, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read weights")
	}
	if len(ji) < count || len(wi) < count {
		return nil, errors.Errorf("skin attributes cover %d/%d of %d vertices", len(ji), len(wi), count)
	}

	out := make([][]scene.Influence, count)
	for v := 0; v < count; v++ {
		for c := 0; c < 4; c++ {
			w := wi[v][c]
			if w == 0 {
				continue
			}
			j := int(ji[v][c])
			if j >= len(joints) {
				return nil, errors.Errorf("vertex %d: joint %d out of range", v, j)
			}
			out[v] = append(out[v], scene.Influence{Bone: s.nodeName(int(joints[j])), Weight: w})
		}
	}
	return out, nil
}
