package rsmscene

import (
	"go.uber.org/zap"

	"github.com/Faultbox/avatara-export/internal/scene"
	"github.com/Faultbox/avatara-export/pkg/avatara"
	"github.com/Faultbox/avatara-export/pkg/math"
	"github.com/Faultbox/avatara-export/pkg/rsm"
)

// degenerateArea is the cross-product length below which a face is dropped.
const degenerateArea = 1e-5

// buildMesh places every node's vertices at time zero and binds each one to
// its node. Two-sided faces get a reversed copy.
func (s *Scene) buildMesh() {
	world := s.hierarchy(0)
	smooth := s.model.Shading == rsm.ShadingSmooth

	var invalid, degenerate int
	for i, node := range s.nodes {
		base := len(s.vertices)
		m := vertexMatrix(world[i], node)
		bind := []scene.Influence{{Bone: s.names[i], Weight: 1}}
		for _, v := range node.Vertices {
			s.vertices = append(s.vertices, scene.Vertex{Position: m.TransformPoint(math.Vec3From(v))})
			s.influences = append(s.influences, bind)
		}

		for _, f := range node.Faces {
			if !inRange(f.Vertices, len(node.Vertices)) {
				invalid++
				continue
			}
			idx := []int{base + int(f.Vertices[0]), base + int(f.Vertices[1]), base + int(f.Vertices[2])}
			a := s.vertices[idx[0]].Position
			cross := s.vertices[idx[1]].Position.Sub(a).Cross(s.vertices[idx[2]].Position.Sub(a))
			if cross.Length() < degenerateArea {
				degenerate++
				continue
			}

			face := scene.Face{
				Indices: idx,
				Smooth:  smooth,
				Normal:  cross.Normalize(),
			}
			if inRange(f.TexCoords, len(node.TexCoords)) {
				for _, t := range f.TexCoords {
					tc := node.TexCoords[t]
					face.Colors = append(face.Colors, avatara.Color{R: tc.Color[0], G: tc.Color[1], B: tc.Color[2], A: tc.Color[3]})
					face.UVs = append(face.UVs, math.Vec2{X: tc.U, Y: tc.V})
				}
			}
			s.faces = append(s.faces, face)
			for _, v := range idx {
				s.vertices[v].Normal = s.vertices[v].Normal.Add(face.Normal)
			}

			if f.TwoSided {
				s.faces = append(s.faces, reversed(face))
			}
		}
	}

	for i := range s.vertices {
		s.vertices[i].Normal = s.vertices[i].Normal.Normalize()
	}
	if invalid > 0 || degenerate > 0 {
		s.log.Warn("dropped RSM faces",
			zap.Int("out_of_range", invalid),
			zap.Int("degenerate", degenerate),
		)
	}
}

func inRange(ids [3]uint16, n int) bool {
	for _, id := range ids {
		if int(id) >= n {
			return false
		}
	}
	return true
}

// reversed is the back side of f: opposite winding and normal.
func reversed(f scene.Face) scene.Face {
	b := scene.Face{
		Indices: []int{f.Indices[2], f.Indices[1], f.Indices[0]},
		Smooth:  f.Smooth,
		Normal:  f.Normal.Scale(-1),
	}
	if f.Colors != nil {
		b.Colors = []avatara.Color{f.Colors[2], f.Colors[1], f.Colors[0]}
		b.UVs = []math.Vec2{f.UVs[2], f.UVs[1], f.UVs[0]}
	}
	return b
}
