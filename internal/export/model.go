package export

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/avatara-export/internal/scene"
	"github.com/Faultbox/avatara-export/internal/skeleton"
	"github.com/Faultbox/avatara-export/pkg/avatara"
	"github.com/Faultbox/avatara-export/pkg/math"
)

// ExportModel encodes the mesh, its skin bindings and the rest pose of the
// skeleton below req.RootBone.
func (e *Exporter) ExportModel(req Request) (*Result, error) {
	if req.Mesh == "" {
		return nil, fmt.Errorf("%w: no mesh", ErrInvalidRequest)
	}
	e.log.Debug("exporting model",
		zap.String("mesh", req.Mesh),
		zap.String("armature", req.Armature),
		zap.String("root", req.RootBone),
	)

	sk, err := e.buildSkeleton(req)
	if err != nil {
		return nil, err
	}

	var report Report
	vertices, err := e.vertices(req.Mesh, sk.hierarchy, &report)
	if err != nil {
		return nil, err
	}
	triangles, err := e.triangles(req.Mesh, len(vertices), &report)
	if err != nil {
		return nil, err
	}

	model := &avatara.Model{
		Version:   avatara.Version,
		Vertices:  vertices,
		Triangles: triangles,
		Bones:     sk.bones,
	}

	var buf bytes.Buffer
	if err := avatara.WriteModel(&buf, model); err != nil {
		return nil, err
	}

	e.log.Info("model exported",
		zap.String("mesh", req.Mesh),
		zap.Int("vertices", len(vertices)),
		zap.Int("triangles", len(triangles)),
		zap.Int("bones", len(sk.bones)),
		zap.Object("report", report),
	)
	return &Result{Data: buf.Bytes(), Report: report, Model: model}, nil
}

func (e *Exporter) vertices(mesh string, h *skeleton.Hierarchy, report *Report) ([]avatara.Vertex, error) {
	verts, err := e.src.Vertices(mesh)
	if err != nil {
		return nil, fmt.Errorf("reading vertices of %s: %w", mesh, err)
	}

	out := make([]avatara.Vertex, len(verts))
	for i, v := range verts {
		infs, err := e.src.VertexInfluences(mesh, i)
		if err != nil {
			return nil, fmt.Errorf("reading influences of %s vertex %d: %w", mesh, i, err)
		}

		var bound []avatara.Influence
		for _, inf := range infs {
			idx, err := h.IndexOf(inf.Bone)
			if err != nil {
				report.DroppedInfluences++
				e.log.Debug("dropping influence outside skeleton",
					zap.Int("vertex", i), zap.String("bone", inf.Bone), zap.Float32("weight", inf.Weight))
				continue
			}
			bound = append(bound, avatara.Influence{Bone: idx, Weight: inf.Weight})
		}

		out[i] = avatara.Vertex{Position: v.Position, Normal: v.Normal, Influences: bound}
	}
	return out, nil
}

func (e *Exporter) triangles(mesh string, vertexCount int, report *Report) ([]avatara.Triangle, error) {
	faces, err := e.src.Faces(mesh)
	if err != nil {
		return nil, fmt.Errorf("reading faces of %s: %w", mesh, err)
	}

	out := make([]avatara.Triangle, 0, len(faces))
	for i, f := range faces {
		if len(f.Indices) != 3 {
			report.SkippedFaces++
			e.log.Warn("skipping non-triangle face",
				zap.String("mesh", mesh), zap.Int("face", i), zap.Int("corners", len(f.Indices)))
			continue
		}

		t := avatara.Triangle{Smooth: f.Smooth, Normal: f.Normal}
		for c, idx := range f.Indices {
			if idx < 0 || idx >= vertexCount {
				return nil, fmt.Errorf("%w: %s face %d references vertex %d of %d",
					ErrInvalidRequest, mesh, i, idx, vertexCount)
			}
			t.Indices[c] = int32(idx)
		}

		if !fillColors(&t, f) {
			report.DefaultedColors++
		}
		if !fillUVs(&t, f) {
			report.DefaultedUVs++
		}
		out = append(out, t)
	}
	return out, nil
}

// fillColors copies the face colours or writes the default; false means defaulted.
func fillColors(t *avatara.Triangle, f scene.Face) bool {
	if len(f.Colors) < 3 {
		t.Colors = [3]avatara.Color{avatara.DefaultColor, avatara.DefaultColor, avatara.DefaultColor}
		return false
	}
	copy(t.Colors[:], f.Colors)
	return true
}

// fillUVs copies the face texture coordinates or writes zeros; false means defaulted.
func fillUVs(t *avatara.Triangle, f scene.Face) bool {
	if len(f.UVs) < 3 {
		t.UVs = [3]math.Vec2{}
		return false
	}
	copy(t.UVs[:], f.UVs)
	return true
}
