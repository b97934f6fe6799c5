// Package export builds Avatara MODEL and ANIMATION files from a scene.Source.
//
// An Exporter reads host state, derives the indexed skeleton with its rest and
// pose transforms, and encodes the result in memory. Recoverable problems are
// logged and counted in the Report; anything else aborts the export.
package export

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/avatara-export/internal/logger"
	"github.com/Faultbox/avatara-export/internal/scene"
	"github.com/Faultbox/avatara-export/internal/skeleton"
	"github.com/Faultbox/avatara-export/pkg/avatara"
	"github.com/Faultbox/avatara-export/pkg/math"
)

// Export errors.
var (
	ErrPoseBoneMissing = errors.New("pose bone missing")
	ErrInvalidRequest  = errors.New("invalid export request")
)

// Request selects the objects and frames to export.
type Request struct {
	Mesh       string // optional for animations
	Armature   string
	RootBone   string // empty picks the armature's only root
	Frames     []int  // ascending; repeated frames are exported again
	MsPerFrame int
}

// Result is an encoded file with the diagnostics gathered while building it.
type Result struct {
	Data   []byte
	Report Report

	Model     *avatara.Model
	Animation *avatara.Animation
}

// Exporter runs exports against one Source. It holds no per-export state, but
// the Source's frame cursor is shared, so exports must not overlap.
type Exporter struct {
	src scene.Source
	log *zap.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Exporter) { e.log = l }
}

// New creates an Exporter reading from src.
func New(src scene.Source, opts ...Option) *Exporter {
	e := &Exporter{src: src, log: logger.Log}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// skeletonData is what both exports derive from the armature.
type skeletonData struct {
	hierarchy *skeleton.Hierarchy
	bones     []avatara.Bone
}

// buildSkeleton indexes the exported subtree and derives its rest block.
func (e *Exporter) buildSkeleton(req Request) (*skeletonData, error) {
	if req.Armature == "" {
		return nil, fmt.Errorf("%w: no armature", ErrInvalidRequest)
	}
	infos, err := e.src.Bones(req.Armature)
	if err != nil {
		return nil, fmt.Errorf("reading bones of %s: %w", req.Armature, err)
	}

	root := req.RootBone
	if root == "" {
		roots := skeleton.Roots(infos)
		if len(roots) != 1 {
			return nil, fmt.Errorf("%w: armature %s has %d root bones, choose one of %v",
				skeleton.ErrBoneNotFound, req.Armature, len(roots), roots)
		}
		root = roots[0]
	}

	h, err := skeleton.Build(root, infos)
	if err != nil {
		return nil, fmt.Errorf("armature %s: %w", req.Armature, err)
	}

	space, err := e.exportSpace(req)
	if err != nil {
		return nil, err
	}

	rest, err := skeleton.RestPose(h, space)
	if err != nil {
		return nil, fmt.Errorf("armature %s: %w", req.Armature, err)
	}
	bones := make([]avatara.Bone, h.Len())
	for i, b := range h.Bones() {
		bones[i] = avatara.Bone{
			Parent: b.ParentIndex,
			Name:   b.Name,
			Head:   rest[i].Head,
			Tail:   rest[i].Tail,
			Roll:   rest[i].Roll,
		}
		if len(b.Name) > avatara.NameSize-1 {
			e.log.Warn("bone name truncated", zap.String("bone", b.Name), zap.Int("limit", avatara.NameSize-1))
		}
		e.log.Debug("rest bone",
			zap.Int32("index", b.Index),
			zap.String("bone", b.Name),
			zap.Int32("parent", b.ParentIndex),
			zap.Any("head", rest[i].Head),
			zap.Any("tail", rest[i].Tail),
			zap.Float32("roll", rest[i].Roll),
		)
	}
	return &skeletonData{hierarchy: h, bones: bones}, nil
}

// exportSpace is inverse(meshWorld) · armatureWorld, or the armature world
// alone when no mesh is named.
func (e *Exporter) exportSpace(req Request) (math.Mat4, error) {
	armWorld, err := e.src.WorldMatrix(req.Armature)
	if err != nil {
		return math.Mat4{}, fmt.Errorf("armature %s: %w", req.Armature, err)
	}
	if req.Mesh == "" {
		return armWorld, nil
	}
	meshWorld, err := e.src.WorldMatrix(req.Mesh)
	if err != nil {
		return math.Mat4{}, fmt.Errorf("mesh %s: %w", req.Mesh, err)
	}
	space, err := skeleton.ExportSpace(armWorld, meshWorld)
	if err != nil {
		return math.Mat4{}, fmt.Errorf("mesh %s: %w", req.Mesh, err)
	}
	return space, nil
}
