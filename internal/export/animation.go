package export

import (
	"bytes"
	"fmt"
	stdmath "math"

	"go.uber.org/zap"

	"github.com/Faultbox/avatara-export/internal/scene"
	"github.com/Faultbox/avatara-export/internal/skeleton"
	"github.com/Faultbox/avatara-export/pkg/avatara"
	"github.com/Faultbox/avatara-export/pkg/math"
)

// ExportAnimation samples the skeleton below req.RootBone at every frame of
// req.Frames and encodes the keys relative to the rest pose.
//
// The host frame cursor is moved while sampling and put back before returning,
// whether or not the export succeeds.
func (e *Exporter) ExportAnimation(req Request) (*Result, error) {
	if err := checkFrames(req.Frames, req.MsPerFrame); err != nil {
		return nil, err
	}
	e.log.Debug("exporting animation",
		zap.String("armature", req.Armature),
		zap.String("root", req.RootBone),
		zap.Int("frames", len(req.Frames)),
		zap.Int("ms_per_frame", req.MsPerFrame),
	)

	sk, err := e.buildSkeleton(req)
	if err != nil {
		return nil, err
	}

	saved := e.src.CurrentFrame()
	defer func() {
		e.src.SetCurrentFrame(saved)
		e.src.RefreshPose()
	}()

	scaler, _ := e.src.(scene.PoseScaler)
	bones := sk.hierarchy.Bones()
	pose := make([]math.Mat4, len(bones))

	frames := make([]avatara.Frame, 0, len(req.Frames))
	for _, f := range req.Frames {
		e.src.SetCurrentFrame(f)
		e.src.RefreshPose()

		for i, b := range bones {
			m, ok := e.src.PoseMatrix(req.Armature, b.Name)
			if !ok {
				return nil, fmt.Errorf("%w: bone %s of armature %s at frame %d",
					ErrPoseBoneMissing, b.Name, req.Armature, f)
			}
			pose[i] = m
		}

		var scale []math.Vec3
		if scaler != nil {
			scale = make([]math.Vec3, len(bones))
			for i, b := range bones {
				s, ok := scaler.PoseScale(req.Armature, b.Name)
				if !ok {
					s = math.Vec3One
				}
				scale[i] = s
			}
		}

		keys, err := skeleton.LocalPose(sk.hierarchy, pose, scale)
		if err != nil {
			return nil, fmt.Errorf("armature %s at frame %d: %w", req.Armature, f, err)
		}
		frames = append(frames, avatara.Frame{
			Time: int32((f - req.Frames[0]) * req.MsPerFrame),
			Keys: keys,
		})
	}

	anim := &avatara.Animation{
		Version: avatara.Version,
		Bones:   sk.bones,
		Frames:  frames,
	}

	var buf bytes.Buffer
	if err := avatara.WriteAnimation(&buf, anim); err != nil {
		return nil, err
	}

	e.log.Info("animation exported",
		zap.String("armature", req.Armature),
		zap.Int("bones", len(bones)),
		zap.Int("frames", len(frames)),
		zap.Int32("duration_ms", anim.Duration()),
	)
	return &Result{Data: buf.Bytes(), Animation: anim}, nil
}

// checkFrames rejects empty or descending frame lists and time offsets that do
// not fit the file's int32 milliseconds.
func checkFrames(frames []int, msPerFrame int) error {
	if len(frames) == 0 {
		return fmt.Errorf("%w: no frames", ErrInvalidRequest)
	}
	if msPerFrame <= 0 {
		return fmt.Errorf("%w: ms per frame must be positive, got %d", ErrInvalidRequest, msPerFrame)
	}
	for i := 1; i < len(frames); i++ {
		if frames[i] < frames[i-1] {
			return fmt.Errorf("%w: frame %d follows frame %d", ErrInvalidRequest, frames[i], frames[i-1])
		}
	}
	span := int64(frames[len(frames)-1]) - int64(frames[0])
	if span*int64(msPerFrame) > stdmath.MaxInt32 {
		return fmt.Errorf("%w: %d frames at %d ms overflow the time field", ErrInvalidRequest, span, msPerFrame)
	}
	return nil
}
