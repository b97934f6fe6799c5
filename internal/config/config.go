// Package config handles export configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid config")

// Config holds all exporter settings.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExportConfig selects what to export from which scene.
type ExportConfig struct {
	Scene    string `yaml:"scene"` // .yaml scene description, .gltf, .glb or .rsm
	Mesh     string `yaml:"mesh"`
	Armature string `yaml:"armature"`
	RootBone string `yaml:"root_bone"` // may be empty when the armature has one root

	// Archives are GRF files, later ones overriding earlier ones. When set,
	// Scene is a path inside them.
	Archives []string `yaml:"archives,omitempty"`

	// Animation picks a glTF animation by name; empty selects the first.
	Animation string `yaml:"animation,omitempty"`

	// FrameList, when set, replaces FrameRange.
	FrameRange FrameRange `yaml:"frame_range"`
	FrameList  []int      `yaml:"frames,omitempty"`
	MsPerFrame int        `yaml:"ms_per_frame"`
}

// FrameRange is an inclusive frame range.
type FrameRange struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
	Step  int `yaml:"step"`
}

// OutputConfig holds output file paths.
type OutputConfig struct {
	ModelPath     string `yaml:"model"`
	AnimationPath string `yaml:"animation"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			FrameRange: FrameRange{Start: 1, End: 1, Step: 1},
			MsPerFrame: 40,
		},
		Output: OutputConfig{
			ModelPath:     "out.mdl",
			AnimationPath: "out.ani",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Frames returns the frame numbers to export.
func (e ExportConfig) Frames() []int {
	if len(e.FrameList) > 0 {
		return append([]int(nil), e.FrameList...)
	}
	step := e.FrameRange.Step
	if step <= 0 {
		step = 1
	}
	var frames []int
	for f := e.FrameRange.Start; f <= e.FrameRange.End; f += step {
		frames = append(frames, f)
	}
	return frames
}

// Validate checks settings shared by every export.
func (c *Config) Validate() error {
	e := c.Export
	if e.Scene == "" {
		return fmt.Errorf("%w: export.scene is required", ErrInvalid)
	}
	if e.Armature == "" {
		return fmt.Errorf("%w: export.armature is required", ErrInvalid)
	}
	if e.MsPerFrame <= 0 {
		return fmt.Errorf("%w: export.ms_per_frame must be positive, got %d", ErrInvalid, e.MsPerFrame)
	}
	if len(e.FrameList) == 0 {
		if e.FrameRange.Step < 0 {
			return fmt.Errorf("%w: export.frame_range.step must be positive", ErrInvalid)
		}
		if e.FrameRange.End < e.FrameRange.Start {
			return fmt.Errorf("%w: export.frame_range end %d before start %d", ErrInvalid, e.FrameRange.End, e.FrameRange.Start)
		}
	}
	frames := e.Frames()
	for i := 1; i < len(frames); i++ {
		if frames[i] < frames[i-1] {
			return fmt.Errorf("%w: export.frames must be ascending, %d follows %d", ErrInvalid, frames[i], frames[i-1])
		}
	}
	return nil
}
