package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// Flags holds command-line overrides registered on a subcommand's FlagSet.
type Flags struct {
	Config     *string
	Debug      *bool
	LogFile    *string
	Scene      *string
	Archive    *string
	Mesh       *string
	Armature   *string
	RootBone   *string
	Animation  *string
	Start      *int
	End        *int
	Step       *int
	Frames     *string
	MsPerFrame *int
	Out        *string
}

// BindFlags registers the shared export flags on fs.
func BindFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		Config:     fs.String("config", "", "Path to config file"),
		Debug:      fs.Bool("debug", false, "Enable debug logging"),
		LogFile:    fs.String("log", "", "Also log to this file"),
		Scene:      fs.String("scene", "", "Scene file (.yaml, .gltf, .glb, .rsm)"),
		Archive:    fs.String("grf", "", "Comma-separated GRF archives holding the .rsm scene"),
		Mesh:       fs.String("mesh", "", "Mesh object name"),
		Armature:   fs.String("armature", "", "Armature object name"),
		RootBone:   fs.String("root", "", "Root bone of the exported skeleton"),
		Animation:  fs.String("animation", "", "glTF animation name"),
		Start:      fs.Int("start", 0, "First frame"),
		End:        fs.Int("end", 0, "Last frame (inclusive)"),
		Step:       fs.Int("step", 0, "Frame step"),
		Frames:     fs.String("frames", "", "Comma-separated frame list, overrides the range"),
		MsPerFrame: fs.Int("ms", 0, "Milliseconds per frame"),
		Out:        fs.String("o", "", "Output file"),
	}
}

// ConfigPath returns the explicit config path, if any.
func (f *Flags) ConfigPath() string {
	return *f.Config
}

// OutPath returns the -o value, if any.
func (f *Flags) OutPath() string {
	return *f.Out
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) error {
	if *f.Debug {
		cfg.Logging.Level = "debug"
	}
	if *f.LogFile != "" {
		cfg.Logging.LogFile = *f.LogFile
	}
	if *f.Scene != "" {
		cfg.Export.Scene = *f.Scene
	}
	if *f.Archive != "" {
		cfg.Export.Archives = splitList(*f.Archive)
	}
	if *f.Mesh != "" {
		cfg.Export.Mesh = *f.Mesh
	}
	if *f.Armature != "" {
		cfg.Export.Armature = *f.Armature
	}
	if *f.RootBone != "" {
		cfg.Export.RootBone = *f.RootBone
	}
	if *f.Animation != "" {
		cfg.Export.Animation = *f.Animation
	}
	if *f.Start > 0 {
		cfg.Export.FrameRange.Start = *f.Start
		if cfg.Export.FrameRange.End < *f.Start {
			cfg.Export.FrameRange.End = *f.Start
		}
	}
	if *f.End > 0 {
		cfg.Export.FrameRange.End = *f.End
	}
	if *f.Step > 0 {
		cfg.Export.FrameRange.Step = *f.Step
	}
	if *f.Frames != "" {
		list, err := ParseFrameList(*f.Frames)
		if err != nil {
			return err
		}
		cfg.Export.FrameList = list
	}
	if *f.MsPerFrame > 0 {
		cfg.Export.MsPerFrame = *f.MsPerFrame
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseFrameList parses a comma-separated frame list such as "1,5,9".
func ParseFrameList(s string) ([]int, error) {
	var frames []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: frame %q is not an integer", ErrInvalid, part)
		}
		frames = append(frames, n)
	}
	return frames, nil
}
