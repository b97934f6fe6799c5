package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/avatara-export/internal/assets"
	"github.com/Faultbox/avatara-export/internal/config"
	"github.com/Faultbox/avatara-export/internal/export"
	"github.com/Faultbox/avatara-export/internal/gltfscene"
	"github.com/Faultbox/avatara-export/internal/logger"
	"github.com/Faultbox/avatara-export/internal/rsmscene"
	"github.com/Faultbox/avatara-export/internal/scene"
)

var errUnknownScene = errors.New("unknown scene format")

// parseConfig parses a subcommand's flags over the config file.
func parseConfig(name string, args []string) (*config.Config, *config.Flags, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	flags := config.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(flags.ConfigPath(), flags)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Export.Scene == "" {
		return nil, nil, fmt.Errorf("%w: export.scene is required", config.ErrInvalid)
	}
	return cfg, flags, nil
}

// loadConfig is parseConfig plus validation and logger setup for exports.
func loadConfig(name string, args []string) (*config.Config, *config.Flags, error) {
	cfg, flags, err := parseConfig(name, args)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, flags, nil
}

// openScene picks the scene reader by file extension.
func openScene(cfg *config.Config) (scene.Source, error) {
	path := cfg.Export.Scene
	ext := strings.ToLower(filepath.Ext(path))
	if len(cfg.Export.Archives) > 0 && ext != ".rsm" {
		return nil, fmt.Errorf("%w: only .rsm scenes are read from archives, got %s", errUnknownScene, path)
	}
	switch ext {
	case ".yaml", ".yml":
		m, err := scene.LoadFile(path)
		if err != nil {
			return nil, err
		}
		return m, nil
	case ".gltf", ".glb":
		s, err := gltfscene.Open(path, gltfscene.Options{
			FrameRate: 1000 / float32(cfg.Export.MsPerFrame),
			Animation: cfg.Export.Animation,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case ".rsm":
		opts := rsmscene.Options{MsPerFrame: float32(cfg.Export.MsPerFrame)}
		if len(cfg.Export.Archives) == 0 {
			s, err := rsmscene.Open(path, opts)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
		m, err := assets.Open(cfg.Export.Archives...)
		if err != nil {
			return nil, err
		}
		defer m.Close()
		s, err := rsmscene.Load(m, path, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", errUnknownScene, path)
}

func request(cfg *config.Config) export.Request {
	return export.Request{
		Mesh:       cfg.Export.Mesh,
		Armature:   cfg.Export.Armature,
		RootBone:   cfg.Export.RootBone,
		Frames:     cfg.Export.Frames(),
		MsPerFrame: cfg.Export.MsPerFrame,
	}
}

func outPath(flags *config.Flags, fallback string) string {
	if p := flags.OutPath(); p != "" {
		return p
	}
	return fallback
}

func cmdModel(args []string, stdout io.Writer) error {
	cfg, flags, err := loadConfig("model", args)
	if err != nil {
		return err
	}
	defer logger.Sync()
	if cfg.Export.Mesh == "" {
		return fmt.Errorf("%w: model export needs a mesh", config.ErrInvalid)
	}

	src, err := openScene(cfg)
	if err != nil {
		return err
	}
	res, err := export.New(src).ExportModel(request(cfg))
	if err != nil {
		return err
	}

	out := outPath(flags, cfg.Output.ModelPath)
	if err := export.WriteFile(out, res.Data); err != nil {
		return err
	}
	logger.Info("wrote model", zap.String("path", out), zap.Int("bytes", len(res.Data)))

	m := res.Model
	fmt.Fprintf(stdout, "Wrote %s: %d vertices, %d triangles, %d bones\n",
		out, len(m.Vertices), len(m.Triangles), len(m.Bones))
	printReport(stdout, res.Report)
	return nil
}

func cmdAnim(args []string, stdout io.Writer) error {
	cfg, flags, err := loadConfig("anim", args)
	if err != nil {
		return err
	}
	defer logger.Sync()

	src, err := openScene(cfg)
	if err != nil {
		return err
	}
	res, err := export.New(src).ExportAnimation(request(cfg))
	if err != nil {
		return err
	}

	out := outPath(flags, cfg.Output.AnimationPath)
	if err := export.WriteFile(out, res.Data); err != nil {
		return err
	}
	logger.Info("wrote animation", zap.String("path", out), zap.Int("bytes", len(res.Data)))

	a := res.Animation
	fmt.Fprintf(stdout, "Wrote %s: %d frames, %d bones, %d ms\n",
		out, len(a.Frames), len(a.Bones), a.Duration())
	return nil
}

func printReport(w io.Writer, r export.Report) {
	if r.Clean() {
		return
	}
	if r.SkippedFaces > 0 {
		fmt.Fprintf(w, "  skipped %d non-triangle faces\n", r.SkippedFaces)
	}
	if r.DefaultedColors > 0 {
		fmt.Fprintf(w, "  %d faces without colours\n", r.DefaultedColors)
	}
	if r.DefaultedUVs > 0 {
		fmt.Fprintf(w, "  %d faces without UVs\n", r.DefaultedUVs)
	}
	if r.DroppedInfluences > 0 {
		fmt.Fprintf(w, "  dropped %d weights outside the skeleton\n", r.DroppedInfluences)
	}
}
