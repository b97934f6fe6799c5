package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/Faultbox/avatara-export/internal/scene"
	"github.com/Faultbox/avatara-export/internal/skeleton"
	"github.com/Faultbox/avatara-export/pkg/avatara"
)

var errUsage = errors.New("usage")

// readFile parses a MODEL or ANIMATION file; exactly one result is non-nil.
func readFile(path string) (*avatara.Model, *avatara.Animation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	kind, err := avatara.DetectKind(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if kind == avatara.KindModel {
		m, err := avatara.ParseModel(data)
		return m, nil, err
	}
	a, err := avatara.ParseAnimation(data)
	return nil, a, err
}

func cmdInfo(args []string, stdout io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: avatara info <file>", errUsage)
	}
	m, a, err := readFile(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "File:      %s\n", args[0])
	if m != nil {
		fmt.Fprintf(stdout, "Kind:      %s (version %d)\n", avatara.KindModel, m.Version)
		fmt.Fprintf(stdout, "Vertices:  %d\n", len(m.Vertices))
		fmt.Fprintf(stdout, "Triangles: %d\n", len(m.Triangles))
		if m.Version == avatara.VersionMatrix {
			fmt.Fprintf(stdout, "Bones:     %d (matrix)\n", len(m.MatrixBones))
		} else {
			fmt.Fprintf(stdout, "Bones:     %d\n", len(m.Bones))
		}
		return nil
	}
	fmt.Fprintf(stdout, "Kind:      %s (version %d)\n", avatara.KindAnimation, a.Version)
	fmt.Fprintf(stdout, "Bones:     %d\n", len(a.Bones))
	fmt.Fprintf(stdout, "Frames:    %d\n", len(a.Frames))
	fmt.Fprintf(stdout, "Duration:  %d ms\n", a.Duration())
	return nil
}

func cmdDump(args []string, stdout io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: avatara dump <file>", errUsage)
	}
	m, a, err := readFile(args[0])
	if err != nil {
		return err
	}

	cfg := spew.NewDefaultConfig()
	cfg.DisableCapacities = true
	cfg.DisablePointerAddresses = true
	if m != nil {
		cfg.Fdump(stdout, m)
	} else {
		cfg.Fdump(stdout, a)
	}
	return nil
}

// cmdBones prints every root bone's subtree, indented by depth.
func cmdBones(args []string, stdout io.Writer) error {
	cfg, _, err := parseConfig("bones", args)
	if err != nil {
		return err
	}
	src, err := openScene(cfg)
	if err != nil {
		return err
	}

	armatures := []string{cfg.Export.Armature}
	if cfg.Export.Armature == "" {
		lister, ok := src.(scene.Lister)
		if !ok {
			return fmt.Errorf("%w: scene cannot list armatures, pass -armature", errUsage)
		}
		armatures = lister.ArmatureNames()
	}

	for _, name := range armatures {
		infos, err := src.Bones(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s (%d bones)\n", name, len(infos))
		for _, root := range skeleton.Roots(infos) {
			h, err := skeleton.Build(root, infos)
			if err != nil {
				return fmt.Errorf("armature %s: %w", name, err)
			}
			depth := make([]int, h.Len())
			for i, b := range h.Bones() {
				if b.ParentIndex >= 0 {
					depth[i] = depth[b.ParentIndex] + 1
				}
				fmt.Fprintf(stdout, "  %s%s  len=%.3f roll=%.1f\n",
					strings.Repeat("  ", depth[i]), b.Name, b.Length, b.Roll)
			}
		}
	}
	return nil
}
