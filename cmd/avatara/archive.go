package main

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/avatara-export/internal/assets"
	"github.com/Faultbox/avatara-export/internal/logger"
	"github.com/Faultbox/avatara-export/pkg/rsm"
)

// cmdModels lists the RSM models in GRF archives with their node counts.
func cmdModels(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	limit := fs.Int("n", 0, "Limit output to N models (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("%w: avatara models <a.grf,b.grf> [pattern]", errUsage)
	}

	archive, err := assets.Open(strings.Split(fs.Arg(0), ",")...)
	if err != nil {
		return err
	}
	defer archive.Close()

	pattern := ""
	if fs.NArg() > 1 {
		pattern = strings.ToLower(fs.Arg(1))
	}

	count := 0
	for _, name := range archive.Names() {
		if filepath.Ext(name) != ".rsm" || !matches(name, pattern) {
			continue
		}
		data, err := archive.Read(name)
		if err != nil {
			logger.Warn("skipping unreadable model", zap.String("path", name), zap.Error(err))
			continue
		}
		m, err := rsm.Parse(data)
		if err != nil {
			logger.Warn("skipping unparsable model", zap.String("path", name), zap.Error(err))
			continue
		}
		anim := ""
		if m.Animated() {
			anim = fmt.Sprintf("  animated %d ms", m.AnimLength)
		}
		fmt.Fprintf(stdout, "%s  v%s  %d nodes%s\n", name, m.Version, len(m.Nodes), anim)

		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}
	if pattern != "" {
		fmt.Fprintf(stdout, "(%d models matched)\n", count)
	}
	return nil
}

// matches applies a glob to the base name, or a substring test to the path.
func matches(path, pattern string) bool {
	if pattern == "" {
		return true
	}
	if ok, _ := filepath.Match(pattern, filepath.Base(path)); ok {
		return true
	}
	return strings.Contains(path, pattern)
}
