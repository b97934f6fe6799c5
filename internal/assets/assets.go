// Package assets resolves data paths across a stack of GRF archives, the way
// the client layers patch archives over the base data.
package assets

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/avatara-export/internal/logger"
	"github.com/Faultbox/avatara-export/pkg/grf"
)

// ErrNotFound is returned when no archive holds a path.
var ErrNotFound = errors.New("asset not found")

// Manager reads files from several archives. Later archives take priority.
type Manager struct {
	archives []*grf.Archive
	paths    []string
}

// Open opens every archive in priority order, lowest first.
func Open(paths ...string) (*Manager, error) {
	m := &Manager{}
	for _, p := range paths {
		a, err := grf.Open(p)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("opening archive %s: %w", p, err)
		}
		m.archives = append(m.archives, a)
		m.paths = append(m.paths, p)
		logger.Debug("archive opened", zap.String("path", p), zap.Int("files", len(a.Names())))
	}
	return m, nil
}

// Close closes every archive.
func (m *Manager) Close() error {
	var errs []error
	for _, a := range m.archives {
		errs = append(errs, a.Close())
	}
	m.archives = nil
	return errors.Join(errs...)
}

// Read returns path from the highest-priority archive that has it.
func (m *Manager) Read(path string) ([]byte, error) {
	for i := len(m.archives) - 1; i >= 0; i-- {
		a := m.archives[i]
		if !a.Contains(path) {
			continue
		}
		data, err := a.Read(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.paths[i], err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
}

// Names lists every path in any archive, sorted and without duplicates.
func (m *Manager) Names() []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range m.archives {
		for _, name := range a.Names() {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out
}
