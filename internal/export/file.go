package export

import (
	"errors"
	"fmt"
	"os"

	"github.com/Faultbox/avatara-export/pkg/avatara"
)

// WriteFile writes an encoded export to path. A file left incomplete by a
// failed write is removed.
func WriteFile(path string, data []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", avatara.ErrWrite, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("%w: closing %s: %w", avatara.ErrWrite, path, cerr)
		}
		if err != nil {
			err = errors.Join(err, removePartial(path))
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("%w: %s: %w", avatara.ErrWrite, path, err)
	}
	return nil
}

func removePartial(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
