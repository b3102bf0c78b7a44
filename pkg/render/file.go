package render

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	outputFileMode = 0o644
	outputDirMode  = 0o755
)

// WriteFileIfChanged writes data to path unless the file already holds the
// same bytes, so build systems that track modification times do not rebuild
// everything that includes an unchanged header. It reports whether a write
// happened.
func WriteFileIfChanged(path string, data []byte) (bool, error) {
	existing, err := os.ReadFile(path)

	switch {
	case err == nil:
		if bytes.Equal(existing, data) {
			return false, nil
		}
	case errors.Is(err, os.ErrNotExist):
		mkdirErr := os.MkdirAll(filepath.Dir(path), outputDirMode)
		if mkdirErr != nil {
			return false, fmt.Errorf("create output directory for %q: %w", path, mkdirErr)
		}
	default:
		return false, fmt.Errorf("read existing output %q: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return false, fmt.Errorf("create temporary output for %q: %w", path, err)
	}

	tmpName := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()

	if writeErr != nil || closeErr != nil {
		_ = os.Remove(tmpName)

		return false, fmt.Errorf("write output %q: %w", path, errors.Join(writeErr, closeErr))
	}

	err = os.Chmod(tmpName, outputFileMode)
	if err != nil {
		_ = os.Remove(tmpName)

		return false, fmt.Errorf("chmod output %q: %w", path, err)
	}

	err = os.Rename(tmpName, path)
	if err != nil {
		_ = os.Remove(tmpName)

		return false, fmt.Errorf("replace output %q: %w", path, err)
	}

	return true, nil
}
