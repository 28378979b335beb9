// Package diskspace checks free space before writing local staging files.
package diskspace

import (
	"errors"
	"fmt"
	"path/filepath"
)

// DefaultSafetyMargin adds 10% to the required size.
const DefaultSafetyMargin = 1.1

// InsufficientSpaceError indicates that there is not enough disk space available.
type InsufficientSpaceError struct {
	Path           string
	RequiredBytes  int64
	AvailableBytes int64
}

func (e *InsufficientSpaceError) Error() string {
	requiredMB := float64(e.RequiredBytes) / (1024 * 1024)
	availableMB := float64(e.AvailableBytes) / (1024 * 1024)
	return fmt.Sprintf("insufficient disk space for %s: need %.2f MB, have %.2f MB available",
		e.Path, requiredMB, availableMB)
}

// Check returns an InsufficientSpaceError when the filesystem holding
// targetPath has less than requiredBytes*margin free. targetPath itself need
// not exist, its directory must. When free space cannot be determined
// (network or virtual filesystems) the check passes.
func Check(targetPath string, requiredBytes int64, margin float64) error {
	available, err := Available(filepath.Dir(targetPath))
	if err != nil {
		return nil
	}

	required := int64(float64(requiredBytes) * margin)
	if available < required {
		return &InsufficientSpaceError{
			Path:           targetPath,
			RequiredBytes:  required,
			AvailableBytes: available,
		}
	}
	return nil
}

// IsInsufficientSpace reports whether err wraps an InsufficientSpaceError.
func IsInsufficientSpace(err error) bool {
	var e *InsufficientSpaceError
	return errors.As(err, &e)
}
