// Package diskspace answers "will this batch of outputs fit" before any
// bytes are written, so a save that would fill the disk fails up front
// instead of midway through the batch.
package diskspace

import (
	"errors"
	"fmt"
	"path/filepath"
)

// InsufficientSpaceError reports that the filesystem holding Path cannot
// take RequiredBytes more data.
type InsufficientSpaceError struct {
	Path           string
	RequiredBytes  int64
	AvailableBytes int64
}

func (e *InsufficientSpaceError) Error() string {
	return fmt.Sprintf("insufficient disk space for %s: need %.2f MB, have %.2f MB available",
		e.Path, float64(e.RequiredBytes)/(1<<20), float64(e.AvailableBytes)/(1<<20))
}

// CheckAvailableSpace verifies the filesystem containing targetPath has
// room for requiredBytes scaled by safetyMargin (1.1 leaves a 10% buffer).
// targetPath itself need not exist; its parent directory is probed. When
// the filesystem cannot be probed at all (network mounts, overlay fs) the
// check passes and the write is left to fail naturally.
func CheckAvailableSpace(targetPath string, requiredBytes int64, safetyMargin float64) error {
	avail, err := availableBytes(filepath.Dir(targetPath))
	if err != nil {
		return nil
	}
	need := int64(float64(requiredBytes) * safetyMargin)
	if avail < need {
		return &InsufficientSpaceError{
			Path:           targetPath,
			RequiredBytes:  need,
			AvailableBytes: avail,
		}
	}
	return nil
}

// GetAvailableSpace returns the free bytes on the filesystem containing
// path, or 0 when it cannot be determined.
func GetAvailableSpace(path string) int64 {
	avail, err := availableBytes(filepath.Dir(path))
	if err != nil {
		return 0
	}
	return avail
}

// IsInsufficientSpaceError reports whether err is (or wraps) an
// InsufficientSpaceError.
func IsInsufficientSpaceError(err error) bool {
	var ise *InsufficientSpaceError
	return errors.As(err, &ise)
}
