// Package diskspace checks available disk space before large downloads.
package diskspace

import (
	"fmt"

	"github.com/c2h5oh/datasize"
)

// InsufficientSpaceError indicates that there is not enough disk space
// available for a pending download.
type InsufficientSpaceError struct {
	Path           string
	RequiredBytes  int64
	AvailableBytes int64
}

func (e *InsufficientSpaceError) Error() string {
	return fmt.Sprintf("insufficient disk space for %s: need %s, have %s available",
		e.Path,
		datasize.ByteSize(e.RequiredBytes).HumanReadable(),
		datasize.ByteSize(e.AvailableBytes).HumanReadable())
}

// IsInsufficientSpaceError checks if an error is an InsufficientSpaceError.
func IsInsufficientSpaceError(err error) bool {
	_, ok := err.(*InsufficientSpaceError)
	return ok
}

// CheckAvailableSpace verifies the filesystem holding targetPath has room
// for requiredBytes times safetyMargin. The target itself may not exist
// yet; its parent directory is checked.
//
// When the filesystem cannot be statted (network mounts, odd virtual
// filesystems) the check passes and the write fails naturally instead.
func CheckAvailableSpace(targetPath string, requiredBytes int64, safetyMargin float64) error {
	availableBytes, ok := availableSpace(targetPath)
	if !ok {
		return nil
	}

	requiredWithMargin := int64(float64(requiredBytes) * safetyMargin)
	if availableBytes < requiredWithMargin {
		return &InsufficientSpaceError{
			Path:           targetPath,
			RequiredBytes:  requiredWithMargin,
			AvailableBytes: availableBytes,
		}
	}
	return nil
}
