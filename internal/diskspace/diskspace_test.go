package diskspace

import (
	"math"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckAvailableSpaceEnough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.bin")
	if err := CheckAvailableSpace(path, 1, 1.1); err != nil {
		t.Errorf("1 byte should always fit: %v", err)
	}
}

func TestCheckAvailableSpaceShortfall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.bin")
	err := CheckAvailableSpace(path, math.MaxInt64/2, 1.1)
	if err == nil {
		t.Skip("filesystem reports absurdly large free space")
	}
	if !IsInsufficientSpaceError(err) {
		t.Fatalf("error type = %T, want *InsufficientSpaceError", err)
	}
	if !strings.Contains(err.Error(), "insufficient disk space") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestCheckAvailableSpaceUnstattablePathPasses(t *testing.T) {
	if err := CheckAvailableSpace("/nonexistent/deeply/nested/file", 100, 1.1); err != nil {
		t.Errorf("unstattable path should pass: %v", err)
	}
}

func TestIsInsufficientSpaceError(t *testing.T) {
	if IsInsufficientSpaceError(nil) {
		t.Error("nil misclassified")
	}
	if !IsInsufficientSpaceError(&InsufficientSpaceError{Path: "/x"}) {
		t.Error("real error not recognized")
	}
}
