//go:build windows

package diskspace

import (
	"path/filepath"
	"syscall"
	"unsafe"
)

// availableSpace returns the bytes available on the volume holding path.
// ok is false when the volume cannot be queried.
func availableSpace(path string) (int64, bool) {
	dir := filepath.Dir(path)

	kernel32 := syscall.NewLazyDLL("kernel32.dll")
	proc := kernel32.NewProc("GetDiskFreeSpaceExW")

	dirPtr, err := syscall.UTF16PtrFromString(dir)
	if err != nil {
		return 0, false
	}

	var freeBytesAvailable uint64
	ret, _, _ := proc.Call(
		uintptr(unsafe.Pointer(dirPtr)),
		uintptr(unsafe.Pointer(&freeBytesAvailable)),
		0,
		0,
	)
	if ret == 0 {
		return 0, false
	}

	return int64(freeBytesAvailable), true
}
