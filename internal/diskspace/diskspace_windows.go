//go:build windows

package diskspace

import "golang.org/x/sys/windows"

// availableBytes reports the caller-visible free space (quota-aware
// lpFreeBytesAvailable) on the volume containing dir.
func availableBytes(dir string) (int64, error) {
	path, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return 0, err
	}
	var freeToCaller, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(path, &freeToCaller, &total, &totalFree); err != nil {
		return 0, err
	}
	return int64(freeToCaller), nil
}
