//go:build !windows

package diskspace

import "golang.org/x/sys/unix"

// availableBytes reports the space usable by unprivileged writers
// (Bavail, not Bfree) on the filesystem containing dir.
func availableBytes(dir string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, err
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}
