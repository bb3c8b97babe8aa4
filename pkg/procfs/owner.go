//go:build linux

package procfs

import (
	"os"
	"syscall"
)

// ownerUID extracts the owning uid from a directory entry's stat_t. Falls
// back to 0 if the platform's FileInfo.Sys() doesn't expose it (should not
// happen on Linux).
func ownerUID(info os.FileInfo) uint32 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return st.Uid
	}
	return 0
}
