//go:build linux || darwin

package modules

import "syscall"

func devIno(sys interface{}) (uint64, uint64) {
	if st, ok := sys.(*syscall.Stat_t); ok {
		return uint64(st.Dev), uint64(st.Ino) //nolint:unconvert // int32 on darwin
	}
	// In-memory filesystems have no stat_t; size and mtime still detect
	// changes there.
	return 0, 0
}
