//go:build linux

package proctitle

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Set renames the process as shown by ps and top. The kernel keeps at most
// 15 bytes; the applied name is returned.
func Set(title string) (string, error) {
	name := clip(title)
	if name == "" {
		return "", errEmpty
	}
	if len(os.Args) > 0 {
		os.Args[0] = name
	}

	b := make([]byte, maxLen+1)
	copy(b, name)
	return name, unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&b[0])), 0, 0, 0)
}
