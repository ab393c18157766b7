//go:build linux || freebsd

package artifact

import (
	"os"

	"golang.org/x/sys/unix"
)

// syncFile flushes file data to stable storage.
//
// On Linux/FreeBSD, fdatasync() provides sufficient guarantees for a file
// whose size is already final.
func syncFile(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}
