//go:build !linux && !freebsd

package artifact

import "os"

func syncFile(f *os.File) error {
	return f.Sync()
}
