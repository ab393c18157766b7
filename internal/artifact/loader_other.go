//go:build !unix

package artifact

import "os"

// mapFile reads the whole file on platforms without mmap support. The
// read-only contract is then by convention rather than page protection.
func mapFile(path string) ([]byte, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return nil }, nil
}
