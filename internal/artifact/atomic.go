package artifact

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteAtomic places data at dir/name all-or-nothing: the bytes go to a
// temporary file in the same directory, are synced to stable storage, and
// only then renamed into place. A cancelled or crashed run therefore never
// leaves a partially written output artifact at the final path.
//
// When dir/name already exists, a numeric suffix is appended before the
// extension; the chosen path is returned.
func WriteAtomic(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("artifact: prepare %s: %w", dir, err)
	}

	dst := filepath.Join(dir, name)
	ext := filepath.Ext(name)
	stem := name[:len(name)-len(ext)]
	for i := 1; ; i++ {
		if _, err := os.Stat(dst); os.IsNotExist(err) {
			break
		}
		dst = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
	}

	tmp, err := os.CreateTemp(dir, "."+name+".tmp*")
	if err != nil {
		return "", fmt.Errorf("artifact: temp for %s: %w", dst, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("artifact: write %s: %w", tmpPath, err)
	}
	if err := syncFile(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("artifact: sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("artifact: close %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("artifact: place %s: %w", dst, err)
	}

	// Sync the directory so the rename itself is durable.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}

	return dst, nil
}
