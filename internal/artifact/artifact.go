// Package artifact provides immutable handles to recovered image files.
//
// An Artifact is evidence: its bytes are mapped read-only and never change
// for the lifetime of the handle. Every transformation (repair output,
// working copy) produces a new Artifact backed by fresh memory or a fresh
// file, so the original storage location is untouchable by construction.
package artifact

import (
	"fmt"
	"path/filepath"
)

// Artifact is an immutable handle to a byte sequence plus provenance.
type Artifact struct {
	// ID is the stable identifier used for deterministic report ordering.
	ID string
	// SourcePath is where the bytes came from; empty for derived artifacts.
	SourcePath string
	// Method is the recovery method that produced the file (fs_based,
	// carved, ...) as reported by the upstream extraction stage.
	Method string

	data    []byte
	cleanup func() error
}

// Open maps the file at path read-only and returns an evidence handle.
func Open(id, path, method string) (*Artifact, error) {
	data, cleanup, err := mapFile(path)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: open %s: %w", id, path, err)
	}
	return &Artifact{
		ID:         id,
		SourcePath: path,
		Method:     method,
		data:       data,
		cleanup:    cleanup,
	}, nil
}

// FromBytes wraps an in-memory byte sequence as a derived artifact. The
// caller hands over ownership of data; it must not be mutated afterwards.
func FromBytes(id string, data []byte) *Artifact {
	return &Artifact{ID: id, data: data}
}

// Bytes returns the underlying bytes. Callers must treat the slice as
// read-only; repairs copy before touching anything.
func (a *Artifact) Bytes() []byte { return a.data }

// Size returns the byte length of the artifact.
func (a *Artifact) Size() int64 { return int64(len(a.data)) }

// Name returns the base name of the source path, or the ID for derived
// artifacts with no file behind them.
func (a *Artifact) Name() string {
	if a.SourcePath == "" {
		return a.ID
	}
	return filepath.Base(a.SourcePath)
}

// WorkingCopy returns a mutable copy of the artifact bytes. This is the
// only sanctioned way to obtain writable image data.
func (a *Artifact) WorkingCopy() []byte {
	out := make([]byte, len(a.data))
	copy(out, a.data)
	return out
}

// Close releases the mapping, if any. Derived artifacts have nothing to
// release and Close is a no-op.
func (a *Artifact) Close() error {
	if a.cleanup == nil {
		return nil
	}
	fn := a.cleanup
	a.cleanup = nil
	return fn()
}
