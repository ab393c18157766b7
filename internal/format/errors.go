package format

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSignature indicates no recognizable container signature was
	// found anywhere in the stream. This is the only hard parse failure;
	// every other structural defect is reported as data on the structure.
	ErrNoSignature = errors.New("format: no container signature")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrUnknownFormat indicates the stream matched no supported container.
	ErrUnknownFormat = errors.New("format: unknown container format")
)

// ParseError reports the offset at which container parsing broke down.
// It is returned only for terminal failures (no start marker at all);
// recoverable structural defects are surfaced as facts on the parsed
// structure instead.
type ParseError struct {
	Format string // "jpeg" or "png"
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("format: parse %s at offset 0x%X: %v", e.Format, e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
