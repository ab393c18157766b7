// Package testutil builds synthetic image fixtures for tests. Fixtures are
// generated with the standard encoders so a pristine fixture always passes
// a full pixel decode; corruption helpers then damage them in controlled,
// byte-exact ways.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// JPEG returns a fully valid baseline JPEG of the given dimensions.
func JPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gradient(width, height), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg fixture: %v", err)
	}
	return buf.Bytes()
}

// PNG returns a fully valid PNG of the given dimensions.
func PNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, gradient(width, height)); err != nil {
		t.Fatalf("encode png fixture: %v", err)
	}
	return buf.Bytes()
}

func gradient(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / max(width, 1)),
				G: uint8(y * 255 / max(height, 1)),
				B: 0x40,
				A: 0xFF,
			})
		}
	}
	return img
}

// StripFooter removes the trailing two-byte EOI marker from a JPEG.
func StripFooter(t *testing.T, data []byte) []byte {
	t.Helper()
	if len(data) < 2 || data[len(data)-2] != 0xFF || data[len(data)-1] != 0xD9 {
		t.Fatalf("fixture does not end in EOI")
	}
	return clone(data[: len(data)-2])
}

// Truncate drops the last n bytes of the stream.
func Truncate(data []byte, n int) []byte {
	if n >= len(data) {
		return []byte{}
	}
	return clone(data[: len(data)-n])
}

// PrependGarbage places n bytes of non-marker noise before the stream,
// the way carved streams often arrive.
func PrependGarbage(data []byte, n int) []byte {
	garbage := make([]byte, n)
	for i := range garbage {
		garbage[i] = byte(0x41 + i%26)
	}
	return append(garbage, clone(data)...)
}

// Corrupt overwrites n bytes starting at off with a fixed pattern.
func Corrupt(t *testing.T, data []byte, off, n int) []byte {
	t.Helper()
	if off+n > len(data) {
		t.Fatalf("corrupt range %d+%d beyond %d bytes", off, n, len(data))
	}
	out := clone(data)
	for i := 0; i < n; i++ {
		out[off+i] = 0x5A
	}
	return out
}

// WriteFile places fixture bytes in dir under name and returns the path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
