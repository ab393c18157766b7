// Package format houses low-level decoders for the JPEG and PNG container
// formats. The goal is to keep the parsing focused, allocation-free where
// possible, and independent from any pixel decode library so higher-level
// packages can reason about structure without ever interpreting image data.
package format

var (
	// JPEGSignature is the two-byte SOI marker at the start of every JPEG
	// stream. Layout:
	//   0x00  0xFF 0xD8
	JPEGSignature = []byte{0xFF, 0xD8}

	// PNGSignature is the fixed eight-byte signature at the start of every
	// PNG stream. Layout:
	//   0x00  0x89 'P' 'N' 'G' 0x0D 0x0A 0x1A 0x0A
	PNGSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

	// JFIFAPP0 is the minimal 18-byte JFIF 1.01 APP0 segment used when a
	// header has to be synthesized from scratch (no units, 1:1 aspect,
	// no thumbnail).
	JFIFAPP0 = []byte{
		0xFF, 0xE0, 0x00, 0x10,
		'J', 'F', 'I', 'F', 0x00,
		0x01, 0x01, 0x00,
		0x00, 0x01, 0x00, 0x01,
		0x00, 0x00,
	}
)

// JPEG marker codes (the byte following 0xFF).
const (
	MarkerTEM   = 0x01 // temporary, standalone
	MarkerSOF0  = 0xC0 // baseline DCT frame header
	MarkerSOF2  = 0xC2 // progressive DCT frame header
	MarkerDHT   = 0xC4 // Huffman table definition
	MarkerRST0  = 0xD0 // restart interval markers, RST0..RST7 standalone
	MarkerRST7  = 0xD7
	MarkerSOI   = 0xD8 // start of image
	MarkerEOI   = 0xD9 // end of image
	MarkerSOS   = 0xDA // start of scan, entropy-coded data follows
	MarkerDQT   = 0xDB // quantization table definition
	MarkerDNL   = 0xDC // define number of lines
	MarkerDRI   = 0xDD // restart interval definition
	MarkerAPP0  = 0xE0 // APP0..APP15 application segments
	MarkerAPP1  = 0xE1
	MarkerAPP15 = 0xEF
	MarkerCOM   = 0xFE // comment
)

const (
	// MarkerHeaderSize is the number of bytes framing a length-prefixed
	// JPEG segment: the 0xFF prefix, the marker code, and the two-byte
	// big-endian length field.
	MarkerHeaderSize = 4

	// PNGChunkHeaderSize is the number of bytes framing a PNG chunk: the
	// four-byte length and the four-byte type.
	PNGChunkHeaderSize = 8

	// PNGChunkCRCSize is the trailing CRC-32 of every PNG chunk.
	PNGChunkCRCSize = 4
)

// criticalJPEGMarkers are the segments every decodable JPEG needs. The
// segment-stripping repair must never remove these.
var criticalJPEGMarkers = map[byte]bool{
	MarkerSOF0: true,
	MarkerSOF2: true,
	MarkerDHT:  true,
	MarkerDQT:  true,
	MarkerDRI:  true,
	MarkerSOS:  true,
	MarkerEOI:  true,
}

// IsCriticalJPEGMarker reports whether the marker is on the fixed allow-list
// of segments required for decoding.
func IsCriticalJPEGMarker(marker byte) bool {
	// All SOFn variants carry frame geometry. C4/C8/CC are table/arithmetic
	// definitions that share the SOFn numbering but C4 (DHT) is already
	// covered above.
	if marker >= MarkerSOF0 && marker <= 0xCF {
		return true
	}
	return criticalJPEGMarkers[marker]
}

// IsStandaloneMarker reports whether the JPEG marker has no length field.
func IsStandaloneMarker(marker byte) bool {
	if marker >= MarkerRST0 && marker <= MarkerRST7 {
		return true
	}
	return marker == MarkerSOI || marker == MarkerEOI || marker == MarkerTEM
}

// MarkerName returns the mnemonic for a JPEG marker code.
func MarkerName(marker byte) string {
	switch {
	case marker == MarkerSOI:
		return "SOI"
	case marker == MarkerEOI:
		return "EOI"
	case marker == MarkerSOS:
		return "SOS"
	case marker == MarkerDQT:
		return "DQT"
	case marker == MarkerDHT:
		return "DHT"
	case marker == MarkerDRI:
		return "DRI"
	case marker == MarkerDNL:
		return "DNL"
	case marker == MarkerCOM:
		return "COM"
	case marker == MarkerTEM:
		return "TEM"
	case marker >= MarkerRST0 && marker <= MarkerRST7:
		return "RST" + string(rune('0'+marker-MarkerRST0))
	case marker >= MarkerAPP0 && marker <= MarkerAPP15:
		return "APP" + itoa(int(marker-MarkerAPP0))
	case marker >= MarkerSOF0 && marker <= 0xCF:
		return "SOF" + itoa(int(marker-MarkerSOF0))
	default:
		return "M" + itoa(int(marker))
	}
}

func itoa(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}
