package format

import "bytes"

// Kind identifies a supported container format.
type Kind int

const (
	KindUnknown Kind = iota
	KindJPEG
	KindPNG
)

func (k Kind) String() string {
	switch k {
	case KindJPEG:
		return "jpeg"
	case KindPNG:
		return "png"
	default:
		return "unknown"
	}
}

// Detect sniffs the container format from the leading magic bytes.
// It only looks at offset zero; a signature buried behind a garbage
// prefix is the parser's business, not detection's.
func Detect(data []byte) Kind {
	switch {
	case bytes.HasPrefix(data, JPEGSignature):
		return KindJPEG
	case bytes.HasPrefix(data, PNGSignature):
		return KindPNG
	default:
		return KindUnknown
	}
}

// DetectLoose additionally accepts a signature at a non-zero offset, the
// way carved streams often arrive. It reports the format and the offset
// at which the signature was found, or KindUnknown and -1.
func DetectLoose(data []byte) (Kind, int64) {
	if i := bytes.Index(data, JPEGSignature); i >= 0 {
		j := bytes.Index(data, PNGSignature)
		if j >= 0 && j < i {
			return KindPNG, int64(j)
		}
		return KindJPEG, int64(i)
	}
	if i := bytes.Index(data, PNGSignature); i >= 0 {
		return KindPNG, int64(i)
	}
	return KindUnknown, -1
}
