package format

import (
	"bytes"
	"hash/crc32"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Chunk is a single PNG chunk with its recomputed CRC verdict. Length is
// the declared data length; the full framed span is Length plus the
// eight-byte header and four-byte CRC.
type Chunk struct {
	Type   string
	Offset int64
	Length int64
	CRCOK  bool
}

// Critical reports whether the chunk is critical per the PNG spec
// (uppercase first letter of the type code).
func (c Chunk) Critical() bool {
	return len(c.Type) == 4 && c.Type[0] >= 'A' && c.Type[0] <= 'Z'
}

// Span returns the total framed size of the chunk in bytes.
func (c Chunk) Span() int64 {
	return c.Length + PNGChunkHeaderSize + PNGChunkCRCSize
}

// TextEntry is a decoded tEXt chunk. PNG tEXt strings are Latin-1, so the
// keyword and value go through an ISO 8859-1 decoder rather than being
// reinterpreted as UTF-8.
type TextEntry struct {
	Keyword string
	Value   string
}

// PNGStructure is the result of walking a PNG chunk stream. CRC mismatches
// and truncation are reported as facts; repairing them is the repair
// engine's business, never the parser's.
type PNGStructure struct {
	HasSignature bool
	// SigOffset is where the signature was found; non-zero means a
	// garbage prefix from carving.
	SigOffset int64

	Chunks []Chunk
	Faults []SegmentFault

	HasIHDR bool
	HasIEND bool

	Text []TextEntry

	StoppedAt        int64
	TruncatedInChunk bool
}

// BadCRCCount returns how many chunks failed CRC recomputation.
func (s *PNGStructure) BadCRCCount() int {
	n := 0
	for _, c := range s.Chunks {
		if !c.CRCOK {
			n++
		}
	}
	return n
}

// ParsePNG walks the chunk structure of a PNG stream, recomputing the
// CRC-32 of every chunk. A stream whose signature appears at a non-zero
// offset parses with the prefix reported as garbage; only a stream with
// no signature at all is a hard failure.
func ParsePNG(data []byte) (*PNGStructure, error) {
	if len(data) < len(PNGSignature) {
		return nil, &ParseError{Format: "png", Offset: 0, Err: ErrTruncated}
	}
	sig := bytes.Index(data, PNGSignature)
	if sig < 0 {
		return nil, &ParseError{Format: "png", Offset: 0, Err: ErrNoSignature}
	}

	s := &PNGStructure{
		HasSignature: true,
		SigOffset:    int64(sig),
	}

	latin1 := charmap.ISO8859_1.NewDecoder()

	pos := sig + len(PNGSignature)
	for pos < len(data) {
		if pos+PNGChunkHeaderSize > len(data) {
			s.TruncatedInChunk = true
			s.StoppedAt = int64(len(data))
			return s, nil
		}
		length := int(ReadU32(data, pos))
		typ := string(data[pos+4 : pos+8])
		end := pos + PNGChunkHeaderSize + length + PNGChunkCRCSize
		if length > len(data) || end > len(data) || end < pos {
			s.TruncatedInChunk = true
			s.Chunks = append(s.Chunks, Chunk{
				Type: typ, Offset: int64(pos), Length: int64(length), CRCOK: false,
			})
			s.StoppedAt = int64(len(data))
			return s, nil
		}

		body := data[pos+4 : pos+PNGChunkHeaderSize+length]
		want := ReadU32(data, pos+PNGChunkHeaderSize+length)
		got := crc32.ChecksumIEEE(body)

		ch := Chunk{Type: typ, Offset: int64(pos), Length: int64(length), CRCOK: got == want}
		s.Chunks = append(s.Chunks, ch)
		if !ch.CRCOK {
			s.Faults = append(s.Faults, SegmentFault{
				Kind:   typ,
				Offset: int64(pos),
				Reason: "chunk CRC mismatch",
			})
		}

		switch typ {
		case "IHDR":
			s.HasIHDR = true
		case "IEND":
			s.HasIEND = true
			s.StoppedAt = int64(end)
			return s, nil
		case "tEXt":
			if ch.CRCOK {
				if entry, ok := decodeTextChunk(latin1, data[pos+PNGChunkHeaderSize:pos+PNGChunkHeaderSize+length]); ok {
					s.Text = append(s.Text, entry)
				}
			}
		}

		pos = end
	}

	s.StoppedAt = int64(len(data))
	return s, nil
}

func decodeTextChunk(dec *encoding.Decoder, raw []byte) (TextEntry, bool) {
	sep := bytes.IndexByte(raw, 0)
	if sep <= 0 {
		return TextEntry{}, false
	}
	keyword, err := dec.Bytes(raw[:sep])
	if err != nil {
		return TextEntry{}, false
	}
	value, err := dec.Bytes(raw[sep+1:])
	if err != nil {
		return TextEntry{}, false
	}
	return TextEntry{Keyword: string(keyword), Value: string(value)}, true
}
