package repair

import (
	"fmt"
	"hash/crc32"

	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/classify"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/config"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/format"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/oracle"
)

// segmentModule rebuilds a stream from its intact pieces. For JPEG that
// means keeping only the segments a decoder needs; for PNG it means
// dropping damaged ancillary chunks and recomputing CRCs on what stays.
// Either way the entropy-coded image data is carried over untouched, so
// re-validation decides whether the surviving pieces still make an image.
type segmentModule struct{}

func (segmentModule) Name() string { return "segment_strip" }

func (segmentModule) Technique() classify.Technique { return classify.TechniqueSegmentStrip }

func (segmentModule) CanRepair(rec classify.Record, facts *oracle.Facts) bool {
	if rec.Type != classify.TypeCorruptSegments {
		return false
	}
	return facts.JPEG != nil || facts.PNG != nil
}

func (segmentModule) Apply(work []byte, facts *oracle.Facts, _ config.Heuristics) ([]byte, string, error) {
	switch {
	case facts.JPEG != nil:
		return stripJPEGSegments(work, facts.JPEG)
	case facts.PNG != nil:
		return rebuildPNGChunks(work, facts.PNG)
	default:
		return nil, "", ErrNotApplicable
	}
}

// stripJPEGSegments emits SOI, the critical segments in their original
// order, the entropy-coded scan, and a fresh EOI. Everything else,
// including whatever segment tripped the parser, is dropped.
func stripJPEGSegments(work []byte, s *format.JPEGStructure) ([]byte, string, error) {
	if !s.HasScan() || s.ScanLength == 0 {
		// The damage sits before the scan ever started; there is no
		// image data to rebuild around.
		return nil, "", ErrNotApplicable
	}

	out := make([]byte, 0, len(work))
	out = append(out, format.JPEGSignature...)
	kept, dropped := 0, 0
	for _, seg := range s.Segments {
		if seg.Marker == format.MarkerSOI || seg.Marker == format.MarkerEOI {
			continue
		}
		if !format.IsCriticalJPEGMarker(seg.Marker) {
			dropped++
			continue
		}
		out = append(out, work[seg.Offset:seg.Offset+seg.Length]...)
		kept++
		if seg.Marker == format.MarkerSOS {
			out = append(out, work[s.ScanOffset:s.ScanOffset+s.ScanLength]...)
		}
	}
	out = append(out, 0xFF, format.MarkerEOI)
	return out, noteKeptDropped(kept, dropped), nil
}

// rebuildPNGChunks re-emits the chunk stream with every kept chunk's CRC
// recomputed. Ancillary chunks that failed CRC are dropped; critical
// chunks are kept on the assumption the damage hit the stored CRC rather
// than the data, which re-validation then confirms or rejects.
func rebuildPNGChunks(work []byte, s *format.PNGStructure) ([]byte, string, error) {
	if len(s.Chunks) == 0 {
		return nil, "", ErrNotApplicable
	}

	out := make([]byte, 0, len(work))
	out = append(out, format.PNGSignature...)
	kept, dropped := 0, 0
	for _, c := range s.Chunks {
		if !c.CRCOK && !c.Critical() {
			dropped++
			continue
		}
		start := c.Offset
		body := work[start+4 : start+format.PNGChunkHeaderSize+c.Length]
		out = append(out, work[start:start+4]...)
		out = append(out, body...)
		out = appendU32(out, crc32.ChecksumIEEE(body))
		kept++
	}
	if !s.HasIEND {
		out = append(out, iendChunk...)
	}
	return out, noteKeptDropped(kept, dropped), nil
}

func appendU32(b []byte, v uint32) []byte {
	var buf [4]byte
	format.PutU32(buf[:], 0, v)
	return append(b, buf[:]...)
}

func noteKeptDropped(kept, dropped int) string {
	return fmt.Sprintf("kept %d segments, dropped %d", kept, dropped)
}
