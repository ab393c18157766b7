package format

import (
	"bytes"
	"fmt"
)

// Segment is one framed JPEG marker segment. Offsets are absolute within
// the parsed byte stream and Length covers the full framed span (marker
// and length field included).
type Segment struct {
	Kind   string
	Marker byte
	Offset int64
	Length int64
}

// SegmentFault records a locally inconsistent segment: a declared length
// that is implausible or overruns the stream, or a stray byte where a
// marker was expected. Faults are structural facts, not errors.
type SegmentFault struct {
	Kind   string
	Offset int64
	Reason string
}

func (f SegmentFault) String() string {
	return fmt.Sprintf("%s at 0x%X: %s", f.Kind, f.Offset, f.Reason)
}

// JPEGStructure is the result of walking a JPEG stream marker by marker.
// Truncation and local inconsistencies are reported here as facts; the
// walk only fails outright when no SOI marker exists anywhere.
type JPEGStructure struct {
	// SOIOffset is where the SOI marker was found. A non-zero value means
	// everything before it is garbage (carving artifact) that the header
	// repair discards.
	SOIOffset int64
	HasSOI    bool

	HasEOI    bool
	EOIOffset int64

	Segments []Segment
	Faults   []SegmentFault

	// ScanOffset is the first byte of entropy-coded data after the SOS
	// header; ScanLength is how many entropy bytes were seen before the
	// next marker or end of stream. Zero ScanOffset means no SOS was found.
	ScanOffset int64
	ScanLength int64

	// StoppedAt is the offset at which the walk ended, either just past
	// EOI or wherever the stream ran out.
	StoppedAt int64

	// TruncatedInSegment is set when the stream ended inside a declared
	// marker segment, i.e. the truncation point falls mid-structure rather
	// than in the entropy tail.
	TruncatedInSegment bool
}

// HasScan reports whether a start-of-scan header was seen.
func (s *JPEGStructure) HasScan() bool { return s.ScanOffset > 0 }

// Segment returns the first segment with the given marker, or nil.
func (s *JPEGStructure) Segment(marker byte) *Segment {
	for i := range s.Segments {
		if s.Segments[i].Marker == marker {
			return &s.Segments[i]
		}
	}
	return nil
}

// LastMarkerBoundary returns the offset just past the last fully framed
// marker segment before the scan data. Used by the footer repair fallback
// when the stream tail is unusable.
func (s *JPEGStructure) LastMarkerBoundary() int64 {
	var end int64
	for _, seg := range s.Segments {
		if seg.Offset+seg.Length > end {
			end = seg.Offset + seg.Length
		}
	}
	return end
}

// ParseJPEG walks the marker-length structure of a JPEG stream.
//
// The walk scans for SOI, then visits each length-prefixed segment until
// EOI or end of stream. A stream without EOI, or one whose tail is cut
// mid-segment, parses successfully and reports the defect on the returned
// structure. Only a stream with no SOI anywhere is a hard failure.
func ParseJPEG(data []byte) (*JPEGStructure, error) {
	if len(data) < len(JPEGSignature) {
		return nil, &ParseError{Format: "jpeg", Offset: 0, Err: ErrTruncated}
	}
	soi := bytes.Index(data, JPEGSignature)
	if soi < 0 {
		return nil, &ParseError{Format: "jpeg", Offset: 0, Err: ErrNoSignature}
	}

	s := &JPEGStructure{
		SOIOffset: int64(soi),
		HasSOI:    true,
	}
	s.Segments = append(s.Segments, Segment{Kind: "SOI", Marker: MarkerSOI, Offset: int64(soi), Length: 2})

	pos := soi + 2
	for pos < len(data) {
		if data[pos] != 0xFF {
			// Stray byte where a marker was expected. Report and stop: the
			// walk has lost synchronization with the marker structure.
			s.Faults = append(s.Faults, SegmentFault{
				Kind:   "stray",
				Offset: int64(pos),
				Reason: fmt.Sprintf("expected marker prefix, found 0x%02X", data[pos]),
			})
			s.StoppedAt = int64(pos)
			return s, nil
		}

		// Fill bytes: any number of 0xFF may pad between segments.
		for pos+1 < len(data) && data[pos+1] == 0xFF {
			pos++
		}
		if pos+1 >= len(data) {
			// Stream ends on a bare 0xFF, half a marker.
			s.TruncatedInSegment = true
			s.StoppedAt = int64(len(data))
			return s, nil
		}

		marker := data[pos+1]
		switch {
		case marker == MarkerEOI:
			s.HasEOI = true
			s.EOIOffset = int64(pos)
			s.Segments = append(s.Segments, Segment{Kind: "EOI", Marker: MarkerEOI, Offset: int64(pos), Length: 2})
			s.StoppedAt = int64(pos + 2)
			return s, nil

		case IsStandaloneMarker(marker):
			s.Segments = append(s.Segments, Segment{Kind: MarkerName(marker), Marker: marker, Offset: int64(pos), Length: 2})
			pos += 2

		case marker == 0x00:
			// A stuffed 0xFF00 outside scan data means the header area is
			// desynchronized.
			s.Faults = append(s.Faults, SegmentFault{
				Kind:   "stuffed",
				Offset: int64(pos),
				Reason: "byte-stuffed 0xFF00 outside entropy-coded data",
			})
			s.StoppedAt = int64(pos)
			return s, nil

		default:
			if pos+MarkerHeaderSize > len(data) {
				s.TruncatedInSegment = true
				s.StoppedAt = int64(len(data))
				return s, nil
			}
			declared := int(ReadU16(data, pos+2))
			if declared < 2 {
				s.Faults = append(s.Faults, SegmentFault{
					Kind:   MarkerName(marker),
					Offset: int64(pos),
					Reason: fmt.Sprintf("declared length %d below minimum", declared),
				})
				s.StoppedAt = int64(pos)
				return s, nil
			}
			end := pos + 2 + declared
			if end > len(data) {
				s.TruncatedInSegment = true
				s.Segments = append(s.Segments, Segment{
					Kind: MarkerName(marker), Marker: marker,
					Offset: int64(pos), Length: int64(len(data) - pos),
				})
				s.StoppedAt = int64(len(data))
				return s, nil
			}
			s.Segments = append(s.Segments, Segment{
				Kind: MarkerName(marker), Marker: marker,
				Offset: int64(pos), Length: int64(2 + declared),
			})

			if marker == MarkerSOS {
				s.ScanOffset = int64(end)
				next, found := scanEntropy(data, end)
				s.ScanLength = int64(next) - s.ScanOffset
				if !found {
					// Stream ended inside the entropy tail without EOI.
					s.StoppedAt = int64(len(data))
					return s, nil
				}
				pos = next
				continue
			}
			pos = end
		}
	}

	s.StoppedAt = int64(len(data))
	return s, nil
}

// scanEntropy skips entropy-coded bytes starting at off and returns the
// offset of the next real marker. Stuffed 0xFF00 pairs and restart markers
// belong to the scan and are skipped. found is false when the stream ends
// first.
func scanEntropy(data []byte, off int) (next int, found bool) {
	p := off
	for p+1 < len(data) {
		if data[p] != 0xFF {
			p++
			continue
		}
		m := data[p+1]
		if m == 0xFF {
			// Fill byte, the marker may still follow.
			p++
			continue
		}
		if m == 0x00 || (m >= MarkerRST0 && m <= MarkerRST7) {
			p += 2
			continue
		}
		return p, true
	}
	return len(data), false
}
