package repair

import (
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/classify"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/config"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/format"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/oracle"
)

// iendChunk is a complete zero-length IEND chunk with its fixed CRC.
var iendChunk = []byte{
	0x00, 0x00, 0x00, 0x00,
	'I', 'E', 'N', 'D',
	0xAE, 0x42, 0x60, 0x82,
}

// footerModule restores a lost stream terminator. The image data is
// intact; only the trailing marker or chunk is gone, which makes this
// the highest-yield technique in the registry.
type footerModule struct{}

func (footerModule) Name() string { return "footer_append" }

func (footerModule) Technique() classify.Technique { return classify.TechniqueFooterAppend }

func (footerModule) CanRepair(rec classify.Record, facts *oracle.Facts) bool {
	if rec.Type != classify.TypeMissingFooter {
		return false
	}
	return facts.JPEG != nil || facts.PNG != nil
}

func (footerModule) Apply(work []byte, facts *oracle.Facts, _ config.Heuristics) ([]byte, string, error) {
	switch {
	case facts.JPEG != nil:
		if n := len(work); n > 0 && work[n-1] == 0xFF {
			// The stream kept the first half of the EOI marker.
			return append(work, format.MarkerEOI), "completed half-written EOI marker", nil
		}
		return append(work, 0xFF, format.MarkerEOI), "appended EOI marker", nil

	case facts.PNG != nil:
		return append(work, iendChunk...), "appended IEND chunk", nil

	default:
		return nil, "", ErrNotApplicable
	}
}

// footerTruncateModule is the second chance when a plain footer append
// does not verify: trailing bytes after the recognizable stream are
// junk, so it cuts back to the last sound boundary before terminating.
type footerTruncateModule struct{}

func (footerTruncateModule) Name() string { return "footer_append_truncate" }

func (footerTruncateModule) Technique() classify.Technique { return classify.TechniqueFooterAppend }

func (footerTruncateModule) CanRepair(rec classify.Record, facts *oracle.Facts) bool {
	if rec.Type != classify.TypeMissingFooter {
		return false
	}
	if facts.JPEG != nil {
		return facts.JPEG.HasScan()
	}
	return facts.PNG != nil && len(facts.PNG.Chunks) > 0
}

func (footerTruncateModule) Apply(work []byte, facts *oracle.Facts, _ config.Heuristics) ([]byte, string, error) {
	switch {
	case facts.JPEG != nil:
		// Cut back to the last recognizable boundary: the end of the
		// entropy-coded scan when one was seen, the last fully framed
		// marker segment otherwise.
		end := facts.JPEG.LastMarkerBoundary()
		if scanEnd := facts.JPEG.ScanOffset + facts.JPEG.ScanLength; scanEnd > end {
			end = scanEnd
		}
		if end <= 0 || end > int64(len(work)) {
			return nil, "", ErrNotApplicable
		}
		out := append(work[:end], 0xFF, format.MarkerEOI)
		return out, "truncated to last marker boundary and appended EOI", nil

	case facts.PNG != nil:
		var end int64
		for _, c := range facts.PNG.Chunks {
			if !c.CRCOK {
				continue
			}
			if span := c.Offset + c.Span(); span > end {
				end = span
			}
		}
		if end <= 0 || end > int64(len(work)) {
			return nil, "", ErrNotApplicable
		}
		out := append(work[:end], iendChunk...)
		return out, "truncated past last sound chunk and appended IEND", nil

	default:
		return nil, "", ErrNotApplicable
	}
}
