package oracle

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/artifact"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/format"
)

// magicCheck verifies the leading signature and records both the strict
// and the forgiving detection result on the facts.
func magicCheck(art *artifact.Artifact, facts *Facts) Verdict {
	data := art.Bytes()
	facts.Kind = format.Detect(data)
	facts.LooseKind, facts.SigOffset = format.DetectLoose(data)

	if facts.Kind != format.KindUnknown {
		return Verdict{Check: "magic", Passed: true}
	}
	if facts.LooseKind != format.KindUnknown {
		return Verdict{
			Check:  "magic",
			Passed: false,
			Diagnostic: fmt.Sprintf("%s signature buried at offset 0x%X",
				facts.LooseKind, facts.SigOffset),
		}
	}
	return Verdict{Check: "magic", Passed: false, Diagnostic: "no known image signature"}
}

// structureCheck walks the container structure and records the parse
// result on the facts. It passes only for a fully coherent stream:
// signature at offset zero, no segment faults, no truncation, and the
// footer present.
func structureCheck(art *artifact.Artifact, facts *Facts) Verdict {
	data := art.Bytes()
	fail := func(diag string) Verdict {
		return Verdict{Check: "structure", Passed: false, Diagnostic: diag}
	}

	switch facts.LooseKind {
	case format.KindJPEG:
		s, err := format.ParseJPEG(data)
		if err != nil {
			facts.ParseErr = err
			return fail(err.Error())
		}
		facts.JPEG = s
		switch {
		case s.SOIOffset != 0:
			return fail(fmt.Sprintf("start marker at offset 0x%X, garbage prefix", s.SOIOffset))
		case len(s.Faults) > 0:
			return fail("segment fault: " + s.Faults[0].String())
		case s.TruncatedInSegment:
			return fail("stream ends inside a marker segment")
		case !s.HasScan():
			return fail("no start-of-scan header")
		case !s.HasEOI:
			return fail("no end-of-image marker")
		}
		return Verdict{Check: "structure", Passed: true}

	case format.KindPNG:
		s, err := format.ParsePNG(data)
		if err != nil {
			facts.ParseErr = err
			return fail(err.Error())
		}
		facts.PNG = s
		switch {
		case s.SigOffset != 0:
			return fail(fmt.Sprintf("signature at offset 0x%X, garbage prefix", s.SigOffset))
		case s.TruncatedInChunk:
			return fail("stream ends inside a chunk")
		case s.BadCRCCount() > 0:
			return fail(fmt.Sprintf("%d chunk CRC mismatches", s.BadCRCCount()))
		case !s.HasIHDR:
			return fail("no IHDR chunk")
		case !s.HasIEND:
			return fail("no IEND chunk")
		}
		return Verdict{Check: "structure", Passed: true}

	default:
		facts.ParseErr = format.ErrUnknownFormat
		return fail("unrecognized container format")
	}
}

// decodeCheck runs the full pixel decode. It is the most expensive check
// and the strongest signal: a stream that decodes end to end is an image,
// whatever the structural walk thought of it.
type decodeCheck struct{}

func (decodeCheck) Name() string { return "decode" }

func (decodeCheck) Check(ctx context.Context, art *artifact.Artifact, facts *Facts) (Verdict, error) {
	if err := ctx.Err(); err != nil {
		return Verdict{}, err
	}
	if facts.LooseKind == format.KindUnknown {
		// Nothing stdlib could decode; report a failure, not an absence.
		return Verdict{Check: "decode", Passed: false, Diagnostic: "no decodable format"}, nil
	}
	_, _, err := image.Decode(bytes.NewReader(art.Bytes()))
	if err != nil {
		return Verdict{Check: "decode", Passed: false, Diagnostic: err.Error()}, nil
	}
	return Verdict{Check: "decode", Passed: true}, nil
}

// auditorCheck cross-checks the parsed structure against what a complete
// image of its format must contain: the critical JPEG tables or the
// critical PNG chunks. It runs on the facts the structure check already
// gathered and is unavailable when no structure was parsed.
type auditorCheck struct{}

func (auditorCheck) Name() string { return "auditor" }

func (auditorCheck) Check(ctx context.Context, art *artifact.Artifact, facts *Facts) (Verdict, error) {
	if err := ctx.Err(); err != nil {
		return Verdict{}, err
	}

	switch {
	case facts.JPEG != nil:
		return auditJPEG(facts.JPEG), nil
	case facts.PNG != nil:
		return auditPNG(facts.PNG), nil
	default:
		return Verdict{}, fmt.Errorf("auditor: no parsed structure for %s", art.ID)
	}
}

func auditJPEG(s *format.JPEGStructure) Verdict {
	fail := func(diag string) Verdict {
		return Verdict{Check: "auditor", Passed: false, Diagnostic: diag}
	}

	var hasSOF bool
	for _, seg := range s.Segments {
		// SOFn shares the 0xC0..0xCF range with DHT (C4), JPG (C8) and
		// DAC (CC), which are not frame headers.
		m := seg.Marker
		if m >= format.MarkerSOF0 && m <= 0xCF && m != format.MarkerDHT && m != 0xC8 && m != 0xCC {
			hasSOF = true
		}
	}
	switch {
	case !hasSOF:
		return fail("no frame header (SOF)")
	case s.Segment(format.MarkerDQT) == nil:
		return fail("no quantization table (DQT)")
	case s.Segment(format.MarkerDHT) == nil:
		return fail("no Huffman table (DHT)")
	case s.Segment(format.MarkerSOS) == nil:
		return fail("no scan header (SOS)")
	case s.ScanLength == 0:
		return fail("empty entropy-coded scan")
	}
	return Verdict{Check: "auditor", Passed: true}
}

func auditPNG(s *format.PNGStructure) Verdict {
	fail := func(diag string) Verdict {
		return Verdict{Check: "auditor", Passed: false, Diagnostic: diag}
	}

	if len(s.Chunks) == 0 || s.Chunks[0].Type != "IHDR" {
		return fail("IHDR is not the first chunk")
	}
	var hasIDAT bool
	for _, c := range s.Chunks {
		if c.Type == "IDAT" {
			hasIDAT = true
		}
		if c.Critical() && !c.CRCOK {
			return fail(fmt.Sprintf("critical chunk %s fails CRC", c.Type))
		}
	}
	if !hasIDAT {
		return fail("no IDAT chunk")
	}
	return Verdict{Check: "auditor", Passed: true}
}
