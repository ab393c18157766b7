package repair

import (
	"bytes"

	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/classify"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/config"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/format"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/oracle"
)

// headerModule recovers a stream whose leading bytes are damaged or
// preceded by carving garbage. It first tries the cheap fix, discarding
// everything before the buried signature; when no signature survives it
// synthesizes a minimal JPEG header and splices it onto the first
// surviving table segment.
type headerModule struct{}

func (headerModule) Name() string { return "header_rebuild" }

func (headerModule) Technique() classify.Technique { return classify.TechniqueHeaderRebuild }

func (headerModule) CanRepair(rec classify.Record, facts *oracle.Facts) bool {
	if rec.Type != classify.TypeInvalidHeader && rec.Type != classify.TypeUnknown {
		return false
	}
	return facts.LooseKind != format.KindUnknown
}

func (headerModule) Apply(work []byte, facts *oracle.Facts, h config.Heuristics) ([]byte, string, error) {
	if facts.SigOffset > 0 {
		return work[facts.SigOffset:], "discarded garbage prefix before signature", nil
	}

	if facts.LooseKind == format.KindJPEG {
		return synthesizeJPEGHeader(work, h)
	}

	// A PNG header cannot be synthesized: IHDR carries geometry and bit
	// depth that nothing else in the stream records.
	return nil, "", ErrNotApplicable
}

// headerSynthModule retries a header rebuild with a fully synthesized
// header. It runs after headerModule, covering the case where a buried
// signature was found but stripping the prefix did not verify because
// the signature bytes themselves are damaged.
type headerSynthModule struct{}

func (headerSynthModule) Name() string { return "header_rebuild_synth" }

func (headerSynthModule) Technique() classify.Technique { return classify.TechniqueHeaderRebuild }

func (headerSynthModule) CanRepair(rec classify.Record, facts *oracle.Facts) bool {
	if rec.Type != classify.TypeInvalidHeader && rec.Type != classify.TypeUnknown {
		return false
	}
	// Synthesis only works for JPEG, and only adds anything over the
	// primary module when a prefix strip was possible and failed.
	return facts.LooseKind == format.KindJPEG && facts.SigOffset > 0
}

func (headerSynthModule) Apply(work []byte, facts *oracle.Facts, h config.Heuristics) ([]byte, string, error) {
	return synthesizeJPEGHeader(work[facts.SigOffset:], h)
}

// synthesizeJPEGHeader builds SOI plus a minimal JFIF APP0 and splices
// it onto the first quantization table, dropping whatever damaged
// header bytes preceded it.
func synthesizeJPEGHeader(work []byte, h config.Heuristics) ([]byte, string, error) {
	window := work
	if h.HeaderScanWindow > 0 && len(window) > h.HeaderScanWindow {
		window = window[:h.HeaderScanWindow]
	}
	dqt := bytes.Index(window, []byte{0xFF, format.MarkerDQT})
	if dqt < 0 {
		return nil, "", ErrNotApplicable
	}

	out := make([]byte, 0, len(format.JPEGSignature)+len(format.JFIFAPP0)+len(work)-dqt)
	out = append(out, format.JPEGSignature...)
	out = append(out, format.JFIFAPP0...)
	out = append(out, work[dqt:]...)
	return out, "synthesized JFIF header onto first quantization table", nil
}
