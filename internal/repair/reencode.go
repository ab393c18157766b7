package repair

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/classify"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/config"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/format"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/oracle"
)

// reencodeModule is the last-resort technique: decode whatever pixels the
// standard decoders can still extract and write a fresh, fully coherent
// stream around them. It salvages only what decodes; when no candidate
// decodes the module fails honestly instead of fabricating image data.
type reencodeModule struct{}

func (reencodeModule) Name() string { return "partial_reencode" }

func (reencodeModule) Technique() classify.Technique { return classify.TechniquePartialReencode }

func (reencodeModule) CanRepair(rec classify.Record, facts *oracle.Facts) bool {
	return rec.Type.Repairable() && facts.LooseKind != format.KindUnknown
}

func (reencodeModule) Apply(work []byte, facts *oracle.Facts, _ config.Heuristics) ([]byte, string, error) {
	for _, cand := range salvageCandidates(work, facts) {
		img, kind, err := image.Decode(bytes.NewReader(cand.data))
		if err != nil {
			continue
		}
		out, err := encode(img, kind)
		if err != nil {
			continue
		}
		return out, "re-encoded after " + cand.note, nil
	}
	return nil, "", ErrNotApplicable
}

type candidate struct {
	data []byte
	note string
}

// salvageCandidates orders the byte views worth offering to the decoder:
// the stream as-is, then with the garbage prefix cut, then with a
// terminator patched on.
func salvageCandidates(work []byte, facts *oracle.Facts) []candidate {
	cands := []candidate{{work, "decoding the stream as-is"}}

	if facts.SigOffset > 0 {
		cands = append(cands, candidate{work[facts.SigOffset:], "cutting the garbage prefix"})
	}
	if s := facts.JPEG; s != nil && !s.HasEOI {
		patched := append(append([]byte(nil), work...), 0xFF, format.MarkerEOI)
		cands = append(cands, candidate{patched, "patching a terminator onto the scan"})
	}
	if s := facts.PNG; s != nil && !s.HasIEND {
		patched := append(append([]byte(nil), work...), iendChunk...)
		cands = append(cands, candidate{patched, "patching an IEND chunk on"})
	}
	return cands
}

func encode(img image.Image, kind string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if kind == "png" {
		err = png.Encode(&buf, img)
	} else {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
