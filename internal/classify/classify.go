package classify

import (
	"fmt"

	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/config"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/oracle"
)

// Record is the classification outcome for one artifact.
type Record struct {
	ArtifactID     string         `json:"artifact_id"`
	Classification Classification `json:"classification"`
	Type           CorruptionType `json:"corruption_type"`
	Tier           int            `json:"tier"`
	Technique      Technique      `json:"recommended_technique"`
	// Detail is the diagnostic that drove the classification.
	Detail string `json:"detail,omitempty"`
}

// Classifier turns oracle results into corruption records.
type Classifier struct {
	heuristics config.Heuristics
}

// New builds a classifier with the given structural heuristics.
func New(h config.Heuristics) *Classifier {
	return &Classifier{heuristics: h}
}

// Classify derives the corruption record for one oracle result. The
// mapping is pure: re-running it over the same result always yields an
// identical record.
func (c *Classifier) Classify(res *oracle.Result) Record {
	rec := Record{ArtifactID: res.ArtifactID}

	if res.AllPassed() {
		rec.Classification = Valid
		rec.Type = TypeNone
		return c.finish(rec)
	}

	if v, ok := res.Verdict("size"); ok && !v.Passed {
		rec.Classification = Unrecoverable
		rec.Type = TypeFalsePositive
		rec.Detail = "zero-byte artifact"
		return c.finish(rec)
	}

	if res.Facts.ParseErr != nil || res.Passed() == 0 {
		// Nothing recognizable anywhere in the stream: a carved false
		// match, not a damaged image.
		rec.Classification = Unrecoverable
		rec.Type = TypeFalsePositive
		rec.Detail = "no recognizable image structure"
		return c.finish(rec)
	}

	switch {
	case res.Facts.JPEG != nil:
		rec.Type, rec.Detail = c.classifyJPEG(res)
	case res.Facts.PNG != nil:
		rec.Type, rec.Detail = c.classifyPNG(res)
	default:
		rec.Type = TypeUnknown
		rec.Detail = "checks failed without structural evidence"
	}

	if rec.Type == TypeFalsePositive {
		rec.Classification = Unrecoverable
	} else {
		rec.Classification = Corrupted
	}
	return c.finish(rec)
}

func (c *Classifier) finish(rec Record) Record {
	rec.Tier = rec.Type.Tier()
	rec.Technique = TechniqueFor(rec.Type)
	return rec
}

// classifyJPEG maps JPEG structural facts to a corruption type. Header
// damage outranks footer damage: a stream with both gets the header type
// and the footer resurfaces in re-validation after the first repair.
func (c *Classifier) classifyJPEG(res *oracle.Result) (CorruptionType, string) {
	s := res.Facts.JPEG

	if !s.HasScan() && len(s.Segments) <= 2 {
		return TypeFalsePositive, "signature match with no image structure behind it"
	}
	if s.SOIOffset != 0 {
		return TypeInvalidHeader,
			fmt.Sprintf("%d bytes of garbage before the start marker", s.SOIOffset)
	}
	if len(s.Faults) > 0 {
		return TypeCorruptSegments, "segment fault: " + s.Faults[0].String()
	}
	if s.TruncatedInSegment {
		return TypeTruncated, "stream ends inside a marker segment"
	}
	if !s.HasEOI {
		// A footerless stream with a substantial entropy tail lost only
		// its trailing marker; a stream cut mid-scan lost image data.
		if s.HasScan() && s.ScanLength >= int64(c.heuristics.MinScanBytes) {
			return TypeMissingFooter, "end-of-image marker absent"
		}
		return TypeTruncated,
			fmt.Sprintf("entropy-coded scan cut short at %d bytes", s.ScanLength)
	}

	// Structure is coherent, so the damage is inside the entropy-coded
	// data where only the decode check can see it.
	if v, ok := res.Verdict("decode"); ok && !v.Passed {
		return TypeCorruptData, "coherent structure but pixel decode fails: " + v.Diagnostic
	}
	return TypeUnknown, firstFailure(res)
}

func (c *Classifier) classifyPNG(res *oracle.Result) (CorruptionType, string) {
	s := res.Facts.PNG

	if !s.HasIHDR && len(s.Chunks) == 0 {
		return TypeFalsePositive, "signature match with no chunks behind it"
	}
	if s.SigOffset != 0 {
		return TypeInvalidHeader,
			fmt.Sprintf("%d bytes of garbage before the signature", s.SigOffset)
	}
	if s.TruncatedInChunk {
		return TypeTruncated, "stream ends inside a chunk"
	}
	if s.BadCRCCount() > 0 {
		return TypeCorruptSegments,
			fmt.Sprintf("%d chunks fail CRC recomputation", s.BadCRCCount())
	}
	if !s.HasIEND {
		return TypeMissingFooter, "IEND chunk absent"
	}

	if v, ok := res.Verdict("decode"); ok && !v.Passed {
		return TypeCorruptData, "coherent chunks but pixel decode fails: " + v.Diagnostic
	}
	return TypeUnknown, firstFailure(res)
}

func firstFailure(res *oracle.Result) string {
	for _, v := range res.Verdicts {
		if !v.Passed {
			return v.Check + " check failed: " + v.Diagnostic
		}
	}
	return "unclassified failure"
}

// Summary aggregates a batch of records.
type Summary struct {
	Total         int            `json:"total"`
	Valid         int            `json:"valid"`
	Corrupted     int            `json:"corrupted"`
	Unrecoverable int            `json:"unrecoverable"`
	Repairable    int            `json:"repairable"`
	ByType        map[string]int `json:"by_type,omitempty"`
	// IntegrityScore is the percentage of the batch that is valid.
	IntegrityScore float64 `json:"integrity_score"`
}

// Band buckets the integrity score the way the recovery reports do.
func (s Summary) Band() string {
	switch {
	case s.IntegrityScore >= 95:
		return "excellent"
	case s.IntegrityScore >= 85:
		return "good"
	case s.IntegrityScore >= 70:
		return "fair"
	default:
		return "poor"
	}
}

// Summarize computes batch statistics over a set of records.
func Summarize(records []Record) Summary {
	sum := Summary{Total: len(records), ByType: map[string]int{}}
	for _, rec := range records {
		switch rec.Classification {
		case Valid:
			sum.Valid++
		case Corrupted:
			sum.Corrupted++
			sum.ByType[rec.Type.String()]++
			if rec.Type.Repairable() {
				sum.Repairable++
			}
		case Unrecoverable:
			sum.Unrecoverable++
			sum.ByType[rec.Type.String()]++
		}
	}
	if sum.Total > 0 {
		sum.IntegrityScore = float64(sum.Valid) / float64(sum.Total) * 100
	}
	return sum
}
