// Package classify derives corruption records from validation verdicts and
// parser facts. Classification is pure and deterministic: the same artifact
// and verdict list always produces an identical record.
package classify

// Classification is the tri-state validity verdict for an artifact.
type Classification int

const (
	Valid Classification = iota
	Corrupted
	Unrecoverable
)

func (c Classification) String() string {
	switch c {
	case Valid:
		return "valid"
	case Corrupted:
		return "corrupted"
	case Unrecoverable:
		return "unrecoverable"
	default:
		return "invalid"
	}
}

// MarshalText serializes the classification by name for reports.
func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// CorruptionType tags what kind of damage was found. The set is closed:
// repair dispatch switches over it exhaustively, so an unhandled type is
// a compile-time omission rather than a silent fallthrough.
type CorruptionType int

const (
	TypeNone CorruptionType = iota
	TypeMissingFooter
	TypeInvalidHeader
	TypeCorruptSegments
	TypeCorruptData
	TypeTruncated
	TypeFragmented
	TypeFalsePositive
	TypeUnknown
)

func (t CorruptionType) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeMissingFooter:
		return "missing_footer"
	case TypeInvalidHeader:
		return "invalid_header"
	case TypeCorruptSegments:
		return "corrupt_segments"
	case TypeCorruptData:
		return "corrupt_data"
	case TypeTruncated:
		return "truncated"
	case TypeFragmented:
		return "fragmented"
	case TypeFalsePositive:
		return "false_positive"
	default:
		return "unknown"
	}
}

// MarshalText serializes the corruption type by taxonomy name.
func (t CorruptionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Tier returns the repairability tier for the corruption type: 1 is the
// easiest repair, 5 is not repairable. The mapping is fixed; tiers are
// never inferred per-artifact.
func (t CorruptionType) Tier() int {
	switch t {
	case TypeMissingFooter:
		return 1
	case TypeInvalidHeader, TypeCorruptSegments:
		return 2
	case TypeCorruptData, TypeTruncated:
		return 3
	case TypeFragmented:
		return 4
	case TypeFalsePositive:
		return 5
	case TypeNone:
		return 0
	default:
		return 3
	}
}

// Repairable reports whether any technique exists for the type.
func (t CorruptionType) Repairable() bool {
	switch t {
	case TypeMissingFooter, TypeInvalidHeader, TypeCorruptSegments,
		TypeCorruptData, TypeTruncated, TypeUnknown:
		return true
	default:
		return false
	}
}

// Technique identifies a reconstruction technique. The mapping from
// corruption type to technique is a closed dispatch table.
type Technique int

const (
	TechniqueNone Technique = iota
	TechniqueFooterAppend
	TechniqueHeaderRebuild
	TechniqueSegmentStrip
	TechniquePartialReencode
)

func (t Technique) String() string {
	switch t {
	case TechniqueFooterAppend:
		return "footer_append"
	case TechniqueHeaderRebuild:
		return "header_rebuild"
	case TechniqueSegmentStrip:
		return "segment_strip"
	case TechniquePartialReencode:
		return "partial_reencode"
	default:
		return "none"
	}
}

// MarshalText serializes the technique by name.
func (t Technique) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// TechniqueFor returns the reconstruction technique mapped to a corruption
// type, or TechniqueNone when the type is not repairable.
func TechniqueFor(t CorruptionType) Technique {
	switch t {
	case TypeMissingFooter:
		return TechniqueFooterAppend
	case TypeInvalidHeader, TypeUnknown:
		return TechniqueHeaderRebuild
	case TypeCorruptSegments:
		return TechniqueSegmentStrip
	case TypeCorruptData, TypeTruncated:
		return TechniquePartialReencode
	case TypeNone, TypeFragmented, TypeFalsePositive:
		return TechniqueNone
	default:
		return TechniqueNone
	}
}
