package repair

import (
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/classify"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/config"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/oracle"
)

// Module is a single reconstruction technique. Modules operate on a
// working copy handed to them by the engine; they never see the original
// mapping and never write files themselves.
type Module interface {
	// Name is the technique name used in attempt records and logs.
	Name() string

	// Technique is the taxonomy technique this module implements.
	Technique() classify.Technique

	// CanRepair reports whether the module can operate on the artifact
	// given its classification and structural facts.
	CanRepair(rec classify.Record, facts *oracle.Facts) bool

	// Apply transforms the working copy into a repair candidate. The
	// returned slice may alias work. A note describes what was done for
	// the audit trail.
	Apply(work []byte, facts *oracle.Facts, h config.Heuristics) (out []byte, note string, err error)
}

// defaultModules is the technique registry in dispatch order. Variants
// of the same technique are ordered primary first, fallback second (the
// footer truncate-and-append, the always-synthesized header); the
// partial re-encode sits last as the fallback every failed technique
// escalates to.
func defaultModules() []Module {
	return []Module{
		footerModule{},
		footerTruncateModule{},
		headerModule{},
		headerSynthModule{},
		segmentModule{},
		reencodeModule{},
	}
}
