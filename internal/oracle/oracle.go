// Package oracle validates recovered image artifacts.
//
// The oracle runs a fixed battery of checks against an artifact and
// records one verdict per check that ran. Built-in checks (size, magic,
// structure) always run; optional capabilities (full pixel decode, the
// format auditor) are registered at construction and degrade to absent
// when unavailable or when they exceed the configured timeout. An absent
// check contributes no verdict: the classifier must never mistake "could
// not check" for "checked and failed".
package oracle

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/artifact"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/config"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/format"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/logging"
)

// Verdict is the outcome of a single check against a single artifact.
type Verdict struct {
	Check      string `json:"check"`
	Passed     bool   `json:"passed"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// Facts carries the structural evidence gathered while checking, so the
// classifier can reason about the damage without re-parsing.
type Facts struct {
	// Kind is the strict detection result from the leading magic bytes.
	Kind format.Kind
	// LooseKind and SigOffset come from the forgiving detection pass that
	// accepts a signature behind a garbage prefix.
	LooseKind format.Kind
	SigOffset int64

	JPEG *format.JPEGStructure
	PNG  *format.PNGStructure

	// ParseErr is set when the structural walk failed outright, meaning
	// no recognizable signature exists anywhere in the stream.
	ParseErr error
}

// Result bundles everything the oracle learned about one artifact.
type Result struct {
	ArtifactID string
	Size       int64
	Verdicts   []Verdict
	Facts      Facts
}

// AllPassed reports whether every check that ran passed.
func (r *Result) AllPassed() bool {
	for _, v := range r.Verdicts {
		if !v.Passed {
			return false
		}
	}
	return len(r.Verdicts) > 0
}

// Passed returns how many checks passed.
func (r *Result) Passed() int {
	n := 0
	for _, v := range r.Verdicts {
		if v.Passed {
			n++
		}
	}
	return n
}

// Failed returns how many checks failed.
func (r *Result) Failed() int { return len(r.Verdicts) - r.Passed() }

// Verdict returns the verdict for the named check and whether it ran.
func (r *Result) Verdict(name string) (Verdict, bool) {
	for _, v := range r.Verdicts {
		if v.Check == name {
			return v, true
		}
	}
	return Verdict{}, false
}

// Checker is a validation capability. Check returns an error only when
// the check could not run at all; that error suppresses the verdict
// rather than failing the artifact.
type Checker interface {
	Name() string
	Check(ctx context.Context, art *artifact.Artifact, facts *Facts) (Verdict, error)
}

// Oracle runs the check battery. The check set is fixed at construction;
// ordering is cheapest-first so hopeless artifacts exit early.
type Oracle struct {
	optional []Checker
	timeout  time.Duration
	log      *slog.Logger
}

// New builds an oracle with the optional capabilities enabled in cfg.
func New(cfg config.Checks) *Oracle {
	o := &Oracle{
		timeout: cfg.Timeout.Std(),
		log:     logging.New("oracle"),
	}
	if cfg.Decode {
		o.optional = append(o.optional, decodeCheck{})
	}
	if cfg.Auditor {
		o.optional = append(o.optional, auditorCheck{})
	}
	return o
}

// Examine runs every check against the artifact. A zero-byte artifact
// short-circuits after the size check; nothing else could succeed and
// the expensive checks are not worth starting.
func (o *Oracle) Examine(ctx context.Context, art *artifact.Artifact) *Result {
	res := &Result{ArtifactID: art.ID, Size: art.Size()}

	if art.Size() == 0 {
		res.Verdicts = append(res.Verdicts, Verdict{
			Check: "size", Passed: false, Diagnostic: "zero-byte artifact",
		})
		return res
	}
	res.Verdicts = append(res.Verdicts, Verdict{Check: "size", Passed: true})

	res.Verdicts = append(res.Verdicts, magicCheck(art, &res.Facts))
	res.Verdicts = append(res.Verdicts, structureCheck(art, &res.Facts))

	for _, chk := range o.optional {
		v, err := o.runBounded(ctx, chk, art, &res.Facts)
		if err != nil {
			o.log.Warn("check unavailable",
				slog.String("artifact", art.ID),
				slog.String("check", chk.Name()),
				slog.Any("error", err))
			continue
		}
		res.Verdicts = append(res.Verdicts, v)
	}
	return res
}

// runBounded executes a checker under the configured timeout. A checker
// that overruns is abandoned and its verdict discarded; the goroutine is
// left to finish on its own since the checks do not hold resources.
func (o *Oracle) runBounded(ctx context.Context, chk Checker, art *artifact.Artifact, facts *Facts) (Verdict, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	type outcome struct {
		v   Verdict
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := chk.Check(ctx, art, facts)
		done <- outcome{v, err}
	}()

	select {
	case out := <-done:
		return out.v, out.err
	case <-ctx.Done():
		return Verdict{}, ctx.Err()
	}
}
