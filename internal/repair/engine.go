// Package repair reconstructs corrupted image artifacts.
//
// The engine coordinates technique modules, re-validation, and audit
// records. It ensures repairs are safe by construction: every technique
// operates on a working copy, the original evidence bytes are never
// touched, and a candidate that does not classify as valid afterwards is
// discarded rather than delivered.
package repair

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/artifact"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/classify"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/config"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/logging"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/oracle"
)

// Options configures the repair engine.
type Options struct {
	// DryRun plans repairs without producing output bytes.
	DryRun bool
}

// Status is the outcome of a single technique attempt.
type Status int

const (
	StatusPlanned Status = iota
	StatusApplied
	StatusSkipped
	StatusFailed
	StatusVerifyFailed
)

func (s Status) String() string {
	switch s {
	case StatusPlanned:
		return "planned"
	case StatusApplied:
		return "applied"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	case StatusVerifyFailed:
		return "verify_failed"
	default:
		return "unknown"
	}
}

// MarshalText serializes the status by name.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Attempt is the audit record of one technique run against one artifact.
type Attempt struct {
	ArtifactID string        `json:"artifact_id"`
	Technique  string        `json:"technique"`
	Status     Status        `json:"status"`
	Note       string        `json:"note,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	OutputSize int64         `json:"output_size,omitempty"`
}

// Outcome is the result of repairing one artifact: the repaired bytes
// when a technique succeeded, plus the full attempt trail either way.
type Outcome struct {
	ArtifactID string
	Repaired   bool
	// Data holds the verified repair output; nil unless Repaired.
	Data []byte
	// Technique is the one that produced Data.
	Technique classify.Technique
	Attempts  []Attempt
	// Final is the re-classification of the delivered output.
	Final *classify.Record
}

// Engine runs technique modules against corrupted artifacts.
type Engine struct {
	oracle     *oracle.Oracle
	classifier *classify.Classifier
	modules    []Module
	heuristics config.Heuristics
	opts       Options
	log        *slog.Logger
}

// New builds a repair engine with the default technique registry.
func New(o *oracle.Oracle, c *classify.Classifier, h config.Heuristics, opts Options) *Engine {
	return &Engine{
		oracle:     o,
		classifier: c,
		modules:    defaultModules(),
		heuristics: h,
		opts:       opts,
		log:        logging.New("repair"),
	}
}

// Repair attempts to reconstruct one corrupted artifact. The recommended
// technique runs first; if its output fails re-validation the engine
// escalates to the partial re-encode fallback. The original artifact
// bytes are never modified.
func (e *Engine) Repair(ctx context.Context, art *artifact.Artifact, rec classify.Record, facts *oracle.Facts) (*Outcome, error) {
	out := &Outcome{ArtifactID: art.ID}

	// Repairing a valid artifact is a no-op returning the same bytes;
	// valid data is never re-repaired.
	if rec.Classification == classify.Valid {
		out.Repaired = false
		out.Data = art.Bytes()
		return out, nil
	}

	if rec.Classification != classify.Corrupted || !rec.Type.Repairable() {
		return out, fmt.Errorf("repair %s (%s): %w", art.ID, rec.Type, ErrUnrecoverable)
	}

	mods := e.candidates(rec, facts)
	if len(mods) == 0 {
		return out, fmt.Errorf("repair %s (%s): %w", art.ID, rec.Type, ErrNotApplicable)
	}

	if e.opts.DryRun {
		for _, m := range mods {
			out.Attempts = append(out.Attempts, Attempt{
				ArtifactID: art.ID,
				Technique:  m.Name(),
				Status:     StatusPlanned,
			})
		}
		return out, nil
	}

	for _, m := range mods {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		attempt := e.attempt(ctx, m, art, rec, facts)
		out.Attempts = append(out.Attempts, attempt.record)
		if attempt.record.Status != StatusApplied {
			continue
		}

		out.Repaired = true
		out.Data = attempt.data
		out.Technique = m.Technique()
		out.Final = &attempt.final
		e.log.Info("artifact repaired",
			slog.String("artifact", art.ID),
			slog.String("technique", m.Name()),
			slog.Int("size", len(attempt.data)))
		return out, nil
	}

	return out, fmt.Errorf("repair %s (%s): %w", art.ID, rec.Type, ErrVerificationFailed)
}

// candidates orders the modules to try: the one implementing the
// recommended technique, then the re-encode fallback.
func (e *Engine) candidates(rec classify.Record, facts *oracle.Facts) []Module {
	var mods []Module
	for _, m := range e.modules {
		if m.Technique() == rec.Technique && m.CanRepair(rec, facts) {
			mods = append(mods, m)
		}
	}
	for _, m := range e.modules {
		if m.Technique() == classify.TechniquePartialReencode &&
			rec.Technique != classify.TechniquePartialReencode && m.CanRepair(rec, facts) {
			mods = append(mods, m)
		}
	}
	return mods
}

type attemptResult struct {
	record Attempt
	data   []byte
	final  classify.Record
}

// attempt runs one module on a fresh working copy and re-validates its
// output. Output that does not classify as valid is discarded.
func (e *Engine) attempt(ctx context.Context, m Module, art *artifact.Artifact, rec classify.Record, facts *oracle.Facts) attemptResult {
	start := time.Now()
	res := attemptResult{record: Attempt{ArtifactID: art.ID, Technique: m.Name()}}
	finish := func() attemptResult {
		res.record.Duration = time.Since(start)
		return res
	}

	repaired, note, err := m.Apply(art.WorkingCopy(), facts, e.heuristics)
	res.record.Note = note
	if err != nil {
		res.record.Status = StatusFailed
		res.record.Error = (&TechniqueError{
			Technique:  m.Name(),
			ArtifactID: art.ID,
			Message:    "technique failed",
			Cause:      err,
		}).Error()
		return finish()
	}

	check := e.oracle.Examine(ctx, artifact.FromBytes(art.ID+":candidate", repaired))
	final := e.classifier.Classify(check)
	final.ArtifactID = art.ID
	if final.Classification != classify.Valid {
		res.record.Status = StatusVerifyFailed
		res.record.Error = (&TechniqueError{
			Technique:  m.Name(),
			ArtifactID: art.ID,
			Message: fmt.Sprintf("candidate classifies as %s (%s)",
				final.Classification, final.Detail),
			Cause: ErrVerificationFailed,
		}).Error()
		e.log.Debug("repair candidate rejected",
			slog.String("artifact", art.ID),
			slog.String("technique", m.Name()),
			slog.String("classification", final.Classification.String()))
		return finish()
	}

	res.record.Status = StatusApplied
	res.record.OutputSize = int64(len(repaired))
	res.data = repaired
	res.final = final
	return finish()
}
