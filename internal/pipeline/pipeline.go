// Package pipeline orchestrates the validation, decision, and repair
// stages over a batch of recovered artifacts.
//
// The pipeline walks an input directory, validates every artifact under a
// bounded worker pool, classifies the damage, decides whether repair is
// worth running, and repairs what the decision covers. Outputs are
// written atomically; the input files are opened read-only and never
// modified. All reports are ordered by artifact ID so repeated runs over
// the same input produce identical output.
package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/artifact"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/classify"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/config"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/decide"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/logging"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/oracle"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/repair"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/store"
	"github.com/dmnkSabota/penterep-forensic-toolkit/pkg/types"
)

// Options configures a pipeline run.
type Options struct {
	// OutputDir receives the repaired/ and failed/ directories plus the
	// classification directories when SortIntoDirs is set.
	OutputDir string
	// SortIntoDirs copies artifacts into valid/, corrupted/ and
	// unrecoverable/ under OutputDir after validation.
	SortIntoDirs bool
	// AuditPath enables the SQLite audit trail when non-empty.
	AuditPath string
	// DryRun plans repairs without writing any output.
	DryRun bool
	// ForceRepair runs the repair stage even when the decision says skip.
	ForceRepair bool
}

// RunReport bundles the stage reports of one pipeline run.
type RunReport struct {
	RunID      string                  `json:"run_id"`
	Validation *types.ValidationReport `json:"validation"`
	Decision   *types.DecisionReport   `json:"decision,omitempty"`
	Repair     *types.RepairReport     `json:"repair,omitempty"`
}

// item carries one artifact through the stages.
type item struct {
	id     string
	path   string
	method string
	size   int64
	res    *oracle.Result
	rec    classify.Record
}

// Pipeline wires the engines together for batch runs.
type Pipeline struct {
	cfg        *config.Config
	opts       Options
	oracle     *oracle.Oracle
	classifier *classify.Classifier
	decider    *decide.Engine
	repairer   *repair.Engine
	audit      *store.AuditStore
	log        *slog.Logger
}

// New builds a pipeline from the loaded configuration.
func New(cfg *config.Config, opts Options) (*Pipeline, error) {
	p := &Pipeline{
		cfg:        cfg,
		opts:       opts,
		oracle:     oracle.New(cfg.Checks),
		classifier: classify.New(cfg.Heuristics),
		decider:    decide.New(cfg),
		log:        logging.New("pipeline"),
	}
	p.repairer = repair.New(p.oracle, p.classifier, cfg.Heuristics, repair.Options{DryRun: opts.DryRun})

	if opts.AuditPath != "" {
		audit, err := store.Open(opts.AuditPath)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		p.audit = audit
	}
	return p, nil
}

// Close releases the audit store, if any.
func (p *Pipeline) Close() error {
	if p.audit == nil {
		return nil
	}
	return p.audit.Close()
}

// Run executes the full workflow over inputDir: validate, decide, and
// repair when the decision (or ForceRepair) calls for it.
func (p *Pipeline) Run(ctx context.Context, inputDir string) (*RunReport, error) {
	runID := uuid.NewString()
	report := &RunReport{RunID: runID}

	items, validation, err := p.validate(ctx, runID, inputDir)
	if err != nil {
		return nil, err
	}
	report.Validation = validation

	decision := p.decider.Decide(records(items))
	report.Decision = p.decisionReport(runID, decision, validation.Summary)
	if p.audit != nil {
		if err := p.audit.SaveDecision(runID, decision); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
	}

	if decision.Effective() == decide.ActionRepair || p.opts.ForceRepair {
		rep, err := p.repairBatch(ctx, runID, items)
		if err != nil {
			return nil, err
		}
		report.Repair = rep
	}
	return report, nil
}

// Validate runs only the validation stage and returns its report.
func (p *Pipeline) Validate(ctx context.Context, inputDir string) (*types.ValidationReport, error) {
	_, report, err := p.validate(ctx, uuid.NewString(), inputDir)
	return report, err
}

// Decide runs validation and the decision stage without repairing. A
// non-nil override is layered onto the recommendation and recorded with
// it.
func (p *Pipeline) Decide(ctx context.Context, inputDir string, override *decide.Override) (*RunReport, error) {
	runID := uuid.NewString()
	items, validation, err := p.validate(ctx, runID, inputDir)
	if err != nil {
		return nil, err
	}
	decision := p.decider.Decide(records(items))
	if override != nil {
		decision, err = decide.Apply(decision, *override)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
	}
	if p.audit != nil {
		if err := p.audit.SaveDecision(runID, decision); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
	}
	return &RunReport{
		RunID:      runID,
		Validation: validation,
		Decision:   p.decisionReport(runID, decision, validation.Summary),
	}, nil
}

// discover returns the artifact files under dir, sorted by relative
// path. The relative path doubles as the artifact ID: stable across
// runs, unique within the batch.
func discover(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: walk %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// methodFor infers the upstream recovery method from the artifact's
// parent directory, the layout the extraction stage writes.
func methodFor(root, path string) string {
	parent := filepath.Base(filepath.Dir(path))
	switch parent {
	case "carved", "fs_based":
		return parent
	default:
		if filepath.Dir(path) == filepath.Clean(root) {
			return "unknown"
		}
		return parent
	}
}

func (p *Pipeline) validate(ctx context.Context, runID, inputDir string) ([]*item, *types.ValidationReport, error) {
	start := time.Now()
	paths, err := discover(inputDir)
	if err != nil {
		return nil, nil, err
	}

	items := make([]*item, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	if p.cfg.Workers > 0 {
		g.SetLimit(p.cfg.Workers)
	}
	for i, path := range paths {
		g.Go(func() error {
			rel, err := filepath.Rel(inputDir, path)
			if err != nil {
				rel = filepath.Base(path)
			}
			items[i] = p.examine(gctx, runID, filepath.ToSlash(rel), path, methodFor(inputDir, path))
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("pipeline: validate: %w", err)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].id < items[j].id })

	if p.audit != nil {
		for _, it := range items {
			meta := store.ArtifactMeta{SourcePath: it.path, Method: it.method}
			if err := p.audit.SaveRecord(runID, meta, it.rec); err != nil {
				return nil, nil, fmt.Errorf("pipeline: %w", err)
			}
		}
	}
	if p.opts.SortIntoDirs && !p.opts.DryRun {
		if err := p.sortIntoDirs(items); err != nil {
			return nil, nil, err
		}
	}

	report := p.validationReport(runID, items, time.Since(start))
	return items, report, nil
}

// examine validates and classifies a single artifact. A file that cannot
// be opened is recorded as unrecoverable rather than failing the batch.
func (p *Pipeline) examine(ctx context.Context, runID, id, path, method string) *item {
	it := &item{id: id, path: path, method: method}

	art, err := artifact.Open(id, path, method)
	if err != nil {
		p.log.Warn("artifact unreadable",
			slog.String("run", runID),
			slog.String("artifact", id),
			slog.Any("error", err))
		it.res = &oracle.Result{ArtifactID: id}
		it.rec = classify.Record{
			ArtifactID:     id,
			Classification: classify.Unrecoverable,
			Type:           classify.TypeUnknown,
			Tier:           classify.TypeUnknown.Tier(),
			Detail:         fmt.Sprintf("unreadable: %v", err),
		}
		return it
	}
	defer art.Close()

	it.size = art.Size()
	it.res = p.oracle.Examine(ctx, art)
	it.rec = p.classifier.Classify(it.res)
	return it
}

// repairBatch runs the repair engine over every repairable corrupted
// artifact and writes verified outputs under OutputDir.
func (p *Pipeline) repairBatch(ctx context.Context, runID string, items []*item) (*types.RepairReport, error) {
	start := time.Now()
	report := &types.RepairReport{
		RunID:       runID,
		GeneratedAt: start.UTC(),
		DryRun:      p.opts.DryRun,
	}

	var candidates []*item
	for _, it := range items {
		if it.rec.Classification == classify.Corrupted && it.rec.Type.Repairable() {
			candidates = append(candidates, it)
		}
	}

	results := make([]types.RepairResult, len(candidates))
	repaired := make([]bool, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	if p.cfg.Workers > 0 {
		g.SetLimit(p.cfg.Workers)
	}
	for i, it := range candidates {
		g.Go(func() error {
			res, err := p.repairOne(gctx, runID, it)
			if err != nil {
				return err
			}
			results[i] = *res
			repaired[i] = res.Repaired
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pipeline: repair: %w", err)
	}

	report.Results = results
	report.Attempted = len(candidates)
	report.ByType = make(map[string]types.RepairTypeStats)
	for i, it := range candidates {
		name := it.rec.Type.String()
		stats := report.ByType[name]
		stats.Attempted++
		stats.ExpectedRate = p.cfg.SuccessRates[name]
		if repaired[i] {
			report.Repaired++
			stats.Repaired++
		}
		report.ByType[name] = stats
	}
	report.Failed = report.Attempted - report.Repaired

	sum := classify.Summarize(records(items))
	report.FinalValid = sum.Valid + report.Repaired
	if sum.Total > 0 {
		report.FinalIntegrity = float64(report.FinalValid) / float64(sum.Total) * 100
	}
	report.Elapsed = time.Since(start)
	report.Sort()
	return report, nil
}

// repairOne repairs a single artifact and persists the outcome. Repair
// failure is an expected result, not an error; only infrastructure
// problems (cancellation, unwritable output) abort the batch.
func (p *Pipeline) repairOne(ctx context.Context, runID string, it *item) (*types.RepairResult, error) {
	result := &types.RepairResult{ArtifactID: it.id, CorruptionType: it.rec.Type.String()}

	art, err := artifact.Open(it.id, it.path, it.method)
	if err != nil {
		result.Attempts = append(result.Attempts, types.RepairAttempt{
			Status: "failed",
			Error:  fmt.Sprintf("reopen: %v", err),
		})
		return result, nil
	}
	defer art.Close()

	out, err := p.repairer.Repair(ctx, art, it.rec, &it.res.Facts)
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	for _, a := range out.Attempts {
		result.Attempts = append(result.Attempts, types.RepairAttempt{
			Technique:  a.Technique,
			Status:     a.Status.String(),
			Note:       a.Note,
			Error:      a.Error,
			Duration:   a.Duration,
			OutputSize: a.OutputSize,
		})
	}
	if p.audit != nil {
		if err := p.audit.SaveAttempts(runID, out.Attempts); err != nil {
			return nil, err
		}
	}
	if !out.Repaired {
		if !p.opts.DryRun && p.opts.OutputDir != "" {
			if err := p.copyInto(filepath.Join(p.opts.OutputDir, "failed"), it); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	result.Repaired = true
	result.Technique = out.Technique.String()
	if p.opts.OutputDir != "" {
		dst, err := artifact.WriteAtomic(
			filepath.Join(p.opts.OutputDir, "repaired"), filepath.Base(it.path), out.Data)
		if err != nil {
			return nil, fmt.Errorf("write repaired %s: %w", it.id, err)
		}
		result.OutputPath = dst
	}
	return result, nil
}

// sortIntoDirs copies each artifact into the classification directory
// matching its verdict. Copies, never moves: the originals are evidence.
func (p *Pipeline) sortIntoDirs(items []*item) error {
	for _, it := range items {
		dir := filepath.Join(p.opts.OutputDir, it.rec.Classification.String())
		if err := p.copyInto(dir, it); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) copyInto(dir string, it *item) error {
	data, err := os.ReadFile(it.path)
	if err != nil {
		return fmt.Errorf("pipeline: copy %s: %w", it.id, err)
	}
	if _, err := artifact.WriteAtomic(dir, filepath.Base(it.path), data); err != nil {
		return fmt.Errorf("pipeline: copy %s: %w", it.id, err)
	}
	return nil
}

func records(items []*item) []classify.Record {
	out := make([]classify.Record, len(items))
	for i, it := range items {
		out[i] = it.rec
	}
	return out
}
