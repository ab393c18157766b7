package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/config"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/pipeline"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/store"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/testutil"
	"github.com/dmnkSabota/penterep-forensic-toolkit/pkg/types"
)

// seedBatch writes the canonical mixed batch: seven intact photos, two
// with their footer cut off, one carved false match.
func seedBatch(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	fsDir := filepath.Join(dir, "fs_based")
	carvedDir := filepath.Join(dir, "carved")
	require.NoError(t, os.MkdirAll(fsDir, 0o755))
	require.NoError(t, os.MkdirAll(carvedDir, 0o755))

	for i := 0; i < 5; i++ {
		testutil.WriteFile(t, fsDir, "photo_"+string(rune('a'+i))+".jpg", testutil.JPEG(t, 24, 24))
	}
	testutil.WriteFile(t, fsDir, "scan_a.png", testutil.PNG(t, 16, 16))
	testutil.WriteFile(t, carvedDir, "rec_001.jpg", testutil.JPEG(t, 24, 24))

	testutil.WriteFile(t, carvedDir, "rec_002.jpg",
		testutil.StripFooter(t, testutil.JPEG(t, 24, 24)))
	testutil.WriteFile(t, carvedDir, "rec_003.jpg",
		testutil.StripFooter(t, testutil.JPEG(t, 24, 24)))

	testutil.WriteFile(t, carvedDir, "rec_004.jpg", []byte("carved noise, not a photo"))
	return dir
}

func TestRun_MixedBatch(t *testing.T) {
	input := seedBatch(t)
	outDir := t.TempDir()
	auditPath := filepath.Join(t.TempDir(), "audit.db")

	p, err := pipeline.New(config.Default(), pipeline.Options{
		OutputDir:    outDir,
		SortIntoDirs: true,
		AuditPath:    auditPath,
	})
	require.NoError(t, err)
	defer p.Close()

	report, err := p.Run(context.Background(), input)
	require.NoError(t, err)

	// Validation: 7 valid, 2 corrupted, 1 unrecoverable.
	sum := report.Validation.Summary
	require.Equal(t, 10, sum.Total)
	require.Equal(t, 7, sum.Valid)
	require.Equal(t, 2, sum.Corrupted)
	require.Equal(t, 1, sum.Unrecoverable)
	require.Equal(t, 2, sum.Repairable)
	require.InDelta(t, 70.0, sum.IntegrityScore, 0.001)
	require.Equal(t, "fair", sum.Band)
	require.Equal(t, 2, sum.ByType["missing_footer"])
	require.Equal(t, 1, sum.ByType["false_positive"])

	// Source breakdown follows the directory layout.
	require.Equal(t, 6, report.Validation.BySource["fs_based"].Total)
	require.Equal(t, 4, report.Validation.BySource["carved"].Total)

	// Decision: a seven-photo yield is far below the low-yield threshold,
	// so repair is always justified.
	require.Equal(t, "perform_repair", report.Decision.Action)
	require.Equal(t, "high", report.Decision.Confidence)
	require.Equal(t, "low_yield", report.Decision.Rule)

	// Repair: both footerless photos come back, the false match never
	// enters the repair stage.
	require.NotNil(t, report.Repair)
	require.Equal(t, 2, report.Repair.Attempted)
	require.Equal(t, 2, report.Repair.Repaired)
	require.Equal(t, 0, report.Repair.Failed)
	require.Equal(t, 9, report.Repair.FinalValid)
	require.InDelta(t, 90.0, report.Repair.FinalIntegrity, 0.001)
	require.Equal(t,
		types.RepairTypeStats{Attempted: 2, Repaired: 2, ExpectedRate: 85},
		report.Repair.ByType["missing_footer"])

	// Repaired outputs exist and are valid streams.
	for _, res := range report.Repair.Results {
		require.True(t, res.Repaired)
		require.FileExists(t, res.OutputPath)
	}

	// Classification directories hold copies of every artifact.
	valid, err := os.ReadDir(filepath.Join(outDir, "valid"))
	require.NoError(t, err)
	require.Len(t, valid, 7)
	corrupted, err := os.ReadDir(filepath.Join(outDir, "corrupted"))
	require.NoError(t, err)
	require.Len(t, corrupted, 2)
	unrecoverable, err := os.ReadDir(filepath.Join(outDir, "unrecoverable"))
	require.NoError(t, err)
	require.Len(t, unrecoverable, 1)

	// Audit trail has every record, the decision, and the attempts.
	audit, err := store.Open(auditPath)
	require.NoError(t, err)
	defer audit.Close()

	rows, err := audit.ListRecords(report.RunID)
	require.NoError(t, err)
	require.Len(t, rows, 10)

	attempts, err := audit.ListAttempts(report.RunID)
	require.NoError(t, err)
	require.Len(t, attempts, 2)

	decision, err := audit.LastDecision(report.RunID)
	require.NoError(t, err)
	require.NotNil(t, decision)
	require.Equal(t, "perform_repair", decision.Action)
}

func TestRun_OriginalsUntouched(t *testing.T) {
	input := seedBatch(t)
	before := snapshot(t, input)

	p, err := pipeline.New(config.Default(), pipeline.Options{OutputDir: t.TempDir()})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Run(context.Background(), input)
	require.NoError(t, err)

	require.Equal(t, before, snapshot(t, input))
}

func TestValidate_Deterministic(t *testing.T) {
	input := seedBatch(t)

	p, err := pipeline.New(config.Default(), pipeline.Options{})
	require.NoError(t, err)
	defer p.Close()

	first, err := p.Validate(context.Background(), input)
	require.NoError(t, err)
	second, err := p.Validate(context.Background(), input)
	require.NoError(t, err)

	diff := cmp.Diff(first, second,
		cmpopts.IgnoreFields(types.ValidationReport{}, "RunID", "GeneratedAt", "Elapsed"))
	require.Empty(t, diff)
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	input := seedBatch(t)
	outDir := t.TempDir()

	p, err := pipeline.New(config.Default(), pipeline.Options{
		OutputDir:    outDir,
		SortIntoDirs: true,
		DryRun:       true,
	})
	require.NoError(t, err)
	defer p.Close()

	report, err := p.Run(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, report.Repair)
	require.True(t, report.Repair.DryRun)
	require.Equal(t, 0, report.Repair.Repaired)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDecide_SkipsRepairStage(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		testutil.WriteFile(t, dir, "p"+string(rune('0'+i))+".jpg", testutil.JPEG(t, 16, 16))
	}

	p, err := pipeline.New(config.Default(), pipeline.Options{})
	require.NoError(t, err)
	defer p.Close()

	report, err := p.Decide(context.Background(), dir, nil)
	require.NoError(t, err)
	require.Equal(t, "skip_repair", report.Decision.Action)
	require.Equal(t, "no_corruption", report.Decision.Rule)
	require.Nil(t, report.Repair)
}

// snapshot reads every file under dir keyed by relative path.
func snapshot(t *testing.T, dir string) map[string][]byte {
	t.Helper()
	out := map[string][]byte{}
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		out[rel] = data
		return nil
	})
	require.NoError(t, err)
	return out
}
