package store_test

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/classify"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/decide"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/repair"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/store"
)

func openStore(t *testing.T) *store.AuditStore {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "audit", "trail.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_CreatesSchemaAndReopens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trail.db")

	s, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening an existing database must not recreate the schema.
	s, err = store.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestRecords_RoundTrip(t *testing.T) {
	s := openStore(t)

	rec := classify.Record{
		ArtifactID:     "art-2",
		Classification: classify.Corrupted,
		Type:           classify.TypeMissingFooter,
		Tier:           1,
		Technique:      classify.TechniqueFooterAppend,
		Detail:         "end-of-image marker absent",
	}
	require.NoError(t, s.SaveRecord("run-1",
		store.ArtifactMeta{SourcePath: "/case/a.jpg", Method: "carved"}, rec))
	require.NoError(t, s.SaveRecord("run-1",
		store.ArtifactMeta{}, classify.Record{ArtifactID: "art-1", Classification: classify.Valid}))

	rows, err := s.ListRecords("run-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// Ordered by artifact ID regardless of insertion order.
	require.Equal(t, "art-1", rows[0].ArtifactID)
	require.Equal(t, "art-2", rows[1].ArtifactID)
	require.Equal(t, "missing_footer", rows[1].CorruptionType)
	require.Equal(t, "footer_append", rows[1].Technique)
	require.Equal(t, "carved", rows[1].Method)

	// Runs are isolated from each other.
	other, err := s.ListRecords("run-2")
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestAttempts_RoundTrip(t *testing.T) {
	s := openStore(t)

	attempts := []repair.Attempt{
		{
			ArtifactID: "art-1",
			Technique:  "footer_append",
			Status:     repair.StatusVerifyFailed,
			Error:      "candidate classifies as corrupted",
			Duration:   1500 * time.Microsecond,
		},
		{
			ArtifactID: "art-1",
			Technique:  "partial_reencode",
			Status:     repair.StatusApplied,
			Note:       "re-encoded after decoding the stream as-is",
			Duration:   8 * time.Millisecond,
			OutputSize: 4096,
		},
	}
	require.NoError(t, s.SaveAttempts("run-1", attempts))
	require.NoError(t, s.SaveAttempts("run-1", nil))

	rows, err := s.ListAttempts("run-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "verify_failed", rows[0].Status)
	require.Equal(t, "applied", rows[1].Status)
	require.Equal(t, int64(4096), rows[1].OutputSize)
	require.Equal(t, int64(8000), rows[1].DurationUS)
}

func TestAttempts_ConcurrentWriters(t *testing.T) {
	s := openStore(t)

	// Repair workers persist attempts in parallel; every insert must
	// land without a busy error.
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			return s.SaveAttempts("run-1", []repair.Attempt{
				{
					ArtifactID: fmt.Sprintf("art-%d", i),
					Technique:  "footer_append",
					Status:     repair.StatusApplied,
					Duration:   time.Millisecond,
				},
				{
					ArtifactID: fmt.Sprintf("art-%d", i),
					Technique:  "partial_reencode",
					Status:     repair.StatusSkipped,
				},
			})
		})
	}
	require.NoError(t, g.Wait())

	rows, err := s.ListAttempts("run-1")
	require.NoError(t, err)
	require.Len(t, rows, 16)
}

func TestDecision_RoundTrip(t *testing.T) {
	s := openStore(t)

	d := decide.Decision{
		Action:             decide.ActionRepair,
		Confidence:         decide.ConfidenceHigh,
		Rule:               "estimate_above_threshold",
		Estimate:           85,
		ExpectedAdditional: 2,
		Reasoning:          []string{"weighted success estimate 85.0% meets the 50.0% repair threshold"},
	}
	require.NoError(t, s.SaveDecision("run-1", d))

	over, err := decide.Apply(d, decide.Override{
		Action:        decide.ActionSkip,
		Justification: "client withdrew consent for lossy repair",
		Approver:      "case-lead",
	})
	require.NoError(t, err)
	require.NoError(t, s.SaveDecision("run-1", over))

	row, err := s.LastDecision("run-1")
	require.NoError(t, err)
	require.NotNil(t, row)
	require.Equal(t, "perform_repair", row.Action)
	require.Equal(t, "skip_repair", row.OverrideAction)
	require.Equal(t, "case-lead", row.OverrideApprover)
	require.Len(t, row.Reasoning, 1)

	none, err := s.LastDecision("run-none")
	require.NoError(t, err)
	require.Nil(t, none)
}
