package classify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/artifact"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/classify"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/config"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/oracle"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/testutil"
)

func classifyBytes(t *testing.T, id string, data []byte) classify.Record {
	t.Helper()
	cfg := config.Default()
	res := oracle.New(cfg.Checks).Examine(context.Background(), artifact.FromBytes(id, data))
	return classify.New(cfg.Heuristics).Classify(res)
}

func TestClassify_Valid(t *testing.T) {
	rec := classifyBytes(t, "ok", testutil.JPEG(t, 32, 32))
	require.Equal(t, classify.Valid, rec.Classification)
	require.Equal(t, classify.TypeNone, rec.Type)
	require.Equal(t, 0, rec.Tier)
	require.Equal(t, classify.TechniqueNone, rec.Technique)
}

func TestClassify_MissingFooter(t *testing.T) {
	rec := classifyBytes(t, "nofooter", testutil.StripFooter(t, testutil.JPEG(t, 32, 32)))
	require.Equal(t, classify.Corrupted, rec.Classification)
	require.Equal(t, classify.TypeMissingFooter, rec.Type)
	require.Equal(t, 1, rec.Tier)
	require.Equal(t, classify.TechniqueFooterAppend, rec.Technique)
}

func TestClassify_InvalidHeader(t *testing.T) {
	rec := classifyBytes(t, "prefix", testutil.PrependGarbage(testutil.JPEG(t, 32, 32), 48))
	require.Equal(t, classify.Corrupted, rec.Classification)
	require.Equal(t, classify.TypeInvalidHeader, rec.Type)
	require.Equal(t, 2, rec.Tier)
	require.Equal(t, classify.TechniqueHeaderRebuild, rec.Technique)
}

func TestClassify_TruncatedScan(t *testing.T) {
	// Cut deep into the entropy-coded data, leaving a scan shorter than
	// the missing-footer heuristic accepts.
	data := testutil.JPEG(t, 64, 64)
	res := oracleFor(t, "cut", testutil.Truncate(data, len(data)*3/4))
	rec := classify.New(config.Default().Heuristics).Classify(res)

	require.Equal(t, classify.Corrupted, rec.Classification)
	require.Contains(t,
		[]classify.CorruptionType{classify.TypeTruncated, classify.TypeMissingFooter},
		rec.Type)
}

func TestClassify_ZeroByte(t *testing.T) {
	rec := classifyBytes(t, "empty", nil)
	require.Equal(t, classify.Unrecoverable, rec.Classification)
	require.Equal(t, classify.TypeFalsePositive, rec.Type)
	require.Equal(t, 5, rec.Tier)
}

func TestClassify_FalsePositive(t *testing.T) {
	rec := classifyBytes(t, "noise", []byte("plain text pretending to be a photo"))
	require.Equal(t, classify.Unrecoverable, rec.Classification)
	require.Equal(t, classify.TypeFalsePositive, rec.Type)
	require.False(t, rec.Type.Repairable())
}

func TestClassify_CorruptPNGSegments(t *testing.T) {
	data := testutil.PNG(t, 16, 16)
	data = testutil.Corrupt(t, data, len(data)/2, 1)
	rec := classifyBytes(t, "badcrc", data)

	require.Equal(t, classify.Corrupted, rec.Classification)
	require.Equal(t, classify.TypeCorruptSegments, rec.Type)
	require.Equal(t, classify.TechniqueSegmentStrip, rec.Technique)
}

func TestClassify_Idempotent(t *testing.T) {
	res := oracleFor(t, "again", testutil.StripFooter(t, testutil.JPEG(t, 32, 32)))
	c := classify.New(config.Default().Heuristics)
	first := c.Classify(res)
	second := c.Classify(res)
	require.Equal(t, first, second)
}

func oracleFor(t *testing.T, id string, data []byte) *oracle.Result {
	t.Helper()
	return oracle.New(config.Default().Checks).Examine(context.Background(), artifact.FromBytes(id, data))
}

func TestSummarize(t *testing.T) {
	records := []classify.Record{
		{Classification: classify.Valid},
		{Classification: classify.Valid},
		{Classification: classify.Valid},
		{Classification: classify.Corrupted, Type: classify.TypeMissingFooter},
		{Classification: classify.Corrupted, Type: classify.TypeFragmented},
		{Classification: classify.Unrecoverable, Type: classify.TypeFalsePositive},
	}
	sum := classify.Summarize(records)

	require.Equal(t, 6, sum.Total)
	require.Equal(t, 3, sum.Valid)
	require.Equal(t, 2, sum.Corrupted)
	require.Equal(t, 1, sum.Unrecoverable)
	require.Equal(t, 1, sum.Repairable)
	require.Equal(t, 1, sum.ByType["missing_footer"])
	require.InDelta(t, 50.0, sum.IntegrityScore, 0.001)
	require.Equal(t, "poor", sum.Band())
}

func TestSummary_Bands(t *testing.T) {
	require.Equal(t, "excellent", classify.Summary{IntegrityScore: 97}.Band())
	require.Equal(t, "good", classify.Summary{IntegrityScore: 88}.Band())
	require.Equal(t, "fair", classify.Summary{IntegrityScore: 70}.Band())
	require.Equal(t, "poor", classify.Summary{IntegrityScore: 69.9}.Band())
}
