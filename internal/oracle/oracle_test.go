package oracle_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/artifact"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/config"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/oracle"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/testutil"
)

func newOracle() *oracle.Oracle {
	return oracle.New(config.Default().Checks)
}

func TestExamine_ValidJPEG(t *testing.T) {
	art := artifact.FromBytes("jpeg-ok", testutil.JPEG(t, 32, 32))
	res := newOracle().Examine(context.Background(), art)

	require.True(t, res.AllPassed())
	require.Equal(t, 5, len(res.Verdicts))

	// Cheapest-first ordering.
	names := make([]string, 0, len(res.Verdicts))
	for _, v := range res.Verdicts {
		names = append(names, v.Check)
	}
	require.Equal(t, []string{"size", "magic", "structure", "decode", "auditor"}, names)

	require.NotNil(t, res.Facts.JPEG)
	require.True(t, res.Facts.JPEG.HasEOI)
}

func TestExamine_ValidPNG(t *testing.T) {
	art := artifact.FromBytes("png-ok", testutil.PNG(t, 16, 16))
	res := newOracle().Examine(context.Background(), art)

	require.True(t, res.AllPassed())
	require.NotNil(t, res.Facts.PNG)
	require.True(t, res.Facts.PNG.HasIEND)
}

func TestExamine_ZeroByte(t *testing.T) {
	art := artifact.FromBytes("empty", nil)
	res := newOracle().Examine(context.Background(), art)

	require.Len(t, res.Verdicts, 1)
	require.Equal(t, "size", res.Verdicts[0].Check)
	require.False(t, res.Verdicts[0].Passed)
}

func TestExamine_MissingFooter(t *testing.T) {
	data := testutil.StripFooter(t, testutil.JPEG(t, 32, 32))
	res := newOracle().Examine(context.Background(), artifact.FromBytes("nofooter", data))

	require.False(t, res.AllPassed())
	v, ok := res.Verdict("structure")
	require.True(t, ok)
	require.False(t, v.Passed)
	require.Contains(t, v.Diagnostic, "end-of-image")
	require.False(t, res.Facts.JPEG.HasEOI)
}

func TestExamine_GarbagePrefix(t *testing.T) {
	data := testutil.PrependGarbage(testutil.JPEG(t, 16, 16), 64)
	res := newOracle().Examine(context.Background(), artifact.FromBytes("prefix", data))

	v, ok := res.Verdict("magic")
	require.True(t, ok)
	require.False(t, v.Passed)
	require.Contains(t, v.Diagnostic, "buried")

	v, ok = res.Verdict("structure")
	require.True(t, ok)
	require.False(t, v.Passed)
}

func TestExamine_NotAnImage(t *testing.T) {
	res := newOracle().Examine(context.Background(),
		artifact.FromBytes("noise", []byte("this is not an image at all, just text")))

	require.False(t, res.AllPassed())
	v, _ := res.Verdict("magic")
	require.False(t, v.Passed)
	v, _ = res.Verdict("structure")
	require.False(t, v.Passed)
	// No parsed structure means the auditor degrades to absent.
	_, ok := res.Verdict("auditor")
	require.False(t, ok)
}

func TestExamine_CorruptPNGChunk(t *testing.T) {
	data := testutil.PNG(t, 16, 16)
	// Damage IDAT data, past signature and IHDR.
	data = testutil.Corrupt(t, data, len(data)/2, 1)
	res := newOracle().Examine(context.Background(), artifact.FromBytes("badcrc", data))

	v, ok := res.Verdict("structure")
	require.True(t, ok)
	require.False(t, v.Passed)
	require.Contains(t, v.Diagnostic, "CRC")
}

func TestExamine_CancelledContextDropsOptionalChecks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	art := artifact.FromBytes("cancelled", testutil.JPEG(t, 16, 16))
	res := newOracle().Examine(ctx, art)

	// Built-in checks still run; optional capabilities degrade to absent
	// rather than reporting failure.
	_, ok := res.Verdict("structure")
	require.True(t, ok)
	_, ok = res.Verdict("decode")
	require.False(t, ok)
	_, ok = res.Verdict("auditor")
	require.False(t, ok)
}

func TestExamine_DisabledChecks(t *testing.T) {
	cfg := config.Default().Checks
	cfg.Decode = false
	cfg.Auditor = false

	res := oracle.New(cfg).Examine(context.Background(),
		artifact.FromBytes("minimal", testutil.JPEG(t, 16, 16)))

	require.Len(t, res.Verdicts, 3)
	require.True(t, res.AllPassed())
}
