package artifact_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/artifact"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/testutil"
)

func TestOpen_MapsBytes(t *testing.T) {
	data := testutil.JPEG(t, 16, 16)
	path := testutil.WriteFile(t, t.TempDir(), "a.jpg", data)

	art, err := artifact.Open("art-1", path, "carved")
	require.NoError(t, err)
	defer art.Close()

	require.Equal(t, "art-1", art.ID)
	require.Equal(t, "a.jpg", art.Name())
	require.Equal(t, int64(len(data)), art.Size())
	require.Equal(t, data, art.Bytes())
}

func TestOpen_Missing(t *testing.T) {
	_, err := artifact.Open("x", filepath.Join(t.TempDir(), "nope.jpg"), "")
	require.Error(t, err)
}

func TestWorkingCopy_Isolated(t *testing.T) {
	art := artifact.FromBytes("mem", []byte{1, 2, 3})
	work := art.WorkingCopy()
	work[0] = 0xFF
	require.Equal(t, []byte{1, 2, 3}, art.Bytes())
}

func TestClose_Idempotent(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "b.jpg", testutil.JPEG(t, 8, 8))
	art, err := artifact.Open("b", path, "")
	require.NoError(t, err)
	require.NoError(t, art.Close())
	require.NoError(t, art.Close())
}

func TestWriteAtomic_PlacesFile(t *testing.T) {
	dir := t.TempDir()
	dst, err := artifact.WriteAtomic(dir, "out.jpg", []byte("payload"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "out.jpg"), dst)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), got)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestWriteAtomic_CollisionSuffix(t *testing.T) {
	dir := t.TempDir()
	first, err := artifact.WriteAtomic(dir, "out.jpg", []byte("one"))
	require.NoError(t, err)
	second, err := artifact.WriteAtomic(dir, "out.jpg", []byte("two"))
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.Equal(t, filepath.Join(dir, "out_1.jpg"), second)

	got, err := os.ReadFile(first)
	require.NoError(t, err)
	require.Equal(t, []byte("one"), got)
}
