package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	require.Equal(t, 50, cfg.Thresholds.LowYield)
	require.InDelta(t, 50.0, cfg.Thresholds.Repair, 0.001)
	require.InDelta(t, 85, cfg.SuccessRates["missing_footer"], 0.001)
	require.InDelta(t, 0, cfg.SuccessRates["false_positive"], 0.001)
	require.Equal(t, 30*time.Second, cfg.Checks.Timeout.Std())
}

func TestLoad_PartialOverride(t *testing.T) {
	path := writeConfig(t, `
workers: 8
thresholds:
  low_yield: 10
checks:
  timeout: 5s
success_rates:
  missing_footer: 92
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, 8, cfg.Workers)
	require.Equal(t, 10, cfg.Thresholds.LowYield)
	require.InDelta(t, 92, cfg.SuccessRates["missing_footer"], 0.001)
	require.Equal(t, 5*time.Second, cfg.Checks.Timeout.Std())
	// Untouched defaults survive a partial file.
	require.InDelta(t, 50.0, cfg.Thresholds.Repair, 0.001)
	require.Equal(t, 4096, cfg.Heuristics.HeaderScanWindow)
}

func TestLoad_RejectsBadRates(t *testing.T) {
	path := writeConfig(t, `
success_rates:
  corrupt_data: 140
`)
	_, err := config.Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "out of range")
}

func TestLoad_RejectsInvertedThresholds(t *testing.T) {
	path := writeConfig(t, `
thresholds:
  repair: 80
  high_confidence: 60
`)
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
