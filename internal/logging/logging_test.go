package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(slog.LevelInfo, "json", &buf)

	New("oracle").Info("check complete", slog.Int("verdicts", 5))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "check complete", entry["msg"])
	assert.Equal(t, "oracle", entry["component"])
	assert.Equal(t, float64(5), entry["verdicts"])
}

func TestInit_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(slog.LevelInfo, "text", &buf)

	New("repair").Info("artifact repaired", slog.String("technique", "footer_append"))

	out := buf.String()
	assert.Contains(t, out, "artifact repaired")
	assert.Contains(t, out, "component=repair")
	assert.Contains(t, out, "technique=footer_append")
}

func TestInit_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	Init(slog.LevelWarn, "text", &buf)

	log := New("pipeline")
	log.Debug("dropped")
	log.Info("dropped too")
	log.Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}
