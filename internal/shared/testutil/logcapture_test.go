package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogCapture_KeepsDerivedAttrs(t *testing.T) {
	logger, capture := NewTestLogger(t)

	logger.With(slog.String("component", "runner")).
		WithGroup("run").
		Warn("slow", slog.Int("progress", 40))
	logger.Info("plain")

	rec := AssertLogged(t, capture, slog.LevelWarn, "slow")
	assert.Equal(t, "runner", rec.Attrs["component"])
	assert.Equal(t, int64(40), rec.Attrs["run.progress"])

	require.Len(t, capture.Records(), 2)
	_, ok := capture.Find("missing")
	assert.False(t, ok)
}
