package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/catapult/internal/domain/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelWarn,
		"":        slog.LevelWarn,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in, slog.LevelWarn), "input %q", in)
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("debug flag enables debug level", func(t *testing.T) {
		logger := NewLogger(&config.RuntimeConfig{Debug: true})
		assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))
	})

	t.Run("audit log file receives info records", func(t *testing.T) {
		t.Setenv("CATAPULT_LOG_LEVEL", "error")
		path := filepath.Join(t.TempDir(), "logs", "catapult.log")

		logger := NewLogger(&config.RuntimeConfig{LogFile: path})
		assert.False(t, logger.Handler().(*teeHandler).handlers[0].Enabled(t.Context(), slog.LevelInfo))
		logger.Info("step deployed", "step", "Factory")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"step":"Factory"`)
		assert.Contains(t, string(data), `"msg":"step deployed"`)
	})
}

func TestShortPath(t *testing.T) {
	assert.Equal(t, "internal/usecase/orchestrator.go", shortPath("/home/dev/catapult/internal/usecase/orchestrator.go"))
	assert.Equal(t, "main.go", shortPath("/somewhere/else/main.go"))
}
