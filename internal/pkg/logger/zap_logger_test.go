package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_PromotesSessionFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &ZapLogger{logger: zap.New(core)}

	l.Warn("LOCK", "Lock violation", map[string]interface{}{
		"session_id":    "s1",
		"coverage_code": "A4200_1",
	})
	l.Info("HTTP", "no details", nil)

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "LOCK", first["module"])
	assert.Equal(t, "s1", first["session_id"])
	assert.Equal(t, "A4200_1", first["details"].(map[string]interface{})["coverage_code"])

	second := entries[1].ContextMap()
	assert.NotContains(t, second, "session_id")
	assert.Empty(t, second["details"])
}

func TestIsolatedLogger_WritesToFile(t *testing.T) {
	path := t.TempDir() + "/audit.log"
	l := NewIsolatedLogger(path)
	l.Info("LOCK", "written", map[string]interface{}{"session_id": "s1"})
	require.NoError(t, l.Sync())
	assert.Equal(t, path, l.FilePath())
	assert.FileExists(t, path)
}
