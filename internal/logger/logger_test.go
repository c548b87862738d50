package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel(LogLevelWarn))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel(LogLevelError))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("chatty"))
}

func TestInitWritesToRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rpglife.log")
	Init(Options{Level: LogLevelDebug, File: path, MaxSizeMB: 1})
	t.Cleanup(func() { Init(Options{Level: LogLevelInfo}) })

	New().Named("test").With(zap.Int64("user_id", 7)).Info("level up")
	New().WithError(assert.AnError).Warn("lootbox rejected")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"level up"`)
	assert.Contains(t, string(data), `"user_id":7`)
	assert.Contains(t, string(data), `"logger":"test"`)
	assert.Contains(t, string(data), assert.AnError.Error())
}
