package logging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestShort(t *testing.T) {
	assert.Equal(t, "http://x/0/0/0.png", Short("http://x/0/0/0.png"))
	long := "http://x/" + strings.Repeat("a", 200)
	got := Short(long)
	assert.LessOrEqual(t, len(got), MaxValueWidth)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLoggerFrom(zap.New(core))

	l.Debug("debug", "tile", "0/1/2")
	l.Warn("warn", "count", 3)
	require.Equal(t, 2, logs.Len())
	entry := logs.All()[1]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, int64(3), entry.ContextMap()["count"])
}

func TestToZapLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, toZapLevel("debug"))
	assert.Equal(t, zapcore.InfoLevel, toZapLevel("nonsense"))
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Error("ignored", "k", "v") })
}
