package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/shift-engine/config"
	"github.com/warp/shift-engine/logger"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	l, err := logger.New(config.LogConfig{Level: "warn", Format: "console"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = logger.New(config.LogConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := logger.New(config.LogConfig{Level: "chatty"})
	assert.Error(t, err)
}
