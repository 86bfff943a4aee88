package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"tiffin/internal/config"
)

func TestNew_ParsesLevel(t *testing.T) {
	log, err := New(config.LogConfig{Level: "debug"})
	require.NoError(t, err)

	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_FallsBackToInfo(t *testing.T) {
	log, err := New(config.LogConfig{Level: "chatty"})
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}

func TestNew_RejectsUnknownFormat(t *testing.T) {
	_, err := New(config.LogConfig{Level: "info", Format: "xml"})

	assert.Error(t, err)
}

func TestBuildConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.LogConfig
		encoding string
		sampled  bool
	}{
		{name: "default is json", cfg: config.LogConfig{Level: "info"}, encoding: "json", sampled: true},
		{name: "console", cfg: config.LogConfig{Level: "warn", Format: FormatConsole}, encoding: "console"},
		{name: "debug keeps every entry", cfg: config.LogConfig{Level: "debug", Format: FormatJSON}, encoding: "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zc, err := buildConfig(tt.cfg)
			require.NoError(t, err)

			assert.Equal(t, tt.encoding, zc.Encoding)
			assert.Equal(t, tt.sampled, zc.Sampling != nil)
			assert.Equal(t, serviceName, zc.InitialFields["service"])
		})
	}
}
