package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		enabled zapcore.Level
		muted   zapcore.Level
		wantErr bool
	}{
		{name: "debug console", cfg: Config{Level: "debug", Format: "console"}, enabled: zapcore.DebugLevel, muted: zapcore.DebugLevel},
		{name: "info json", cfg: Config{Level: "info", Format: "json"}, enabled: zapcore.InfoLevel, muted: zapcore.DebugLevel},
		{name: "warn", cfg: Config{Level: "warn"}, enabled: zapcore.WarnLevel, muted: zapcore.InfoLevel},
		{name: "empty level", cfg: Config{}, enabled: zapcore.InfoLevel, muted: zapcore.DebugLevel},
		{name: "invalid level", cfg: Config{Level: "loud"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.enabled))
			if tt.muted != tt.enabled {
				assert.False(t, l.Core().Enabled(tt.muted))
			}
		})
	}
}

func TestWithRunID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	WithRunID(base, "run-1").Info("seeded")
	WithRunID(base, "").Info("plain")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "run-1", entries[0].ContextMap()["run_id"])
	assert.NotContains(t, entries[1].ContextMap(), "run_id")
}
