package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{" warn ", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	require.NoError(t, Initialize(""))
	assert.False(t, GetLogger().Core().Enabled(zapcore.ErrorLevel))
}

func TestMaskSecrets(t *testing.T) {
	got := MaskSecrets(map[string]string{
		"OVIRT_MANAGEMENT_SERVER": "engine.example.com",
		"vdsm.password":           "secret",
		"cim.password":            "",
	})
	assert.Equal(t, "engine.example.com", got["OVIRT_MANAGEMENT_SERVER"])
	assert.Equal(t, "********", got["vdsm.password"])
	assert.Equal(t, "", got["cim.password"])
}

func TestLogStoreWriteMasksPasswords(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	LogStoreWrite("memory", map[string]string{"root.password": "hunter2"})

	entries := logs.FilterMessage("Store updated").All()
	require.Len(t, entries, 1)
	values := entries[0].ContextMap()["values"]
	assert.Equal(t, map[string]string{"root.password": "********"}, values)
}
