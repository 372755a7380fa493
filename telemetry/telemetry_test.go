package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewZapLogger(zap.New(core))

	l.Debug("hidden")
	l.Info("saved")
	l.Error("failed", errors.New("boom"))

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "saved", entries[0].Message)
	require.Equal(t, "failed", entries[1].Message)
	require.Equal(t, "boom", entries[1].ContextMap()["error"])
}

func TestNilZapLogger(t *testing.T) {
	l := NewZapLogger(nil)
	l.Info("nowhere")
}

func TestMemoryMetrics(t *testing.T) {
	m := NewMemoryMetrics()
	m.SetCount("a", 1)
	m.SetCount("a", 2)
	m.SetGuage("b", 0.5)

	require.Equal(t, int64(2), m.Count("a"))
	require.Equal(t, 0.5, m.Guage("b"))
	require.Equal(t, int64(0), m.Count("missing"))

	var _ Metrics = m
	var _ Metrics = NOPMetrics{}
}
