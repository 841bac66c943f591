package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/upb/llm-router-lab/internal/shared"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LogConfig
		wantErr bool
		debug   bool
	}{
		{"default", LogConfig{}, false, false},
		{"console debug", LogConfig{Level: "debug", Format: "console"}, false, true},
		{"json warn", LogConfig{Level: "warn", Format: "json"}, false, false},
		{"bad level", LogConfig{Level: "loud"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.debug, logger.Core().Enabled(zapcore.DebugLevel))
		})
	}
}

func TestZapLogger_ContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewContextLogger(zap.New(core))

	ctx := shared.WithRunID(shared.WithRequestID(context.Background(), "req-1"), "run-1")
	logger.Info(ctx, "routed", zap.String("selection", "gpt"))
	logger.Debug(context.Background(), "plain")
	logger.Warn(ctx, "slow")
	logger.Error(ctx, "failed")

	entries := logs.All()
	require.Len(t, entries, 4)

	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "run-1", fields["run_id"])
	assert.Equal(t, "gpt", fields["selection"])

	assert.NotContains(t, entries[1].ContextMap(), "request_id")
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}

func TestNewContextLogger_Nil(t *testing.T) {
	logger := NewContextLogger(nil)
	assert.NotPanics(t, func() { logger.Info(context.Background(), "dropped") })
	assert.NotNil(t, logger.Zap())
}

func TestInMemoryMetrics(t *testing.T) {
	ctx := context.Background()
	m := NewInMemoryMetrics()

	m.RecordRoute(ctx, RouteLabels{Router: "nn", Selection: "a", Status: StatusOK})
	m.RecordRoute(ctx, RouteLabels{Router: "nn", Selection: "a", Status: StatusOK})
	m.RecordRoute(ctx, RouteLabels{Router: "nn", Selection: "b", Status: StatusOK})
	m.RecordRoute(ctx, RouteLabels{Router: "nn", Status: StatusError})
	m.RecordInvocation(ctx, 10*time.Millisecond, InvocationLabels{Model: "a", Status: StatusOK})
	m.RecordInvocation(ctx, 30*time.Millisecond, InvocationLabels{Model: "a", Status: StatusError})

	s := m.Snapshot()
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, s.Selections)
	assert.Equal(t, 1, s.RouteErrors)
	assert.Equal(t, map[string]int{"a": 2}, s.Invocations)
	assert.Equal(t, map[string]int{"a": 1}, s.Failures)
	assert.InDelta(t, 20.0, s.AvgLatencyMs["a"], 1e-9)

	m.Reset()
	s = m.Snapshot()
	assert.Empty(t, s.Selections)
	assert.Zero(t, s.RouteErrors)
}

func TestNopMetrics(t *testing.T) {
	var m Metrics = NopMetrics{}
	assert.NotPanics(t, func() {
		m.RecordRoute(context.Background(), RouteLabels{})
		m.RecordInvocation(context.Background(), time.Second, InvocationLabels{})
	})
}
