package monitoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/touristsafety/internal/config"
	"github.com/turtacn/touristsafety/internal/infrastructure/monitoring"
	"github.com/turtacn/touristsafety/pkg/constants"
	"github.com/turtacn/touristsafety/pkg/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMetrics_RecordAssessment(t *testing.T) {
	m := monitoring.NewMetrics(prometheus.NewRegistry())

	m.RecordAssessment("ok", "low", 20*time.Millisecond)
	m.RecordAssessment("ok", "low", 10*time.Millisecond)
	m.RecordAssessment("failed", "unknown", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AssessmentsTotal.WithLabelValues("ok", "low")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AssessmentsTotal.WithLabelValues("failed", "unknown")))
}

func TestMetrics_RecordTraining(t *testing.T) {
	m := monitoring.NewMetrics(prometheus.NewRegistry())
	m.RecordTraining(0.81, 2000, 3*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrainingRuns))
	assert.InDelta(t, 0.81, testutil.ToFloat64(m.ModelAccuracy), 1e-9)
	assert.Equal(t, 2000.0, testutil.ToFloat64(m.TrainingSamples))
}

func TestMetrics_TrackEntries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := monitoring.NewMetrics(reg)
	size := 3
	require.NoError(t, m.TrackEntries("report_cache_crime", func() int { return size }))
	require.NoError(t, m.TrackEntries("ratelimit_buckets", func() int { return 1 }))
	assert.Error(t, m.TrackEntries("ratelimit_buckets", func() int { return 1 }), "duplicate component")

	count, err := testutil.GatherAndCount(reg, "touristsafety_tracked_entries")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	size = 5
	families, err := reg.Gather()
	require.NoError(t, err)
	var got float64
	for _, f := range families {
		if f.GetName() != "touristsafety_tracked_entries" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetValue() == "report_cache_crime" {
					got = metric.GetGauge().GetValue()
				}
			}
		}
	}
	assert.Equal(t, 5.0, got)
}

func TestZapLogger_ContextFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := monitoring.NewZapLoggerFrom(zap.New(core)).WithComponent("scorer")

	ctx := context.WithValue(context.Background(), constants.ContextKeyRequestID, "req-1")
	log.Error(ctx, "prediction failed", errors.New("boom"), logger.Fields{"feature_count": 22})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	fields := entry.ContextMap()
	assert.Equal(t, "prediction failed", entry.Message)
	assert.Equal(t, "scorer", fields["component"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "boom", fields["error"])
	assert.EqualValues(t, 22, fields["feature_count"])
}

func TestZapLogger_SetLevel(t *testing.T) {
	log, err := monitoring.NewZapLogger(&config.LogConfig{Level: "info"})
	require.NoError(t, err)

	setter, ok := log.(logger.LevelSetter)
	require.True(t, ok)
	assert.NoError(t, setter.SetLevel("debug"))
	assert.Error(t, setter.SetLevel("verbose"))
}

func TestTracingManager_Disabled(t *testing.T) {
	tm, err := monitoring.NewTracingManager(&config.ObservabilityConfig{}, logger.NewNoopLogger())
	require.NoError(t, err)
	assert.False(t, tm.Enabled())
	require.NotNil(t, tm.Tracer())

	_, span := tm.Tracer().Start(context.Background(), "score")
	span.End()
	assert.NoError(t, tm.Shutdown(context.Background()))
}
