package service

import (
	"time"
)

// Metrics defines the interface for collecting business metrics.
// Metrics 定义了收集业务指标的接口。
type Metrics interface {
	// RecordAssessment records one scoring call by outcome and risk level.
	// RecordAssessment 记录一次评分调用。
	RecordAssessment(outcome, riskLevel string, duration time.Duration)

	// RecordProviderLookup records a risk provider lookup and where its data came from.
	RecordProviderLookup(provider, source string, duration time.Duration)

	// RecordCacheAccess records a cache hit or miss per tier ("l1", "l2", "miss").
	// RecordCacheAccess 记录缓存命中或未命中。
	RecordCacheAccess(cacheName, tier string)

	// RecordTraining records a completed training run.
	RecordTraining(accuracy float64, samples int, duration time.Duration)

	// RecordTripOperation records a trip registrar call by operation and resulting status.
	RecordTripOperation(operation, status string)
}

// NoopMetrics discards every measurement.
type NoopMetrics struct{}

func (NoopMetrics) RecordAssessment(string, string, time.Duration)     {}
func (NoopMetrics) RecordProviderLookup(string, string, time.Duration) {}
func (NoopMetrics) RecordCacheAccess(string, string)                   {}
func (NoopMetrics) RecordTraining(float64, int, time.Duration)         {}
func (NoopMetrics) RecordTripOperation(string, string)                 {}
