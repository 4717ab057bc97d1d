package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics manages the Prometheus metrics. It implements service.Metrics.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	AssessmentsTotal  *prometheus.CounterVec
	AssessmentLatency *prometheus.HistogramVec
	ProviderLookups   *prometheus.CounterVec
	ProviderLatency   *prometheus.HistogramVec
	CacheAccess       *prometheus.CounterVec
	TrainingRuns      prometheus.Counter
	ModelAccuracy     prometheus.Gauge
	TrainingSamples   prometheus.Gauge
	TrainingDuration  prometheus.Histogram
	TripOperations    *prometheus.CounterVec

	reg prometheus.Registerer
}

// NewMetrics creates the metrics and registers them with reg. Passing nil
// registers with the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "touristsafety_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "touristsafety_http_request_duration_seconds",
				Help:    "Latency of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AssessmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "touristsafety_assessments_total",
				Help: "Total number of safety assessments by outcome and risk level.",
			},
			[]string{"outcome", "risk_level"},
		),
		AssessmentLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "touristsafety_assessment_latency_seconds",
				Help:    "End-to-end latency of safety assessments.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		ProviderLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "touristsafety_provider_lookups_total",
				Help: "Risk provider lookups by provider and data source.",
			},
			[]string{"provider", "source"},
		),
		ProviderLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "touristsafety_provider_latency_seconds",
				Help:    "Latency of risk provider lookups.",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 15},
			},
			[]string{"provider"},
		),
		CacheAccess: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "touristsafety_cache_access_total",
				Help: "Report cache accesses by cache and tier.",
			},
			[]string{"cache", "tier"},
		),
		TrainingRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "touristsafety_training_runs_total",
			Help: "Total number of completed training runs.",
		}),
		ModelAccuracy: factory.NewGauge(prometheus.GaugeOpts{
			Name: "touristsafety_model_accuracy",
			Help: "Held-out accuracy of the most recently trained model.",
		}),
		TrainingSamples: factory.NewGauge(prometheus.GaugeOpts{
			Name: "touristsafety_training_samples",
			Help: "Number of samples used by the most recent training run.",
		}),
		TrainingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "touristsafety_training_duration_seconds",
			Help:    "Duration of training runs.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		TripOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "touristsafety_trip_operations_total",
				Help: "Trip registrar operations by operation and status.",
			},
			[]string{"operation", "status"},
		),
	}
}

// TrackEntries exports size as touristsafety_tracked_entries{component="..."}, sampled on scrape.
func (m *Metrics) TrackEntries(component string, size func() int) error {
	return m.reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "touristsafety_tracked_entries",
		Help:        "Entries held in memory by a component (report caches, rate limit buckets).",
		ConstLabels: prometheus.Labels{"component": component},
	}, func() float64 { return float64(size()) }))
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAssessment records metrics for a scoring call.
func (m *Metrics) RecordAssessment(outcome, riskLevel string, duration time.Duration) {
	m.AssessmentsTotal.WithLabelValues(outcome, riskLevel).Inc()
	m.AssessmentLatency.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordProviderLookup records a provider lookup.
func (m *Metrics) RecordProviderLookup(provider, source string, duration time.Duration) {
	m.ProviderLookups.WithLabelValues(provider, source).Inc()
	m.ProviderLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordCacheAccess records a cache access.
func (m *Metrics) RecordCacheAccess(cacheName, tier string) {
	m.CacheAccess.WithLabelValues(cacheName, tier).Inc()
}

// RecordTraining records a completed training run.
func (m *Metrics) RecordTraining(accuracy float64, samples int, duration time.Duration) {
	m.TrainingRuns.Inc()
	m.ModelAccuracy.Set(accuracy)
	m.TrainingSamples.Set(float64(samples))
	m.TrainingDuration.Observe(duration.Seconds())
}

// RecordTripOperation records a trip registrar operation.
func (m *Metrics) RecordTripOperation(operation, status string) {
	m.TripOperations.WithLabelValues(operation, status).Inc()
}
