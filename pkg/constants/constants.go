// Package constants defines system-wide constants for the tourist safety service.
package constants

import "time"

// ================================================================================
// Service Identity
// ================================================================================

const (
	// ServiceName is used for tracing, metrics namespaces and log fields
	ServiceName = "touristsafety"

	// ServiceVersion is reported by health checks and the CLI
	ServiceVersion = "1.0.0"

	// ModelVersion is reported with every assessment
	ModelVersion = "enhanced_v1.0"

	// ModelType describes the trained classifier
	ModelType = "Enhanced Random Forest with NCRB Data"

	// GRPCHealthService is the service name registered with the grpc health server
	GRPCHealthService = "touristsafety.Scoring"
)

// ================================================================================
// Risk Scale
// ================================================================================

const (
	// MinRiskScore is the lowest value of any risk sub-score or safety score
	MinRiskScore = 1

	// MaxRiskScore is the highest value of any risk sub-score or safety score
	MaxRiskScore = 10

	// NeutralRisk is the mid-scale value used when an input is unknown
	NeutralRisk = 5.0

	// FailedAssessmentScore is reported when no prediction could be made
	FailedAssessmentScore = 5
)

// ================================================================================
// Defaults
// ================================================================================

const (
	DefaultSearchRadiusKm   = 10
	DefaultTripDuration     = 168 * time.Hour
	DefaultSyntheticSamples = 2000
	DefaultRandomSeed       = 42

	CrimeCacheTTL   = time.Hour
	WeatherCacheTTL = 30 * time.Minute
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey represents keys used in context.Context
type ContextKey string

const (
	// ContextKeyRequestID is the key for request ID in context
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyTraceID is the key for distributed trace ID in context
	ContextKeyTraceID ContextKey = "trace_id"

	// ContextKeySubject is the key for the authenticated admin subject
	ContextKeySubject ContextKey = "subject"
)

// ================================================================================
// HTTP
// ================================================================================

const (
	HeaderRequestID     = "X-Request-ID"
	HeaderAuthorization = "Authorization"
	BearerPrefix        = "Bearer "

	// AdminRole is the role claim required on admin routes
	AdminRole = "admin"
)

// ================================================================================
// Event Types
// ================================================================================

// EventType identifies a published domain event
type EventType string

const (
	EventAssessmentCompleted EventType = "assessment.completed"
	EventTripRegistered      EventType = "trip.registered"
	EventTripDeleted         EventType = "trip.deleted"
	EventModelTrained        EventType = "model.trained"
)
