package models

import (
	"time"

	"github.com/google/uuid"
)

// Outcome tags how an assessment was produced.
type Outcome string

const (
	// OutcomeOK is a model prediction on complete inputs.
	OutcomeOK Outcome = "ok"
	// OutcomeDegraded is a model prediction where at least one provider fell back to defaults.
	OutcomeDegraded Outcome = "degraded"
	// OutcomeFailed means no prediction was possible; the score is a placeholder.
	OutcomeFailed Outcome = "failed"
)

// RiskLevel buckets a safety score.
type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskUnknown RiskLevel = "unknown"
)

// RiskLevelFor maps a score to its bucket: low ≤3, medium ≤6, high above.
func RiskLevelFor(score int) RiskLevel {
	switch {
	case score <= 3:
		return RiskLow
	case score <= 6:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// FeatureContribution pairs a feature value with the model's global importance for it.
type FeatureContribution struct {
	Feature    string  `json:"feature"`
	Value      float64 `json:"value"`
	Importance float64 `json:"importance"`
}

// Assessment is the result of scoring one tourist at one location.
type Assessment struct {
	ID                   uuid.UUID             `json:"assessment_id"`
	SafetyScore          int                   `json:"safety_score"`
	Confidence           float64               `json:"confidence"`
	RiskLevel            RiskLevel             `json:"risk_level"`
	Recommendations      []string              `json:"recommendations"`
	FeatureContributions []FeatureContribution `json:"feature_contributions,omitempty"`
	Crime                *CrimeReport          `json:"ncrb_data,omitempty"`
	Weather              *WeatherReport        `json:"weather_data,omitempty"`
	Outcome              Outcome               `json:"outcome"`
	DegradedSources      []string              `json:"degraded_sources,omitempty"`
	Error                string                `json:"error,omitempty"`
	ModelVersion         string                `json:"model_version"`
	Latitude             *float64              `json:"latitude,omitempty"`
	Longitude            *float64              `json:"longitude,omitempty"`
	Timestamp            time.Time             `json:"timestamp"`
}
