package dto

import (
	"encoding/json"
	"time"

	"github.com/turtacn/touristsafety/internal/domain/models"
)

// ScoreRequest asks for a safety assessment of one tourist at one location.
type ScoreRequest struct {
	TouristProfile models.TouristProfile   `json:"tourist_profile"`
	Location       *models.LocationContext `json:"location_data,omitempty"`
}

// AssessmentListResponse wraps recent assessments.
type AssessmentListResponse struct {
	Assessments []*models.Assessment `json:"assessments"`
	Count       int                  `json:"count"`
}

// RiskQuery selects the location for a crime or weather lookup.
type RiskQuery struct {
	Latitude  *float64 `form:"lat" json:"latitude" validate:"required,min=-90,max=90"`
	Longitude *float64 `form:"lon" json:"longitude" validate:"required,min=-180,max=180"`
	RadiusKm  int      `form:"radius" json:"radius_km" validate:"min=0,max=500"`
}

// GeoQuery converts the request into a provider query, applying the default radius.
func (q RiskQuery) GeoQuery(defaultRadius int) models.GeoQuery {
	radius := q.RadiusKm
	if radius <= 0 {
		radius = defaultRadius
	}
	return models.GeoQuery{Latitude: *q.Latitude, Longitude: *q.Longitude, RadiusKm: radius}
}

// TrainRequest starts a training run. Samples, when present, must match the
// labelled-sample schema; otherwise SyntheticSamples rows are generated.
type TrainRequest struct {
	SyntheticSamples int             `json:"synthetic_samples" validate:"min=0,max=100000"`
	Seed             *int64          `json:"seed,omitempty"`
	Samples          json.RawMessage `json:"samples,omitempty"`
}

// TrainResponse reports a finished training run.
type TrainResponse struct {
	Accuracy           float64            `json:"accuracy"`
	FeatureImportances map[string]float64 `json:"feature_importance"`
	TrainingSamples    int                `json:"training_samples"`
	TestSamples        int                `json:"test_samples"`
	ModelType          string             `json:"model_type"`
	DataSource         string             `json:"data_source"`
	DurationMs         int64              `json:"duration_ms"`
	TrainedAt          time.Time          `json:"trained_at"`
}

// TrainResponseFrom converts a training run.
func TrainResponseFrom(run *models.TrainingRun) *TrainResponse {
	return &TrainResponse{
		Accuracy:           run.Accuracy,
		FeatureImportances: run.FeatureImportances,
		TrainingSamples:    run.TrainingSamples,
		TestSamples:        run.TestSamples,
		ModelType:          run.ModelType,
		DataSource:         run.Source,
		DurationMs:         run.Duration.Milliseconds(),
		TrainedAt:          run.TrainedAt,
	}
}

// ModelInfoResponse describes the resident model.
type ModelInfoResponse struct {
	ModelVersion       string             `json:"model_version"`
	ModelType          string             `json:"model_type"`
	Loaded             bool               `json:"loaded"`
	FeatureNames       []string           `json:"feature_names"`
	FeatureImportances map[string]float64 `json:"feature_importance,omitempty"`
	LastTraining       *TrainResponse     `json:"last_training,omitempty"`
}
