package models

import (
	"time"

	"github.com/google/uuid"
)

// LabeledSample is one training example: the raw inputs plus a 1–10 score.
type LabeledSample struct {
	Profile  TouristProfile   `json:"tourist_data"`
	Location *LocationContext `json:"location_data,omitempty"`
	Score    int              `json:"safety_score"`
}

// TrainingRun summarises one training of the classifier.
type TrainingRun struct {
	ID                 uuid.UUID          `json:"id"`
	Accuracy           float64            `json:"accuracy"`
	FeatureImportances map[string]float64 `json:"feature_importance"`
	TrainingSamples    int                `json:"training_samples"`
	TestSamples        int                `json:"test_samples"`
	ModelType          string             `json:"model_type"`
	Source             string             `json:"data_source"`
	Duration           time.Duration      `json:"duration"`
	TrainedAt          time.Time          `json:"trained_at"`
}
