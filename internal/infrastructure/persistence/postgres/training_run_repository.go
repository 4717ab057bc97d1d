package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/turtacn/touristsafety/internal/domain/models"
	"github.com/turtacn/touristsafety/internal/domain/repository"
	"gorm.io/gorm"
)

// trainingRunDBM is the database model for the training_runs table.
type trainingRunDBM struct {
	ID                 string             `gorm:"primaryKey;size:36"`
	Accuracy           float64            `gorm:"not null"`
	FeatureImportances map[string]float64 `gorm:"serializer:json"`
	TrainingSamples    int
	TestSamples        int
	ModelType          string `gorm:"size:64"`
	Source             string `gorm:"size:32"`
	DurationMs         int64
	TrainedAt          time.Time `gorm:"index"`
}

func (trainingRunDBM) TableName() string {
	return "training_runs"
}

// TrainingRunRepository is the gorm implementation of repository.TrainingRunRepository.
type TrainingRunRepository struct {
	db *gorm.DB
}

// NewTrainingRunRepository creates a new TrainingRunRepository.
func NewTrainingRunRepository(db *gorm.DB) repository.TrainingRunRepository {
	return &TrainingRunRepository{db: db}
}

// Save inserts a training run.
func (r *TrainingRunRepository) Save(ctx context.Context, run *models.TrainingRun) error {
	return r.db.WithContext(ctx).Create(&trainingRunDBM{
		ID:                 run.ID.String(),
		Accuracy:           run.Accuracy,
		FeatureImportances: run.FeatureImportances,
		TrainingSamples:    run.TrainingSamples,
		TestSamples:        run.TestSamples,
		ModelType:          run.ModelType,
		Source:             run.Source,
		DurationMs:         run.Duration.Milliseconds(),
		TrainedAt:          run.TrainedAt,
	}).Error
}

// Latest returns the newest run, or nil when there are none.
func (r *TrainingRunRepository) Latest(ctx context.Context) (*models.TrainingRun, error) {
	var dbm trainingRunDBM
	if err := r.db.WithContext(ctx).Order("trained_at DESC").First(&dbm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	id, err := uuid.Parse(dbm.ID)
	if err != nil {
		return nil, err
	}
	return &models.TrainingRun{
		ID:                 id,
		Accuracy:           dbm.Accuracy,
		FeatureImportances: dbm.FeatureImportances,
		TrainingSamples:    dbm.TrainingSamples,
		TestSamples:        dbm.TestSamples,
		ModelType:          dbm.ModelType,
		Source:             dbm.Source,
		Duration:           time.Duration(dbm.DurationMs) * time.Millisecond,
		TrainedAt:          dbm.TrainedAt,
	}, nil
}
