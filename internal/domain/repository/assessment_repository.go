// Package repository 定义领域仓储接口
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/turtacn/touristsafety/internal/domain/models"
)

// AssessmentRepository persists completed safety assessments.
type AssessmentRepository interface {
	// Save stores an assessment. Saving the same ID twice overwrites it.
	Save(ctx context.Context, assessment *models.Assessment) error

	// FindByID returns errors.ErrRecordNotFound when no assessment matches.
	FindByID(ctx context.Context, id uuid.UUID) (*models.Assessment, error)

	// ListRecent returns up to limit assessments, newest first.
	ListRecent(ctx context.Context, limit int) ([]*models.Assessment, error)
}

// TrainingRunRepository records classifier training runs.
type TrainingRunRepository interface {
	Save(ctx context.Context, run *models.TrainingRun) error

	// Latest returns the most recent run, or (nil, nil) when none exists.
	Latest(ctx context.Context) (*models.TrainingRun, error)
}
