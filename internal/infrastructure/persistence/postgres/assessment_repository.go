package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/turtacn/touristsafety/internal/domain/models"
	"github.com/turtacn/touristsafety/internal/domain/repository"
	apperrors "github.com/turtacn/touristsafety/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// assessmentDBM is the database model for the safety_assessments table.
type assessmentDBM struct {
	ID                   string                       `gorm:"primaryKey;size:36"`
	SafetyScore          int                          `gorm:"not null"`
	Confidence           float64                      `gorm:"not null"`
	RiskLevel            string                       `gorm:"size:16;index"`
	Outcome              string                       `gorm:"size:16;index"`
	Recommendations      []string                     `gorm:"serializer:json"`
	FeatureContributions []models.FeatureContribution `gorm:"serializer:json"`
	DegradedSources      []string                     `gorm:"serializer:json"`
	Crime                *models.CrimeReport          `gorm:"serializer:json"`
	Weather              *models.WeatherReport        `gorm:"serializer:json"`
	ErrorMessage         string
	ModelVersion         string `gorm:"size:32"`
	Latitude             *float64
	Longitude            *float64
	AssessedAt           time.Time `gorm:"index"`
}

func (assessmentDBM) TableName() string {
	return "safety_assessments"
}

func (dbm *assessmentDBM) toDomain() (*models.Assessment, error) {
	id, err := uuid.Parse(dbm.ID)
	if err != nil {
		return nil, err
	}
	return &models.Assessment{
		ID:                   id,
		SafetyScore:          dbm.SafetyScore,
		Confidence:           dbm.Confidence,
		RiskLevel:            models.RiskLevel(dbm.RiskLevel),
		Recommendations:      dbm.Recommendations,
		FeatureContributions: dbm.FeatureContributions,
		Crime:                dbm.Crime,
		Weather:              dbm.Weather,
		Outcome:              models.Outcome(dbm.Outcome),
		DegradedSources:      dbm.DegradedSources,
		Error:                dbm.ErrorMessage,
		ModelVersion:         dbm.ModelVersion,
		Latitude:             dbm.Latitude,
		Longitude:            dbm.Longitude,
		Timestamp:            dbm.AssessedAt,
	}, nil
}

func assessmentFromDomain(a *models.Assessment) *assessmentDBM {
	return &assessmentDBM{
		ID:                   a.ID.String(),
		SafetyScore:          a.SafetyScore,
		Confidence:           a.Confidence,
		RiskLevel:            string(a.RiskLevel),
		Outcome:              string(a.Outcome),
		Recommendations:      a.Recommendations,
		FeatureContributions: a.FeatureContributions,
		DegradedSources:      a.DegradedSources,
		Crime:                a.Crime,
		Weather:              a.Weather,
		ErrorMessage:         a.Error,
		ModelVersion:         a.ModelVersion,
		Latitude:             a.Latitude,
		Longitude:            a.Longitude,
		AssessedAt:           a.Timestamp,
	}
}

// AssessmentRepository is the gorm implementation of repository.AssessmentRepository.
type AssessmentRepository struct {
	db *gorm.DB
}

// NewAssessmentRepository creates a new AssessmentRepository.
func NewAssessmentRepository(db *gorm.DB) repository.AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// Save upserts the assessment by ID.
func (r *AssessmentRepository) Save(ctx context.Context, a *models.Assessment) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(assessmentFromDomain(a)).Error
}

// FindByID retrieves one assessment.
func (r *AssessmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Assessment, error) {
	var dbm assessmentDBM
	if err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&dbm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecordNotFound
		}
		return nil, err
	}
	return dbm.toDomain()
}

// ListRecent returns the newest assessments first.
func (r *AssessmentRepository) ListRecent(ctx context.Context, limit int) ([]*models.Assessment, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []assessmentDBM
	if err := r.db.WithContext(ctx).Order("assessed_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Assessment, 0, len(rows))
	for i := range rows {
		a, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
