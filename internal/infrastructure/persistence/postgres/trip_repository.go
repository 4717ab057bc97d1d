package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/turtacn/touristsafety/internal/domain/models"
	"github.com/turtacn/touristsafety/internal/domain/repository"
	apperrors "github.com/turtacn/touristsafety/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// tripDBM is the database model for the trips table.
type tripDBM struct {
	TripID    string    `gorm:"primaryKey;size:64"`
	TripHash  string    `gorm:"size:66;index"`
	ExpiresAt time.Time `gorm:"index"`
	TxHash    string    `gorm:"size:66"`
	Block     uint64
	Status    string `gorm:"size:32"`
	OnChain   bool
	CreatedAt time.Time
	DeletedAt *time.Time `gorm:"index"`
}

func (tripDBM) TableName() string {
	return "trips"
}

func (dbm *tripDBM) toDomain() *models.Trip {
	return &models.Trip{
		TripID:    dbm.TripID,
		TripHash:  dbm.TripHash,
		ExpiresAt: dbm.ExpiresAt,
		TxHash:    dbm.TxHash,
		Block:     dbm.Block,
		Status:    models.TripStatus(dbm.Status),
		OnChain:   dbm.OnChain,
		CreatedAt: dbm.CreatedAt,
		DeletedAt: dbm.DeletedAt,
	}
}

func tripFromDomain(t *models.Trip) *tripDBM {
	return &tripDBM{
		TripID:    t.TripID,
		TripHash:  t.TripHash,
		ExpiresAt: t.ExpiresAt,
		TxHash:    t.TxHash,
		Block:     t.Block,
		Status:    string(t.Status),
		OnChain:   t.OnChain,
		CreatedAt: t.CreatedAt,
		DeletedAt: t.DeletedAt,
	}
}

// TripRepository is the gorm implementation of repository.TripRepository.
type TripRepository struct {
	db *gorm.DB
}

// NewTripRepository creates a new TripRepository.
func NewTripRepository(db *gorm.DB) repository.TripRepository {
	return &TripRepository{db: db}
}

// Save upserts a trip by its ID.
func (r *TripRepository) Save(ctx context.Context, trip *models.Trip) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trip_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"trip_hash", "expires_at", "tx_hash", "block", "status", "on_chain", "deleted_at"}),
	}).Create(tripFromDomain(trip)).Error
}

// FindByID retrieves a trip, including deleted ones.
func (r *TripRepository) FindByID(ctx context.Context, tripID string) (*models.Trip, error) {
	var dbm tripDBM
	if err := r.db.WithContext(ctx).Where("trip_id = ?", tripID).First(&dbm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecordNotFound
		}
		return nil, err
	}
	return dbm.toDomain(), nil
}

// MarkDeleted records the deletion of a trip.
func (r *TripRepository) MarkDeleted(ctx context.Context, tripID string, status models.TripStatus, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&tripDBM{}).
		Where("trip_id = ?", tripID).
		Updates(map[string]interface{}{"status": string(status), "deleted_at": at})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrRecordNotFound
	}
	return nil
}

// ListExpired returns live trips whose expiry has passed.
func (r *TripRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.Trip, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []tripDBM
	err := r.db.WithContext(ctx).
		Where("deleted_at IS NULL AND expires_at <= ?", now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*models.Trip, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}
