package repository

import (
	"context"
	"time"

	"github.com/turtacn/touristsafety/internal/domain/models"
)

// TripRepository is the local ledger of registered trips. It backs status checks
// when the chain is unreachable and drives expiry cleanup.
type TripRepository interface {
	// Save creates or updates a trip keyed by TripID.
	Save(ctx context.Context, trip *models.Trip) error

	// FindByID returns errors.ErrRecordNotFound when the trip is unknown.
	FindByID(ctx context.Context, tripID string) (*models.Trip, error)

	// MarkDeleted sets the deletion time and status of a trip.
	MarkDeleted(ctx context.Context, tripID string, status models.TripStatus, at time.Time) error

	// ListExpired returns non-deleted trips whose expiry is at or before now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.Trip, error)
}
