// Package service holds the domain logic of the safety pipeline: turning a tourist
// profile and location into a feature vector, rule-based recommendations and
// synthetic training data, plus the ports the infrastructure layer implements.
package service

import (
	"context"
	"math/big"
	"time"

	"github.com/turtacn/touristsafety/internal/domain/models"
	"github.com/turtacn/touristsafety/pkg/constants"
)

// CrimeRiskProvider returns crime sub-scores for a location. It never fails: on
// upstream errors the report carries defaults, Source=default and an Error string.
// CrimeRiskProvider 返回某位置的犯罪风险子评分。
//
//go:generate mockery --name CrimeRiskProvider --output mocks --outpkg mocks
type CrimeRiskProvider interface {
	CrimeReport(ctx context.Context, q models.GeoQuery) *models.CrimeReport
}

// WeatherRiskProvider returns weather sub-scores for a location, with the same
// never-fail contract as CrimeRiskProvider.
//
//go:generate mockery --name WeatherRiskProvider --output mocks --outpkg mocks
type WeatherRiskProvider interface {
	WeatherReport(ctx context.Context, q models.GeoQuery) *models.WeatherReport
}

// TripLedger is the on-chain trip registry.
// TripLedger 是链上行程登记接口。
//
//go:generate mockery --name TripLedger --output mocks --outpkg mocks
type TripLedger interface {
	// RegisterTrip records tripHash with the given expiry and returns the mined tx hash and block.
	RegisterTrip(ctx context.Context, tripHash [32]byte, expiry time.Time) (txHash string, block uint64, err error)

	// IsTripActive reports whether the trip exists and has not expired on chain.
	IsTripActive(ctx context.Context, tripHash [32]byte) (bool, error)

	// TripExpiry returns the on-chain expiry as unix seconds.
	TripExpiry(ctx context.Context, tripHash [32]byte) (*big.Int, error)

	// DeleteTrip removes an expired trip and returns the mined tx hash and block.
	DeleteTrip(ctx context.Context, tripHash [32]byte) (txHash string, block uint64, err error)
}

// EventPublisher emits domain events to downstream consumers.
//
//go:generate mockery --name EventPublisher --output mocks --outpkg mocks
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Event is a domain event envelope.
type Event struct {
	ID         string              `json:"id"`
	Type       constants.EventType `json:"type"`
	Key        string              `json:"key"`
	OccurredAt time.Time           `json:"occurred_at"`
	Payload    interface{}         `json:"payload"`
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }
