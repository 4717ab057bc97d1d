package mocks

import (
	"context"
	"math/big"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/turtacn/touristsafety/internal/domain/service"
)

// MockTripLedger is a mock implementation of TripLedger
type MockTripLedger struct {
	mock.Mock
}

func (m *MockTripLedger) RegisterTrip(ctx context.Context, tripHash [32]byte, expiry time.Time) (string, uint64, error) {
	args := m.Called(ctx, tripHash, expiry)
	return args.String(0), args.Get(1).(uint64), args.Error(2)
}

func (m *MockTripLedger) IsTripActive(ctx context.Context, tripHash [32]byte) (bool, error) {
	args := m.Called(ctx, tripHash)
	return args.Bool(0), args.Error(1)
}

func (m *MockTripLedger) TripExpiry(ctx context.Context, tripHash [32]byte) (*big.Int, error) {
	args := m.Called(ctx, tripHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *MockTripLedger) DeleteTrip(ctx context.Context, tripHash [32]byte) (string, uint64, error) {
	args := m.Called(ctx, tripHash)
	return args.String(0), args.Get(1).(uint64), args.Error(2)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event service.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
