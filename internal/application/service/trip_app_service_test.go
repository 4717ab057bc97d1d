package service_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/touristsafety/internal/application/service"
	"github.com/turtacn/touristsafety/internal/domain/models"
	domainservice "github.com/turtacn/touristsafety/internal/domain/service"
	"github.com/turtacn/touristsafety/internal/domain/service/mocks"
	apperrors "github.com/turtacn/touristsafety/pkg/errors"
)

var tripNow = time.Unix(1700000000, 0).UTC()

func tripClock() time.Time { return tripNow }

func tripData() map[string]interface{} {
	return map[string]interface{}{"tourist": "A", "destination": "Goa", "days": 3}
}

func TestTripService_RegisterOnChain(t *testing.T) {
	ledger := new(mocks.MockTripLedger)
	expiry := tripNow.Add(48 * time.Hour)
	ledger.On("RegisterTrip", mock.Anything, mock.Anything, expiry).Return("0xabc", uint64(42), nil)
	trips := new(mocks.MockTripRepository)
	trips.On("Save", mock.Anything, mock.MatchedBy(func(tr *models.Trip) bool {
		return tr.OnChain && tr.Status == models.TripRegistered && tr.ExpiresAt.Equal(expiry)
	})).Return(nil)

	svc := service.NewTripAppService(service.TripDeps{Ledger: ledger, Trips: trips, Now: tripClock})

	reg, err := svc.Register(context.Background(), tripData(), 48*time.Hour)
	require.NoError(t, err)

	wantID, err := domainservice.GenerateTripID(tripData(), tripNow)
	require.NoError(t, err)
	assert.Equal(t, wantID, reg.TripID)
	assert.Equal(t, models.TripRegistered, reg.Status)
	assert.Equal(t, "0xabc", reg.TxHash)
	assert.Equal(t, uint64(42), reg.BlockNumber)
	assert.Equal(t, expiry.Unix(), reg.ExpiryTimestamp)
	assert.Equal(t, "2023-11-16T22:13:20Z", reg.ExpiryDate)
	assert.Len(t, reg.TripHash, 66)
	assert.Empty(t, reg.Error)

	h := domainservice.TripChainHash(wantID)
	ledger.AssertCalled(t, "RegisterTrip", mock.Anything, h, expiry)
	trips.AssertExpectations(t)
}

func TestTripService_RegisterFallsBackWithoutLedger(t *testing.T) {
	trips := new(mocks.MockTripRepository)
	trips.On("Save", mock.Anything, mock.Anything).Return(nil)

	svc := service.NewTripAppService(service.TripDeps{Trips: trips, Now: tripClock})

	reg, err := svc.Register(context.Background(), tripData(), 0)
	require.NoError(t, err)
	assert.Equal(t, models.TripLocalRegistered, reg.Status)
	assert.Equal(t, models.LocalFallbackTxHash, reg.TxHash)
	assert.Zero(t, reg.BlockNumber)
	assert.Equal(t, domainservice.TripLocalHash(reg.TripID), reg.TripHash)
	assert.Equal(t, tripNow.Add(168*time.Hour).Unix(), reg.ExpiryTimestamp)
	assert.Equal(t, service.ErrLedgerDisabled.Error(), reg.Error)
}

func TestTripService_RegisterFallsBackOnChainError(t *testing.T) {
	ledger := new(mocks.MockTripLedger)
	ledger.On("RegisterTrip", mock.Anything, mock.Anything, mock.Anything).Return("", uint64(0), errors.New("nonce too low"))

	svc := service.NewTripAppService(service.TripDeps{Ledger: ledger, Now: tripClock})

	reg, err := svc.Register(context.Background(), tripData(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, models.TripLocalRegistered, reg.Status)
	assert.Equal(t, "nonce too low", reg.Error)
}

func TestTripService_RegisterRejectsEmptyData(t *testing.T) {
	svc := service.NewTripAppService(service.TripDeps{})

	_, err := svc.Register(context.Background(), map[string]interface{}{}, time.Hour)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInvalidRequest, appErr.Code)
}

func TestTripService_StatusFromChain(t *testing.T) {
	const id = "TRIP_ABCDEF12_1700000000"
	h := domainservice.TripChainHash(id)
	ledger := new(mocks.MockTripLedger)
	ledger.On("IsTripActive", mock.Anything, h).Return(true, nil)
	ledger.On("TripExpiry", mock.Anything, h).Return(big.NewInt(1700600000), nil)

	svc := service.NewTripAppService(service.TripDeps{Ledger: ledger, Now: tripClock})

	state, err := svc.Status(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, state.IsActive)
	assert.Equal(t, models.TripActive, state.Status)
	assert.Equal(t, int64(1700600000), state.ExpiryTimestamp)
	assert.Empty(t, state.Error)
}

func TestTripService_StatusFallbacks(t *testing.T) {
	chainDown := errors.New("dial tcp: connection refused")

	tests := []struct {
		name       string
		local      *models.Trip
		wantStatus models.TripStatus
		wantActive bool
		wantExpiry int64
		wantDate   string
	}{
		{
			name:       "unknown trip",
			wantStatus: models.TripUnknown,
			wantActive: true,
			wantExpiry: 0,
			wantDate:   service.UnknownExpiryDate,
		},
		{
			name:       "local active",
			local:      &models.Trip{TripID: "T1", ExpiresAt: tripNow.Add(time.Hour)},
			wantStatus: models.TripLocalActive,
			wantActive: true,
			wantExpiry: tripNow.Add(time.Hour).Unix(),
			wantDate:   "2023-11-14T23:13:20Z",
		},
		{
			name:       "local expired",
			local:      &models.Trip{TripID: "T1", ExpiresAt: tripNow.Add(-time.Hour)},
			wantStatus: models.TripLocalExpired,
			wantActive: false,
			wantExpiry: tripNow.Add(-time.Hour).Unix(),
			wantDate:   "2023-11-14T21:13:20Z",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := new(mocks.MockTripLedger)
			ledger.On("IsTripActive", mock.Anything, mock.Anything).Return(false, chainDown)
			trips := new(mocks.MockTripRepository)
			if tt.local != nil {
				trips.On("FindByID", mock.Anything, "T1").Return(tt.local, nil)
			} else {
				trips.On("FindByID", mock.Anything, "T1").Return(nil, apperrors.ErrRecordNotFound)
			}

			svc := service.NewTripAppService(service.TripDeps{Ledger: ledger, Trips: trips, Now: tripClock})

			state, err := svc.Status(context.Background(), "T1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, state.Status)
			assert.Equal(t, tt.wantActive, state.IsActive)
			assert.Equal(t, tt.wantExpiry, state.ExpiryTimestamp)
			assert.Equal(t, tt.wantDate, state.ExpiryDate)
			assert.Equal(t, chainDown.Error(), state.Error)
		})
	}
}

func TestTripService_Delete(t *testing.T) {
	ledger := new(mocks.MockTripLedger)
	ledger.On("DeleteTrip", mock.Anything, domainservice.TripChainHash("T1")).Return("0xdef", uint64(77), nil)
	ledger.On("DeleteTrip", mock.Anything, domainservice.TripChainHash("T2")).Return("", uint64(0), errors.New("execution reverted"))
	trips := new(mocks.MockTripRepository)
	trips.On("MarkDeleted", mock.Anything, "T1", models.TripDeleted, tripNow).Return(nil)
	trips.On("MarkDeleted", mock.Anything, "T2", models.TripLocalDeleted, tripNow).Return(apperrors.ErrRecordNotFound)

	svc := service.NewTripAppService(service.TripDeps{Ledger: ledger, Trips: trips, Now: tripClock})

	res, err := svc.Delete(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, models.TripDeleted, res.Status)
	assert.Equal(t, "0xdef", res.TxHash)
	assert.Equal(t, uint64(77), res.BlockNumber)

	res, err = svc.Delete(context.Background(), "T2")
	require.NoError(t, err)
	assert.Equal(t, models.TripLocalDeleted, res.Status)
	assert.Equal(t, models.LocalFallbackTxHash, res.TxHash)
	assert.Equal(t, "execution reverted", res.Error)
	trips.AssertExpectations(t)
}

func TestTripService_CleanupExpired(t *testing.T) {
	trips := new(mocks.MockTripRepository)
	trips.On("ListExpired", mock.Anything, tripNow, service.CleanupBatchSize).Return([]*models.Trip{
		{TripID: "T1"}, {TripID: "T2"},
	}, nil)
	trips.On("MarkDeleted", mock.Anything, "T1", models.TripLocalDeleted, tripNow).Return(nil)
	trips.On("MarkDeleted", mock.Anything, "T2", models.TripLocalDeleted, tripNow).Return(errors.New("locked"))

	svc := service.NewTripAppService(service.TripDeps{Trips: trips, Now: tripClock})

	res, err := svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cleanup_completed", res.Status)
	assert.Equal(t, []string{"T1"}, res.Removed)
	assert.Equal(t, []string{"T2"}, res.Failed)
}
