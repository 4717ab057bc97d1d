package handlers_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/turtacn/touristsafety/internal/application/dto"
	"github.com/turtacn/touristsafety/internal/domain/models"
)

type mockSafetyService struct{ mock.Mock }

func (m *mockSafetyService) Assess(ctx context.Context, p models.TouristProfile, loc *models.LocationContext) *models.Assessment {
	args := m.Called(ctx, p, loc)
	return args.Get(0).(*models.Assessment)
}

func (m *mockSafetyService) GetAssessment(ctx context.Context, id uuid.UUID) (*models.Assessment, error) {
	args := m.Called(ctx, id)
	if a := args.Get(0); a != nil {
		return a.(*models.Assessment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSafetyService) ListAssessments(ctx context.Context, limit int) ([]*models.Assessment, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*models.Assessment), args.Error(1)
}

func (m *mockSafetyService) CrimeReport(ctx context.Context, q models.GeoQuery) (*models.CrimeReport, error) {
	args := m.Called(ctx, q)
	if r := args.Get(0); r != nil {
		return r.(*models.CrimeReport), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSafetyService) WeatherReport(ctx context.Context, q models.GeoQuery) (*models.WeatherReport, error) {
	args := m.Called(ctx, q)
	if r := args.Get(0); r != nil {
		return r.(*models.WeatherReport), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockTrainingService struct{ mock.Mock }

func (m *mockTrainingService) TrainSynthetic(ctx context.Context, samples int, seed int64) (*models.TrainingRun, error) {
	args := m.Called(ctx, samples, seed)
	if r := args.Get(0); r != nil {
		return r.(*models.TrainingRun), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTrainingService) TrainSamples(ctx context.Context, samples []models.LabeledSample, source string) (*models.TrainingRun, error) {
	args := m.Called(ctx, samples, source)
	if r := args.Get(0); r != nil {
		return r.(*models.TrainingRun), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTrainingService) ParseSamples(data []byte) ([]models.LabeledSample, error) {
	args := m.Called(data)
	if r := args.Get(0); r != nil {
		return r.([]models.LabeledSample), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTrainingService) ModelInfo(ctx context.Context) (*dto.ModelInfoResponse, error) {
	args := m.Called(ctx)
	if r := args.Get(0); r != nil {
		return r.(*dto.ModelInfoResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockTripService struct{ mock.Mock }

func (m *mockTripService) Register(ctx context.Context, data map[string]interface{}, d time.Duration) (*models.TripRegistration, error) {
	args := m.Called(ctx, data, d)
	if r := args.Get(0); r != nil {
		return r.(*models.TripRegistration), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTripService) Status(ctx context.Context, tripID string) (*models.TripState, error) {
	args := m.Called(ctx, tripID)
	if r := args.Get(0); r != nil {
		return r.(*models.TripState), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTripService) Delete(ctx context.Context, tripID string) (*models.TripDeletion, error) {
	args := m.Called(ctx, tripID)
	if r := args.Get(0); r != nil {
		return r.(*models.TripDeletion), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTripService) CleanupExpired(ctx context.Context) (*models.TripCleanup, error) {
	args := m.Called(ctx)
	if r := args.Get(0); r != nil {
		return r.(*models.TripCleanup), args.Error(1)
	}
	return nil, args.Error(1)
}
