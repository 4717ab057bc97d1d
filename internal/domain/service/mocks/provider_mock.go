package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/turtacn/touristsafety/internal/domain/models"
)

// MockCrimeRiskProvider is a mock implementation of CrimeRiskProvider
type MockCrimeRiskProvider struct {
	mock.Mock
}

func (m *MockCrimeRiskProvider) CrimeReport(ctx context.Context, q models.GeoQuery) *models.CrimeReport {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*models.CrimeReport)
}

// MockWeatherRiskProvider is a mock implementation of WeatherRiskProvider
type MockWeatherRiskProvider struct {
	mock.Mock
}

func (m *MockWeatherRiskProvider) WeatherReport(ctx context.Context, q models.GeoQuery) *models.WeatherReport {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*models.WeatherReport)
}
