package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/touristsafety/internal/domain/models"
	"github.com/turtacn/touristsafety/internal/domain/service"
)

func TestCrimeRecommendations(t *testing.T) {
	t.Run("nothing elevated", func(t *testing.T) {
		got := service.CrimeRecommendations(models.UniformCrimeRisk(5))
		assert.Equal(t, []string{service.SafeAreaAdvice}, got)
	})

	t.Run("thresholds are strict", func(t *testing.T) {
		f := models.UniformCrimeRisk(6)
		f.Overall = 7
		assert.Equal(t, []string{service.SafeAreaAdvice}, service.CrimeRecommendations(f))
	})

	t.Run("order follows the rule table", func(t *testing.T) {
		got := service.CrimeRecommendations(models.UniformCrimeRisk(9))
		require.Len(t, got, 8)
		assert.Contains(t, got[0], "High crime area")
		assert.Contains(t, got[1], "Recent criminal activity")
		assert.Contains(t, got[7], "Night time travel risk")
	})
}

func TestWeatherRecommendations(t *testing.T) {
	t.Run("extreme beats high temperature", func(t *testing.T) {
		got := service.WeatherRecommendations(models.WeatherRiskFactors{Temperature: 9, Overall: 5})
		assert.Equal(t, []string{"Extreme temperature conditions. Avoid outdoor activities."}, got)
	})

	t.Run("high temperature", func(t *testing.T) {
		got := service.WeatherRecommendations(models.WeatherRiskFactors{Temperature: 8, Overall: 5})
		assert.Equal(t, []string{"High temperature risk. Stay hydrated and seek shade."}, got)
	})

	t.Run("favorable", func(t *testing.T) {
		got := service.WeatherRecommendations(models.WeatherRiskFactors{Temperature: 3, Wind: 2, Visibility: 2, UV: 4, Condition: 2, Overall: 3})
		assert.Equal(t, []string{service.FavorableWeatherAdvice}, got)
	})

	t.Run("severe", func(t *testing.T) {
		got := service.WeatherRecommendations(models.WeatherRiskFactors{Wind: 9, Visibility: 9, UV: 8, Condition: 9, Overall: 8})
		require.Len(t, got, 5)
		assert.Contains(t, got[4], "Overall weather conditions pose safety risks")
	})

	t.Run("neutral yields nothing", func(t *testing.T) {
		assert.Empty(t, service.WeatherRecommendations(models.WeatherRiskFactors{Overall: 5}))
	})
}

func TestScoreRecommendations(t *testing.T) {
	assert.Len(t, service.ScoreRecommendations(1), 2)
	assert.Len(t, service.ScoreRecommendations(6), 2)
	assert.Len(t, service.ScoreRecommendations(7), 3)
	assert.Equal(t, "High risk area. Exercise extreme caution.", service.ScoreRecommendations(10)[0])

	a := service.ScoreRecommendations(2)
	a[0] = "mutated"
	assert.NotEqual(t, "mutated", service.ScoreRecommendations(2)[0])
}

func TestAssessmentRecommendations(t *testing.T) {
	crime := &models.CrimeReport{RiskFactors: models.UniformCrimeRisk(5)}
	live := &models.WeatherReport{RiskFactors: models.WeatherRiskFactors{Overall: 3}, Source: models.SourceLive}
	fallback := &models.WeatherReport{RiskFactors: models.WeatherRiskFactors{Overall: 3}, Source: models.SourceDefault}

	got := service.AssessmentRecommendations(2, crime, live)
	assert.Equal(t, []string{
		service.SafeAreaAdvice,
		service.FavorableWeatherAdvice,
		"Area is very safe. Normal precautions sufficient.",
		"Good location for solo travelers and families.",
	}, got)

	got = service.AssessmentRecommendations(8, nil, fallback)
	assert.Len(t, got, 3)
	assert.NotContains(t, got, service.FavorableWeatherAdvice)
}
