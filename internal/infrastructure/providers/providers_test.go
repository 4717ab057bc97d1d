package providers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/touristsafety/internal/config"
	"github.com/turtacn/touristsafety/internal/domain/models"
	"github.com/turtacn/touristsafety/internal/domain/service"
	"github.com/turtacn/touristsafety/internal/infrastructure/cache"
	"github.com/turtacn/touristsafety/internal/infrastructure/providers"
)

var noon = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return noon }

func repeat(kind, date string, n int) []map[string]string {
	out := make([]map[string]string, n)
	for i := range out {
		out[i] = map[string]string{"crime_type": kind, "date": date}
	}
	return out
}

type crimeUpstream struct {
	server      *httptest.Server
	geocodeHits atomic.Int32
	recordHits  atomic.Int32
	geocode     http.HandlerFunc
}

func newCrimeUpstream(t *testing.T) *crimeUpstream {
	u := &crimeUpstream{}
	u.geocode = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "en", r.URL.Query().Get("localityLanguage"))
		_ = json.NewEncoder(w).Encode(map[string]string{"principalSubdivision": "Delhi", "locality": "New Delhi"})
	}

	var records []map[string]string
	records = append(records, repeat("Theft", "2025-03-01", 10)...)
	records = append(records, repeat("Vehicle theft", "2024-01-01", 30)...)
	records = append(records, repeat("Robbery", "2024-01-01", 10)...)
	records = append(records, repeat("Assault", "not a date", 20)...)
	records = append(records, repeat("Rape", "", 3)...)
	records = append(records, repeat("Online scam", "2024-01-01", 1)...)
	records = append(records, repeat("Cyber stalking", "2024-01-01", 15)...)
	records = append(records, repeat("Vandalism", "2024-01-01", 2)...)

	mux := http.NewServeMux()
	mux.HandleFunc("/geocode", func(w http.ResponseWriter, r *http.Request) {
		u.geocodeHits.Add(1)
		u.geocode(w, r)
	})
	mux.HandleFunc("/dataset/crime-data", func(w http.ResponseWriter, r *http.Request) {
		u.recordHits.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("api-key"))
		assert.Equal(t, "Delhi", q.Get("filters[state]"))
		assert.Equal(t, "New Delhi", q.Get("filters[district]"))
		assert.Equal(t, "100", q.Get("limit"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"records": records})
	})
	u.server = httptest.NewServer(mux)
	t.Cleanup(u.server.Close)
	return u
}

func (u *crimeUpstream) provider(reports *cache.ReportCache[models.CrimeReport]) *providers.CrimeProvider {
	return providers.NewCrimeProvider(config.CrimeProviderConfig{
		BaseURL:        u.server.URL + "/dataset",
		GeocodeURL:     u.server.URL + "/geocode",
		APIKey:         "test-key",
		RecordsTimeout: 2 * time.Second,
		GeocodeTimeout: 2 * time.Second,
	}, reports, providers.WithProviderClock(clock))
}

func TestCrimeProvider_Live(t *testing.T) {
	up := newCrimeUpstream(t)
	p := up.provider(nil)

	report := p.CrimeReport(context.Background(), models.GeoQuery{Latitude: 28.6139, Longitude: 77.209, RadiusKm: 10})

	require.Equal(t, models.SourceLive, report.Source)
	assert.Empty(t, report.Error)
	assert.Equal(t, "Delhi", report.State)
	assert.Equal(t, "New Delhi", report.District)

	assert.Equal(t, models.CrimeStats{
		TotalCrimes: 91, Theft: 40, Robbery: 10, Assault: 20, Fraud: 1,
		Cyber: 15, SexualOffenses: 3, Other: 2, RecentCrimes: 10,
	}, report.Stats)

	f := report.RiskFactors
	assert.InDelta(t, 1.91, f.Overall, 1e-9)
	assert.InDelta(t, 3.0, f.RecentActivity, 1e-9)
	assert.InDelta(t, 3.0, f.Theft, 1e-9)
	assert.InDelta(t, 3.0, f.Violence, 1e-9)
	assert.InDelta(t, 3.0, f.Robbery, 1e-9)
	assert.InDelta(t, 2.0, f.SexualCrime, 1e-9)
	assert.InDelta(t, 2.0, f.CyberCrime, 1e-9)
	assert.Equal(t, 3.0, f.Time)
	assert.Equal(t, 4.0, f.Seasonal)
	assert.Equal(t, []string{service.SafeAreaAdvice}, report.Recommendations)
}

func TestCrimeProvider_CachesLiveResults(t *testing.T) {
	up := newCrimeUpstream(t)
	reports := cache.NewReportCache[models.CrimeReport]("crime", time.Hour, 0)
	p := up.provider(reports)
	q := models.GeoQuery{Latitude: 28.6139, Longitude: 77.209, RadiusKm: 10}

	first := p.CrimeReport(context.Background(), q)
	second := p.CrimeReport(context.Background(), q)

	assert.Same(t, first, second)
	assert.EqualValues(t, 1, up.recordHits.Load())

	p.CrimeReport(context.Background(), models.GeoQuery{Latitude: 28.6139, Longitude: 77.209, RadiusKm: 5})
	assert.EqualValues(t, 2, up.recordHits.Load(), "radius is part of the key")
}

func TestCrimeProvider_FallsBackToDefaults(t *testing.T) {
	up := newCrimeUpstream(t)
	up.geocode = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}
	reports := cache.NewReportCache[models.CrimeReport]("crime", time.Hour, 0)
	p := up.provider(reports)
	q := models.GeoQuery{Latitude: 1, Longitude: 2, RadiusKm: 10}

	report := p.CrimeReport(context.Background(), q)
	assert.Equal(t, models.SourceDefault, report.Source)
	assert.Contains(t, report.Error, "502")
	assert.Equal(t, models.UniformCrimeRisk(5), report.RiskFactors)
	assert.Equal(t, "Unknown", report.State)
	assert.Zero(t, up.recordHits.Load())

	p.CrimeReport(context.Background(), q)
	assert.EqualValues(t, 2, up.geocodeHits.Load(), "defaults are not cached")
}

func TestCrimeProvider_MissingDistrict(t *testing.T) {
	up := newCrimeUpstream(t)
	up.geocode = func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"principalSubdivision": "Goa"})
	}
	report := up.provider(nil).CrimeReport(context.Background(), models.GeoQuery{Latitude: 15.3, Longitude: 74.1})
	assert.Equal(t, models.SourceDefault, report.Source)
	assert.Zero(t, up.recordHits.Load())
}

func TestCrimeRiskFactorsFor_Clamps(t *testing.T) {
	f := providers.CrimeRiskFactorsFor(models.CrimeStats{TotalCrimes: 5000, RecentCrimes: 100, Robbery: 80}, noon)
	assert.Equal(t, 10.0, f.Overall)
	assert.Equal(t, 10.0, f.RecentActivity)
	assert.Equal(t, 10.0, f.Robbery)
	assert.Equal(t, 1.0, f.Theft)

	night := time.Date(2025, time.July, 1, 23, 0, 0, 0, time.UTC)
	f = providers.CrimeRiskFactorsFor(models.CrimeStats{}, night)
	assert.Equal(t, 8.0, f.Time)
	assert.Equal(t, 6.0, f.Seasonal)
}

func TestCrimeKey(t *testing.T) {
	assert.Equal(t, "28.6139:77.2090:10", providers.CrimeKey(models.GeoQuery{Latitude: 28.61391, Longitude: 77.209, RadiusKm: 10}))
}

func newWeatherServer(t *testing.T, status int, body string, hits *atomic.Int32) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.True(t, strings.HasPrefix(r.URL.Path, "/timeline/"))
		assert.Equal(t, "metric", r.URL.Query().Get("unitGroup"))
		assert.Equal(t, "wkey", r.URL.Query().Get("key"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func weatherProvider(url string, reports *cache.ReportCache[models.WeatherReport]) *providers.WeatherProvider {
	return providers.NewWeatherProvider(config.WeatherProviderConfig{
		BaseURL: url + "/timeline",
		APIKey:  "wkey",
		Timeout: 2 * time.Second,
	}, reports, providers.WithProviderClock(clock))
}

func TestWeatherProvider_Live(t *testing.T) {
	var hits atomic.Int32
	srv := newWeatherServer(t, http.StatusOK, `{
		"currentConditions": {"temp": 38, "humidity": 85, "windspeed": 25, "visibility": 0.5, "uvindex": 11, "conditions": "Thunderstorm"},
		"days": [{"tempmax": 41, "tempmin": 30, "precipprob": 90, "precip": 12.5, "conditions": "Rain"}]
	}`, &hits)
	reports := cache.NewReportCache[models.WeatherReport]("weather", 30*time.Minute, 0)
	p := weatherProvider(srv.URL, reports)
	q := models.GeoQuery{Latitude: 19.076, Longitude: 72.8777}

	report := p.WeatherReport(context.Background(), q)

	require.Equal(t, models.SourceLive, report.Source)
	assert.Equal(t, 38.0, report.Current.FeelsLike, "feels-like defaults to temperature")
	assert.Equal(t, 1013.0, report.Current.Pressure)
	assert.Equal(t, 41.0, report.Forecast.MaxTemperature)
	assert.Equal(t, "Rain", report.Forecast.Conditions)

	f := report.RiskFactors
	assert.Equal(t, 7.0, f.Temperature)
	assert.Equal(t, 6.0, f.Humidity)
	assert.Equal(t, 7.0, f.Wind)
	assert.Equal(t, 9.0, f.Visibility)
	assert.Equal(t, 8.0, f.UV)
	assert.Equal(t, 9.0, f.Condition)
	// 1.4 + 0.9 + 1.4 + 2.25 + 0.8 + 0.9 = 7.65
	assert.InDelta(t, 7.65, f.Overall, 0.051)
	assert.Contains(t, report.Recommendations, "Poor visibility conditions. Use extra caution when traveling.")

	assert.Same(t, report, p.WeatherReport(context.Background(), q))
	assert.EqualValues(t, 1, hits.Load())
}

func TestWeatherProvider_MissingFieldsUseDefaults(t *testing.T) {
	var hits atomic.Int32
	srv := newWeatherServer(t, http.StatusOK, `{"currentConditions": {}}`, &hits)

	report := weatherProvider(srv.URL, nil).WeatherReport(context.Background(), models.GeoQuery{Latitude: 1, Longitude: 1})

	require.Equal(t, models.SourceLive, report.Source)
	assert.Equal(t, models.CurrentWeather{
		Temperature: 20, FeelsLike: 20, Humidity: 50, WindSpeed: 0,
		Visibility: 10, UVIndex: 5, Pressure: 1013, Conditions: "Clear",
	}, report.Current)
	assert.Equal(t, 20.0, report.Forecast.MinTemperature)
	// 0.6 + 0.45 + 0.4 + 0.5 + 0.2 + 0.2 = 2.35
	assert.Equal(t, 3.0, report.RiskFactors.Temperature)
	assert.InDelta(t, 2.35, report.RiskFactors.Overall, 0.051)
}

func TestWeatherProvider_FallsBackToDefaults(t *testing.T) {
	var hits atomic.Int32
	srv := newWeatherServer(t, http.StatusUnauthorized, `{}`, &hits)
	reports := cache.NewReportCache[models.WeatherReport]("weather", 30*time.Minute, 0)
	p := weatherProvider(srv.URL, reports)
	q := models.GeoQuery{Latitude: 1, Longitude: 1}

	report := p.WeatherReport(context.Background(), q)
	assert.Equal(t, models.SourceDefault, report.Source)
	assert.NotEmpty(t, report.Error)
	assert.Equal(t, 3.0, report.RiskFactors.Overall)
	assert.Equal(t, []float64{3, 3, 2, 2}, report.RiskFactors.FeatureValues())

	p.WeatherReport(context.Background(), q)
	assert.EqualValues(t, 2, hits.Load())
}

func TestConditionRisk(t *testing.T) {
	assert.Equal(t, 2.0, providers.ConditionRisk("Clear"))
	assert.Equal(t, 9.0, providers.ConditionRisk("Heavy Rain"))
	assert.Equal(t, 5.0, providers.ConditionRisk("Partially cloudy"))
}
