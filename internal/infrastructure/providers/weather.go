package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/touristsafety/internal/config"
	"github.com/turtacn/touristsafety/internal/domain/models"
	"github.com/turtacn/touristsafety/internal/domain/service"
	"github.com/turtacn/touristsafety/internal/infrastructure/cache"
	"github.com/turtacn/touristsafety/pkg/logger"
	"github.com/turtacn/touristsafety/pkg/utils"
)

var conditionRisk = map[string]float64{
	"Clear":         2,
	"Partly Cloudy": 3,
	"Cloudy":        4,
	"Overcast":      5,
	"Rain":          7,
	"Heavy Rain":    9,
	"Thunderstorm":  9,
	"Snow":          8,
	"Fog":           8,
	"Haze":          6,
	"Dust":          7,
}

// Weights of the overall weather risk.
const (
	weightTemperature = 0.2
	weightHumidity    = 0.15
	weightWind        = 0.2
	weightVisibility  = 0.25
	weightUV          = 0.1
	weightCondition   = 0.1
)

type timelineConditions struct {
	Temp       *float64 `json:"temp"`
	FeelsLike  *float64 `json:"feelslike"`
	Humidity   *float64 `json:"humidity"`
	WindSpeed  *float64 `json:"windspeed"`
	Visibility *float64 `json:"visibility"`
	UVIndex    *float64 `json:"uvindex"`
	Pressure   *float64 `json:"pressure"`
	Conditions *string  `json:"conditions"`
}

type timelineDay struct {
	TempMax    *float64 `json:"tempmax"`
	TempMin    *float64 `json:"tempmin"`
	PrecipProb *float64 `json:"precipprob"`
	Precip     *float64 `json:"precip"`
	Conditions *string  `json:"conditions"`
}

type timelineResponse struct {
	CurrentConditions timelineConditions `json:"currentConditions"`
	Days              []timelineDay      `json:"days"`
}

// WeatherProvider reads current conditions and the same-day forecast from a
// timeline weather API.
type WeatherProvider struct {
	cfg     config.WeatherProviderConfig
	client  *jsonClient
	cache   *cache.ReportCache[models.WeatherReport]
	now     func() time.Time
	metrics service.Metrics
	logger  logger.Logger
}

// NewWeatherProvider creates a weather provider. reports may be nil to disable caching.
func NewWeatherProvider(cfg config.WeatherProviderConfig, reports *cache.ReportCache[models.WeatherReport], opts ...ProviderOption) *WeatherProvider {
	o := buildOptions(opts)
	return &WeatherProvider{
		cfg:     cfg,
		client:  newJSONClient(o.httpClient),
		cache:   reports,
		now:     o.now,
		metrics: o.metrics,
		logger:  o.logger.WithComponent("weather_provider"),
	}
}

// WeatherKey is the cache key of a weather lookup.
func WeatherKey(q models.GeoQuery) string {
	return fmt.Sprintf("%.4f:%.4f", q.Latitude, q.Longitude)
}

// WeatherReport implements service.WeatherRiskProvider.
func (p *WeatherProvider) WeatherReport(ctx context.Context, q models.GeoQuery) *models.WeatherReport {
	start := time.Now()
	fetch := func(ctx context.Context) (*models.WeatherReport, bool) {
		report, err := p.fetch(ctx, q)
		if err != nil {
			p.logger.Warn(ctx, "weather lookup failed, using defaults", logger.Fields{
				"latitude":  q.Latitude,
				"longitude": q.Longitude,
				"error":     err.Error(),
			})
			return DefaultWeatherReport(p.now(), err), false
		}
		return report, true
	}

	var report *models.WeatherReport
	if p.cache != nil {
		report, _ = p.cache.GetOrFetch(ctx, WeatherKey(q), fetch)
	} else {
		report, _ = fetch(ctx)
	}
	p.metrics.RecordProviderLookup(service.ProviderWeather, string(report.Source), time.Since(start))
	return report
}

func (p *WeatherProvider) fetch(ctx context.Context, q models.GeoQuery) (*models.WeatherReport, error) {
	location := strconv.FormatFloat(q.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(q.Longitude, 'f', -1, 64)
	params := url.Values{}
	params.Set("unitGroup", "metric")
	params.Set("contentType", "json")
	params.Set("key", p.cfg.APIKey)

	var resp timelineResponse
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/" + location
	if err := p.client.getJSON(ctx, endpoint, params, p.cfg.Timeout, &resp); err != nil {
		return nil, err
	}

	current := currentWeather(resp.CurrentConditions)
	factors := WeatherRiskFactorsFor(current)
	return &models.WeatherReport{
		Current:         current,
		Forecast:        forecast(resp.Days, current),
		RiskFactors:     factors,
		Recommendations: service.WeatherRecommendations(factors),
		Source:          models.SourceLive,
		FetchedAt:       p.now(),
	}, nil
}

func currentWeather(c timelineConditions) models.CurrentWeather {
	temp := valueOr(c.Temp, 20)
	return models.CurrentWeather{
		Temperature: temp,
		FeelsLike:   valueOr(c.FeelsLike, temp),
		Humidity:    valueOr(c.Humidity, 50),
		WindSpeed:   valueOr(c.WindSpeed, 0),
		Visibility:  valueOr(c.Visibility, 10),
		UVIndex:     valueOr(c.UVIndex, 5),
		Pressure:    valueOr(c.Pressure, 1013),
		Conditions:  stringOr(c.Conditions, "Clear"),
	}
}

func forecast(days []timelineDay, current models.CurrentWeather) models.WeatherForecast {
	var d timelineDay
	if len(days) > 0 {
		d = days[0]
	}
	return models.WeatherForecast{
		MaxTemperature:      valueOr(d.TempMax, current.Temperature),
		MinTemperature:      valueOr(d.TempMin, current.Temperature),
		PrecipitationChance: valueOr(d.PrecipProb, 0),
		Precipitation:       valueOr(d.Precip, 0),
		Conditions:          stringOr(d.Conditions, current.Conditions),
	}
}

// WeatherRiskFactorsFor maps observed conditions to 1..10 sub-scores.
func WeatherRiskFactorsFor(c models.CurrentWeather) models.WeatherRiskFactors {
	f := models.WeatherRiskFactors{
		Temperature: temperatureRisk(c.Temperature),
		Humidity:    humidityRisk(c.Humidity),
		Wind:        windRisk(c.WindSpeed),
		Visibility:  visibilityRisk(c.Visibility),
		UV:          uvRisk(c.UVIndex),
		Condition:   ConditionRisk(c.Conditions),
	}
	f.Overall = utils.RoundTo(
		f.Temperature*weightTemperature+
			f.Humidity*weightHumidity+
			f.Wind*weightWind+
			f.Visibility*weightVisibility+
			f.UV*weightUV+
			f.Condition*weightCondition, 1)
	return f
}

// ConditionRisk scores a condition label; unknown labels are neutral.
func ConditionRisk(conditions string) float64 {
	if r, ok := conditionRisk[conditions]; ok {
		return r
	}
	return 5
}

func temperatureRisk(t float64) float64 {
	switch {
	case t < 0 || t > 40:
		return 9
	case t < 5 || t > 35:
		return 7
	case t < 10 || t > 30:
		return 5
	default:
		return 3
	}
}

func humidityRisk(h float64) float64 {
	switch {
	case h > 90:
		return 8
	case h > 80:
		return 6
	case h < 20:
		return 5
	default:
		return 3
	}
}

func windRisk(w float64) float64 {
	switch {
	case w > 30:
		return 9
	case w > 20:
		return 7
	case w > 10:
		return 5
	default:
		return 2
	}
}

func visibilityRisk(v float64) float64 {
	switch {
	case v < 1:
		return 9
	case v < 3:
		return 7
	case v < 5:
		return 5
	default:
		return 2
	}
}

func uvRisk(uv float64) float64 {
	switch {
	case uv > 10:
		return 8
	case uv > 7:
		return 6
	case uv > 5:
		return 4
	default:
		return 2
	}
}

// DefaultWeatherReport is the mild-weather bundle returned when a lookup fails.
func DefaultWeatherReport(now time.Time, cause error) *models.WeatherReport {
	r := &models.WeatherReport{
		Current: models.CurrentWeather{
			Temperature: 25,
			FeelsLike:   25,
			Humidity:    60,
			WindSpeed:   5,
			Visibility:  10,
			UVIndex:     5,
			Pressure:    1013,
			Conditions:  "Clear",
		},
		Forecast: models.WeatherForecast{
			MaxTemperature:      28,
			MinTemperature:      22,
			PrecipitationChance: 20,
			Conditions:          "Clear",
		},
		RiskFactors: models.WeatherRiskFactors{
			Temperature: 3,
			Humidity:    3,
			Wind:        2,
			Visibility:  2,
			UV:          4,
			Condition:   2,
			Overall:     3.0,
		},
		Recommendations: []string{service.FavorableWeatherAdvice},
		Source:          models.SourceDefault,
		FetchedAt:       now,
	}
	if cause != nil {
		r.Error = cause.Error()
	}
	return r
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func stringOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}
