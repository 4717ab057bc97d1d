package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/touristsafety/internal/domain/models"
	"github.com/turtacn/touristsafety/pkg/constants"
	"github.com/turtacn/touristsafety/pkg/logger"
)

// Provider names used in degraded-source lists and metrics labels.
const (
	ProviderCrime   = "crime"
	ProviderWeather = "weather"
)

// FeatureSet is a feature vector plus the provider reports it was built from.
// Crime and Weather are nil when no lookup was attempted.
type FeatureSet struct {
	Vector  models.FeatureVector
	Crime   *models.CrimeReport
	Weather *models.WeatherReport
}

// DegradedSources lists the providers whose reports fell back to defaults.
func (fs FeatureSet) DegradedSources() []string {
	var out []string
	if fs.Crime != nil && fs.Crime.Source.Degraded() {
		out = append(out, ProviderCrime)
	}
	if fs.Weather != nil && fs.Weather.Source.Degraded() {
		out = append(out, ProviderWeather)
	}
	return out
}

// FeatureBuilderOption configures a FeatureBuilder.
type FeatureBuilderOption func(*FeatureBuilder)

// WithCrimeProvider sets the crime lookup.
func WithCrimeProvider(p CrimeRiskProvider) FeatureBuilderOption {
	return func(b *FeatureBuilder) { b.crime = p }
}

// WithWeatherProvider sets the weather lookup.
func WithWeatherProvider(p WeatherRiskProvider) FeatureBuilderOption {
	return func(b *FeatureBuilder) { b.weather = p }
}

// WithClock overrides time.Now, which drives the time-of-day slot.
func WithClock(now func() time.Time) FeatureBuilderOption {
	return func(b *FeatureBuilder) { b.now = now }
}

// WithBuilderLogger sets the logger.
func WithBuilderLogger(l logger.Logger) FeatureBuilderOption {
	return func(b *FeatureBuilder) { b.logger = l }
}

// FeatureBuilder turns a tourist profile and an optional location into the
// 22-slot vector consumed by the classifier. It never returns an error: missing
// inputs and failed lookups become neutral or type-specific defaults.
type FeatureBuilder struct {
	crime   CrimeRiskProvider
	weather WeatherRiskProvider
	now     func() time.Time
	logger  logger.Logger
}

// NewFeatureBuilder creates a builder. Without providers the crime and weather
// slots are always neutral.
func NewFeatureBuilder(opts ...FeatureBuilderOption) *FeatureBuilder {
	b := &FeatureBuilder{
		now:    time.Now,
		logger: logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Offline returns a copy of the builder that never calls a provider.
func (b *FeatureBuilder) Offline() *FeatureBuilder {
	return &FeatureBuilder{now: b.now, logger: b.logger}
}

// Build assembles the feature vector. Crime and weather lookups run concurrently.
func (b *FeatureBuilder) Build(ctx context.Context, profile models.TouristProfile, loc *models.LocationContext) FeatureSet {
	p := profile.WithDefaults()
	fs := FeatureSet{Vector: make(models.FeatureVector, models.FeatureCount)}

	v := fs.Vector
	v[models.SlotTime] = TimeOfDayRisk(b.now())
	v[models.SlotGroup] = GroupRisk(p.GroupSize)
	v[models.SlotExperience] = ExperienceRisk(p.Experience)
	v[models.SlotPlanning] = PlanningRisk(p.HasItinerary)
	v[models.SlotAge] = float64(p.Age)
	v[models.SlotHealth] = float64(p.HealthScore)

	for i := models.SlotCrimeStart; i < models.SlotCrowd; i++ {
		v[i] = constants.NeutralRisk
	}

	if loc.HasCoordinates() {
		lat, lon := loc.Coordinates()
		q := models.GeoQuery{Latitude: lat, Longitude: lon, RadiusKm: loc.RadiusKm}
		if q.RadiusKm <= 0 {
			q.RadiusKm = constants.DefaultSearchRadiusKm
		}

		// Providers never fail, so the group is only used to fan out and join.
		g, gctx := errgroup.WithContext(ctx)
		if b.crime != nil {
			g.Go(func() error {
				fs.Crime = b.crime.CrimeReport(gctx, q)
				return nil
			})
		}
		if b.weather != nil {
			g.Go(func() error {
				fs.Weather = b.weather.WeatherReport(gctx, q)
				return nil
			})
		}
		_ = g.Wait()

		if fs.Crime != nil {
			copy(v.Crime(), fs.Crime.RiskFactors.Values())
		}
		if fs.Weather != nil {
			copy(v.Weather(), fs.Weather.RiskFactors.FeatureValues())
		}
		if degraded := fs.DegradedSources(); len(degraded) > 0 {
			b.logger.Warn(ctx, "risk providers fell back to defaults", logger.Fields{
				"degraded_sources": degraded,
				"latitude":         lat,
				"longitude":        lon,
			})
		}
	}

	if loc.IsEmpty() {
		v[models.SlotCrowd] = constants.NeutralRisk
	} else {
		v[models.SlotCrowd] = CrowdRisk(loc.Density())
	}
	v[models.SlotTransport] = TransportRisk(p.Transport)
	v[models.SlotLanguage] = LanguageRisk(p.LanguageKnown)

	return fs
}
