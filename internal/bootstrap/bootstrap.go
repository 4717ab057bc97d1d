// Package bootstrap wires configuration into the running components shared by
// the server and the admin CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/turtacn/touristsafety/internal/application/service"
	"github.com/turtacn/touristsafety/internal/config"
	"github.com/turtacn/touristsafety/internal/domain/models"
	domainservice "github.com/turtacn/touristsafety/internal/domain/service"
	"github.com/turtacn/touristsafety/internal/infrastructure/cache"
	"github.com/turtacn/touristsafety/internal/infrastructure/chain"
	"github.com/turtacn/touristsafety/internal/infrastructure/crypto"
	"github.com/turtacn/touristsafety/internal/infrastructure/events"
	"github.com/turtacn/touristsafety/internal/infrastructure/kms"
	"github.com/turtacn/touristsafety/internal/infrastructure/ml"
	"github.com/turtacn/touristsafety/internal/infrastructure/monitoring"
	"github.com/turtacn/touristsafety/internal/infrastructure/persistence/postgres"
	redisstore "github.com/turtacn/touristsafety/internal/infrastructure/persistence/redis"
	"github.com/turtacn/touristsafety/internal/infrastructure/providers"
	"github.com/turtacn/touristsafety/internal/infrastructure/ratelimit"
	"github.com/turtacn/touristsafety/pkg/logger"
	"github.com/turtacn/touristsafety/pkg/utils"
)

// Components are the wired collaborators. Redis, Tokens and Limiter are nil
// when the corresponding feature is disabled.
type Components struct {
	Config   *config.Config
	Logger   logger.Logger
	Metrics  *monitoring.Metrics
	Gatherer prometheus.Gatherer

	DB    *postgres.DBConnection
	Redis *redisstore.RedisConnection

	Builder *domainservice.FeatureBuilder
	Scorer  service.Scorer

	Safety   service.SafetyAppService
	Training service.TrainingAppService
	Trips    service.TripAppService

	Tokens    crypto.TokenManager
	Limiter   ratelimit.Limiter
	Publisher domainservice.EventPublisher

	crime          domainservice.CrimeRiskProvider
	weather        domainservice.WeatherRiskProvider
	crimeReports   *cache.ReportCache[models.CrimeReport]
	weatherReports *cache.ReportCache[models.WeatherReport]
	closers        []func()
}

// Options tune what Build wires.
type Options struct {
	// Registerer receives the metrics; nil uses a fresh registry.
	Registerer interface {
		prometheus.Registerer
		prometheus.Gatherer
	}
	// SkipChain leaves the trip service in local-only mode.
	SkipChain bool
}

// Build creates every component from cfg. On error, whatever was already opened
// is closed again.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (_ *Components, err error) {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Components{Config: cfg, Logger: log, Gatherer: reg}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	c.Metrics = monitoring.NewMetrics(reg)

	c.DB, err = postgres.NewDBConnection(ctx, &cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	c.closers = append(c.closers, c.DB.Close)

	if cfg.Redis.Enabled {
		c.Redis, err = redisstore.NewRedisConnection(ctx, &cfg.Redis, log)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		c.closers = append(c.closers, func() { _ = c.Redis.Close() })
	}

	c.Publisher = events.NewPublisher(cfg.Kafka, log)
	c.closers = append(c.closers, func() {
		if err := c.Publisher.Close(); err != nil {
			log.Warn(context.Background(), "failed to close event publisher", logger.Fields{"error": err.Error()})
		}
	})

	c.Builder = c.featureBuilder(log)
	c.Scorer = service.NewScorer(
		ml.NewArtifactStore(cfg.Model.ModelPath, cfg.Model.ScalerPath),
		ForestParams(cfg.Model),
		cfg.Model.TestFraction,
		log,
	)

	db := c.DB.DB()
	assessments := postgres.NewAssessmentRepository(db)
	c.Safety = service.NewSafetyAppService(service.SafetyDeps{
		Builder:     c.Builder,
		Scorer:      c.Scorer,
		Crime:       c.crime,
		Weather:     c.weather,
		Assessments: assessments,
		Publisher:   c.Publisher,
		Metrics:     c.Metrics,
		Logger:      log,
	})
	c.Training = service.NewTrainingAppService(service.TrainingDeps{
		Builder:      c.Builder,
		Scorer:       c.Scorer,
		Runs:         postgres.NewTrainingRunRepository(db),
		UseProviders: cfg.Model.TrainingUsesProviders,
		Publisher:    c.Publisher,
		Metrics:      c.Metrics,
		Logger:       log,
	})

	var ledger domainservice.TripLedger
	if cfg.Chain.Enabled && !opts.SkipChain {
		ledger, err = c.dialChain(ctx, log)
		if err != nil {
			return nil, err
		}
	}
	c.Trips = service.NewTripAppService(service.TripDeps{
		Ledger:          ledger,
		Trips:           postgres.NewTripRepository(db),
		DefaultDuration: cfg.Trips.DefaultDuration,
		Publisher:       c.Publisher,
		Metrics:         c.Metrics,
		Logger:          log,
	})

	if cfg.Auth.JWTSecret != "" {
		c.Tokens, err = crypto.NewJWTManager(cfg.Auth)
		if err != nil {
			return nil, err
		}
	} else {
		log.Warn(ctx, "auth.jwt_secret is not set, admin routes are closed")
	}

	if cfg.RateLimit.Enabled {
		rl := ratelimit.Config{RequestsPerMinute: cfg.RateLimit.RequestsPerMinute, Burst: cfg.RateLimit.Burst}
		if c.Redis != nil {
			c.Limiter = ratelimit.NewRedisLimiter(c.Redis.Client(), rl, cfg.Cache.KeyPrefix, log)
		} else {
			c.Limiter = ratelimit.NewLocalLimiter(rl, nil)
		}
	}

	c.trackEntries(log)
	return c, nil
}

func (c *Components) trackEntries(log logger.Logger) {
	sizes := map[string]func() int{}
	if c.crimeReports != nil {
		sizes["report_cache_crime"] = c.crimeReports.Len
	}
	if c.weatherReports != nil {
		sizes["report_cache_weather"] = c.weatherReports.Len
	}
	if sweeper, ok := c.Limiter.(ratelimit.IdleSweeper); ok {
		sizes["ratelimit_buckets"] = sweeper.Size
	}
	for name, size := range sizes {
		if err := c.Metrics.TrackEntries(name, size); err != nil {
			log.Warn(context.Background(), "failed to register size gauge", logger.Fields{"component": name, "error": err.Error()})
		}
	}
}

// PurgeReportCaches drops every cached crime and weather report, including the
// shared Redis tier, and returns the number of entries removed per cache.
func (c *Components) PurgeReportCaches(ctx context.Context) (map[string]int, error) {
	removed := map[string]int{}
	if c.crimeReports != nil {
		n, err := c.crimeReports.Purge(ctx)
		removed["crime"] = n
		if err != nil {
			return removed, fmt.Errorf("purge crime reports: %w", err)
		}
	}
	if c.weatherReports != nil {
		n, err := c.weatherReports.Purge(ctx)
		removed["weather"] = n
		if err != nil {
			return removed, fmt.Errorf("purge weather reports: %w", err)
		}
	}
	return removed, nil
}

func (c *Components) featureBuilder(log logger.Logger) *domainservice.FeatureBuilder {
	cfg := c.Config
	var l2 redisstore.CacheManager
	if c.Redis != nil {
		l2 = redisstore.NewCacheManager(c.Redis, cfg.Cache.KeyPrefix, log)
	}
	popts := []providers.ProviderOption{
		providers.WithProviderMetrics(c.Metrics),
		providers.WithProviderLogger(log),
	}

	opts := []domainservice.FeatureBuilderOption{domainservice.WithBuilderLogger(log)}
	if cfg.Providers.Crime.Enabled {
		c.crimeReports = cache.NewReportCache[models.CrimeReport]("crime", cfg.Cache.CrimeTTL, cfg.Cache.CleanupInterval,
			cacheOptions[models.CrimeReport](l2, c.Metrics, log)...)
		c.crime = providers.NewCrimeProvider(cfg.Providers.Crime, c.crimeReports, popts...)
		opts = append(opts, domainservice.WithCrimeProvider(c.crime))
	}
	if cfg.Providers.Weather.APIKey != "" {
		c.weatherReports = cache.NewReportCache[models.WeatherReport]("weather", cfg.Cache.WeatherTTL, cfg.Cache.CleanupInterval,
			cacheOptions[models.WeatherReport](l2, c.Metrics, log)...)
		c.weather = providers.NewWeatherProvider(cfg.Providers.Weather, c.weatherReports, popts...)
		opts = append(opts, domainservice.WithWeatherProvider(c.weather))
		log.Info(context.Background(), "weather provider enabled", logger.Fields{"api_key": utils.MaskString(cfg.Providers.Weather.APIKey, 3)})
	} else {
		log.Info(context.Background(), "providers.weather.api_key is not set, weather lookups are disabled")
	}
	return domainservice.NewFeatureBuilder(opts...)
}

func cacheOptions[T any](l2 redisstore.CacheManager, m domainservice.Metrics, log logger.Logger) []cache.Option[T] {
	opts := []cache.Option[T]{cache.WithMetrics[T](m), cache.WithLogger[T](log)}
	if l2 != nil {
		opts = append(opts, cache.WithL2[T](l2))
	}
	return opts
}

func (c *Components) dialChain(ctx context.Context, log logger.Logger) (domainservice.TripLedger, error) {
	keys, err := kms.NewKeySource(c.Config.Chain, c.Config.Vault, log)
	switch {
	case err == nil:
	case errors.Is(err, kms.ErrSigningKeyUnavailable) && c.Config.Chain.PrivateKey == "":
		log.Warn(ctx, "no signing key configured, trip transactions will fall back to local records")
		keys = nil
	default:
		return nil, fmt.Errorf("signing key: %w", err)
	}
	ledger, client, err := chain.Dial(ctx, c.Config.Chain, keys, log)
	if err != nil {
		return nil, fmt.Errorf("dial chain: %w", err)
	}
	c.closers = append(c.closers, client.Close)
	return ledger, nil
}

// ForestParams maps the model configuration onto the forest hyperparameters.
func ForestParams(cfg config.ModelConfig) ml.ForestParams {
	return ml.ForestParams{
		NEstimators:     cfg.NEstimators,
		MaxDepth:        cfg.MaxDepth,
		MinSamplesSplit: cfg.MinSamplesSplit,
		MinSamplesLeaf:  cfg.MinSamplesLeaf,
		Bootstrap:       true,
		Seed:            cfg.Seed,
	}
}

// ModelAvailable reports whether a model is resident or loadable.
func (c *Components) ModelAvailable() bool {
	return c.Scorer.Available()
}

// Close releases everything Build opened, in reverse order.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
