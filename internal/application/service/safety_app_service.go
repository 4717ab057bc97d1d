package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/turtacn/touristsafety/internal/domain/models"
	"github.com/turtacn/touristsafety/internal/domain/repository"
	domainservice "github.com/turtacn/touristsafety/internal/domain/service"
	"github.com/turtacn/touristsafety/pkg/constants"
	apperrors "github.com/turtacn/touristsafety/pkg/errors"
	"github.com/turtacn/touristsafety/pkg/logger"
)

// SafetyAppService scores tourists and exposes the underlying risk lookups.
type SafetyAppService interface {
	// Assess always returns an assessment; failures are reported through its Outcome.
	Assess(ctx context.Context, profile models.TouristProfile, loc *models.LocationContext) *models.Assessment
	GetAssessment(ctx context.Context, id uuid.UUID) (*models.Assessment, error)
	ListAssessments(ctx context.Context, limit int) ([]*models.Assessment, error)
	CrimeReport(ctx context.Context, q models.GeoQuery) (*models.CrimeReport, error)
	WeatherReport(ctx context.Context, q models.GeoQuery) (*models.WeatherReport, error)
}

// SafetyDeps are the collaborators of the safety service. Crime, Weather,
// Assessments and Publisher are optional.
type SafetyDeps struct {
	Builder     *domainservice.FeatureBuilder
	Scorer      Scorer
	Crime       domainservice.CrimeRiskProvider
	Weather     domainservice.WeatherRiskProvider
	Assessments repository.AssessmentRepository
	Publisher   domainservice.EventPublisher
	Metrics     domainservice.Metrics
	Logger      logger.Logger
	Now         func() time.Time
}

type safetyAppServiceImpl struct {
	SafetyDeps
}

// MaxListLimit caps ListAssessments.
const MaxListLimit = 100

// NewSafetyAppService creates the safety service.
func NewSafetyAppService(deps SafetyDeps) SafetyAppService {
	if deps.Metrics == nil {
		deps.Metrics = domainservice.NoopMetrics{}
	}
	if deps.Publisher == nil {
		deps.Publisher = domainservice.NoopPublisher{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoopLogger()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	deps.Logger = deps.Logger.WithComponent("safety_service")
	return &safetyAppServiceImpl{SafetyDeps: deps}
}

func (s *safetyAppServiceImpl) Assess(ctx context.Context, profile models.TouristProfile, loc *models.LocationContext) *models.Assessment {
	ctx, span := otel.Tracer(constants.ServiceName).Start(ctx, "SafetyAppService.Assess")
	defer span.End()
	start := time.Now()

	fs := s.Builder.Build(ctx, profile, loc)
	a := &models.Assessment{
		ID:           uuid.New(),
		Crime:        fs.Crime,
		Weather:      fs.Weather,
		ModelVersion: constants.ModelVersion,
		Timestamp:    s.Now().UTC(),
	}
	if loc.HasCoordinates() {
		a.Latitude, a.Longitude = loc.Latitude, loc.Longitude
	}

	pred, err := s.Scorer.Predict(ctx, fs.Vector)
	if err != nil {
		a.Outcome = models.OutcomeFailed
		a.SafetyScore = constants.FailedAssessmentScore
		a.Confidence = 0
		a.RiskLevel = models.RiskUnknown
		a.Recommendations = []string{}
		a.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "prediction failed")
		s.Logger.Error(ctx, "safety prediction failed", err, logger.Fields{"assessment_id": a.ID.String()})
	} else {
		a.SafetyScore = pred.Score
		a.Confidence = pred.Confidence
		a.RiskLevel = models.RiskLevelFor(pred.Score)
		a.FeatureContributions = pred.Contributions
		a.Recommendations = domainservice.AssessmentRecommendations(pred.Score, fs.Crime, fs.Weather)
		a.DegradedSources = fs.DegradedSources()
		a.Outcome = models.OutcomeOK
		if len(a.DegradedSources) > 0 {
			a.Outcome = models.OutcomeDegraded
		}
	}

	span.SetAttributes(
		attribute.String("assessment.outcome", string(a.Outcome)),
		attribute.Int("assessment.score", a.SafetyScore),
	)
	s.Metrics.RecordAssessment(string(a.Outcome), string(a.RiskLevel), time.Since(start))
	s.persist(ctx, a)
	return a
}

func (s *safetyAppServiceImpl) persist(ctx context.Context, a *models.Assessment) {
	if s.Assessments != nil {
		if err := s.Assessments.Save(ctx, a); err != nil {
			s.Logger.Error(ctx, "failed to store assessment", err, logger.Fields{"assessment_id": a.ID.String()})
		}
	}
	event := domainservice.Event{
		ID:         uuid.NewString(),
		Type:       constants.EventAssessmentCompleted,
		Key:        a.ID.String(),
		OccurredAt: a.Timestamp,
		Payload:    a,
	}
	if err := s.Publisher.Publish(ctx, event); err != nil {
		s.Logger.Warn(ctx, "failed to publish assessment event", logger.Fields{"assessment_id": a.ID.String(), "error": err.Error()})
	}
}

func (s *safetyAppServiceImpl) GetAssessment(ctx context.Context, id uuid.UUID) (*models.Assessment, error) {
	if s.Assessments == nil {
		return nil, apperrors.ErrNotFound("assessment", id.String())
	}
	a, err := s.Assessments.FindByID(ctx, id)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound("assessment", id.String())
		}
		return nil, apperrors.ErrInternal("load assessment", err)
	}
	return a, nil
}

func (s *safetyAppServiceImpl) ListAssessments(ctx context.Context, limit int) ([]*models.Assessment, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	if s.Assessments == nil {
		return []*models.Assessment{}, nil
	}
	list, err := s.Assessments.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperrors.ErrInternal("list assessments", err)
	}
	return list, nil
}

func (s *safetyAppServiceImpl) CrimeReport(ctx context.Context, q models.GeoQuery) (*models.CrimeReport, error) {
	if s.Crime == nil {
		return nil, apperrors.ErrProviderUnavailable(domainservice.ProviderCrime, nil)
	}
	return s.Crime.CrimeReport(ctx, q), nil
}

func (s *safetyAppServiceImpl) WeatherReport(ctx context.Context, q models.GeoQuery) (*models.WeatherReport, error) {
	if s.Weather == nil {
		return nil, apperrors.ErrProviderUnavailable(domainservice.ProviderWeather, nil)
	}
	return s.Weather.WeatherReport(ctx, q), nil
}
