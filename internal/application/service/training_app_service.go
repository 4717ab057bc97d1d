package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/turtacn/touristsafety/internal/application/dto"
	"github.com/turtacn/touristsafety/internal/domain/models"
	"github.com/turtacn/touristsafety/internal/domain/repository"
	domainservice "github.com/turtacn/touristsafety/internal/domain/service"
	"github.com/turtacn/touristsafety/pkg/constants"
	apperrors "github.com/turtacn/touristsafety/pkg/errors"
	"github.com/turtacn/touristsafety/pkg/logger"
)

// Training data sources recorded on each run.
const (
	SourceSynthetic = "synthetic"
	SourceSupplied  = "supplied"
)

// labeledSamplesSchema is the JSON schema for uploaded training data.
const labeledSamplesSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["tourist_data", "safety_score"],
    "properties": {
      "tourist_data": {
        "type": "object",
        "properties": {
          "age": {"type": "integer", "minimum": 0, "maximum": 120},
          "group_size": {"type": "integer", "minimum": 0},
          "experience_level": {"type": "string"},
          "has_itinerary": {"type": "boolean"},
          "health_score": {"type": "integer", "minimum": 0, "maximum": 10},
          "transportation_mode": {"type": "string"},
          "local_language_known": {"type": "boolean"}
        }
      },
      "location_data": {
        "type": ["object", "null"],
        "properties": {
          "latitude": {"type": "number", "minimum": -90, "maximum": 90},
          "longitude": {"type": "number", "minimum": -180, "maximum": 180},
          "radius_km": {"type": "integer", "minimum": 0},
          "crowd_density": {"type": "number", "minimum": 0, "maximum": 100},
          "weather_condition": {"type": "string"}
        }
      },
      "safety_score": {"type": "integer", "minimum": 1, "maximum": 10}
    }
  }
}`

var samplesSchema = gojsonschema.NewStringLoader(labeledSamplesSchema)

// TrainingAppService (re)trains the classifier and reports on the resident model.
type TrainingAppService interface {
	TrainSynthetic(ctx context.Context, samples int, seed int64) (*models.TrainingRun, error)
	TrainSamples(ctx context.Context, samples []models.LabeledSample, source string) (*models.TrainingRun, error)
	// ParseSamples validates raw JSON against the training-data schema and decodes it.
	ParseSamples(data []byte) ([]models.LabeledSample, error)
	ModelInfo(ctx context.Context) (*dto.ModelInfoResponse, error)
}

// TrainingDeps are the collaborators of the training service.
type TrainingDeps struct {
	Builder *domainservice.FeatureBuilder
	Scorer  Scorer
	Runs    repository.TrainingRunRepository
	// UseProviders makes training call the risk providers for every sample.
	UseProviders bool
	Publisher    domainservice.EventPublisher
	Metrics      domainservice.Metrics
	Logger       logger.Logger
}

type trainingAppServiceImpl struct {
	TrainingDeps
	builder *domainservice.FeatureBuilder
	running sync.Mutex
}

// NewTrainingAppService creates the training service.
func NewTrainingAppService(deps TrainingDeps) TrainingAppService {
	if deps.Metrics == nil {
		deps.Metrics = domainservice.NoopMetrics{}
	}
	if deps.Publisher == nil {
		deps.Publisher = domainservice.NoopPublisher{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoopLogger()
	}
	deps.Logger = deps.Logger.WithComponent("training_service")

	builder := deps.Builder
	if !deps.UseProviders {
		builder = builder.Offline()
	}
	return &trainingAppServiceImpl{TrainingDeps: deps, builder: builder}
}

func (s *trainingAppServiceImpl) TrainSynthetic(ctx context.Context, samples int, seed int64) (*models.TrainingRun, error) {
	if samples <= 0 {
		samples = constants.DefaultSyntheticSamples
	}
	data := domainservice.NewSyntheticGenerator(seed).Generate(samples)
	return s.TrainSamples(ctx, data, SourceSynthetic)
}

func (s *trainingAppServiceImpl) TrainSamples(ctx context.Context, samples []models.LabeledSample, source string) (*models.TrainingRun, error) {
	if len(samples) == 0 {
		return nil, apperrors.ErrInvalidRequest("no training samples supplied")
	}
	if !s.running.TryLock() {
		return nil, apperrors.New(apperrors.CodeConflict, 409, "a training run is already in progress")
	}
	defer s.running.Unlock()

	ctx, span := otel.Tracer(constants.ServiceName).Start(ctx, "TrainingAppService.Train")
	defer span.End()
	span.SetAttributes(attribute.Int("training.samples", len(samples)), attribute.String("training.source", source))

	start := time.Now()
	vectors := make([]models.FeatureVector, len(samples))
	labels := make([]int, len(samples))
	for i, sample := range samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = s.builder.Build(ctx, sample.Profile, sample.Location).Vector
		labels[i] = sample.Score
	}

	result, err := s.Scorer.Train(ctx, vectors, labels)
	if err != nil {
		span.RecordError(err)
		s.Logger.Error(ctx, "model training failed", err, logger.Fields{"samples": len(samples)})
		return nil, err
	}

	run := &models.TrainingRun{
		ID:                 uuid.New(),
		Accuracy:           result.Accuracy,
		FeatureImportances: result.FeatureImportances,
		TrainingSamples:    result.TrainingSamples,
		TestSamples:        result.TestSamples,
		ModelType:          constants.ModelType,
		Source:             source,
		Duration:           time.Since(start),
		TrainedAt:          time.Now().UTC(),
	}
	s.Metrics.RecordTraining(run.Accuracy, len(samples), run.Duration)
	s.Logger.Info(ctx, "model trained", logger.Fields{
		"accuracy":         run.Accuracy,
		"training_samples": run.TrainingSamples,
		"test_samples":     run.TestSamples,
		"source":           source,
		"duration_ms":      run.Duration.Milliseconds(),
	})

	if s.Runs != nil {
		if err := s.Runs.Save(ctx, run); err != nil {
			s.Logger.Error(ctx, "failed to record training run", err, logger.Fields{"run_id": run.ID.String()})
		}
	}
	if err := s.Publisher.Publish(ctx, domainservice.Event{
		ID:         uuid.NewString(),
		Type:       constants.EventModelTrained,
		Key:        run.ID.String(),
		OccurredAt: run.TrainedAt,
		Payload:    run,
	}); err != nil {
		s.Logger.Warn(ctx, "failed to publish training event", logger.Fields{"error": err.Error()})
	}
	return run, nil
}

func (s *trainingAppServiceImpl) ParseSamples(data []byte) ([]models.LabeledSample, error) {
	result, err := gojsonschema.Validate(samplesSchema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, apperrors.ErrInvalidRequest(fmt.Sprintf("training data is not valid JSON: %v", err))
	}
	if !result.Valid() {
		appErr := apperrors.ErrInvalidRequest("training data does not match the sample schema")
		for i, desc := range result.Errors() {
			if i == 10 {
				break
			}
			appErr = appErr.WithDetail(desc.Field(), desc.Description())
		}
		return nil, appErr
	}

	var samples []models.LabeledSample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, apperrors.ErrInvalidRequest(strings.TrimPrefix(err.Error(), "json: "))
	}
	return samples, nil
}

func (s *trainingAppServiceImpl) ModelInfo(ctx context.Context) (*dto.ModelInfoResponse, error) {
	info := &dto.ModelInfoResponse{
		ModelVersion:       constants.ModelVersion,
		ModelType:          constants.ModelType,
		Loaded:             s.Scorer.Loaded(),
		FeatureNames:       models.FeatureNames[:],
		FeatureImportances: s.Scorer.FeatureImportances(),
	}
	if s.Runs != nil {
		run, err := s.Runs.Latest(ctx)
		if err != nil {
			return nil, apperrors.ErrInternal("load latest training run", err)
		}
		if run != nil {
			info.LastTraining = dto.TrainResponseFrom(run)
		}
	}
	return info, nil
}
