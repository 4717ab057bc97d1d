package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/turtacn/touristsafety/internal/domain/models"
	"github.com/turtacn/touristsafety/internal/domain/repository"
	domainservice "github.com/turtacn/touristsafety/internal/domain/service"
	"github.com/turtacn/touristsafety/pkg/constants"
	apperrors "github.com/turtacn/touristsafety/pkg/errors"
	"github.com/turtacn/touristsafety/pkg/logger"
)

// ErrLedgerDisabled is reported when no chain ledger is configured.
var ErrLedgerDisabled = errors.New("trip ledger is not configured")

// UnknownExpiryDate is reported when neither the chain nor the local store knows a trip.
const UnknownExpiryDate = "unknown"

// CleanupBatchSize bounds the number of expired trips removed per cleanup pass.
const CleanupBatchSize = 500

// TripAppService registers temporary trips on chain, with a local fallback.
// TripAppService 负责行程登记，链不可用时回退到本地记录。
type TripAppService interface {
	Register(ctx context.Context, data map[string]interface{}, duration time.Duration) (*models.TripRegistration, error)
	Status(ctx context.Context, tripID string) (*models.TripState, error)
	Delete(ctx context.Context, tripID string) (*models.TripDeletion, error)
	CleanupExpired(ctx context.Context) (*models.TripCleanup, error)
}

// TripDeps are the collaborators of the trip service. A nil Ledger disables the chain.
type TripDeps struct {
	Ledger          domainservice.TripLedger
	Trips           repository.TripRepository
	DefaultDuration time.Duration
	Publisher       domainservice.EventPublisher
	Metrics         domainservice.Metrics
	Logger          logger.Logger
	Now             func() time.Time
}

type tripAppServiceImpl struct {
	TripDeps
}

// NewTripAppService creates the trip service.
func NewTripAppService(deps TripDeps) TripAppService {
	if deps.DefaultDuration <= 0 {
		deps.DefaultDuration = constants.DefaultTripDuration
	}
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
	deps.Logger = deps.Logger.WithComponent("trip_service")
	return &tripAppServiceImpl{TripDeps: deps}
}

func (s *tripAppServiceImpl) Register(ctx context.Context, data map[string]interface{}, duration time.Duration) (*models.TripRegistration, error) {
	if len(data) == 0 {
		return nil, apperrors.ErrInvalidRequest("trip_data must not be empty")
	}
	if duration <= 0 {
		duration = s.DefaultDuration
	}
	ctx, span := otel.Tracer(constants.ServiceName).Start(ctx, "TripAppService.Register")
	defer span.End()

	now := s.Now().UTC()
	tripID, err := domainservice.GenerateTripID(data, now)
	if err != nil {
		return nil, apperrors.ErrInvalidRequest(fmt.Sprintf("trip_data cannot be encoded: %v", err))
	}
	span.SetAttributes(attribute.String("trip.id", tripID))
	expiry := now.Add(duration).Truncate(time.Second)

	reg := &models.TripRegistration{
		TripID:          tripID,
		ExpiryTimestamp: expiry.Unix(),
		ExpiryDate:      formatExpiry(expiry),
	}
	trip := &models.Trip{TripID: tripID, ExpiresAt: expiry, CreatedAt: now}

	chainHash := domainservice.TripChainHash(tripID)
	txHash, block, err := s.registerOnChain(ctx, chainHash, expiry)
	if err != nil {
		span.RecordError(err)
		s.Logger.Warn(ctx, "trip registration fell back to local record", logger.Fields{"trip_id": tripID, "error": err.Error()})
		reg.TripHash = domainservice.TripLocalHash(tripID)
		reg.TxHash = models.LocalFallbackTxHash
		reg.BlockNumber = 0
		reg.Status = models.TripLocalRegistered
		reg.Error = err.Error()
	} else {
		reg.TripHash = hexutil.Encode(chainHash[:])
		reg.TxHash = txHash
		reg.BlockNumber = block
		reg.Status = models.TripRegistered
		trip.OnChain = true
	}
	trip.TripHash, trip.TxHash, trip.Block, trip.Status = reg.TripHash, reg.TxHash, reg.BlockNumber, reg.Status

	if s.Trips != nil {
		if err := s.Trips.Save(ctx, trip); err != nil {
			s.Logger.Error(ctx, "failed to store trip", err, logger.Fields{"trip_id": tripID})
		}
	}
	s.Metrics.RecordTripOperation("register", string(reg.Status))
	s.publish(ctx, constants.EventTripRegistered, tripID, reg)
	s.Logger.Info(ctx, "trip registered", logger.Fields{"trip_id": tripID, "status": string(reg.Status), "block": reg.BlockNumber})
	return reg, nil
}

func (s *tripAppServiceImpl) registerOnChain(ctx context.Context, h [32]byte, expiry time.Time) (string, uint64, error) {
	if s.Ledger == nil {
		return "", 0, ErrLedgerDisabled
	}
	return s.Ledger.RegisterTrip(ctx, h, expiry)
}

func (s *tripAppServiceImpl) Status(ctx context.Context, tripID string) (*models.TripState, error) {
	if tripID == "" {
		return nil, apperrors.ErrInvalidRequest("trip_id is required")
	}
	ctx, span := otel.Tracer(constants.ServiceName).Start(ctx, "TripAppService.Status")
	defer span.End()

	state, err := s.chainStatus(ctx, tripID)
	if err == nil {
		s.Metrics.RecordTripOperation("status", string(state.Status))
		return state, nil
	}
	span.RecordError(err)

	state = &models.TripState{TripID: tripID, Error: err.Error()}
	local, lerr := s.findLocal(ctx, tripID)
	switch {
	case lerr != nil:
		return nil, lerr
	case local != nil:
		state.ExpiryTimestamp = local.ExpiresAt.Unix()
		state.ExpiryDate = formatExpiry(local.ExpiresAt)
		state.IsActive = local.DeletedAt == nil && !local.IsExpired(s.Now())
		state.Status = models.TripLocalExpired
		if state.IsActive {
			state.Status = models.TripLocalActive
		}
	default:
		state.IsActive = true
		state.ExpiryTimestamp = 0
		state.ExpiryDate = UnknownExpiryDate
		state.Status = models.TripUnknown
	}
	s.Metrics.RecordTripOperation("status", string(state.Status))
	return state, nil
}

func (s *tripAppServiceImpl) chainStatus(ctx context.Context, tripID string) (*models.TripState, error) {
	if s.Ledger == nil {
		return nil, ErrLedgerDisabled
	}
	h := domainservice.TripChainHash(tripID)
	active, err := s.Ledger.IsTripActive(ctx, h)
	if err != nil {
		return nil, err
	}
	expiry, err := s.Ledger.TripExpiry(ctx, h)
	if err != nil {
		return nil, err
	}
	if expiry == nil {
		return nil, errors.New("ledger returned no expiry")
	}
	exp := time.Unix(expiry.Int64(), 0).UTC()
	state := &models.TripState{
		TripID:          tripID,
		IsActive:        active,
		ExpiryTimestamp: exp.Unix(),
		ExpiryDate:      formatExpiry(exp),
		Status:          models.TripExpired,
	}
	if active {
		state.Status = models.TripActive
	}
	return state, nil
}

func (s *tripAppServiceImpl) findLocal(ctx context.Context, tripID string) (*models.Trip, error) {
	if s.Trips == nil {
		return nil, nil
	}
	trip, err := s.Trips.FindByID(ctx, tripID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.ErrInternal("load trip", err)
	}
	return trip, nil
}

func (s *tripAppServiceImpl) Delete(ctx context.Context, tripID string) (*models.TripDeletion, error) {
	if tripID == "" {
		return nil, apperrors.ErrInvalidRequest("trip_id is required")
	}
	ctx, span := otel.Tracer(constants.ServiceName).Start(ctx, "TripAppService.Delete")
	defer span.End()

	res := &models.TripDeletion{TripID: tripID}
	txHash, block, err := s.deleteOnChain(ctx, tripID)
	if err != nil {
		span.RecordError(err)
		s.Logger.Warn(ctx, "trip deletion fell back to local record", logger.Fields{"trip_id": tripID, "error": err.Error()})
		res.TxHash = models.LocalFallbackTxHash
		res.Status = models.TripLocalDeleted
		res.Error = err.Error()
	} else {
		res.TxHash = txHash
		res.BlockNumber = block
		res.Status = models.TripDeleted
	}

	if err := s.markDeleted(ctx, tripID, res.Status); err != nil {
		return nil, err
	}
	s.Metrics.RecordTripOperation("delete", string(res.Status))
	s.publish(ctx, constants.EventTripDeleted, tripID, res)
	return res, nil
}

func (s *tripAppServiceImpl) deleteOnChain(ctx context.Context, tripID string) (string, uint64, error) {
	if s.Ledger == nil {
		return "", 0, ErrLedgerDisabled
	}
	return s.Ledger.DeleteTrip(ctx, domainservice.TripChainHash(tripID))
}

// markDeleted records the deletion locally; trips only known on chain are not an error.
func (s *tripAppServiceImpl) markDeleted(ctx context.Context, tripID string, status models.TripStatus) error {
	if s.Trips == nil {
		return nil
	}
	err := s.Trips.MarkDeleted(ctx, tripID, status, s.Now().UTC())
	if err != nil && !apperrors.Is(err, apperrors.ErrRecordNotFound) {
		return apperrors.ErrInternal("mark trip deleted", err)
	}
	return nil
}

func (s *tripAppServiceImpl) CleanupExpired(ctx context.Context) (*models.TripCleanup, error) {
	res := &models.TripCleanup{Status: "cleanup_completed", Removed: []string{}}
	if s.Trips == nil {
		return res, nil
	}
	expired, err := s.Trips.ListExpired(ctx, s.Now().UTC(), CleanupBatchSize)
	if err != nil {
		return nil, apperrors.ErrInternal("list expired trips", err)
	}
	for _, trip := range expired {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := s.Delete(ctx, trip.TripID); err != nil {
			s.Logger.Error(ctx, "failed to remove expired trip", err, logger.Fields{"trip_id": trip.TripID})
			res.Failed = append(res.Failed, trip.TripID)
			continue
		}
		res.Removed = append(res.Removed, trip.TripID)
	}
	if len(expired) > 0 {
		s.Logger.Info(ctx, "expired trips cleaned up", logger.Fields{"removed": len(res.Removed), "failed": len(res.Failed)})
	}
	return res, nil
}

func (s *tripAppServiceImpl) publish(ctx context.Context, typ constants.EventType, key string, payload interface{}) {
	event := domainservice.Event{ID: uuid.NewString(), Type: typ, Key: key, OccurredAt: s.Now().UTC(), Payload: payload}
	if err := s.Publisher.Publish(ctx, event); err != nil {
		s.Logger.Warn(ctx, "failed to publish trip event", logger.Fields{"trip_id": key, "error": err.Error()})
	}
}

func formatExpiry(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
