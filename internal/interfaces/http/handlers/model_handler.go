package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/touristsafety/internal/application/dto"
	"github.com/turtacn/touristsafety/internal/application/service"
	"github.com/turtacn/touristsafety/pkg/constants"
	"github.com/turtacn/touristsafety/pkg/utils"
)

// ModelHandler reports on and retrains the classifier.
type ModelHandler struct {
	training    service.TrainingAppService
	defaultSeed int64
}

// NewModelHandler creates a new ModelHandler. defaultSeed is used when a train
// request carries none.
func NewModelHandler(training service.TrainingAppService, defaultSeed int64) *ModelHandler {
	return &ModelHandler{training: training, defaultSeed: defaultSeed}
}

// Info handles GET /api/v1/model.
func (h *ModelHandler) Info(c *gin.Context) {
	info, err := h.training.ModelInfo(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, info)
}

// Train handles POST /api/v1/model/train. An empty body trains on the default
// number of synthetic samples.
func (h *ModelHandler) Train(c *gin.Context) {
	var req dto.TrainRequest
	if c.Request.ContentLength != 0 {
		if !bindJSON(c, &req) {
			return
		}
	}
	if err := utils.ValidateStruct(&req); err != nil {
		sendError(c, err)
		return
	}

	ctx := c.Request.Context()
	if len(req.Samples) > 0 && string(req.Samples) != "null" {
		samples, err := h.training.ParseSamples(req.Samples)
		if err != nil {
			sendError(c, err)
			return
		}
		run, err := h.training.TrainSamples(ctx, samples, service.SourceSupplied)
		if err != nil {
			sendError(c, err)
			return
		}
		sendSuccess(c, http.StatusOK, dto.TrainResponseFrom(run))
		return
	}

	seed := h.defaultSeed
	if req.Seed != nil {
		seed = *req.Seed
	}
	samples := req.SyntheticSamples
	if samples == 0 {
		samples = constants.DefaultSyntheticSamples
	}
	run, err := h.training.TrainSynthetic(ctx, samples, seed)
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, dto.TrainResponseFrom(run))
}
