package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/touristsafety/internal/application/dto"
	"github.com/turtacn/touristsafety/internal/application/service"
	apperrors "github.com/turtacn/touristsafety/pkg/errors"
	"github.com/turtacn/touristsafety/pkg/utils"
)

// TripHandler exposes the trip registrar.
type TripHandler struct {
	trips service.TripAppService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(trips service.TripAppService) *TripHandler {
	return &TripHandler{trips: trips}
}

// Register handles POST /api/v1/trips.
func (h *TripHandler) Register(c *gin.Context) {
	var req dto.TripRegisterRequest
	if !bindJSONNumbers(c, &req) {
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		sendError(c, err)
		return
	}

	reg, err := h.trips.Register(c.Request.Context(), req.TripData, time.Duration(req.DurationHours)*time.Hour)
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, http.StatusCreated, reg)
}

// Status handles GET /api/v1/trips/:trip_id.
func (h *TripHandler) Status(c *gin.Context) {
	tripID, ok := tripIDParam(c)
	if !ok {
		return
	}
	state, err := h.trips.Status(c.Request.Context(), tripID)
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, state)
}

// Delete handles DELETE /api/v1/trips/:trip_id.
func (h *TripHandler) Delete(c *gin.Context) {
	tripID, ok := tripIDParam(c)
	if !ok {
		return
	}
	res, err := h.trips.Delete(c.Request.Context(), tripID)
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, res)
}

// Cleanup handles POST /api/v1/trips/cleanup.
func (h *TripHandler) Cleanup(c *gin.Context) {
	res, err := h.trips.CleanupExpired(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, res)
}

func tripIDParam(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("trip_id"))
	if id == "" || len(id) > 128 {
		sendError(c, apperrors.ErrInvalidRequest("trip_id is required"))
		return "", false
	}
	return id, true
}
