package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/turtacn/touristsafety/internal/application/dto"
	"github.com/turtacn/touristsafety/internal/application/service"
	"github.com/turtacn/touristsafety/pkg/constants"
	apperrors "github.com/turtacn/touristsafety/pkg/errors"
	"github.com/turtacn/touristsafety/pkg/utils"
)

// SafetyHandler serves scoring, assessment history and the raw risk lookups.
type SafetyHandler struct {
	safety service.SafetyAppService
}

// NewSafetyHandler creates a new SafetyHandler.
func NewSafetyHandler(safety service.SafetyAppService) *SafetyHandler {
	return &SafetyHandler{safety: safety}
}

// Score handles POST /api/v1/safety/score. Scoring failures are reported in the
// assessment outcome, so a well-formed request always gets 200.
func (h *SafetyHandler) Score(c *gin.Context) {
	var req dto.ScoreRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		sendError(c, err)
		return
	}

	assessment := h.safety.Assess(c.Request.Context(), req.TouristProfile, req.Location)
	sendSuccess(c, http.StatusOK, assessment)
}

// GetAssessment handles GET /api/v1/safety/assessments/:id.
func (h *SafetyHandler) GetAssessment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		sendError(c, apperrors.ErrInvalidRequest("assessment id must be a UUID"))
		return
	}
	a, err := h.safety.GetAssessment(c.Request.Context(), id)
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, a)
}

// ListAssessments handles GET /api/v1/safety/assessments?limit=.
func (h *SafetyHandler) ListAssessments(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			sendError(c, apperrors.ErrInvalidRequest("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	list, err := h.safety.ListAssessments(c.Request.Context(), limit)
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, dto.AssessmentListResponse{Assessments: list, Count: len(list)})
}

// CrimeRisk handles GET /api/v1/risk/crime.
func (h *SafetyHandler) CrimeRisk(c *gin.Context) {
	q, ok := bindRiskQuery(c)
	if !ok {
		return
	}
	report, err := h.safety.CrimeReport(c.Request.Context(), q.GeoQuery(constants.DefaultSearchRadiusKm))
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, report)
}

// WeatherRisk handles GET /api/v1/risk/weather.
func (h *SafetyHandler) WeatherRisk(c *gin.Context) {
	q, ok := bindRiskQuery(c)
	if !ok {
		return
	}
	report, err := h.safety.WeatherReport(c.Request.Context(), q.GeoQuery(constants.DefaultSearchRadiusKm))
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, report)
}

func bindRiskQuery(c *gin.Context) (dto.RiskQuery, bool) {
	var q dto.RiskQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		sendError(c, apperrors.Wrap(err, apperrors.CodeInvalidRequest, "malformed query"))
		return q, false
	}
	if err := utils.ValidateStruct(&q); err != nil {
		sendError(c, err)
		return q, false
	}
	return q, true
}
