package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/turtacn/touristsafety/pkg/constants"
	"github.com/turtacn/touristsafety/pkg/logger"
)

// Pinger is a dependency that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	deps           map[string]Pinger
	modelAvailable func() bool
	timeout        time.Duration
	log            logger.Logger
}

// NewHealthHandler creates a new HealthHandler. Nil pingers are skipped, so
// disabled dependencies such as Redis do not appear in the checks.
func NewHealthHandler(deps map[string]Pinger, modelAvailable func() bool, log logger.Logger) *HealthHandler {
	active := make(map[string]Pinger, len(deps))
	for name, p := range deps {
		if p != nil {
			active[name] = p
		}
	}
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &HealthHandler{deps: active, modelAvailable: modelAvailable, timeout: 3 * time.Second, log: log}
}

// HealthCheck reports the state of every dependency. 503 when any check fails.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := "healthy"
	checks := h.performChecks(c.Request.Context())

	httpStatus := http.StatusOK
	for _, checkStatus := range checks {
		if checkStatus != "ok" {
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"service":   constants.ServiceName,
		"version":   constants.ServiceVersion,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

// ReadinessCheck additionally requires a usable model; without one every
// assessment would fail.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if h.modelAvailable != nil && !h.modelAvailable() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"checks": map[string]string{"model": "no trained model available"},
		})
		return
	}
	h.HealthCheck(c)
}

// LivenessCheck only confirms the process is serving requests.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (h *HealthHandler) performChecks(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	checks := make(map[string]string, len(h.deps))
	for name, p := range h.deps {
		wg.Add(1)
		go func(name string, p Pinger) {
			defer wg.Done()
			status := "ok"
			if err := p.Ping(ctx); err != nil {
				status = "error: " + err.Error()
				h.log.Warn(ctx, "health check failed", logger.Fields{"dependency": name, "error": err.Error()})
			}
			mu.Lock()
			checks[name] = status
			mu.Unlock()
		}(name, p)
	}
	wg.Wait()
	return checks
}
