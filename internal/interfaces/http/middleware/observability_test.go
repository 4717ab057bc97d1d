package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/turtacn/touristsafety/internal/interfaces/http/middleware"
	"github.com/turtacn/touristsafety/pkg/constants"
)

type observation struct {
	method, path string
	status       int
}

type fakeRecorder struct {
	mu   sync.Mutex
	seen []observation
}

func (f *fakeRecorder) RecordHTTPRequest(method, path string, status int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, observation{method, path, status})
}

func TestObservabilityMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })
	recorder := &fakeRecorder{}

	var traceInCtx any
	r := gin.New()
	r.Use(middleware.ObservabilityMiddleware(tp.Tracer("test"), recorder))
	r.GET("/api/v1/trips/:trip_id", func(c *gin.Context) {
		traceInCtx = c.Request.Context().Value(constants.ContextKeyTraceID)
		c.Status(http.StatusOK)
	})
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/trips/TRIP_ABC_1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, traceInCtx)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, []observation{
		{http.MethodGet, "/api/v1/trips/:trip_id", http.StatusOK},
		{http.MethodGet, "/boom", http.StatusBadGateway},
		{http.MethodGet, "not_found", http.StatusNotFound},
	}, recorder.seen)

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)
	assert.Equal(t, "GET /api/v1/trips/:trip_id", spans[0].Name)
	assert.Equal(t, "Error", spans[1].Status.Code.String())
}
