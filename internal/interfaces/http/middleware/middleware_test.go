package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/touristsafety/internal/config"
	"github.com/turtacn/touristsafety/internal/infrastructure/crypto"
	"github.com/turtacn/touristsafety/internal/interfaces/http/middleware"
	"github.com/turtacn/touristsafety/pkg/constants"
	"github.com/turtacn/touristsafety/pkg/logger"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var fromCtx any
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) {
		fromCtx = c.Request.Context().Value(constants.ContextKeyRequestID)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(constants.HeaderRequestID, "req-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(constants.HeaderRequestID))
	assert.Equal(t, "req-123", fromCtx)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(constants.HeaderRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, fromCtx)
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Recovery(logger.NewNoopLogger()))
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens, err := crypto.NewJWTManager(config.AuthConfig{JWTSecret: "test-secret-with-enough-length", Issuer: "touristsafety"})
	require.NoError(t, err)

	admin, err := tokens.Issue("ops@example.com", constants.AdminRole, time.Hour)
	require.NoError(t, err)
	viewer, err := tokens.Issue("someone", "viewer", time.Hour)
	require.NoError(t, err)

	build := func(m crypto.TokenManager) *gin.Engine {
		r := gin.New()
		r.POST("/admin", middleware.RequireAdmin(m, logger.NewNoopLogger()), func(c *gin.Context) {
			c.String(http.StatusOK, c.GetString(string(constants.ContextKeySubject)))
		})
		return r
	}

	tests := []struct {
		name    string
		manager crypto.TokenManager
		header  string
		want    int
	}{
		{"admin token", tokens, "Bearer " + admin, http.StatusOK},
		{"missing header", tokens, "", http.StatusUnauthorized},
		{"wrong scheme", tokens, "Basic " + admin, http.StatusUnauthorized},
		{"garbage token", tokens, "Bearer not-a-jwt", http.StatusUnauthorized},
		{"non-admin role", tokens, "Bearer " + viewer, http.StatusForbidden},
		{"no manager configured", nil, "Bearer " + admin, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin", nil)
			if tt.header != "" {
				req.Header.Set(constants.HeaderAuthorization, tt.header)
			}
			w := httptest.NewRecorder()
			build(tt.manager).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "ops@example.com", w.Body.String())
			}
			if tt.want == http.StatusUnauthorized {
				assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}
