// Package router assembles the gin engine and owns the HTTP server lifecycle.
package router

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/turtacn/touristsafety/internal/application/dto"
	"github.com/turtacn/touristsafety/internal/config"
	"github.com/turtacn/touristsafety/internal/infrastructure/crypto"
	"github.com/turtacn/touristsafety/internal/infrastructure/ratelimit"
	"github.com/turtacn/touristsafety/internal/interfaces/http/handlers"
	"github.com/turtacn/touristsafety/internal/interfaces/http/middleware"
	"github.com/turtacn/touristsafety/pkg/constants"
	apperrors "github.com/turtacn/touristsafety/pkg/errors"
	"github.com/turtacn/touristsafety/pkg/logger"
)

// Deps collects the handlers and cross-cutting collaborators of the router.
// Tokens, Limiter, Recorder, Tracer and Gatherer are optional.
type Deps struct {
	Health *handlers.HealthHandler
	Safety *handlers.SafetyHandler
	Model  *handlers.ModelHandler
	Trips  *handlers.TripHandler

	Tokens   crypto.TokenManager
	Limiter  ratelimit.Limiter
	Recorder middleware.HTTPRecorder
	Tracer   trace.Tracer
	Gatherer prometheus.Gatherer
	Logger   logger.Logger
}

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	config config.ServerConfig
	logger logger.Logger
	server *http.Server
}

// NewRouter 创建路由器并注册全部路由
func NewRouter(cfg config.ServerConfig, deps Deps) *Router {
	if deps.Logger == nil {
		deps.Logger = logger.NewNoopLogger()
	}
	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer(constants.ServiceName)
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	gin.SetMode(gin.ReleaseMode)
	r := &Router{engine: gin.New(), config: cfg, logger: deps.Logger.WithComponent("http")}
	r.setupRoutes(deps)
	return r
}

func (r *Router) setupRoutes(deps Deps) {
	log := r.logger

	// 全局中间件
	r.engine.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.ObservabilityMiddleware(deps.Tracer, deps.Recorder),
		middleware.AccessLog(log),
	)

	// CORS 配置
	origins := r.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", constants.HeaderRequestID},
		ExposeHeaders: []string{constants.HeaderRequestID, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	r.engine.Use(cors.New(corsConfig))

	// 健康检查路由（不需要认证）
	r.engine.GET("/health", deps.Health.HealthCheck)
	r.engine.GET("/ready", deps.Health.ReadinessCheck)
	r.engine.GET("/live", deps.Health.LivenessCheck)

	r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	// Pprof 性能分析（仅在非生产环境）
	if r.config.EnablePprof {
		pprof.Register(r.engine)
	}

	admin := middleware.RequireAdmin(deps.Tokens, log)

	v1 := r.engine.Group("/api/v1")
	v1.Use(middleware.RateLimit(deps.Limiter, log))
	{
		safety := v1.Group("/safety")
		{
			safety.POST("/score", deps.Safety.Score)
			safety.GET("/assessments", deps.Safety.ListAssessments)
			safety.GET("/assessments/:id", deps.Safety.GetAssessment)
		}
		risk := v1.Group("/risk")
		{
			risk.GET("/crime", deps.Safety.CrimeRisk)
			risk.GET("/weather", deps.Safety.WeatherRisk)
		}
		model := v1.Group("/model")
		{
			model.GET("", deps.Model.Info)
			model.POST("/train", admin, deps.Model.Train)
		}
		trips := v1.Group("/trips")
		{
			trips.POST("", deps.Trips.Register)
			trips.POST("/cleanup", admin, deps.Trips.Cleanup)
			trips.GET("/:trip_id", deps.Trips.Status)
			trips.DELETE("/:trip_id", deps.Trips.Delete)
		}
	}

	// 404 处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse(
			apperrors.New(apperrors.CodeNotFound, http.StatusNotFound, "the requested resource was not found"),
			middleware.TraceID(c)))
	})
}

// Start 启动 HTTP 服务器; blocks until the server stops.
func (r *Router) Start() error {
	r.server = &http.Server{
		Addr:           r.config.Addr(),
		Handler:        r.engine,
		ReadTimeout:    r.config.ReadTimeout,
		WriteTimeout:   r.config.WriteTimeout,
		IdleTimeout:    2 * r.config.ReadTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	r.logger.Info(context.Background(), "starting HTTP server", logger.Fields{"address": r.server.Addr})
	if err := r.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 停止 HTTP 服务器
func (r *Router) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	r.logger.Info(ctx, "stopping HTTP server")
	return r.server.Shutdown(ctx)
}

// Engine exposes the gin engine, mainly for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
