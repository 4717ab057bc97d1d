package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/touristsafety/pkg/constants"
)

// HTTPRecorder receives one observation per request.
type HTTPRecorder interface {
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
}

// ObservabilityMiddleware starts a server span per request and records request metrics.
// Metrics are labelled with the route template, not the raw path.
// ObservabilityMiddleware 为每个请求创建 span 并记录请求指标。
func ObservabilityMiddleware(tracer trace.Tracer, recorder HTTPRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "not_found"
		}

		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		if sc := span.SpanContext(); sc.HasTraceID() {
			traceID := sc.TraceID().String()
			ctx = context.WithValue(ctx, constants.ContextKeyTraceID, traceID)
			c.Set(string(constants.ContextKeyTraceID), traceID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		if recorder != nil {
			recorder.RecordHTTPRequest(c.Request.Method, path, status, time.Since(start))
		}
		span.SetAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", path),
			attribute.Int("http.status_code", status),
			attribute.String("http.client_ip", c.ClientIP()),
		)
		if status >= 500 {
			span.SetStatus(codes.Error, "server error")
		}
	}
}
