package grpc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/grpc"
	grpcCodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	apperrors "github.com/turtacn/touristsafety/pkg/errors"
	"github.com/turtacn/touristsafety/pkg/logger"
)

// InterceptorChain 拦截器链
type InterceptorChain struct {
	log logger.Logger
}

// NewInterceptorChain 创建拦截器链
func NewInterceptorChain(log logger.Logger) *InterceptorChain {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &InterceptorChain{log: log}
}

// UnaryRecoveryInterceptor 恢复拦截器(捕获 panic)
func (ic *InterceptorChain) UnaryRecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				ic.log.Error(ctx, "gRPC handler panic recovered", fmt.Errorf("%v", r),
					logger.Fields{"method": info.FullMethod})
				err = status.Error(grpcCodes.Internal, "internal server error")
			}
		}()

		return handler(ctx, req)
	}
}

// UnaryLoggingInterceptor 日志拦截器
func (ic *InterceptorChain) UnaryLoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		startTime := time.Now()

		var userAgent string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if agents := md.Get("user-agent"); len(agents) > 0 {
				userAgent = agents[0]
			}
		}

		resp, err := handler(ctx, req)

		fields := logger.Fields{
			"method":      info.FullMethod,
			"user_agent":  userAgent,
			"duration_ms": time.Since(startTime).Milliseconds(),
			"status":      status.Code(err).String(),
		}
		if err != nil {
			ic.log.Warn(ctx, "gRPC request failed", fields)
		} else {
			ic.log.Debug(ctx, "gRPC request completed", fields)
		}
		return resp, err
	}
}

// UnaryErrorInterceptor 错误转换拦截器(将领域错误转换为 gRPC 状态码)
func (ic *InterceptorChain) UnaryErrorInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		return resp, ToStatus(err)
	}
}

// ToStatus converts an application error into a gRPC status error. Errors that
// already carry a status pass through unchanged.
func ToStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	appErr, ok := apperrors.As(err)
	if !ok {
		return status.Error(grpcCodes.Internal, "internal server error")
	}

	switch appErr.HTTPStatus {
	case http.StatusNotFound:
		return status.Error(grpcCodes.NotFound, appErr.Message)
	case http.StatusBadRequest:
		return status.Error(grpcCodes.InvalidArgument, appErr.Message)
	case http.StatusUnauthorized:
		return status.Error(grpcCodes.Unauthenticated, appErr.Message)
	case http.StatusForbidden:
		return status.Error(grpcCodes.PermissionDenied, appErr.Message)
	case http.StatusConflict:
		return status.Error(grpcCodes.AlreadyExists, appErr.Message)
	case http.StatusTooManyRequests:
		return status.Error(grpcCodes.ResourceExhausted, appErr.Message)
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return status.Error(grpcCodes.Unavailable, appErr.Message)
	default:
		return status.Error(grpcCodes.Internal, "internal server error")
	}
}

// ChainUnaryInterceptors 链式调用所有拦截器
func (ic *InterceptorChain) ChainUnaryInterceptors() grpc.ServerOption {
	return grpc.ChainUnaryInterceptor(
		ic.UnaryRecoveryInterceptor(), // 1. 恢复 panic
		ic.UnaryLoggingInterceptor(),  // 2. 日志
		ic.UnaryErrorInterceptor(),    // 3. 错误转换
	)
}
