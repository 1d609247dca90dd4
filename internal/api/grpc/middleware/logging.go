package middleware

import (
	"context"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/starter-api/internal/logger"
)

const healthPrefix = "/grpc.health.v1.Health/"

// Logging intercepts gRPC calls and logs their results. Health probes
// are logged at debug level.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// HandleGRPC logs method name, duration and status for each unary request.
func (l *Logging) HandleGRPC(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	l.log(info.FullMethod, start, err)
	return resp, err
}

// HandleStream logs method name, duration and status for each stream.
func (l *Logging) HandleStream(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	start := time.Now()
	err := handler(srv, ss)
	l.log(info.FullMethod, start, err)
	return err
}

func (l *Logging) log(method string, start time.Time, err error) {
	code := status.Code(err)
	if err != nil {
		if _, ok := status.FromError(err); !ok {
			code = codes.Internal
		}
	}

	attrs := []any{
		"method", method,
		"duration_ms", time.Since(start).Milliseconds(),
		"status", code.String(),
	}
	if err != nil {
		l.logger.Error("gRPC request failed", append(attrs, "error", err.Error())...)
		return
	}
	if strings.HasPrefix(method, healthPrefix) {
		l.logger.Debug("gRPC request completed", attrs...)
		return
	}
	l.logger.Info("gRPC request completed", attrs...)
}

// Recover turns a panic into an Internal status.
func (l *Logging) Recover(ctx context.Context, p any) error {
	l.logger.Error("gRPC handler panicked", "panic", p)
	return status.Error(codes.Internal, "internal error")
}
