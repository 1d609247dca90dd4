package router

import (
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/dtroode/starter-api/internal/api/grpc/middleware"
	"github.com/dtroode/starter-api/internal/logger"
)

// Router represents the operational gRPC router. It serves the standard
// health protocol and server reflection.
type Router struct {
	health *health.Server
	logger *logger.Logger
}

// New creates new gRPC Router instance around the given health server.
func New(healthServer *health.Server, logger *logger.Logger) *Router {
	return &Router{
		health: healthServer,
		logger: logger,
	}
}

// Register registers all gRPC services and middleware.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	recoveryOpt := recovery.WithRecoveryHandlerContext(logging.Recover)

	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			recovery.UnaryServerInterceptor(recoveryOpt),
			logging.HandleGRPC,
		),
		grpc.ChainStreamInterceptor(
			recovery.StreamServerInterceptor(recoveryOpt),
			logging.HandleStream,
		),
	)

	healthpb.RegisterHealthServer(s, r.health)
	reflection.Register(s)

	return s
}
