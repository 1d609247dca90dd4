package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc/health"

	grpchealth "github.com/dtroode/starter-api/internal/api/grpc/health"
	grpcrouter "github.com/dtroode/starter-api/internal/api/grpc/router"
	grpcserver "github.com/dtroode/starter-api/internal/api/grpc/server"
	httpctx "github.com/dtroode/starter-api/internal/api/http/context"
	"github.com/dtroode/starter-api/internal/api/http/handler"
	httprouter "github.com/dtroode/starter-api/internal/api/http/router"
	httpserver "github.com/dtroode/starter-api/internal/api/http/server"
	"github.com/dtroode/starter-api/internal/config"
	"github.com/dtroode/starter-api/internal/logger"
	"github.com/dtroode/starter-api/internal/model"
	"github.com/dtroode/starter-api/internal/oauth"
	"github.com/dtroode/starter-api/internal/password"
	"github.com/dtroode/starter-api/internal/ratelimit"
	"github.com/dtroode/starter-api/internal/repository/memory"
	"github.com/dtroode/starter-api/internal/repository/postgres"
	"github.com/dtroode/starter-api/internal/server"
	"github.com/dtroode/starter-api/internal/service"
	storage "github.com/dtroode/starter-api/internal/storage/minio"
	"github.com/dtroode/starter-api/internal/telemetry"
	"github.com/dtroode/starter-api/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

const errorLogBuffer = 256

type stores struct {
	users    model.UserStore
	refresh  model.RefreshTokenStore
	errorLog model.ErrorLogStore
	pinger   grpchealth.Pinger
	close    func() error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel, cfg.IsProduction())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, buildVersion)
	if err != nil {
		logger.Fatal("failed to initialize tracing", "error", err)
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer st.close()

	var archive model.Storage
	if cfg.Storage.Endpoint != "" {
		archive, err = storage.New(ctx, cfg.Storage)
		if err != nil {
			logger.Fatal("failed to initialize storage client", "error", err)
		}
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize rate limiter", "error", err)
	}
	defer closeLimiter()

	hasher, err := password.NewBcrypt(cfg.Security.BcryptCost)
	if err != nil {
		logger.Fatal("failed to initialize password hasher", "error", err)
	}
	issuer := token.NewJWT(cfg.JWT.Secret, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)

	refreshTokens := service.NewRefreshTokens(st.refresh, logger)
	credentials := service.NewCredentials(st.users, hasher, logger)
	sessionService := service.NewSession(credentials, issuer, refreshTokens, st.users, logger)
	userService := service.NewUsers(st.users, refreshTokens, logger)
	errorLog := service.NewErrorLog(st.errorLog, archive, logger, errorLogBuffer)
	defer errorLog.Close()

	oauthClient := oauth.NewClient(
		oauth.ProviderConfig(cfg.Google),
		oauth.ProviderConfig(cfg.GitHub),
	)
	for provider, creds := range map[model.Provider]config.OAuth{
		model.ProviderGoogle: cfg.Google,
		model.ProviderGitHub: cfg.GitHub,
	} {
		if !creds.Enabled() {
			logger.Warn("OAuth provider is not configured, its routes answer 404", "provider", provider)
		}
	}

	ctxMgr := httpctx.NewManager()
	r := httprouter.New(httprouter.Params{
		Session:         sessionService,
		Users:           userService,
		Logs:            errorLog,
		OAuth:           oauthClient,
		Recorder:        errorLog,
		Limiter:         limiter,
		Issuer:          issuer,
		UserStore:       st.users,
		Revoker:         refreshTokens,
		ContextManager:  ctxMgr,
		Cookies:         handler.NewCookies(cfg.Cookie, cfg.JWT.RefreshExpiry),
		ClientURL:       cfg.ClientURL,
		CORSOrigin:      cfg.CORS.Origin,
		StrictTransport: cfg.IsProduction(),
		Logger:          logger,
	})
	httpSrv := httpserver.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))

	healthServer := health.NewServer()
	watcher := grpchealth.NewWatcher(st.pinger, healthServer, cfg.GRPC.HealthInterval, logger)
	grpcSrv := grpcserver.NewGRPCServer(grpcrouter.New(healthServer, logger).Register(), fmt.Sprintf(":%s", cfg.GRPC.Port))

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		refreshTokens.RunCleanup(ctx, cfg.Cleanup.RefreshTokenInterval)
	}()
	go func() {
		defer wg.Done()
		watcher.Run(ctx)
	}()

	sl := server.NewSecurityLayer(cfg.HTTP)
	servers := []model.Server{httpSrv, grpcSrv}
	for _, s := range servers {
		wg.Add(1)
		go func(s model.Server) {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.Address())
			if err := s.Start(sl); err != nil {
				logger.Error("failed to start server", "error", err, "address", s.Address())
				stop()
			}
		}(s)
	}

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	for _, s := range servers {
		if err := s.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", s.Address())
		}
	}

	wg.Wait()

	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("error during tracing shutdown", "error", err)
	}
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Database.Driver == "memory" {
		return &stores{
			users:    memory.NewUserRepository(),
			refresh:  memory.NewRefreshTokenRepository(),
			errorLog: memory.NewErrorLogRepository(),
			pinger:   memory.Pinger{},
			close:    func() error { return nil },
		}, nil
	}

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	return &stores{
		users:    postgres.NewUserRepository(db),
		refresh:  postgres.NewRefreshTokenRepository(db),
		errorLog: postgres.NewErrorLogRepository(db),
		pinger:   db,
		close:    db.Close,
	}, nil
}

func newLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, func() error, error) {
	if cfg.Redis.Addr == "" {
		return ratelimit.NewMemory(cfg.Security.RateLimitMax, cfg.Security.RateLimitWindow), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return ratelimit.NewRedis(client, cfg.Security.RateLimitMax, cfg.Security.RateLimitWindow), client.Close, nil
}
