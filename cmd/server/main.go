package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/threadboard/config"
	"github.com/d60-Lab/threadboard/internal/api/handler"
	"github.com/d60-Lab/threadboard/internal/api/middleware"
	"github.com/d60-Lab/threadboard/internal/api/router"
	"github.com/d60-Lab/threadboard/internal/auth"
	"github.com/d60-Lab/threadboard/internal/cache"
	"github.com/d60-Lab/threadboard/internal/repository"
	"github.com/d60-Lab/threadboard/internal/service"
	"github.com/d60-Lab/threadboard/pkg/database"
	"github.com/d60-Lab/threadboard/pkg/logger"
	"github.com/d60-Lab/threadboard/pkg/tracing"
)

// @title threadboard API
// @version 1.0
// @description Threaded comment and voting board.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		}); err != nil {
			return err
		}
		defer sentry.Flush(2 * time.Second)
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	db, err := database.InitDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	var (
		boardCache *cache.BoardCache
		events     *service.EventDispatcher
	)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		boardCache = cache.NewBoardCache(rdb, cfg.Redis.CacheTTL)
		events = service.NewEventDispatcher(cache.NewRedisPublisher(rdb), cfg.Redis.EventsChannel, cfg.Redis.EventQueue)
		stopEvents := events.Start(cfg.Redis.EventWorkers)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = stopEvents(sctx)
		}()
		logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	board := service.NewBoardService(
		repository.NewPostRepository(db),
		repository.NewReplyRepository(db),
		repository.NewVoteRepository(db),
		boardCache,
		events,
	)

	gin.SetMode(cfg.Server.Mode)
	opts := router.Options{
		Verifier:     auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Limiter:      middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		AllowOrigins: cfg.CORS.AllowOrigins,
		Swagger:      cfg.Server.Mode != gin.ReleaseMode,
	}
	if cfg.Tracing.Enabled {
		opts.ServiceName = cfg.Tracing.ServiceName
	}
	engine := router.Setup(handler.NewHandler(board), opts)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
