package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/jaekwang-park/project-board/internal/broadcast"
	cognitopkg "github.com/jaekwang-park/project-board/internal/cognito"
	"github.com/jaekwang-park/project-board/internal/config"
	boardhttp "github.com/jaekwang-park/project-board/internal/http"
	"github.com/jaekwang-park/project-board/internal/metrics"
	"github.com/jaekwang-park/project-board/internal/middleware"
	"github.com/jaekwang-park/project-board/internal/model"
	"github.com/jaekwang-park/project-board/internal/policy"
	"github.com/jaekwang-park/project-board/internal/repository"
	"github.com/jaekwang-park/project-board/internal/service"
)

// userResolverAdapter adapts a user repository to the middleware.UserResolver interface.
type userResolverAdapter struct {
	repo interface {
		GetByCognitoSub(ctx context.Context, cognitoSub string) (model.User, error)
	}
}

func (a *userResolverAdapter) ResolveUserID(ctx context.Context, cognitoSub string) (string, error) {
	user, err := a.repo.GetByCognitoSub(ctx, cognitoSub)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", middleware.ErrUserNotFound
		}
		return "", fmt.Errorf("failed to resolve user: %w", err)
	}
	return user.ID, nil
}

func main() {
	// Initial logger at info level; reconfigured after config load
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(context.Background()); err != nil {
		logger.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.ParseLogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Info("config loaded",
		"env", cfg.AppEnv,
		"port", cfg.ServerPort,
		"auth_dev_mode", cfg.AuthDevMode,
		"log_level", cfg.LogLevel,
		"redis", cfg.Redis.Enabled(),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewDB(cfg.DB.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database connected")

	projectRepo := repository.NewPostgresProject(db)
	taskRepo := repository.NewPostgresTask(db)
	userRepo := repository.NewPostgresUser(db)

	m := metrics.New()
	hub := broadcast.NewHub(logger, 0)

	// Without Redis the hub is the only delivery target, which limits
	// streams to the instance that handled the write.
	var target broadcast.Broadcaster = hub
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}

		target = broadcast.NewRedisBroadcaster(rdb, cfg.Redis.ChannelPrefix)
		relay := broadcast.NewRedisRelay(rdb, cfg.Redis.ChannelPrefix, hub, logger)
		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Error("redis relay stopped", "error", err)
				stop()
			}
		}()
		logger.Info("redis connected", "addr", cfg.Redis.Addr)
	}

	notifier := broadcast.NewNotifier(target, logger, m, cfg.NotifyQueueSize)
	projectSvc := service.NewProjectService(projectRepo, taskRepo, policy.NewOwnerPolicy(), notifier, logger)

	var cognitoClient cognitopkg.Client
	if cfg.Cognito.AppClientID != "" {
		awsClient, err := cognitopkg.NewAWSClient(
			ctx,
			cfg.Cognito.Region,
			cfg.Cognito.AppClientID,
			cfg.Cognito.AppClientSecret,
		)
		if err != nil {
			return err
		}
		cognitoClient = awsClient
		logger.Info("cognito client initialized", "region", cfg.Cognito.Region)
	} else {
		logger.Warn("cognito client not initialized: COGNITO_APP_CLIENT_ID not set")
	}
	authSvc := service.NewAuthService(cognitoClient, userRepo)

	authCfg := middleware.AuthConfig{
		DevMode: cfg.AuthDevMode,
	}
	if !cfg.AuthDevMode {
		jwksURL := middleware.CognitoJWKSURL(cfg.Cognito.Region, cfg.Cognito.UserPoolID)
		authCfg.JWKSClient = middleware.NewJWKSClient(jwksURL)
		authCfg.Issuer = middleware.CognitoIssuer(cfg.Cognito.Region, cfg.Cognito.UserPoolID)
		authCfg.AppClientID = cfg.Cognito.AppClientID
		authCfg.UserResolver = &userResolverAdapter{repo: userRepo}
	}
	auth, err := middleware.NewAuth(authCfg)
	if err != nil {
		return fmt.Errorf("failed to create auth middleware: %w", err)
	}

	router := boardhttp.NewRouter(boardhttp.Deps{
		Projects:      projectSvc,
		Auth:          authSvc,
		AuthMW:        auth,
		Hub:           hub,
		Metrics:       m,
		DB:            db,
		Logger:        logger,
		DevMode:       cfg.AuthDevMode,
		SecureCookies: cfg.CookieSecure,
	})

	srv := boardhttp.NewServer(cfg.ServerPort, logger, router)
	srv.RegisterOnShutdown(hub.Close)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := notifier.Close(shutdownCtx); err != nil {
		logger.Warn("notification queue not drained", "error", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
