package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/vulcan-api/vulcan-api/internal/actors"
	"github.com/vulcan-api/vulcan-api/internal/app"
	"github.com/vulcan-api/vulcan-api/internal/auth"
	"github.com/vulcan-api/vulcan-api/internal/permissions"
	"github.com/vulcan-api/vulcan-api/internal/resources"
	"github.com/vulcan-api/vulcan-api/internal/schema"
	"github.com/vulcan-api/vulcan-api/internal/shared"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)

	ruleRepo := permissions.NewRepository(dbpool)
	engine := permissions.NewEngine(ruleRepo)
	ruleService := permissions.NewService(ruleRepo)

	actorRepo := actors.NewRepository(dbpool)
	actorService := actors.NewService(actorRepo)

	issuer := auth.NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL)
	authRepo := auth.NewRepository(dbpool)
	gate := auth.NewGate(authRepo, issuer)

	registry := schema.NewRegistry()
	schemaRepo := schema.NewRepository(dbpool)
	builder := schema.NewBuilder(dbpool)
	notifier := schema.NewNotifier(redisClient, cfg.SchemaChannel, logger)
	schemaService := schema.NewService(schemaRepo, builder, registry, notifier, logger)

	if err := registry.Load(ctx, schemaRepo); err != nil {
		logger.Error("load registry", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.BlueprintPath != "" {
		defs, err := schema.LoadBlueprint(cfg.BlueprintPath)
		if err != nil {
			logger.Error("load blueprint", slog.Any("error", err))
			os.Exit(1)
		}
		if err := schemaService.ApplyBlueprint(ctx, defs); err != nil {
			logger.Error("apply blueprint", slog.Any("error", err))
			os.Exit(1)
		}
	}

	rowStore := resources.NewStore(dbpool)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Gate:               gate,
		Registry:           registry,
		AuthHandler:        auth.NewHandler(logger, authRepo, issuer),
		ActorsHandler:      actors.NewHandler(logger, actorService, engine, auditLogger),
		PermissionsHandler: permissions.NewHandler(logger, ruleService, engine, auditLogger),
		SchemaHandler:      schema.NewHandler(logger, schemaService, engine, auditLogger),
		ResourcesHandler:   resources.NewHandler(logger, registry, rowStore, engine, auditLogger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		// Rebuilds the registry when another replica changes the schema.
		return notifier.Subscribe(gctx, schemaService.Reload)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("runtime", slog.Any("error", err))
		os.Exit(1)
	}
}
