package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/portico-app/portico/internal/app"
	"github.com/portico-app/portico/internal/auth"
	"github.com/portico-app/portico/internal/dashboard"
	"github.com/portico-app/portico/internal/modules"
	"github.com/portico-app/portico/internal/observability"
	"github.com/portico-app/portico/internal/permissions"
	"github.com/portico-app/portico/internal/platform/db"
	"github.com/portico-app/portico/internal/rbac"
	"github.com/portico-app/portico/internal/roles"
	"github.com/portico-app/portico/internal/shared"
	"github.com/portico-app/portico/internal/users"
	"github.com/portico-app/portico/internal/view"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
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

	sessionManager := shared.NewSessionManager(redisClient, "portico_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	rbacService := rbac.NewService(dbpool)
	rbacMiddleware := rbac.Middleware{Source: rbacService, Logger: logger}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager, metrics)

	moduleRepo := modules.NewRepository(dbpool)
	moduleService := modules.NewService(moduleRepo)
	moduleHandler := modules.NewHandler(logger, moduleService, templates, csrfManager, rbacMiddleware)

	permissionRepo := permissions.NewRepository(dbpool)
	permissionService := permissions.NewService(permissionRepo)
	permissionHandler := permissions.NewHandler(logger, permissionService, moduleService, templates, csrfManager, rbacMiddleware)

	roleRepo := roles.NewRepository(dbpool)
	roleService := roles.NewService(roleRepo)
	roleHandler := roles.NewHandler(logger, roleService, permissionService, templates, csrfManager, rbacMiddleware)

	userRepo := users.NewRepository(dbpool)
	userService := users.NewService(userRepo)
	userHandler := users.NewHandler(logger, userService, rbacService, roleService, templates, csrfManager, rbacMiddleware)

	dashboardHandler := dashboard.NewHandler(logger, rbacService, moduleService, templates, csrfManager)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		DashboardHandler:   dashboardHandler,
		UsersHandler:       userHandler,
		RolesHandler:       roleHandler,
		PermissionsHandler: permissionHandler,
		ModulesHandler:     moduleHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
