package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	api "github.com/wolliz-dev/wolliz-backend/api/echo"
	"github.com/wolliz-dev/wolliz-backend/cache"
	"github.com/wolliz-dev/wolliz-backend/config"
	"github.com/wolliz-dev/wolliz-backend/internal/auth"
	"github.com/wolliz-dev/wolliz-backend/internal/crypto"
	"github.com/wolliz-dev/wolliz-backend/internal/server"
	"github.com/wolliz-dev/wolliz-backend/log"
	"github.com/wolliz-dev/wolliz-backend/postgres"
	"github.com/wolliz-dev/wolliz-backend/salesforce"
	"github.com/wolliz-dev/wolliz-backend/tracing"
)

var (
	appLogger      log.Logger
	httpServer     *http.Server
	tracerProvider *sdktrace.TracerProvider
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		stdLog := zerolog.New(os.Stdout).With().Timestamp().Logger()
		stdLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	appLogger = log.NewZerologAdapter(logLevel, cfg.LogPretty)

	ctx := context.Background()
	appLogger.Info(ctx, "Starting wolliz backend...", log.Fields{
		"http_port": cfg.HTTPPort,
		"log_level": logLevel.String(),
	})

	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize TracerProvider", err, nil)
	}
	tracerProvider = tp

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to create database pool", err, nil)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		appLogger.Fatal(ctx, "Failed to connect to database", err, nil)
	}

	userRepo := postgres.NewUserRepository(pool)
	if err := userRepo.EnsureSchema(ctx); err != nil {
		appLogger.Fatal(ctx, "Failed to ensure database schema", err, nil)
	}
	appLogger.Info(ctx, "Connected to PostgreSQL database.", nil)

	// Local auth
	passwordHasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	tokenCache := cache.NewMemoryTokenStore()
	defer tokenCache.Close()
	tokenService := auth.NewTokenService(cfg.JWTSecretKey,
		time.Duration(cfg.TokenTTLMin)*time.Minute, tokenCache)

	// External session broker. A failed initial authentication is logged,
	// not fatal: proxy endpoints answer 503 until a later attempt succeeds.
	privateKey, err := crypto.LoadRSAPrivateKey(cfg.SFPrivateKeyFile)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to load salesforce private key", err, nil)
	}
	broker, err := salesforce.NewBroker(salesforce.BrokerConfig{
		ClientID:   cfg.SFClientID,
		Username:   cfg.SFUsername,
		LoginURL:   cfg.SFLoginURL,
		PrivateKey: privateKey,
	}, nil, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize salesforce broker", err, nil)
	}
	if err := broker.Authenticate(ctx); err != nil {
		appLogger.Error(ctx, "Initial salesforce authentication failed", err, nil)
	}
	propertyClient := salesforce.NewPropertyClient(broker, nil)

	// HTTP API
	userAPI := api.NewUserAPI(userRepo, passwordHasher, tokenService)
	propertyAPI := api.NewPropertyAPI(propertyClient)
	httpAPI := api.NewAPI(userAPI, propertyAPI, tokenService)

	httpServer = server.NewHTTPServer(cfg, appLogger, httpAPI)
	go func() {
		appLogger.Info(ctx, fmt.Sprintf("HTTP server listening on port %s", cfg.HTTPPort), nil)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(ctx, "Failed to start HTTP server", err, nil)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit

	appLogger.Info(ctx, fmt.Sprintf("Received signal: %v. Shutting down server...", receivedSignal), nil)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "HTTP server shutdown error", err, nil)
	}

	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "TracerProvider shutdown error", err, nil)
		}
	}

	appLogger.Info(shutdownCtx, "Server gracefully stopped.", nil)
}
