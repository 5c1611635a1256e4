package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Zuzuna54/fintech-app-demo/internal/config"
	"github.com/Zuzuna54/fintech-app-demo/internal/gateway"
	"github.com/Zuzuna54/fintech-app-demo/internal/guard"
	"github.com/Zuzuna54/fintech-app-demo/internal/handler"
	"github.com/Zuzuna54/fintech-app-demo/internal/logger"
	"github.com/Zuzuna54/fintech-app-demo/internal/proxy"
	"github.com/Zuzuna54/fintech-app-demo/internal/session"
	"github.com/Zuzuna54/fintech-app-demo/internal/telemetry"
	"github.com/Zuzuna54/fintech-app-demo/internal/token"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       logLevel(cfg),
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting back-office console...")

	ctx := context.Background()

	// Initialize telemetry
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}); err != nil {
		appLog.Fatal(fmt.Sprintf("Telemetry init failed: %v", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			appLog.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	// Token store: Redis when enabled so a console restart keeps the
	// session, in-process memory otherwise.
	var store token.Store
	if cfg.Redis.Enabled {
		redisStore, err := token.NewRedisStore(ctx, &token.RedisConfig{
			Addr:         cfg.Redis.Addr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
		}
		defer redisStore.Close()
		store = redisStore
		appLog.Info("Token store: redis", zap.String("addr", cfg.Redis.Addr()))
	} else {
		store = token.NewMemoryStore()
		appLog.Info("Token store: in-memory")
	}

	inspector := token.NewInspector(cfg.Session.RefreshThreshold)

	// Gateway client for the back-office API
	gw, err := gateway.NewClient(gateway.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
	}, store, appLog)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Gateway init failed: %v", err))
	}

	// Session service and route guard state
	svc := session.NewService(store, inspector, gw, appLog)
	returnPath := guard.NewReturnPath()

	// Auth failures on established calls tear the session down and remember
	// where the operator was headed. The teardown runs off the calling
	// goroutine: the failing operation may still hold the service's op lock.
	gw.OnAuthFailure = func(method, path string) {
		appLog.Warn("authenticated call rejected, ending session",
			zap.String("method", method), zap.String("path", path))
		returnPath.Set(path)
		go svc.Invalidate(context.Background())
	}

	// Restore a persisted session before taking traffic
	bootCtx, cancelBoot := context.WithTimeout(ctx, cfg.Session.BootstrapTimeout)
	svc.Bootstrap(bootCtx)
	cancelBoot()

	// Background refresh starts only after bootstrap settled
	scheduler := session.NewScheduler(svc, cfg.Session.RefreshInterval, appLog)
	scheduler.OnSessionExpired = func() {
		appLog.Warn("session expired, operator must log in again")
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// Resource proxy: forwards domain reads/writes with the bearer attached
	resourceProxy, err := proxy.New(proxy.Config{
		BackendURL:  cfg.Backend.BaseURL,
		StripPrefix: "/api",
		Timeout:     cfg.Backend.ProxyTimeout,
		Transport:   gw.Transport(),
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Proxy init failed: %v", err))
	}

	// Handlers
	authHandler := handler.NewAuthHandler(svc, returnPath, appLog)
	paymentHandler := handler.NewPaymentHandler(gw, appLog)

	// Setup Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := newRouter(cfg.App.Name, svc, returnPath, resourceProxy, authHandler, paymentHandler, appLog)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		appLog.Info(fmt.Sprintf("Console listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down console...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Console exited gracefully")
}

func logLevel(cfg *config.Config) string {
	if cfg.App.Debug {
		return "debug"
	}
	return "info"
}
