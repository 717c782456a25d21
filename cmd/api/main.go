package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/swcolombo/waitlist-api/config"
	"github.com/swcolombo/waitlist-api/internal/handlers"
	"github.com/swcolombo/waitlist-api/internal/middleware"
	"github.com/swcolombo/waitlist-api/internal/services"
	"github.com/swcolombo/waitlist-api/pkg/httpclient"
	"github.com/swcolombo/waitlist-api/pkg/logger"
	"github.com/swcolombo/waitlist-api/pkg/metrics"
	"github.com/swcolombo/waitlist-api/pkg/profiling"
	"github.com/swcolombo/waitlist-api/pkg/tracing"
)

// app bundles what the router needs
type app struct {
	cfg             *config.Config
	waitlistService services.WaitlistServiceInterface
	eventService    services.EventServiceInterface
	generalLimiter  *middleware.RateLimiter
	waitlistLimiter *middleware.RateLimiter
}

// newRouter builds the gin engine with all routes and middleware
func newRouter(a *app) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(a.cfg.Observability.ServiceName))
	router.Use(middleware.ObservabilityMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware(a.cfg.IsProduction()))

	// the site is the only browser client
	allowedOrigins := a.cfg.Server.AllowedOrigins
	if a.cfg.IsDevelopment() {
		allowedOrigins = append(allowedOrigins, "http://localhost:3000", "http://127.0.0.1:3000")
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "traceparent", "tracestate", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	healthHandler := handlers.NewHealthHandler(a.waitlistService.Configured, a.waitlistService.CircuitOpen)
	waitlistHandler := handlers.NewWaitlistHandler(a.waitlistService)
	eventHandler := handlers.NewEventHandler(a.eventService)

	api := router.Group("/api")
	api.GET("/healthcheck", a.generalLimiter.Middleware(), healthHandler.Healthcheck)
	api.GET("/metrics", a.generalLimiter.Middleware(), gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	v1.POST("/waitlist", a.waitlistLimiter.Middleware(), middleware.BodySizeLimitMiddleware(middleware.DefaultMaxBodySize), waitlistHandler.Join)
	v1.GET("/waitlist/fields", a.generalLimiter.Middleware(), waitlistHandler.Fields)
	v1.GET("/event/countdown", a.generalLimiter.Middleware(), eventHandler.Countdown)

	return router
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting waitlist API",
		zap.String("version", cfg.Observability.ServiceVersion),
		zap.String("environment", cfg.Server.AppEnv),
		zap.String("field_set", cfg.Waitlist.FieldSet),
	)

	if !cfg.WaitlistConfigured() {
		logger.Error("WAITLIST_ENDPOINT is not set; submissions will be refused until it is configured")
	}

	tracerShutdown, err := tracing.InitTracer(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tracerShutdown(ctx); shutdownErr != nil {
			logger.Error("Failed to shutdown tracer", zap.Error(shutdownErr))
		}
	}()

	stopProfiler, err := profiling.Start(cfg)
	if err != nil {
		logger.Error("Continuous profiling not started", zap.Error(err))
	}
	defer stopProfiler()

	stopMetrics := make(chan struct{})
	defer close(stopMetrics)
	metrics.RecordInfrastructureMetrics(stopMetrics)

	// the sheet client applies its own per-call timeout; this is an upper bound
	httpClient := httpclient.NewStandardClient(cfg.Waitlist.Timeout() + 5*time.Second)

	generalLimiter := middleware.NewRateLimiter(20, 40)
	defer generalLimiter.Stop()
	waitlistLimiter := middleware.NewPerMinuteRateLimiter(cfg.Waitlist.RateLimitPerMinute, cfg.Waitlist.RateLimitBurst)
	defer waitlistLimiter.Stop()

	gin.SetMode(cfg.Server.GinMode)
	router := newRouter(&app{
		cfg:             cfg,
		waitlistService: services.NewWaitlistService(cfg, httpClient),
		eventService:    services.NewEventService(cfg),
		generalLimiter:  generalLimiter,
		waitlistLimiter: waitlistLimiter,
	})

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Waitlist.Timeout() + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("Server started", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// let in-flight submissions finish
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Waitlist.Timeout()+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
