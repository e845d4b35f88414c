package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/ndvi-gateway/api/swagger"
	"github.com/noah-isme/ndvi-gateway/internal/cards"
	"github.com/noah-isme/ndvi-gateway/internal/client"
	"github.com/noah-isme/ndvi-gateway/internal/handler"
	"github.com/noah-isme/ndvi-gateway/internal/identity"
	internalmiddleware "github.com/noah-isme/ndvi-gateway/internal/middleware"
	"github.com/noah-isme/ndvi-gateway/internal/service"
	"github.com/noah-isme/ndvi-gateway/pkg/cache"
	"github.com/noah-isme/ndvi-gateway/pkg/config"
	"github.com/noah-isme/ndvi-gateway/pkg/export"
	"github.com/noah-isme/ndvi-gateway/pkg/jobs"
	"github.com/noah-isme/ndvi-gateway/pkg/logger"
	corsmiddleware "github.com/noah-isme/ndvi-gateway/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ndvi-gateway/pkg/middleware/requestid"
	"github.com/noah-isme/ndvi-gateway/pkg/storage"
)

// @title NDVI Gateway API
// @version 1.0.0
// @description Backend-for-frontend for the NDVI vegetation analysis service.
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.Identity.Store == "redis" || cfg.Counters.Backend == "redis" {
		redisClient = cache.Optional(ctx, cfg.Redis, logr)
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	metricsSvc := service.NewMetricsService()
	backend := client.New(client.Options{
		BaseURL:        cfg.Backend.BaseURL,
		RequestTimeout: cfg.Backend.RequestTimeout,
		SubmitTimeout:  cfg.Backend.SubmitTimeout,
		Breaker:        cfg.Breaker,
		Logger:         logr.Named("backend"),
		Observer:       metricsSvc,
	})

	files, err := storage.NewLocalStorage(cfg.Downloads.Dir)
	if err != nil {
		logr.Fatal("failed to prepare download directory", zap.Error(err))
	}

	var counters cards.CounterStore = cards.NewMemoryCounters()
	if cfg.Counters.Backend == "redis" && redisClient != nil {
		counters = cards.NewRedisCounters(redisClient)
	}

	// The identity middleware binds the user id into each request context;
	// this provider only answers when a service runs outside a request.
	ids := identity.NewProvider(nil, logr)

	jobStore := service.NewJobStore(cfg.Jobs.JobTTL, logr)
	worker := service.NewSubmissionWorker(backend, jobStore, metricsSvc, logr)
	queue := jobs.NewQueue("analysis_submissions", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		BufferSize: cfg.Jobs.BufferSize,
		MaxRetries: 0,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()
	jobStore.StartCleanup(ctx, time.Minute)

	gallerySvc := service.NewGalleryService(backend, ids, counters, metricsSvc, service.GalleryConfig{DefaultLimit: cfg.Backend.GalleryLimit}, logr)
	analysisSvc := service.NewAnalysisService(backend, ids, queue, jobStore, metricsSvc, service.AnalysisConfig{DownloadData: cfg.Backend.DownloadData}, logr)
	resultSvc := service.NewResultService(backend, ids, files, metricsSvc, cfg.Preview, logr)
	exportSvc := service.NewExportService(gallerySvc, files, service.ExportConfig{ResultTTL: cfg.Jobs.JobTTL}, logr, export.NewCSVExporter(), export.NewPDFExporter())

	go sweepExports(ctx, exportSvc, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	identityMW := internalmiddleware.Identity(internalmiddleware.IdentityConfig{
		CookieName: cfg.Identity.CookieName,
		TTL:        cfg.Identity.CookieTTL,
		Secure:     cfg.Env == config.EnvProduction,
		Redis:      identityRedis(cfg, redisClient),
	}, logr)

	handler.RegisterRoutes(r, cfg.APIPrefix, identityMW, handler.Handlers{
		Health:   handler.NewHealthHandler(backend, metricsSvc),
		Identity: handler.NewIdentityHandler(),
		Analyses: handler.NewAnalysisHandler(analysisSvc),
		Gallery:  handler.NewGalleryHandler(gallerySvc, exportSvc),
		Results:  handler.NewResultHandler(resultSvc),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "backend", cfg.Backend.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func identityRedis(cfg *config.Config, client *redis.Client) *redis.Client {
	if cfg.Identity.Store != "redis" {
		return nil
	}
	return client
}

func sweepExports(ctx context.Context, svc *service.ExportService, logr *zap.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := svc.Cleanup()
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("expired exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}
