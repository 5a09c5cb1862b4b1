package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/api/swagger"
	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/handler"
	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/middleware"
	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/models"
	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/repository"
	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/service"
	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/cache"
	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/config"
	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/database"
	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/jobs"
	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/logger"
	corsmiddleware "github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/middleware/requestid"
)

// @title HostelHaven Allocation API
// @version 1.0.0
// @description Room allocation engine for the HostelHaven hostel management system
// @BasePath /api/v1
// @schemes http

type reprocessPayload struct {
	RoomType models.RoomType
	Floor    int
}

// queueReprocessTrigger bridges the allocation engine to the background
// waitlist queue without a direct service dependency.
type queueReprocessTrigger struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

func (t *queueReprocessTrigger) TriggerReprocess(roomType models.RoomType, floor int) {
	err := t.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "waitlist.reprocess",
		Payload: reprocessPayload{RoomType: roomType, Floor: floor},
	})
	if err != nil {
		t.logger.Warn("failed to enqueue waitlist reprocess", zap.Error(err))
	}
}

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	// Repositories.
	roomRepo := repository.NewRoomRepository(db)
	residentRepo := repository.NewResidentRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	waitlistRepo := repository.NewWaitlistRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
	})
	ranker := service.NewRanker(service.RankConfig{
		StaffBonus:      cfg.Allocation.StaffBonus,
		AdminBonus:      cfg.Allocation.AdminBonus,
		SeniorityWeight: cfg.Allocation.SeniorityWeight,
	})
	roomService := service.NewRoomService(roomRepo, cacheRepo, cfg.Rooms.CacheTTL, validate, logr)
	allocationService := service.NewAllocationService(
		allocationRepo, roomRepo, requestRepo, residentRepo, waitlistRepo,
		ranker, metricsService, cfg.Allocation.MaxRetries, logr,
	)
	requestService := service.NewRequestService(
		requestRepo, allocationRepo, residentRepo, waitlistRepo, allocationService,
		cfg.Allocation.RequestTTL, validate, logr,
	)
	waitlistService := service.NewWaitlistService(
		waitlistRepo, allocationService, cacheRepo, cfg.Waitlist.CacheTTL, metricsService, logr,
	)
	batchService := service.NewBatchService(batchRepo, requestRepo, residentRepo, allocationService, ranker, logr)
	auditService := service.NewAuditService(
		allocationRepo, roomRepo, residentRepo, batchRepo,
		metricsService, cfg.Audit.StaleBatchAge, logr,
	)

	// Background waitlist reprocessing. Deallocations and transfers
	// enqueue a job instead of reprocessing inline.
	reprocessQueue := jobs.NewQueue("waitlist-reprocess", func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(reprocessPayload)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		roomType := payload.RoomType
		floor := payload.Floor
		_, err := waitlistService.Reprocess(ctx, &roomType, &floor)
		return err
	}, jobs.QueueConfig{Workers: cfg.Waitlist.Workers, Logger: logr})
	reprocessQueue.Start(ctx)
	defer reprocessQueue.Stop()
	allocationService.SetReprocessTrigger(&queueReprocessTrigger{queue: reprocessQueue, logger: logr})

	// Handlers.
	roomHandler := handler.NewRoomHandler(roomService)
	requestHandler := handler.NewRequestHandler(requestService)
	allocationHandler := handler.NewAllocationHandler(allocationService)
	waitlistHandler := handler.NewWaitlistHandler(waitlistService)
	batchHandler := handler.NewBatchHandler(batchService)
	auditHandler := handler.NewAuditHandler(auditService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authService))
	{
		rooms := api.Group("/rooms")
		rooms.GET("", roomHandler.List)
		rooms.GET("/:id", roomHandler.Get)
		rooms.POST("", middleware.RBAC("ADMIN", "STAFF"), roomHandler.Create)
		rooms.PATCH("/:id", middleware.RBAC("ADMIN", "STAFF"), roomHandler.Update)
		rooms.DELETE("/:id", middleware.RBAC("ADMIN"), roomHandler.Delete)

		requests := api.Group("/requests")
		requests.POST("", requestHandler.Submit)
		requests.GET("", requestHandler.List)
		requests.GET("/:id", requestHandler.Get)
		requests.POST("/:id/cancel", requestHandler.Cancel)

		allocations := api.Group("/allocations")
		allocations.POST("", middleware.RBAC("ADMIN", "STAFF"), allocationHandler.Allocate)
		allocations.GET("/:id", middleware.RBAC("ADMIN", "STAFF"), allocationHandler.Get)
		allocations.POST("/:id/deallocate", middleware.RBAC("ADMIN", "STAFF"), allocationHandler.Deallocate)
		allocations.POST("/:id/transfer", middleware.RBAC("ADMIN", "STAFF"), allocationHandler.Transfer)

		api.GET("/residents/:id/allocation", middleware.RBAC("ADMIN", "STAFF", "SELF"), allocationHandler.ActiveForResident)

		waitlist := api.Group("/waitlist")
		waitlist.GET("", middleware.RBAC("ADMIN", "STAFF"), waitlistHandler.View)
		waitlist.POST("/reprocess", middleware.RBAC("ADMIN", "STAFF"), waitlistHandler.Reprocess)

		batches := api.Group("/batches")
		batches.Use(middleware.RBAC("ADMIN"))
		batches.POST("", batchHandler.Run)
		batches.GET("/:id", batchHandler.Get)
		batches.GET("/:id/export", batchHandler.Export)

		api.POST("/audit", middleware.RBAC("ADMIN"), auditHandler.Run)
	}

	// Periodic sweeps: request expiry, waitlist reprocess, consistency
	// audit.
	go runEvery(ctx, cfg.Allocation.ExpirySweep, func(ctx context.Context) {
		expired, err := requestService.ExpireSweep(ctx)
		if err != nil {
			logr.Warn("expiry sweep failed", zap.Error(err))
			return
		}
		if expired > 0 {
			logr.Info("expired stale requests", zap.Int("count", expired))
		}
	})
	go runEvery(ctx, cfg.Waitlist.SweepInterval, func(ctx context.Context) {
		promoted, err := waitlistService.Reprocess(ctx, nil, nil)
		if err != nil {
			logr.Warn("waitlist sweep failed", zap.Error(err))
			return
		}
		if promoted > 0 {
			logr.Info("waitlist sweep promoted requests", zap.Int("count", promoted))
		}
	})
	go runEvery(ctx, cfg.Audit.Interval, func(ctx context.Context) {
		report, err := auditService.Audit(ctx)
		if err != nil {
			logr.Warn("consistency audit failed", zap.Error(err))
			return
		}
		if len(report.Repairs) > 0 {
			logr.Info("consistency audit applied repairs",
				zap.Int("repairs", len(report.Repairs)),
				zap.Int("critical", report.Critical))
		}
	})
	if cfg.Audit.RunOnStartup {
		if _, err := auditService.Audit(ctx); err != nil {
			logr.Warn("startup audit failed", zap.Error(err))
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

func runEvery(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
