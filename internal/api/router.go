package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/skirmish-gg/skirmish-backend/internal/api/handlers"
	"github.com/skirmish-gg/skirmish-backend/internal/api/middleware"
	"github.com/skirmish-gg/skirmish-backend/internal/config"
	"github.com/skirmish-gg/skirmish-backend/internal/coordinator"
	"github.com/skirmish-gg/skirmish-backend/internal/repository"
	"github.com/skirmish-gg/skirmish-backend/internal/service"
	"github.com/skirmish-gg/skirmish-backend/internal/websocket"
	"github.com/skirmish-gg/skirmish-backend/pkg/database"
	"github.com/skirmish-gg/skirmish-backend/pkg/distributed"
	"github.com/skirmish-gg/skirmish-backend/pkg/logger"
	"github.com/skirmish-gg/skirmish-backend/pkg/ratelimit"
	"github.com/skirmish-gg/skirmish-backend/pkg/storage"
	"github.com/skirmish-gg/skirmish-backend/pkg/token"
)

// SetupRouter API 라우터 설정.
// 반환된 cleanup은 종료 시 coordinator와 백그라운드 워커를 정리한다.
func SetupRouter(cfg *config.Config, db *database.DB) (*gin.Engine, func()) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 전역 미들웨어
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Redis (선택): 분산 페어링, 공유 rate limit, 정산 재시도 큐
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("Invalid REDIS_URL", "error", err)
		}
		redisClient = redis.NewClient(opt)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("Redis unreachable, continuing in single-instance mode", "error", err)
			redisClient = nil
		}
	}

	// Storage 초기화
	storageManager := storage.NewStorage(cfg.StoragePath)

	// Repository 초기화
	playerRepo := repository.NewPlayerRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	historyRepo := repository.NewMatchHistoryRepository(db)

	// Service 초기화
	playerService := service.NewPlayerService(playerRepo)
	ratingService := service.NewRatingService()
	settlementService := service.NewSettlementService(ratingRepo, ratingService, logger.L())
	archiveService := service.NewArchiveService(historyRepo, storageManager, logger.L())

	// 정산 재시도 큐 + 복구 워커 (Redis 필요)
	var retryQueue *distributed.RetryQueue
	var recoveryService *service.RecoveryService
	if redisClient != nil {
		retryQueue = distributed.NewRetryQueue(redisClient, "settlement")
		recoveryService = service.NewRecoveryService(settlementService, retryQueue, 0, logger.L())
		recoveryService.Start()
	}
	settler := service.NewReliableSettler(settlementService, retryQueue, logger.L())

	// WebSocket Hub 초기화 및 시작
	wsHub := websocket.NewHub(logger.L())
	go wsHub.Run()

	// 분산 페어링 조정자 (Redis 필요)
	var pairing *distributed.PairingCoordinator
	if redisClient != nil {
		pairing = distributed.NewPairingCoordinator(redisClient, logger.L())
	}

	// Coordinator 초기화 및 시작
	coord := coordinator.New(coordinator.Options{
		Modes:          config.Modes(),
		Ratings:        ratingRepo,
		Broadcaster:    wsHub,
		Settler:        settler,
		Recorder:       archiveService,
		Pairing:        pairing,
		Logger:         logger.L(),
		RescanInterval: cfg.RescanInterval,
	})
	coordCtx, cancelCoord := context.WithCancel(context.Background())
	coord.Start(coordCtx)
	logger.Info("Coordinator started", "rescanInterval", cfg.RescanInterval)

	// 공유 rate limiter (Redis 없으면 인메모리로 대체)
	var redisLimiter *ratelimit.RedisRateLimiter
	if redisClient != nil {
		redisLimiter = ratelimit.NewRedisRateLimiter(ratelimit.RedisRateLimiterConfig{
			Client:    redisClient,
			KeyPrefix: "ratelimit:enqueue:",
		})
	}

	// Handler 초기화
	authHandler := handlers.NewAuthHandler(playerService, cfg)
	opsHandler := handlers.NewOpsHandler(coord, wsHub)
	queueHandler := handlers.NewQueueHandler(coord)
	partyHandler := handlers.NewPartyHandler(coord)
	matchHandler := handlers.NewMatchHandler(coord, wsHub, historyRepo)
	leaderboardHandler := handlers.NewLeaderboardHandler(ratingRepo)

	// Health check
	router.GET("/health", handlers.HealthCheck)

	// 내부 운영 API (공유 시크릿 인증)
	internal := router.Group("/internal")
	internal.Use(middleware.Internal(token.InternalCredentialFrom(cfg.InternalAPISecret)))
	{
		internal.GET("/stats", opsHandler.Stats)
	}

	// API v1
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Queue routes
		queue := v1.Group("/queue")
		queue.Use(middleware.Auth(cfg))
		{
			queue.POST("/:class",
				middleware.EnqueueRateLimit(redisLimiter, cfg.EnqueueLimit, cfg.EnqueueWindow),
				queueHandler.Enqueue)
			queue.DELETE("", queueHandler.Cancel)
			queue.GET("/assignment", queueHandler.GetAssignment)
		}

		// Party routes
		party := v1.Group("/party")
		party.Use(middleware.Auth(cfg))
		{
			party.POST("", partyHandler.Create)
			party.POST("/join", partyHandler.Join)
		}

		// Match routes
		matches := v1.Group("/matches")
		{
			// WS는 assignment 토큰으로 인증한다 (JWT 아님)
			matches.GET("/:id/ws", matchHandler.HandleWebSocket)
			matches.GET("/:id", matchHandler.GetMatch)
			matches.GET("", matchHandler.ListRecent)
		}

		// Rating routes
		v1.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
		v1.GET("/ratings/me", middleware.Auth(cfg), leaderboardHandler.GetMyRating)
	}

	cleanup := func() {
		cancelCoord()
		coord.Stop()
		if recoveryService != nil {
			recoveryService.Stop()
		}
		if redisClient != nil {
			redisClient.Close()
		}
	}

	return router, cleanup
}
