package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "bookinventory/api/swagger" // swagger docs
	"bookinventory/internal/audit"
	"bookinventory/internal/auth"
	"bookinventory/internal/config"
	"bookinventory/internal/database"
	"bookinventory/internal/handler"
	"bookinventory/internal/logger"
	"bookinventory/internal/metrics"
	"bookinventory/internal/middleware"
	"bookinventory/internal/repository"
	"bookinventory/internal/service"
	"bookinventory/internal/storage"
	"bookinventory/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Book Inventory API
// @version         1.0
// @description     Inventory management for books, authors, publishers and genres.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	zl, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("Logger setup failed: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.Database.DSN(), zl)
	if err != nil {
		zl.Fatal("database connection failed", zap.Error(err))
	}
	zl.Info("connected to PostgreSQL", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Name))

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := service.RegisterValidators(v); err != nil {
			zl.Fatal("failed to register validators", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Audit recorder, dead letters go to Redis when it is reachable
	deadLetter, redisDeadLetter := newDeadLetter(ctx, cfg.Redis, zl)
	auditRepo := repository.NewAuditRepository(db)
	recorder := audit.NewRecorder(auditRepo, zl.Named("audit"), audit.Options{
		Workers:      cfg.Audit.Workers,
		QueueSize:    cfg.Audit.QueueSize,
		MaxAttempts:  cfg.Audit.MaxAttempts,
		RetryBackoff: cfg.Audit.RetryBackoff,
		DeadLetter:   deadLetter,
		Counters:     metrics.NewAuditCounters(registry),
	})
	if redisDeadLetter != nil {
		if n, err := redisDeadLetter.Replay(ctx, recorder, int64(cfg.Audit.QueueSize)); err != nil {
			zl.Warn("audit dead letter replay failed", zap.Error(err))
		} else if n > 0 {
			zl.Info("replayed audit dead letters", zap.Int("count", n))
		}
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(zl.Named("ws"))
	hubCtx, stopHub := context.WithCancel(context.Background())
	go wsHub.Run(hubCtx)

	images := newImageStore(cfg.Storage, zl)
	issuer := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	// Set up dependencies (Repository -> Service -> Handler)
	userRepo := repository.NewUserRepository(db)
	authorRepo := repository.NewAuthorRepository(db)
	publisherRepo := repository.NewPublisherRepository(db)
	genreRepo := repository.NewGenreRepository(db)

	authService := service.NewAuthService(userRepo, issuer)
	userService := service.NewUserService(userRepo)
	authorService := service.NewAuthorService(authorRepo)
	publisherService := service.NewPublisherService(publisherRepo)
	genreService := service.NewGenreService(genreRepo)
	auditService := service.NewAuditService(auditRepo)
	bookRepo := repository.NewBookRepository(db)
	inventoryLogRepo := repository.NewInventoryLogRepository(db)
	txManager := repository.NewTransactionManager(db)
	bookService := service.NewBookService(
		bookRepo,
		inventoryLogRepo,
		service.NewRelationValidator(authorRepo, publisherRepo, genreRepo),
		txManager,
		images,
		wsHub,
		zl.Named("books"),
	)
	inventoryService := service.NewInventoryService(bookRepo, inventoryLogRepo, txManager, wsHub, zl.Named("inventory"))
	statisticsService := service.NewStatisticsService(repository.NewStatisticsRepository(db))

	// Set up Gin Router
	router := gin.New()
	router.Use(middleware.RequestLogger(zl.Named("http")), middleware.Recovery(zl), metrics.HTTPMiddleware(registry))
	handler.RegisterFallbacks(router)

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", middleware.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	router.GET("/metrics", metrics.Handler(registry))

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, issuer, c)
	})

	// API Routing
	handler.RegisterRoutes(router.Group(""), recorder, zl.Named("audit"),
		handler.NewAuthHandler(authService, issuer, middleware.NewIPRateLimiter(cfg.AuthRateLimitPerMinute), zl),
		handler.NewUserHandler(userService, issuer, zl),
		handler.NewBookHandler(bookService, issuer, zl, cfg.MaxUploadBytes),
		handler.NewAuthorHandler(authorService, issuer, zl),
		handler.NewPublisherHandler(publisherService, issuer, zl),
		handler.NewGenreHandler(genreService, issuer, zl),
		handler.NewInventoryHandler(inventoryService, issuer, zl),
		handler.NewStatisticsHandler(statisticsService, issuer, zl),
		handler.NewAuditHandler(auditService, issuer, zl),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("http shutdown failed", zap.Error(err))
	}
	stopHub()
	if err := recorder.Close(shutdownCtx); err != nil {
		zl.Error("audit queue not drained", zap.Error(err))
	}
}

// newDeadLetter picks the Redis stream sink when REDIS_ADDR answers and the
// log sink otherwise.
func newDeadLetter(ctx context.Context, cfg config.RedisConfig, zl *zap.Logger) (audit.DeadLetter, *audit.RedisDeadLetter) {
	if cfg.Addr == "" {
		return audit.NewLogDeadLetter(zl), nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		zl.Warn("redis unavailable, audit dead letters go to the log", zap.String("addr", cfg.Addr), zap.Error(err))
		_ = client.Close()
		return audit.NewLogDeadLetter(zl), nil
	}

	sink := audit.NewRedisDeadLetter(client, cfg.Stream, zl)
	return sink, sink
}

func newImageStore(cfg config.StorageConfig, zl *zap.Logger) storage.ImageStore {
	if cfg.Endpoint == "" {
		zl.Warn("MINIO_ENDPOINT not set, book images are kept in memory")
		return storage.NewMemoryImageStore("/images")
	}
	store, err := storage.NewMinioImageStore(cfg)
	if err != nil {
		zl.Fatal("object storage setup failed", zap.Error(err))
	}
	return store
}
