package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quocanhngo/chatcore/internal/config"
	"github.com/quocanhngo/chatcore/internal/handler"
	"github.com/quocanhngo/chatcore/internal/middleware"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/realtime"
	"github.com/quocanhngo/chatcore/internal/repository"
	"github.com/quocanhngo/chatcore/internal/service"
	"github.com/quocanhngo/chatcore/migrations"
	"github.com/quocanhngo/chatcore/pkg/auth"
	"github.com/quocanhngo/chatcore/pkg/logger"
	"github.com/quocanhngo/chatcore/pkg/notification"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// @title           Chatcore API
// @version         1.0
// @description     Conversation and messaging API with Go, Gin, WebSocket and Redis/NATS fan-out.

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      api.localhost
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL and the in-process realtime broker")
	migrateOnly := flag.Bool("migrate", false, "run database migrations and exit")
	flag.Parse()

	// ==================== Load Config ====================
	cfg, warnings := config.Load()
	if *dev {
		cfg.Realtime.Broker = "local"
	}

	log, err := logger.NewForEnv(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	for _, w := range warnings {
		log.Warn(w)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	log.Info("starting chatcore API server", zap.String("env", cfg.App.Env), zap.String("broker", cfg.Realtime.Broker))

	// ==================== Embedded PostgreSQL (dev) ====================
	if *dev {
		pg, err := startEmbeddedPostgres(&cfg.DB, log)
		if err != nil {
			log.Fatal("embedded postgres", zap.Error(err))
		}
		defer func() {
			log.Info("stopping embedded postgres")
			if err := pg.Stop(); err != nil {
				log.Error("embedded postgres stop", zap.Error(err))
			}
		}()
	}

	// ==================== Database (PostgreSQL) ====================
	gormLog := gormlogger.Default.LogMode(gormlogger.Info)
	if cfg.App.IsProduction() {
		gormLog = gormlogger.Default.LogMode(gormlogger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	log.Info("connected to PostgreSQL")

	// ==================== Run Migrations ====================
	if err := migrations.Run(cfg.DB.URL(), log); err != nil {
		if cfg.App.IsProduction() {
			log.Fatal("migration failed", zap.Error(err))
		}
		log.Warn("migration failed, falling back to GORM AutoMigrate", zap.Error(err))
		if err := db.AutoMigrate(
			&model.User{},
			&model.UserDevice{},
			&model.ConversationRecord{},
			&model.ConversationMember{},
			&model.Message{},
			&model.ReadStatus{},
		); err != nil {
			log.Fatal("failed to migrate database", zap.Error(err))
		}
	}
	if *migrateOnly {
		return
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// ==================== Redis ====================
	var rdb *redis.Client
	if cfg.Realtime.Broker == "redis" || !*dev {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if _, err := rdb.Ping(rootCtx).Result(); err != nil {
			log.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer rdb.Close()
		log.Info("connected to Redis")
	}

	// ==================== Realtime Broker ====================
	broker, err := newBroker(cfg, rdb, log)
	if err != nil {
		log.Fatal("realtime broker", zap.Error(err))
	}
	defer broker.Close()

	// ==================== Initialize Layers ====================
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry, auth.WithLeeway(cfg.JWT.Leeway))
	var revoked middleware.RevocationChecker
	if rdb != nil {
		revoked = auth.NewRedisRevocations(rdb)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)

	// Realtime
	hub := realtime.NewHub(broker, log)
	gateway := realtime.NewGateway(broker, cfg.Realtime.QueueSize, log)

	// Push notifications (nil disables)
	var notifier service.Notifier
	if fcm := notification.NewFCMNotifier(rootCtx, cfg.Firebase.CredentialsFile, userRepo, hub, log); fcm != nil {
		notifier = fcm
	}

	// Services
	convService := service.NewConversationService(convRepo, msgRepo, userRepo, log)
	msgService := service.NewMessageService(convRepo, msgRepo, userRepo, gateway, notifier, log)
	typingService := service.NewTypingService(convRepo, userRepo, gateway)
	deviceService := service.NewDeviceService(userRepo)

	authorizer := realtime.NewAuthorizer(convService, log)

	// Handlers
	routes := handler.Routes{
		Conversations: handler.NewConversationHandler(convService),
		Messages:      handler.NewMessageHandler(msgService, typingService),
		Devices:       handler.NewDeviceHandler(deviceService),
		Broadcast:     handler.NewBroadcastHandler(authorizer),
	}
	wsHandler := handler.NewWSHandler(hub, authorizer, typingService, jwtManager, revoked, cfg.CORS.Origins, log)

	// Start realtime workers
	go gateway.Run(rootCtx)
	go func() {
		if err := hub.Run(rootCtx); err != nil {
			log.Error("hub stopped", zap.Error(err))
		}
	}()

	// ==================== Gin Router ====================
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestLogger(log), middleware.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))

	// swagger.json lives outside the /swagger/* wildcard
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.json")))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"service": "chatcore-api",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// ==================== API Routes ====================
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(jwtManager, revoked))
	routes.Register(api)

	// WebSocket endpoint (auth via query parameter)
	router.GET("/ws", wsHandler.HandleWebSocket)

	// ==================== Start Server ====================
	var h http.Handler = router
	if cfg.RateLimit.Requests > 0 {
		h = middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window)(router)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	log.Info("chatcore API running",
		zap.String("addr", "http://0.0.0.0:"+cfg.App.Port),
		zap.String("docs", "/swagger/index.html"),
		zap.String("websocket", "/ws?token=<jwt>"),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	// Stops the hub and flushes the gateway queue
	rootCancel()
	log.Info("server exited gracefully")
}

func newBroker(cfg *config.Config, rdb *redis.Client, log *logger.Logger) (realtime.Broker, error) {
	switch cfg.Realtime.Broker {
	case "nats":
		b, err := realtime.ConnectNATS(cfg.NATS.URL, log)
		if err != nil {
			return nil, err
		}
		log.Info("connected to NATS", zap.String("url", cfg.NATS.URL))
		return b, nil
	case "local":
		log.Warn("using the in-process realtime broker, events stay on this instance")
		return realtime.NewLocalBroker(), nil
	default:
		return realtime.NewRedisBroker(rdb, cfg.Realtime.RedisChannel, log), nil
	}
}

// startEmbeddedPostgres runs a throwaway PostgreSQL and points db at it
func startEmbeddedPostgres(db *config.DBConfig, log *logger.Logger) (*embeddedpostgres.EmbeddedPostgres, error) {
	port, err := strconv.Atoi(db.Port)
	if err != nil {
		return nil, fmt.Errorf("DB_PORT %q: %w", db.Port, err)
	}

	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pgdata dir: %w", err)
	}

	pg := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(uint32(port)).
			Username(db.User).
			Password(db.Password).
			Database(db.Name).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "chatcore-embedded-pg")),
	)

	log.Info("starting embedded PostgreSQL")
	if err := pg.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	db.Host = "localhost"
	db.SSLMode = "disable"
	log.Info("embedded PostgreSQL running", zap.Int("port", port))
	return pg, nil
}
