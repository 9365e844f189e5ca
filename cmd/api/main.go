package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	"github.com/twitterlite/twitterlite/internal/config"
	"github.com/twitterlite/twitterlite/internal/handlers"
	"github.com/twitterlite/twitterlite/internal/middleware"
	"github.com/twitterlite/twitterlite/internal/repository"
	"github.com/twitterlite/twitterlite/internal/services"
	"github.com/twitterlite/twitterlite/pkg/cache"
	"github.com/twitterlite/twitterlite/pkg/logger"
	"github.com/twitterlite/twitterlite/pkg/metrics"
	"github.com/twitterlite/twitterlite/pkg/queue"
	"github.com/twitterlite/twitterlite/pkg/storage"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	logger := logger.NewLoggerWithLevel(cfg.Log.Level)
	logger.Info("Starting Twitter Lite API server...")

	ctx := context.Background()

	// 初始化Redis
	redisClient := cache.NewRedisClient(
		cfg.Redis.Addr(),
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
		cfg.Redis.MinIdleConns,
	)
	defer redisClient.Close()

	if err := redisClient.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}

	// 初始化对象存储，未配置endpoint时使用进程内存储
	var store storage.ObjectStore
	if cfg.ObjectStore.Endpoint != "" {
		s3Client, err := storage.NewS3Client(ctx, storage.S3Options{
			Endpoint:  cfg.ObjectStore.Endpoint,
			AccessKey: cfg.ObjectStore.AccessKey,
			SecretKey: cfg.ObjectStore.SecretKey,
			Bucket:    cfg.ObjectStore.Bucket,
			Region:    cfg.ObjectStore.Region,
			UseSSL:    cfg.ObjectStore.UseSSL,
		})
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize object store")
		}
		store = s3Client
	} else {
		logger.Warn("object_store.endpoint is not set, images are kept in memory")
		store = storage.NewMemoryStore("memory://" + cfg.ObjectStore.Bucket)
	}

	// 初始化Kafka生产者
	var userEvents, tweetEvents queue.Publisher = queue.NopPublisher{}, queue.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		userEventsProducer := queue.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.UserEvents)
		defer userEventsProducer.Close()
		tweetEventsProducer := queue.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.TweetEvents)
		defer tweetEventsProducer.Close()
		userEvents, tweetEvents = userEventsProducer, tweetEventsProducer
	}

	// 归档库可选
	var activityService *services.ActivityService
	if cfg.Database.Host != "" {
		db, err := repository.NewDatabase(&cfg.Database)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()

		if err := db.AutoMigrate(); err != nil {
			logger.WithError(err).Fatal("Failed to migrate database")
		}
		activityService = services.NewActivityService(repository.NewActivityRepository(db.DB), logger)
	}

	// 初始化仓库
	sessionRepo := repository.NewSessionRepository(redisClient)
	userRepo := repository.NewUserRepository(redisClient)
	followRepo := repository.NewFollowRepository(redisClient)
	tweetRepo := repository.NewTweetRepository(redisClient)

	// 初始化服务
	revoker := services.NewHTTPRevoker(cfg.Identity.RevokeURL, 10*time.Second)
	verifier := services.NewIdentityVerifier(cfg.Identity.Secret, cfg.Identity.Issuer, cfg.Identity.Audience)
	sessionService := services.NewSessionService(sessionRepo, userRepo)
	authService := services.NewAuthService(userRepo, sessionRepo, revoker, userEvents, logger)
	userService := services.NewUserService(userRepo, followRepo, userEvents, logger)
	tweetService := services.NewTweetService(tweetRepo, store, tweetEvents, logger, cfg.ObjectStore.PresignExpiry)
	timelineService := services.NewTimelineService(tweetRepo, userRepo, tweetService)

	// 会话cookie
	secret := []byte(cfg.Session.Secret)
	if len(secret) == 0 {
		logger.Warn("session.secret is not set, generating a random key; sessions will not survive restarts")
		secret = securecookie.GenerateRandomKey(32)
	}
	sessions := middleware.NewSessionStore(cfg.Session.CookieName, secret, cfg.Session.MaxAge, cfg.Server.Mode == "release")

	m := metrics.NewMetrics()

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(&handlers.RouterDeps{
		MaxContentLength: cfg.Server.MaxContentLength,
		Sessions:         sessions,
		SessionService:   sessionService,
		Auth:             handlers.NewAuthHandler(authService, verifier, sessions, m, logger),
		Users:            handlers.NewUserHandler(userService, sessionService, timelineService, activityService, m, logger),
		Tweets:           handlers.NewTweetHandler(tweetService, userService, cfg.Server.MaxContentLength, m, logger),
		Metrics:          m,
		Logger:           logger,
	})

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func init() {
	// 创建默认配置文件（如果不存在）
	if err := os.MkdirAll("configs", 0755); err != nil {
		log.Printf("Failed to create directory configs: %v", err)
	}

	configPath := "configs/config.yaml"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := createDefaultConfig(configPath); err != nil {
			log.Printf("Failed to create default config: %v", err)
		}
	}
}

func createDefaultConfig(path string) error {
	defaultConfig := `server:
  port: ":8080"
  mode: "debug"
  read_timeout: 30s
  write_timeout: 30s
  max_content_length: 5242880

redis:
  host: "localhost"
  port: 6379
  password: ""
  db: 0
  pool_size: 100
  min_idle_conns: 10

object_store:
  endpoint: "localhost:9000"
  access_key: "minioadmin"
  secret_key: "minioadmin"
  bucket: "twitter-images"
  region: "us-east-1"
  use_ssl: false
  presign_expiry: 1h

session:
  cookie_name: "twitter"
  secret: "change-me-to-a-32-byte-secret-key"
  max_age: 604800

identity:
  secret: "shared-secret-with-oauth-gateway"
  issuer: ""
  audience: ""
  revoke_url: "https://oauth2.googleapis.com/revoke"

kafka:
  brokers:
    - "localhost:9092"
  topics:
    user_events: "user-events"
    tweet_events: "tweet-events"

database:
  host: "localhost"
  port: 5432
  user: "twitter"
  password: "twitter"
  dbname: "twitter_activity"
  sslmode: "disable"
  max_open_conns: 20
  max_idle_conns: 5

log:
  level: "info"`

	return os.WriteFile(path, []byte(defaultConfig), 0644)
}
