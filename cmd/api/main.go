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
	"github.com/social-system/social-system/internal/config"
	"github.com/social-system/social-system/internal/handlers"
	"github.com/social-system/social-system/internal/middleware"
	"github.com/social-system/social-system/internal/repository"
	"github.com/social-system/social-system/internal/services"
	"github.com/social-system/social-system/internal/workers"
	"github.com/social-system/social-system/pkg/cache"
	"github.com/social-system/social-system/pkg/files"
	"github.com/social-system/social-system/pkg/hub"
	"github.com/social-system/social-system/pkg/logger"
	"github.com/social-system/social-system/pkg/queue"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	logger := logger.NewLogger(cfg.Log.Level)
	logger.Info("Starting Social System API server...")

	// 初始化数据库
	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// 自动迁移数据库表
	if err := db.AutoMigrate(); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}

	// 初始化Redis缓存
	redisClient := cache.NewRedisClient(
		cfg.Redis.Addr(),
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
		cfg.Redis.MinIdleConns,
	)
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}

	// 初始化Kafka生产者（outbox调度器独占投递）
	producer := queue.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.InteractionEvents)
	defer producer.Close()

	// 初始化附件存储
	fileStore, err := files.NewStore(cfg.Files.UploadDir, cfg.Files.BaseURL)
	if err != nil {
		logger.WithError(err).Fatal("Failed to init file store")
	}

	// 初始化仓库
	profileRepo := repository.NewProfileRepository(db.DB)
	followRepo := repository.NewFollowRepository(db.DB)
	tweetRepo := repository.NewTweetRepository(db.DB)
	genreRepo := repository.NewGenreRepository(db.DB)
	commentRepo := repository.NewCommentRepository(db.DB)
	likeRepo := repository.NewLikeRepository(db.DB)
	notificationRepo := repository.NewNotificationRepository(db.DB)
	outboxRepo := repository.NewOutboxRepository(db.DB)

	// 初始化实时扇出与在线状态
	wsHub := hub.NewHub(logger)
	presenceService := services.NewPresenceService(redisClient, cfg.Push.PresenceTTL, logger)

	// 初始化服务
	actor := services.NewActorResolver(profileRepo)
	notificationService := services.NewNotificationService(actor, notificationRepo, outboxRepo, presenceService, wsHub, logger, cfg.Server.BaseURL)
	profileService := services.NewProfileService(actor, profileRepo, logger)
	followService := services.NewFollowService(db.DB, actor, followRepo, profileRepo, outboxRepo, notificationService, wsHub, logger)
	tweetService := services.NewTweetService(db.DB, actor, tweetRepo, commentRepo, likeRepo, profileRepo, genreRepo, outboxRepo, fileStore, logger)
	commentService := services.NewCommentService(db.DB, actor, tweetRepo, commentRepo, likeRepo, outboxRepo, notificationService, wsHub, fileStore, logger)
	likeService := services.NewLikeService(db.DB, actor, likeRepo, tweetRepo, commentRepo, outboxRepo, notificationService, wsHub, logger)

	// 初始化outbox调度器
	outboxWorker := workers.NewOutboxWorker(outboxRepo, producer, cfg.Push.OutboxInterval, cfg.Push.OutboxBatchSize, logger)
	go func() {
		if err := outboxWorker.Start(ctx); err != nil && err != context.Canceled {
			logger.WithError(err).Error("Outbox worker stopped with error")
		}
	}()

	// 初始化处理器
	jwtExpireSeconds := int64(cfg.JWT.ExpireTime / time.Second)
	profileHandler := handlers.NewProfileHandler(profileService, followService, cfg.JWT.Secret, jwtExpireSeconds)
	tweetHandler := handlers.NewTweetHandler(tweetService)
	commentHandler := handlers.NewCommentHandler(commentService)
	likeHandler := handlers.NewLikeHandler(likeService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	fileHandler := handlers.NewFileHandler(fileStore, logger)
	wsHandler := handlers.NewWSHandler(wsHub, presenceService, logger)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())

	// 添加CORS中间件
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	// 静态附件
	router.Static("/uploads", cfg.Files.UploadDir)

	jwtConfig := &middleware.JWTConfig{Secret: cfg.JWT.Secret}

	// API路由
	api := router.Group("/api/v1")
	{
		// 公开路由
		api.POST("/profiles/register", profileHandler.Register)
		api.POST("/profiles/login", profileHandler.Login)

		// 匿名可读，带token则附观察者标注
		public := api.Group("")
		public.Use(middleware.NewOptionalJWTAuth(jwtConfig))
		{
			public.GET("/profiles/:id", profileHandler.GetProfile)
			public.GET("/profiles/:id/followers", profileHandler.GetFollowers)
			public.GET("/profiles/:id/following", profileHandler.GetFollowing)
			public.GET("/profiles/:id/tweets", tweetHandler.GetProfileTweets)
			public.GET("/tweets", tweetHandler.GetTweets)
			public.GET("/tweets/:id", tweetHandler.GetTweet)
			public.GET("/tweets/:id/comments", commentHandler.GetTweetComments)
			public.GET("/tweets/:id/likes", likeHandler.GetTweetLikes)
			public.GET("/comments/:id/replies", commentHandler.GetReplies)
			public.GET("/comments/:id/likes", likeHandler.GetCommentLikes)
			public.GET("/genres", tweetHandler.GetGenres)
		}

		// 需要认证的路由
		protected := api.Group("")
		protected.Use(middleware.NewJWTAuth(jwtConfig))
		{
			protected.PUT("/profiles/me", profileHandler.UpdateProfile)
			protected.POST("/profiles/:id/follow", profileHandler.Follow)
			protected.DELETE("/profiles/:id/follow", profileHandler.Unfollow)

			protected.POST("/tweets", tweetHandler.CreateTweet)
			protected.PUT("/tweets/:id", tweetHandler.UpdateTweet)
			protected.DELETE("/tweets/:id", tweetHandler.DeleteTweet)
			protected.POST("/tweets/:id/like", likeHandler.LikeTweet)
			protected.DELETE("/tweets/:id/like", likeHandler.UnlikeTweet)
			protected.POST("/tweets/:id/comments", commentHandler.CreateComment)

			protected.PUT("/comments/:id", commentHandler.UpdateComment)
			protected.DELETE("/comments/:id", commentHandler.DeleteComment)
			protected.POST("/comments/:id/like", likeHandler.LikeComment)
			protected.DELETE("/comments/:id/like", likeHandler.UnlikeComment)

			protected.GET("/notifications", notificationHandler.List)
			protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
			protected.PUT("/notifications/:id/read", notificationHandler.MarkRead)
			protected.PUT("/notifications/read-all", notificationHandler.MarkAllRead)

			protected.POST("/genres", tweetHandler.CreateGenre)
			protected.POST("/files", fileHandler.Upload)

			protected.GET("/ws", wsHandler.Serve)
		}
	}

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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	if err := outboxWorker.Stop(); err != nil {
		logger.WithError(err).Error("Failed to stop outbox worker")
	}

	logger.Info("Server exited")
}

func init() {
	// 创建必要的目录
	dirs := []string{"logs", "uploads", "configs"}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("Failed to create directory %s: %v", dir, err)
		}
	}

	// 创建默认配置文件（如果不存在）
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
  base_url: "http://localhost:8080"
  read_timeout: 30s
  write_timeout: 30s

database:
  host: "localhost"
  port: 5432
  user: "socialuser"
  password: "socialpass"
  dbname: "socialsystem"
  sslmode: "disable"
  max_open_conns: 100
  max_idle_conns: 10

redis:
  host: "localhost"
  port: 6379
  password: ""
  db: 0
  pool_size: 100
  min_idle_conns: 10

kafka:
  brokers:
    - "localhost:9092"
  topics:
    interaction_events: "interaction-events"

jwt:
  secret: "your-secret-key-change-in-production"
  expire_time: 24h

files:
  upload_dir: "uploads"
  base_url: "http://localhost:8080/uploads"

push:
  presence_ttl: 2m
  outbox_interval: 1s
  outbox_batch_size: 100

log:
  level: "info"`

	return os.WriteFile(path, []byte(defaultConfig), 0644)
}
