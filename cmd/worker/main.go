package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/social-system/social-system/internal/config"
	"github.com/social-system/social-system/internal/workers"
	"github.com/social-system/social-system/pkg/cache"
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
	logger.Info("Starting Social System Worker...")

	// 初始化Redis缓存
	redisClient := cache.NewRedisClient(
		cfg.Redis.Addr(),
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
		cfg.Redis.MinIdleConns,
	)
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := redisClient.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}

	// 初始化Kafka消费者
	consumer := queue.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.InteractionEvents, "counter-worker-group")

	// 初始化计数镜像工作器
	counterWorker := workers.NewCounterWorker(redisClient, consumer, logger)

	go func() {
		if err := counterWorker.Start(ctx); err != nil && err != context.Canceled {
			logger.WithError(err).Error("Counter worker stopped with error")
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()

	if err := counterWorker.Stop(); err != nil {
		logger.WithError(err).Error("Failed to stop counter worker")
	}

	logger.Info("Worker exited")
}
