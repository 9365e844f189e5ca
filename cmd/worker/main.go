package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/twitterlite/twitterlite/internal/config"
	"github.com/twitterlite/twitterlite/internal/repository"
	"github.com/twitterlite/twitterlite/internal/services"
	"github.com/twitterlite/twitterlite/internal/workers"
	"github.com/twitterlite/twitterlite/pkg/logger"
	"github.com/twitterlite/twitterlite/pkg/queue"
)

const consumerGroup = "activity-archive-group"

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	logger := logger.NewLoggerWithLevel(cfg.Log.Level)
	logger.Info("Starting Twitter Lite activity worker...")

	// 初始化数据库
	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}

	// 初始化Kafka消费者
	userEventsConsumer := queue.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.UserEvents, consumerGroup)
	tweetEventsConsumer := queue.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.TweetEvents, consumerGroup)

	activityService := services.NewActivityService(repository.NewActivityRepository(db.DB), logger)
	archiveWorker := workers.NewArchiveWorker(activityService, logger, userEventsConsumer, tweetEventsConsumer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	// 启动工作处理器
	go func() {
		defer close(done)
		if err := archiveWorker.Start(ctx); err != nil {
			logger.WithError(err).Error("Archive worker stopped with error")
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-done:
	}

	logger.Info("Shutting down worker...")

	cancel()
	<-done

	if err := archiveWorker.Stop(); err != nil {
		logger.WithError(err).Error("Failed to stop archive worker")
	}

	logger.Info("Worker exited")
}
