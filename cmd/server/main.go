package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"taskflow/internal/config"
	"taskflow/internal/database"
	"taskflow/internal/handler"
	"taskflow/internal/job"
	"taskflow/internal/metrics"
	"taskflow/internal/realtime"
	"taskflow/internal/repository"
	"taskflow/internal/router"
	"taskflow/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		panic(err)
	}

	logger := initLogger(cfg.Logger.Level)
	defer logger.Sync()

	db, err := database.New(database.Config{
		DSN:             cfg.Database.GetDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	database.SetDB(db)
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	redisClient, err := database.NewRedis(cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, running single-instance", zap.Error(err))
		redisClient = nil
	}

	m := metrics.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := realtime.NewHub(redisClient, logger, m)
	go hub.Run(ctx)

	boardRepo := repository.NewBoardRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notificationService := service.NewNotificationService(notificationRepo, hub, m, logger)
	boardService := service.NewBoardService(boardRepo, taskRepo, memberRepo, hub, logger)
	taskService := service.NewTaskService(taskRepo, boardRepo, memberRepo, notificationService, hub, m, logger)
	memberService := service.NewMemberService(memberRepo, boardRepo, notificationService, hub, hub, logger)
	commentService := service.NewCommentService(commentRepo, taskRepo, memberRepo, boardRepo, notificationService, hub, logger)

	handlers := router.Handlers{
		Board:        handler.NewBoardHandler(boardService),
		Task:         handler.NewTaskHandler(taskService),
		Comment:      handler.NewCommentHandler(commentService),
		Member:       handler.NewMemberHandler(memberService),
		Notification: handler.NewNotificationHandler(notificationService),
		WS:           handler.NewWSHandler(hub, memberRepo, logger),
		Health:       handler.NewHealthHandler(db),
	}
	engine := router.New(cfg, handlers, m, logger)

	deadlineJob := job.NewDeadlineJob(taskRepo, notificationService, cfg.Scheduler.DueSoonWindow, m, logger)
	scheduler := cron.New()
	if _, err := scheduler.AddJob(cfg.Scheduler.Spec, deadlineJob); err != nil {
		logger.Fatal("Failed to schedule deadline scan", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	// First scan shortly after boot so a restart does not wait a full period
	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(cfg.Scheduler.StartupDelay):
			deadlineJob.Run()
		}
	}()

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("base_path", cfg.Server.BasePath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
}

func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	logger, err := zapConfig.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
