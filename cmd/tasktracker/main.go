package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"task-tracker/internal/api"
	"task-tracker/internal/bot"
	"task-tracker/internal/config"
	"task-tracker/internal/repository"
	"task-tracker/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := repository.NewDB(cfg.DatabaseURL, logger.Named("gorm"))
	if err != nil {
		logger.Fatalw("failed to open database", "dsn", cfg.DatabaseURL, "error", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatalw("failed to access database pool", "error", err)
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	userSvc := service.NewUserService(userRepo)
	taskSvc := service.NewTaskService(taskRepo)
	reminderSvc := service.NewReminderService(taskRepo)

	seeded, err := userSvc.SeedDemoUsers(context.Background())
	if err != nil {
		logger.Fatalw("failed to seed demo users", "error", err)
	}
	if seeded {
		logger.Infow("seeded demo users", "names", repository.DemoUserNames)
	}

	server, err := api.New(api.Deps{
		Tasks: taskSvc,
		Users: userSvc,
		DB:    sqlDB,
		Log:   logger.Named("http"),
	})
	if err != nil {
		logger.Fatalw("failed to build http server", "error", err)
	}

	scheduler := service.NewSchedulerService(time.Local, 30*time.Second, logger.Named("scheduler"))
	if cfg.ReportEnabled() {
		if err := scheduleOverdueDigest(cfg, scheduler, reminderSvc, logger); err != nil {
			logger.Fatalw("failed to schedule overdue digest", "error", err)
		}
		scheduler.Start()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		logger.Infow("task tracker listening", "addr", cfg.HTTPAddr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("http server stopped", "error", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				logger.Info("shutting down http server")
				return srv.Shutdown(ctx)
			},
			"scheduler": func(ctx context.Context) error {
				return scheduler.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	if err := sqlDB.Close(); err != nil {
		logger.Errorw("failed to close database", "error", err)
	}
	logger.Infow("shutdown complete", "exitCode", exitCode)
	_ = logger.Sync()
	os.Exit(exitCode)
}

// scheduleOverdueDigest registers the digest job on an interval, at a fixed
// daily time, or both.
func scheduleOverdueDigest(cfg config.Config, scheduler *service.SchedulerService, reminderSvc *service.ReminderService, logger *zap.SugaredLogger) error {
	var notifier bot.Notifier = bot.NewLogNotifier(logger.Named("digest"))
	if cfg.TelegramToken != "" {
		tg, err := bot.NewTelegramNotifier(bot.TelegramConfig{
			Token:  cfg.TelegramToken,
			ChatID: cfg.TelegramChatID,
		}, logger.Named("telegram"))
		if err != nil {
			return err
		}
		notifier = tg
	}

	reporter := bot.NewReporter(reminderSvc, notifier, logger.Named("digest"))
	job := func(ctx context.Context) error {
		return reporter.SendOverdueDigest(ctx)
	}

	if cfg.ReportInterval > 0 {
		if _, err := scheduler.ScheduleInterval("overdue-digest", cfg.ReportInterval, job); err != nil {
			return err
		}
		logger.Infow("overdue digest scheduled", "every", cfg.ReportInterval.String())
	}
	if cfg.ReportAt != "" {
		if _, err := scheduler.ScheduleDaily("overdue-digest", cfg.ReportAt, job); err != nil {
			return err
		}
		logger.Infow("overdue digest scheduled", "at", cfg.ReportAt)
	}
	return nil
}
