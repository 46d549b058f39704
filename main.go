package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"parkease/internal/api"
	"parkease/internal/api/handler"
	"parkease/internal/api/middleware"
	"parkease/internal/cache"
	"parkease/internal/config"
	"parkease/internal/logging"
	"parkease/internal/mailer"
	"parkease/internal/notify"
	"parkease/internal/queue"
	"parkease/internal/repository/postgresql"
	"parkease/internal/scheduler"
	"parkease/internal/service"
)

func main() {
	// 1. Configuration and logging
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Server.LogLevel)
	gin.SetMode(cfg.Server.Mode)
	loc := cfg.Location()

	// 2. Database (migrates on connect)
	db, err := postgresql.NewDB(cfg)
	if err != nil {
		logger.Fatalf("connect database: %v", err)
	}
	defer db.Close()
	logger.Info("database ready")

	// 3. Repositories
	tx := postgresql.NewPgTransactor(db)
	userRepo := postgresql.NewPgUserRepository(db)
	lotRepo := postgresql.NewPgParkingLotRepository(db)
	spotRepo := postgresql.NewPgParkingSpotRepository(db)
	vehicleRepo := postgresql.NewPgVehicleRepository(db)
	sessionRepo := postgresql.NewPgParkingSessionRepository(db)
	appConfigRepo := postgresql.NewPgAppConfigRepository(db)
	jobRepo := postgresql.NewPgJobRepository(db)
	reportRepo := postgresql.NewPgReportRepository(db)

	// 4. Cache and live feed
	responseCache := cache.New(time.Minute)
	ttls := service.CacheTTLs{
		Lots:    time.Duration(cfg.Cache.LotsTTLSeconds) * time.Second,
		History: time.Duration(cfg.Cache.HistoryTTLSeconds) * time.Second,
		Summary: time.Duration(cfg.Cache.SummaryTTLSeconds) * time.Second,
	}

	wsManager := handler.NewWebSocketManager(cfg.Server.AllowedOrigins, logger)
	hubDone := make(chan struct{})
	go wsManager.Start(hubDone)

	// 5. Services
	settingsService := service.NewSettingsService(appConfigRepo, cfg.Reminder.DefaultHour, cfg.Reminder.DefaultMinute, logger)
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWTExpiration(), logger)
	occupancyService := service.NewOccupancyService(tx, lotRepo, spotRepo, vehicleRepo, sessionRepo, responseCache, wsManager, logger)
	inventoryService := service.NewInventoryService(tx, lotRepo, spotRepo, vehicleRepo, userRepo, sessionRepo, responseCache, ttls, logger)
	vehicleService := service.NewVehicleService(vehicleRepo, responseCache, ttls, logger)
	reportService := service.NewReportService(reportRepo, sessionRepo, userRepo, settingsService, responseCache, ttls, loc, logger)
	userService := service.NewUserService(userRepo, sessionRepo, logger)

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 10*time.Second)
	if err := authService.SeedAdmin(seedCtx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.FullName); err != nil {
		logger.WithError(err).Error("could not seed admin account")
	}
	cancelSeed()

	// 6. Task queue and worker
	var awsCfg aws.Config
	if cfg.AWS.SQSTaskQueueURL != "" || cfg.AWS.LPREnabled {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			logger.Fatalf("load AWS config: %v", err)
		}
	}

	worker := notify.NewWorker(reportRepo, userRepo, sessionRepo, jobRepo, reportService, settingsService,
		mailer.NewSMTPSender(cfg.Mail, logger), nil, notify.Options{
			ExportDir:      cfg.Export.Dir,
			ReminderWindow: time.Duration(cfg.Reminder.WindowMinutes) * time.Minute,
			Location:       loc,
		}, logger)

	var wg sync.WaitGroup
	bgCtx, cancelBg := context.WithCancel(context.Background())

	var publisher queue.Publisher
	var localQueue *queue.LocalQueue
	if cfg.AWS.SQSTaskQueueURL != "" {
		sqsClient := sqs.NewFromConfig(awsCfg)
		publisher = queue.NewSQSPublisher(sqsClient, cfg.AWS.SQSTaskQueueURL)
		consumer := queue.NewSQSConsumer(sqsClient, cfg.AWS.SQSTaskQueueURL, worker, logger)
		for i := 0; i < cfg.Worker.Concurrency; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				consumer.Start(bgCtx)
			}()
		}
	} else {
		logger.Warn("aws.sqs_task_queue_url not set, running tasks in-process")
		localQueue = queue.NewLocalQueue(cfg.Worker.QueueSize, cfg.Worker.Concurrency, logger)
		localQueue.Start(bgCtx, worker)
		publisher = localQueue
	}
	worker.SetPublisher(publisher)

	exportService := service.NewExportService(jobRepo, publisher, cfg.Export.Dir, logger)
	notificationService := service.NewNotificationService(publisher, settingsService, loc, logger)

	// 7. Scheduler
	cronService := scheduler.NewCronService(notificationService, worker,
		time.Duration(cfg.Export.RetentionHrs)*time.Hour, loc, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("start scheduler: %v", err)
	}

	// 8. HTTP
	handlers := api.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Parking:   handler.NewParkingHandler(occupancyService, inventoryService, vehicleService, reportService, exportService),
		Lots:      handler.NewParkingLotHandler(inventoryService),
		Admin:     handler.NewAdminHandler(userService, reportService, settingsService, notificationService),
		WebSocket: handler.NewWebSocketHandler(wsManager),
	}
	if cfg.AWS.LPREnabled {
		lprService := service.NewLPRService(rekognition.NewFromConfig(awsCfg), occupancyService, logger)
		handlers.LPR = handler.NewLPRHandler(lprService)
	}
	authMiddleware := middleware.NewAuthMiddleware(authService, logger)
	router := api.SetupRouter(handlers, authMiddleware, cfg.Server.AllowedOrigins, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("ListenAndServe: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shut down")
	}

	cronService.Stop()
	if localQueue != nil {
		localQueue.Close()
	}
	cancelBg()

	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn("task consumers did not stop in time")
	}
	close(hubDone)

	logger.Info("server stopped")
}
