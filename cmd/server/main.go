package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/staycert-backend/config"
	"github.com/ikkim/staycert-backend/internal/app/controller"
	"github.com/ikkim/staycert-backend/internal/app/repository"
	"github.com/ikkim/staycert-backend/internal/app/service"
	"github.com/ikkim/staycert-backend/internal/badge"
	"github.com/ikkim/staycert-backend/internal/db"
	"github.com/ikkim/staycert-backend/internal/metrics"
	"github.com/ikkim/staycert-backend/internal/middleware"
	"github.com/ikkim/staycert-backend/internal/router"
	"github.com/ikkim/staycert-backend/internal/scheduler"
	"github.com/ikkim/staycert-backend/internal/storage"
	"github.com/ikkim/staycert-backend/internal/websocket"
	"github.com/ikkim/staycert-backend/pkg/logger"
	"github.com/ikkim/staycert-backend/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting STAYCERT Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}
	if err := db.Seed(); err != nil {
		logger.Warn("Failed to seed database", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Redis is optional; notifications still persist and reach local websocket sessions without it.
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Warn("Continuing without Redis", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	defer redis.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	hub := websocket.NewHub()
	s3Storage := storage.NewS3Storage(
		cfg.S3.Region,
		cfg.S3.Bucket,
		cfg.S3.AccessKeyID,
		cfg.S3.SecretAccessKey,
		cfg.S3.BaseURL,
	)

	database := db.GetDB()
	userRepo := repository.NewUserRepository(database)
	propertyTypeRepo := repository.NewPropertyTypeRepository(database)
	appRepo := repository.NewApplicationRepository(database)
	checklistRepo := repository.NewChecklistRepository(database)
	templateRepo := repository.NewTemplateRepository(database)
	certRepo := repository.NewCertificationRepository(database)

	notificationService := service.NewNotificationService(repository.NewNotificationRepository(database), hub)
	auditService := service.NewAuditService(repository.NewAuditRepository(database))
	documentService := service.NewDocumentService(repository.NewDocumentRepository(database))
	paymentService := service.NewPaymentService(repository.NewPaymentRepository(database), appRepo)
	catalogueService := service.NewCatalogueService(propertyTypeRepo)
	templateService := service.NewTemplateService(templateRepo, propertyTypeRepo, auditService)

	var badges service.BadgeGenerator
	if cfg.Certification.BadgeEnabled {
		badges = badge.NewGenerator(s3Storage)
	}

	issuer := service.NewCertificationIssuer(
		appRepo,
		templateRepo,
		certRepo,
		documentService,
		paymentService,
		badges,
		notificationService,
		auditService,
		m,
		service.IssuerConfig{VerificationBaseURL: cfg.Certification.VerificationBaseURL},
	)
	applicationService := service.NewApplicationService(
		appRepo,
		propertyTypeRepo,
		checklistRepo,
		userRepo,
		documentService,
		notificationService,
		auditService,
		m,
	)
	reviewService := service.NewReviewService(
		appRepo,
		userRepo,
		documentService,
		issuer,
		notificationService,
		auditService,
		m,
	)
	certificationService := service.NewCertificationService(
		certRepo,
		appRepo,
		notificationService,
		auditService,
		m,
		service.LifecycleConfig{
			DefaultValidityMonths: cfg.Certification.DefaultValidityMonths,
			ExpiryWarningDays:     cfg.Certification.ExpiryWarningDays,
		},
	)

	r := router.NewRouter(
		controller.NewApplicationController(applicationService, paymentService),
		controller.NewReviewController(reviewService, issuer),
		controller.NewCertificationController(certificationService),
		controller.NewTemplateController(templateService, catalogueService),
		controller.NewNotificationController(notificationService, hub, cfg.CORS.AllowedOrigins),
		controller.NewUploadController(s3Storage, applicationService),
		middleware.NewAuthMiddleware(cfg.JWT.Secret),
		prometheus.DefaultGatherer,
		cfg,
	)

	expiry := scheduler.NewExpiryScheduler(
		certificationService,
		cfg.Certification.ExpirySweepCron,
		cfg.Certification.ExpiryWarningDays,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		if err := expiry.Start(); err != nil {
			return err
		}
		<-gctx.Done()
		expiry.Stop()
		return nil
	})

	g.Go(func() error {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server exited with error", err)
		return
	}
	logger.Info("Server stopped successfully")
}
