package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edulink/admin-api/api/swagger"
	"github.com/edulink/admin-api/internal/handler"
	"github.com/edulink/admin-api/internal/middleware"
	"github.com/edulink/admin-api/internal/models"
	"github.com/edulink/admin-api/internal/repository"
	"github.com/edulink/admin-api/internal/service"
	"github.com/edulink/admin-api/pkg/cache"
	"github.com/edulink/admin-api/pkg/config"
	"github.com/edulink/admin-api/pkg/database"
	"github.com/edulink/admin-api/pkg/logger"
	"github.com/edulink/admin-api/pkg/mailer"
	corsmiddleware "github.com/edulink/admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edulink/admin-api/pkg/middleware/requestid"
)

// @title EduLink Admin API
// @version 1.0.0
// @description Approval workflow and catalog administration for the EduLink platform
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching and dedup degraded", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	mentorshipRepo := repository.NewMentorshipRepository(db)
	guestBookingRepo := repository.NewGuestBookingRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	revenueRepo := repository.NewRevenueRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	var mail mailer.Mailer
	if cfg.Mailer.Provider == "sendgrid" && cfg.Mailer.APIKey != "" {
		mail = mailer.NewSendGrid(cfg.Mailer.APIKey, cfg.Mailer.FromName, cfg.Mailer.FromEmail)
	} else {
		mail = mailer.NewConsole(logr)
	}

	metricsSvc := service.NewMetricsService()

	dispatcher := service.NewEffectDispatcher(
		cacheRepo,
		revenueRepo,
		userRepo,
		mail,
		service.NewManualCalendar(logr),
		metricsSvc,
		logr,
		service.DispatcherConfig{
			Workers:    cfg.Effects.Workers,
			BufferSize: cfg.Effects.BufferSize,
			MaxRetries: cfg.Effects.MaxRetries,
			RetryDelay: cfg.Effects.RetryDelay,
			DedupTTL:   cfg.Effects.DedupTTL,
		},
	)
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	dispatcher.Start(dispatcherCtx)

	// Services.
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "edulink-admin-api",
	})
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, dispatcher, userRepo, cacheRepo, metricsSvc, validate, logr)
	mentorshipSvc := service.NewMentorshipService(mentorshipRepo, dispatcher, userRepo, cacheRepo, metricsSvc, service.MentorshipPricing{
		SessionPriceCents:      cfg.Mentorship.SessionPriceCents,
		DefaultDurationMinutes: cfg.Mentorship.DefaultDurationMinutes,
	}, validate, logr)
	guestBookingSvc := service.NewGuestBookingService(guestBookingRepo, dispatcher, userRepo, cacheRepo, metricsSvc, cfg.GuestBookings.SessionPriceCents, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, userRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(analyticsRepo, revenueRepo, userRepo, cacheRepo, metricsSvc, logr, cfg.Dashboard.CacheTTL)
	exportSvc := service.NewExportService(enrollmentRepo, guestBookingRepo, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	mentorshipHandler := handler.NewMentorshipHandler(mentorshipSvc)
	guestBookingHandler := handler.NewGuestBookingHandler(guestBookingSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)

	// Visitors create guest bookings without a session.
	api.POST("/guest-bookings", guestBookingHandler.Create)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	protected.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleOperator))

	protected.GET("/enrollments", enrollmentHandler.List)
	protected.POST("/enrollments", enrollmentHandler.Create)
	protected.PUT("/enrollments/:id/approve", enrollmentHandler.Approve)
	protected.PUT("/enrollments/:id/reject", enrollmentHandler.Reject)
	protected.PUT("/enrollments/:id/complete", enrollmentHandler.Complete)

	protected.GET("/mentorships/requests", mentorshipHandler.ListRequests)
	protected.POST("/mentorships/requests", mentorshipHandler.CreateRequest)
	protected.PUT("/mentorships/requests/:id/approve", mentorshipHandler.ApproveRequest)
	protected.PUT("/mentorships/requests/:id/reject", mentorshipHandler.RejectRequest)
	protected.GET("/mentorships/bookings", mentorshipHandler.ListBookings)
	protected.PUT("/mentorships/bookings/:id/complete", mentorshipHandler.CompleteBooking)
	protected.PUT("/mentorships/bookings/:id/cancel", mentorshipHandler.CancelBooking)
	protected.PUT("/mentorships/bookings/:id/payment", mentorshipHandler.UpdateBookingPayment)

	protected.GET("/guest-bookings", guestBookingHandler.List)
	protected.PUT("/guest-bookings/:id/confirm", guestBookingHandler.Confirm)
	protected.PUT("/guest-bookings/:id/cancel", guestBookingHandler.Cancel)
	protected.PUT("/guest-bookings/:id/complete", guestBookingHandler.Complete)
	protected.PUT("/guest-bookings/:id/payment", guestBookingHandler.UpdatePayment)

	protected.GET("/courses", courseHandler.List)
	protected.GET("/courses/grouped", courseHandler.Grouped)

	admin := protected.Group("")
	admin.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))
	admin.POST("/courses", courseHandler.Create)
	admin.PUT("/courses/:id/series", courseHandler.Retag)
	admin.PUT("/courses/:id/published", courseHandler.SetPublished)
	admin.GET("/audit-logs", dashboardHandler.AuditTrail)
	admin.GET("/revenue/:id/ledger", dashboardHandler.RevenueLedger)

	if cfg.Dashboard.Enabled {
		protected.GET("/dashboard", dashboardHandler.Summary)
	}
	if cfg.Exports.Enabled {
		admin.GET("/exports/enrollments", exportHandler.Enrollments)
		admin.GET("/exports/guest-bookings", exportHandler.GuestBookings)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}

	stopDispatcher()
	dispatcher.Stop()
}
