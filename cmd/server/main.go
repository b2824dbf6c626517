package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/skyleg/emptyleg-backend/internal/config"
	"github.com/skyleg/emptyleg-backend/internal/database"
	"github.com/skyleg/emptyleg-backend/internal/handlers"
	"github.com/skyleg/emptyleg-backend/internal/middleware"
	"github.com/skyleg/emptyleg-backend/internal/services"
	"github.com/skyleg/emptyleg-backend/pkg/document"
	"github.com/skyleg/emptyleg-backend/pkg/events"
	"github.com/skyleg/emptyleg-backend/pkg/jwt"
	"github.com/skyleg/emptyleg-backend/pkg/marketplace"
	"github.com/skyleg/emptyleg-backend/pkg/validator"
	"github.com/skyleg/emptyleg-backend/pkg/whatsapp"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting empty-leg booking backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration (and the optional YAML booking policy)
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	logger.WithField("driver", cfg.Database.Driver).Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Repositories
	listingRepo := database.NewListingRepository(db.DB)
	bookingRepo := database.NewBookingRepository(db.DB, listingRepo)
	clientRepo := database.NewClientRepository(db.DB)
	activityLogRepo := database.NewActivityLogRepository(db.DB)
	recipientRepo := database.NewRecipientRepository(db.DB)

	// Shared services
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpiry)
	phoneValidator := validator.NewPhoneValidator(cfg.Booking.DefaultCountryCode)
	contactValidator := validator.NewContactValidator(phoneValidator)
	paymentLinks := services.NewPaymentLinkService(cfg.Payment)
	confirmations := document.NewConfirmationGenerator(cfg.Booking.ConfirmationSecret)

	var gateway whatsapp.Gateway
	if cfg.WhatsApp.Mode == "production" {
		gateway = whatsapp.NewTwilioGateway(whatsapp.TwilioConfig{
			APIURL:     cfg.WhatsApp.APIURL,
			AccountSID: cfg.WhatsApp.AccountSID,
			AuthToken:  cfg.WhatsApp.AuthToken,
			FromNumber: cfg.WhatsApp.FromNumber,
		})
	} else {
		gateway = whatsapp.NewLogGateway(logger)
	}
	logger.WithField("gateway", gateway.GetName()).Info("WhatsApp gateway initialized")

	// Post-commit hooks, in the order they run. Forwarding answers inline;
	// the rest go to the dispatcher once the response can be written.
	dispatcher := services.NewHookDispatcher(cfg.Booking.HookWorkers, cfg.Booking.HookQueueSize, logger)
	auditService := services.NewAuditService(activityLogRepo, logger)
	var hooks []services.PostCommitHook

	if cfg.Marketplace.Enabled && cfg.Marketplace.BaseURL != "" {
		marketplaceClient := marketplace.NewClient(marketplace.Config{
			BaseURL: cfg.Marketplace.BaseURL,
			APIKey:  cfg.Marketplace.APIKey,
			Timeout: cfg.Marketplace.Timeout,
		})
		hooks = append(hooks, services.NewForwardingService(marketplaceClient, bookingRepo, auditService, cfg.Marketplace.OwnerID, cfg.Marketplace.InlineBudget, logger))
		logger.WithField("base_url", cfg.Marketplace.BaseURL).Info("Marketplace forwarding enabled")
	} else {
		logger.Warn("Marketplace forwarding disabled, marketplace listings will not be relayed")
	}

	hooks = append(hooks,
		auditService,
		services.NewNotificationService(gateway, recipientRepo, phoneValidator, cfg.Server.PublicBaseURL, logger),
	)

	var producer *events.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		hooks = append(hooks, services.NewEventPublisher(producer))
		logger.WithFields(logrus.Fields{
			"brokers": cfg.Kafka.Brokers,
			"topic":   producer.Topic(),
		}).Info("Booking event stream enabled")
	}

	quoteService := services.NewQuoteService(
		listingRepo,
		clientRepo,
		bookingRepo,
		contactValidator,
		services.NewReferenceGenerator(cfg.Booking.ReferencePrefix),
		logger,
		hooks...,
	)
	quoteService.SetHookDispatcher(dispatcher)

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		quoteService.SetDuplicateGuard(services.NewSubmissionGuard(redisClient, cfg.Booking.DedupeWindow, logger))
		logger.WithField("window", cfg.Booking.DedupeWindow.String()).Info("Duplicate submission guard enabled")
	}

	workflowService := services.NewBookingWorkflowService(
		bookingRepo,
		listingRepo,
		paymentLinks,
		cfg.Booking.PaymentWindow,
		logger,
		hooks...,
	)
	workflowService.SetHookDispatcher(dispatcher)

	// Payment deadline sweep
	watcher := services.NewDeadlineWatcher(bookingRepo, workflowService, cfg.Booking.SweepBatchSize, logger)
	cronService := services.NewCronService(watcher, cfg.Booking.SweepSchedule, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.WithField("schedule", cfg.Booking.SweepSchedule).Info("Payment deadline sweep scheduled")

	// Handlers
	quoteHandler := handlers.NewQuoteHandler(quoteService, logger)
	bookingHandler := handlers.NewBookingHandler(workflowService, logger)
	confirmationHandler := handlers.NewConfirmationHandler(bookingRepo, listingRepo, confirmations, logger)
	cronHandler := handlers.NewCronHandler(cronService, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(db))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/quotes", quoteHandler.SubmitQuote)
		v1.GET("/public/bookings/:reference/confirmation.png", confirmationHandler.GetConfirmationQR)
		v1.GET("/public/bookings/:reference/verify", confirmationHandler.VerifyConfirmation)

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService, logger))
		admin.Use(middleware.RequireRole(jwt.RoleAdmin))
		{
			registerBookingRoutes(admin.Group("/bookings"), bookingHandler)

			cron := admin.Group("/cron")
			cron.POST("/expire-bookings", cronHandler.ExpireBookings)
			cron.GET("/status", cronHandler.GetStatus)
		}

		operator := v1.Group("/operator")
		operator.Use(middleware.AuthMiddleware(jwtService, logger))
		operator.Use(middleware.RequireRole(jwt.RoleOperator))
		operator.Use(middleware.RequireActiveOperator(recipientRepo, logger))
		{
			registerBookingRoutes(operator.Group("/bookings"), bookingHandler)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop the sweep before the store goes away
	cronService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	// Drain notifications and events before the producer and redis close
	if err := dispatcher.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Post-commit hooks did not finish")
	}

	logger.Info("Server exited")
}

// registerBookingRoutes mounts the staff booking decisions on group.
// Admin and operator groups share the handler; ownership is enforced per booking.
func registerBookingRoutes(group *gin.RouterGroup, h *handlers.BookingHandler) {
	group.GET("/:id", h.GetBooking)
	group.POST("/:id/approve", h.ApproveBooking)
	group.POST("/:id/reject", h.RejectBooking)
	group.POST("/:id/payment-receipt", h.AttachPaymentReceipt)
	group.POST("/:id/confirm-payment", h.ConfirmPayment)
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": c.Request.UserAgent(),
			"has_auth":   c.GetHeader("Authorization") != "",
		}

		if staff, ok := middleware.GetStaffContext(c); ok {
			fields["staff_id"] = staff.StaffID.String()
			fields["roles"] = staff.Roles
			if staff.OperatorID != nil {
				fields["operator_id"] = staff.OperatorID.String()
			}
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed")
		}
	}
}

// healthCheckHandler reports process and database health
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
