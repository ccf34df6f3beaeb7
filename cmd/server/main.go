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
	"github.com/sirupsen/logrus"
	"github.com/swiftbus/booking-backend/internal/config"
	"github.com/swiftbus/booking-backend/internal/database"
	"github.com/swiftbus/booking-backend/internal/handlers"
	"github.com/swiftbus/booking-backend/internal/middleware"
	"github.com/swiftbus/booking-backend/internal/services"
	"github.com/swiftbus/booking-backend/pkg/jwt"
	"github.com/swiftbus/booking-backend/pkg/sms"
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

	logger.Info("Starting SwiftBus Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
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

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize repositories
	tripRepo := database.NewTripRepository(db, logger, cfg.Booking.AutoHaltThreshold, cfg.Booking.TxTimeout)
	bookingRepo := database.NewBookingRepository(db, tripRepo, logger, cfg.Booking.TxTimeout)
	paymentRepo := database.NewPaymentRepository(db, tripRepo, logger, cfg.Booking.TxTimeout, cfg.Payment.VerifyBaseURL)
	saleRepo := database.NewManualSaleRepository(db, tripRepo, logger, cfg.Booking.TxTimeout, cfg.Payment.VerifyBaseURL)
	boardingRepo := database.NewBoardingRepository(db, tripRepo, logger, cfg.Booking.TxTimeout)
	ticketRepo := database.NewTicketRepository(db)
	commissionRepo := database.NewCommissionRepository(db)
	staffRepo := database.NewStaffRepository(db)
	auditRepo := database.NewAuditRepository(db, logger)

	// Initialize SMS sender
	var sender sms.Sender
	if cfg.SMS.Mode == "production" {
		logger.Info("Initializing SMS gateway in production mode")
		sender = sms.NewGateway(sms.Config{
			APIURL:   cfg.SMS.APIURL,
			Username: cfg.SMS.Username,
			Password: cfg.SMS.Password,
			SenderID: cfg.SMS.SenderID,
		})
	} else {
		logger.Info("SMS gateway in development mode (messages are logged, not sent)")
		sender = &sms.DevSender{Logger: logger}
	}

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	auditSvc := services.NewAuditService(auditRepo, logger, cfg.Security.EnableAuditLog)
	notifier := services.NewNotificationService(sender, db, logger)
	bookingSvc := services.NewBookingService(bookingRepo, tripRepo, ticketRepo, commissionRepo, auditSvc, notifier, cfg.Booking, logger)
	settlementSvc := services.NewSettlementService(bookingRepo, paymentRepo, commissionRepo, tripRepo, auditSvc, notifier, cfg.Payment, logger)
	counterSaleSvc := services.NewCounterSaleService(saleRepo, tripRepo, staffRepo, auditSvc, notifier, cfg.Booking, logger)
	boardingSvc := services.NewBoardingService(boardingRepo, ticketRepo, auditSvc, logger)
	tripSvc := services.NewTripService(tripRepo, auditSvc, logger)
	logger.Info("Services initialized")

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(bookingSvc)
	paymentHandler := handlers.NewPaymentHandler(settlementSvc)
	staffSaleHandler := handlers.NewStaffSaleHandler(counterSaleSvc)
	boardingHandler := handlers.NewBoardingHandler(boardingSvc, tripSvc)
	tripAdminHandler := handlers.NewTripAdminHandler(tripSvc)
	ticketHandler := handlers.NewTicketHandler(boardingSvc)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", healthCheckHandler(db))

	api := router.Group("/api/v1")
	{
		// Public ticket verification (scanned QR codes)
		api.GET("/tickets/:code/verify", ticketHandler.VerifyTicket)

		// Provider webhook, authenticated by HMAC signature
		api.POST("/payments/webhook", paymentHandler.Webhook)

		authed := api.Group("")
		authed.Use(middleware.AuthMiddleware(jwtService))
		{
			authed.GET("/trips/:id", tripAdminHandler.GetTrip)
			authed.POST("/bookings", bookingHandler.CreateBooking)
			authed.GET("/bookings", bookingHandler.ListBookings)
			authed.GET("/bookings/:id", bookingHandler.GetBooking)
			authed.POST("/payments/initiate", paymentHandler.InitiatePayment)
		}

		staff := api.Group("/staff")
		staff.Use(middleware.AuthMiddleware(jwtService), middleware.RequireRole("cashier", "company_admin"))
		{
			staff.POST("/trips/:id/sales", staffSaleHandler.CreateCounterSale)
			staff.POST("/trips/:id/replacements", staffSaleHandler.CreateReplacementSale)
			staff.POST("/trips/:id/depart", tripAdminHandler.DepartTrip)
			staff.POST("/trips/:id/board", boardingHandler.BoardPassenger)
			staff.POST("/trips/:id/no-shows", boardingHandler.MarkNoShows)
			staff.GET("/trips/:id/manifest", boardingHandler.Manifest)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService), middleware.RequireRole("company_admin"))
		{
			admin.POST("/trips/:id/halt", tripAdminHandler.HaltBooking)
			admin.POST("/trips/:id/resume", tripAdminHandler.ResumeBooking)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}
		if userCtx, ok := middleware.GetUserContext(c); ok {
			fields["user_id"] = userCtx.UserID
		}

		entry := logger.WithFields(fields)
		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db interface{ Ping() error }) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
