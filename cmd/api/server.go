package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	_ "invoiceapi/api/swagger" // swagger docs
	"invoiceapi/internal/config"
	"invoiceapi/internal/database"
	"invoiceapi/internal/handler"
	"invoiceapi/internal/logger"
	"invoiceapi/internal/metrics"
	"invoiceapi/internal/middleware"
	"invoiceapi/internal/notification"
	"invoiceapi/internal/payment"
	"invoiceapi/internal/repository"
	"invoiceapi/internal/service"
	"invoiceapi/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func runServer(ctx context.Context, cfg config.Config, log *zap.Logger, migrate bool) error {
	db, err := database.NewConnection(cfg.DSN(), poolConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("connected to postgres", zap.String("host", cfg.DBHost), zap.String("database", cfg.DBName))

	if migrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	router, hub := newRouter(cfg, db, log)
	go hub.Run(hubCtx)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// newRouter wires repositories, collaborators and handlers. The returned hub
// must be started by the caller.
func newRouter(cfg config.Config, db *gorm.DB, log *zap.Logger) (*gin.Engine, *websocket.Hub) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	m := metrics.New()
	hub := websocket.NewHub(log)
	signingKey := middleware.SigningKey(cfg.JWTSecret)

	email, sms, gateway := newCollaborators(cfg, log)
	auditService := service.NewAuditService(repository.NewAuditRepository(db))

	invoiceService := service.NewInvoiceService(
		repository.NewInvoiceRepository(db, repository.NewTransactionManager(db)),
		repository.NewPaymentRepository(db),
		email,
		sms,
		gateway,
		service.WithPublisher(service.Publishers{auditService, hub}),
		service.WithMetrics(m),
	)

	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(log), m.GinMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Accept", middleware.APIKeyHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(hub, c, signingKey)
	})

	public := router.Group("")
	handler.NewHealthHandler(cfg.AppVersion).RegisterRoutes(public)
	handler.NewWebhookHandler(invoiceService, gateway, m, cfg.Stripe.WebhookSecret != "").RegisterRoutes(public)

	protected := router.Group("", middleware.RequireAPIKey(cfg.APIKey, cfg.APIKeyHash))
	handler.NewInvoiceHandler(invoiceService).RegisterRoutes(protected)
	handler.NewAuditHandler(auditService).RegisterRoutes(protected)
	handler.NewAuthHandler(signingKey).RegisterRoutes(protected)

	return router, hub
}

// newCollaborators picks real providers when their credentials are set and
// log-only stand-ins otherwise.
func newCollaborators(cfg config.Config, log *zap.Logger) (notification.EmailSender, notification.SMSSender, payment.Gateway) {
	var email notification.EmailSender = notification.NewLogEmailSender(log)
	if cfg.SendGrid.Enabled() {
		email = notification.NewSendGridEmailSender(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName, log)
	} else {
		log.Warn("SendGrid not configured, invoice emails are only logged")
	}

	var sms notification.SMSSender = notification.NewLogSMSSender(log)
	if cfg.Twilio.Enabled() {
		sms = notification.NewTwilioSMSSender(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber, log)
	} else {
		log.Warn("Twilio not configured, SMS messages are only logged")
	}

	var gateway payment.Gateway = payment.NewLogGateway("http://localhost:"+cfg.Port, log)
	if cfg.Stripe.Enabled() {
		gateway = payment.NewStripeGateway(payment.StripeConfig{
			SecretKey:     cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			Currency:      cfg.Stripe.Currency,
			ReturnBaseURL: cfg.Stripe.ReturnBaseURL,
		}, log)
	} else {
		log.Warn("Stripe not configured, payment links point at a local placeholder")
	}

	return email, sms, gateway
}
