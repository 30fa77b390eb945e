package main

import (
	"log"
	"time"

	"gupayment/internal/api"
	"gupayment/internal/config"
	"gupayment/internal/database"
	"gupayment/internal/iugu"
	"gupayment/internal/services"
	"gupayment/pkg/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatal("Failed to initialize config:", err)
	}
	cfg := config.AppConfig

	// Initialize logging
	logging.InitLogging(cfg.Mode)
	defer logging.Sync()

	// Initialize database
	if err := database.InitDatabase(cfg); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.CloseDatabase()

	gateway := iugu.NewClient(
		cfg.Iugu.ResolveAPIKey(""),
		iugu.WithBaseURL(cfg.Iugu.BaseURL),
		iugu.WithAccountID(cfg.Iugu.AccountID),
	)
	store := database.NewSubscriptionStore(database.GetDB(), cfg.Iugu.SignatureTable, cfg.Iugu.ModelForeignKey)

	var mailer services.Mailer
	if cfg.BrevoAPIKey != "" {
		mailer = services.NewBrevoService(cfg)
	} else {
		logging.Warnf("BREVO_API_KEY not set, invoice emails disabled")
	}

	billing := services.NewBillingService(gateway, database.GetDB(), store, mailer)
	lock := services.NewWebhookLock(database.GetRedis(), time.Duration(cfg.WebhookLockTTLSeconds)*time.Second)
	notifier := services.NewWebhookNotifier(cfg.CallbackURL, cfg.CallbackSecret)

	// Set Gin mode
	gin.SetMode(cfg.Mode)

	// Create Gin engine
	r := gin.Default()

	// Setup routes
	api.SetupRoutes(r, api.NewHandler(billing, lock, notifier, cfg, database.GetDB()))

	// Start server
	logging.Infof("Starting server on port %s", cfg.Port)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
