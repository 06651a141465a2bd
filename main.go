package main

import (
	"context"
	"log"
	"os"
	"strings"

	api "quotedesk-backend/cmd/api"
	authdomain "quotedesk-backend/internal/auth/domain"
	authRepo "quotedesk-backend/internal/auth/repository"
	authUsecase "quotedesk-backend/internal/auth/usecase"
	billingdomain "quotedesk-backend/internal/billing/domain"
	billingRepo "quotedesk-backend/internal/billing/repository"
	billingUsecase "quotedesk-backend/internal/billing/usecase"
	"quotedesk-backend/internal/notification"
	quotedomain "quotedesk-backend/internal/quote/domain"
	quoteRepo "quotedesk-backend/internal/quote/repository"
	quoteUsecase "quotedesk-backend/internal/quote/usecase"
	threaddomain "quotedesk-backend/internal/thread/domain"
	threadRepo "quotedesk-backend/internal/thread/repository"
	threadUsecase "quotedesk-backend/internal/thread/usecase"
	"quotedesk-backend/pkg/config"
	"quotedesk-backend/pkg/currency"
	"quotedesk-backend/pkg/database"
	"quotedesk-backend/pkg/fcm"
	"quotedesk-backend/pkg/gmail"
	"quotedesk-backend/pkg/imap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&authdomain.User{},
		&authdomain.RefreshToken{},
		&authdomain.DeviceToken{},
		&quotedomain.Quote{},
		&quotedomain.QuoteItem{},
		&threaddomain.QuoteEmailMessage{},
		&billingdomain.Subscription{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	deviceTokenRepo := authRepo.NewDeviceTokenRepository(db)
	quoteRepository := quoteRepo.NewQuoteRepository(db)
	messageRepo := threadRepo.NewMessageRepository(db)
	subscriptionRepo := billingRepo.NewSubscriptionRepository(db)

	// Initialize Gmail and IMAP services
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)
	imapService := imap.NewService()

	// Initialize use cases (dependency injection)
	billingUsecaseInstance := billingUsecase.NewBillingUsecase(subscriptionRepo)
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepo, deviceTokenRepo, cfg)
	quoteUsecaseInstance := quoteUsecase.NewQuoteUsecase(quoteRepository, billingUsecaseInstance, cfg)
	threadUsecaseInstance := threadUsecase.NewThreadUsecase(messageRepo, quoteUsecaseInstance, userRepo, gmailService, imapService, cfg)

	// Provision the free subscription for every new registration
	authUsecaseInstance.SetUserCreatedCallback(billingUsecaseInstance.ProvisionFreeTier)

	// Initialize Notification Service (Pub/Sub)
	// Only start if project ID is configured
	if cfg.GoogleProjectID != "" {
		// Extract short topic name from full resource name if necessary
		topicName := cfg.GooglePubSubTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}
		if topicName == "" {
			topicName = "gmail-updates"
		}

		// FCM is optional, the notification service works without it
		var fcmClient *fcm.Client
		if cfg.FirebaseCredentials != "" {
			fcmClient, err = fcm.NewClient(cfg.FirebaseCredentials)
			if err != nil {
				log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
			}
		}

		notifService, err := notification.NewService(cfg.GoogleProjectID, topicName, cfg.GoogleCredentials, userRepo, deviceTokenRepo, fcmClient, gmailService, threadUsecaseInstance)
		if err != nil {
			log.Printf("[ERROR] Failed to initialize notification service: %v", err)
		} else {
			go notifService.Start(context.Background())
		}
	} else {
		log.Printf("[WARN] GoogleProjectID not configured, reply notifications disabled")
	}

	// Exchange-rate cache for multi-currency quote display
	rateCache := currency.NewCache(cfg.ExchangeRateURL, cfg.ExchangeRateTTL)

	// Initialize HTTP handler
	handler := api.NewHandler(authUsecaseInstance, quoteUsecaseInstance, threadUsecaseInstance, billingUsecaseInstance, rateCache, cfg)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	log.Printf("Server starting on port %s", port)
	if err := handler.Start(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
