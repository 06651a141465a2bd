package api

import (
	"log"

	authUsecase "quotedesk-backend/internal/auth/usecase"
	billingUsecase "quotedesk-backend/internal/billing/usecase"
	quoteDelivery "quotedesk-backend/internal/quote/delivery"
	quoteUsecasePkg "quotedesk-backend/internal/quote/usecase"
	threadDelivery "quotedesk-backend/internal/thread/delivery"
	threadUsecasePkg "quotedesk-backend/internal/thread/usecase"
	"quotedesk-backend/pkg/ai"
	"quotedesk-backend/pkg/chroma"
	"quotedesk-backend/pkg/config"
	"quotedesk-backend/pkg/currency"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase    authUsecase.AuthUsecase
	quoteUsecase   quoteUsecasePkg.QuoteUsecase
	threadUsecase  threadUsecasePkg.ThreadUsecase
	billingUsecase billingUsecase.BillingUsecase
	rateCache      *currency.Cache
	config         *config.Config
	quoteHandler   *quoteDelivery.QuoteHandler
	threadHandler  *threadDelivery.ThreadHandler
}

func NewHandler(authUc authUsecase.AuthUsecase, quoteUc quoteUsecasePkg.QuoteUsecase, threadUc threadUsecasePkg.ThreadUsecase, billingUc billingUsecase.BillingUsecase, rateCache *currency.Cache, cfg *config.Config) *Handler {
	// AI drafting is optional; the rest of the API works without it
	aiService, err := ai.NewDrafterService(ai.Config{
		Provider:     ai.ProviderGemini,
		GeminiAPIKey: cfg.GeminiApiKey,
	})
	if err != nil {
		log.Printf("Warning: Failed to initialize AI service: %v", err)
	} else {
		quoteUc.SetAIService(aiService)
		threadUc.SetAIService(aiService)
		log.Println("AI drafting service initialized")
	}

	if cfg.ChromaAPIKey != "" {
		chromaClient, err := chroma.NewChromaClient(cfg)
		if err != nil {
			log.Printf("Warning: Failed to initialize Chroma client: %v. Similar-quote retrieval will not be available.", err)
		} else {
			quoteUc.SetVectorStore(chromaClient)
			log.Println("Chroma client initialized successfully")
		}
	} else {
		log.Println("Warning: CHROMA_API_KEY not set. Similar-quote retrieval will not be available.")
	}

	return &Handler{
		authUsecase:    authUc,
		quoteUsecase:   quoteUc,
		threadUsecase:  threadUc,
		billingUsecase: billingUc,
		rateCache:      rateCache,
		config:         cfg,
		quoteHandler:   quoteDelivery.NewQuoteHandler(quoteUc),
		threadHandler:  threadDelivery.NewThreadHandler(threadUc),
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h)

	return r.Run(addr)
}
