package api

import (
	"net/http"
	"strconv"

	authDelivery "quotedesk-backend/internal/auth/delivery"
	billingDelivery "quotedesk-backend/internal/billing/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	authHandler := authDelivery.NewAuthHandler(h.authUsecase)
	billingHandler := billingDelivery.NewBillingHandler(h.billingUsecase)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
			auth.POST("/google", authHandler.GoogleSignIn)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", authDelivery.AuthMiddleware(h.authUsecase), authHandler.Me)
			auth.POST("/gmail", authDelivery.AuthMiddleware(h.authUsecase), authHandler.ConnectGmail)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(authDelivery.AuthMiddleware(h.authUsecase))
		{
			fcm.POST("/register", authHandler.RegisterDeviceToken)
			fcm.DELETE("/:token", authHandler.UnregisterDeviceToken)
		}

		// Quote routes (protected)
		quotes := api.Group("/quotes")
		quotes.Use(authDelivery.AuthMiddleware(h.authUsecase))
		{
			quotes.POST("", h.quoteHandler.CreateQuote)
			quotes.GET("", h.quoteHandler.ListQuotes)
			quotes.GET("/:id", h.quoteHandler.GetQuote)
			quotes.DELETE("/:id", h.quoteHandler.DeleteQuote)
			quotes.PATCH("/:id/status", h.quoteHandler.UpdateStatus)
			quotes.POST("/:id/revisions", h.quoteHandler.CreateRevision)
			quotes.GET("/:id/revision-status", h.quoteHandler.RevisionStatus)
			quotes.POST("/:id/draft", h.quoteHandler.GenerateDraft)

			// Conversation endpoints live under the quote they concern
			quotes.POST("/:id/send", h.threadHandler.SendQuote)
			quotes.GET("/:id/thread", h.threadHandler.FindThread)
			quotes.GET("/:id/history", h.threadHandler.GetHistory)
		}

		// Thread maintenance routes (protected)
		threads := api.Group("/threads")
		threads.Use(authDelivery.AuthMiddleware(h.authUsecase))
		{
			threads.PATCH("/messages/:messageId/read", h.threadHandler.MarkRead)
			threads.POST("/watch", h.threadHandler.WatchMailbox)
			threads.POST("/imap-sync", h.threadHandler.SyncIMAP)
		}

		// Billing routes (protected)
		billing := api.Group("/billing")
		billing.Use(authDelivery.AuthMiddleware(h.authUsecase))
		{
			billing.GET("/subscription", billingHandler.GetSubscription)
			billing.PUT("/tier", billingHandler.ChangeTier)
		}

		// Exchange rates (protected)
		api.GET("/currency/convert", authDelivery.AuthMiddleware(h.authUsecase), func(c *gin.Context) {
			from := c.Query("from")
			to := c.Query("to")
			amount, err := strconv.ParseFloat(c.DefaultQuery("amount", "1"), 64)
			if from == "" || to == "" || err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "from, to and a numeric amount are required"})
				return
			}

			rate, err := h.rateCache.Rate(c.Request.Context(), from, to)
			if err != nil {
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}

			c.JSON(http.StatusOK, gin.H{
				"from":      from,
				"to":        to,
				"rate":      rate,
				"converted": amount * rate,
			})
		})
	}
}
