package delivery

import (
	"net/http"

	"quotedesk-backend/internal/billing/usecase"

	"github.com/gin-gonic/gin"
)

type BillingHandler struct {
	billingUsecase usecase.BillingUsecase
}

func NewBillingHandler(billingUsecase usecase.BillingUsecase) *BillingHandler {
	return &BillingHandler{
		billingUsecase: billingUsecase,
	}
}

func (h *BillingHandler) GetSubscription(c *gin.Context) {
	userID := c.GetString("userID")
	sub, err := h.billingUsecase.GetSubscription(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sub)
}

func (h *BillingHandler) ChangeTier(c *gin.Context) {
	var req struct {
		Tier string `json:"tier" binding:"required,oneof=free pro"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	if err := h.billingUsecase.ChangeTier(userID, req.Tier); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "tier updated"})
}
