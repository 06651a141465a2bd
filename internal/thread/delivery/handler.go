package delivery

import (
	"errors"
	"net/http"

	quotedomain "quotedesk-backend/internal/quote/domain"
	threaddto "quotedesk-backend/internal/thread/dto"
	"quotedesk-backend/internal/thread/usecase"

	"github.com/gin-gonic/gin"
)

type ThreadHandler struct {
	threadUsecase usecase.ThreadUsecase
}

func NewThreadHandler(threadUsecase usecase.ThreadUsecase) *ThreadHandler {
	return &ThreadHandler{
		threadUsecase: threadUsecase,
	}
}

func respondThreadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, quotedomain.ErrQuoteNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "quote not found"})
	case errors.Is(err, quotedomain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "quote belongs to another account"})
	case errors.Is(err, quotedomain.ErrCorruptFamily):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quote revision chain is corrupted"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// SendQuote sends the quote email through the caller's connected mailbox and
// records it in the conversation. Accepts multipart form data with attachments.
func (h *ThreadHandler) SendQuote(c *gin.Context) {
	var req threaddto.SendQuoteRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	msg, err := h.threadUsecase.SendQuote(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		respondThreadError(c, err)
		return
	}

	c.JSON(http.StatusOK, msg)
}

// FindThread reports whether a conversation with the recipient already exists
// across the quote's family.
func (h *ThreadHandler) FindThread(c *gin.Context) {
	recipient := c.Query("recipient")
	if recipient == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipient is required"})
		return
	}

	userID := c.GetString("userID")
	lookup, err := h.threadUsecase.FindThread(userID, c.Param("id"), recipient)
	if err != nil {
		respondThreadError(c, err)
		return
	}

	c.JSON(http.StatusOK, lookup)
}

// GetHistory returns the family-wide conversation timeline, oldest first.
func (h *ThreadHandler) GetHistory(c *gin.Context) {
	userID := c.GetString("userID")
	history, err := h.threadUsecase.GetHistory(userID, c.Param("id"))
	if err != nil {
		respondThreadError(c, err)
		return
	}

	c.JSON(http.StatusOK, threaddto.HistoryResponse{Messages: history})
}

func (h *ThreadHandler) MarkRead(c *gin.Context) {
	userID := c.GetString("userID")
	if err := h.threadUsecase.MarkRead(userID, c.Param("messageId")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "marked read"})
}

// WatchMailbox subscribes the caller's Gmail inbox to push notifications.
func (h *ThreadHandler) WatchMailbox(c *gin.Context) {
	userID := c.GetString("userID")
	if err := h.threadUsecase.WatchMailbox(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "mailbox watch registered"})
}

// SyncIMAP polls a non-Gmail mailbox for replies to quote threads.
func (h *ThreadHandler) SyncIMAP(c *gin.Context) {
	var req struct {
		Server   string `json:"server" binding:"required"`
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	recorded, err := h.threadUsecase.SyncIMAPInbox(c.Request.Context(), userID, req.Server, req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"recorded": recorded})
}
