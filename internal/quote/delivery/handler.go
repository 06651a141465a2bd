package delivery

import (
	"errors"
	"net/http"
	"strconv"

	quotedomain "quotedesk-backend/internal/quote/domain"
	quotedto "quotedesk-backend/internal/quote/dto"
	"quotedesk-backend/internal/quote/usecase"

	"github.com/gin-gonic/gin"
)

type QuoteHandler struct {
	quoteUsecase usecase.QuoteUsecase
}

func NewQuoteHandler(quoteUsecase usecase.QuoteUsecase) *QuoteHandler {
	return &QuoteHandler{
		quoteUsecase: quoteUsecase,
	}
}

// respondQuoteError maps domain errors to HTTP statuses. Corrupt-family and
// write failures are server faults; the rest are caller faults.
func respondQuoteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, quotedomain.ErrQuoteNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "quote not found"})
	case errors.Is(err, quotedomain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "quote belongs to another account"})
	case errors.Is(err, quotedomain.ErrRevisionLimit):
		c.JSON(http.StatusForbidden, gin.H{"error": "revision limit reached for the free tier"})
	case errors.Is(err, quotedomain.ErrCorruptFamily):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quote revision chain is corrupted"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *QuoteHandler) CreateQuote(c *gin.Context) {
	var req quotedto.CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	quote, err := h.quoteUsecase.CreateQuote(userID, &req)
	if err != nil {
		respondQuoteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, quote)
}

func (h *QuoteHandler) CreateRevision(c *gin.Context) {
	var req quotedto.CreateRevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	revision, err := h.quoteUsecase.CreateRevision(userID, c.Param("id"), &req)
	if err != nil {
		respondQuoteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, revision)
}

func (h *QuoteHandler) GetQuote(c *gin.Context) {
	userID := c.GetString("userID")
	quote, err := h.quoteUsecase.GetQuote(userID, c.Param("id"))
	if err != nil {
		respondQuoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	userID := c.GetString("userID")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	quotes, total, err := h.quoteUsecase.ListQuotes(userID, limit, offset)
	if err != nil {
		respondQuoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, quotedto.QuotesResponse{
		Quotes: quotes,
		Limit:  limit,
		Offset: offset,
		Total:  total,
	})
}

func (h *QuoteHandler) DeleteQuote(c *gin.Context) {
	userID := c.GetString("userID")
	if err := h.quoteUsecase.DeleteQuote(userID, c.Param("id")); err != nil {
		respondQuoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "quote deleted"})
}

func (h *QuoteHandler) UpdateStatus(c *gin.Context) {
	var req quotedto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	if err := h.quoteUsecase.UpdateStatus(userID, c.Param("id"), req.Status); err != nil {
		respondQuoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "status updated"})
}

// RevisionStatus reports the family root, how many revisions exist, and whether
// the caller's tier allows another one.
func (h *QuoteHandler) RevisionStatus(c *gin.Context) {
	userID := c.GetString("userID")
	status, err := h.quoteUsecase.RevisionStatus(userID, c.Param("id"))
	if err != nil {
		respondQuoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *QuoteHandler) GenerateDraft(c *gin.Context) {
	userID := c.GetString("userID")
	draft, err := h.quoteUsecase.GenerateDraft(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondQuoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, quotedto.DraftResponse{Draft: draft})
}
