package delivery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	quotedomain "quotedesk-backend/internal/quote/domain"
	quotedto "quotedesk-backend/internal/quote/dto"
	"quotedesk-backend/internal/quote/repository"
	"quotedesk-backend/internal/quote/usecase"
	"quotedesk-backend/pkg/config"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeTiers struct {
	tier string
}

func (f *fakeTiers) GetTier(userID string) (string, error) {
	return f.tier, nil
}

func setupHandlerTest(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(&quotedomain.Quote{}, &quotedomain.QuoteItem{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	cfg := &config.Config{FreeRevisionLimit: 2}
	uc := usecase.NewQuoteUsecase(repository.NewQuoteRepository(db), &fakeTiers{tier: quotedomain.TierFree}, cfg)
	handler := NewQuoteHandler(uc)

	r := gin.New()
	// Stand-in for the auth middleware
	r.Use(func(c *gin.Context) {
		c.Set("userID", "u1")
	})
	r.POST("/api/quotes", handler.CreateQuote)
	r.POST("/api/quotes/:id/revisions", handler.CreateRevision)
	r.GET("/api/quotes/:id/revision-status", handler.RevisionStatus)
	r.GET("/api/quotes/:id", handler.GetQuote)
	return db, r
}

func postJSON(t *testing.T, r *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateQuoteEndpoint(t *testing.T) {
	_, r := setupHandlerTest(t)

	w := postJSON(t, r, "/api/quotes", quotedto.CreateQuoteRequest{
		Title:       "Website redesign",
		ClientName:  "Acme",
		ClientEmail: "client@acme.test",
		Items: []quotedto.QuoteItemRequest{
			{Description: "Design", Quantity: 1, UnitPrice: 1200},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var quote quotedomain.Quote
	if err := json.Unmarshal(w.Body.Bytes(), &quote); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if quote.TotalAmount != 1200 {
		t.Errorf("total = %v, want 1200", quote.TotalAmount)
	}
	if quote.ParentQuoteID != nil {
		t.Error("a freshly created quote must be a family root")
	}
}

func TestCreateQuoteEndpointValidation(t *testing.T) {
	_, r := setupHandlerTest(t)

	w := postJSON(t, r, "/api/quotes", map[string]string{"title": "missing everything"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRevisionLimitEndpoint(t *testing.T) {
	db, r := setupHandlerTest(t)

	root := "q1"
	quotes := []quotedomain.Quote{
		{ID: "q1", UserID: "u1", Title: "Website redesign", Status: quotedomain.StatusDraft},
		{ID: "q2", UserID: "u1", ParentQuoteID: &root, Status: quotedomain.StatusDraft},
		{ID: "q3", UserID: "u1", ParentQuoteID: &root, Status: quotedomain.StatusDraft},
	}
	for i := range quotes {
		if err := db.Create(&quotes[i]).Error; err != nil {
			t.Fatalf("failed to seed: %v", err)
		}
	}

	// Status endpoint reports the ceiling is hit
	req := httptest.NewRequest(http.MethodGet, "/api/quotes/q3/revision-status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var status quotedto.RevisionStatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status.RootQuoteID != "q1" || status.RevisionCount != 2 || status.CanRevise {
		t.Errorf("unexpected status: %+v", status)
	}

	// Creating one more revision is forbidden
	w = postJSON(t, r, "/api/quotes/q1/revisions", quotedto.CreateRevisionRequest{
		Items: []quotedto.QuoteItemRequest{
			{Description: "Design", Quantity: 1, UnitPrice: 1000},
		},
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403, body = %s", w.Code, w.Body.String())
	}
}

func TestGetQuoteNotFoundEndpoint(t *testing.T) {
	_, r := setupHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/quotes/missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
