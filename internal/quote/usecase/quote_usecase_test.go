package usecase

import (
	"errors"
	"fmt"
	"testing"

	quotedomain "quotedesk-backend/internal/quote/domain"
	quotedto "quotedesk-backend/internal/quote/dto"
	"quotedesk-backend/internal/quote/repository"
	"quotedesk-backend/pkg/config"

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

func setupQuoteTest(t *testing.T) (*gorm.DB, QuoteUsecase, *fakeTiers) {
	t.Helper()
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

	tiers := &fakeTiers{tier: quotedomain.TierFree}
	cfg := &config.Config{FreeRevisionLimit: 2}
	uc := NewQuoteUsecase(repository.NewQuoteRepository(db), tiers, cfg)
	return db, uc, tiers
}

func seedQuote(t *testing.T, db *gorm.DB, id, userID string, parentID *string) {
	t.Helper()
	q := quotedomain.Quote{
		ID:            id,
		UserID:        userID,
		ParentQuoteID: parentID,
		VersionNumber: "1",
		Title:         "Website redesign",
		ClientName:    "Acme",
		ClientEmail:   "client@acme.test",
		Currency:      "USD",
		Status:        quotedomain.StatusDraft,
	}
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("failed to seed quote %s: %v", id, err)
	}
}

func TestResolveRootOnRoot(t *testing.T) {
	db, uc, _ := setupQuoteTest(t)
	seedQuote(t, db, "q1", "u1", nil)

	rootID, err := uc.ResolveRoot("u1", "q1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rootID != "q1" {
		t.Errorf("expected root q1, got %s", rootID)
	}
}

func TestResolveRootFromRevision(t *testing.T) {
	db, uc, _ := setupQuoteTest(t)
	root := "q1"
	seedQuote(t, db, "q1", "u1", nil)
	seedQuote(t, db, "q2", "u1", &root)

	rootID, err := uc.ResolveRoot("u1", "q2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rootID != "q1" {
		t.Errorf("expected root q1, got %s", rootID)
	}
}

func TestResolveRootMissingQuote(t *testing.T) {
	_, uc, _ := setupQuoteTest(t)

	_, err := uc.ResolveRoot("u1", "missing")
	if !errors.Is(err, quotedomain.ErrQuoteNotFound) {
		t.Errorf("expected ErrQuoteNotFound, got %v", err)
	}
}

func TestResolveRootDanglingParent(t *testing.T) {
	db, uc, _ := setupQuoteTest(t)
	gone := "deleted-parent"
	seedQuote(t, db, "q2", "u1", &gone)

	_, err := uc.ResolveRoot("u1", "q2")
	if !errors.Is(err, quotedomain.ErrCorruptFamily) {
		t.Errorf("expected ErrCorruptFamily, got %v", err)
	}
}

func TestResolveRootForeignOwner(t *testing.T) {
	db, uc, _ := setupQuoteTest(t)
	seedQuote(t, db, "q1", "u2", nil)

	_, err := uc.ResolveRoot("u1", "q1")
	if !errors.Is(err, quotedomain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestResolveRootCycle(t *testing.T) {
	db, uc, _ := setupQuoteTest(t)
	a, b := "qa", "qb"
	seedQuote(t, db, a, "u1", &b)
	seedQuote(t, db, b, "u1", &a)

	_, err := uc.ResolveRoot("u1", a)
	if !errors.Is(err, quotedomain.ErrCorruptFamily) {
		t.Errorf("expected ErrCorruptFamily on cycle, got %v", err)
	}
}

func TestCountRevisionsEqualAcrossFamily(t *testing.T) {
	db, uc, _ := setupQuoteTest(t)
	root := "q1"
	seedQuote(t, db, "q1", "u1", nil)
	seedQuote(t, db, "q2", "u1", &root)
	seedQuote(t, db, "q3", "u1", &root)

	for _, id := range []string{"q1", "q2", "q3"} {
		count, err := uc.CountRevisions("u1", id)
		if err != nil {
			t.Fatalf("CountRevisions(%s): %v", id, err)
		}
		if count != 2 {
			t.Errorf("CountRevisions(%s) = %d, want 2", id, count)
		}
	}
}

func TestCreateRevisionReanchorsToRoot(t *testing.T) {
	db, uc, tiers := setupQuoteTest(t)
	tiers.tier = quotedomain.TierPro
	root := "q1"
	seedQuote(t, db, "q1", "u1", nil)
	seedQuote(t, db, "q2", "u1", &root)

	// Revising from the revision must still anchor on the root.
	rev, err := uc.CreateRevision("u1", "q2", &quotedto.CreateRevisionRequest{
		RevisionNotes: "lowered hosting fee",
		Items: []quotedto.QuoteItemRequest{
			{Description: "Hosting", Quantity: 12, UnitPrice: 20},
		},
	})
	if err != nil {
		t.Fatalf("CreateRevision: %v", err)
	}
	if rev.ParentQuoteID == nil || *rev.ParentQuoteID != "q1" {
		t.Errorf("revision parent = %v, want q1", rev.ParentQuoteID)
	}
	if rev.VersionNumber != "3" {
		t.Errorf("version number = %s, want 3", rev.VersionNumber)
	}
	if rev.TotalAmount != 240 {
		t.Errorf("total = %v, want 240", rev.TotalAmount)
	}
}

func TestCreateRevisionFreeTierLimit(t *testing.T) {
	db, uc, _ := setupQuoteTest(t)
	root := "q1"
	seedQuote(t, db, "q1", "u1", nil)
	seedQuote(t, db, "q2", "u1", &root)
	seedQuote(t, db, "q3", "u1", &root)

	_, err := uc.CreateRevision("u1", "q1", &quotedto.CreateRevisionRequest{})
	if !errors.Is(err, quotedomain.ErrRevisionLimit) {
		t.Errorf("expected ErrRevisionLimit at the free ceiling, got %v", err)
	}
}

func TestCreateRevisionProUnlimited(t *testing.T) {
	db, uc, tiers := setupQuoteTest(t)
	tiers.tier = quotedomain.TierPro
	root := "q1"
	seedQuote(t, db, "q1", "u1", nil)
	seedQuote(t, db, "q2", "u1", &root)
	seedQuote(t, db, "q3", "u1", &root)

	if _, err := uc.CreateRevision("u1", "q1", &quotedto.CreateRevisionRequest{}); err != nil {
		t.Errorf("pro tier revision should succeed, got %v", err)
	}
}

func TestRevisionStatus(t *testing.T) {
	db, uc, _ := setupQuoteTest(t)
	root := "q1"
	seedQuote(t, db, "q1", "u1", nil)
	seedQuote(t, db, "q2", "u1", &root)

	status, err := uc.RevisionStatus("u1", "q2")
	if err != nil {
		t.Fatalf("RevisionStatus: %v", err)
	}
	if status.RootQuoteID != "q1" {
		t.Errorf("root = %s, want q1", status.RootQuoteID)
	}
	if status.RevisionCount != 1 {
		t.Errorf("count = %d, want 1", status.RevisionCount)
	}
	if !status.CanRevise {
		t.Error("expected one more free revision to be allowed")
	}
	if status.Tier != quotedomain.TierFree {
		t.Errorf("tier = %s, want free", status.Tier)
	}
}

func TestDeleteRootWithRevisionsRefused(t *testing.T) {
	db, uc, _ := setupQuoteTest(t)
	root := "q1"
	seedQuote(t, db, "q1", "u1", nil)
	seedQuote(t, db, "q2", "u1", &root)

	if err := uc.DeleteQuote("u1", "q1"); err == nil {
		t.Error("deleting a root with revisions must fail")
	}

	// The revision can go, and afterwards the root can too.
	if err := uc.DeleteQuote("u1", "q2"); err != nil {
		t.Fatalf("DeleteQuote(q2): %v", err)
	}
	if err := uc.DeleteQuote("u1", "q1"); err != nil {
		t.Fatalf("DeleteQuote(q1): %v", err)
	}

	_, err := uc.GetQuote("u1", "q1")
	if !errors.Is(err, quotedomain.ErrQuoteNotFound) {
		t.Errorf("expected ErrQuoteNotFound after delete, got %v", err)
	}
}

func TestCreateQuoteComputesTotal(t *testing.T) {
	_, uc, _ := setupQuoteTest(t)

	quote, err := uc.CreateQuote("u1", &quotedto.CreateQuoteRequest{
		Title:       "Brand refresh",
		ClientName:  "Acme",
		ClientEmail: "client@acme.test",
		Items: []quotedto.QuoteItemRequest{
			{Description: "Logo design", Quantity: 1, UnitPrice: 800},
			{Description: "Style guide", Quantity: 2, UnitPrice: 150},
		},
	})
	if err != nil {
		t.Fatalf("CreateQuote: %v", err)
	}
	if quote.TotalAmount != 1100 {
		t.Errorf("total = %v, want 1100", quote.TotalAmount)
	}
	if quote.Currency != "USD" {
		t.Errorf("currency = %s, want default USD", quote.Currency)
	}
	if quote.VersionNumber != "1" {
		t.Errorf("version = %s, want 1", quote.VersionNumber)
	}
}
