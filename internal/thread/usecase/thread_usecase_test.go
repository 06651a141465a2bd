package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	quotedomain "quotedesk-backend/internal/quote/domain"
	quoterepo "quotedesk-backend/internal/quote/repository"
	quoteusecase "quotedesk-backend/internal/quote/usecase"
	threaddomain "quotedesk-backend/internal/thread/domain"
	threaddto "quotedesk-backend/internal/thread/dto"
	"quotedesk-backend/internal/thread/repository"
	"quotedesk-backend/pkg/config"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeTiers struct{}

func (f *fakeTiers) GetTier(userID string) (string, error) {
	return quotedomain.TierFree, nil
}

func setupThreadTest(t *testing.T) (*gorm.DB, ThreadUsecase) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	err = db.AutoMigrate(&quotedomain.Quote{}, &quotedomain.QuoteItem{}, &threaddomain.QuoteEmailMessage{})
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	cfg := &config.Config{FreeRevisionLimit: 2}
	quotes := quoteusecase.NewQuoteUsecase(quoterepo.NewQuoteRepository(db), &fakeTiers{}, cfg)
	uc := NewThreadUsecase(repository.NewMessageRepository(db), quotes, nil, nil, nil, cfg)
	return db, uc
}

func seedQuote(t *testing.T, db *gorm.DB, id, userID string, parentID *string) {
	t.Helper()
	q := quotedomain.Quote{
		ID:            id,
		UserID:        userID,
		ParentQuoteID: parentID,
		VersionNumber: "1",
		Title:         "Website redesign",
		ClientEmail:   "client@acme.test",
		Currency:      "USD",
		Status:        quotedomain.StatusDraft,
	}
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("failed to seed quote %s: %v", id, err)
	}
}

func seedMessage(t *testing.T, db *gorm.DB, id, userID, quoteID, recipient, emailType, threadID string, sentAt time.Time) {
	t.Helper()
	msg := threaddomain.QuoteEmailMessage{
		ID:               id,
		UserID:           userID,
		QuoteID:          quoteID,
		Recipient:        recipient,
		Subject:          "Quote: Website redesign",
		Body:             "please find the quote attached",
		ProviderThreadID: threadID,
		EmailType:        emailType,
		Direction:        threaddomain.DirectionOutbound,
		SentAt:           sentAt,
	}
	if err := db.Create(&msg).Error; err != nil {
		t.Fatalf("failed to seed message %s: %v", id, err)
	}
}

func TestFindThreadNoPriorMessages(t *testing.T) {
	db, uc := setupThreadTest(t)
	seedQuote(t, db, "q1", "u1", nil)

	lookup, err := uc.FindThread("u1", "q1", "client@acme.test")
	if err != nil {
		t.Fatalf("FindThread: %v", err)
	}
	if lookup.MessageCount != 0 {
		t.Errorf("count = %d, want 0", lookup.MessageCount)
	}
	if lookup.ProviderThreadID != nil || lookup.LastSentAt != nil {
		t.Error("expected nil thread id and last-sent time for an empty thread")
	}
}

func TestFindThreadSpansFamily(t *testing.T) {
	db, uc := setupThreadTest(t)
	root := "q1"
	seedQuote(t, db, "q1", "u1", nil)
	seedQuote(t, db, "q2", "u1", &root)

	early := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	late := time.Date(2026, 8, 5, 9, 0, 0, 0, time.UTC)
	seedMessage(t, db, "m1", "u1", "q1", "client@acme.test", threaddomain.EmailTypeQuoteSent, "t1", early)
	seedMessage(t, db, "m2", "u1", "q2", "client@acme.test", threaddomain.EmailTypeRevisionSent, "t1", late)

	// Looking up from either family member finds the same conversation.
	for _, id := range []string{"q1", "q2"} {
		lookup, err := uc.FindThread("u1", id, "client@acme.test")
		if err != nil {
			t.Fatalf("FindThread(%s): %v", id, err)
		}
		if lookup.MessageCount != 2 {
			t.Errorf("FindThread(%s) count = %d, want 2", id, lookup.MessageCount)
		}
		if lookup.ProviderThreadID == nil || *lookup.ProviderThreadID != "t1" {
			t.Errorf("FindThread(%s) thread id = %v, want t1", id, lookup.ProviderThreadID)
		}
		if lookup.LastSentAt == nil || !lookup.LastSentAt.Equal(late) {
			t.Errorf("FindThread(%s) last sent = %v, want %v", id, lookup.LastSentAt, late)
		}
	}
}

func TestFindThreadFiltersByRecipient(t *testing.T) {
	db, uc := setupThreadTest(t)
	seedQuote(t, db, "q1", "u1", nil)
	seedMessage(t, db, "m1", "u1", "q1", "client@acme.test", threaddomain.EmailTypeQuoteSent, "t1", time.Now())

	lookup, err := uc.FindThread("u1", "q1", "other@acme.test")
	if err != nil {
		t.Fatalf("FindThread: %v", err)
	}
	if lookup.MessageCount != 0 {
		t.Errorf("count = %d, want 0 for a different recipient", lookup.MessageCount)
	}
}

func TestRecordSentRevisionAnnotation(t *testing.T) {
	db, uc := setupThreadTest(t)
	root := "q1"
	seedQuote(t, db, "q1", "u1", nil)
	seedQuote(t, db, "q2", "u1", &root)

	msg := &threaddomain.QuoteEmailMessage{
		Recipient: "client@acme.test",
		Subject:   "Re: Quote: Website redesign",
		Body:      "updated pricing attached",
	}
	err := uc.RecordSent("u1", "q2", "q1", msg, threaddomain.RevisionContext{
		IsRevision:    true,
		VersionNumber: "2",
		RevisionNotes: "lowered hosting fee",
		RootQuoteID:   "q1",
	})
	if err != nil {
		t.Fatalf("RecordSent: %v", err)
	}

	var stored threaddomain.QuoteEmailMessage
	if err := db.First(&stored, "id = ?", msg.ID).Error; err != nil {
		t.Fatalf("reading stored message: %v", err)
	}
	if stored.EmailType != threaddomain.EmailTypeRevisionSent {
		t.Errorf("email type = %s, want revision_sent", stored.EmailType)
	}
	if !strings.Contains(stored.Body, "Revision 2 of quote q1") {
		t.Errorf("body missing revision annotation: %q", stored.Body)
	}
	if !strings.Contains(stored.Body, "Changes: lowered hosting fee") {
		t.Errorf("body missing revision notes: %q", stored.Body)
	}
	if stored.Direction != threaddomain.DirectionOutbound {
		t.Errorf("direction = %s, want outbound", stored.Direction)
	}
}

type fakeSummarizer struct {
	summary string
	calls   int
}

func (f *fakeSummarizer) SummarizeRevisionNotes(ctx context.Context, notes string) (string, error) {
	f.calls++
	return f.summary, nil
}

func TestRecordSentCondensesLongNotes(t *testing.T) {
	db, uc := setupThreadTest(t)
	root := "q1"
	seedQuote(t, db, "q1", "u1", nil)
	seedQuote(t, db, "q2", "u1", &root)

	summarizer := &fakeSummarizer{summary: "Dropped hosting, halved the design fee."}
	uc.SetAIService(summarizer)

	longNotes := strings.Repeat("the client asked for changes to the scope and pricing ", 10)
	msg := &threaddomain.QuoteEmailMessage{
		Recipient: "client@acme.test",
		Body:      "updated pricing attached",
	}
	err := uc.RecordSent("u1", "q2", "q1", msg, threaddomain.RevisionContext{
		IsRevision:    true,
		VersionNumber: "2",
		RevisionNotes: longNotes,
		RootQuoteID:   "q1",
	})
	if err != nil {
		t.Fatalf("RecordSent: %v", err)
	}
	if summarizer.calls != 1 {
		t.Errorf("summarizer called %d times, want 1", summarizer.calls)
	}
	if !strings.Contains(msg.Body, "Changes: Dropped hosting, halved the design fee.") {
		t.Errorf("body missing summarized notes: %q", msg.Body)
	}
	if strings.Contains(msg.Body, longNotes) {
		t.Error("raw notes should be replaced by the summary")
	}
}

func TestRecordSentKeepsShortNotesVerbatim(t *testing.T) {
	db, uc := setupThreadTest(t)
	root := "q1"
	seedQuote(t, db, "q1", "u1", nil)
	seedQuote(t, db, "q2", "u1", &root)

	summarizer := &fakeSummarizer{summary: "should not be used"}
	uc.SetAIService(summarizer)

	msg := &threaddomain.QuoteEmailMessage{
		Recipient: "client@acme.test",
		Body:      "updated pricing attached",
	}
	err := uc.RecordSent("u1", "q2", "q1", msg, threaddomain.RevisionContext{
		IsRevision:    true,
		VersionNumber: "2",
		RevisionNotes: "lowered hosting fee",
		RootQuoteID:   "q1",
	})
	if err != nil {
		t.Fatalf("RecordSent: %v", err)
	}
	if summarizer.calls != 0 {
		t.Errorf("summarizer called %d times for short notes, want 0", summarizer.calls)
	}
	if !strings.Contains(msg.Body, "Changes: lowered hosting fee") {
		t.Errorf("body missing verbatim notes: %q", msg.Body)
	}
}

func TestRecordSentOriginalKeepsBody(t *testing.T) {
	db, uc := setupThreadTest(t)
	seedQuote(t, db, "q1", "u1", nil)

	msg := &threaddomain.QuoteEmailMessage{
		Recipient: "client@acme.test",
		Body:      "please find the quote attached",
	}
	if err := uc.RecordSent("u1", "q1", "q1", msg, threaddomain.RevisionContext{RootQuoteID: "q1"}); err != nil {
		t.Fatalf("RecordSent: %v", err)
	}
	if msg.EmailType != threaddomain.EmailTypeQuoteSent {
		t.Errorf("email type = %s, want quote_sent", msg.EmailType)
	}
	if msg.Body != "please find the quote attached" {
		t.Errorf("original send body must stay unannotated, got %q", msg.Body)
	}
}

func TestRecordSentThenFindThreadRoundTrip(t *testing.T) {
	db, uc := setupThreadTest(t)
	root := "q1"
	seedQuote(t, db, "q1", "u1", nil)
	seedQuote(t, db, "q2", "u1", &root)

	first := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	msg1 := &threaddomain.QuoteEmailMessage{
		Recipient:        "client@acme.test",
		Body:             "please find the quote attached",
		ProviderThreadID: "t1",
		SentAt:           first,
	}
	if err := uc.RecordSent("u1", "q1", "q1", msg1, threaddomain.RevisionContext{RootQuoteID: "q1"}); err != nil {
		t.Fatalf("RecordSent(q1): %v", err)
	}

	lookup, err := uc.FindThread("u1", "q2", "client@acme.test")
	if err != nil {
		t.Fatalf("FindThread after first send: %v", err)
	}
	if lookup.MessageCount != 1 {
		t.Errorf("count = %d, want 1", lookup.MessageCount)
	}
	if lookup.LastSentAt == nil || !lookup.LastSentAt.Equal(first) {
		t.Errorf("last sent = %v, want %v", lookup.LastSentAt, first)
	}

	// Recording the revision send moves the count and last-sent time for every
	// family member's lookup.
	second := first.Add(48 * time.Hour)
	msg2 := &threaddomain.QuoteEmailMessage{
		Recipient:        "client@acme.test",
		Body:             "updated pricing attached",
		ProviderThreadID: "t1",
		SentAt:           second,
	}
	err = uc.RecordSent("u1", "q2", "q1", msg2, threaddomain.RevisionContext{
		IsRevision:    true,
		VersionNumber: "2",
		RootQuoteID:   "q1",
	})
	if err != nil {
		t.Fatalf("RecordSent(q2): %v", err)
	}

	for _, id := range []string{"q1", "q2"} {
		lookup, err := uc.FindThread("u1", id, "client@acme.test")
		if err != nil {
			t.Fatalf("FindThread(%s): %v", id, err)
		}
		if lookup.MessageCount != 2 {
			t.Errorf("FindThread(%s) count = %d, want 2", id, lookup.MessageCount)
		}
		if lookup.LastSentAt == nil || !lookup.LastSentAt.Equal(second) {
			t.Errorf("FindThread(%s) last sent = %v, want %v", id, lookup.LastSentAt, second)
		}
		if lookup.ProviderThreadID == nil || *lookup.ProviderThreadID != "t1" {
			t.Errorf("FindThread(%s) thread id = %v, want t1", id, lookup.ProviderThreadID)
		}
	}
}

func TestGetHistoryAscendingAcrossFamily(t *testing.T) {
	db, uc := setupThreadTest(t)
	root := "q1"
	seedQuote(t, db, "q1", "u1", nil)
	seedQuote(t, db, "q2", "u1", &root)

	t1 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	t3 := time.Date(2026, 8, 5, 9, 0, 0, 0, time.UTC)
	seedMessage(t, db, "m2", "u1", "q2", "client@acme.test", threaddomain.EmailTypeRevisionSent, "t1", t2)
	seedMessage(t, db, "m1", "u1", "q1", "client@acme.test", threaddomain.EmailTypeQuoteSent, "t1", t1)
	seedMessage(t, db, "m3", "u1", "q2", "client@acme.test", threaddomain.EmailTypeReply, "t1", t3)

	history, err := uc.GetHistory("u1", "q2")
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}

	wantOrder := []string{"m1", "m2", "m3"}
	wantTags := []string{"original", "revision", "original"}
	for i := range history {
		if history[i].ID != wantOrder[i] {
			t.Errorf("history[%d].ID = %s, want %s", i, history[i].ID, wantOrder[i])
		}
		if history[i].RevisionTag != wantTags[i] {
			t.Errorf("history[%d].RevisionTag = %s, want %s", i, history[i].RevisionTag, wantTags[i])
		}
		if history[i].RootQuoteID != "q1" {
			t.Errorf("history[%d].RootQuoteID = %s, want q1", i, history[i].RootQuoteID)
		}
	}
}

func TestGetHistoryUnauthorized(t *testing.T) {
	db, uc := setupThreadTest(t)
	seedQuote(t, db, "q1", "u2", nil)

	_, err := uc.GetHistory("u1", "q1")
	if !errors.Is(err, quotedomain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestGetHistoryMissingQuote(t *testing.T) {
	_, uc := setupThreadTest(t)

	_, err := uc.GetHistory("u1", "missing")
	if !errors.Is(err, quotedomain.ErrQuoteNotFound) {
		t.Errorf("expected ErrQuoteNotFound, got %v", err)
	}
}

func TestRecordInboundReplyMatchesThread(t *testing.T) {
	db, uc := setupThreadTest(t)
	seedQuote(t, db, "q1", "u1", nil)
	seedMessage(t, db, "m1", "u1", "q1", "client@acme.test", threaddomain.EmailTypeQuoteSent, "t1", time.Now().Add(-time.Hour))

	reply := &threaddto.InboundReply{
		ProviderMessageID: "pm-reply-1",
		ProviderThreadID:  "t1",
		From:              "client@acme.test",
		Subject:           "Re: Quote: Website redesign",
		Body:              "looks good, one question",
		ReceivedAt:        time.Now(),
	}
	msg, err := uc.RecordInboundReply("u1", reply)
	if err != nil {
		t.Fatalf("RecordInboundReply: %v", err)
	}
	if msg == nil {
		t.Fatal("expected the reply to be recorded")
	}
	if msg.QuoteID != "q1" {
		t.Errorf("quote id = %s, want q1", msg.QuoteID)
	}
	if msg.Direction != threaddomain.DirectionInbound {
		t.Errorf("direction = %s, want inbound", msg.Direction)
	}
	if msg.EmailType != threaddomain.EmailTypeReply {
		t.Errorf("email type = %s, want reply_received", msg.EmailType)
	}

	// A second delivery of the same provider message is a no-op.
	again, err := uc.RecordInboundReply("u1", reply)
	if err != nil {
		t.Fatalf("duplicate RecordInboundReply: %v", err)
	}
	if again != nil {
		t.Error("duplicate reply should not be recorded twice")
	}
}

func TestRecordInboundReplyUnmatchedThread(t *testing.T) {
	_, uc := setupThreadTest(t)

	msg, err := uc.RecordInboundReply("u1", &threaddto.InboundReply{
		ProviderMessageID: "pm-1",
		ProviderThreadID:  "unknown-thread",
		From:              "someone@example.test",
	})
	if err != nil {
		t.Fatalf("RecordInboundReply: %v", err)
	}
	if msg != nil {
		t.Error("an email outside every quote thread must be skipped")
	}
}

func TestMarkRead(t *testing.T) {
	db, uc := setupThreadTest(t)
	seedQuote(t, db, "q1", "u1", nil)
	seedMessage(t, db, "m1", "u1", "q1", "client@acme.test", threaddomain.EmailTypeQuoteSent, "t1", time.Now())

	if err := uc.MarkRead("u1", "m1"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	var stored threaddomain.QuoteEmailMessage
	if err := db.First(&stored, "id = ?", "m1").Error; err != nil {
		t.Fatalf("reading message: %v", err)
	}
	if !stored.Read {
		t.Error("message should be marked read")
	}
}
