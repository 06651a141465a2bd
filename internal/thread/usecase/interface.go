package usecase

import (
	"context"
	"time"

	quotedomain "quotedesk-backend/internal/quote/domain"
	threaddomain "quotedesk-backend/internal/thread/domain"
	threaddto "quotedesk-backend/internal/thread/dto"
	gmailpkg "quotedesk-backend/pkg/gmail"
	imappkg "quotedesk-backend/pkg/imap"
)

// ThreadUsecase defines the interface for conversation-thread use cases
type ThreadUsecase interface {
	// FindThread locates the existing conversation with a recipient across a
	// quote family, so a new send can continue it instead of starting fresh
	FindThread(userID, quoteID, recipient string) (*threaddomain.ThreadLookup, error)
	// RecordSent persists one outbound message against the revision actually sent
	RecordSent(userID, quoteID, rootID string, msg *threaddomain.QuoteEmailMessage, revCtx threaddomain.RevisionContext) error
	// GetHistory reconstructs the family-wide conversation timeline, oldest first
	GetHistory(userID, quoteID string) ([]threaddomain.MessageSummary, error)

	SendQuote(ctx context.Context, userID, quoteID string, req *threaddto.SendQuoteRequest) (*threaddomain.QuoteEmailMessage, error)
	// RecordInboundReply matches a received email to a quote thread and stores
	// it; returns nil without error when the email belongs to no quote thread
	RecordInboundReply(userID string, reply *threaddto.InboundReply) (*threaddomain.QuoteEmailMessage, error)
	MarkRead(userID, messageID string) error
	WatchMailbox(ctx context.Context, userID string) error
	SyncIMAPInbox(ctx context.Context, userID, addr, username, password string) (int, error)

	SetAIService(svc NoteSummarizer)
}

// NoteSummarizer condenses free-form revision notes for email annotations.
type NoteSummarizer interface {
	SummarizeRevisionNotes(ctx context.Context, notes string) (string, error)
}

// QuoteDirectory is the slice of the quote usecase the thread layer needs.
type QuoteDirectory interface {
	ResolveRoot(userID, quoteID string) (string, error)
	ResolveFamily(userID, rootID string) ([]quotedomain.Quote, error)
	GetQuote(userID, id string) (*quotedomain.Quote, error)
	UpdateStatus(userID, id, status string) error
}

// MailSender abstracts the Gmail service so tests can substitute a fake.
type MailSender interface {
	SendQuoteEmail(ctx context.Context, accessToken, refreshToken string, out gmailpkg.OutgoingMessage, onTokenRefresh gmailpkg.TokenUpdateFunc) (*gmailpkg.SendResult, error)
	Watch(ctx context.Context, accessToken, refreshToken, topicName string, onTokenRefresh gmailpkg.TokenUpdateFunc) error
}

// InboxFetcher abstracts the IMAP polling fallback.
type InboxFetcher interface {
	FetchSince(addr, username, password string, since time.Time, limit int) ([]imappkg.InboundEmail, error)
}
