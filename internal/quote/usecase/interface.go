package usecase

import (
	"context"

	quotedomain "quotedesk-backend/internal/quote/domain"
	quotedto "quotedesk-backend/internal/quote/dto"
)

// QuoteUsecase defines the interface for quote use cases
type QuoteUsecase interface {
	CreateQuote(userID string, req *quotedto.CreateQuoteRequest) (*quotedomain.Quote, error)
	CreateRevision(userID, quoteID string, req *quotedto.CreateRevisionRequest) (*quotedomain.Quote, error)
	GetQuote(userID, id string) (*quotedomain.Quote, error)
	ListQuotes(userID string, limit, offset int) ([]quotedomain.Quote, int64, error)
	UpdateStatus(userID, id, status string) error
	// DeleteQuote removes a quote; a root with revisions cannot be deleted
	DeleteQuote(userID, id string) error

	// ResolveRoot walks the parent chain of any family member up to the original quote
	ResolveRoot(userID, quoteID string) (string, error)
	// ResolveFamily returns the root plus its direct revisions
	ResolveFamily(userID, rootID string) ([]quotedomain.Quote, error)
	// CountRevisions counts every family member except the root
	CountRevisions(userID, quoteID string) (int, error)
	// CanCreateRevision checks the tier ceiling without writing anything
	CanCreateRevision(userID, quoteID, tier string) (bool, error)
	RevisionStatus(userID, quoteID string) (*quotedto.RevisionStatusResponse, error)

	GenerateDraft(ctx context.Context, userID, quoteID string) (string, error)

	SetAIService(svc AIDrafter)
	SetVectorStore(store VectorStore)
}

// TierResolver reports the subscription tier for a user.
type TierResolver interface {
	GetTier(userID string) (string, error)
}

// AIDrafter generates client-facing quote prose.
type AIDrafter interface {
	DraftQuoteEmail(ctx context.Context, clientName, title string, items []string, similar []string) (string, error)
}

// VectorStore indexes quote text for similar-quote retrieval.
type VectorStore interface {
	UpsertQuoteEmbedding(ctx context.Context, userID, quoteID, title, body string) error
	SimilarQuotes(ctx context.Context, userID, query string, limit int) ([]string, []float64, error)
	DeleteQuoteEmbedding(ctx context.Context, quoteID string) error
}
