package usecase

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	quotedomain "quotedesk-backend/internal/quote/domain"
	quotedto "quotedesk-backend/internal/quote/dto"
	"quotedesk-backend/internal/quote/repository"
	"quotedesk-backend/pkg/config"
)

// maxParentDepth bounds the parent-chain walk in ResolveRoot. Revisions are
// written with the root as parent, so a healthy chain has depth 1; anything
// near the bound is malformed data and fails as a corrupt family instead of
// walking forever.
const maxParentDepth = 32

// quoteUsecase implements QuoteUsecase interface
type quoteUsecase struct {
	quoteRepo   repository.QuoteRepository
	tiers       TierResolver
	config      *config.Config
	aiService   AIDrafter
	vectorStore VectorStore
}

// NewQuoteUsecase creates a new instance of quoteUsecase
func NewQuoteUsecase(quoteRepo repository.QuoteRepository, tiers TierResolver, cfg *config.Config) QuoteUsecase {
	return &quoteUsecase{
		quoteRepo: quoteRepo,
		tiers:     tiers,
		config:    cfg,
	}
}

func (u *quoteUsecase) SetAIService(svc AIDrafter) {
	u.aiService = svc
}

func (u *quoteUsecase) SetVectorStore(store VectorStore) {
	u.vectorStore = store
}

// ResolveRoot resolves any family member to the original quote. The walk is
// iterative and depth-bounded; a dangling parent mid-chain or an over-deep
// chain surfaces as ErrCorruptFamily rather than a missing-quote error.
func (u *quoteUsecase) ResolveRoot(userID, quoteID string) (string, error) {
	id := quoteID
	for depth := 0; depth < maxParentDepth; depth++ {
		quote, err := u.quoteRepo.GetByID(id)
		if err != nil {
			return "", err
		}
		if quote == nil {
			if depth == 0 {
				return "", quotedomain.ErrQuoteNotFound
			}
			return "", fmt.Errorf("%w: dangling parent reference %s", quotedomain.ErrCorruptFamily, id)
		}
		if quote.UserID != userID {
			return "", quotedomain.ErrUnauthorized
		}
		if quote.ParentQuoteID == nil {
			return quote.ID, nil
		}
		id = *quote.ParentQuoteID
	}
	return "", fmt.Errorf("%w: parent chain exceeds depth %d", quotedomain.ErrCorruptFamily, maxParentDepth)
}

func (u *quoteUsecase) ResolveFamily(userID, rootID string) ([]quotedomain.Quote, error) {
	return u.quoteRepo.FindFamily(userID, rootID)
}

// CountRevisions counts the family members descended from the root. Every
// member of the same family reports the same count.
func (u *quoteUsecase) CountRevisions(userID, quoteID string) (int, error) {
	rootID, err := u.ResolveRoot(userID, quoteID)
	if err != nil {
		return 0, err
	}
	family, err := u.quoteRepo.FindFamily(userID, rootID)
	if err != nil {
		return 0, err
	}
	return len(family) - 1, nil
}

func (u *quoteUsecase) CanCreateRevision(userID, quoteID, tier string) (bool, error) {
	if tier == quotedomain.TierPro {
		return true, nil
	}
	count, err := u.CountRevisions(userID, quoteID)
	if err != nil {
		return false, err
	}
	return count < u.config.FreeRevisionLimit, nil
}

func (u *quoteUsecase) RevisionStatus(userID, quoteID string) (*quotedto.RevisionStatusResponse, error) {
	tier, err := u.tiers.GetTier(userID)
	if err != nil {
		return nil, err
	}
	rootID, err := u.ResolveRoot(userID, quoteID)
	if err != nil {
		return nil, err
	}
	count, err := u.CountRevisions(userID, quoteID)
	if err != nil {
		return nil, err
	}
	canRevise := tier == quotedomain.TierPro || count < u.config.FreeRevisionLimit
	return &quotedto.RevisionStatusResponse{
		RootQuoteID:   rootID,
		RevisionCount: count,
		CanRevise:     canRevise,
		Tier:          tier,
	}, nil
}

func (u *quoteUsecase) CreateQuote(userID string, req *quotedto.CreateQuoteRequest) (*quotedomain.Quote, error) {
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	quote := &quotedomain.Quote{
		UserID:        userID,
		CompanyID:     req.CompanyID,
		VersionNumber: "1",
		Title:         req.Title,
		ClientName:    req.ClientName,
		ClientEmail:   req.ClientEmail,
		Currency:      currency,
		Status:        quotedomain.StatusDraft,
		Items:         buildItems(req.Items),
	}
	quote.TotalAmount = totalOf(quote.Items)

	if err := u.quoteRepo.Create(quote); err != nil {
		return nil, fmt.Errorf("%w: %v", quotedomain.ErrWriteFailed, err)
	}

	u.indexQuote(quote)
	return quote, nil
}

// CreateRevision creates a new family member. The parent stored on the
// revision is always the resolved root, never the quote the caller revised
// from, which keeps every family a two-level tree.
func (u *quoteUsecase) CreateRevision(userID, quoteID string, req *quotedto.CreateRevisionRequest) (*quotedomain.Quote, error) {
	rootID, err := u.ResolveRoot(userID, quoteID)
	if err != nil {
		return nil, err
	}

	tier, err := u.tiers.GetTier(userID)
	if err != nil {
		return nil, err
	}
	ok, err := u.CanCreateRevision(userID, rootID, tier)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, quotedomain.ErrRevisionLimit
	}

	root, err := u.quoteRepo.GetByID(rootID)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, quotedomain.ErrQuoteNotFound
	}

	family, err := u.quoteRepo.FindFamily(userID, rootID)
	if err != nil {
		return nil, err
	}

	revision := &quotedomain.Quote{
		UserID:        userID,
		CompanyID:     root.CompanyID,
		ParentQuoteID: &rootID,
		VersionNumber: strconv.Itoa(len(family) + 1),
		RevisionNotes: req.RevisionNotes,
		Title:         root.Title,
		ClientName:    root.ClientName,
		ClientEmail:   root.ClientEmail,
		Currency:      root.Currency,
		Status:        quotedomain.StatusDraft,
		Items:         buildItems(req.Items),
	}
	revision.TotalAmount = totalOf(revision.Items)

	if err := u.quoteRepo.Create(revision); err != nil {
		return nil, fmt.Errorf("%w: %v", quotedomain.ErrWriteFailed, err)
	}

	u.indexQuote(revision)
	return revision, nil
}

func (u *quoteUsecase) GetQuote(userID, id string) (*quotedomain.Quote, error) {
	quote, err := u.quoteRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, quotedomain.ErrQuoteNotFound
	}
	if quote.UserID != userID {
		return nil, quotedomain.ErrUnauthorized
	}
	return quote, nil
}

func (u *quoteUsecase) ListQuotes(userID string, limit, offset int) ([]quotedomain.Quote, int64, error) {
	return u.quoteRepo.List(userID, limit, offset)
}

func (u *quoteUsecase) UpdateStatus(userID, id, status string) error {
	return u.quoteRepo.UpdateStatus(userID, id, status)
}

// DeleteQuote removes a quote. A root that still has revisions stays: deleting
// it would orphan the family and break parent-chain resolution.
func (u *quoteUsecase) DeleteQuote(userID, id string) error {
	quote, err := u.GetQuote(userID, id)
	if err != nil {
		return err
	}
	if quote.IsRoot() {
		family, err := u.quoteRepo.FindFamily(userID, id)
		if err != nil {
			return err
		}
		if len(family) > 1 {
			return fmt.Errorf("%w: quote has revisions, delete them first", quotedomain.ErrWriteFailed)
		}
	}

	if err := u.quoteRepo.Delete(userID, id); err != nil {
		return err
	}

	if u.vectorStore != nil {
		if err := u.vectorStore.DeleteQuoteEmbedding(context.Background(), id); err != nil {
			log.Printf("[Quote] Failed to remove quote %s from index: %v", id, err)
		}
	}
	return nil
}

// GenerateDraft asks the AI provider for a client-facing cover letter, feeding
// it the quote's line items and, when the vector store is configured, titles of
// the user's most similar past quotes as tone references.
func (u *quoteUsecase) GenerateDraft(ctx context.Context, userID, quoteID string) (string, error) {
	if u.aiService == nil {
		return "", fmt.Errorf("AI drafting is not configured")
	}

	quote, err := u.GetQuote(userID, quoteID)
	if err != nil {
		return "", err
	}

	items := make([]string, 0, len(quote.Items))
	for _, it := range quote.Items {
		items = append(items, fmt.Sprintf("%s x%d @ %.2f %s", it.Description, it.Quantity, it.UnitPrice, quote.Currency))
	}

	var similar []string
	if u.vectorStore != nil {
		ids, _, err := u.vectorStore.SimilarQuotes(ctx, userID, quote.Title, 3)
		if err != nil {
			log.Printf("[Quote] Similar-quote lookup failed, drafting without references: %v", err)
		} else {
			for _, id := range ids {
				if id == quote.ID {
					continue
				}
				past, err := u.quoteRepo.GetByID(id)
				if err != nil || past == nil || past.UserID != userID {
					continue
				}
				similar = append(similar, past.Title)
			}
		}
	}

	return u.aiService.DraftQuoteEmail(ctx, quote.ClientName, quote.Title, items, similar)
}

// indexQuote pushes the quote text to the vector store. Best effort: drafting
// works without embeddings, so failures are logged and swallowed.
func (u *quoteUsecase) indexQuote(quote *quotedomain.Quote) {
	if u.vectorStore == nil {
		return
	}
	var b strings.Builder
	for _, it := range quote.Items {
		fmt.Fprintf(&b, "%s\n", it.Description)
	}
	if err := u.vectorStore.UpsertQuoteEmbedding(context.Background(), quote.UserID, quote.ID, quote.Title, b.String()); err != nil {
		log.Printf("[Quote] Failed to index quote %s: %v", quote.ID, err)
	}
}

func buildItems(reqs []quotedto.QuoteItemRequest) []quotedomain.QuoteItem {
	items := make([]quotedomain.QuoteItem, 0, len(reqs))
	for _, r := range reqs {
		items = append(items, quotedomain.QuoteItem{
			Description: r.Description,
			Quantity:    r.Quantity,
			UnitPrice:   r.UnitPrice,
		})
	}
	return items
}

func totalOf(items []quotedomain.QuoteItem) float64 {
	var total float64
	for _, it := range items {
		total += float64(it.Quantity) * it.UnitPrice
	}
	return total
}
