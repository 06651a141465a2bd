package ai

import "context"

// DrafterService is the interface for AI quote-prose generation.
// Implement this interface to add new AI providers.
type DrafterService interface {
	// DraftQuoteEmail writes a client-facing cover letter for a quote. similar
	// holds titles of the user's past quotes to keep the tone consistent.
	DraftQuoteEmail(ctx context.Context, clientName, title string, items []string, similar []string) (string, error)
	// SummarizeRevisionNotes condenses free-form revision notes into one or two
	// sentences suitable for the email annotation.
	SummarizeRevisionNotes(ctx context.Context, notes string) (string, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
)
