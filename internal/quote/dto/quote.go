package dto

import quotedomain "quotedesk-backend/internal/quote/domain"

type QuoteItemRequest struct {
	Description string  `json:"description" binding:"required"`
	Quantity    int     `json:"quantity" binding:"required,min=1"`
	UnitPrice   float64 `json:"unit_price" binding:"required"`
}

type CreateQuoteRequest struct {
	Title       string             `json:"title" binding:"required"`
	ClientName  string             `json:"client_name" binding:"required"`
	ClientEmail string             `json:"client_email" binding:"required,email"`
	CompanyID   string             `json:"company_id"`
	Currency    string             `json:"currency"`
	Items       []QuoteItemRequest `json:"items" binding:"required,dive"`
}

type CreateRevisionRequest struct {
	RevisionNotes string             `json:"revision_notes"`
	Items         []QuoteItemRequest `json:"items" binding:"required,dive"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=draft sent accepted rejected"`
}

type QuotesResponse struct {
	Quotes []quotedomain.Quote `json:"quotes"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
	Total  int64               `json:"total"`
}

type RevisionStatusResponse struct {
	RootQuoteID   string `json:"root_quote_id"`
	RevisionCount int    `json:"revision_count"`
	CanRevise     bool   `json:"can_revise"`
	Tier          string `json:"tier"`
}

type DraftResponse struct {
	Draft string `json:"draft"`
}
