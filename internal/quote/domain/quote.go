package domain

import "time"

// Subscription tiers controlling the revision ceiling
const (
	TierFree = "free"
	TierPro  = "pro"
)

// Quote statuses
const (
	StatusDraft    = "draft"
	StatusSent     = "sent"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Quote is a priced proposal for a project. A quote with a nil ParentQuoteID is
// the root of its family; every revision stores the root's id as its parent, so
// a family is always the root plus its direct children.
type Quote struct {
	ID            string  `json:"id" gorm:"primaryKey"`
	UserID        string  `json:"user_id" gorm:"index;not null"`
	CompanyID     string  `json:"company_id" gorm:"index"`
	ParentQuoteID *string `json:"parent_quote_id,omitempty" gorm:"index"`

	// VersionNumber is a display label only. Ordering and revision logic never
	// parse it; conversation ordering uses sent_at.
	VersionNumber string `json:"version_number"`
	RevisionNotes string `json:"revision_notes,omitempty" gorm:"type:text"`

	Title       string  `json:"title"`
	ClientName  string  `json:"client_name"`
	ClientEmail string  `json:"client_email" gorm:"index"`
	Currency    string  `json:"currency"`
	TotalAmount float64 `json:"total_amount"`
	Status      string  `json:"status" gorm:"not null;default:draft"`

	Items []QuoteItem `json:"items,omitempty" gorm:"foreignKey:QuoteID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Quote) TableName() string {
	return "quotes"
}

// QuoteItem is one priced line (service) on a quote.
type QuoteItem struct {
	ID          string  `json:"id" gorm:"primaryKey"`
	QuoteID     string  `json:"quote_id" gorm:"index;not null"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// TableName specifies the table name for GORM
func (QuoteItem) TableName() string {
	return "quote_items"
}

// IsRoot reports whether the quote is the original of its family.
func (q *Quote) IsRoot() bool {
	return q.ParentQuoteID == nil
}
