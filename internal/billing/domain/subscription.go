package domain

import "time"

// Subscription statuses
const (
	StatusActive   = "active"
	StatusCanceled = "canceled"
)

// Subscription records one user's tier. Exactly one row per user; created on
// registration at the free tier and flipped by upgrade/downgrade operations.
type Subscription struct {
	ID     string `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"uniqueIndex;not null"`
	Tier   string `json:"tier" gorm:"not null;default:free"`
	Status string `json:"status" gorm:"not null;default:active"`

	// ProviderCustomerID links the payment provider's customer record.
	// Webhook handling lives outside this service.
	ProviderCustomerID string `json:"-"`

	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}
