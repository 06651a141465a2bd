package repository

import (
	"errors"
	"time"

	billingdomain "quotedesk-backend/internal/billing/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubscriptionRepository defines the persistence interface for subscriptions
type SubscriptionRepository interface {
	// GetByUserID retrieves a user's subscription; returns nil when absent
	GetByUserID(userID string) (*billingdomain.Subscription, error)
	// EnsureDefault creates the free subscription for a user if none exists
	EnsureDefault(userID string) (*billingdomain.Subscription, error)
	// UpdateTier sets the user's tier
	UpdateTier(userID, tier string) error
}

// subscriptionRepository implements SubscriptionRepository interface
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new instance of subscriptionRepository
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{
		db: db,
	}
}

func (r *subscriptionRepository) GetByUserID(userID string) (*billingdomain.Subscription, error) {
	var sub billingdomain.Subscription
	err := r.db.Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) EnsureDefault(userID string) (*billingdomain.Subscription, error) {
	var sub billingdomain.Subscription
	now := time.Now()
	result := r.db.Where("user_id = ?", userID).FirstOrCreate(&sub, billingdomain.Subscription{
		ID:        uuid.New().String(),
		UserID:    userID,
		Tier:      "free",
		Status:    billingdomain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if result.Error != nil {
		return nil, result.Error
	}
	return &sub, nil
}

func (r *subscriptionRepository) UpdateTier(userID, tier string) error {
	result := r.db.Model(&billingdomain.Subscription{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{"tier": tier, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("subscription not found")
	}
	return nil
}
