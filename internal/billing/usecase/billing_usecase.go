package usecase

import (
	"fmt"

	billingdomain "quotedesk-backend/internal/billing/domain"
	"quotedesk-backend/internal/billing/repository"
	quotedomain "quotedesk-backend/internal/quote/domain"
)

// BillingUsecase defines the interface for subscription use cases
type BillingUsecase interface {
	// GetTier reports the user's tier, defaulting to free when no row exists yet
	GetTier(userID string) (string, error)
	GetSubscription(userID string) (*billingdomain.Subscription, error)
	// ProvisionFreeTier creates the default subscription for a new user
	ProvisionFreeTier(userID string) error
	ChangeTier(userID, tier string) error
}

// billingUsecase implements BillingUsecase interface
type billingUsecase struct {
	subRepo repository.SubscriptionRepository
}

// NewBillingUsecase creates a new instance of billingUsecase
func NewBillingUsecase(subRepo repository.SubscriptionRepository) BillingUsecase {
	return &billingUsecase{
		subRepo: subRepo,
	}
}

func (u *billingUsecase) GetTier(userID string) (string, error) {
	sub, err := u.subRepo.GetByUserID(userID)
	if err != nil {
		return "", err
	}
	if sub == nil || sub.Status != billingdomain.StatusActive {
		return quotedomain.TierFree, nil
	}
	return sub.Tier, nil
}

func (u *billingUsecase) GetSubscription(userID string) (*billingdomain.Subscription, error) {
	return u.subRepo.EnsureDefault(userID)
}

func (u *billingUsecase) ProvisionFreeTier(userID string) error {
	_, err := u.subRepo.EnsureDefault(userID)
	return err
}

func (u *billingUsecase) ChangeTier(userID, tier string) error {
	if tier != quotedomain.TierFree && tier != quotedomain.TierPro {
		return fmt.Errorf("unknown tier: %s", tier)
	}
	if _, err := u.subRepo.EnsureDefault(userID); err != nil {
		return err
	}
	return u.subRepo.UpdateTier(userID, tier)
}
