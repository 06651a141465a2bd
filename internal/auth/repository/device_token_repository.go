package repository

import (
	"errors"
	"time"

	authdomain "quotedesk-backend/internal/auth/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeviceTokenRepository defines the persistence interface for FCM device tokens
type DeviceTokenRepository interface {
	Save(userID, token, deviceInfo string) error
	FindByUserID(userID string) ([]authdomain.DeviceToken, error)
	Delete(userID, token string) error
	DeleteTokens(tokens []string) error
}

// deviceTokenRepository implements DeviceTokenRepository interface
type deviceTokenRepository struct {
	db *gorm.DB
}

// NewDeviceTokenRepository creates a new instance of deviceTokenRepository
func NewDeviceTokenRepository(db *gorm.DB) DeviceTokenRepository {
	return &deviceTokenRepository{
		db: db,
	}
}

func (r *deviceTokenRepository) Save(userID, token, deviceInfo string) error {
	var existing authdomain.DeviceToken
	err := r.db.Where("token = ?", token).First(&existing).Error

	now := time.Now()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record := authdomain.DeviceToken{
			ID:         uuid.New().String(),
			UserID:     userID,
			Token:      token,
			DeviceInfo: deviceInfo,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return r.db.Create(&record).Error
	} else if err != nil {
		return err
	}

	// Token re-registered, possibly by a different account on the same device
	existing.UserID = userID
	existing.DeviceInfo = deviceInfo
	existing.UpdatedAt = now
	return r.db.Save(&existing).Error
}

func (r *deviceTokenRepository) FindByUserID(userID string) ([]authdomain.DeviceToken, error) {
	var tokens []authdomain.DeviceToken
	err := r.db.Where("user_id = ?", userID).Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *deviceTokenRepository) Delete(userID, token string) error {
	return r.db.Where("user_id = ? AND token = ?", userID, token).Delete(&authdomain.DeviceToken{}).Error
}

// DeleteTokens removes stale registrations reported as failed by FCM
func (r *deviceTokenRepository) DeleteTokens(tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	return r.db.Where("token IN ?", tokens).Delete(&authdomain.DeviceToken{}).Error
}
