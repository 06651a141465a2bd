package domain

import "time"

type User struct {
	ID          string `json:"id" gorm:"primaryKey"`
	Email       string `json:"email" gorm:"uniqueIndex;not null"`
	Password    string `json:"-"` // Never return password in JSON
	Name        string `json:"name"`
	CompanyName string `json:"company_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Provider    string `json:"provider"` // "email" or "google"

	// Gmail OAuth tokens, stored when the user connects their mailbox.
	GoogleAccessToken  string `json:"-"`
	GoogleRefreshToken string `json:"-"`

	// LastHistoryID is the Gmail history checkpoint for push-driven sync.
	LastHistoryID uint64 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RefreshToken struct {
	Token     string    `json:"token" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index"`
	ExpiresAt time.Time `json:"expires_at"`
}
