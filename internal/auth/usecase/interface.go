package usecase

import (
	authdomain "quotedesk-backend/internal/auth/domain"
	authdto "quotedesk-backend/internal/auth/dto"
)

// AuthUsecase defines the interface for authentication use cases
type AuthUsecase interface {
	Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error)
	GoogleSignIn(idToken string) (*authdto.TokenResponse, error)
	ConnectGmail(userID, accessToken, refreshToken string) error
	RefreshToken(refreshToken string) (*authdto.TokenResponse, error)
	Logout(refreshToken string) error
	ValidateToken(tokenString string) (*authdomain.User, error)
	RegisterDeviceToken(userID, token, deviceInfo string) error
	UnregisterDeviceToken(userID, token string) error
	// SetUserCreatedCallback registers a hook run after each successful
	// registration, e.g. to provision the default subscription
	SetUserCreatedCallback(fn func(userID string) error)
}
