package service

import (
	"time"

	"github.com/mishel123hanna/sign-language/internal/domain"
)

// UserViewModel is the public projection of an account.
type UserViewModel struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserViewModel(u domain.User) UserViewModel {
	return UserViewModel{ID: u.ID, Username: u.Username, Email: u.Email, IsActive: u.IsActive, CreatedAt: u.CreatedAt}
}

// LoginUser is the abbreviated user embedded in login responses.
type LoginUser struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Message      string    `json:"message"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	User         LoginUser `json:"user"`
}

// RefreshResponse carries a new access token.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// LogoutResponse confirms revocation.
type LogoutResponse struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// GenerateVideoResponse points at a generated video.
type GenerateVideoResponse struct {
	VideoFilename string `json:"video_filename"`
	VideoURL      string `json:"video_url"`
	Message       string `json:"message"`
}

// HistoryResponse is one page of a user's translation history.
type HistoryResponse struct {
	UserID     int64                       `json:"user_id"`
	Username   string                      `json:"username"`
	History    []domain.TranslationHistory `json:"history"`
	TotalCount int                         `json:"total_count"`
}

// SignsResponse lists the catalogue for a language.
type SignsResponse struct {
	LanguageCode   string               `json:"language_code"`
	AvailableSigns []domain.SignGesture `json:"available_signs"`
}

const tokenTypeBearer = "bearer"
