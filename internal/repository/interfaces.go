package repository

import (
	"context"
	"errors"

	"github.com/mishel123hanna/sign-language/internal/domain"
)

// ErrConflict reports a unique constraint violation.
var ErrConflict = errors.New("unique constraint violated")

// UserRepository exposes persistence for accounts. Lookups that find nothing
// return an error wrapping pgx.ErrNoRows.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	GetByID(ctx context.Context, userID int64) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
}

// HistoryRepository stores translation history.
type HistoryRepository interface {
	Create(ctx context.Context, entry domain.TranslationHistory) (domain.TranslationHistory, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.TranslationHistory, int, error)
}

// SignRepository exposes the sign catalogue.
type SignRepository interface {
	ListByLanguage(ctx context.Context, languageCode string) ([]domain.SignGesture, error)
}
