package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mishel123hanna/sign-language/internal/domain"
	"github.com/mishel123hanna/sign-language/internal/repository"
)

type memoryUserRepo struct {
	mu        sync.Mutex
	users     map[int64]domain.User
	createErr error
	getErr    error
}

func newMemoryUserRepo(users ...domain.User) *memoryUserRepo {
	repo := &memoryUserRepo{users: map[int64]domain.User{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *memoryUserRepo) find(match func(domain.User) bool) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return u, nil
		}
	}
	return domain.User{}, fmt.Errorf("get user: %w", pgx.ErrNoRows)
}

func (m *memoryUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	return m.find(func(u domain.User) bool { return u.Email == email })
}

func (m *memoryUserRepo) GetByUsername(_ context.Context, username string) (domain.User, error) {
	return m.find(func(u domain.User) bool { return u.Username == username })
}

func (m *memoryUserRepo) GetByID(_ context.Context, userID int64) (domain.User, error) {
	if m.getErr != nil {
		return domain.User{}, m.getErr
	}
	return m.find(func(u domain.User) bool { return u.ID == userID })
}

func (m *memoryUserRepo) Create(_ context.Context, user domain.User) (domain.User, error) {
	if m.createErr != nil {
		return domain.User{}, m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user.CreatedAt = time.Now().UTC()
	m.users[user.ID] = user
	return user, nil
}

type memoryHistoryRepo struct {
	mu      sync.Mutex
	entries []domain.TranslationHistory
}

func (m *memoryHistoryRepo) Create(_ context.Context, entry domain.TranslationHistory) (domain.TranslationHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.CreatedAt = time.Now().UTC()
	m.entries = append(m.entries, entry)
	return entry, nil
}

func (m *memoryHistoryRepo) ListByUser(_ context.Context, userID int64, limit, offset int) ([]domain.TranslationHistory, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var mine []domain.TranslationHistory
	for _, e := range m.entries {
		if e.UserID == userID {
			mine = append(mine, e)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].ID > mine[j].ID })
	total := len(mine)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return mine[offset:end], total, nil
}

func (m *memoryHistoryRepo) snapshot() []domain.TranslationHistory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TranslationHistory(nil), m.entries...)
}

type memorySignRepo struct {
	signs []domain.SignGesture
}

func (m *memorySignRepo) ListByLanguage(_ context.Context, languageCode string) ([]domain.SignGesture, error) {
	var out []domain.SignGesture
	for _, s := range m.signs {
		if s.LanguageCode == languageCode {
			out = append(out, s)
		}
	}
	return out, nil
}

var (
	_ repository.UserRepository    = (*memoryUserRepo)(nil)
	_ repository.HistoryRepository = (*memoryHistoryRepo)(nil)
	_ repository.SignRepository    = (*memorySignRepo)(nil)
)
