package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mishel123hanna/sign-language/internal/domain"
)

// Compile-time interface assertions.
var (
	_ UserRepository    = (*PostgresUserRepo)(nil)
	_ HistoryRepository = (*PostgresHistoryRepo)(nil)
	_ SignRepository    = (*PostgresSignRepo)(nil)
)

const uniqueViolation = "23505"

// PostgresUserRepo implements UserRepository.
type PostgresUserRepo struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{db: pool}
}

const userColumns = `id, username, email, password_hash, is_active, created_at`

func (r *PostgresUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by username: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, userID int64) (domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

const insertUserSQL = `INSERT INTO users (id, username, email, password_hash, is_active)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns

func (r *PostgresUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	row := r.db.QueryRow(ctx, insertUserSQL,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.IsActive,
	)
	inserted, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.User{}, fmt.Errorf("create user: %w", ErrConflict)
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return inserted, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// PostgresHistoryRepo implements HistoryRepository.
type PostgresHistoryRepo struct {
	db *pgxpool.Pool
}

func NewPostgresHistoryRepo(pool *pgxpool.Pool) *PostgresHistoryRepo {
	return &PostgresHistoryRepo{db: pool}
}

const insertHistorySQL = `INSERT INTO translation_history (id, user_id, translation_type, input_content, output_content)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, translation_type, input_content, output_content, created_at`

func (r *PostgresHistoryRepo) Create(ctx context.Context, entry domain.TranslationHistory) (domain.TranslationHistory, error) {
	var out domain.TranslationHistory
	err := r.db.QueryRow(ctx, insertHistorySQL,
		entry.ID, entry.UserID, entry.TranslationType, entry.InputContent, entry.OutputContent,
	).Scan(&out.ID, &out.UserID, &out.TranslationType, &out.InputContent, &out.OutputContent, &out.CreatedAt)
	if err != nil {
		return domain.TranslationHistory{}, fmt.Errorf("create history: %w", err)
	}
	return out, nil
}

const listHistorySQL = `SELECT id, user_id, translation_type, input_content, output_content, created_at
FROM translation_history
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

func (r *PostgresHistoryRepo) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.TranslationHistory, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM translation_history WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	rows, err := r.db.Query(ctx, listHistorySQL, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TranslationHistory, error) {
		var h domain.TranslationHistory
		err := row.Scan(&h.ID, &h.UserID, &h.TranslationType, &h.InputContent, &h.OutputContent, &h.CreatedAt)
		return h, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan history: %w", err)
	}
	return entries, total, nil
}

// PostgresSignRepo implements SignRepository.
type PostgresSignRepo struct {
	db *pgxpool.Pool
}

func NewPostgresSignRepo(pool *pgxpool.Pool) *PostgresSignRepo {
	return &PostgresSignRepo{db: pool}
}

func (r *PostgresSignRepo) ListByLanguage(ctx context.Context, languageCode string) ([]domain.SignGesture, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, COALESCE(description, ''), language_code
FROM sign_gestures WHERE language_code = $1 ORDER BY name`, languageCode)
	if err != nil {
		return nil, fmt.Errorf("list signs: %w", err)
	}
	signs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.SignGesture, error) {
		var s domain.SignGesture
		err := row.Scan(&s.ID, &s.Name, &s.Description, &s.LanguageCode)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan signs: %w", err)
	}
	return signs, nil
}
