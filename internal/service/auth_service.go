package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/mishel123hanna/sign-language/internal/config"
	"github.com/mishel123hanna/sign-language/internal/domain"
	pw "github.com/mishel123hanna/sign-language/internal/password"
	"github.com/mishel123hanna/sign-language/internal/repository"
	"github.com/mishel123hanna/sign-language/internal/revocation"
)

// TokenIssuer signs credentials.
type TokenIssuer interface {
	Encode(template domain.TokenClaims, ttl time.Duration) (string, domain.TokenClaims, error)
}

const (
	usernameMinLength = 3
	usernameMaxLength = 12
	emailMaxLength    = 25
)

var (
	usernamePattern   = regexp.MustCompile(`^[a-z0-9_]+$`)
	reservedUsernames = map[string]struct{}{
		"admin": {}, "root": {}, "api": {}, "www": {}, "mail": {}, "test": {}, "user": {},
	}
)

// AuthService encapsulates account and credential flows.
type AuthService struct {
	instrumented

	users     repository.UserRepository
	tokens    TokenIssuer
	revoked   revocation.Store
	snowflake *snowflake.Node
	cfg       config.Config
	now       func() time.Time
}

// NewAuthService wires dependencies.
func NewAuthService(users repository.UserRepository, tokens TokenIssuer, revoked revocation.Store, node *snowflake.Node, cfg config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		instrumented: newInstrumented(logger),
		users:        users,
		tokens:       tokens,
		revoked:      revoked,
		snowflake:    node,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Signup validates and stores a new account.
func (s *AuthService) Signup(ctx context.Context, username, email, password string) (UserViewModel, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Signup")
	defer span.End()

	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateUsername(username); err != nil {
		return UserViewModel{}, err
	}
	if err := validateEmail(email); err != nil {
		return UserViewModel{}, err
	}
	if err := pw.Validate(password); err != nil {
		return UserViewModel{}, errValidation(err.Error())
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return UserViewModel{}, errBadRequest("A user with this email already exists.")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		return UserViewModel{}, errInternal("An unexpected error occurred during registration.")
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return UserViewModel{}, errBadRequest("A user with this username already exists.")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		return UserViewModel{}, errInternal("An unexpected error occurred during registration.")
	}

	hash, err := pw.Hash(password)
	if err != nil {
		span.RecordError(err)
		return UserViewModel{}, errInternal("An unexpected error occurred during registration.")
	}

	created, err := s.users.Create(ctx, domain.User{
		ID:           s.snowflake.Generate().Int64(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, repository.ErrConflict) {
			return UserViewModel{}, newAPIError("conflict", "User data conflicts with existing records.", http.StatusConflict)
		}
		return UserViewModel{}, errInternal("An unexpected error occurred during registration.")
	}

	s.audit("signup.success", "user_id", created.ID)
	return newUserViewModel(created), nil
}

// Login checks credentials and issues a paired access and refresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Login")
	defer span.End()

	invalid := newAPIError("invalid_credentials", "Invalid credentials", http.StatusUnauthorized)

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			span.RecordError(err)
			return nil, errInternal("Authentication service unavailable")
		}
		return nil, invalid
	}

	valid, err := pw.Verify(password, user.PasswordHash)
	if err != nil || !valid {
		span.RecordError(fmt.Errorf("invalid password"))
		return nil, invalid
	}
	if !user.IsActive {
		return nil, newAPIError("account_inactive", "Account is deactivated", http.StatusForbidden)
	}

	subject := domain.Subject{UserID: user.ID, Email: user.Email}
	refresh, refreshClaims, err := s.tokens.Encode(domain.TokenClaims{Subject: subject, Refresh: true}, s.cfg.RefreshTokenTTL)
	if err != nil {
		span.RecordError(err)
		return nil, errInternal("Authentication service unavailable")
	}
	access, _, err := s.tokens.Encode(domain.TokenClaims{Subject: subject, RefreshID: refreshClaims.TokenID}, s.cfg.AccessTokenTTL)
	if err != nil {
		span.RecordError(err)
		return nil, errInternal("Authentication service unavailable")
	}

	s.audit("login.success", "user_id", user.ID)
	return &LoginResponse{
		Message:      "Login successful",
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
		User:         LoginUser{ID: user.ID, Email: user.Email, Username: user.Username},
	}, nil
}

// Refresh issues a new access token for an authenticated refresh token. The
// new token stays paired with the presented refresh token.
func (s *AuthService) Refresh(ctx context.Context, refresh domain.TokenClaims) (*RefreshResponse, error) {
	_, span := s.startSpan(ctx, "AuthService.Refresh")
	defer span.End()

	if !refresh.Refresh {
		return nil, newAPIError("wrong_token_type", "Refresh token required", http.StatusForbidden)
	}

	access, _, err := s.tokens.Encode(domain.TokenClaims{Subject: refresh.Subject, RefreshID: refresh.TokenID}, s.cfg.AccessTokenTTL)
	if err != nil {
		span.RecordError(err)
		return nil, errInternal("Token refresh service unavailable")
	}

	s.audit("token.refresh", "user_id", refresh.Subject.UserID)
	return &RefreshResponse{
		AccessToken: access,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

// Logout revokes the access token and the refresh token it was issued with.
func (s *AuthService) Logout(ctx context.Context, access domain.TokenClaims) (*LogoutResponse, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Logout")
	defer span.End()

	if err := s.revoked.Revoke(ctx, access.TokenID); err != nil {
		span.RecordError(err)
		return nil, revocationError(err)
	}
	if access.RefreshID != "" {
		until := s.now().Add(s.cfg.RefreshTokenTTL)
		if err := s.revoked.RevokeUntil(ctx, access.RefreshID, until); err != nil {
			span.RecordError(err)
			return nil, revocationError(err)
		}
	}

	s.audit("logout", "user_id", access.Subject.UserID, "jti", access.TokenID)
	return &LogoutResponse{Message: "Logged out successfully", Detail: "Token has been revoked"}, nil
}

// CurrentUser loads the account named by the claims.
func (s *AuthService) CurrentUser(ctx context.Context, claims domain.TokenClaims) (UserViewModel, error) {
	ctx, span := s.startSpan(ctx, "AuthService.CurrentUser")
	defer span.End()

	user, err := s.activeUser(ctx, claims.Subject.UserID)
	if err != nil {
		span.RecordError(err)
		return UserViewModel{}, err
	}
	return newUserViewModel(user), nil
}

func (s *AuthService) activeUser(ctx context.Context, userID int64) (domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, newAPIError("not_found", "User not found", http.StatusNotFound)
		}
		return domain.User{}, errInternal("Could not load user")
	}
	if !user.IsActive {
		return domain.User{}, newAPIError("account_inactive", "Account is deactivated", http.StatusForbidden)
	}
	return user, nil
}

func revocationError(err error) *APIError {
	if errors.Is(err, revocation.ErrUnavailable) {
		return newAPIError("revocation_unavailable", "Logout service unavailable", http.StatusServiceUnavailable)
	}
	return errInternal("Logout service unavailable")
}

func validateUsername(username string) *APIError {
	n := utf8.RuneCountInString(username)
	if n < usernameMinLength || n > usernameMaxLength {
		return errValidation(fmt.Sprintf("Username must be between %d and %d characters.", usernameMinLength, usernameMaxLength))
	}
	if !usernamePattern.MatchString(username) {
		return errValidation("Username can only contain letters, numbers, and underscores.")
	}
	if strings.HasPrefix(username, "_") {
		return errValidation("Username cannot start with an underscore.")
	}
	if _, reserved := reservedUsernames[username]; reserved {
		return errValidation("This username is reserved.")
	}
	return nil
}

func validateEmail(email string) *APIError {
	if utf8.RuneCountInString(email) > emailMaxLength {
		return errValidation(fmt.Sprintf("Email must be at most %d characters.", emailMaxLength))
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return errValidation("A valid email address is required.")
	}
	return nil
}
