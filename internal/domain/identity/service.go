package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"github.com/mediq/mediq/internal/platform/auth"
)

var (
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email address is not verified")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrTokenInvalid       = errors.New("verification token is invalid or expired")
	ErrUserNotFound       = errors.New("user not found")
)

var validRoles = map[string]bool{
	auth.RoleUser: true, auth.RoleModerator: true,
	auth.RoleAdmin: true, auth.RoleSuperAdmin: true,
}

type Service struct {
	repo     Repository
	tokens   *auth.TokenIssuer
	tokenTTL time.Duration
}

func NewService(repo Repository, tokens *auth.TokenIssuer, verificationTTL time.Duration) *Service {
	return &Service{repo: repo, tokens: tokens, tokenTTL: verificationTTL}
}

// SignUpResult carries the created account plus the verification token the
// caller delivers out of band.
type SignUpResult struct {
	User              *User
	VerificationToken string
}

func (s *Service) SignUp(ctx context.Context, email, displayName, password string) (*SignUpResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("valid email is required")
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check existing account: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hash,
		Role:         auth.RoleUser,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.issueVerification(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", u.ID.String()).Msg("user registered")
	return &SignUpResult{User: u, VerificationToken: token}, nil
}

// SignInResult is a session token plus the account it belongs to.
type SignInResult struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("look up account: %w", err)
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if u.Disabled {
		return nil, ErrAccountDisabled
	}
	if !u.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	token, expiresAt, err := s.tokens.Issue(u.ID.String(), u.Email, u.Role, u.EmailVerified)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	if err := s.repo.RecordLogin(ctx, u.ID); err != nil {
		log.Warn().Err(err).Str("user_id", u.ID.String()).Msg("failed to record login time")
	}

	return &SignInResult{User: u, Token: token, ExpiresAt: expiresAt}, nil
}

// VerifyEmail consumes a verification token. Expired or unknown tokens
// fail with ErrTokenInvalid; used tokens are deleted with their siblings.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	t, err := s.repo.GetToken(ctx, token)
	if err != nil {
		return fmt.Errorf("look up token: %w", err)
	}
	if t == nil || t.Expired(time.Now()) {
		return ErrTokenInvalid
	}

	u, err := s.repo.GetByID(ctx, t.UserID)
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}
	if u == nil {
		return ErrTokenInvalid
	}

	u.EmailVerified = true
	if err := s.repo.Update(ctx, u); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	if err := s.repo.DeleteTokensForUser(ctx, u.ID); err != nil {
		log.Warn().Err(err).Str("user_id", u.ID.String()).Msg("failed to clean up verification tokens")
	}
	return nil
}

// ResendVerification issues a fresh token for an unverified account.
func (s *Service) ResendVerification(ctx context.Context, email string) (string, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("look up account: %w", err)
	}
	if u == nil {
		return "", ErrUserNotFound
	}
	if u.EmailVerified {
		return "", fmt.Errorf("email is already verified")
	}
	if err := s.repo.DeleteTokensForUser(ctx, u.ID); err != nil {
		return "", fmt.Errorf("invalidate old tokens: %w", err)
	}
	return s.issueVerification(ctx, u.ID)
}

func (s *Service) issueVerification(ctx context.Context, userID uuid.UUID) (string, error) {
	t := &VerificationToken{
		Token:     ulid.Make().String(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.tokenTTL),
	}
	if err := s.repo.CreateToken(ctx, t); err != nil {
		return "", fmt.Errorf("store verification token: %w", err)
	}
	return t.Token, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// UpdateRole changes a user's global role.
func (s *Service) UpdateRole(ctx context.Context, id uuid.UUID, role string) (*User, error) {
	if !validRoles[role] {
		return nil, fmt.Errorf("invalid role: %s", role)
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Role = role
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	return u, nil
}

// SetDisabled toggles the account lockout flag.
func (s *Service) SetDisabled(ctx context.Context, id uuid.UUID, disabled bool) (*User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Disabled = disabled
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	return u, nil
}
