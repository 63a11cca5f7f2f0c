package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ghostreact/markapp/internal/config"
	"github.com/ghostreact/markapp/internal/ids"
	"github.com/ghostreact/markapp/internal/models"
	"github.com/ghostreact/markapp/internal/repository"
	"github.com/ghostreact/markapp/internal/security"
)

var (
	// ErrInvalidCredentials is returned for a wrong password and for an
	// unknown user alike, so a login probe cannot enumerate usernames.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated covers every refresh failure: missing token,
	// bad signature, expired, revoked, no matching session.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// UserStore is the slice of the user repository the auth flow needs.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	ExistsByRole(ctx context.Context, role models.Role) (bool, error)
	UpdateRole(ctx context.Context, id string, role models.Role) error
}

// SessionStore persists refresh-token sessions. RevokeIfActive must be
// an atomic conditional update reporting whether this caller won.
type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	ListActiveByUser(ctx context.Context, userID string) ([]models.Session, error)
	ListActive(ctx context.Context) ([]models.Session, error)
	RevokeIfActive(ctx context.Context, id string) (bool, error)
}

// ClientMeta is informational request metadata recorded on sessions.
// It is never used for token validation.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type LoginResult struct {
	TokenPair
	User models.User
}

type AuthService struct {
	users    UserStore
	sessions SessionStore
	cfg      *config.SecurityConfig
	log      zerolog.Logger
}

func NewAuthService(users UserStore, sessions SessionStore, cfg *config.SecurityConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
	}
}

func (s *AuthService) Login(ctx context.Context, identifier, password string, meta ClientMeta) (LoginResult, error) {
	user, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("find user: %w", err)
	}

	ok, err := security.VerifySecret(password, user.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, ErrInvalidCredentials
	}

	pair, err := s.openSession(ctx, user, meta)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{TokenPair: pair, User: user}, nil
}

// openSession issues a token pair and persists the refresh side as a
// new session. The stored expiry is the refresh token's own exp claim,
// never a recomputed timestamp.
func (s *AuthService) openSession(ctx context.Context, user models.User, meta ClientMeta) (TokenPair, error) {
	accessToken, err := security.IssueAccessToken(s.cfg.JWTAccessSecret, user.ID, string(user.Role), s.cfg.JWTAccessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, expiresAt, err := security.IssueRefreshToken(s.cfg.JWTRefreshSecret, user.ID, s.cfg.JWTRefreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	refreshHash, err := security.HashSecret(refreshToken)
	if err != nil {
		return TokenPair{}, fmt.Errorf("hash refresh token: %w", err)
	}

	session := models.Session{
		ID:               ids.New(),
		UserID:           user.ID,
		RefreshTokenHash: refreshHash,
		UserAgent:        meta.UserAgent,
		IPAddress:        meta.IPAddress,
		IsRevoked:        false,
		ExpiresAt:        expiresAt,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return TokenPair{}, fmt.Errorf("create session: %w", err)
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh exchanges a presented refresh token for a new pair, revoking
// the matched session first. A token that fails signature or expiry
// checks is rejected outright; claims are never trusted from an
// unverified decode here.
func (s *AuthService) Refresh(ctx context.Context, presented string, meta ClientMeta) (TokenPair, error) {
	if presented == "" {
		return TokenPair{}, ErrUnauthenticated
	}

	claims, err := security.VerifyRefreshToken(presented, s.cfg.JWTRefreshSecret)
	if err != nil {
		return TokenPair{}, ErrUnauthenticated
	}

	sessions, err := s.sessions.ListActiveByUser(ctx, claims.Subject)
	if err != nil {
		return TokenPair{}, fmt.Errorf("list sessions: %w", err)
	}

	matched, ok := matchSession(presented, sessions)
	if !ok || matched.ExpiresAt.Before(time.Now()) {
		return TokenPair{}, ErrUnauthenticated
	}

	// One-time use: the conditional update makes rotation atomic. If a
	// concurrent exchange of the same token got here first, this caller
	// loses and is rejected instead of minting a second lineage.
	won, err := s.sessions.RevokeIfActive(ctx, matched.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("revoke session: %w", err)
	}
	if !won {
		return TokenPair{}, ErrUnauthenticated
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return TokenPair{}, ErrUnauthenticated
		}
		return TokenPair{}, fmt.Errorf("load user: %w", err)
	}

	return s.openSession(ctx, user, meta)
}

// Logout revokes the session matching the presented refresh token.
// It is idempotent and never fails: a missing, garbled, or already
// consumed token still counts as logged out. The unverified subject
// decode only narrows which sessions get scanned; trust comes from the
// hash comparison alone.
func (s *AuthService) Logout(ctx context.Context, presented string) {
	if presented == "" {
		return
	}

	var sessions []models.Session
	var err error
	if claims, verifyErr := security.VerifyRefreshToken(presented, s.cfg.JWTRefreshSecret); verifyErr == nil {
		sessions, err = s.sessions.ListActiveByUser(ctx, claims.Subject)
	} else if subject, ok := security.DecodeSubjectUnverified(presented); ok {
		sessions, err = s.sessions.ListActiveByUser(ctx, subject)
	} else {
		sessions, err = s.sessions.ListActive(ctx)
	}
	if err != nil {
		s.log.Error().Err(err).Msg("logout: list sessions failed")
		return
	}

	matched, ok := matchSession(presented, sessions)
	if !ok {
		return
	}
	if _, err := s.sessions.RevokeIfActive(ctx, matched.ID); err != nil {
		s.log.Error().Err(err).Str("session_id", matched.ID).Msg("logout: revoke failed")
	}
}

// matchSession finds the first session whose stored hash matches the
// presented token. Sessions arrive newest first, so the live session
// is normally the first compare.
func matchSession(presented string, sessions []models.Session) (models.Session, bool) {
	for _, session := range sessions {
		ok, err := security.VerifySecret(presented, session.RefreshTokenHash)
		if err == nil && ok {
			return session, true
		}
	}
	return models.Session{}, false
}

// EnsureAdmin seeds the initial Admin account when none exists. It is
// idempotent by construction and safe to call on every startup; there
// is no process-global "already ran" flag.
func (s *AuthService) EnsureAdmin(ctx context.Context) error {
	exists, err := s.users.ExistsByRole(ctx, models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("check admin exists: %w", err)
	}
	if exists {
		return nil
	}

	if s.cfg.AdminUsername == "" || s.cfg.AdminPassword == "" {
		s.log.Warn().Msg("no admin user exists and admin credentials are not configured, skipping seed")
		return nil
	}

	if existing, err := s.users.FindByIdentifier(ctx, s.cfg.AdminUsername); err == nil {
		if existing.Role != models.RoleAdmin {
			if err := s.users.UpdateRole(ctx, existing.ID, models.RoleAdmin); err != nil {
				return fmt.Errorf("elevate admin: %w", err)
			}
			s.log.Info().Str("username", existing.Username).Msg("elevated existing user to admin")
		}
		return nil
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("find admin user: %w", err)
	}

	passwordHash, err := security.HashSecret(s.cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := models.User{
		ID:           ids.New(),
		Username:     s.cfg.AdminUsername,
		PasswordHash: passwordHash,
		Role:         models.RoleAdmin,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	s.log.Info().Str("username", admin.Username).Msg("seeded initial admin user")
	return nil
}
