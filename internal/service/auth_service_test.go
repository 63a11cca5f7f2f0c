package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostreact/markapp/internal/config"
	"github.com/ghostreact/markapp/internal/models"
	"github.com/ghostreact/markapp/internal/repository"
	"github.com/ghostreact/markapp/internal/security"
)

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]models.User{}}
}

func (f *fakeUserStore) Create(_ context.Context, user models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserStore) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Username == identifier {
			return user, nil
		}
		if user.Email != nil && *user.Email == identifier {
			return user, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *fakeUserStore) ExistsByRole(_ context.Context, role models.Role) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Role == role {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) UpdateRole(_ context.Context, id string, role models.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.Role = role
	f.users[id] = user
	return nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions []models.Session
}

func (f *fakeSessionStore) Create(_ context.Context, session models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session.CreatedAt = time.Now()
	f.sessions = append(f.sessions, session)
	return nil
}

func (f *fakeSessionStore) ListActiveByUser(_ context.Context, userID string) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Session
	for i := len(f.sessions) - 1; i >= 0; i-- {
		if f.sessions[i].UserID == userID && !f.sessions[i].IsRevoked {
			out = append(out, f.sessions[i])
		}
	}
	return out, nil
}

func (f *fakeSessionStore) ListActive(_ context.Context) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Session
	for i := len(f.sessions) - 1; i >= 0; i-- {
		if !f.sessions[i].IsRevoked {
			out = append(out, f.sessions[i])
		}
	}
	return out, nil
}

func (f *fakeSessionStore) RevokeIfActive(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sessions {
		if f.sessions[i].ID == id && !f.sessions[i].IsRevoked {
			f.sessions[i].IsRevoked = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSessionStore) all() []models.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Session, len(f.sessions))
	copy(out, f.sessions)
	return out
}

func testSecurityConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		JWTAccessSecret:  "access-secret-for-tests",
		JWTRefreshSecret: "refresh-secret-for-tests",
		JWTAccessTTL:     15 * time.Minute,
		JWTRefreshTTL:    720 * time.Hour,
	}
}

func newTestAuthService(t *testing.T) (*AuthService, *fakeUserStore, *fakeSessionStore) {
	t.Helper()
	users := newFakeUserStore()
	sessions := &fakeSessionStore{}
	svc := NewAuthService(users, sessions, testSecurityConfig(), zerolog.Nop())
	return svc, users, sessions
}

func seedUser(t *testing.T, users *fakeUserStore, username, password string, role models.Role) models.User {
	t.Helper()
	hash, err := security.HashSecret(password)
	require.NoError(t, err)
	user := models.User{
		ID:           "user-" + username,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

func TestLoginSuccess(t *testing.T) {
	svc, users, sessions := newTestAuthService(t)
	user := seedUser(t, users, "alice", "correct-horse", models.RoleTeacher)

	result, err := svc.Login(context.Background(), "alice", "correct-horse", ClientMeta{UserAgent: "go-test", IPAddress: "127.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, user.ID, result.User.ID)

	claims, err := security.VerifyAccessToken(result.AccessToken, "access-secret-for-tests")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, string(models.RoleTeacher), claims.Role)

	stored := sessions.all()
	require.Len(t, stored, 1)
	assert.Equal(t, user.ID, stored[0].UserID)
	assert.False(t, stored[0].IsRevoked)
	assert.Equal(t, "go-test", stored[0].UserAgent)
	assert.NotEqual(t, result.RefreshToken, stored[0].RefreshTokenHash, "refresh token must never be stored in plaintext")

	// Stored expiry is the refresh token's own exp claim.
	refreshClaims, err := security.VerifyRefreshToken(result.RefreshToken, "refresh-secret-for-tests")
	require.NoError(t, err)
	assert.Equal(t, refreshClaims.ExpiresAt.Unix(), stored[0].ExpiresAt.Unix())
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, users, sessions := newTestAuthService(t)
	seedUser(t, users, "alice", "correct-horse", models.RoleStudent)

	_, err := svc.Login(context.Background(), "alice", "wrong", ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, sessions.all(), "failed login must not open a session")
}

func TestLoginUnknownUserLooksLikeWrongPassword(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), "nobody", "anything", ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, users, sessions := newTestAuthService(t)
	user := seedUser(t, users, "alice", "pw", models.RoleStudent)

	login, err := svc.Login(context.Background(), "alice", "pw", ClientMeta{})
	require.NoError(t, err)

	pair, err := svc.Refresh(context.Background(), login.RefreshToken, ClientMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEqual(t, login.RefreshToken, pair.RefreshToken)

	stored := sessions.all()
	require.Len(t, stored, 2)
	assert.True(t, stored[0].IsRevoked, "consumed session must be revoked")
	assert.False(t, stored[1].IsRevoked)
	assert.Equal(t, user.ID, stored[1].UserID)
}

func TestRefreshTokenIsSingleUse(t *testing.T) {
	svc, users, _ := newTestAuthService(t)
	seedUser(t, users, "alice", "pw", models.RoleStudent)

	login, err := svc.Login(context.Background(), "alice", "pw", ClientMeta{})
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), login.RefreshToken, ClientMeta{})
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), login.RefreshToken, ClientMeta{})
	assert.ErrorIs(t, err, ErrUnauthenticated, "replaying a consumed refresh token must fail")
}

func TestRefreshRejectsBadTokens(t *testing.T) {
	svc, users, _ := newTestAuthService(t)
	user := seedUser(t, users, "alice", "pw", models.RoleStudent)

	_, err := svc.Refresh(context.Background(), "", ClientMeta{})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Refresh(context.Background(), "garbage", ClientMeta{})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// Signed with the wrong secret.
	forged, _, err := security.IssueRefreshToken("attacker-secret", user.ID, time.Hour)
	require.NoError(t, err)
	_, err = svc.Refresh(context.Background(), forged, ClientMeta{})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// Valid signature but no matching session.
	orphan, _, err := security.IssueRefreshToken("refresh-secret-for-tests", user.ID, time.Hour)
	require.NoError(t, err)
	_, err = svc.Refresh(context.Background(), orphan, ClientMeta{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRefreshRejectsExpiredSession(t *testing.T) {
	svc, users, sessions := newTestAuthService(t)
	seedUser(t, users, "alice", "pw", models.RoleStudent)

	login, err := svc.Login(context.Background(), "alice", "pw", ClientMeta{})
	require.NoError(t, err)

	// Force the session past its expiry without touching the token.
	sessions.mu.Lock()
	sessions.sessions[0].ExpiresAt = time.Now().Add(-time.Minute)
	sessions.mu.Unlock()

	_, err = svc.Refresh(context.Background(), login.RefreshToken, ClientMeta{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLogoutRevokesMatchedSession(t *testing.T) {
	svc, users, sessions := newTestAuthService(t)
	seedUser(t, users, "alice", "pw", models.RoleStudent)

	login, err := svc.Login(context.Background(), "alice", "pw", ClientMeta{})
	require.NoError(t, err)

	svc.Logout(context.Background(), login.RefreshToken)

	stored := sessions.all()
	require.Len(t, stored, 1)
	assert.True(t, stored[0].IsRevoked)

	_, err = svc.Refresh(context.Background(), login.RefreshToken, ClientMeta{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, users, sessions := newTestAuthService(t)
	seedUser(t, users, "alice", "pw", models.RoleStudent)

	login, err := svc.Login(context.Background(), "alice", "pw", ClientMeta{})
	require.NoError(t, err)

	svc.Logout(context.Background(), login.RefreshToken)
	svc.Logout(context.Background(), login.RefreshToken)
	svc.Logout(context.Background(), "garbage")
	svc.Logout(context.Background(), "")

	stored := sessions.all()
	require.Len(t, stored, 1)
	assert.True(t, stored[0].IsRevoked)
}

func TestLogoutOnlyRevokesThePresentedSession(t *testing.T) {
	svc, users, sessions := newTestAuthService(t)
	seedUser(t, users, "alice", "pw", models.RoleStudent)

	first, err := svc.Login(context.Background(), "alice", "pw", ClientMeta{})
	require.NoError(t, err)
	second, err := svc.Login(context.Background(), "alice", "pw", ClientMeta{})
	require.NoError(t, err)

	svc.Logout(context.Background(), first.RefreshToken)

	_, err = svc.Refresh(context.Background(), second.RefreshToken, ClientMeta{})
	assert.NoError(t, err, "other sessions of the same user must survive logout")

	stored := sessions.all()
	require.Len(t, stored, 3)
	assert.True(t, stored[0].IsRevoked)
}

func TestEnsureAdminSeedsOnce(t *testing.T) {
	users := newFakeUserStore()
	sessions := &fakeSessionStore{}
	cfg := testSecurityConfig()
	cfg.AdminUsername = "root"
	cfg.AdminPassword = "root-pw"
	svc := NewAuthService(users, sessions, cfg, zerolog.Nop())

	require.NoError(t, svc.EnsureAdmin(context.Background()))
	admin, err := users.FindByIdentifier(context.Background(), "root")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	// Second run is a no-op.
	require.NoError(t, svc.EnsureAdmin(context.Background()))
	assert.Len(t, users.users, 1)

	_, err = svc.Login(context.Background(), "root", "root-pw", ClientMeta{})
	assert.NoError(t, err)
}

func TestEnsureAdminElevatesExistingUser(t *testing.T) {
	users := newFakeUserStore()
	sessions := &fakeSessionStore{}
	cfg := testSecurityConfig()
	cfg.AdminUsername = "alice"
	cfg.AdminPassword = "ignored"
	svc := NewAuthService(users, sessions, cfg, zerolog.Nop())

	seedUser(t, users, "alice", "her-own-pw", models.RoleTeacher)

	require.NoError(t, svc.EnsureAdmin(context.Background()))
	admin, err := users.FindByIdentifier(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Len(t, users.users, 1)
}

func TestEnsureAdminSkipsWithoutCredentials(t *testing.T) {
	users := newFakeUserStore()
	sessions := &fakeSessionStore{}
	svc := NewAuthService(users, sessions, testSecurityConfig(), zerolog.Nop())

	require.NoError(t, svc.EnsureAdmin(context.Background()))
	assert.Empty(t, users.users)
}
