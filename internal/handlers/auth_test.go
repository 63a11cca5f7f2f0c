package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostreact/markapp/internal/config"
	"github.com/ghostreact/markapp/internal/models"
	"github.com/ghostreact/markapp/internal/repository"
	"github.com/ghostreact/markapp/internal/security"
	"github.com/ghostreact/markapp/internal/service"
)

type memUsers struct {
	users map[string]models.User
}

func (m *memUsers) Create(_ context.Context, user models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *memUsers) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	for _, user := range m.users {
		if user.Username == identifier {
			return user, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *memUsers) ExistsByRole(_ context.Context, role models.Role) (bool, error) {
	for _, user := range m.users {
		if user.Role == role {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) UpdateRole(_ context.Context, id string, role models.Role) error {
	user, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.Role = role
	m.users[id] = user
	return nil
}

type memSessions struct {
	sessions []models.Session
}

func (m *memSessions) Create(_ context.Context, session models.Session) error {
	m.sessions = append(m.sessions, session)
	return nil
}

func (m *memSessions) ListActiveByUser(_ context.Context, userID string) ([]models.Session, error) {
	var out []models.Session
	for i := len(m.sessions) - 1; i >= 0; i-- {
		if m.sessions[i].UserID == userID && !m.sessions[i].IsRevoked {
			out = append(out, m.sessions[i])
		}
	}
	return out, nil
}

func (m *memSessions) ListActive(_ context.Context) ([]models.Session, error) {
	var out []models.Session
	for i := len(m.sessions) - 1; i >= 0; i-- {
		if !m.sessions[i].IsRevoked {
			out = append(out, m.sessions[i])
		}
	}
	return out, nil
}

func (m *memSessions) RevokeIfActive(_ context.Context, id string) (bool, error) {
	for i := range m.sessions {
		if m.sessions[i].ID == id && !m.sessions[i].IsRevoked {
			m.sessions[i].IsRevoked = true
			return true, nil
		}
	}
	return false, nil
}

type memTeachers struct{}

func (memTeachers) GetByUserID(context.Context, string) (models.Teacher, error) {
	return models.Teacher{}, repository.ErrTeacherNotFound
}

type memStudents struct{}

func (memStudents) GetByUserID(context.Context, string) (models.Student, error) {
	return models.Student{}, repository.ErrStudentNotFound
}

func testAppConfig() *config.AppConfig {
	return &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			JWTAccessSecret:  "handler-access-secret",
			JWTRefreshSecret: "handler-refresh-secret",
			JWTAccessTTL:     15 * time.Minute,
			JWTRefreshTTL:    720 * time.Hour,
			LoginRateLimit:   100,
			LoginRateWindow:  time.Minute,
		},
	}
}

// newAuthRouter wires the auth routes over in-memory stores. The rate
// limiter runs with a nil redis client, which means it admits everything.
func newAuthRouter(t *testing.T, password string) (*gin.Engine, models.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := security.HashSecret(password)
	require.NoError(t, err)
	user := models.User{
		ID:           "user-alice",
		Username:     "alice",
		PasswordHash: hash,
		Role:         models.RoleTeacher,
	}
	users := &memUsers{users: map[string]models.User{user.ID: user}}
	sessions := &memSessions{}

	cfg := testAppConfig()
	h := HandlerSet{
		log:      zerolog.Nop(),
		cfg:      cfg,
		auth:     service.NewAuthService(users, sessions, &cfg.Security, zerolog.Nop()),
		identity: service.NewIdentityService(users, memTeachers{}, memStudents{}),
	}

	router := gin.New()
	api := router.Group("/api")
	v1 := api.Group("/v1")
	auth := v1.Group("/auth")
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)
	auth.POST("/logout", h.Logout)
	auth.GET("/me", h.Me)
	return router, user
}

func doJSON(router *gin.Engine, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestLoginSetsAuthCookies(t *testing.T) {
	router, _ := newAuthRouter(t, "pw")

	rec := doJSON(router, http.MethodPost, "/api/v1/auth/login", `{"username":"alice","password":"pw"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"alice"`)

	access := cookieByName(rec, security.AccessTokenCookie)
	require.NotNil(t, access)
	assert.NotEmpty(t, access.Value)
	assert.True(t, access.HttpOnly)
	assert.Equal(t, "/", access.Path)
	assert.Equal(t, int((15 * time.Minute).Seconds()), access.MaxAge)

	refresh := cookieByName(rec, security.RefreshTokenCookie)
	require.NotNil(t, refresh)
	assert.NotEmpty(t, refresh.Value)
	assert.True(t, refresh.HttpOnly)
	assert.Equal(t, int((720 * time.Hour).Seconds()), refresh.MaxAge)
}

func TestLoginRejectsBadRequests(t *testing.T) {
	router, _ := newAuthRouter(t, "pw")

	rec := doJSON(router, http.MethodPost, "/api/v1/auth/login", `{"username":"alice"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(router, http.MethodPost, "/api/v1/auth/login", `{"username":"alice","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, cookieByName(rec, security.AccessTokenCookie), "failed login must not set cookies")

	rec = doJSON(router, http.MethodPost, "/api/v1/auth/login", `{"username":"ghost","password":"pw"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid_credentials"}`, rec.Body.String())
}

func TestMeReportsIdentity(t *testing.T) {
	router, _ := newAuthRouter(t, "pw")

	login := doJSON(router, http.MethodPost, "/api/v1/auth/login", `{"username":"alice","password":"pw"}`, nil)
	require.Equal(t, http.StatusOK, login.Code)

	rec := doJSON(router, http.MethodGet, "/api/v1/auth/me", "", login.Result().Cookies())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"authenticated":true`)
	assert.Contains(t, rec.Body.String(), `"alice"`)

	anon := doJSON(router, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, anon.Code)
	assert.JSONEq(t, `{"authenticated":false}`, anon.Body.String())
}

func TestRefreshRotatesCookies(t *testing.T) {
	router, _ := newAuthRouter(t, "pw")

	login := doJSON(router, http.MethodPost, "/api/v1/auth/login", `{"username":"alice","password":"pw"}`, nil)
	require.Equal(t, http.StatusOK, login.Code)
	oldRefresh := cookieByName(login, security.RefreshTokenCookie)
	require.NotNil(t, oldRefresh)

	rec := doJSON(router, http.MethodPost, "/api/v1/auth/refresh", "", login.Result().Cookies())
	require.Equal(t, http.StatusOK, rec.Code)
	newRefresh := cookieByName(rec, security.RefreshTokenCookie)
	require.NotNil(t, newRefresh)
	assert.NotEqual(t, oldRefresh.Value, newRefresh.Value)
	assert.NotNil(t, cookieByName(rec, security.AccessTokenCookie))

	// Replaying the consumed token fails and sets no cookies.
	replay := doJSON(router, http.MethodPost, "/api/v1/auth/refresh", "", login.Result().Cookies())
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
	assert.Empty(t, replay.Result().Cookies())

	// The rotated token still works.
	again := doJSON(router, http.MethodPost, "/api/v1/auth/refresh", "", rec.Result().Cookies())
	assert.Equal(t, http.StatusOK, again.Code)
}

func TestRefreshWithoutCookie(t *testing.T) {
	router, _ := newAuthRouter(t, "pw")

	rec := doJSON(router, http.MethodPost, "/api/v1/auth/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthenticated"}`, rec.Body.String())
}

func TestLogoutClearsCookiesAndRevokes(t *testing.T) {
	router, _ := newAuthRouter(t, "pw")

	login := doJSON(router, http.MethodPost, "/api/v1/auth/login", `{"username":"alice","password":"pw"}`, nil)
	require.Equal(t, http.StatusOK, login.Code)

	rec := doJSON(router, http.MethodPost, "/api/v1/auth/logout", "", login.Result().Cookies())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	access := cookieByName(rec, security.AccessTokenCookie)
	require.NotNil(t, access)
	assert.Empty(t, access.Value)
	assert.Negative(t, access.MaxAge)
	refresh := cookieByName(rec, security.RefreshTokenCookie)
	require.NotNil(t, refresh)
	assert.Negative(t, refresh.MaxAge)

	// The revoked refresh token is dead.
	replay := doJSON(router, http.MethodPost, "/api/v1/auth/refresh", "", login.Result().Cookies())
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
}

func TestLogoutWithoutSessionStillSucceeds(t *testing.T) {
	router, _ := newAuthRouter(t, "pw")

	rec := doJSON(router, http.MethodPost, "/api/v1/auth/logout", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, cookieByName(rec, security.AccessTokenCookie))
}

func TestExpiredAccessWithLiveRefresh(t *testing.T) {
	router, user := newAuthRouter(t, "pw")

	login := doJSON(router, http.MethodPost, "/api/v1/auth/login", `{"username":"alice","password":"pw"}`, nil)
	require.Equal(t, http.StatusOK, login.Code)

	expired, err := security.IssueAccessToken("handler-access-secret", user.ID, string(user.Role), -time.Minute)
	require.NoError(t, err)
	cookies := []*http.Cookie{
		{Name: security.AccessTokenCookie, Value: expired},
		{Name: security.RefreshTokenCookie, Value: cookieByName(login, security.RefreshTokenCookie).Value},
	}

	me := doJSON(router, http.MethodGet, "/api/v1/auth/me", "", cookies)
	assert.Equal(t, http.StatusUnauthorized, me.Code)

	refreshed := doJSON(router, http.MethodPost, "/api/v1/auth/refresh", "", cookies)
	require.Equal(t, http.StatusOK, refreshed.Code)

	me = doJSON(router, http.MethodGet, "/api/v1/auth/me", "", refreshed.Result().Cookies())
	assert.Equal(t, http.StatusOK, me.Code)
}
