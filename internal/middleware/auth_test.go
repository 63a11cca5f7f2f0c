package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostreact/markapp/internal/config"
	"github.com/ghostreact/markapp/internal/models"
	"github.com/ghostreact/markapp/internal/security"
)

func testGateConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		JWTAccessSecret:  "gate-access-secret",
		JWTRefreshSecret: "gate-refresh-secret",
		JWTAccessTTL:     15 * time.Minute,
		JWTRefreshTTL:    720 * time.Hour,
	}
}

func gateRouter(cfg *config.SecurityConfig, roles ...models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/", Auth(cfg))
	if len(roles) > 0 {
		group.Use(RequireRoles(roles...))
	}
	group.GET("/protected", func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "claims missing"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"subject": claims.Subject, "role": claims.Role})
	})
	return router
}

func TestAuthAcceptsCookieToken(t *testing.T) {
	cfg := testGateConfig()
	router := gateRouter(cfg)

	token, err := security.IssueAccessToken(cfg.JWTAccessSecret, "user-1", "Teacher", cfg.JWTAccessTTL)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: security.AccessTokenCookie, Value: token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user-1")
}

func TestAuthAcceptsBearerHeader(t *testing.T) {
	cfg := testGateConfig()
	router := gateRouter(cfg)

	token, err := security.IssueAccessToken(cfg.JWTAccessSecret, "user-1", "Admin", cfg.JWTAccessTTL)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRejectsBadTokens(t *testing.T) {
	cfg := testGateConfig()
	router := gateRouter(cfg)

	expired, err := security.IssueAccessToken(cfg.JWTAccessSecret, "user-1", "Admin", -time.Minute)
	require.NoError(t, err)
	forged, err := security.IssueAccessToken("wrong-secret", "user-1", "Admin", time.Minute)
	require.NoError(t, err)

	cases := map[string]func(*http.Request){
		"missing": func(*http.Request) {},
		"garbage": func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: security.AccessTokenCookie, Value: "garbage"})
		},
		"expired": func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: security.AccessTokenCookie, Value: expired})
		},
		"forged": func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: security.AccessTokenCookie, Value: forged})
		},
	}
	for name, decorate := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			decorate(req)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"unauthenticated"}`, rec.Body.String(), "failure responses must be indistinguishable")
		})
	}
}

func TestRequireRoles(t *testing.T) {
	cfg := testGateConfig()
	router := gateRouter(cfg, models.RoleAdmin, models.RoleTeacher)

	request := func(role string) *httptest.ResponseRecorder {
		token, err := security.IssueAccessToken(cfg.JWTAccessSecret, "user-1", role, cfg.JWTAccessTTL)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: security.AccessTokenCookie, Value: token})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, request("Admin").Code)
	assert.Equal(t, http.StatusOK, request("Teacher").Code)
	assert.Equal(t, http.StatusForbidden, request("Student").Code)
}
