package security

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// SetAuthCookies writes both tokens as HTTP-only, SameSite=Lax cookies
// on path "/". Max ages are seconds, matching the token lifetimes.
func SetAuthCookies(c *gin.Context, secure bool, accessToken, refreshToken string, accessMaxAge, refreshMaxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessTokenCookie, accessToken, accessMaxAge, "/", "", secure, true)
	c.SetCookie(RefreshTokenCookie, refreshToken, refreshMaxAge, "/", "", secure, true)
}

// ClearAuthCookies instructs the client to drop both cookies. Always
// called on logout, whether or not a session was revoked.
func ClearAuthCookies(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", secure, true)
	c.SetCookie(RefreshTokenCookie, "", -1, "/", "", secure, true)
}

// AccessTokenFrom reads the access token from its cookie, falling back
// to a bearer Authorization header for non-browser clients.
func AccessTokenFrom(c *gin.Context) string {
	if token, err := c.Cookie(AccessTokenCookie); err == nil && token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// RefreshTokenFrom reads the refresh token cookie. Empty when absent.
func RefreshTokenFrom(c *gin.Context) string {
	token, err := c.Cookie(RefreshTokenCookie)
	if err != nil {
		return ""
	}
	return token
}
