package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ghostreact/markapp/internal/models"
	"github.com/ghostreact/markapp/internal/repository"
	"github.com/ghostreact/markapp/internal/security"
	"github.com/ghostreact/markapp/internal/service"
)

type loginRequest struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func toUserResponse(user models.User) userResponse {
	return userResponse{
		ID:       user.ID,
		Username: user.Username,
		Role:     string(user.Role),
	}
}

func (h HandlerSet) clientMeta(c *gin.Context) service.ClientMeta {
	return service.ClientMeta{
		UserAgent: c.GetHeader("User-Agent"),
		IPAddress: c.ClientIP(),
	}
}

func (h HandlerSet) secureCookies() bool {
	return h.cfg.Environment == "production"
}

func (h HandlerSet) setAuthCookies(c *gin.Context, pair service.TokenPair) {
	security.SetAuthCookies(c, h.secureCookies(),
		pair.AccessToken, pair.RefreshToken,
		int(h.cfg.Security.JWTAccessTTL.Seconds()),
		int(h.cfg.Security.JWTRefreshTTL.Seconds()),
	)
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}

	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Username)
	}
	if identifier == "" {
		identifier = strings.TrimSpace(req.Email)
	}
	if identifier == "" || strings.TrimSpace(req.Password) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_credentials"})
		return
	}

	result, err := h.auth.Login(c.Request.Context(), identifier, req.Password, h.clientMeta(c))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}
		h.internalError(c, err, "login failed")
		return
	}

	h.setAuthCookies(c, result.TokenPair)
	c.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"user": toUserResponse(result.User),
	})
}

func (h HandlerSet) Refresh(c *gin.Context) {
	presented := security.RefreshTokenFrom(c)

	pair, err := h.auth.Refresh(c.Request.Context(), presented, h.clientMeta(c))
	if err != nil {
		// Cookies are left untouched on failure.
		if errors.Is(err, service.ErrUnauthenticated) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		h.internalError(c, err, "refresh failed")
		return
	}

	h.setAuthCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Logout always succeeds: clearing the client's cookies matters more
// than whether a matching session was found to revoke.
func (h HandlerSet) Logout(c *gin.Context) {
	h.auth.Logout(c.Request.Context(), security.RefreshTokenFrom(c))
	security.ClearAuthCookies(c, h.secureCookies())
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Me verifies the access cookie itself instead of sitting behind the
// gate, so an anonymous caller gets {authenticated:false} rather than
// the gate's generic reject.
func (h HandlerSet) Me(c *gin.Context) {
	token := security.AccessTokenFrom(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"authenticated": false})
		return
	}

	claims, err := security.VerifyAccessToken(token, h.cfg.Security.JWTAccessSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"authenticated": false})
		return
	}

	identity, err := h.identity.Resolve(c.Request.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"authenticated": false})
			return
		}
		h.internalError(c, err, "resolve identity failed")
		return
	}

	resp := gin.H{
		"authenticated": true,
		"user":          toUserResponse(identity.User),
	}
	if identity.Teacher != nil {
		resp["teacherProfile"] = gin.H{
			"id":           identity.Teacher.ID,
			"employeeCode": identity.Teacher.EmployeeCode,
			"name":         identity.Teacher.Name,
			"departmentId": identity.Teacher.DepartmentID,
		}
	}
	if identity.Student != nil {
		resp["studentProfile"] = gin.H{
			"id":           identity.Student.ID,
			"studentCode":  identity.Student.StudentCode,
			"name":         identity.Student.Name,
			"departmentId": identity.Student.DepartmentID,
			"branchId":     identity.Student.BranchID,
		}
	}

	c.JSON(http.StatusOK, resp)
}
