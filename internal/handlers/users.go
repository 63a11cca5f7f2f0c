package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ghostreact/markapp/internal/ids"
	"github.com/ghostreact/markapp/internal/models"
	"github.com/ghostreact/markapp/internal/repository"
	"github.com/ghostreact/markapp/internal/security"
)

type createUserRequest struct {
	Username string  `json:"username" binding:"required"`
	Password string  `json:"password" binding:"required,min=8"`
	Email    *string `json:"email"`
	Role     string  `json:"role"`
}

func (h HandlerSet) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.internalError(c, err, "list users failed")
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, user := range users {
		resp = append(resp, toUserResponse(user))
	}
	c.JSON(http.StatusOK, gin.H{"count": len(resp), "data": resp})
}

func (h HandlerSet) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := models.Role(req.Role)
	if req.Role == "" {
		role = models.RoleStudent
	}
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_role"})
		return
	}

	if _, err := h.users.FindByIdentifier(c.Request.Context(), req.Username); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username_taken"})
		return
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		h.internalError(c, err, "check username failed")
		return
	}

	passwordHash, err := security.HashSecret(req.Password)
	if err != nil {
		h.internalError(c, err, "hash password failed")
		return
	}

	user := models.User{
		ID:           ids.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         role,
	}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		// The pre-check can race; the unique index is the backstop.
		h.writeError(c, err, "create user failed")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": toUserResponse(user)})
}

func (h HandlerSet) GetUser(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.writeError(c, err, "get user failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

// DeleteUser removes the user and, best effort, its sessions and role
// profiles. The cascade is not transactional; orphaned leftovers are
// harmless and lapse on their own.
func (h HandlerSet) DeleteUser(c *gin.Context) {
	userID := c.Param("userId")
	ctx := c.Request.Context()

	if err := h.sessions.DeleteByUser(ctx, userID); err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Msg("cascade sessions failed")
	}
	if err := h.students.DeleteByUser(ctx, userID); err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Msg("cascade student profile failed")
	}
	if err := h.teachers.DeleteByUser(ctx, userID); err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Msg("cascade teacher profile failed")
	}

	if err := h.users.Delete(ctx, userID); err != nil {
		h.writeError(c, err, "delete user failed")
		return
	}
	c.Status(http.StatusNoContent)
}
