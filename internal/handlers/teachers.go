package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ghostreact/markapp/internal/ids"
	"github.com/ghostreact/markapp/internal/middleware"
	"github.com/ghostreact/markapp/internal/models"
	"github.com/ghostreact/markapp/internal/repository"
	"github.com/ghostreact/markapp/internal/security"
)

type createTeacherRequest struct {
	EmployeeCode string  `json:"employeeCode" binding:"required"`
	Name         string  `json:"name" binding:"required"`
	Username     string  `json:"username" binding:"required"`
	Password     string  `json:"password" binding:"required,min=8"`
	DepartmentID *string `json:"departmentId"`
}

type updateTeacherRequest struct {
	EmployeeCode string  `json:"employeeCode" binding:"required"`
	Name         string  `json:"name" binding:"required"`
	DepartmentID *string `json:"departmentId"`
}

type teacherResponse struct {
	ID           string  `json:"id"`
	EmployeeCode string  `json:"employeeCode"`
	Name         string  `json:"name"`
	UserID       string  `json:"userId"`
	DepartmentID *string `json:"departmentId"`
}

func toTeacherResponse(teacher models.Teacher) teacherResponse {
	return teacherResponse{
		ID:           teacher.ID,
		EmployeeCode: teacher.EmployeeCode,
		Name:         teacher.Name,
		UserID:       teacher.UserID,
		DepartmentID: teacher.DepartmentID,
	}
}

func (h HandlerSet) ListTeachers(c *gin.Context) {
	teachers, err := h.teachers.List(c.Request.Context())
	if err != nil {
		h.internalError(c, err, "list teachers failed")
		return
	}
	resp := make([]teacherResponse, 0, len(teachers))
	for _, teacher := range teachers {
		resp = append(resp, toTeacherResponse(teacher))
	}
	c.JSON(http.StatusOK, gin.H{"count": len(resp), "data": resp})
}

// CreateTeacher creates the Teacher-role user and its profile. Not
// transactional: a failed profile insert leaves a bare user the admin
// can delete.
func (h HandlerSet) CreateTeacher(c *gin.Context) {
	var req createTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.validateDepartmentRef(c, req.DepartmentID) {
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
		PasswordHash: passwordHash,
		Role:         models.RoleTeacher,
	}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		h.writeError(c, err, "create teacher user failed")
		return
	}

	teacher := models.Teacher{
		ID:           ids.New(),
		EmployeeCode: req.EmployeeCode,
		Name:         req.Name,
		UserID:       user.ID,
		DepartmentID: req.DepartmentID,
	}
	if err := h.teachers.Create(c.Request.Context(), teacher); err != nil {
		h.writeError(c, err, "create teacher profile failed")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"teacher": toTeacherResponse(teacher), "user": toUserResponse(user)})
}

func (h HandlerSet) GetTeacher(c *gin.Context) {
	teacher, err := h.teachers.GetByID(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		h.writeError(c, err, "get teacher failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"teacher": toTeacherResponse(teacher)})
}

func (h HandlerSet) UpdateTeacher(c *gin.Context) {
	var req updateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.validateDepartmentRef(c, req.DepartmentID) {
		return
	}

	teacher := models.Teacher{
		ID:           c.Param("teacherId"),
		EmployeeCode: req.EmployeeCode,
		Name:         req.Name,
		DepartmentID: req.DepartmentID,
	}
	if err := h.teachers.Update(c.Request.Context(), teacher); err != nil {
		h.writeError(c, err, "update teacher failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h HandlerSet) DeleteTeacher(c *gin.Context) {
	ctx := c.Request.Context()

	teacher, err := h.teachers.GetByID(ctx, c.Param("teacherId"))
	if err != nil {
		h.writeError(c, err, "get teacher failed")
		return
	}

	if err := h.teachers.Delete(ctx, teacher.ID); err != nil {
		h.writeError(c, err, "delete teacher failed")
		return
	}
	// Best effort: drop the backing user and its sessions too.
	if err := h.sessions.DeleteByUser(ctx, teacher.UserID); err != nil {
		h.log.Warn().Err(err).Str("user_id", teacher.UserID).Msg("cascade sessions failed")
	}
	if err := h.users.Delete(ctx, teacher.UserID); err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		h.log.Warn().Err(err).Str("user_id", teacher.UserID).Msg("cascade user failed")
	}

	c.Status(http.StatusNoContent)
}

// teacherInScope loads the path teacher and enforces that the caller
// is either an Admin or that same teacher. Writes the response on
// failure.
func (h HandlerSet) teacherInScope(c *gin.Context) (models.Teacher, bool) {
	teacher, err := h.teachers.GetByID(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		h.writeError(c, err, "get teacher failed")
		return models.Teacher{}, false
	}

	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return models.Teacher{}, false
	}
	if claims.Role == string(models.RoleAdmin) {
		return teacher, true
	}

	identity, err := h.identity.Resolve(c.Request.Context(), claims.Subject)
	if err != nil {
		h.internalError(c, err, "resolve identity failed")
		return models.Teacher{}, false
	}
	if identity.Teacher == nil || identity.Teacher.ID != teacher.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return models.Teacher{}, false
	}
	return teacher, true
}
