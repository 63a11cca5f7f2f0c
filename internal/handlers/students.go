package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ghostreact/markapp/internal/ids"
	"github.com/ghostreact/markapp/internal/models"
	"github.com/ghostreact/markapp/internal/security"
)

type createStudentRequest struct {
	StudentCode  string  `json:"studentCode" binding:"required"`
	Name         string  `json:"name" binding:"required"`
	Username     string  `json:"username" binding:"required"`
	Password     string  `json:"password" binding:"required,min=8"`
	BranchID     *string `json:"branchId"`
	DepartmentID *string `json:"departmentId"`
}

type updateStudentRequest struct {
	StudentCode  string  `json:"studentCode" binding:"required"`
	Name         string  `json:"name" binding:"required"`
	BranchID     *string `json:"branchId"`
	DepartmentID *string `json:"departmentId"`
}

type studentResponse struct {
	ID           string  `json:"id"`
	StudentCode  string  `json:"studentCode"`
	Name         string  `json:"name"`
	Username     string  `json:"username"`
	DepartmentID *string `json:"departmentId"`
	Department   *string `json:"department"`
	BranchID     *string `json:"branchId"`
	Branch       *string `json:"branch"`
}

func toStudentResponse(student models.Student) studentResponse {
	return studentResponse{
		ID:           student.ID,
		StudentCode:  student.StudentCode,
		Name:         student.Name,
		Username:     student.Username,
		DepartmentID: student.DepartmentID,
		Department:   student.DepartmentName,
		BranchID:     student.BranchID,
		Branch:       student.BranchName,
	}
}

func toStudentResponses(students []models.Student) []studentResponse {
	resp := make([]studentResponse, 0, len(students))
	for _, student := range students {
		resp = append(resp, toStudentResponse(student))
	}
	return resp
}

func (h HandlerSet) ListStudents(c *gin.Context) {
	students, err := h.students.List(c.Request.Context())
	if err != nil {
		h.internalError(c, err, "list students failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(students), "data": toStudentResponses(students)})
}

func (h HandlerSet) GetStudent(c *gin.Context) {
	student, err := h.students.GetByID(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		h.writeError(c, err, "get student failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": toStudentResponse(student)})
}

func (h HandlerSet) UpdateStudent(c *gin.Context) {
	var req updateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.validateDepartmentRef(c, req.DepartmentID) {
		return
	}

	student := models.Student{
		ID:           c.Param("studentId"),
		StudentCode:  req.StudentCode,
		Name:         req.Name,
		BranchID:     req.BranchID,
		DepartmentID: req.DepartmentID,
	}
	if err := h.students.Update(c.Request.Context(), student); err != nil {
		h.writeError(c, err, "update student failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h HandlerSet) DeleteStudent(c *gin.Context) {
	ctx := c.Request.Context()

	student, err := h.students.GetByID(ctx, c.Param("studentId"))
	if err != nil {
		h.writeError(c, err, "get student failed")
		return
	}

	if err := h.students.Delete(ctx, student.ID); err != nil {
		h.writeError(c, err, "delete student failed")
		return
	}
	if err := h.sessions.DeleteByUser(ctx, student.UserID); err != nil {
		h.log.Warn().Err(err).Str("user_id", student.UserID).Msg("cascade sessions failed")
	}
	if err := h.users.Delete(ctx, student.UserID); err != nil {
		h.log.Warn().Err(err).Str("user_id", student.UserID).Msg("cascade user failed")
	}

	c.Status(http.StatusNoContent)
}

// ListTeacherStudents returns the students in the path teacher's
// department. A teacher with no department has no roster.
func (h HandlerSet) ListTeacherStudents(c *gin.Context) {
	teacher, ok := h.teacherInScope(c)
	if !ok {
		return
	}

	if teacher.DepartmentID == nil {
		c.JSON(http.StatusOK, gin.H{"count": 0, "data": []studentResponse{}})
		return
	}

	students, err := h.students.ListByDepartment(c.Request.Context(), *teacher.DepartmentID)
	if err != nil {
		h.internalError(c, err, "list roster failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(students), "data": toStudentResponses(students)})
}

// CreateTeacherStudent enrolls a new student under the path teacher,
// defaulting the department to the teacher's own.
func (h HandlerSet) CreateTeacherStudent(c *gin.Context) {
	teacher, ok := h.teacherInScope(c)
	if !ok {
		return
	}

	var req createStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	departmentID := req.DepartmentID
	if departmentID == nil {
		departmentID = teacher.DepartmentID
	}
	if !h.validateDepartmentRef(c, departmentID) {
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
		Role:         models.RoleStudent,
	}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		h.writeError(c, err, "create student user failed")
		return
	}

	student := models.Student{
		ID:           ids.New(),
		StudentCode:  req.StudentCode,
		Name:         req.Name,
		UserID:       user.ID,
		BranchID:     req.BranchID,
		DepartmentID: departmentID,
	}
	if err := h.students.Create(c.Request.Context(), student); err != nil {
		h.writeError(c, err, "create student profile failed")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"student": toStudentResponse(student), "user": toUserResponse(user)})
}
