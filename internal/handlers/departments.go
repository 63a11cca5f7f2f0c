package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ghostreact/markapp/internal/ids"
	"github.com/ghostreact/markapp/internal/models"
)

type departmentRequest struct {
	Name string `json:"name" binding:"required"`
}

type departmentResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toDepartmentResponse(dept models.Department) departmentResponse {
	return departmentResponse{ID: dept.ID, Name: dept.Name}
}

func (h HandlerSet) ListDepartments(c *gin.Context) {
	depts, err := h.departments.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.internalError(c, err, "list departments failed")
		return
	}

	resp := make([]departmentResponse, 0, len(depts))
	for _, dept := range depts {
		resp = append(resp, toDepartmentResponse(dept))
	}
	c.JSON(http.StatusOK, gin.H{"count": len(resp), "data": resp})
}

func (h HandlerSet) CreateDepartment(c *gin.Context) {
	var req departmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name_required"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name_required"})
		return
	}

	dept := models.Department{ID: ids.New(), Name: name}
	if err := h.departments.Create(c.Request.Context(), dept); err != nil {
		h.writeError(c, err, "create department failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"department": toDepartmentResponse(dept)})
}

func (h HandlerSet) GetDepartment(c *gin.Context) {
	dept, err := h.departments.GetByID(c.Request.Context(), c.Param("departmentId"))
	if err != nil {
		h.writeError(c, err, "get department failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"department": toDepartmentResponse(dept)})
}

func (h HandlerSet) UpdateDepartment(c *gin.Context) {
	var req departmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name_required"})
		return
	}

	if err := h.departments.Update(c.Request.Context(), c.Param("departmentId"), strings.TrimSpace(req.Name)); err != nil {
		h.writeError(c, err, "update department failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h HandlerSet) DeleteDepartment(c *gin.Context) {
	if err := h.departments.Delete(c.Request.Context(), c.Param("departmentId")); err != nil {
		h.writeError(c, err, "delete department failed")
		return
	}
	c.Status(http.StatusNoContent)
}
