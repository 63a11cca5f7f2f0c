package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ghostreact/markapp/internal/ids"
	"github.com/ghostreact/markapp/internal/models"
	"github.com/ghostreact/markapp/internal/repository"
)

type branchRequest struct {
	Name         string  `json:"name" binding:"required"`
	DepartmentID *string `json:"departmentId"`
}

type branchResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	DepartmentID *string `json:"departmentId"`
}

func toBranchResponse(branch models.Branch) branchResponse {
	return branchResponse{ID: branch.ID, Name: branch.Name, DepartmentID: branch.DepartmentID}
}

// validateDepartmentRef checks an optional owning department exists,
// writing the response on failure.
func (h HandlerSet) validateDepartmentRef(c *gin.Context, departmentID *string) bool {
	if departmentID == nil {
		return true
	}
	if _, err := h.departments.GetByID(c.Request.Context(), *departmentID); err != nil {
		if errors.Is(err, repository.ErrDepartmentNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_department"})
		} else {
			h.internalError(c, err, "check department failed")
		}
		return false
	}
	return true
}

func (h HandlerSet) ListBranches(c *gin.Context) {
	branches, err := h.branches.List(c.Request.Context())
	if err != nil {
		h.internalError(c, err, "list branches failed")
		return
	}
	resp := make([]branchResponse, 0, len(branches))
	for _, branch := range branches {
		resp = append(resp, toBranchResponse(branch))
	}
	c.JSON(http.StatusOK, gin.H{"count": len(resp), "data": resp})
}

func (h HandlerSet) CreateBranch(c *gin.Context) {
	var req branchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name_required"})
		return
	}
	if !h.validateDepartmentRef(c, req.DepartmentID) {
		return
	}

	branch := models.Branch{
		ID:           ids.New(),
		Name:         strings.TrimSpace(req.Name),
		DepartmentID: req.DepartmentID,
	}
	if err := h.branches.Create(c.Request.Context(), branch); err != nil {
		h.writeError(c, err, "create branch failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"branch": toBranchResponse(branch)})
}

func (h HandlerSet) GetBranch(c *gin.Context) {
	branch, err := h.branches.GetByID(c.Request.Context(), c.Param("branchId"))
	if err != nil {
		h.writeError(c, err, "get branch failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"branch": toBranchResponse(branch)})
}

func (h HandlerSet) UpdateBranch(c *gin.Context) {
	var req branchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name_required"})
		return
	}
	if !h.validateDepartmentRef(c, req.DepartmentID) {
		return
	}

	branch := models.Branch{
		ID:           c.Param("branchId"),
		Name:         strings.TrimSpace(req.Name),
		DepartmentID: req.DepartmentID,
	}
	if err := h.branches.Update(c.Request.Context(), branch); err != nil {
		h.writeError(c, err, "update branch failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h HandlerSet) DeleteBranch(c *gin.Context) {
	if err := h.branches.Delete(c.Request.Context(), c.Param("branchId")); err != nil {
		h.writeError(c, err, "delete branch failed")
		return
	}
	c.Status(http.StatusNoContent)
}
