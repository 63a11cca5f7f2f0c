package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ghostreact/markapp/internal/ids"
	"github.com/ghostreact/markapp/internal/middleware"
	"github.com/ghostreact/markapp/internal/models"
	"github.com/ghostreact/markapp/internal/repository"
)

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

type attendanceEntry struct {
	StudentID string `json:"studentId" binding:"required"`
	Status    string `json:"status" binding:"required"`
}

type recordAttendanceRequest struct {
	Date    string            `json:"date" binding:"required"`
	Records []attendanceEntry `json:"records" binding:"required,min=1"`
}

type attendanceResponse struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"studentId"`
	StudentCode string    `json:"studentCode"`
	StudentName string    `json:"studentName"`
	Date        time.Time `json:"date"`
	Status      string    `json:"status"`
}

// RecordAttendance upserts one status per student for a single day.
// Marking the same (student, day) again overwrites the earlier status.
func (h HandlerSet) RecordAttendance(c *gin.Context) {
	teacher, ok := h.teacherInScope(c)
	if !ok {
		return
	}

	var req recordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_date"})
		return
	}

	allowed, ok := h.rosterIDs(c, teacher)
	if !ok {
		return
	}

	for _, entry := range req.Records {
		status := models.AttendanceStatus(entry.Status)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_status"})
			return
		}
		if _, inRoster := allowed[entry.StudentID]; !inRoster {
			c.JSON(http.StatusForbidden, gin.H{"error": "student_not_in_department"})
			return
		}
	}

	for _, entry := range req.Records {
		record := models.Attendance{
			ID:        ids.New(),
			StudentID: entry.StudentID,
			Date:      date,
			Status:    models.AttendanceStatus(entry.Status),
		}
		if err := h.attendance.Upsert(c.Request.Context(), record); err != nil {
			h.internalError(c, err, "record attendance failed")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(req.Records)})
}

// ListTeacherAttendance lists records for students in the teacher's
// department, filtered by date or range, student, and status.
func (h HandlerSet) ListTeacherAttendance(c *gin.Context) {
	teacher, ok := h.teacherInScope(c)
	if !ok {
		return
	}

	filter, ok := h.parseAttendanceFilter(c)
	if !ok {
		return
	}

	allowed, ok := h.rosterIDs(c, teacher)
	if !ok {
		return
	}
	if len(allowed) == 0 {
		h.writeAttendancePage(c, nil, 0, filter)
		return
	}

	if filter.StudentID != "" {
		if _, inRoster := allowed[filter.StudentID]; !inRoster {
			h.writeAttendancePage(c, nil, 0, filter)
			return
		}
	} else {
		for id := range allowed {
			filter.StudentIDs = append(filter.StudentIDs, id)
		}
	}

	records, total, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		h.internalError(c, err, "list attendance failed")
		return
	}
	h.writeAttendancePage(c, records, total, filter)
}

// MyAttendance lists the calling student's own records.
func (h HandlerSet) MyAttendance(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)

	identity, err := h.identity.Resolve(c.Request.Context(), claims.Subject)
	if err != nil {
		h.internalError(c, err, "resolve identity failed")
		return
	}
	if identity.Student == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no_student_profile"})
		return
	}

	filter, ok := h.parseAttendanceFilter(c)
	if !ok {
		return
	}
	filter.StudentID = identity.Student.ID

	records, total, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		h.internalError(c, err, "list attendance failed")
		return
	}
	h.writeAttendancePage(c, records, total, filter)
}

// rosterIDs returns the set of student ids the teacher may touch.
func (h HandlerSet) rosterIDs(c *gin.Context, teacher models.Teacher) (map[string]struct{}, bool) {
	if teacher.DepartmentID == nil {
		return map[string]struct{}{}, true
	}
	students, err := h.students.ListByDepartment(c.Request.Context(), *teacher.DepartmentID)
	if err != nil {
		h.internalError(c, err, "list roster failed")
		return nil, false
	}
	allowed := make(map[string]struct{}, len(students))
	for _, student := range students {
		allowed[student.ID] = struct{}{}
	}
	return allowed, true
}

// parseAttendanceFilter reads date/from/to/status/page/limit query
// params. A single date expands to that whole day.
func (h HandlerSet) parseAttendanceFilter(c *gin.Context) (repository.Filter, bool) {
	filter := repository.Filter{
		StudentID: c.Query("studentId"),
		Page:      1,
		Limit:     20,
	}

	if status := c.Query("status"); status != "" {
		if !models.AttendanceStatus(status).Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_status"})
			return repository.Filter{}, false
		}
		filter.Status = models.AttendanceStatus(status)
	}

	if dateStr := c.Query("date"); dateStr != "" {
		date, err := parseDate(dateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_date"})
			return repository.Filter{}, false
		}
		filter.From = date
		filter.To = date.Add(24*time.Hour - time.Nanosecond)
	} else {
		if fromStr := c.Query("from"); fromStr != "" {
			from, err := parseDate(fromStr)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_from"})
				return repository.Filter{}, false
			}
			filter.From = from
		}
		if toStr := c.Query("to"); toStr != "" {
			to, err := parseDate(toStr)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_to"})
				return repository.Filter{}, false
			}
			filter.To = to.Add(24*time.Hour - time.Nanosecond)
		}
	}

	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 0 {
			filter.Page = v
		}
	}
	if limit := c.Query("limit"); limit != "" {
		if v, err := strconv.Atoi(limit); err == nil && v > 0 && v <= 100 {
			filter.Limit = v
		}
	}

	return filter, true
}

func (h HandlerSet) writeAttendancePage(c *gin.Context, records []models.Attendance, total int, filter repository.Filter) {
	data := make([]attendanceResponse, 0, len(records))
	for _, record := range records {
		data = append(data, attendanceResponse{
			ID:          record.ID,
			StudentID:   record.StudentID,
			StudentCode: record.StudentCode,
			StudentName: record.StudentName,
			Date:        record.Date,
			Status:      string(record.Status),
		})
	}

	totalPages := 1
	if filter.Limit > 0 && total > filter.Limit {
		totalPages = (total + filter.Limit - 1) / filter.Limit
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(data),
		"data":  data,
		"meta": gin.H{
			"page":       filter.Page,
			"limit":      filter.Limit,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}
