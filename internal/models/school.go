package models

import "time"

type Department struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Branch struct {
	ID           string
	Name         string
	DepartmentID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Student is the role-specific profile hanging off a Student-role User.
type Student struct {
	ID           string
	StudentCode  string
	Name         string
	UserID       string
	BranchID     *string
	DepartmentID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Joined display fields, populated by list queries only.
	Username       string
	DepartmentName *string
	BranchName     *string
}

// Teacher is the role-specific profile hanging off a Teacher-role User.
type Teacher struct {
	ID           string
	EmployeeCode string
	Name         string
	UserID       string
	DepartmentID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "Present"
	AttendanceLate    AttendanceStatus = "Late"
	AttendanceLeave   AttendanceStatus = "Leave"
	AttendanceAbsent  AttendanceStatus = "Absent"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceLate, AttendanceLeave, AttendanceAbsent:
		return true
	}
	return false
}

// Attendance is unique per (StudentID, Date); writes are upserts on
// that composite key.
type Attendance struct {
	ID        string
	StudentID string
	Date      time.Time
	Status    AttendanceStatus
	CreatedAt time.Time
	UpdatedAt time.Time

	StudentCode string
	StudentName string
}
