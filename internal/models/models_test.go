package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleStudent.Valid())
	assert.True(t, RoleTeacher.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("").Valid())
	assert.False(t, Role("admin").Valid())
	assert.False(t, Role("Superuser").Valid())
}

func TestAttendanceStatusValid(t *testing.T) {
	for _, status := range []AttendanceStatus{AttendancePresent, AttendanceLate, AttendanceLeave, AttendanceAbsent} {
		assert.True(t, status.Valid(), "%s should be valid", status)
	}
	assert.False(t, AttendanceStatus("present").Valid())
	assert.False(t, AttendanceStatus("").Valid())
}

func TestSessionActive(t *testing.T) {
	now := time.Now()
	session := Session{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, session.Active(now))

	session.IsRevoked = true
	assert.False(t, session.Active(now))

	session.IsRevoked = false
	session.ExpiresAt = now.Add(-time.Minute)
	assert.False(t, session.Active(now))
}
