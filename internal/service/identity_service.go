package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ghostreact/markapp/internal/models"
	"github.com/ghostreact/markapp/internal/repository"
)

type TeacherStore interface {
	GetByUserID(ctx context.Context, userID string) (models.Teacher, error)
}

type StudentStore interface {
	GetByUserID(ctx context.Context, userID string) (models.Student, error)
}

// AuthenticatedIdentity is the one normalized shape for "who is making
// this request": the user plus whichever role profile exists. Handlers
// decide whether a missing profile blocks an operation.
type AuthenticatedIdentity struct {
	User    models.User
	Teacher *models.Teacher
	Student *models.Student
}

type IdentityService struct {
	users    UserStore
	teachers TeacherStore
	students StudentStore
}

func NewIdentityService(users UserStore, teachers TeacherStore, students StudentStore) *IdentityService {
	return &IdentityService{
		users:    users,
		teachers: teachers,
		students: students,
	}
}

// Resolve loads the user and the profile matching its role. An absent
// profile is not an error here.
func (s *IdentityService) Resolve(ctx context.Context, userID string) (AuthenticatedIdentity, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return AuthenticatedIdentity{}, fmt.Errorf("load user: %w", err)
	}

	identity := AuthenticatedIdentity{User: user}

	switch user.Role {
	case models.RoleTeacher:
		teacher, err := s.teachers.GetByUserID(ctx, userID)
		if err == nil {
			identity.Teacher = &teacher
		} else if !errors.Is(err, repository.ErrTeacherNotFound) {
			return AuthenticatedIdentity{}, fmt.Errorf("load teacher profile: %w", err)
		}
	case models.RoleStudent:
		student, err := s.students.GetByUserID(ctx, userID)
		if err == nil {
			identity.Student = &student
		} else if !errors.Is(err, repository.ErrStudentNotFound) {
			return AuthenticatedIdentity{}, fmt.Errorf("load student profile: %w", err)
		}
	}

	return identity, nil
}
