package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ghostreact/markapp/internal/models"
)

var ErrTeacherNotFound = errors.New("teacher not found")

type TeacherRepository struct {
	pool *pgxpool.Pool
}

func NewTeacherRepository(pool *pgxpool.Pool) *TeacherRepository {
	return &TeacherRepository{pool: pool}
}

const teacherColumns = `id, employee_code, name, user_id, department_id, created_at, updated_at`

func scanTeacher(row pgx.Row) (models.Teacher, error) {
	var teacher models.Teacher
	err := row.Scan(
		&teacher.ID,
		&teacher.EmployeeCode,
		&teacher.Name,
		&teacher.UserID,
		&teacher.DepartmentID,
		&teacher.CreatedAt,
		&teacher.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Teacher{}, ErrTeacherNotFound
		}
		return models.Teacher{}, err
	}
	return teacher, nil
}

func (r *TeacherRepository) Create(ctx context.Context, teacher models.Teacher) error {
	const query = `
		INSERT INTO teachers (id, employee_code, name, user_id, department_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		teacher.ID,
		teacher.EmployeeCode,
		teacher.Name,
		teacher.UserID,
		teacher.DepartmentID,
	)
	if isUnique(err) {
		return ErrDuplicate
	}
	return err
}

func (r *TeacherRepository) List(ctx context.Context) ([]models.Teacher, error) {
	const query = `SELECT ` + teacherColumns + ` FROM teachers ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teachers []models.Teacher
	for rows.Next() {
		teacher, err := scanTeacher(rows)
		if err != nil {
			return nil, err
		}
		teachers = append(teachers, teacher)
	}
	return teachers, rows.Err()
}

func (r *TeacherRepository) GetByID(ctx context.Context, id string) (models.Teacher, error) {
	const query = `SELECT ` + teacherColumns + ` FROM teachers WHERE id = $1`
	return scanTeacher(r.pool.QueryRow(ctx, query, id))
}

func (r *TeacherRepository) GetByUserID(ctx context.Context, userID string) (models.Teacher, error) {
	const query = `SELECT ` + teacherColumns + ` FROM teachers WHERE user_id = $1`
	return scanTeacher(r.pool.QueryRow(ctx, query, userID))
}

func (r *TeacherRepository) Update(ctx context.Context, teacher models.Teacher) error {
	const query = `
		UPDATE teachers
		SET employee_code = $2, name = $3, department_id = $4, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query,
		teacher.ID,
		teacher.EmployeeCode,
		teacher.Name,
		teacher.DepartmentID,
	)
	if err != nil {
		if isUnique(err) {
			return ErrDuplicate
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTeacherNotFound
	}
	return nil
}

func (r *TeacherRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM teachers WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTeacherNotFound
	}
	return nil
}

func (r *TeacherRepository) DeleteByUser(ctx context.Context, userID string) error {
	const query = `DELETE FROM teachers WHERE user_id = $1`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}
