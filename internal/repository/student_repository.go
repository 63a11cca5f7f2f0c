package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ghostreact/markapp/internal/models"
)

var ErrStudentNotFound = errors.New("student not found")

type StudentRepository struct {
	pool *pgxpool.Pool
}

func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

const studentColumns = `s.id, s.student_code, s.name, s.user_id, s.branch_id, s.department_id, s.created_at, s.updated_at`

const studentJoinedQuery = `
	SELECT ` + studentColumns + `, u.username, d.name, b.name
	FROM students s
	JOIN users u ON u.id = s.user_id
	LEFT JOIN departments d ON d.id = s.department_id
	LEFT JOIN branches b ON b.id = s.branch_id
`

func scanStudentJoined(row pgx.Row) (models.Student, error) {
	var student models.Student
	err := row.Scan(
		&student.ID,
		&student.StudentCode,
		&student.Name,
		&student.UserID,
		&student.BranchID,
		&student.DepartmentID,
		&student.CreatedAt,
		&student.UpdatedAt,
		&student.Username,
		&student.DepartmentName,
		&student.BranchName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Student{}, ErrStudentNotFound
		}
		return models.Student{}, err
	}
	return student, nil
}

func (r *StudentRepository) Create(ctx context.Context, student models.Student) error {
	const query = `
		INSERT INTO students (id, student_code, name, user_id, branch_id, department_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		student.ID,
		student.StudentCode,
		student.Name,
		student.UserID,
		student.BranchID,
		student.DepartmentID,
	)
	if isUnique(err) {
		return ErrDuplicate
	}
	return err
}

func (r *StudentRepository) List(ctx context.Context) ([]models.Student, error) {
	return r.listJoined(ctx, studentJoinedQuery+` ORDER BY s.created_at DESC`)
}

func (r *StudentRepository) ListByDepartment(ctx context.Context, departmentID string) ([]models.Student, error) {
	return r.listJoined(ctx, studentJoinedQuery+` WHERE s.department_id = $1 ORDER BY s.created_at DESC`, departmentID)
}

func (r *StudentRepository) listJoined(ctx context.Context, query string, args ...any) ([]models.Student, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []models.Student
	for rows.Next() {
		student, err := scanStudentJoined(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	return students, rows.Err()
}

func (r *StudentRepository) GetByID(ctx context.Context, id string) (models.Student, error) {
	return scanStudentJoined(r.pool.QueryRow(ctx, studentJoinedQuery+` WHERE s.id = $1`, id))
}

func (r *StudentRepository) GetByUserID(ctx context.Context, userID string) (models.Student, error) {
	return scanStudentJoined(r.pool.QueryRow(ctx, studentJoinedQuery+` WHERE s.user_id = $1`, userID))
}

func (r *StudentRepository) Update(ctx context.Context, student models.Student) error {
	const query = `
		UPDATE students
		SET student_code = $2, name = $3, branch_id = $4, department_id = $5, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query,
		student.ID,
		student.StudentCode,
		student.Name,
		student.BranchID,
		student.DepartmentID,
	)
	if err != nil {
		if isUnique(err) {
			return ErrDuplicate
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStudentNotFound
	}
	return nil
}

func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM students WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStudentNotFound
	}
	return nil
}

func (r *StudentRepository) DeleteByUser(ctx context.Context, userID string) error {
	const query = `DELETE FROM students WHERE user_id = $1`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}
