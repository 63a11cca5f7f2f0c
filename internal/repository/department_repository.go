package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ghostreact/markapp/internal/models"
)

var ErrDepartmentNotFound = errors.New("department not found")

type DepartmentRepository struct {
	pool *pgxpool.Pool
}

func NewDepartmentRepository(pool *pgxpool.Pool) *DepartmentRepository {
	return &DepartmentRepository{pool: pool}
}

func scanDepartment(row pgx.Row) (models.Department, error) {
	var dept models.Department
	err := row.Scan(&dept.ID, &dept.Name, &dept.CreatedAt, &dept.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Department{}, ErrDepartmentNotFound
		}
		return models.Department{}, err
	}
	return dept, nil
}

func (r *DepartmentRepository) Create(ctx context.Context, dept models.Department) error {
	const query = `
		INSERT INTO departments (id, name, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query, dept.ID, dept.Name)
	if isUnique(err) {
		return ErrDuplicate
	}
	return err
}

// List returns all departments, optionally filtered by a
// case-insensitive name substring.
func (r *DepartmentRepository) List(ctx context.Context, nameFilter string) ([]models.Department, error) {
	query := `SELECT id, name, created_at, updated_at FROM departments`
	args := []any{}
	if nameFilter != "" {
		query += ` WHERE name ILIKE '%' || $1 || '%'`
		args = append(args, nameFilter)
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var depts []models.Department
	for rows.Next() {
		dept, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		depts = append(depts, dept)
	}
	return depts, rows.Err()
}

func (r *DepartmentRepository) GetByID(ctx context.Context, id string) (models.Department, error) {
	const query = `SELECT id, name, created_at, updated_at FROM departments WHERE id = $1`
	return scanDepartment(r.pool.QueryRow(ctx, query, id))
}

func (r *DepartmentRepository) Update(ctx context.Context, id string, name string) error {
	const query = `UPDATE departments SET name = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, name)
	if err != nil {
		if isUnique(err) {
			return ErrDuplicate
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDepartmentNotFound
	}
	return nil
}

func (r *DepartmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM departments WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDepartmentNotFound
	}
	return nil
}
