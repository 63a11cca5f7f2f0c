package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ghostreact/markapp/internal/models"
)

var ErrBranchNotFound = errors.New("branch not found")

type BranchRepository struct {
	pool *pgxpool.Pool
}

func NewBranchRepository(pool *pgxpool.Pool) *BranchRepository {
	return &BranchRepository{pool: pool}
}

const branchColumns = `id, name, department_id, created_at, updated_at`

func scanBranch(row pgx.Row) (models.Branch, error) {
	var branch models.Branch
	err := row.Scan(&branch.ID, &branch.Name, &branch.DepartmentID, &branch.CreatedAt, &branch.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Branch{}, ErrBranchNotFound
		}
		return models.Branch{}, err
	}
	return branch, nil
}

func (r *BranchRepository) Create(ctx context.Context, branch models.Branch) error {
	const query = `
		INSERT INTO branches (id, name, department_id, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query, branch.ID, branch.Name, branch.DepartmentID)
	if isUnique(err) {
		return ErrDuplicate
	}
	return err
}

func (r *BranchRepository) List(ctx context.Context) ([]models.Branch, error) {
	const query = `SELECT ` + branchColumns + ` FROM branches ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var branches []models.Branch
	for rows.Next() {
		branch, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}
		branches = append(branches, branch)
	}
	return branches, rows.Err()
}

func (r *BranchRepository) GetByID(ctx context.Context, id string) (models.Branch, error) {
	const query = `SELECT ` + branchColumns + ` FROM branches WHERE id = $1`
	return scanBranch(r.pool.QueryRow(ctx, query, id))
}

func (r *BranchRepository) Update(ctx context.Context, branch models.Branch) error {
	const query = `
		UPDATE branches SET name = $2, department_id = $3, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, branch.ID, branch.Name, branch.DepartmentID)
	if err != nil {
		if isUnique(err) {
			return ErrDuplicate
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrBranchNotFound
	}
	return nil
}

func (r *BranchRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM branches WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrBranchNotFound
	}
	return nil
}
