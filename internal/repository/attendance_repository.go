package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ghostreact/markapp/internal/models"
)

var ErrAttendanceNotFound = errors.New("attendance not found")

type AttendanceRepository struct {
	pool *pgxpool.Pool
}

func NewAttendanceRepository(pool *pgxpool.Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// Upsert records attendance for one student on one day. (student_id,
// date) is the composite key; marking the same day twice overwrites
// the status.
func (r *AttendanceRepository) Upsert(ctx context.Context, record models.Attendance) error {
	const query = `
		INSERT INTO attendance (id, student_id, date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (student_id, date)
		DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = NOW()
	`
	_, err := r.pool.Exec(ctx, query,
		record.ID,
		record.StudentID,
		record.Date,
		record.Status,
	)
	return err
}

// Filter narrows an attendance listing. Zero values are ignored.
type Filter struct {
	StudentIDs []string
	StudentID  string
	Status     models.AttendanceStatus
	From       time.Time
	To         time.Time
	Page       int
	Limit      int
}

const attendanceJoinedSelect = `
	SELECT a.id, a.student_id, a.date, a.status, a.created_at, a.updated_at, s.student_code, s.name
	FROM attendance a
	JOIN students s ON s.id = a.student_id
`

// List returns a page of records newest-date first, plus the total
// match count for pagination metadata.
func (r *AttendanceRepository) List(ctx context.Context, filter Filter) ([]models.Attendance, int, error) {
	where, args := buildAttendanceWhere(filter)

	countQuery := `SELECT COUNT(*) FROM attendance a` + where
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}

	query := attendanceJoinedSelect + where +
		fmt.Sprintf(` ORDER BY a.date DESC, a.created_at DESC LIMIT %d OFFSET %d`, limit, (page-1)*limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []models.Attendance
	for rows.Next() {
		record, err := scanAttendanceJoined(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, record)
	}
	return records, total, rows.Err()
}

func buildAttendanceWhere(filter Filter) (string, []any) {
	var clauses []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.StudentID != "" {
		clauses = append(clauses, "a.student_id = "+arg(filter.StudentID))
	} else if len(filter.StudentIDs) > 0 {
		clauses = append(clauses, "a.student_id = ANY("+arg(filter.StudentIDs)+")")
	}
	if filter.Status != "" {
		clauses = append(clauses, "a.status = "+arg(filter.Status))
	}
	if !filter.From.IsZero() {
		clauses = append(clauses, "a.date >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		clauses = append(clauses, "a.date <= "+arg(filter.To))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanAttendanceJoined(row pgx.Row) (models.Attendance, error) {
	var record models.Attendance
	err := row.Scan(
		&record.ID,
		&record.StudentID,
		&record.Date,
		&record.Status,
		&record.CreatedAt,
		&record.UpdatedAt,
		&record.StudentCode,
		&record.StudentName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Attendance{}, ErrAttendanceNotFound
		}
		return models.Attendance{}, err
	}
	return record, nil
}
