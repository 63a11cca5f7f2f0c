package tasks

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ghostreact/markapp/internal/models"
	"github.com/ghostreact/markapp/internal/repository"
)

const (
	TypeSessionPrune     = "session_prune"
	TypeAttendanceExport = "attendance_export"
)

// SessionPruner is the maintenance-only slice of the session store:
// bulk removal of revoked or expired rows past retention.
type SessionPruner interface {
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type AttendanceLister interface {
	List(ctx context.Context, filter repository.Filter) ([]models.Attendance, int, error)
}

type ReportStore interface {
	PutReport(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Processor executes maintenance tasks pulled off the stream.
type Processor struct {
	sessions   SessionPruner
	attendance AttendanceLister
	reports    ReportStore
	retention  time.Duration
	log        zerolog.Logger
}

func NewProcessor(sessions SessionPruner, attendance AttendanceLister, reports ReportStore, retention time.Duration, log zerolog.Logger) *Processor {
	return &Processor{
		sessions:   sessions,
		attendance: attendance,
		reports:    reports,
		retention:  retention,
		log:        log,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	taskType, _ := msg.Values["type"].(string)

	switch taskType {
	case TypeSessionPrune:
		return p.pruneSessions(ctx)
	case TypeAttendanceExport:
		return p.exportAttendance(ctx, msg)
	default:
		p.log.Warn().Str("type", taskType).Str("message_id", msg.ID).Msg("unknown task type, dropping")
		return nil
	}
}

func (p *Processor) pruneSessions(ctx context.Context) error {
	cutoff := time.Now().Add(-p.retention)
	deleted, err := p.sessions.DeleteStale(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune sessions: %w", err)
	}
	p.log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("pruned stale sessions")
	return nil
}

func (p *Processor) exportAttendance(ctx context.Context, msg redis.XMessage) error {
	fromStr, _ := msg.Values["from"].(string)
	toStr, _ := msg.Values["to"].(string)

	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return fmt.Errorf("parse from: %w", err)
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return fmt.Errorf("parse to: %w", err)
	}
	to = to.Add(24*time.Hour - time.Nanosecond)

	// Page through everything in range.
	var all []models.Attendance
	for page := 1; ; page++ {
		records, total, err := p.attendance.List(ctx, repository.Filter{
			From:  from,
			To:    to,
			Page:  page,
			Limit: 100,
		})
		if err != nil {
			return fmt.Errorf("list attendance: %w", err)
		}
		all = append(all, records...)
		if len(all) >= total || len(records) == 0 {
			break
		}
	}

	data, err := renderCSV(all)
	if err != nil {
		return fmt.Errorf("render csv: %w", err)
	}

	key := fmt.Sprintf("attendance/%s_%s_%d.csv", fromStr, toStr, time.Now().Unix())
	if _, err := p.reports.PutReport(ctx, key, data, "text/csv"); err != nil {
		return fmt.Errorf("store report: %w", err)
	}

	p.log.Info().Str("key", key).Int("rows", len(all)).Msg("attendance report exported")
	return nil
}

func renderCSV(records []models.Attendance) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"date", "student_code", "student_name", "status"}); err != nil {
		return nil, err
	}
	for _, record := range records {
		row := []string{
			record.Date.Format("2006-01-02"),
			record.StudentCode,
			record.StudentName,
			string(record.Status),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}
