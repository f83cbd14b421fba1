package automation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/droidpilot/droidpilot/internal/infrastructure/database"
)

// RunRecord is one persisted configuration run.
type RunRecord struct {
	ID             string     `json:"id"`
	DeviceID       string     `json:"device_id"`
	ConfigName     string     `json:"config_name"`
	Trigger        Trigger    `json:"trigger"`
	Status         RunStatus  `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	StepsTotal     int        `json:"steps_total"`
	StepsCompleted int        `json:"steps_completed"`
	StepsSkipped   int        `json:"steps_skipped"`
	FailedStep     string     `json:"failed_step,omitempty"`
	FailureMessage string     `json:"failure_message,omitempty"`
	DurationMS     int64      `json:"duration_ms"`
}

// Repository persists run history.
type Repository interface {
	Save(ctx context.Context, rec *RunRecord) error
	ListRecent(ctx context.Context, deviceID string, limit int) ([]RunRecord, error)
}

// SQLiteRepository stores run records in the engine's SQLite database.
type SQLiteRepository struct {
	db *database.DB
}

// NewSQLiteRepository wraps an open database handle.
func NewSQLiteRepository(db *database.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save inserts a completed run record.
func (r *SQLiteRepository) Save(ctx context.Context, rec *RunRecord) error {
	query := `
		INSERT INTO runs (
			id, device_id, config_name, trigger_type, status,
			started_at, completed_at,
			steps_total, steps_completed, steps_skipped,
			failed_step, failure_message, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var completedAt any
	if rec.CompletedAt != nil {
		completedAt = rec.CompletedAt.UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.DeviceID, rec.ConfigName, string(rec.Trigger), string(rec.Status),
		rec.StartedAt.UTC(), completedAt,
		rec.StepsTotal, rec.StepsCompleted, rec.StepsSkipped,
		nullable(rec.FailedStep), nullable(rec.FailureMessage), rec.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", rec.ID, err)
	}
	return nil
}

// ListRecent returns the newest runs, most recent first. An empty
// deviceID lists runs across the whole fleet.
func (r *SQLiteRepository) ListRecent(ctx context.Context, deviceID string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, device_id, config_name, trigger_type, status,
		       started_at, completed_at,
		       steps_total, steps_completed, steps_skipped,
		       failed_step, failure_message, duration_ms
		FROM runs`
	args := []any{}
	if deviceID != "" {
		query += " WHERE device_id = ?"
		args = append(args, deviceID)
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var trigger, status string
		var completedAt sql.NullTime
		var failedStep, failureMessage sql.NullString

		err := rows.Scan(
			&rec.ID, &rec.DeviceID, &rec.ConfigName, &trigger, &status,
			&rec.StartedAt, &completedAt,
			&rec.StepsTotal, &rec.StepsCompleted, &rec.StepsSkipped,
			&failedStep, &failureMessage, &rec.DurationMS,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}

		rec.Trigger = Trigger(trigger)
		rec.Status = RunStatus(status)
		if completedAt.Valid {
			t := completedAt.Time
			rec.CompletedAt = &t
		}
		rec.FailedStep = failedStep.String
		rec.FailureMessage = failureMessage.String

		records = append(records, rec)
	}
	return records, rows.Err()
}

// nullable maps empty strings to NULL so the table stays query-friendly.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
