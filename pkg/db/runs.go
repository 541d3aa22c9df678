package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	RunRunning  = "running"
	RunComplete = "complete"
	RunPartial  = "partial"
	RunCanceled = "canceled"
	RunFailed   = "failed"

	ItemAccepted = "accepted"
	ItemFailed   = "failed"
)

// Run is one collect or manifest invocation
type Run struct {
	ID         int64      `json:"id" yaml:"id"`
	UUID       string     `json:"uuid" yaml:"uuid"`
	Mode       string     `json:"mode" yaml:"mode"`
	Query      string     `json:"query" yaml:"query"`
	CleanQuery string     `json:"clean_query" yaml:"clean_query"`
	Needed     int        `json:"needed" yaml:"needed"`
	Status     string     `json:"status" yaml:"status"`
	OutputPath string     `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	ItemCount  int        `json:"item_count" yaml:"item_count"`
	Stats      RunStats   `json:"stats" yaml:"stats"`
}

// RunStats mirrors the engine's report counters
type RunStats struct {
	Accepted       int `json:"accepted" yaml:"accepted"`
	Attempts       int `json:"attempts" yaml:"attempts"`
	MaxAttempts    int `json:"max_attempts" yaml:"max_attempts"`
	Ignored        int `json:"ignored" yaml:"ignored"`
	Duplicates     int `json:"duplicates" yaml:"duplicates"`
	Existing       int `json:"existing" yaml:"existing"`
	Filtered       int `json:"filtered" yaml:"filtered"`
	Invalid        int `json:"invalid" yaml:"invalid"`
	AcceptFailures int `json:"accept_failures" yaml:"accept_failures"`
	SearchErrors   int `json:"search_errors" yaml:"search_errors"`
}

// RunItem is one accept attempt within a run
type RunItem struct {
	ID              int64     `json:"id" yaml:"id"`
	RunID           int64     `json:"run_id" yaml:"run_id"`
	VideoID         string    `json:"video_id" yaml:"video_id"`
	Title           string    `json:"title,omitempty" yaml:"title,omitempty"`
	MediaURL        string    `json:"media_url,omitempty" yaml:"media_url,omitempty"`
	FilePath        string    `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	DurationSeconds float64   `json:"duration_seconds" yaml:"duration_seconds"`
	SizeBytes       int64     `json:"size_bytes" yaml:"size_bytes"`
	Status          string    `json:"status" yaml:"status"`
	ErrorMessage    string    `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
}

// CreateRun records the start of a run and returns its id and uuid
func (db *DB) CreateRun(ctx context.Context, mode, query, cleanQuery string, needed int, outputPath string) (int64, string, error) {
	runUUID := uuid.NewString()
	res, err := db.ExecContext(ctx, `
		INSERT INTO runs (run_uuid, mode, query, clean_query, needed, output_path, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runUUID, mode, query, cleanQuery, needed, nullString(outputPath), RunRunning)
	if err != nil {
		return 0, "", fmt.Errorf("failed to create run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, "", fmt.Errorf("failed to get run id: %w", err)
	}
	return id, runUUID, nil
}

// RecordRunItem stores one accept attempt
func (db *DB) RecordRunItem(ctx context.Context, item RunItem) (int64, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO run_items (run_id, video_id, title, media_url, file_path,
			duration_seconds, size_bytes, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.RunID, item.VideoID, nullString(item.Title), nullString(item.MediaURL),
		nullString(item.FilePath), item.DurationSeconds, item.SizeBytes, item.Status,
		nullString(item.ErrorMessage))
	if err != nil {
		return 0, fmt.Errorf("failed to record run item: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun stores final counters and status
func (db *DB) FinishRun(ctx context.Context, runID int64, status string, stats RunStats) error {
	res, err := db.ExecContext(ctx, `
		UPDATE runs SET
			status = ?, finished_at = ?,
			accepted = ?, attempts = ?, max_attempts = ?, ignored = ?, duplicates = ?,
			existing = ?, filtered = ?, invalid = ?, accept_failures = ?, search_errors = ?
		WHERE run_id = ?`,
		status, time.Now().UTC(),
		stats.Accepted, stats.Attempts, stats.MaxAttempts, stats.Ignored, stats.Duplicates,
		stats.Existing, stats.Filtered, stats.Invalid, stats.AcceptFailures, stats.SearchErrors,
		runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %d not found", runID)
	}
	return nil
}

const runColumns = `
	r.run_id, r.run_uuid, r.mode, r.query, r.clean_query, r.needed, r.status,
	r.output_path, r.created_at, r.finished_at,
	r.accepted, r.attempts, r.max_attempts, r.ignored, r.duplicates,
	r.existing, r.filtered, r.invalid, r.accept_failures, r.search_errors,
	(SELECT COUNT(*) FROM run_items i WHERE i.run_id = r.run_id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var outputPath sql.NullString
	var finishedAt sql.NullTime
	s := &r.Stats
	err := row.Scan(&r.ID, &r.UUID, &r.Mode, &r.Query, &r.CleanQuery, &r.Needed, &r.Status,
		&outputPath, &r.CreatedAt, &finishedAt,
		&s.Accepted, &s.Attempts, &s.MaxAttempts, &s.Ignored, &s.Duplicates,
		&s.Existing, &s.Filtered, &s.Invalid, &s.AcceptFailures, &s.SearchErrors,
		&r.ItemCount)
	if err != nil {
		return nil, err
	}
	if outputPath.Valid {
		r.OutputPath = outputPath.String
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

// ListRuns returns runs, newest first
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs r ORDER BY r.run_id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRun retrieves a run by id
func (db *DB) GetRun(ctx context.Context, runID int64) (*Run, error) {
	r, err := scanRun(db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs r WHERE r.run_id = ?`, runID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// GetLatestRunID returns the most recent run id
func (db *DB) GetLatestRunID(ctx context.Context) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx, `SELECT run_id FROM runs ORDER BY run_id DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("no runs found")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get latest run: %w", err)
	}
	return id, nil
}

// GetRunItems returns the items of a run in insertion order
func (db *DB) GetRunItems(ctx context.Context, runID int64) ([]RunItem, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT item_id, run_id, video_id, title, media_url, file_path,
			duration_seconds, size_bytes, status, error_message, created_at
		FROM run_items WHERE run_id = ? ORDER BY item_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run items: %w", err)
	}
	defer rows.Close()

	var items []RunItem
	for rows.Next() {
		var it RunItem
		var title, mediaURL, filePath, errMsg sql.NullString
		var duration sql.NullFloat64
		if err := rows.Scan(&it.ID, &it.RunID, &it.VideoID, &title, &mediaURL, &filePath,
			&duration, &it.SizeBytes, &it.Status, &errMsg, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run item: %w", err)
		}
		it.Title = title.String
		it.MediaURL = mediaURL.String
		it.FilePath = filePath.String
		it.DurationSeconds = duration.Float64
		it.ErrorMessage = errMsg.String
		items = append(items, it)
	}
	return items, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
