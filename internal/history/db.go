package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/aleister1102/hostbackoff/internal/backoff"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const tableName = "backoff_outcomes"

// outcomeColumns lists the table columns in scan order; id comes first.
var outcomeColumns = []string{
	"id", "request_id", "method", "url", "host", "policy", "attempts",
	"waited_ms", "status_code", "replayable", "error", "started_at", "finished_at",
}

// DB wraps the SQL database connection and journals backoff outcomes.
type DB struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Entry represents a record in the backoff_outcomes table.
type Entry struct {
	ID         int64
	RequestID  string
	Method     string
	URL        string
	Host       string
	Policy     string
	Attempts   int
	Waited     time.Duration
	StatusCode int
	Replayable bool
	Error      sql.NullString
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded reports whether the recorded call returned a response.
func (e Entry) Succeeded() bool {
	return !e.Error.Valid
}

// NewDB initializes a new DB connection and ensures the schema is set up.
func NewDB(dataSourceName string, logger zerolog.Logger) (*DB, error) {
	logger = logger.With().Str("component", "HistoryDB").Logger()
	logger.Info().Str("db_path", dataSourceName).Msg("Initializing history database connection")

	dbDir := filepath.Dir(dataSourceName)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logger.Error().Err(err).Str("directory", dbDir).Msg("Failed to create history database directory")
		return nil, fmt.Errorf("failed to create history database directory %s: %w", dbDir, err)
	}

	dbInstance, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		logger.Error().Err(err).Str("db_path", dataSourceName).Msg("Failed to open history database")
		return nil, fmt.Errorf("sql.Open failed for %s: %w", dataSourceName, err)
	}
	// SQLite allows a single writer; concurrent executors share one connection.
	dbInstance.SetMaxOpenConns(1)

	db := &DB{
		db:     dbInstance,
		logger: logger,
	}

	if err := db.InitSchema(); err != nil {
		db.Close()
		logger.Error().Err(err).Msg("Failed to initialize database schema")
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logger.Debug().Str("path", dataSourceName).Msg("Database initialized and schema verified")
	return db, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// InitSchema creates the backoff_outcomes table if it doesn't already exist.
func (d *DB) InitSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS backoff_outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		method TEXT NOT NULL,
		url TEXT NOT NULL,
		host TEXT NOT NULL,
		policy TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		waited_ms INTEGER NOT NULL DEFAULT 0,
		status_code INTEGER NOT NULL DEFAULT 0,
		replayable INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_backoff_outcomes_started_at ON backoff_outcomes (started_at);
	`
	if _, err := d.db.Exec(query); err != nil {
		d.logger.Error().Err(err).Msg("Failed to initialize schema")
		return err
	}
	return nil
}

// RecordOutcome inserts one outcome and returns the ID of the new row.
func (d *DB) RecordOutcome(ctx context.Context, outcome backoff.Outcome) (int64, error) {
	errText := sql.NullString{}
	if outcome.Err != nil {
		errText = sql.NullString{String: outcome.Err.Error(), Valid: true}
	}

	query, args, err := squirrel.Insert(tableName).
		Columns(outcomeColumns[1:]...).
		Values(
			outcome.RequestID,
			outcome.Method,
			outcome.URL,
			strings.ToLower(outcome.Host),
			outcome.Policy.String(),
			outcome.Attempts,
			outcome.Waited.Milliseconds(),
			outcome.StatusCode,
			outcome.Replayable,
			errText,
			outcome.StartedAt.UnixMilli(),
			outcome.FinishedAt.UnixMilli(),
		).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build insert: %w", err)
	}

	result, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert backoff outcome: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	d.logger.Debug().Int64("db_id", id).Str("request_id", outcome.RequestID).Msg("Recorded backoff outcome")
	return id, nil
}

// ObserveOutcome implements backoff.Observer. Write failures are logged and never
// reach the caller of the request.
func (d *DB) ObserveOutcome(ctx context.Context, outcome backoff.Outcome) {
	if _, err := d.RecordOutcome(ctx, outcome); err != nil {
		d.logger.Error().Err(err).Str("request_id", outcome.RequestID).Msg("Failed to record backoff outcome")
	}
}

// RecentOutcomes returns up to limit entries, newest first.
func (d *DB) RecentOutcomes(ctx context.Context, limit int) ([]Entry, error) {
	return d.QueryOutcomes(ctx, Filter{Limit: limit})
}

// Filter narrows QueryOutcomes. Zero fields match everything.
type Filter struct {
	Host       string
	Policy     string
	FailedOnly bool
	Limit      int
}

// QueryOutcomes returns entries matching f, newest first.
func (d *DB) QueryOutcomes(ctx context.Context, f Filter) ([]Entry, error) {
	if f.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", f.Limit)
	}

	builder := squirrel.Select(outcomeColumns...).
		From(tableName).
		OrderBy("started_at DESC", "id DESC").
		Limit(uint64(f.Limit))
	if f.Host != "" {
		builder = builder.Where(squirrel.Eq{"host": strings.ToLower(f.Host)})
	}
	if f.Policy != "" {
		builder = builder.Where(squirrel.Eq{"policy": strings.ToLower(f.Policy)})
	}
	if f.FailedOnly {
		builder = builder.Where(squirrel.NotEq{"error": nil})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query backoff outcomes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry      Entry
			waitedMS   int64
			startedMS  int64
			finishedMS int64
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.RequestID,
			&entry.Method,
			&entry.URL,
			&entry.Host,
			&entry.Policy,
			&entry.Attempts,
			&waitedMS,
			&entry.StatusCode,
			&entry.Replayable,
			&entry.Error,
			&startedMS,
			&finishedMS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan backoff outcome: %w", err)
		}
		entry.Waited = time.Duration(waitedMS) * time.Millisecond
		entry.StartedAt = time.UnixMilli(startedMS)
		entry.FinishedAt = time.UnixMilli(finishedMS)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate backoff outcomes: %w", err)
	}
	return entries, nil
}
