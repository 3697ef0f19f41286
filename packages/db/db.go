// Package db stores run history in SQLite.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// ErrNoRuns is returned by LastRun when nothing has been recorded yet.
var ErrNoRuns = errors.New("no runs recorded")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	workspace   TEXT NOT NULL,
	collection  TEXT NOT NULL,
	environment TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	total       INTEGER NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	errors      INTEGER NOT NULL,
	started_at  INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	report      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS runs_collection ON runs (workspace, collection, started_at);
`

// Run is one recorded collection run.
type Run struct {
	ID          string
	Workspace   string
	Collection  string
	Environment string
	Status      string
	Total       int64
	Passed      int64
	Failed      int64
	Skipped     int64
	Errors      int64
	StartedAt   time.Time
	Duration    time.Duration
	Report      string
}

// Client is a history database handle.
type Client struct {
	db           *sql.DB
	dataSource   string
	queryTimeout time.Duration
}

// NewClient opens (and creates if needed) the database behind
// connectionString and applies the schema.
func NewClient(connectionString string) (*Client, error) {
	dsn, err := parseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Client{db: db, dataSource: dsn, queryTimeout: 30 * time.Second}, nil
}

func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// SaveRun inserts r, assigning an ID when it has none.
func (c *Client) SaveRun(ctx context.Context, r *Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO runs (id, workspace, collection, environment, status, total, passed, failed,
			skipped, errors, started_at, duration_ms, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Workspace, r.Collection, r.Environment, r.Status, r.Total, r.Passed, r.Failed,
		r.Skipped, r.Errors, r.StartedAt.UnixMilli(), r.Duration.Milliseconds(), r.Report)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. Empty workspace or collection
// match everything; limit <= 0 means no limit.
func (c *Client) ListRuns(ctx context.Context, workspace, collection string, limit int) ([]Run, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	var where []string
	var args []any
	if workspace != "" {
		where = append(where, "workspace = ?")
		args = append(args, workspace)
	}
	if collection != "" {
		where = append(where, "collection = ?")
		args = append(args, collection)
	}

	query := `SELECT id, workspace, collection, environment, status, total, passed, failed,
		skipped, errors, started_at, duration_ms, report FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, rowid DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started, duration int64
		if err := rows.Scan(&r.ID, &r.Workspace, &r.Collection, &r.Environment, &r.Status, &r.Total,
			&r.Passed, &r.Failed, &r.Skipped, &r.Errors, &started, &duration, &r.Report); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		r.Duration = time.Duration(duration) * time.Millisecond
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// LastRun is the most recent run of a collection.
func (c *Client) LastRun(ctx context.Context, workspace, collection string) (*Run, error) {
	runs, err := c.ListRuns(ctx, workspace, collection, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	return &runs[0], nil
}

// parseConnectionString accepts sqlite://path and sqlite:path. A bare path is
// taken as a SQLite file.
func parseConnectionString(connStr string) (string, error) {
	connStr = strings.TrimSpace(connStr)
	switch {
	case connStr == "":
		return "", errors.New("empty connection string")
	case strings.HasPrefix(connStr, "sqlite://"):
		return strings.TrimPrefix(connStr, "sqlite://"), nil
	case strings.HasPrefix(connStr, "sqlite:"):
		return strings.TrimPrefix(connStr, "sqlite:"), nil
	case strings.Contains(connStr, "://"):
		scheme, _, _ := strings.Cut(connStr, "://")
		return "", fmt.Errorf("unsupported database scheme: %s", scheme)
	}
	return connStr, nil
}
