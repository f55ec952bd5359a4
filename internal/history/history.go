// Package history records analysis runs in a SQL database so schedules can be
// compared over time. SQLite is the default backend; PostgreSQL and MySQL are
// supported through the same schema.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNotFound is returned when a run ID has no record.
var ErrNotFound = errors.New("history: run not found")

const schema = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	id           VARCHAR(64) PRIMARY KEY,
	created_at   BIGINT NOT NULL,
	source       TEXT NOT NULL,
	milestone    TEXT NOT NULL,
	relations    VARCHAR(16) NOT NULL,
	task_count   INTEGER NOT NULL,
	critical_ids TEXT NOT NULL,
	total_days   INTEGER NOT NULL,
	error        TEXT NOT NULL
)`

// drivers maps config driver names to database/sql driver names.
var drivers = map[string]string{
	"sqlite":   "sqlite",
	"postgres": "postgres",
	"mysql":    "mysql",
}

func init() {
	// modernc registers as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Run is one recorded analysis.
type Run struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Source      string    `json:"source"`
	Milestone   string    `json:"milestone,omitempty"`
	Relations   string    `json:"relations"`
	TaskCount   int       `json:"task_count"`
	CriticalIDs []string  `json:"critical_ids"`
	TotalDays   int       `json:"total_days"`
	Error       string    `json:"error,omitempty"`
}

// runRow is the database shape of a Run.
type runRow struct {
	ID          string `db:"id"`
	CreatedAt   int64  `db:"created_at"`
	Source      string `db:"source"`
	Milestone   string `db:"milestone"`
	Relations   string `db:"relations"`
	TaskCount   int    `db:"task_count"`
	CriticalIDs string `db:"critical_ids"`
	TotalDays   int    `db:"total_days"`
	Error       string `db:"error"`
}

func toRow(r *Run) (runRow, error) {
	ids := r.CriticalIDs
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return runRow{}, err
	}
	return runRow{
		ID:          r.ID,
		CreatedAt:   r.CreatedAt.UnixNano(),
		Source:      r.Source,
		Milestone:   r.Milestone,
		Relations:   r.Relations,
		TaskCount:   r.TaskCount,
		CriticalIDs: string(data),
		TotalDays:   r.TotalDays,
		Error:       r.Error,
	}, nil
}

func (row runRow) toRun() (Run, error) {
	var ids []string
	if err := json.Unmarshal([]byte(row.CriticalIDs), &ids); err != nil {
		return Run{}, fmt.Errorf("decode critical ids of run %s: %w", row.ID, err)
	}
	return Run{
		ID:          row.ID,
		CreatedAt:   time.Unix(0, row.CreatedAt).UTC(),
		Source:      row.Source,
		Milestone:   row.Milestone,
		Relations:   row.Relations,
		TaskCount:   row.TaskCount,
		CriticalIDs: ids,
		TotalDays:   row.TotalDays,
		Error:       row.Error,
	}, nil
}

// Store persists analysis runs.
type Store struct {
	db *sqlx.DB
}

// Open connects to the history database and ensures the schema exists. For
// sqlite, dsn is a file path whose parent directory is created if needed.
// The caller is responsible for calling Close.
func Open(driver, dsn string) (*Store, error) {
	name, ok := drivers[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported history driver %q", driver)
	}

	if driver == "sqlite" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create history dir: %w", err)
			}
		}
	}

	db, err := sqlx.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s history: %w", driver, err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s history: %w", driver, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// Record persists a run, assigning its ID and CreatedAt when unset.
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	row, err := toRow(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO analysis_runs
			(id, created_at, source, milestone, relations, task_count, critical_ids, total_days, error)
		VALUES
			(:id, :created_at, :source, :milestone, :relations, :task_count, :critical_ids, :total_days, :error)`,
		row)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT * FROM analysis_runs ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []runRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	runs := make([]Run, 0, len(rows))
	for _, row := range rows {
		r, err := row.toRun()
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, nil
}

// Get retrieves a run by ID.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT * FROM analysis_runs WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	r, err := row.toRun()
	if err != nil {
		return nil, err
	}
	return &r, nil
}
