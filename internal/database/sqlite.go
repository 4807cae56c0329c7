package database

import (
	"context"
	"database/sql"
	"fmt"

	"photobak/internal/database/migrations"
	"photobak/internal/photobak"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the RunStore interface using SQLite.
type SQLiteDatabase struct {
	db    *sql.DB
	path  string
	clock photobak.Clock
}

// NewSQLiteDatabase opens the database at path and brings its schema up to date.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string, clock photobak.Clock) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return NewSQLiteDatabaseFromDB(db, path, clock), nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the schema is in place.
func NewSQLiteDatabaseFromDB(db *sql.DB, path string, clock photobak.Clock) *SQLiteDatabase {
	if clock == nil {
		clock = photobak.RealClock{}
	}
	return &SQLiteDatabase{db: db, path: path, clock: clock}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// A single connection is used so that ":memory:" databases are shared by all queries.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

const runColumns = `id, run_id, handle, destination, identity, started_at, finished_at, status, photos, archived, error`

func scanRun(row interface{ Scan(...any) error }) (*photobak.Run, error) {
	var r photobak.Run
	err := row.Scan(&r.ID, &r.RunID, &r.Handle, &r.Destination, &r.Identity,
		&r.StartedAt, &r.FinishedAt, &r.Status, &r.Photos, &r.Archived, &r.Error)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteDatabase) CreateRun(runID, handle, destination string) (*photobak.Run, error) {
	ctx := context.Background()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, handle, destination, started_at, status) VALUES (?, ?, ?, ?, ?)`,
		runID, handle, destination, s.clock.Now().UTC(), photobak.RunRunning)
	if err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}

	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("reading created run: %w", err)
	}
	return run, nil
}

func (s *SQLiteDatabase) FinishRun(id int64, summary photobak.RunSummary) error {
	res, err := s.db.ExecContext(context.Background(),
		`UPDATE runs
		 SET finished_at = ?, status = ?, identity = ?, photos = ?, archived = ?, error = ?
		 WHERE id = ?`,
		s.clock.Now().UTC(), summary.Status, summary.Identity, summary.Photos, summary.Archived, summary.Error, id)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finishing run: run %d not found", id)
	}
	return nil
}

func (s *SQLiteDatabase) ListRuns(limit int) ([]*photobak.Run, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*photobak.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements photobak.RunStore interface
var _ photobak.RunStore = (*SQLiteDatabase)(nil)

