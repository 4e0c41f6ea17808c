package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// FrontierDB provides SQLite-based durable storage for frontier records.
// Each record maps a URL identity hash to its canonical URL and completion
// flag. The database outlives the process so that an interrupted crawl can
// resume without revisiting completed URLs.
//
// Design decision: We use a single database file per crawl rather than a
// file per domain. The frontier is one logical structure; splitting it
// would complicate the resume scan and the exactly-once guarantee.
type FrontierDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Record is one durable frontier entry.
type Record struct {
	// URLHash is the stable digest of the normalized URL, the primary key.
	URLHash string

	// URL is the canonical URL.
	URL string

	// Completed reports whether a worker finished processing this URL.
	Completed bool
}

// Options configures FrontierDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a FrontierDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*FrontierDB, error) {
	dbPath := filepath.Join(dbDir, "frontier.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating
	// new files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a single pooled connection also
	// gives us the "flushed before the call returns" durability contract,
	// since every statement commits before Exec returns.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	fdb := &FrontierDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := fdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return fdb, nil
}

// Close closes the database connection.
func (fdb *FrontierDB) Close() error {
	return fdb.db.Close()
}

// Path returns the path to the underlying database file.
func (fdb *FrontierDB) Path() string {
	return fdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
// The implicit rowid preserves insertion order, which the resume scan
// relies on to rebuild the queue in discovery order.
func (fdb *FrontierDB) createTables() error {
	schema := `
	-- Frontier records: one row per discovered URL identity
	CREATE TABLE IF NOT EXISTS urls (
		url_hash TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		discovered_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_urls_completed ON urls(completed);
	`

	_, err := fdb.db.ExecContext(context.Background(), schema)
	return err
}

// Insert stores a new frontier record if no record exists for its hash.
// It reports whether a row was actually inserted, so the caller knows
// whether the URL is newly discovered.
func (fdb *FrontierDB) Insert(ctx context.Context, rec Record) (bool, error) {
	query := `
	INSERT INTO urls (url_hash, url, completed)
	VALUES (?, ?, ?)
	ON CONFLICT(url_hash) DO NOTHING
	`

	completed := 0
	if rec.Completed {
		completed = 1
	}

	result, err := fdb.db.ExecContext(ctx, query, rec.URLHash, rec.URL, completed)
	if err != nil {
		return false, fmt.Errorf("failed to insert frontier record: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return n > 0, nil
}

// Get retrieves a frontier record by URL hash.
// Returns nil without error when no record exists.
func (fdb *FrontierDB) Get(ctx context.Context, urlHash string) (*Record, error) {
	query := `SELECT url_hash, url, completed FROM urls WHERE url_hash = ?`

	var rec Record
	var completed int
	err := fdb.db.QueryRowContext(ctx, query, urlHash).Scan(&rec.URLHash, &rec.URL, &completed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get frontier record: %w", err)
	}

	rec.Completed = completed != 0
	return &rec, nil
}

// MarkCompleted upserts a record with completed=1.
// The upsert mirrors the resume contract: marking an unknown URL complete
// still writes a completed record so it is never re-enqueued.
func (fdb *FrontierDB) MarkCompleted(ctx context.Context, urlHash, url string) error {
	query := `
	INSERT INTO urls (url_hash, url, completed)
	VALUES (?, ?, 1)
	ON CONFLICT(url_hash) DO UPDATE SET completed = 1
	`

	if _, err := fdb.db.ExecContext(ctx, query, urlHash, url); err != nil {
		return fmt.Errorf("failed to mark record completed: %w", err)
	}
	return nil
}

// Scan iterates over every frontier record in insertion order, calling fn
// for each. A row that fails to scan is skipped, not fatal: a crawl must
// be resumable even when individual records are damaged. Scan returns the
// number of rows skipped this way.
func (fdb *FrontierDB) Scan(ctx context.Context, fn func(Record)) (int, error) {
	query := `SELECT url_hash, url, completed FROM urls ORDER BY rowid`

	rows, err := fdb.db.QueryContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to scan frontier records: %w", err)
	}
	defer rows.Close()

	skipped := 0
	for rows.Next() {
		var rec Record
		var completed int
		if err := rows.Scan(&rec.URLHash, &rec.URL, &completed); err != nil {
			skipped++
			continue
		}
		rec.Completed = completed != 0
		fn(rec)
	}

	return skipped, rows.Err()
}

// Clear removes every frontier record. Called on an explicit restart
// before reseeding.
func (fdb *FrontierDB) Clear(ctx context.Context) error {
	if _, err := fdb.db.ExecContext(ctx, `DELETE FROM urls`); err != nil {
		return fmt.Errorf("failed to clear frontier records: %w", err)
	}
	return nil
}

// Count returns the total number of records and how many are completed.
// Used for progress logging at startup.
func (fdb *FrontierDB) Count(ctx context.Context) (total, completed int, err error) {
	query := `SELECT COUNT(*), COALESCE(SUM(completed), 0) FROM urls`
	if err := fdb.db.QueryRowContext(ctx, query).Scan(&total, &completed); err != nil {
		return 0, 0, fmt.Errorf("failed to count frontier records: %w", err)
	}
	return total, completed, nil
}
