// Package store persists metric samples in an append-only SQLite table.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"sysscope/internal/models"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS metrics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT,
	cpu REAL,
	memory REAL,
	disk_io REAL,
	latency REAL
)`
	probeColumnsSQL = "SELECT id, timestamp, cpu, memory, disk_io, latency FROM metrics LIMIT 0"
	insertSQL       = "INSERT INTO metrics (timestamp, cpu, memory, disk_io, latency) VALUES (?, ?, ?, ?, ?)"
	recentSQL       = "SELECT id, timestamp, cpu, memory, disk_io, latency FROM metrics ORDER BY id DESC LIMIT ?"
)

// Store is the single owned handle to the metrics table. database/sql scopes
// connection use to each call, so reads may run alongside the writer.
type Store struct {
	db *sql.DB
}

// New wraps an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens (creating when absent) the SQLite database at path and verifies
// it is reachable.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sql.Open(driverName, path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database %s: %w", path, err)
	}
	return New(db), nil
}

// Init creates the metrics table if absent and checks that every expected
// column is readable. Safe to call on every start.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create metrics table: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, probeColumnsSQL)
	if err != nil {
		return fmt.Errorf("metrics table is malformed: %w", err)
	}
	defer rows.Close()
	return rows.Err()
}

// Append durably stores sample and returns it with its assigned id. The insert
// runs in its own transaction; readers see either nothing or the whole row.
func (s *Store) Append(ctx context.Context, sample models.Sample) (models.StoredRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.StoredRecord{}, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, insertSQL,
		models.EncodeStoredTime(sample.Timestamp),
		sample.CPUUsage,
		sample.MemoryUsage,
		sample.DiskIO,
		sample.NetworkLatency,
	)
	if err != nil {
		return models.StoredRecord{}, fmt.Errorf("insert sample: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.StoredRecord{}, fmt.Errorf("read inserted id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.StoredRecord{}, fmt.Errorf("commit append: %w", err)
	}
	return models.StoredRecord{ID: id, Sample: sample}, nil
}

// Recent returns up to limit of the most recently appended records, oldest
// first.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.StoredRecord, error) {
	records := make([]models.StoredRecord, 0)
	if limit <= 0 {
		return records, nil
	}

	rows, err := s.db.QueryContext(ctx, recentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec models.StoredRecord
			ts  string
		)
		if err := rows.Scan(&rec.ID, &ts, &rec.CPUUsage, &rec.MemoryUsage, &rec.DiskIO, &rec.NetworkLatency); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if rec.Timestamp, err = models.DecodeStoredTime(ts); err != nil {
			return nil, fmt.Errorf("record %d timestamp: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent: %w", err)
	}

	slices.Reverse(records)
	return records, nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
