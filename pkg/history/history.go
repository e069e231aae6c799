// Package history persists published coordinator snapshots to SQLite for
// later inspection of solar output and miner behavior over time.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/solminer/solminer/pkg/coordinator"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// Schema contains the SQLite schema for the snapshot journal.
const Schema = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- One row per published snapshot
CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    taken_at DATETIME NOT NULL,
    solar_power REAL NOT NULL,
    solar_curve_enabled INTEGER NOT NULL,
    max_solar_power REAL NOT NULL,
    hashrate REAL,              -- GH/s when parseable from summary
    summary_json TEXT,          -- raw summary response
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_snapshots_taken ON snapshots(taken_at);
`

// Entry is one recorded snapshot row.
type Entry struct {
	ID           int64
	TakenAt      time.Time
	SolarPower   float64
	CurveEnabled bool
	MaxSolar     float64
	Hashrate     sql.NullFloat64
	SummaryJSON  string
}

// Store is a SQLite-backed snapshot journal.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the journal at dbPath. Use ":memory:" for an
// in-memory database.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	_, err := s.db.Exec("INSERT OR IGNORE INTO schema_version (version) VALUES (?)", SchemaVersion)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert records one published snapshot.
func (s *Store) Insert(ctx context.Context, snap *coordinator.Snapshot) error {
	summaryJSON, err := json.Marshal(snap.Summary)
	if err != nil {
		summaryJSON = []byte("{}")
	}

	hashrate := ExtractHashrate(snap.Summary)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (taken_at, solar_power, solar_curve_enabled, max_solar_power, hashrate, summary_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		snap.LastUpdate, snap.SolarPower, snap.SolarCurveEnabled, snap.MaxSolarPower,
		hashrate, string(summaryJSON))
	return err
}

// Recent returns the most recent n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, taken_at, solar_power, solar_curve_enabled, max_solar_power, hashrate, summary_json
		FROM snapshots ORDER BY taken_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.ID, &e.TakenAt, &e.SolarPower, &e.CurveEnabled,
			&e.MaxSolar, &e.Hashrate, &e.SummaryJSON); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ExtractHashrate pulls an average hashrate out of a summary response.
// CGMiner variants report it under SUMMARY[0]."GHS av" or "MHS av".
func ExtractHashrate(summary map[string]any) sql.NullFloat64 {
	entries, ok := summary["SUMMARY"].([]any)
	if !ok || len(entries) == 0 {
		return sql.NullFloat64{}
	}
	first, ok := entries[0].(map[string]any)
	if !ok {
		return sql.NullFloat64{}
	}
	if v, ok := first["GHS av"].(float64); ok {
		return sql.NullFloat64{Float64: v, Valid: true}
	}
	if v, ok := first["MHS av"].(float64); ok {
		return sql.NullFloat64{Float64: v / 1000, Valid: true}
	}
	return sql.NullFloat64{}
}
