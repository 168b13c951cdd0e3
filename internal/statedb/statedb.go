// Package statedb coordinates concurrently running processes through a small
// SQLite database: a heartbeat table and an election for the single
// refresh-driver role. WAL mode plus a busy timeout make it safe across
// processes; everything else in the application stays file-based.
package statedb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// SchemaVersion tracks the current database schema version.
// Bump this when adding migrations.
const SchemaVersion = 1

// DB wraps the coordination database. Thread-safe within one process;
// multiple OS processes share it via WAL mode + busy timeout.
type DB struct {
	db  *sql.DB
	pid int
}

// Open creates or opens the database at dbPath.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("statedb: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("statedb: open: %w", err)
	}

	// WAL mode: allows concurrent readers while writing
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("statedb: wal mode: %w", err)
	}

	// Busy timeout: wait up to 5s if another process holds a lock
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("statedb: busy timeout: %w", err)
	}

	return &DB{db: db, pid: os.Getpid()}, nil
}

// Close checkpoints WAL and closes the database.
func (s *DB) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// SQL returns the underlying sql.DB for advanced use cases (e.g., testing).
func (s *DB) SQL() *sql.DB {
	return s.db
}

// Migrate creates tables if they don't exist.
func (s *DB) Migrate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("statedb: begin migrate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("statedb: create metadata: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS driver_heartbeats (
			pid       INTEGER PRIMARY KEY,
			started   INTEGER NOT NULL,
			heartbeat INTEGER NOT NULL,
			is_driver INTEGER NOT NULL DEFAULT 0
		)
	`); err != nil {
		return fmt.Errorf("statedb: create heartbeats: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)
	`, strconv.Itoa(SchemaVersion)); err != nil {
		return fmt.Errorf("statedb: set schema version: %w", err)
	}

	return tx.Commit()
}

// --- Heartbeat ---

// Register records this process as a running instance.
func (s *DB) Register() error {
	now := time.Now().Unix()
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO driver_heartbeats (pid, started, heartbeat, is_driver)
		VALUES (?, ?, ?, 0)
	`, s.pid, now, now)
	return err
}

// Heartbeat updates the heartbeat timestamp for this process.
func (s *DB) Heartbeat() error {
	_, err := s.db.Exec(
		"UPDATE driver_heartbeats SET heartbeat = ? WHERE pid = ?",
		time.Now().Unix(), s.pid,
	)
	return err
}

// Unregister removes this process from the heartbeat table.
func (s *DB) Unregister() error {
	_, err := s.db.Exec("DELETE FROM driver_heartbeats WHERE pid = ?", s.pid)
	return err
}

// CleanDead removes heartbeat entries that haven't been updated within
// timeout. Such rows belong to processes that exited without Unregister.
func (s *DB) CleanDead(timeout time.Duration) error {
	cutoff := time.Now().Add(-timeout).Unix()
	_, err := s.db.Exec("DELETE FROM driver_heartbeats WHERE heartbeat < ?", cutoff)
	return err
}

// AliveCount returns how many instances have heartbeats fresher than timeout.
func (s *DB) AliveCount(timeout time.Duration) (int, error) {
	var count int
	cutoff := time.Now().Add(-timeout).Unix()
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM driver_heartbeats WHERE heartbeat >= ?", cutoff,
	).Scan(&count)
	return count, err
}

// --- Leader election ---

// ElectLeader attempts to make this process the refresh driver. Returns
// true if this process is now (or already was) the driver. A transaction
// atomically clears stale claims and claims the role if available.
func (s *DB) ElectLeader(timeout time.Duration) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("statedb: begin elect: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cutoff := time.Now().Add(-timeout).Unix()

	if _, err := tx.Exec(
		"UPDATE driver_heartbeats SET is_driver = 0 WHERE heartbeat < ? AND is_driver = 1",
		cutoff,
	); err != nil {
		return false, fmt.Errorf("statedb: clear stale driver: %w", err)
	}

	var existingPID int
	err = tx.QueryRow(
		"SELECT pid FROM driver_heartbeats WHERE is_driver = 1 AND heartbeat >= ? LIMIT 1",
		cutoff,
	).Scan(&existingPID)

	if err == nil {
		// An alive driver exists
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("statedb: commit elect: %w", err)
		}
		return existingPID == s.pid, nil
	}

	// No alive driver: claim it
	if _, err := tx.Exec(
		"UPDATE driver_heartbeats SET is_driver = 1 WHERE pid = ?",
		s.pid,
	); err != nil {
		return false, fmt.Errorf("statedb: claim driver: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("statedb: commit elect: %w", err)
	}
	return true, nil
}

// ResignLeader clears this process's driver claim.
func (s *DB) ResignLeader() error {
	_, err := s.db.Exec(
		"UPDATE driver_heartbeats SET is_driver = 0 WHERE pid = ?",
		s.pid,
	)
	return err
}

// --- Metadata ---

// SetMeta sets a key-value pair in the metadata table.
func (s *DB) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta gets a value from the metadata table. Returns "" if not found.
func (s *DB) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Touch updates a metadata timestamp other instances can poll to detect
// that the driver refreshed durable state.
func (s *DB) Touch() error {
	return s.SetMeta("last_refreshed", strconv.FormatInt(time.Now().UnixNano(), 10))
}

// LastRefreshed returns the Touch timestamp, zero when never set.
func (s *DB) LastRefreshed() (int64, error) {
	val, err := s.GetMeta("last_refreshed")
	if err != nil || val == "" {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}
