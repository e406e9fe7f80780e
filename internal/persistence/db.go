// Package persistence provides the save-game text codec, save files and
// SQLite-backed save slots.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrSlotNotFound is returned when loading or deleting a missing slot.
var ErrSlotNotFound = errors.New("save slot not found")

// DB wraps a SQLite connection holding named save slots.
type DB struct {
	conn *sqlx.DB
}

// Slot describes one stored save.
type Slot struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Digest    string `db:"digest" json:"digest"`
	Tick      int64  `db:"tick" json:"tick"`
	Wallet    int    `db:"wallet" json:"wallet"`
	Machines  int    `db:"machines" json:"machines"`
	Size      int    `db:"size" json:"size"`
	UpdatedAt int64  `db:"updated_at" json:"updated_at"`
}

// Updated returns the slot's last write time.
func (s Slot) Updated() time.Time { return time.Unix(s.UpdatedAt, 0) }

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS saves (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		digest TEXT NOT NULL,
		tick INTEGER NOT NULL,
		wallet INTEGER NOT NULL,
		machines INTEGER NOT NULL,
		size INTEGER NOT NULL,
		body TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS game_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_saves_updated ON saves(updated_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveSlot writes body under name, replacing any previous save of that
// name. The slot keeps its ID across overwrites.
func (db *DB) SaveSlot(slot Slot, body string) (Slot, error) {
	tx, err := db.conn.Beginx()
	if err != nil {
		return Slot{}, err
	}
	defer tx.Rollback()

	var id string
	err = tx.Get(&id, "SELECT id FROM saves WHERE name = ?", slot.Name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.NewString()
	case err != nil:
		return Slot{}, err
	}

	slot.ID = id
	slot.Size = len(body)
	slot.UpdatedAt = time.Now().Unix()

	_, err = tx.Exec(`INSERT OR REPLACE INTO saves
		(id, name, digest, tick, wallet, machines, size, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		slot.ID, slot.Name, slot.Digest, slot.Tick, slot.Wallet,
		slot.Machines, slot.Size, body, slot.UpdatedAt,
	)
	if err != nil {
		return Slot{}, fmt.Errorf("insert save %q: %w", slot.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return Slot{}, err
	}

	slog.Info("save slot written", "name", slot.Name, "id", slot.ID, "bytes", slot.Size)
	return slot, nil
}

// LoadSlot returns the save body stored under name.
func (db *DB) LoadSlot(name string) (string, error) {
	var body string
	err := db.conn.Get(&body, "SELECT body FROM saves WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %q", ErrSlotNotFound, name)
	}
	return body, err
}

// ListSlots returns every slot, most recently written first.
func (db *DB) ListSlots() ([]Slot, error) {
	var slots []Slot
	err := db.conn.Select(&slots,
		`SELECT id, name, digest, tick, wallet, machines, size, updated_at
		 FROM saves ORDER BY updated_at DESC, name`)
	return slots, err
}

// DeleteSlot removes the slot stored under name.
func (db *DB) DeleteSlot(name string) error {
	res, err := db.conn.Exec("DELETE FROM saves WHERE name = ?", name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrSlotNotFound, name)
	}
	return nil
}

// HasSave reports whether any slot exists.
func (db *DB) HasSave() (bool, error) {
	var n int
	if err := db.conn.Get(&n, "SELECT COUNT(*) FROM saves"); err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveMeta stores a key-value pair in game metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO game_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM game_meta WHERE key = ?", key)
	return value, err
}
