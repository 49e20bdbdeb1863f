package store

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"gitlab.com/tozd/go/errors"
)

// Store is the SQLite data access layer for a runtime snapshot: images,
// classes, protocols, categories and their members, plus a catalog of C
// record layouts.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, errors.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions and ad hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return errors.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
-- Runtime tables

CREATE TABLE IF NOT EXISTS images (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS classes (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL UNIQUE,
  superclass_name TEXT,
  image_id        INTEGER REFERENCES images(id)
);

CREATE TABLE IF NOT EXISTS protocols (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL UNIQUE,
  image_id        INTEGER REFERENCES images(id)
);

CREATE TABLE IF NOT EXISTS categories (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL,
  class_name      TEXT NOT NULL,
  image_id        INTEGER REFERENCES images(id),
  UNIQUE(class_name, name)
);

-- Member tables. owner_kind is one of class, protocol, category; rows keep
-- declaration order by id.

CREATE TABLE IF NOT EXISTS conformances (
  id              INTEGER PRIMARY KEY,
  owner_kind      TEXT NOT NULL,
  owner_id        INTEGER NOT NULL,
  protocol_name   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ivars (
  id              INTEGER PRIMARY KEY,
  class_id        INTEGER NOT NULL REFERENCES classes(id),
  name            TEXT NOT NULL,
  type_encoding   TEXT NOT NULL,
  byte_offset     INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS methods (
  id              INTEGER PRIMARY KEY,
  owner_kind      TEXT NOT NULL,
  owner_id        INTEGER NOT NULL,
  name            TEXT NOT NULL,
  type_encoding   TEXT NOT NULL,
  is_class        BOOLEAN DEFAULT FALSE,
  is_optional     BOOLEAN DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS properties (
  id              INTEGER PRIMARY KEY,
  owner_kind      TEXT NOT NULL,
  owner_id        INTEGER NOT NULL,
  name            TEXT NOT NULL,
  attributes      TEXT NOT NULL,
  is_class        BOOLEAN DEFAULT FALSE,
  is_optional     BOOLEAN DEFAULT FALSE
);

-- Record catalog harvested from C headers

CREATE TABLE IF NOT EXISTS records (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL UNIQUE,
  kind            TEXT NOT NULL,
  encoding        TEXT NOT NULL,
  source          TEXT
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT
);

-- Indexes

CREATE INDEX IF NOT EXISTS idx_classes_image ON classes(image_id);
CREATE INDEX IF NOT EXISTS idx_classes_superclass ON classes(superclass_name);
CREATE INDEX IF NOT EXISTS idx_protocols_image ON protocols(image_id);
CREATE INDEX IF NOT EXISTS idx_categories_class ON categories(class_name);
CREATE INDEX IF NOT EXISTS idx_conformances_owner ON conformances(owner_kind, owner_id);
CREATE INDEX IF NOT EXISTS idx_conformances_protocol ON conformances(protocol_name);
CREATE INDEX IF NOT EXISTS idx_ivars_class ON ivars(class_id);
CREATE INDEX IF NOT EXISTS idx_methods_owner ON methods(owner_kind, owner_id);
CREATE INDEX IF NOT EXISTS idx_properties_owner ON properties(owner_kind, owner_id);
`

// deleteMembers removes the member rows owned by (kind, ids) inside tx.
func deleteMembers(tx *sql.Tx, kind string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := placeholderList(len(ids))
	args := append([]any{kind}, int64sToArgs(ids)...)
	for _, q := range []string{
		"DELETE FROM conformances WHERE owner_kind = ? AND owner_id IN (" + placeholders + ")",
		"DELETE FROM methods WHERE owner_kind = ? AND owner_id IN (" + placeholders + ")",
		"DELETE FROM properties WHERE owner_kind = ? AND owner_id IN (" + placeholders + ")",
	} {
		if _, err := tx.Exec(q, args...); err != nil {
			return errors.Errorf("delete %s members: %w", kind, err)
		}
	}
	return nil
}

// DeleteClass transactionally removes a class, its ivars and members, and
// every category attached to it. Reports whether the class existed.
func (s *Store) DeleteClass(name string) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, errors.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var classID int64
	err = tx.QueryRow("SELECT id FROM classes WHERE name = ?", name).Scan(&classID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Errorf("delete class: lookup: %w", err)
	}

	categoryIDs, err := queryIDs(tx, "SELECT id FROM categories WHERE class_name = ?", name)
	if err != nil {
		return false, errors.Errorf("delete class: categories: %w", err)
	}
	if err := deleteMembers(tx, OwnerCategory, categoryIDs); err != nil {
		return false, err
	}
	if err := deleteMembers(tx, OwnerClass, []int64{classID}); err != nil {
		return false, err
	}
	for _, q := range []string{
		"DELETE FROM categories WHERE class_name = ?",
		"DELETE FROM ivars WHERE class_id = (SELECT id FROM classes WHERE name = ?)",
		"DELETE FROM classes WHERE name = ?",
	} {
		if _, err := tx.Exec(q, name); err != nil {
			return false, errors.Errorf("delete class: %w", err)
		}
	}
	return true, tx.Commit()
}

// DeleteProtocol transactionally removes a protocol and its members.
// Conformances naming the protocol are left in place, as the runtime does.
func (s *Store) DeleteProtocol(name string) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, errors.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var protoID int64
	err = tx.QueryRow("SELECT id FROM protocols WHERE name = ?", name).Scan(&protoID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Errorf("delete protocol: lookup: %w", err)
	}
	if err := deleteMembers(tx, OwnerProtocol, []int64{protoID}); err != nil {
		return false, err
	}
	if _, err := tx.Exec("DELETE FROM protocols WHERE id = ?", protoID); err != nil {
		return false, errors.Errorf("delete protocol: %w", err)
	}
	return true, tx.Commit()
}

// Reset deletes every row except metadata, leaving the schema in place.
func (s *Store) Reset() error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	for _, table := range []string{
		"conformances", "ivars", "methods", "properties",
		"categories", "classes", "protocols", "records", "images",
	} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return errors.Errorf("reset %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func queryIDs(tx *sql.Tx, query string, args ...any) ([]int64, error) {
	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
