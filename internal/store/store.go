// Copyright (c) 2013 Uwe Hoffmann. All rights reserved.

/*
Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions are
met:

   * Redistributions of source code must retain the above copyright
notice, this list of conditions and the following disclaimer.
   * Redistributions in binary form must reproduce the above
copyright notice, this list of conditions and the following disclaimer
in the documentation and/or other materials provided with the
distribution.
   * Neither the name of Google Inc. nor the names of its
contributors may be used to endorse or promote products derived from
this software without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
"AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
OWNER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
(INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.
*/

// Package store is the catalogue store: it persists DATs,
// versions, sets, entries, scanned files, matches, the rollup tree and
// checkpoints in a single SQLite database file, with forward-only
// migrations recorded in schema_versions.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/uwedeportivo/romcat/internal/romcaterr"
)

// Store wraps the single SQLite connection that backs the catalogue. All
// mutation is expected to come from one writer goroutine; Store
// itself does not serialize callers.
type Store struct {
	db *sql.DB
}

var migrations = []string{
	`CREATE TABLE dats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sha1 TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		dialect TEXT NOT NULL,
		path TEXT NOT NULL,
		size INTEGER NOT NULL,
		mod_time DATETIME,
		category TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE dat_versions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dat_id INTEGER NOT NULL REFERENCES dats(id),
		version TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL DEFAULT '',
		loaded_at DATETIME NOT NULL,
		entry_count INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX idx_dat_versions_dat_id ON dat_versions(dat_id);
	CREATE TABLE sets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		version_id INTEGER NOT NULL REFERENCES dat_versions(id),
		name TEXT NOT NULL
	);
	CREATE INDEX idx_sets_version_id ON sets(version_id);
	CREATE TABLE entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		set_id INTEGER NOT NULL REFERENCES sets(id),
		name TEXT NOT NULL,
		size INTEGER NOT NULL,
		crc32 TEXT NOT NULL DEFAULT '',
		md5 TEXT NOT NULL DEFAULT '',
		sha1 TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX idx_entries_crc32 ON entries(crc32);
	CREATE INDEX idx_entries_sha1 ON entries(sha1);
	CREATE INDEX idx_entries_md5 ON entries(md5);
	CREATE INDEX idx_entries_set_id ON entries(set_id);`,

	`CREATE TABLE files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		size INTEGER NOT NULL,
		mod_time DATETIME,
		crc32 TEXT NOT NULL DEFAULT '',
		md5 TEXT NOT NULL DEFAULT '',
		sha1 TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_id INTEGER NOT NULL UNIQUE REFERENCES files(id),
		entry_id INTEGER NOT NULL REFERENCES entries(id),
		name_correct INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX idx_matches_entry_id ON matches(entry_id);`,

	`CREATE TABLE directories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		parent_id INTEGER REFERENCES directories(id),
		file_count INTEGER NOT NULL DEFAULT 0,
		matched_count INTEGER NOT NULL DEFAULT 0,
		total_size INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX idx_directories_parent_id ON directories(parent_id);`,

	`CREATE TABLE checkpoints (
		job_kind TEXT NOT NULL,
		source_path TEXT NOT NULL,
		token TEXT NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (job_kind, source_path)
	);`,
}

// Open opens (creating if necessary) the SQLite database at path and brings
// its schema up to date with every not-yet-applied migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, romcaterr.StorageError.NewWith(err.Error())
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return romcaterr.StorageError.NewWith(err.Error())
	}

	var current int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_versions`)
	if err := row.Scan(&current); err != nil {
		return romcaterr.StorageError.NewWith(err.Error())
	}

	for i := current; i < len(migrations); i++ {
		version := i + 1
		tx, err := db.Begin()
		if err != nil {
			return romcaterr.StorageError.NewWith(err.Error())
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return romcaterr.StorageError.NewWith(fmt.Sprintf("migration %d: %v", version, err))
		}
		if _, err := tx.Exec(`INSERT INTO schema_versions (version) VALUES (?)`, version); err != nil {
			tx.Rollback()
			return romcaterr.StorageError.NewWith(err.Error())
		}
		if err := tx.Commit(); err != nil {
			return romcaterr.StorageError.NewWith(err.Error())
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
