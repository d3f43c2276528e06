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

// Package rollup maintains the directory-rollup tree: per-directory
// file/matched/size counters that stay consistent as files and matches are
// created or removed. Every exported function that touches the tree takes
// the caller's *sql.Tx, so
// counter updates are always serialised with the file/match row they reflect
// inside the writer thread's transaction.
package rollup

import (
	"database/sql"
	"path/filepath"
)

// CommonRoot returns the longest common ancestor directory of pa and pb.
// The conventional rollup root is the common root of every scanned path.
func CommonRoot(pa, pb string) string {
	if pa == "" || pb == "" {
		return ""
	}

	pac := filepath.Clean(pa)
	pbc := filepath.Clean(pb)

	va := filepath.VolumeName(pac)
	vb := filepath.VolumeName(pbc)
	if va != vb {
		return ""
	}

	sa := pac[len(va):]
	sb := pbc[len(vb):]
	na, nb := len(sa), len(sb)

	var cursor, lastSep int
	lastSep = -1

	for cursor < na && cursor < nb && sa[cursor] == sb[cursor] {
		if sa[cursor] == filepath.Separator {
			lastSep = cursor
		}
		cursor++
	}

	if cursor == na && na == nb {
		return pac
	}
	if cursor == na && na < nb && sb[na] == filepath.Separator {
		return pac
	}
	if cursor == nb && nb < na && sa[nb] == filepath.Separator {
		return pbc
	}
	if lastSep == -1 {
		return va + string(filepath.Separator)
	}

	res := pac[0 : len(va)+lastSep]
	if res == "" && filepath.Separator == '/' {
		return "/"
	}
	return res
}

// ancestorChain lists dir and every ancestor of dir up to and including
// root, ordered from dir to root.
func ancestorChain(dir, root string) []string {
	dir = filepath.Clean(dir)
	root = filepath.Clean(root)

	var chain []string
	for {
		chain = append(chain, dir)
		if dir == root {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Walked past the filesystem root without reaching the
			// configured root; stop to avoid an unbounded chain.
			break
		}
		dir = parent
	}
	return chain
}

// ensureDirectory returns the id of the directory row for path, creating it
// (and any ancestor between path and root that is still missing) lazily.
func ensureDirectory(tx *sql.Tx, path, root string) (int64, error) {
	var id int64
	err := tx.QueryRow(`SELECT id FROM directories WHERE path = ?`, path).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	var parentID sql.NullInt64
	if path != root {
		parentPath := filepath.Dir(path)
		pid, err := ensureDirectory(tx, parentPath, root)
		if err != nil {
			return 0, err
		}
		parentID = sql.NullInt64{Int64: pid, Valid: true}
	}

	res, err := tx.Exec(
		`INSERT INTO directories (path, name, parent_id, file_count, matched_count, total_size) VALUES (?, ?, ?, 0, 0, 0)`,
		path, filepath.Base(path), parentID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// bump adds (fileDelta, matchedDelta, sizeDelta) to every ancestor of dir up
// to and including root, creating rows lazily as needed.
func bump(tx *sql.Tx, dir, root string, fileDelta, matchedDelta, sizeDelta int64) error {
	for _, d := range ancestorChain(dir, root) {
		id, err := ensureDirectory(tx, d, root)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			`UPDATE directories SET file_count = file_count + ?, matched_count = matched_count + ?, total_size = total_size + ? WHERE id = ?`,
			fileDelta, matchedDelta, sizeDelta, id); err != nil {
			return err
		}
	}
	return nil
}

// OnFileInsert increments file_count and total_size on every ancestor of
// the file's directory, up to root.
func OnFileInsert(tx *sql.Tx, filePath, root string, size int64) error {
	return bump(tx, filepath.Dir(filePath), root, 1, 0, size)
}

// OnFileDelete is the symmetric decrement of OnFileInsert.
func OnFileDelete(tx *sql.Tx, filePath, root string, size int64) error {
	return bump(tx, filepath.Dir(filePath), root, -1, 0, -size)
}

// OnMatchInsert increments matched_count on every ancestor of the file's
// directory, up to root.
func OnMatchInsert(tx *sql.Tx, filePath, root string) error {
	return bump(tx, filepath.Dir(filePath), root, 0, 1, 0)
}

// OnMatchDelete is the symmetric decrement of OnMatchInsert.
func OnMatchDelete(tx *sql.Tx, filePath, root string) error {
	return bump(tx, filepath.Dir(filePath), root, 0, -1, 0)
}

// Rebuild discards every directory row and recomputes the tree from the
// files and matches tables in a single transaction. This is the
// authoritative reconciliation path after crashes or cancelled scans.
//
// The root of the rebuilt tree must match the root the live incremental path
// (OnFileInsert et al.) was called with, so Rebuild reads it off the existing
// root directory row (the one with no parent) before wiping the table. Only
// when no directory row survives — nothing was ever scanned into this store —
// does it fall back to the longest common ancestor of the scanned files.
func Rebuild(tx *sql.Tx) error {
	var root string
	err := tx.QueryRow(`SELECT path FROM directories WHERE parent_id IS NULL LIMIT 1`).Scan(&root)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	haveRoot := err == nil

	if _, err := tx.Exec(`DELETE FROM directories`); err != nil {
		return err
	}

	rows, err := tx.Query(`SELECT path, size FROM files`)
	if err != nil {
		return err
	}

	type fileRow struct {
		path string
		size int64
	}
	var files []fileRow
	for rows.Next() {
		var fr fileRow
		if err := rows.Scan(&fr.path, &fr.size); err != nil {
			rows.Close()
			return err
		}
		files = append(files, fr)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	if len(files) == 0 {
		return nil
	}

	if !haveRoot {
		root = filepath.Dir(files[0].path)
		for _, fr := range files[1:] {
			root = CommonRoot(root, filepath.Dir(fr.path))
		}
	}

	for _, fr := range files {
		if err := bump(tx, filepath.Dir(fr.path), root, 1, 0, fr.size); err != nil {
			return err
		}
	}

	matchRows, err := tx.Query(`
		SELECT files.path FROM matches
		JOIN files ON files.id = matches.file_id
	`)
	if err != nil {
		return err
	}
	defer matchRows.Close()

	for matchRows.Next() {
		var path string
		if err := matchRows.Scan(&path); err != nil {
			return err
		}
		if err := bump(tx, filepath.Dir(path), root, 0, 1, 0); err != nil {
			return err
		}
	}
	return matchRows.Err()
}
