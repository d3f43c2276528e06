package store

import (
	"database/sql"
	"time"

	"github.com/uwedeportivo/romcat/internal/catalog"
	"github.com/uwedeportivo/romcat/internal/datparser"
	"github.com/uwedeportivo/romcat/internal/romcaterr"
)

// UpsertOutcome reports what UpsertDat actually did.
type UpsertOutcome int

const (
	Inserted UpsertOutcome = iota
	SkippedDuplicate
)

// UpsertResult is the result of UpsertDat.
type UpsertResult struct {
	Outcome   UpsertOutcome
	DatID     int64
	VersionID int64
}

// UpsertDat loads a freshly parsed DAT into the catalogue as a new version.
// Loading a DAT that duplicates an existing sha1 is a no-op, reported as
// skipped. dat.Sha1 must already be the hash of the DAT's raw bytes;
// dat.ID is ignored, and the dat's id is returned in UpsertResult.DatID.
func (s *Store) UpsertDat(dat catalog.Dat, parsed datparser.Parsed) (UpsertResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return UpsertResult{}, romcaterr.StorageError.NewWith(err.Error())
	}
	defer tx.Rollback()

	var existingID int64
	err = tx.QueryRow(`SELECT id FROM dats WHERE sha1 = ?`, dat.Sha1).Scan(&existingID)
	switch {
	case err == nil:
		return UpsertResult{Outcome: SkippedDuplicate, DatID: existingID}, nil
	case err != sql.ErrNoRows:
		return UpsertResult{}, romcaterr.StorageError.NewWith(err.Error())
	}

	res, err := tx.Exec(
		`INSERT INTO dats (sha1, name, dialect, path, size, mod_time, category) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		dat.Sha1, dat.Name, string(dat.Dialect), dat.Path, dat.Size, dat.ModTime, dat.Category)
	if err != nil {
		return UpsertResult{}, romcaterr.StorageError.NewWith(err.Error())
	}
	datID, err := res.LastInsertId()
	if err != nil {
		return UpsertResult{}, romcaterr.StorageError.NewWith(err.Error())
	}

	entryCount := 0
	for _, se := range parsed.Sets {
		entryCount += len(se.Entries)
	}

	res, err = tx.Exec(
		`INSERT INTO dat_versions (dat_id, version, date, loaded_at, entry_count) VALUES (?, ?, ?, ?, ?)`,
		datID, parsed.Header.Version, parsed.Header.Date, time.Now(), entryCount)
	if err != nil {
		return UpsertResult{}, romcaterr.StorageError.NewWith(err.Error())
	}
	versionID, err := res.LastInsertId()
	if err != nil {
		return UpsertResult{}, romcaterr.StorageError.NewWith(err.Error())
	}

	for _, se := range parsed.Sets {
		setRes, err := tx.Exec(`INSERT INTO sets (version_id, name) VALUES (?, ?)`, versionID, se.Set.Name)
		if err != nil {
			return UpsertResult{}, romcaterr.StorageError.NewWith(err.Error())
		}
		setID, err := setRes.LastInsertId()
		if err != nil {
			return UpsertResult{}, romcaterr.StorageError.NewWith(err.Error())
		}

		for _, e := range se.Entries {
			if _, err := tx.Exec(
				`INSERT INTO entries (set_id, name, size, crc32, md5, sha1) VALUES (?, ?, ?, ?, ?, ?)`,
				setID, e.Name, e.Size, e.Crc32, e.Md5, e.Sha1); err != nil {
				return UpsertResult{}, romcaterr.StorageError.NewWith(err.Error())
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return UpsertResult{}, romcaterr.StorageError.NewWith(err.Error())
	}

	return UpsertResult{Outcome: Inserted, DatID: datID, VersionID: versionID}, nil
}

// ListDats returns every dat in the catalogue, newest first.
func (s *Store) ListDats() ([]catalog.Dat, error) {
	rows, err := s.db.Query(`SELECT id, sha1, name, dialect, path, size, mod_time, category FROM dats ORDER BY id DESC`)
	if err != nil {
		return nil, romcaterr.StorageError.NewWith(err.Error())
	}
	defer rows.Close()

	var out []catalog.Dat
	for rows.Next() {
		var d catalog.Dat
		var dialect string
		var modTime sql.NullTime
		if err := rows.Scan(&d.ID, &d.Sha1, &d.Name, &dialect, &d.Path, &d.Size, &modTime, &d.Category); err != nil {
			return nil, romcaterr.StorageError.NewWith(err.Error())
		}
		d.Dialect = catalog.Dialect(dialect)
		if modTime.Valid {
			d.ModTime = modTime.Time
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// LatestVersion returns the most recently loaded version of datID.
func (s *Store) LatestVersion(datID int64) (catalog.Version, error) {
	var v catalog.Version
	row := s.db.QueryRow(
		`SELECT id, dat_id, version, date, loaded_at, entry_count FROM dat_versions
		 WHERE dat_id = ? ORDER BY loaded_at DESC, id DESC LIMIT 1`, datID)
	err := row.Scan(&v.ID, &v.DatID, &v.Version, &v.Date, &v.LoadedAt, &v.EntryCount)
	if err == sql.ErrNoRows {
		return catalog.Version{}, romcaterr.StorageError.NewWith("no version for dat")
	}
	if err != nil {
		return catalog.Version{}, romcaterr.StorageError.NewWith(err.Error())
	}
	return v, nil
}

// EntryIter is a forward-only cursor over a version's entries.
type EntryIter struct {
	rows *sql.Rows
	cur  catalog.Entry
	err  error
}

// IterEntries returns a lazily-fetched cursor over every entry belonging to
// versionID, ordered by set then entry id.
func (s *Store) IterEntries(versionID int64) (*EntryIter, error) {
	rows, err := s.db.Query(
		`SELECT entries.id, entries.set_id, entries.name, entries.size, entries.crc32, entries.md5, entries.sha1
		 FROM entries JOIN sets ON sets.id = entries.set_id
		 WHERE sets.version_id = ? ORDER BY sets.id, entries.id`, versionID)
	if err != nil {
		return nil, romcaterr.StorageError.NewWith(err.Error())
	}
	return &EntryIter{rows: rows}, nil
}

// Next advances the cursor, returning false at end of stream or on error.
func (it *EntryIter) Next() bool {
	if !it.rows.Next() {
		return false
	}
	it.err = it.rows.Scan(&it.cur.ID, &it.cur.SetID, &it.cur.Name, &it.cur.Size, &it.cur.Crc32, &it.cur.Md5, &it.cur.Sha1)
	return it.err == nil
}

// Entry returns the entry at the cursor's current position.
func (it *EntryIter) Entry() catalog.Entry { return it.cur }

// Err returns the first error encountered while iterating, if any.
func (it *EntryIter) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.rows.Err()
}

// Close releases the cursor's underlying rows.
func (it *EntryIter) Close() error { return it.rows.Close() }
