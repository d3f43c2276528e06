package store

import (
	"database/sql"
	"time"

	"github.com/uwedeportivo/romcat/internal/catalog"
	"github.com/uwedeportivo/romcat/internal/resolver"
	"github.com/uwedeportivo/romcat/internal/rollup"
	"github.com/uwedeportivo/romcat/internal/romcaterr"
)

// ScanResult reports what ApplyScannedFile did with one observed file.
type ScanResult struct {
	FileID      int64
	Changed     bool // false when the path's prior row already matched f exactly
	Matched     bool
	EntryID     int64
	NameCorrect bool
}

// ApplyScannedFile is the single entry point the scanner's writer goroutine
// calls for every hashed file. It upserts the file row, invalidates and
// recomputes its match, and keeps the rollup tree consistent, all inside
// one transaction.
//
// root is the scan root this file was discovered under; it must be the same
// value across an entire scan so the rollup tree grows a single, consistent
// root directory (see rollup.Rebuild, which recovers this value on restart).
func (s *Store) ApplyScannedFile(f catalog.File, root string) (ScanResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return ScanResult{}, romcaterr.StorageError.NewWith(err.Error())
	}
	defer tx.Rollback()

	result, err := applyScannedFile(tx, f, root)
	if err != nil {
		return ScanResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return ScanResult{}, romcaterr.StorageError.NewWith(err.Error())
	}
	return result, nil
}

type existingFile struct {
	id      int64
	size    uint64
	crc32   string
	md5     string
	sha1    string
	modTime time.Time
}

func applyScannedFile(tx *sql.Tx, f catalog.File, root string) (ScanResult, error) {
	var ex existingFile
	var modTime sql.NullTime
	err := tx.QueryRow(
		`SELECT id, size, crc32, md5, sha1, mod_time FROM files WHERE path = ?`, f.Path,
	).Scan(&ex.id, &ex.size, &ex.crc32, &ex.md5, &ex.sha1, &modTime)

	switch {
	case err == nil:
		ex.modTime = modTime.Time
	case err == sql.ErrNoRows:
		ex.id = 0
	default:
		return ScanResult{}, romcaterr.StorageError.NewWith(err.Error())
	}

	unchanged := ex.id != 0 &&
		ex.size == f.Size && ex.crc32 == f.Crc32 && ex.md5 == f.Md5 && ex.sha1 == f.Sha1 &&
		ex.modTime.Equal(f.ModTime)

	if unchanged {
		existingMatch, matched, err := currentMatch(tx, ex.id)
		if err != nil {
			return ScanResult{}, err
		}
		return ScanResult{
			FileID:      ex.id,
			Changed:     false,
			Matched:     matched,
			EntryID:     existingMatch.EntryID,
			NameCorrect: existingMatch.NameCorrect,
		}, nil
	}

	var fileID int64
	if ex.id != 0 {
		if err := invalidateMatch(tx, ex.id, root); err != nil {
			return ScanResult{}, err
		}
		if err := rollup.OnFileDelete(tx, f.Path, root, int64(ex.size)); err != nil {
			return ScanResult{}, romcaterr.StorageError.NewWith(err.Error())
		}
		if _, err := tx.Exec(
			`UPDATE files SET name = ?, size = ?, mod_time = ?, crc32 = ?, md5 = ?, sha1 = ? WHERE id = ?`,
			f.Name, f.Size, f.ModTime, f.Crc32, f.Md5, f.Sha1, ex.id); err != nil {
			return ScanResult{}, romcaterr.StorageError.NewWith(err.Error())
		}
		fileID = ex.id
	} else {
		res, err := tx.Exec(
			`INSERT INTO files (path, name, size, mod_time, crc32, md5, sha1) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			f.Path, f.Name, f.Size, f.ModTime, f.Crc32, f.Md5, f.Sha1)
		if err != nil {
			return ScanResult{}, romcaterr.StorageError.NewWith(err.Error())
		}
		fileID, err = res.LastInsertId()
		if err != nil {
			return ScanResult{}, romcaterr.StorageError.NewWith(err.Error())
		}
	}

	if err := rollup.OnFileInsert(tx, f.Path, root, int64(f.Size)); err != nil {
		return ScanResult{}, romcaterr.StorageError.NewWith(err.Error())
	}

	f.ID = fileID
	entryID, nameCorrect, ok, err := resolver.Resolve(tx, f)
	if err != nil {
		return ScanResult{}, romcaterr.StorageError.NewWith(err.Error())
	}

	result := ScanResult{FileID: fileID, Changed: true}
	if ok {
		if _, err := tx.Exec(
			`INSERT INTO matches (file_id, entry_id, name_correct, created_at) VALUES (?, ?, ?, ?)`,
			fileID, entryID, nameCorrect, time.Now()); err != nil {
			return ScanResult{}, romcaterr.StorageError.NewWith(err.Error())
		}
		if err := rollup.OnMatchInsert(tx, f.Path, root); err != nil {
			return ScanResult{}, romcaterr.StorageError.NewWith(err.Error())
		}
		result.Matched = true
		result.EntryID = entryID
		result.NameCorrect = nameCorrect
	}

	return result, nil
}

type matchInfo struct {
	EntryID     int64
	NameCorrect bool
}

func currentMatch(tx *sql.Tx, fileID int64) (matchInfo, bool, error) {
	var m matchInfo
	var nc int
	err := tx.QueryRow(`SELECT entry_id, name_correct FROM matches WHERE file_id = ?`, fileID).Scan(&m.EntryID, &nc)
	if err == sql.ErrNoRows {
		return matchInfo{}, false, nil
	}
	if err != nil {
		return matchInfo{}, false, romcaterr.StorageError.NewWith(err.Error())
	}
	m.NameCorrect = nc != 0
	return m, true, nil
}

// invalidateMatch deletes fileID's match row, if any, and decrements the
// rollup tree's matched_count to match.
func invalidateMatch(tx *sql.Tx, fileID int64, root string) error {
	var path string
	err := tx.QueryRow(
		`SELECT files.path FROM matches JOIN files ON files.id = matches.file_id WHERE matches.file_id = ?`,
		fileID).Scan(&path)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return romcaterr.StorageError.NewWith(err.Error())
	}

	if _, err := tx.Exec(`DELETE FROM matches WHERE file_id = ?`, fileID); err != nil {
		return romcaterr.StorageError.NewWith(err.Error())
	}
	if err := rollup.OnMatchDelete(tx, path, root); err != nil {
		return romcaterr.StorageError.NewWith(err.Error())
	}
	return nil
}

// Rebuild discards and recomputes the entire rollup tree from the files and
// matches tables, the crash-recovery reconciliation path.
func (s *Store) Rebuild() error {
	tx, err := s.db.Begin()
	if err != nil {
		return romcaterr.StorageError.NewWith(err.Error())
	}
	defer tx.Rollback()

	if err := rollup.Rebuild(tx); err != nil {
		return romcaterr.StorageError.NewWith(err.Error())
	}
	if err := tx.Commit(); err != nil {
		return romcaterr.StorageError.NewWith(err.Error())
	}
	return nil
}
