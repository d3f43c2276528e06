package store

import (
	"database/sql"
	"time"

	"github.com/uwedeportivo/romcat/internal/catalog"
	"github.com/uwedeportivo/romcat/internal/romcaterr"
)

// Stats is the aggregate catalogue summary behind `romcat stats` (the
// supplemented aggregate-query feature).
type Stats struct {
	DatCount     int64
	EntryCount   int64
	FileCount    int64
	MatchedCount int64
	TotalBytes   int64
}

// Stats computes the whole-catalogue summary with one COUNT/SUM query per
// table.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	row := s.db.QueryRow(`SELECT COUNT(*) FROM dats`)
	if err := row.Scan(&st.DatCount); err != nil {
		return Stats{}, romcaterr.StorageError.NewWith(err.Error())
	}
	row = s.db.QueryRow(`SELECT COUNT(*) FROM entries`)
	if err := row.Scan(&st.EntryCount); err != nil {
		return Stats{}, romcaterr.StorageError.NewWith(err.Error())
	}
	row = s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM files`)
	if err := row.Scan(&st.FileCount, &st.TotalBytes); err != nil {
		return Stats{}, romcaterr.StorageError.NewWith(err.Error())
	}
	row = s.db.QueryRow(`SELECT COUNT(*) FROM matches`)
	if err := row.Scan(&st.MatchedCount); err != nil {
		return Stats{}, romcaterr.StorageError.NewWith(err.Error())
	}
	return st, nil
}

// CategoryCount is one row of CategoriesWithDats.
type CategoryCount struct {
	Category string
	DatCount int64
}

// CategoriesWithDats groups every loaded dat by its category path, the
// navigation behind the supplemented TOSEC category-tree browsing feature.
func (s *Store) CategoriesWithDats() ([]CategoryCount, error) {
	rows, err := s.db.Query(`SELECT category, COUNT(*) FROM dats GROUP BY category ORDER BY category`)
	if err != nil {
		return nil, romcaterr.StorageError.NewWith(err.Error())
	}
	defer rows.Close()

	var out []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.DatCount); err != nil {
			return nil, romcaterr.StorageError.NewWith(err.Error())
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Directory looks up one rollup-tree node by its exact path.
func (s *Store) Directory(path string) (catalog.Directory, bool, error) {
	var d catalog.Directory
	var parentID sql.NullInt64
	row := s.db.QueryRow(
		`SELECT id, path, name, parent_id, file_count, matched_count, total_size FROM directories WHERE path = ?`, path)
	err := row.Scan(&d.ID, &d.Path, &d.Name, &parentID, &d.FileCount, &d.MatchedCount, &d.TotalSize)
	if err == sql.ErrNoRows {
		return catalog.Directory{}, false, nil
	}
	if err != nil {
		return catalog.Directory{}, false, romcaterr.StorageError.NewWith(err.Error())
	}
	if parentID.Valid {
		d.ParentID = &parentID.Int64
	}
	return d, true, nil
}

// Children lists the immediate subdirectories of the directory with id parentID.
func (s *Store) Children(parentID int64) ([]catalog.Directory, error) {
	rows, err := s.db.Query(
		`SELECT id, path, name, parent_id, file_count, matched_count, total_size
		 FROM directories WHERE parent_id = ? ORDER BY name`, parentID)
	if err != nil {
		return nil, romcaterr.StorageError.NewWith(err.Error())
	}
	defer rows.Close()

	var out []catalog.Directory
	for rows.Next() {
		var d catalog.Directory
		var pid sql.NullInt64
		if err := rows.Scan(&d.ID, &d.Path, &d.Name, &pid, &d.FileCount, &d.MatchedCount, &d.TotalSize); err != nil {
			return nil, romcaterr.StorageError.NewWith(err.Error())
		}
		if pid.Valid {
			d.ParentID = &pid.Int64
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SetCheckpoint records (or overwrites) the resumption token for a
// long-running ingest of sourcePath, so it can resume after a restart.
func (s *Store) SetCheckpoint(jobKind, sourcePath, token string) error {
	_, err := s.db.Exec(
		`INSERT INTO checkpoints (job_kind, source_path, token, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(job_kind, source_path) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at`,
		jobKind, sourcePath, token, time.Now())
	if err != nil {
		return romcaterr.StorageError.NewWith(err.Error())
	}
	return nil
}

// Checkpoint retrieves a previously stored resumption token, if any.
func (s *Store) Checkpoint(jobKind, sourcePath string) (catalog.Checkpoint, bool, error) {
	var c catalog.Checkpoint
	row := s.db.QueryRow(
		`SELECT job_kind, source_path, token, updated_at FROM checkpoints WHERE job_kind = ? AND source_path = ?`,
		jobKind, sourcePath)
	err := row.Scan(&c.JobKind, &c.SourcePath, &c.Token, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return catalog.Checkpoint{}, false, nil
	}
	if err != nil {
		return catalog.Checkpoint{}, false, romcaterr.StorageError.NewWith(err.Error())
	}
	return c, true, nil
}

// ClearCheckpoint removes a checkpoint once its job has finished cleanly.
func (s *Store) ClearCheckpoint(jobKind, sourcePath string) error {
	_, err := s.db.Exec(`DELETE FROM checkpoints WHERE job_kind = ? AND source_path = ?`, jobKind, sourcePath)
	if err != nil {
		return romcaterr.StorageError.NewWith(err.Error())
	}
	return nil
}
