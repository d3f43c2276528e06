package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/uwedeportivo/romcat/internal/catalog"
	"github.com/uwedeportivo/romcat/internal/datparser"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "romcat.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testDat(sha1 string) catalog.Dat {
	return catalog.Dat{
		Sha1:    sha1,
		Name:    "Test Dat",
		Dialect: catalog.DialectLogiqx,
		Path:    "/dats/test.dat",
		Size:    1024,
		ModTime: time.Now(),
	}
}

func testParsed() datparser.Parsed {
	return datparser.Parsed{
		Header: datparser.Header{Name: "Test Dat", Version: "1.0", Date: "2024-01-01"},
		Dialect: catalog.DialectLogiqx,
		Sets: []datparser.SetEntries{
			{
				Set: catalog.Set{Name: "Game One"},
				Entries: []catalog.Entry{
					{Name: "game1.rom", Size: 100, Crc32: "aabbccdd", Sha1: "1111111111111111111111111111111111111111"},
				},
			},
		},
	}
}

func TestUpsertDatThenDuplicate(t *testing.T) {
	s := openTestStore(t)

	res, err := s.UpsertDat(testDat("deadbeef"), testParsed())
	if err != nil {
		t.Fatalf("UpsertDat: %v", err)
	}
	if res.Outcome != Inserted {
		t.Fatalf("expected Inserted, got %v", res.Outcome)
	}

	res2, err := s.UpsertDat(testDat("deadbeef"), testParsed())
	if err != nil {
		t.Fatalf("UpsertDat duplicate: %v", err)
	}
	if res2.Outcome != SkippedDuplicate {
		t.Fatalf("expected SkippedDuplicate, got %v", res2.Outcome)
	}
	if res2.DatID != res.DatID {
		t.Fatalf("duplicate should resolve to same dat id: %d != %d", res2.DatID, res.DatID)
	}

	dats, err := s.ListDats()
	if err != nil {
		t.Fatalf("ListDats: %v", err)
	}
	if len(dats) != 1 {
		t.Fatalf("expected 1 dat after duplicate load, got %d", len(dats))
	}
}

func TestIterEntries(t *testing.T) {
	s := openTestStore(t)

	res, err := s.UpsertDat(testDat("abc123"), testParsed())
	if err != nil {
		t.Fatalf("UpsertDat: %v", err)
	}

	it, err := s.IterEntries(res.VersionID)
	if err != nil {
		t.Fatalf("IterEntries: %v", err)
	}
	defer it.Close()

	var names []string
	for it.Next() {
		names = append(names, it.Entry().Name)
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iteration error: %v", err)
	}
	if len(names) != 1 || names[0] != "game1.rom" {
		t.Fatalf("unexpected entries: %v", names)
	}
}

func TestApplyScannedFileMatchAndRescan(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.UpsertDat(testDat("dat1"), testParsed()); err != nil {
		t.Fatalf("UpsertDat: %v", err)
	}

	root := "/roms"
	f := catalog.File{
		Path:  "/roms/sub/game1.rom",
		Name:  "game1.rom",
		Size:  100,
		Crc32: "aabbccdd",
		Sha1:  "1111111111111111111111111111111111111111",
	}

	result, err := s.ApplyScannedFile(f, root)
	if err != nil {
		t.Fatalf("ApplyScannedFile: %v", err)
	}
	if !result.Changed || !result.Matched || !result.NameCorrect {
		t.Fatalf("expected new matched file with correct name, got %+v", result)
	}

	dir, ok, err := s.Directory(root)
	if err != nil {
		t.Fatalf("Directory: %v", err)
	}
	if !ok {
		t.Fatalf("expected root directory to exist after scan")
	}
	if dir.FileCount != 1 || dir.MatchedCount != 1 || dir.TotalSize != 100 {
		t.Fatalf("unexpected rollup counters: %+v", dir)
	}

	// Rescanning the same, unchanged file must not touch the match table.
	result2, err := s.ApplyScannedFile(f, root)
	if err != nil {
		t.Fatalf("ApplyScannedFile rescan: %v", err)
	}
	if result2.Changed {
		t.Fatalf("expected unchanged rescan to report Changed=false")
	}
	if !result2.Matched {
		t.Fatalf("expected unchanged rescan to keep its match")
	}

	// A content change invalidates the previous match and recomputes it.
	f.Size = 999
	f.Crc32 = "00000000"
	f.Sha1 = ""
	result3, err := s.ApplyScannedFile(f, root)
	if err != nil {
		t.Fatalf("ApplyScannedFile changed: %v", err)
	}
	if !result3.Changed || result3.Matched {
		t.Fatalf("expected changed file with no catalogue entry to be unmatched, got %+v", result3)
	}

	dir, _, err = s.Directory(root)
	if err != nil {
		t.Fatalf("Directory: %v", err)
	}
	if dir.FileCount != 1 || dir.MatchedCount != 0 || dir.TotalSize != 999 {
		t.Fatalf("unexpected rollup counters after change: %+v", dir)
	}
}

func TestRebuildMatchesIncrementalCounters(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.UpsertDat(testDat("dat1"), testParsed()); err != nil {
		t.Fatalf("UpsertDat: %v", err)
	}

	root := "/roms"
	f := catalog.File{
		Path:  "/roms/sub/game1.rom",
		Name:  "game1.rom",
		Size:  100,
		Crc32: "aabbccdd",
		Sha1:  "1111111111111111111111111111111111111111",
	}
	if _, err := s.ApplyScannedFile(f, root); err != nil {
		t.Fatalf("ApplyScannedFile: %v", err)
	}

	before, _, err := s.Directory(root)
	if err != nil {
		t.Fatalf("Directory: %v", err)
	}

	if err := s.Rebuild(); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	after, ok, err := s.Directory(root)
	if err != nil {
		t.Fatalf("Directory: %v", err)
	}
	if !ok {
		t.Fatalf("expected root directory to survive rebuild")
	}
	if before.FileCount != after.FileCount || before.MatchedCount != after.MatchedCount || before.TotalSize != after.TotalSize {
		t.Fatalf("rebuild changed counters: before=%+v after=%+v", before, after)
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if _, _, err := s.Checkpoint("scan", "/roms"); err != nil {
		t.Fatalf("Checkpoint miss should not error: %v", err)
	}

	if err := s.SetCheckpoint("scan", "/roms", "token-1"); err != nil {
		t.Fatalf("SetCheckpoint: %v", err)
	}
	cp, ok, err := s.Checkpoint("scan", "/roms")
	if err != nil || !ok {
		t.Fatalf("Checkpoint: ok=%v err=%v", ok, err)
	}
	if cp.Token != "token-1" {
		t.Fatalf("expected token-1, got %s", cp.Token)
	}

	if err := s.SetCheckpoint("scan", "/roms", "token-2"); err != nil {
		t.Fatalf("SetCheckpoint overwrite: %v", err)
	}
	cp, _, err = s.Checkpoint("scan", "/roms")
	if err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
	if cp.Token != "token-2" {
		t.Fatalf("expected token-2 after overwrite, got %s", cp.Token)
	}

	if err := s.ClearCheckpoint("scan", "/roms"); err != nil {
		t.Fatalf("ClearCheckpoint: %v", err)
	}
	_, ok, err = s.Checkpoint("scan", "/roms")
	if err != nil {
		t.Fatalf("Checkpoint after clear: %v", err)
	}
	if ok {
		t.Fatalf("expected checkpoint to be gone after clear")
	}
}

func TestStats(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.UpsertDat(testDat("dat1"), testParsed()); err != nil {
		t.Fatalf("UpsertDat: %v", err)
	}
	f := catalog.File{
		Path: "/roms/game1.rom", Name: "game1.rom", Size: 100,
		Crc32: "aabbccdd", Sha1: "1111111111111111111111111111111111111111",
	}
	if _, err := s.ApplyScannedFile(f, "/roms"); err != nil {
		t.Fatalf("ApplyScannedFile: %v", err)
	}

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.DatCount != 1 || st.EntryCount != 1 || st.FileCount != 1 || st.MatchedCount != 1 || st.TotalBytes != 100 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}
