package scanner

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/uwedeportivo/romcat/internal/catalog"
	"github.com/uwedeportivo/romcat/internal/datparser"
	"github.com/uwedeportivo/romcat/internal/eventbus"
	"github.com/uwedeportivo/romcat/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "romcat.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// knownRomCrc32/Sha1 are the CRC32/SHA1 of the literal byte string "hello rom".
const (
	knownRomContent = "hello rom"
	knownRomCrc32   = "97dae96c"
	knownRomSha1    = "c8bf3af7582a7b92f3bbde8e345e56de4e809e68"
)

func seedCatalogue(t *testing.T, st *store.Store, romName string) {
	t.Helper()
	parsed := datparser.Parsed{
		Header:  datparser.Header{Name: "Test Dat", Version: "1.0"},
		Dialect: catalog.DialectLogiqx,
		Sets: []datparser.SetEntries{
			{
				Set: catalog.Set{Name: "Game One"},
				Entries: []catalog.Entry{
					{Name: romName, Size: uint64(len(knownRomContent)), Crc32: knownRomCrc32, Sha1: knownRomSha1},
				},
			},
		},
	}
	if _, err := st.UpsertDat(catalog.Dat{Sha1: "datsha1", Name: "Test Dat", Dialect: catalog.DialectLogiqx}, parsed); err != nil {
		t.Fatalf("UpsertDat: %v", err)
	}
}

func drainBus(bus *eventbus.Bus) <-chan eventbus.Event {
	return bus.Subscribe()
}

func TestScanMatchesKnownFile(t *testing.T) {
	st := openTestStore(t)
	seedCatalogue(t, st, "game1.rom")

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "game1.rom"), []byte(knownRomContent), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	bus := eventbus.New()
	events := drainBus(bus)
	defer bus.Close()

	sc := New(st, bus, 2)
	summary, err := sc.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if summary.ProcessedFiles != 1 {
		t.Fatalf("expected 1 processed file, got %d", summary.ProcessedFiles)
	}

	st2, err := st.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st2.MatchedCount != 1 {
		t.Fatalf("expected 1 match, got %d", st2.MatchedCount)
	}

	sawCompleted := false
	sawSummary := false
	for {
		select {
		case ev := <-events:
			switch ev.(type) {
			case eventbus.FileCompleted:
				sawCompleted = true
			case eventbus.Summary:
				sawSummary = true
			}
		case <-time.After(50 * time.Millisecond):
			if !sawCompleted || !sawSummary {
				t.Fatalf("missing events: completed=%v summary=%v", sawCompleted, sawSummary)
			}
			return
		}
	}
}

func TestScanUnmatchedFileStillCounted(t *testing.T) {
	st := openTestStore(t)
	seedCatalogue(t, st, "game1.rom")

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "unknown.rom"), []byte("not in any dat"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	bus := eventbus.New()
	defer bus.Close()

	sc := New(st, bus, 1)
	summary, err := sc.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if summary.ProcessedFiles != 1 {
		t.Fatalf("expected 1 processed file, got %d", summary.ProcessedFiles)
	}

	stats, err := st.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.FileCount != 1 || stats.MatchedCount != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestScanArchiveMember(t *testing.T) {
	st := openTestStore(t)
	seedCatalogue(t, st, "inner.rom")

	root := t.TempDir()
	zipPath := filepath.Join(root, "collection.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("inner.rom")
	if err != nil {
		t.Fatalf("zip Create: %v", err)
	}
	if _, err := w.Write([]byte(knownRomContent)); err != nil {
		t.Fatalf("zip Write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	bus := eventbus.New()
	defer bus.Close()

	sc := New(st, bus, 2)
	summary, err := sc.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if summary.ProcessedFiles != 1 {
		t.Fatalf("expected 1 processed archive member, got %d", summary.ProcessedFiles)
	}

	stats, err := st.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.MatchedCount != 1 {
		t.Fatalf("expected the archive member to match, got %+v", stats)
	}

	expectedPath := catalog.CanonicalArchiveMemberPath(zipPath, "inner.rom")
	dir, ok, err := st.Directory(filepath.Dir(zipPath))
	if err != nil {
		t.Fatalf("Directory: %v", err)
	}
	if !ok || dir.MatchedCount != 1 {
		t.Fatalf("expected containing directory rollup to count the archive member match; dir=%+v ok=%v path=%s", dir, ok, expectedPath)
	}
}

func TestScanResumesAfterCheckpoint(t *testing.T) {
	st := openTestStore(t)
	seedCatalogue(t, st, "game1.rom")

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.rom"), []byte("aaa"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "b.rom"), []byte("bbb"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	root = filepath.Clean(root)
	if err := st.SetCheckpoint(checkpointKind, root, filepath.Join(root, "a.rom")); err != nil {
		t.Fatalf("SetCheckpoint: %v", err)
	}

	bus := eventbus.New()
	defer bus.Close()

	sc := New(st, bus, 1)
	summary, err := sc.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if summary.DiscoveredFiles != 1 {
		t.Fatalf("expected resume to skip a.rom and discover only b.rom, got %d", summary.DiscoveredFiles)
	}

	if _, ok, err := st.Checkpoint(checkpointKind, root); err != nil || ok {
		t.Fatalf("expected checkpoint cleared after clean finish: ok=%v err=%v", ok, err)
	}
}
