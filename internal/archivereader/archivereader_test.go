package archivereader

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeTestZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip.Create(%s): %v", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("zip write(%s): %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip.Close: %v", err)
	}
}

func TestDetectKindByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pack.zip")
	writeTestZip(t, path, map[string]string{"a.rom": "aaa"})

	kind, err := DetectKind(path)
	if err != nil {
		t.Fatalf("DetectKind: %v", err)
	}
	if kind != KindZip {
		t.Errorf("kind = %v, want KindZip", kind)
	}
}

func TestMembersSkipsDirectoryEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pack.zip")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	zw := zip.NewWriter(f)
	if _, err := zw.Create("sub/"); err != nil {
		t.Fatalf("zip.Create(dir): %v", err)
	}
	w, err := zw.Create("sub/a.rom")
	if err != nil {
		t.Fatalf("zip.Create(file): %v", err)
	}
	if _, err := w.Write([]byte("aaa")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip.Close: %v", err)
	}
	f.Close()

	members, closeFn, err := Members(path)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	defer closeFn()

	if len(members) != 1 {
		t.Fatalf("got %d members, want 1 (directory entry skipped)", len(members))
	}
	if members[0].Name != "sub/a.rom" {
		t.Errorf("Name = %q, want sub/a.rom", members[0].Name)
	}
}

func TestMembersReadsContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pack.zip")
	writeTestZip(t, path, map[string]string{
		"a.rom": "hello",
		"b.rom": "world!",
	})

	members, closeFn, err := Members(path)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	defer closeFn()

	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}

	byName := make(map[string]Member)
	for _, m := range members {
		byName[m.Name] = m
	}

	rc, err := byName["a.rom"].Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q, want hello", data)
	}
}

func TestDetectKindUnrecognised(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-an-archive.bin")
	if err := os.WriteFile(path, []byte("plain text, not an archive"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := DetectKind(path); err == nil {
		t.Fatal("expected an error for an unrecognised container")
	}
}
