package hashengine

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestHashKnownVectors(t *testing.T) {
	triple, err := Hash(strings.NewReader("abc"), nil)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if triple.Size != 3 {
		t.Errorf("Size = %d, want 3", triple.Size)
	}
	if triple.Crc32 != "352441c2" {
		t.Errorf("Crc32 = %s, want 352441c2", triple.Crc32)
	}
	if triple.Md5 != "900150983cd24fb0d6963f7d28e17f72" {
		t.Errorf("Md5 = %s, want 900150983cd24fb0d6963f7d28e17f72", triple.Md5)
	}
	if triple.Sha1 != "a9993e364706816aba3e25717850c26c9cd0d89d" {
		t.Errorf("Sha1 = %s, want a9993e364706816aba3e25717850c26c9cd0d89d", triple.Sha1)
	}
}

func TestHashEmpty(t *testing.T) {
	triple, err := Hash(bytes.NewReader(nil), nil)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if triple.Size != 0 {
		t.Errorf("Size = %d, want 0", triple.Size)
	}
	if triple.Sha1 != "da39a3ee5e6b4b0d3255bfef95601890afd80709" {
		t.Errorf("Sha1 = %s, want the empty-string sha1", triple.Sha1)
	}
}

func TestHashChunkCallback(t *testing.T) {
	data := bytes.Repeat([]byte{'x'}, bufSize+17)
	var seen []int64
	_, err := Hash(bytes.NewReader(data), func(n int64) { seen = append(seen, n) })
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("got %d chunk callbacks, want 2", len(seen))
	}
	if seen[0] != bufSize || seen[1] != int64(len(data)) {
		t.Errorf("chunk callbacks = %v, want [%d %d]", seen, bufSize, len(data))
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestHashReadError(t *testing.T) {
	_, err := Hash(errReader{}, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
}
