package assets

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSPIRVRoundsWords(t *testing.T) {
	words := []uint32{0x07230203, 0x00010000, 42, 0xdeadbeef}
	raw := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(raw[i*4:], w)
	}

	got, err := LoadSPIRV(writeFile(t, "ok.spv", raw))
	if err != nil {
		t.Fatalf("LoadSPIRV: %v", err)
	}
	if len(got) != len(words) {
		t.Fatalf("got %d words, want %d", len(got), len(words))
	}
	for i := range words {
		if got[i] != words[i] {
			t.Errorf("word %d = %#x, want %#x", i, got[i], words[i])
		}
	}
}

func TestLoadSPIRVRejectsTruncated(t *testing.T) {
	if _, err := LoadSPIRV(writeFile(t, "bad.spv", []byte{1, 2, 3, 4, 5})); err == nil {
		t.Fatal("expected an error for a 5-byte blob")
	}
}

func TestLoadSPIRVRejectsEmpty(t *testing.T) {
	if _, err := LoadSPIRV(writeFile(t, "empty.spv", nil)); err == nil {
		t.Fatal("expected an error for an empty file")
	}
}

func TestLoadSPIRVMissingFile(t *testing.T) {
	if _, err := LoadSPIRV(filepath.Join(t.TempDir(), "nope.spv")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
