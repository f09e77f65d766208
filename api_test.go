package graver_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gravertext/graver"
)

func TestFileRoundTrip(t *testing.T) {
	reg := newTestRegistry(t)
	dir := t.TempDir()
	for _, name := range []string{"doc.graver", "doc.graver.gz"} {
		path := filepath.Join(dir, name)
		if err := reg.WriteToFile(newTestDrawing(), path); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		got, err := graver.FromFile[*Drawing](reg, path)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got.Walls[0].Doors[0].Width != 36 {
			t.Errorf("%s: round trip lost data: %+v", name, got)
		}
	}
}

func TestGzipFilesAreCompressed(t *testing.T) {
	reg := newTestRegistry(t)
	path := filepath.Join(t.TempDir(), "doc.graver.gz")
	if err := reg.WriteToFile(newTestDrawing(), path); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) < 2 || raw[0] != 0x1f || raw[1] != 0x8b {
		t.Fatalf("missing gzip magic: % x", raw[:2])
	}
}

func TestFromFileMissing(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := graver.FromFile[*Wall](reg, filepath.Join(t.TempDir(), "nope.graver"))
	it := firstIssue(t, err)
	if it.Code != graver.CodeIO {
		t.Errorf("code = %s", it.Code)
	}
}
