package file

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
)

func TestSaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(t.TempDir())

	payload := []byte("stored bytes")
	path, err := s.Save(ctx, "uploads", "one.bin", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("saved path not on disk: %v", err)
	}

	rc, err := s.Load(ctx, "uploads", "one.bin")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("loaded %q, want %q", got, payload)
	}

	if err := s.Delete(ctx, "uploads", "one.bin"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Load(ctx, "uploads", "one.bin"); err == nil {
		t.Error("load after delete should fail")
	}
}

func TestLoadMissing(t *testing.T) {
	s := NewStorage(t.TempDir())
	if _, err := s.Load(context.Background(), "uploads", "nope.bin"); err == nil {
		t.Error("expected an error for a missing file")
	}
}
