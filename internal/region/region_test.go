package region

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")

	r, err := Open(path, 1024)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	payload := []byte("hello region")
	if err := r.WriteAt(100, payload); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	if err := r.Flush(100, uint64(len(payload))); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	out, err := r.ReadAt(100, uint64(len(payload)))
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("ReadAt = %q, want %q", out, payload)
	}
}

func TestWriteAtOutOfBoundsFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")

	r, err := Open(path, 16)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if err := r.WriteAt(10, []byte("0123456789")); err == nil {
		t.Fatal("expected out-of-bounds WriteAt to fail")
	}
}

func TestReadAtOutOfBoundsFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")

	r, err := Open(path, 16)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if _, err := r.ReadAt(10, 10); err == nil {
		t.Fatal("expected out-of-bounds ReadAt to fail")
	}
}

func TestReopenPreservesData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")

	r, err := Open(path, 64)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	payload := []byte("persisted")
	if err := r.WriteAt(0, payload); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	if err := r.Flush(0, uint64(len(payload))); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r2, err := Open(path, 64)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer r2.Close()

	out, err := r2.ReadAt(0, uint64(len(payload)))
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("data did not survive close/reopen: got %q, want %q", out, payload)
	}
}

func TestSizeZeroStillMaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")

	r, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open with size 0: %v", err)
	}
	defer r.Close()

	if r.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", r.Size())
	}
}
