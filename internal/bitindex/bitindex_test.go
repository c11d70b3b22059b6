package bitindex

import (
	"path/filepath"
	"testing"
)

func TestOpenCreatesZeroFilled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx")

	idx, err := Open(path, 20)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	for b := uint64(0); b < 20; b++ {
		if idx.IsValid(b) {
			t.Fatalf("block %d valid on fresh index", b)
		}
	}
}

func TestMarkValidIsIdempotentAndIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx")

	idx, err := Open(path, 20)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	idx.MarkValid(5)
	idx.MarkValid(5)

	if !idx.IsValid(5) {
		t.Fatal("block 5 should be valid")
	}
	if idx.IsValid(4) || idx.IsValid(6) {
		t.Fatal("marking block 5 valid leaked into neighboring blocks")
	}
}

func TestFindRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx")

	idx, err := Open(path, 10)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	for _, b := range []uint64{2, 3, 4, 7} {
		idx.MarkValid(b)
	}

	start, end := idx.FindRun(2, 10, true)
	if start != 2 || end != 5 {
		t.Fatalf("FindRun(2,10,true) = (%d,%d), want (2,5)", start, end)
	}

	start, end = idx.FindRun(5, 10, false)
	if start != 5 || end != 7 {
		t.Fatalf("FindRun(5,10,false) = (%d,%d), want (5,7)", start, end)
	}

	start, end = idx.FindRun(0, 10, true)
	if start != end {
		t.Fatalf("FindRun(0,10,true) over an invalid block should be empty, got (%d,%d)", start, end)
	}
}

func TestReopenPreservesValidity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx")

	idx, err := Open(path, 10)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	idx.MarkValid(3)
	if err := idx.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx2, err := Open(path, 10)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx2.Close()

	if !idx2.IsValid(3) {
		t.Fatal("validity bit did not survive close/reopen")
	}
	if idx2.IsValid(4) {
		t.Fatal("unrelated block came back valid")
	}
}

func TestConcurrentMarkValidSameByte(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx")

	idx, err := Open(path, 8)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	done := make(chan struct{})
	for b := uint64(0); b < 8; b++ {
		b := b
		go func() {
			idx.MarkValid(b)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	for b := uint64(0); b < 8; b++ {
		if !idx.IsValid(b) {
			t.Fatalf("block %d not valid after concurrent MarkValid", b)
		}
	}
}
