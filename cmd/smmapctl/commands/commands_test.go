package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/smmap/internal/bytesize"
)

func resetPersistentFlags(t *testing.T, dir string) {
	t.Helper()
	persistentFlags.location = filepath.Join(dir, "cache.data")
	persistentFlags.indexLocation = filepath.Join(dir, "cache.index")
	persistentFlags.blockSize = 16
	persistentFlags.size = 64
	persistentFlags.logLevel = "ERROR"
}

func TestFillThenStatusReportsPopulatedBlocks(t *testing.T) {
	dir := t.TempDir()
	resetPersistentFlags(t, dir)

	source := filepath.Join(dir, "source.bin")
	if err := os.WriteFile(source, make([]byte, 64), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	fillFlags.source = source
	fillFlags.offset = 0

	if err := runFill(fillCmd, nil); err != nil {
		t.Fatalf("runFill: %v", err)
	}
	if err := runStatus(statusCmd, nil); err != nil {
		t.Fatalf("runStatus: %v", err)
	}
}

func TestVerifyReportsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	resetPersistentFlags(t, dir)

	if err := runVerify(verifyCmd, nil); err == nil {
		t.Fatal("expected runVerify to fail when no cache files exist yet")
	}
}

func TestVerifyPassesAfterFill(t *testing.T) {
	dir := t.TempDir()
	resetPersistentFlags(t, dir)

	source := filepath.Join(dir, "source.bin")
	if err := os.WriteFile(source, make([]byte, 64), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	fillFlags.source = source
	fillFlags.offset = 0

	if err := runFill(fillCmd, nil); err != nil {
		t.Fatalf("runFill: %v", err)
	}
	if err := runVerify(verifyCmd, nil); err != nil {
		t.Fatalf("runVerify after fill: %v", err)
	}
}

func TestByteSizeFlagParsesHumanSizes(t *testing.T) {
	var b bytesize.ByteSize
	if err := rootCmd.PersistentFlags().Lookup("block-size").Value.Set("2Mi"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	b = persistentFlags.blockSize
	if b != 2*bytesize.MiB {
		t.Fatalf("block-size after Set(\"2Mi\") = %d, want %d", b, 2*bytesize.MiB)
	}
}
