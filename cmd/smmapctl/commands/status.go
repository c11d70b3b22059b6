package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/smmap/internal/bitindex"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report how much of a cache is populated",
	Long: `status opens the cache's index file read/write (as any cache process
would) and reports how many blocks are currently marked valid.

Examples:
  smmapctl status --data cache.data --index cache.index --size 1073741824`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	blockSize := persistentFlags.blockSize.Uint64()
	size := persistentFlags.size.Uint64()
	nblocks := (size + blockSize - 1) / blockSize

	idx, err := bitindex.Open(persistentFlags.indexLocation, nblocks)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	defer idx.Close()

	var valid uint64
	for b := uint64(0); b < nblocks; {
		_, end := idx.FindRun(b, nblocks, true)
		if end > b {
			valid += end - b
			b = end
			continue
		}
		_, end = idx.FindRun(b, nblocks, false)
		if end == b {
			end = b + 1
		}
		b = end
	}

	pct := 0.0
	if nblocks > 0 {
		pct = 100 * float64(valid) / float64(nblocks)
	}

	fmt.Printf("location:       %s\n", persistentFlags.location)
	fmt.Printf("index location: %s\n", persistentFlags.indexLocation)
	fmt.Printf("block size:     %d\n", blockSize)
	fmt.Printf("size:           %d\n", size)
	fmt.Printf("blocks valid:   %d / %d (%.1f%%)\n", valid, nblocks, pct)
	return nil
}
