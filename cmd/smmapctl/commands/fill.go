package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/smmap"
)

var fillFlags struct {
	source string
	offset uint64
}

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Populate a cache from a local source file",
	Long: `fill reads a local file the caller already knows to be
authoritative and writes it into the cache at --offset, bypassing any
upstream fetcher. --offset must be block-aligned.

Examples:
  smmapctl fill --data cache.data --index cache.index --size 1073741824 \
      --source chunk.bin --offset 0`,
	RunE: runFill,
}

func init() {
	fillCmd.Flags().StringVar(&fillFlags.source, "source", "", "local file whose contents are written into the cache")
	fillCmd.Flags().Uint64Var(&fillFlags.offset, "offset", 0, "byte offset to write at, must be block-aligned")
	_ = fillCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(fillCmd)
}

func runFill(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(fillFlags.source)
	if err != nil {
		return fmt.Errorf("fill: read %s: %w", fillFlags.source, err)
	}

	c, err := smmap.New(smmap.Options{
		BlockSize:     persistentFlags.blockSize.Uint64(),
		Size:          persistentFlags.size.Uint64(),
		Location:      persistentFlags.location,
		IndexLocation: persistentFlags.indexLocation,
	})
	if err != nil {
		return fmt.Errorf("fill: open cache: %w", err)
	}
	defer c.Close()

	if err := c.Fill(fillFlags.offset, data); err != nil {
		return fmt.Errorf("fill: %w", err)
	}

	fmt.Printf("filled %d bytes at offset %d\n", len(data), fillFlags.offset)
	return nil
}
