// Package commands implements the smmapctl CLI: local inspection and
// maintenance of a cache's on-disk files, without needing the process that
// populated them.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/smmap/internal/bytesize"
	"github.com/marmos91/smmap/internal/logger"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var persistentFlags struct {
	location      string
	indexLocation string
	blockSize     bytesize.ByteSize
	size          bytesize.ByteSize
	logLevel      string
}

var rootCmd = &cobra.Command{
	Use:   "smmapctl",
	Short: "Inspect and maintain smmap cache files",
	Long: `smmapctl operates directly on the data and index files of an smmap
cache: it does not need the process that populated them, and is safe to
run against a cache another process has open.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Init(logger.Config{Level: persistentFlags.logLevel, Format: "text", Output: "stderr"})
	},
}

func init() {
	persistentFlags.blockSize = 4 * bytesize.MiB

	rootCmd.PersistentFlags().StringVar(&persistentFlags.location, "data", "", "path to the cache data file")
	rootCmd.PersistentFlags().StringVar(&persistentFlags.indexLocation, "index", "", "path to the cache index file")
	rootCmd.PersistentFlags().Var(&persistentFlags.blockSize, "block-size", "cache block size, e.g. 4Mi, 512KB, or a plain byte count")
	rootCmd.PersistentFlags().Var(&persistentFlags.size, "size", "total addressable size, e.g. 1Gi, 500MB, or a plain byte count")
	rootCmd.PersistentFlags().StringVar(&persistentFlags.logLevel, "log-level", "INFO", "log level (DEBUG, INFO, WARN, ERROR)")

	_ = rootCmd.MarkPersistentFlagRequired("data")
	_ = rootCmd.MarkPersistentFlagRequired("index")
	_ = rootCmd.MarkPersistentFlagRequired("size")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command, for testing.
func GetRootCmd() *cobra.Command {
	return rootCmd
}
