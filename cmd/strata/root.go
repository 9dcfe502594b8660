package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Scene streaming toolkit",
	Long: `Strata inspects scene documents and drives the streaming core headlessly:
parse a document, walk its scene graph, and simulate a moving observer to
exercise load scheduling, caching, and unload hysteresis without a GPU.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(streamCmd)
}

// newLogger builds a development logger at the level the --verbose flag asks
// for. CLI output itself goes to stdout; the logger carries diagnostics.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}
