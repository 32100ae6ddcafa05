package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "vecsync",
	Short: "Semantic search over named document collections",
	Long: `Vecsync keeps named collections of text documents synchronized with a
derived vector index and answers queries by meaning rather than keyword.
It detects which files actually changed, runs at most one synchronization
per collection at a time, and recovers automatically when a sync dies
without cleaning up.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".vecsync.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
