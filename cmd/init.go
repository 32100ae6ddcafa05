package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/vecsync/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize vecsync configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure vecsync and generates a .vecsync.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
