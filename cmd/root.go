package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "stock-fundamentals",
	Short:        "Quarterly fundamentals pipeline: fetch, normalize and store company financial data",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(freshnessCmd)
	rootCmd.AddCommand(migrateCmd)
}
