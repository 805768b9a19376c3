package main

import (
	"github.com/spf13/cobra"

	"github.com/infohyun/aramcrm-sub001/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a workflow document for consistency",
	Long:  `Loads a JSON or YAML workflow and reports metadata errors, branches, merges, cycles and dangling edges.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.ValidateFile(args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
