package main

import (
	"github.com/spf13/cobra"

	"github.com/infohyun/aramcrm-sub001/internal/cli"
)

var graphCmd = &cobra.Command{
	Use:   "graph <workflow-id>",
	Short: "Export the workflow as a Mermaid diagram",
	Long:  `Outputs a Mermaid flowchart (graph TD) of the workflow. Nodes with validation problems are highlighted.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		selected, _ := cmd.Flags().GetString("selected")
		return cli.Graph(cmd.Context(), rt.Service, args[0], selected, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("selected", "", "Node ID to highlight")
}
