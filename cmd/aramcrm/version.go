package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	aramcrm "github.com/infohyun/aramcrm-sub001"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of aramcrm",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "aramcrm version %s\n", strings.TrimSpace(aramcrm.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
