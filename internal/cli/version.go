package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X".
var (
	StacksweepVersion = "dev"
	StacksweepCommit  = "none"
	StacksweepDate    = "unknown"
)

var versionCommand = &cobra.Command{
	Use:     "version",
	GroupID: "stacksweep",
	Short:   "Print version information",
	Long:    "Display version, commit hash, build date, and other build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "StackSweep version: %s\n", StacksweepVersion)
		fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", StacksweepCommit)
		fmt.Fprintf(cmd.OutOrStdout(), "Built: %s\n", StacksweepDate)
	},
}

func init() {
	rootCommand.AddCommand(versionCommand)
}
