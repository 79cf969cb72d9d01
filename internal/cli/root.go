package cli

import (
	"fmt"

	"github.com/aravindh-murugesan/stacksweep-go/internal/workflow"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// config merges flags, STACKSWEEP_* variables and the optional config file.
var config = viper.New()

var rootCommand = &cobra.Command{
	Use:     "stacksweep --prefix <prefix> [flags]",
	Version: StacksweepVersion,
	Short:   "StackSweep: bulk deletion of infrastructure stacks by name prefix",
	Long: `StackSweep lists the stacks of an OpenStack Heat project or an AWS CloudFormation
region, selects every stable stack whose name starts with the given prefix and deletes
them concurrently in batches.

Each deletion is retried on throttling with a configurable backoff strategy and then
awaited until the control plane reports the stack gone. Nothing is deleted before the
target list has been confirmed, unless --yes is given.

Author: Aravindh Murugesan`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Resolve configuration (flags > env > file > defaults)
		cfg, err := loadSweepConfig(config, cmd.Flags())
		if err != nil {
			return err
		}

		// 2. Announce what is about to happen
		mode := "Delete"
		if cfg.DryRun {
			mode = "Dry Run"
		}
		banner := fmt.Sprintf("StackSweep - %s\n\nProvider: %s\nPrefix: %s", mode, cfg.Provider, cfg.Prefix)
		fmt.Fprintln(cmd.OutOrStdout(), bannerStyle(cfg.DryRun).Render(banner))

		// 3. Run the sweep
		return workflow.RunStackSweepWorkflow(cfg)
	},
}

func Execute() error {
	return rootCommand.Execute()
}

func init() {
	rootCommand.AddGroup(&cobra.Group{ID: "stacksweep", Title: "StackSweep"})
	rootCommand.SetVersionTemplate("StackSweep version: {{.Version}}\n")

	registerSweepFlags(rootCommand.Flags())
	_ = rootCommand.MarkFlagRequired("prefix")
}
