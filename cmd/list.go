package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gooze.dev/pkg/testbench/internal/domain"
)

var listTargetsFlag []string

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [programs...]",
		Short: "List target units and their mutant counts",
		Long:  listLongDescription,
		PreRun: func(cmd *cobra.Command, _ []string) {
			bindFlagToConfig(cmd.Flags().Lookup(targetFlagName), runTargetsKey)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.List(cmd.Context(), domain.ListArgs{
				Paths:   parsePaths(args),
				Targets: viper.GetStringSlice(runTargetsKey),
			})
		},
	}

	addTargetFlag(cmd, &listTargetsFlag)

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
