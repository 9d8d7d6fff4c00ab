package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gooze.dev/pkg/testbench/internal/domain"
)

var mergePruneFlag bool

// mergeCmd represents the merge command.
var mergeCmd = newMergeCmd()

func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <stores...>",
		Short: "Merge the latest runs of several stores",
		Long: `Merge the latest run of every given report store into a new run of the
output store, e.g. to combine runs made on different machines.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.Merge(cmd.Context(), domain.MergeArgs{
				Output: viper.GetString(outputFlagName),
				Stores: args,
				Prune:  mergePruneFlag,
			})
		},
	}

	cmd.Flags().BoolVar(&mergePruneFlag, pruneFlagName, false, "mark merged programs whose coverage is dominated as not kept")

	return cmd
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
