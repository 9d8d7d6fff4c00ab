package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gooze.dev/pkg/testbench/internal/domain"
)

var viewRunFlag string

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View a stored run",
		Long:  "View the coverage and mutation reports of a stored run, the latest one by default.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return workflow.View(cmd.Context(), domain.ViewArgs{
				Output: viper.GetString(outputFlagName),
				RunID:  viewRunFlag,
			})
		},
	}

	cmd.Flags().StringVar(&viewRunFlag, runIDFlagName, "", "id of the run to view")

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
