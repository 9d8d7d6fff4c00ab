package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gooze.dev/pkg/testbench/internal/domain"
)

var runParallelFlag int
var runTargetsFlag []string
var runReloadFlag bool
var runPruneFlag bool
var runSpillDirFlag string
var runTimeoutFlag time.Duration

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [programs...]",
		Short: "Run test programs and analyze mutants",
		Long:  runLongDescription,
		PreRun: func(cmd *cobra.Command, _ []string) {
			bindFlagToConfig(cmd.Flags().Lookup(targetFlagName), runTargetsKey)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.Run(cmd.Context(), domain.RunArgs{
				Paths:    parsePaths(args),
				Output:   viper.GetString(outputFlagName),
				Targets:  viper.GetStringSlice(runTargetsKey),
				Parallel: viper.GetInt(runParallelKey),
				Reload:   viper.GetBool(runReloadKey),
				Prune:    viper.GetBool(runPruneKey),
				SpillDir: viper.GetString(runSpillDirKey),
				Timeout:  viper.GetDuration(runTimeoutKey),
			})
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&runParallelFlag, parallelFlagName, "p", viper.GetInt(runParallelKey), "number of mutants run at once")
	bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), runParallelKey)

	cmd.Flags().BoolVar(&runReloadFlag, reloadFlagName, viper.GetBool(runReloadKey), "run every mutant in a fresh loading context")
	bindFlagToConfig(cmd.Flags().Lookup(reloadFlagName), runReloadKey)

	cmd.Flags().BoolVar(&runPruneFlag, pruneFlagName, viper.GetBool(runPruneKey), "mark programs whose coverage is dominated as not kept")
	bindFlagToConfig(cmd.Flags().Lookup(pruneFlagName), runPruneKey)

	cmd.Flags().StringVar(&runSpillDirFlag, spillDirFlagName, viper.GetString(runSpillDirKey), "directory for temporary outcome files")
	bindFlagToConfig(cmd.Flags().Lookup(spillDirFlagName), runSpillDirKey)

	cmd.Flags().DurationVar(&runTimeoutFlag, timeoutFlagName, viper.GetDuration(runTimeoutKey), "time budget of every program run outside mutant runs (0 disables it)")
	bindFlagToConfig(cmd.Flags().Lookup(timeoutFlagName), runTimeoutKey)

	addTargetFlag(cmd, &runTargetsFlag)
}

// addTargetFlag registers --target. It is bound to run.targets when the
// command runs, since run and list share the key.
func addTargetFlag(cmd *cobra.Command, targets *[]string) {
	cmd.Flags().StringArrayVarP(targets, targetFlagName, "t", nil, "unit to analyze (can be repeated, default: every unit a program uses)")
}
