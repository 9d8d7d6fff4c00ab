// Package cmd provides the root command and CLI setup for testbench.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"gooze.dev/pkg/testbench/internal/adapter"
	"gooze.dev/pkg/testbench/internal/controller"
	"gooze.dev/pkg/testbench/internal/domain"
	"gooze.dev/pkg/testbench/internal/loader"
	m "gooze.dev/pkg/testbench/internal/model"
)

// sourceTimeout bounds a single unit fetch from a code server.
const sourceTimeout = 30 * time.Second

var programStore adapter.ProgramStore
var executor *adapter.ExprExecutor
var workflow domain.Workflow
var ui controller.UI

// outputFlag is a root-level flag shared by commands that read/write runs.
var outputFlag string

var verboseFlag bool
var logFileFlag string
var sourceDirFlag string
var sourceURLFlag string
var sourceKeyFlag string

func init() {
	configureRootFlags(rootCmd)

	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	programStore = adapter.NewYAMLProgramStore(afero.NewOsFs())
	executor = adapter.NewExprExecutor()
	workflow = domain.NewWorkflow(
		programStore,
		openReportStore,
		ui,
		newLoader,
		executor,
		executor,
	)
}

func openReportStore(path string) (adapter.ReportStore, error) {
	store, err := adapter.NewSQLiteReportStore(path)
	if err != nil {
		return nil, err
	}

	return store, nil
}

// codeSource returns the configured code source: a code server when
// source.url is set, the source.dir directory otherwise.
func codeSource() (loader.CodeSource, error) {
	if url := viper.GetString(sourceURLKey); url != "" {
		key := viper.GetString(sourceKeyKey)
		if key == "" {
			return nil, fmt.Errorf("%s requires %s", sourceURLKey, sourceKeyKey)
		}

		return adapter.NewHTTPCodeSource(url, key, &http.Client{Timeout: sourceTimeout}), nil
	}

	dir := viper.GetString(sourceDirKey)
	if dir == "" {
		return nil, errors.New("no code source configured")
	}

	return adapter.NewFSCodeSource(afero.NewOsFs(), dir), nil
}

// newLoader creates a loading context over the configured code source.
func newLoader() (*loader.Context, error) {
	source, err := codeSource()
	if err != nil {
		return nil, err
	}

	policy := loader.DefaultPolicy().With(
		viper.GetStringSlice(hostPrefixesKey),
		viper.GetStringSlice(remotePrefixesKey),
	)

	return loader.New(source, loader.WithPolicy(policy), loader.WithHost(adapter.NewBuiltinHostRegistry())), nil
}

const programPathsHelp = `Programs are YAML files; a directory argument loads every *.yaml and
*.yml file below it. Without arguments the configured program paths are used.`

const rootLongDescription = `Testbench executes test programs against units loaded in isolated
loading contexts, collects their coverage and measures how many mutants
of every unit the programs kill.

` + programPathsHelp

const runLongDescription = `Run test programs, analyze the mutants of their target units and store
the coverage and mutation reports.

` + programPathsHelp

const listLongDescription = `List the target units of test programs and their number of mutants.

` + programPathsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "testbench",
		Short: "Test program execution and mutation analysis",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringVarP(&outputFlag, outputFlagName, "o", viper.GetString(outputFlagName), "report store database")
	bindFlagToConfig(flags.Lookup(outputFlagName), outputFlagName)

	flags.BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(flags.Lookup(verboseFlagName), logVerboseKey)

	flags.StringVar(&logFileFlag, logFileFlagName, viper.GetString(logFilenameKey), "log file")
	bindFlagToConfig(flags.Lookup(logFileFlagName), logFilenameKey)

	flags.StringVar(&sourceDirFlag, sourceDirFlagName, viper.GetString(sourceDirKey), "directory holding unit manifests")
	bindFlagToConfig(flags.Lookup(sourceDirFlagName), sourceDirKey)

	flags.StringVar(&sourceURLFlag, sourceURLFlagName, viper.GetString(sourceURLKey), "code server base URL, overrides the source directory")
	bindFlagToConfig(flags.Lookup(sourceURLFlagName), sourceURLKey)

	flags.StringVar(&sourceKeyFlag, sourceKeyFlagName, viper.GetString(sourceKeyKey), "code source key on the code server")
	bindFlagToConfig(flags.Lookup(sourceKeyFlagName), sourceKeyKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// An interrupt cancels the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}

// parsePaths converts arguments to program paths, falling back to the
// configured ones.
func parsePaths(args []string) []m.Path {
	if len(args) == 0 {
		args = viper.GetStringSlice(programsKey)
	}

	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
