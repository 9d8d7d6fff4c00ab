package cmd

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/testbench/internal/domain"
	domainmocks "gooze.dev/pkg/testbench/internal/domain/mocks"
	m "gooze.dev/pkg/testbench/internal/model"
)

// withWorkflow swaps the global workflow for a mock during the test.
func withWorkflow(t *testing.T) *domainmocks.MockWorkflow {
	t.Helper()

	mockWorkflow := domainmocks.NewMockWorkflow(t)

	originalWorkflow := workflow
	workflow = mockWorkflow

	t.Cleanup(func() { workflow = originalWorkflow })

	return mockWorkflow
}

// executeCmd runs sub under a fresh root command, logging to a temp file.
func executeCmd(t *testing.T, sub *cobra.Command, args ...string) error {
	t.Helper()

	cmd := newRootCmd()
	cmd.AddCommand(sub)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--log-file", filepath.Join(t.TempDir(), "testbench.log")}, args...))

	return cmd.Execute()
}

func TestRunCmd_Defaults(t *testing.T) {
	mockWorkflow := withWorkflow(t)

	mockWorkflow.On("Run", mock.Anything, mock.MatchedBy(func(args domain.RunArgs) bool {
		return len(args.Paths) == 1 &&
			args.Paths[0] == m.Path(defaultProgramsDir) &&
			args.Output == defaultOutput &&
			args.Parallel == 1 &&
			len(args.Targets) == 0 &&
			!args.Reload &&
			!args.Prune &&
			args.Timeout == defaultRunTimeout
	})).Return(nil)

	require.NoError(t, executeCmd(t, newRunCmd(), "run"))
}

func TestRunCmd_Flags(t *testing.T) {
	mockWorkflow := withWorkflow(t)
	spill := t.TempDir()

	mockWorkflow.On("Run", mock.Anything, mock.MatchedBy(func(args domain.RunArgs) bool {
		return args.Parallel == 2 &&
			args.Reload &&
			args.Prune &&
			args.SpillDir == spill &&
			args.Timeout == 250*time.Millisecond &&
			assert.ObjectsAreEqual([]string{"app.Account", "app.Ledger"}, args.Targets)
	})).Return(nil)

	err := executeCmd(t, newRunCmd(), "run", "--parallel", "2", "--reload", "--prune", "-t", "app.Account", "-t", "app.Ledger", "--spill-dir", spill, "--timeout", "250ms")
	require.NoError(t, err)
}

func TestRunCmd_MultiplePaths(t *testing.T) {
	mockWorkflow := withWorkflow(t)

	mockWorkflow.On("Run", mock.Anything, mock.MatchedBy(func(args domain.RunArgs) bool {
		return assert.ObjectsAreEqual([]m.Path{"./smoke", "./regression.yaml", "./nightly"}, args.Paths)
	})).Return(nil)

	require.NoError(t, executeCmd(t, newRunCmd(), "run", "./smoke", "./regression.yaml", "./nightly"))
}

func TestRunCmd_RootOutputFlagIsPassedThrough(t *testing.T) {
	mockWorkflow := withWorkflow(t)

	mockWorkflow.On("Run", mock.Anything, mock.MatchedBy(func(args domain.RunArgs) bool {
		return args.Output == "./runs.db"
	})).Return(nil)

	require.NoError(t, executeCmd(t, newRunCmd(), "--output", "./runs.db", "run"))
}

func TestRunCmd_ConfigValues(t *testing.T) {
	mockWorkflow := withWorkflow(t)

	setConfig(t, runPruneKey, true)
	setConfig(t, programsKey, []string{"suite-a", "suite-b"})

	mockWorkflow.On("Run", mock.Anything, mock.MatchedBy(func(args domain.RunArgs) bool {
		return args.Prune && assert.ObjectsAreEqual([]m.Path{"suite-a", "suite-b"}, args.Paths)
	})).Return(nil)

	require.NoError(t, executeCmd(t, newRunCmd(), "run"))
}

func TestRunCmd_WorkflowError(t *testing.T) {
	mockWorkflow := withWorkflow(t)

	mockWorkflow.On("Run", mock.Anything, mock.Anything).Return(domain.ErrNoPrograms)

	err := executeCmd(t, newRunCmd(), "run")
	require.ErrorIs(t, err, domain.ErrNoPrograms)
}

func TestRunCmd_InvalidParallel(t *testing.T) {
	withWorkflow(t)

	err := executeCmd(t, newRunCmd(), "run", "--parallel", "many")
	require.ErrorContains(t, err, "invalid argument")
}

func TestNewRunCmd(t *testing.T) {
	cmd := newRunCmd()

	assert.Equal(t, "run [programs...]", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.Equal(t, runLongDescription, cmd.Long)

	for _, name := range []string{parallelFlagName, targetFlagName, reloadFlagName, pruneFlagName, spillDirFlagName} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}
