// Package controller provides the user interfaces that report program runs
// and mutation analysis results.
package controller

import (
	"context"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"gooze.dev/pkg/testbench/internal/adapter"
	"gooze.dev/pkg/testbench/internal/coverage"
	m "gooze.dev/pkg/testbench/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeList StartMode = iota
	ModeRun
	ModeView
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode     StartMode
	programs int
}

// WithListMode sets the UI to mutant listing mode.
func WithListMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeList
	}
}

// WithRunMode sets the UI to run mode for the given number of programs.
func WithRunMode(programs int) StartOption {
	return func(c *StartConfig) {
		c.mode = ModeRun
		c.programs = programs
	}
}

// WithViewMode sets the UI to stored run viewing mode.
func WithViewMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeView
	}
}

func newStartConfig(options []StartOption) StartConfig {
	var cfg StartConfig
	for _, opt := range options {
		opt(&cfg)
	}

	return cfg
}

// MutantCount is the number of mutants of one target unit of a program.
type MutantCount struct {
	Program string
	Unit    string
	Mutants int
	Err     error
}

// ProgramResult is what one program run produced.
type ProgramResult struct {
	Program  string
	Faults   int
	Coverage coverage.Set
	Reports  []m.UnitReport
	Err      error
}

// Summary describes a completed run.
type Summary struct {
	RunID    string
	Programs int
	Kept     int
	Statuses map[m.MutantStatus]int
	Coverage coverage.Set
}

// Score is killed / (killed + alive), or 0 when no mutant was classified
// as either.
func (s Summary) Score() float64 {
	killed, alive := s.Statuses[m.Killed], s.Statuses[m.Alive]
	if killed+alive == 0 {
		return 0
	}

	return float64(killed) / float64(killed+alive)
}

// UI defines the interface for displaying runs.
// Implementations can use different output methods (simple text, TUI, etc).
//
//go:generate mockery --name=UI --output=./mocks --outpkg=mocks
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context)
	DisplayMutantCounts(ctx context.Context, counts []MutantCount) error
	DisplayProgramStarted(ctx context.Context, program string, index, total int)
	DisplayMutantOutcome(ctx context.Context, outcome m.MutantOutcome)
	DisplayProgramResult(ctx context.Context, result ProgramResult)
	DisplaySummary(ctx context.Context, summary Summary)
	DisplayRun(ctx context.Context, run adapter.Run) error
}

// IsTTY reports whether f is an interactive terminal.
func IsTTY(f *os.File) bool {
	if f == nil {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewUI returns the TUI for terminals and the SimpleUI otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	if tty {
		return NewTUI(cmd.InOrStdin(), cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}
