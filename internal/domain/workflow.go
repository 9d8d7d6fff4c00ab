package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"gooze.dev/pkg/testbench/internal/adapter"
	"gooze.dev/pkg/testbench/internal/controller"
	"gooze.dev/pkg/testbench/internal/coverage"
	"gooze.dev/pkg/testbench/internal/loader"
	m "gooze.dev/pkg/testbench/internal/model"
	"gooze.dev/pkg/testbench/internal/runner"
	"gooze.dev/pkg/testbench/pkg"
)

// ErrNoPrograms is returned when the given paths hold no program.
var ErrNoPrograms = errors.New("no programs found")

// RunArgs contains the arguments for running programs.
type RunArgs struct {
	Paths []m.Path
	// Output is the report store path.
	Output string
	// Targets restricts mutation analysis to these units; empty means every
	// unit a program uses.
	Targets  []string
	Parallel int
	Reload   bool
	Prune    bool
	SpillDir string
	// Timeout bounds every execution of a program that mutation budgets do
	// not cover; zero means no bound.
	Timeout time.Duration
}

// ListArgs contains the arguments for listing mutants.
type ListArgs struct {
	Paths   []m.Path
	Targets []string
}

// ViewArgs contains the arguments for viewing a stored run.
type ViewArgs struct {
	Output string
	// RunID selects the run; empty means the latest one.
	RunID string
}

// MergeArgs contains the arguments for merging the latest runs of several
// stores into Output.
type MergeArgs struct {
	Output string
	Stores []string
	Prune  bool
}

// Workflow defines the testbench operations.
//
//go:generate mockery --name=Workflow --output=./mocks --outpkg=mocks
type Workflow interface {
	Run(ctx context.Context, args RunArgs) error
	List(ctx context.Context, args ListArgs) error
	View(ctx context.Context, args ViewArgs) error
	Merge(ctx context.Context, args MergeArgs) error
}

// LoaderFactory creates the loading context a program runs in.
type LoaderFactory func() (*loader.Context, error)

// StoreOpener opens the report store at path.
type StoreOpener func(path string) (adapter.ReportStore, error)

type workflow struct {
	adapter.ProgramStore
	controller.UI
	openStore StoreOpener
	newLoader LoaderFactory
	executor  runner.Executor
	space     MutantSpace
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	programs adapter.ProgramStore,
	openStore StoreOpener,
	ui controller.UI,
	loaders LoaderFactory,
	executor runner.Executor,
	space MutantSpace,
) Workflow {
	return &workflow{
		ProgramStore: programs,
		UI:           ui,
		openStore:    openStore,
		newLoader:    loaders,
		executor:     executor,
		space:        space,
	}
}

func closeStore(store adapter.ReportStore) {
	if err := store.Close(); err != nil {
		slog.Warn("Failed to close report store", "error", err)
	}
}

func (w *workflow) loadPrograms(paths []m.Path) ([]*m.Program, error) {
	programs, err := w.Load(paths)
	if err != nil {
		return nil, fmt.Errorf("load programs: %w", err)
	}

	if len(programs) == 0 {
		return nil, ErrNoPrograms
	}

	return programs, nil
}

// targetsOf returns the units of program to analyze, in targets order when
// targets is not empty.
func targetsOf(program *m.Program, targets []string) []string {
	units := program.Units()
	if len(targets) == 0 {
		return units
	}

	var selected []string

	for _, t := range targets {
		if slices.Contains(units, t) {
			selected = append(selected, t)
		}
	}

	return selected
}

// Run executes every program, analyzes its mutants and stores the run.
// A program that cannot run is reported and skipped.
func (w *workflow) Run(ctx context.Context, args RunArgs) error {
	programs, err := w.loadPrograms(args.Paths)
	if err != nil {
		return err
	}

	store, err := w.openStore(args.Output)
	if err != nil {
		return fmt.Errorf("open report store: %w", err)
	}
	defer closeStore(store)

	spill, err := pkg.NewFileSpill[m.MutantOutcome](args.SpillDir)
	if err != nil {
		return fmt.Errorf("create outcome spill: %w", err)
	}

	defer func() {
		if err := spill.Remove(); err != nil {
			slog.Warn("Failed to remove outcome spill", "path", spill.Path(), "error", err)
		}
	}()

	if err := w.Start(ctx, controller.WithRunMode(len(programs))); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)

		return err
	}
	defer w.Close(ctx)

	orchestrator := NewMutationOrchestrator(w.executor, w.space, MutationOptions{
		Parallel:        args.Parallel,
		ReloadPerMutant: args.Reload,
		StageTimeout:    args.Timeout,
		OnOutcome: func(outcome m.MutantOutcome) {
			if err := spill.Append(outcome); err != nil {
				slog.Warn("Failed to spill mutant outcome", "unit", outcome.Unit, "mutant", outcome.Index, "error", err)
			}

			w.DisplayMutantOutcome(ctx, outcome)
		},
	})

	run := adapter.Run{Started: time.Now()}

	for i, program := range programs {
		w.DisplayProgramStarted(ctx, program.Name, i+1, len(programs))

		result, err := w.runProgram(ctx, orchestrator, program, args.Targets, args.Timeout)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("run interrupted: %w", err)
			}

			slog.Warn("Failed to run program", "program", program.Name, "error", err)
			w.DisplayProgramResult(ctx, controller.ProgramResult{Program: program.Name, Err: err})

			continue
		}

		run.Programs = append(run.Programs, adapter.ProgramResult{Program: program.Name, Coverage: result.Coverage, Kept: true})
		run.Reports = append(run.Reports, result.Reports...)
		w.DisplayProgramResult(ctx, result)
	}

	if args.Prune {
		run.Programs = Prune(run.Programs)
	}

	id, err := store.SaveRun(ctx, run)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	statuses, err := statusesFromOutcomes(spill)
	if err != nil {
		return err
	}

	slog.Info("Run saved", "run", id, "programs", len(run.Programs), "reports", len(run.Reports))

	w.DisplaySummary(ctx, summarize(id, run, statuses))
	w.Wait(ctx)

	return nil
}

// runProgram collects the coverage of one execution of program and then
// runs mutation analysis on its targets, in the same loading context. A
// program that exceeds timeout keeps the coverage gathered so far, timeout
// fault included, and its targets are not analyzed.
func (w *workflow) runProgram(ctx context.Context, orchestrator MutationOrchestrator, program *m.Program, targets []string, timeout time.Duration) (controller.ProgramResult, error) {
	lc, err := w.newLoader()
	if err != nil {
		return controller.ProgramResult{}, fmt.Errorf("create loading context: %w", err)
	}

	mg := runner.NewManager[coverage.Set](w.executor, runner.NewCoverageCollector(), runner.Request{Program: program, Loader: lc})

	runCtx, cancel := withTimeout(ctx, timeout)
	outcome, err := mg.Execute(runCtx, false)
	cancel()

	timedOut := errors.Is(err, runner.ErrTimeout) && ctx.Err() == nil && mg.State() == runner.StateResultAvailable
	if err != nil && !timedOut {
		return controller.ProgramResult{}, err
	}

	set, err := mg.Result()
	if err != nil {
		return controller.ProgramResult{}, err
	}

	var (
		mutation *coverage.Mutation
		reports  []m.UnitReport
	)

	if timedOut {
		slog.Warn("Program exceeded its time budget", "program", program.Name, "timeout", timeout)

		mutation = coverage.NewMutation()
		for _, unit := range targetsOf(program, targets) {
			reports = append(reports, m.UnitReport{
				Program: program.Name,
				Unit:    unit,
				Status:  m.UnitNotAnalyzable,
				Reason:  fmt.Sprintf("program exceeds its time budget of %s", timeout),
			})
		}
	} else {
		mutation, reports, err = orchestrator.Analyze(ctx, program, lc, targetsOf(program, targets))
		if err != nil {
			return controller.ProgramResult{}, err
		}
	}

	set.Put(mutation)

	slog.Debug("Program completed", "program", program.Name, "faults", outcome.Faults, "elapsed", int64(outcome.Elapsed), "loading", lc.LoadingTime())

	return controller.ProgramResult{Program: program.Name, Faults: outcome.Faults, Coverage: set, Reports: reports}, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, timeout)
}

func summarize(id string, run adapter.Run, statuses map[m.MutantStatus]int) controller.Summary {
	total := coverage.Set{}
	kept := 0

	for _, p := range run.Programs {
		if p.Kept {
			kept++

			total.Merge(p.Coverage)
		}
	}

	return controller.Summary{RunID: id, Programs: len(run.Programs), Kept: kept, Statuses: statuses, Coverage: total}
}

// List shows how many mutants every target unit of every program has.
func (w *workflow) List(ctx context.Context, args ListArgs) error {
	programs, err := w.loadPrograms(args.Paths)
	if err != nil {
		return err
	}

	if err := w.Start(ctx, controller.WithListMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)

		return err
	}
	defer w.Close(ctx)

	var counts []controller.MutantCount

	for _, program := range programs {
		lc, err := w.newLoader()
		if err != nil {
			return fmt.Errorf("create loading context: %w", err)
		}

		for _, unit := range targetsOf(program, args.Targets) {
			n, err := w.space.MutantCount(ctx, lc, unit)
			if err != nil {
				slog.Warn("Failed to count mutants", "program", program.Name, "unit", unit, "error", err)
			}

			counts = append(counts, controller.MutantCount{Program: program.Name, Unit: unit, Mutants: n, Err: err})
		}
	}

	if err := w.DisplayMutantCounts(ctx, counts); err != nil {
		return fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)

	return nil
}

// View shows a stored run.
func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	store, err := w.openStore(args.Output)
	if err != nil {
		return fmt.Errorf("open report store: %w", err)
	}
	defer closeStore(store)

	var run adapter.Run

	if args.RunID == "" {
		run, err = store.LatestRun(ctx)
	} else {
		run, err = store.LoadRun(ctx, args.RunID)
	}

	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}

	return w.show(ctx, run)
}

func (w *workflow) show(ctx context.Context, run adapter.Run) error {
	if err := w.Start(ctx, controller.WithViewMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)

		return err
	}
	defer w.Close(ctx)

	if err := w.DisplayRun(ctx, run); err != nil {
		return fmt.Errorf("display: %w", err)
	}

	w.DisplaySummary(ctx, summarize(run.ID, run, statusesFromReports(run.Reports)))
	w.Wait(ctx)

	return nil
}

// Merge combines the latest run of every store into a new run of Output.
// Stores without runs are skipped.
func (w *workflow) Merge(ctx context.Context, args MergeArgs) error {
	if len(args.Stores) == 0 {
		return errors.New("no stores to merge")
	}

	merged := adapter.Run{Started: time.Now()}
	found := 0

	for _, path := range args.Stores {
		run, err := w.latestRun(ctx, path)
		if errors.Is(err, adapter.ErrRunNotFound) {
			slog.Warn("No run to merge", "store", path)

			continue
		}

		if err != nil {
			return err
		}

		found++
		merged.Programs = append(merged.Programs, run.Programs...)
		merged.Reports = append(merged.Reports, run.Reports...)
	}

	if found == 0 {
		return fmt.Errorf("merge %d stores: %w", len(args.Stores), adapter.ErrRunNotFound)
	}

	if args.Prune {
		merged.Programs = Prune(merged.Programs)
	}

	store, err := w.openStore(args.Output)
	if err != nil {
		return fmt.Errorf("open report store: %w", err)
	}
	defer closeStore(store)

	if merged.ID, err = store.SaveRun(ctx, merged); err != nil {
		return fmt.Errorf("save merged run: %w", err)
	}

	slog.Info("Merged runs", "run", merged.ID, "stores", found, "programs", len(merged.Programs))

	return w.show(ctx, merged)
}

func (w *workflow) latestRun(ctx context.Context, path string) (adapter.Run, error) {
	store, err := w.openStore(path)
	if err != nil {
		return adapter.Run{}, fmt.Errorf("open report store %s: %w", path, err)
	}
	defer closeStore(store)

	run, err := store.LatestRun(ctx)
	if err != nil {
		return adapter.Run{}, fmt.Errorf("load latest run of %s: %w", path, err)
	}

	return run, nil
}
