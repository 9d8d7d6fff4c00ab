package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/pmezard/go-difflib/difflib"

	"gooze.dev/pkg/testbench/internal/coverage"
	"gooze.dev/pkg/testbench/internal/loader"
	m "gooze.dev/pkg/testbench/internal/model"
	"gooze.dev/pkg/testbench/internal/runner"
)

// MutantSpace reports how many mutants a unit has.
//
//go:generate mockery --name=MutantSpace --output=./mocks --outpkg=mocks
type MutantSpace interface {
	MutantCount(ctx context.Context, lc *loader.Context, unit string) (int, error)
}

// MutationOptions tunes a mutation analysis.
type MutationOptions struct {
	// Parallel bounds the number of mutants run at once; <= 0 means one.
	Parallel int
	// ReloadPerMutant runs every mutant in a fresh fork of the loading context.
	ReloadPerMutant bool
	// StopOnFirstFault ends a mutant run at its first fault.
	StopOnFirstFault bool
	// StageTimeout bounds the baseline, recording, verification and
	// discovery runs; zero means no bound.
	StageTimeout time.Duration
	// OnOutcome, when set, receives every classified mutant as it completes,
	// then the mutants the program never reached.
	OnOutcome func(m.MutantOutcome)
}

// Budget returns the time a mutant run may take given the baseline time.
func Budget(baseline m.Elapsed) time.Duration {
	return time.Duration(5*int64(baseline)+500) * time.Millisecond
}

// MutationOrchestrator runs the staged mutation protocol on the target
// units of a program.
type MutationOrchestrator interface {
	Analyze(ctx context.Context, program *m.Program, lc *loader.Context, targets []string) (*coverage.Mutation, []m.UnitReport, error)
}

type mutationOrchestrator struct {
	executor runner.Executor
	space    MutantSpace
	opts     MutationOptions
}

// NewMutationOrchestrator creates a MutationOrchestrator.
func NewMutationOrchestrator(executor runner.Executor, space MutantSpace, opts MutationOptions) MutationOrchestrator {
	if opts.Parallel <= 0 {
		opts.Parallel = 1
	}

	return &mutationOrchestrator{executor: executor, space: space, opts: opts}
}

// Analyze processes the targets one after the other. A unit whose analysis
// cannot complete is reported as not analyzable and the others still run.
// It only fails when ctx is cancelled.
func (o *mutationOrchestrator) Analyze(ctx context.Context, program *m.Program, lc *loader.Context, targets []string) (*coverage.Mutation, []m.UnitReport, error) {
	result := coverage.NewMutation()
	reports := make([]m.UnitReport, 0, len(targets))

	for _, unit := range targets {
		if err := ctx.Err(); err != nil {
			return result, reports, fmt.Errorf("mutation analysis interrupted: %w", err)
		}

		slog.Debug("Applying mutation analysis", "program", program.Name, "unit", unit)

		report := o.analyzeUnit(ctx, program, lc, unit)
		reports = append(reports, report)

		if report.Status == m.UnitAnalyzed {
			result.Put(unit, coverage.MutationSingleFromReport(report))
		}
	}

	return result, reports, nil
}

func notAnalyzable(report m.UnitReport, reason string, err error) m.UnitReport {
	report.Status = m.UnitNotAnalyzable
	report.Reason = reason

	if err != nil {
		report.Reason = fmt.Sprintf("%s: %v", reason, err)
	}

	slog.Warn("Skipping mutation analysis", "program", report.Program, "unit", report.Unit, "reason", report.Reason)

	return report
}

func (o *mutationOrchestrator) analyzeUnit(ctx context.Context, program *m.Program, lc *loader.Context, unit string) m.UnitReport {
	report := m.UnitReport{Program: program.Name, Unit: unit, Status: m.UnitAnalyzed}

	control := m.NewMutationControl(unit, m.SelectNone)
	mg := runner.NewManager[[]string](o.executor, runner.NewSignatureCollector(), runner.Request{
		Program: program,
		Loader:  lc,
		Control: control,
		Target:  unit,
	})

	baseline, err := o.stage(ctx, mg)
	if err != nil {
		return notAnalyzable(report, "baseline run failed", err)
	}

	report.Baseline = baseline.Elapsed

	if baseline.Faults > 0 {
		return notAnalyzable(report, fmt.Sprintf("program reveals %d faults in the original unit", baseline.Faults), nil)
	}

	mg.Request.Record = true

	recorded, err := o.stage(ctx, mg)
	if err != nil {
		return notAnalyzable(report, "recording run failed", err)
	}

	if recorded.Faults > 0 {
		return notAnalyzable(report, fmt.Sprintf("program reveals %d faults while recording", recorded.Faults), nil)
	}

	expected := mg.Signature()
	mg.Request.Record = false
	mg.Request.Expected = expected

	verified, err := o.stage(ctx, mg)
	if err != nil {
		return notAnalyzable(report, "verification run failed", err)
	}

	if verified.Faults > 0 {
		return notAnalyzable(report, fmt.Sprintf("program is not repeatable: %d operations changed", verified.Faults), nil)
	}

	maxMutants, err := o.space.MutantCount(ctx, lc, unit)
	if err != nil {
		return notAnalyzable(report, "cannot count mutants", err)
	}

	report.MaxMutants = maxMutants

	control.Reset(m.SelectAll)

	if _, err := o.stage(ctx, mg); err != nil {
		return notAnalyzable(report, "discovery run failed", err)
	}

	touched := control.Touched()
	if touched == nil {
		return notAnalyzable(report, "executor reported no mutation tracking", nil)
	}

	budget := Budget(baseline.Elapsed)
	slog.Debug("Running mutants", "unit", unit, "executed", touched.Count(), "max", maxMutants, "budget", budget)

	report.Outcomes = o.runMutants(ctx, program, lc, unit, expected, touched, budget)

	for i := 1; i <= maxMutants; i++ {
		if !touched.Test(uint(i)) {
			outcome := m.MutantOutcome{Unit: unit, Index: i, Status: m.NotExecuted}
			report.Outcomes = append(report.Outcomes, outcome)
			o.emit(outcome)
		}
	}

	return report
}

func (o *mutationOrchestrator) stage(ctx context.Context, mg *runner.Manager[[]string]) (m.Outcome, error) {
	if o.opts.StageTimeout <= 0 {
		return mg.Execute(ctx, false)
	}

	ctx, cancel := context.WithTimeout(ctx, o.opts.StageTimeout)
	defer cancel()

	return mg.Execute(ctx, false)
}

type mutantRun struct {
	elapsed m.Elapsed
	diff    string
}

func (o *mutationOrchestrator) runMutants(
	ctx context.Context,
	program *m.Program,
	lc *loader.Context,
	unit string,
	expected []string,
	touched *bitset.BitSet,
	budget time.Duration,
) []m.MutantOutcome {
	pool := runner.NewPool(o.opts.Parallel)

	type pending struct {
		index  int
		future *runner.Future[mutantRun]
	}

	var runs []pending

	for i, ok := touched.NextSet(1); ok; i, ok = touched.NextSet(i + 1) {
		index := int(i)

		runs = append(runs, pending{index: index, future: runner.Submit(ctx, pool, func(ctx context.Context) (mutantRun, error) {
			return o.runMutant(ctx, program, lc, unit, index, expected, budget)
		})})
	}

	outcomes := make([]m.MutantOutcome, 0, len(runs))

	for _, run := range runs {
		res, _, err := run.future.Get()
		outcome := classify(unit, run.index, res, err)
		outcomes = append(outcomes, outcome)
		o.emit(outcome)
	}

	pool.Wait()

	return outcomes
}

func (o *mutationOrchestrator) emit(outcome m.MutantOutcome) {
	if o.opts.OnOutcome != nil {
		o.opts.OnOutcome(outcome)
	}
}

func (o *mutationOrchestrator) runMutant(
	ctx context.Context,
	program *m.Program,
	lc *loader.Context,
	unit string,
	index int,
	expected []string,
	budget time.Duration,
) (mutantRun, error) {
	if o.opts.ReloadPerMutant {
		lc = lc.Fork()
	}

	mg := runner.NewManager[[]string](o.executor, runner.NewSignatureCollector(), runner.Request{
		Program:  program,
		Loader:   lc,
		Control:  m.NewMutationControl(unit, index),
		Target:   unit,
		Expected: expected,
	})

	runCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	out, err := mg.Execute(runCtx, o.opts.StopOnFirstFault)
	if err != nil {
		if !errors.Is(err, runner.ErrTimeout) {
			slog.Warn("Error executing mutant", "unit", unit, "mutant", index, "error", err)
		}

		return mutantRun{elapsed: m.ElapsedError}, nil
	}

	if time.Duration(out.Elapsed)*time.Millisecond > budget {
		return mutantRun{elapsed: m.ElapsedError}, nil
	}

	if out.Faults > 0 {
		return mutantRun{elapsed: m.KilledAfter(int64(out.Elapsed)), diff: signatureDiff(expected, mg.Signature())}, nil
	}

	return mutantRun{elapsed: out.Elapsed}, nil
}

func classify(unit string, index int, res mutantRun, err error) m.MutantOutcome {
	outcome := m.MutantOutcome{Unit: unit, Index: index, Elapsed: res.elapsed}

	switch {
	case err != nil:
		slog.Warn("Error executing mutant", "unit", unit, "mutant", index, "error", err)

		outcome.Status = m.Inconclusive
		outcome.Elapsed = m.ElapsedError
	case res.elapsed == m.ElapsedError:
		slog.Debug("Mutant run did not complete", "unit", unit, "mutant", index)

		outcome.Status = m.Inconclusive
	case res.elapsed < 0:
		slog.Debug("Killed mutant", "unit", unit, "mutant", index)

		outcome.Status = m.Killed
		outcome.Diff = res.diff
	default:
		slog.Debug("Alive mutant", "unit", unit, "mutant", index, "elapsed", int64(res.elapsed))

		outcome.Status = m.Alive
	}

	return outcome
}

func signatureDiff(expected, got []string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(strings.Join(expected, "\n")),
		B:        difflib.SplitLines(strings.Join(got, "\n")),
		FromFile: "expected",
		ToFile:   "mutant",
		Context:  1,
	})
	if err != nil {
		return ""
	}

	return diff
}
