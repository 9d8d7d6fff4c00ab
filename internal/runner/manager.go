package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	m "gooze.dev/pkg/testbench/internal/model"
)

// ErrNoResult is returned by Result before a successful Execute.
var ErrNoResult = errors.New("no result available")

// ErrTimeout marks executions stopped because their budget ran out.
var ErrTimeout = errors.New("execution budget exceeded")

// abortGrace is how long an expired execution may take to hand back the
// report of what it ran before stopping.
const abortGrace = 100 * time.Millisecond

// SetupError reports a failure to prepare the execution environment.
type SetupError struct {
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup failed: %v", e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// State is the lifecycle state of a manager.
type State int

const (
	// StateCreated is the state of a new manager.
	StateCreated State = iota
	// StateSetUp follows a successful Setup.
	StateSetUp
	// StateExecuted follows an Execute whose result is not collected yet.
	StateExecuted
	// StateResultAvailable means Result can be read.
	StateResultAvailable
	// StateFailed follows a setup or execution error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateSetUp:
		return "set-up"
	case StateExecuted:
		return "executed"
	case StateResultAvailable:
		return "result-available"
	case StateFailed:
		return "failed"
	}

	return "unknown"
}

// ExecutionManager runs one program in one loading context.
type ExecutionManager[R any] interface {
	Setup(ctx context.Context) error
	Execute(ctx context.Context, stopOnFirstFault bool) (m.Outcome, error)
	Result() (R, error)
	State() State
}

// Manager is the generic ExecutionManager. Request may be changed between
// executions; Execute can be called any number of times.
type Manager[R any] struct {
	Request Request
	// ResetResult clears the collector before each execution; otherwise
	// results accumulate across executions.
	ResetResult bool

	executor  Executor
	collector Collector[R]
	state     State
	outcome   m.Outcome
	signature []string
}

// NewManager creates a manager running req through executor.
func NewManager[R any](executor Executor, collector Collector[R], req Request) *Manager[R] {
	return &Manager[R]{
		Request:   req,
		executor:  executor,
		collector: collector,
	}
}

// State implements ExecutionManager.
func (mg *Manager[R]) State() State { return mg.state }

// Outcome returns the statistics of the last execution.
func (mg *Manager[R]) Outcome() m.Outcome { return mg.outcome }

// Signature returns the signature reported by the last execution.
func (mg *Manager[R]) Signature() []string { return mg.signature }

// Setup implements ExecutionManager.
func (mg *Manager[R]) Setup(ctx context.Context) error {
	if err := mg.executor.Setup(ctx, mg.Request.Loader); err != nil {
		mg.state = StateFailed

		return &SetupError{Err: err}
	}

	mg.state = StateSetUp

	return nil
}

type execution struct {
	report Report
	err    error
}

// Execute implements ExecutionManager. When ctx expires before the executor
// returns, the outcome carries ElapsedError and the error wraps ErrTimeout.
// Faults the executor reports while stopping, such as the timeout itself,
// are still collected and counted.
func (mg *Manager[R]) Execute(ctx context.Context, stopOnFirstFault bool) (m.Outcome, error) {
	if mg.state == StateCreated {
		if err := mg.Setup(ctx); err != nil {
			mg.outcome = m.Outcome{Elapsed: m.ElapsedError}

			return mg.outcome, err
		}
	}

	if mg.ResetResult {
		mg.collector.Reset()
	}

	req := mg.Request
	done := make(chan execution, 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- execution{err: fmt.Errorf("executor panicked: %v", r)}
			}
		}()

		report, err := mg.executor.Execute(ctx, req, stopOnFirstFault)
		done <- execution{report: report, err: err}
	}()

	var res execution

	select {
	case res = <-done:
	case <-ctx.Done():
		grace := time.NewTimer(abortGrace)
		defer grace.Stop()

		select {
		case res = <-done:
		case <-grace.C:
			mg.state = StateFailed
			mg.outcome = m.Outcome{Elapsed: m.ElapsedError}

			return mg.outcome, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
		}
	}

	elapsed := time.Since(start)

	if res.err != nil {
		mg.state = StateFailed
		mg.outcome = m.Outcome{Elapsed: m.ElapsedError}

		if ctx.Err() != nil {
			if len(res.report.Faults) > 0 {
				mg.outcome.Faults = len(res.report.Faults)
				mg.collector.Collect(req, res.report)
				mg.state = StateResultAvailable
			}

			return mg.outcome, fmt.Errorf("%w: %w", ErrTimeout, res.err)
		}

		return mg.outcome, fmt.Errorf("failed to execute %s: %w", programName(req.Program), res.err)
	}

	faults := len(res.report.Faults)
	if req.Expected != nil {
		mismatches := Mismatches(req.Expected, res.report.Signature)
		if mismatches > 0 {
			slog.Debug("Operation results differ from the recorded ones", "program", programName(req.Program), "mismatches", mismatches)
		}

		faults += mismatches
	}

	mg.signature = res.report.Signature
	mg.outcome = m.Outcome{Elapsed: m.Elapsed(elapsed.Milliseconds()), Faults: faults}
	mg.state = StateExecuted

	mg.collector.Collect(req, res.report)
	mg.state = StateResultAvailable

	return mg.outcome, nil
}

// Result implements ExecutionManager.
func (mg *Manager[R]) Result() (R, error) {
	if mg.state != StateResultAvailable {
		var zero R

		return zero, fmt.Errorf("manager is %s: %w", mg.state, ErrNoResult)
	}

	return mg.collector.Result(), nil
}

// Mismatches counts the operations whose results differ between the
// expected and observed signatures; missing or extra entries count too.
func Mismatches(expected, got []string) int {
	n := 0

	for i := range max(len(expected), len(got)) {
		if i >= len(expected) || i >= len(got) || expected[i] != got[i] {
			n++
		}
	}

	return n
}

func programName(p *m.Program) string {
	if p == nil {
		return "<nil>"
	}

	return p.Name
}
