package domain_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/testbench/internal/coverage"
	"gooze.dev/pkg/testbench/internal/domain"
	domainmocks "gooze.dev/pkg/testbench/internal/domain/mocks"
	"gooze.dev/pkg/testbench/internal/loader"
	m "gooze.dev/pkg/testbench/internal/model"
	"gooze.dev/pkg/testbench/internal/runner"
	runnermocks "gooze.dev/pkg/testbench/internal/runner/mocks"
)

type nopSource struct{}

func (nopSource) Key() string { return "nop" }

func (nopSource) GetUnit(context.Context, string, string) ([]byte, error) {
	return nil, loader.ErrUnitNotFound
}

type script func(ctx context.Context, req runner.Request) (runner.Report, error)

func scriptedExecutor(t *testing.T, run script) *runnermocks.MockExecutor {
	exec := runnermocks.NewMockExecutor(t)
	exec.On("Setup", mock.Anything, mock.Anything).Return(nil).Maybe()
	exec.On("Execute", mock.Anything, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, req runner.Request, _ bool) (runner.Report, error) {
			return run(ctx, req)
		},
	)

	return exec
}

func space(t *testing.T, count int) *domainmocks.MockMutantSpace {
	s := domainmocks.NewMockMutantSpace(t)
	s.On("MutantCount", mock.Anything, mock.Anything, mock.Anything).Return(count, nil).Maybe()

	return s
}

var baseSignature = []string{"deposit=10", "balance=10"}

// accountScript touches mutants 1, 2 and 4 of four: 1 changes the
// signature, 2 does not, 4 cannot run.
func accountScript(_ context.Context, req runner.Request) (runner.Report, error) {
	switch req.Control.Selector {
	case m.SelectAll:
		req.Control.Track()
		req.Control.Touch(1)
		req.Control.Touch(2)
		req.Control.Touch(4)
	case 1:
		return runner.Report{Signature: []string{"deposit=10", "balance=-10"}}, nil
	case 4:
		return runner.Report{}, errors.New("invalid mutant expression")
	}

	return runner.Report{Signature: baseSignature}, nil
}

func program() *m.Program {
	return &m.Program{Name: "deposit-then-read"}
}

func TestMutationOrchestrator_ClassifiesMutants(t *testing.T) {
	exec := scriptedExecutor(t, accountScript)

	var (
		mu       sync.Mutex
		streamed []m.MutantOutcome
	)

	orch := domain.NewMutationOrchestrator(exec, space(t, 4), domain.MutationOptions{
		Parallel:         2,
		StopOnFirstFault: true,
		OnOutcome: func(o m.MutantOutcome) {
			mu.Lock()
			defer mu.Unlock()

			streamed = append(streamed, o)
		},
	})

	cov, reports, err := orch.Analyze(context.Background(), program(), loader.New(nopSource{}), []string{"app.Account"})
	require.NoError(t, err)
	require.Len(t, reports, 1)

	report := reports[0]
	assert.Equal(t, m.UnitAnalyzed, report.Status)
	assert.Equal(t, 4, report.MaxMutants)

	byIndex := map[int]m.MutantOutcome{}
	for _, o := range report.Outcomes {
		byIndex[o.Index] = o
	}

	require.Len(t, byIndex, 4)
	assert.Equal(t, m.Killed, byIndex[1].Status)
	assert.Less(t, int64(byIndex[1].Elapsed), int64(0))
	assert.Contains(t, byIndex[1].Diff, "-balance=10")
	assert.Contains(t, byIndex[1].Diff, "+balance=-10")
	assert.Equal(t, m.Alive, byIndex[2].Status)
	assert.GreaterOrEqual(t, int64(byIndex[2].Elapsed), int64(0))
	assert.Equal(t, m.NotExecuted, byIndex[3].Status)
	assert.Equal(t, m.Inconclusive, byIndex[4].Status)
	assert.Equal(t, m.ElapsedError, byIndex[4].Elapsed)

	require.Len(t, streamed, 4)
	assert.Equal(t, m.NotExecuted, streamed[3].Status)

	single, ok := cov.Unit("app.Account")
	require.True(t, ok)
	assert.Equal(t, 1, single.Killed())
	assert.Equal(t, 1, single.Alive())
	assert.Equal(t, 1, single.Inconclusive())
	assert.Equal(t, 1, single.NotExecuted())
	assert.InDelta(t, 0.5, cov.Quality(), 1e-9)
}

func TestMutationOrchestrator_FaultyBaselineSkipsMutants(t *testing.T) {
	exec := scriptedExecutor(t, func(context.Context, runner.Request) (runner.Report, error) {
		return runner.Report{Faults: []*m.Failure{{Type: "app.Overdraft"}}}, nil
	})
	s := domainmocks.NewMockMutantSpace(t)

	orch := domain.NewMutationOrchestrator(exec, s, domain.MutationOptions{})

	cov, reports, err := orch.Analyze(context.Background(), program(), loader.New(nopSource{}), []string{"app.Account"})
	require.NoError(t, err)

	require.Len(t, reports, 1)
	assert.Equal(t, m.UnitNotAnalyzable, reports[0].Status)
	assert.Contains(t, reports[0].Reason, "reveals 1 faults")
	assert.Empty(t, reports[0].Outcomes)
	assert.Empty(t, cov.Units())

	exec.AssertNumberOfCalls(t, "Execute", 1)
	s.AssertNotCalled(t, "MutantCount", mock.Anything, mock.Anything, mock.Anything)
}

func TestMutationOrchestrator_NonRepeatableProgram(t *testing.T) {
	calls := 0
	exec := scriptedExecutor(t, func(context.Context, runner.Request) (runner.Report, error) {
		calls++

		return runner.Report{Signature: []string{string(rune('a' + calls))}}, nil
	})

	orch := domain.NewMutationOrchestrator(exec, space(t, 2), domain.MutationOptions{})

	_, reports, err := orch.Analyze(context.Background(), program(), loader.New(nopSource{}), []string{"app.Account"})
	require.NoError(t, err)

	assert.Equal(t, m.UnitNotAnalyzable, reports[0].Status)
	assert.Contains(t, reports[0].Reason, "not repeatable")
	exec.AssertNumberOfCalls(t, "Execute", 3)
}

func TestMutationOrchestrator_FaultWhileRecordingSkipsMutants(t *testing.T) {
	exec := scriptedExecutor(t, func(_ context.Context, req runner.Request) (runner.Report, error) {
		if req.Record {
			return runner.Report{Signature: baseSignature, Faults: []*m.Failure{{Type: "app.Overdraft"}}}, nil
		}

		return runner.Report{Signature: baseSignature}, nil
	})
	s := domainmocks.NewMockMutantSpace(t)

	orch := domain.NewMutationOrchestrator(exec, s, domain.MutationOptions{})

	cov, reports, err := orch.Analyze(context.Background(), program(), loader.New(nopSource{}), []string{"app.Account"})
	require.NoError(t, err)

	require.Len(t, reports, 1)
	assert.Equal(t, m.UnitNotAnalyzable, reports[0].Status)
	assert.Contains(t, reports[0].Reason, "while recording")
	assert.Empty(t, reports[0].Outcomes)
	assert.Empty(t, cov.Units())

	exec.AssertNumberOfCalls(t, "Execute", 2)
	s.AssertNotCalled(t, "MutantCount", mock.Anything, mock.Anything, mock.Anything)
}

func TestMutationOrchestrator_MissingTrackingData(t *testing.T) {
	exec := scriptedExecutor(t, func(context.Context, runner.Request) (runner.Report, error) {
		return runner.Report{Signature: baseSignature}, nil
	})

	orch := domain.NewMutationOrchestrator(exec, space(t, 2), domain.MutationOptions{})

	_, reports, err := orch.Analyze(context.Background(), program(), loader.New(nopSource{}), []string{"app.Account"})
	require.NoError(t, err)

	assert.Equal(t, m.UnitNotAnalyzable, reports[0].Status)
	assert.Contains(t, reports[0].Reason, "tracking")
}

func TestMutationOrchestrator_StageFailureOnlyAbortsThatUnit(t *testing.T) {
	exec := runnermocks.NewMockExecutor(t)
	exec.On("Setup", mock.Anything, mock.Anything).Return(nil)
	exec.On("Execute", mock.Anything, mock.MatchedBy(func(r runner.Request) bool { return r.Target == "app.Broken" }), mock.Anything).
		Return(runner.Report{}, errors.New("cannot construct"))
	exec.On("Execute", mock.Anything, mock.MatchedBy(func(r runner.Request) bool { return r.Target == "app.Account" }), mock.Anything).
		Return(func(ctx context.Context, req runner.Request, _ bool) (runner.Report, error) {
			return accountScript(ctx, req)
		})

	orch := domain.NewMutationOrchestrator(exec, space(t, 4), domain.MutationOptions{})

	cov, reports, err := orch.Analyze(context.Background(), program(), loader.New(nopSource{}), []string{"app.Broken", "app.Account"})
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, m.UnitNotAnalyzable, reports[0].Status)
	assert.Contains(t, reports[0].Reason, "baseline run failed")
	assert.Equal(t, m.UnitAnalyzed, reports[1].Status)
	assert.Equal(t, []string{"app.Account"}, cov.Units())
}

func TestMutationOrchestrator_TimeoutIsInconclusive(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	exec := scriptedExecutor(t, func(ctx context.Context, req runner.Request) (runner.Report, error) {
		switch req.Control.Selector {
		case m.SelectAll:
			req.Control.Track()
			req.Control.Touch(1)
		case 1:
			<-release
		}

		return runner.Report{Signature: baseSignature}, nil
	})

	orch := domain.NewMutationOrchestrator(exec, space(t, 1), domain.MutationOptions{})

	_, reports, err := orch.Analyze(context.Background(), program(), loader.New(nopSource{}), []string{"app.Account"})
	require.NoError(t, err)

	require.Len(t, reports[0].Outcomes, 1)
	assert.Equal(t, m.Inconclusive, reports[0].Outcomes[0].Status)
	assert.Equal(t, m.ElapsedError, reports[0].Outcomes[0].Elapsed)
}

func TestMutationOrchestrator_StageTimeout(t *testing.T) {
	exec := scriptedExecutor(t, func(ctx context.Context, _ runner.Request) (runner.Report, error) {
		<-ctx.Done()

		return runner.Report{}, ctx.Err()
	})

	orch := domain.NewMutationOrchestrator(exec, domainmocks.NewMockMutantSpace(t), domain.MutationOptions{StageTimeout: 20 * time.Millisecond})

	_, reports, err := orch.Analyze(context.Background(), program(), loader.New(nopSource{}), []string{"app.Account"})
	require.NoError(t, err)

	require.Len(t, reports, 1)
	assert.Equal(t, m.UnitNotAnalyzable, reports[0].Status)
	assert.Contains(t, reports[0].Reason, "baseline run failed")
	assert.Contains(t, reports[0].Reason, runner.ErrTimeout.Error())
}

func TestMutationOrchestrator_ReloadPerMutant(t *testing.T) {
	lc := loader.New(nopSource{})

	var (
		mu  sync.Mutex
		ids = map[uint64]bool{}
	)

	exec := scriptedExecutor(t, func(ctx context.Context, req runner.Request) (runner.Report, error) {
		if req.Control.Selector > 0 {
			mu.Lock()
			ids[req.Loader.ID()] = true
			mu.Unlock()
		}

		return accountScript(ctx, req)
	})

	orch := domain.NewMutationOrchestrator(exec, space(t, 4), domain.MutationOptions{ReloadPerMutant: true, Parallel: 3})

	_, _, err := orch.Analyze(context.Background(), program(), lc, []string{"app.Account"})
	require.NoError(t, err)

	assert.Len(t, ids, 3)
	assert.False(t, ids[lc.ID()])
}

func TestMutationOrchestrator_CancelledContext(t *testing.T) {
	exec := runnermocks.NewMockExecutor(t)
	orch := domain.NewMutationOrchestrator(exec, domainmocks.NewMockMutantSpace(t), domain.MutationOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cov, reports, err := orch.Analyze(ctx, program(), loader.New(nopSource{}), []string{"app.Account"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, reports)
	assert.Equal(t, coverage.MutationKey, cov.Key())
}
