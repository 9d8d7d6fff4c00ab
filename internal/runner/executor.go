// Package runner executes test programs inside loading contexts and
// collects their results.
package runner

import (
	"context"

	"gooze.dev/pkg/testbench/internal/coverage"
	"gooze.dev/pkg/testbench/internal/loader"
	m "gooze.dev/pkg/testbench/internal/model"
)

// Request describes one execution of a program.
type Request struct {
	Program *m.Program
	Loader  *loader.Context
	// Control selects the active mutant and collects touched mutation points.
	Control *m.MutationControl
	// Target is the unit under test; fault stacks are pruned around it.
	Target string
	// Record asks the executor to report the operation-result signature.
	Record bool
	// Expected, when set, is the signature recorded by an earlier run. Every
	// operation whose result differs from it counts as a fault.
	Expected []string
}

// Exposure records that a definition reached a calling context.
type Exposure struct {
	Stack coverage.Stack
	Def   coverage.ContextualID
}

// Report is what an executor observed while running a program.
type Report struct {
	Faults    []*m.Failure
	Signature []string
	Exposures []Exposure
}

// Executor runs programs. Faults raised by the program go into the Report;
// an error means the program could not be run at all.
//
//go:generate mockery --name=Executor --output=./mocks --outpkg=mocks
type Executor interface {
	// Setup resolves the environment-level units the executor needs.
	Setup(ctx context.Context, lc *loader.Context) error
	// Execute runs req.Program. When stopOnFirstFault is set it returns after
	// the first fault.
	Execute(ctx context.Context, req Request, stopOnFirstFault bool) (Report, error)
}
