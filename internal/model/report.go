package model

import "math"

// Elapsed is an execution time in milliseconds. Negative values are sentinels:
// ElapsedError means the execution failed before any logic ran or exceeded its
// budget; any other negative value means the mutant was killed.
type Elapsed int64

// ElapsedError is the "execution error" sentinel.
const ElapsedError Elapsed = math.MinInt64

// KilledAfter encodes a kill observed after ms milliseconds.
func KilledAfter(ms int64) Elapsed {
	if ms < 0 {
		ms = 0
	}

	return Elapsed(-ms - 1)
}

// Outcome holds the statistics of one execution.
type Outcome struct {
	Elapsed Elapsed
	Faults  int
}

// MutantStatus is the state of a mutant after an orchestration run.
type MutantStatus int

const (
	// NotExecuted marks mutants never reached by the program.
	NotExecuted MutantStatus = iota
	// Alive marks mutants the program did not detect.
	Alive
	// Killed marks mutants the program detected.
	Killed
	// Inconclusive marks mutants whose run errored or timed out.
	Inconclusive
)

func (s MutantStatus) String() string {
	switch s {
	case NotExecuted:
		return "not-executed"
	case Alive:
		return "alive"
	case Killed:
		return "killed"
	case Inconclusive:
		return "inconclusive"
	}

	return "unknown"
}

// MutantOutcome is the classified result of one per-mutant pass.
type MutantOutcome struct {
	Unit    string
	Index   int
	Status  MutantStatus
	Elapsed Elapsed
	// Diff shows how the observed behaviour diverged from the baseline, for killed mutants.
	Diff string
}

// UnitStatus tells whether mutation analysis could run on a unit.
type UnitStatus int

const (
	// UnitAnalyzed means every stage of the protocol completed.
	UnitAnalyzed UnitStatus = iota
	// UnitNotAnalyzable means a stage failed or the program already revealed a fault.
	UnitNotAnalyzable
)

func (s UnitStatus) String() string {
	if s == UnitAnalyzed {
		return "analyzed"
	}

	return "not-analyzable"
}

// UnitReport summarises the mutation analysis of one unit.
type UnitReport struct {
	Program    string
	Unit       string
	Status     UnitStatus
	Reason     string
	MaxMutants int
	Baseline   Elapsed
	Outcomes   []MutantOutcome
}

// Count returns how many outcomes have the given status.
func (r UnitReport) Count(status MutantStatus) int {
	n := 0

	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}

	return n
}
