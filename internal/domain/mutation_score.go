package domain

import (
	"fmt"

	m "gooze.dev/pkg/testbench/internal/model"
	"gooze.dev/pkg/testbench/pkg"
)

// statusesFromOutcomes counts the spilled outcomes of a run by status.
func statusesFromOutcomes(outcomes pkg.FileSpill[m.MutantOutcome]) (map[m.MutantStatus]int, error) {
	statuses := map[m.MutantStatus]int{}

	err := outcomes.Range(func(_ uint64, outcome m.MutantOutcome) error {
		statuses[outcome.Status]++

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read mutant outcomes: %w", err)
	}

	return statuses, nil
}

// statusesFromReports counts the outcomes of stored unit reports by status.
func statusesFromReports(reports []m.UnitReport) map[m.MutantStatus]int {
	statuses := map[m.MutantStatus]int{}

	for _, r := range reports {
		for _, o := range r.Outcomes {
			statuses[o.Status]++
		}
	}

	return statuses
}
