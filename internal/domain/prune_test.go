package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/testbench/internal/adapter"
	"gooze.dev/pkg/testbench/internal/coverage"
	"gooze.dev/pkg/testbench/internal/domain"
)

func exposures(pairs ...int32) coverage.Set {
	de := coverage.NewDefExposure()
	for i := 0; i+1 < len(pairs); i += 2 {
		de.Add(coverage.Stack{pairs[i]}, coverage.ContextualID{ID: pairs[i+1], Context: coverage.Stack{0}})
	}

	return coverage.NewSet(de)
}

func kept(results []adapter.ProgramResult) map[string]bool {
	out := map[string]bool{}
	for _, r := range results {
		out[r.Program] = r.Kept
	}

	return out
}

func TestPrune(t *testing.T) {
	input := []adapter.ProgramResult{
		{Program: "narrow", Coverage: exposures(1, 1), Kept: true},
		{Program: "wide", Coverage: exposures(1, 1, 1, 2), Kept: true},
		{Program: "other", Coverage: exposures(2, 3), Kept: true},
		{Program: "twin", Coverage: exposures(1, 2, 1, 1), Kept: true},
	}

	pruned := domain.Prune(input)

	require.Len(t, pruned, 4)
	assert.Equal(t, []string{"narrow", "wide", "other", "twin"}, []string{pruned[0].Program, pruned[1].Program, pruned[2].Program, pruned[3].Program})
	assert.Equal(t, map[string]bool{"narrow": false, "wide": true, "other": true, "twin": false}, kept(pruned))

	for _, r := range input {
		assert.True(t, r.Kept, "input %s must not be modified", r.Program)
	}
}

func killedUnits(units ...string) coverage.Set {
	mut := coverage.NewMutation()
	for _, unit := range units {
		single := coverage.NewMutationSingle(1)
		single.SetKilled(1)
		mut.Put(unit, single)
	}

	return coverage.NewSet(mut)
}

func TestPrune_KeepsProgramKillingUncoveredUnit(t *testing.T) {
	pruned := domain.Prune([]adapter.ProgramResult{
		{Program: "wide", Coverage: killedUnits("app.A", "app.B")},
		{Program: "lonely", Coverage: killedUnits("app.C")},
	})

	assert.Equal(t, map[string]bool{"wide": true, "lonely": true}, kept(pruned))
}

func TestPrune_EmptyCoverage(t *testing.T) {
	t.Run("alone it is kept", func(t *testing.T) {
		pruned := domain.Prune([]adapter.ProgramResult{{Program: "empty", Coverage: coverage.Set{}}})

		require.Len(t, pruned, 1)
		assert.True(t, pruned[0].Kept)
	})

	t.Run("dominated by any kept program", func(t *testing.T) {
		pruned := domain.Prune([]adapter.ProgramResult{
			{Program: "empty", Coverage: coverage.Set{}},
			{Program: "some", Coverage: exposures(1, 1)},
		})

		assert.Equal(t, map[string]bool{"empty": false, "some": true}, kept(pruned))
	})
}

func TestPrune_NoPrograms(t *testing.T) {
	assert.Empty(t, domain.Prune(nil))
}
