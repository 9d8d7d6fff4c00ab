package domain

import (
	"slices"
	"sort"

	"gooze.dev/pkg/testbench/internal/adapter"
	"gooze.dev/pkg/testbench/internal/coverage"
)

// Prune marks as not kept every program whose coverage is contained by the
// coverage of a program kept before it. Programs are visited in decreasing
// quality, ties in input order. The result keeps the input order.
func Prune(results []adapter.ProgramResult) []adapter.ProgramResult {
	quality := make([]float64, len(results))
	order := make([]int, len(results))

	for i, r := range results {
		quality[i] = r.Coverage.Quality()
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return quality[order[a]] > quality[order[b]]
	})

	pruned := slices.Clone(results)

	var kept []coverage.Set

	for _, i := range order {
		set := pruned[i].Coverage

		dominated := slices.ContainsFunc(kept, func(k coverage.Set) bool {
			return k.Contains(set)
		})

		pruned[i].Kept = !dominated
		if !dominated {
			kept = append(kept, set)
		}
	}

	return pruned
}
