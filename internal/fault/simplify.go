package fault

import (
	m "gooze.dev/pkg/testbench/internal/model"
)

const (
	// maxPeriod bounds the length of a recursion cycle.
	maxPeriod = 25
	// minRepetitions is how many cycles confirm a recursion.
	minRepetitions = 5
	// tailGuard is the number of innermost calls treated as distinct leaves.
	tailGuard = 5
)

var (
	recursionEnd   = m.Frame{Unit: " --  recursion", Member: "end  -- ", Line: -1}
	recursionStart = m.Frame{Unit: " -- recursion", Member: "start -- ", Line: -1}
)

// Simplify collapses a recursive stack to a single cycle bracketed by two
// sentinel frames. The cycle is rotated so that its outermost frame is the
// smallest frame string, making equivalent recursions entered at different
// points compare equal. Stacks without a recursion, and stacks that are
// already simplified, are returned unchanged.
func Simplify(stack []m.Frame) []m.Frame {
	if simplified(stack) {
		return stack
	}

	for initial := len(stack) - 1; initial > 0; initial-- {
		for period := 1; period < maxPeriod && initial+1-minRepetitions*period >= 0; period++ {
			if !repeats(stack, initial, period) {
				continue
			}

			first := 0
			for i := 1; i < period; i++ {
				if stack[initial-i].String() < stack[initial-first].String() {
					first = i
				}
			}

			cycle := make([]m.Frame, 0, period+2)
			cycle = append(cycle, recursionEnd)
			cycle = append(cycle, stack[initial-first-period+1:initial-first+1]...)
			cycle = append(cycle, recursionStart)

			return cycle
		}
	}

	return stack
}

// repeats reports whether the period frames ending at initial repeat at
// least minRepetitions times scanning towards the innermost call. Cycles may
// reach into the tail guard only until the repetition count is met.
func repeats(stack []m.Frame, initial, period int) bool {
	count := 1

	for lo := initial - 2*period + 1; lo >= 0; lo -= period {
		if count >= minRepetitions && lo < tailGuard {
			break
		}

		for j := range period {
			if stack[lo+j] != stack[lo+period+j] {
				return count >= minRepetitions
			}
		}

		count++
	}

	return count >= minRepetitions
}

func simplified(stack []m.Frame) bool {
	n := len(stack)

	return n >= 3 && stack[0] == recursionEnd && stack[n-1] == recursionStart
}
