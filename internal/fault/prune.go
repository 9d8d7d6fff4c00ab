package fault

import (
	"strings"

	m "gooze.dev/pkg/testbench/internal/model"
)

// InfrastructurePrefix is the namespace of the engine's own frames.
const InfrastructurePrefix = "testbench."

// lookahead is how many frames, the current one included, are inspected
// before a leading frame is kept.
const lookahead = 11

// Prune removes the frames that do not identify a fault. Stack is ordered
// innermost call first. Frames outside the outermost frame of target are
// dropped; then leading frames are dropped while an infrastructure frame
// appears within the lookahead window.
func Prune(stack []m.Frame, target string) []m.Frame {
	n := len(stack)

	if target != "" {
		last := n - 1
		for last >= 0 && stack[last].Unit != target {
			last--
		}

		if last >= 0 {
			n = last + 1
		}
	}

	base := 0
	for base < n && infrastructureAhead(stack[:n], base) {
		base++
	}

	pruned := make([]m.Frame, n-base)
	copy(pruned, stack[base:n])

	return pruned
}

func infrastructureAhead(stack []m.Frame, from int) bool {
	end := min(from+lookahead, len(stack))

	for i := from; i < end; i++ {
		if strings.HasPrefix(stack[i].Unit, InfrastructurePrefix) {
			return true
		}
	}

	return false
}
