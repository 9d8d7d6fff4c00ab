package fault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	m "gooze.dev/pkg/testbench/internal/model"
)

func TestPrune_DropsFramesOutsideOutermostTargetFrame(t *testing.T) {
	stack := []m.Frame{
		frame("app.Stack", "pop", 10),
		frame("app.Stack", "peek", 20),
		frame("app.Stack", "check", 30),
		frame("harness.Runner", "run", 1),
		frame("harness.Main", "main", 2),
	}

	got := Prune(stack, "app.Stack")

	assert.Equal(t, stack[:3], got)
}

func TestPrune_TargetMissingKeepsWholeStack(t *testing.T) {
	stack := distinctFrames("app.Other", 4)

	got := Prune(stack, "app.Stack")

	assert.Equal(t, stack, got)
}

func TestPrune_EmptyTargetKeepsWholeStack(t *testing.T) {
	stack := distinctFrames("app.Other", 3)

	assert.Equal(t, stack, Prune(stack, ""))
}

func TestPrune_StripsLeadingInfrastructureFrames(t *testing.T) {
	stack := []m.Frame{
		frame("testbench.coverage.Tracker", "track", 1),
		frame("testbench.coverage.Tracker", "record", 2),
	}
	stack = append(stack, distinctFrames("app.Stack", 12)...)

	got := Prune(stack, "")

	assert.Equal(t, stack[2:], got)
}

func TestPrune_LookaheadStripsInterleavedFrames(t *testing.T) {
	// a user frame sandwiched between infrastructure frames is still inside
	// the lookahead window of the second infrastructure frame
	stack := []m.Frame{
		frame("testbench.runner.Executor", "run", 1),
		frame("app.Stack", "push", 2),
		frame("testbench.runner.Executor", "step", 3),
	}
	user := distinctFrames("app.Stack", 12)
	stack = append(stack, user...)

	got := Prune(stack, "")

	assert.Equal(t, user, got)
}

func TestPrune_InfrastructureBeyondLookaheadKeepsFrame(t *testing.T) {
	user := distinctFrames("app.Stack", 11)
	stack := append(append([]m.Frame{}, user...), frame("testbench.harness.Main", "main", 1))

	got := Prune(stack, "")

	// frame 0 sees frames 0..10 only, none of them infrastructure
	assert.Equal(t, stack, got)
}

func TestPrune_InfrastructureOnlyStackBecomesEmpty(t *testing.T) {
	stack := []m.Frame{
		frame("testbench.runner.Executor", "run", 1),
		frame("testbench.runner.Executor", "step", 2),
	}

	assert.Empty(t, Prune(stack, ""))
}
