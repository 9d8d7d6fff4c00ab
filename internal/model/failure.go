package model

import "fmt"

// Frame is one element of a call stack.
type Frame struct {
	Unit   string
	Member string
	Source string
	Line   int32
}

// String renders the frame the way stack traces print it.
func (f Frame) String() string {
	return fmt.Sprintf("%s.%s(%s:%d)", f.Unit, f.Member, f.Source, f.Line)
}

// FailureKind classifies failures that need special stack handling.
type FailureKind int

const (
	// FailureOrdinary is any failure raised by the program under test.
	FailureOrdinary FailureKind = iota
	// FailureStackOverflow is a stack-exhaustion failure.
	FailureStackOverflow
	// FailureTimeout is raised when an execution is stopped for exceeding its budget.
	FailureTimeout
)

// Failure is a captured runtime failure. Stack is ordered innermost call first.
type Failure struct {
	Type    string
	Message string
	Kind    FailureKind
	Cause   *Failure
	Stack   []Frame
	// Target is the unit under test whose operation failed.
	Target string
	// Capture re-captures the stack when it was not populated eagerly.
	Capture func() []Frame
}

// Error implements error.
func (f *Failure) Error() string {
	if f.Message == "" {
		return f.Type
	}

	return f.Type + ": " + f.Message
}

// RecursionSensitive reports whether the stack may contain a recursion that
// must be collapsed before comparing faults.
func (f *Failure) RecursionSensitive() bool {
	if f.Kind == FailureTimeout || f.Kind == FailureStackOverflow {
		return true
	}

	return f.Cause != nil && f.Cause.Kind == FailureStackOverflow
}
