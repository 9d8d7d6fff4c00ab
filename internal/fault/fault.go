// Package fault turns captured failures into comparable fault identities.
//
// Two failures are the same fault when they share the error type, the cause
// type and the pruned call stack; messages are informational only.
package fault

import (
	"log/slog"
	"slices"

	"github.com/cespare/xxhash/v2"

	m "gooze.dev/pkg/testbench/internal/model"
)

// Fault is the identity of a runtime failure. It is immutable once built and
// its hash is computed at construction.
type Fault struct {
	typeName     string
	message      string
	stack        []m.Frame
	causeType    string
	causeMessage string
	hasCause     bool
	hasCauseMsg  bool
	hash         uint64
}

// New builds the identity of failure raised while exercising target.
func New(failure *m.Failure, target string) Fault {
	f := Fault{
		typeName: failure.Type,
		message:  failure.Message,
		stack:    processStack(failure, target),
	}

	if failure.Cause != nil {
		f.hasCause = true
		f.causeType = failure.Cause.Type
		f.causeMessage = failure.Cause.Message
		f.hasCauseMsg = failure.Cause.Message != ""
	}

	f.hash = f.computeHash()

	return f
}

func newDecoded(typeName, message string, stack []m.Frame, hasCause bool, causeType string, hasCauseMsg bool, causeMessage string) Fault {
	f := Fault{
		typeName:     typeName,
		message:      message,
		stack:        stack,
		hasCause:     hasCause,
		causeType:    causeType,
		hasCauseMsg:  hasCauseMsg,
		causeMessage: causeMessage,
	}
	f.hash = f.computeHash()

	return f
}

func processStack(failure *m.Failure, target string) []m.Frame {
	stack := failure.Stack
	if len(stack) == 0 && failure.Capture != nil {
		slog.Debug("Empty stack trace, capturing again", "type", failure.Type)
		stack = failure.Capture()
	}

	if len(stack) == 0 {
		return []m.Frame{}
	}

	pruned := Prune(stack, target)
	if failure.RecursionSensitive() {
		return Simplify(pruned)
	}

	return pruned
}

func (f Fault) computeHash() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(f.typeName)
	_, _ = d.Write([]byte{0})

	for _, frame := range f.stack {
		_, _ = d.WriteString(frame.String())
		_, _ = d.Write([]byte{0})
	}

	if f.hasCause {
		_, _ = d.Write([]byte{1})
		_, _ = d.WriteString(f.causeType)
	}

	return d.Sum64()
}

// Type returns the error type name.
func (f Fault) Type() string { return f.typeName }

// Message returns the error message.
func (f Fault) Message() string { return f.message }

// Cause returns the cause type name and whether a cause exists.
func (f Fault) Cause() (string, bool) { return f.causeType, f.hasCause }

// CauseMessage returns the cause message and whether one was recorded.
func (f Fault) CauseMessage() (string, bool) { return f.causeMessage, f.hasCauseMsg }

// Stack returns a copy of the pruned stack.
func (f Fault) Stack() []m.Frame { return slices.Clone(f.stack) }

// Hash returns the precomputed identity hash.
func (f Fault) Hash() uint64 { return f.hash }

// Equal compares error type, pruned stack and cause type.
func (f Fault) Equal(other Fault) bool {
	if f.hash != other.hash {
		return false
	}

	if f.typeName != other.typeName || f.hasCause != other.hasCause || f.causeType != other.causeType {
		return false
	}

	return slices.Equal(f.stack, other.stack)
}

func (f Fault) String() string {
	if f.message == "" {
		return f.typeName
	}

	return f.typeName + ": " + f.message
}
