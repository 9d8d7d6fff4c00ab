package loader

import (
	"slices"
	"strings"

	m "gooze.dev/pkg/testbench/internal/model"
)

// Policy decides whether a unit is served by the host environment or loaded
// from the code source. Rules are evaluated in field order and the first
// match wins; unmatched names prefer the host.
type Policy struct {
	HostNames      []string
	RemoteNames    []string
	HostPrefixes   []string
	RemotePrefixes []string
}

// DefaultPolicy returns the built-in rules: shared data types come from the
// host, while trackers, executors and the registry are loaded remotely so
// each context gets its own copy.
func DefaultPolicy() Policy {
	return Policy{
		HostNames: []string{
			"testbench.coverage.TrackerDatum",
			"testbench.model.Registry",
		},
		RemoteNames: []string{
			"testbench.coverage.Tracker",
			"testbench.coverage.behavior.BehaviorTracker",
			"testbench.coverage.fault.FaultTracker",
			"testbench.coverage.stopper.Stopper",
			"testbench.coverage.whitebox.TrackerWhiteBox",
			"testbench.runner.Executor",
			"testbench.mutation.MutationExecutor",
			"testbench.model.executor.ProgramExecutor",
			"testbench.coverage.CoverageExecutor",
			"testbench.model.OperationResultExecutor",
			"testbench.model.executor.ExprExecutor",
			"testbench.model.UnitRegistry",
			"testbench.runner.ObjectRegistry",
		},
		HostPrefixes: []string{
			"testbench.model.OperationResult",
		},
		RemotePrefixes: []string{
			"testbench.coverage.behavior.Abstractor",
			"github.com/expr-lang/expr",
		},
	}
}

// With returns a copy of p with extra prefixes appended.
func (p Policy) With(hostPrefixes, remotePrefixes []string) Policy {
	return Policy{
		HostNames:      slices.Clone(p.HostNames),
		RemoteNames:    slices.Clone(p.RemoteNames),
		HostPrefixes:   append(slices.Clone(p.HostPrefixes), hostPrefixes...),
		RemotePrefixes: append(slices.Clone(p.RemotePrefixes), remotePrefixes...),
	}
}

// Origin returns where name must be resolved.
func (p Policy) Origin(name string) m.Origin {
	if slices.Contains(p.HostNames, name) {
		return m.OriginHost
	}

	if slices.Contains(p.RemoteNames, name) {
		return m.OriginRemote
	}

	if hasPrefix(name, p.HostPrefixes) {
		return m.OriginHost
	}

	if hasPrefix(name, p.RemotePrefixes) {
		return m.OriginRemote
	}

	return m.OriginHost
}

func hasPrefix(name string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}

	return false
}
