package runner

import (
	"slices"

	"gooze.dev/pkg/testbench/internal/coverage"
	"gooze.dev/pkg/testbench/internal/fault"
)

// Collector turns execution reports into a typed result.
type Collector[R any] interface {
	Collect(req Request, report Report)
	Result() R
	Reset()
}

// SignatureCollector keeps the signature of the last execution.
type SignatureCollector struct {
	signature []string
}

// NewSignatureCollector returns an empty SignatureCollector.
func NewSignatureCollector() *SignatureCollector {
	return &SignatureCollector{}
}

// Collect implements Collector.
func (c *SignatureCollector) Collect(_ Request, report Report) {
	c.signature = slices.Clone(report.Signature)
}

// Result implements Collector.
func (c *SignatureCollector) Result() []string {
	return slices.Clone(c.signature)
}

// Reset implements Collector.
func (c *SignatureCollector) Reset() {
	c.signature = nil
}

// CoverageCollector accumulates def/exposure and fault coverage.
type CoverageCollector struct {
	exposure *coverage.DefExposure
	faults   *coverage.Faults
}

// NewCoverageCollector returns an empty CoverageCollector.
func NewCoverageCollector() *CoverageCollector {
	c := &CoverageCollector{}
	c.Reset()

	return c
}

// Collect implements Collector.
func (c *CoverageCollector) Collect(req Request, report Report) {
	for _, e := range report.Exposures {
		c.exposure.Add(e.Stack, e.Def)
	}

	for _, failure := range report.Faults {
		target := failure.Target
		if target == "" {
			target = req.Target
		}

		c.faults.Add(fault.New(failure, target))
	}
}

// Result implements Collector.
func (c *CoverageCollector) Result() coverage.Set {
	return coverage.NewSet(c.exposure, c.faults)
}

// Reset implements Collector.
func (c *CoverageCollector) Reset() {
	c.exposure = coverage.NewDefExposure()
	c.faults = coverage.NewFaults()
}
