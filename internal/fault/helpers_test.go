package fault

import (
	"fmt"

	m "gooze.dev/pkg/testbench/internal/model"
)

func frame(unit, member string, line int32) m.Frame {
	return m.Frame{Unit: unit, Member: member, Source: unit + ".yaml", Line: line}
}

// distinctFrames returns n frames that differ from each other and from any
// frame built by frame() with the "cycle" unit.
func distinctFrames(prefix string, n int) []m.Frame {
	frames := make([]m.Frame, n)
	for i := range frames {
		frames[i] = frame(prefix, fmt.Sprintf("call%d", i), int32(i+1))
	}

	return frames
}

// framesFromInts maps small integers onto a tiny frame alphabet, so random
// stacks contain plenty of repetitions.
func framesFromInts(ids []int) []m.Frame {
	frames := make([]m.Frame, len(ids))
	for i, id := range ids {
		frames[i] = frame("app.Unit", fmt.Sprintf("m%d", id), int32(id))
	}

	return frames
}
