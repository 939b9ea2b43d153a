package avm2

import (
	"fmt"
	"strings"

	"github.com/emergence75/ruffle-clone/runtime"
)

// DefaultTraceFrames is the number of frames kept at either end of a long
// stack trace when it is rendered.
const DefaultTraceFrames = 8

// StackTrace is a snapshot of the call stack, innermost frame first. Frame
// names are computed only when the trace is rendered.
type StackTrace struct {
	frames []runtime.Frame
	keep   int
}

func newStackTrace(frames []runtime.Frame, keep int) *StackTrace {
	return &StackTrace{frames: frames, keep: keep}
}

// Len returns the number of frames in the trace.
func (st *StackTrace) Len() int {
	if st == nil {
		return 0
	}
	return len(st.frames)
}

// Names returns the full names of all frames, innermost first.
func (st *StackTrace) Names() []string {
	names := make([]string, st.Len())
	for i := range names {
		names[i] = st.frames[i].FullName()
	}
	return names
}

// Lines renders the trace as "at Name()" lines. Long traces keep the
// innermost and outermost frames and elide the middle.
func (st *StackTrace) Lines() []string {
	n := st.Len()
	if n == 0 {
		return nil
	}
	at := func(f runtime.Frame) string { return "\tat " + f.FullName() }
	lines := make([]string, 0, n)
	if st.keep <= 0 || n <= 2*st.keep {
		for _, f := range st.frames {
			lines = append(lines, at(f))
		}
		return lines
	}
	for _, f := range st.frames[:st.keep] {
		lines = append(lines, at(f))
	}
	lines = append(lines, fmt.Sprintf("\t... %d frames omitted ...", n-2*st.keep))
	for _, f := range st.frames[n-st.keep:] {
		lines = append(lines, at(f))
	}
	return lines
}

func (st *StackTrace) String() string {
	return strings.Join(st.Lines(), "\n")
}
