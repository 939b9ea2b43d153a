package runtime

import (
	"fmt"

	"github.com/emirpasic/gods/stacks/arraystack"
)

// This module implements the call-stack ledger.
// The ledger records which callables are in flight, innermost last. It is
// used for stack traces and for bounding recursion. It does not own
// activations, only lightweight references to the callables executing.

// Frame is an entry of the call stack. Frames are named lazily: FullName is
// called only when a trace is rendered.
type Frame interface {
	FullName() string
}

// DepthError is returned by Push if the call stack is full.
type DepthError struct {
	Limit int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("call depth limit of %d exceeded", e.Limit)
}

// CallStack is the ledger of in-flight calls.
//
// A CallStack is not safe for concurrent use. Readers on other goroutines
// will have to synchronize with the goroutine running the VM.
type CallStack struct {
	frames *arraystack.Stack
	limit  int // maximum depth, 0 = unlimited
}

// NewCallStack creates an empty call stack, refusing pushes beyond limit
// frames. A limit ≤ 0 means no limit.
func NewCallStack(limit int) *CallStack {
	if limit < 0 {
		limit = 0
	}
	return &CallStack{
		frames: arraystack.New(),
		limit:  limit,
	}
}

// Limit returns the maximum depth of the stack (0 for no limit).
func (cs *CallStack) Limit() int {
	return cs.limit
}

// Depth returns the number of frames currently on the stack.
func (cs *CallStack) Depth() int {
	return cs.frames.Size()
}

// Top returns the innermost frame, or nil for an empty stack.
func (cs *CallStack) Top() Frame {
	f, ok := cs.frames.Peek()
	if !ok {
		return nil
	}
	return f.(Frame)
}

// Push pushes frame f and returns a slot for it. Clients must release the
// slot exactly once, usually with
//
//     slot, err := stack.Push(f)
//     if err != nil { … }
//     defer slot.Release()
//
// Push fails with a *DepthError if the stack is full; nothing has been pushed
// in this case.
func (cs *CallStack) Push(f Frame) (*Slot, error) {
	if cs.limit > 0 && cs.frames.Size() >= cs.limit {
		tracer().Errorf("call stack overflow at depth %d", cs.frames.Size())
		return nil, &DepthError{Limit: cs.limit}
	}
	cs.frames.Push(f)
	tracer().P("depth", cs.frames.Size()).Debugf("push call")
	return &Slot{stack: cs, depth: cs.frames.Size()}, nil
}

// Snapshot returns the frames of the stack, innermost first.
func (cs *CallStack) Snapshot() []Frame {
	values := cs.frames.Values()
	frames := make([]Frame, len(values))
	for i, v := range values {
		frames[i] = v.(Frame)
	}
	return frames
}

// Names renders the frames of the stack, innermost first.
func (cs *CallStack) Names() []string {
	frames := cs.Snapshot()
	names := make([]string, len(frames))
	for i, f := range frames {
		names[i] = f.FullName()
	}
	return names
}

// ---------------------------------------------------------------------------

// Slot is a scoped acquisition of a call-stack entry.
type Slot struct {
	stack    *CallStack
	depth    int
	released bool
}

// Depth returns the depth of the stack with this slot on top.
func (s *Slot) Depth() int {
	return s.depth
}

// Release pops the slot's frame. Releasing a slot twice is a no-op.
// Releasing a slot which is not on top of the stack is a programming error
// and panics: every later stack trace would be corrupt.
func (s *Slot) Release() {
	if s == nil || s.released {
		return
	}
	if s.stack.frames.Size() != s.depth {
		panic(fmt.Sprintf("unbalanced call stack: releasing slot at depth %d, stack depth is %d",
			s.depth, s.stack.frames.Size()))
	}
	s.stack.frames.Pop()
	s.released = true
	tracer().P("depth", s.depth-1).Debugf("pop call")
}
