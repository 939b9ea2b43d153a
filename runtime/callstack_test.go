package runtime

import (
	"errors"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

type named string

func (n named) FullName() string { return string(n) + "()" }

func TestCallStackPushPop(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.runtime")
	defer teardown()
	//
	cs := NewCallStack(0)
	s1, err := cs.Push(named("outer"))
	if err != nil {
		t.Fatal(err)
	}
	s2, _ := cs.Push(named("inner"))
	if cs.Depth() != 2 || cs.Top().FullName() != "inner()" {
		t.Errorf("expected inner() on top of 2 frames, have %d", cs.Depth())
	}
	names := cs.Names()
	if len(names) != 2 || names[0] != "inner()" || names[1] != "outer()" {
		t.Errorf("names should be innermost first, are %v", names)
	}
	s2.Release()
	s2.Release() // no-op
	if cs.Depth() != 1 {
		t.Errorf("double release popped twice")
	}
	s1.Release()
	if cs.Depth() != 0 || cs.Top() != nil {
		t.Errorf("stack not empty after releasing all slots")
	}
}

func TestCallStackLimit(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.runtime")
	defer teardown()
	//
	cs := NewCallStack(2)
	a, _ := cs.Push(named("a"))
	b, _ := cs.Push(named("b"))
	_, err := cs.Push(named("c"))
	var derr *DepthError
	if !errors.As(err, &derr) || derr.Limit != 2 {
		t.Fatalf("expected depth error, have %v", err)
	}
	if cs.Depth() != 2 {
		t.Errorf("failed push changed the depth to %d", cs.Depth())
	}
	b.Release()
	a.Release()
}

func TestCallStackReleaseOutOfOrderPanics(t *testing.T) {
	cs := NewCallStack(0)
	outer, _ := cs.Push(named("outer"))
	cs.Push(named("inner"))
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("releasing a slot below the top should panic")
		}
	}()
	outer.Release()
}

func TestCallStackBalancedUnderPanic(t *testing.T) {
	cs := NewCallStack(0)
	call := func() {
		slot, _ := cs.Push(named("boom"))
		defer slot.Release()
		panic("unwinding")
	}
	func() {
		defer func() { recover() }()
		call()
	}()
	if cs.Depth() != 0 {
		t.Errorf("panic left %d frames on the stack", cs.Depth())
	}
}
