package avm2

import (
	"errors"
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

// scripted is an interpreter running Go functions in place of bytecode.
type scripted map[MethodKey]func(act *Activation) (Value, error)

func (s scripted) Run(m *BytecodeMethod, act *Activation) (Value, error) {
	body, ok := s[m.Key()]
	if !ok {
		return Undefined, nil
	}
	return body(act)
}

func addMethod() *NativeMethod {
	return NewNativeMethod("add", func(act *Activation, this Object, args []Value) (Value, error) {
		return Number(ToNumber(args[0]) + ToNumber(args[1])), nil
	}, []ParamSpec{Param("a", "Number"), Param("b", "Number")}, false)
}

func TestNativeAdd(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.avm2")
	defer teardown()
	//
	avm := New()
	add := FromMethod(addMethod(), avm.GlobalChain(), nil, nil)
	v, err := add.Exec(nil, []Value{Int(2), Int(3)}, avm.RootActivation(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if v != Number(5) {
		t.Errorf("expected add(2,3) = 5, have %v", v)
	}
	_, err = add.Exec(nil, []Value{Int(2), Int(3), Int(4)}, avm.RootActivation(), nil)
	var arity *ArityError
	if !errors.As(err, &arity) {
		t.Fatalf("expected arity error, have %v", err)
	}
	if !strings.Contains(err.Error(), "3 arguments") || !strings.Contains(err.Error(), "2 is prohibited") {
		t.Errorf("unexpected message: %s", err)
	}
	if avm.CallStack().Depth() != 0 {
		t.Errorf("call stack not balanced: depth = %d", avm.CallStack().Depth())
	}
}

func TestNativeMissingArguments(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.avm2")
	defer teardown()
	//
	avm := New()
	var seen []Value
	m := NewNativeMethod("f", func(act *Activation, this Object, args []Value) (Value, error) {
		seen = args
		return Undefined, nil
	}, []ParamSpec{Param("a", "*"), OptionalParam("b", "int", Int(7)), Param("c", "*")}, false)
	exec := FromMethod(m, avm.GlobalChain(), nil, nil)
	if _, err := exec.Exec(nil, []Value{String("x")}, avm.RootActivation(), nil); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 3 || seen[0] != String("x") || seen[1] != Int(7) || seen[2] != Undefined {
		t.Errorf("unexpected binding %v", seen)
	}
}

func TestNativeVariadicRest(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.avm2")
	defer teardown()
	//
	avm := New()
	var rest *ArrayObject
	m := NewNativeMethod("log", func(act *Activation, this Object, args []Value) (Value, error) {
		rest = args[1].(*ArrayObject)
		return Undefined, nil
	}, []ParamSpec{Param("level", "int")}, true)
	exec := FromMethod(m, avm.GlobalChain(), nil, nil)
	args := []Value{Int(1), String("a"), String("b")}
	if _, err := exec.Exec(nil, args, avm.RootActivation(), nil); err != nil {
		t.Fatal(err)
	}
	if rest.Len() != 2 || rest.At(1) != String("b") {
		t.Errorf("expected rest [a b], have %v", rest)
	}
}

func TestCoercionErrorNamesParameter(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.avm2")
	defer teardown()
	//
	avm := New()
	m := NewNativeMethod("sum", func(act *Activation, this Object, args []Value) (Value, error) {
		t.Error("routine must not run after a coercion failure")
		return Undefined, nil
	}, []ParamSpec{Param("values", "Array")}, false)
	exec := FromMethod(m, avm.GlobalChain(), nil, nil)
	_, err := exec.Exec(nil, []Value{String("nope")}, avm.RootActivation(), nil)
	var cerr *CoercionError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected coercion error, have %v", err)
	}
	if cerr.Param != "values" || cerr.Method != "sum" {
		t.Errorf("coercion error does not name the parameter: %v", cerr)
	}
	if avm.CallStack().Depth() != 0 {
		t.Errorf("call stack not balanced")
	}
}

func TestCoercionToUnknownClassNamesParameter(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.avm2")
	defer teardown()
	//
	avm := New()
	m := NewNativeMethod("draw", func(act *Activation, this Object, args []Value) (Value, error) {
		t.Error("routine must not run after a coercion failure")
		return Undefined, nil
	}, []ParamSpec{Param("shape", "Shape")}, false)
	exec := FromMethod(m, avm.GlobalChain(), nil, nil)
	_, err := exec.Exec(nil, []Value{Int(1)}, avm.RootActivation(), nil)
	var cerr *CoercionError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected coercion error, have %v", err)
	}
	if cerr.Param != "shape" || cerr.Method != "draw" || cerr.Type != "Shape" || !cerr.Unresolved {
		t.Errorf("coercion error does not name the parameter: %+v", cerr)
	}
	if !strings.Contains(err.Error(), "#1014") || !strings.Contains(err.Error(), `"shape"`) {
		t.Errorf("unexpected message: %s", err)
	}
}

func TestNativeNilResultIsUndefined(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.avm2")
	defer teardown()
	//
	avm := New()
	m := NewNativeMethod("nothing", func(act *Activation, this Object, args []Value) (Value, error) {
		return nil, nil
	}, nil, false)
	v, err := FromMethod(m, avm.GlobalChain(), nil, nil).Exec(nil, nil, avm.RootActivation(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if v != Undefined {
		t.Errorf("expected undefined, have %v", v)
	}
}

func TestUncheckedBytecodeTruncates(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.avm2")
	defer teardown()
	//
	interp := scripted{}
	avm := New(WithInterpreter(interp))
	unit := NewTranslationUnit(avm.Domain())
	m := NewBytecodeMethod(unit, "first", []ParamSpec{Param("s", "String")}, Unchecked, nil)
	interp[m.Key()] = func(act *Activation) (Value, error) {
		if n := len(act.Arguments()); n != 1 {
			t.Errorf("expected 1 argument after truncation, have %d", n)
		}
		v, _ := act.Register(1)
		return v, nil
	}
	exec := FromMethod(m, avm.GlobalChain(), nil, nil)
	v, err := exec.Exec(nil, []Value{String("x"), String("y")}, avm.RootActivation(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if v != String("x") {
		t.Errorf("expected \"x\", have %v", v)
	}
}

func TestCheckedBytecodeArgumentCount(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.avm2")
	defer teardown()
	//
	avm := New(WithInterpreter(scripted{}))
	unit := NewTranslationUnit(avm.Domain())
	m := NewBytecodeMethod(unit, "two", []ParamSpec{Param("a", "*"), OptionalParam("b", "*", Null)}, 0, nil)
	exec := FromMethod(m, avm.GlobalChain(), nil, nil)
	for _, args := range [][]Value{{}, {Int(1), Int(2), Int(3)}} {
		_, err := exec.Exec(nil, args, avm.RootActivation(), nil)
		var aerr *ArgumentCountError
		if !errors.As(err, &aerr) {
			t.Fatalf("expected argument count error for %d args, have %v", len(args), err)
		}
		if aerr.Name != "MethodInfo-0()" {
			t.Errorf("unexpected method name %q", aerr.Name)
		}
	}
	if _, err := exec.Exec(nil, []Value{Int(1)}, avm.RootActivation(), nil); err != nil {
		t.Errorf("optional parameter may be omitted: %v", err)
	}
}

func TestBytecodeRestAndArguments(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.avm2")
	defer teardown()
	//
	interp := scripted{}
	avm := New(WithInterpreter(interp))
	unit := NewTranslationUnit(avm.Domain())
	rest := NewBytecodeMethod(unit, "rest", []ParamSpec{Param("a", "*")}, NeedRest, nil)
	args := NewBytecodeMethod(unit, "args", []ParamSpec{Param("a", "*")}, NeedArguments, nil)
	interp[rest.Key()] = func(act *Activation) (Value, error) {
		v, _ := act.Register(2)
		return v, nil
	}
	interp[args.Key()] = func(act *Activation) (Value, error) {
		v, _ := act.Resolve("arguments")
		return v, nil
	}
	supplied := []Value{Int(1), Int(2), Int(3)}
	v, err := FromMethod(rest, avm.GlobalChain(), nil, nil).Exec(nil, supplied, avm.RootActivation(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if a, ok := v.(*ArrayObject); !ok || a.Len() != 2 || a.At(0) != Int(2) {
		t.Errorf("expected rest array [2 3], have %v", v)
	}
	v, err = FromMethod(args, avm.GlobalChain(), nil, nil).Exec(nil, supplied[:1], avm.RootActivation(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if a, ok := v.(*ArrayObject); !ok || a.Len() != 1 {
		t.Errorf("expected arguments array [1], have %v", v)
	}
}

func TestReceiverPrecedence(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.avm2")
	defer teardown()
	//
	avm := New()
	r1, r2 := NewScriptObject(nil), NewScriptObject(nil)
	var observed Object
	m := NewNativeMethod("who", func(act *Activation, this Object, args []Value) (Value, error) {
		observed = this
		if act.This() != this {
			t.Errorf("activation and routine disagree on the receiver")
		}
		return Undefined, nil
	}, nil, false)
	bound := FromMethod(m, avm.GlobalChain(), r1, nil)
	if _, err := bound.Exec(r2, nil, avm.RootActivation(), nil); err != nil {
		t.Fatal(err)
	}
	if observed != r1 {
		t.Errorf("bound receiver must win over the caller's receiver")
	}
	unbound := FromMethod(m, avm.GlobalChain(), nil, nil)
	if _, err := unbound.Exec(r2, nil, avm.RootActivation(), nil); err != nil {
		t.Fatal(err)
	}
	if observed != r2 {
		t.Errorf("unbound executable must observe the caller's receiver")
	}
}

func TestBytecodeReceiverPrecedence(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.avm2")
	defer teardown()
	//
	interp := scripted{}
	avm := New(WithInterpreter(interp))
	unit := NewTranslationUnit(avm.Domain())
	m := NewBytecodeMethod(unit, "who", nil, 0, nil)
	r1, r2 := NewScriptObject(nil), NewScriptObject(nil)
	var observed Object
	interp[m.Key()] = func(act *Activation) (Value, error) {
		observed = act.This()
		return Undefined, nil
	}
	bound := FromMethod(m, avm.GlobalChain(), r1, nil)
	if _, err := bound.Exec(r2, nil, avm.RootActivation(), nil); err != nil {
		t.Fatal(err)
	}
	if observed != r1 {
		t.Errorf("bound receiver must win over the caller's receiver")
	}
	unbound := FromMethod(m, avm.GlobalChain(), nil, nil)
	if _, err := unbound.Exec(r2, nil, avm.RootActivation(), nil); err != nil {
		t.Fatal(err)
	}
	if observed != r2 {
		t.Errorf("unbound executable must observe the caller's receiver")
	}
}

func TestSuperclassFallback(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.avm2")
	defer teardown()
	//
	avm := New()
	base := NewClassObject(NewClassDef(QName{Local: "Base"}).Build(), nil, avm.GlobalChain())
	derived := NewClassObject(NewClassDef(QName{Local: "Derived"}).Extends(QName{Local: "Base"}).Build(),
		base, avm.GlobalChain())
	obj := NewScriptObject(derived)
	var bound *ClassObject
	m := NewNativeMethod("which", func(act *Activation, this Object, args []Value) (Value, error) {
		bound = act.BoundClass()
		return Undefined, nil
	}, nil, false)
	if _, err := FromMethod(m, avm.GlobalChain(), nil, nil).Exec(obj, nil, avm.RootActivation(), nil); err != nil {
		t.Fatal(err)
	}
	if bound != derived {
		t.Errorf("without bound superclass, super must resolve against the receiver's class")
	}
	exec := FromMethod(m, avm.GlobalChain(), nil, base)
	if exec.BoundSuperclass() != base {
		t.Errorf("BoundSuperclass does not return the bound class")
	}
	if _, err := exec.Exec(obj, nil, avm.RootActivation(), nil); err != nil {
		t.Fatal(err)
	}
	if bound != base {
		t.Errorf("bound superclass must take precedence")
	}
}

func TestFullName(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.avm2")
	defer teardown()
	//
	avm := New()
	unit := NewTranslationUnit(avm.Domain())
	cinit := NewBytecodeMethod(unit, "", nil, 0, nil)
	create := NewBytecodeMethod(unit, "create", nil, 0, nil)
	foo := NewBytecodeMethod(unit, "foo", nil, 0, nil)
	orphan := NewBytecodeMethod(unit, "", nil, 0, nil)
	def := NewClassDef(QName{Namespace: "flash.display", Local: "Shape"}).
		ClassInit(cinit).
		Static("create", TraitMethod, create).
		Instance("foo", foo).
		Build()
	class := NewClassObject(def, nil, avm.GlobalChain())
	bar := NewNativeMethod("bar", nil, nil, false)
	for i, c := range []struct {
		exec Executable
		name string
	}{
		{FromMethod(foo, class.Scope(), nil, class), "flash.display::Shape/foo()"},
		{FromMethod(cinit, class.Scope(), nil, class), "flash.display::Shape$cinit()"},
		{FromMethod(create, class.Scope(), nil, class), "flash.display::Shape$/create()"},
		{FromMethod(orphan, class.Scope(), nil, class), "flash.display::Shape/MethodInfo-3()"},
		{FromMethod(orphan, avm.GlobalChain(), nil, nil), "MethodInfo-3()"},
		{FromMethod(bar, avm.GlobalChain(), nil, nil), "bar()"},
		{FromMethod(bar, class.Scope(), nil, class), "flash.display::Shapebar()"},
	} {
		if name := c.exec.FullName(); name != c.name {
			t.Errorf("#%d: expected %q, have %q", i, c.name, name)
		}
	}
}

func TestNestedFailureKeepsLedgerBalanced(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.avm2")
	defer teardown()
	//
	interp := scripted{}
	avm := New(WithInterpreter(interp))
	unit := NewTranslationUnit(avm.Domain())
	thrown := &ThrownError{Value: String("boom")}
	b := NewBytecodeMethod(unit, "b", nil, 0, nil)
	interp[b.Key()] = func(act *Activation) (Value, error) {
		if d := act.Avm().CallStack().Depth(); d != 2 {
			t.Errorf("expected depth 2 inside b, have %d", d)
		}
		return nil, thrown
	}
	bExec := FromMethod(b, avm.GlobalChain(), nil, nil)
	a := NewNativeMethod("a", func(act *Activation, this Object, args []Value) (Value, error) {
		return bExec.Exec(nil, nil, act, nil)
	}, nil, false)
	aExec := FromMethod(a, avm.GlobalChain(), nil, nil)
	_, err := aExec.Exec(nil, nil, avm.RootActivation(), nil)
	if err != thrown {
		t.Errorf("error must surface unchanged, have %v", err)
	}
	if avm.CallStack().Depth() != 0 {
		t.Errorf("ledger depth %d after failed call", avm.CallStack().Depth())
	}
}

func TestPanicKeepsLedgerBalanced(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.avm2")
	defer teardown()
	//
	avm := New()
	m := NewNativeMethod("explode", func(act *Activation, this Object, args []Value) (Value, error) {
		panic("host routine failed")
	}, nil, false)
	func() {
		defer func() { recover() }()
		FromMethod(m, avm.GlobalChain(), nil, nil).Exec(nil, nil, avm.RootActivation(), nil)
	}()
	if avm.CallStack().Depth() != 0 {
		t.Errorf("ledger depth %d after panic", avm.CallStack().Depth())
	}
}

func TestRecursionLimit(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.avm2")
	defer teardown()
	//
	avm := New(WithMaxCallDepth(16))
	var self Executable
	calls := 0
	m := NewNativeMethod("recurse", func(act *Activation, this Object, args []Value) (Value, error) {
		calls++
		return self.Exec(nil, nil, act, nil)
	}, nil, false)
	self = FromMethod(m, avm.GlobalChain(), nil, nil)
	_, err := avm.Call(self, nil, nil)
	var rerr *RecursionError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected recursion error, have %v", err)
	}
	if calls != 16 {
		t.Errorf("expected 16 calls before overflow, have %d", calls)
	}
	if avm.CallStack().Depth() != 0 {
		t.Errorf("ledger depth %d after overflow", avm.CallStack().Depth())
	}
}

func TestUncaughtErrorCarriesInnermostTrace(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.avm2")
	defer teardown()
	//
	interp := scripted{}
	avm := New(WithInterpreter(interp), WithTraceFrames(0))
	unit := NewTranslationUnit(avm.Domain())
	inner := NewBytecodeMethod(unit, "inner", nil, 0, nil)
	def := NewClassDef(QName{Local: "Thrower"}).Instance("inner", inner).Build()
	class := NewClassObject(def, nil, avm.GlobalChain())
	interp[inner.Key()] = func(act *Activation) (Value, error) {
		return nil, &ThrownError{Value: String("bad")}
	}
	innerExec := FromMethod(inner, class.Scope(), nil, class)
	outer := NewNativeMethod("outer", func(act *Activation, this Object, args []Value) (Value, error) {
		return innerExec.Exec(this, nil, act, nil)
	}, nil, false)
	_, err := avm.Call(FromMethod(outer, avm.GlobalChain(), nil, nil), NewScriptObject(class), nil)
	var uncaught *UncaughtError
	if !errors.As(err, &uncaught) {
		t.Fatalf("expected uncaught error, have %v", err)
	}
	var thrown *ThrownError
	if !errors.As(err, &thrown) {
		t.Errorf("uncaught error must wrap the thrown error")
	}
	names := uncaught.Trace.Names()
	if len(names) != 2 || names[0] != "Thrower/inner()" || names[1] != "outer()" {
		t.Errorf("unexpected trace %v", names)
	}
	t.Logf("trace:\n%s", uncaught.Trace)
}

func TestInnermostTraceSurvivesLaterSuccess(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.avm2")
	defer teardown()
	//
	interp := scripted{}
	avm := New(WithInterpreter(interp), WithTraceFrames(0))
	unit := NewTranslationUnit(avm.Domain())
	inner := NewBytecodeMethod(unit, "inner", nil, 0, nil)
	interp[inner.Key()] = func(act *Activation) (Value, error) {
		return nil, &ThrownError{Value: String("bad")}
	}
	innerExec := FromMethod(inner, avm.GlobalChain(), nil, nil)
	cleanup := FromMethod(NewNativeMethod("cleanup", func(act *Activation, this Object, args []Value) (Value, error) {
		return Undefined, nil
	}, nil, false), avm.GlobalChain(), nil, nil)
	outer := NewNativeMethod("outer", func(act *Activation, this Object, args []Value) (Value, error) {
		_, err := innerExec.Exec(this, nil, act, nil)
		if _, cerr := cleanup.Exec(this, nil, act, nil); cerr != nil {
			t.Errorf("cleanup failed: %v", cerr)
		}
		return nil, err
	}, nil, false)
	_, err := avm.Call(FromMethod(outer, avm.GlobalChain(), nil, nil), nil, nil)
	var uncaught *UncaughtError
	if !errors.As(err, &uncaught) {
		t.Fatalf("expected uncaught error, have %v", err)
	}
	names := uncaught.Trace.Names()
	if len(names) != 2 || names[0] != "MethodInfo-0()" || names[1] != "outer()" {
		t.Errorf("expected trace [MethodInfo-0() outer()], have %v", names)
	}
	if avm.CallStack().Depth() != 0 {
		t.Errorf("call stack not balanced")
	}
}

func TestDebugAssertionOnBorrowedObject(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.avm2")
	defer teardown()
	//
	avm := New(WithDebugAssertions(true))
	m := NewNativeMethod("noop", func(act *Activation, this Object, args []Value) (Value, error) {
		return Undefined, nil
	}, nil, false)
	exec := FromMethod(m, avm.GlobalChain(), nil, nil)
	release := avm.BorrowMut(NewScriptObject(nil))
	func() {
		defer func() {
			r := recover()
			if _, ok := r.(*LogicError); !ok {
				t.Errorf("expected logic error panic, have %v", r)
			}
		}()
		exec.Exec(nil, nil, avm.RootActivation(), nil)
	}()
	release()
	if _, err := exec.Exec(nil, nil, avm.RootActivation(), nil); err != nil {
		t.Errorf("call after release failed: %v", err)
	}
}
