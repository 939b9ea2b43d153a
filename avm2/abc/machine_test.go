package abc

import (
	"errors"
	"testing"

	"github.com/emergence75/ruffle-clone/avm2"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func newSession(opts ...avm2.Option) (*avm2.Avm2, *avm2.TranslationUnit) {
	avm := avm2.New(append([]avm2.Option{avm2.WithInterpreter(NewMachine())}, opts...)...)
	return avm, avm2.NewTranslationUnit(avm.Domain())
}

func mustMethod(t *testing.T, unit *avm2.TranslationUnit, name string, sig []avm2.ParamSpec,
	flags avm2.MethodFlags, src string) *avm2.BytecodeMethod {
	//
	t.Helper()
	m, err := NewMethod(unit, name, sig, flags, src)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func run(t *testing.T, avm *avm2.Avm2, m *avm2.BytecodeMethod, this avm2.Object, args ...avm2.Value) avm2.Value {
	t.Helper()
	v, err := avm.Call(avm2.FromMethod(m, avm.GlobalChain(), nil, nil), this, args)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestLoop(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.abc")
	defer teardown()
	//
	avm, unit := newSession()
	sum := mustMethod(t, unit, "sum", []avm2.ParamSpec{avm2.Param("n", "int")}, 0, `
	    pushbyte 0
	    setlocal_2         ; acc = 0
	loop:
	    getlocal_2
	    getlocal_1
	    add
	    setlocal_2         ; acc += n
	    getlocal_1
	    pushbyte 1
	    subtract
	    dup
	    setlocal_1         ; n -= 1
	    pushbyte 0
	    greaterthan
	    iftrue loop
	    getlocal_2
	    returnvalue
	`)
	if v := run(t, avm, sum, nil, avm2.Int(10)); v != avm2.Number(55) {
		t.Errorf("expected 55, have %v", v)
	}
}

func TestUncheckedTruncation(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.abc")
	defer teardown()
	//
	avm, unit := newSession()
	echo := mustMethod(t, unit, "echo", []avm2.ParamSpec{avm2.Param("s", "*")}, avm2.Unchecked, `
	    getlocal_1
	    returnvalue
	`)
	if v := run(t, avm, echo, nil, avm2.String("x"), avm2.String("y")); v != avm2.String("x") {
		t.Errorf("expected \"x\", have %v", v)
	}
}

func buildHierarchy(t *testing.T, avm *avm2.Avm2, unit *avm2.TranslationUnit) (base, derived *avm2.ClassObject) {
	baseGreet := mustMethod(t, unit, "greet", nil, 0, `
	    pushstring "base"
	    returnvalue
	`)
	derivedGreet := mustMethod(t, unit, "greet", nil, 0, `
	    getlocal_0
	    callsuper greet 0
	    pushstring "+derived"
	    add
	    returnvalue
	`)
	base = avm2.NewClassObject(avm2.NewClassDef(avm2.QName{Local: "Base"}).
		Instance("greet", baseGreet).Build(), nil, avm.GlobalChain())
	derived = avm2.NewClassObject(avm2.NewClassDef(avm2.QName{Local: "Derived"}).
		Extends(avm2.QName{Local: "Base"}).
		Instance("greet", derivedGreet).Build(), base, avm.GlobalChain())
	for _, c := range []*avm2.ClassObject{base, derived} {
		if err := avm.RegisterClass(c); err != nil {
			t.Fatal(err)
		}
	}
	return
}

func TestCallSuper(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.abc")
	defer teardown()
	//
	avm, unit := newSession()
	_, derived := buildHierarchy(t, avm, unit)
	caller := mustMethod(t, unit, "caller", nil, 0, `
	    getlocal_0
	    callproperty greet 0
	    returnvalue
	`)
	obj := avm2.NewScriptObject(derived)
	if v := run(t, avm, caller, obj); v != avm2.String("base+derived") {
		t.Errorf("expected \"base+derived\", have %v", v)
	}
}

func TestClosureSuperFallsBackToReceiverClass(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.abc")
	defer teardown()
	//
	avm, unit := newSession()
	_, derived := buildHierarchy(t, avm, unit)
	mustMethod(t, unit, "closure", nil, 0, `
	    getlocal_0
	    callsuper greet 0
	    returnvalue
	`)
	maker := mustMethod(t, unit, "maker", nil, 0, `
	    newfunction closure
	    getlocal_0
	    call 0
	    returnvalue
	`)
	obj := avm2.NewScriptObject(derived)
	if v := run(t, avm, maker, obj); v != avm2.String("base") {
		t.Errorf("expected super of receiver's class to answer \"base\", have %v", v)
	}
}

func TestClosureCapturesLocals(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.abc")
	defer teardown()
	//
	avm, unit := newSession()
	mustMethod(t, unit, "inner", nil, 0, `
	    getlex greeting
	    returnvalue
	`)
	outer := mustMethod(t, unit, "outer", []avm2.ParamSpec{avm2.Param("greeting", "String")}, 0, `
	    newfunction inner
	    pushnull
	    call 0
	    returnvalue
	`)
	if v := run(t, avm, outer, nil, avm2.String("hello")); v != avm2.String("hello") {
		t.Errorf("closure must see the parameters of its defining call, have %v", v)
	}
}

func TestThrowPropagates(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.abc")
	defer teardown()
	//
	avm, unit := newSession()
	mustMethod(t, unit, "fails", nil, 0, `
	    pushstring "oops"
	    throw
	`)
	outer := mustMethod(t, unit, "outer", nil, 0, `
	    newfunction fails
	    pushnull
	    call 0
	    returnvalue
	`)
	_, err := avm.Call(avm2.FromMethod(outer, avm.GlobalChain(), nil, nil), nil, nil)
	var thrown *avm2.ThrownError
	if !errors.As(err, &thrown) || thrown.Value != avm2.String("oops") {
		t.Fatalf("expected thrown \"oops\", have %v", err)
	}
	var uncaught *avm2.UncaughtError
	if !errors.As(err, &uncaught) || uncaught.Trace.Len() != 2 {
		t.Errorf("expected uncaught error with 2 frames")
	}
	if avm.CallStack().Depth() != 0 {
		t.Errorf("ledger depth %d after throw", avm.CallStack().Depth())
	}
}

func TestReferenceAndIllegalOpcode(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.abc")
	defer teardown()
	//
	avm, unit := newSession()
	lex := mustMethod(t, unit, "lex", nil, 0, "getlex nothing\nreturnvalue\n")
	_, err := avm.Call(avm2.FromMethod(lex, avm.GlobalChain(), nil, nil), nil, nil)
	var rerr *ReferenceError
	if !errors.As(err, &rerr) || rerr.Name != "nothing" {
		t.Errorf("expected reference error, have %v", err)
	}
	bad := avm2.NewBytecodeMethod(unit, "bad", nil, 0, []byte{byte(OpPushTrue), 0xfe})
	_, err = avm.Call(avm2.FromMethod(bad, avm.GlobalChain(), nil, nil), nil, nil)
	var ierr *IllegalOpcodeError
	if !errors.As(err, &ierr) || ierr.PC != 1 {
		t.Errorf("expected illegal opcode at offset 1, have %v", err)
	}
	under := avm2.NewBytecodeMethod(unit, "under", nil, 0, []byte{byte(OpPop)})
	_, err = avm.Call(avm2.FromMethod(under, avm.GlobalChain(), nil, nil), nil, nil)
	var verr *VerifyError
	if !errors.As(err, &verr) {
		t.Errorf("expected verify error, have %v", err)
	}
}
