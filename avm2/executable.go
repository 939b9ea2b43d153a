package avm2

import (
	"fmt"
	"strings"

	"github.com/emergence75/ruffle-clone/runtime"
)

// ExecutableKind tells native executables from bytecode ones.
type ExecutableKind uint8

// Kinds of executables.
const (
	KindNative ExecutableKind = iota + 1 // host routine
	KindAction                           // bytecode method
)

func (k ExecutableKind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindAction:
		return "action"
	}
	return "<invalid>"
}

// Executable is a callable unit: a method descriptor bound to the scope chain
// it closes over, and optionally to a receiver and a superclass.
//
// An Executable is a small value. Copies share the method descriptor and the
// scope chain and differ only in the receiver and superclass they bind.
// If superclass is nil, the method was not defined as part of a class body
// and `super` operations fall back to the receiver's class.
type Executable struct {
	kind       ExecutableKind
	native     *NativeMethod
	bytecode   *BytecodeMethod
	scope      runtime.ScopeChain
	receiver   Object
	superclass *ClassObject
}

var _ runtime.Frame = Executable{}

// FromMethod converts a method into an executable. receiver and superclass may
// be nil.
func FromMethod(m Method, scope runtime.ScopeChain, receiver Object, superclass *ClassObject) Executable {
	switch m := m.(type) {
	case *NativeMethod:
		return Executable{kind: KindNative, native: m, scope: scope, receiver: receiver, superclass: superclass}
	case *BytecodeMethod:
		return Executable{kind: KindAction, bytecode: m, scope: scope, receiver: receiver, superclass: superclass}
	}
	panic(fmt.Sprintf("cannot create executable from method %T", m))
}

// Kind returns the kind of the executable.
func (e Executable) Kind() ExecutableKind { return e.kind }

// IsValid is a predicate: has the executable been created by FromMethod?
func (e Executable) IsValid() bool { return e.kind != 0 }

// Method returns the method descriptor.
func (e Executable) Method() Method {
	if e.kind == KindNative {
		return e.native
	}
	return e.bytecode
}

// Scope returns the captured scope chain.
func (e Executable) Scope() runtime.ScopeChain { return e.scope }

// Receiver returns the bound receiver, or nil for an unbound executable.
func (e Executable) Receiver() Object { return e.receiver }

// BoundSuperclass returns the class which defined the method, or nil.
func (e Executable) BoundSuperclass() *ClassObject { return e.superclass }

// Exec calls the executable.
//
// The receiver is the bound receiver, if any, otherwise unbound. args are
// conformed to the declared parameters of the method. caller is the calling
// activation; callee is the function object being called (may be nil) and is
// made available to bytecode for self-referential constructs.
//
// Every call is recorded on the session's call stack for its duration, no
// matter how it ends. With debug assertions enabled, it is a panicking logic
// error to call Exec while an object is exclusively borrowed.
func (e Executable) Exec(unbound Object, args []Value, caller *Activation, callee Object) (Value, error) {
	avm := caller.avm
	avm.assertUnborrowed(e)
	switch e.kind {
	case KindNative:
		return e.execNative(avm, unbound, args, caller)
	case KindAction:
		return e.execAction(avm, unbound, args, callee)
	}
	panic("call of invalid executable")
}

func (e Executable) execNative(avm *Avm2, unbound Object, args []Value, caller *Activation) (Value, error) {
	m := e.native
	receiver := e.receiver
	if receiver == nil {
		receiver = unbound
	}
	if len(args) > len(m.Signature) && !m.IsVariadic {
		err := &ArityError{Name: m.Name, Got: len(args), Max: len(m.Signature)}
		tracer().Errorf("%v", err)
		return avm.settle(nil, err)
	}
	act := NewBuiltinActivation(avm, receiver, e.superclass, e.scope, caller.CallerDomain())
	bound, err := act.bindParameters(m.Name, args, m.Signature, m.IsVariadic)
	if err != nil {
		return avm.settle(nil, err)
	}
	slot, err := avm.pushCall(e)
	if err != nil {
		return avm.settle(nil, err)
	}
	defer slot.Release()
	return avm.settle(m.Fn(act, receiver, bound))
}

func (e Executable) execAction(avm *Avm2, unbound Object, args []Value, callee Object) (Value, error) {
	m := e.bytecode
	if m.IsUnchecked() && !m.Variadic() && len(args) > len(m.Signature) {
		args = args[:len(m.Signature)]
	}
	receiver := e.receiver
	if receiver == nil {
		receiver = unbound
	}
	if err := checkArgumentCount(m, len(args)); err != nil {
		err.Name = e.FullName()
		tracer().Errorf("%v", err)
		return avm.settle(nil, err)
	}
	act, err := NewMethodActivation(avm, m, e.scope, receiver, args, e.superclass, callee)
	if err != nil {
		return avm.settle(nil, err)
	}
	slot, err := avm.pushCall(e)
	if err != nil {
		return avm.settle(nil, err)
	}
	defer slot.Release()
	if avm.interp == nil {
		return avm.settle(nil, fmt.Errorf("no interpreter to run %s", m))
	}
	return avm.settle(avm.interp.Run(m, act))
}

// FullName reconstructs a name for diagnostics, e.g. "pkg::Shape/draw()".
// It searches the trait tables of the bound superclass and must not be called
// on the hot path of a call.
func (e Executable) FullName() string {
	var b strings.Builder
	var def *ClassDef
	if e.superclass != nil {
		def = e.superclass.Definition()
		b.WriteString(def.Name().Qualified())
	}
	switch e.kind {
	case KindNative:
		b.WriteString(e.native.Name)
	case KindAction:
		key := e.bytecode.Key()
		if def == nil {
			fmt.Fprintf(&b, "MethodInfo-%d", e.bytecode.ABCIndex)
		} else if cinit := def.ClassInit(); cinit != nil && cinit.Key() == key {
			b.WriteString("$cinit")
		} else if t := traitByKey(def.ClassTraits(), key); t != nil {
			b.WriteString("$/" + t.Name.Local)
		} else if t := traitByKey(def.InstanceTraits(), key); t != nil {
			b.WriteString("/" + t.Name.Local)
		} else {
			fmt.Fprintf(&b, "/MethodInfo-%d", e.bytecode.ABCIndex)
		}
	}
	b.WriteString("()")
	return b.String()
}

func (e Executable) String() string {
	switch e.kind {
	case KindNative:
		return fmt.Sprintf("<executable native %s receiver=%s>",
			e.native.Name, objectLabel(e.receiver))
	case KindAction:
		return fmt.Sprintf("<executable action MethodInfo-%d scope=%s receiver=%s>",
			e.bytecode.ABCIndex, e.scope, objectLabel(e.receiver))
	}
	return "<executable invalid>"
}

func objectLabel(o Object) string {
	if o == nil {
		return "none"
	}
	return ToString(o)
}
