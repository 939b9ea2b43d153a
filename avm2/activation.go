package avm2

import (
	"fmt"

	"github.com/emergence75/ruffle-clone/runtime"
)

// Activation is the execution context of a single call. It is created at call
// entry and dropped at call return; activations are never shared between
// calls.
type Activation struct {
	avm          *Avm2
	this         Object
	superclass   *ClassObject       // bound superclass, may be nil
	scope        runtime.ScopeChain // captured chain, plus the local frame for bytecode
	locals       *runtime.Scope     // local frame, nil for builtins
	callerDomain *Domain
	method       *BytecodeMethod // nil for builtins
	callee       Object
	args         []Value // arguments as supplied (after truncation)
	registers    []Value
	pc           int
}

// NewBuiltinActivation creates the activation for a call of a native routine.
// callerDomain is propagated from the calling activation.
func NewBuiltinActivation(avm *Avm2, this Object, superclass *ClassObject,
	scope runtime.ScopeChain, callerDomain *Domain) *Activation {
	//
	return &Activation{
		avm:          avm,
		this:         this,
		superclass:   superclass,
		scope:        scope,
		callerDomain: callerDomain,
	}
}

// NewMethodActivation creates the activation for a call of bytecode method m.
// Register 0 holds the receiver, followed by the bound parameters and then
// either the rest array (variadic methods) or the `arguments` array. Parameters
// are bound in the local scope frame as well.
func NewMethodActivation(avm *Avm2, m *BytecodeMethod, scope runtime.ScopeChain, this Object,
	args []Value, superclass *ClassObject, callee Object) (*Activation, error) {
	//
	act := &Activation{
		avm:          avm,
		this:         this,
		superclass:   superclass,
		callerDomain: m.Domain(),
		method:       m,
		callee:       callee,
		args:         args,
	}
	if act.callerDomain == nil {
		act.callerDomain = avm.domain
	}
	frameName := m.Name
	if frameName == "" {
		frameName = fmt.Sprintf("MethodInfo-%d", m.ABCIndex)
	}
	act.scope, act.locals = scope.With(frameName)
	bound, err := act.bindParameters(frameName, args, m.Signature, false)
	if err != nil {
		return nil, err
	}
	k := 1 + len(m.Signature) // first register after the parameters
	n := k
	if m.Variadic() || m.NeedsArguments() {
		n++
	}
	if m.MaxLocals > n {
		n = m.MaxLocals
	}
	act.registers = make([]Value, n)
	for i := range act.registers {
		act.registers[i] = Undefined
	}
	if this != nil {
		act.registers[0] = this
	} else {
		act.registers[0] = Null
	}
	copy(act.registers[1:], bound)
	for i, p := range m.Signature {
		act.locals.Define(p.Name, bound[i])
	}
	if m.Variadic() {
		var surplus []Value
		if len(args) > len(m.Signature) {
			surplus = args[len(m.Signature):]
		}
		act.registers[k] = NewArray(surplus...)
	} else if m.NeedsArguments() {
		arguments := NewArray(args...)
		act.registers[k] = arguments
		act.locals.Define("arguments", arguments)
	}
	return act, nil
}

// Avm returns the session the activation belongs to.
func (act *Activation) Avm() *Avm2 { return act.avm }

// This returns the receiver of the call (may be nil).
func (act *Activation) This() Object { return act.this }

// Superclass returns the bound superclass (may be nil).
func (act *Activation) Superclass() *ClassObject { return act.superclass }

// BoundClass returns the class `super` operations start from: the bound
// superclass, or the receiver's own class if there is none.
func (act *Activation) BoundClass() *ClassObject {
	if act.superclass != nil {
		return act.superclass
	}
	if act.this != nil {
		return act.this.Class()
	}
	return nil
}

// Scope returns the scope chain of the call.
func (act *Activation) Scope() runtime.ScopeChain { return act.scope }

// Locals returns the local scope frame, or nil for builtins.
func (act *Activation) Locals() *runtime.Scope { return act.locals }

// CallerDomain returns the domain calls made from this activation originate in.
func (act *Activation) CallerDomain() *Domain { return act.callerDomain }

// Method returns the executing bytecode method, or nil for builtins.
func (act *Activation) Method() *BytecodeMethod { return act.method }

// Callee returns the function object being called (may be nil).
func (act *Activation) Callee() Object { return act.callee }

// Arguments returns the arguments as supplied by the caller.
func (act *Activation) Arguments() []Value { return act.args }

// RegisterCount returns the size of the register file.
func (act *Activation) RegisterCount() int { return len(act.registers) }

// Register reads register i.
func (act *Activation) Register(i int) (Value, bool) {
	if i < 0 || i >= len(act.registers) {
		return nil, false
	}
	return act.registers[i], true
}

// SetRegister writes register i.
func (act *Activation) SetRegister(i int, v Value) bool {
	if i < 0 || i >= len(act.registers) {
		return false
	}
	act.registers[i] = v
	return true
}

// PC returns the program counter.
func (act *Activation) PC() int { return act.pc }

// SetPC moves the program counter.
func (act *Activation) SetPC(pc int) { act.pc = pc }

// Coerce converts v to typeName with the session's coercer.
func (act *Activation) Coerce(v Value, typeName string) (Value, error) {
	return act.avm.coercer.Coerce(act, v, typeName)
}

// Resolve looks up a name in the scope chain, then in the global scope.
func (act *Activation) Resolve(name string) (Value, bool) {
	tag, _ := act.scope.Resolve(name)
	if tag == nil {
		tag, _ = act.avm.Globals().ResolveTag(name)
	}
	if tag == nil {
		return nil, false
	}
	v, ok := tag.Value.(Value)
	return v, ok
}

// --- Stubs -----------------------------------------------------------------

// StubMethod reports an unimplemented (or partially implemented) method of
// class. An optional detail describes the part not implemented.
func (act *Activation) StubMethod(class, method string, specifics ...string) {
	act.avm.stubs.Encounter(newStub(StubKindMethod, class, method, specifics))
}

// StubGetter reports an unimplemented property getter.
func (act *Activation) StubGetter(class, property string) {
	act.avm.stubs.Encounter(newStub(StubKindGetter, class, property, nil))
}

// StubSetter reports an unimplemented property setter.
func (act *Activation) StubSetter(class, property string) {
	act.avm.stubs.Encounter(newStub(StubKindSetter, class, property, nil))
}

// StubConstructor reports an unimplemented constructor.
func (act *Activation) StubConstructor(class string) {
	act.avm.stubs.Encounter(newStub(StubKindConstructor, class, "", nil))
}
