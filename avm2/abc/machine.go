package abc

import (
	"fmt"
	"math"

	"github.com/emergence75/ruffle-clone/avm2"
)

// Machine is a reference interpreter for instruction streams. It implements
// avm2.Interpreter. A Machine holds no per-call state and may be shared by
// any number of nested calls.
type Machine struct {
	MaxStack int // limit of the operand stack per call, 0 for no limit
}

var _ avm2.Interpreter = (*Machine)(nil)

// NewMachine creates an interpreter.
func NewMachine() *Machine {
	return &Machine{}
}

// frame is the state of a single run.
type frame struct {
	m     *Machine
	act   *avm2.Activation
	code  []byte
	unit  *avm2.TranslationUnit
	stack []avm2.Value
	pc    int
	at    int // offset of the current instruction
}

// Run executes the instruction stream of method m within activation act,
// until a return instruction or the end of the stream is reached.
func (vm *Machine) Run(m *avm2.BytecodeMethod, act *avm2.Activation) (avm2.Value, error) {
	f := &frame{m: vm, act: act, code: m.Code, unit: m.Unit, pc: act.PC()}
	tracer().P("method", m.Name).Debugf("run %d bytes of code", len(m.Code))
	for f.pc < len(f.code) {
		f.at = f.pc
		act.SetPC(f.pc)
		op := Opcode(f.code[f.pc])
		f.pc++
		v, done, err := f.step(op)
		if err != nil {
			tracer().P("op", op).Errorf("%v", err)
			return nil, err
		}
		if done {
			return v, nil
		}
	}
	return avm2.Undefined, nil
}

// step executes a single instruction. done is true after a return.
func (f *frame) step(op Opcode) (v avm2.Value, done bool, err error) {
	switch op {
	case OpThrow:
		if v, err = f.pop(); err == nil {
			err = &avm2.ThrownError{Value: v}
		}
	case OpJump:
		err = f.branch(true)
	case OpIfTrue, OpIfFalse:
		if v, err = f.pop(); err == nil {
			err = f.branch(avm2.ToBoolean(v) == (op == OpIfTrue))
		}
	case OpPushNull:
		err = f.push(avm2.Null)
	case OpPushUndefined:
		err = f.push(avm2.Undefined)
	case OpPushByte:
		if f.pc >= len(f.code) {
			return nil, false, f.verifyError("truncated pushbyte")
		}
		n := int8(f.code[f.pc])
		f.pc++
		err = f.push(avm2.Int(n))
	case OpPushShort:
		var n uint32
		if n, err = f.u30(); err == nil {
			err = f.push(avm2.Int(int16(n)))
		}
	case OpPushTrue:
		err = f.push(avm2.Bool(true))
	case OpPushFalse:
		err = f.push(avm2.Bool(false))
	case OpPop:
		_, err = f.pop()
	case OpDup:
		if v, err = f.pop(); err == nil {
			if err = f.push(v); err == nil {
				err = f.push(v)
			}
		}
	case OpSwap:
		var a, b avm2.Value
		if b, err = f.pop(); err == nil {
			if a, err = f.pop(); err == nil {
				f.stack = append(f.stack, b, a)
			}
		}
	case OpPushString:
		var s string
		if s, err = f.str(); err == nil {
			err = f.push(avm2.String(s))
		}
	case OpPushDouble:
		var i uint32
		if i, err = f.u30(); err == nil {
			d, ok := f.unit.DoubleAt(i)
			if !ok {
				return nil, false, f.verifyError(fmt.Sprintf("double index %d out of range", i))
			}
			err = f.push(avm2.Number(d))
		}
	case OpNewFunction:
		err = f.newFunction()
	case OpCall:
		err = f.call()
	case OpCallSuper:
		err = f.callSuper()
	case OpCallProperty:
		err = f.callProperty()
	case OpReturnVoid:
		return avm2.Undefined, true, nil
	case OpReturnValue:
		v, err = f.pop()
		return v, err == nil, err
	case OpGetLex:
		err = f.getLex()
	case OpGetLocal:
		var i uint32
		if i, err = f.u30(); err == nil {
			err = f.getLocal(int(i))
		}
	case OpSetLocal:
		var i uint32
		if i, err = f.u30(); err == nil {
			err = f.setLocal(int(i))
		}
	case OpGetLocal0, OpGetLocal1, OpGetLocal2, OpGetLocal3:
		err = f.getLocal(int(op - OpGetLocal0))
	case OpSetLocal0, OpSetLocal1, OpSetLocal2, OpSetLocal3:
		err = f.setLocal(int(op - OpSetLocal0))
	case OpAdd, OpSubtract, OpMultiply, OpDivide, OpEquals, OpLessThan, OpGreaterThan:
		var a, b avm2.Value
		if b, err = f.pop(); err == nil {
			if a, err = f.pop(); err == nil {
				err = f.push(arith(op, a, b))
			}
		}
	default:
		err = &IllegalOpcodeError{Op: op, PC: f.at}
	}
	return nil, false, err
}

// --- Operand stack ---------------------------------------------------------

func (f *frame) push(v avm2.Value) error {
	if f.m.MaxStack > 0 && len(f.stack) >= f.m.MaxStack {
		return f.verifyError("operand stack overflow")
	}
	f.stack = append(f.stack, v)
	return nil
}

func (f *frame) pop() (avm2.Value, error) {
	n := len(f.stack)
	if n == 0 {
		return nil, f.verifyError("operand stack underflow")
	}
	v := f.stack[n-1]
	f.stack = f.stack[:n-1]
	return v, nil
}

// popArgs pops argc arguments, in call order.
func (f *frame) popArgs(argc uint32) ([]avm2.Value, error) {
	n := len(f.stack)
	if int(argc) > n {
		return nil, f.verifyError("operand stack underflow")
	}
	args := make([]avm2.Value, argc)
	copy(args, f.stack[n-int(argc):])
	f.stack = f.stack[:n-int(argc)]
	return args, nil
}

func (f *frame) verifyError(msg string) error {
	return &VerifyError{PC: f.at, Msg: msg}
}

// --- Operands --------------------------------------------------------------

func (f *frame) u30() (uint32, error) {
	v, pc, err := readU30(f.code, f.pc)
	if err != nil {
		return 0, f.verifyError(err.Error())
	}
	f.pc = pc
	return v, nil
}

func (f *frame) str() (string, error) {
	i, err := f.u30()
	if err != nil {
		return "", err
	}
	s, ok := f.unit.StringAt(i)
	if !ok {
		return "", f.verifyError(fmt.Sprintf("string index %d out of range", i))
	}
	return s, nil
}

func (f *frame) branch(taken bool) error {
	off, pc, err := readS24(f.code, f.pc)
	if err != nil {
		return f.verifyError(err.Error())
	}
	f.pc = pc
	if taken {
		target := f.pc + int(off)
		if target < 0 || target > len(f.code) {
			return f.verifyError(fmt.Sprintf("branch target %d outside of method body", target))
		}
		f.pc = target
	}
	return nil
}

// --- Registers and names ---------------------------------------------------

func (f *frame) getLocal(i int) error {
	v, ok := f.act.Register(i)
	if !ok {
		return f.verifyError(fmt.Sprintf("register %d out of range", i))
	}
	return f.push(v)
}

func (f *frame) setLocal(i int) error {
	v, err := f.pop()
	if err != nil {
		return err
	}
	if !f.act.SetRegister(i, v) {
		return f.verifyError(fmt.Sprintf("register %d out of range", i))
	}
	return nil
}

// getLex resolves a name in the scope chain, then among the registered
// classes.
func (f *frame) getLex() error {
	name, err := f.str()
	if err != nil {
		return err
	}
	if v, ok := f.act.Resolve(name); ok {
		return f.push(v)
	}
	if c := f.act.Avm().ClassByName(name); c != nil {
		return f.push(c)
	}
	return &ReferenceError{Name: name}
}

// --- Calls -----------------------------------------------------------------

// newFunction creates a closure over the current scope chain, including the
// local frame of the running method. Closures have no bound superclass.
func (f *frame) newFunction() error {
	i, err := f.u30()
	if err != nil {
		return err
	}
	m, ok := f.unit.MethodAt(i)
	if !ok {
		return f.verifyError(fmt.Sprintf("method index %d out of range", i))
	}
	exec := avm2.FromMethod(m, f.act.Scope(), nil, nil)
	return f.push(avm2.NewFunctionObject(exec))
}

// call: function, receiver, args… → result
func (f *frame) call() error {
	argc, err := f.u30()
	if err != nil {
		return err
	}
	args, err := f.popArgs(argc)
	if err != nil {
		return err
	}
	this, err := f.pop()
	if err != nil {
		return err
	}
	callee, err := f.pop()
	if err != nil {
		return err
	}
	fn, ok := callee.(*avm2.FunctionObject)
	if !ok {
		return &TypeError{Msg: fmt.Sprintf("Error #1006: %s is not a function.", avm2.ToString(callee))}
	}
	receiver, _ := this.(avm2.Object)
	v, err := fn.Call(f.act, receiver, args)
	if err != nil {
		return err
	}
	return f.push(v)
}

// callsuper name argc: receiver, args… → result
func (f *frame) callSuper() error {
	name, args, receiver, err := f.propertyCall()
	if err != nil {
		return err
	}
	super := f.act.BoundClass().Superclass()
	if super == nil {
		return &ReferenceError{Name: name,
			Msg: fmt.Sprintf("Error #1070: Method %s not found on super.", name)}
	}
	t, definer := super.FindMethod(name)
	if t == nil {
		return &ReferenceError{Name: name,
			Msg: fmt.Sprintf("Error #1070: Method %s not found on %s.", name, super.Definition().Name())}
	}
	exec := super.BindMethod(t, definer, receiver)
	v, err := exec.Exec(nil, args, f.act, nil)
	if err != nil {
		return err
	}
	return f.push(v)
}

// callproperty name argc: receiver, args… → result
func (f *frame) callProperty() error {
	name, args, receiver, err := f.propertyCall()
	if err != nil {
		return err
	}
	exec, ok := f.act.Avm().LookupMethod(receiver, name)
	if !ok {
		return &ReferenceError{Name: name,
			Msg: fmt.Sprintf("Error #1069: Property %s not found on %s and there is no default value.",
				name, avm2.ToString(receiver))}
	}
	v, err := exec.Exec(receiver, args, f.act, nil)
	if err != nil {
		return err
	}
	return f.push(v)
}

func (f *frame) propertyCall() (string, []avm2.Value, avm2.Object, error) {
	name, err := f.str()
	if err != nil {
		return "", nil, nil, err
	}
	argc, err := f.u30()
	if err != nil {
		return "", nil, nil, err
	}
	args, err := f.popArgs(argc)
	if err != nil {
		return "", nil, nil, err
	}
	this, err := f.pop()
	if err != nil {
		return "", nil, nil, err
	}
	receiver, ok := this.(avm2.Object)
	if !ok {
		return "", nil, nil, &TypeError{
			Msg: fmt.Sprintf("Error #1009: Cannot access a property or method of %s.", avm2.ToString(this))}
	}
	return name, args, receiver, nil
}

// --- Arithmetic ------------------------------------------------------------

func arith(op Opcode, a, b avm2.Value) avm2.Value {
	switch op {
	case OpAdd:
		_, sa := a.(avm2.String)
		_, sb := b.(avm2.String)
		if sa || sb {
			return avm2.String(avm2.ToString(a) + avm2.ToString(b))
		}
		return avm2.Number(avm2.ToNumber(a) + avm2.ToNumber(b))
	case OpSubtract:
		return avm2.Number(avm2.ToNumber(a) - avm2.ToNumber(b))
	case OpMultiply:
		return avm2.Number(avm2.ToNumber(a) * avm2.ToNumber(b))
	case OpDivide:
		return avm2.Number(avm2.ToNumber(a) / avm2.ToNumber(b))
	case OpEquals:
		return avm2.Bool(avm2.Equals(a, b))
	}
	if sa, ok := a.(avm2.String); ok {
		if sb, ok := b.(avm2.String); ok {
			if op == OpLessThan {
				return avm2.Bool(sa < sb)
			}
			return avm2.Bool(sa > sb)
		}
	}
	x, y := avm2.ToNumber(a), avm2.ToNumber(b)
	if math.IsNaN(x) || math.IsNaN(y) {
		return avm2.Bool(false)
	}
	if op == OpLessThan {
		return avm2.Bool(x < y)
	}
	return avm2.Bool(x > y)
}
