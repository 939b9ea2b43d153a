package avm2

import (
	"fmt"
	"strings"
)

// Value is a value of the emulated program. The set of value types is closed:
// primitives are Undefined, Null, Bool, Number, Int, Uint and String, and
// everything else is an Object.
type Value interface {
	TypeOf() string
}

type undefined struct{}
type null struct{}

func (undefined) TypeOf() string { return "undefined" }
func (undefined) String() string { return "undefined" }
func (null) TypeOf() string      { return "object" }
func (null) String() string      { return "null" }

// Undefined and Null are the two absence values.
var (
	Undefined Value = undefined{}
	Null      Value = null{}
)

// Bool is a boolean primitive.
type Bool bool

// Number is a IEEE-754 double primitive.
type Number float64

// Int is a signed 32-bit integer primitive.
type Int int32

// Uint is an unsigned 32-bit integer primitive.
type Uint uint32

// String is a string primitive.
type String string

func (Bool) TypeOf() string   { return "boolean" }
func (Number) TypeOf() string { return "number" }
func (Int) TypeOf() string    { return "number" }
func (Uint) TypeOf() string   { return "number" }
func (String) TypeOf() string { return "string" }

// IsAbsent is a predicate: is v nil, Undefined or Null?
func IsAbsent(v Value) bool {
	return v == nil || v == Undefined || v == Null
}

// --- Objects ---------------------------------------------------------------

// Object is a reference value. Objects may be receivers of calls.
type Object interface {
	Value
	Class() *ClassObject // class of the object, or nil for untyped builtins
}

// ArrayObject is a dense array. Rest parameters and `arguments` are arrays.
type ArrayObject struct {
	Elements []Value
}

// NewArray creates an array holding a copy of vs.
func NewArray(vs ...Value) *ArrayObject {
	elems := make([]Value, len(vs))
	copy(elems, vs)
	return &ArrayObject{Elements: elems}
}

func (a *ArrayObject) TypeOf() string      { return "object" }
func (a *ArrayObject) Class() *ClassObject { return nil }

// Len returns the number of elements.
func (a *ArrayObject) Len() int {
	return len(a.Elements)
}

// At returns element i, or Undefined if i is out of range.
func (a *ArrayObject) At(i int) Value {
	if i < 0 || i >= len(a.Elements) {
		return Undefined
	}
	return a.Elements[i]
}

func (a *ArrayObject) String() string {
	s := make([]string, len(a.Elements))
	for i, v := range a.Elements {
		if !IsAbsent(v) {
			s[i] = ToString(v)
		}
	}
	return strings.Join(s, ",")
}

// ScriptObject is an instance of a class, carrying dynamic properties.
type ScriptObject struct {
	class *ClassObject
	props map[string]Value
}

// NewScriptObject creates an empty instance of class c (which may be nil).
func NewScriptObject(c *ClassObject) *ScriptObject {
	return &ScriptObject{class: c, props: make(map[string]Value)}
}

func (o *ScriptObject) TypeOf() string      { return "object" }
func (o *ScriptObject) Class() *ClassObject { return o.class }

// Get reads a dynamic property.
func (o *ScriptObject) Get(name string) (Value, bool) {
	v, ok := o.props[name]
	return v, ok
}

// Set writes a dynamic property.
func (o *ScriptObject) Set(name string, v Value) {
	o.props[name] = v
}

func (o *ScriptObject) String() string {
	if o.class == nil {
		return "[object Object]"
	}
	return fmt.Sprintf("[object %s]", o.class.Definition().Name().Local)
}

// FunctionObject is a first-class function value wrapping an executable.
type FunctionObject struct {
	exec Executable
}

// NewFunctionObject wraps exec into a function value.
func NewFunctionObject(exec Executable) *FunctionObject {
	return &FunctionObject{exec: exec}
}

func (f *FunctionObject) TypeOf() string      { return "function" }
func (f *FunctionObject) Class() *ClassObject { return nil }
func (f *FunctionObject) String() string      { return "function Function() {}" }

// Executable returns the wrapped executable.
func (f *FunctionObject) Executable() Executable {
	return f.exec
}

// Call invokes the function with receiver this. The function object itself
// is passed on as the callee.
func (f *FunctionObject) Call(caller *Activation, this Object, args []Value) (Value, error) {
	return f.exec.Exec(this, args, caller, f)
}
