package avm2

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Method descriptors. A method descriptor is the immutable, shared description
// of a callable unit. There are two kinds: native methods, implemented by
// the host, and bytecode methods, decoded from a translation unit.
// Executables reference descriptors by pointer; descriptors are never copied.

// MethodKey is a stable identifier assigned to every method descriptor at
// construction time. Trait tables record the key of their method, and
// qualified-name resolution compares keys instead of pointers.
type MethodKey uint64

var lastMethodKey uint64

func nextMethodKey() MethodKey {
	return MethodKey(atomic.AddUint64(&lastMethodKey, 1))
}

// Method is a method descriptor, either a *NativeMethod or a *BytecodeMethod.
type Method interface {
	Key() MethodKey
	Params() []ParamSpec
	Variadic() bool
	sealed()
}

// ParamSpec declares a formal parameter.
type ParamSpec struct {
	Name    string
	Type    string // declared type name, "" or "*" for any
	Default Value  // nil if the parameter is required
}

// Param declares a required parameter.
func Param(name, typ string) ParamSpec {
	return ParamSpec{Name: name, Type: typ}
}

// OptionalParam declares a parameter with a default value.
func OptionalParam(name, typ string, def Value) ParamSpec {
	return ParamSpec{Name: name, Type: typ, Default: def}
}

// HasDefault is a predicate: does the parameter declare a default value?
func (p ParamSpec) HasDefault() bool {
	return p.Default != nil
}

func (p ParamSpec) String() string {
	t := p.Type
	if t == "" {
		t = "*"
	}
	if p.HasDefault() {
		return fmt.Sprintf("%s:%s = %s", p.Name, t, ToString(p.Default))
	}
	return p.Name + ":" + t
}

// requiredParams counts the parameters preceding the first one with a default.
func requiredParams(sig []ParamSpec) int {
	for i, p := range sig {
		if p.HasDefault() {
			return i
		}
	}
	return len(sig)
}

// --- Native methods --------------------------------------------------------

// NativeFunc is the signature of host-implemented routines. args are already
// bound to the declared signature.
type NativeFunc func(act *Activation, this Object, args []Value) (Value, error)

// NativeMethod is a host-implemented routine with a declared signature.
type NativeMethod struct {
	Name       string
	Fn         NativeFunc
	Signature  []ParamSpec
	IsVariadic bool // surplus arguments are collected into a trailing rest array
	key        MethodKey
}

// NewNativeMethod creates a native method descriptor.
func NewNativeMethod(name string, fn NativeFunc, sig []ParamSpec, variadic bool) *NativeMethod {
	return &NativeMethod{
		Name:       name,
		Fn:         fn,
		Signature:  sig,
		IsVariadic: variadic,
		key:        nextMethodKey(),
	}
}

func (m *NativeMethod) Key() MethodKey      { return m.key }
func (m *NativeMethod) Params() []ParamSpec { return m.Signature }
func (m *NativeMethod) Variadic() bool      { return m.IsVariadic }
func (m *NativeMethod) sealed()             {}

func (m *NativeMethod) String() string {
	return fmt.Sprintf("<native %s/%d>", m.Name, len(m.Signature))
}

// --- Bytecode methods ------------------------------------------------------

// MethodFlags are the flags of a decoded method record. The low bits follow
// the method_info flags of the ABC format.
type MethodFlags uint16

const (
	NeedArguments  MethodFlags = 0x01 // create an `arguments` array
	NeedActivation MethodFlags = 0x02
	NeedRest       MethodFlags = 0x04 // variadic: collect surplus arguments
	HasOptional    MethodFlags = 0x08
	// Unchecked is set by the loader, not by the ABC format: argument counts are
	// not enforced, surplus arguments are dropped.
	Unchecked MethodFlags = 0x100
)

// BytecodeMethod is a decoded method record.
type BytecodeMethod struct {
	ABCIndex  uint32 // raw method_info index within its translation unit
	Name      string
	Signature []ParamSpec
	Flags     MethodFlags
	Code      []byte // decoded instruction stream
	MaxLocals int    // number of registers the code uses, including `this`
	Unit      *TranslationUnit
	key       MethodKey
}

// NewBytecodeMethod creates a method record and appends it to the method pool
// of unit.
func NewBytecodeMethod(unit *TranslationUnit, name string, sig []ParamSpec,
	flags MethodFlags, code []byte) *BytecodeMethod {
	//
	m := &BytecodeMethod{
		Name:      name,
		Signature: sig,
		Flags:     flags,
		Code:      code,
		Unit:      unit,
		key:       nextMethodKey(),
	}
	if unit != nil {
		m.ABCIndex = uint32(len(unit.Methods))
		unit.Methods = append(unit.Methods, m)
	}
	return m
}

func (m *BytecodeMethod) Key() MethodKey      { return m.key }
func (m *BytecodeMethod) Params() []ParamSpec { return m.Signature }
func (m *BytecodeMethod) Variadic() bool      { return m.Flags&NeedRest != 0 }
func (m *BytecodeMethod) sealed()             {}

// IsUnchecked is a predicate: is the argument count not enforced?
func (m *BytecodeMethod) IsUnchecked() bool {
	return m.Flags&Unchecked != 0
}

// NeedsArguments is a predicate: does the method expect an `arguments` array?
func (m *BytecodeMethod) NeedsArguments() bool {
	return m.Flags&NeedArguments != 0
}

// Domain returns the domain of the method's translation unit.
func (m *BytecodeMethod) Domain() *Domain {
	if m.Unit == nil {
		return nil
	}
	return m.Unit.Domain
}

func (m *BytecodeMethod) String() string {
	return fmt.Sprintf("<MethodInfo-%d %s/%d>", m.ABCIndex, m.Name, len(m.Signature))
}

// --- Translation units -----------------------------------------------------

// TranslationUnit holds the constant pools and the method pool of a loaded
// code unit. Pool indices are 0-based.
type TranslationUnit struct {
	ID      string
	Strings []string
	Doubles []float64
	Methods []*BytecodeMethod
	Domain  *Domain
}

// NewTranslationUnit creates an empty unit, loaded into domain.
func NewTranslationUnit(domain *Domain) *TranslationUnit {
	return &TranslationUnit{
		ID:     uuid.NewString(),
		Domain: domain,
	}
}

// InternString returns the index of s in the string pool, adding it if needed.
func (u *TranslationUnit) InternString(s string) uint32 {
	for i, x := range u.Strings {
		if x == s {
			return uint32(i)
		}
	}
	u.Strings = append(u.Strings, s)
	return uint32(len(u.Strings) - 1)
}

// InternDouble returns the index of f in the double pool, adding it if needed.
func (u *TranslationUnit) InternDouble(f float64) uint32 {
	for i, x := range u.Doubles {
		if x == f {
			return uint32(i)
		}
	}
	u.Doubles = append(u.Doubles, f)
	return uint32(len(u.Doubles) - 1)
}

// StringAt returns string constant i.
func (u *TranslationUnit) StringAt(i uint32) (string, bool) {
	if int(i) >= len(u.Strings) {
		return "", false
	}
	return u.Strings[i], true
}

// DoubleAt returns double constant i.
func (u *TranslationUnit) DoubleAt(i uint32) (float64, bool) {
	if int(i) >= len(u.Doubles) {
		return 0, false
	}
	return u.Doubles[i], true
}

// MethodAt returns method i of the method pool.
func (u *TranslationUnit) MethodAt(i uint32) (*BytecodeMethod, bool) {
	if int(i) >= len(u.Methods) {
		return nil, false
	}
	return u.Methods[i], true
}
