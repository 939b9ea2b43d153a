package avm2

import "fmt"

// Errors of the invocation engine. All of them but LogicError are recoverable
// and are returned through every nested call unchanged; clients match them
// with errors.As.

// ArityError is returned when a non-variadic native routine is called with
// more arguments than it declares.
type ArityError struct {
	Name string
	Got  int
	Max  int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("Attempted to call %q with %d arguments (more than %d is prohibited)",
		e.Name, e.Got, e.Max)
}

// ArgumentCountError is returned when a checked bytecode method is called with
// too many or too few arguments.
type ArgumentCountError struct {
	Name     string
	Expected int
	Got      int
}

func (e *ArgumentCountError) Error() string {
	return fmt.Sprintf("Error #1063: Argument count mismatch on %s. Expected %d, got %d.",
		e.Name, e.Expected, e.Got)
}

// CoercionError is returned when an argument cannot be converted to the
// declared type of its parameter. Unresolved is set if the declared type
// names a class unknown to the runtime.
type CoercionError struct {
	Method     string // set by parameter binding
	Param      string // set by parameter binding
	Value      Value
	Type       string
	Unresolved bool
}

func (e *CoercionError) Error() string {
	msg := fmt.Sprintf("Error #1034: Type Coercion failed: cannot convert %s to %s.",
		describe(e.Value), e.Type)
	if e.Unresolved {
		msg = fmt.Sprintf("Error #1014: Class %s could not be found.", e.Type)
	}
	if e.Param != "" {
		msg += fmt.Sprintf(" (parameter %q of %s)", e.Param, e.Method)
	}
	return msg
}

// RecursionError is returned when a call would exceed the maximum call depth.
type RecursionError struct {
	Limit int
}

func (e *RecursionError) Error() string {
	return "Error #1023: Stack overflow occurred."
}

// ThrownError carries a value thrown by the emulated program.
type ThrownError struct {
	Value Value
}

func (e *ThrownError) Error() string {
	return "Error: " + ToString(e.Value)
}

// UncaughtError is an error which reached the host boundary. It carries the
// stack trace as it was when the error was raised.
type UncaughtError struct {
	Err   error
	Trace *StackTrace
}

func (e *UncaughtError) Error() string {
	return e.Err.Error()
}

func (e *UncaughtError) Unwrap() error {
	return e.Err
}

// LogicError reports a defect of a caller. It is never returned, only used as
// a panic value.
type LogicError struct {
	Msg string
}

func (e *LogicError) Error() string {
	return "logic error: " + e.Msg
}

// describe renders a value for error messages, e.g. `"abc"` or `[object Foo]`.
func describe(v Value) string {
	if s, ok := v.(String); ok {
		return fmt.Sprintf("%q", string(s))
	}
	if v == nil {
		return "undefined"
	}
	return ToString(v)
}
