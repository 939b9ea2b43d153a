package abc

import (
	"fmt"

	ruffle "github.com/emergence75/ruffle-clone"
)

// IllegalOpcodeError is raised when the instruction stream contains an
// unsupported opcode.
type IllegalOpcodeError struct {
	Op Opcode
	PC int
}

func (e *IllegalOpcodeError) Error() string {
	return fmt.Sprintf("Error #1011: Method contained illegal opcode %d at offset %d.", byte(e.Op), e.PC)
}

// ReferenceError is raised when a name cannot be resolved.
type ReferenceError struct {
	Name string
	Msg  string
}

func (e *ReferenceError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("Error #1065: Variable %s is not defined.", e.Name)
}

// TypeError is raised when a value is used in a way its type does not allow.
type TypeError struct {
	Msg string
}

func (e *TypeError) Error() string {
	return e.Msg
}

// VerifyError is raised for malformed instruction streams, e.g. on operand
// stack underflow or a jump out of the method body.
type VerifyError struct {
	PC  int
	Msg string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("VerifyError at offset %d: %s", e.PC, e.Msg)
}

// SyntaxError is returned by the assembler.
type SyntaxError struct {
	Line int
	Span ruffle.Span // zero if the position is unknown
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Span.IsNull() {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("line %d %v: %s", e.Line, e.Span, e.Msg)
}
