package abc

import (
	"fmt"
	"math"

	ruffle "github.com/emergence75/ruffle-clone"
	"github.com/emergence75/ruffle-clone/avm2"
)

// Assembly is an assembled method body.
type Assembly struct {
	Code      []byte
	MaxLocals int // number of registers referenced, including register 0
}

// Assemble translates assembler text into an instruction stream. Constants are
// interned into the pools of unit; method operands of `newfunction` refer to
// methods already in unit's method pool, by name or by index.
//
// The text holds one instruction per line, optionally preceded by a label.
// Comments start with a semicolon:
//
//    ; count down from register 1
//    loop:
//        getlocal_1
//        pushbyte 1
//        subtract
//        dup
//        setlocal_1
//        pushbyte 0
//        greaterthan
//        iftrue loop
//        returnvoid
//
func Assemble(unit *avm2.TranslationUnit, src string) (*Assembly, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	a := &assembler{unit: unit, toks: toks, labels: make(map[string]int)}
	for a.pos < len(a.toks) {
		if err := a.line(); err != nil {
			tracer().Errorf("assembler: %v", err)
			return nil, err
		}
	}
	if err := a.resolveLabels(); err != nil {
		tracer().Errorf("assembler: %v", err)
		return nil, err
	}
	return &Assembly{Code: a.code, MaxLocals: a.maxLocal + 1}, nil
}

// NewMethod assembles src and appends the resulting method record to unit.
func NewMethod(unit *avm2.TranslationUnit, name string, sig []avm2.ParamSpec,
	flags avm2.MethodFlags, src string) (*avm2.BytecodeMethod, error) {
	//
	asm, err := Assemble(unit, src)
	if err != nil {
		return nil, fmt.Errorf("method %s: %w", name, err)
	}
	m := avm2.NewBytecodeMethod(unit, name, sig, flags, asm.Code)
	m.MaxLocals = asm.MaxLocals
	tracer().P("method", name).Debugf("assembled %d bytes of code", len(asm.Code))
	return m, nil
}

type fixup struct {
	at    int // position of the s24 operand
	base  int // position following the operand
	label string
	line  int
	span  ruffle.Span
}

type assembler struct {
	unit     *avm2.TranslationUnit
	toks     []token
	pos      int
	code     []byte
	labels   map[string]int
	fixups   []fixup
	maxLocal int
}

func (a *assembler) next() token {
	t := a.toks[a.pos]
	a.pos++
	return t
}

func (a *assembler) errorf(t token, format string, args ...interface{}) error {
	return &SyntaxError{Line: t.line, Span: t.span, Msg: fmt.Sprintf(format, args...)}
}

func (a *assembler) line() error {
	t := a.next()
	if t.typ == tokLabel {
		name := t.value.(string)
		if _, dup := a.labels[name]; dup {
			return a.errorf(t, "label %s defined twice", name)
		}
		a.labels[name] = len(a.code)
		t = a.next()
	}
	if t.typ == tokNewline {
		return nil
	}
	if t.typ != tokIdent {
		return a.errorf(t, "expected instruction, found %s", t)
	}
	op, ok := Lookup(t.lexeme)
	if !ok {
		return a.errorf(t, "unknown instruction %s", t.lexeme)
	}
	a.code = append(a.code, byte(op))
	for _, opd := range opcodes[op].operands {
		if err := a.operand(opd, a.next()); err != nil {
			return err
		}
	}
	switch op {
	case OpGetLocal0, OpGetLocal1, OpGetLocal2, OpGetLocal3:
		a.useLocal(int(op - OpGetLocal0))
	case OpSetLocal0, OpSetLocal1, OpSetLocal2, OpSetLocal3:
		a.useLocal(int(op - OpSetLocal0))
	}
	if t = a.next(); t.typ != tokNewline {
		return a.errorf(t, "unexpected %s after %s", t, op)
	}
	return nil
}

func (a *assembler) operand(opd operand, t token) error {
	switch opd {
	case opdU30, opdLocal:
		n, err := a.integer(t, 0, maxU30)
		if err != nil {
			return err
		}
		if opd == opdLocal {
			a.useLocal(n)
		}
		a.code = appendU30(a.code, uint32(n))
	case opdS8:
		n, err := a.integer(t, math.MinInt8, math.MaxInt8)
		if err != nil {
			return err
		}
		a.code = append(a.code, byte(int8(n)))
	case opdOffset:
		if t.typ != tokIdent {
			return a.errorf(t, "expected label, found %s", t)
		}
		a.fixups = append(a.fixups, fixup{at: len(a.code), base: len(a.code) + 3, label: t.lexeme, line: t.line, span: t.span})
		a.code = appendS24(a.code, 0)
	case opdString:
		if t.typ != tokString {
			return a.errorf(t, "expected string, found %s", t)
		}
		a.code = appendU30(a.code, a.unit.InternString(t.value.(string)))
	case opdDouble:
		if t.typ != tokNumber {
			return a.errorf(t, "expected number, found %s", t)
		}
		a.code = appendU30(a.code, a.unit.InternDouble(t.value.(float64)))
	case opdName:
		if t.typ != tokIdent {
			return a.errorf(t, "expected name, found %s", t)
		}
		a.code = appendU30(a.code, a.unit.InternString(t.lexeme))
	case opdMethod:
		index, err := a.method(t)
		if err != nil {
			return err
		}
		a.code = appendU30(a.code, index)
	}
	return nil
}

func (a *assembler) integer(t token, min, max int) (int, error) {
	f, ok := t.value.(float64)
	if t.typ != tokNumber || !ok || f != math.Trunc(f) {
		return 0, a.errorf(t, "expected integer, found %s", t)
	}
	if f < float64(min) || f > float64(max) {
		return 0, a.errorf(t, "operand %s out of range [%d,%d]", t.lexeme, min, max)
	}
	return int(f), nil
}

func (a *assembler) method(t token) (uint32, error) {
	switch t.typ {
	case tokNumber:
		n, err := a.integer(t, 0, len(a.unit.Methods)-1)
		return uint32(n), err
	case tokIdent:
		for _, m := range a.unit.Methods {
			if m.Name == t.lexeme {
				return m.ABCIndex, nil
			}
		}
		return 0, a.errorf(t, "unknown method %s", t.lexeme)
	}
	return 0, a.errorf(t, "expected method, found %s", t)
}

func (a *assembler) useLocal(n int) {
	if n > a.maxLocal {
		a.maxLocal = n
	}
}

func (a *assembler) resolveLabels() error {
	for _, f := range a.fixups {
		target, ok := a.labels[f.label]
		if !ok {
			return &SyntaxError{Line: f.line, Span: f.span, Msg: fmt.Sprintf("undefined label %s", f.label)}
		}
		putS24(a.code, f.at, int32(target-f.base))
	}
	return nil
}
