package abc

import "fmt"

// Opcode is an instruction opcode. Values are those of the ABC format.
type Opcode byte

// Supported opcodes.
const (
	OpThrow         Opcode = 0x03
	OpJump          Opcode = 0x10
	OpIfTrue        Opcode = 0x11
	OpIfFalse       Opcode = 0x12
	OpPushNull      Opcode = 0x20
	OpPushUndefined Opcode = 0x21
	OpPushByte      Opcode = 0x24
	OpPushShort     Opcode = 0x25
	OpPushTrue      Opcode = 0x26
	OpPushFalse     Opcode = 0x27
	OpPop           Opcode = 0x29
	OpDup           Opcode = 0x2a
	OpSwap          Opcode = 0x2b
	OpPushString    Opcode = 0x2c
	OpPushDouble    Opcode = 0x2f
	OpNewFunction   Opcode = 0x40
	OpCall          Opcode = 0x41
	OpCallSuper     Opcode = 0x45
	OpCallProperty  Opcode = 0x46
	OpReturnVoid    Opcode = 0x47
	OpReturnValue   Opcode = 0x48
	OpGetLex        Opcode = 0x60
	OpGetLocal      Opcode = 0x62
	OpSetLocal      Opcode = 0x63
	OpAdd           Opcode = 0xa0
	OpSubtract      Opcode = 0xa1
	OpMultiply      Opcode = 0xa2
	OpDivide        Opcode = 0xa3
	OpEquals        Opcode = 0xab
	OpLessThan      Opcode = 0xad
	OpGreaterThan   Opcode = 0xaf
	OpGetLocal0     Opcode = 0xd0
	OpGetLocal1     Opcode = 0xd1
	OpGetLocal2     Opcode = 0xd2
	OpGetLocal3     Opcode = 0xd3
	OpSetLocal0     Opcode = 0xd4
	OpSetLocal1     Opcode = 0xd5
	OpSetLocal2     Opcode = 0xd6
	OpSetLocal3     Opcode = 0xd7
)

// Operand kinds, as they appear in the instruction stream and in assembler
// text.
type operand uint8

const (
	opdU30    operand = iota // unsigned integer
	opdS8                    // signed byte
	opdOffset                // s24 branch offset; a label in assembler text
	opdString                // string pool index; a string literal in text
	opdDouble                // double pool index; a number in text
	opdName                  // string pool index; an identifier in text
	opdMethod                // method pool index; a method name or index in text
	opdLocal                 // register index
)

type opinfo struct {
	name     string
	operands []operand
}

var opcodes = map[Opcode]opinfo{
	OpThrow:         {"throw", nil},
	OpJump:          {"jump", []operand{opdOffset}},
	OpIfTrue:        {"iftrue", []operand{opdOffset}},
	OpIfFalse:       {"iffalse", []operand{opdOffset}},
	OpPushNull:      {"pushnull", nil},
	OpPushUndefined: {"pushundefined", nil},
	OpPushByte:      {"pushbyte", []operand{opdS8}},
	OpPushShort:     {"pushshort", []operand{opdU30}},
	OpPushTrue:      {"pushtrue", nil},
	OpPushFalse:     {"pushfalse", nil},
	OpPop:           {"pop", nil},
	OpDup:           {"dup", nil},
	OpSwap:          {"swap", nil},
	OpPushString:    {"pushstring", []operand{opdString}},
	OpPushDouble:    {"pushdouble", []operand{opdDouble}},
	OpNewFunction:   {"newfunction", []operand{opdMethod}},
	OpCall:          {"call", []operand{opdU30}},
	OpCallSuper:     {"callsuper", []operand{opdName, opdU30}},
	OpCallProperty:  {"callproperty", []operand{opdName, opdU30}},
	OpReturnVoid:    {"returnvoid", nil},
	OpReturnValue:   {"returnvalue", nil},
	OpGetLex:        {"getlex", []operand{opdName}},
	OpGetLocal:      {"getlocal", []operand{opdLocal}},
	OpSetLocal:      {"setlocal", []operand{opdLocal}},
	OpAdd:           {"add", nil},
	OpSubtract:      {"subtract", nil},
	OpMultiply:      {"multiply", nil},
	OpDivide:        {"divide", nil},
	OpEquals:        {"equals", nil},
	OpLessThan:      {"lessthan", nil},
	OpGreaterThan:   {"greaterthan", nil},
	OpGetLocal0:     {"getlocal_0", nil},
	OpGetLocal1:     {"getlocal_1", nil},
	OpGetLocal2:     {"getlocal_2", nil},
	OpGetLocal3:     {"getlocal_3", nil},
	OpSetLocal0:     {"setlocal_0", nil},
	OpSetLocal1:     {"setlocal_1", nil},
	OpSetLocal2:     {"setlocal_2", nil},
	OpSetLocal3:     {"setlocal_3", nil},
}

var mnemonics map[string]Opcode

func init() {
	mnemonics = make(map[string]Opcode, len(opcodes))
	for op, info := range opcodes {
		mnemonics[info.name] = op
	}
}

func (op Opcode) String() string {
	if info, ok := opcodes[op]; ok {
		return info.name
	}
	return fmt.Sprintf("op_0x%02x", byte(op))
}

// Lookup finds the opcode for a mnemonic.
func Lookup(mnemonic string) (Opcode, bool) {
	op, ok := mnemonics[mnemonic]
	return op, ok
}
