package ruffle

import "fmt"

// --- A general purpose interface for tokens --------------------------------

// TokType is a category type for a Token. We do not define any constants here, as
// it is up to scanners to define them.
type TokType int

// Tokens represent input tokens of textual method bodies. They are produced by
// the assembler's scanner.
//
// An example would be a token for a pushdouble operand:
//
//    TokType = Number      // identifier for this kind of tokens (scanner specific)
//    Lexeme  = "3.1416"    // lexeme how it appeared in the input stream
//    Value   = 3.1416      // is a float64 value, if the scanner converted it
//    Span    = 67…73       // occured from position 67 in the input stream
//    Line    = 4           // 1-based source line
//
type Token interface {
	TokType() TokType
	Lexeme() string
	Value() interface{}
	Span() Span
	Line() int
}

// --- Spans ------------------------------------------------------------

// Span is a pair of input positions: the start of a run of input and the
// position just behind its end. The zero span stands for an unknown position.
type Span [2]uint64 // (x…y)

// IsNull is a predicate: is s the zero span?
func (s Span) IsNull() bool {
	return s == Span{}
}

func (s Span) String() string {
	return fmt.Sprintf("(%d…%d)", s[0], s[1])
}
