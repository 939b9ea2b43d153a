package abc

import (
	"fmt"
	"strconv"
	"sync"

	ruffle "github.com/emergence75/ruffle-clone"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

// Token types of the assembler.
const (
	tokNewline ruffle.TokType = iota + 1
	tokString
	tokNumber
	tokIdent
	tokLabel
)

var tokenNames = map[ruffle.TokType]string{
	tokNewline: "end of line",
	tokString:  "string",
	tokNumber:  "number",
	tokIdent:   "identifier",
	tokLabel:   "label",
}

// token is an assembler token.
type token struct {
	typ    ruffle.TokType
	lexeme string
	value  interface{}
	span   ruffle.Span
	line   int
}

var _ ruffle.Token = token{}

func (t token) TokType() ruffle.TokType { return t.typ }
func (t token) Lexeme() string          { return t.lexeme }
func (t token) Value() interface{}      { return t.value }
func (t token) Span() ruffle.Span       { return t.span }
func (t token) Line() int               { return t.line }

func (t token) String() string {
	if t.typ == tokNewline {
		return tokenNames[t.typ]
	}
	return fmt.Sprintf("%s %q", tokenNames[t.typ], t.lexeme)
}

// --- lexmachine setup ------------------------------------------------------

var (
	lexerOnce sync.Once
	lexer     *lexmachine.Lexer
	lexerErr  error
)

func assemblerLexer() (*lexmachine.Lexer, error) {
	lexerOnce.Do(func() {
		lexer = lexmachine.NewLexer()
		lexer.Add([]byte(`;[^\n]*`), skip)
		lexer.Add([]byte(`( |\t|\r|,)+`), skip)
		lexer.Add([]byte(`\n`), makeToken(tokNewline))
		lexer.Add([]byte(`\"[^"\n]*\"`), makeToken(tokString))
		lexer.Add([]byte(`\-?[0-9]+(\.[0-9]+)?`), makeToken(tokNumber))
		lexer.Add([]byte(`[a-zA-Z_]([a-zA-Z0-9_]|\.)*(::[a-zA-Z_][a-zA-Z0-9_]*)?`), makeToken(tokIdent))
		lexer.Add([]byte(`[a-zA-Z_][a-zA-Z0-9_]*:`), makeToken(tokLabel))
		if lexerErr = lexer.Compile(); lexerErr != nil {
			tracer().Errorf("error compiling DFA: %v", lexerErr)
		}
	})
	return lexer, lexerErr
}

func skip(*lexmachine.Scanner, *machines.Match) (interface{}, error) {
	return nil, nil
}

func makeToken(typ ruffle.TokType) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(int(typ), string(m.Bytes), m), nil
	}
}

// tokenize splits assembler text into tokens. The token list always ends with
// a newline token.
func tokenize(src string) ([]token, error) {
	lex, err := assemblerLexer()
	if err != nil {
		return nil, err
	}
	scanner, err := lex.Scanner([]byte(src))
	if err != nil {
		return nil, err
	}
	var tokens []token
	for tok, err, eof := scanner.Next(); !eof; tok, err, eof = scanner.Next() {
		if err != nil {
			if ui, is := err.(*machines.UnconsumedInput); is {
				return nil, &SyntaxError{
					Line: ui.FailLine,
					Span: ruffle.Span{uint64(ui.FailTC), uint64(ui.FailTC + 1)},
					Msg:  fmt.Sprintf("unexpected input %q", excerpt(ui.Text, ui.FailTC)),
				}
			}
			return nil, err
		}
		t := tok.(*lexmachine.Token)
		tk := token{
			typ:    ruffle.TokType(t.Type),
			lexeme: string(t.Lexeme),
			span:   ruffle.Span{uint64(t.TC), uint64(t.TC + len(t.Lexeme))},
			line:   t.StartLine,
		}
		switch tk.typ {
		case tokString:
			tk.value = tk.lexeme[1 : len(tk.lexeme)-1]
		case tokNumber:
			tk.value, _ = strconv.ParseFloat(tk.lexeme, 64)
		case tokLabel:
			tk.value = tk.lexeme[:len(tk.lexeme)-1]
		default:
			tk.value = tk.lexeme
		}
		tokens = append(tokens, tk)
	}
	if n := len(tokens); n == 0 || tokens[n-1].typ != tokNewline {
		line := 1
		if n > 0 {
			line = tokens[n-1].line
		}
		tokens = append(tokens, token{typ: tokNewline, lexeme: "\n", line: line})
	}
	return tokens, nil
}

func excerpt(text []byte, at int) string {
	end := at + 10
	if end > len(text) {
		end = len(text)
	}
	if at > end {
		at = end
	}
	return string(text[at:end])
}
