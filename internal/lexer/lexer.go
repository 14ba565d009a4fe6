// Package lexer tokenizes S-expression source text with a struct-based
// rune scanner (input/position/readPosition/ch/line/column, readChar/
// peekChar, NextToken). The token set is small, since this language's
// grammar is parenthesized lists of atoms rather than an expression
// language with its own operators.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dtlang/dtl/internal/diag"
	"github.com/dtlang/dtl/internal/span"
	"golang.org/x/text/unicode/norm"
)

// Lexer scans one source file into a Token stream.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           rune
	chWidth      int
	line         int
	column       int

	Diagnostics []*diag.Diagnostic
}

// New creates a Lexer over input.
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.chWidth = 0
	} else {
		r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
		l.ch = r
		l.chWidth = w
	}
	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
	l.position = l.readPosition
	l.readPosition += l.chWidth
	if l.chWidth == 0 {
		l.readPosition = len(l.input) + 1
	}
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for unicode.IsSpace(l.ch) {
			l.readChar()
		}
		if l.ch == ';' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		break
	}
}

func isAtomBoundary(r rune) bool {
	return r == 0 || r == '(' || r == ')' || r == '"' || r == ';' || unicode.IsSpace(r)
}

// Tokens scans the full input and returns the token stream. E-PARSE
// diagnostics for malformed quoted atoms are appended to l.Diagnostics
// (everything else — balancing, shape — is the S-expression reader's job,
// not the lexer's).
func (l *Lexer) Tokens() []Token {
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Kind == EOF {
			break
		}
	}
	return toks
}

// NextToken returns the next token, normalizing unquoted Atom literals to
// NFC once here at the lexer boundary, per this project's rule that
// normalization happens exactly once and nowhere downstream.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	start := l.position
	sp := span.Make(l.input, start, start)

	switch {
	case l.ch == 0:
		return Token{Kind: EOF, Span: sp}
	case l.ch == '(':
		l.readChar()
		return Token{Kind: LParen, Literal: "(", Span: span.Make(l.input, start, l.position)}
	case l.ch == ')':
		l.readChar()
		return Token{Kind: RParen, Literal: ")", Span: span.Make(l.input, start, l.position)}
	case l.ch == '"':
		return l.readQuotedAtom(start)
	default:
		return l.readAtom(start)
	}
}

func (l *Lexer) readQuotedAtom(start int) Token {
	l.readChar() // consume opening quote
	var sb strings.Builder
	for l.ch != '"' {
		if l.ch == 0 {
			sp := span.Make(l.input, start, l.position)
			l.Diagnostics = append(l.Diagnostics, diag.New(diag.CodeParse, sp, "unterminated quoted atom"))
			return Token{Kind: QuotedAtom, Literal: sb.String(), Span: sp}
		}
		if l.ch == '\\' {
			escStart := l.position
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case '"':
				sb.WriteRune('"')
			case '\\':
				sb.WriteRune('\\')
			default:
				sp := span.Make(l.input, escStart, l.position+l.chWidth)
				l.Diagnostics = append(l.Diagnostics, diag.New(diag.CodeParse, sp, "unknown escape sequence '\\%c'", l.ch))
				sb.WriteRune(l.ch)
			}
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar() // consume closing quote
	return Token{Kind: QuotedAtom, Literal: sb.String(), Span: span.Make(l.input, start, l.position)}
}

func (l *Lexer) readAtom(start int) Token {
	var sb strings.Builder
	for !isAtomBoundary(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	lit := norm.NFC.String(sb.String())
	return Token{Kind: Atom, Literal: lit, Span: span.Make(l.input, start, l.position)}
}
