package lexer

import "github.com/dtlang/dtl/internal/span"

// Kind distinguishes the small token set this language's lexer needs: an
// S-expression grammar has no operators, so the token set collapses to
// parens, atoms, and end-of-file.
type Kind int

const (
	EOF Kind = iota
	LParen
	RParen
	// Atom is any contiguous run of characters other than whitespace,
	// parens, '"' and ';'. Int/Bool/Symbol/Var classification happens
	// later (internal/parser), since the lexer has no grammar context.
	Atom
	// QuotedAtom is a "..."-quoted run, held without its outer quotes and
	// with its escapes already decoded; unlike Atom it is never
	// NFC-normalized, since a quoted literal's bytes are user-significant.
	QuotedAtom
)

// Token is one lexical unit with its source span.
type Token struct {
	Kind    Kind
	Literal string
	Span    span.Span
}
