// Package sexpr groups a lexer.Token stream into a tree of parenthesized
// lists and atoms before any form-specific parsing begins. Shape validation
// for particular forms (sort/data/relation/...) happens later, in
// internal/parser; this package only enforces paren balance.
package sexpr

import (
	"github.com/dtlang/dtl/internal/diag"
	"github.com/dtlang/dtl/internal/lexer"
	"github.com/dtlang/dtl/internal/span"
)

// Node is either an Atom leaf or a List of child Nodes.
type Node struct {
	IsList  bool
	IsQuote bool
	Literal string
	Items   []*Node
	Span    span.Span
}

// Read consumes toks and returns the top-level forms (list Nodes, or an atom
// Node for a bare top-level atom), plus any E-PARSE diagnostics for
// unbalanced parens.
func Read(toks []lexer.Token) ([]*Node, []*diag.Diagnostic) {
	r := &reader{toks: toks}
	var forms []*Node
	var diags []*diag.Diagnostic
	for r.peek().Kind != lexer.EOF {
		n, ds := r.readForm()
		diags = append(diags, ds...)
		if n != nil {
			forms = append(forms, n)
		}
		if len(ds) > 0 {
			break
		}
	}
	return forms, diags
}

type reader struct {
	toks []lexer.Token
	pos  int
}

func (r *reader) peek() lexer.Token {
	if r.pos >= len(r.toks) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return r.toks[r.pos]
}

func (r *reader) next() lexer.Token {
	t := r.peek()
	if r.pos < len(r.toks) {
		r.pos++
	}
	return t
}

func (r *reader) readForm() (*Node, []*diag.Diagnostic) {
	t := r.peek()
	switch t.Kind {
	case lexer.LParen:
		return r.readList()
	case lexer.Atom, lexer.QuotedAtom:
		r.next()
		return &Node{IsList: false, IsQuote: t.Kind == lexer.QuotedAtom, Literal: t.Literal, Span: t.Span}, nil
	case lexer.RParen:
		r.next()
		return nil, []*diag.Diagnostic{diag.New(diag.CodeParse, t.Span, "unexpected ')'")}
	default:
		return nil, nil
	}
}

func (r *reader) readList() (*Node, []*diag.Diagnostic) {
	open := r.next() // consume '('
	var items []*Node
	for {
		t := r.peek()
		if t.Kind == lexer.EOF {
			return nil, []*diag.Diagnostic{diag.New(diag.CodeParse, open.Span, "unbalanced '(': missing ')'")}
		}
		if t.Kind == lexer.RParen {
			r.next()
			return &Node{IsList: true, Items: items, Span: span.Cover(open.Span, t.Span)}, nil
		}
		n, ds := r.readForm()
		if len(ds) > 0 {
			return nil, ds
		}
		if n != nil {
			items = append(items, n)
		}
	}
}
