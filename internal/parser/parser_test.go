package parser

import (
	"testing"

	"github.com/dtlang/dtl/internal/lexer"
	"github.com/dtlang/dtl/internal/sexpr"
)

func parseSource(t *testing.T, src string) (forms int, diagCount int) {
	t.Helper()
	l := lexer.New(src)
	toks := l.Tokens()
	nodes, ds := sexpr.Read(toks)
	if len(ds) > 0 {
		return 0, len(ds)
	}
	_, pds := Parse("test.dtl", nodes)
	return len(nodes), len(pds)
}

func TestParse_TopLevelForms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int // expected diagnostic count
	}{
		{"sort", `(sort Node)`, 0},
		{"relation", `(relation edge Node Node)`, 0},
		{"fact", `(relation edge Node Node) (fact edge a b)`, 0},
		{"rule", `(relation edge Node Node) (relation reachable Node Node)
		          (rule (reachable ?x ?y) (edge ?x ?y))`, 0},
		{"unknown-head", `(frobnicate a b)`, 1},
		{"bad-sort-arity", `(sort)`, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, diags := parseSource(t, tc.src)
			if diags != tc.want {
				t.Errorf("%s: got %d diagnostics, want %d", tc.name, diags, tc.want)
			}
		})
	}
}

func TestParse_DefnWithIfAndMatch(t *testing.T) {
	src := `
	(data List (nil) (cons Int List))
	(defn len ((l List)) Int
	  (match l
	    (nil 0)
	    ((cons ?h ?t) 1)))
	(defn choose ((b Bool)) Int
	  (if b 1 0))
	`
	_, diags := parseSource(t, src)
	if diags != 0 {
		t.Errorf("expected no parse diagnostics, got %d", diags)
	}
}

func TestSexpr_UnbalancedParens(t *testing.T) {
	l := lexer.New(`(sort Node`)
	toks := l.Tokens()
	_, ds := sexpr.Read(toks)
	if len(ds) == 0 {
		t.Fatal("expected an E-PARSE diagnostic for an unbalanced paren")
	}
	if ds[0].Code != "E-PARSE" {
		t.Errorf("expected E-PARSE, got %s", ds[0].Code)
	}
}
