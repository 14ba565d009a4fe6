package resolver

import (
	"testing"

	"github.com/dtlang/dtl/internal/ast"
	"github.com/dtlang/dtl/internal/span"
)

func TestResolve_RejectsUnsafeRule(t *testing.T) {
	prog := &ast.Program{
		Relations: []*ast.RelationDecl{
			{Name: "p", ArgTypes: []ast.TypeExpr{ast.TyName{Name: "Symbol"}}},
			{Name: "q", ArgTypes: []ast.TypeExpr{ast.TyName{Name: "Symbol"}}},
		},
		Rules: []*ast.Rule{
			{
				Head: &ast.Atom{Pred: "p", Terms: []ast.Term{ast.TmVar{Name: "?x"}}},
				Body: []ast.BodyAtom{
					{Atom: &ast.Atom{Pred: "q", Terms: []ast.Term{ast.TmVar{Name: "?y"}}}},
				},
				Span: span.Zero,
			},
		},
	}
	_, diags := Resolve(prog)
	if len(diags) == 0 {
		t.Fatal("expected an unsafe-rule diagnostic")
	}
	found := false
	for _, d := range diags {
		if d.Code == "E-RESOLVE" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected E-RESOLVE among diagnostics, got %v", diags)
	}
}

func TestResolve_DuplicateSort(t *testing.T) {
	prog := &ast.Program{
		Sorts: []*ast.SortDecl{{Name: "Node", Span: span.Zero}, {Name: "Node", Span: span.Zero}},
	}
	_, diags := Resolve(prog)
	if len(diags) != 1 {
		t.Fatalf("expected exactly one duplicate-sort diagnostic, got %d", len(diags))
	}
}

func TestResolve_AliasExpansion(t *testing.T) {
	prog := &ast.Program{
		Sorts:   []*ast.SortDecl{{Name: "Node", Span: span.Zero}},
		Aliases: []*ast.AliasDecl{{Name: "Vertex", Target: ast.TyName{Name: "Node"}, Span: span.Zero}},
		Relations: []*ast.RelationDecl{
			{Name: "edge", ArgTypes: []ast.TypeExpr{ast.TyName{Name: "Vertex"}, ast.TyName{Name: "Vertex"}}},
		},
	}
	resolved, diags := Resolve(prog)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	sig := resolved.Relations["edge"]
	if sig.ArgTypes[0].String() != "Node" {
		t.Errorf("expected alias Vertex to expand to Node, got %s", sig.ArgTypes[0].String())
	}
}
