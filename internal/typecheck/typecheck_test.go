package typecheck

import (
	"testing"

	"github.com/dtlang/dtl/internal/lexer"
	"github.com/dtlang/dtl/internal/logic"
	"github.com/dtlang/dtl/internal/parser"
	"github.com/dtlang/dtl/internal/resolver"
	"github.com/dtlang/dtl/internal/sexpr"
	"github.com/dtlang/dtl/internal/stratify"
	"github.com/dtlang/dtl/internal/surface"
	"github.com/dtlang/dtl/internal/types"
)

func buildKB(t *testing.T, src string) (*resolver.Program, *logic.KnowledgeBase) {
	t.Helper()
	l := lexer.New(src)
	forms, ds := sexpr.Read(l.Tokens())
	if len(ds) > 0 {
		t.Fatalf("sexpr errors: %v", ds)
	}
	forms, sds := surface.Desugar(forms)
	if len(sds) > 0 {
		t.Fatalf("surface errors: %v", sds)
	}
	prog, pds := parser.Parse("t.dtl", forms)
	if len(pds) > 0 {
		t.Fatalf("parse errors: %v", pds)
	}
	resolved, rds := resolver.Resolve(prog)
	if len(rds) > 0 {
		t.Fatalf("resolve errors: %v", rds)
	}
	strata, sds := stratify.Compute(resolved)
	if len(sds) > 0 {
		t.Fatalf("stratify errors: %v", sds)
	}
	return resolved, logic.Build(resolved, strata)
}

func TestIsSubtype_RefinementRenaming(t *testing.T) {
	kb := &logic.KnowledgeBase{
		Relations: map[string]resolver.RelationSig{
			"p": {Name: "p", ArgTypes: []types.Type{types.TSymbol{}}},
		},
	}
	c := &checker{kb: kb}
	sub := types.TRefine{
		Var:  "x",
		Base: types.TSymbol{},
		Formula: types.FAtom{Atom: types.Atom{
			Pred: "p", Terms: []types.LogicTerm{types.TermVar{Name: "x"}},
		}},
	}
	sup := types.TRefine{
		Var:  "y",
		Base: types.TSymbol{},
		Formula: types.FAtom{Atom: types.Atom{
			Pred: "p", Terms: []types.LogicTerm{types.TermVar{Name: "y"}},
		}},
	}
	if !c.isSubtype(sub, sup) {
		t.Fatal("expected {x:Symbol|p(x)} <: {y:Symbol|p(y)} via bound-variable renaming")
	}
}

func TestIsSubtype_RejectsUnrelatedFormula(t *testing.T) {
	kb := &logic.KnowledgeBase{
		Relations: map[string]resolver.RelationSig{
			"p": {Name: "p", ArgTypes: []types.Type{types.TSymbol{}}},
			"q": {Name: "q", ArgTypes: []types.Type{types.TSymbol{}}},
		},
	}
	c := &checker{kb: kb}
	sub := types.TRefine{Var: "x", Base: types.TSymbol{}, Formula: types.FTrue{}}
	sup := types.TRefine{
		Var:  "x",
		Base: types.TSymbol{},
		Formula: types.FAtom{Atom: types.Atom{
			Pred: "q", Terms: []types.LogicTerm{types.TermVar{Name: "x"}},
		}},
	}
	if c.isSubtype(sub, sup) {
		t.Fatal("a bare {x:Symbol|true} should not entail {x:Symbol|q(x)}")
	}
}

func TestCheckProgram_RejectsUnconditionalSelfRecursion(t *testing.T) {
	src := `
	(defn loop ((?x Int)) Int
	  (loop ?x))
	`
	resolved, kb := buildKB(t, src)
	_, diags := CheckProgram(resolved, kb)
	found := false
	for _, d := range diags {
		if d.Code == "E-TOTAL" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an E-TOTAL diagnostic, got %v", diags)
	}
}

func TestCheckProgram_AllowsRecursionGuardedByIf(t *testing.T) {
	src := `
	(relation is_zero Int)
	(defn countdown ((?x Int)) Int
	  (if (is_zero ?x) 0 (countdown ?x)))
	`
	resolved, kb := buildKB(t, src)
	_, diags := CheckProgram(resolved, kb)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics for if-guarded recursion: %v", diags)
	}
}

func TestCheckProgram_NonExhaustiveMatch(t *testing.T) {
	src := `
	(data Shape (circle) (square))
	(defn is_circle ((?s Shape)) Bool
	  (match ?s
	    ((circle) true)))
	`
	resolved, kb := buildKB(t, src)
	_, diags := CheckProgram(resolved, kb)
	found := false
	for _, d := range diags {
		if d.Code == "E-MATCH" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an E-MATCH diagnostic for the missing square arm, got %v", diags)
	}
}

func TestCheckProgram_FailingRefinementReturnIsEntailError(t *testing.T) {
	src := `
	(sort Subject)
	(relation allowed Subject)
	(relation other Subject)
	(defn must-be-allowed ((?u Subject)) (refine b Bool (allowed ?u))
	  (other ?u))
	`
	resolved, kb := buildKB(t, src)
	_, diags := CheckProgram(resolved, kb)
	found := false
	for _, d := range diags {
		if d.Code == "E-ENTAIL" {
			found = true
		}
		if d.Code == "E-TYPE" {
			t.Fatalf("expected E-ENTAIL, not a generic E-TYPE diagnostic: %v", diags)
		}
	}
	if !found {
		t.Fatalf("expected an E-ENTAIL diagnostic for the unsatisfied return refinement, got %v", diags)
	}
}

func TestCheckProgram_IfBranchTypeMismatchIsTypeError(t *testing.T) {
	src := `
	(data Shape (circle))
	(defn f ((?x Bool)) Int
	  (if ?x 5 (circle)))
	`
	resolved, kb := buildKB(t, src)
	_, diags := CheckProgram(resolved, kb)
	found := false
	for _, d := range diags {
		if d.Code == "E-TYPE" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an E-TYPE diagnostic for incompatible if branches, got %v", diags)
	}
}

func TestCheckProgram_MatchArmTypeMismatchIsTypeError(t *testing.T) {
	src := `
	(data Shape (circle) (square))
	(defn f ((?s Shape)) Int
	  (match ?s
	    ((circle) 1)
	    ((square) (circle))))
	`
	resolved, kb := buildKB(t, src)
	_, diags := CheckProgram(resolved, kb)
	found := false
	for _, d := range diags {
		if d.Code == "E-TYPE" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an E-TYPE diagnostic for incompatible match arms, got %v", diags)
	}
}

func TestCheckProgram_ExhaustiveMatchAccepted(t *testing.T) {
	src := `
	(data Shape (circle) (square))
	(defn is_circle ((?s Shape)) Bool
	  (match ?s
	    ((circle) true)
	    ((square) false)))
	`
	resolved, kb := buildKB(t, src)
	_, diags := CheckProgram(resolved, kb)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
}
