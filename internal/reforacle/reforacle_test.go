package reforacle

import (
	"testing"

	"github.com/dtlang/dtl/internal/lexer"
	"github.com/dtlang/dtl/internal/logic"
	"github.com/dtlang/dtl/internal/parser"
	"github.com/dtlang/dtl/internal/prover"
	"github.com/dtlang/dtl/internal/resolver"
	"github.com/dtlang/dtl/internal/sexpr"
	"github.com/dtlang/dtl/internal/stratify"
	"github.com/dtlang/dtl/internal/surface"
	"github.com/dtlang/dtl/internal/types"
)

func buildProgram(t *testing.T, src string) (*resolver.Program, *logic.KnowledgeBase) {
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

// TestEval_AgreesWithDirectRelationLookup checks reforacle's direct
// interpretation of a relation-call body against the model's own Contains,
// the ground truth neither engine should disagree with.
func TestEval_AgreesWithDirectRelationLookup(t *testing.T) {
	src := `
	(sort Node)
	(universe Node a b c)
	(relation reachable Node Node)
	(fact reachable a b)
	(defn check_reachable ((?x Node) (?y Node)) (refine r Bool (reachable ?x ?y))
	  (reachable ?x ?y))
	`
	resolved, kb := buildProgram(t, src)
	model := logic.SolveFacts(kb)
	defn := resolved.Defns["check_reachable"]
	universe := resolved.Universes["Node"]

	for _, x := range universe {
		for _, y := range universe {
			want := model.Contains("reachable", []types.Value{x, y})
			got, checked := VerifyDefnObligation(defn, []types.Value{x, y}, resolved, model)
			if !checked {
				t.Fatalf("expected a Bool-returning body to be checkable for (%s,%s)", x.String(), y.String())
			}
			if got != want {
				t.Errorf("reforacle disagreed with the model for (%s,%s): got %v, want %v", x.String(), y.String(), got, want)
			}
		}
	}
}

// TestEval_AgreesWithProverOnIfDistillation cross-checks the prover's
// distillation-based verdict against reforacle's direct tree-walk for an
// If-bearing defn body, the differential-equivalence property this package
// exists to guard.
func TestEval_AgreesWithProverOnIfDistillation(t *testing.T) {
	src := `
	(sort Node)
	(universe Node a b)
	(relation left Node)
	(relation right Node)
	(fact left a)
	(fact right b)
	(defn pick ((?x Node)) (refine r Bool (or (left ?x) (right ?x)))
	  (if (left ?x) true (right ?x)))
	`
	resolved, kb := buildProgram(t, src)
	model := logic.SolveFacts(kb)
	defn := resolved.Defns["pick"]
	universe := resolved.Universes["Node"]

	trace, diags := prover.Prove(resolved, kb, "")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if trace.Summary.Failed != 0 {
		t.Fatalf("expected the prover to accept pick, got %d failed", trace.Summary.Failed)
	}

	for _, x := range universe {
		directResult, checked := VerifyDefnObligation(defn, []types.Value{x}, resolved, model)
		if !checked {
			t.Fatalf("expected pick's body to be directly checkable for %s", x.String())
		}
		if !directResult {
			t.Errorf("reforacle found pick(%s) false, contradicting the prover's proved verdict", x.String())
		}
	}
}
