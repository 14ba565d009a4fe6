package dtl

import "testing"

func TestCheckProgram_ReachabilityFixpoint(t *testing.T) {
	src := `
	(sort Node)
	(relation edge Node Node)
	(relation reachable Node Node)
	(fact edge a b)
	(fact edge b c)
	(rule (reachable ?x ?y) (edge ?x ?y))
	(rule (reachable ?x ?z) (edge ?x ?y) (reachable ?y ?z))
	`
	n, diags := CheckProgram("t.dtl", src)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if n != 0 {
		t.Errorf("expected 0 functions checked (no defns), got %d", n)
	}
}

func TestCheckProgram_RejectsUnsafeRule(t *testing.T) {
	src := `
	(relation p Symbol)
	(relation q Symbol)
	(rule (p ?x) (q ?y))
	`
	_, diags := CheckProgram("t.dtl", src)
	if len(diags) == 0 {
		t.Fatal("expected a diagnostic for the unsafe rule")
	}
}

func TestProveProgram_AssertCounterexample(t *testing.T) {
	src := `
	(sort Node)
	(universe Node a b)
	(relation bad Node)
	(fact bad a)
	(assert no_bad_nodes ((?n Node)) (not (bad ?n)))
	`
	trace, diags := ProveProgram("t.dtl", src, "")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if trace.Summary.Failed == 0 {
		t.Fatal("expected the assertion to fail for node a")
	}
	ob := trace.Obligations[0]
	if ob.Counterexample == nil {
		t.Fatal("expected a counterexample on the failed obligation")
	}
}

func TestProveProgram_AssertHoldsForAllUniverseValues(t *testing.T) {
	src := `
	(sort Node)
	(universe Node a b)
	(relation bad Node)
	(assert no_bad_nodes ((?n Node)) (not (bad ?n)))
	`
	trace, diags := ProveProgram("t.dtl", src, "")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if trace.Summary.Failed != 0 {
		t.Errorf("expected the assertion to hold with no bad facts, got %d failed", trace.Summary.Failed)
	}
}

func TestCheckProgram_RefinementEntailment(t *testing.T) {
	src := `
	(sort Node)
	(universe Node a b)
	(relation reachable Node Node)
	(fact reachable a b)
	(defn check_reachable ((?x Node) (?y Node)) (refine b Bool (reachable ?x ?y))
	  (reachable ?x ?y))
	`
	_, diags := CheckProgram("t.dtl", src)
	if len(diags) != 0 {
		t.Fatalf("unexpected typecheck diagnostics: %v", diags)
	}
}
