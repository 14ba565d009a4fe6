package stratify

import (
	"testing"

	"github.com/dtlang/dtl/internal/resolver"
	"github.com/dtlang/dtl/internal/types"
)

func atom(pred string, vars ...string) types.Atom {
	terms := make([]types.LogicTerm, len(vars))
	for i, v := range vars {
		terms[i] = types.TermVar{Name: v}
	}
	return types.Atom{Pred: pred, Terms: terms}
}

func TestCompute_AssignsLaterStratumToNegatedDependency(t *testing.T) {
	prog := &resolver.Program{
		Relations: map[string]resolver.RelationSig{"edge": {Name: "edge"}, "safe": {Name: "safe"}},
		Rules: []resolver.Rule{
			{Head: atom("safe", "?x"), Body: []resolver.BodyAtom{{Atom: atom("edge", "?x"), Negated: true}}},
		},
	}
	strata, ds := Compute(prog)
	if len(ds) != 0 {
		t.Fatalf("unexpected diagnostics: %v", ds)
	}
	if strata["safe"] <= strata["edge"] {
		t.Errorf("safe (stratum %d) must be later than edge (stratum %d)", strata["safe"], strata["edge"])
	}
}

func TestCompute_RejectsSelfNegation(t *testing.T) {
	prog := &resolver.Program{
		Relations: map[string]resolver.RelationSig{"p": {Name: "p"}},
		Rules: []resolver.Rule{
			{Head: atom("p", "?x"), Body: []resolver.BodyAtom{{Atom: atom("p", "?x"), Negated: true}}},
		},
	}
	_, ds := Compute(prog)
	if len(ds) == 0 {
		t.Fatal("expected a stratification diagnostic for self-negation")
	}
	if ds[0].Code != "E-STRATIFY" {
		t.Errorf("expected E-STRATIFY, got %s", ds[0].Code)
	}
}

func TestCompute_RejectsNegativeCycle(t *testing.T) {
	prog := &resolver.Program{
		Relations: map[string]resolver.RelationSig{"p": {Name: "p"}, "q": {Name: "q"}},
		Rules: []resolver.Rule{
			{Head: atom("p", "?x"), Body: []resolver.BodyAtom{{Atom: atom("q", "?x"), Negated: true}}},
			{Head: atom("q", "?x"), Body: []resolver.BodyAtom{{Atom: atom("p", "?x"), Negated: true}}},
		},
	}
	_, ds := Compute(prog)
	if len(ds) == 0 {
		t.Fatal("expected a stratification diagnostic for a negative cycle across p/q")
	}
}
