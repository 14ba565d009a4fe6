// Package logic is the fixpoint evaluator: given a resolved, stratified
// program, it derives every fact entailed by the rules via closed-world,
// stratified semi-naive evaluation. This is the single "engine A" that both
// the typechecker's entailment check and the prover's counterexample search
// reuse rather than re-implementing their own solver.
package logic

import (
	"sort"

	"github.com/dtlang/dtl/internal/resolver"
	"github.com/dtlang/dtl/internal/types"
)

// GroundFact is a fully ground predicate application, the atomic element of
// both input facts and derived facts.
type GroundFact struct {
	Pred  string
	Terms []types.Value
}

func (f GroundFact) key() string {
	parts := make([]string, len(f.Terms))
	for i, t := range f.Terms {
		parts[i] = t.Key()
	}
	s := f.Pred + "("
	for i, p := range parts {
		if i > 0 {
			s += ","
		}
		s += p
	}
	return s + ")"
}

// KnowledgeBase is an immutable bundle of relation schemas, input facts,
// rules, and a stratum assignment, ready to be solved. WithExtraFacts
// returns a new KnowledgeBase with additional ground facts unioned in — it
// never mutates the receiver, since the typechecker's entailment check and
// the prover's trial evaluations each need their own extended view of the
// same base KB without disturbing each other.
type KnowledgeBase struct {
	Relations map[string]resolver.RelationSig
	Facts     []GroundFact
	Rules     []resolver.Rule
	Strata    map[string]int
}

// Build assembles a KnowledgeBase from a resolved program and its strata.
func Build(prog *resolver.Program, strata map[string]int) *KnowledgeBase {
	kb := &KnowledgeBase{Relations: prog.Relations, Rules: prog.Rules, Strata: strata}
	for _, a := range prog.Facts {
		kb.Facts = append(kb.Facts, atomToGroundFact(a))
	}
	return kb
}

func atomToGroundFact(a types.Atom) GroundFact {
	terms := make([]types.Value, len(a.Terms))
	for i, t := range a.Terms {
		terms[i] = types.ValueFromTerm(t)
	}
	return GroundFact{Pred: a.Pred, Terms: terms}
}

// WithExtraFacts returns a new KnowledgeBase containing kb's facts plus
// extra, deduplicated.
func (kb *KnowledgeBase) WithExtraFacts(extra []GroundFact) *KnowledgeBase {
	seen := map[string]bool{}
	var facts []GroundFact
	for _, f := range kb.Facts {
		if !seen[f.key()] {
			seen[f.key()] = true
			facts = append(facts, f)
		}
	}
	for _, f := range extra {
		if !seen[f.key()] {
			seen[f.key()] = true
			facts = append(facts, f)
		}
	}
	return &KnowledgeBase{Relations: kb.Relations, Facts: facts, Rules: kb.Rules, Strata: kb.Strata}
}

// DerivedFacts is the model computed by SolveFacts: every relation's
// ground-tuple set, input plus derived.
type DerivedFacts struct {
	facts map[string]map[string][]types.Value
}

func newDerivedFacts() *DerivedFacts {
	return &DerivedFacts{facts: map[string]map[string][]types.Value{}}
}

func (d *DerivedFacts) add(f GroundFact) bool {
	m, ok := d.facts[f.Pred]
	if !ok {
		m = map[string][]types.Value{}
		d.facts[f.Pred] = m
	}
	k := f.key()
	if _, exists := m[k]; exists {
		return false
	}
	m[k] = f.Terms
	return true
}

// Contains reports whether pred(terms...) holds in the model.
func (d *DerivedFacts) Contains(pred string, terms []types.Value) bool {
	m, ok := d.facts[pred]
	if !ok {
		return false
	}
	_, ok = m[GroundFact{Pred: pred, Terms: terms}.key()]
	return ok
}

// RelationFacts returns every ground tuple for pred, sorted by key for
// deterministic iteration.
func (d *DerivedFacts) RelationFacts(pred string) []GroundFact {
	m := d.facts[pred]
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]GroundFact, 0, len(keys))
	for _, k := range keys {
		out = append(out, GroundFact{Pred: pred, Terms: m[k]})
	}
	return out
}

// AllFacts returns every derived fact across every relation, sorted by
// (predicate, key) for determinism.
func (d *DerivedFacts) AllFacts() []GroundFact {
	var preds []string
	for p := range d.facts {
		preds = append(preds, p)
	}
	sort.Strings(preds)
	var out []GroundFact
	for _, p := range preds {
		out = append(out, d.RelationFacts(p)...)
	}
	return out
}

// SolveFacts computes the stratified semi-naive fixpoint model of kb: for
// each stratum in increasing order, repeatedly applies every rule whose head
// relation belongs to that stratum until no new fact is derived, then
// advances.
func SolveFacts(kb *KnowledgeBase) *DerivedFacts {
	model := newDerivedFacts()
	for _, f := range kb.Facts {
		model.add(f)
	}

	maxStratum := 0
	for _, s := range kb.Strata {
		if s > maxStratum {
			maxStratum = s
		}
	}

	for stratum := 0; stratum <= maxStratum; stratum++ {
		var rules []resolver.Rule
		for _, r := range kb.Rules {
			if kb.Strata[r.Head.Pred] == stratum {
				rules = append(rules, r)
			}
		}
		for {
			changed := false
			for _, r := range rules {
				for _, f := range evaluateRule(r, model) {
					if model.add(f) {
						changed = true
					}
				}
			}
			if !changed {
				break
			}
		}
	}
	return model
}

type binding map[string]types.Value

func evaluateRule(r resolver.Rule, model *DerivedFacts) []GroundFact {
	var positives, negatives []types.Atom
	for _, b := range r.Body {
		if b.Negated {
			negatives = append(negatives, b.Atom)
		} else {
			positives = append(positives, b.Atom)
		}
	}

	bindings := []binding{{}}
	for _, atom := range positives {
		var next []binding
		for _, b := range bindings {
			candidates := model.RelationFacts(atom.Pred)
			for _, fact := range candidates {
				if nb, ok := unify(atom, fact.Terms, b); ok {
					next = append(next, nb)
				}
			}
		}
		bindings = next
		if len(bindings) == 0 {
			return nil
		}
	}

	var out []GroundFact
	for _, b := range bindings {
		ok := true
		for _, atom := range negatives {
			terms, allGround := instantiateTerms(atom.Terms, b)
			if !allGround || model.Contains(atom.Pred, terms) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		terms, allGround := instantiateTerms(r.Head.Terms, b)
		if !allGround {
			continue
		}
		out = append(out, GroundFact{Pred: r.Head.Pred, Terms: terms})
	}
	return out
}

// unify matches atom's terms against a candidate fact's ground values,
// extending b. Ctor terms unify structurally against VAdt values, field by
// field; every other term kind unifies by equality once both sides are
// resolved to a Value.
func unify(atom types.Atom, factTerms []types.Value, b binding) (binding, bool) {
	if len(atom.Terms) != len(factTerms) {
		return nil, false
	}
	nb := binding{}
	for k, v := range b {
		nb[k] = v
	}
	for i, t := range atom.Terms {
		if !unifyTerm(t, factTerms[i], nb) {
			return nil, false
		}
	}
	return nb, true
}

func unifyTerm(t types.LogicTerm, v types.Value, b binding) bool {
	switch tt := t.(type) {
	case types.TermVar:
		if bound, ok := b[tt.Name]; ok {
			return bound.Key() == v.Key()
		}
		b[tt.Name] = v
		return true
	case types.TermSymbol:
		sv, ok := v.(types.VSymbol)
		return ok && sv.Name == tt.Name
	case types.TermInt:
		iv, ok := v.(types.VInt)
		return ok && iv.Value == tt.Value
	case types.TermBool:
		bv, ok := v.(types.VBool)
		return ok && bv.Value == tt.Value
	case types.TermCtor:
		av, ok := v.(types.VAdt)
		if !ok || av.Ctor != tt.Ctor || len(av.Fields) != len(tt.Args) {
			return false
		}
		for i, a := range tt.Args {
			if !unifyTerm(a, av.Fields[i], b) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// instantiateTerms substitutes b into terms, returning the resulting Values
// and whether every term became fully ground.
func instantiateTerms(terms []types.LogicTerm, b binding) ([]types.Value, bool) {
	out := make([]types.Value, len(terms))
	for i, t := range terms {
		v, ok := instantiateTerm(t, b)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func instantiateTerm(t types.LogicTerm, b binding) (types.Value, bool) {
	switch tt := t.(type) {
	case types.TermVar:
		v, ok := b[tt.Name]
		return v, ok
	case types.TermSymbol:
		return types.VSymbol{Name: tt.Name}, true
	case types.TermInt:
		return types.VInt{Value: tt.Value}, true
	case types.TermBool:
		return types.VBool{Value: tt.Value}, true
	case types.TermCtor:
		fields := make([]types.Value, len(tt.Args))
		for i, a := range tt.Args {
			v, ok := instantiateTerm(a, b)
			if !ok {
				return nil, false
			}
			fields[i] = v
		}
		return types.VAdt{Ctor: tt.Ctor, Fields: fields}, true
	default:
		return nil, false
	}
}
