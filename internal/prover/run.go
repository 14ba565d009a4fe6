package prover

import (
	"fmt"
	"sort"

	"github.com/dtlang/dtl/internal/config"
	"github.com/dtlang/dtl/internal/diag"
	"github.com/dtlang/dtl/internal/logic"
	"github.com/dtlang/dtl/internal/resolver"
	"github.com/dtlang/dtl/internal/types"
)

// Prove discharges every obligation in prog against kb (prog's base
// knowledge base) and the declared sort universes, producing a
// deterministic Trace. It never mutates kb; each obligation's valuations
// are checked against fresh WithExtraFacts extensions.
func Prove(prog *resolver.Program, kb *logic.KnowledgeBase, profile string) (*Trace, []*diag.Diagnostic) {
	if profile == "" {
		profile = config.DefaultProfile
	}
	obs := BuildObligations(prog)
	var diags []*diag.Diagnostic
	trace := &Trace{SchemaVersion: config.SchemaVersion, Profile: profile}

	for _, ob := range obs {
		valuations, ds := enumerateValuations(ob.VarNames, ob.VarTypes, prog.Universes)
		if len(ds) > 0 {
			diags = append(diags, ds...)
			continue
		}
		result, ce := proveObligation(ob, valuations, kb)
		trace.Summary.Total++
		if result {
			trace.Summary.Proved++
			trace.Obligations = append(trace.Obligations, ObligationTrace{ID: ob.ID, Kind: ob.Kind, Result: "proved"})
		} else {
			trace.Summary.Failed++
			trace.Obligations = append(trace.Obligations, ObligationTrace{ID: ob.ID, Kind: ob.Kind, Result: "failed", Counterexample: ce})
		}
	}
	return trace, diags
}

// proveObligation checks ob over every valuation in its universe product;
// the first valuation for which LHS holds but RHS does not is reported as a
// counterexample, with its premises minimized.
func proveObligation(ob Obligation, valuations [][]types.Value, kb *logic.KnowledgeBase) (bool, *Counterexample) {
	for _, val := range valuations {
		sub := map[string]types.Value{}
		for i, name := range ob.VarNames {
			sub[name] = val[i]
		}
		glhs := substituteFormulaGround(ob.LHS, sub)
		grhs := substituteFormulaGround(ob.RHS, sub)

		var extra []logic.GroundFact
		collectGroundAtoms(glhs, &extra)
		sort.Slice(extra, func(i, j int) bool { return groundFactKey(extra[i]) < groundFactKey(extra[j]) })
		trialKB := kb.WithExtraFacts(extra)
		model := logic.SolveFacts(trialKB)

		if !evalGround(glhs, model) {
			continue // premise false for this valuation: vacuously satisfied
		}
		if evalGround(grhs, model) {
			continue // holds
		}
		premises := minimizePremises(extra, glhs, grhs, kb)
		return false, &Counterexample{
			Valuation:    renderValuation(ob.VarNames, val),
			Premises:     renderPremises(premises),
			MissingGoals: collectMissingGoals(grhs, model),
		}
	}
	return true, nil
}

func substituteFormulaGround(f types.Formula, sub map[string]types.Value) types.Formula {
	switch ff := f.(type) {
	case types.FAtom:
		terms := make([]types.LogicTerm, len(ff.Atom.Terms))
		for i, t := range ff.Atom.Terms {
			terms[i] = substituteTermGround(t, sub)
		}
		return types.FAtom{Atom: types.Atom{Pred: ff.Atom.Pred, Terms: terms}}
	case types.FAnd:
		out := make([]types.Formula, len(ff.Conjuncts))
		for i, c := range ff.Conjuncts {
			out[i] = substituteFormulaGround(c, sub)
		}
		return types.FAnd{Conjuncts: out}
	case types.FNot:
		return types.FNot{Inner: substituteFormulaGround(ff.Inner, sub)}
	default:
		return f
	}
}

func substituteTermGround(t types.LogicTerm, sub map[string]types.Value) types.LogicTerm {
	switch tt := t.(type) {
	case types.TermVar:
		if v, ok := sub[tt.Name]; ok {
			return types.TermFromValue(v)
		}
		return tt
	case types.TermCtor:
		args := make([]types.LogicTerm, len(tt.Args))
		for i, a := range tt.Args {
			args[i] = substituteTermGround(a, sub)
		}
		return types.TermCtor{Ctor: tt.Ctor, Args: args}
	default:
		return t
	}
}

// collectGroundAtoms appends every positive (non-negated) ground atom in f
// to out, skipping atoms that still contain a variable (which should not
// occur once substituteFormulaGround has run over a fully-quantified
// obligation, but is tolerated defensively).
func collectGroundAtoms(f types.Formula, out *[]logic.GroundFact) {
	switch ff := f.(type) {
	case types.FAtom:
		vals := make([]types.Value, len(ff.Atom.Terms))
		for i, t := range ff.Atom.Terms {
			v := groundValue(t)
			if v == nil {
				return
			}
			vals[i] = v
		}
		*out = append(*out, logic.GroundFact{Pred: ff.Atom.Pred, Terms: vals})
	case types.FAnd:
		for _, c := range ff.Conjuncts {
			collectGroundAtoms(c, out)
		}
	}
}

func groundValue(t types.LogicTerm) types.Value {
	switch tt := t.(type) {
	case types.TermSymbol:
		return types.VSymbol{Name: tt.Name}
	case types.TermInt:
		return types.VInt{Value: tt.Value}
	case types.TermBool:
		return types.VBool{Value: tt.Value}
	case types.TermCtor:
		fields := make([]types.Value, len(tt.Args))
		for i, a := range tt.Args {
			v := groundValue(a)
			if v == nil {
				return nil
			}
			fields[i] = v
		}
		return types.VAdt{Ctor: tt.Ctor, Fields: fields}
	default:
		return nil
	}
}

func evalGround(f types.Formula, model *logic.DerivedFacts) bool {
	switch ff := f.(type) {
	case types.FTrue:
		return true
	case types.FAtom:
		vals := make([]types.Value, len(ff.Atom.Terms))
		for i, t := range ff.Atom.Terms {
			v := groundValue(t)
			if v == nil {
				return false
			}
			vals[i] = v
		}
		return model.Contains(ff.Atom.Pred, vals)
	case types.FAnd:
		for _, c := range ff.Conjuncts {
			if !evalGround(c, model) {
				return false
			}
		}
		return true
	case types.FNot:
		return !evalGround(ff.Inner, model)
	default:
		return false
	}
}

func groundFactKey(f logic.GroundFact) string {
	parts := make([]string, len(f.Terms))
	for i, t := range f.Terms {
		parts[i] = t.String()
	}
	return fmt.Sprintf("%s(%s)", f.Pred, joinComma(parts))
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

// minimizePremises does an ascending-size brute-force search for the
// smallest subset of extra that still reproduces the counterexample's
// behavior once unioned into kb — premise true, goal false — preferring a
// small, readable counterexample over the full premise set.
func minimizePremises(extra []logic.GroundFact, glhs, grhs types.Formula, kb *logic.KnowledgeBase) []logic.GroundFact {
	n := len(extra)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	for size := 0; size <= n; size++ {
		var found []int
		if subsetSearch(indices, size, func(subset []int) bool {
			var trial []logic.GroundFact
			for _, idx := range subset {
				trial = append(trial, extra[idx])
			}
			model := logic.SolveFacts(kb.WithExtraFacts(trial))
			return evalGround(glhs, model) && !evalGround(grhs, model)
		}, &found) {
			out := make([]logic.GroundFact, len(found))
			for i, idx := range found {
				out[i] = extra[idx]
			}
			return out
		}
	}
	return extra
}

// subsetSearch tries every size-sized subset of indices in ascending
// combinatorial order, calling test on each; it records the first subset
// that satisfies test into found and returns true, or false if none does.
func subsetSearch(indices []int, size int, test func([]int) bool, found *[]int) bool {
	n := len(indices)
	if size > n {
		return false
	}
	combo := make([]int, size)
	var rec func(start, depth int) bool
	rec = func(start, depth int) bool {
		if depth == size {
			if test(combo) {
				*found = append([]int{}, combo...)
				return true
			}
			return false
		}
		for i := start; i < n; i++ {
			combo[depth] = indices[i]
			if rec(i+1, depth+1) {
				return true
			}
		}
		return false
	}
	return rec(0, 0)
}

func renderValuation(names []string, vals []types.Value) []NameValue {
	out := make([]NameValue, len(names))
	for i, n := range names {
		out[i] = NameValue{Name: n, Value: vals[i].String()}
	}
	return out
}

func renderPremises(facts []logic.GroundFact) []string {
	out := make([]string, len(facts))
	for i, f := range facts {
		out[i] = groundFactKey(f)
	}
	sort.Strings(out)
	return out
}

// collectMissingGoals walks rhs and reports every atom that does not hold
// in model (as "pred(args)") and every Not subformula whose inner formula
// holds (as "not <formula>").
func collectMissingGoals(rhs types.Formula, model *logic.DerivedFacts) []string {
	var goals []string
	var walk func(types.Formula)
	walk = func(f types.Formula) {
		switch ff := f.(type) {
		case types.FAtom:
			if !evalGround(f, model) {
				parts := make([]string, len(ff.Atom.Terms))
				for i, t := range ff.Atom.Terms {
					parts[i] = t.String()
				}
				goals = append(goals, fmt.Sprintf("%s(%s)", ff.Atom.Pred, joinComma(parts)))
			}
		case types.FAnd:
			for _, c := range ff.Conjuncts {
				walk(c)
			}
		case types.FNot:
			if evalGround(ff.Inner, model) {
				goals = append(goals, "not "+ff.Inner.String())
			}
		}
	}
	walk(rhs)
	sort.Strings(goals)
	return goals
}
