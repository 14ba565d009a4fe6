// Package typecheck checks every defn's body against its declared
// refinement-typed signature. Refinement subtyping is decided by
// entailment, and entailment is decided by grounding the formulas'
// variables to fresh symbols and re-running internal/logic's fixpoint
// evaluator — there is deliberately no separate constraint solver; this
// package (engine B) is built entirely on top of internal/logic (engine A).
package typecheck

import (
	"fmt"

	"github.com/dtlang/dtl/internal/ast"
	"github.com/dtlang/dtl/internal/diag"
	"github.com/dtlang/dtl/internal/logic"
	"github.com/dtlang/dtl/internal/resolver"
	"github.com/dtlang/dtl/internal/span"
	"github.com/dtlang/dtl/internal/types"
)

// Report summarizes a full typecheck run.
type Report struct {
	FunctionsChecked int
}

type checker struct {
	prog *resolver.Program
	kb   *logic.KnowledgeBase
	bag  diag.Bag
}

// CheckProgram typechecks every defn in prog against kb (built from prog and
// its strata by the caller, typically via logic.Build).
func CheckProgram(prog *resolver.Program, kb *logic.KnowledgeBase) (*Report, []*diag.Diagnostic) {
	c := &checker{prog: prog, kb: kb}
	for _, name := range prog.DefnOrder {
		c.checkDefn(prog.Defns[name])
	}
	return &Report{FunctionsChecked: len(prog.DefnOrder)}, c.bag.All()
}

func (c *checker) checkDefn(d *resolver.ResolvedDefn) {
	scope := map[string]types.Type{}
	for i, n := range d.Sig.ParamNames {
		scope[n] = d.Sig.ParamTypes[i]
	}
	bodyTy := c.inferExpr(d.Body, scope)
	c.ensureReturnSubtype(bodyTy, d.Sig.Ret, d.Body.Span(), d.Sig.Name)
	c.checkTotality(d)
}

// ensureReturnSubtype checks a defn body's inferred type against its
// declared return type. A failure against a Refine return type is reported
// as an entailment failure (E-ENTAIL), since the base type already matched
// and what's left to fail is the refinement formula's implication; any
// other return-type mismatch is a plain E-TYPE.
func (c *checker) ensureReturnSubtype(sub, sup types.Type, sp span.Span, fnName string) {
	if c.isSubtype(sub, sup) {
		return
	}
	if _, ok := sup.(types.TRefine); ok {
		c.bag.Addf(diag.CodeEntail, sp, "function %q body does not satisfy its return refinement %s", fnName, sup.String())
		return
	}
	c.bag.Addf(diag.CodeType, sp, "type %s is not a subtype of %s", sub.String(), sup.String())
}

// checkTotality rejects direct, unconditioned self-recursion: a defn that
// calls itself without a preceding case-split (if/match) provably never
// terminates. Mutual recursion across distinct defns is accepted without a
// structural descent analysis — see DESIGN.md's Open Question decisions.
func (c *checker) checkTotality(d *resolver.ResolvedDefn) {
	if callsUnconditionally(d.Body, d.Sig.Name) {
		c.bag.Addf(diag.CodeTotal, d.Span, "function %q recurses unconditionally and may not terminate", d.Sig.Name)
	}
}

func callsUnconditionally(e ast.Expr, self string) bool {
	switch ex := e.(type) {
	case ast.ExCall:
		if ex.Name == self {
			return true
		}
		for _, a := range ex.Args {
			if callsUnconditionally(a, self) {
				return true
			}
		}
		return false
	case ast.ExLet:
		return callsUnconditionally(ex.Value, self) || callsUnconditionally(ex.Body, self)
	default:
		// If and Match branch execution, so a self-call guarded behind
		// them is not unconditional.
		return false
	}
}

func (c *checker) ensureSubtype(sub, sup types.Type, sp span.Span) {
	if !c.isSubtype(sub, sup) {
		c.bag.Addf(diag.CodeType, sp, "type %s is not a subtype of %s", sub.String(), sup.String())
	}
}

// isSubtype implements base-type compatibility plus refinement peeling:
// {v:B|p} <: {v:B'|q} iff B<:B' and, renaming bound vars to agree, p entails
// q under kb. A non-refinement type is treated as {v:T|true}.
func (c *checker) isSubtype(sub, sup types.Type) bool {
	supRefine, supIsRefine := sup.(types.TRefine)
	subRefine, subIsRefine := sub.(types.TRefine)

	if !supIsRefine {
		return c.isBaseSubtype(types.AsBase(sub), sup)
	}
	if !c.isBaseSubtype(types.AsBase(sub), supRefine.Base) {
		return false
	}
	var lhs types.Formula = types.FTrue{}
	v := supRefine.Var
	if subIsRefine {
		lhs = renameFormulaVar(subRefine.Formula, subRefine.Var, v)
	}
	rhs := supRefine.Formula
	return c.entails(lhs, rhs)
}

func (c *checker) isBaseSubtype(sub, sup types.Type) bool {
	sup = types.AsBase(sup)
	switch s := sub.(type) {
	case types.TBool:
		_, ok := sup.(types.TBool)
		return ok
	case types.TInt:
		_, ok := sup.(types.TInt)
		return ok
	case types.TSymbol:
		switch sup.(type) {
		case types.TSymbol, types.TDomain:
			return true
		}
		return false
	case types.TDomain:
		switch sp := sup.(type) {
		case types.TSymbol:
			return true
		case types.TDomain:
			return sp.Name == s.Name
		}
		return false
	case types.TAdt:
		sp, ok := sup.(types.TAdt)
		return ok && sp.Name == s.Name
	case types.TFun:
		sp, ok := sup.(types.TFun)
		if !ok || len(sp.Params) != len(s.Params) {
			return false
		}
		for i := range s.Params {
			if !c.isBaseSubtype(types.AsBase(s.Params[i]), types.AsBase(sp.Params[i])) ||
				!c.isBaseSubtype(types.AsBase(sp.Params[i]), types.AsBase(s.Params[i])) {
				return false
			}
		}
		return c.isBaseSubtype(types.AsBase(s.Result), types.AsBase(sp.Result))
	default:
		return false
	}
}

func renameFormulaVar(f types.Formula, from, to string) types.Formula {
	if from == to {
		return f
	}
	switch ff := f.(type) {
	case types.FAtom:
		terms := make([]types.LogicTerm, len(ff.Atom.Terms))
		for i, t := range ff.Atom.Terms {
			terms[i] = renameTermVar(t, from, to)
		}
		return types.FAtom{Atom: types.Atom{Pred: ff.Atom.Pred, Terms: terms}}
	case types.FAnd:
		out := make([]types.Formula, len(ff.Conjuncts))
		for i, c := range ff.Conjuncts {
			out[i] = renameFormulaVar(c, from, to)
		}
		return types.FAnd{Conjuncts: out}
	case types.FNot:
		return types.FNot{Inner: renameFormulaVar(ff.Inner, from, to)}
	default:
		return f
	}
}

func renameTermVar(t types.LogicTerm, from, to string) types.LogicTerm {
	switch tt := t.(type) {
	case types.TermVar:
		if tt.Name == from {
			return types.TermVar{Name: to}
		}
		return tt
	case types.TermCtor:
		args := make([]types.LogicTerm, len(tt.Args))
		for i, a := range tt.Args {
			args[i] = renameTermVar(a, from, to)
		}
		return types.TermCtor{Ctor: tt.Ctor, Args: args}
	default:
		return t
	}
}

// entails decides "does lhs imply rhs" by grounding every free variable of
// lhs and rhs to a fresh distinct symbol, evaluating lhs's positive atoms as
// extra facts against kb, and checking whether rhs then holds in the
// resulting model. If lhs is false in that model the implication is
// vacuously true.
func (c *checker) entails(lhs, rhs types.Formula) bool {
	varSet := map[string]bool{}
	for _, v := range types.FormulaVars(lhs) {
		varSet[v] = true
	}
	for _, v := range types.FormulaVars(rhs) {
		varSet[v] = true
	}
	groundSub := map[string]types.Value{}
	for v := range varSet {
		groundSub[v] = types.VSymbol{Name: "__v_" + v}
	}
	glhs := substituteFormulaValues(lhs, groundSub)
	grhs := substituteFormulaValues(rhs, groundSub)

	var extra []logic.GroundFact
	if !collectPositiveGroundFacts(glhs, &extra) {
		// lhs has a positive atom that is still not ground and so can't
		// become an extra fact; it is left out, and lhs is evaluated
		// against kb plus the facts that were collected.
	}
	trialKB := c.kb.WithExtraFacts(extra)
	model := logic.SolveFacts(trialKB)

	if !evalFormula(glhs, model) {
		return true // vacuous
	}
	return evalFormula(grhs, model)
}

func substituteFormulaValues(f types.Formula, sub map[string]types.Value) types.Formula {
	switch ff := f.(type) {
	case types.FAtom:
		terms := make([]types.LogicTerm, len(ff.Atom.Terms))
		for i, t := range ff.Atom.Terms {
			terms[i] = substituteTermValue(t, sub)
		}
		return types.FAtom{Atom: types.Atom{Pred: ff.Atom.Pred, Terms: terms}}
	case types.FAnd:
		out := make([]types.Formula, len(ff.Conjuncts))
		for i, c := range ff.Conjuncts {
			out[i] = substituteFormulaValues(c, sub)
		}
		return types.FAnd{Conjuncts: out}
	case types.FNot:
		return types.FNot{Inner: substituteFormulaValues(ff.Inner, sub)}
	default:
		return f
	}
}

func substituteTermValue(t types.LogicTerm, sub map[string]types.Value) types.LogicTerm {
	switch tt := t.(type) {
	case types.TermVar:
		if v, ok := sub[tt.Name]; ok {
			return types.TermFromValue(v)
		}
		return tt
	case types.TermCtor:
		args := make([]types.LogicTerm, len(tt.Args))
		for i, a := range tt.Args {
			args[i] = substituteTermValue(a, sub)
		}
		return types.TermCtor{Ctor: tt.Ctor, Args: args}
	default:
		return t
	}
}

// collectPositiveGroundFacts walks f's positive (non-negated) atoms and
// appends any that are fully ground to out; it returns false if a positive
// atom was not ground (could not be turned into a fact).
func collectPositiveGroundFacts(f types.Formula, out *[]logic.GroundFact) bool {
	switch ff := f.(type) {
	case types.FAtom:
		vals := make([]types.Value, len(ff.Atom.Terms))
		for i, t := range ff.Atom.Terms {
			v := termValue(t)
			if v == nil {
				return false
			}
			vals[i] = v
		}
		*out = append(*out, logic.GroundFact{Pred: ff.Atom.Pred, Terms: vals})
		return true
	case types.FAnd:
		ok := true
		for _, c := range ff.Conjuncts {
			if !collectPositiveGroundFacts(c, out) {
				ok = false
			}
		}
		return ok
	default:
		return true
	}
}

func termValue(t types.LogicTerm) types.Value {
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
			v := termValue(a)
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

// evalFormula evaluates a ground formula against model; it is the
// typechecker's own tiny read-only evaluator over the already-derived
// model, not a second solver — it performs no fixpoint of its own.
func evalFormula(f types.Formula, model *logic.DerivedFacts) bool {
	switch ff := f.(type) {
	case types.FTrue:
		return true
	case types.FAtom:
		vals := make([]types.Value, len(ff.Atom.Terms))
		for i, t := range ff.Atom.Terms {
			v := termValue(t)
			if v == nil {
				return false
			}
			vals[i] = v
		}
		return model.Contains(ff.Atom.Pred, vals)
	case types.FAnd:
		for _, c := range ff.Conjuncts {
			if !evalFormula(c, model) {
				return false
			}
		}
		return true
	case types.FNot:
		return !evalFormula(ff.Inner, model)
	default:
		return false
	}
}

func (c *checker) inferExpr(e ast.Expr, scope map[string]types.Type) types.Type {
	switch ex := e.(type) {
	case ast.ExVar:
		if t, ok := scope[ex.Name]; ok {
			return t
		}
		c.bag.Addf(diag.CodeResolve, ex.Sp, "variable %s is not in scope", ex.Name)
		return types.TBool{}
	case ast.ExSymbol:
		return types.TSymbol{}
	case ast.ExInt:
		return types.TInt{}
	case ast.ExBool:
		return types.TRefine{
			Var:     "b",
			Base:    types.TBool{},
			Formula: boolLiteralFormula(ex.Value),
		}
	case ast.ExLet:
		vt := c.inferExpr(ex.Value, scope)
		inner := cloneScope(scope)
		inner[ex.Name] = vt
		return c.inferExpr(ex.Body, inner)
	case ast.ExIf:
		c.ensureSubtype(c.inferExpr(ex.Cond, scope), types.TBool{}, ex.Cond.Span())
		tt := c.inferExpr(ex.Then, scope)
		te := c.inferExpr(ex.Else, scope)
		if c.isSubtype(te, tt) {
			return tt
		}
		if c.isSubtype(tt, te) {
			return te
		}
		c.bag.Addf(diag.CodeType, ex.Sp, "if branches have incompatible types: %s and %s", tt.String(), te.String())
		return types.AsBase(tt)
	case ast.ExMatch:
		return c.inferMatch(ex, scope)
	case ast.ExCall:
		return c.inferCall(ex, scope)
	default:
		return types.TBool{}
	}
}

func boolLiteralFormula(v bool) types.Formula {
	if v {
		return types.FTrue{}
	}
	return types.FNot{Inner: types.FTrue{}}
}

func cloneScope(scope map[string]types.Type) map[string]types.Type {
	out := make(map[string]types.Type, len(scope)+1)
	for k, v := range scope {
		out[k] = v
	}
	return out
}

func (c *checker) inferCall(ex ast.ExCall, scope map[string]types.Type) types.Type {
	if sig, ok := c.prog.Relations[ex.Name]; ok {
		if len(sig.ArgTypes) != len(ex.Args) {
			c.bag.Addf(diag.CodeType, ex.Sp, "relation %q expects %d argument(s), got %d", ex.Name, len(sig.ArgTypes), len(ex.Args))
		}
		var terms []types.LogicTerm
		for _, a := range ex.Args {
			t, ok := exprToLogicTerm(a)
			if !ok {
				c.bag.Addf(diag.CodeType, a.Span(), "relation arguments must be variables or literals")
				continue
			}
			terms = append(terms, t)
		}
		return types.TRefine{Var: "b", Base: types.TBool{}, Formula: types.FAtom{Atom: types.Atom{Pred: ex.Name, Terms: terms}}}
	}
	if _, ok := c.prog.CtorArity[ex.Name]; ok {
		fieldTys := c.prog.CtorFieldTypes[ex.Name]
		for i, a := range ex.Args {
			if i < len(fieldTys) {
				c.ensureSubtype(c.inferExpr(a, scope), fieldTys[i], a.Span())
			}
		}
		return types.TAdt{Name: c.prog.CtorOwner[ex.Name]}
	}
	defn, ok := c.prog.Defns[ex.Name]
	if !ok {
		c.bag.Addf(diag.CodeResolve, ex.Sp, "call to unknown function %q", ex.Name)
		return types.TBool{}
	}
	sig := defn.Sig
	if len(sig.ParamTypes) != len(ex.Args) {
		c.bag.Addf(diag.CodeType, ex.Sp, "function %q expects %d argument(s), got %d", ex.Name, len(sig.ParamTypes), len(ex.Args))
	}
	sub := map[string]types.LogicTerm{}
	for i, a := range ex.Args {
		var pt types.Type
		if i < len(sig.ParamTypes) {
			pt = sig.ParamTypes[i]
		} else {
			pt = types.TBool{}
		}
		c.ensureSubtype(c.inferExpr(a, scope), pt, a.Span())
		if i < len(sig.ParamNames) {
			if t, ok := exprToLogicTerm(a); ok {
				sub[sig.ParamNames[i]] = t
			}
		}
	}
	return substituteType(sig.Ret, sub)
}

func exprToLogicTerm(e ast.Expr) (types.LogicTerm, bool) {
	switch ex := e.(type) {
	case ast.ExVar:
		return types.TermVar{Name: ex.Name}, true
	case ast.ExSymbol:
		return types.TermSymbol{Name: ex.Name}, true
	case ast.ExInt:
		return types.TermInt{Value: ex.Value}, true
	case ast.ExBool:
		return types.TermBool{Value: ex.Value}, true
	default:
		return nil, false
	}
}

// substituteType substitutes sub into a refinement formula's free
// variables, as when a function's return-type formula mentions its
// parameters. A Refine's own bound variable shadows any substitution of the
// same name.
func substituteType(t types.Type, sub map[string]types.LogicTerm) types.Type {
	r, ok := t.(types.TRefine)
	if !ok {
		return t
	}
	inner := map[string]types.LogicTerm{}
	for k, v := range sub {
		if k != r.Var {
			inner[k] = v
		}
	}
	return types.TRefine{Var: r.Var, Base: r.Base, Formula: substituteFormula(r.Formula, inner)}
}

func substituteFormula(f types.Formula, sub map[string]types.LogicTerm) types.Formula {
	switch ff := f.(type) {
	case types.FAtom:
		terms := make([]types.LogicTerm, len(ff.Atom.Terms))
		for i, t := range ff.Atom.Terms {
			terms[i] = substituteTerm(t, sub)
		}
		return types.FAtom{Atom: types.Atom{Pred: ff.Atom.Pred, Terms: terms}}
	case types.FAnd:
		out := make([]types.Formula, len(ff.Conjuncts))
		for i, c := range ff.Conjuncts {
			out[i] = substituteFormula(c, sub)
		}
		return types.FAnd{Conjuncts: out}
	case types.FNot:
		return types.FNot{Inner: substituteFormula(ff.Inner, sub)}
	default:
		return f
	}
}

func substituteTerm(t types.LogicTerm, sub map[string]types.LogicTerm) types.LogicTerm {
	switch tt := t.(type) {
	case types.TermVar:
		if r, ok := sub[tt.Name]; ok {
			return r
		}
		return tt
	case types.TermCtor:
		args := make([]types.LogicTerm, len(tt.Args))
		for i, a := range tt.Args {
			args[i] = substituteTerm(a, sub)
		}
		return types.TermCtor{Ctor: tt.Ctor, Args: args}
	default:
		return t
	}
}

// inferMatch typechecks a match expression: every arm's body must share a
// common base type, and the set of constructor patterns must be exhaustive
// over the scrutinee's data type (E-MATCH) or the match is rejected rather
// than silently falling through, since this language has no runtime match
// failure to fall back on.
func (c *checker) inferMatch(ex ast.ExMatch, scope map[string]types.Type) types.Type {
	scrutTy := c.inferExpr(ex.Scrutinee, scope)
	adt, ok := types.AsBase(scrutTy).(types.TAdt)
	var allCtors []string
	if ok {
		allCtors = c.prog.DataCtors[adt.Name]
	}
	covered := map[string]bool{}
	hasWildcard := false
	var result types.Type
	for _, arm := range ex.Arms {
		inner := cloneScope(scope)
		if hasWildcard {
			c.bag.Addf(diag.CodeMatch, arm.Span, "unreachable match arm after a wildcard")
		}
		switch p := arm.Pattern.(type) {
		case ast.PatWildcard:
			hasWildcard = true
		case ast.PatVar:
			hasWildcard = true
			inner[p.Name] = scrutTy
		case ast.PatCtor:
			covered[p.Ctor] = true
			fieldTys := c.prog.CtorFieldTypes[p.Ctor]
			for i, f := range p.Fields {
				if v, ok := f.(ast.PatVar); ok && i < len(fieldTys) {
					inner[v.Name] = fieldTys[i]
				}
			}
			if owner := c.prog.CtorOwner[p.Ctor]; ok && owner != adt.Name {
				c.bag.Addf(diag.CodeMatch, p.Sp, "constructor %q does not belong to type %s", p.Ctor, adt.Name)
			}
		}
		armTy := c.inferExpr(arm.Body, inner)
		if result == nil {
			result = armTy
		} else if c.isSubtype(armTy, result) {
			// keep result
		} else if c.isSubtype(result, armTy) {
			result = armTy
		} else {
			c.bag.Addf(diag.CodeType, arm.Span, "match arm has incompatible type %s, expected %s", armTy.String(), result.String())
			result = types.AsBase(result)
		}
	}
	if !hasWildcard && ok {
		var missing []string
		for _, cn := range allCtors {
			if !covered[cn] {
				missing = append(missing, cn)
			}
		}
		if len(missing) > 0 {
			c.bag.Addf(diag.CodeMatch, ex.Sp, "non-exhaustive match on %s: missing constructor(s) %s", adt.Name, fmt.Sprint(missing))
		}
	}
	if result == nil {
		return types.TBool{}
	}
	return result
}
