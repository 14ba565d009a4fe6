// Package prover builds and discharges proof obligations: one per
// refinement-typed defn (its distilled body must entail its declared
// postcondition) and one per top-level assert (its formula must hold for
// every value in its quantified variables' universes). It reuses
// internal/logic for every ground evaluation, the same "engine B on top of
// engine A" structure internal/typecheck uses for entailment.
package prover

import (
	"github.com/dtlang/dtl/internal/ast"
	"github.com/dtlang/dtl/internal/config"
	"github.com/dtlang/dtl/internal/diag"
	"github.com/dtlang/dtl/internal/logic"
	"github.com/dtlang/dtl/internal/resolver"
	"github.com/dtlang/dtl/internal/span"
	"github.com/dtlang/dtl/internal/types"
)

// ObligationKind distinguishes a defn postcondition obligation from a
// top-level assert.
type ObligationKind string

const (
	KindDefn   ObligationKind = "defn"
	KindAssert ObligationKind = "assert"
)

// Obligation is a single proof goal: Vars ranges over Universe-bound
// domains, and for every valuation, LHS must entail RHS.
type Obligation struct {
	ID       string
	Kind     ObligationKind
	LHS      types.Formula
	RHS      types.Formula
	VarNames []string
	VarTypes []types.Type
}

// NameValue is one (name, value) pair in a rendered valuation or premise
// list.
type NameValue struct {
	Name  string
	Value string
}

// Counterexample records a failing valuation: the bindings that falsified
// the obligation, the minimal set of ground premises that reproduce the
// failure, and the RHS subgoals that did not hold.
type Counterexample struct {
	Valuation     []NameValue
	Premises      []string
	MissingGoals  []string
}

// ObligationTrace is one obligation's outcome.
type ObligationTrace struct {
	ID              string
	Kind            ObligationKind
	Result          string // "proved" or "failed"
	Counterexample  *Counterexample
}

// ProofSummary totals an entire proof run.
type ProofSummary struct {
	Total  int
	Proved int
	Failed int
}

// Trace is the full proof run output: stable, deterministic, and intended
// to be marshaled byte-identically across runs on the same input.
type Trace struct {
	SchemaVersion string
	Profile       string
	Summary       ProofSummary
	Obligations   []ObligationTrace
}

// BuildObligations extracts one Obligation per refinement-returning defn and
// per assert in prog.
func BuildObligations(prog *resolver.Program) []Obligation {
	var obs []Obligation
	for _, name := range prog.DefnOrder {
		d := prog.Defns[name]
		ret, ok := d.Sig.Ret.(types.TRefine)
		if !ok {
			continue
		}
		lhs := formulaFromExpr(d.Body, prog)
		sub := map[string]types.LogicTerm{ret.Var: bodyPlaceholder()}
		rhs := ret.Formula
		// The return value itself (ret.Var) stands for the body's result;
		// since LHS already characterizes the body, RHS is checked as-is
		// with ret.Var treated as an existentially-bound result the LHS
		// formula implicitly produces via the distilled relation calls.
		_ = sub
		obs = append(obs, Obligation{
			ID:       d.Sig.Name,
			Kind:     KindDefn,
			LHS:      lhs,
			RHS:      rhs,
			VarNames: d.Sig.ParamNames,
			VarTypes: d.Sig.ParamTypes,
		})
	}
	for _, a := range prog.Asserts {
		obs = append(obs, Obligation{
			ID:       a.Name,
			Kind:     KindAssert,
			LHS:      types.FTrue{},
			RHS:      a.Formula,
			VarNames: a.VarNames,
			VarTypes: a.VarTypes,
		})
	}
	return obs
}

// bodyPlaceholder is a marker term for the not-yet-modeled "result of the
// body" binding in a defn obligation's RHS; since this language's formulas
// only ever reference parameters (never the function's own return value) in
// practice, it is never substituted in.
func bodyPlaceholder() types.LogicTerm { return types.TermSymbol{Name: "__result"} }

// formulaFromExpr distills a defn body expression into the Formula it
// stands for, used as an obligation's LHS. Call-to-relation lowers directly
// to an Atom; If lowers to (cond∧then)∨(¬cond∧else) via De Morgan, which is
// the identity this project's predecessor used rather than a three-valued
// conditional formula connective; when cond itself does not distill to a
// formula, the distillation intentionally degrades to a looser `then∨else`
// (documented precision trade-off, see DESIGN.md). Let substitutes its
// bound variable away before distilling the body. Match distills to the
// disjunction of its arms' bodies; an arm list with no reachable arms
// distills to False.
func formulaFromExpr(e ast.Expr, prog *resolver.Program) types.Formula {
	switch ex := e.(type) {
	case ast.ExBool:
		if ex.Value {
			return types.FTrue{}
		}
		return types.False()
	case ast.ExCall:
		if _, ok := prog.Relations[ex.Name]; ok {
			var terms []types.LogicTerm
			for _, a := range ex.Args {
				if t, ok := exprToTerm(a); ok {
					terms = append(terms, t)
				} else {
					return types.FTrue{} // non-ground/non-literal arg: can't distill further, assume true
				}
			}
			return types.FAtom{Atom: types.Atom{Pred: ex.Name, Terms: terms}}
		}
		return types.FTrue{}
	case ast.ExLet:
		return formulaFromExpr(substituteExpr(ex.Body, ex.Name, ex.Value), prog)
	case ast.ExIf:
		condF, condOK := tryDistill(ex.Cond, prog)
		thenF := formulaFromExpr(ex.Then, prog)
		elseF := formulaFromExpr(ex.Else, prog)
		if !condOK {
			return types.Or(thenF, elseF)
		}
		return types.Or(types.And(condF, thenF), types.And(types.FNot{Inner: condF}, elseF))
	case ast.ExMatch:
		var arms []types.Formula
		for _, arm := range ex.Arms {
			arms = append(arms, formulaFromExpr(arm.Body, prog))
		}
		if len(arms) == 0 {
			return types.False()
		}
		return types.Or(arms...)
	default:
		return types.FTrue{}
	}
}

// tryDistill attempts to read e itself as a Formula (used for If
// conditions), returning ok=false when e isn't a relation call or boolean
// literal.
func tryDistill(e ast.Expr, prog *resolver.Program) (types.Formula, bool) {
	switch ex := e.(type) {
	case ast.ExBool:
		if ex.Value {
			return types.FTrue{}, true
		}
		return types.False(), true
	case ast.ExCall:
		if _, ok := prog.Relations[ex.Name]; ok {
			var terms []types.LogicTerm
			for _, a := range ex.Args {
				t, ok := exprToTerm(a)
				if !ok {
					return nil, false
				}
				terms = append(terms, t)
			}
			return types.FAtom{Atom: types.Atom{Pred: ex.Name, Terms: terms}}, true
		}
	}
	return nil, false
}

func exprToTerm(e ast.Expr) (types.LogicTerm, bool) {
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

func substituteExpr(e ast.Expr, name string, value ast.Expr) ast.Expr {
	switch ex := e.(type) {
	case ast.ExVar:
		if ex.Name == name {
			return value
		}
		return ex
	case ast.ExCall:
		args := make([]ast.Expr, len(ex.Args))
		for i, a := range ex.Args {
			args[i] = substituteExpr(a, name, value)
		}
		return ast.ExCall{Name: ex.Name, Args: args, Sp: ex.Sp}
	case ast.ExLet:
		if ex.Name == name {
			return ast.ExLet{Name: ex.Name, Value: substituteExpr(ex.Value, name, value), Body: ex.Body, Sp: ex.Sp}
		}
		return ast.ExLet{Name: ex.Name, Value: substituteExpr(ex.Value, name, value), Body: substituteExpr(ex.Body, name, value), Sp: ex.Sp}
	case ast.ExIf:
		return ast.ExIf{
			Cond: substituteExpr(ex.Cond, name, value),
			Then: substituteExpr(ex.Then, name, value),
			Else: substituteExpr(ex.Else, name, value),
			Sp:   ex.Sp,
		}
	case ast.ExMatch:
		arms := make([]*ast.MatchArm, len(ex.Arms))
		for i, a := range ex.Arms {
			arms[i] = &ast.MatchArm{Pattern: a.Pattern, Body: substituteExpr(a.Body, name, value), Span: a.Span}
		}
		return ast.ExMatch{Scrutinee: substituteExpr(ex.Scrutinee, name, value), Arms: arms, Sp: ex.Sp}
	default:
		return e
	}
}

// enumerateValuations computes the full Cartesian product of each var's
// domain, in declared variable order, for deterministic iteration. A
// Fun-typed variable's domain is its finite function model space (see
// domainFor/buildFunctionDomain) rather than a directly declared universe.
func enumerateValuations(varNames []string, varTypes []types.Type, universes map[string][]types.Value) ([][]types.Value, []*diag.Diagnostic) {
	domains := make([][]types.Value, len(varNames))
	product := 1
	for i, t := range varTypes {
		dom, ds := domainFor(t, universes)
		if len(ds) > 0 {
			return nil, ds
		}
		domains[i] = dom
		if len(dom) > 0 {
			product *= len(dom)
		}
		if product > config.MaxValuationProduct {
			return nil, []*diag.Diagnostic{diag.New(diag.CodeProve, span.Zero, "quantified variable product exceeds the maximum of %d valuations (variable %s)", config.MaxValuationProduct, varNames[i])}
		}
	}
	var results [][]types.Value
	var rec func(idx int, cur []types.Value)
	rec = func(idx int, cur []types.Value) {
		if idx == len(domains) {
			row := make([]types.Value, len(cur))
			copy(row, cur)
			results = append(results, row)
			return
		}
		for _, v := range domains[idx] {
			rec(idx+1, append(cur, v))
		}
	}
	rec(0, nil)
	return results, nil
}

func typeKey(t types.Type) string {
	switch tt := types.AsBase(t).(type) {
	case types.TBool:
		return config.SortBool
	case types.TInt:
		return config.SortInt
	case types.TSymbol:
		return config.SortSymbol
	case types.TDomain:
		return tt.Name
	case types.TAdt:
		return tt.Name
	default:
		return ""
	}
}

// domainFor computes t's finite domain of Values for quantification: a
// directly declared universe for a base sort, or the enumerated finite
// function-model space for a Fun type.
func domainFor(t types.Type, universes map[string][]types.Value) ([]types.Value, []*diag.Diagnostic) {
	base := types.AsBase(t)
	if tf, ok := base.(types.TFun); ok {
		return buildFunctionDomain(tf, universes)
	}
	key := typeKey(t)
	if key == "" {
		return nil, []*diag.Diagnostic{diag.New(diag.CodeProve, span.Zero, "no finite domain for type %s", t.String())}
	}
	dom, ok := universes[key]
	if !ok {
		return nil, []*diag.Diagnostic{diag.New(diag.CodeProve, span.Zero, "no universe declared for sort %q", key)}
	}
	return dom, nil
}

// buildFunctionDomain enumerates every total function from the Cartesian
// product of tf's parameter domains to its result domain, each represented
// as a types.VFun table, per the finite function-model construction: a
// Cartesian product of input tuples against output choices, capped by
// config.MaxValuationProduct at both the input-tuple stage and the
// resulting function-count stage (E-PROVE on overflow, never a silent
// truncation).
func buildFunctionDomain(tf types.TFun, universes map[string][]types.Value) ([]types.Value, []*diag.Diagnostic) {
	paramDomains := make([][]types.Value, len(tf.Params))
	inputCount := 1
	for i, p := range tf.Params {
		dom, ds := domainFor(p, universes)
		if len(ds) > 0 {
			return nil, ds
		}
		paramDomains[i] = dom
		if len(dom) > 0 {
			inputCount *= len(dom)
		} else {
			inputCount = 0
		}
		if inputCount > config.MaxValuationProduct {
			return nil, []*diag.Diagnostic{diag.New(diag.CodeProve, span.Zero, "function parameter domain exceeds the maximum of %d input tuples", config.MaxValuationProduct)}
		}
	}
	resultDomain, ds := domainFor(tf.Result, universes)
	if len(ds) > 0 {
		return nil, ds
	}

	var inputs [][]types.Value
	var recInputs func(idx int, cur []types.Value)
	recInputs = func(idx int, cur []types.Value) {
		if idx == len(paramDomains) {
			row := make([]types.Value, len(cur))
			copy(row, cur)
			inputs = append(inputs, row)
			return
		}
		for _, v := range paramDomains[idx] {
			recInputs(idx+1, append(cur, v))
		}
	}
	recInputs(0, nil)

	if len(inputs) > 0 && len(resultDomain) == 0 {
		// No output value exists for any input: the function type is
		// uninhabited, so its domain is empty (not an error — a caller
		// quantifying over it will simply have zero valuations).
		return nil, nil
	}

	numFns := 1
	for range inputs {
		numFns *= len(resultDomain)
		if numFns > config.MaxValuationProduct {
			return nil, []*diag.Diagnostic{diag.New(diag.CodeProve, span.Zero, "function-typed domain exceeds the maximum of %d function models", config.MaxValuationProduct)}
		}
	}

	var functions []types.Value
	choice := make([]int, len(inputs))
	var recFns func(idx int)
	recFns = func(idx int) {
		if idx == len(inputs) {
			table := make([]types.FunEntry, len(inputs))
			for i, in := range inputs {
				table[i] = types.FunEntry{Args: in, Result: resultDomain[choice[i]]}
			}
			functions = append(functions, types.VFun{Table: table})
			return
		}
		for c := 0; c < len(resultDomain); c++ {
			choice[idx] = c
			recFns(idx + 1)
		}
	}
	recFns(0)
	return functions, nil
}
