// Package resolver performs name and alias resolution over an *ast.Program:
// uniqueness checks for every declared name, sort/type reference checks,
// alias expansion, fact/rule arity and safety checks, and lowering of
// surface syntax (ast.Term, ast.TypeExpr, ast.FormulaExpr) to the shared
// internal/types vocabulary. It never touches stratification or the
// fixpoint evaluator; those are internal/stratify and internal/logic.
package resolver

import (
	"github.com/dtlang/dtl/internal/ast"
	"github.com/dtlang/dtl/internal/config"
	"github.com/dtlang/dtl/internal/diag"
	"github.com/dtlang/dtl/internal/span"
	"github.com/dtlang/dtl/internal/types"
)

// RelationSig is a resolved relation's argument sorts.
type RelationSig struct {
	Name     string
	ArgTypes []types.Type
}

// FunctionSig is a resolved defn's signature.
type FunctionSig struct {
	Name       string
	ParamNames []string
	ParamTypes []types.Type
	Ret        types.Type
}

// ResolvedAssert is an assert with its formula lowered to types.Formula.
type ResolvedAssert struct {
	Name      string
	VarNames  []string
	VarTypes  []types.Type
	Formula   types.Formula
	Span      span.Span
}

// ResolvedDefn pairs a FunctionSig with its still-surface-syntax body;
// typechecking (internal/typecheck) is what walks the body, since expression
// typing needs the full relation/function signature context this package
// builds but does not itself use for inference.
type ResolvedDefn struct {
	Sig  FunctionSig
	Body ast.Expr
	Span span.Span
}

// Program is the fully resolved, alias-expanded program handed to
// stratification, the evaluator, the typechecker, and the prover.
type Program struct {
	Relations map[string]RelationSig
	Facts     []types.Atom
	Rules     []Rule
	Defns     map[string]*ResolvedDefn
	DefnOrder []string
	Asserts   []*ResolvedAssert
	Universes map[string][]types.Value
	// CtorArity/CtorOwner/CtorFieldTypes describe every declared data
	// constructor, for the logic evaluator's Ctor unification and the
	// typechecker's Match exhaustiveness check.
	CtorArity      map[string]int
	CtorOwner      map[string]string
	CtorFieldTypes map[string][]types.Type
	DataCtors      map[string][]string // data type name -> its constructor names, declaration order
}

// Rule is a resolved Datalog rule: a head atom implied by a conjunction of
// (possibly negated) body atoms.
type Rule struct {
	Head types.Atom
	Body []BodyAtom
	Span span.Span
}

// BodyAtom is one resolved rule-body conjunct.
type BodyAtom struct {
	Atom    types.Atom
	Negated bool
}

type resolver struct {
	prog *ast.Program
	bag  diag.Bag

	sorts      map[string]bool
	aliasExprs map[string]ast.TypeExpr
	aliasCache map[string]types.Type
	dataNames  map[string]bool
	ctorArity  map[string]int
	ctorOwner  map[string]string
	ctorFields map[string][]types.Type
	dataCtors  map[string][]string
	relations  map[string]RelationSig
	functions  map[string]FunctionSig
}

// Resolve runs full name/alias resolution over prog.
func Resolve(prog *ast.Program) (*Program, []*diag.Diagnostic) {
	r := &resolver{
		prog:       prog,
		sorts:      map[string]bool{config.SortBool: true, config.SortInt: true, config.SortSymbol: true},
		aliasExprs: map[string]ast.TypeExpr{},
		aliasCache: map[string]types.Type{},
		dataNames:  map[string]bool{},
		ctorArity:  map[string]int{},
		ctorOwner:  map[string]string{},
		ctorFields: map[string][]types.Type{},
		dataCtors:  map[string][]string{},
		relations:  map[string]RelationSig{},
		functions:  map[string]FunctionSig{},
	}
	return r.run()
}

func (r *resolver) run() (*Program, []*diag.Diagnostic) {
	r.collectSortsAndData()
	r.collectAliases()
	r.collectRelations()
	r.collectFunctionSigs()

	out := &Program{
		Relations:      r.relations,
		Defns:          map[string]*ResolvedDefn{},
		Universes:      map[string][]types.Value{},
		CtorArity:      r.ctorArity,
		CtorOwner:      r.ctorOwner,
		CtorFieldTypes: r.ctorFields,
		DataCtors:      r.dataCtors,
	}

	for _, f := range r.prog.Facts {
		out.Facts = append(out.Facts, r.resolveFact(f))
	}
	for _, rl := range r.prog.Rules {
		out.Rules = append(out.Rules, r.resolveRule(rl))
	}
	for _, d := range r.prog.Defns {
		rd := r.resolveDefn(d)
		if _, dup := out.Defns[d.Name]; dup {
			r.bag.Addf(diag.CodeResolve, d.Span, "duplicate function name %q", d.Name)
			continue
		}
		out.Defns[d.Name] = rd
		out.DefnOrder = append(out.DefnOrder, d.Name)
	}
	for _, u := range r.prog.Universes {
		out.Universes[u.Sort] = r.resolveUniverse(u)
	}
	for _, a := range r.prog.Asserts {
		out.Asserts = append(out.Asserts, r.resolveAssert(a))
	}

	return out, r.bag.All()
}

func (r *resolver) collectSortsAndData() {
	for _, s := range r.prog.Sorts {
		if r.sorts[s.Name] {
			r.bag.Addf(diag.CodeResolve, s.Span, "duplicate sort name %q", s.Name)
			continue
		}
		r.sorts[s.Name] = true
	}
	for _, d := range r.prog.Datas {
		if r.sorts[d.Name] || r.dataNames[d.Name] {
			r.bag.Addf(diag.CodeData, d.Span, "duplicate type name %q", d.Name)
			continue
		}
		r.dataNames[d.Name] = true
		r.sorts[d.Name] = true
		var ctorNames []string
		for _, c := range d.Constructors {
			if _, dup := r.ctorOwner[c.Name]; dup {
				r.bag.Addf(diag.CodeData, c.Span, "duplicate constructor name %q", c.Name)
				continue
			}
			r.ctorOwner[c.Name] = d.Name
			r.ctorArity[c.Name] = len(c.FieldTys)
			ctorNames = append(ctorNames, c.Name)
		}
		r.dataCtors[d.Name] = ctorNames
	}
	// Field types are resolved in a second pass, once all sort/data/alias
	// names are known, to allow a constructor field to reference a type
	// declared later in the file.
}

func (r *resolver) collectAliases() {
	for _, a := range r.prog.Aliases {
		if _, isCtor := r.ctorOwner[a.Name]; isCtor {
			r.bag.Addf(diag.CodeData, a.Span, "alias %q may not shadow a constructor name", a.Name)
			continue
		}
		if _, dup := r.aliasExprs[a.Name]; dup || r.sorts[a.Name] {
			r.bag.Addf(diag.CodeResolve, a.Span, "duplicate type name %q", a.Name)
			continue
		}
		r.aliasExprs[a.Name] = a.Target
	}
	for _, d := range r.prog.Datas {
		for _, c := range d.Constructors {
			var fts []types.Type
			for _, ft := range c.FieldTys {
				fts = append(fts, r.resolveTypeExpr(ft))
			}
			r.ctorFields[c.Name] = fts
		}
	}
}

// resolveTypeName expands a bare name to its Type, following alias chains
// and detecting cycles.
func (r *resolver) resolveTypeName(name string, sp span.Span, seen map[string]bool) types.Type {
	switch name {
	case config.SortBool:
		return types.TBool{}
	case config.SortInt:
		return types.TInt{}
	case config.SortSymbol:
		return types.TSymbol{}
	}
	if r.dataNames[name] {
		return types.TAdt{Name: name}
	}
	if target, ok := r.aliasExprs[name]; ok {
		if cached, ok := r.aliasCache[name]; ok {
			return cached
		}
		if seen[name] {
			r.bag.Addf(diag.CodeResolve, sp, "alias cycle detected at %q", name)
			return types.TDomain{Name: name}
		}
		seen[name] = true
		t := r.resolveTypeExprSeen(target, seen, nil)
		r.aliasCache[name] = t
		return t
	}
	if r.sorts[name] {
		return types.TDomain{Name: name}
	}
	r.bag.Addf(diag.CodeResolve, sp, "unknown sort or type %q", name)
	return types.TDomain{Name: name}
}

// resolveTypeExpr resolves te with no outer variable scope (the common
// case: relation argument sorts, constructor field types, alias targets).
func (r *resolver) resolveTypeExpr(te ast.TypeExpr) types.Type {
	return r.resolveTypeExprIn(te, nil)
}

// resolveTypeExprIn resolves te allowing any refinement formula within it to
// additionally reference outerScope — needed for a defn's return type,
// whose postcondition formula may mention the function's own parameters.
func (r *resolver) resolveTypeExprIn(te ast.TypeExpr, outerScope map[string]bool) types.Type {
	return r.resolveTypeExprSeen(te, map[string]bool{}, outerScope)
}

func (r *resolver) resolveTypeExprSeen(te ast.TypeExpr, seen map[string]bool, outerScope map[string]bool) types.Type {
	switch tt := te.(type) {
	case ast.TyName:
		return r.resolveTypeName(tt.Name, tt.Sp, seen)
	case ast.TyFun:
		fn := types.TFun{Result: r.resolveTypeExprSeen(tt.Result, seen, outerScope)}
		for _, p := range tt.Params {
			fn.Params = append(fn.Params, r.resolveTypeExprSeen(p, seen, outerScope))
		}
		return fn
	case ast.TyRefine:
		scope := map[string]bool{tt.Var: true}
		for k := range outerScope {
			scope[k] = true
		}
		return types.TRefine{
			Var:     tt.Var,
			Base:    r.resolveTypeExprSeen(tt.Base, seen, outerScope),
			Formula: r.resolveFormulaExpr(tt.Formula, scope),
		}
	default:
		return types.TBool{}
	}
}

func (r *resolver) collectRelations() {
	for _, rd := range r.prog.Relations {
		if _, dup := r.relations[rd.Name]; dup {
			r.bag.Addf(diag.CodeResolve, rd.Span, "duplicate relation name %q", rd.Name)
			continue
		}
		sig := RelationSig{Name: rd.Name}
		for _, a := range rd.ArgTypes {
			sig.ArgTypes = append(sig.ArgTypes, r.resolveTypeExpr(a))
		}
		r.relations[rd.Name] = sig
	}
}

func (r *resolver) collectFunctionSigs() {
	for _, d := range r.prog.Defns {
		if _, dup := r.functions[d.Name]; dup {
			continue // duplicate reported by run's defn pass
		}
		sig := FunctionSig{Name: d.Name}
		seenParam := map[string]bool{}
		for _, p := range d.Params {
			if seenParam[p.Name] {
				r.bag.Addf(diag.CodeResolve, p.Span, "duplicate parameter name %q in %q", p.Name, d.Name)
				continue
			}
			seenParam[p.Name] = true
			sig.ParamNames = append(sig.ParamNames, p.Name)
			sig.ParamTypes = append(sig.ParamTypes, r.resolveTypeExpr(p.Type))
		}
		paramScope := map[string]bool{}
		for _, name := range sig.ParamNames {
			paramScope[name] = true
		}
		sig.Ret = r.resolveTypeExprIn(d.RetType, paramScope)
		r.functions[d.Name] = sig
	}
}

func (r *resolver) resolveTerm(t ast.Term) types.LogicTerm {
	switch tt := t.(type) {
	case ast.TmVar:
		return types.TermVar{Name: tt.Name}
	case ast.TmSymbol:
		return types.TermSymbol{Name: tt.Name}
	case ast.TmInt:
		return types.TermInt{Value: tt.Value}
	case ast.TmBool:
		return types.TermBool{Value: tt.Value}
	case ast.TmCtor:
		if _, ok := r.ctorArity[tt.Ctor]; !ok {
			r.bag.Addf(diag.CodeData, tt.Sp, "unknown constructor %q", tt.Ctor)
		} else if want := r.ctorArity[tt.Ctor]; want != len(tt.Args) {
			r.bag.Addf(diag.CodeData, tt.Sp, "constructor %q expects %d field(s), got %d", tt.Ctor, want, len(tt.Args))
		}
		args := make([]types.LogicTerm, len(tt.Args))
		for i, a := range tt.Args {
			args[i] = r.resolveTerm(a)
		}
		return types.TermCtor{Ctor: tt.Ctor, Args: args}
	default:
		return types.TermSymbol{Name: "?"}
	}
}

func isGround(t types.LogicTerm) bool {
	switch tt := t.(type) {
	case types.TermVar:
		return false
	case types.TermCtor:
		for _, a := range tt.Args {
			if !isGround(a) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (r *resolver) resolveFact(f *ast.Fact) types.Atom {
	sig, ok := r.relations[f.Pred]
	if !ok {
		r.bag.Addf(diag.CodeResolve, f.Span, "fact refers to unknown relation %q", f.Pred)
	} else if len(sig.ArgTypes) != len(f.Terms) {
		r.bag.Addf(diag.CodeResolve, f.Span, "relation %q expects %d argument(s), got %d", f.Pred, len(sig.ArgTypes), len(f.Terms))
	}
	terms := make([]types.LogicTerm, len(f.Terms))
	for i, t := range f.Terms {
		lt := r.resolveTerm(t)
		if !isGround(lt) {
			r.bag.Addf(diag.CodeResolve, t.Span(), "fact arguments must be ground, found a variable")
		}
		terms[i] = lt
	}
	return types.Atom{Pred: f.Pred, Terms: terms}
}

func (r *resolver) resolveAtomRef(a *ast.Atom, sp span.Span) types.Atom {
	sig, ok := r.relations[a.Pred]
	if !ok {
		r.bag.Addf(diag.CodeResolve, sp, "reference to unknown relation %q", a.Pred)
	} else if len(sig.ArgTypes) != len(a.Terms) {
		r.bag.Addf(diag.CodeResolve, sp, "relation %q expects %d argument(s), got %d", a.Pred, len(sig.ArgTypes), len(a.Terms))
	}
	terms := make([]types.LogicTerm, len(a.Terms))
	for i, t := range a.Terms {
		terms[i] = r.resolveTerm(t)
	}
	return types.Atom{Pred: a.Pred, Terms: terms}
}

func (r *resolver) resolveRule(rl *ast.Rule) Rule {
	head := r.resolveAtomRef(rl.Head, rl.Span)
	out := Rule{Head: head, Span: rl.Span}

	bound := map[string]bool{}
	for _, b := range rl.Body {
		if !b.Negated {
			for _, v := range b.Atom.Terms {
				if vt, ok := v.(ast.TmVar); ok {
					bound[vt.Name] = true
				}
			}
		}
	}
	for _, v := range head.Vars() {
		if !bound[v] {
			r.bag.Addf(diag.CodeResolve, rl.Span, "unsafe rule: head variable %s is not bound in positive body", v)
		}
	}
	for _, b := range rl.Body {
		ba := BodyAtom{Atom: r.resolveAtomRef(b.Atom, b.Span), Negated: b.Negated}
		if b.Negated {
			for _, v := range ba.Atom.Vars() {
				if !bound[v] {
					r.bag.Addf(diag.CodeResolve, b.Span, "unsafe rule: negated variable %s is not bound in positive body", v)
				}
			}
		}
		out.Body = append(out.Body, ba)
	}
	return out
}

// resolveFormulaExpr lowers surface formula syntax to types.Formula,
// checking every atom's predicate/arity and every variable's membership in
// scope (the param names of the enclosing defn/assert, passed via scope).
func (r *resolver) resolveFormulaExpr(fe ast.FormulaExpr, scope map[string]bool) types.Formula {
	switch f := fe.(type) {
	case ast.FxTrue:
		return types.FTrue{}
	case ast.FxAtom:
		sig, ok := r.relations[f.Pred]
		if !ok {
			r.bag.Addf(diag.CodeResolve, f.Sp, "formula refers to unknown relation %q", f.Pred)
		} else if len(sig.ArgTypes) != len(f.Args) {
			r.bag.Addf(diag.CodeResolve, f.Sp, "relation %q expects %d argument(s), got %d", f.Pred, len(sig.ArgTypes), len(f.Args))
		}
		terms := make([]types.LogicTerm, len(f.Args))
		for i, a := range f.Args {
			if v, ok := a.(ast.TmVar); ok && !scope[v.Name] {
				r.bag.Addf(diag.CodeResolve, a.Span(), "variable %s is not in scope", v.Name)
			}
			terms[i] = r.resolveTerm(a)
		}
		return types.FAtom{Atom: types.Atom{Pred: f.Pred, Terms: terms}}
	case ast.FxAnd:
		var fs []types.Formula
		for _, c := range f.Conjuncts {
			fs = append(fs, r.resolveFormulaExpr(c, scope))
		}
		return types.And(fs...)
	case ast.FxOr:
		var fs []types.Formula
		for _, c := range f.Disjuncts {
			fs = append(fs, r.resolveFormulaExpr(c, scope))
		}
		return types.Or(fs...)
	case ast.FxNot:
		return types.FNot{Inner: r.resolveFormulaExpr(f.Inner, scope)}
	default:
		return types.FTrue{}
	}
}

func (r *resolver) resolveDefn(d *ast.Defn) *ResolvedDefn {
	sig := r.functions[d.Name]
	scope := map[string]bool{}
	for _, n := range sig.ParamNames {
		scope[n] = true
	}
	r.validateExprNames(d.Body, scope, d.Span)
	return &ResolvedDefn{Sig: sig, Body: d.Body, Span: d.Span}
}

// validateExprNames walks a defn body checking that every Var reference is
// in scope and every Let/lambda-like binding is introduced before use.
func (r *resolver) validateExprNames(e ast.Expr, scope map[string]bool, fallback span.Span) {
	switch ex := e.(type) {
	case ast.ExVar:
		if !scope[ex.Name] {
			r.bag.Addf(diag.CodeResolve, ex.Sp, "variable %s is not in scope", ex.Name)
		}
	case ast.ExCall:
		_, isFn := r.functions[ex.Name]
		_, isRel := r.relations[ex.Name]
		_, isCtor := r.ctorArity[ex.Name]
		if !isFn && !isRel && !isCtor {
			r.bag.Addf(diag.CodeResolve, ex.Sp, "call to unknown function, relation, or constructor %q", ex.Name)
		}
		for _, a := range ex.Args {
			r.validateExprNames(a, scope, ex.Sp)
		}
	case ast.ExLet:
		r.validateExprNames(ex.Value, scope, ex.Sp)
		inner := map[string]bool{}
		for k := range scope {
			inner[k] = true
		}
		inner[ex.Name] = true
		r.validateExprNames(ex.Body, inner, ex.Sp)
	case ast.ExIf:
		r.validateExprNames(ex.Cond, scope, ex.Sp)
		r.validateExprNames(ex.Then, scope, ex.Sp)
		r.validateExprNames(ex.Else, scope, ex.Sp)
	case ast.ExMatch:
		r.validateExprNames(ex.Scrutinee, scope, ex.Sp)
		for _, arm := range ex.Arms {
			inner := map[string]bool{}
			for k := range scope {
				inner[k] = true
			}
			r.bindPatternVars(arm.Pattern, inner)
			r.validateExprNames(arm.Body, inner, arm.Span)
		}
	}
}

func (r *resolver) bindPatternVars(p ast.Pattern, scope map[string]bool) {
	switch pp := p.(type) {
	case ast.PatVar:
		scope[pp.Name] = true
	case ast.PatCtor:
		if _, ok := r.ctorArity[pp.Ctor]; !ok {
			r.bag.Addf(diag.CodeData, pp.Sp, "unknown constructor %q in pattern", pp.Ctor)
		}
		for _, f := range pp.Fields {
			r.bindPatternVars(f, scope)
		}
	}
}

func (r *resolver) resolveUniverse(u *ast.Universe) []types.Value {
	var vals []types.Value
	if len(u.Values) > config.MaxUniverseSize {
		r.bag.Addf(diag.CodeResolve, u.Span, "universe %q exceeds the maximum of %d values", u.Sort, config.MaxUniverseSize)
		return nil
	}
	for _, t := range u.Values {
		lt := r.resolveTerm(t)
		if !isGround(lt) {
			r.bag.Addf(diag.CodeResolve, t.Span(), "universe values must be ground, found a variable")
			continue
		}
		if ct, ok := t.(ast.TmCtor); ok {
			if owner, known := r.ctorOwner[ct.Ctor]; known && owner != u.Sort {
				r.bag.Addf(diag.CodeData, t.Span(), "constructor %q belongs to %s, expected %s", ct.Ctor, owner, u.Sort)
			}
		}
		vals = append(vals, types.ValueFromTerm(lt))
	}
	return vals
}

func (r *resolver) resolveAssert(a *ast.Assert) *ResolvedAssert {
	ra := &ResolvedAssert{Name: a.Name, Span: a.Span}
	scope := map[string]bool{}
	for _, v := range a.Vars {
		if scope[v.Name] {
			r.bag.Addf(diag.CodeResolve, v.Span, "duplicate quantified variable %q in assert %q", v.Name, a.Name)
			continue
		}
		scope[v.Name] = true
		ra.VarNames = append(ra.VarNames, v.Name)
		ra.VarTypes = append(ra.VarTypes, r.resolveTypeExpr(v.Type))
	}
	ra.Formula = r.resolveFormulaExpr(a.Formula, scope)
	return ra
}
