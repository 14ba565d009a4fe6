// Package reforacle is an independent, direct tree-walking interpreter of
// defn bodies, used purely as a differential-testing oracle against
// internal/prover: the prover decides an obligation by distilling the body
// to a Formula and evaluating that formula's ground instances, while this
// package evaluates the body expression directly. Agreement between the two
// on every obligation is one of this project's required testable
// properties; this package is never part of the public API (see
// DESIGN.md's Open Question decisions).
package reforacle

import (
	"fmt"

	"github.com/dtlang/dtl/internal/ast"
	"github.com/dtlang/dtl/internal/logic"
	"github.com/dtlang/dtl/internal/resolver"
	"github.com/dtlang/dtl/internal/types"
)

// Env binds a defn's parameters (or a let's bound names) to concrete
// values during direct evaluation.
type Env map[string]types.Value

// Eval directly interprets e under env, consulting model for relation
// lookups and prog for function/constructor definitions. It panics on an
// expression shape the resolver/typechecker should already have rejected
// (unknown call, arity mismatch) since by the time this runs the program is
// assumed well formed — this package is a test oracle, not a front end that
// needs to recover from malformed input.
func Eval(e ast.Expr, env Env, prog *resolver.Program, model *logic.DerivedFacts) types.Value {
	switch ex := e.(type) {
	case ast.ExVar:
		v, ok := env[ex.Name]
		if !ok {
			panic(fmt.Sprintf("reforacle: unbound variable %s", ex.Name))
		}
		return v
	case ast.ExSymbol:
		return types.VSymbol{Name: ex.Name}
	case ast.ExInt:
		return types.VInt{Value: ex.Value}
	case ast.ExBool:
		return types.VBool{Value: ex.Value}
	case ast.ExLet:
		v := Eval(ex.Value, env, prog, model)
		inner := cloneEnv(env)
		inner[ex.Name] = v
		return Eval(ex.Body, inner, prog, model)
	case ast.ExIf:
		cond := Eval(ex.Cond, env, prog, model)
		if b, ok := cond.(types.VBool); ok && b.Value {
			return Eval(ex.Then, env, prog, model)
		}
		return Eval(ex.Else, env, prog, model)
	case ast.ExMatch:
		scrut := Eval(ex.Scrutinee, env, prog, model)
		for _, arm := range ex.Arms {
			if bound, ok := matchPattern(arm.Pattern, scrut); ok {
				inner := cloneEnv(env)
				for k, v := range bound {
					inner[k] = v
				}
				return Eval(arm.Body, inner, prog, model)
			}
		}
		panic("reforacle: no match arm applies")
	case ast.ExCall:
		return evalCall(ex, env, prog, model)
	default:
		panic("reforacle: unknown expression shape")
	}
}

func cloneEnv(env Env) Env {
	out := make(Env, len(env)+1)
	for k, v := range env {
		out[k] = v
	}
	return out
}

func matchPattern(p ast.Pattern, v types.Value) (Env, bool) {
	switch pp := p.(type) {
	case ast.PatWildcard:
		return Env{}, true
	case ast.PatVar:
		return Env{pp.Name: v}, true
	case ast.PatCtor:
		adt, ok := v.(types.VAdt)
		if !ok || adt.Ctor != pp.Ctor || len(adt.Fields) != len(pp.Fields) {
			return nil, false
		}
		out := Env{}
		for i, fp := range pp.Fields {
			sub, ok := matchPattern(fp, adt.Fields[i])
			if !ok {
				return nil, false
			}
			for k, v := range sub {
				out[k] = v
			}
		}
		return out, true
	default:
		return nil, false
	}
}

func evalCall(ex ast.ExCall, env Env, prog *resolver.Program, model *logic.DerivedFacts) types.Value {
	if _, ok := prog.Relations[ex.Name]; ok {
		args := make([]types.Value, len(ex.Args))
		for i, a := range ex.Args {
			args[i] = Eval(a, env, prog, model)
		}
		return types.VBool{Value: model.Contains(ex.Name, args)}
	}
	if _, ok := prog.CtorArity[ex.Name]; ok {
		fields := make([]types.Value, len(ex.Args))
		for i, a := range ex.Args {
			fields[i] = Eval(a, env, prog, model)
		}
		return types.VAdt{Ctor: ex.Name, Fields: fields}
	}
	defn, ok := prog.Defns[ex.Name]
	if !ok {
		panic(fmt.Sprintf("reforacle: call to unknown name %q", ex.Name))
	}
	inner := Env{}
	for i, pname := range defn.Sig.ParamNames {
		inner[pname] = Eval(ex.Args[i], env, prog, model)
	}
	return Eval(defn.Body, inner, prog, model)
}

// VerifyDefnObligation evaluates defn's body directly for one concrete
// argument binding args (in defn's parameter order) and returns the Bool it
// produces as holds; the declared postcondition formula is not evaluated
// separately. Only Bool-returning bodies (the common refinement-on-relation-
// call shape) are supported; a body producing any other value returns
// checked=false since no differential check applies to it.
func VerifyDefnObligation(defn *resolver.ResolvedDefn, args []types.Value, prog *resolver.Program, model *logic.DerivedFacts) (holds bool, checked bool) {
	env := Env{}
	for i, pname := range defn.Sig.ParamNames {
		env[pname] = args[i]
	}
	result := Eval(defn.Body, env, prog, model)
	b, ok := result.(types.VBool)
	if !ok {
		return false, false
	}
	return b.Value, true
}
