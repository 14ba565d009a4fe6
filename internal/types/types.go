// Package types defines the shared runtime/type vocabulary used across the
// resolver, stratifier, logic evaluator, typechecker, and prover: Type,
// LogicTerm, Atom, and Formula. These are plain tagged-union data, walked by
// type switches in each consuming package rather than by a Visitor
// interface, per this project's explicit preference for recursive functions
// over double dispatch.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// Type is the static type language: built-in base sorts, user-declared
// domain sorts and algebraic data types, function types, and refinement
// types over any of the above.
type Type interface {
	isType()
	String() string
}

type (
	// TBool is the built-in boolean sort.
	TBool struct{}
	// TInt is the built-in integer sort.
	TInt struct{}
	// TSymbol is the built-in uninterpreted-atom sort.
	TSymbol struct{}
	// TDomain is a user-declared uninterpreted sort (a `sort` declaration).
	TDomain struct{ Name string }
	// TAdt is a user-declared algebraic data type (a `data` declaration).
	TAdt struct{ Name string }
	// TFun is a function type; refinement subtyping on TFun is invariant in
	// arguments and covariant in the result.
	TFun struct {
		Params []Type
		Result Type
	}
	// TRefine is {Var: Base | Formula}: the set of values of Base for which
	// Formula holds with Var bound to the value.
	TRefine struct {
		Var     string
		Base    Type
		Formula Formula
	}
)

func (TBool) isType()    {}
func (TInt) isType()     {}
func (TSymbol) isType()  {}
func (TDomain) isType()  {}
func (TAdt) isType()     {}
func (TFun) isType()     {}
func (TRefine) isType()  {}

// AsBase returns the innermost non-refinement type, unwrapping nested
// refinements.
func AsBase(t Type) Type {
	for {
		r, ok := t.(TRefine)
		if !ok {
			return t
		}
		t = r.Base
	}
}

func (t TBool) String() string   { return "Bool" }
func (t TInt) String() string    { return "Int" }
func (t TSymbol) String() string { return "Symbol" }
func (t TDomain) String() string { return t.Name }
func (t TAdt) String() string    { return t.Name }

func (t TFun) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), t.Result.String())
}

func (t TRefine) String() string {
	return fmt.Sprintf("{%s: %s | %s}", t.Var, t.Base.String(), t.Formula.String())
}

// LogicTerm is a ground or variable term inside a fact, atom, or formula:
// variables, literals, and constructor applications over ADT values.
type LogicTerm interface {
	isLogicTerm()
	String() string
}

type (
	TermVar    struct{ Name string }
	TermSymbol struct{ Name string }
	TermInt    struct{ Value int64 }
	TermBool   struct{ Value bool }
	// TermCtor is a fully or partially applied ADT constructor, e.g.
	// (cons ?x ?xs).
	TermCtor struct {
		Ctor string
		Args []LogicTerm
	}
)

func (TermVar) isLogicTerm()    {}
func (TermSymbol) isLogicTerm() {}
func (TermInt) isLogicTerm()    {}
func (TermBool) isLogicTerm()   {}
func (TermCtor) isLogicTerm()   {}

func (t TermVar) String() string    { return t.Name }
func (t TermSymbol) String() string { return t.Name }
func (t TermInt) String() string    { return fmt.Sprintf("%d", t.Value) }
func (t TermBool) String() string   { return fmt.Sprintf("%t", t.Value) }
func (t TermCtor) String() string {
	if len(t.Args) == 0 {
		return t.Ctor
	}
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("(%s %s)", t.Ctor, strings.Join(parts, " "))
}

// Value is a fully ground runtime value: what a LogicTerm evaluates to once
// every variable has been substituted away. Unlike LogicTerm it can never be
// a TermVar.
type Value interface {
	isValue()
	String() string
	// Key returns a canonical string encoding used for set membership,
	// map keys, and ordering — Go has no derivable total order for an
	// arbitrary tagged union, so every consumer that needs one (the
	// knowledge base's fact sets, the evaluator's variable bindings) goes
	// through this instead of inventing its own ad hoc comparison.
	Key() string
}

type (
	VSymbol struct{ Name string }
	VInt    struct{ Value int64 }
	VBool   struct{ Value bool }
	VAdt    struct {
		Ctor   string
		Fields []Value
	}
	// VFun is a finite function model for a Fun-typed quantified variable:
	// a total table from an argument tuple to a result value, built by
	// enumerating the Cartesian product of the function type's parameter
	// and result domains (see internal/prover's universe enumeration).
	VFun struct {
		Table []FunEntry
	}
	// FunEntry is one row of a VFun's table.
	FunEntry struct {
		Args   []Value
		Result Value
	}
)

func (VSymbol) isValue() {}
func (VInt) isValue()    {}
func (VBool) isValue()   {}
func (VAdt) isValue()    {}
func (VFun) isValue()    {}

func (v VSymbol) String() string { return v.Name }
func (v VInt) String() string    { return fmt.Sprintf("%d", v.Value) }
func (v VBool) String() string   { return fmt.Sprintf("%t", v.Value) }
func (v VAdt) String() string {
	if len(v.Fields) == 0 {
		return v.Ctor
	}
	parts := make([]string, len(v.Fields))
	for i, f := range v.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("(%s %s)", v.Ctor, strings.Join(parts, " "))
}

func (v VFun) String() string {
	rows := make([]string, len(v.Table))
	for i, e := range v.Table {
		argParts := make([]string, len(e.Args))
		for j, a := range e.Args {
			argParts[j] = a.String()
		}
		rows[i] = fmt.Sprintf("(%s)->%s", strings.Join(argParts, ","), e.Result.String())
	}
	return fmt.Sprintf("{%s}", strings.Join(rows, "; "))
}

func (v VSymbol) Key() string { return "s:" + v.Name }
func (v VInt) Key() string    { return fmt.Sprintf("i:%d", v.Value) }
func (v VBool) Key() string   { return fmt.Sprintf("b:%t", v.Value) }
func (v VAdt) Key() string {
	parts := make([]string, len(v.Fields))
	for i, f := range v.Fields {
		parts[i] = f.Key()
	}
	return fmt.Sprintf("c:%s(%s)", v.Ctor, strings.Join(parts, ","))
}

func (v VFun) Key() string {
	rows := make([]string, len(v.Table))
	for i, e := range v.Table {
		argParts := make([]string, len(e.Args))
		for j, a := range e.Args {
			argParts[j] = a.Key()
		}
		rows[i] = fmt.Sprintf("(%s)->%s", strings.Join(argParts, ","), e.Result.Key())
	}
	return fmt.Sprintf("f:{%s}", strings.Join(rows, ";"))
}

// ValueFromTerm converts a ground LogicTerm (no TermVar anywhere within) to
// a Value. Callers must have already checked groundness.
func ValueFromTerm(t LogicTerm) Value {
	switch tt := t.(type) {
	case TermSymbol:
		return VSymbol{Name: tt.Name}
	case TermInt:
		return VInt{Value: tt.Value}
	case TermBool:
		return VBool{Value: tt.Value}
	case TermCtor:
		fields := make([]Value, len(tt.Args))
		for i, a := range tt.Args {
			fields[i] = ValueFromTerm(a)
		}
		return VAdt{Ctor: tt.Ctor, Fields: fields}
	default:
		return nil
	}
}

// TermFromValue converts a Value back to a ground LogicTerm, the inverse of
// ValueFromTerm, used when substituting a valuation into a formula.
func TermFromValue(v Value) LogicTerm {
	switch vv := v.(type) {
	case VSymbol:
		return TermSymbol{Name: vv.Name}
	case VInt:
		return TermInt{Value: vv.Value}
	case VBool:
		return TermBool{Value: vv.Value}
	case VAdt:
		args := make([]LogicTerm, len(vv.Fields))
		for i, f := range vv.Fields {
			args[i] = TermFromValue(f)
		}
		return TermCtor{Ctor: vv.Ctor, Args: args}
	case VFun:
		// A Fun-typed quantified variable has no LogicTerm representation
		// of its own (the formula language never applies a function
		// value); its table is opaque to atom positions, encoded as a
		// Symbol carrying its canonical key so substitution still
		// produces a ground term rather than a nil panic.
		return TermSymbol{Name: vv.Key()}
	default:
		return nil
	}
}

// Vars returns the distinct variable names occurring in t, in first-seen
// order.
func Vars(t LogicTerm) []string {
	var out []string
	seen := map[string]bool{}
	var walk func(LogicTerm)
	walk = func(t LogicTerm) {
		switch tt := t.(type) {
		case TermVar:
			if !seen[tt.Name] {
				seen[tt.Name] = true
				out = append(out, tt.Name)
			}
		case TermCtor:
			for _, a := range tt.Args {
				walk(a)
			}
		}
	}
	walk(t)
	return out
}

// Atom is a predicate application, e.g. (reachable ?x ?y).
type Atom struct {
	Pred  string
	Terms []LogicTerm
}

func (a Atom) String() string {
	parts := make([]string, len(a.Terms))
	for i, t := range a.Terms {
		parts[i] = t.String()
	}
	if len(parts) == 0 {
		return fmt.Sprintf("(%s)", a.Pred)
	}
	return fmt.Sprintf("(%s %s)", a.Pred, strings.Join(parts, " "))
}

// Vars returns the distinct variable names across all of the atom's terms,
// in first-seen order.
func (a Atom) Vars() []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range a.Terms {
		for _, v := range Vars(t) {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// Formula is a propositional formula over Atoms: the refinement-predicate
// and rule-body language. Only True, Atom, And, and Not are primitive; Or is
// derived (De Morgan) so the fixpoint evaluator's negation handling stays
// the single source of truth for "what does not hold."
type Formula interface {
	isFormula()
	String() string
}

type (
	FTrue  struct{}
	FAtom  struct{ Atom Atom }
	FAnd   struct{ Conjuncts []Formula }
	FNot   struct{ Inner Formula }
)

func (FTrue) isFormula() {}
func (FAtom) isFormula() {}
func (FAnd) isFormula()  {}
func (FNot) isFormula()  {}

// False is sugar for Not(True).
func False() Formula { return FNot{Inner: FTrue{}} }

// Or is sugar for Not(And(Not(a), Not(b), ...)) — De Morgan's law, matching
// how disjunction is distilled from `if`/`match` elsewhere in this package's
// consumers.
func Or(fs ...Formula) Formula {
	negs := make([]Formula, len(fs))
	for i, f := range fs {
		negs[i] = FNot{Inner: f}
	}
	return FNot{Inner: FAnd{Conjuncts: negs}}
}

// And builds a conjunction, flattening nested Ands.
func And(fs ...Formula) Formula {
	var flat []Formula
	for _, f := range fs {
		if a, ok := f.(FAnd); ok {
			flat = append(flat, a.Conjuncts...)
		} else {
			flat = append(flat, f)
		}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return FAnd{Conjuncts: flat}
}

func AtomF(pred string, terms ...LogicTerm) Formula {
	return FAtom{Atom: Atom{Pred: pred, Terms: terms}}
}

func (FTrue) String() string { return "true" }
func (f FAtom) String() string { return f.Atom.String() }
func (f FAnd) String() string {
	parts := make([]string, len(f.Conjuncts))
	for i, c := range f.Conjuncts {
		parts[i] = c.String()
	}
	return fmt.Sprintf("(and %s)", strings.Join(parts, " "))
}
func (f FNot) String() string { return fmt.Sprintf("(not %s)", f.Inner.String()) }

// FormulaVars returns the distinct variable names occurring anywhere in f,
// sorted for deterministic iteration.
func FormulaVars(f Formula) []string {
	seen := map[string]bool{}
	var walk func(Formula)
	walk = func(f Formula) {
		switch ff := f.(type) {
		case FAtom:
			for _, v := range ff.Atom.Vars() {
				seen[v] = true
			}
		case FAnd:
			for _, c := range ff.Conjuncts {
				walk(c)
			}
		case FNot:
			walk(ff.Inner)
		}
	}
	walk(f)
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
