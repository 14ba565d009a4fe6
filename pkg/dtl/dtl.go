// Package dtl is the public entry point: Parse, ResolveProgram,
// NormalizeAliases, ComputeStrata, BuildKnowledgeBase, SolveFacts,
// CheckProgram, and ProveProgram, each a thin call into the internal
// pipeline stages. This is the only package an external caller (a CLI, an
// editor integration, a test harness) should import.
package dtl

import (
	"github.com/dtlang/dtl/internal/ast"
	"github.com/dtlang/dtl/internal/diag"
	"github.com/dtlang/dtl/internal/lexer"
	"github.com/dtlang/dtl/internal/logic"
	"github.com/dtlang/dtl/internal/parser"
	"github.com/dtlang/dtl/internal/prover"
	"github.com/dtlang/dtl/internal/resolver"
	"github.com/dtlang/dtl/internal/sexpr"
	"github.com/dtlang/dtl/internal/stratify"
	"github.com/dtlang/dtl/internal/surface"
	"github.com/dtlang/dtl/internal/typecheck"
)

// Diagnostic is the external diagnostic shape: a stable code, a message,
// and a 1-based line/column.
type Diagnostic struct {
	Code    string
	Message string
	Line    int
	Column  int
}

func toExternal(ds []*diag.Diagnostic) []Diagnostic {
	out := make([]Diagnostic, len(ds))
	for i, d := range ds {
		out[i] = Diagnostic{Code: d.Code, Message: d.Message, Line: d.Span.Line, Column: d.Span.Column}
	}
	return out
}

// ProofTrace is the external, stable shape of a completed proof run.
type ProofTrace = prover.Trace

// Parse lexes and reads file's source into an *ast.Program. Diagnostics
// cover lexical, S-expression balancing, and form-shape errors (E-PARSE).
func Parse(file, source string) (*ast.Program, []Diagnostic) {
	l := lexer.New(source)
	toks := l.Tokens()
	forms, ds := sexpr.Read(toks)
	ds = append(append([]*diag.Diagnostic{}, l.Diagnostics...), ds...)
	if len(ds) > 0 {
		return nil, toExternal(ds)
	}
	forms, sds := surface.DesugarMode(forms, surface.DetectPragma(source))
	if len(sds) > 0 {
		return nil, toExternal(sds)
	}
	prog, pds := parser.Parse(file, forms)
	return prog, toExternal(pds)
}

// ResolveProgram performs name/alias resolution and arity/safety checking
// over prog, returning the lowered Program the rest of the pipeline uses.
func ResolveProgram(prog *ast.Program) (*resolver.Program, []Diagnostic) {
	r, ds := resolver.Resolve(prog)
	return r, toExternal(ds)
}

// NormalizeAliases returns prog with every alias expanded to its canonical
// type. It runs the same full resolution as ResolveProgram (alias expansion
// is part of it) and returns all of its diagnostics.
func NormalizeAliases(prog *ast.Program) (*resolver.Program, []Diagnostic) {
	return ResolveProgram(prog)
}

// ComputeStrata assigns a stratum to every relation in resolved.
func ComputeStrata(resolved *resolver.Program) (map[string]int, []Diagnostic) {
	strata, ds := stratify.Compute(resolved)
	return strata, toExternal(ds)
}

// BuildKnowledgeBase assembles the immutable KnowledgeBase for resolved
// program at the given stratification.
func BuildKnowledgeBase(resolved *resolver.Program, strata map[string]int) *logic.KnowledgeBase {
	return logic.Build(resolved, strata)
}

// SolveFacts computes kb's stratified fixpoint model.
func SolveFacts(kb *logic.KnowledgeBase) *logic.DerivedFacts {
	return logic.SolveFacts(kb)
}

// CheckProgram runs the full A-E pipeline then typechecks every defn.
func CheckProgram(file, source string) (functionsChecked int, diags []Diagnostic) {
	prog, ds := Parse(file, source)
	if len(ds) > 0 {
		return 0, ds
	}
	resolved, ds := ResolveProgram(prog)
	if len(ds) > 0 {
		return 0, ds
	}
	strata, ds := ComputeStrata(resolved)
	if len(ds) > 0 {
		return 0, ds
	}
	kb := BuildKnowledgeBase(resolved, strata)
	report, tds := typecheck.CheckProgram(resolved, kb)
	return report.FunctionsChecked, toExternal(tds)
}

// ProveProgram runs the full pipeline (A through I) and returns the
// resulting ProofTrace.
func ProveProgram(file, source, profile string) (*ProofTrace, []Diagnostic) {
	prog, ds := Parse(file, source)
	if len(ds) > 0 {
		return nil, ds
	}
	resolved, ds := ResolveProgram(prog)
	if len(ds) > 0 {
		return nil, ds
	}
	strata, ds := ComputeStrata(resolved)
	if len(ds) > 0 {
		return nil, ds
	}
	kb := BuildKnowledgeBase(resolved, strata)
	if _, tds := typecheck.CheckProgram(resolved, kb); len(tds) > 0 {
		return nil, toExternal(tds)
	}
	trace, pds := prover.Prove(resolved, kb, profile)
	if len(pds) > 0 {
		return nil, toExternal(pds)
	}
	return trace, nil
}
