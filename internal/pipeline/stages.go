package pipeline

import (
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

// LexProcessor tokenizes ctx.Source.
type LexProcessor struct{}

func (LexProcessor) Process(ctx *Context) *Context {
	if ctx.Diagnostics.HasErrors() {
		return ctx
	}
	l := lexer.New(ctx.Source)
	ctx.Tokens = l.Tokens()
	ctx.Diagnostics.Extend(l.Diagnostics)
	return ctx
}

// SexprProcessor groups ctx.Tokens into an S-expression tree.
type SexprProcessor struct{}

func (SexprProcessor) Process(ctx *Context) *Context {
	if ctx.Diagnostics.HasErrors() {
		return ctx
	}
	forms, ds := sexpr.Read(ctx.Tokens)
	ctx.Forms = forms
	ctx.Diagnostics.Extend(ds)
	return ctx
}

// SurfaceProcessor desugars localized/tagged forms to the canonical core
// shape in place.
type SurfaceProcessor struct{}

func (SurfaceProcessor) Process(ctx *Context) *Context {
	if ctx.Diagnostics.HasErrors() {
		return ctx
	}
	forms, ds := surface.DesugarMode(ctx.Forms, ctx.SyntaxMode)
	ctx.Forms = forms
	ctx.Diagnostics.Extend(ds)
	return ctx
}

// ParserProcessor builds ctx.AstRoot from ctx.Forms.
type ParserProcessor struct{}

func (ParserProcessor) Process(ctx *Context) *Context {
	if ctx.Diagnostics.HasErrors() {
		return ctx
	}
	prog, ds := parser.Parse(ctx.FilePath, ctx.Forms)
	ctx.AstRoot = prog
	ctx.Diagnostics.Extend(ds)
	return ctx
}

// ResolverProcessor performs name/alias resolution.
type ResolverProcessor struct{}

func (ResolverProcessor) Process(ctx *Context) *Context {
	if ctx.Diagnostics.HasErrors() {
		return ctx
	}
	prog, ds := resolver.Resolve(ctx.AstRoot)
	ctx.Resolved = prog
	ctx.Diagnostics.Extend(ds)
	return ctx
}

// StratifyProcessor computes the stratum assignment.
type StratifyProcessor struct{}

func (StratifyProcessor) Process(ctx *Context) *Context {
	if ctx.Diagnostics.HasErrors() {
		return ctx
	}
	strata, ds := stratify.Compute(ctx.Resolved)
	ctx.Strata = strata
	ctx.Diagnostics.Extend(ds)
	return ctx
}

// EvaluateProcessor builds the knowledge base and solves its fixpoint model.
type EvaluateProcessor struct{}

func (EvaluateProcessor) Process(ctx *Context) *Context {
	if ctx.Diagnostics.HasErrors() {
		return ctx
	}
	ctx.KB = logic.Build(ctx.Resolved, ctx.Strata)
	ctx.Model = logic.SolveFacts(ctx.KB)
	return ctx
}

// TypecheckProcessor typechecks every defn.
type TypecheckProcessor struct{}

func (TypecheckProcessor) Process(ctx *Context) *Context {
	if ctx.Diagnostics.HasErrors() {
		return ctx
	}
	report, ds := typecheck.CheckProgram(ctx.Resolved, ctx.KB)
	ctx.FunctionsChecked = report.FunctionsChecked
	ctx.Diagnostics.Extend(ds)
	return ctx
}

// ProveProcessor discharges every proof obligation.
type ProveProcessor struct{ Profile string }

func (p ProveProcessor) Process(ctx *Context) *Context {
	if ctx.Diagnostics.HasErrors() {
		return ctx
	}
	trace, ds := prover.Prove(ctx.Resolved, ctx.KB, p.Profile)
	ctx.ProofTrace = trace
	ctx.Diagnostics.Extend(ds)
	return ctx
}

// Full returns the standard A-through-I pipeline, lexing through proving.
// pkg/dtl's CheckProgram and ProveProgram do not use it; they call the
// stage packages directly.
func Full(profile string) *Pipeline {
	return New(
		LexProcessor{},
		SexprProcessor{},
		SurfaceProcessor{},
		ParserProcessor{},
		ResolverProcessor{},
		StratifyProcessor{},
		EvaluateProcessor{},
		TypecheckProcessor{},
		ProveProcessor{Profile: profile},
	)
}
