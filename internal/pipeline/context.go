package pipeline

import (
	"github.com/dtlang/dtl/internal/ast"
	"github.com/dtlang/dtl/internal/diag"
	"github.com/dtlang/dtl/internal/lexer"
	"github.com/dtlang/dtl/internal/logic"
	"github.com/dtlang/dtl/internal/prover"
	"github.com/dtlang/dtl/internal/resolver"
	"github.com/dtlang/dtl/internal/sexpr"
	"github.com/dtlang/dtl/internal/surface"
)

// Context carries a single source file's state through every pipeline
// stage: the raw source, the lexer's token stream, the S-expression tree,
// the built AST, the resolved program, the stratum assignment, the
// knowledge base and its solved model, a typecheck report, a proof trace,
// and the diagnostics accumulated so far.
type Context struct {
	FilePath string
	Source   string

	// SyntaxMode is the reader mode forced by a leading `; syntax: ...`
	// pragma, detected once from Source when the Context is created.
	SyntaxMode surface.Mode

	Tokens  []lexer.Token
	Forms   []*sexpr.Node
	AstRoot *ast.Program

	Resolved *resolver.Program
	Strata   map[string]int
	KB       *logic.KnowledgeBase
	Model    *logic.DerivedFacts

	FunctionsChecked int
	ProofTrace       *prover.Trace

	Diagnostics diag.Bag
}

// NewContext creates a Context for a single file's source text.
func NewContext(filePath, source string) *Context {
	return &Context{FilePath: filePath, Source: source, SyntaxMode: surface.DetectPragma(source)}
}
