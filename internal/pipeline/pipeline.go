// Package pipeline provides the staged-processor scaffolding every CORE
// stage (lexer through prover) runs under: each stage is a Processor that
// transforms an accumulating Context, and Pipeline.Run chains them in
// order.
package pipeline

// Processor is one pipeline stage. It receives the context accumulated by
// every prior stage and returns a (possibly the same) context with its own
// results and diagnostics added.
type Processor interface {
	Process(ctx *Context) *Context
}

// Pipeline runs a fixed sequence of Processors.
type Pipeline struct {
	processors []Processor
}

// New builds a Pipeline running processors in order.
func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes every processor in order against initialCtx. Processors keep
// running even after one reports diagnostics, so a front end that wants
// every available error at once (an editor integration, say) can still get
// them; each stage is individually responsible for guarding on
// ctx.Diagnostics.HasErrors before doing stage-specific work, so a failed
// early stage's diagnostics are reported but its output does not silently
// feed a later stage.
func (p *Pipeline) Run(initialCtx *Context) *Context {
	ctx := initialCtx
	for _, proc := range p.processors {
		ctx = proc.Process(ctx)
	}
	return ctx
}
