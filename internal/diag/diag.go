// Package diag defines the diagnostic taxonomy shared by every pipeline stage.
package diag

import (
	"fmt"

	"github.com/dtlang/dtl/internal/span"
)

// Error codes, one per component that can reject a program. Kept as plain
// strings (not an enum) because every diagnostic's code is user-facing text.
const (
	CodeParse    = "E-PARSE"
	CodeResolve  = "E-RESOLVE"
	CodeData     = "E-DATA"
	CodeStratify = "E-STRATIFY"
	CodeType     = "E-TYPE"
	CodeEntail   = "E-ENTAIL"
	CodeMatch    = "E-MATCH"
	CodeTotal    = "E-TOTAL"
	CodeProve    = "E-PROVE"
)

// Diagnostic is a single user-facing error or note, always attached to a
// span when one is available.
type Diagnostic struct {
	Code    string
	Message string
	Span    span.Span
}

// New builds a Diagnostic for code at sp.
func New(code string, sp span.Span, format string, args ...any) *Diagnostic {
	return &Diagnostic{Code: code, Message: fmt.Sprintf(format, args...), Span: sp}
}

// String renders "CODE: message at line:column".
func (d *Diagnostic) String() string {
	return fmt.Sprintf("%s: %s at %s", d.Code, d.Message, d.Span)
}

// Error implements the error interface so a Diagnostic can be returned or
// wrapped anywhere Go code expects one, without changing how stages collect
// diagnostics (they keep appending to a []*Diagnostic, never to an error
// chain).
func (d *Diagnostic) Error() string { return d.String() }

// Bag collects diagnostics across a pipeline run.
type Bag struct {
	items []*Diagnostic
}

// Add appends d to the bag. A nil d is ignored.
func (b *Bag) Add(d *Diagnostic) {
	if d == nil {
		return
	}
	b.items = append(b.items, d)
}

// Addf is a convenience wrapper around New+Add.
func (b *Bag) Addf(code string, sp span.Span, format string, args ...any) {
	b.Add(New(code, sp, format, args...))
}

// Extend appends every diagnostic in other.
func (b *Bag) Extend(other []*Diagnostic) {
	b.items = append(b.items, other...)
}

// HasErrors reports whether any diagnostic has been recorded.
func (b *Bag) HasErrors() bool { return len(b.items) > 0 }

// All returns the recorded diagnostics in recording order.
func (b *Bag) All() []*Diagnostic { return b.items }
