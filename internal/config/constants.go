// Package config carries ambient, engine-wide constants and the loadable
// Options struct: bare const/var blocks for well-known names, no surprise
// global mutation from library code.
package config

// SchemaVersion is the ProofTrace wire-format version, bumped whenever the
// trace JSON shape changes in a way a consumer must notice.
const SchemaVersion = "1.0.0"

// DefaultProfile names the built-in proof profile used when Options.Profile
// is empty.
const DefaultProfile = "default"

// Well-known built-in sort names. These are always in scope; a `sort`
// declaration reusing one of them is rejected by the resolver as a
// duplicate.
const (
	SortBool   = "Bool"
	SortInt    = "Int"
	SortSymbol = "Symbol"
)

// MaxStratifyIterations bounds the stratification fixpoint: for n relations,
// a solution (if one exists) is always found within n*n+1 passes. Exceeding
// it means a genuine negative dependency cycle.
func MaxStratifyIterations(numRelations int) int {
	return numRelations*numRelations + 1
}

// MaxUniverseSize caps how many values a single `universe` declaration may
// enumerate, guarding the prover's Cartesian-product valuation search
// against runaway blowup on malformed input.
const MaxUniverseSize = 10000

// MaxValuationProduct caps the size of the Cartesian product of an
// obligation's quantified variables' universes (and, for a function-typed
// variable, the finite function-model table built over its own input/output
// universes). Exceeding it is an E-PROVE diagnostic, never a silent
// truncation.
const MaxValuationProduct = 1000000
