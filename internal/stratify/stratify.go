// Package stratify computes a stratum assignment for a resolved program's
// rules, so that every negated dependency is evaluated in a strictly
// earlier stratum than its user: build head<-body dependency edges,
// iteratively lift strata until a fixpoint, and reject a negative
// dependency cycle once the iteration count exceeds n*n+1 (a bound past
// which no acyclic solution could still be found).
package stratify

import (
	"github.com/dtlang/dtl/internal/config"
	"github.com/dtlang/dtl/internal/diag"
	"github.com/dtlang/dtl/internal/resolver"
	"github.com/dtlang/dtl/internal/span"
)

type edge struct {
	head    string
	dep     string
	negated bool
	span    span.Span
}

// Compute assigns a stratum number to every relation appearing in prog's
// rule heads or facts. Relations that never appear as a rule head (EDB
// predicates, defined only by facts) are stratum 0.
func Compute(prog *resolver.Program) (map[string]int, []*diag.Diagnostic) {
	var bag diag.Bag
	strata := map[string]int{}
	for pred := range prog.Relations {
		strata[pred] = 0
	}

	var edges []edge
	for _, r := range prog.Rules {
		for _, b := range r.Body {
			if b.Atom.Pred == r.Head.Pred && b.Negated {
				bag.Addf(diag.CodeStratify, r.Span, "relation %q negatively depends on itself", r.Head.Pred)
				continue
			}
			edges = append(edges, edge{head: r.Head.Pred, dep: b.Atom.Pred, negated: b.Negated, span: r.Span})
		}
	}
	if bag.HasErrors() {
		return nil, bag.All()
	}

	n := len(prog.Relations)
	maxIter := config.MaxStratifyIterations(n)
	changed := true
	iterations := 0
	for changed {
		changed = false
		iterations++
		if iterations > maxIter {
			bag.Addf(diag.CodeStratify, edges[0].span, "negative dependency cycle detected")
			return nil, bag.All()
		}
		for _, e := range edges {
			required := strata[e.dep]
			if e.negated {
				required++
			}
			if required > strata[e.head] {
				strata[e.head] = required
				changed = true
			}
			if required > n {
				bag.Addf(diag.CodeStratify, e.span, "negative dependency cycle detected")
				return nil, bag.All()
			}
		}
	}

	for _, e := range edges {
		if e.negated {
			if strata[e.head] <= strata[e.dep] {
				bag.Addf(diag.CodeStratify, e.span, "stratification constraint violated: %q must be in a later stratum than %q", e.head, e.dep)
			}
		} else if strata[e.head] < strata[e.dep] {
			bag.Addf(diag.CodeStratify, e.span, "stratification constraint violated: %q must not be in an earlier stratum than %q", e.head, e.dep)
		}
	}
	if bag.HasErrors() {
		return nil, bag.All()
	}
	return strata, nil
}
