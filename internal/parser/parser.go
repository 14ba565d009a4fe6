// Package parser builds an *ast.Program from a desugared sexpr.Node tree.
// It performs only local, per-form shape validation (arity of a form's own
// fixed parts, recognizable term/expr syntax); cross-form checks — does a
// sort exist, is a rule safe, are names unique — belong to internal/resolver.
package parser

import (
	"strconv"

	"github.com/dtlang/dtl/internal/ast"
	"github.com/dtlang/dtl/internal/diag"
	"github.com/dtlang/dtl/internal/sexpr"
)

// Parse builds a Program from the top-level forms of a desugared tree.
func Parse(file string, forms []*sexpr.Node) (*ast.Program, []*diag.Diagnostic) {
	p := &parser{}
	prog := &ast.Program{File: file}
	for _, f := range forms {
		p.parseTopLevel(prog, f)
	}
	return prog, p.diags
}

type parser struct {
	diags []*diag.Diagnostic
}

func (p *parser) errf(n *sexpr.Node, format string, args ...any) {
	p.diags = append(p.diags, diag.New(diag.CodeParse, n.Span, format, args...))
}

func (p *parser) parseTopLevel(prog *ast.Program, n *sexpr.Node) {
	if !n.IsList || len(n.Items) == 0 || n.Items[0].IsList {
		p.errf(n, "expected a top-level form starting with a keyword")
		return
	}
	head := n.Items[0].Literal
	rest := n.Items[1:]
	switch head {
	case "import":
		p.parseImport(prog, n, rest)
	case "sort":
		p.parseSort(prog, n, rest)
	case "data":
		p.parseData(prog, n, rest)
	case "alias":
		p.parseAlias(prog, n, rest)
	case "relation":
		p.parseRelation(prog, n, rest)
	case "fact":
		p.parseFact(prog, n, rest)
	case "rule":
		p.parseRule(prog, n, rest)
	case "assert":
		p.parseAssert(prog, n, rest)
	case "universe":
		p.parseUniverse(prog, n, rest)
	case "defn":
		p.parseDefn(prog, n, rest)
	default:
		p.errf(n, "unknown top-level form %q", head)
	}
}

func (p *parser) parseImport(prog *ast.Program, n *sexpr.Node, rest []*sexpr.Node) {
	if len(rest) != 1 || rest[0].IsList {
		p.errf(n, "import expects a single path atom")
		return
	}
	prog.Imports = append(prog.Imports, &ast.ImportDecl{Path: rest[0].Literal, Span: n.Span})
}

func (p *parser) parseSort(prog *ast.Program, n *sexpr.Node, rest []*sexpr.Node) {
	if len(rest) != 1 || rest[0].IsList {
		p.errf(n, "sort expects a single name")
		return
	}
	prog.Sorts = append(prog.Sorts, &ast.SortDecl{Name: rest[0].Literal, Span: n.Span})
}

func (p *parser) parseData(prog *ast.Program, n *sexpr.Node, rest []*sexpr.Node) {
	if len(rest) < 1 || rest[0].IsList {
		p.errf(n, "data expects a type name followed by constructors")
		return
	}
	d := &ast.DataDecl{Name: rest[0].Literal, Span: n.Span}
	for _, ctorNode := range rest[1:] {
		if !ctorNode.IsList || len(ctorNode.Items) == 0 || ctorNode.Items[0].IsList {
			p.errf(ctorNode, "expected a (ctor fieldType...) constructor form")
			continue
		}
		ctor := &ast.Constructor{Name: ctorNode.Items[0].Literal, Span: ctorNode.Span}
		for _, ft := range ctorNode.Items[1:] {
			ctor.FieldTys = append(ctor.FieldTys, p.parseTypeExpr(ft))
		}
		d.Constructors = append(d.Constructors, ctor)
	}
	prog.Datas = append(prog.Datas, d)
}

func (p *parser) parseAlias(prog *ast.Program, n *sexpr.Node, rest []*sexpr.Node) {
	if len(rest) != 2 || rest[0].IsList {
		p.errf(n, "alias expects a name and a target type")
		return
	}
	prog.Aliases = append(prog.Aliases, &ast.AliasDecl{
		Name:   rest[0].Literal,
		Target: p.parseTypeExpr(rest[1]),
		Span:   n.Span,
	})
}

func (p *parser) parseRelation(prog *ast.Program, n *sexpr.Node, rest []*sexpr.Node) {
	if len(rest) < 1 || rest[0].IsList {
		p.errf(n, "relation expects a name followed by argument sorts")
		return
	}
	rd := &ast.RelationDecl{Name: rest[0].Literal, Span: n.Span}
	for _, a := range rest[1:] {
		rd.ArgTypes = append(rd.ArgTypes, p.parseTypeExpr(a))
	}
	prog.Relations = append(prog.Relations, rd)
}

func (p *parser) parseFact(prog *ast.Program, n *sexpr.Node, rest []*sexpr.Node) {
	if len(rest) < 1 || rest[0].IsList {
		p.errf(n, "fact expects a predicate name followed by ground terms")
		return
	}
	f := &ast.Fact{Pred: rest[0].Literal, Span: n.Span}
	for _, t := range rest[1:] {
		f.Terms = append(f.Terms, p.parseTerm(t))
	}
	prog.Facts = append(prog.Facts, f)
}

func (p *parser) parseAtomForm(n *sexpr.Node) *ast.Atom {
	if !n.IsList || len(n.Items) == 0 || n.Items[0].IsList {
		p.errf(n, "expected an atom (predicate term...)")
		return &ast.Atom{Span: n.Span}
	}
	a := &ast.Atom{Pred: n.Items[0].Literal, Span: n.Span}
	for _, t := range n.Items[1:] {
		a.Terms = append(a.Terms, p.parseTerm(t))
	}
	return a
}

func (p *parser) parseRule(prog *ast.Program, n *sexpr.Node, rest []*sexpr.Node) {
	if len(rest) < 2 {
		p.errf(n, "rule expects a head atom and at least one body atom")
		return
	}
	r := &ast.Rule{Head: p.parseAtomForm(rest[0]), Span: n.Span}
	body := rest[1:]
	// A rule body may be written as several sibling conjuncts, (edge ?x ?y)
	// (reach ?y ?z), or as a single (and c1 c2 ...) wrapper; both desugar to
	// the same flat list of body atoms.
	if len(body) == 1 && body[0].IsList && len(body[0].Items) > 0 &&
		!body[0].Items[0].IsList && body[0].Items[0].Literal == "and" {
		body = body[0].Items[1:]
	}
	for _, b := range body {
		r.Body = append(r.Body, p.parseBodyAtom(b))
	}
	prog.Rules = append(prog.Rules, r)
}

func (p *parser) parseBodyAtom(n *sexpr.Node) ast.BodyAtom {
	if n.IsList && len(n.Items) == 2 && !n.Items[0].IsList && n.Items[0].Literal == "not" {
		return ast.BodyAtom{Atom: p.parseAtomForm(n.Items[1]), Negated: true, Span: n.Span}
	}
	return ast.BodyAtom{Atom: p.parseAtomForm(n), Negated: false, Span: n.Span}
}

func (p *parser) parseParam(n *sexpr.Node) *ast.Param {
	if !n.IsList || len(n.Items) != 2 || n.Items[0].IsList {
		p.errf(n, "expected a (name type) parameter")
		return &ast.Param{Span: n.Span}
	}
	return &ast.Param{Name: n.Items[0].Literal, Type: p.parseTypeExpr(n.Items[1]), Span: n.Span}
}

func (p *parser) parseAssert(prog *ast.Program, n *sexpr.Node, rest []*sexpr.Node) {
	if len(rest) < 2 || rest[0].IsList {
		p.errf(n, "assert expects a name, (params...), and a formula")
		return
	}
	a := &ast.Assert{Name: rest[0].Literal, Span: n.Span}
	idx := 1
	if idx < len(rest) && rest[idx].IsList {
		for _, paramNode := range rest[idx].Items {
			a.Vars = append(a.Vars, p.parseParam(paramNode))
		}
		idx++
	}
	if idx >= len(rest) {
		p.errf(n, "assert is missing its formula")
		return
	}
	a.Formula = p.parseFormulaExpr(rest[idx])
	prog.Asserts = append(prog.Asserts, a)
}

func (p *parser) parseUniverse(prog *ast.Program, n *sexpr.Node, rest []*sexpr.Node) {
	if len(rest) < 1 || rest[0].IsList {
		p.errf(n, "universe expects a sort name followed by values")
		return
	}
	u := &ast.Universe{Sort: rest[0].Literal, Span: n.Span}
	for _, v := range rest[1:] {
		u.Values = append(u.Values, p.parseTerm(v))
	}
	prog.Universes = append(prog.Universes, u)
}

func (p *parser) parseDefn(prog *ast.Program, n *sexpr.Node, rest []*sexpr.Node) {
	if len(rest) < 3 || rest[0].IsList || !rest[1].IsList {
		p.errf(n, "defn expects a name, (params...), a return type, and a body")
		return
	}
	d := &ast.Defn{Name: rest[0].Literal, Span: n.Span}
	for _, paramNode := range rest[1].Items {
		d.Params = append(d.Params, p.parseParam(paramNode))
	}
	d.RetType = p.parseTypeExpr(rest[2])
	if len(rest) < 4 {
		p.errf(n, "defn is missing its body")
		return
	}
	d.Body = p.parseExpr(rest[3])
	prog.Defns = append(prog.Defns, d)
}

// parseTypeExpr parses a type in one of three surface shapes:
//
//	Name                      -> TyName
//	(-> (ParamTy...) RetTy)   -> TyFun
//	(refine Var Base Formula) -> TyRefine
func (p *parser) parseTypeExpr(n *sexpr.Node) ast.TypeExpr {
	if !n.IsList {
		return ast.TyName{Name: n.Literal, Sp: n.Span}
	}
	if len(n.Items) == 0 || n.Items[0].IsList {
		p.errf(n, "malformed type expression")
		return ast.TyName{Name: "Bool", Sp: n.Span}
	}
	switch n.Items[0].Literal {
	case "->":
		if len(n.Items) != 3 || !n.Items[1].IsList {
			p.errf(n, "expected (-> (paramType...) resultType)")
			return ast.TyName{Name: "Bool", Sp: n.Span}
		}
		fn := ast.TyFun{Sp: n.Span}
		for _, pt := range n.Items[1].Items {
			fn.Params = append(fn.Params, p.parseTypeExpr(pt))
		}
		fn.Result = p.parseTypeExpr(n.Items[2])
		return fn
	case "refine":
		if len(n.Items) != 4 || n.Items[1].IsList {
			p.errf(n, "expected (refine var baseType formula)")
			return ast.TyName{Name: "Bool", Sp: n.Span}
		}
		return ast.TyRefine{
			Var:     n.Items[1].Literal,
			Base:    p.parseTypeExpr(n.Items[2]),
			Formula: p.parseFormulaExpr(n.Items[3]),
			Sp:      n.Span,
		}
	default:
		p.errf(n, "unknown type form %q", n.Items[0].Literal)
		return ast.TyName{Name: "Bool", Sp: n.Span}
	}
}

// parseFormulaExpr parses a refinement/assert formula:
//
//	true
//	(and f...)
//	(or f...)
//	(not f)
//	(pred term...)   -- an atom
func (p *parser) parseFormulaExpr(n *sexpr.Node) ast.FormulaExpr {
	if !n.IsList {
		if n.Literal == "true" {
			return ast.FxTrue{Sp: n.Span}
		}
		p.errf(n, "expected a formula, got atom %q", n.Literal)
		return ast.FxTrue{Sp: n.Span}
	}
	if len(n.Items) == 0 || n.Items[0].IsList {
		p.errf(n, "malformed formula")
		return ast.FxTrue{Sp: n.Span}
	}
	head := n.Items[0].Literal
	switch head {
	case "and":
		f := ast.FxAnd{Sp: n.Span}
		for _, c := range n.Items[1:] {
			f.Conjuncts = append(f.Conjuncts, p.parseFormulaExpr(c))
		}
		return f
	case "or":
		f := ast.FxOr{Sp: n.Span}
		for _, c := range n.Items[1:] {
			f.Disjuncts = append(f.Disjuncts, p.parseFormulaExpr(c))
		}
		return f
	case "not":
		if len(n.Items) != 2 {
			p.errf(n, "not expects exactly one formula")
			return ast.FxTrue{Sp: n.Span}
		}
		return ast.FxNot{Inner: p.parseFormulaExpr(n.Items[1]), Sp: n.Span}
	default:
		f := ast.FxAtom{Pred: head, Sp: n.Span}
		for _, t := range n.Items[1:] {
			f.Args = append(f.Args, p.parseTerm(t))
		}
		return f
	}
}

// parseTerm parses a ground-or-variable term: ?x is a variable, an
// unquoted bare atom is a Symbol, a quoted atom a Symbol with its literal
// bytes, integers parse as TmInt, true/false as TmBool, and (ctor arg...)
// as TmCtor.
func (p *parser) parseTerm(n *sexpr.Node) ast.Term {
	if n.IsList {
		if len(n.Items) == 0 || n.Items[0].IsList {
			p.errf(n, "malformed term")
			return ast.TmSymbol{Name: "?", Sp: n.Span}
		}
		t := ast.TmCtor{Ctor: n.Items[0].Literal, Sp: n.Span}
		for _, a := range n.Items[1:] {
			t.Args = append(t.Args, p.parseTerm(a))
		}
		return t
	}
	lit := n.Literal
	switch {
	case len(lit) > 0 && lit[0] == '?':
		return ast.TmVar{Name: lit, Sp: n.Span}
	case lit == "true":
		return ast.TmBool{Value: true, Sp: n.Span}
	case lit == "false":
		return ast.TmBool{Value: false, Sp: n.Span}
	default:
		if iv, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return ast.TmInt{Value: iv, Sp: n.Span}
		}
		return ast.TmSymbol{Name: lit, Sp: n.Span}
	}
}

// parseExpr parses a defn body expression.
func (p *parser) parseExpr(n *sexpr.Node) ast.Expr {
	if !n.IsList {
		lit := n.Literal
		switch {
		case len(lit) > 0 && lit[0] == '?':
			return ast.ExVar{Name: lit, Sp: n.Span}
		case lit == "true":
			return ast.ExBool{Value: true, Sp: n.Span}
		case lit == "false":
			return ast.ExBool{Value: false, Sp: n.Span}
		default:
			if iv, err := strconv.ParseInt(lit, 10, 64); err == nil {
				return ast.ExInt{Value: iv, Sp: n.Span}
			}
			return ast.ExSymbol{Name: lit, Sp: n.Span}
		}
	}
	if len(n.Items) == 0 || n.Items[0].IsList {
		p.errf(n, "malformed expression")
		return ast.ExBool{Value: false, Sp: n.Span}
	}
	head := n.Items[0].Literal
	switch head {
	case "let":
		if len(n.Items) != 3 || !n.Items[1].IsList || len(n.Items[1].Items) != 2 {
			p.errf(n, "expected (let (name value) body)")
			return ast.ExBool{Value: false, Sp: n.Span}
		}
		return ast.ExLet{
			Name:  n.Items[1].Items[0].Literal,
			Value: p.parseExpr(n.Items[1].Items[1]),
			Body:  p.parseExpr(n.Items[2]),
			Sp:    n.Span,
		}
	case "if":
		if len(n.Items) != 4 {
			p.errf(n, "expected (if cond then else)")
			return ast.ExBool{Value: false, Sp: n.Span}
		}
		return ast.ExIf{
			Cond: p.parseExpr(n.Items[1]),
			Then: p.parseExpr(n.Items[2]),
			Else: p.parseExpr(n.Items[3]),
			Sp:   n.Span,
		}
	case "match":
		if len(n.Items) < 2 {
			p.errf(n, "expected (match scrutinee arm...)")
			return ast.ExBool{Value: false, Sp: n.Span}
		}
		m := ast.ExMatch{Scrutinee: p.parseExpr(n.Items[1]), Sp: n.Span}
		for _, armNode := range n.Items[2:] {
			m.Arms = append(m.Arms, p.parseMatchArm(armNode))
		}
		return m
	default:
		c := ast.ExCall{Name: head, Sp: n.Span}
		for _, a := range n.Items[1:] {
			c.Args = append(c.Args, p.parseExpr(a))
		}
		return c
	}
}

func (p *parser) parseMatchArm(n *sexpr.Node) *ast.MatchArm {
	if !n.IsList || len(n.Items) != 2 {
		p.errf(n, "expected a (pattern body) match arm")
		return &ast.MatchArm{Pattern: ast.PatWildcard{Sp: n.Span}, Body: ast.ExBool{Value: false, Sp: n.Span}, Span: n.Span}
	}
	return &ast.MatchArm{Pattern: p.parsePattern(n.Items[0]), Body: p.parseExpr(n.Items[1]), Span: n.Span}
}

func (p *parser) parsePattern(n *sexpr.Node) ast.Pattern {
	if !n.IsList {
		if n.Literal == "_" {
			return ast.PatWildcard{Sp: n.Span}
		}
		return ast.PatVar{Name: n.Literal, Sp: n.Span}
	}
	if len(n.Items) == 0 || n.Items[0].IsList {
		p.errf(n, "malformed pattern")
		return ast.PatWildcard{Sp: n.Span}
	}
	pat := ast.PatCtor{Ctor: n.Items[0].Literal, Sp: n.Span}
	for _, f := range n.Items[1:] {
		pat.Fields = append(pat.Fields, p.parsePattern(f))
	}
	return pat
}
