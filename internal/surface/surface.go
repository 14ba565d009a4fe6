// Package surface desugars the localized, tag-argument dialect of the
// language (e.g. Japanese-keyword heads and `:key value` tagged arguments)
// into the canonical core S-expression shape internal/parser expects, using
// a table-driven head/tag lookup and rewriting the node tree in place
// rather than re-rendering and re-lexing source text.
package surface

import (
	"strings"

	"github.com/dtlang/dtl/internal/diag"
	"github.com/dtlang/dtl/internal/sexpr"
	"github.com/dtlang/dtl/internal/span"
)

// Mode forces how Desugar treats a form, overriding per-form auto-detection.
type Mode int

const (
	// ModeAuto desugars a localized head or a tagged argument list wherever
	// one is found, and passes an already-positional core form through
	// unchanged — this is the default when no pragma is present.
	ModeAuto Mode = iota
	// ModeCore passes every form through untouched: a `:`-prefixed atom in
	// a core-mode program is an ordinary term, never a tag key.
	ModeCore
	// ModeSurface behaves like ModeAuto; it exists so a leading pragma can
	// make the surface dialect explicit in source even though detection
	// already handles it automatically.
	ModeSurface
)

// DetectPragma scans source's first non-blank line for a leading
// `; syntax: core` or `; syntax: surface` comment pragma, forcing the
// reader's mode before any localized/tagged-head auto-detection runs. Its
// absence leaves the mode at ModeAuto.
func DetectPragma(source string) Mode {
	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, ";") {
			return ModeAuto
		}
		body := strings.TrimSpace(strings.TrimPrefix(line, ";"))
		const prefix = "syntax:"
		if !strings.HasPrefix(body, prefix) {
			return ModeAuto
		}
		switch strings.TrimSpace(strings.TrimPrefix(body, prefix)) {
		case "core":
			return ModeCore
		case "surface":
			return ModeSurface
		default:
			return ModeAuto
		}
	}
	return ModeAuto
}

// headTable maps a localized head atom to its canonical core keyword.
var headTable = map[string]string{
	"インポート": "import",
	"型":      "sort",
	"データ":    "data",
	"関係":     "relation",
	"事実":     "fact",
	"規則":     "rule",
	"検証":     "assert",
	"宇宙":     "universe",
	"関数":     "defn",
}

// tagCandidates lists, per canonical core head, the ordered tag keys its
// surface form requires (first match wins when both a localized and an
// ASCII spelling are accepted) and where in the positional core form the
// resolved value is spliced back in.
var tagCandidates = map[string][][]string{
	"data":      {{":コンストラクタ", ":constructors", ":ctors"}},
	"relation":  {{":引数", ":args"}},
	"fact":      {{":項", ":terms"}},
	"rule":      {{":頭", ":head"}, {":本体", ":body"}},
	"assert":    {{":引数", ":params"}, {":式", ":formula"}},
	"universe":  {{":値", ":values"}},
	"defn":      {{":引数", ":params"}, {":戻り", ":ret"}, {":本体", ":body"}},
}

// Desugar rewrites every top-level form under ModeAuto: a recognized
// localized head and any `:key value` tagged arguments are rewritten to
// their canonical positional core shape; an already-positional core form
// passes through unchanged. Diagnostics are returned for malformed tag
// lists or missing required tags. Use DesugarMode directly when a source
// file's leading pragma (see DetectPragma) forces ModeCore or ModeSurface.
func Desugar(forms []*sexpr.Node) ([]*sexpr.Node, []*diag.Diagnostic) {
	return DesugarMode(forms, ModeAuto)
}

// DesugarMode is Desugar with an explicit Mode. Under ModeCore every form
// passes through verbatim, so a `:`-prefixed term in a core-syntax program
// is never mistaken for a tag key.
func DesugarMode(forms []*sexpr.Node, mode Mode) ([]*sexpr.Node, []*diag.Diagnostic) {
	if mode == ModeCore {
		return forms, nil
	}
	var diags []*diag.Diagnostic
	out := make([]*sexpr.Node, 0, len(forms))
	for _, f := range forms {
		n, ds := desugarTopLevel(f)
		diags = append(diags, ds...)
		if n != nil {
			out = append(out, n)
		}
	}
	return out, diags
}

func desugarTopLevel(n *sexpr.Node) (*sexpr.Node, []*diag.Diagnostic) {
	if n == nil || !n.IsList || len(n.Items) == 0 || n.Items[0].IsList {
		return n, nil
	}
	head := n.Items[0].Literal
	canon, known := headTable[head]
	if !known {
		canon = head // already core, or an unrecognized head the parser will reject
	}
	keys, tagged := tagCandidates[canon]
	if !tagged {
		n.Items[0].Literal = canon
		return n, nil
	}
	return desugarTagged(n, canon, keys)
}

// isTagAtom reports whether n is a `:`-prefixed atom, the marker that the
// remaining items of a top-level form are key/value tag pairs rather than
// positional arguments.
func isTagAtom(n *sexpr.Node) bool {
	return n != nil && !n.IsList && len(n.Literal) > 0 && n.Literal[0] == ':'
}

// desugarTagged rewrites a tag-argument top-level form into its positional
// core shape: (canon name? tagValue1 tagValue2 ...).
func desugarTagged(n *sexpr.Node, canon string, keys [][]string) (*sexpr.Node, []*diag.Diagnostic) {
	items := n.Items[1:]
	nameIdx := 0
	if canon != "rule" {
		// Every tagged form except `rule` carries a bare name/type atom
		// before its tag pairs begin.
		if len(items) < 1 || items[0].IsList {
			return nil, []*diag.Diagnostic{diag.New(diag.CodeParse, n.Span, "%s expects a name followed by tagged arguments", canon)}
		}
		nameIdx = 1
	}
	if len(items) <= nameIdx || !isTagAtom(items[nameIdx]) {
		// No tags present: already a positional core form (or missing
		// tags — the parser's own shape check reports that).
		rebuilt := &sexpr.Node{IsList: true, Span: n.Span, Items: append([]*sexpr.Node{{IsQuote: false, Literal: canon, Span: n.Items[0].Span}}, items...)}
		return rebuilt, nil
	}
	tagPairs := items[nameIdx:]
	if len(tagPairs)%2 != 0 {
		return nil, []*diag.Diagnostic{diag.New(diag.CodeParse, tagPairs[0].Span, "%s: tagged form must be key/value pairs", canon)}
	}
	tags := map[string]*sexpr.Node{}
	for i := 0; i+1 < len(tagPairs); i += 2 {
		key := tagPairs[i]
		if !isTagAtom(key) {
			return nil, []*diag.Diagnostic{diag.New(diag.CodeParse, key.Span, "%s: expected a tag key starting with ':'", canon)}
		}
		tags[key.Literal] = tagPairs[i+1]
	}

	newItems := []*sexpr.Node{{Literal: canon, Span: n.Items[0].Span}}
	if nameIdx == 1 {
		newItems = append(newItems, items[0])
	}
	for _, candidates := range keys {
		val, ds, ok := requiredTagValue(canon, tags, candidates, n.Span)
		if !ok {
			return nil, ds
		}
		switch {
		case canon == "relation" || canon == "fact" || canon == "data" || canon == "universe":
			// These forms keep every argument/term/constructor/value at the
			// top level (relation name arg...), so the tag's list value is
			// spliced flat rather than kept as one nested list.
			if !val.IsList {
				return nil, []*diag.Diagnostic{diag.New(diag.CodeParse, val.Span, "%s: tagged value must be a list", canon)}
			}
			newItems = append(newItems, val.Items...)
		case canon == "rule" && candidates[0] == ":本体":
			// A rule's body may itself be written as several sibling atom
			// forms; splice those flat the same way a plain-positional rule
			// body would be, but leave a single (and ...)/(not ...)/atom
			// form as-is for parseRule/parseBodyAtom to interpret.
			if val.IsList && len(val.Items) > 0 && val.Items[0].IsList {
				newItems = append(newItems, val.Items...)
			} else {
				newItems = append(newItems, val)
			}
		default:
			newItems = append(newItems, val)
		}
	}
	return &sexpr.Node{IsList: true, Items: newItems, Span: n.Span}, nil
}

// requiredTagValue looks up the first of candidates present in tags.
func requiredTagValue(canon string, tags map[string]*sexpr.Node, candidates []string, sp span.Span) (*sexpr.Node, []*diag.Diagnostic, bool) {
	for _, c := range candidates {
		if v, ok := tags[c]; ok {
			return v, nil, true
		}
	}
	return nil, []*diag.Diagnostic{diag.New(diag.CodeParse, sp, "%s requires tag %s", canon, candidates[0])}, false
}
