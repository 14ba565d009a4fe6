package surface

import (
	"testing"

	"github.com/dtlang/dtl/internal/lexer"
	"github.com/dtlang/dtl/internal/sexpr"
)

func readForms(t *testing.T, src string) []*sexpr.Node {
	t.Helper()
	l := lexer.New(src)
	forms, ds := sexpr.Read(l.Tokens())
	if len(ds) > 0 {
		t.Fatalf("sexpr errors: %v", ds)
	}
	return forms
}

func TestDesugar_LocalizedHeadRename(t *testing.T) {
	forms := readForms(t, `(関係 edge Node Node)`)
	out, ds := Desugar(forms)
	if len(ds) > 0 {
		t.Fatalf("unexpected diagnostics: %v", ds)
	}
	if len(out) != 1 || out[0].Items[0].Literal != "relation" {
		t.Fatalf("expected head renamed to relation, got %+v", out)
	}
}

func TestDesugar_PositionalFormPassesThrough(t *testing.T) {
	forms := readForms(t, `(relation edge Node Node)`)
	out, ds := Desugar(forms)
	if len(ds) > 0 {
		t.Fatalf("unexpected diagnostics: %v", ds)
	}
	got := out[0].Items
	if len(got) != 3 || got[0].Literal != "relation" || got[1].Literal != "edge" || got[2].Literal != "Node" {
		t.Fatalf("positional form should pass through unchanged, got %+v", got)
	}
}

func TestDesugar_TaggedRelation(t *testing.T) {
	forms := readForms(t, `(関係 edge :引数 (Node Node))`)
	out, ds := Desugar(forms)
	if len(ds) > 0 {
		t.Fatalf("unexpected diagnostics: %v", ds)
	}
	got := out[0].Items
	if len(got) != 4 || got[0].Literal != "relation" || got[1].Literal != "edge" ||
		got[2].Literal != "Node" || got[3].Literal != "Node" {
		t.Fatalf("expected flattened relation args, got %+v", got)
	}
}

func TestDesugar_TaggedFactASCIIKeys(t *testing.T) {
	forms := readForms(t, `(fact edge :terms (a b))`)
	out, ds := Desugar(forms)
	if len(ds) > 0 {
		t.Fatalf("unexpected diagnostics: %v", ds)
	}
	got := out[0].Items
	if len(got) != 4 || got[1].Literal != "edge" || got[2].Literal != "a" || got[3].Literal != "b" {
		t.Fatalf("expected flattened fact terms, got %+v", got)
	}
}

func TestDesugar_TaggedRuleWithSiblingBody(t *testing.T) {
	forms := readForms(t, `(規則 :頭 (reach ?x ?z) :本体 ((edge ?x ?y) (reach ?y ?z)))`)
	out, ds := Desugar(forms)
	if len(ds) > 0 {
		t.Fatalf("unexpected diagnostics: %v", ds)
	}
	got := out[0].Items
	if len(got) != 4 || got[0].Literal != "rule" {
		t.Fatalf("expected (rule head body1 body2), got %+v", got)
	}
}

func TestDesugar_MissingRequiredTagIsDiagnosed(t *testing.T) {
	forms := readForms(t, `(relation edge :foo (Node Node))`)
	_, ds := Desugar(forms)
	if len(ds) == 0 {
		t.Fatalf("expected a diagnostic for a missing required tag")
	}
}

func TestDesugar_OddTagListIsDiagnosed(t *testing.T) {
	forms := readForms(t, `(relation edge :引数)`)
	_, ds := Desugar(forms)
	if len(ds) == 0 {
		t.Fatalf("expected a diagnostic for an odd-length tag list")
	}
}

func TestDetectPragma(t *testing.T) {
	cases := []struct {
		src  string
		want Mode
	}{
		{"; syntax: core\n(relation edge Node Node)", ModeCore},
		{"; syntax: surface\n(関係 edge Node Node)", ModeSurface},
		{"(relation edge Node Node)", ModeAuto},
		{"; a regular comment\n(relation edge Node Node)", ModeAuto},
	}
	for _, c := range cases {
		if got := DetectPragma(c.src); got != c.want {
			t.Errorf("DetectPragma(%q) = %v, want %v", c.src, got, c.want)
		}
	}
}

func TestDesugarMode_Core_PassesColonAtomThrough(t *testing.T) {
	forms := readForms(t, `(relation edge :not-a-tag-key)`)
	out, ds := DesugarMode(forms, ModeCore)
	if len(ds) > 0 {
		t.Fatalf("ModeCore must never emit diagnostics, got: %v", ds)
	}
	got := out[0].Items
	if len(got) != 3 || got[2].Literal != ":not-a-tag-key" {
		t.Fatalf("ModeCore should pass a ':'-prefixed term through verbatim, got %+v", got)
	}
}
