package peg

import (
	"errors"
	"strings"
	"testing"
)

func TestAnalyzeDetectsLeftRecursion(t *testing.T) {
	g := NewGrammar()
	g.Define("expr", Sor(Seq(g.Ref("expr"), Str("+"), Digit()), Digit()))
	g.SetRoot("expr")

	err := g.Analyze()
	var derr *DefectError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DefectError, got %v", err)
	}
	found := false
	for _, d := range derr.Defects {
		if d.Kind == DefectLeftRecursion && d.Rule == "expr" {
			found = true
		}
	}
	if !found {
		t.Fatalf("left recursion on 'expr' not reported: %v", derr.Defects)
	}
}

func TestAnalyzeDetectsIndirectLeftRecursion(t *testing.T) {
	g := NewGrammar()
	g.Define("a", g.Ref("b"))
	g.Define("b", Sor(g.Ref("a"), Digit()))
	g.SetRoot("a")

	var derr *DefectError
	if !errors.As(g.Analyze(), &derr) {
		t.Fatal("expected defect for indirect left recursion")
	}
}

func TestAnalyzeDetectsNullableLoop(t *testing.T) {
	g := NewGrammar()
	g.Define("spin", Star(Opt(Str("x"))))
	g.SetRoot("spin")

	err := g.Analyze()
	var derr *DefectError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DefectError, got %v", err)
	}
	if !strings.Contains(err.Error(), "spin") {
		t.Fatalf("defect should name the rule: %v", err)
	}
}

func TestAnalyzeAcceptsGuardedRecursion(t *testing.T) {
	// recursion behind a consumed token is fine
	g := NewGrammar()
	g.Define("expr", Sor(Seq(Str("("), g.Ref("expr"), Str(")")), Plus(Digit())))
	g.SetRoot("expr")
	if err := g.Analyze(); err != nil {
		t.Fatalf("guarded recursion flagged: %v", err)
	}
}

func TestAnalyzeAcceptsRightRecursionBehindOperator(t *testing.T) {
	g := NewGrammar()
	g.Define("unit", Plus(Digit()))
	g.Define("pow", g.Ref("unit"), Opt(IfMust(Str("^"), g.Ref("pow"))))
	g.SetRoot("pow")
	if err := g.Analyze(); err != nil {
		t.Fatalf("right recursion flagged: %v", err)
	}
}

func TestCompileReportsUnresolvedRefs(t *testing.T) {
	g := NewGrammar()
	g.Define("top", g.Ref("ghost"))
	g.SetRoot("top")
	err := g.Compile()
	if err == nil || !strings.Contains(err.Error(), "ghost") {
		t.Fatalf("expected unresolved reference error, got %v", err)
	}
}

func TestAnalyzeIsInputIndependent(t *testing.T) {
	g := NewGrammar()
	g.Define("top", Star(Str("a")), EOF())
	g.SetRoot("top")
	if err := g.Analyze(); err != nil {
		t.Fatalf("clean grammar flagged: %v", err)
	}
	// analyzing twice is fine
	if err := g.Analyze(); err != nil {
		t.Fatalf("second analyze failed: %v", err)
	}
}
