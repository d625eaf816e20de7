package trace

import (
	"strings"
	"testing"

	"pix8/internal/grammar"
	"pix8/internal/peg"
)

func TestLevelFiltering(t *testing.T) {
	var sb strings.Builder
	tr := NewStreamTracer(&sb, LevelPass)

	tr.Emit(Event{Kind: KindPoint, Scope: ScopeFile, Name: "fix"})
	tr.Emit(Event{Kind: KindPoint, Scope: ScopePass, Name: "analyze"})
	tr.Emit(Event{Kind: KindPoint, Scope: ScopeRule, Name: "rule:expression"})

	out := sb.String()
	if !strings.Contains(out, "fix") || !strings.Contains(out, "analyze") {
		t.Errorf("file/pass events missing:\n%s", out)
	}
	if strings.Contains(out, "rule:expression") {
		t.Errorf("rule event leaked through LevelPass:\n%s", out)
	}
}

func TestSpanEmitsBeginEnd(t *testing.T) {
	var sb strings.Builder
	tr := NewStreamTracer(&sb, LevelFile)
	end := Span(tr, ScopeFile, "fix", "cart.lua")
	end()

	out := sb.String()
	if !strings.Contains(out, "-> fix (cart.lua)") {
		t.Errorf("missing begin event:\n%s", out)
	}
	if !strings.Contains(out, "<- fix") {
		t.Errorf("missing end event:\n%s", out)
	}
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"off", "file", "pass", "rule"} {
		lvl, err := ParseLevel(s)
		if err != nil {
			t.Errorf("ParseLevel(%q) = %v", s, err)
		}
		if lvl.String() != s {
			t.Errorf("round trip %q -> %q", s, lvl.String())
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("ParseLevel(\"verbose\") = nil, want error")
	}
}

func TestRuleObserverBridgesParserEvents(t *testing.T) {
	var sb strings.Builder
	tr := NewStreamTracer(&sb, LevelRule)
	obs := RuleObserver(tr)
	if obs == nil {
		t.Fatal("RuleObserver() = nil at LevelRule")
	}

	if err := grammar.Lua().Parse([]byte("x = 1"), peg.Options{Trace: obs}); err != nil {
		t.Fatalf("Parse() = %v", err)
	}
	if !strings.Contains(sb.String(), "rule:statement") {
		t.Errorf("no statement rule events traced:\n%.400s", sb.String())
	}

	if RuleObserver(NewStreamTracer(&sb, LevelPass)) != nil {
		t.Error("RuleObserver() != nil below LevelRule")
	}
	if RuleObserver(Nop) != nil {
		t.Error("RuleObserver(Nop) != nil")
	}
}
