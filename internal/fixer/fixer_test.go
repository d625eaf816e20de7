package fixer

import (
	"errors"
	"strings"
	"testing"

	"pix8/internal/diag"
	"pix8/internal/source"
	"pix8/internal/trace"
)

func mustFix(t *testing.T, src string, opts ...Option) string {
	t.Helper()
	out, err := New(src, opts...).Fix()
	if err != nil {
		t.Fatalf("Fix(%q) = %v", src, err)
	}
	return out
}

func TestFixIdentityOnStandardSyntax(t *testing.T) {
	cases := []string{
		"",
		"x = 1",
		"local a, b = 1, 2\nreturn a + b",
		"if a ~= b then print(a) end",
		"for i = 1, 10 do\n  t[i] = i * i\nend\n",
		"function f(...)\n  return select('#', ...)\nend",
		"-- comment only\n",
		"s = [[long\nstring]]\nt = { x = 1; 'y' }",
	}
	for _, src := range cases {
		if got := mustFix(t, src); got != src {
			t.Errorf("Fix(%q) = %q, want input unchanged", src, got)
		}
	}
}

func TestFixLowersNotEqual(t *testing.T) {
	cases := []struct{ src, want string }{
		{"if a != b then c = 1 end", "if a ~= b then c = 1 end"},
		{"x = a != b", "x = a ~= b"},
		{"while a != b and c != d do e = 1 end", "while a ~= b and c ~= d do e = 1 end"},
		{"x = a != b\ny = c != d", "x = a ~= b\ny = c ~= d"},
	}
	for _, tc := range cases {
		if got := mustFix(t, tc.src); got != tc.want {
			t.Errorf("Fix(%q) = %q, want %q", tc.src, got, tc.want)
		}
	}
}

func TestFixLowersCompoundAssignment(t *testing.T) {
	cases := []struct{ src, want string }{
		{"a+=b", "a=a+(b)"},
		{"a-=b", "a=a-(b)"},
		{"a*=b", "a=a*(b)"},
		{"a/=b+c", "a=a/(b+c)"},
		{"a%=2", "a=a%(2)"},
		{"t[i]+=f(x)", "t[i]=t[i]+(f(x))"},
		{"a+=1\nb-=2", "a=a+(1)\nb=b-(2)"},
	}
	for _, tc := range cases {
		if got := mustFix(t, tc.src); got != tc.want {
			t.Errorf("Fix(%q) = %q, want %q", tc.src, got, tc.want)
		}
	}
}

func TestFixLeavesStringsAndCommentsAlone(t *testing.T) {
	cases := []string{
		"s = \"a != b\"",
		"s = 'x += 1'",
		"s = [[a != b\nc += d]]",
		"-- a != b and c += d\nx = 1",
		"--[[ a != b ]]\nx = 1",
	}
	for _, src := range cases {
		if got := mustFix(t, src); got != src {
			t.Errorf("Fix(%q) = %q, want input unchanged", src, got)
		}
	}
}

func TestFixPreservesLineCount(t *testing.T) {
	src := "a+=1\nif x != y then\n  b-=2\nend\nprint(a, b)\n"
	got := mustFix(t, src)
	if strings.Count(got, "\n") != strings.Count(src, "\n") {
		t.Fatalf("line count changed: %q -> %q", src, got)
	}
	for i, line := range strings.Split(src, "\n") {
		if !strings.ContainsAny(line, "!+-*/%") {
			if strings.Split(got, "\n")[i] != line {
				t.Errorf("untouched line %d changed: %q", i+1, strings.Split(got, "\n")[i])
			}
		}
	}
}

// A parenthesized condition makes the single-line-if alternative match
// the condition, record any `!=` inside it, and then back out when
// `then` shows up. The abandoned match must not survive as a second
// occurrence.
func TestFixReconcilesBacktrackedNotEqual(t *testing.T) {
	f := New("if (a != b) then c = 1 end")
	out, err := f.Fix()
	if err != nil {
		t.Fatalf("Fix() = %v", err)
	}
	if want := "if (a ~= b) then c = 1 end"; out != want {
		t.Errorf("Fix() = %q, want %q", out, want)
	}
	if len(f.notEquals) != 1 {
		t.Errorf("notEquals = %v, want exactly one occurrence", f.notEquals)
	}
}

func TestFixReportsShortIf(t *testing.T) {
	bag := diag.NewBag(16)
	src := "if (x > 5) print(x)"
	got := mustFix(t, src, WithReporter(diag.BagReporter{Bag: bag}))
	if got != src {
		t.Errorf("Fix(%q) = %q, want input unchanged", src, got)
	}
	var found bool
	for _, d := range bag.Items() {
		if d.Code == diag.SynShortIf {
			found = true
			if d.Severity != diag.SevWarning {
				t.Errorf("short-if severity = %v, want warning", d.Severity)
			}
			if !strings.Contains(d.Message, "print(x)") {
				t.Errorf("short-if message %q does not carry the offending text", d.Message)
			}
		}
	}
	if !found {
		t.Fatal("no SynShortIf diagnostic reported")
	}
}

func TestFixKeepsParenthesizedIfCondition(t *testing.T) {
	// a condition that merely starts with a parenthesized sub-expression
	// is a plain if statement, not the single-line shorthand
	cases := []string{
		"if (x) and y then z() end",
		"if (a == 1) or b then c = 2 end",
	}
	for _, src := range cases {
		bag := diag.NewBag(16)
		got := mustFix(t, src, WithReporter(diag.BagReporter{Bag: bag}))
		if got != src {
			t.Errorf("Fix(%q) = %q, want input unchanged", src, got)
		}
		for _, d := range bag.Items() {
			if d.Code == diag.SynShortIf {
				t.Errorf("Fix(%q) reported SynShortIf on a standard if", src)
			}
		}
	}
}

func TestFixWarningsInGoldenFormat(t *testing.T) {
	set := source.NewFileSetWithBase(".")
	bag := diag.NewBag(16)
	src := "if (x > 5) print(x)"
	f := New(src, WithName("cart.lua"), WithFileSet(set),
		WithReporter(diag.BagReporter{Bag: bag}))
	if _, err := f.Fix(); err != nil {
		t.Fatalf("Fix(%q) = %v", src, err)
	}

	var warnings []diag.Diagnostic
	for _, d := range bag.Items() {
		if d.Severity >= diag.SevWarning {
			warnings = append(warnings, d)
		}
	}
	got := diag.FormatShortDiagnostics(warnings, set, false)
	want := "warning SYN2002 cart.lua:1:1 unsupported single-line if at 1:1: if (x > 5) print(x)"
	if got != want {
		t.Errorf("golden mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestFixBootShimPatch(t *testing.T) {
	src := "x = 1\nif(_update60)_update=function() _update60() end"
	f := New(src)
	if !f.Patched() {
		t.Fatal("Patched() = false, want boot shim applied")
	}
	want := "x = 1\n\nif(_update60)then _update=function() _update60() end end"
	if f.Code() != want {
		t.Fatalf("Code() = %q, want %q", f.Code(), want)
	}
	out, err := f.Fix()
	if err != nil {
		t.Fatalf("Fix() = %v", err)
	}
	if out != want {
		t.Errorf("Fix() = %q, want patched text unchanged", out)
	}
}

func TestFixBootShimNotPatchedTwice(t *testing.T) {
	f := New("if(_update60)then _update=function() end end")
	if f.Patched() {
		t.Error("Patched() = true on already valid shim")
	}
}

func TestFixTracesRules(t *testing.T) {
	var sb strings.Builder
	mustFix(t, "a += 1", WithTracer(trace.NewStreamTracer(&sb, trace.LevelRule)))
	if !strings.Contains(sb.String(), "rule:") {
		t.Error("no rule events emitted during the analysis parse")
	}

	// below rule level the parse must not pay for tracing
	sb.Reset()
	mustFix(t, "a += 1", WithTracer(trace.NewStreamTracer(&sb, trace.LevelPass)))
	if strings.Contains(sb.String(), "rule:") {
		t.Errorf("rule events leaked through LevelPass:\n%s", sb.String())
	}
}

func TestFixSyntaxError(t *testing.T) {
	f := New("x = 1\ny = ", WithName("cart.lua"))
	_, err := f.Fix()
	var serr *SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("Fix() = %v, want *SyntaxError", err)
	}
	if serr.Line != 2 {
		t.Errorf("Line = %d, want 2", serr.Line)
	}
	if serr.Fragment != "y = " {
		t.Errorf("Fragment = %q, want offending line", serr.Fragment)
	}
	if serr.Name != "cart.lua" {
		t.Errorf("Name = %q, want cart.lua", serr.Name)
	}
	if !strings.Contains(serr.Error(), "cart.lua:2:") {
		t.Errorf("Error() = %q, want file:line prefix", serr.Error())
	}
}

func TestFixSyntaxErrorOnUnmatchedStatement(t *testing.T) {
	_, err := New("x = 1\n@@@", WithName("cart.lua")).Fix()
	var serr *SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("Fix() = %v, want *SyntaxError", err)
	}
	if serr.Line != 2 {
		t.Errorf("Line = %d, want 2", serr.Line)
	}
	if serr.Fragment != "@@@" {
		t.Errorf("Fragment = %q, want offending line", serr.Fragment)
	}
}

func TestFixIsRepeatable(t *testing.T) {
	f := New("a+=1\nx = a != 2")
	first, err := f.Fix()
	if err != nil {
		t.Fatalf("first Fix() = %v", err)
	}
	second, err := f.Fix()
	if err != nil {
		t.Fatalf("second Fix() = %v", err)
	}
	if first != second {
		t.Errorf("Fix() not repeatable: %q vs %q", first, second)
	}
}

func TestFixedOutputIsStandardSyntax(t *testing.T) {
	src := "a+=1\nif a != 2 then a*=3 end\n"
	out := mustFix(t, src)
	if strings.Contains(out, "!=") {
		t.Errorf("output still contains '!=': %q", out)
	}
	for _, op := range []string{"+=", "-=", "*=", "/=", "%="} {
		if strings.Contains(out, op) {
			t.Errorf("output still contains %q: %q", op, out)
		}
	}
	// the lowered text has to parse with no occurrences recorded
	f := New(out)
	again, err := f.Fix()
	if err != nil {
		t.Fatalf("Fix(fixed output) = %v", err)
	}
	if again != out {
		t.Errorf("second pass changed the text: %q -> %q", out, again)
	}
}
