package grammar

import (
	"sort"
	"testing"

	"pix8/internal/peg"
)

func TestGrammarSelfCheck(t *testing.T) {
	if err := Lua().Analyze(); err != nil {
		t.Fatalf("Analyze() = %v, want nil", err)
	}
}

func TestGrammarAccepts(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"assignment", "x = 1"},
		{"multi assignment", "a, b = 1, 2"},
		{"local", "local x"},
		{"local list", "local a, b = f(), 2"},
		{"local function", "local function f(a, ...) return a end"},
		{"call statement", "print(\"hello\")"},
		{"method chain", "a:b(1):c{2}:d\"s\""},
		{"index chain", "a.b[1].c = a[b][c]"},
		{"call then index", "f(1)[2].g = 3"},
		{"semicolons", ";;x = 1;;"},
		{"if", "if x then y = 1 end"},
		{"if chain", "if a then x = 1 elseif b then x = 2 elseif c then x = 3 else x = 4 end"},
		{"while", "while x > 0 do x = x - 1 end"},
		{"repeat", "repeat x = x + 1 until x > 10"},
		{"numeric for", "for i = 1, 10, 2 do print(i) end"},
		{"generic for", "for k, v in pairs(t) do print(k, v) end"},
		{"do block", "do local x = 1 end"},
		{"goto", "::top:: goto top"},
		{"break", "while true do break end"},
		{"function definition", "function a.b:c(x, y) return x + y end"},
		{"function literal", "f = function(...) return ... end"},
		{"return empty", "return"},
		{"return list", "return 1, 2"},
		{"return semicolon", "return f(x);"},
		{"table", "t = {1, 2; x = 3, [4] = 5,}"},
		{"nested table", "t = {a = {b = {}}}"},
		{"string escapes", "s = \"a\\nb\\x41\\65\\u{1F600}\\\\\""},
		{"string z escape", "s = \"a\\z\n  b\""},
		{"single quotes", "s = 'it\\'s'"},
		{"long string", "s = [[line\nline]]"},
		{"long string level", "s = [==[ ]] ]==]"},
		{"short comment", "-- a comment\nx = 1"},
		{"long comment", "--[==[ multi\nline ]==]\nx = 1"},
		{"numerals", "x = 0x1f + 0X2.8p-2 + 1e5 + 1E-5 + .5 + 3. + 42"},
		{"operators", "x = 1 + 2 * 3 ^ -4 % 5 // 6 / 7 - #t .. 'y'"},
		{"bitwise", "x = 1 << 2 | 3 & 4 ~ 5 >> 6"},
		{"comparisons", "b = a < b or a > b or a <= b or a >= b or a == b or a ~= b"},
		{"logical", "b = not a and b or c"},
		{"varargs expr", "f = function(...) local t = {...} end"},
		{"interpreter line", "#!/usr/bin/env lua\nprint(1)"},
		{"keyword prefix names", "endx = 1 iff = 2 localvar = 3"},
		{"not equal shorthand", "if a != b then c = 1 end"},
		{"compound add", "a += 1"},
		{"compound all", "a -= 1 b *= 2 c /= 3 d %= 4"},
		{"compound indexed", "t[i] += f(x)"},
		{"short if", "if (x > 5) print(x)"},
		{"short if before end", "for i = 1, 9 do if (i > 5) print(i) end"},
		{"parenthesized condition", "if (x) and y then z() end"},
		{"parenthesized comparison", "if (a == 1) or b then c = 2 end"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := Lua().Parse([]byte(tc.src), peg.Options{}); err != nil {
				t.Fatalf("Parse(%q) = %v, want nil", tc.src, err)
			}
		})
	}
}

func TestGrammarRejects(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"dangling assign", "x = "},
		{"missing then", "if x y = 1 end"},
		{"missing end", "if x then y = 1"},
		{"stray end", "end"},
		{"bare keyword", "function"},
		{"local keyword name", "local end = 1"},
		{"unterminated string", "s = \"abc"},
		{"newline in string", "s = \"ab\ncd\""},
		{"bad escape", "s = \"\\q\""},
		{"unterminated long string", "s = [[abc"},
		{"long bracket level mismatch", "s = [==[abc]=]"},
		{"exponent without digits", "x = 1e"},
		{"hex without digits", "x = 0x"},
		{"dangling compound", "a += "},
		{"expression statement", "1 + 2"},
		{"unbalanced paren", "x = (1 + 2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := Lua().Parse([]byte(tc.src), peg.Options{}); err == nil {
				t.Fatalf("Parse(%q) = nil, want error", tc.src)
			}
		})
	}
}

func TestParseErrorCarriesOffset(t *testing.T) {
	err := Lua().Parse([]byte("x = 1\ny = "), peg.Options{})
	perr, ok := err.(*peg.ParseError)
	if !ok {
		t.Fatalf("Parse() = %T, want *peg.ParseError", err)
	}
	if perr.Offset < 6 {
		t.Errorf("Offset = %d, want inside the second line", perr.Offset)
	}
}

func TestParseErrorOffsetWhenNoStatementMatches(t *testing.T) {
	// nothing commits on the bad line, so only farthest-attempt
	// tracking keeps the error off line one
	err := Lua().Parse([]byte("x = 1\n@@@"), peg.Options{})
	perr, ok := err.(*peg.ParseError)
	if !ok {
		t.Fatalf("Parse() = %T, want *peg.ParseError", err)
	}
	if perr.Offset < 6 {
		t.Errorf("Offset = %d, want inside the second line", perr.Offset)
	}
}

func TestObserversFireOnShorthand(t *testing.T) {
	var notEquals, reassigns, shortIfs []peg.Capture
	opts := peg.Options{Actions: map[string]peg.Action{
		RuleNotEqual:     func(in peg.Capture) { notEquals = append(notEquals, in) },
		RuleReassignment: func(in peg.Capture) { reassigns = append(reassigns, in) },
		RuleShortIf:      func(in peg.Capture) { shortIfs = append(shortIfs, in) },
	}}
	src := "if a != b then x += 1 end\nif (y > 0) print(y)"
	if err := Lua().Parse([]byte(src), opts); err != nil {
		t.Fatalf("Parse() = %v", err)
	}
	if len(notEquals) == 0 || src[notEquals[len(notEquals)-1].Start] != '!' {
		t.Errorf("not-equal captures = %v, want one pointing at '!'", notEquals)
	}
	if len(reassigns) != 1 {
		t.Fatalf("reassignment captures = %v, want exactly one", reassigns)
	}
	if got := src[reassigns[0].Start:reassigns[0].End]; got[0] != 'x' {
		t.Errorf("reassignment span = %q, want to start at the variable", got)
	}
	if len(shortIfs) != 1 {
		t.Errorf("short-if captures = %v, want exactly one", shortIfs)
	}
}

func TestKeywords(t *testing.T) {
	kws := Keywords()
	if len(kws) != 22 {
		t.Fatalf("len(Keywords()) = %d, want 22", len(kws))
	}
	if !sort.StringsAreSorted(kws) {
		t.Errorf("Keywords() not sorted: %v", kws)
	}
	for _, kw := range []string{"and", "elseif", "or", "while"} {
		if !IsKeyword(kw) {
			t.Errorf("IsKeyword(%q) = false", kw)
		}
	}
	if IsKeyword("print") {
		t.Error("IsKeyword(\"print\") = true")
	}
	// mutating the copy must not affect the grammar
	kws[0] = "mutated"
	if !IsKeyword("and") {
		t.Error("Keywords() copy leaked into the keyword set")
	}
}
