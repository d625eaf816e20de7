package grammar

import (
	"sync"

	"pix8/internal/peg"
)

// Rule names that the analysis layer attaches observers to.
const (
	RuleNotEqual     = "operator_notequal"
	RuleReassignment = "reassignment"
	RuleShortIf      = "short_if_statement"
)

var (
	once     sync.Once
	language *peg.Grammar
)

// Lua returns the dialect grammar: Lua 5.3 plus the console shorthand
// (`!=`, compound assignment, single-line if). The grammar is built once
// and shared; it carries no per-parse state.
func Lua() *peg.Grammar {
	once.Do(func() {
		language = build()
		if err := language.Compile(); err != nil {
			panic(err)
		}
	})
	return language
}

// build assembles the grammar.
//
// The PEG combines lexer and parser: comments and token boundaries are
// part of the same rule set as statements and expressions. Most rules
// follow the convention of handling only internal padding (spaces and
// comments inside the rule), leaving boundary padding to callers, which
// keeps the rules composable.
//
// Operator precedence and associativity live in the rule structure:
// thirteen expression levels from `or` (loosest) up to exponentiation
// and unary. Left-associative levels are written as "unit (op unit)*"
// to avoid left recursion; `^` and `..` are right-associative via
// guarded self-reference.
//
// The var / function-call / parenthesized-expression ambiguity is
// resolved without re-parsing by merging the three into one suffixed
// production: a head (name or bracketed expression) followed by any mix
// of index/field tails and call tails. Only the last tail decides
// between variable and call.
func build() *peg.Grammar {
	g := peg.NewGrammar()
	r := g.Ref

	seps := func() *peg.Rule { return r("seps") }
	pad := func(ru *peg.Rule) *peg.Rule {
		return peg.Seq(seps(), ru, seps())
	}
	padOpt := func(ru *peg.Rule) *peg.Rule {
		return peg.Seq(seps(), peg.Opt(ru, seps()))
	}
	list := func(item, sep *peg.Rule) *peg.Rule {
		return peg.Seq(item, peg.Star(pad(sep), item))
	}
	listMust := func(item, sep *peg.Rule) *peg.Rule {
		return peg.Seq(item, peg.Star(peg.IfMust(pad(sep), item)))
	}
	// opOne matches ch when not followed by any byte of not. The
	// lookahead requires a following byte, like the reference.
	opOne := func(ch byte, not string) *peg.Rule {
		return peg.Seq(peg.One(string(ch)), peg.At(peg.NotOne(not)))
	}

	// lexical layer
	g.Define("short_comment", peg.Until(peg.EOLF()))
	g.Define("long_string", peg.LongBracket())
	g.Define("comment", peg.Str("--"), peg.Sor(r("long_string"), r("short_comment")))
	g.Define("sep", peg.Sor(peg.Space(), r("comment")))
	g.Define("seps", peg.Star(r("sep")))

	// keywords: a keyword only matches when no identifier byte follows,
	// so `endfoo` stays one name instead of `end`+`foo`
	for _, kw := range keywordList {
		g.Define("key_"+kw, peg.Str(kw), peg.NotAt(peg.IdentOther()))
	}
	// `elseif` has to come before `else` so the choice cannot stop at
	// the shorter prefix
	kwAlts := make([]*peg.Rule, 0, len(keywordMatchOrder))
	for _, kw := range keywordMatchOrder {
		kwAlts = append(kwAlts, peg.Str(kw))
	}
	g.Define("keyword", peg.Sor(kwAlts...), peg.NotAt(peg.IdentOther()))

	g.Define("three_dots", peg.Str("..."))
	g.Define("name", peg.NotAt(r("keyword")), peg.Identifier())

	// short string escapes
	g.Define("esc_single", peg.One("abfnrtv\\\"'0\n"))
	g.Define("esc_spaces", peg.One("z"), peg.Star(peg.Space()))
	g.Define("esc_hexbyte", peg.IfMust(peg.One("x"), peg.XDigit(), peg.XDigit()))
	g.Define("esc_decbyte", peg.IfMust(peg.Digit(), peg.RepOpt(2, peg.Digit())))
	g.Define("esc_unichar", peg.IfMust(peg.One("u"), peg.One("{"), peg.Plus(peg.XDigit()), peg.One("}")))
	g.Define("escaped",
		peg.IfMust(peg.One("\\"),
			peg.Sor(r("esc_hexbyte"), r("esc_decbyte"), r("esc_unichar"), r("esc_single"), r("esc_spaces"))))
	g.Define("regular", peg.NotOne("\r\n"))
	g.Define("character", peg.Sor(r("escaped"), r("regular")))

	shortString := func(q byte) *peg.Rule {
		quote := peg.One(string(q))
		return peg.IfMust(quote, peg.Until(peg.One(string(q)), r("character")))
	}
	g.Define("short_string_double", shortString('"'))
	g.Define("short_string_single", shortString('\''))
	g.Define("literal_string", peg.Sor(r("short_string_double"), r("short_string_single"), r("long_string")))

	// numerals: "digits[.digits]" or ".digits", optional exponent
	exponent := func(letters string) *peg.Rule {
		return peg.Opt(peg.IfMust(peg.One(letters), peg.Opt(peg.One("+-")), peg.Plus(peg.Digit())))
	}
	numeral := func(digit func() *peg.Rule, letters string) *peg.Rule {
		two := peg.Seq(peg.Plus(digit()), peg.Opt(peg.One("."), peg.Star(digit())), exponent(letters))
		three := peg.Seq(peg.IfMust(peg.One("."), peg.Plus(digit())), exponent(letters))
		return peg.Sor(two, three)
	}
	g.Define("decimal", numeral(peg.Digit, "eE"))
	g.Define("hexadecimal", peg.IfMust(peg.IStr("0x"), numeral(peg.XDigit, "pP")))
	g.Define("numeral", peg.Sor(r("hexadecimal"), r("decimal")))

	g.Define("label_statement", peg.IfMust(peg.Two(':'), seps(), r("name"), seps(), peg.Two(':')))
	g.Define("goto_statement", peg.IfMust(r("key_goto"), seps(), r("name")))

	g.Define("name_list", list(r("name"), peg.One(",")))
	g.Define("name_list_must", listMust(r("name"), peg.One(",")))
	g.Define("expr_list_must", listMust(r("expression"), peg.One(",")))

	g.Define("statement_return",
		padOpt(r("expr_list_must")),
		peg.Opt(peg.One(";"), seps()))

	// a block: statements until the caller-supplied terminator, with an
	// optional trailing return directly before it
	statementList := func(suffix string, term func() *peg.Rule) *peg.Rule {
		return g.Define("statement_list_"+suffix,
			seps(),
			peg.Until(
				peg.Sor(term(), peg.IfMust(r("key_return"), r("statement_return"), term())),
				r("statement"), seps()))
	}
	statementList("end", func() *peg.Rule { return r("key_end") })
	statementList("until", func() *peg.Rule { return r("key_until") })
	statementList("elseif", func() *peg.Rule { return r("at_elseif_else_end") })
	statementList("eof", peg.EOF)

	g.Define("table_field_one",
		peg.IfMust(peg.One("["), seps(), r("expression"), seps(), peg.One("]"),
			seps(), peg.One("="), seps(), r("expression")))
	g.Define("table_field_two",
		peg.IfMust(peg.Seq(r("name"), seps(), peg.One("=")), seps(), r("expression")))
	g.Define("table_field", peg.Sor(r("table_field_one"), r("table_field_two"), r("expression")))
	g.Define("table_field_list",
		list(r("table_field"), peg.One(",;")),
		peg.Opt(seps(), peg.One(",;")))
	g.Define("table_constructor",
		peg.IfMust(peg.One("{"), padOpt(r("table_field_list")), peg.One("}")))

	g.Define("parameter_list_one",
		r("name_list"),
		peg.Opt(peg.IfMust(pad(peg.One(",")), r("three_dots"))))
	g.Define("parameter_list", peg.Sor(r("three_dots"), r("parameter_list_one")))

	g.Define("function_body",
		peg.One("("), padOpt(r("parameter_list")), peg.One(")"),
		seps(), r("statement_list_end"))
	g.Define("function_literal", peg.IfMust(r("key_function"), seps(), r("function_body")))

	g.Define("bracket_expr",
		peg.IfMust(peg.One("("), seps(), r("expression"), seps(), peg.One(")")))

	g.Define("function_args_one",
		peg.IfMust(peg.One("("), padOpt(r("expr_list_must")), peg.One(")")))
	g.Define("function_args",
		peg.Sor(r("function_args_one"), r("table_constructor"), r("literal_string")))

	g.Define("variable_tail_one",
		peg.IfMust(peg.One("["), seps(), r("expression"), seps(), peg.One("]")))
	g.Define("variable_tail_two",
		peg.IfMust(peg.Seq(peg.NotAt(peg.Two('.')), peg.One(".")), seps(), r("name")))
	g.Define("variable_tail", peg.Sor(r("variable_tail_one"), r("variable_tail_two")))

	g.Define("function_call_tail_one",
		peg.IfMust(peg.Seq(peg.NotAt(peg.Two(':')), peg.One(":")),
			seps(), r("name"), seps(), r("function_args")))
	g.Define("function_call_tail", peg.Sor(r("function_args"), r("function_call_tail_one")))

	g.Define("variable_head",
		peg.Sor(r("name"), peg.Seq(r("bracket_expr"), seps(), r("variable_tail"))))
	g.Define("function_call_head", peg.Sor(r("name"), r("bracket_expr")))

	g.Define("variable",
		r("variable_head"),
		peg.Star(peg.Star(seps(), r("function_call_tail")), seps(), r("variable_tail")))
	g.Define("function_call",
		r("function_call_head"),
		peg.Plus(peg.Until(peg.Seq(seps(), r("function_call_tail")), seps(), r("variable_tail"))))

	// expression levels; left_assoc repeats "(op unit)" with the unit
	// committed once the operator is consumed
	leftAssoc := func(name string, unit, op *peg.Rule) *peg.Rule {
		return g.Define(name, unit, seps(), peg.Star(peg.IfMust(op, seps(), unit, seps())))
	}

	g.Define("unary_operators",
		peg.Sor(peg.One("-"), peg.One("#"), opOne('~', "="), r("key_not")))

	g.Define("expr_thirteen",
		peg.Sor(r("bracket_expr"), r("name")),
		peg.Star(seps(), peg.Sor(r("function_call_tail"), r("variable_tail"))))
	g.Define("expr_twelve",
		peg.Sor(r("key_nil"), r("key_true"), r("key_false"), r("three_dots"),
			r("numeral"), r("literal_string"), r("function_literal"),
			r("expr_thirteen"), r("table_constructor")))
	// exponentiation is right-associative and binds tighter than unary
	// on the left, looser on the right
	g.Define("expr_eleven",
		r("expr_twelve"), seps(),
		peg.Opt(peg.One("^"), seps(), r("expr_ten"), seps()))
	g.Define("unary_apply",
		peg.IfMust(r("unary_operators"), seps(), r("expr_ten"), seps()))
	g.Define("expr_ten", peg.Sor(r("unary_apply"), r("expr_eleven")))

	g.Define("operators_nine",
		peg.Sor(peg.Two('/'), peg.One("/"), peg.One("*"), peg.One("%")))
	leftAssoc("expr_nine", r("expr_ten"), r("operators_nine"))
	g.Define("operators_eight", peg.Sor(peg.One("+"), peg.One("-")))
	leftAssoc("expr_eight", r("expr_nine"), r("operators_eight"))
	// `..` is right-associative
	g.Define("operator_concat", peg.Str(".."), peg.At(peg.NotOne(".")))
	g.Define("expr_seven",
		r("expr_eight"), seps(),
		peg.Opt(peg.IfMust(r("operator_concat"), seps(), r("expr_seven"))))
	g.Define("operators_six", peg.Sor(peg.Two('<'), peg.Two('>')))
	leftAssoc("expr_six", r("expr_seven"), r("operators_six"))
	leftAssoc("expr_five", r("expr_six"), peg.One("&"))
	leftAssoc("expr_four", r("expr_five"), opOne('~', "="))
	leftAssoc("expr_three", r("expr_four"), peg.One("|"))
	// `!=` is accepted everywhere `~=` is, at the same precedence
	g.Define(RuleNotEqual, peg.Str("!="))
	g.Define("operators_two",
		peg.Sor(peg.Two('='), peg.Str("<="), peg.Str(">="),
			opOne('<', "<"), opOne('>', ">"),
			r(RuleNotEqual), peg.Str("~=")))
	leftAssoc("expr_two", r("expr_three"), r("operators_two"))
	leftAssoc("expr_one", r("expr_two"), r("key_and"))
	leftAssoc("expression", r("expr_one"), r("key_or"))

	g.Define("do_statement", peg.IfMust(r("key_do"), r("statement_list_end")))
	g.Define("while_statement",
		peg.IfMust(r("key_while"), seps(), r("expression"), seps(), r("key_do"), r("statement_list_end")))
	g.Define("repeat_statement",
		peg.IfMust(r("key_repeat"), r("statement_list_until"), seps(), r("expression")))

	g.Define("at_elseif_else_end",
		peg.Sor(peg.At(r("key_elseif")), peg.At(r("key_else")), peg.At(r("key_end"))))
	g.Define("elseif_statement",
		peg.IfMust(r("key_elseif"), seps(), r("expression"), seps(), r("key_then"),
			r("statement_list_elseif")))
	g.Define("else_statement", peg.IfMust(r("key_else"), r("statement_list_end")))
	g.Define("if_statement",
		peg.IfMust(r("key_if"), seps(), r("expression"), seps(), r("key_then"),
			r("statement_list_elseif"), seps(),
			peg.Until(peg.Sor(r("else_statement"), r("key_end")), r("elseif_statement"), seps())))

	// single-line `if (cond) stmt...` without then/end: recognized so an
	// observer can report it, terminated at end of line or before `end`.
	// A `then` anywhere on the line means this is a standard if whose
	// condition happens to start parenthesized, so the scan gives up and
	// the standard rule parses it instead. There is no safe general
	// rewrite for this form, so it is only ever detected, never fixed.
	g.Define(RuleShortIf,
		r("key_if"), seps(), r("bracket_expr"), seps(),
		peg.NotAt(r("key_then")),
		peg.Until(peg.At(peg.Sor(peg.EOLF(), r("key_end"))),
			peg.NotAt(r("key_then")), peg.Any()))

	g.Define("for_statement_one",
		r("name"), seps(), peg.One("="), seps(), r("expression"), seps(),
		peg.One(","), seps(), r("expression"),
		padOpt(peg.IfMust(peg.One(","), seps(), r("expression"))),
		r("key_do"), r("statement_list_end"))
	g.Define("for_statement_two",
		r("name_list_must"), seps(), r("key_in"), seps(), r("expr_list_must"), seps(),
		r("key_do"), r("statement_list_end"))
	g.Define("for_statement",
		peg.IfMust(r("key_for"), seps(), peg.Sor(r("for_statement_one"), r("for_statement_two"))))

	// compound assignment `var op= exprlist`, lowered later by the fixer
	g.Define("operators_reassign",
		peg.Sor(peg.Str("+="), peg.Str("-="), peg.Str("*="), peg.Str("/="), peg.Str("%=")))
	g.Define(RuleReassignment,
		r("variable"), seps(), r("operators_reassign"), seps(), r("expr_list_must"))

	g.Define("assignment_variable_list", listMust(r("variable"), peg.One(",")))
	g.Define("assignments_one", peg.IfMust(peg.One("="), seps(), r("expr_list_must")))
	g.Define("assignments", r("assignment_variable_list"), seps(), r("assignments_one"))

	g.Define("function_name",
		list(r("name"), peg.One(".")), seps(),
		peg.Opt(peg.IfMust(peg.One(":"), seps(), r("name"), seps())))
	g.Define("function_definition",
		peg.IfMust(r("key_function"), seps(), r("function_name"), r("function_body")))

	g.Define("local_function", peg.IfMust(r("key_function"), seps(), r("name"), seps(), r("function_body")))
	g.Define("local_variables", peg.IfMust(r("name_list_must"), seps(), peg.Opt(r("assignments_one"))))
	g.Define("local_statement",
		peg.IfMust(r("key_local"), seps(), peg.Sor(r("local_function"), r("local_variables"))))

	g.Define("semicolon", peg.One(";"))
	g.Define("statement",
		peg.Sor(
			r("semicolon"),
			r("assignments"),
			r(RuleReassignment),
			r("function_call"),
			r("label_statement"),
			r("key_break"),
			r("goto_statement"),
			r("do_statement"),
			r("while_statement"),
			r("repeat_statement"),
			r(RuleShortIf),
			r("if_statement"),
			r("for_statement"),
			r("function_definition"),
			r("local_statement")))

	g.Define("interpreter", peg.One("#"), peg.Until(peg.EOLF()))
	g.Define("grammar", peg.Must(peg.Opt(r("interpreter")), r("statement_list_eof")))
	g.SetRoot("grammar")

	return g
}
