package peg

import "strings"

// Op tags the production kind of a Rule. Rules are one tagged variant
// rather than a type per production, so the whole grammar is a plain
// object graph that the analyzer and the matcher can both walk.
type Op uint8

const (
	OpSeq Op = iota
	OpSor
	OpStar
	OpPlus
	OpOpt
	OpAt     // zero-width and-predicate
	OpNotAt  // zero-width not-predicate
	OpMust   // committed: child failure is fatal for the whole parse
	OpUntil  // kids[0] terminator, kids[1:] body (empty body = any byte)
	OpRepOpt // up to N repetitions of kids[0]
	OpOne    // one byte out of set
	OpNotOne // one byte not in set
	OpStr    // literal
	OpIStr   // case-insensitive literal
	OpClass  // one byte matching a predicate
	OpAny    // any single byte
	OpEOF
	OpEOLF        // end of line or end of file
	OpRef         // named reference, resolved by Grammar.Compile
	OpLongBracket // [=*[ ... ]=*] with balanced level markers
	OpSuccess     // always matches, consumes nothing
)

// Rule is a composable recognizer over a byte stream.
type Rule struct {
	op        Op
	name      string // set by Grammar.Define for named rules
	kids      []*Rule
	lit       string
	set       string
	class     func(byte) bool
	className string
	n         int
	ref       string
	target    *Rule // resolved OpRef
}

// Seq matches every child in order.
func Seq(kids ...*Rule) *Rule { return &Rule{op: OpSeq, kids: kids} }

// Sor is ordered choice: alternatives are tried in listed order and the
// first success wins.
func Sor(kids ...*Rule) *Rule { return &Rule{op: OpSor, kids: kids} }

// Star matches the child zero or more times.
func Star(kids ...*Rule) *Rule { return &Rule{op: OpStar, kids: []*Rule{group(kids)}} }

// Plus matches the child one or more times.
func Plus(kids ...*Rule) *Rule { return &Rule{op: OpPlus, kids: []*Rule{group(kids)}} }

// Opt matches the child sequence or nothing.
func Opt(kids ...*Rule) *Rule { return &Rule{op: OpOpt, kids: []*Rule{group(kids)}} }

// At succeeds when the child matches, consuming nothing.
func At(kids ...*Rule) *Rule { return &Rule{op: OpAt, kids: []*Rule{group(kids)}} }

// NotAt succeeds when the child fails, consuming nothing.
func NotAt(kids ...*Rule) *Rule { return &Rule{op: OpNotAt, kids: []*Rule{group(kids)}} }

// Must commits to the children: once reached, each child has to match or
// the whole parse fails with a fatal error instead of backtracking.
func Must(kids ...*Rule) *Rule { return &Rule{op: OpMust, kids: kids} }

// IfMust matches cond, then commits to the rest.
func IfMust(cond *Rule, rest ...*Rule) *Rule {
	return Seq(cond, Must(rest...))
}

// Until repeatedly matches body (any byte when body is empty) until the
// terminator matches; the terminator is consumed.
func Until(term *Rule, body ...*Rule) *Rule {
	kids := append([]*Rule{term}, body...)
	return &Rule{op: OpUntil, kids: kids}
}

// RepOpt matches the child up to n times.
func RepOpt(n int, kids ...*Rule) *Rule {
	return &Rule{op: OpRepOpt, n: n, kids: []*Rule{group(kids)}}
}

// One matches one byte out of set.
func One(set string) *Rule { return &Rule{op: OpOne, set: set} }

// NotOne matches one byte not in set (fails at end of input).
func NotOne(set string) *Rule { return &Rule{op: OpNotOne, set: set} }

// Str matches the literal exactly.
func Str(lit string) *Rule { return &Rule{op: OpStr, lit: lit} }

// IStr matches the literal ignoring ASCII case.
func IStr(lit string) *Rule { return &Rule{op: OpIStr, lit: lit} }

// Two matches the byte twice, e.g. Two(':') for "::".
func Two(b byte) *Rule { return Str(string([]byte{b, b})) }

// Class matches one byte for which pred returns true.
func Class(name string, pred func(byte) bool) *Rule {
	return &Rule{op: OpClass, class: pred, className: name}
}

// Any matches any single byte.
func Any() *Rule { return &Rule{op: OpAny} }

// EOF matches only at end of input.
func EOF() *Rule { return &Rule{op: OpEOF} }

// EOLF matches a line break or end of input.
func EOLF() *Rule { return &Rule{op: OpEOLF} }

// LongBracket matches a long-bracket literal [[...]], [=[...]=], ... with
// matching level markers. Once the opening bracket is consumed the
// terminator has to appear; running out of input is a fatal error.
func LongBracket() *Rule { return &Rule{op: OpLongBracket} }

// Success always matches and consumes nothing.
func Success() *Rule { return &Rule{op: OpSuccess} }

// group wraps multiple rules in a Seq, leaving single rules alone.
func group(kids []*Rule) *Rule {
	if len(kids) == 1 {
		return kids[0]
	}
	return Seq(kids...)
}

// Digit matches an ASCII decimal digit.
func Digit() *Rule {
	return Class("digit", func(b byte) bool { return b >= '0' && b <= '9' })
}

// XDigit matches an ASCII hexadecimal digit.
func XDigit() *Rule {
	return Class("xdigit", func(b byte) bool {
		return b >= '0' && b <= '9' || b >= 'a' && b <= 'f' || b >= 'A' && b <= 'F'
	})
}

// Space matches one ASCII whitespace byte.
func Space() *Rule {
	return Class("space", func(b byte) bool {
		switch b {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			return true
		}
		return false
	})
}

// Identifier matches [A-Za-z_][A-Za-z0-9_]*.
func Identifier() *Rule {
	return Seq(IdentFirst(), Star(IdentOther()))
}

// IdentFirst matches the first byte of an identifier.
func IdentFirst() *Rule {
	return Class("identifier-first", func(b byte) bool {
		return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
	})
}

// IdentOther matches a non-leading identifier byte.
func IdentOther() *Rule {
	return Class("identifier-other", func(b byte) bool {
		return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
	})
}

// describe renders a short human-readable form for error messages.
func (r *Rule) describe() string {
	if r == nil {
		return "<nil>"
	}
	if r.name != "" {
		return r.name
	}
	switch r.op {
	case OpStr, OpIStr:
		return "'" + r.lit + "'"
	case OpOne:
		return "one of " + quoteSet(r.set)
	case OpNotOne:
		return "none of " + quoteSet(r.set)
	case OpClass:
		return r.className
	case OpRef:
		return r.ref
	case OpEOF:
		return "end of input"
	case OpEOLF:
		return "end of line"
	case OpLongBracket:
		return "long bracket"
	default:
		return "<anonymous>"
	}
}

func quoteSet(set string) string {
	var b strings.Builder
	b.WriteByte('"')
	b.WriteString(set)
	b.WriteByte('"')
	return b.String()
}
