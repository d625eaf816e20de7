package peg

import (
	"fmt"
)

// Capture describes one successful match of a named rule.
// Offsets are absolute byte positions into the parsed content.
type Capture struct {
	Rule  string
	Start int
	End   int
}

// Action observes a successful match of a named rule. Actions fire
// immediately, including on speculative paths that an enclosing ordered
// choice later abandons: a backtracking recognizer cannot notify
// observers of rollbacks, so observers keeping positional state must
// reconcile it themselves (see the fixer's not-equal handling).
type Action func(in Capture)

// TraceKind classifies rule tracing events.
type TraceKind uint8

const (
	TraceEnter TraceKind = iota
	TraceSuccess
	TraceFail
)

// TraceEvent is emitted for every named rule when tracing is enabled.
type TraceEvent struct {
	Kind  TraceKind
	Rule  string
	Pos   int
	Depth int
}

// Options configures one parse run.
type Options struct {
	Actions map[string]Action
	Trace   func(TraceEvent)
}

// ParseError is a fatal parse failure at a commit point.
type ParseError struct {
	Offset   int    // absolute byte offset of the failure
	Expected string // what the committed rule required
	Rule     string // nearest enclosing named rule
}

func (e *ParseError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("parse error at byte %d: expected %s in %s", e.Offset, e.Expected, e.Rule)
	}
	return fmt.Sprintf("parse error at byte %d: expected %s", e.Offset, e.Expected)
}

// maxNesting bounds rule recursion so hostile input degrades into a
// parse error instead of exhausting the goroutine stack.
const maxNesting = 10000

type state struct {
	in       []byte
	pos      int
	farthest int // rightmost position any rule was attempted at
	actions  map[string]Action
	trace    func(TraceEvent)
	stack    []string // named rules currently being matched
	depth    int
}

// Parse runs the grammar over content. It returns nil on success and a
// *ParseError when the input does not conform. The grammar is compiled
// on demand; compilation failures are grammar defects, not input errors.
func (g *Grammar) Parse(content []byte, opts Options) error {
	if err := g.Compile(); err != nil {
		return err
	}
	s := &state{
		in:      content,
		actions: opts.Actions,
		trace:   opts.Trace,
	}
	ok, err := s.match(g.rules[g.root])
	if err != nil {
		return err
	}
	if !ok {
		// the root is conventionally must-wrapped, but keep a sane
		// error for grammars that are not
		return &ParseError{Offset: s.errorOffset(), Expected: g.root}
	}
	return nil
}

// errorOffset picks the error position. A failing alternative rewinds
// the cursor before the enclosing commit point fires, which would blame
// the start of the whole construct; the rightmost attempted position is
// where the input actually stopped conforming.
func (s *state) errorOffset() int {
	if s.farthest > s.pos {
		return s.farthest
	}
	return s.pos
}

func (s *state) enclosing() string {
	if len(s.stack) == 0 {
		return ""
	}
	return s.stack[len(s.stack)-1]
}

func (s *state) fatal(r *Rule) *ParseError {
	return &ParseError{
		Offset:   s.errorOffset(),
		Expected: r.describe(),
		Rule:     s.enclosing(),
	}
}

func (s *state) match(r *Rule) (bool, error) {
	r = resolve(r)
	if r == nil {
		return false, fmt.Errorf("peg: unresolved rule reference")
	}
	if s.pos > s.farthest {
		s.farthest = s.pos
	}

	if r.name != "" {
		return s.matchNamed(r)
	}
	return s.matchOp(r)
}

func (s *state) matchNamed(r *Rule) (bool, error) {
	s.depth++
	if s.depth > maxNesting {
		s.depth--
		return false, &ParseError{Offset: s.pos, Expected: "shallower nesting", Rule: r.name}
	}
	if s.trace != nil {
		s.trace(TraceEvent{Kind: TraceEnter, Rule: r.name, Pos: s.pos, Depth: s.depth})
	}

	start := s.pos
	s.stack = append(s.stack, r.name)
	ok, err := s.matchOp(r)
	s.stack = s.stack[:len(s.stack)-1]
	s.depth--

	if s.trace != nil {
		kind := TraceFail
		if ok {
			kind = TraceSuccess
		}
		s.trace(TraceEvent{Kind: kind, Rule: r.name, Pos: s.pos, Depth: s.depth + 1})
	}
	if err != nil || !ok {
		s.pos = start
		return ok, err
	}
	if s.actions != nil {
		if act, found := s.actions[r.name]; found {
			act(Capture{Rule: r.name, Start: start, End: s.pos})
		}
	}
	return true, nil
}

func (s *state) matchOp(r *Rule) (bool, error) {
	switch r.op {
	case OpSeq:
		save := s.pos
		for _, k := range r.kids {
			ok, err := s.match(k)
			if err != nil {
				return false, err
			}
			if !ok {
				s.pos = save
				return false, nil
			}
		}
		return true, nil

	case OpSor:
		save := s.pos
		for _, k := range r.kids {
			s.pos = save
			ok, err := s.match(k)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		s.pos = save
		return false, nil

	case OpStar:
		for {
			save := s.pos
			ok, err := s.match(r.kids[0])
			if err != nil {
				return false, err
			}
			if !ok {
				s.pos = save
				return true, nil
			}
		}

	case OpPlus:
		ok, err := s.match(r.kids[0])
		if err != nil || !ok {
			return ok, err
		}
		star := &Rule{op: OpStar, kids: r.kids}
		return s.matchOp(star)

	case OpOpt:
		save := s.pos
		ok, err := s.match(r.kids[0])
		if err != nil {
			return false, err
		}
		if !ok {
			s.pos = save
		}
		return true, nil

	case OpAt:
		save := s.pos
		ok, err := s.match(r.kids[0])
		s.pos = save
		return ok, err

	case OpNotAt:
		save := s.pos
		ok, err := s.match(r.kids[0])
		s.pos = save
		if err != nil {
			return false, err
		}
		return !ok, nil

	case OpMust:
		for _, k := range r.kids {
			ok, err := s.match(k)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, s.fatal(resolve(k))
			}
		}
		return true, nil

	case OpUntil:
		entry := s.pos
		term := r.kids[0]
		body := r.kids[1:]
		for {
			save := s.pos
			ok, err := s.match(term)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
			s.pos = save
			if len(body) == 0 {
				if s.pos >= len(s.in) {
					s.pos = entry
					return false, nil
				}
				s.pos++
				continue
			}
			for _, b := range body {
				ok, err := s.match(b)
				if err != nil {
					return false, err
				}
				if !ok {
					s.pos = entry
					return false, nil
				}
			}
		}

	case OpRepOpt:
		for i := 0; i < r.n; i++ {
			save := s.pos
			ok, err := s.match(r.kids[0])
			if err != nil {
				return false, err
			}
			if !ok {
				s.pos = save
				break
			}
		}
		return true, nil

	case OpOne:
		if s.pos < len(s.in) && byteIn(r.set, s.in[s.pos]) {
			s.pos++
			return true, nil
		}
		return false, nil

	case OpNotOne:
		if s.pos < len(s.in) && !byteIn(r.set, s.in[s.pos]) {
			s.pos++
			return true, nil
		}
		return false, nil

	case OpStr:
		if hasPrefix(s.in, s.pos, r.lit) {
			s.pos += len(r.lit)
			return true, nil
		}
		return false, nil

	case OpIStr:
		if hasPrefixFold(s.in, s.pos, r.lit) {
			s.pos += len(r.lit)
			return true, nil
		}
		return false, nil

	case OpClass:
		if s.pos < len(s.in) && r.class(s.in[s.pos]) {
			s.pos++
			return true, nil
		}
		return false, nil

	case OpAny:
		if s.pos < len(s.in) {
			s.pos++
			return true, nil
		}
		return false, nil

	case OpEOF:
		return s.pos >= len(s.in), nil

	case OpEOLF:
		if s.pos >= len(s.in) {
			return true, nil
		}
		switch s.in[s.pos] {
		case '\n':
			s.pos++
			return true, nil
		case '\r':
			s.pos++
			if s.pos < len(s.in) && s.in[s.pos] == '\n' {
				s.pos++
			}
			return true, nil
		}
		return false, nil

	case OpLongBracket:
		return s.matchLongBracket()

	case OpSuccess:
		return true, nil

	default:
		return false, fmt.Errorf("peg: unknown op %d", r.op)
	}
}

// matchLongBracket recognizes [=*[ ... ]=*] with balanced level markers.
// The opening bracket is the commit point: once it is consumed, a missing
// terminator is fatal.
func (s *state) matchLongBracket() (bool, error) {
	start := s.pos
	p := s.pos
	if p >= len(s.in) || s.in[p] != '[' {
		return false, nil
	}
	p++
	level := 0
	for p < len(s.in) && s.in[p] == '=' {
		p++
		level++
	}
	if p >= len(s.in) || s.in[p] != '[' {
		return false, nil
	}
	p++

	// committed from here on
	for p < len(s.in) {
		if s.in[p] != ']' {
			p++
			continue
		}
		q := p + 1
		eq := 0
		for q < len(s.in) && s.in[q] == '=' {
			q++
			eq++
		}
		if eq == level && q < len(s.in) && s.in[q] == ']' {
			s.pos = q + 1
			return true, nil
		}
		p++
	}
	s.pos = start
	return false, &ParseError{
		Offset:   start,
		Expected: "terminating long bracket",
		Rule:     s.enclosing(),
	}
}

func byteIn(set string, b byte) bool {
	for i := 0; i < len(set); i++ {
		if set[i] == b {
			return true
		}
	}
	return false
}

func hasPrefix(in []byte, pos int, lit string) bool {
	if pos+len(lit) > len(in) {
		return false
	}
	for i := 0; i < len(lit); i++ {
		if in[pos+i] != lit[i] {
			return false
		}
	}
	return true
}

func hasPrefixFold(in []byte, pos int, lit string) bool {
	if pos+len(lit) > len(in) {
		return false
	}
	for i := 0; i < len(lit); i++ {
		a, b := in[pos+i], lit[i]
		if a != b && lower(a) != lower(b) {
			return false
		}
	}
	return true
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
