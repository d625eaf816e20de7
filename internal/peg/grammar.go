package peg

import (
	"fmt"
	"sort"
)

// Grammar is a set of named rules with one distinguished root.
// Rules refer to each other through Ref nodes, which Compile resolves,
// so recursive productions are plain name cycles.
type Grammar struct {
	rules    map[string]*Rule
	order    []string // definition order, for deterministic diagnostics
	root     string
	compiled bool
}

// NewGrammar creates an empty grammar.
func NewGrammar() *Grammar {
	return &Grammar{rules: make(map[string]*Rule)}
}

// Define registers a named rule. Redefinition is a programming error.
func (g *Grammar) Define(name string, kids ...*Rule) *Rule {
	if _, dup := g.rules[name]; dup {
		panic(fmt.Errorf("peg: rule %q defined twice", name))
	}
	r := group(kids)
	if r.name != "" {
		// keep distinct identities when aliasing an already named rule
		r = Seq(r)
	}
	r.name = name
	g.rules[name] = r
	g.order = append(g.order, name)
	g.compiled = false
	return r
}

// Ref returns a lazy reference to a named rule, resolved by Compile.
func (g *Grammar) Ref(name string) *Rule {
	return &Rule{op: OpRef, ref: name}
}

// SetRoot sets the start rule.
func (g *Grammar) SetRoot(name string) {
	g.root = name
}

// Root returns the start rule name.
func (g *Grammar) Root() string {
	return g.root
}

// Names returns all rule names in definition order.
func (g *Grammar) Names() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Lookup returns a named rule.
func (g *Grammar) Lookup(name string) (*Rule, bool) {
	r, ok := g.rules[name]
	return r, ok
}

// Compile resolves every Ref to its target rule. Unresolved references
// are grammar defects.
func (g *Grammar) Compile() error {
	if g.compiled {
		return nil
	}
	if g.root == "" {
		return fmt.Errorf("peg: no root rule set")
	}
	if _, ok := g.rules[g.root]; !ok {
		return fmt.Errorf("peg: root rule %q is not defined", g.root)
	}

	var missing []string
	seen := make(map[*Rule]bool)
	var walk func(r *Rule)
	walk = func(r *Rule) {
		if r == nil || seen[r] {
			return
		}
		seen[r] = true
		if r.op == OpRef {
			target, ok := g.rules[r.ref]
			if !ok {
				missing = append(missing, r.ref)
				return
			}
			r.target = target
		}
		for _, k := range r.kids {
			walk(k)
		}
		if r.target != nil {
			walk(r.target)
		}
	}
	for _, name := range g.order {
		walk(g.rules[name])
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("peg: unresolved rule references: %v", dedupStrings(missing))
	}
	g.compiled = true
	return nil
}

func dedupStrings(in []string) []string {
	out := in[:0]
	var last string
	for i, s := range in {
		if i == 0 || s != last {
			out = append(out, s)
		}
		last = s
	}
	return out
}

// resolve follows Ref chains to the underlying rule.
func resolve(r *Rule) *Rule {
	for r != nil && r.op == OpRef {
		r = r.target
	}
	return r
}
