package peg

import (
	"fmt"
	"sort"
	"strings"
)

// DefectError reports structural problems found by Analyze. These are
// defects in the grammar itself, independent of any input: a grammar
// that fails the check could loop forever on some input and must not be
// used for parsing.
type DefectError struct {
	Defects []Defect
}

// DefectKind classifies a grammar defect.
type DefectKind uint8

const (
	// DefectLeftRecursion marks a rule reachable from itself without
	// consuming input.
	DefectLeftRecursion DefectKind = iota
	// DefectNullableLoop marks a repetition whose body can match empty
	// input.
	DefectNullableLoop
)

type Defect struct {
	Kind DefectKind
	Rule string
}

func (d Defect) String() string {
	switch d.Kind {
	case DefectLeftRecursion:
		return fmt.Sprintf("rule %q is reachable from itself without consuming input", d.Rule)
	case DefectNullableLoop:
		return fmt.Sprintf("rule %q repeats a body that can match empty input", d.Rule)
	}
	return fmt.Sprintf("rule %q has an unknown defect", d.Rule)
}

func (e *DefectError) Error() string {
	parts := make([]string, len(e.Defects))
	for i, d := range e.Defects {
		parts[i] = d.String()
	}
	return "grammar defects: " + strings.Join(parts, "; ")
}

// Analyze verifies the grammar terminates on every input: no rule may
// reach itself without consuming at least one byte, and no repetition
// may loop over a nullable body. The check is input-independent and is
// meant to run once at startup; a failure is fatal and not recoverable
// by retry.
func (g *Grammar) Analyze() error {
	if err := g.Compile(); err != nil {
		return err
	}

	nullable := g.computeNullable()

	var defects []Defect

	// repetition over a nullable body would never advance
	seen := make(map[*Rule]bool)
	var scanLoops func(r *Rule, owner string)
	scanLoops = func(r *Rule, owner string) {
		if r == nil || seen[r] {
			return
		}
		seen[r] = true
		if r.name != "" {
			owner = r.name
		}
		switch r.op {
		case OpStar, OpPlus:
			if isNullable(r.kids[0], nullable) {
				defects = append(defects, Defect{Kind: DefectNullableLoop, Rule: owner})
			}
		case OpUntil:
			// the terminator is tried first, so the loop only spins
			// when the body can succeed without consuming
			if len(r.kids) > 1 && isNullable(group(r.kids[1:]), nullable) {
				defects = append(defects, Defect{Kind: DefectNullableLoop, Rule: owner})
			}
		}
		for _, k := range r.kids {
			scanLoops(k, owner)
		}
		if r.op == OpRef {
			return // named targets are scanned from g.order
		}
	}
	for _, name := range g.order {
		scanLoops(g.rules[name], name)
	}

	// left recursion: cycle in the "reachable at possibly-empty prefix"
	// graph over named rules
	head := make(map[string][]string, len(g.order))
	for _, name := range g.order {
		refs := make(map[string]bool)
		headRefs(g.rules[name], true, nullable, refs, make(map[*Rule]bool))
		targets := make([]string, 0, len(refs))
		for t := range refs {
			targets = append(targets, t)
		}
		sort.Strings(targets)
		head[name] = targets
	}

	const (
		white = 0
		grey  = 1
		black = 2
	)
	color := make(map[string]int, len(g.order))
	recursive := make(map[string]bool)
	var visit func(name string)
	visit = func(name string) {
		color[name] = grey
		for _, t := range head[name] {
			switch color[t] {
			case white:
				visit(t)
			case grey:
				recursive[t] = true
			}
		}
		color[name] = black
	}
	for _, name := range g.order {
		if color[name] == white {
			visit(name)
		}
	}
	for _, name := range g.order {
		if recursive[name] {
			defects = append(defects, Defect{Kind: DefectLeftRecursion, Rule: name})
		}
	}

	if len(defects) > 0 {
		return &DefectError{Defects: defects}
	}
	return nil
}

// computeNullable runs a fixpoint over named rules: may the rule succeed
// without consuming input?
func (g *Grammar) computeNullable() map[string]bool {
	nullable := make(map[string]bool, len(g.order))
	for {
		changed := false
		for _, name := range g.order {
			if nullable[name] {
				continue
			}
			if isNullable(g.rules[name], nullable) {
				nullable[name] = true
				changed = true
			}
		}
		if !changed {
			return nullable
		}
	}
}

func isNullable(r *Rule, nullable map[string]bool) bool {
	if r == nil {
		return true
	}
	if r.op != OpRef && r.name != "" {
		// named rules answer from the fixpoint table when already known
		if nullable[r.name] {
			return true
		}
	}
	switch r.op {
	case OpSeq, OpMust:
		for _, k := range r.kids {
			if !isNullable(k, nullable) {
				return false
			}
		}
		return true
	case OpSor:
		for _, k := range r.kids {
			if isNullable(k, nullable) {
				return true
			}
		}
		return false
	case OpStar, OpOpt, OpRepOpt, OpAt, OpNotAt, OpSuccess:
		return true
	case OpPlus:
		return isNullable(r.kids[0], nullable)
	case OpUntil:
		return isNullable(r.kids[0], nullable)
	case OpStr, OpIStr:
		return len(r.lit) == 0
	case OpEOF, OpEOLF:
		// both may succeed at end of input without consuming
		return true
	case OpRef:
		return nullable[r.ref]
	default:
		// OpOne, OpNotOne, OpClass, OpAny, OpLongBracket all consume
		return false
	}
}

// headRefs collects named rules reachable before any guaranteed
// consumption. Predicates count: a left-recursive lookahead loops just
// the same. entry is true only for the rule whose body is being scanned;
// any other named rule encountered becomes a graph edge instead of being
// descended into.
func headRefs(r *Rule, entry bool, nullable map[string]bool, out map[string]bool, seen map[*Rule]bool) {
	if r == nil || seen[r] {
		return
	}
	seen[r] = true
	if r.op == OpRef {
		out[r.ref] = true
		return
	}
	if r.name != "" && !entry {
		out[r.name] = true
		return
	}
	switch r.op {
	case OpSeq, OpMust:
		for _, k := range r.kids {
			headRefs(k, false, nullable, out, seen)
			if !isNullable(k, nullable) {
				return
			}
		}
	case OpSor:
		for _, k := range r.kids {
			headRefs(k, false, nullable, out, seen)
		}
	case OpStar, OpPlus, OpOpt, OpRepOpt, OpAt, OpNotAt:
		headRefs(r.kids[0], false, nullable, out, seen)
	case OpUntil:
		for _, k := range r.kids {
			headRefs(k, false, nullable, out, seen)
		}
	}
}
