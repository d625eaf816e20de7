package trace

import (
	"fmt"

	"pix8/internal/peg"
)

// RuleObserver adapts a Tracer into the parser's rule tracing hook.
// Returns nil when rule-level tracing is off, so the parser skips the
// bookkeeping entirely.
func RuleObserver(t Tracer) func(peg.TraceEvent) {
	if t == nil || !t.Level().ShouldEmit(ScopeRule) {
		return nil
	}
	return func(ev peg.TraceEvent) {
		kind := KindPoint
		switch ev.Kind {
		case peg.TraceEnter:
			kind = KindBegin
		case peg.TraceSuccess, peg.TraceFail:
			kind = KindEnd
		}
		detail := fmt.Sprintf("pos=%d depth=%d", ev.Pos, ev.Depth)
		if ev.Kind == peg.TraceFail {
			detail += " fail"
		}
		t.Emit(Event{Kind: kind, Scope: ScopeRule, Name: "rule:" + ev.Rule, Detail: detail})
	}
}
