// Package trace emits structured events from the fix pipeline: per-file
// spans from the driver, pass boundaries inside a fix, and, at the most
// verbose level, individual grammar-rule attempts from the parser.
package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level controls tracing verbosity.
type Level uint8

const (
	// LevelOff disables tracing.
	LevelOff Level = iota
	// LevelFile covers per-cartridge operations.
	LevelFile
	// LevelPass adds pipeline pass boundaries (patch, analyze, rewrite).
	LevelPass
	// LevelRule adds every grammar-rule attempt. Extremely verbose.
	LevelRule
)

func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelFile:
		return "file"
	case LevelPass:
		return "pass"
	case LevelRule:
		return "rule"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "off", "":
		return LevelOff, nil
	case "file":
		return LevelFile, nil
	case "pass":
		return LevelPass, nil
	case "rule":
		return LevelRule, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|file|pass|rule)", s)
	}
}

// Scope indicates the granularity of an event. Lower values are coarser.
type Scope uint8

const (
	// ScopeFile covers one cartridge from load to result.
	ScopeFile Scope = iota + 1
	// ScopePass covers one pipeline pass.
	ScopePass
	// ScopeRule covers one grammar-rule attempt.
	ScopeRule
)

func (s Scope) String() string {
	switch s {
	case ScopeFile:
		return "file"
	case ScopePass:
		return "pass"
	case ScopeRule:
		return "rule"
	default:
		return "unknown"
	}
}

// ShouldEmit reports whether events of the given scope pass the level.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelFile:
		return scope <= ScopeFile
	case LevelPass:
		return scope <= ScopePass
	case LevelRule:
		return true
	}
	return false
}

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindBegin marks the start of a logical operation.
	KindBegin Kind = iota + 1
	// KindEnd marks the end of a logical operation.
	KindEnd
	// KindPoint is an instant event.
	KindPoint
)

func (k Kind) String() string {
	switch k {
	case KindBegin:
		return "begin"
	case KindEnd:
		return "end"
	case KindPoint:
		return "point"
	default:
		return "unknown"
	}
}

// Event is a single trace record.
type Event struct {
	Time   time.Time
	Seq    uint64 // global sequence number, monotonic
	Kind   Kind
	Scope  Scope
	Name   string // e.g. "fix", "analyze", "rule:expression"
	Detail string
}

var seq atomic.Uint64

// NextSeq returns the next global sequence number.
func NextSeq() uint64 { return seq.Add(1) }

// Tracer is the sink for trace events.
type Tracer interface {
	// Emit records an event. Must be goroutine-safe.
	Emit(ev Event)
	// Flush ensures buffered events are written.
	Flush() error
	// Level returns the current tracing level.
	Level() Level
	// Enabled reports whether tracing is active.
	Enabled() bool
}

type nopTracer struct{}

func (nopTracer) Emit(Event)    {}
func (nopTracer) Flush() error  { return nil }
func (nopTracer) Level() Level  { return LevelOff }
func (nopTracer) Enabled() bool { return false }

// Nop is the package-level no-op tracer.
var Nop Tracer = nopTracer{}

// Config holds tracer configuration.
type Config struct {
	Level      Level
	Output     io.Writer // takes precedence over OutputPath
	OutputPath string    // "-" or empty means stderr
}

// New creates a Tracer from Config. A zero level yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	w := cfg.Output
	if w == nil {
		if cfg.OutputPath == "" || cfg.OutputPath == "-" {
			w = os.Stderr
		} else {
			f, err := os.Create(cfg.OutputPath)
			if err != nil {
				return nil, fmt.Errorf("open trace output: %w", err)
			}
			w = f
		}
	}
	return NewStreamTracer(w, cfg.Level), nil
}

// StreamTracer writes events immediately as human-readable lines.
type StreamTracer struct {
	mu    sync.Mutex
	w     io.Writer
	level Level
	start time.Time
}

// NewStreamTracer creates a StreamTracer at the given level.
func NewStreamTracer(w io.Writer, level Level) *StreamTracer {
	return &StreamTracer{w: w, level: level, start: time.Now()}
}

// Emit writes one event. Write errors are ignored so tracing can never
// fail a fix run.
func (t *StreamTracer) Emit(ev Event) {
	if !t.level.ShouldEmit(ev.Scope) {
		return
	}
	ev.Seq = NextSeq()
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	var arrow string
	switch ev.Kind {
	case KindBegin:
		arrow = "-> "
	case KindEnd:
		arrow = "<- "
	default:
		arrow = " * "
	}
	line := fmt.Sprintf("[%9.3fms] %s%s", float64(ev.Time.Sub(t.start).Microseconds())/1000, arrow, ev.Name)
	if ev.Detail != "" {
		line += " (" + ev.Detail + ")"
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = io.WriteString(t.w, line+"\n")
}

func (t *StreamTracer) Flush() error {
	if flusher, ok := t.w.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }

// Span emits a begin event and returns a closure emitting the matching
// end event.
func Span(t Tracer, scope Scope, name, detail string) func() {
	if t == nil || !t.Enabled() {
		return func() {}
	}
	t.Emit(Event{Kind: KindBegin, Scope: scope, Name: name, Detail: detail})
	return func() {
		t.Emit(Event{Kind: KindEnd, Scope: scope, Name: name})
	}
}

// Point emits an instant event.
func Point(t Tracer, scope Scope, name, detail string) {
	if t == nil || !t.Enabled() {
		return
	}
	t.Emit(Event{Kind: KindPoint, Scope: scope, Name: name, Detail: detail})
}
