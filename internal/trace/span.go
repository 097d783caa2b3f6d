package trace

import (
	"sync/atomic"
	"time"
)

var (
	globalSeq   atomic.Uint64
	globalSpans atomic.Uint64
)

// Span tracks one begin/end pair.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	depth   int
	scope   Scope
	name    string
	started time.Time
	failed  bool
	fields  map[string]string
}

// Begin starts a span under parent (nil for a root span).
func Begin(t Tracer, scope Scope, name string, parent *Span) *Span {
	if t == nil || !t.Enabled() {
		return &Span{tracer: Nop}
	}
	s := &Span{
		tracer:  t,
		id:      globalSpans.Add(1),
		scope:   scope,
		name:    name,
		started: time.Now(),
	}
	if parent != nil {
		s.parent = parent.id
		s.depth = parent.depth + 1
	}
	t.Emit(s.event(KindSpanBegin, ""))
	return s
}

// WithField attaches a key/value pair reported on End.
func (s *Span) WithField(key, value string) *Span {
	if s == nil || s.tracer == nil || !s.tracer.Enabled() {
		return s
	}
	if s.fields == nil {
		s.fields = make(map[string]string)
	}
	s.fields[key] = value
	return s
}

// Fail marks the span as failed so it survives LevelError filtering.
func (s *Span) Fail() *Span {
	if s != nil {
		s.failed = true
	}
	return s
}

// End emits the closing event and returns the span duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.tracer == nil || !s.tracer.Enabled() {
		return 0
	}
	dur := time.Since(s.started)
	ev := s.event(KindSpanEnd, detail)
	if ev.Fields == nil {
		ev.Fields = make(map[string]string, 1)
	}
	ev.Fields["dur"] = dur.Round(time.Microsecond).String()
	s.tracer.Emit(ev)
	return dur
}

// ID returns the span id, 0 for disabled spans.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

func (s *Span) event(kind Kind, detail string) *Event {
	return &Event{
		Time:     time.Now(),
		Seq:      globalSeq.Add(1),
		Kind:     kind,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Depth:    s.depth,
		Name:     s.name,
		Detail:   detail,
		Failed:   s.failed,
		Fields:   s.fields,
	}
}

// Point emits an instant event.
func Point(t Tracer, scope Scope, name, detail string) {
	emitPoint(t, scope, name, detail, false)
}

// Failure emits an instant event that is kept even at LevelError.
func Failure(t Tracer, scope Scope, name, detail string) {
	emitPoint(t, scope, name, detail, true)
}

func emitPoint(t Tracer, scope Scope, name, detail string, failed bool) {
	if t == nil || !t.Enabled() {
		return
	}
	t.Emit(&Event{
		Time:   time.Now(),
		Seq:    globalSeq.Add(1),
		Kind:   KindPoint,
		Scope:  scope,
		Name:   name,
		Detail: detail,
		Failed: failed,
	})
}
