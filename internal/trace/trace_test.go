package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestLevelFiltersScopes(t *testing.T) {
	tests := []struct {
		level Level
		ev    Event
		want  bool
	}{
		{LevelOff, Event{Scope: ScopeDriver}, false},
		{LevelError, Event{Scope: ScopePass}, false},
		{LevelError, Event{Scope: ScopeDecl, Failed: true}, true},
		{LevelPhase, Event{Scope: ScopePass}, true},
		{LevelPhase, Event{Scope: ScopeModule}, false},
		{LevelDetail, Event{Scope: ScopeModule}, true},
		{LevelDetail, Event{Scope: ScopeDecl}, false},
		{LevelDebug, Event{Scope: ScopeDecl}, true},
	}
	for _, tt := range tests {
		if got := tt.level.Allows(&tt.ev); got != tt.want {
			t.Fatalf("%s.Allows(%s) = %v, want %v", tt.level, tt.ev.Scope, got, tt.want)
		}
	}
}

func TestStreamTracerText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatText)
	ctx := WithTracer(context.Background(), tr)

	ctx, pass := Start(ctx, ScopePass, "check_modules")
	_, mod := Start(ctx, ScopeModule, "module:shapes")
	mod.WithField("nodes", "3").End("")
	pass.End("ok")
	Point(tr, ScopeDecl, "decl:Point", "hidden at detail level")

	out := buf.String()
	for _, want := range []string{"-> check_modules", "  -> module:shapes", "nodes=3", "<- check_modules (ok)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "decl:Point") {
		t.Fatalf("decl events must be filtered at detail level:\n%s", out)
	}
}

func TestRingTracerKeepsMostRecent(t *testing.T) {
	r := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(r, ScopePass, name, "")
	}
	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].Name != "b" || snap[1].Name != "c" {
		t.Fatalf("snapshot = %+v", snap)
	}
	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatNDJSON); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 2 || !strings.Contains(buf.String(), `"name":"c"`) {
		t.Fatalf("ndjson dump = %s", buf.String())
	}
}

func TestNewOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr.Enabled() {
		t.Fatalf("LevelOff must give a disabled tracer")
	}
	s := Begin(tr, ScopePass, "x", nil)
	if s.End("") != 0 || s.ID() != 0 {
		t.Fatalf("disabled span must be inert")
	}
}
