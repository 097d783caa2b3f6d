package diag

import "keel/internal/source"

// Emitted is the marker returned once an error diagnostic has been reported.
// Checking functions return it as their error so callers can stop descending
// without reporting the same problem twice.
type Emitted struct {
	Code Code
}

func (e *Emitted) Error() string {
	return "compilation error " + e.Code.ID()
}

// Handler is the append-only diagnostic sink of one checking unit. It counts
// what passes through and forwards everything to the wrapped Reporter.
type Handler struct {
	reporter Reporter
	errors   int
	warnings int
	last     *Emitted
}

// NewHandler wraps r. A nil reporter yields a handler that only counts, which
// is how throwaway checks (error-recovery placeholders, speculative
// resolution) keep their diagnostics out of the real output.
func NewHandler(r Reporter) *Handler {
	return &Handler{reporter: r}
}

// Discard returns a handler whose diagnostics go nowhere.
func Discard() *Handler {
	return NewHandler(nil)
}

func (h *Handler) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note, fixes []Fix) {
	switch {
	case sev >= SevError:
		h.errors++
		h.last = &Emitted{Code: code}
	case sev == SevWarning:
		h.warnings++
	}
	if h.reporter != nil {
		h.reporter.Report(code, sev, primary, msg, notes, fixes)
	}
}

// EmitErr reports d as an error and returns the emitted marker.
func (h *Handler) EmitErr(d Diagnostic) *Emitted {
	d.Severity = SevError
	h.Report(d.Code, d.Severity, d.Primary, d.Message, d.Notes, d.Fixes)
	return h.last
}

// EmitWarn reports d as a warning.
func (h *Handler) EmitWarn(d Diagnostic) {
	d.Severity = SevWarning
	h.Report(d.Code, d.Severity, d.Primary, d.Message, d.Notes, d.Fixes)
}

func (h *Handler) HasErrors() bool {
	return h.errors > 0
}

func (h *Handler) ErrorCount() int {
	return h.errors
}

func (h *Handler) WarningCount() int {
	return h.warnings
}

// Scope runs fn against a child handler. fn is expected to attempt all of its
// independent checks; Scope fails afterwards if fn failed or if any error was
// emitted inside it.
func (h *Handler) Scope(fn func(*Handler) error) error {
	child := NewHandler(h)
	if err := fn(child); err != nil {
		return err
	}
	if child.last != nil {
		return child.last
	}
	return nil
}
