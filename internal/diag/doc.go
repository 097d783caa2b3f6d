// Package diag defines the diagnostic model shared by every checking phase.
//
// Diagnostic is the central record: Severity, a numeric Code with a stable
// ID (SEM3102, PRJ5001, ...), a message, the primary source.Span, optional
// Notes and Fix suggestions.
//
// Producers never format or print. They emit through a Reporter, usually a
// Handler, which counts errors, hands back an Emitted marker that doubles as
// a Go error, and supports Scope for batching independent checks so that the
// failure of one does not prevent the others from being attempted.
//
// Bag collects diagnostics for rendering (see internal/diagfmt) and supports
// sorting, deduplication and merging.
package diag
