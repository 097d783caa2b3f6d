package diag

import (
	"keel/internal/source"
)

// Note attaches secondary context to a diagnostic.
type Note struct {
	Span source.Span
	Msg  string
}

// FixEdit replaces the text under Span with NewText.
type FixEdit struct {
	Span    source.Span
	NewText string
}

// Fix is a suggested correction.
type Fix struct {
	Title string
	Edits []FixEdit
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
	Fixes    []Fix
}
