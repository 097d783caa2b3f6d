package source

import (
	"fmt"
)

// Span is a half-open byte range inside a single file.
type Span struct {
	File  FileID
	Start uint32 // inclusive, bytes
	End   uint32 // exclusive, bytes
}

// NoSpan is used for synthesized nodes that have no source location.
var NoSpan = Span{}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Cover returns the smallest span containing both s and other.
// Spans from different files are not merged.
func (s Span) Cover(other Span) Span {
	if s == NoSpan {
		return other
	}
	if other == NoSpan || s.File != other.File {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}

// Ident is a name together with the place it was written.
// Two identifiers are the same name regardless of their spans.
type Ident struct {
	Name string
	Span Span
}

// NewIdent builds an identifier without a source location.
func NewIdent(name string) Ident {
	return Ident{Name: name}
}

func (id Ident) String() string {
	return id.Name
}

// Is reports whether the identifier spells name.
func (id Ident) Is(name string) bool {
	return id.Name == name
}
