package ast

import (
	"strings"

	"keel/internal/source"
)

// Visibility describes whether an item is reachable from outside its module.
type Visibility uint8

const (
	VisPrivate Visibility = iota
	VisPublic
)

func (v Visibility) String() string {
	switch v {
	case VisPublic:
		return "public"
	default:
		return "private"
	}
}

// IsPublic reports whether v is VisPublic.
func (v Visibility) IsPublic() bool { return v == VisPublic }

// CallPath is a possibly-qualified name: module prefixes followed by the
// final identifier.
type CallPath struct {
	Prefixes   []source.Ident
	Suffix     source.Ident
	IsAbsolute bool
}

// PathOf builds a relative call path from its segments. The last segment
// becomes the suffix.
func PathOf(segments ...string) CallPath {
	if len(segments) == 0 {
		return CallPath{}
	}
	prefixes := make([]source.Ident, 0, len(segments)-1)
	for _, s := range segments[:len(segments)-1] {
		prefixes = append(prefixes, source.NewIdent(s))
	}
	return CallPath{Prefixes: prefixes, Suffix: source.NewIdent(segments[len(segments)-1])}
}

// PrefixNames returns the prefix segments as strings.
func (p CallPath) PrefixNames() []string {
	out := make([]string, len(p.Prefixes))
	for i, id := range p.Prefixes {
		out[i] = id.Name
	}
	return out
}

// Segments returns prefixes followed by the suffix.
func (p CallPath) Segments() []string {
	return append(p.PrefixNames(), p.Suffix.Name)
}

// Span covers every segment of the path.
func (p CallPath) Span() source.Span {
	sp := p.Suffix.Span
	for _, id := range p.Prefixes {
		sp = sp.Cover(id.Span)
	}
	return sp
}

// WithPrefixes returns a copy of p rooted at prefixes and marked absolute.
func (p CallPath) WithPrefixes(prefixes []source.Ident) CallPath {
	out := CallPath{Suffix: p.Suffix, IsAbsolute: true}
	out.Prefixes = append(out.Prefixes, prefixes...)
	return out
}

func (p CallPath) String() string {
	var sb strings.Builder
	if p.IsAbsolute {
		sb.WriteString("::")
	}
	for _, id := range p.Prefixes {
		sb.WriteString(id.Name)
		sb.WriteString("::")
	}
	sb.WriteString(p.Suffix.Name)
	return sb.String()
}

// TypeArgsKind tells where explicit type arguments were written.
type TypeArgsKind uint8

const (
	// TypeArgsRegular is `Name::<T>` or `Name<T>` after the suffix.
	TypeArgsRegular TypeArgsKind = iota
	// TypeArgsPrefix is `Name::<T>::item`, attached to a path prefix.
	TypeArgsPrefix
)

// TypeArgs is the list of explicit type arguments of a binding.
type TypeArgs struct {
	Kind TypeArgsKind
	Args []*TypeExpr
	Span source.Span
}

// IsEmpty reports whether no type argument was written.
func (a TypeArgs) IsEmpty() bool { return len(a.Args) == 0 }

// TypeBinding pairs a call path with its explicit type arguments.
type TypeBinding struct {
	Inner    CallPath
	TypeArgs TypeArgs
	Span     source.Span
}

// TypeExprKind enumerates parsed type forms.
type TypeExprKind uint8

const (
	TypeExprNamed TypeExprKind = iota
	TypeExprTuple
)

// TypeExpr is an unresolved type annotation.
type TypeExpr struct {
	Kind  TypeExprKind
	Named TypeBinding
	Elems []*TypeExpr
	Span  source.Span
}

// NamedType builds a TypeExpr for a plain name such as `u64` or `Point`.
func NamedType(name string, args ...*TypeExpr) *TypeExpr {
	return &TypeExpr{
		Kind: TypeExprNamed,
		Named: TypeBinding{
			Inner:    PathOf(name),
			TypeArgs: TypeArgs{Args: args},
		},
	}
}

// UnitType builds the empty tuple type.
func UnitType() *TypeExpr {
	return &TypeExpr{Kind: TypeExprTuple}
}
