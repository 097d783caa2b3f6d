package ty

import (
	"keel/internal/ast"
	"keel/internal/source"
	"keel/internal/types"
)

type ExprKind uint8

const (
	ExprLiteral ExprKind = iota
	ExprVariable
	ExprStruct
	ExprCall
	ExprIf
	ExprTuple
	ExprBlock
	ExprIntrinsic
	ExprReturn
	ExprConstant
)

type Literal struct {
	Kind ast.LiteralKind
	Text string
}

// StructExprField is a checked `name: value` pair. Missing fields are
// filled with an error-recovery placeholder so the list always matches the
// declaration.
type StructExprField struct {
	Name  source.Ident
	Value *Expr
}

// StructExpr is a checked struct literal. TypeArgs are the resolved
// arguments of the instantiated struct.
type StructExpr struct {
	Ref               StructRef
	Fields            []StructExprField
	TypeArgs          []types.TypeID
	InstantiationSpan source.Span
	Binding           ast.TypeBinding
}

type CallExpr struct {
	Fn       FnRef
	Name     source.Ident
	TypeArgs []types.TypeID
	Args     []*Expr
}

type IfExpr struct {
	Cond *Expr
	Then *Expr
	Else *Expr
}

type IntrinsicExpr struct {
	Kind     Intrinsic
	Name     source.Ident
	TypeArgs []types.TypeID
	Args     []*Expr
}

type Block struct {
	Nodes []*Node
	Type  types.TypeID
	Span  source.Span
}

// Expr is a checked expression; Type is its result type handle.
type Expr struct {
	Kind      ExprKind
	Type      types.TypeID
	Span      source.Span
	Literal   *Literal
	Name      source.Ident
	Const     ConstantRef
	Struct    *StructExpr
	Call      *CallExpr
	If        *IfExpr
	Elems     []*Expr
	Block     *Block
	Intrinsic *IntrinsicExpr
	Value     *Expr
}

// Placeholder returns the empty-tuple expression used in place of a value
// that could not be produced.
func Placeholder(typ types.TypeID, sp source.Span) *Expr {
	return &Expr{Kind: ExprTuple, Type: typ, Span: sp}
}

type NodeKind uint8

const (
	NodeDecl NodeKind = iota
	NodeExpr
)

type Node struct {
	Kind NodeKind
	Decl *Decl
	Expr *Expr
	Span source.Span
}

// Intrinsic enumerates the compiler built-ins understood by the checker.
type Intrinsic uint8

const (
	IntrinsicInvalid Intrinsic = iota
	IntrinsicDecodeSelector
	IntrinsicDecodeArg
	IntrinsicEq
	IntrinsicEncodeReturn
	IntrinsicRevert
	IntrinsicLog
	IntrinsicSmo
)

var intrinsicNames = [...]string{
	IntrinsicInvalid:        "",
	IntrinsicDecodeSelector: "__decode_selector",
	IntrinsicDecodeArg:      "__decode_arg",
	IntrinsicEq:             "__eq",
	IntrinsicEncodeReturn:   "__encode_return",
	IntrinsicRevert:         "__revert",
	IntrinsicLog:            "__log",
	IntrinsicSmo:            "__smo",
}

func (i Intrinsic) String() string {
	if int(i) < len(intrinsicNames) && i != IntrinsicInvalid {
		return intrinsicNames[i]
	}
	return "__invalid"
}

// LookupIntrinsic maps a source name such as "__eq" to its Intrinsic.
func LookupIntrinsic(name string) (Intrinsic, bool) {
	for i, n := range intrinsicNames {
		if i != 0 && n == name {
			return Intrinsic(i), true
		}
	}
	return IntrinsicInvalid, false
}
