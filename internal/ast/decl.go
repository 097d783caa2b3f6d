package ast

import (
	"keel/internal/source"
)

type DeclKind uint8

const (
	DeclStruct DeclKind = iota
	DeclFunction
	DeclStorage
	DeclConstant
	DeclVariable
	DeclUse
)

func (k DeclKind) String() string {
	switch k {
	case DeclStruct:
		return "struct"
	case DeclFunction:
		return "fn"
	case DeclStorage:
		return "storage"
	case DeclConstant:
		return "const"
	case DeclVariable:
		return "let"
	case DeclUse:
		return "use"
	default:
		return "decl?"
	}
}

// Attr is non-semantic metadata such as `#[doc("...")]`.
type Attr struct {
	Name string
	Args []string
	Span source.Span
}

type TypeParam struct {
	Name source.Ident
}

type FieldDecl struct {
	Vis   Visibility
	Name  source.Ident
	Type  *TypeExpr
	Span  source.Span
	Attrs []Attr
}

type StructDecl struct {
	Name       source.Ident
	Vis        Visibility
	TypeParams []TypeParam
	Fields     []FieldDecl
	Span       source.Span
	Attrs      []Attr
}

type Param struct {
	Name source.Ident
	Type *TypeExpr
	Span source.Span
}

// FnDecl is a function declaration. A nil Return means unit.
type FnDecl struct {
	Name       source.Ident
	Vis        Visibility
	TypeParams []TypeParam
	Params     []Param
	Return     *TypeExpr
	Body       *Block
	Span       source.Span
	Attrs      []Attr
}

type StorageField struct {
	Name source.Ident
	Type *TypeExpr
	Init *Expr
	Span source.Span
}

type StorageDecl struct {
	Fields []StorageField
	Span   source.Span
}

// ConstDecl is a module-level constant; Configurable marks values that can
// be overridden at deployment.
type ConstDecl struct {
	Name         source.Ident
	Vis          Visibility
	Type         *TypeExpr
	Value        *Expr
	Configurable bool
	Span         source.Span
}

type VarDecl struct {
	Name    source.Ident
	Type    *TypeExpr
	Value   *Expr
	Mutable bool
	Span    source.Span
}

// UseDecl imports Path's last segment into the current module.
// A glob import brings every public item of the module named by Path.
type UseDecl struct {
	Path []source.Ident
	Glob bool
	Span source.Span
}

// Decl is a tagged union; exactly the payload matching Kind is set.
type Decl struct {
	Kind    DeclKind
	Span    source.Span
	Struct  *StructDecl
	Fn      *FnDecl
	Storage *StorageDecl
	Const   *ConstDecl
	Var     *VarDecl
	Use     *UseDecl
}

type NodeKind uint8

const (
	NodeDecl NodeKind = iota
	NodeExpr
)

// Node is one statement-level element of a module or block.
// Semi marks an expression statement terminated by `;`.
type Node struct {
	Kind NodeKind
	Decl *Decl
	Expr *Expr
	Semi bool
	Span source.Span
}
