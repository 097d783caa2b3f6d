// Package sema type-checks parsed modules into the typed tree held by
// package ty.
package sema

import (
	"context"

	"keel/internal/ast"
	"keel/internal/diag"
	"keel/internal/namespace"
	"keel/internal/source"
	"keel/internal/ty"
	"keel/internal/types"
)

// ModuleObserver is told when a module starts and finishes checking.
// Path is the absolute module path joined with "::".
type ModuleObserver interface {
	ModuleStarted(path string)
	ModuleChecked(path string, errors int)
}

// Context carries everything a check needs besides the diagnostic handler.
// It is passed by value; the With methods return adjusted copies, so a
// setting never leaks back to the caller.
type Context struct {
	ctx     context.Context
	engines ty.Engines
	ns      *namespace.Namespace
	// top is the parsed package root, set when checking reaches it.
	top *ast.Module

	typeAnnotation types.TypeID
	helpText       string
	unifyGeneric   bool
	shadowing      namespace.GenericShadowingMode

	selfType   types.TypeID
	returnType types.TypeID
	inFunction bool

	observer ModuleObserver
}

// NewContext returns the root context of a checking unit.
func NewContext(ctx context.Context, engines ty.Engines, ns *namespace.Namespace) Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return Context{ctx: ctx, engines: engines, ns: ns}
}

func (c Context) Engines() ty.Engines { return c.engines }
func (c Context) Namespace() *namespace.Namespace { return c.ns }
func (c Context) TypeAnnotation() types.TypeID { return c.typeAnnotation }
func (c Context) Go() context.Context { return c.ctx }
func (c Context) Shadowing() namespace.GenericShadowingMode { return c.shadowing }

func (c Context) types() *types.Interner { return c.engines.Types }
func (c Context) decls() *ty.DeclEngine { return c.engines.Decls }

// WithTypeAnnotation sets the type the checked expression is expected to
// have. types.NoTypeID means no expectation.
func (c Context) WithTypeAnnotation(t types.TypeID) Context {
	c.typeAnnotation = t
	return c
}

// WithHelpText sets the note attached to unification failures.
func (c Context) WithHelpText(s string) Context {
	c.helpText = s
	return c
}

// WithUnifyGeneric lets unification bind open parameters of the annotation.
func (c Context) WithUnifyGeneric(on bool) Context {
	c.unifyGeneric = on
	return c
}

func (c Context) WithShadowing(mode namespace.GenericShadowingMode) Context {
	c.shadowing = mode
	return c
}

func (c Context) WithSelfType(t types.TypeID) Context {
	c.selfType = t
	return c
}

// WithReturnType marks the context as being inside a function body
// returning t.
func (c Context) WithReturnType(t types.TypeID) Context {
	c.returnType = t
	c.inFunction = true
	return c
}

func (c Context) WithObserver(o ModuleObserver) Context {
	c.observer = o
	return c
}

func (c Context) WithGo(ctx context.Context) Context {
	c.ctx = ctx
	return c
}

// Scoped returns a context checking against ns instead of the shared
// namespace.
func (c Context) Scoped(ns *namespace.Namespace) Context {
	c.ns = ns
	return c
}

// Unify unifies received with the type annotation. Without an annotation it
// succeeds and keeps received.
func (c Context) Unify(h *diag.Handler, received types.TypeID, span source.Span) types.UnifyResult {
	if c.typeAnnotation == types.NoTypeID {
		return types.UnifyResult{OK: true, Type: received}
	}
	in := c.types()
	if c.unifyGeneric {
		return in.UnifyWithGeneric(h, received, c.typeAnnotation, span, c.helpText)
	}
	return in.Unify(h, received, c.typeAnnotation, span, c.helpText)
}

// errorType is the error-recovery placeholder of the unit.
func (c Context) errorType() types.TypeID {
	return c.types().Builtins().ErrorRecovery
}

func (c Context) unit() types.TypeID {
	return c.types().Builtins().Unit
}
