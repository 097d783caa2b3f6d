package types

import (
	"fmt"

	"keel/internal/diag"
	"keel/internal/source"
)

// UnifyResult is the outcome of one unification.
// On failure Type is the error-recovery placeholder and Err is the emitted
// diagnostic marker.
type UnifyResult struct {
	OK   bool
	Type TypeID
	Err  *diag.Emitted
}

// Unify constrains received to be expected. Inference variables on either
// side are bound; open generic parameters are bound only on the received
// side. A failure rolls back partial bindings and emits a mismatch error
// carrying help as a note.
func (in *Interner) Unify(h *diag.Handler, received, expected TypeID, span source.Span, help string) UnifyResult {
	return in.unifyReport(h, received, expected, span, help, false)
}

// UnifyWithGeneric behaves like Unify but also lets an unbound open generic
// parameter on the expected side be bound by the received type.
func (in *Interner) UnifyWithGeneric(h *diag.Handler, received, expected TypeID, span source.Span, help string) UnifyResult {
	return in.unifyReport(h, received, expected, span, help, true)
}

func (in *Interner) unifyReport(h *diag.Handler, received, expected TypeID, span source.Span, help string, generic bool) UnifyResult {
	u := unifier{in: in, generic: generic}
	if u.unify(received, expected, 0) {
		return UnifyResult{OK: true, Type: expected}
	}
	u.rollback()
	res := UnifyResult{Type: in.builtins.ErrorRecovery}
	if h == nil {
		return res
	}
	var d diag.Diagnostic
	if u.recursive {
		d = diag.NewError(diag.SemaRecursiveType, span,
			fmt.Sprintf("type `%s` would contain itself", Label(in, expected)))
	} else {
		d = diag.NewError(diag.SemaTypeMismatch, span,
			fmt.Sprintf("mismatched types: expected `%s`, found `%s`", Label(in, expected), Label(in, received)))
	}
	if help != "" {
		d = d.WithNote(span, help)
	}
	res.Err = h.EmitErr(d)
	return res
}

type unifier struct {
	in        *Interner
	generic   bool
	recursive bool
	trail     []TypeID
}

func (u *unifier) unify(received, expected TypeID, depth int) bool {
	in := u.in
	r, e := in.Resolve(received), in.Resolve(expected)
	if r == e {
		return true
	}
	if depth > maxTypeDepth {
		return false
	}
	rt, _ := in.Lookup(r)
	et, _ := in.Lookup(e)
	if rt.Kind == KindErrorRecovery || et.Kind == KindErrorRecovery {
		return true
	}
	switch {
	case rt.Kind == KindUnknown:
		return u.bind(r, e)
	case et.Kind == KindUnknown:
		return u.bind(e, r)
	case u.generic && in.IsOpenParam(e):
		return u.bind(e, r)
	case in.IsOpenParam(r):
		return u.bind(r, e)
	case rt.Kind == KindNumeric:
		if et.Kind == KindNumeric || et.Kind == KindUint {
			return u.bind(r, e)
		}
		return false
	case et.Kind == KindNumeric:
		if rt.Kind == KindUint {
			return u.bind(e, r)
		}
		return false
	}
	if rt.Kind != et.Kind {
		return false
	}
	switch rt.Kind {
	case KindUint:
		return rt.Width == et.Width
	case KindBool, KindB256, KindStr, KindSelf:
		return true
	case KindTuple:
		ri, _ := in.TupleInfo(r)
		ei, _ := in.TupleInfo(e)
		return u.unifyLists(elemsOf(ri), elemsOf(ei), depth)
	case KindStruct:
		ri, _ := in.StructInfo(r)
		ei, _ := in.StructInfo(e)
		if ri.Decl != ei.Decl {
			return false
		}
		return u.unifyLists(ri.Args, ei.Args, depth)
	default:
		// rigid generic parameters only unify with themselves
		return false
	}
}

func (u *unifier) unifyLists(r, e []TypeID, depth int) bool {
	if len(r) != len(e) {
		return false
	}
	for i := range r {
		if !u.unify(r[i], e[i], depth+1) {
			return false
		}
	}
	return true
}

func (u *unifier) bind(v, t TypeID) bool {
	if u.in.Occurs(v, t) {
		u.recursive = true
		return false
	}
	u.in.bound[v] = t
	u.trail = append(u.trail, v)
	return true
}

func (u *unifier) rollback() {
	for i := len(u.trail) - 1; i >= 0; i-- {
		u.in.bound[u.trail[i]] = NoTypeID
	}
	u.trail = nil
}

// DefaultNumerics binds every unbound numeric variable inside id to u64.
func (in *Interner) DefaultNumerics(id TypeID) {
	in.defaultNumerics(id, 0)
}

func (in *Interner) defaultNumerics(id TypeID, depth int) {
	id = in.Resolve(id)
	tt, ok := in.Lookup(id)
	if !ok || depth > maxTypeDepth {
		return
	}
	switch tt.Kind {
	case KindNumeric:
		in.bound[id] = in.builtins.U64
	case KindTuple:
		info, _ := in.TupleInfo(id)
		for _, e := range elemsOf(info) {
			in.defaultNumerics(e, depth+1)
		}
	case KindStruct:
		info, _ := in.StructInfo(id)
		for _, a := range info.Args {
			in.defaultNumerics(a, depth+1)
		}
	}
}
