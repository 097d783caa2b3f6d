package types

import (
	"keel/internal/source"
)

// TypeParamInfo stores metadata about a generic type parameter.
// Open parameters are per-instantiation copies that unification may bind;
// declared parameters are rigid and only equal themselves.
type TypeParamInfo struct {
	Name   source.StringID
	Owner  uint32
	Index  uint32
	Open   bool
	Origin TypeID
}

// RegisterTypeParam allocates a new rigid generic parameter descriptor.
func (in *Interner) RegisterTypeParam(name source.StringID, owner, index uint32) TypeID {
	return in.appendParam(TypeParamInfo{Name: name, Owner: owner, Index: index})
}

// FreshTypeParam allocates an open copy of the declared parameter param.
// The copy keeps the name and position of the original for labels.
func (in *Interner) FreshTypeParam(param TypeID) TypeID {
	info, ok := in.TypeParamInfo(param)
	if !ok {
		return in.FreshUnknown()
	}
	cp := *info
	cp.Open = true
	if info.Origin != NoTypeID {
		cp.Origin = info.Origin
	} else {
		cp.Origin = param
	}
	return in.appendParam(cp)
}

// TypeParamInfo returns metadata for the provided generic parameter.
func (in *Interner) TypeParamInfo(id TypeID) (*TypeParamInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindGenericParam {
		return nil, false
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.params) {
		return nil, false
	}
	info := in.params[tt.Payload]
	return &info, true
}

// IsOpenParam reports whether id is an unbound open generic parameter.
func (in *Interner) IsOpenParam(id TypeID) bool {
	info, ok := in.TypeParamInfo(in.Resolve(id))
	return ok && info.Open
}

func (in *Interner) appendParam(info TypeParamInfo) TypeID {
	in.params = append(in.params, info)
	slot := mustSlot(len(in.params)-1, "type param")
	return in.internRaw(Type{Kind: KindGenericParam, Payload: slot})
}
