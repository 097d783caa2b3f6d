package types

import (
	"strconv"
	"strings"

	"keel/internal/source"
)

// Label returns a user-friendly label for a TypeID.
func Label(typesIn *Interner, id TypeID) string {
	return labelDepth(typesIn, id, 0)
}

func labelDepth(typesIn *Interner, id TypeID, depth int) string {
	if id == NoTypeID || typesIn == nil {
		return "?"
	}
	if depth > 8 {
		return "..."
	}
	id = typesIn.Resolve(id)
	tt, ok := typesIn.Lookup(id)
	if !ok {
		return "?"
	}
	switch tt.Kind {
	case KindTuple:
		info, _ := typesIn.TupleInfo(id)
		if info == nil || len(info.Elems) == 0 {
			return "()"
		}
		parts := make([]string, len(info.Elems))
		for i, e := range info.Elems {
			parts[i] = labelDepth(typesIn, e, depth+1)
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindBool:
		return "bool"
	case KindUint:
		if tt.Width == WidthAny {
			return "uint"
		}
		return "u" + strconv.Itoa(int(tt.Width))
	case KindB256:
		return "b256"
	case KindStr:
		return "str"
	case KindNumeric:
		return "{numeric}"
	case KindUnknown:
		return "{unknown}"
	case KindSelf:
		return "Self"
	case KindErrorRecovery:
		return "{error}"
	case KindGenericParam:
		info, ok := typesIn.TypeParamInfo(id)
		if !ok {
			return "?"
		}
		return typesIn.name(info.Name, "T")
	case KindStruct:
		info, ok := typesIn.StructInfo(id)
		if !ok {
			return "?"
		}
		name := typesIn.name(info.Name, "struct")
		if len(info.Args) == 0 {
			return name
		}
		args := make([]string, len(info.Args))
		for i, a := range info.Args {
			args[i] = labelDepth(typesIn, a, depth+1)
		}
		return name + "<" + strings.Join(args, ", ") + ">"
	default:
		return tt.Kind.String()
	}
}

func (in *Interner) name(id source.StringID, fallback string) string {
	if in.strings == nil {
		return fallback
	}
	if s, ok := in.strings.Lookup(id); ok && s != "" {
		return s
	}
	return fallback
}
