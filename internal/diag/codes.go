package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// name and path resolution
	SemaInfo               Code = 3000
	SemaUnresolvedSymbol   Code = 3001
	SemaModuleNotFound     Code = 3002
	SemaSymbolIsPrivate    Code = 3003
	SemaDuplicateSymbol    Code = 3004
	SemaUnknownType        Code = 3005
	SemaNotAStruct         Code = 3006
	SemaTypeArgsAsPrefix   Code = 3007
	SemaTypeArgsNotAllowed Code = 3008
	SemaTypeArgCount       Code = 3009
	SemaGenericShadowing   Code = 3010
	SemaNotAFunction       Code = 3011
	SemaArgumentCount      Code = 3012
	SemaUnknownIntrinsic   Code = 3013
	SemaIntrinsicArgs      Code = 3014
	SemaReturnOutsideFn    Code = 3015
	SemaSelfOutsideImpl    Code = 3016
	SemaInvalidLiteral     Code = 3017
	SemaMissingInitializer Code = 3018

	// struct declarations and instantiation
	SemaStructMissingFields        Code = 3100
	SemaStructCannotBeInstantiated Code = 3102
	SemaStructNoSuchField          Code = 3103
	SemaStructFieldIsPrivate       Code = 3104
	SemaStructDuplicateField       Code = 3105

	// unification
	SemaTypeMismatch  Code = 3200
	SemaRecursiveType Code = 3201

	// whole-program validation
	ProgInfo               Code = 4000
	ProgMissingMain        Code = 4001
	ProgMultipleMain       Code = 4002
	ProgMainNotAllowed     Code = 4003
	ProgPredicateNotBool   Code = 4004
	ProgMultipleStorage    Code = 4005
	ProgStorageNotAllowed  Code = 4006
	ProgConfigurableNotPub Code = 4007
	ProgStorageNotConst    Code = 4008
	ProgEntryReserved      Code = 4009

	// module graph
	ProjInfo            Code = 5000
	ProjImportCycle     Code = 5001
	ProjMissingModule   Code = 5002
	ProjSelfImport      Code = 5003
	ProjDuplicateModule Code = 5004

	// packages
	ProjBrokenDependency Code = 5100
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown error",

	SemaInfo:               "Semantic information",
	SemaUnresolvedSymbol:   "Unresolved symbol",
	SemaModuleNotFound:     "Module not found",
	SemaSymbolIsPrivate:    "Symbol is private",
	SemaDuplicateSymbol:    "Duplicate symbol",
	SemaUnknownType:        "Unknown type",
	SemaNotAStruct:         "Not a struct",
	SemaTypeArgsAsPrefix:   "Type arguments not accepted as prefix",
	SemaTypeArgsNotAllowed: "Type arguments not allowed",
	SemaTypeArgCount:       "Wrong number of type arguments",
	SemaGenericShadowing:   "Generic parameter shadows another",
	SemaNotAFunction:       "Not a function",
	SemaArgumentCount:      "Wrong number of arguments",
	SemaUnknownIntrinsic:   "Unknown intrinsic",
	SemaIntrinsicArgs:      "Invalid intrinsic arguments",
	SemaReturnOutsideFn:    "Return outside of function",
	SemaSelfOutsideImpl:    "Self used outside of a declaration",
	SemaInvalidLiteral:     "Invalid literal",
	SemaMissingInitializer: "Missing initializer",

	SemaStructMissingFields:        "Struct instantiation has missing fields",
	SemaStructCannotBeInstantiated: "Struct cannot be instantiated",
	SemaStructNoSuchField:          "Struct does not have field",
	SemaStructFieldIsPrivate:       "Struct field is private",
	SemaStructDuplicateField:       "Duplicate struct field",

	SemaTypeMismatch:  "Mismatched types",
	SemaRecursiveType: "Recursive type",

	ProgInfo:               "Program information",
	ProgMissingMain:        "Missing main function",
	ProgMultipleMain:       "Multiple main functions",
	ProgMainNotAllowed:     "Main function not allowed",
	ProgPredicateNotBool:   "Predicate main must return bool",
	ProgMultipleStorage:    "Multiple storage declarations",
	ProgStorageNotAllowed:  "Storage declaration not allowed",
	ProgConfigurableNotPub: "Configurable must be declared at top level",
	ProgStorageNotConst:    "Storage initializer is not constant",
	ProgEntryReserved:      "Reserved entry point name",

	ProjInfo:            "Project information",
	ProjImportCycle:     "Module dependency cycle",
	ProjMissingModule:   "Missing module",
	ProjSelfImport:      "Module references itself",
	ProjDuplicateModule: "Duplicate module",

	ProjBrokenDependency: "Dependency has errors",
}

// ID is the stable short form used in rendered output, e.g. SEM3102.
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("PRG%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	default:
		return fmt.Sprintf("E%04d", ic)
	}
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
