package coerce

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind is the closed set of primitive value kinds a tag can be written as.
type Kind int

const (
	KindUnknown Kind = iota
	KindSByte
	KindByte
	KindInt16
	KindUInt16
	KindInt32
	KindUInt32
	KindInt64
	KindUInt64
	KindFloat
	KindDouble
	KindDecimal
	KindBool
	KindString
)

var kindNames = map[Kind]string{
	KindUnknown: "Unknown",
	KindSByte:   "SByte",
	KindByte:    "Byte",
	KindInt16:   "Int16",
	KindUInt16:  "UInt16",
	KindInt32:   "Int32",
	KindUInt32:  "UInt32",
	KindInt64:   "Int64",
	KindUInt64:  "UInt64",
	KindFloat:   "Float",
	KindDouble:  "Double",
	KindDecimal: "Decimal",
	KindBool:    "Boolean",
	KindString:  "String",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsInteger reports whether k is one of the 16/32/64-bit integer kinds.
// SByte and Byte are not included.
func (k Kind) IsInteger() bool {
	switch k {
	case KindInt16, KindUInt16, KindInt32, KindUInt32, KindInt64, KindUInt64:
		return true
	}
	return false
}

// IsFloating reports whether k is parsed with the flexible numeric parser.
func (k Kind) IsFloating() bool {
	return k == KindFloat || k == KindDouble || k == KindDecimal
}

// typeNames maps lower-cased server type names to kinds. Covers .NET
// names (with the "system." prefix stripped), OPC UA built-in type names
// and Go type names.
var typeNames = map[string]Kind{
	"sbyte":   KindSByte,
	"int8":    KindSByte,
	"byte":    KindByte,
	"uint8":   KindByte,
	"int16":   KindInt16,
	"short":   KindInt16,
	"uint16":  KindUInt16,
	"ushort":  KindUInt16,
	"int32":   KindInt32,
	"int":     KindInt32,
	"uint32":  KindUInt32,
	"uint":    KindUInt32,
	"int64":   KindInt64,
	"long":    KindInt64,
	"uint64":  KindUInt64,
	"ulong":   KindUInt64,
	"single":  KindFloat,
	"float":   KindFloat,
	"float32": KindFloat,
	"double":  KindDouble,
	"float64": KindDouble,
	"decimal": KindDecimal,
	"boolean": KindBool,
	"bool":    KindBool,
	"string":  KindString,
}

// Classify maps a server-reported data type name to a Kind. Unrecognized
// or empty names yield KindUnknown.
func Classify(typeName string) Kind {
	name := strings.ToLower(strings.TrimSpace(typeName))
	name = strings.TrimPrefix(name, "system.")
	if k, ok := typeNames[name]; ok {
		return k
	}
	return KindUnknown
}

// ClassifyValue inspects the runtime type of a value read from a tag.
func ClassifyValue(v any) Kind {
	switch v.(type) {
	case int8:
		return KindSByte
	case uint8:
		return KindByte
	case int16:
		return KindInt16
	case uint16:
		return KindUInt16
	case int32:
		return KindInt32
	case uint32:
		return KindUInt32
	case int64, int:
		return KindInt64
	case uint64, uint:
		return KindUInt64
	case float32:
		return KindFloat
	case float64:
		return KindDouble
	case decimal.Decimal, *decimal.Decimal:
		return KindDecimal
	case bool:
		return KindBool
	case string:
		return KindString
	}
	return KindUnknown
}

var hintNames = map[string]Kind{
	"sbyte": KindSByte, "i8": KindSByte, "int8": KindSByte,
	"byte": KindByte, "u8": KindByte, "uint8": KindByte,
	"i16": KindInt16, "int16": KindInt16, "short": KindInt16,
	"u16": KindUInt16, "uint16": KindUInt16, "ushort": KindUInt16,
	"i": KindInt32, "i32": KindInt32, "int": KindInt32, "int32": KindInt32, "integer": KindInt32,
	"u32": KindUInt32, "uint32": KindUInt32, "uint": KindUInt32,
	"i64": KindInt64, "int64": KindInt64, "long": KindInt64,
	"u64": KindUInt64, "uint64": KindUInt64, "ulong": KindUInt64,
	"f": KindFloat, "float": KindFloat, "single": KindFloat, "float32": KindFloat, "r4": KindFloat,
	"d": KindDouble, "double": KindDouble, "float64": KindDouble, "r8": KindDouble,
	"m": KindDecimal, "dec": KindDecimal, "decimal": KindDecimal,
	"b": KindBool, "bool": KindBool, "boolean": KindBool,
	"s": KindString, "str": KindString, "string": KindString, "text": KindString,
}

// UnknownHintError is returned for a type hint outside the synonym table.
type UnknownHintError struct {
	Hint string
}

func (e *UnknownHintError) Error() string {
	return fmt.Sprintf("unknown type hint %q", e.Hint)
}

// ParseHint maps a user type hint (the part after "TAG:") to a Kind.
func ParseHint(hint string) (Kind, error) {
	if k, ok := hintNames[strings.ToLower(strings.TrimSpace(hint))]; ok {
		return k, nil
	}
	return KindUnknown, &UnknownHintError{Hint: hint}
}
