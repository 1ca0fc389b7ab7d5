package qvalue

// TypeKind enumerates the scalar kinds a model field can declare.
type TypeKind int

const (
	KindString TypeKind = iota
	KindInt
	KindFloat
	KindBool
	KindDateTime
	KindEnum
	KindJSON
)

// String returns the lowercase name used in plan documents and diagnostics.
func (k TypeKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindDateTime:
		return "datetime"
	case KindEnum:
		return "enum"
	case KindJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseTypeKind parses the plan-document spelling of a type kind.
func ParseTypeKind(s string) (TypeKind, bool) {
	switch s {
	case "string":
		return KindString, true
	case "int":
		return KindInt, true
	case "float":
		return KindFloat, true
	case "bool":
		return KindBool, true
	case "datetime":
		return KindDateTime, true
	case "enum":
		return KindEnum, true
	case "json":
		return KindJSON, true
	default:
		return 0, false
	}
}

// FieldType describes the declared type of a model field or placeholder.
type FieldType struct {
	Kind TypeKind
	List bool

	// Enum holds the declared member names when Kind is KindEnum.
	// Consumed by the result-structure mapper's enum dictionaries.
	Enum []string
}

// AsList returns a copy of the type promoted to a list type.
func (t FieldType) AsList() FieldType {
	t.List = true
	return t
}
