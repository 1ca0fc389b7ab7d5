package qvalue

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

func sortedKeys(obj Object) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Value is a sealed interface over the value types that flow through
// filters, write arguments, placeholders and result rows.
// Only the types in this package implement it, which keeps type switches
// in the query builders and the interpreter exhaustive.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents a database NULL.
// An explicit type (rather than a nil interface) so every Value satisfies
// the sealed interface.
type Null struct{}

func (Null) value() {}

// String represents a text value.
type String string

func (String) value() {}

// Int represents an integer value. Always int64.
type Int int64

func (Int) value() {}

// Float represents a double-precision value.
type Float float64

func (Float) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// DateTime represents a timestamp. Always normalized to UTC at the
// boundary (see NormalizeDateTime) so that parameter encoding is
// independent of the session time zone.
type DateTime time.Time

func (DateTime) value() {}

// Enum represents a named enum member.
type Enum string

func (Enum) value() {}

// List represents an ordered collection of values.
type List []Value

func (List) value() {}

// Object represents a record-shaped value keyed by field name.
type Object map[string]Value

func (Object) value() {}

// Placeholder is a value that is not known at build time: it names a
// binding produced by an earlier step of the same program. The declared
// type mirrors the projected field, promoted to a list type when the
// consumer accepts multiple rows.
type Placeholder struct {
	Name string
	Type FieldType
}

func (Placeholder) value() {}

// NormalizeDateTime parses a string timestamp into a DateTime in UTC.
// Accepts RFC 3339 with or without fractional seconds.
func NormalizeDateTime(s string) (DateTime, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateTime(t.UTC()), nil
		}
	}
	return DateTime{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Raw converts a Value to the native Go representation expected by
// database/sql parameters. Placeholders have no raw form: resolving them
// is the interpreter's job, and reaching one here is a programming error
// surfaced as an error rather than a panic.
func Raw(v Value) (any, error) {
	switch val := v.(type) {
	case Null:
		return nil, nil
	case String:
		return string(val), nil
	case Int:
		return int64(val), nil
	case Float:
		return float64(val), nil
	case Bool:
		return bool(val), nil
	case DateTime:
		return time.Time(val).UTC().Format(time.RFC3339Nano), nil
	case Enum:
		return string(val), nil
	case List:
		return nil, fmt.Errorf("list values cannot be used as a single parameter")
	case Object:
		return nil, fmt.Errorf("object values cannot be used as a single parameter")
	case Placeholder:
		return nil, fmt.Errorf("unresolved placeholder %q", val.Name)
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// FromRaw converts a value scanned from database/sql into a Value.
func FromRaw(v any) Value {
	switch val := v.(type) {
	case nil:
		return Null{}
	case string:
		return String(val)
	case []byte:
		return String(string(val))
	case int64:
		return Int(val)
	case int:
		return Int(int64(val))
	case float64:
		return Float(val)
	case bool:
		return Bool(val)
	case time.Time:
		return DateTime(val.UTC())
	default:
		return String(fmt.Sprintf("%v", val))
	}
}

// Display renders a value for diagnostics. Not a stability-bearing format.
func Display(v Value) string {
	switch val := v.(type) {
	case Null:
		return "null"
	case String:
		return strconv.Quote(string(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(val))
	case DateTime:
		return time.Time(val).UTC().Format(time.RFC3339Nano)
	case Enum:
		return string(val)
	case List:
		s := "["
		for i, elem := range val {
			if i > 0 {
				s += ", "
			}
			s += Display(elem)
		}
		return s + "]"
	case Object:
		s := "{"
		for i, k := range sortedKeys(val) {
			if i > 0 {
				s += ", "
			}
			s += k + ": " + Display(val[k])
		}
		return s + "}"
	case Placeholder:
		if val.Type.List {
			return "var(" + val.Name + ": " + val.Type.Kind.String() + "[])"
		}
		return "var(" + val.Name + ": " + val.Type.Kind.String() + ")"
	default:
		return fmt.Sprintf("<%T>", v)
	}
}
