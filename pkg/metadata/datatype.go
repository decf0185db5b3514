package metadata

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/matzehuels/neptune-utils/pkg/errors"
)

// DataType is the type of a property value. The declaration order is
// significant: BroadestType widens numeric types towards the later ones.
type DataType int

const (
	None DataType = iota
	Boolean
	Byte
	Short
	Integer
	Long
	Float
	Double
	String
	Date
)

var dataTypeNames = [...]string{
	None:    "None",
	Boolean: "Boolean",
	Byte:    "Byte",
	Short:   "Short",
	Integer: "Integer",
	Long:    "Long",
	Float:   "Float",
	Double:  "Double",
	String:  "String",
	Date:    "Date",
}

func (t DataType) String() string {
	if t < None || t > Date {
		return fmt.Sprintf("DataType(%d)", int(t))
	}
	return dataTypeNames[t]
}

// ParseDataType parses a type name as written in metadata files and bulk
// load headers. Matching is case-insensitive and accepts the loader's
// short forms (bool, int).
func ParseDataType(name string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return None, nil
	case "bool", "boolean":
		return Boolean, nil
	case "byte":
		return Byte, nil
	case "short":
		return Short, nil
	case "int", "integer":
		return Integer, nil
	case "long":
		return Long, nil
	case "float":
		return Float, nil
	case "double":
		return Double, nil
	case "string":
		return String, nil
	case "date", "datetime":
		return Date, nil
	}
	return None, errors.New(errors.ErrCodeInvalidFormat, "unknown data type %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (t DataType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *DataType) UnmarshalText(b []byte) error {
	parsed, err := ParseDataType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TypeDescription is the suffix used in bulk load CSV headers, for
// example ":int" in "age:int".
func (t DataType) TypeDescription() string {
	switch t {
	case None:
		return ""
	case Boolean:
		return ":bool"
	case Integer:
		return ":int"
	}
	return ":" + strings.ToLower(t.String())
}

// Format renders a single value for a CSV cell.
func (t DataType) Format(v any) string {
	switch t {
	case String:
		return `"` + doubleQuotes(v) + `"`
	case Date:
		return formatDate(v)
	}
	return fmt.Sprint(v)
}

// FormatList renders a multi-valued property for a CSV cell. String values
// share one quoted field.
func (t DataType) FormatList(values []any) string {
	parts := make([]string, len(values))
	if t == String {
		for i, v := range values {
			parts[i] = doubleQuotes(v)
		}
		return `"` + strings.Join(parts, ";") + `"`
	}
	for i, v := range values {
		parts[i] = t.Format(v)
	}
	return strings.Join(parts, ";")
}

// JSONValue converts v to the value written by the JSON exporter: native
// booleans and numbers, dates as ISO-8601 strings, everything else as a
// string. NaN and the infinities have no JSON number form and are written
// as "NaN", "Infinity" and "-Infinity".
func (t DataType) JSONValue(v any) any {
	switch t {
	case Boolean:
		if b, ok := v.(bool); ok {
			return b
		}
	case Byte, Short, Integer, Long, Float, Double:
		switch x := v.(type) {
		case int, int8, int16, int32, int64, uint8, uint16, uint32, uint64:
			return v
		case float32:
			return jsonFloat(float64(x), v)
		case float64:
			return jsonFloat(x, v)
		}
	case Date:
		return formatDate(v)
	}
	return fmt.Sprint(v)
}

func jsonFloat(f float64, v any) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return v
}

func doubleQuotes(v any) string {
	return strings.ReplaceAll(fmt.Sprint(v), `"`, `""`)
}

// formatDate prints an ISO-8601 instant with the fraction in groups of
// three digits: none, milliseconds, microseconds or nanoseconds.
func formatDate(v any) string {
	tm, ok := v.(time.Time)
	if !ok {
		return fmt.Sprint(v)
	}
	tm = tm.UTC()
	switch ns := tm.Nanosecond(); {
	case ns == 0:
		return tm.Format("2006-01-02T15:04:05Z07:00")
	case ns%1_000_000 == 0:
		return tm.Format("2006-01-02T15:04:05.000Z07:00")
	case ns%1_000 == 0:
		return tm.Format("2006-01-02T15:04:05.000000Z07:00")
	}
	return tm.Format("2006-01-02T15:04:05.000000000Z07:00")
}

// DataTypeFor returns the data type of a decoded GraphSON value. Unknown
// types are treated as strings.
func DataTypeFor(v any) DataType {
	switch v.(type) {
	case bool:
		return Boolean
	case int8, uint8:
		return Byte
	case int16:
		return Short
	case int32, int, uint16:
		return Integer
	case int64, uint32, uint64:
		return Long
	case float32:
		return Float
	case float64:
		return Double
	case time.Time:
		return Date
	case nil:
		return None
	}
	return String
}

// BroadestType returns a type that can hold values of both types.
func BroadestType(oldType, newType DataType) DataType {
	switch {
	case oldType == newType:
		return newType
	case oldType == None:
		return newType
	case oldType == Boolean:
		return String
	case oldType == String || newType == String:
		return String
	case newType > oldType:
		return newType
	}
	return oldType
}
