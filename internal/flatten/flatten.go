package flatten

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roslabs/bag2table/internal/rosbag"
)

// Kind is the column type of a flattened field.
type Kind uint8

const (
	KindBool Kind = iota + 1
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	// KindTime columns hold int64 nanoseconds since the Unix epoch.
	KindTime
	// KindDuration columns hold int64 nanoseconds.
	KindDuration
	// KindJSON columns hold a JSON string rendering of a value that has no
	// scalar representation (variable-length sequences, nested arrays).
	KindJSON
)

var scalarKinds = map[rosbag.FieldType]Kind{
	rosbag.FieldTypeBool:     KindBool,
	rosbag.FieldTypeInt8:     KindInt8,
	rosbag.FieldTypeUint8:    KindUint8,
	rosbag.FieldTypeInt16:    KindInt16,
	rosbag.FieldTypeUint16:   KindUint16,
	rosbag.FieldTypeInt32:    KindInt32,
	rosbag.FieldTypeUint32:   KindUint32,
	rosbag.FieldTypeInt64:    KindInt64,
	rosbag.FieldTypeUint64:   KindUint64,
	rosbag.FieldTypeFloat32:  KindFloat32,
	rosbag.FieldTypeFloat64:  KindFloat64,
	rosbag.FieldTypeString:   KindString,
	rosbag.FieldTypeTime:     KindTime,
	rosbag.FieldTypeDuration: KindDuration,
}

// Column is one flattened output column: a dotted field path and its kind.
type Column struct {
	Path string
	Kind Kind
}

// UnsupportedFieldError reports a field with no scalar or string
// representation. The field is omitted from the schema; flattening
// continues for the remaining fields.
type UnsupportedFieldError struct {
	Path   string
	Reason string
}

func (e *UnsupportedFieldError) Error() string {
	return fmt.Sprintf("unsupported field %q: %s", e.Path, e.Reason)
}

// Row maps a column path to a scalar cell value.
type Row map[string]interface{}

// Schema is the flattening descriptor for one topic, derived once from the
// topic's message definition and reused for every message.
type Schema struct {
	Columns []Column

	kinds   map[string]Kind
	fixed   map[string]int  // base path -> fixed array width, expanded to indexed columns
	skipped map[string]bool // base paths of unsupported fields, ignored while flattening
}

// NewSchema derives the ordered column set from a message definition.
// Fields that cannot be represented are reported as UnsupportedFieldError
// values and skipped; the schema stays usable for the representable rest.
func NewSchema(def *rosbag.MessageDefinition) (*Schema, []error) {
	s := &Schema{
		kinds:   make(map[string]Kind),
		fixed:   make(map[string]int),
		skipped: make(map[string]bool),
	}
	errs := s.walk(def, "")
	return s, errs
}

func (s *Schema) walk(def *rosbag.MessageDefinition, prefix string) []error {
	var errs []error

	for _, field := range def.Fields {
		path := field.Name
		if prefix != "" {
			path = prefix + "." + field.Name
		}

		kind, scalar := scalarKinds[field.Type]
		switch {
		case !scalar && field.Type != rosbag.FieldTypeComplex:
			s.skipped[path] = true
			errs = append(errs, &UnsupportedFieldError{Path: path, Reason: "unknown field type"})
		case field.Type == rosbag.FieldTypeUint8 && field.IsArray:
			// byte arrays are opaque binary blobs with no defined encoding
			s.skipped[path] = true
			errs = append(errs, &UnsupportedFieldError{Path: path, Reason: "binary blob"})
		case field.Type == rosbag.FieldTypeComplex && field.Msg == nil:
			s.skipped[path] = true
			errs = append(errs, &UnsupportedFieldError{Path: path, Reason: "unresolved message type"})
		case field.IsArray && field.ArraySize >= 0 && scalar:
			// fixed array of scalars expands to indexed columns
			s.fixed[path] = field.ArraySize
			for i := 0; i < field.ArraySize; i++ {
				s.addColumn(fmt.Sprintf("%s.%d", path, i), kind)
			}
		case field.IsArray:
			// variable-length sequences and arrays of messages are kept as
			// one JSON string column
			s.addColumn(path, KindJSON)
		case field.Type == rosbag.FieldTypeComplex:
			errs = append(errs, s.walk(field.Msg, path)...)
		default:
			s.addColumn(path, kind)
		}
	}

	return errs
}

func (s *Schema) addColumn(path string, kind Kind) {
	if _, ok := s.kinds[path]; ok {
		return
	}
	s.kinds[path] = kind
	s.Columns = append(s.Columns, Column{Path: path, Kind: kind})
}

// Flatten converts one decoded message into a Row. Keys with no matching
// schema column are still emitted (the accumulator reports them as drift);
// fields skipped as unsupported are ignored.
func (s *Schema) Flatten(values map[string]interface{}) Row {
	row := make(Row, len(s.Columns))
	s.flattenMap(values, "", row)
	return row
}

func (s *Schema) flattenMap(values map[string]interface{}, prefix string, row Row) {
	for name, value := range values {
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		if s.skipped[path] {
			continue
		}

		switch v := value.(type) {
		case map[string]interface{}:
			s.flattenMap(v, path, row)
		case time.Time:
			row[path] = v.UnixNano()
		case time.Duration:
			row[path] = int64(v)
		case string, bool,
			int8, uint8, int16, uint16, int32, uint32, int64, uint64,
			float32, float64:
			row[path] = v
		default:
			s.flattenSequence(value, path, row)
		}
	}
}

// flattenSequence handles slice values: fixed scalar arrays become indexed
// cells, everything else becomes a JSON cell.
func (s *Schema) flattenSequence(value interface{}, path string, row Row) {
	if width, ok := s.fixed[path]; ok {
		cells := indexedCells(value)
		for i := 0; i < width && i < len(cells); i++ {
			row[fmt.Sprintf("%s.%d", path, i)] = cells[i]
		}
		return
	}

	row[path] = jsonCell(value)
}

func indexedCells(value interface{}) []interface{} {
	switch v := value.(type) {
	case []bool:
		return toCells(v)
	case []int8:
		return toCells(v)
	case []int16:
		return toCells(v)
	case []uint16:
		return toCells(v)
	case []int32:
		return toCells(v)
	case []uint32:
		return toCells(v)
	case []int64:
		return toCells(v)
	case []uint64:
		return toCells(v)
	case []float32:
		return toCells(v)
	case []float64:
		return toCells(v)
	case []string:
		return toCells(v)
	case []time.Time:
		cells := make([]interface{}, len(v))
		for i, t := range v {
			cells[i] = t.UnixNano()
		}
		return cells
	case []time.Duration:
		cells := make([]interface{}, len(v))
		for i, d := range v {
			cells[i] = int64(d)
		}
		return cells
	default:
		return nil
	}
}

func toCells[T any](v []T) []interface{} {
	cells := make([]interface{}, len(v))
	for i := range v {
		cells[i] = v[i]
	}
	return cells
}

// jsonCell renders a value deterministically: encoding/json sorts map keys,
// so identical inputs always produce identical strings.
func jsonCell(value interface{}) string {
	b, err := json.Marshal(normalizeJSON(value))
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(b)
}

// normalizeJSON rewrites time values to int64 nanoseconds so that JSON
// cells use the same representation as scalar time columns.
func normalizeJSON(value interface{}) interface{} {
	switch v := value.(type) {
	case time.Time:
		return v.UnixNano()
	case time.Duration:
		return int64(v)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			out[k] = normalizeJSON(item)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = normalizeJSON(item)
		}
		return out
	case []time.Time:
		out := make([]interface{}, len(v))
		for i, t := range v {
			out[i] = t.UnixNano()
		}
		return out
	case []time.Duration:
		out := make([]interface{}, len(v))
		for i, d := range v {
			out[i] = int64(d)
		}
		return out
	default:
		return v
	}
}
