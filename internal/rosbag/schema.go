package rosbag

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
)

var (
	errUnresolvedMsgType = errors.New("failed to resolve a complex message type")
	errInvalidConstType  = errors.New("invalid const type")
	errInvalidDefinition = errors.New("invalid message definition")
)

// FieldType enumerates the builtin field types of the ROS msg language plus
// FieldTypeComplex for nested message types.
type FieldType uint8

const (
	FieldTypeBool FieldType = iota + 1
	FieldTypeInt8
	FieldTypeUint8
	FieldTypeInt16
	FieldTypeUint16
	FieldTypeInt32
	FieldTypeUint32
	FieldTypeInt64
	FieldTypeUint64
	FieldTypeFloat32
	FieldTypeFloat64
	FieldTypeString
	FieldTypeTime
	FieldTypeDuration
	FieldTypeComplex
)

var fieldTypeNames = map[string]FieldType{
	"bool":     FieldTypeBool,
	"int8":     FieldTypeInt8,
	"byte":     FieldTypeInt8,
	"uint8":    FieldTypeUint8,
	"char":     FieldTypeUint8,
	"int16":    FieldTypeInt16,
	"uint16":   FieldTypeUint16,
	"int32":    FieldTypeInt32,
	"uint32":   FieldTypeUint32,
	"int64":    FieldTypeInt64,
	"uint64":   FieldTypeUint64,
	"float32":  FieldTypeFloat32,
	"float64":  FieldTypeFloat64,
	"string":   FieldTypeString,
	"time":     FieldTypeTime,
	"duration": FieldTypeDuration,
}

// MessageDefinition is the explicit schema descriptor for one message type:
// an ordered list of field definitions, parsed once per connection from the
// msg text stored in the bag. See http://wiki.ros.org/msg.
type MessageDefinition struct {
	Type   string
	Fields []*FieldDefinition
}

type FieldDefinition struct {
	Type FieldType
	Name string
	// IsArray is set for both fixed arrays and variable-length sequences.
	IsArray bool
	// ArraySize is the fixed array length, or -1 for variable-length.
	ArraySize int
	// Value holds the constant's value for constant fields, otherwise nil.
	Value interface{}
	// Msg is the nested definition when Type is FieldTypeComplex.
	Msg *MessageDefinition
}

// ParseMessageDefinition parses a msg definition text, including the
// concatenated dependent definitions that bags embed after "MSG:" separator
// lines.
func ParseMessageDefinition(b []byte) (*MessageDefinition, error) {
	def := &MessageDefinition{}
	unresolved := make(map[*FieldDefinition][]byte)
	defs := []*MessageDefinition{def}

	for _, line := range bytes.Split(b, []byte("\n")) {
		if idx := bytes.IndexByte(line, '#'); idx != -1 {
			line = line[:idx]
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		// a leading '=' is a separator line between embedded definitions
		if line[0] == '=' {
			continue
		}

		// "MSG: pkg/Type" starts an embedded dependent definition
		if idx := bytes.IndexByte(line, ':'); idx != -1 {
			idx = bytes.LastIndexByte(line, ' ')
			defs = append(defs, &MessageDefinition{Type: string(line[idx+1:])})
			continue
		}

		idx := bytes.IndexByte(line, ' ')
		if idx == -1 {
			return nil, errInvalidDefinition
		}
		fieldType := line[:idx]
		fieldName := bytes.TrimSpace(line[idx+1:])

		isArray := false
		arraySize := -1
		if idx := bytes.IndexByte(fieldType, '['); idx != -1 {
			off := bytes.IndexByte(fieldType[idx:], ']')
			if off > 1 {
				n, err := strconv.Atoi(string(fieldType[idx+1 : idx+off]))
				if err != nil {
					return nil, err
				}
				arraySize = n
			}
			fieldType = fieldType[:idx]
			isArray = true
		}

		ft, ok := fieldTypeNames[string(fieldType)]
		if !ok {
			ft = FieldTypeComplex
		}

		// constant, e.g. "int32 X=123"
		var constValue interface{}
		if idx := bytes.IndexByte(fieldName, '='); idx != -1 {
			var err error
			constValue, err = parseConstValue(ft, bytes.TrimSpace(fieldName[idx+1:]))
			if err != nil {
				return nil, err
			}
			fieldName = bytes.TrimSpace(fieldName[:idx])
		}

		field := &FieldDefinition{
			Type:      ft,
			Name:      string(fieldName),
			IsArray:   isArray,
			ArraySize: arraySize,
			Value:     constValue,
		}
		if ft == FieldTypeComplex {
			unresolved[field] = fieldType
		}

		cur := defs[len(defs)-1]
		cur.Fields = append(cur.Fields, field)
	}

	for field, msgType := range unresolved {
		msgDef := findEmbeddedDefinition(defs, string(msgType))
		if msgDef == nil {
			return nil, errUnresolvedMsgType
		}
		field.Msg = msgDef
	}

	return def, nil
}

// parseConstValue decodes a constant's ASCII value. Constants can be any
// builtin type except time and duration.
// Reference: http://wiki.ros.org/msg#Constants
func parseConstValue(fieldType FieldType, raw []byte) (interface{}, error) {
	rawStr := string(raw)

	switch fieldType {
	case FieldTypeBool:
		return strconv.ParseBool(rawStr)
	case FieldTypeInt8:
		v, err := strconv.ParseInt(rawStr, 10, 8)
		return int8(v), err
	case FieldTypeUint8:
		v, err := strconv.ParseUint(rawStr, 10, 8)
		return uint8(v), err
	case FieldTypeInt16:
		v, err := strconv.ParseInt(rawStr, 10, 16)
		return int16(v), err
	case FieldTypeUint16:
		v, err := strconv.ParseUint(rawStr, 10, 16)
		return uint16(v), err
	case FieldTypeInt32:
		v, err := strconv.ParseInt(rawStr, 10, 32)
		return int32(v), err
	case FieldTypeUint32:
		v, err := strconv.ParseUint(rawStr, 10, 32)
		return uint32(v), err
	case FieldTypeInt64:
		return strconv.ParseInt(rawStr, 10, 64)
	case FieldTypeUint64:
		return strconv.ParseUint(rawStr, 10, 64)
	case FieldTypeFloat32:
		v, err := strconv.ParseFloat(rawStr, 32)
		return float32(v), err
	case FieldTypeFloat64:
		return strconv.ParseFloat(rawStr, 64)
	case FieldTypeString:
		return rawStr, nil
	default:
		return nil, errInvalidConstType
	}
}

// findEmbeddedDefinition resolves msgType against the embedded definitions.
// msgType may omit the package name prefix.
func findEmbeddedDefinition(defs []*MessageDefinition, msgType string) *MessageDefinition {
	for _, cur := range defs {
		if strings.HasSuffix(cur.Type, msgType) {
			return cur
		}
	}
	return nil
}
