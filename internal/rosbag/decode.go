package rosbag

import "fmt"

// decodeMessage decodes one serialized message against its definition into a
// field name to value map. Nested messages become nested maps, complex
// arrays become []map[string]interface{}. It returns the unconsumed
// remainder of raw.
func decodeMessage(def *MessageDefinition, raw []byte) (map[string]interface{}, []byte, error) {
	values := make(map[string]interface{}, len(def.Fields))

	for _, field := range def.Fields {
		switch {
		case field.Value != nil:
			// constants take no space in the stream
			values[field.Name] = field.Value
		case field.Type != FieldTypeComplex:
			decoders := scalarDecoders
			if field.IsArray {
				decoders = sliceDecoders
			}
			v, off, ok := decoders[field.Type](raw, field.ArraySize)
			if !ok {
				return nil, nil, fmt.Errorf("field %q: %w", field.Name, errInvalidMessage)
			}
			values[field.Name] = v
			raw = raw[off:]
		case field.IsArray:
			length, off, ok := decodeLength(raw, field.ArraySize)
			// an element can't serialize to zero bytes, so the remainder
			// bounds the length before the slice is allocated
			if !ok || length > len(raw)-off {
				return nil, nil, fmt.Errorf("field %q: %w", field.Name, errInvalidMessage)
			}
			raw = raw[off:]

			arr := make([]map[string]interface{}, length)
			for i := range arr {
				var err error
				arr[i], raw, err = decodeMessage(field.Msg, raw)
				if err != nil {
					return nil, nil, fmt.Errorf("field %q: %w", field.Name, err)
				}
			}
			values[field.Name] = arr
		default:
			nested, rest, err := decodeMessage(field.Msg, raw)
			if err != nil {
				return nil, nil, fmt.Errorf("field %q: %w", field.Name, err)
			}
			values[field.Name] = nested
			raw = rest
		}
	}

	return values, raw, nil
}
