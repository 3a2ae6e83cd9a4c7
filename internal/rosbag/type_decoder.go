package rosbag

import (
	"math"
	"time"
)

// fieldDecoder decodes one field value from raw. length is the fixed array
// length, or -1 when the length is encoded in the stream (ignored by scalar
// decoders). off is the number of bytes consumed.
type fieldDecoder func(raw []byte, length int) (v interface{}, off int, ok bool)

var scalarDecoders = map[FieldType]fieldDecoder{
	FieldTypeBool:     scalarOf(1, func(raw []byte) bool { return raw[0] != 0 }),
	FieldTypeInt8:     scalarOf(1, func(raw []byte) int8 { return int8(raw[0]) }),
	FieldTypeUint8:    scalarOf(1, func(raw []byte) uint8 { return raw[0] }),
	FieldTypeInt16:    scalarOf(2, func(raw []byte) int16 { return int16(endian.Uint16(raw)) }),
	FieldTypeUint16:   scalarOf(2, endian.Uint16),
	FieldTypeInt32:    scalarOf(4, func(raw []byte) int32 { return int32(endian.Uint32(raw)) }),
	FieldTypeUint32:   scalarOf(4, endian.Uint32),
	FieldTypeInt64:    scalarOf(8, func(raw []byte) int64 { return int64(endian.Uint64(raw)) }),
	FieldTypeUint64:   scalarOf(8, endian.Uint64),
	FieldTypeFloat32:  scalarOf(4, func(raw []byte) float32 { return math.Float32frombits(endian.Uint32(raw)) }),
	FieldTypeFloat64:  scalarOf(8, func(raw []byte) float64 { return math.Float64frombits(endian.Uint64(raw)) }),
	FieldTypeString:   decodeString,
	FieldTypeTime:     scalarOf(8, extractTime),
	FieldTypeDuration: scalarOf(8, extractDuration),
}

var sliceDecoders = map[FieldType]fieldDecoder{
	FieldTypeBool:     sliceOf(1, func(raw []byte) bool { return raw[0] != 0 }),
	FieldTypeInt8:     sliceOf(1, func(raw []byte) int8 { return int8(raw[0]) }),
	FieldTypeUint8:    sliceOf(1, func(raw []byte) uint8 { return raw[0] }),
	FieldTypeInt16:    sliceOf(2, func(raw []byte) int16 { return int16(endian.Uint16(raw)) }),
	FieldTypeUint16:   sliceOf(2, endian.Uint16),
	FieldTypeInt32:    sliceOf(4, func(raw []byte) int32 { return int32(endian.Uint32(raw)) }),
	FieldTypeUint32:   sliceOf(4, endian.Uint32),
	FieldTypeInt64:    sliceOf(8, func(raw []byte) int64 { return int64(endian.Uint64(raw)) }),
	FieldTypeUint64:   sliceOf(8, endian.Uint64),
	FieldTypeFloat32:  sliceOf(4, func(raw []byte) float32 { return math.Float32frombits(endian.Uint32(raw)) }),
	FieldTypeFloat64:  sliceOf(8, func(raw []byte) float64 { return math.Float64frombits(endian.Uint64(raw)) }),
	FieldTypeString:   decodeStringSlice,
	FieldTypeTime:     sliceOf(8, extractTime),
	FieldTypeDuration: sliceOf(8, extractDuration),
}

// decodeLength resolves an array length: fixed lengths come from the
// definition, dynamic ones from a uint32 prefix in the stream.
func decodeLength(raw []byte, fixed int) (length int, off int, ok bool) {
	if fixed >= 0 {
		return fixed, 0, true
	}
	if len(raw) < lenInBytes {
		return 0, 0, false
	}
	return int(endian.Uint32(raw)), lenInBytes, true
}

func scalarOf[T any](size int, get func([]byte) T) fieldDecoder {
	return func(raw []byte, _ int) (interface{}, int, bool) {
		if len(raw) < size {
			return nil, 0, false
		}
		return get(raw), size, true
	}
}

func sliceOf[T any](size int, get func([]byte) T) fieldDecoder {
	return func(raw []byte, fixed int) (interface{}, int, bool) {
		length, off, ok := decodeLength(raw, fixed)
		if !ok || len(raw)-off < length*size {
			return nil, 0, false
		}

		out := make([]T, length)
		for i := range out {
			out[i] = get(raw[off:])
			off += size
		}
		return out, off, true
	}
}

func decodeString(raw []byte, _ int) (interface{}, int, bool) {
	length, off, ok := decodeLength(raw, -1)
	if !ok || len(raw)-off < length {
		return nil, 0, false
	}
	return string(raw[off : off+length]), off + length, true
}

func decodeStringSlice(raw []byte, fixed int) (interface{}, int, bool) {
	length, off, ok := decodeLength(raw, fixed)
	// each string carries at least its 4-byte length prefix, which bounds a
	// corrupt length before the allocation below
	if !ok || length > (len(raw)-off)/lenInBytes {
		return nil, 0, false
	}

	out := make([]string, length)
	for i := range out {
		v, n, ok := decodeString(raw[off:], -1)
		if !ok {
			return nil, 0, false
		}
		out[i] = v.(string)
		off += n
	}
	return out, off, true
}

func extractTime(raw []byte) time.Time {
	sec := endian.Uint32(raw)
	nsec := endian.Uint32(raw[4:])
	return time.Unix(int64(sec), int64(nsec))
}

func extractDuration(raw []byte) time.Duration {
	sec := endian.Uint32(raw)
	nsec := endian.Uint32(raw[4:])
	return time.Duration(sec)*time.Second + time.Duration(nsec)*time.Nanosecond
}
