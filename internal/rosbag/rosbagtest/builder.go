// Package rosbagtest builds well-formed rosbag v2 byte streams for tests.
package rosbagtest

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"time"

	"github.com/pierrec/lz4/v4"
)

var endian = binary.LittleEndian

// Builder assembles a bag. Records are emitted unchunked unless Chunk is
// used, which both the real format and the decoder allow.
type Builder struct {
	buf   bytes.Buffer
	conns map[string]uint32
	next  uint32
}

func NewBuilder() *Builder {
	b := &Builder{conns: make(map[string]uint32)}
	b.buf.WriteString("#ROSBAG V2.0\n")
	b.record(&b.buf, header(
		field("op", []byte{0x03}),
		field("index_pos", u64(0)),
		field("conn_count", u32(0)),
		field("chunk_count", u32(0)),
	), nil)
	return b
}

// Connection registers a topic with its message definition text and writes
// the connection record.
func (b *Builder) Connection(topic, msgType, definition string) {
	conn, ok := b.conns[topic]
	if !ok {
		conn = b.next
		b.next++
		b.conns[topic] = conn
	}

	data := header(
		field("topic", []byte(topic)),
		field("type", []byte(msgType)),
		field("md5sum", []byte("d41d8cd98f00b204e9800998ecf8427e")),
		field("message_definition", []byte(definition)),
	)
	b.record(&b.buf, header(
		field("op", []byte{0x07}),
		field("conn", u32(conn)),
		field("topic", []byte(topic)),
	), data)
}

// Message writes one message data record for a previously registered topic.
func (b *Builder) Message(topic string, t time.Time, payload []byte) {
	conn, ok := b.conns[topic]
	if !ok {
		panic("rosbagtest: message for unregistered topic " + topic)
	}
	b.record(&b.buf, header(
		field("op", []byte{0x02}),
		field("conn", u32(conn)),
		field("time", stamp(t)),
	), payload)
}

// ChunkLZ4 wraps the records built by fn in an lz4-compressed chunk.
func (b *Builder) ChunkLZ4(fn func(c *Builder)) {
	inner := &Builder{conns: b.conns, next: b.next}
	fn(inner)
	b.next = inner.next

	var compressed bytes.Buffer
	w := lz4.NewWriter(&compressed)
	if _, err := w.Write(inner.buf.Bytes()); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}

	b.record(&b.buf, header(
		field("op", []byte{0x05}),
		field("compression", []byte("lz4")),
		field("size", u32(uint32(inner.buf.Len()))),
	), compressed.Bytes())
}

func (b *Builder) Bytes() []byte {
	return b.buf.Bytes()
}

func (b *Builder) WriteFile(path string) error {
	return os.WriteFile(path, b.Bytes(), 0o644)
}

func (b *Builder) record(w *bytes.Buffer, hdr, data []byte) {
	w.Write(u32(uint32(len(hdr))))
	w.Write(hdr)
	w.Write(u32(uint32(len(data))))
	w.Write(data)
}

// Payload builds a serialized message body field by field, in definition
// order.
type Payload []byte

func (p Payload) Bool(v bool) Payload {
	if v {
		return append(p, 1)
	}
	return append(p, 0)
}

func (p Payload) Uint8(v uint8) Payload { return append(p, v) }

func (p Payload) Int32(v int32) Payload { return append(p, u32(uint32(v))...) }

func (p Payload) Uint32(v uint32) Payload { return append(p, u32(v)...) }

func (p Payload) Int64(v int64) Payload { return append(p, u64(uint64(v))...) }

func (p Payload) Float32(v float32) Payload {
	return append(p, u32(math.Float32bits(v))...)
}

func (p Payload) Float64(v float64) Payload {
	return append(p, u64(math.Float64bits(v))...)
}

func (p Payload) Str(v string) Payload {
	p = append(p, u32(uint32(len(v)))...)
	return append(p, v...)
}

// DynLen writes the uint32 length prefix of a variable-length array.
func (p Payload) DynLen(n int) Payload { return append(p, u32(uint32(n))...) }

func header(fields ...[]byte) []byte {
	var out []byte
	for _, f := range fields {
		out = append(out, u32(uint32(len(f)))...)
		out = append(out, f...)
	}
	return out
}

func field(name string, value []byte) []byte {
	out := append([]byte(name), '=')
	return append(out, value...)
}

func u32(v uint32) []byte {
	out := make([]byte, 4)
	endian.PutUint32(out, v)
	return out
}

func u64(v uint64) []byte {
	out := make([]byte, 8)
	endian.PutUint64(out, v)
	return out
}

func stamp(t time.Time) []byte {
	out := make([]byte, 8)
	endian.PutUint32(out, uint32(t.Unix()))
	endian.PutUint32(out[4:], uint32(t.Nanosecond()))
	return out
}
