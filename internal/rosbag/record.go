package rosbag

import (
	"bytes"
	"errors"
	"fmt"
	"time"
)

var (
	errInvalidHeader  = errors.New("invalid record header")
	errInvalidOp      = errors.New("invalid record op")
	errMissingConn    = errors.New("message data references an unknown connection")
	errMissingField   = errors.New("missing required header field")
	errInvalidMessage = errors.New("message data does not match its definition")
)

// Record is a single decoded record from a bag. The concrete type depends on
// the record's op.
type Record interface {
	Op() Op
}

// iterateHeaderFields walks a record header, which is a sequence of
// length-prefixed "name=value" fields. The callback returns false to stop
// early.
func iterateHeaderFields(header []byte, cb func(key, value []byte) bool) error {
	for len(header) > 0 {
		if len(header) < lenInBytes {
			return errInvalidHeader
		}

		n := int(endian.Uint32(header))
		header = header[lenInBytes:]
		if n > len(header) {
			return errInvalidHeader
		}

		field := header[:n]
		header = header[n:]
		idx := bytes.IndexByte(field, headerFieldDelimiter)
		if idx == -1 {
			return errInvalidHeader
		}

		if !cb(field[:idx], field[idx+1:]) {
			break
		}
	}

	return nil
}

// headerOp extracts the op field without unmarshalling the whole header.
func headerOp(header []byte) (Op, error) {
	op := OpInvalid
	err := iterateHeaderFields(header, func(key, value []byte) bool {
		if bytes.Equal(key, []byte("op")) && len(value) == 1 {
			op = Op(value[0])
			return false
		}
		return true
	})
	if err != nil {
		return OpInvalid, err
	}
	if op == OpInvalid {
		return OpInvalid, errInvalidOp
	}
	return op, nil
}

type RecordBagHeader struct {
	IndexPos   uint64
	ConnCount  uint32
	ChunkCount uint32
}

func (record *RecordBagHeader) Op() Op { return OpBagHeader }

func (record *RecordBagHeader) unmarshall(header []byte) error {
	return iterateHeaderFields(header, func(key, value []byte) bool {
		switch {
		case bytes.Equal(key, []byte("index_pos")):
			record.IndexPos = endian.Uint64(value)
		case bytes.Equal(key, []byte("conn_count")):
			record.ConnCount = endian.Uint32(value)
		case bytes.Equal(key, []byte("chunk_count")):
			record.ChunkCount = endian.Uint32(value)
		}
		return true
	})
}

type RecordChunk struct {
	Compression Compression
	// Size is the uncompressed size of the chunk's data section.
	Size uint32
}

func (record *RecordChunk) Op() Op { return OpChunk }

func (record *RecordChunk) unmarshall(header []byte) error {
	err := iterateHeaderFields(header, func(key, value []byte) bool {
		switch {
		case bytes.Equal(key, []byte("compression")):
			record.Compression = Compression(value)
		case bytes.Equal(key, []byte("size")):
			record.Size = endian.Uint32(value)
		}
		return true
	})
	if err != nil {
		return err
	}
	if record.Compression == "" {
		return fmt.Errorf("%w: compression", errMissingField)
	}
	return nil
}

// ConnectionHeader carries the topic metadata stored in a connection
// record's data section.
type ConnectionHeader struct {
	Topic             string
	Type              string
	MD5Sum            string
	MessageDefinition *MessageDefinition
}

type RecordConnection struct {
	// Conn is the connection id that message data records refer to.
	Conn   uint32
	Header ConnectionHeader
}

func (record *RecordConnection) Op() Op { return OpConnection }

func (record *RecordConnection) unmarshall(header, data []byte) error {
	err := iterateHeaderFields(header, func(key, value []byte) bool {
		if bytes.Equal(key, []byte("conn")) {
			record.Conn = endian.Uint32(value)
		}
		return true
	})
	if err != nil {
		return err
	}

	// The data section is itself in header format.
	var defRaw []byte
	err = iterateHeaderFields(data, func(key, value []byte) bool {
		switch {
		case bytes.Equal(key, []byte("topic")):
			record.Header.Topic = string(value)
		case bytes.Equal(key, []byte("type")):
			record.Header.Type = string(value)
		case bytes.Equal(key, []byte("md5sum")):
			record.Header.MD5Sum = string(value)
		case bytes.Equal(key, []byte("message_definition")):
			defRaw = value
		}
		return true
	})
	if err != nil {
		return err
	}

	if record.Header.Topic == "" {
		return fmt.Errorf("%w: topic", errMissingField)
	}

	def, err := ParseMessageDefinition(defRaw)
	if err != nil {
		return fmt.Errorf("connection %q: %w", record.Header.Topic, err)
	}
	record.Header.MessageDefinition = def
	return nil
}

type RecordMessageData struct {
	Conn uint32
	Time time.Time

	data    []byte
	connHdr *ConnectionHeader
}

func (record *RecordMessageData) Op() Op { return OpMessageData }

// Topic returns the topic of the connection this message was recorded on.
func (record *RecordMessageData) Topic() string { return record.connHdr.Topic }

// Values decodes the serialized message into a field name to value map
// following the connection's message definition.
func (record *RecordMessageData) Values() (map[string]interface{}, error) {
	values, rest, err := decodeMessage(record.connHdr.MessageDefinition, record.data)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, errInvalidMessage
	}
	return values, nil
}

func (record *RecordMessageData) unmarshall(header []byte) error {
	hasConn := false
	err := iterateHeaderFields(header, func(key, value []byte) bool {
		switch {
		case bytes.Equal(key, []byte("conn")):
			record.Conn = endian.Uint32(value)
			hasConn = true
		case bytes.Equal(key, []byte("time")):
			record.Time = extractTime(value)
		}
		return true
	})
	if err != nil {
		return err
	}
	if !hasConn {
		return fmt.Errorf("%w: conn", errMissingField)
	}
	return nil
}

type RecordIndexData struct {
	Ver   uint32
	Conn  uint32
	Count uint32
}

func (record *RecordIndexData) Op() Op { return OpIndexData }

func (record *RecordIndexData) unmarshall(header []byte) error {
	return iterateHeaderFields(header, func(key, value []byte) bool {
		switch {
		case bytes.Equal(key, []byte("ver")):
			record.Ver = endian.Uint32(value)
		case bytes.Equal(key, []byte("conn")):
			record.Conn = endian.Uint32(value)
		case bytes.Equal(key, []byte("count")):
			record.Count = endian.Uint32(value)
		}
		return true
	})
}

type RecordChunkInfo struct {
	Ver      uint32
	ChunkPos uint64
	Count    uint32
}

func (record *RecordChunkInfo) Op() Op { return OpChunkInfo }

func (record *RecordChunkInfo) unmarshall(header []byte) error {
	return iterateHeaderFields(header, func(key, value []byte) bool {
		switch {
		case bytes.Equal(key, []byte("ver")):
			record.Ver = endian.Uint32(value)
		case bytes.Equal(key, []byte("chunk_pos")):
			record.ChunkPos = endian.Uint64(value)
		case bytes.Equal(key, []byte("count")):
			record.Count = endian.Uint32(value)
		}
		return true
	})
}
