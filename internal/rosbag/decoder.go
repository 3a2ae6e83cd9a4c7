package rosbag

import (
	"bufio"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

var errUnsupportedCompression = errors.New("unsupported compression algorithm. Available algorithms: [none, bz2, lz4]")

// Decoder reads a rosbag v2 stream record by record. Chunk records are
// transparent: after a chunk is returned, subsequent Next calls yield the
// records contained in the chunk (decompressed as needed) before continuing
// with the outer stream.
type Decoder struct {
	reader         *bufio.Reader
	chunkReader    io.Reader
	checkedVersion bool
	conns          map[uint32]*ConnectionHeader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		reader: bufio.NewReader(r),
		conns:  make(map[uint32]*ConnectionHeader),
	}
}

// Next returns the next record in the bag. It returns io.EOF when the
// stream is exhausted.
func (decoder *Decoder) Next() (Record, error) {
	if !decoder.checkedVersion {
		if err := decoder.checkVersion(); err != nil {
			return nil, err
		}
		decoder.checkedVersion = true
	}

	if decoder.chunkReader != nil {
		record, err := decoder.decodeRecord(decoder.chunkReader)
		switch {
		case err == nil:
			return record, nil
		case errors.Is(err, io.EOF):
			// chunk exhausted, resume the outer stream
			decoder.chunkReader = nil
		default:
			return nil, err
		}
	}

	return decoder.decodeRecord(decoder.reader)
}

func (decoder *Decoder) checkVersion() error {
	var version Version

	_, err := fmt.Fscanf(decoder.reader, versionFormat, &version.Major, &version.Minor)
	if err != nil {
		return err
	}

	if version.Major != supportedVersion.Major || version.Minor != supportedVersion.Minor {
		return fmt.Errorf("%s is not supported. %s is the current supported version", &version, &supportedVersion)
	}

	// Fscanf unreads the byte that stopped the minor-version scan, so the
	// line terminator is still in the reader. Consume it here; records start
	// on the byte after it.
	b, err := decoder.reader.ReadByte()
	if err != nil {
		return err
	}
	if b != '\n' {
		return fmt.Errorf("malformed version line: expected newline, got %q", b)
	}

	return nil
}

func (decoder *Decoder) decodeRecord(r io.Reader) (Record, error) {
	var lenBuf [lenInBytes]byte

	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		// a clean EOF here means the stream ended between records
		return nil, err
	}
	headerLen := endian.Uint32(lenBuf[:])

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("short record header: %w", err)
	}

	op, err := headerOp(header)
	if err != nil {
		return nil, err
	}

	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("short record: %w", err)
	}
	dataLen := endian.Uint32(lenBuf[:])

	// A chunk's data section holds nested records. Instead of buffering it,
	// hand the (decompressed) section to the next iterations.
	if op == OpChunk {
		return decoder.handleChunk(r, header, dataLen)
	}

	data := make([]byte, dataLen)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("short record data: %w", err)
	}

	switch op {
	case OpBagHeader:
		record := &RecordBagHeader{}
		return record, record.unmarshall(header)
	case OpConnection:
		record := &RecordConnection{}
		if err := record.unmarshall(header, data); err != nil {
			return nil, err
		}
		decoder.conns[record.Conn] = &record.Header
		return record, nil
	case OpMessageData:
		record := &RecordMessageData{data: data}
		if err := record.unmarshall(header); err != nil {
			return nil, err
		}
		connHdr, ok := decoder.conns[record.Conn]
		if !ok {
			return nil, errMissingConn
		}
		record.connHdr = connHdr
		return record, nil
	case OpIndexData:
		record := &RecordIndexData{}
		return record, record.unmarshall(header)
	case OpChunkInfo:
		record := &RecordChunkInfo{}
		return record, record.unmarshall(header)
	default:
		return nil, errInvalidOp
	}
}

func (decoder *Decoder) handleChunk(r io.Reader, header []byte, dataLen uint32) (Record, error) {
	record := &RecordChunk{}
	if err := record.unmarshall(header); err != nil {
		return nil, err
	}

	chunkReader := io.LimitReader(r, int64(dataLen))
	switch record.Compression {
	case CompressionNone:
		decoder.chunkReader = chunkReader
	case CompressionBZ2:
		decoder.chunkReader = bzip2.NewReader(chunkReader)
	case CompressionLZ4:
		decoder.chunkReader = lz4.NewReader(chunkReader)
	default:
		return nil, errUnsupportedCompression
	}

	return record, nil
}
