package rosbag

import (
	"encoding/binary"
	"fmt"
)

const (
	versionFormat = "#ROSBAG V%d.%d"

	lenInBytes           = 4
	headerFieldDelimiter = '='
)

var (
	supportedVersion = Version{
		Major: 2,
		Minor: 0,
	}

	// Bag files are little endian regardless of the host.
	endian = binary.LittleEndian
)

// Op identifies the kind of a record. The values come from the rosbag v2
// format, http://wiki.ros.org/Bags/Format/2.0.
type Op uint8

const (
	// OpInvalid is an extension from the standard. This Op marks an invalid Op.
	OpInvalid     Op = 0x00
	OpMessageData Op = 0x02
	OpBagHeader   Op = 0x03
	OpIndexData   Op = 0x04
	OpChunk       Op = 0x05
	OpChunkInfo   Op = 0x06
	OpConnection  Op = 0x07
)

func (op Op) String() string {
	switch op {
	case OpMessageData:
		return "message data"
	case OpBagHeader:
		return "bag header"
	case OpIndexData:
		return "index data"
	case OpChunk:
		return "chunk"
	case OpChunkInfo:
		return "chunk info"
	case OpConnection:
		return "connection"
	default:
		return "invalid"
	}
}

// Compression names the algorithm used for a chunk's data section.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionBZ2  Compression = "bz2"
	CompressionLZ4  Compression = "lz4"
)

type Version struct {
	Major uint
	Minor uint
}

func (version *Version) String() string {
	return fmt.Sprintf("%d.%d", version.Major, version.Minor)
}
