package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/roslabs/bag2table/internal/table"
)

// ErrUnsupportedFormat reports a format selector outside the supported set.
// It is returned by New before any I/O happens.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Format selects the output serialization.
type Format string

const (
	// FormatCSV writes one comma-separated text file per topic.
	FormatCSV Format = "csv"
	// FormatParquet writes a columnar binary file per topic.
	FormatParquet Format = "parquet"
	// FormatMsgpack writes one MessagePack document per topic.
	FormatMsgpack Format = "msgpack"
)

// ParseFormat validates a format selector from the CLI. The generic names
// "columnar-binary" and "object-serialization" are accepted as aliases for
// parquet and msgpack.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "csv":
		return FormatCSV, nil
	case "parquet", "columnar-binary":
		return FormatParquet, nil
	case "msgpack", "object-serialization":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: csv, parquet, msgpack)", ErrUnsupportedFormat, s)
	}
}

// Options tune a writer.
type Options struct {
	// Compress wraps CSV output in a zstd stream (ignored by the binary
	// formats, which compress internally).
	Compress bool
}

// Writer serializes one accumulated table to a file under dir and returns
// the file's base name.
type Writer interface {
	Write(dir string, tbl *table.Table) (string, error)
}

// New returns the writer for format, failing fast on an unknown selector.
func New(format Format, opts Options) (Writer, error) {
	switch format {
	case FormatCSV:
		return &csvWriter{compress: opts.Compress}, nil
	case FormatParquet:
		return &parquetWriter{}, nil
	case FormatMsgpack:
		return &msgpackWriter{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// FileName derives the output file name for a topic: the leading slash is
// stripped and the remaining slashes become underscores. The mapping is
// deterministic but not injective — topics differing only in separators
// (e.g. /a/b and /a_b) collide; the last one written wins.
func FileName(topic, ext string) string {
	name := strings.TrimPrefix(topic, "/")
	name = strings.ReplaceAll(name, "/", "_")
	return name + "." + ext
}

// writeAtomic writes through a temporary file renamed into place on
// success, so an interrupted run never leaves a half-written output.
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func outputPath(dir, topic, ext string) (string, string) {
	name := FileName(topic, ext)
	return filepath.Join(dir, name), name
}
