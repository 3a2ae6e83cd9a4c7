package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/klauspost/compress/zstd"
	"github.com/roslabs/bag2table/internal/table"
)

type csvWriter struct {
	compress bool
}

func (w *csvWriter) Write(dir string, tbl *table.Table) (string, error) {
	ext := "csv"
	if w.compress {
		ext = "csv.zst"
	}
	path, name := outputPath(dir, tbl.Topic, ext)

	err := writeAtomic(path, func(out io.Writer) error {
		if w.compress {
			enc, err := zstd.NewWriter(out)
			if err != nil {
				return err
			}
			if err := writeCSV(enc, tbl); err != nil {
				enc.Close()
				return err
			}
			return enc.Close()
		}
		return writeCSV(out, tbl)
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

func writeCSV(out io.Writer, tbl *table.Table) error {
	cw := csv.NewWriter(out)

	if err := cw.Write(tbl.ColumnNames()); err != nil {
		return err
	}

	record := make([]string, len(tbl.Columns))
	for _, row := range tbl.Rows {
		for i, cell := range row {
			record[i] = formatCell(cell)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// formatCell stringifies a cell without precision loss. Floats use the
// shortest representation that round-trips ('g', -1); nil cells become the
// empty string.
func formatCell(cell interface{}) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
