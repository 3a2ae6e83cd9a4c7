package sink

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
	"github.com/roslabs/bag2table/internal/flatten"
	"github.com/roslabs/bag2table/internal/table"
)

// parquetWriter serializes a table as one parquet file with a single row
// group. Every column is optional so null-filled cells map to parquet
// nulls. The library lays columns out in name order; readers address them
// by the table's column names.
type parquetWriter struct{}

func (w *parquetWriter) Write(dir string, tbl *table.Table) (string, error) {
	path, name := outputPath(dir, tbl.Topic, "parquet")

	schema, err := parquetSchema(tbl)
	if err != nil {
		return "", err
	}

	err = writeAtomic(path, func(out io.Writer) error {
		pw := parquet.NewGenericWriter[map[string]interface{}](out, schema)

		rows := make([]map[string]interface{}, 0, 64)
		for _, row := range tbl.Rows {
			m := make(map[string]interface{}, len(tbl.Columns))
			for i, cell := range row {
				if cell == nil {
					continue
				}
				m[tbl.Columns[i].Path] = cell
			}
			rows = append(rows, m)

			if len(rows) == cap(rows) {
				if _, err := pw.Write(rows); err != nil {
					return err
				}
				rows = rows[:0]
			}
		}
		if len(rows) > 0 {
			if _, err := pw.Write(rows); err != nil {
				return err
			}
		}
		return pw.Close()
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

func parquetSchema(tbl *table.Table) (*parquet.Schema, error) {
	group := parquet.Group{}
	for _, col := range tbl.Columns {
		node, err := parquetNode(col.Kind)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Path, err)
		}
		group[col.Path] = parquet.Optional(node)
	}
	return parquet.NewSchema(fileNameBase(tbl.Topic), group), nil
}

func parquetNode(kind flatten.Kind) (parquet.Node, error) {
	switch kind {
	case flatten.KindBool:
		return parquet.Leaf(parquet.BooleanType), nil
	case flatten.KindInt8:
		return parquet.Int(8), nil
	case flatten.KindInt16:
		return parquet.Int(16), nil
	case flatten.KindInt32:
		return parquet.Int(32), nil
	case flatten.KindInt64, flatten.KindDuration:
		return parquet.Int(64), nil
	case flatten.KindUint8:
		return parquet.Uint(8), nil
	case flatten.KindUint16:
		return parquet.Uint(16), nil
	case flatten.KindUint32:
		return parquet.Uint(32), nil
	case flatten.KindUint64:
		return parquet.Uint(64), nil
	case flatten.KindFloat32:
		return parquet.Leaf(parquet.FloatType), nil
	case flatten.KindFloat64:
		return parquet.Leaf(parquet.DoubleType), nil
	case flatten.KindString, flatten.KindJSON:
		return parquet.String(), nil
	case flatten.KindTime:
		return parquet.Timestamp(parquet.Nanosecond), nil
	default:
		return nil, fmt.Errorf("no parquet mapping for column kind %d", kind)
	}
}

func fileNameBase(topic string) string {
	name := FileName(topic, "parquet")
	return name[:len(name)-len(".parquet")]
}
