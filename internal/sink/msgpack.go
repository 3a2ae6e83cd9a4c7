package sink

import (
	"io"

	"github.com/roslabs/bag2table/internal/table"
	"github.com/vmihailenco/msgpack/v5"
)

// msgpackDocument is the object-serialization layout: columns once, rows as
// positional arrays. Numeric cells keep their decoded width and sign.
type msgpackDocument struct {
	Topic   string          `msgpack:"topic"`
	Columns []string        `msgpack:"columns"`
	Rows    [][]interface{} `msgpack:"rows"`
}

type msgpackWriter struct{}

func (w *msgpackWriter) Write(dir string, tbl *table.Table) (string, error) {
	path, name := outputPath(dir, tbl.Topic, "msgpack")

	doc := msgpackDocument{
		Topic:   tbl.Topic,
		Columns: tbl.ColumnNames(),
		Rows:    tbl.Rows,
	}
	if doc.Rows == nil {
		doc.Rows = [][]interface{}{}
	}

	err := writeAtomic(path, func(out io.Writer) error {
		return msgpack.NewEncoder(out).Encode(&doc)
	})
	if err != nil {
		return "", err
	}
	return name, nil
}
