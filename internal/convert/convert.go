// Package convert drives the bag-to-table pipeline: open the bag, then for
// each topic derive its schema, flatten and accumulate every message, and
// write the table in the configured format. Topics are processed one at a
// time, fully, before the next begins.
package convert

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/roslabs/bag2table/internal/flatten"
	"github.com/roslabs/bag2table/internal/rosbag"
	"github.com/roslabs/bag2table/internal/sink"
	"github.com/roslabs/bag2table/internal/table"
)

var errNoColumns = errors.New("no representable fields in message definition")

// Config is the explicit run configuration threaded through the pipeline.
type Config struct {
	Input  string
	Output string
	Format sink.Format
	// Compress enables zstd compression for csv output.
	Compress bool
	// Timestamps prepends a "timestamp" column holding each message's
	// record time as int64 nanoseconds.
	Timestamps bool
}

// Run converts every topic in the input bag. It returns an error only for
// run-fatal conditions (bad input path, unknown format, unusable output
// directory); per-topic failures are recorded in the summary and logged.
func Run(cfg Config, logger log.Logger) (*Summary, error) {
	// fail fast on the format before touching any file
	writer, err := sink.New(cfg.Format, sink.Options{Compress: cfg.Compress})
	if err != nil {
		return nil, err
	}

	bag, err := rosbag.OpenBag(cfg.Input)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Output, 0o755); err != nil {
		return nil, fmt.Errorf("output directory: %w", err)
	}

	topics := bag.Topics()
	summary := &Summary{Topics: make([]TopicResult, len(topics))}
	for i, topic := range topics {
		summary.Topics[i] = convertTopic(bag, topic, writer, cfg, logger)
	}

	return summary, nil
}

func convertTopic(bag *rosbag.Bag, topic rosbag.TopicInfo, writer sink.Writer, cfg Config, logger log.Logger) TopicResult {
	res := TopicResult{Topic: topic.Name, State: StatePending}
	fail := func(err error) TopicResult {
		res.State = StateFailed
		res.Err = err
		level.Error(logger).Log("topic", topic.Name, "state", res.State, "err", err)
		return res
	}

	res.State = StateReading
	schema, schemaErrs := flatten.NewSchema(topic.Definition)
	for _, err := range schemaErrs {
		// unsupported fields are skipped, the topic continues
		level.Warn(logger).Log("topic", topic.Name, "msg", "field skipped", "err", err)
	}

	// a timestamp-only table would hide a fully unrepresentable topic
	if len(schema.Columns) == 0 {
		return fail(errNoColumns)
	}
	columns := schema.Columns
	if cfg.Timestamps {
		columns = append([]flatten.Column{{Path: "timestamp", Kind: flatten.KindTime}}, columns...)
	}
	tbl := table.New(topic.Name, columns)

	res.State = StateFlattening
	err := bag.Messages(topic.Name, func(ts time.Time, values map[string]interface{}) error {
		row := schema.Flatten(values)
		if cfg.Timestamps {
			row["timestamp"] = ts.UnixNano()
		}
		if drift := tbl.Append(row); drift != nil {
			// drifted rows are kept, null-filled; worth surfacing per row
			level.Warn(logger).Log("topic", topic.Name, "msg", "schema drift", "err", drift)
			res.DriftRows++
		}
		return nil
	})
	if err != nil {
		return fail(err)
	}

	res.State = StateWriting
	name, err := writer.Write(cfg.Output, tbl)
	if err != nil {
		return fail(err)
	}

	res.State = StateDone
	res.Rows = tbl.Len()
	res.File = name
	level.Info(logger).Log("topic", topic.Name, "state", res.State, "rows", res.Rows, "file", name)
	return res
}
