package rosbag

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ErrNotFound reports that the input path does not exist or holds no bag
// files. Callers match it with errors.Is.
var ErrNotFound = errors.New("no rosbag found")

// TopicInfo describes one topic discovered in a bag.
type TopicInfo struct {
	Name       string
	Type       string
	MD5Sum     string
	Definition *MessageDefinition
}

// Bag is a read-only view over one bag file or a directory of bag files.
// Topic metadata is gathered once at open time; message iteration re-scans
// the underlying files, so each Messages call is an independent, restartable
// pass.
type Bag struct {
	paths  []string
	topics []TopicInfo
}

// OpenBag opens path, which may be a single .bag file or a directory
// containing one or more of them (read in lexical name order). It returns
// an error wrapping ErrNotFound when there is nothing to read.
func OpenBag(path string) (*Bag, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	var paths []string
	if info.IsDir() {
		paths, err = filepath.Glob(filepath.Join(path, "*.bag"))
		if err != nil {
			return nil, err
		}
		sort.Strings(paths)
	} else {
		paths = []string{path}
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no .bag files in %s", ErrNotFound, path)
	}

	bag := &Bag{paths: paths}
	if err := bag.scanTopics(); err != nil {
		return nil, err
	}
	return bag, nil
}

// Topics lists the topics present across all files, in first-seen order.
func (bag *Bag) Topics() []TopicInfo {
	return bag.topics
}

// Messages invokes fn for every message on topic, in log order, with the
// record timestamp and the decoded field values. The scan stops and returns
// fn's error if it is non-nil. File handles are held only for the duration
// of the call.
func (bag *Bag) Messages(topic string, fn func(t time.Time, values map[string]interface{}) error) error {
	for _, path := range bag.paths {
		err := eachRecord(path, func(record Record) error {
			msg, ok := record.(*RecordMessageData)
			if !ok || msg.Topic() != topic {
				return nil
			}

			values, err := msg.Values()
			if err != nil {
				return fmt.Errorf("topic %s: %w", topic, err)
			}
			return fn(msg.Time, values)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (bag *Bag) scanTopics() error {
	seen := make(map[string]bool)

	for _, path := range bag.paths {
		err := eachRecord(path, func(record Record) error {
			conn, ok := record.(*RecordConnection)
			if !ok || seen[conn.Header.Topic] {
				return nil
			}

			seen[conn.Header.Topic] = true
			bag.topics = append(bag.topics, TopicInfo{
				Name:       conn.Header.Topic,
				Type:       conn.Header.Type,
				MD5Sum:     conn.Header.MD5Sum,
				Definition: conn.Header.MessageDefinition,
			})
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// eachRecord decodes path record by record. The file handle is released on
// every exit path.
func eachRecord(path string, fn func(Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	decoder := NewDecoder(f)
	for {
		record, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}

		if err := fn(record); err != nil {
			return err
		}
	}
}
