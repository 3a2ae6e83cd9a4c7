package rosbag_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/roslabs/bag2table/internal/rosbag"
	"github.com/roslabs/bag2table/internal/rosbag/rosbagtest"
)

const poseDef = "float64 x\nfloat64 y\nfloat64 theta\n"

func writeTestBag(t *testing.T) string {
	t.Helper()

	b := rosbagtest.NewBuilder()
	b.Connection("/turtle1/pose", "turtlesim/Pose", poseDef)
	base := time.Unix(1700000000, 0)
	for i := 0; i < 3; i++ {
		payload := rosbagtest.Payload{}.
			Float64(float64(i)).
			Float64(float64(i) * 2).
			Float64(0.25)
		b.Message("/turtle1/pose", base.Add(time.Duration(i)*time.Second), payload)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "test.bag")
	if err := b.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenBagNotFound(t *testing.T) {
	_, err := rosbag.OpenBag(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, rosbag.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenBagEmptyDir(t *testing.T) {
	_, err := rosbag.OpenBag(t.TempDir())
	if !errors.Is(err, rosbag.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBagTopics(t *testing.T) {
	bag, err := rosbag.OpenBag(writeTestBag(t))
	if err != nil {
		t.Fatal(err)
	}

	topics := bag.Topics()
	if len(topics) != 1 {
		t.Fatalf("expected 1 topic, got %d", len(topics))
	}
	if topics[0].Name != "/turtle1/pose" || topics[0].Type != "turtlesim/Pose" {
		t.Fatalf("unexpected topic %+v", topics[0])
	}
	if topics[0].Definition == nil || len(topics[0].Definition.Fields) != 3 {
		t.Fatalf("expected a parsed 3-field definition")
	}
}

func TestBagMessages(t *testing.T) {
	bag, err := rosbag.OpenBag(writeTestBag(t))
	if err != nil {
		t.Fatal(err)
	}

	var stamps []time.Time
	var xs []float64
	err = bag.Messages("/turtle1/pose", func(ts time.Time, values map[string]interface{}) error {
		stamps = append(stamps, ts)
		xs = append(xs, values["x"].(float64))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]float64{0, 1, 2}, xs); diff != "" {
		t.Fatal(diff)
	}
	for i := 1; i < len(stamps); i++ {
		if stamps[i].Before(stamps[i-1]) {
			t.Fatalf("timestamps out of order: %v before %v", stamps[i], stamps[i-1])
		}
	}
}

// Messages must be restartable: a second pass sees the same stream.
func TestBagMessagesRestartable(t *testing.T) {
	bag, err := rosbag.OpenBag(writeTestBag(t))
	if err != nil {
		t.Fatal(err)
	}

	count := func() int {
		n := 0
		err := bag.Messages("/turtle1/pose", func(time.Time, map[string]interface{}) error {
			n++
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		return n
	}

	if first, second := count(), count(); first != 3 || second != 3 {
		t.Fatalf("expected 3 messages on both passes, got %d and %d", first, second)
	}
}

func TestBagMessagesEarlyError(t *testing.T) {
	bag, err := rosbag.OpenBag(writeTestBag(t))
	if err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	n := 0
	err = bag.Messages("/turtle1/pose", func(time.Time, map[string]interface{}) error {
		n++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error to propagate, got %v", err)
	}
	if n != 1 {
		t.Fatalf("expected iteration to stop after the first message, got %d", n)
	}
}

// Chunked, lz4-compressed bags decode the same as unchunked ones.
func TestBagLZ4Chunk(t *testing.T) {
	b := rosbagtest.NewBuilder()
	b.ChunkLZ4(func(c *rosbagtest.Builder) {
		c.Connection("/turtle1/pose", "turtlesim/Pose", poseDef)
		c.Message("/turtle1/pose", time.Unix(1700000000, 0),
			rosbagtest.Payload{}.Float64(1.5).Float64(2.5).Float64(3.5))
	})

	dir := t.TempDir()
	path := filepath.Join(dir, "chunked.bag")
	if err := b.WriteFile(path); err != nil {
		t.Fatal(err)
	}

	bag, err := rosbag.OpenBag(dir)
	if err != nil {
		t.Fatal(err)
	}

	var got map[string]interface{}
	err = bag.Messages("/turtle1/pose", func(_ time.Time, values map[string]interface{}) error {
		got = values
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	expected := map[string]interface{}{"x": 1.5, "y": 2.5, "theta": 3.5}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Fatal(diff)
	}
}
