package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roslabs/bag2table/internal/rosbag/rosbagtest"
)

func writeBag(t *testing.T) string {
	t.Helper()

	b := rosbagtest.NewBuilder()
	b.Connection("/turtle1/pose", "turtlesim/Pose", "float64 x\nfloat64 y\nfloat64 theta\n")
	b.Message("/turtle1/pose", time.Unix(1700000000, 0),
		rosbagtest.Payload{}.Float64(1).Float64(2).Float64(3))

	dir := t.TempDir()
	if err := b.WriteFile(filepath.Join(dir, "test.bag")); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRunExitCodes(t *testing.T) {
	input := writeBag(t)

	testCases := []struct {
		Name string
		Args func(t *testing.T) []string
		Code int
	}{
		{
			Name: "all topics converted",
			Args: func(t *testing.T) []string {
				return []string{input, t.TempDir(), "--format", "csv"}
			},
			Code: 0,
		},
		{
			Name: "missing format flag",
			Args: func(t *testing.T) []string {
				return []string{input, t.TempDir()}
			},
			Code: 2,
		},
		{
			Name: "unsupported format",
			Args: func(t *testing.T) []string {
				return []string{input, t.TempDir(), "--format", "xml"}
			},
			Code: 2,
		},
		{
			Name: "unreadable input",
			Args: func(t *testing.T) []string {
				return []string{filepath.Join(t.TempDir(), "missing"), t.TempDir(), "--format", "csv"}
			},
			Code: 2,
		},
		{
			Name: "missing positional args",
			Args: func(t *testing.T) []string {
				return []string{input, "--format", "csv"}
			},
			Code: 2,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.Name, func(t *testing.T) {
			if got := run(testCase.Args(t)); got != testCase.Code {
				t.Fatalf("expected exit code %d, got %d", testCase.Code, got)
			}
		})
	}
}

func TestRunUnsupportedFormatWritesNothing(t *testing.T) {
	input := writeBag(t)
	output := t.TempDir()

	if got := run([]string{input, output, "--format", "xml"}); got != 2 {
		t.Fatalf("expected exit code 2, got %d", got)
	}

	entries, err := os.ReadDir(output)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no output files, got %v", entries)
	}
}

func TestRunPartialFailureExitCode(t *testing.T) {
	b := rosbagtest.NewBuilder()
	b.Connection("/camera/image", "sensor_msgs/Image", "uint8[] data\n")
	b.Connection("/turtle1/pose", "turtlesim/Pose", "float64 x\nfloat64 y\nfloat64 theta\n")
	b.Message("/camera/image", time.Unix(1700000000, 0), rosbagtest.Payload{}.DynLen(1).Uint8(9))
	b.Message("/turtle1/pose", time.Unix(1700000000, 0),
		rosbagtest.Payload{}.Float64(1).Float64(2).Float64(3))

	input := t.TempDir()
	if err := b.WriteFile(filepath.Join(input, "mixed.bag")); err != nil {
		t.Fatal(err)
	}

	if got := run([]string{input, t.TempDir(), "--format", "csv"}); got != 1 {
		t.Fatalf("expected exit code 1, got %d", got)
	}
}
