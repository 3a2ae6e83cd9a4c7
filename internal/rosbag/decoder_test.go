package rosbag

import (
	"bytes"
	"testing"
)

func TestDecoderCheckVersion(t *testing.T) {
	testCases := []struct {
		Name string
		Raw  []byte
		Fail bool
	}{
		{
			Name: "Missing Newline character",
			Raw:  []byte("#ROSBAG V2.0"),
			Fail: true,
		},
		{
			Name: "Unsupported Version",
			Raw:  []byte("#ROSBAG V1.2\n"),
			Fail: true,
		},
		{
			Name: "Expected Version Format",
			Raw:  []byte("#ROSBAG V2.0\n"),
			Fail: false,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.Name, func(t *testing.T) {
			in := bytes.NewReader(testCase.Raw)
			err := NewDecoder(in).checkVersion()

			if testCase.Fail && err == nil {
				t.Fatal("expected to fail")
			} else if !testCase.Fail && err != nil {
				t.Fatal("expected to succeed")
			}
		})
	}
}

func TestDecoderCheckVersionConsumesLine(t *testing.T) {
	in := bytes.NewReader([]byte("#ROSBAG V2.0\nX"))
	decoder := NewDecoder(in)

	if err := decoder.checkVersion(); err != nil {
		t.Fatal(err)
	}

	// the next byte must be the start of the first record, not the newline
	b, err := decoder.reader.ReadByte()
	if err != nil {
		t.Fatal(err)
	}
	if b != 'X' {
		t.Fatalf("expected reader positioned after the version line, got %q", b)
	}
}

func TestIterateHeaderFields(t *testing.T) {
	header := append([]byte{4, 0, 0, 0}, "op=\x02"...)
	header = append(header, 5, 0, 0, 0)
	header = append(header, "a=bcd"...)

	got := make(map[string]string)
	err := iterateHeaderFields(header, func(key, value []byte) bool {
		got[string(key)] = string(value)
		return true
	})
	if err != nil {
		t.Fatal(err)
	}
	if got["a"] != "bcd" {
		t.Fatalf("expected field a=bcd, got %q", got["a"])
	}
}

func TestIterateHeaderFieldsTruncated(t *testing.T) {
	header := []byte{10, 0, 0, 0, 'o', 'p'}
	err := iterateHeaderFields(header, func(key, value []byte) bool { return true })
	if err == nil {
		t.Fatal("expected truncated header to fail")
	}
}
