package rosbag

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const laserDef = `
# a trimmed sensor_msgs/LaserScan-like definition
Header header
float32 angle_min
float32[] ranges
float32[3] intensities
uint8 MODE_FAST = 1 # constant

MSG: std_msgs/Header
uint32 seq
time stamp
string frame_id
`

func TestParseMessageDefinition(t *testing.T) {
	def, err := ParseMessageDefinition([]byte(laserDef))
	if err != nil {
		t.Fatal(err)
	}

	if len(def.Fields) != 5 {
		t.Fatalf("expected 5 fields, got %d", len(def.Fields))
	}

	header := def.Fields[0]
	if header.Type != FieldTypeComplex || header.Msg == nil {
		t.Fatalf("expected header to resolve to an embedded definition")
	}
	if header.Msg.Type != "std_msgs/Header" {
		t.Fatalf("unexpected embedded type %q", header.Msg.Type)
	}

	ranges := def.Fields[2]
	if !ranges.IsArray || ranges.ArraySize != -1 {
		t.Fatalf("expected ranges to be a variable-length array, got %+v", ranges)
	}

	intensities := def.Fields[3]
	if !intensities.IsArray || intensities.ArraySize != 3 {
		t.Fatalf("expected intensities to be a fixed array of 3, got %+v", intensities)
	}

	mode := def.Fields[4]
	if mode.Value != uint8(1) {
		t.Fatalf("expected constant value 1, got %v", mode.Value)
	}
}

func TestParseMessageDefinitionUnresolved(t *testing.T) {
	_, err := ParseMessageDefinition([]byte("Missing missing\n"))
	if err == nil {
		t.Fatal("expected unresolved complex type to fail")
	}
}

func TestDecodeMessage(t *testing.T) {
	def, err := ParseMessageDefinition([]byte(laserDef))
	if err != nil {
		t.Fatal(err)
	}

	var raw []byte
	raw = appendUint32(raw, 7)          // header.seq
	raw = appendUint32(raw, 100)        // header.stamp sec
	raw = appendUint32(raw, 2000)       // header.stamp nsec
	raw = appendUint32(raw, 4)          // header.frame_id len
	raw = append(raw, "base"...)        // header.frame_id
	raw = appendUint32(raw, 0x3f000000) // angle_min = 0.5
	raw = appendUint32(raw, 2)          // len(ranges)
	raw = appendUint32(raw, 0x3f800000) // ranges[0] = 1.0
	raw = appendUint32(raw, 0x40000000) // ranges[1] = 2.0
	for i := 0; i < 3; i++ {            // intensities, fixed 3
		raw = appendUint32(raw, 0x3f800000)
	}

	values, rest, err := decodeMessage(def, raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Fatalf("expected the message to be fully consumed, %d bytes left", len(rest))
	}

	expected := map[string]interface{}{
		"header": map[string]interface{}{
			"seq":      uint32(7),
			"stamp":    time.Unix(100, 2000),
			"frame_id": "base",
		},
		"angle_min":   float32(0.5),
		"ranges":      []float32{1, 2},
		"intensities": []float32{1, 1, 1},
		"MODE_FAST":   uint8(1),
	}
	if diff := cmp.Diff(expected, values); diff != "" {
		t.Fatal(diff)
	}
}

func TestDecodeMessageTruncated(t *testing.T) {
	def, err := ParseMessageDefinition([]byte("float64 x\nfloat64 y\n"))
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = decodeMessage(def, make([]byte, 8))
	if err == nil {
		t.Fatal("expected truncated payload to fail")
	}
}

func TestDecodeMessageCorruptArrayLength(t *testing.T) {
	// an absurd length prefix must be rejected up front, not allocated
	testCases := []struct {
		Name string
		Def  string
	}{
		{Name: "String Slice", Def: "string[] names\n"},
		{
			Name: "Complex Slice",
			Def:  "Point[] points\n\nMSG: geometry_msgs/Point\nfloat64 x\n",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.Name, func(t *testing.T) {
			def, err := ParseMessageDefinition([]byte(testCase.Def))
			if err != nil {
				t.Fatal(err)
			}

			raw := appendUint32(nil, 0xffffffff)
			if _, _, err := decodeMessage(def, raw); err == nil {
				t.Fatal("expected oversized array length to fail")
			}
		})
	}
}

func appendUint32(b []byte, v uint32) []byte {
	out := make([]byte, 4)
	endian.PutUint32(out, v)
	return append(b, out...)
}
