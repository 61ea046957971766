package serializer

import (
	"encoding/base64"
	"math"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"
)

// TestAttributeRoundTrip tests that every supported value survives encode + decode
func TestAttributeRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 15, 10, 30, 45, 123456789, time.UTC)

	tests := []struct {
		name     string
		value    any
		expected any
		tag      AttributeType
	}{
		{"String", "hello", "hello", AttributeString},
		{"EmptyString", "", "", AttributeString},
		{"Int", 42, int64(42), AttributeNumber},
		{"NegativeInt64", int64(-7), int64(-7), AttributeNumber},
		{"Uint64", uint64(1 << 40), int64(1 << 40), AttributeNumber},
		{"Float", 3.25, 3.25, AttributeNumber},
		{"WholeFloat", 2.0, 2.0, AttributeNumber},
		{"LargeFloat", 1e21, 1e21, AttributeNumber},
		{"BoolTrue", true, true, AttributeBool},
		{"BoolFalse", false, false, AttributeBool},
		{"Bytes", []byte("raw bytes"), []byte("raw bytes"), AttributeBinary},
		{"IntList", []int{1, 2, 3}, []int64{1, 2, 3}, AttributeBinary},
		{"Int64List", []int64{-1, 0, 1 << 50}, []int64{-1, 0, 1 << 50}, AttributeBinary},
		{"FloatList", []float64{1.0, 2.0}, []float64{1.0, 2.0}, AttributeBinary},
		{"Float32List", []float32{0.5, 1.5}, []float64{0.5, 1.5}, AttributeBinary},
		{"AnyIntList", []any{1, 2, int64(3)}, []int64{1, 2, 3}, AttributeBinary},
		{"AnyFloatList", []any{1.5, 2}, []float64{1.5, 2}, AttributeBinary},
		{"EmptyList", []any{}, []int64{}, AttributeBinary},
		{"Timestamp", ts, ts, AttributeTimestamp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attr, err := EncodeAttribute(tt.value)
			if err != nil {
				t.Fatalf("Failed to encode %v: %v", tt.value, err)
			}
			if attr.Type != tt.tag {
				t.Errorf("Expected tag %s, got %s", tt.tag, attr.Type)
			}

			decoded, err := DecodeAttribute(attr)
			if err != nil {
				t.Fatalf("Failed to decode %+v: %v", attr, err)
			}

			if expectedTime, ok := tt.expected.(time.Time); ok {
				decodedTime, ok := decoded.(time.Time)
				if !ok || !decodedTime.Equal(expectedTime) {
					t.Errorf("Timestamp doesn't match after round trip: expected %v, got %v", expectedTime, decoded)
				}
				return
			}

			if !reflect.DeepEqual(decoded, tt.expected) {
				t.Errorf("Value doesn't match after round trip:\nExpected: %#v\nResult:   %#v", tt.expected, decoded)
			}
		})
	}
}

// TestEncodeUnsupported tests that unsupported values are rejected
func TestEncodeUnsupported(t *testing.T) {
	values := []any{
		struct{}{},
		map[string]int{"a": 1},
		[]string{"a", "b"},
		[]any{1, "two"},
		[]any{1.5, "two"},
		nil,
	}

	for _, v := range values {
		if _, err := EncodeAttribute(v); !IsEncodingError(err) {
			t.Errorf("Expected EncodingError for %#v, got %v", v, err)
		}
	}
}

// TestEncodeItemNamesAttribute tests that item encoding reports the failing attribute
func TestEncodeItemNamesAttribute(t *testing.T) {
	_, err := EncodeItem(map[string]any{"bad": struct{}{}})
	if !IsEncodingError(err) {
		t.Fatalf("Expected EncodingError, got %v", err)
	}
	if !strings.Contains(err.Error(), `"bad"`) {
		t.Errorf("Expected error to name the attribute, got %q", err.Error())
	}
}

// TestPackedArrayCategories tests that the element type category is preserved
func TestPackedArrayCategories(t *testing.T) {
	ints, err := EncodePackedArray([]int{1, 2, 3})
	if err != nil {
		t.Fatalf("Failed to encode int list: %v", err)
	}
	decoded, err := DecodePackedArray(ints)
	if err != nil {
		t.Fatalf("Failed to decode int list: %v", err)
	}
	if _, ok := decoded.([]int64); !ok {
		t.Errorf("Expected []int64, got %T", decoded)
	}

	floats, err := EncodePackedArray([]float64{1.0, 2.0})
	if err != nil {
		t.Fatalf("Failed to encode float list: %v", err)
	}
	decoded, err = DecodePackedArray(floats)
	if err != nil {
		t.Fatalf("Failed to decode float list: %v", err)
	}
	if _, ok := decoded.([]float64); !ok {
		t.Errorf("Expected []float64, got %T", decoded)
	}
}

// TestPackedArrayIntegerRange tests that unsigned values beyond int64 are rejected
// in packed arrays and kept exact as scalars
func TestPackedArrayIntegerRange(t *testing.T) {
	for _, list := range []any{
		[]any{1, uint64(math.MaxUint64)},
		[]any{uint64(math.MaxInt64) + 1},
	} {
		if _, err := EncodePackedArray(list); !IsEncodingError(err) {
			t.Errorf("Expected EncodingError for %v, got %v", list, err)
		}
	}

	data, err := EncodePackedArray([]any{uint64(math.MaxInt64), int8(1)})
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	decoded, err := DecodePackedArray(data)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if !reflect.DeepEqual(decoded, []int64{math.MaxInt64, 1}) {
		t.Errorf("Expected []int64{MaxInt64, 1}, got %v", decoded)
	}

	attr, err := EncodeAttribute(^uint(0))
	if err != nil {
		t.Fatalf("Failed to encode scalar: %v", err)
	}
	if attr.Value != strconv.FormatUint(uint64(^uint(0)), 10) {
		t.Errorf("Expected the exact unsigned value, got %q", attr.Value)
	}
}

// TestPackedArrayLayout tests the exact byte layout of a packed array
func TestPackedArrayLayout(t *testing.T) {
	data, err := EncodePackedArray([]int64{1, 2})
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	expected := []byte{
		0x30, 0x41, 0xab, 0x00, // magic 11223344
		0x01, 0x00, 0x00, 0x00, // version 1
		0x10, 0x00, 0x00, 0x00, // payload length 16
		0x03, 0x01, 0x00, 0x00, // operand 259 (long)
		0x01, 0, 0, 0, 0, 0, 0, 0,
		0x02, 0, 0, 0, 0, 0, 0, 0,
	}
	if !reflect.DeepEqual(data, expected) {
		t.Errorf("Unexpected layout:\nExpected: %v\nResult:   %v", expected, data)
	}
}

// TestPackedArrayCorrupted tests that malformed buffers produce a DecodingError
func TestPackedArrayCorrupted(t *testing.T) {
	valid, err := EncodePackedArray([]int64{1, 2, 3})
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	badMagic := append([]byte(nil), valid...)
	badMagic[0] ^= 0xff

	badVersion := append([]byte(nil), valid...)
	badVersion[4] = 2

	badOperand := append([]byte(nil), valid...)
	badOperand[12] = 0x07

	// 20 payload bytes are two and a half elements
	oddPayload := append([]byte(nil), valid...)
	oddPayload[8] = 20

	cases := map[string][]byte{
		"Empty":      {},
		"HeaderOnly": valid[:8],
		"NoSubHdr":   valid[:12],
		"Truncated":  valid[:len(valid)-1],
		"BadMagic":   badMagic,
		"BadVersion": badVersion,
		"BadOperand": badOperand,
		"OddPayload": oddPayload,
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodePackedArray(data); !IsDecodingError(err) {
				t.Errorf("Expected DecodingError, got %v", err)
			}
		})
	}

	// a binary attribute with a corrupted header is plain bytes
	attr := TypedAttribute{Type: AttributeBinary, Value: base64.StdEncoding.EncodeToString(badMagic)}
	decoded, err := DecodeAttribute(attr)
	if err != nil {
		t.Fatalf("Failed to decode attribute: %v", err)
	}
	if !reflect.DeepEqual(decoded, badMagic) {
		t.Errorf("Expected raw bytes, got %#v", decoded)
	}
}

// TestTimestamp tests the timestamp wire format
func TestTimestamp(t *testing.T) {
	local := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(1970, 1, 1, 2, 0, 10, 500, local)

	if got := EncodeTimestamp(ts); got != "10:500" {
		t.Errorf("Expected 10:500, got %s", got)
	}

	decoded, err := DecodeTimestamp("1700000000:999999999")
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if decoded.Location() != time.UTC {
		t.Errorf("Expected UTC location, got %v", decoded.Location())
	}
	if decoded.Unix() != 1700000000 || decoded.Nanosecond() != 999999999 {
		t.Errorf("Unexpected decoded time %v", decoded)
	}

	for _, bad := range []string{"", "123", "a:1", "1:b"} {
		if _, err := DecodeTimestamp(bad); !IsDecodingError(err) {
			t.Errorf("Expected DecodingError for %q, got %v", bad, err)
		}
	}
}

// TestTypedAttributeJSON tests the one-key JSON object form
func TestTypedAttributeJSON(t *testing.T) {
	attr := TypedAttribute{Type: AttributeNumber, Value: "42"}
	data, err := attr.MarshalJSON()
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if string(data) != `{"N":"42"}` {
		t.Errorf("Unexpected JSON %s", data)
	}

	boolAttr := TypedAttribute{Type: AttributeBool, Bool: true}
	data, err = boolAttr.MarshalJSON()
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if string(data) != `{"BOOL":true}` {
		t.Errorf("Unexpected JSON %s", data)
	}

	tests := map[string]TypedAttribute{
		`{"N":"42"}`:      {Type: AttributeNumber, Value: "42"},
		`{"N":4.5}`:       {Type: AttributeNumber, Value: "4.5"},
		`{"S":"x"}`:       {Type: AttributeString, Value: "x"},
		`{"S":7}`:         {Type: AttributeString, Value: "7"},
		`{"BOOL":false}`:  {Type: AttributeBool, Bool: false},
		`{"BOOL":"true"}`: {Type: AttributeBool, Bool: true},
		`{"TS":"1:2"}`:    {Type: AttributeTimestamp, Value: "1:2"},
	}
	for input, expected := range tests {
		var got TypedAttribute
		if err := got.UnmarshalJSON([]byte(input)); err != nil {
			t.Errorf("Failed to unmarshal %s: %v", input, err)
			continue
		}
		if got != expected {
			t.Errorf("Unmarshal %s: expected %+v, got %+v", input, expected, got)
		}
	}

	for _, bad := range []string{`{}`, `{"X":"1"}`, `{"N":"1","S":"a"}`, `[1]`} {
		var got TypedAttribute
		if err := got.UnmarshalJSON([]byte(bad)); !IsDecodingError(err) {
			t.Errorf("Expected DecodingError for %s, got %v", bad, err)
		}
	}
}

// TestDetectFormat tests body sniffing
func TestDetectFormat(t *testing.T) {
	tests := map[string]BodyFormat{
		`{"a":1}`:           FormatJSON,
		"  \n[1,2]":         FormatJSON,
		"<ListBucketResult": FormatXML,
		"plain text":        FormatUnknown,
		"":                  FormatUnknown,
	}
	for body, expected := range tests {
		if got := DetectFormat([]byte(body)); got != expected {
			t.Errorf("DetectFormat(%q) = %s, expected %s", body, got, expected)
		}
	}
}

// TestDecodeBody tests json and xml decoding
func TestDecodeBody(t *testing.T) {
	var j struct {
		Location string `json:"Location"`
	}
	if err := DecodeBody(FormatJSON, []byte(`{"Location":"abc"}`), &j); err != nil {
		t.Fatalf("Failed to decode json: %v", err)
	}
	if j.Location != "abc" {
		t.Errorf("Expected abc, got %s", j.Location)
	}

	var x struct {
		Name string `xml:"Name"`
	}
	if err := DecodeBody(FormatXML, []byte(`<Result><Name>bucket</Name></Result>`), &x); err != nil {
		t.Fatalf("Failed to decode xml: %v", err)
	}
	if x.Name != "bucket" {
		t.Errorf("Expected bucket, got %s", x.Name)
	}

	if err := DecodeBody(FormatJSON, []byte(`{broken`), &j); !IsDecodingError(err) {
		t.Errorf("Expected DecodingError, got %v", err)
	}
	if err := DecodeBody(FormatUnknown, []byte(`abc`), &j); !IsDecodingError(err) {
		t.Errorf("Expected DecodingError, got %v", err)
	}
}
